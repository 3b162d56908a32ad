package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/grievance-api/internal/models"
	"github.com/noah-isme/grievance-api/pkg/response"
)

type auditHistory interface {
	History(ctx context.Context, entityType, entityID string, limit int) ([]models.AuditLog, error)
}

// AuditHandler exposes the read side of the audit trail.
type AuditHandler struct {
	audit auditHistory
}

// NewAuditHandler builds a new handler.
func NewAuditHandler(audit auditHistory) *AuditHandler {
	return &AuditHandler{audit: audit}
}

// History godoc
// @Summary Audit history of an entity, newest first
// @Tags Audit
// @Produce json
// @Param entityType path string true "grievance or project"
// @Param entityId path string true "Entity ID"
// @Param limit query int false "Maximum entries (default 50, max 200)"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /audit/{entityType}/{entityId} [get]
func (h *AuditHandler) History(c *gin.Context) {
	limit, err := intQuery(c, "limit")
	if err != nil {
		response.Error(c, err)
		return
	}
	logs, err := h.audit.History(c.Request.Context(), c.Param("entityType"), c.Param("entityId"), limit)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, logs, nil)
}
