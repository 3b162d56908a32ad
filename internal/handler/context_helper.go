package handler

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/grievance-api/internal/middleware"
	"github.com/noah-isme/grievance-api/internal/models"
	appErrors "github.com/noah-isme/grievance-api/pkg/errors"
)

// actorFromContext builds the acting identity from JWT claims plus request origin.
// An empty actor is returned for anonymous requests; services reject it where identity is required.
func actorFromContext(c *gin.Context) models.Actor {
	claims := middleware.ClaimsFromContext(c)
	if claims == nil {
		return models.Actor{}
	}
	return models.Actor{
		ID:        claims.UserID,
		Role:      claims.Role,
		IPAddress: c.ClientIP(),
		UserAgent: c.GetHeader("User-Agent"),
	}
}

func bindJSON(c *gin.Context, dest interface{}, message string) error {
	if err := c.ShouldBindJSON(dest); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, message)
	}
	return nil
}

// intQuery reads an optional integer query parameter. Absent means 0.
func intQuery(c *gin.Context, key string) (int, error) {
	raw := strings.TrimSpace(c.Query(key))
	if raw == "" {
		return 0, nil
	}
	val, err := strconv.Atoi(raw)
	if err != nil {
		return 0, appErrors.WithDetails(
			appErrors.Clone(appErrors.ErrValidation, key+" must be an integer"),
			map[string]interface{}{"fields": map[string]interface{}{key: "numeric"}},
		)
	}
	return val, nil
}

// listQuery splits repeated or comma separated query values.
func listQuery(c *gin.Context, key string) []string {
	var out []string
	for _, raw := range c.QueryArray(key) {
		for _, part := range strings.Split(raw, ",") {
			if trimmed := strings.TrimSpace(part); trimmed != "" {
				out = append(out, trimmed)
			}
		}
	}
	return out
}
