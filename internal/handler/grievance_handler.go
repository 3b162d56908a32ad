package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/grievance-api/internal/dto"
	"github.com/noah-isme/grievance-api/internal/models"
	"github.com/noah-isme/grievance-api/pkg/response"
)

type grievanceService interface {
	Create(ctx context.Context, actor models.Actor, req dto.CreateGrievanceRequest) (*models.Grievance, error)
	Get(ctx context.Context, id string) (*models.GrievanceDetail, error)
	List(ctx context.Context, query dto.GrievanceQuery) ([]models.GrievanceDetail, *models.Pagination, error)
	Update(ctx context.Context, actor models.Actor, id string, req dto.UpdateGrievanceRequest) (*models.Grievance, error)
	Assign(ctx context.Context, actor models.Actor, id string, req dto.AssignGrievanceRequest) (*dto.TransitionResult, error)
	TransitionStatus(ctx context.Context, actor models.Actor, id string, req dto.TransitionStatusRequest) (*dto.TransitionResult, error)
	Delete(ctx context.Context, actor models.Actor, id string) error
	StatusHistory(ctx context.Context, id string) (*dto.StatusHistoryResponse, error)
}

// GrievanceHandler exposes grievance intake and lifecycle endpoints.
type GrievanceHandler struct {
	service grievanceService
}

// NewGrievanceHandler builds a new handler.
func NewGrievanceHandler(service grievanceService) *GrievanceHandler {
	return &GrievanceHandler{service: service}
}

// Create godoc
// @Summary Submit a grievance
// @Tags Grievances
// @Accept json
// @Produce json
// @Param payload body dto.CreateGrievanceRequest true "Grievance payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Security BearerAuth
// @Router /grievances [post]
func (h *GrievanceHandler) Create(c *gin.Context) {
	var req dto.CreateGrievanceRequest
	if err := bindJSON(c, &req, "invalid grievance payload"); err != nil {
		response.Error(c, err)
		return
	}
	grievance, err := h.service.Create(c.Request.Context(), actorFromContext(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, grievance)
}

// List godoc
// @Summary List grievances
// @Tags Grievances
// @Produce json
// @Param district query string false "District"
// @Param mandal query string false "Mandal"
// @Param village query string false "Village"
// @Param status query string false "Comma separated statuses"
// @Param priority query string false "Comma separated priorities"
// @Param categoryId query string false "Category ID"
// @Param assignedTo query string false "Assignee user ID"
// @Param search query string false "Matches title, reference number or requester name"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /grievances [get]
func (h *GrievanceHandler) List(c *gin.Context) {
	page, err := intQuery(c, "page")
	if err != nil {
		response.Error(c, err)
		return
	}
	limit, err := intQuery(c, "limit")
	if err != nil {
		response.Error(c, err)
		return
	}
	query := dto.GrievanceQuery{
		District:   c.Query("district"),
		Mandal:     c.Query("mandal"),
		Village:    c.Query("village"),
		CategoryID: c.Query("categoryId"),
		AssignedTo: c.Query("assignedTo"),
		Search:     c.Query("search"),
		Page:       page,
		Limit:      limit,
	}
	for _, s := range listQuery(c, "status") {
		query.Status = append(query.Status, models.GrievanceStatus(strings.ToUpper(s)))
	}
	for _, p := range listQuery(c, "priority") {
		query.Priority = append(query.Priority, models.Priority(strings.ToUpper(p)))
	}

	items, pagination, err := h.service.List(c.Request.Context(), query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, pagination)
}

// Get godoc
// @Summary Get a grievance
// @Tags Grievances
// @Produce json
// @Param id path string true "Grievance ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Security BearerAuth
// @Router /grievances/{id} [get]
func (h *GrievanceHandler) Get(c *gin.Context) {
	grievance, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, grievance, nil)
}

// Update godoc
// @Summary Edit grievance fields
// @Tags Grievances
// @Accept json
// @Produce json
// @Param id path string true "Grievance ID"
// @Param payload body dto.UpdateGrievanceRequest true "Fields to change"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Security BearerAuth
// @Router /grievances/{id} [patch]
func (h *GrievanceHandler) Update(c *gin.Context) {
	var req dto.UpdateGrievanceRequest
	if err := bindJSON(c, &req, "invalid grievance payload"); err != nil {
		response.Error(c, err)
		return
	}
	grievance, err := h.service.Update(c.Request.Context(), actorFromContext(c), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, grievance, nil)
}

// Assign godoc
// @Summary Assign a grievance to an officer
// @Tags Grievances
// @Accept json
// @Produce json
// @Param id path string true "Grievance ID"
// @Param payload body dto.AssignGrievanceRequest true "Assignee"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /grievances/{id}/assign [post]
func (h *GrievanceHandler) Assign(c *gin.Context) {
	var req dto.AssignGrievanceRequest
	if err := bindJSON(c, &req, "invalid assignment payload"); err != nil {
		response.Error(c, err)
		return
	}
	result, err := h.service.Assign(c.Request.Context(), actorFromContext(c), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// TransitionStatus godoc
// @Summary Move a grievance to a new status
// @Tags Grievances
// @Accept json
// @Produce json
// @Param id path string true "Grievance ID"
// @Param payload body dto.TransitionStatusRequest true "Target status"
// @Success 200 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Security BearerAuth
// @Router /grievances/{id}/status [post]
func (h *GrievanceHandler) TransitionStatus(c *gin.Context) {
	var req dto.TransitionStatusRequest
	if err := bindJSON(c, &req, "invalid status payload"); err != nil {
		response.Error(c, err)
		return
	}
	result, err := h.service.TransitionStatus(c.Request.Context(), actorFromContext(c), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// StatusHistory godoc
// @Summary Status history and allowed next states
// @Tags Grievances
// @Produce json
// @Param id path string true "Grievance ID"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /grievances/{id}/status-history [get]
func (h *GrievanceHandler) StatusHistory(c *gin.Context) {
	history, err := h.service.StatusHistory(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, history, nil)
}

// Delete godoc
// @Summary Soft-delete a grievance
// @Tags Grievances
// @Param id path string true "Grievance ID"
// @Success 204
// @Security BearerAuth
// @Router /grievances/{id} [delete]
func (h *GrievanceHandler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), actorFromContext(c), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
