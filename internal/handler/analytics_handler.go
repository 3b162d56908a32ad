package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/grievance-api/internal/dto"
	"github.com/noah-isme/grievance-api/internal/middleware"
	"github.com/noah-isme/grievance-api/internal/models"
	appErrors "github.com/noah-isme/grievance-api/pkg/errors"
	"github.com/noah-isme/grievance-api/pkg/response"
)

type analyticsService interface {
	Aggregate(ctx context.Context, query dto.AggregateQuery) (*dto.AggregateResponse, bool, error)
	ListCritical(ctx context.Context, query dto.CriticalQuery) (*dto.CriticalListResponse, error)
	SystemMetrics() models.AnalyticsSystemMetrics
}

// AnalyticsHandler exposes geographic rollups and the critical item list.
type AnalyticsHandler struct {
	analytics analyticsService
}

// NewAnalyticsHandler constructs the analytics handler.
func NewAnalyticsHandler(analytics analyticsService) *AnalyticsHandler {
	return &AnalyticsHandler{analytics: analytics}
}

// Aggregate godoc
// @Summary Aggregate grievances by geography
// @Tags Analytics
// @Produce json
// @Param groupBy query string true "district, mandal or village"
// @Param year query int false "Creation year (defaults to current)"
// @Param constituency query string false "Constituency"
// @Param status query string false "Status"
// @Param priority query string false "Priority"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Security BearerAuth
// @Router /analytics/aggregate [get]
func (h *AnalyticsHandler) Aggregate(c *gin.Context) {
	if h.analytics == nil {
		response.Error(c, appErrors.ErrInternal)
		return
	}
	query, err := aggregateQuery(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	result, cacheHit, err := h.analytics.Aggregate(c.Request.Context(), query)
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.MarkCacheResult(c, cacheHit)
	response.JSON(c, http.StatusOK, result, nil, middleware.ResponseMetaFor(c))
}

// Critical godoc
// @Summary List critical grievances
// @Tags Analytics
// @Produce json
// @Param district query string false "District"
// @Param mandal query string false "Mandal"
// @Param priority query string false "Priority"
// @Param status query string false "Status"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /analytics/critical [get]
func (h *AnalyticsHandler) Critical(c *gin.Context) {
	if h.analytics == nil {
		response.Error(c, appErrors.ErrInternal)
		return
	}
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
	result, err := h.analytics.ListCritical(c.Request.Context(), dto.CriticalQuery{
		District: c.Query("district"),
		Mandal:   c.Query("mandal"),
		Priority: c.Query("priority"),
		Status:   c.Query("status"),
		Page:     page,
		Limit:    limit,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{
		"items":    result.Items,
		"summary":  result.Summary,
		"workload": result.Workload,
	}, result.Pagination)
}

// System godoc
// @Summary Service instrumentation snapshot
// @Tags Analytics
// @Produce json
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /analytics/system [get]
func (h *AnalyticsHandler) System(c *gin.Context) {
	if h.analytics == nil {
		response.Error(c, appErrors.ErrInternal)
		return
	}
	response.JSON(c, http.StatusOK, h.analytics.SystemMetrics(), nil)
}

func aggregateQuery(c *gin.Context) (dto.AggregateQuery, error) {
	year, err := intQuery(c, "year")
	if err != nil {
		return dto.AggregateQuery{}, err
	}
	return dto.AggregateQuery{
		GroupBy:      c.Query("groupBy"),
		Year:         year,
		Constituency: c.Query("constituency"),
		Status:       c.Query("status"),
		Priority:     c.Query("priority"),
	}, nil
}
