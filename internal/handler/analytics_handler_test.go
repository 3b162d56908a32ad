package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/grievance-api/internal/dto"
	"github.com/noah-isme/grievance-api/internal/middleware"
	"github.com/noah-isme/grievance-api/internal/models"
	appErrors "github.com/noah-isme/grievance-api/pkg/errors"
)

type responseEnvelope struct {
	Data       map[string]interface{} `json:"data"`
	Meta       map[string]interface{} `json:"meta"`
	Pagination *models.Pagination     `json:"pagination"`
}

type fakeAnalyticsSrv struct {
	lastAggregate dto.AggregateQuery
	lastCritical  dto.CriticalQuery
	hit           bool
	aggregateErr  error
}

func (f *fakeAnalyticsSrv) Aggregate(_ context.Context, query dto.AggregateQuery) (*dto.AggregateResponse, bool, error) {
	f.lastAggregate = query
	if f.aggregateErr != nil {
		return nil, false, f.aggregateErr
	}
	return &dto.AggregateResponse{
		GroupBy:        models.GroupByDistrict,
		Year:           2025,
		AggregatedData: []models.AggregationBucket{},
		Summary:        models.AggregationSummary{TotalGrievances: 3, ResolutionRate: 33.33},
	}, f.hit, nil
}

func (f *fakeAnalyticsSrv) ListCritical(_ context.Context, query dto.CriticalQuery) (*dto.CriticalListResponse, error) {
	f.lastCritical = query
	return &dto.CriticalListResponse{
		Items:      []models.CriticalItem{},
		Pagination: models.NewPagination(1, 20, 4),
		Summary:    models.CriticalSummary{TotalCritical: 4},
		Workload:   []models.OfficerWorkload{},
	}, nil
}

func (f *fakeAnalyticsSrv) SystemMetrics() models.AnalyticsSystemMetrics {
	return models.AnalyticsSystemMetrics{RequestsTotal: 9}
}

func newAnalyticsRouter(srv *fakeAnalyticsSrv) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := NewAnalyticsHandler(srv)
	r := gin.New()
	r.Use(middleware.TrackResponseMeta())
	r.GET("/analytics/aggregate", h.Aggregate)
	r.GET("/analytics/critical", h.Critical)
	r.GET("/analytics/system", h.System)
	return r
}

func TestAnalyticsHandlerAggregate(t *testing.T) {
	srv := &fakeAnalyticsSrv{hit: true}
	r := newAnalyticsRouter(srv)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/analytics/aggregate?groupBy=district&year=2025&constituency=Tenali", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "district", srv.lastAggregate.GroupBy)
	assert.Equal(t, 2025, srv.lastAggregate.Year)
	assert.Equal(t, "Tenali", srv.lastAggregate.Constituency)

	var envelope responseEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	assert.Equal(t, true, envelope.Meta["cacheHit"])
	summary, ok := envelope.Data["summary"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, 33.33, summary["resolutionRate"])
}

func TestAnalyticsHandlerAggregateErrors(t *testing.T) {
	srv := &fakeAnalyticsSrv{aggregateErr: appErrors.ErrInvalidGroupBy}
	r := newAnalyticsRouter(srv)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/analytics/aggregate?groupBy=state", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	var envelope errorEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	assert.Equal(t, "INVALID_GROUP_BY", envelope.Error.Code)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/analytics/aggregate?groupBy=district&year=abc", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	srv.aggregateErr = appErrors.Persistence(errors.New("db down"), "failed to aggregate grievances")
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/analytics/aggregate?groupBy=district", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "db down")
}

func TestAnalyticsHandlerCritical(t *testing.T) {
	srv := &fakeAnalyticsSrv{}
	r := newAnalyticsRouter(srv)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/analytics/critical?district=Guntur&priority=URGENT&page=1&limit=20", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Guntur", srv.lastCritical.District)
	assert.Equal(t, "URGENT", srv.lastCritical.Priority)

	var envelope responseEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	require.NotNil(t, envelope.Pagination)
	assert.Equal(t, 4, envelope.Pagination.Total)
	assert.Contains(t, envelope.Data, "workload")
}

func TestAnalyticsHandlerSystem(t *testing.T) {
	r := newAnalyticsRouter(&fakeAnalyticsSrv{})
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/analytics/system", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"requestsTotal":9`)
}
