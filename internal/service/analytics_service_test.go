package service

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/grievance-api/internal/dto"
	"github.com/noah-isme/grievance-api/internal/models"
	appErrors "github.com/noah-isme/grievance-api/pkg/errors"
)

type mockAnalyticsRepo struct {
	rows          []models.AggregationRow
	critical      []models.GrievanceDetail
	summary       models.CriticalSummary
	loads         []models.AssigneeLoad
	aggregateArgs []models.AggregationFilter
	criticalArgs  []models.CriticalFilter
	aggregateErr  error
	duringScan    func()
}

func (m *mockAnalyticsRepo) AggregateRows(_ context.Context, filter models.AggregationFilter) ([]models.AggregationRow, error) {
	m.aggregateArgs = append(m.aggregateArgs, filter)
	if m.duringScan != nil {
		m.duringScan()
	}
	if m.aggregateErr != nil {
		return nil, m.aggregateErr
	}
	return m.rows, nil
}

func (m *mockAnalyticsRepo) CriticalItems(_ context.Context, filter models.CriticalFilter) ([]models.GrievanceDetail, error) {
	m.criticalArgs = append(m.criticalArgs, filter)
	return m.critical, nil
}

func (m *mockAnalyticsRepo) CriticalSummary(context.Context, models.CriticalFilter, time.Time) (models.CriticalSummary, error) {
	return m.summary, nil
}

func (m *mockAnalyticsRepo) Workload(context.Context, models.CriticalFilter) ([]models.AssigneeLoad, error) {
	return m.loads, nil
}

type stubCategoryLister struct {
	categories []models.Category
}

func (s stubCategoryLister) List(context.Context) ([]models.Category, error) {
	return s.categories, nil
}

type stubCacheRepo struct {
	store       map[string][]byte
	invalidated []string
	getErr      error
}

func (s *stubCacheRepo) Get(_ context.Context, key string, dest interface{}) error {
	if s.getErr != nil {
		return s.getErr
	}
	if s.store == nil {
		return appErrors.ErrCacheMiss
	}
	payload, ok := s.store[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(payload, dest)
}

func (s *stubCacheRepo) Set(_ context.Context, key string, value interface{}, _ time.Duration) error {
	if s.store == nil {
		s.store = make(map[string][]byte)
	}
	payload, err := json.Marshal(value)
	if err != nil {
		return err
	}
	s.store[key] = payload
	return nil
}

func (s *stubCacheRepo) DeleteByPattern(_ context.Context, pattern string) error {
	s.invalidated = append(s.invalidated, pattern)
	prefix := strings.TrimSuffix(pattern, "*")
	for key := range s.store {
		if strings.HasPrefix(key, prefix) {
			delete(s.store, key)
		}
	}
	return nil
}

func (s *stubCacheRepo) Incr(_ context.Context, key string) (int64, error) {
	if s.store == nil {
		s.store = make(map[string][]byte)
	}
	var value int64
	if raw, ok := s.store[key]; ok {
		if err := json.Unmarshal(raw, &value); err != nil {
			return 0, err
		}
	}
	value++
	s.store[key] = []byte(strconv.FormatInt(value, 10))
	return value, nil
}

func floatPtr(v float64) *float64 { return &v }

func strPtr(v string) *string { return &v }

func newTestAnalyticsService(repo *mockAnalyticsRepo, cache *CacheService, users officerLookup) *AnalyticsService {
	svc := NewAnalyticsService(repo, stubCategoryLister{categories: []models.Category{
		{ID: "cat-water", Name: "Water Supply", Color: "#0088ff", Active: true},
		{ID: "cat-roads", Name: "Roads", Color: "#aa5500", Active: true},
	}}, users, cache, nil, AnalyticsConfig{CriticalDefaultLimit: 10, CriticalMaxLimit: 50}, zap.NewNop())
	svc.now = func() time.Time { return time.Date(2025, time.June, 15, 12, 0, 0, 0, time.UTC) }
	return svc
}

func TestFoldAggregationByDistrict(t *testing.T) {
	rows := []models.AggregationRow{
		{District: "Guntur", Status: "RESOLVED", Priority: "HIGH", CategoryID: strPtr("cat-water"), Count: 1, CostCount: 1, CostSum: floatPtr(1000)},
		{District: "Guntur", Status: "PENDING", Priority: "URGENT", CategoryID: strPtr("cat-roads"), Count: 1, CostCount: 1, CostSum: floatPtr(500)},
		{District: "Guntur", Status: "ASSIGNED", Priority: "LOW", CategoryID: nil, Count: 1},
		{District: "Anantapur", Status: "CLOSED", Priority: "MEDIUM", CategoryID: strPtr("missing"), Count: 2, CostCount: 1, CostSum: floatPtr(300)},
	}
	categories := map[string]models.Category{
		"cat-water": {ID: "cat-water", Name: "Water Supply"},
		"cat-roads": {ID: "cat-roads", Name: "Roads"},
	}

	buckets, summary := FoldAggregation(models.GroupByDistrict, rows, categories)
	require.Len(t, buckets, 2)
	assert.Equal(t, "Anantapur", buckets[0].District)
	assert.Equal(t, "Guntur", buckets[1].District)

	guntur := buckets[1]
	assert.Equal(t, 3, guntur.TotalGrievances)
	assert.Equal(t, 1500.0, guntur.TotalEstimatedCost)
	assert.Equal(t, 750.0, guntur.AverageEstimatedCost)
	assert.Equal(t, map[string]int{"RESOLVED": 1, "PENDING": 1, "ASSIGNED": 1}, guntur.StatusBreakdown)
	assert.Len(t, guntur.CategoryBreakdown, 3)

	anantapur := buckets[0]
	require.Len(t, anantapur.CategoryBreakdown, 1)
	assert.Equal(t, UncategorizedLabel, anantapur.CategoryBreakdown[0].Name)
	assert.Nil(t, anantapur.CategoryBreakdown[0].CategoryID)

	total := 0
	for _, b := range buckets {
		total += b.TotalGrievances
	}
	assert.Equal(t, summary.TotalGrievances, total)
	assert.Equal(t, 5, summary.TotalGrievances)
	assert.Equal(t, 3, summary.ResolvedCount)
	assert.Equal(t, 1, summary.PendingCount)
	assert.Equal(t, 1, summary.UrgentCount)
	assert.Equal(t, 1800.0, summary.TotalEstimatedCost)
	assert.Equal(t, 600.0, summary.AverageEstimatedCost)
	assert.Equal(t, 60.0, summary.ResolutionRate)
}

func TestFoldAggregationMandalKeepsDistrictInKey(t *testing.T) {
	rows := []models.AggregationRow{
		{District: "Krishna", Mandal: "Central", Status: "PENDING", Priority: "LOW", Count: 2},
		{District: "Guntur", Mandal: "Central", Status: "PENDING", Priority: "LOW", Count: 1},
	}
	buckets, _ := FoldAggregation(models.GroupByMandal, rows, nil)
	require.Len(t, buckets, 2)
	assert.Equal(t, "Guntur", buckets[0].District)
	assert.Equal(t, "Central", buckets[0].Mandal)
	assert.Equal(t, 2, buckets[1].TotalGrievances)
}

func TestFoldAggregationEmpty(t *testing.T) {
	buckets, summary := FoldAggregation(models.GroupByVillage, nil, nil)
	assert.NotNil(t, buckets)
	assert.Empty(t, buckets)
	assert.Equal(t, 0, summary.TotalGrievances)
	assert.Equal(t, 0.0, summary.ResolutionRate)
	assert.Equal(t, 0.0, summary.AverageEstimatedCost)
}

func TestResolutionRate(t *testing.T) {
	assert.Equal(t, 33.33, ResolutionRate(1, 3))
	assert.Equal(t, 100.0, ResolutionRate(4, 4))
	assert.Equal(t, 0.0, ResolutionRate(0, 0))
	assert.Equal(t, 66.67, ResolutionRate(2, 3))
}

func TestAnalyticsServiceAggregateRejectsUnknownGroupBy(t *testing.T) {
	repo := &mockAnalyticsRepo{}
	svc := newTestAnalyticsService(repo, nil, nil)

	_, _, err := svc.Aggregate(context.Background(), dto.AggregateQuery{GroupBy: "state"})
	require.Error(t, err)
	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, appErrors.ErrInvalidGroupBy.Code, appErr.Code)
	assert.Empty(t, repo.aggregateArgs)
}

func TestAnalyticsServiceAggregateDefaultsYearAndNormalises(t *testing.T) {
	repo := &mockAnalyticsRepo{rows: []models.AggregationRow{
		{District: "Guntur", Status: "RESOLVED", Priority: "HIGH", Count: 1},
	}}
	svc := newTestAnalyticsService(repo, nil, nil)

	resp, hit, err := svc.Aggregate(context.Background(), dto.AggregateQuery{GroupBy: "District", Status: "resolved"})
	require.NoError(t, err)
	assert.False(t, hit)
	require.Len(t, repo.aggregateArgs, 1)
	assert.Equal(t, 2025, repo.aggregateArgs[0].Year)
	assert.Equal(t, models.GroupByDistrict, repo.aggregateArgs[0].GroupBy)
	assert.Equal(t, models.GrievanceStatusResolved, repo.aggregateArgs[0].Status)
	assert.Equal(t, 2025, resp.Year)
	assert.Equal(t, 100.0, resp.Summary.ResolutionRate)
}

func TestAnalyticsServiceAggregateCaching(t *testing.T) {
	repo := &mockAnalyticsRepo{rows: []models.AggregationRow{
		{District: "Guntur", Status: "PENDING", Priority: "URGENT", Count: 2},
	}}
	cacheRepo := &stubCacheRepo{}
	cache := NewCacheService(cacheRepo, nil, time.Minute, zap.NewNop(), true)
	svc := newTestAnalyticsService(repo, cache, nil)

	query := dto.AggregateQuery{GroupBy: "district", Year: 2025}
	first, hit, err := svc.Aggregate(context.Background(), query)
	require.NoError(t, err)
	assert.False(t, hit)

	second, hit, err := svc.Aggregate(context.Background(), query)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Len(t, repo.aggregateArgs, 1)
	assert.Equal(t, first.Summary, second.Summary)

	cache.InvalidateAnalytics(context.Background())
	_, hit, err = svc.Aggregate(context.Background(), query)
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Len(t, repo.aggregateArgs, 2)
}

func TestAnalyticsServiceAggregateDoesNotServeSnapshotOlderThanWrite(t *testing.T) {
	repo := &mockAnalyticsRepo{rows: []models.AggregationRow{
		{District: "Guntur", Status: "PENDING", Priority: "HIGH", Count: 1},
	}}
	cacheRepo := &stubCacheRepo{}
	cache := NewCacheService(cacheRepo, nil, time.Minute, zap.NewNop(), true)
	svc := newTestAnalyticsService(repo, cache, nil)
	query := dto.AggregateQuery{GroupBy: "district", Year: 2025}

	// A grievance write commits while the first read is still scanning.
	repo.duringScan = func() {
		repo.duringScan = nil
		cache.InvalidateAnalytics(context.Background())
	}
	_, hit, err := svc.Aggregate(context.Background(), query)
	require.NoError(t, err)
	assert.False(t, hit)

	_, hit, err = svc.Aggregate(context.Background(), query)
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Len(t, repo.aggregateArgs, 2)

	_, hit, err = svc.Aggregate(context.Background(), query)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, "1", string(cacheRepo.store[analyticsGenerationKey]))
}

func TestAnalyticsServiceAggregateFallsThroughOnCacheError(t *testing.T) {
	repo := &mockAnalyticsRepo{}
	cache := NewCacheService(&stubCacheRepo{getErr: errors.New("redis down")}, nil, time.Minute, zap.NewNop(), true)
	svc := newTestAnalyticsService(repo, cache, nil)

	resp, hit, err := svc.Aggregate(context.Background(), dto.AggregateQuery{GroupBy: "village", Year: 2024})
	require.NoError(t, err)
	assert.False(t, hit)
	assert.NotNil(t, resp.AggregatedData)
	assert.Len(t, repo.aggregateArgs, 1)
}

func TestAnalyticsServiceAggregateStoreError(t *testing.T) {
	repo := &mockAnalyticsRepo{aggregateErr: errors.New("boom")}
	svc := newTestAnalyticsService(repo, nil, nil)

	_, _, err := svc.Aggregate(context.Background(), dto.AggregateQuery{GroupBy: "district", Year: 2024})
	require.Error(t, err)
	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, appErrors.ErrPersistence.Code, appErr.Code)
}

func TestNewCriticalItemOverdue(t *testing.T) {
	now := time.Date(2025, time.June, 15, 12, 0, 0, 0, time.UTC)
	expected := now.AddDate(0, 0, -3)
	item := NewCriticalItem(models.GrievanceDetail{Grievance: models.Grievance{
		Status:                 models.GrievanceStatusAssigned,
		CreatedAt:              now.AddDate(0, 0, -10),
		ExpectedResolutionDate: &expected,
	}}, now)
	assert.Equal(t, 10, item.DaysSinceCreation)
	assert.True(t, item.IsOverdue)
	assert.Equal(t, 3, item.OverdueDays)

	resolved := NewCriticalItem(models.GrievanceDetail{Grievance: models.Grievance{
		Status:                 models.GrievanceStatusResolved,
		CreatedAt:              now.AddDate(0, 0, -10),
		ExpectedResolutionDate: &expected,
	}}, now)
	assert.False(t, resolved.IsOverdue)
	assert.Zero(t, resolved.OverdueDays)

	noDate := NewCriticalItem(models.GrievanceDetail{Grievance: models.Grievance{
		Status:    models.GrievanceStatusPending,
		CreatedAt: now.Add(-time.Hour),
	}}, now)
	assert.False(t, noDate.IsOverdue)
	assert.Zero(t, noDate.DaysSinceCreation)
}

func TestAnalyticsServiceListCritical(t *testing.T) {
	now := time.Date(2025, time.June, 15, 12, 0, 0, 0, time.UTC)
	overdue := now.AddDate(0, 0, -2)
	repo := &mockAnalyticsRepo{
		critical: []models.GrievanceDetail{
			{Grievance: models.Grievance{ID: "g-1", Priority: models.PriorityUrgent, Status: models.GrievanceStatusPending, CreatedAt: now.AddDate(0, 0, -5), ExpectedResolutionDate: &overdue}},
			{Grievance: models.Grievance{ID: "g-2", Priority: models.PriorityHigh, Status: models.GrievanceStatusInProgress, CreatedAt: now.AddDate(0, 0, -1)}},
		},
		summary: models.CriticalSummary{TotalCritical: 12, UrgentCount: 4, HighCount: 8, PendingCount: 5, OverdueCount: 1},
		loads: []models.AssigneeLoad{
			{AssigneeID: "officer-1", Count: 7},
			{AssigneeID: "ghost", Count: 1},
		},
	}
	users := &stubUserDirectory{users: map[string]models.User{
		"officer-1": {ID: "officer-1", FullName: "Lakshmi Rao", Role: models.RoleOfficer, Active: true},
	}}
	svc := newTestAnalyticsService(repo, nil, users)

	resp, err := svc.ListCritical(context.Background(), dto.CriticalQuery{Priority: "urgent", Page: 2, Limit: 500})
	require.NoError(t, err)
	require.Len(t, repo.criticalArgs, 1)
	assert.Equal(t, models.PriorityUrgent, repo.criticalArgs[0].Priority)
	assert.Equal(t, 50, repo.criticalArgs[0].Limit)
	assert.Equal(t, 50, repo.criticalArgs[0].Offset)

	require.Len(t, resp.Items, 2)
	assert.True(t, resp.Items[0].IsOverdue)
	assert.Equal(t, 2, resp.Items[0].OverdueDays)
	assert.Equal(t, 5, resp.Items[0].DaysSinceCreation)
	assert.False(t, resp.Items[1].IsOverdue)

	assert.Equal(t, 12, resp.Pagination.Total)
	assert.Equal(t, 2, resp.Pagination.Page)
	assert.Equal(t, 12, resp.Summary.TotalCritical)

	require.Len(t, resp.Workload, 2)
	assert.Equal(t, "Lakshmi Rao", resp.Workload[0].Name)
	assert.Equal(t, 7, resp.Workload[0].Count)
	assert.Equal(t, "Unknown officer", resp.Workload[1].Name)
}

func TestAnalyticsServiceListCriticalRejectsUnknownPriority(t *testing.T) {
	svc := newTestAnalyticsService(&mockAnalyticsRepo{}, nil, nil)
	_, err := svc.ListCritical(context.Background(), dto.CriticalQuery{Priority: "severe"})
	require.Error(t, err)
	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
}

func TestMakeAnalyticsCacheKey(t *testing.T) {
	assert.Equal(t, "analytics:aggregate:district:2025:a|b", makeAnalyticsCacheKey("aggregate", "district", "2025", "a:b"))
}
