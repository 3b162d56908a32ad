package service

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/grievance-api/internal/dto"
	"github.com/noah-isme/grievance-api/internal/models"
	appErrors "github.com/noah-isme/grievance-api/pkg/errors"
)

// UncategorizedLabel names grievances without a known category in breakdowns.
const UncategorizedLabel = "Uncategorized"

// AnalyticsRepository describes the persistence layer required by AnalyticsService.
type AnalyticsRepository interface {
	AggregateRows(ctx context.Context, filter models.AggregationFilter) ([]models.AggregationRow, error)
	CriticalItems(ctx context.Context, filter models.CriticalFilter) ([]models.GrievanceDetail, error)
	CriticalSummary(ctx context.Context, filter models.CriticalFilter, now time.Time) (models.CriticalSummary, error)
	Workload(ctx context.Context, filter models.CriticalFilter) ([]models.AssigneeLoad, error)
}

type categoryLister interface {
	List(ctx context.Context) ([]models.Category, error)
}

type officerLookup interface {
	FindByIDs(ctx context.Context, ids []string) ([]models.User, error)
}

// AnalyticsConfig bounds critical item paging.
type AnalyticsConfig struct {
	CriticalDefaultLimit int
	CriticalMaxLimit     int
}

// AnalyticsService provides read-only rollups and critical item ranking with cache integration.
type AnalyticsService struct {
	repo       AnalyticsRepository
	categories categoryLister
	users      officerLookup
	cache      *CacheService
	metrics    *MetricsService
	cfg        AnalyticsConfig
	logger     *zap.Logger
	now        func() time.Time
}

// NewAnalyticsService constructs an analytics service.
func NewAnalyticsService(repo AnalyticsRepository, categories categoryLister, users officerLookup, cache *CacheService, metrics *MetricsService, cfg AnalyticsConfig, logger *zap.Logger) *AnalyticsService {
	if cfg.CriticalDefaultLimit <= 0 {
		cfg.CriticalDefaultLimit = 20
	}
	if cfg.CriticalMaxLimit < cfg.CriticalDefaultLimit {
		cfg.CriticalMaxLimit = 100
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AnalyticsService{
		repo:       repo,
		categories: categories,
		users:      users,
		cache:      cache,
		metrics:    metrics,
		cfg:        cfg,
		logger:     logger,
		now:        time.Now,
	}
}

// Aggregate rolls grievances of one creation year up by geography. The boolean reports a cache hit.
func (s *AnalyticsService) Aggregate(ctx context.Context, query dto.AggregateQuery) (*dto.AggregateResponse, bool, error) {
	filter, err := s.aggregationFilter(query)
	if err != nil {
		return nil, false, err
	}

	generation, cacheable := s.cache.AnalyticsGeneration(ctx)
	cacheKey := makeAnalyticsCacheKey("aggregate", strconv.FormatInt(generation, 10), string(filter.GroupBy),
		strconv.Itoa(filter.Year), filter.Constituency, string(filter.Status), string(filter.Priority))
	if cacheable {
		var cached dto.AggregateResponse
		if hit, err := s.cache.Get(ctx, cacheKey, &cached); err != nil {
			s.logger.Warn("aggregate cache read failed, querying store", zap.Error(err))
		} else if hit {
			return &cached, true, nil
		}
	}

	start := time.Now()
	rows, err := s.repo.AggregateRows(ctx, filter)
	if err != nil {
		return nil, false, appErrors.Persistence(err, "failed to aggregate grievances")
	}
	s.metrics.ObserveDBQuery("analytics_aggregate", time.Since(start))

	categories, err := s.categoryIndex(ctx)
	if err != nil {
		return nil, false, err
	}

	buckets, summary := FoldAggregation(filter.GroupBy, rows, categories)
	resp := &dto.AggregateResponse{
		GroupBy:        filter.GroupBy,
		Year:           filter.Year,
		AggregatedData: buckets,
		Summary:        summary,
	}
	if cacheable {
		if err := s.cache.Set(ctx, cacheKey, resp, 0); err != nil {
			s.logger.Warn("cache aggregate", zap.Error(err))
		}
	}
	return resp, false, nil
}

// ListCritical returns one page of critical grievances with selection-wide counts and officer workload.
func (s *AnalyticsService) ListCritical(ctx context.Context, query dto.CriticalQuery) (*dto.CriticalListResponse, error) {
	priority := models.Priority(strings.ToUpper(strings.TrimSpace(query.Priority)))
	if priority != "" && !priority.IsValid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown priority %q", query.Priority))
	}
	status := models.GrievanceStatus(strings.ToUpper(strings.TrimSpace(query.Status)))
	if status != "" && !status.IsValid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown status %q", query.Status))
	}
	page, limit := normalizePaging(query.Page, query.Limit, s.cfg.CriticalDefaultLimit, s.cfg.CriticalMaxLimit)
	filter := models.CriticalFilter{
		District: strings.TrimSpace(query.District),
		Mandal:   strings.TrimSpace(query.Mandal),
		Priority: priority,
		Status:   status,
		Limit:    limit,
		Offset:   (page - 1) * limit,
	}
	now := s.now().UTC()

	start := time.Now()
	rows, err := s.repo.CriticalItems(ctx, filter)
	if err != nil {
		return nil, appErrors.Persistence(err, "failed to load critical grievances")
	}
	summary, err := s.repo.CriticalSummary(ctx, filter, now)
	if err != nil {
		return nil, appErrors.Persistence(err, "failed to summarise critical grievances")
	}
	loads, err := s.repo.Workload(ctx, filter)
	if err != nil {
		return nil, appErrors.Persistence(err, "failed to compute officer workload")
	}
	s.metrics.ObserveDBQuery("analytics_critical", time.Since(start))

	workload, err := s.resolveWorkload(ctx, loads)
	if err != nil {
		return nil, err
	}

	items := make([]models.CriticalItem, 0, len(rows))
	for _, row := range rows {
		items = append(items, NewCriticalItem(row, now))
	}

	return &dto.CriticalListResponse{
		Items:      items,
		Pagination: models.NewPagination(page, limit, summary.TotalCritical),
		Summary:    summary,
		Workload:   workload,
	}, nil
}

// SystemMetrics returns system instrumentation snapshot.
func (s *AnalyticsService) SystemMetrics() models.AnalyticsSystemMetrics {
	if s.metrics == nil {
		return models.AnalyticsSystemMetrics{}
	}
	return s.metrics.Snapshot()
}

func (s *AnalyticsService) aggregationFilter(query dto.AggregateQuery) (models.AggregationFilter, error) {
	groupBy := models.GroupBy(strings.ToLower(strings.TrimSpace(query.GroupBy)))
	if groupBy.Depth() == 0 {
		return models.AggregationFilter{}, appErrors.WithDetails(appErrors.ErrInvalidGroupBy, map[string]interface{}{
			"groupBy": query.GroupBy,
			"allowed": []models.GroupBy{models.GroupByDistrict, models.GroupByMandal, models.GroupByVillage},
		})
	}
	year := query.Year
	if year == 0 {
		year = s.now().UTC().Year()
	}
	if year < 1970 || year > 9999 {
		return models.AggregationFilter{}, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("year %d out of range", query.Year))
	}
	status := models.GrievanceStatus(strings.ToUpper(strings.TrimSpace(query.Status)))
	if status != "" && !status.IsValid() {
		return models.AggregationFilter{}, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown status %q", query.Status))
	}
	priority := models.Priority(strings.ToUpper(strings.TrimSpace(query.Priority)))
	if priority != "" && !priority.IsValid() {
		return models.AggregationFilter{}, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown priority %q", query.Priority))
	}
	return models.AggregationFilter{
		GroupBy:      groupBy,
		Year:         year,
		Constituency: strings.TrimSpace(query.Constituency),
		Status:       status,
		Priority:     priority,
	}, nil
}

func (s *AnalyticsService) categoryIndex(ctx context.Context) (map[string]models.Category, error) {
	index := make(map[string]models.Category)
	if s.categories == nil {
		return index, nil
	}
	categories, err := s.categories.List(ctx)
	if err != nil {
		return nil, appErrors.Persistence(err, "failed to load categories")
	}
	for _, c := range categories {
		index[c.ID] = c
	}
	return index, nil
}

func (s *AnalyticsService) resolveWorkload(ctx context.Context, loads []models.AssigneeLoad) ([]models.OfficerWorkload, error) {
	workload := make([]models.OfficerWorkload, 0, len(loads))
	if len(loads) == 0 {
		return workload, nil
	}
	ids := make([]string, 0, len(loads))
	for _, l := range loads {
		ids = append(ids, l.AssigneeID)
	}
	directory := make(map[string]models.User, len(ids))
	if s.users != nil {
		users, err := s.users.FindByIDs(ctx, ids)
		if err != nil {
			return nil, appErrors.Persistence(err, "failed to resolve assignees")
		}
		for _, u := range users {
			directory[u.ID] = u
		}
	}
	for _, l := range loads {
		entry := models.OfficerWorkload{AssigneeID: l.AssigneeID, Name: "Unknown officer", Count: l.Count}
		if u, ok := directory[l.AssigneeID]; ok {
			role := u.Role
			entry.Name = u.FullName
			entry.Phone = u.Phone
			entry.Email = u.Email
			entry.Role = &role
		}
		workload = append(workload, entry)
	}
	return workload, nil
}

// NewCriticalItem decorates a grievance with staleness figures as of now.
func NewCriticalItem(g models.GrievanceDetail, now time.Time) models.CriticalItem {
	item := models.CriticalItem{GrievanceDetail: g, DaysSinceCreation: wholeDays(now.Sub(g.CreatedAt))}
	if g.ExpectedResolutionDate != nil && now.After(*g.ExpectedResolutionDate) && !g.Status.IsResolved() {
		item.IsOverdue = true
		item.OverdueDays = wholeDays(now.Sub(*g.ExpectedResolutionDate))
	}
	return item
}

func wholeDays(d time.Duration) int {
	if d <= 0 {
		return 0
	}
	return int(d / (24 * time.Hour))
}

type bucketKey struct {
	district string
	mandal   string
	village  string
}

type bucketAccumulator struct {
	bucket     models.AggregationBucket
	costSum    float64
	costCount  int
	categories map[string]*models.CategoryCount
}

// FoldAggregation turns grouped scan rows into sorted buckets and an overall summary. Both are folded
// from the same rows, so bucket totals always add up to the summary total.
func FoldAggregation(groupBy models.GroupBy, rows []models.AggregationRow, categories map[string]models.Category) ([]models.AggregationBucket, models.AggregationSummary) {
	depth := groupBy.Depth()
	accs := make(map[bucketKey]*bucketAccumulator)
	var (
		summary        models.AggregationSummary
		totalCost      float64
		totalCostCount int
	)

	for _, row := range rows {
		key := bucketKey{district: row.District}
		if depth >= 2 {
			key.mandal = row.Mandal
		}
		if depth >= 3 {
			key.village = row.Village
		}
		acc, ok := accs[key]
		if !ok {
			acc = &bucketAccumulator{
				bucket: models.AggregationBucket{
					District:          key.district,
					Mandal:            key.mandal,
					Village:           key.village,
					StatusBreakdown:   make(map[string]int),
					PriorityBreakdown: make(map[string]int),
				},
				categories: make(map[string]*models.CategoryCount),
			}
			accs[key] = acc
		}

		acc.bucket.TotalGrievances += row.Count
		acc.bucket.StatusBreakdown[row.Status] += row.Count
		acc.bucket.PriorityBreakdown[row.Priority] += row.Count
		if row.CostSum != nil {
			acc.costSum += *row.CostSum
			totalCost += *row.CostSum
		}
		acc.costCount += row.CostCount
		totalCostCount += row.CostCount

		catKey, label := categoryLabel(row.CategoryID, categories)
		entry, ok := acc.categories[catKey]
		if !ok {
			entry = &label
			acc.categories[catKey] = entry
		}
		entry.Count += row.Count

		summary.TotalGrievances += row.Count
		status := models.GrievanceStatus(row.Status)
		if status.IsResolved() {
			summary.ResolvedCount += row.Count
		}
		if status == models.GrievanceStatusPending {
			summary.PendingCount += row.Count
		}
		if models.Priority(row.Priority) == models.PriorityUrgent {
			summary.UrgentCount += row.Count
		}
	}

	buckets := make([]models.AggregationBucket, 0, len(accs))
	for _, acc := range accs {
		b := acc.bucket
		b.TotalEstimatedCost = round2(acc.costSum)
		b.AverageEstimatedCost = average(acc.costSum, acc.costCount)
		b.CategoryBreakdown = make([]models.CategoryCount, 0, len(acc.categories))
		for _, c := range acc.categories {
			b.CategoryBreakdown = append(b.CategoryBreakdown, *c)
		}
		sort.Slice(b.CategoryBreakdown, func(i, j int) bool {
			if b.CategoryBreakdown[i].Count != b.CategoryBreakdown[j].Count {
				return b.CategoryBreakdown[i].Count > b.CategoryBreakdown[j].Count
			}
			return b.CategoryBreakdown[i].Name < b.CategoryBreakdown[j].Name
		})
		buckets = append(buckets, b)
	}
	sort.Slice(buckets, func(i, j int) bool {
		if buckets[i].District != buckets[j].District {
			return buckets[i].District < buckets[j].District
		}
		if buckets[i].Mandal != buckets[j].Mandal {
			return buckets[i].Mandal < buckets[j].Mandal
		}
		return buckets[i].Village < buckets[j].Village
	})

	summary.TotalEstimatedCost = round2(totalCost)
	summary.AverageEstimatedCost = average(totalCost, totalCostCount)
	summary.ResolutionRate = ResolutionRate(summary.ResolvedCount, summary.TotalGrievances)
	return buckets, summary
}

// ResolutionRate is resolved/total as a percentage rounded to two decimals, and 0 for an empty selection.
func ResolutionRate(resolved, total int) float64 {
	if total <= 0 {
		return 0
	}
	return round2(float64(resolved) / float64(total) * 100)
}

func categoryLabel(id *string, categories map[string]models.Category) (string, models.CategoryCount) {
	if id != nil {
		if c, ok := categories[*id]; ok {
			catID := c.ID
			return c.ID, models.CategoryCount{CategoryID: &catID, Name: c.Name, Color: c.Color}
		}
	}
	return "", models.CategoryCount{Name: UncategorizedLabel}
}

func average(sum float64, count int) float64 {
	if count <= 0 {
		return 0
	}
	return round2(sum / float64(count))
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func makeAnalyticsCacheKey(parts ...string) string {
	var builder strings.Builder
	builder.Grow(len(parts) * 16)
	builder.WriteString(strings.TrimSuffix(analyticsCachePrefix, ":"))
	for _, part := range parts {
		builder.WriteByte(':')
		builder.WriteString(strings.ReplaceAll(part, ":", "|"))
	}
	return builder.String()
}
