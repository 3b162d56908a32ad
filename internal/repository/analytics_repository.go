package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/grievance-api/internal/models"
)

const priorityRankSQL = `CASE g.priority WHEN 'URGENT' THEN 4 WHEN 'HIGH' THEN 3 WHEN 'MEDIUM' THEN 2 WHEN 'LOW' THEN 1 ELSE 0 END`

const criticalCriterionSQL = `(g.priority IN ('URGENT', 'HIGH') OR g.status IN ('PENDING', 'ASSIGNED'))`

const notResolvedSQL = `g.status NOT IN ('RESOLVED', 'CLOSED')`

// AnalyticsRepository exposes read-optimised queries for analytics endpoints.
type AnalyticsRepository struct {
	db *sqlx.DB
}

// NewAnalyticsRepository instantiates the repository.
func NewAnalyticsRepository(db *sqlx.DB) *AnalyticsRepository {
	return &AnalyticsRepository{db: db}
}

// AggregateRows runs one grouped scan over the filter's creation year. Each row is a geographic key
// split further by status, priority and category so callers can fold breakdowns without another query.
func (r *AnalyticsRepository) AggregateRows(ctx context.Context, filter models.AggregationFilter) ([]models.AggregationRow, error) {
	var keyColumns []string
	mandal, village := "'' AS mandal", "'' AS village"
	switch filter.GroupBy.Depth() {
	case 1:
		keyColumns = []string{"g.district"}
	case 2:
		keyColumns = []string{"g.district", "g.mandal"}
		mandal = "g.mandal"
	case 3:
		keyColumns = []string{"g.district", "g.mandal", "g.village"}
		mandal, village = "g.mandal", "g.village"
	default:
		return nil, fmt.Errorf("unsupported group by %q", filter.GroupBy)
	}

	from := time.Date(filter.Year, time.January, 1, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(1, 0, 0)

	var builder strings.Builder
	builder.WriteString(fmt.Sprintf(`SELECT g.district, %s, %s, g.status, g.priority, g.category_id,
        COUNT(*) AS row_count, COUNT(g.estimated_cost) AS cost_count, SUM(g.estimated_cost) AS cost_sum
        FROM grievances g
        WHERE g.deleted_at IS NULL AND g.created_at >= $1 AND g.created_at < $2`, mandal, village))
	args := []interface{}{from, to}
	if filter.Constituency != "" {
		args = append(args, filter.Constituency)
		builder.WriteString(fmt.Sprintf(" AND g.constituency = $%d", len(args)))
	}
	if filter.Status != "" {
		args = append(args, filter.Status)
		builder.WriteString(fmt.Sprintf(" AND g.status = $%d", len(args)))
	}
	if filter.Priority != "" {
		args = append(args, filter.Priority)
		builder.WriteString(fmt.Sprintf(" AND g.priority = $%d", len(args)))
	}
	keys := strings.Join(keyColumns, ", ")
	builder.WriteString(fmt.Sprintf(" GROUP BY %s, g.status, g.priority, g.category_id ORDER BY %s", keys, keys))

	var rows []models.AggregationRow
	if err := r.db.SelectContext(ctx, &rows, builder.String(), args...); err != nil {
		return nil, fmt.Errorf("query grievance aggregation: %w", err)
	}
	return rows, nil
}

func criticalWhere(filter models.CriticalFilter) (string, []interface{}) {
	var builder strings.Builder
	builder.WriteString(" WHERE g.deleted_at IS NULL AND ")
	builder.WriteString(criticalCriterionSQL)
	var args []interface{}
	if filter.District != "" {
		args = append(args, filter.District)
		builder.WriteString(fmt.Sprintf(" AND g.district = $%d", len(args)))
	}
	if filter.Mandal != "" {
		args = append(args, filter.Mandal)
		builder.WriteString(fmt.Sprintf(" AND g.mandal = $%d", len(args)))
	}
	if filter.Priority != "" {
		args = append(args, filter.Priority)
		builder.WriteString(fmt.Sprintf(" AND g.priority = $%d", len(args)))
	}
	if filter.Status != "" {
		args = append(args, filter.Status)
		builder.WriteString(fmt.Sprintf(" AND g.status = $%d", len(args)))
	}
	return builder.String(), args
}

// CriticalItems returns one page of critical grievances, most urgent first and oldest first within a priority.
func (r *AnalyticsRepository) CriticalItems(ctx context.Context, filter models.CriticalFilter) ([]models.GrievanceDetail, error) {
	where, args := criticalWhere(filter)
	limit := filter.Limit
	if limit <= 0 {
		limit = 20
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}
	query := fmt.Sprintf(`SELECT %s FROM grievances g%s%s ORDER BY %s DESC, g.created_at ASC, g.id ASC LIMIT %d OFFSET %d`,
		grievanceDetailColumns, grievanceDetailJoins, where, priorityRankSQL, limit, offset)

	var items []models.GrievanceDetail
	if err := r.db.SelectContext(ctx, &items, query, args...); err != nil {
		return nil, fmt.Errorf("query critical grievances: %w", err)
	}
	return items, nil
}

// CriticalSummary counts the whole critical selection. Overdue means the expected date is before now and the item is unresolved.
func (r *AnalyticsRepository) CriticalSummary(ctx context.Context, filter models.CriticalFilter, now time.Time) (models.CriticalSummary, error) {
	where, args := criticalWhere(filter)
	args = append(args, now)
	query := fmt.Sprintf(`SELECT COUNT(*) AS total_critical,
        COUNT(*) FILTER (WHERE g.priority = 'URGENT') AS urgent_count,
        COUNT(*) FILTER (WHERE g.priority = 'HIGH') AS high_count,
        COUNT(*) FILTER (WHERE g.status = 'PENDING') AS pending_count,
        COUNT(*) FILTER (WHERE g.expected_resolution_date < $%d AND %s) AS overdue_count
        FROM grievances g%s`, len(args), notResolvedSQL, where)

	var summary models.CriticalSummary
	if err := r.db.GetContext(ctx, &summary, query, args...); err != nil {
		return models.CriticalSummary{}, fmt.Errorf("query critical summary: %w", err)
	}
	return summary, nil
}

// Workload counts critical items per assignee, heaviest first.
func (r *AnalyticsRepository) Workload(ctx context.Context, filter models.CriticalFilter) ([]models.AssigneeLoad, error) {
	where, args := criticalWhere(filter)
	query := fmt.Sprintf(`SELECT g.assigned_to, COUNT(*) AS item_count FROM grievances g%s AND g.assigned_to IS NOT NULL
        GROUP BY g.assigned_to ORDER BY item_count DESC, g.assigned_to ASC`, where)

	var loads []models.AssigneeLoad
	if err := r.db.SelectContext(ctx, &loads, query, args...); err != nil {
		return nil, fmt.Errorf("query officer workload: %w", err)
	}
	return loads, nil
}
