package models

import "time"

// GroupBy selects the geographic depth of an aggregation.
type GroupBy string

const (
	GroupByDistrict GroupBy = "district"
	GroupByMandal   GroupBy = "mandal"
	GroupByVillage  GroupBy = "village"
)

// Depth is the number of geographic key columns implied by g, or 0 when g is unsupported.
func (g GroupBy) Depth() int {
	switch g {
	case GroupByDistrict:
		return 1
	case GroupByMandal:
		return 2
	case GroupByVillage:
		return 3
	default:
		return 0
	}
}

// AggregationFilter scopes an aggregation to one creation year.
type AggregationFilter struct {
	GroupBy      GroupBy
	Year         int
	Constituency string
	Status       GrievanceStatus
	Priority     Priority
}

// AggregationRow is one grouped scan row: a geographic key split by status, priority and category.
type AggregationRow struct {
	District   string   `db:"district"`
	Mandal     string   `db:"mandal"`
	Village    string   `db:"village"`
	Status     string   `db:"status"`
	Priority   string   `db:"priority"`
	CategoryID *string  `db:"category_id"`
	Count      int      `db:"row_count"`
	CostCount  int      `db:"cost_count"`
	CostSum    *float64 `db:"cost_sum"`
}

// CategoryCount labels a category breakdown entry.
type CategoryCount struct {
	CategoryID *string `json:"categoryId"`
	Name       string  `json:"name"`
	Color      string  `json:"color,omitempty"`
	Count      int     `json:"count"`
}

// AggregationBucket is one computed, non-persisted rollup for a geographic key.
type AggregationBucket struct {
	District             string          `json:"district"`
	Mandal               string          `json:"mandal,omitempty"`
	Village              string          `json:"village,omitempty"`
	TotalGrievances      int             `json:"totalGrievances"`
	TotalEstimatedCost   float64         `json:"totalEstimatedCost"`
	AverageEstimatedCost float64         `json:"averageEstimatedCost"`
	StatusBreakdown      map[string]int  `json:"statusBreakdown"`
	PriorityBreakdown    map[string]int  `json:"priorityBreakdown"`
	CategoryBreakdown    []CategoryCount `json:"categoryBreakdown"`
}

// AggregationSummary rolls every matching row into overall statistics.
type AggregationSummary struct {
	TotalGrievances      int     `json:"totalGrievances"`
	TotalEstimatedCost   float64 `json:"totalEstimatedCost"`
	AverageEstimatedCost float64 `json:"averageEstimatedCost"`
	ResolvedCount        int     `json:"resolvedCount"`
	PendingCount         int     `json:"pendingCount"`
	UrgentCount          int     `json:"urgentCount"`
	ResolutionRate       float64 `json:"resolutionRate"`
}

// CriticalFilter narrows the critical item selection.
type CriticalFilter struct {
	District string
	Mandal   string
	Priority Priority
	Status   GrievanceStatus
	Limit    int
	Offset   int
}

// CriticalItem is a grievance needing attention, with staleness figures computed at query time.
type CriticalItem struct {
	GrievanceDetail
	DaysSinceCreation int  `json:"daysSinceCreation"`
	IsOverdue         bool `json:"isOverdue"`
	OverdueDays       int  `json:"overdueDays,omitempty"`
}

// CriticalSummary counts the full critical selection, independent of paging.
type CriticalSummary struct {
	TotalCritical int `db:"total_critical" json:"totalCritical"`
	UrgentCount   int `db:"urgent_count" json:"urgentCount"`
	HighCount     int `db:"high_count" json:"highCount"`
	PendingCount  int `db:"pending_count" json:"pendingCount"`
	OverdueCount  int `db:"overdue_count" json:"overdueCount"`
}

// AssigneeLoad is the number of critical items held by one assignee.
type AssigneeLoad struct {
	AssigneeID string `db:"assigned_to" json:"assigneeId"`
	Count      int    `db:"item_count" json:"count"`
}

// OfficerWorkload decorates an AssigneeLoad with directory details.
type OfficerWorkload struct {
	AssigneeID string    `json:"assigneeId"`
	Name       string    `json:"name"`
	Phone      *string   `json:"phone,omitempty"`
	Email      *string   `json:"email,omitempty"`
	Role       *UserRole `json:"role,omitempty"`
	Count      int       `json:"count"`
}

// AnalyticsSystemMetrics represents system level analytics captured from instrumentation.
type AnalyticsSystemMetrics struct {
	CacheHitRatio            float64   `json:"cacheHitRatio"`
	CacheHits                uint64    `json:"cacheHits"`
	CacheMisses              uint64    `json:"cacheMisses"`
	RequestsTotal            uint64    `json:"requestsTotal"`
	AverageRequestDurationMs float64   `json:"averageRequestDurationMs"`
	DBQueryCount             uint64    `json:"dbQueryCount"`
	AverageDBQueryDurationMs float64   `json:"averageDbQueryDurationMs"`
	GrievancesCreated        uint64    `json:"grievancesCreated"`
	TransitionsApplied       uint64    `json:"transitionsApplied"`
	Goroutines               int       `json:"goroutines"`
	GeneratedAt              time.Time `json:"generatedAt"`
}
