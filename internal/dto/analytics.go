package dto

import "github.com/noah-isme/grievance-api/internal/models"

// AggregateQuery carries the raw aggregation request before validation.
type AggregateQuery struct {
	GroupBy      string
	Year         int
	Constituency string
	Status       string
	Priority     string
}

// AggregateResponse is the rollup result for one aggregation request.
type AggregateResponse struct {
	GroupBy        models.GroupBy             `json:"groupBy"`
	Year           int                        `json:"year"`
	AggregatedData []models.AggregationBucket `json:"aggregatedData"`
	Summary        models.AggregationSummary  `json:"summary"`
}

// CriticalQuery carries raw critical-list filters and paging.
type CriticalQuery struct {
	District string
	Mandal   string
	Priority string
	Status   string
	Page     int
	Limit    int
}

// CriticalListResponse is one page of critical items plus selection-wide figures.
type CriticalListResponse struct {
	Items      []models.CriticalItem    `json:"items"`
	Pagination *models.Pagination       `json:"pagination"`
	Summary    models.CriticalSummary   `json:"summary"`
	Workload   []models.OfficerWorkload `json:"workload"`
}
