package models

import "time"

// ProjectStatus is a free-moving project state; projects have no transition table.
type ProjectStatus string

const (
	ProjectStatusPlanned    ProjectStatus = "PLANNED"
	ProjectStatusSanctioned ProjectStatus = "SANCTIONED"
	ProjectStatusInProgress ProjectStatus = "IN_PROGRESS"
	ProjectStatusCompleted  ProjectStatus = "COMPLETED"
	ProjectStatusOnHold     ProjectStatus = "ON_HOLD"
	ProjectStatusCancelled  ProjectStatus = "CANCELLED"
)

// IsValid reports whether s is a known project status.
func (s ProjectStatus) IsValid() bool {
	switch s {
	case ProjectStatusPlanned, ProjectStatusSanctioned, ProjectStatusInProgress,
		ProjectStatusCompleted, ProjectStatusOnHold, ProjectStatusCancelled:
		return true
	}
	return false
}

// Project is a government works project tracked alongside grievances.
type Project struct {
	ID              string        `db:"id" json:"id"`
	ReferenceNumber string        `db:"reference_number" json:"referenceNumber"`
	Name            string        `db:"name" json:"name"`
	Description     string        `db:"description" json:"description"`
	District        string        `db:"district" json:"district"`
	Mandal          string        `db:"mandal" json:"mandal"`
	Village         string        `db:"village" json:"village"`
	Constituency    *string       `db:"constituency" json:"constituency,omitempty"`
	Status          ProjectStatus `db:"status" json:"status"`
	EstimatedCost   *float64      `db:"estimated_cost" json:"estimatedCost,omitempty"`
	StartDate       *time.Time    `db:"start_date" json:"startDate,omitempty"`
	EndDate         *time.Time    `db:"end_date" json:"endDate,omitempty"`
	CreatedBy       string        `db:"created_by" json:"createdBy"`
	CreatedAt       time.Time     `db:"created_at" json:"createdAt"`
	UpdatedAt       time.Time     `db:"updated_at" json:"updatedAt"`
	DeletedAt       *time.Time    `db:"deleted_at" json:"-"`
}

// ProjectFilter constrains project listings.
type ProjectFilter struct {
	District     string
	Constituency string
	Status       ProjectStatus
	Page         int
	PageSize     int
}
