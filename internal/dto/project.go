package dto

import (
	"time"

	"github.com/noah-isme/grievance-api/internal/models"
)

// CreateProjectRequest registers a government project.
type CreateProjectRequest struct {
	Name          string               `json:"name" validate:"required,min=3,max=200"`
	Description   string               `json:"description" validate:"max=5000"`
	District      string               `json:"district" validate:"required,max=100"`
	Mandal        string               `json:"mandal" validate:"required,max=100"`
	Village       string               `json:"village" validate:"required,max=100"`
	Constituency  *string              `json:"constituency" validate:"omitempty,max=100"`
	Status        models.ProjectStatus `json:"status" validate:"omitempty,project_status"`
	EstimatedCost *float64             `json:"estimatedCost" validate:"omitempty,gte=0"`
	StartDate     *time.Time           `json:"startDate"`
	EndDate       *time.Time           `json:"endDate"`
}

// UpdateProjectRequest edits project fields; nil leaves a field unchanged.
type UpdateProjectRequest struct {
	Name          *string               `json:"name" validate:"omitempty,min=3,max=200"`
	Description   *string               `json:"description" validate:"omitempty,max=5000"`
	Status        *models.ProjectStatus `json:"status" validate:"omitempty,project_status"`
	EstimatedCost *float64              `json:"estimatedCost" validate:"omitempty,gte=0"`
	StartDate     *time.Time            `json:"startDate"`
	EndDate       *time.Time            `json:"endDate"`
}

// ProjectQuery mirrors supported project listing filters.
type ProjectQuery struct {
	District     string
	Constituency string
	Status       string
	Page         int
	Limit        int
}
