package dto

import (
	"time"

	"github.com/noah-isme/grievance-api/internal/models"
)

// CreateGrievanceRequest is the intake payload for a new grievance.
type CreateGrievanceRequest struct {
	Title                  string          `json:"title" validate:"required,min=5,max=200"`
	Description            string          `json:"description" validate:"required,max=5000"`
	RequesterName          string          `json:"requesterName" validate:"required,max=120"`
	RequesterPhone         string          `json:"requesterPhone" validate:"required,phone"`
	RequesterEmail         *string         `json:"requesterEmail" validate:"omitempty,email"`
	RequesterAddress       *string         `json:"requesterAddress" validate:"omitempty,max=500"`
	District               string          `json:"district" validate:"required,max=100"`
	Mandal                 string          `json:"mandal" validate:"required,max=100"`
	Village                string          `json:"village" validate:"required,max=100"`
	Constituency           *string         `json:"constituency" validate:"omitempty,max=100"`
	State                  *string         `json:"state" validate:"omitempty,max=100"`
	Pincode                *string         `json:"pincode" validate:"omitempty,numeric,len=6"`
	Latitude               *float64        `json:"latitude" validate:"omitempty,gte=-90,lte=90"`
	Longitude              *float64        `json:"longitude" validate:"omitempty,gte=-180,lte=180"`
	CategoryID             *string         `json:"categoryId" validate:"omitempty,max=64"`
	Priority               models.Priority `json:"priority" validate:"omitempty,grievance_priority"`
	EstimatedCost          *float64        `json:"estimatedCost" validate:"omitempty,gte=0"`
	ExpectedResolutionDate *time.Time      `json:"expectedResolutionDate"`
}

// UpdateGrievanceRequest edits descriptive fields. Status and assignment have dedicated operations.
type UpdateGrievanceRequest struct {
	Title                  *string          `json:"title" validate:"omitempty,min=5,max=200"`
	Description            *string          `json:"description" validate:"omitempty,max=5000"`
	CategoryID             *string          `json:"categoryId" validate:"omitempty,max=64"`
	Priority               *models.Priority `json:"priority" validate:"omitempty,grievance_priority"`
	EstimatedCost          *float64         `json:"estimatedCost" validate:"omitempty,gte=0"`
	ExpectedResolutionDate *time.Time       `json:"expectedResolutionDate"`
	District               *string          `json:"district" validate:"omitempty,min=1,max=100"`
	Mandal                 *string          `json:"mandal" validate:"omitempty,min=1,max=100"`
	Village                *string          `json:"village" validate:"omitempty,min=1,max=100"`
	Constituency           *string          `json:"constituency" validate:"omitempty,max=100"`
	Pincode                *string          `json:"pincode" validate:"omitempty,numeric,len=6"`
	Latitude               *float64         `json:"latitude" validate:"omitempty,gte=-90,lte=90"`
	Longitude              *float64         `json:"longitude" validate:"omitempty,gte=-180,lte=180"`
}

// Changes converts the request into repository field changes.
func (r UpdateGrievanceRequest) Changes() models.GrievanceFieldChanges {
	return models.GrievanceFieldChanges{
		Title:                  r.Title,
		Description:            r.Description,
		CategoryID:             r.CategoryID,
		Priority:               r.Priority,
		EstimatedCost:          r.EstimatedCost,
		ExpectedResolutionDate: r.ExpectedResolutionDate,
		District:               r.District,
		Mandal:                 r.Mandal,
		Village:                r.Village,
		Constituency:           r.Constituency,
		Pincode:                r.Pincode,
		Latitude:               r.Latitude,
		Longitude:              r.Longitude,
	}
}

// TransitionStatusRequest asks the lifecycle to move a grievance to Status.
type TransitionStatusRequest struct {
	Status               models.GrievanceStatus `json:"status" validate:"required,grievance_status"`
	Remarks              string                 `json:"remarks" validate:"max=1000"`
	ActualResolutionDate *time.Time             `json:"actualResolutionDate"`
}

// AssignGrievanceRequest hands a grievance to an officer.
type AssignGrievanceRequest struct {
	AssigneeID string `json:"assigneeId" validate:"required,uuid"`
	Remarks    string `json:"remarks" validate:"max=1000"`
}

// TransitionResult pairs the updated grievance with the history row written for it.
type TransitionResult struct {
	Grievance    *models.Grievance    `json:"grievance"`
	StatusUpdate *models.StatusUpdate `json:"statusUpdate"`
}

// StatusHistoryResponse describes where a grievance is and where it may go next.
type StatusHistoryResponse struct {
	GrievanceID        string                      `json:"grievanceId"`
	ReferenceNumber    string                      `json:"referenceNumber"`
	CurrentStatus      models.GrievanceStatus      `json:"currentStatus"`
	Updates            []models.StatusUpdateDetail `json:"updates"`
	AllowedTransitions []models.GrievanceStatus    `json:"allowedTransitions"`
}

// GrievanceQuery mirrors supported listing filters.
type GrievanceQuery struct {
	District   string
	Mandal     string
	Village    string
	Status     []models.GrievanceStatus
	Priority   []models.Priority
	CategoryID string
	AssignedTo string
	Search     string
	Page       int
	Limit      int
}
