package models

import "time"

// Grievance is a citizen complaint tracked through the lifecycle.
type Grievance struct {
	ID                     string          `db:"id" json:"id"`
	ReferenceNumber        string          `db:"reference_number" json:"referenceNumber"`
	Title                  string          `db:"title" json:"title"`
	Description            string          `db:"description" json:"description"`
	RequesterName          string          `db:"requester_name" json:"requesterName"`
	RequesterPhone         string          `db:"requester_phone" json:"requesterPhone"`
	RequesterEmail         *string         `db:"requester_email" json:"requesterEmail,omitempty"`
	RequesterAddress       *string         `db:"requester_address" json:"requesterAddress,omitempty"`
	District               string          `db:"district" json:"district"`
	Mandal                 string          `db:"mandal" json:"mandal"`
	Village                string          `db:"village" json:"village"`
	Constituency           *string         `db:"constituency" json:"constituency,omitempty"`
	State                  *string         `db:"state" json:"state,omitempty"`
	Pincode                *string         `db:"pincode" json:"pincode,omitempty"`
	Latitude               *float64        `db:"latitude" json:"latitude,omitempty"`
	Longitude              *float64        `db:"longitude" json:"longitude,omitempty"`
	CategoryID             *string         `db:"category_id" json:"categoryId,omitempty"`
	AssignedTo             *string         `db:"assigned_to" json:"assignedTo,omitempty"`
	Status                 GrievanceStatus `db:"status" json:"status"`
	Priority               Priority        `db:"priority" json:"priority"`
	EstimatedCost          *float64        `db:"estimated_cost" json:"estimatedCost,omitempty"`
	ExpectedResolutionDate *time.Time      `db:"expected_resolution_date" json:"expectedResolutionDate,omitempty"`
	ActualResolutionDate   *time.Time      `db:"actual_resolution_date" json:"actualResolutionDate,omitempty"`
	Version                int             `db:"version" json:"version"`
	CreatedBy              string          `db:"created_by" json:"createdBy"`
	CreatedAt              time.Time       `db:"created_at" json:"createdAt"`
	UpdatedAt              time.Time       `db:"updated_at" json:"updatedAt"`
	DeletedAt              *time.Time      `db:"deleted_at" json:"-"`
}

// GrievanceDetail decorates a grievance with directory lookups for display.
type GrievanceDetail struct {
	Grievance
	CategoryName  *string `db:"category_name" json:"categoryName,omitempty"`
	CategoryColor *string `db:"category_color" json:"categoryColor,omitempty"`
	AssigneeName  *string `db:"assignee_name" json:"assigneeName,omitempty"`
}

// GrievanceFilter constrains grievance listings.
type GrievanceFilter struct {
	District   string
	Mandal     string
	Village    string
	Status     []GrievanceStatus
	Priority   []Priority
	CategoryID string
	AssignedTo string
	Search     string
	Page       int
	PageSize   int
}

// GrievanceFieldChanges carries the generic field-update path. Nil pointers leave columns untouched.
type GrievanceFieldChanges struct {
	Title                  *string
	Description            *string
	CategoryID             *string
	Priority               *Priority
	EstimatedCost          *float64
	ExpectedResolutionDate *time.Time
	District               *string
	Mandal                 *string
	Village                *string
	Constituency           *string
	Pincode                *string
	Latitude               *float64
	Longitude              *float64
}

// Empty reports whether no field is set.
func (c GrievanceFieldChanges) Empty() bool {
	return c.Title == nil && c.Description == nil && c.CategoryID == nil && c.Priority == nil &&
		c.EstimatedCost == nil && c.ExpectedResolutionDate == nil && c.District == nil &&
		c.Mandal == nil && c.Village == nil && c.Constituency == nil && c.Pincode == nil &&
		c.Latitude == nil && c.Longitude == nil
}

// Apply returns a copy of g with the changes applied.
func (c GrievanceFieldChanges) Apply(g Grievance) Grievance {
	if c.Title != nil {
		g.Title = *c.Title
	}
	if c.Description != nil {
		g.Description = *c.Description
	}
	if c.CategoryID != nil {
		g.CategoryID = c.CategoryID
	}
	if c.Priority != nil {
		g.Priority = *c.Priority
	}
	if c.EstimatedCost != nil {
		g.EstimatedCost = c.EstimatedCost
	}
	if c.ExpectedResolutionDate != nil {
		g.ExpectedResolutionDate = c.ExpectedResolutionDate
	}
	if c.District != nil {
		g.District = *c.District
	}
	if c.Mandal != nil {
		g.Mandal = *c.Mandal
	}
	if c.Village != nil {
		g.Village = *c.Village
	}
	if c.Constituency != nil {
		g.Constituency = c.Constituency
	}
	if c.Pincode != nil {
		g.Pincode = c.Pincode
	}
	if c.Latitude != nil {
		g.Latitude = c.Latitude
	}
	if c.Longitude != nil {
		g.Longitude = c.Longitude
	}
	return g
}
