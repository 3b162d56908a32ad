package models

import "time"

// StatusUpdate is one append-only entry of a grievance's lifecycle history.
// OldStatus is nil only for the creation record.
type StatusUpdate struct {
	ID          string           `db:"id" json:"id"`
	GrievanceID string           `db:"grievance_id" json:"grievanceId"`
	UpdatedBy   string           `db:"updated_by" json:"updatedBy"`
	OldStatus   *GrievanceStatus `db:"old_status" json:"oldStatus"`
	NewStatus   GrievanceStatus  `db:"new_status" json:"newStatus"`
	Remarks     *string          `db:"remarks" json:"remarks,omitempty"`
	CreatedAt   time.Time        `db:"created_at" json:"createdAt"`
}

// StatusUpdateDetail adds the acting user's display name.
type StatusUpdateDetail struct {
	StatusUpdate
	UpdatedByName *string `db:"updated_by_name" json:"updatedByName,omitempty"`
}
