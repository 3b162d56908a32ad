package models

import (
	"time"

	"github.com/jmoiron/sqlx/types"
)

// AuditAction tags the kind of mutation recorded.
type AuditAction string

const (
	AuditActionCreate       AuditAction = "CREATE"
	AuditActionUpdate       AuditAction = "UPDATE"
	AuditActionStatusChange AuditAction = "STATUS_CHANGE"
	AuditActionAssign       AuditAction = "ASSIGN"
	AuditActionDelete       AuditAction = "DELETE"
)

// Audited entity types.
const (
	EntityGrievance = "grievance"
	EntityProject   = "project"
)

// AuditLog represents an append-only audit trail record. OldValues is null for CREATE.
type AuditLog struct {
	ID         string             `db:"id" json:"id"`
	Action     AuditAction        `db:"action" json:"action"`
	EntityType string             `db:"entity_type" json:"entityType"`
	EntityID   string             `db:"entity_id" json:"entityId"`
	UserID     string             `db:"user_id" json:"userId"`
	OldValues  types.NullJSONText `db:"old_values" json:"oldValues"`
	NewValues  types.NullJSONText `db:"new_values" json:"newValues"`
	IPAddress  *string            `db:"ip_address" json:"ipAddress,omitempty"`
	UserAgent  *string            `db:"user_agent" json:"userAgent,omitempty"`
	CreatedAt  time.Time          `db:"created_at" json:"createdAt"`
}
