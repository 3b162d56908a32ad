package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/grievance-api/internal/models"
)

// StatusUpdateRepository appends and reads grievance lifecycle history.
type StatusUpdateRepository struct {
	db *sqlx.DB
}

// NewStatusUpdateRepository constructs the repository.
func NewStatusUpdateRepository(db *sqlx.DB) *StatusUpdateRepository {
	return &StatusUpdateRepository{db: db}
}

func (r *StatusUpdateRepository) exec(exec sqlx.ExtContext) sqlx.ExtContext {
	if exec != nil {
		return exec
	}
	return r.db
}

// Create appends one history entry.
func (r *StatusUpdateRepository) Create(ctx context.Context, exec sqlx.ExtContext, update *models.StatusUpdate) error {
	if update == nil {
		return fmt.Errorf("status update payload is nil")
	}
	if update.ID == "" {
		update.ID = uuid.NewString()
	}
	if update.CreatedAt.IsZero() {
		update.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO status_updates (id, grievance_id, updated_by, old_status, new_status, remarks, created_at)
	VALUES (:id, :grievance_id, :updated_by, :old_status, :new_status, :remarks, :created_at)`
	if _, err := sqlx.NamedExecContext(ctx, r.exec(exec), query, update); err != nil {
		return fmt.Errorf("create status update: %w", err)
	}
	return nil
}

// ListByGrievance returns the history of a grievance, newest first.
func (r *StatusUpdateRepository) ListByGrievance(ctx context.Context, grievanceID string) ([]models.StatusUpdateDetail, error) {
	const query = `SELECT s.id, s.grievance_id, s.updated_by, s.old_status, s.new_status, s.remarks, s.created_at,
	u.full_name AS updated_by_name
	FROM status_updates s
	LEFT JOIN users u ON u.id::text = s.updated_by
	WHERE s.grievance_id = $1
	ORDER BY s.created_at DESC, s.id DESC`
	var updates []models.StatusUpdateDetail
	if err := r.db.SelectContext(ctx, &updates, query, grievanceID); err != nil {
		return nil, fmt.Errorf("list status updates: %w", err)
	}
	return updates, nil
}
