package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/grievance-api/internal/models"
)

// SequenceRepository hands out per-entity, per-year counters.
type SequenceRepository struct {
	db *sqlx.DB
}

// NewSequenceRepository constructs the repository.
func NewSequenceRepository(db *sqlx.DB) *SequenceRepository {
	return &SequenceRepository{db: db}
}

// Increment atomically bumps the counter for (entityType, year) and returns the new value.
// The first call for a pair returns 1. Concurrent callers serialise on the row lock taken by the upsert.
func (r *SequenceRepository) Increment(ctx context.Context, exec sqlx.ExtContext, entityType models.ReferenceEntityType, year int) (int, error) {
	target := exec
	if target == nil {
		target = r.db
	}
	const query = `INSERT INTO reference_sequences (entity_type, year, last_value) VALUES ($1, $2, 1)
	ON CONFLICT (entity_type, year) DO UPDATE SET last_value = reference_sequences.last_value + 1
	RETURNING last_value`
	var value int
	if err := sqlx.GetContext(ctx, target, &value, query, entityType, year); err != nil {
		return 0, fmt.Errorf("increment reference sequence: %w", err)
	}
	return value, nil
}
