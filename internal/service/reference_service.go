package service

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/grievance-api/internal/models"
	appErrors "github.com/noah-isme/grievance-api/pkg/errors"
)

type sequenceStore interface {
	Increment(ctx context.Context, exec sqlx.ExtContext, entityType models.ReferenceEntityType, year int) (int, error)
}

// ReferenceNumberGenerator issues human-facing identifiers of the form PREFIX-YEAR-NNNN.
type ReferenceNumberGenerator struct {
	repo sequenceStore
}

// NewReferenceNumberGenerator constructs the generator.
func NewReferenceNumberGenerator(repo sequenceStore) *ReferenceNumberGenerator {
	return &ReferenceNumberGenerator{repo: repo}
}

// Next reserves the next number for (entityType, year). Pass the caller's transaction as exec so the
// reservation rolls back with a failed creation. Store errors surface as SEQUENCE_UNAVAILABLE.
func (g *ReferenceNumberGenerator) Next(ctx context.Context, exec sqlx.ExtContext, entityType models.ReferenceEntityType, year int) (string, error) {
	prefix := entityType.Prefix()
	if prefix == "" {
		return "", appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown reference entity type %q", entityType))
	}
	if year < 1 {
		return "", appErrors.Clone(appErrors.ErrValidation, "reference year must be positive")
	}
	seq, err := g.repo.Increment(ctx, exec, entityType, year)
	if err != nil {
		return "", appErrors.WrapAs(err, appErrors.ErrSequenceUnavailable, "")
	}
	return FormatReferenceNumber(prefix, year, seq), nil
}

// FormatReferenceNumber renders a reference number. The sequence is zero padded to at least four digits.
func FormatReferenceNumber(prefix string, year, seq int) string {
	return fmt.Sprintf("%s-%d-%04d", prefix, year, seq)
}
