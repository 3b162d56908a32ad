package service

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/jmoiron/sqlx/types"
	"go.uber.org/zap"

	"github.com/noah-isme/grievance-api/internal/models"
	appErrors "github.com/noah-isme/grievance-api/pkg/errors"
)

const (
	defaultAuditHistoryLimit = 50
	maxAuditHistoryLimit     = 200
)

type auditStore interface {
	Create(ctx context.Context, exec sqlx.ExtContext, log *models.AuditLog) error
	ListByEntity(ctx context.Context, entityType, entityID string, limit int) ([]models.AuditLog, error)
}

// AuditRecord describes one mutation to append to the trail. Old and New are snapshotted as JSON; nil stays null.
type AuditRecord struct {
	Action     models.AuditAction
	EntityType string
	EntityID   string
	Actor      models.Actor
	Old        interface{}
	New        interface{}
}

// AuditTrail is the append-only ledger of mutations.
type AuditTrail struct {
	repo   auditStore
	logger *zap.Logger
}

// NewAuditTrail constructs the trail.
func NewAuditTrail(repo auditStore, logger *zap.Logger) *AuditTrail {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuditTrail{repo: repo, logger: logger}
}

// Record appends an entry through exec. Any failure is returned so the caller can abort its transaction.
func (a *AuditTrail) Record(ctx context.Context, exec sqlx.ExtContext, rec AuditRecord) (*models.AuditLog, error) {
	if err := requireActor(rec.Actor); err != nil {
		return nil, err
	}
	oldValues, err := snapshot(rec.Old)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to snapshot previous state")
	}
	newValues, err := snapshot(rec.New)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to snapshot new state")
	}

	entry := &models.AuditLog{
		Action:     rec.Action,
		EntityType: rec.EntityType,
		EntityID:   rec.EntityID,
		UserID:     rec.Actor.ID,
		OldValues:  oldValues,
		NewValues:  newValues,
		IPAddress:  optionalString(rec.Actor.IPAddress),
		UserAgent:  optionalString(rec.Actor.UserAgent),
	}
	if err := a.repo.Create(ctx, exec, entry); err != nil {
		return nil, appErrors.Persistence(err, "failed to record audit entry")
	}
	return entry, nil
}

// History returns the newest entries for one entity. limit defaults to 50 and is capped at 200.
func (a *AuditTrail) History(ctx context.Context, entityType, entityID string, limit int) ([]models.AuditLog, error) {
	switch entityType {
	case models.EntityGrievance, models.EntityProject:
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown entity type %q", entityType))
	}
	if entityID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "entity id is required")
	}
	if limit <= 0 {
		limit = defaultAuditHistoryLimit
	}
	if limit > maxAuditHistoryLimit {
		limit = maxAuditHistoryLimit
	}
	logs, err := a.repo.ListByEntity(ctx, entityType, entityID, limit)
	if err != nil {
		return nil, appErrors.Persistence(err, "failed to load audit history")
	}
	if logs == nil {
		logs = []models.AuditLog{}
	}
	return logs, nil
}

func snapshot(value interface{}) (types.NullJSONText, error) {
	if value == nil {
		return types.NullJSONText{}, nil
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return types.NullJSONText{}, err
	}
	return types.NullJSONText{JSONText: types.JSONText(raw), Valid: true}, nil
}

func optionalString(v string) *string {
	if v == "" {
		return nil
	}
	return &v
}
