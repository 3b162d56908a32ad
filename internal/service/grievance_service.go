package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/noah-isme/grievance-api/internal/dto"
	"github.com/noah-isme/grievance-api/internal/models"
	"github.com/noah-isme/grievance-api/internal/repository"
	"github.com/noah-isme/grievance-api/pkg/database"
	appErrors "github.com/noah-isme/grievance-api/pkg/errors"
)

type grievanceStore interface {
	Create(ctx context.Context, exec sqlx.ExtContext, grievance *models.Grievance) error
	FindByID(ctx context.Context, id string) (*models.GrievanceDetail, error)
	FindForUpdate(ctx context.Context, exec sqlx.ExtContext, id string) (*models.Grievance, error)
	List(ctx context.Context, filter models.GrievanceFilter) ([]models.GrievanceDetail, int, error)
	UpdateStatus(ctx context.Context, exec sqlx.ExtContext, params repository.UpdateStatusParams) error
	Assign(ctx context.Context, exec sqlx.ExtContext, params repository.AssignParams) error
	UpdateFields(ctx context.Context, exec sqlx.ExtContext, id string, expectedVersion int, changes models.GrievanceFieldChanges, updatedAt time.Time) error
	SoftDelete(ctx context.Context, exec sqlx.ExtContext, id string, expectedVersion int, deletedAt time.Time) error
}

type statusUpdateStore interface {
	Create(ctx context.Context, exec sqlx.ExtContext, update *models.StatusUpdate) error
	ListByGrievance(ctx context.Context, grievanceID string) ([]models.StatusUpdateDetail, error)
}

type userDirectory interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
	FindByIDs(ctx context.Context, ids []string) ([]models.User, error)
}

type categoryChecker interface {
	Exists(ctx context.Context, id string) (bool, error)
}

// GrievanceService owns intake, maintenance and the status lifecycle of grievances.
type GrievanceService struct {
	grievances grievanceStore
	updates    statusUpdateStore
	users      userDirectory
	categories categoryChecker
	references *ReferenceNumberGenerator
	duplicates *DuplicateDetector
	audit      *AuditTrail
	tx         txProvider
	cache      *CacheService
	metrics    *MetricsService
	validator  *validator.Validate
	logger     *zap.Logger
	now        func() time.Time
}

// NewGrievanceService wires the lifecycle engine.
func NewGrievanceService(
	grievances grievanceStore,
	updates statusUpdateStore,
	users userDirectory,
	categories categoryChecker,
	references *ReferenceNumberGenerator,
	duplicates *DuplicateDetector,
	audit *AuditTrail,
	tx txProvider,
	cache *CacheService,
	metrics *MetricsService,
	validate *validator.Validate,
	logger *zap.Logger,
) *GrievanceService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GrievanceService{
		grievances: grievances,
		updates:    updates,
		users:      users,
		categories: categories,
		references: references,
		duplicates: duplicates,
		audit:      audit,
		tx:         tx,
		cache:      cache,
		metrics:    metrics,
		validator:  registerDomainValidators(validate),
		logger:     logger,
		now:        time.Now,
	}
}

// Create validates a submission, refuses recent duplicates and persists the grievance with its
// reference number, initial history entry and CREATE audit entry in one transaction.
func (s *GrievanceService) Create(ctx context.Context, actor models.Actor, req dto.CreateGrievanceRequest) (*models.Grievance, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	req.Priority = models.Priority(strings.ToUpper(string(req.Priority)))
	if req.Priority == "" {
		req.Priority = models.PriorityMedium
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err)
	}
	if err := s.ensureCategory(ctx, req.CategoryID); err != nil {
		return nil, err
	}

	existing, err := s.duplicates.Check(ctx, req.RequesterPhone, req.Title, 0)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		s.metrics.RecordDuplicateRejected()
		s.logger.Info("duplicate grievance rejected",
			zap.String("existing_reference", existing.ReferenceNumber),
			zap.String("actor_id", actor.ID))
		return nil, duplicateError(existing)
	}

	now := s.now().UTC()
	grievance := &models.Grievance{
		Title:                  strings.TrimSpace(req.Title),
		Description:            req.Description,
		RequesterName:          req.RequesterName,
		RequesterPhone:         strings.TrimSpace(req.RequesterPhone),
		RequesterEmail:         req.RequesterEmail,
		RequesterAddress:       req.RequesterAddress,
		District:               req.District,
		Mandal:                 req.Mandal,
		Village:                req.Village,
		Constituency:           req.Constituency,
		State:                  req.State,
		Pincode:                req.Pincode,
		Latitude:               req.Latitude,
		Longitude:              req.Longitude,
		CategoryID:             req.CategoryID,
		Status:                 models.GrievanceStatusPending,
		Priority:               req.Priority,
		EstimatedCost:          req.EstimatedCost,
		ExpectedResolutionDate: req.ExpectedResolutionDate,
		Version:                1,
		CreatedBy:              actor.ID,
		CreatedAt:              now,
		UpdatedAt:              now,
	}

	err = runInTx(ctx, s.tx, func(tx *sqlx.Tx) error {
		ref, err := s.references.Next(ctx, tx, models.ReferenceGrievance, now.Year())
		if err != nil {
			return err
		}
		grievance.ReferenceNumber = ref
		if err := s.grievances.Create(ctx, tx, grievance); err != nil {
			if database.IsUniqueViolation(err) {
				return appErrors.WrapAs(err, appErrors.ErrSequenceUnavailable, "reference number already issued, retry the submission")
			}
			if database.IsForeignKeyViolation(err) {
				return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "unknown or inactive category")
			}
			return storageError(err, "failed to create grievance")
		}
		initial := &models.StatusUpdate{
			GrievanceID: grievance.ID,
			UpdatedBy:   actor.ID,
			NewStatus:   models.GrievanceStatusPending,
			Remarks:     optionalString("Grievance submitted"),
			CreatedAt:   now,
		}
		if err := s.updates.Create(ctx, tx, initial); err != nil {
			return storageError(err, "failed to record initial status")
		}
		_, err = s.audit.Record(ctx, tx, AuditRecord{
			Action:     models.AuditActionCreate,
			EntityType: models.EntityGrievance,
			EntityID:   grievance.ID,
			Actor:      actor,
			New:        grievance,
		})
		return err
	})
	if err != nil {
		return nil, err
	}

	s.cache.InvalidateAnalytics(ctx)
	s.metrics.RecordGrievanceCreated()
	s.logger.Info("grievance created",
		zap.String("grievance_id", grievance.ID),
		zap.String("reference_number", grievance.ReferenceNumber),
		zap.String("actor_id", actor.ID))
	return grievance, nil
}

// Get returns a live grievance.
func (s *GrievanceService) Get(ctx context.Context, id string) (*models.GrievanceDetail, error) {
	if !isEntityID(id) {
		return nil, grievanceNotFound(id)
	}
	grievance, err := s.grievances.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, grievanceNotFound(id)
		}
		return nil, appErrors.Persistence(err, "failed to load grievance")
	}
	return grievance, nil
}

// List returns a page of live grievances.
func (s *GrievanceService) List(ctx context.Context, query dto.GrievanceQuery) ([]models.GrievanceDetail, *models.Pagination, error) {
	for _, st := range query.Status {
		if !st.IsValid() {
			return nil, nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown status %q", st))
		}
	}
	for _, p := range query.Priority {
		if !p.IsValid() {
			return nil, nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown priority %q", p))
		}
	}
	if query.AssignedTo != "" && !isEntityID(query.AssignedTo) {
		return nil, nil, appErrors.WithDetails(appErrors.Clone(appErrors.ErrValidation, "assignedTo must be a user id"),
			map[string]interface{}{"fields": map[string]interface{}{"assignedTo": "uuid"}})
	}
	page, limit := normalizePaging(query.Page, query.Limit, 20, 100)
	items, total, err := s.grievances.List(ctx, models.GrievanceFilter{
		District:   query.District,
		Mandal:     query.Mandal,
		Village:    query.Village,
		Status:     query.Status,
		Priority:   query.Priority,
		CategoryID: query.CategoryID,
		AssignedTo: query.AssignedTo,
		Search:     strings.TrimSpace(query.Search),
		Page:       page,
		PageSize:   limit,
	})
	if err != nil {
		return nil, nil, appErrors.Persistence(err, "failed to list grievances")
	}
	if items == nil {
		items = []models.GrievanceDetail{}
	}
	return items, models.NewPagination(page, limit, total), nil
}

// Update edits descriptive fields. Status and assignee have their own operations.
func (s *GrievanceService) Update(ctx context.Context, actor models.Actor, id string, req dto.UpdateGrievanceRequest) (*models.Grievance, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	if !isEntityID(id) {
		return nil, grievanceNotFound(id)
	}
	if req.Priority != nil {
		upper := models.Priority(strings.ToUpper(string(*req.Priority)))
		req.Priority = &upper
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err)
	}
	changes := req.Changes()
	if changes.Empty() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "no updatable fields supplied")
	}
	if err := s.ensureCategory(ctx, changes.CategoryID); err != nil {
		return nil, err
	}

	var updated models.Grievance
	err := runInTx(ctx, s.tx, func(tx *sqlx.Tx) error {
		current, err := s.lockGrievance(ctx, tx, id)
		if err != nil {
			return err
		}
		now := s.now().UTC()
		if err := s.grievances.UpdateFields(ctx, tx, id, current.Version, changes, now); err != nil {
			return storageError(err, "failed to update grievance")
		}
		updated = changes.Apply(*current)
		updated.Version = current.Version + 1
		updated.UpdatedAt = now
		_, err = s.audit.Record(ctx, tx, AuditRecord{
			Action:     models.AuditActionUpdate,
			EntityType: models.EntityGrievance,
			EntityID:   id,
			Actor:      actor,
			Old:        current,
			New:        updated,
		})
		return err
	})
	if err != nil {
		return nil, err
	}

	s.cache.InvalidateAnalytics(ctx)
	s.logger.Info("grievance updated",
		zap.String("grievance_id", id),
		zap.String("reference_number", updated.ReferenceNumber),
		zap.String("actor_id", actor.ID))
	return &updated, nil
}

// Assign hands a grievance to an active officer. A PENDING grievance moves to ASSIGNED in the same transaction.
func (s *GrievanceService) Assign(ctx context.Context, actor models.Actor, id string, req dto.AssignGrievanceRequest) (*dto.TransitionResult, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	if !isEntityID(id) {
		return nil, grievanceNotFound(id)
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err)
	}
	assignee, err := s.users.FindByID(ctx, req.AssigneeID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrValidation, "assignee not found")
		}
		return nil, appErrors.Persistence(err, "failed to load assignee")
	}
	if !assignee.Active {
		return nil, appErrors.Clone(appErrors.ErrValidation, "assignee is inactive")
	}

	var (
		result     dto.TransitionResult
		transition bool
		previous   models.GrievanceStatus
	)
	err = runInTx(ctx, s.tx, func(tx *sqlx.Tx) error {
		current, err := s.lockGrievance(ctx, tx, id)
		if err != nil {
			return err
		}
		if current.Status.IsTerminal() || current.Status == models.GrievanceStatusRejected {
			return appErrors.WithDetails(
				appErrors.Clone(appErrors.ErrConflict, fmt.Sprintf("cannot assign a %s grievance", current.Status)),
				map[string]interface{}{"currentStatus": current.Status},
			)
		}

		previous = current.Status
		next := current.Status
		transition = current.Status == models.GrievanceStatusPending
		if transition {
			next = models.GrievanceStatusAssigned
		}
		now := s.now().UTC()
		if err := s.grievances.Assign(ctx, tx, repository.AssignParams{
			ID:              id,
			AssigneeID:      assignee.ID,
			Status:          next,
			ExpectedVersion: current.Version,
			UpdatedAt:       now,
		}); err != nil {
			return storageError(err, "failed to assign grievance")
		}

		after := *current
		after.AssignedTo = &assignee.ID
		after.Status = next
		after.Version = current.Version + 1
		after.UpdatedAt = now
		if _, err := s.audit.Record(ctx, tx, AuditRecord{
			Action:     models.AuditActionAssign,
			EntityType: models.EntityGrievance,
			EntityID:   id,
			Actor:      actor,
			Old:        current,
			New:        after,
		}); err != nil {
			return err
		}
		result.Grievance = &after

		if !transition {
			return nil
		}
		remarks := req.Remarks
		if remarks == "" {
			remarks = "Assigned to " + assignee.FullName
		}
		update, err := s.recordTransition(ctx, tx, actor, current, &after, remarks, now)
		if err != nil {
			return err
		}
		result.StatusUpdate = update
		return nil
	})
	if err != nil {
		return nil, err
	}

	if transition {
		s.metrics.RecordTransition(previous, models.GrievanceStatusAssigned)
	}
	s.cache.InvalidateAnalytics(ctx)
	s.logger.Info("grievance assigned",
		zap.String("grievance_id", id),
		zap.String("reference_number", result.Grievance.ReferenceNumber),
		zap.String("assignee_id", assignee.ID),
		zap.String("actor_id", actor.ID))
	return &result, nil
}

// TransitionStatus moves a grievance along the lifecycle. The status write, the history entry and the
// audit entry commit together or not at all.
func (s *GrievanceService) TransitionStatus(ctx context.Context, actor models.Actor, id string, req dto.TransitionStatusRequest) (*dto.TransitionResult, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	if !isEntityID(id) {
		return nil, grievanceNotFound(id)
	}
	req.Status = models.GrievanceStatus(strings.ToUpper(string(req.Status)))
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err)
	}

	var (
		result   dto.TransitionResult
		previous models.GrievanceStatus
	)
	err := runInTx(ctx, s.tx, func(tx *sqlx.Tx) error {
		current, err := s.lockGrievance(ctx, tx, id)
		if err != nil {
			return err
		}
		previous = current.Status
		if !current.Status.CanTransitionTo(req.Status) {
			return invalidTransition(current.Status, req.Status)
		}

		now := s.now().UTC()
		var resolvedAt *time.Time
		if req.Status == models.GrievanceStatusResolved && req.ActualResolutionDate != nil {
			resolvedAt = req.ActualResolutionDate
		}
		if err := s.grievances.UpdateStatus(ctx, tx, repository.UpdateStatusParams{
			ID:                   id,
			From:                 current.Status,
			To:                   req.Status,
			ExpectedVersion:      current.Version,
			ActualResolutionDate: resolvedAt,
			ClearResolutionDate:  !req.Status.IsResolved(),
			UpdatedAt:            now,
		}); err != nil {
			return storageError(err, "failed to update grievance status")
		}

		after := *current
		after.Status = req.Status
		after.Version = current.Version + 1
		after.UpdatedAt = now
		switch {
		case resolvedAt != nil:
			after.ActualResolutionDate = resolvedAt
		case !req.Status.IsResolved():
			after.ActualResolutionDate = nil
		}
		update, err := s.recordTransition(ctx, tx, actor, current, &after, req.Remarks, now)
		if err != nil {
			return err
		}
		result.Grievance = &after
		result.StatusUpdate = update
		return nil
	})
	if err != nil {
		if appErr := appErrors.FromError(err); appErr.Code == appErrors.ErrInvalidTransition.Code || appErr.Code == appErrors.ErrConcurrentModification.Code {
			s.metrics.RecordTransitionRejected(appErr.Code)
		}
		return nil, err
	}

	s.metrics.RecordTransition(previous, req.Status)
	s.cache.InvalidateAnalytics(ctx)
	s.logger.Info("grievance status changed",
		zap.String("grievance_id", id),
		zap.String("reference_number", result.Grievance.ReferenceNumber),
		zap.String("from", string(previous)),
		zap.String("to", string(req.Status)),
		zap.String("actor_id", actor.ID))
	return &result, nil
}

// Delete soft-deletes a grievance. Its status and audit history stay queryable.
func (s *GrievanceService) Delete(ctx context.Context, actor models.Actor, id string) error {
	if err := requireActor(actor); err != nil {
		return err
	}
	if !isEntityID(id) {
		return grievanceNotFound(id)
	}
	var reference string
	err := runInTx(ctx, s.tx, func(tx *sqlx.Tx) error {
		current, err := s.lockGrievance(ctx, tx, id)
		if err != nil {
			return err
		}
		reference = current.ReferenceNumber
		if err := s.grievances.SoftDelete(ctx, tx, id, current.Version, s.now().UTC()); err != nil {
			return storageError(err, "failed to delete grievance")
		}
		_, err = s.audit.Record(ctx, tx, AuditRecord{
			Action:     models.AuditActionDelete,
			EntityType: models.EntityGrievance,
			EntityID:   id,
			Actor:      actor,
			Old:        current,
		})
		return err
	})
	if err != nil {
		return err
	}

	s.cache.InvalidateAnalytics(ctx)
	s.logger.Info("grievance deleted",
		zap.String("grievance_id", id),
		zap.String("reference_number", reference),
		zap.String("actor_id", actor.ID))
	return nil
}

// StatusHistory reports the current status, the full history newest first and the allowed next states.
func (s *GrievanceService) StatusHistory(ctx context.Context, id string) (*dto.StatusHistoryResponse, error) {
	grievance, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	updates, err := s.updates.ListByGrievance(ctx, id)
	if err != nil {
		return nil, appErrors.Persistence(err, "failed to load status history")
	}
	if updates == nil {
		updates = []models.StatusUpdateDetail{}
	}
	return &dto.StatusHistoryResponse{
		GrievanceID:        grievance.ID,
		ReferenceNumber:    grievance.ReferenceNumber,
		CurrentStatus:      grievance.Status,
		Updates:            updates,
		AllowedTransitions: grievance.Status.AllowedTransitions(),
	}, nil
}

func (s *GrievanceService) recordTransition(ctx context.Context, tx sqlx.ExtContext, actor models.Actor, before, after *models.Grievance, remarks string, at time.Time) (*models.StatusUpdate, error) {
	old := before.Status
	update := &models.StatusUpdate{
		GrievanceID: before.ID,
		UpdatedBy:   actor.ID,
		OldStatus:   &old,
		NewStatus:   after.Status,
		Remarks:     optionalString(strings.TrimSpace(remarks)),
		CreatedAt:   at,
	}
	if err := s.updates.Create(ctx, tx, update); err != nil {
		return nil, storageError(err, "failed to record status update")
	}
	if _, err := s.audit.Record(ctx, tx, AuditRecord{
		Action:     models.AuditActionStatusChange,
		EntityType: models.EntityGrievance,
		EntityID:   before.ID,
		Actor:      actor,
		Old:        before,
		New:        after,
	}); err != nil {
		return nil, err
	}
	return update, nil
}

func (s *GrievanceService) lockGrievance(ctx context.Context, tx sqlx.ExtContext, id string) (*models.Grievance, error) {
	current, err := s.grievances.FindForUpdate(ctx, tx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, grievanceNotFound(id)
		}
		return nil, storageError(err, "failed to load grievance")
	}
	return current, nil
}

func (s *GrievanceService) ensureCategory(ctx context.Context, categoryID *string) error {
	if categoryID == nil || s.categories == nil {
		return nil
	}
	exists, err := s.categories.Exists(ctx, *categoryID)
	if err != nil {
		return appErrors.Persistence(err, "failed to check category")
	}
	if !exists {
		return appErrors.Clone(appErrors.ErrValidation, "unknown or inactive category")
	}
	return nil
}

func grievanceNotFound(id string) *appErrors.Error {
	return appErrors.WithDetails(appErrors.Clone(appErrors.ErrNotFound, "grievance not found"), map[string]interface{}{"id": id})
}

func invalidTransition(from, to models.GrievanceStatus) *appErrors.Error {
	return appErrors.WithDetails(
		appErrors.Clone(appErrors.ErrInvalidTransition, fmt.Sprintf("cannot move grievance from %s to %s", from, to)),
		map[string]interface{}{
			"currentStatus":      from,
			"requestedStatus":    to,
			"allowedTransitions": from.AllowedTransitions(),
		},
	)
}

func normalizePaging(page, limit, defaultLimit, maxLimit int) (int, int) {
	if page < 1 {
		page = 1
	}
	if limit <= 0 {
		limit = defaultLimit
	}
	if limit > maxLimit {
		limit = maxLimit
	}
	return page, limit
}
