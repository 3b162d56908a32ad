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
	"github.com/noah-isme/grievance-api/pkg/database"
	appErrors "github.com/noah-isme/grievance-api/pkg/errors"
)

type projectStore interface {
	Create(ctx context.Context, exec sqlx.ExtContext, project *models.Project) error
	FindByID(ctx context.Context, id string) (*models.Project, error)
	FindForUpdate(ctx context.Context, exec sqlx.ExtContext, id string) (*models.Project, error)
	List(ctx context.Context, filter models.ProjectFilter) ([]models.Project, int, error)
	Update(ctx context.Context, exec sqlx.ExtContext, project *models.Project) error
	SoftDelete(ctx context.Context, exec sqlx.ExtContext, id string, deletedAt time.Time) error
}

// ProjectService maintains works projects. Project status moves freely; there is no transition table.
type ProjectService struct {
	projects   projectStore
	references *ReferenceNumberGenerator
	audit      *AuditTrail
	tx         txProvider
	validator  *validator.Validate
	logger     *zap.Logger
	now        func() time.Time
}

// NewProjectService constructs the project service.
func NewProjectService(projects projectStore, references *ReferenceNumberGenerator, audit *AuditTrail, tx txProvider, validate *validator.Validate, logger *zap.Logger) *ProjectService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ProjectService{
		projects:   projects,
		references: references,
		audit:      audit,
		tx:         tx,
		validator:  registerDomainValidators(validate),
		logger:     logger,
		now:        time.Now,
	}
}

// Create registers a project with a PRJ reference number.
func (s *ProjectService) Create(ctx context.Context, actor models.Actor, req dto.CreateProjectRequest) (*models.Project, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	req.Status = models.ProjectStatus(strings.ToUpper(string(req.Status)))
	if req.Status == "" {
		req.Status = models.ProjectStatusPlanned
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err)
	}
	if err := checkProjectDates(req.StartDate, req.EndDate); err != nil {
		return nil, err
	}

	now := s.now().UTC()
	project := &models.Project{
		Name:          strings.TrimSpace(req.Name),
		Description:   req.Description,
		District:      req.District,
		Mandal:        req.Mandal,
		Village:       req.Village,
		Constituency:  req.Constituency,
		Status:        req.Status,
		EstimatedCost: req.EstimatedCost,
		StartDate:     req.StartDate,
		EndDate:       req.EndDate,
		CreatedBy:     actor.ID,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	err := runInTx(ctx, s.tx, func(tx *sqlx.Tx) error {
		ref, err := s.references.Next(ctx, tx, models.ReferenceProject, now.Year())
		if err != nil {
			return err
		}
		project.ReferenceNumber = ref
		if err := s.projects.Create(ctx, tx, project); err != nil {
			if database.IsUniqueViolation(err) {
				return appErrors.WrapAs(err, appErrors.ErrSequenceUnavailable, "reference number already issued, retry the request")
			}
			return storageError(err, "failed to create project")
		}
		_, err = s.audit.Record(ctx, tx, AuditRecord{
			Action:     models.AuditActionCreate,
			EntityType: models.EntityProject,
			EntityID:   project.ID,
			Actor:      actor,
			New:        project,
		})
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("project created",
		zap.String("project_id", project.ID),
		zap.String("reference_number", project.ReferenceNumber),
		zap.String("actor_id", actor.ID))
	return project, nil
}

// Get returns a live project.
func (s *ProjectService) Get(ctx context.Context, id string) (*models.Project, error) {
	if !isEntityID(id) {
		return nil, projectNotFound(id)
	}
	project, err := s.projects.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, projectNotFound(id)
		}
		return nil, appErrors.Persistence(err, "failed to load project")
	}
	return project, nil
}

// List returns a page of live projects.
func (s *ProjectService) List(ctx context.Context, query dto.ProjectQuery) ([]models.Project, *models.Pagination, error) {
	status := models.ProjectStatus(strings.ToUpper(strings.TrimSpace(query.Status)))
	if status != "" && !status.IsValid() {
		return nil, nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown project status %q", query.Status))
	}
	page, limit := normalizePaging(query.Page, query.Limit, 20, 100)
	items, total, err := s.projects.List(ctx, models.ProjectFilter{
		District:     strings.TrimSpace(query.District),
		Constituency: strings.TrimSpace(query.Constituency),
		Status:       status,
		Page:         page,
		PageSize:     limit,
	})
	if err != nil {
		return nil, nil, appErrors.Persistence(err, "failed to list projects")
	}
	if items == nil {
		items = []models.Project{}
	}
	return items, models.NewPagination(page, limit, total), nil
}

// Update applies the supplied fields and audits the before and after state.
func (s *ProjectService) Update(ctx context.Context, actor models.Actor, id string, req dto.UpdateProjectRequest) (*models.Project, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	if !isEntityID(id) {
		return nil, projectNotFound(id)
	}
	if req.Status != nil {
		upper := models.ProjectStatus(strings.ToUpper(string(*req.Status)))
		req.Status = &upper
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err)
	}

	var updated models.Project
	err := runInTx(ctx, s.tx, func(tx *sqlx.Tx) error {
		current, err := s.projects.FindForUpdate(ctx, tx, id)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return projectNotFound(id)
			}
			return storageError(err, "failed to load project")
		}
		updated = applyProjectChanges(*current, req)
		if err := checkProjectDates(updated.StartDate, updated.EndDate); err != nil {
			return err
		}
		updated.UpdatedAt = s.now().UTC()
		if err := s.projects.Update(ctx, tx, &updated); err != nil {
			return storageError(err, "failed to update project")
		}
		_, err = s.audit.Record(ctx, tx, AuditRecord{
			Action:     models.AuditActionUpdate,
			EntityType: models.EntityProject,
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

	s.logger.Info("project updated",
		zap.String("project_id", id),
		zap.String("status", string(updated.Status)),
		zap.String("actor_id", actor.ID))
	return &updated, nil
}

// Delete soft-deletes a project.
func (s *ProjectService) Delete(ctx context.Context, actor models.Actor, id string) error {
	if err := requireActor(actor); err != nil {
		return err
	}
	if !isEntityID(id) {
		return projectNotFound(id)
	}
	err := runInTx(ctx, s.tx, func(tx *sqlx.Tx) error {
		current, err := s.projects.FindForUpdate(ctx, tx, id)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return projectNotFound(id)
			}
			return storageError(err, "failed to load project")
		}
		if err := s.projects.SoftDelete(ctx, tx, id, s.now().UTC()); err != nil {
			return storageError(err, "failed to delete project")
		}
		_, err = s.audit.Record(ctx, tx, AuditRecord{
			Action:     models.AuditActionDelete,
			EntityType: models.EntityProject,
			EntityID:   id,
			Actor:      actor,
			Old:        current,
		})
		return err
	})
	if err != nil {
		return err
	}
	s.logger.Info("project deleted", zap.String("project_id", id), zap.String("actor_id", actor.ID))
	return nil
}

func applyProjectChanges(p models.Project, req dto.UpdateProjectRequest) models.Project {
	if req.Name != nil {
		p.Name = strings.TrimSpace(*req.Name)
	}
	if req.Description != nil {
		p.Description = *req.Description
	}
	if req.Status != nil {
		p.Status = *req.Status
	}
	if req.EstimatedCost != nil {
		p.EstimatedCost = req.EstimatedCost
	}
	if req.StartDate != nil {
		p.StartDate = req.StartDate
	}
	if req.EndDate != nil {
		p.EndDate = req.EndDate
	}
	return p
}

func checkProjectDates(start, end *time.Time) error {
	if start != nil && end != nil && end.Before(*start) {
		return appErrors.WithDetails(appErrors.Clone(appErrors.ErrValidation, "endDate must not precede startDate"),
			map[string]interface{}{"fields": map[string]interface{}{"endDate": "gtefield"}})
	}
	return nil
}

func projectNotFound(id string) *appErrors.Error {
	return appErrors.WithDetails(appErrors.Clone(appErrors.ErrNotFound, "project not found"), map[string]interface{}{"id": id})
}
