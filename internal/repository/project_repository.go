package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/grievance-api/internal/models"
)

const projectColumns = `id, reference_number, name, description, district, mandal, village, constituency, status,
	estimated_cost, start_date, end_date, created_by, created_at, updated_at, deleted_at`

// ProjectRepository persists government projects.
type ProjectRepository struct {
	db *sqlx.DB
}

// NewProjectRepository constructs the repository.
func NewProjectRepository(db *sqlx.DB) *ProjectRepository {
	return &ProjectRepository{db: db}
}

func (r *ProjectRepository) exec(exec sqlx.ExtContext) sqlx.ExtContext {
	if exec != nil {
		return exec
	}
	return r.db
}

// Create inserts a project row.
func (r *ProjectRepository) Create(ctx context.Context, exec sqlx.ExtContext, project *models.Project) error {
	if project == nil {
		return fmt.Errorf("project payload is nil")
	}
	if project.ID == "" {
		project.ID = uuid.NewString()
	}
	if project.Status == "" {
		project.Status = models.ProjectStatusPlanned
	}
	now := time.Now().UTC()
	if project.CreatedAt.IsZero() {
		project.CreatedAt = now
	}
	project.UpdatedAt = project.CreatedAt

	const query = `INSERT INTO projects (id, reference_number, name, description, district, mandal, village, constituency,
	status, estimated_cost, start_date, end_date, created_by, created_at, updated_at)
	VALUES (:id, :reference_number, :name, :description, :district, :mandal, :village, :constituency,
	:status, :estimated_cost, :start_date, :end_date, :created_by, :created_at, :updated_at)`
	if _, err := sqlx.NamedExecContext(ctx, r.exec(exec), query, project); err != nil {
		return fmt.Errorf("create project: %w", err)
	}
	return nil
}

// FindByID returns a live project.
func (r *ProjectRepository) FindByID(ctx context.Context, id string) (*models.Project, error) {
	query := `SELECT ` + projectColumns + ` FROM projects WHERE id = $1 AND deleted_at IS NULL`
	var project models.Project
	if err := r.db.GetContext(ctx, &project, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find project: %w", err)
	}
	return &project, nil
}

// FindForUpdate loads and locks a live project inside exec's transaction.
func (r *ProjectRepository) FindForUpdate(ctx context.Context, exec sqlx.ExtContext, id string) (*models.Project, error) {
	query := `SELECT ` + projectColumns + ` FROM projects WHERE id = $1 AND deleted_at IS NULL FOR UPDATE`
	var project models.Project
	if err := sqlx.GetContext(ctx, r.exec(exec), &project, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("lock project: %w", err)
	}
	return &project, nil
}

// List returns live projects matching the filter with the total count.
func (r *ProjectRepository) List(ctx context.Context, filter models.ProjectFilter) ([]models.Project, int, error) {
	var builder strings.Builder
	builder.WriteString(" FROM projects WHERE deleted_at IS NULL")
	var args []interface{}
	if filter.District != "" {
		args = append(args, filter.District)
		builder.WriteString(fmt.Sprintf(" AND district = $%d", len(args)))
	}
	if filter.Constituency != "" {
		args = append(args, filter.Constituency)
		builder.WriteString(fmt.Sprintf(" AND constituency = $%d", len(args)))
	}
	if filter.Status != "" {
		args = append(args, filter.Status)
		builder.WriteString(fmt.Sprintf(" AND status = $%d", len(args)))
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 20
	}

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*)"+builder.String(), args...); err != nil {
		return nil, 0, fmt.Errorf("count projects: %w", err)
	}

	query := fmt.Sprintf("SELECT %s%s ORDER BY created_at DESC, id ASC LIMIT %d OFFSET %d",
		projectColumns, builder.String(), pageSize, (page-1)*pageSize)
	var projects []models.Project
	if err := r.db.SelectContext(ctx, &projects, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list projects: %w", err)
	}
	return projects, total, nil
}

// Update writes the mutable columns of project.
func (r *ProjectRepository) Update(ctx context.Context, exec sqlx.ExtContext, project *models.Project) error {
	project.UpdatedAt = time.Now().UTC()
	const query = `UPDATE projects SET name = :name, description = :description, status = :status,
	estimated_cost = :estimated_cost, start_date = :start_date, end_date = :end_date, updated_at = :updated_at
	WHERE id = :id AND deleted_at IS NULL`
	result, err := sqlx.NamedExecContext(ctx, r.exec(exec), query, project)
	if err != nil {
		return fmt.Errorf("update project: %w", err)
	}
	return expectAffected(result, "project update")
}

// SoftDelete marks a project deleted.
func (r *ProjectRepository) SoftDelete(ctx context.Context, exec sqlx.ExtContext, id string, deletedAt time.Time) error {
	const query = `UPDATE projects SET deleted_at = $1, updated_at = $1 WHERE id = $2 AND deleted_at IS NULL`
	result, err := r.exec(exec).ExecContext(ctx, query, deletedAt, id)
	if err != nil {
		return fmt.Errorf("delete project: %w", err)
	}
	return expectAffected(result, "project delete")
}
