package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/grievance-api/internal/models"
)

const grievanceColumns = `g.id, g.reference_number, g.title, g.description, g.requester_name, g.requester_phone,
	g.requester_email, g.requester_address, g.district, g.mandal, g.village, g.constituency, g.state, g.pincode,
	g.latitude, g.longitude, g.category_id, g.assigned_to, g.status, g.priority, g.estimated_cost,
	g.expected_resolution_date, g.actual_resolution_date, g.version, g.created_by, g.created_at, g.updated_at, g.deleted_at`

const grievanceDetailJoins = ` LEFT JOIN categories c ON c.id = g.category_id
	LEFT JOIN users u ON u.id = g.assigned_to`

const grievanceDetailColumns = grievanceColumns + `, c.name AS category_name, c.color AS category_color, u.full_name AS assignee_name`

// GrievanceRepository persists grievances and their lifecycle columns.
type GrievanceRepository struct {
	db *sqlx.DB
}

// NewGrievanceRepository constructs the repository.
func NewGrievanceRepository(db *sqlx.DB) *GrievanceRepository {
	return &GrievanceRepository{db: db}
}

func (r *GrievanceRepository) exec(exec sqlx.ExtContext) sqlx.ExtContext {
	if exec != nil {
		return exec
	}
	return r.db
}

// Create inserts a new grievance row. Status defaults to PENDING and version to 1.
func (r *GrievanceRepository) Create(ctx context.Context, exec sqlx.ExtContext, grievance *models.Grievance) error {
	if grievance == nil {
		return fmt.Errorf("grievance payload is nil")
	}
	if grievance.ID == "" {
		grievance.ID = uuid.NewString()
	}
	if grievance.Status == "" {
		grievance.Status = models.GrievanceStatusPending
	}
	if grievance.Priority == "" {
		grievance.Priority = models.PriorityMedium
	}
	if grievance.Version == 0 {
		grievance.Version = 1
	}
	now := time.Now().UTC()
	if grievance.CreatedAt.IsZero() {
		grievance.CreatedAt = now
	}
	grievance.UpdatedAt = grievance.CreatedAt

	const query = `INSERT INTO grievances
	(id, reference_number, title, description, requester_name, requester_phone, requester_email, requester_address,
	 district, mandal, village, constituency, state, pincode, latitude, longitude, category_id, assigned_to,
	 status, priority, estimated_cost, expected_resolution_date, actual_resolution_date, version, created_by,
	 created_at, updated_at)
	VALUES (:id, :reference_number, :title, :description, :requester_name, :requester_phone, :requester_email, :requester_address,
	 :district, :mandal, :village, :constituency, :state, :pincode, :latitude, :longitude, :category_id, :assigned_to,
	 :status, :priority, :estimated_cost, :expected_resolution_date, :actual_resolution_date, :version, :created_by,
	 :created_at, :updated_at)`
	if _, err := sqlx.NamedExecContext(ctx, r.exec(exec), query, grievance); err != nil {
		return fmt.Errorf("create grievance: %w", err)
	}
	return nil
}

// FindByID returns a live grievance with its category and assignee labels.
func (r *GrievanceRepository) FindByID(ctx context.Context, id string) (*models.GrievanceDetail, error) {
	query := `SELECT ` + grievanceDetailColumns + ` FROM grievances g` + grievanceDetailJoins +
		` WHERE g.id = $1 AND g.deleted_at IS NULL`
	var grievance models.GrievanceDetail
	if err := r.db.GetContext(ctx, &grievance, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find grievance: %w", err)
	}
	return &grievance, nil
}

// FindForUpdate loads a live grievance and locks its row for the rest of the transaction.
func (r *GrievanceRepository) FindForUpdate(ctx context.Context, exec sqlx.ExtContext, id string) (*models.Grievance, error) {
	query := `SELECT ` + grievanceColumns + ` FROM grievances g WHERE g.id = $1 AND g.deleted_at IS NULL FOR UPDATE`
	var grievance models.Grievance
	if err := sqlx.GetContext(ctx, r.exec(exec), &grievance, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("lock grievance: %w", err)
	}
	return &grievance, nil
}

// FindRecentDuplicate returns the newest live grievance from phone whose normalised title matches, created at or after since.
func (r *GrievanceRepository) FindRecentDuplicate(ctx context.Context, phone, normalizedTitle string, since time.Time) (*models.Grievance, error) {
	query := `SELECT ` + grievanceColumns + ` FROM grievances g
	WHERE g.requester_phone = $1 AND LOWER(TRIM(g.title)) = $2 AND g.created_at >= $3 AND g.deleted_at IS NULL
	ORDER BY g.created_at DESC LIMIT 1`
	var grievance models.Grievance
	if err := r.db.GetContext(ctx, &grievance, query, phone, normalizedTitle, since); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("find duplicate grievance: %w", err)
	}
	return &grievance, nil
}

// List returns live grievances matching the filter together with the total count.
func (r *GrievanceRepository) List(ctx context.Context, filter models.GrievanceFilter) ([]models.GrievanceDetail, int, error) {
	var conditions []string
	var args []interface{}
	conditions = append(conditions, "g.deleted_at IS NULL")

	if filter.District != "" {
		args = append(args, filter.District)
		conditions = append(conditions, fmt.Sprintf("g.district = $%d", len(args)))
	}
	if filter.Mandal != "" {
		args = append(args, filter.Mandal)
		conditions = append(conditions, fmt.Sprintf("g.mandal = $%d", len(args)))
	}
	if filter.Village != "" {
		args = append(args, filter.Village)
		conditions = append(conditions, fmt.Sprintf("g.village = $%d", len(args)))
	}
	if len(filter.Status) > 0 {
		statuses := make([]string, len(filter.Status))
		for i, s := range filter.Status {
			statuses[i] = string(s)
		}
		args = append(args, pq.Array(statuses))
		conditions = append(conditions, fmt.Sprintf("g.status = ANY($%d)", len(args)))
	}
	if len(filter.Priority) > 0 {
		priorities := make([]string, len(filter.Priority))
		for i, p := range filter.Priority {
			priorities[i] = string(p)
		}
		args = append(args, pq.Array(priorities))
		conditions = append(conditions, fmt.Sprintf("g.priority = ANY($%d)", len(args)))
	}
	if filter.CategoryID != "" {
		args = append(args, filter.CategoryID)
		conditions = append(conditions, fmt.Sprintf("g.category_id = $%d", len(args)))
	}
	if filter.AssignedTo != "" {
		args = append(args, filter.AssignedTo)
		conditions = append(conditions, fmt.Sprintf("g.assigned_to = $%d", len(args)))
	}
	if filter.Search != "" {
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
		conditions = append(conditions, fmt.Sprintf("(LOWER(g.title) LIKE $%d OR LOWER(g.reference_number) LIKE $%d OR LOWER(g.requester_name) LIKE $%d)", len(args), len(args), len(args)))
	}

	where := " WHERE " + strings.Join(conditions, " AND ")

	page := filter.Page
	if page < 1 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 20
	}
	offset := (page - 1) * pageSize

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM grievances g"+where, args...); err != nil {
		return nil, 0, fmt.Errorf("count grievances: %w", err)
	}

	query := fmt.Sprintf(`SELECT %s FROM grievances g%s%s ORDER BY g.created_at DESC, g.id ASC LIMIT %d OFFSET %d`,
		grievanceDetailColumns, grievanceDetailJoins, where, pageSize, offset)
	var grievances []models.GrievanceDetail
	if err := r.db.SelectContext(ctx, &grievances, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list grievances: %w", err)
	}
	return grievances, total, nil
}

// UpdateStatusParams describes a version-checked status write.
type UpdateStatusParams struct {
	ID                   string
	From                 models.GrievanceStatus
	To                   models.GrievanceStatus
	ExpectedVersion      int
	ActualResolutionDate *time.Time
	// ClearResolutionDate drops a previously recorded resolution date, as when a grievance is reopened.
	ClearResolutionDate bool
	UpdatedAt           time.Time
}

// UpdateStatus applies a status change only when the row still has the expected status and version.
// sql.ErrNoRows signals that a concurrent writer got there first.
func (r *GrievanceRepository) UpdateStatus(ctx context.Context, exec sqlx.ExtContext, params UpdateStatusParams) error {
	const query = `UPDATE grievances
	SET status = $1,
	actual_resolution_date = CASE WHEN $7 THEN NULL ELSE COALESCE($2, actual_resolution_date) END,
	version = version + 1, updated_at = $3
	WHERE id = $4 AND status = $5 AND version = $6 AND deleted_at IS NULL`
	result, err := r.exec(exec).ExecContext(ctx, query, params.To, params.ActualResolutionDate, params.UpdatedAt,
		params.ID, params.From, params.ExpectedVersion, params.ClearResolutionDate)
	if err != nil {
		return fmt.Errorf("update grievance status: %w", err)
	}
	return expectAffected(result, "grievance status")
}

// AssignParams describes a version-checked assignment write.
type AssignParams struct {
	ID              string
	AssigneeID      string
	Status          models.GrievanceStatus
	ExpectedVersion int
	UpdatedAt       time.Time
}

// Assign sets the assignee (and the status it implies) on a version-checked row.
func (r *GrievanceRepository) Assign(ctx context.Context, exec sqlx.ExtContext, params AssignParams) error {
	const query = `UPDATE grievances SET assigned_to = $1, status = $2, version = version + 1, updated_at = $3
	WHERE id = $4 AND version = $5 AND deleted_at IS NULL`
	result, err := r.exec(exec).ExecContext(ctx, query, params.AssigneeID, params.Status, params.UpdatedAt,
		params.ID, params.ExpectedVersion)
	if err != nil {
		return fmt.Errorf("assign grievance: %w", err)
	}
	return expectAffected(result, "grievance assignment")
}

// UpdateFields writes the non-nil descriptive fields of changes on a version-checked row.
func (r *GrievanceRepository) UpdateFields(ctx context.Context, exec sqlx.ExtContext, id string, expectedVersion int, changes models.GrievanceFieldChanges, updatedAt time.Time) error {
	if changes.Empty() {
		return nil
	}
	var sets []string
	var args []interface{}
	add := func(column string, value interface{}) {
		args = append(args, value)
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
	}
	if changes.Title != nil {
		add("title", *changes.Title)
	}
	if changes.Description != nil {
		add("description", *changes.Description)
	}
	if changes.CategoryID != nil {
		add("category_id", *changes.CategoryID)
	}
	if changes.Priority != nil {
		add("priority", *changes.Priority)
	}
	if changes.EstimatedCost != nil {
		add("estimated_cost", *changes.EstimatedCost)
	}
	if changes.ExpectedResolutionDate != nil {
		add("expected_resolution_date", *changes.ExpectedResolutionDate)
	}
	if changes.District != nil {
		add("district", *changes.District)
	}
	if changes.Mandal != nil {
		add("mandal", *changes.Mandal)
	}
	if changes.Village != nil {
		add("village", *changes.Village)
	}
	if changes.Constituency != nil {
		add("constituency", *changes.Constituency)
	}
	if changes.Pincode != nil {
		add("pincode", *changes.Pincode)
	}
	if changes.Latitude != nil {
		add("latitude", *changes.Latitude)
	}
	if changes.Longitude != nil {
		add("longitude", *changes.Longitude)
	}
	add("updated_at", updatedAt)
	sets = append(sets, "version = version + 1")

	args = append(args, id, expectedVersion)
	query := fmt.Sprintf("UPDATE grievances SET %s WHERE id = $%d AND version = $%d AND deleted_at IS NULL",
		strings.Join(sets, ", "), len(args)-1, len(args))
	result, err := r.exec(exec).ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update grievance fields: %w", err)
	}
	return expectAffected(result, "grievance fields")
}

// SoftDelete hides a grievance from reads while keeping its history.
func (r *GrievanceRepository) SoftDelete(ctx context.Context, exec sqlx.ExtContext, id string, expectedVersion int, deletedAt time.Time) error {
	const query = `UPDATE grievances SET deleted_at = $1, updated_at = $1, version = version + 1
	WHERE id = $2 AND version = $3 AND deleted_at IS NULL`
	result, err := r.exec(exec).ExecContext(ctx, query, deletedAt, id, expectedVersion)
	if err != nil {
		return fmt.Errorf("delete grievance: %w", err)
	}
	return expectAffected(result, "grievance delete")
}

func expectAffected(result sql.Result, label string) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s rows affected: %w", label, err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
