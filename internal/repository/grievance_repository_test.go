package repository

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/grievance-api/internal/models"
)

var grievanceRowColumns = []string{"id", "reference_number", "title", "description", "requester_name", "requester_phone",
	"requester_email", "requester_address", "district", "mandal", "village", "constituency", "state", "pincode",
	"latitude", "longitude", "category_id", "assigned_to", "status", "priority", "estimated_cost",
	"expected_resolution_date", "actual_resolution_date", "version", "created_by", "created_at", "updated_at", "deleted_at"}

func grievanceRow(id, ref string, status models.GrievanceStatus, priority models.Priority, createdAt time.Time) []driver.Value {
	return []driver.Value{id, ref, "Broken streetlight", "Light out for a week", "Ravi", "9876543210",
		nil, nil, "Guntur", "Tenali", "Kollur", nil, nil, nil,
		nil, nil, nil, nil, string(status), string(priority), "1500.50",
		nil, nil, 1, "user-1", createdAt, createdAt, nil}
}

func TestGrievanceRepositoryCreateAppliesDefaults(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewGrievanceRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO grievances")).WillReturnResult(sqlmock.NewResult(1, 1))

	grievance := &models.Grievance{ReferenceNumber: "GRV-2024-0001", Title: "Broken streetlight", CreatedBy: "user-1"}
	require.NoError(t, repo.Create(context.Background(), nil, grievance))
	assert.NotEmpty(t, grievance.ID)
	assert.Equal(t, models.GrievanceStatusPending, grievance.Status)
	assert.Equal(t, models.PriorityMedium, grievance.Priority)
	assert.Equal(t, 1, grievance.Version)
	assert.Equal(t, grievance.CreatedAt, grievance.UpdatedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGrievanceRepositoryFindByID(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewGrievanceRepository(db)

	now := time.Now().UTC()
	columns := append(append([]string{}, grievanceRowColumns...), "category_name", "category_color", "assignee_name")
	values := append(grievanceRow("g-1", "GRV-2024-0001", models.GrievanceStatusAssigned, models.PriorityHigh, now), "Roads", "#ff0000", "Officer One")
	mock.ExpectQuery(regexp.QuoteMeta("FROM grievances g LEFT JOIN categories c ON c.id = g.category_id")).
		WithArgs("g-1").
		WillReturnRows(sqlmock.NewRows(columns).AddRow(values...))

	detail, err := repo.FindByID(context.Background(), "g-1")
	require.NoError(t, err)
	assert.Equal(t, "GRV-2024-0001", detail.ReferenceNumber)
	assert.Equal(t, models.GrievanceStatusAssigned, detail.Status)
	require.NotNil(t, detail.EstimatedCost)
	assert.InDelta(t, 1500.50, *detail.EstimatedCost, 0.001)
	require.NotNil(t, detail.AssigneeName)
	assert.Equal(t, "Officer One", *detail.AssigneeName)

	mock.ExpectQuery(regexp.QuoteMeta("WHERE g.id = $1 AND g.deleted_at IS NULL")).
		WithArgs("gone").
		WillReturnRows(sqlmock.NewRows(columns))
	_, err = repo.FindByID(context.Background(), "gone")
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGrievanceRepositoryFindForUpdateLocksRow(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewGrievanceRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("WHERE g.id = $1 AND g.deleted_at IS NULL FOR UPDATE")).
		WithArgs("g-1").
		WillReturnRows(sqlmock.NewRows(grievanceRowColumns).AddRow(grievanceRow("g-1", "GRV-2024-0001", models.GrievanceStatusPending, models.PriorityLow, time.Now())...))
	mock.ExpectCommit()

	tx, err := db.BeginTxx(context.Background(), nil)
	require.NoError(t, err)
	grievance, err := repo.FindForUpdate(context.Background(), tx, "g-1")
	require.NoError(t, err)
	assert.Equal(t, 1, grievance.Version)
	require.NoError(t, tx.Commit())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGrievanceRepositoryFindRecentDuplicate(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewGrievanceRepository(db)
	since := time.Now().Add(-24 * time.Hour)

	mock.ExpectQuery(regexp.QuoteMeta("WHERE g.requester_phone = $1 AND LOWER(TRIM(g.title)) = $2 AND g.created_at >= $3")).
		WithArgs("9876543210", "broken streetlight", since).
		WillReturnRows(sqlmock.NewRows(grievanceRowColumns))

	found, err := repo.FindRecentDuplicate(context.Background(), "9876543210", "broken streetlight", since)
	require.NoError(t, err)
	assert.Nil(t, found)

	mock.ExpectQuery(regexp.QuoteMeta("ORDER BY g.created_at DESC LIMIT 1")).
		WithArgs("9876543210", "broken streetlight", since).
		WillReturnRows(sqlmock.NewRows(grievanceRowColumns).AddRow(grievanceRow("g-9", "GRV-2024-0009", models.GrievanceStatusPending, models.PriorityLow, time.Now())...))

	found, err = repo.FindRecentDuplicate(context.Background(), "9876543210", "broken streetlight", since)
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, "g-9", found.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGrievanceRepositoryListFilters(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewGrievanceRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM grievances g WHERE g.deleted_at IS NULL AND g.district = $1 AND g.status = ANY($2)")).
		WithArgs("Guntur", sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	columns := append(append([]string{}, grievanceRowColumns...), "category_name", "category_color", "assignee_name")
	values := append(grievanceRow("g-1", "GRV-2024-0001", models.GrievanceStatusPending, models.PriorityLow, time.Now()), nil, nil, nil)
	mock.ExpectQuery(regexp.QuoteMeta("ORDER BY g.created_at DESC, g.id ASC LIMIT 10 OFFSET 10")).
		WithArgs("Guntur", sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows(columns).AddRow(values...))

	items, total, err := repo.List(context.Background(), models.GrievanceFilter{
		District: "Guntur",
		Status:   []models.GrievanceStatus{models.GrievanceStatusPending, models.GrievanceStatusAssigned},
		Page:     2,
		PageSize: 10,
	})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	assert.Len(t, items, 1)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGrievanceRepositoryUpdateStatusVersionCheck(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewGrievanceRepository(db)
	now := time.Now().UTC()

	params := UpdateStatusParams{
		ID:              "g-1",
		From:            models.GrievanceStatusPending,
		To:              models.GrievanceStatusAssigned,
		ExpectedVersion: 3,
		UpdatedAt:       now,
	}
	mock.ExpectExec(regexp.QuoteMeta("UPDATE grievances")).
		WithArgs(models.GrievanceStatusAssigned, nil, now, "g-1", models.GrievanceStatusPending, 3, false).
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, repo.UpdateStatus(context.Background(), nil, params))

	mock.ExpectExec(regexp.QuoteMeta("WHERE id = $4 AND status = $5 AND version = $6 AND deleted_at IS NULL")).
		WillReturnResult(sqlmock.NewResult(0, 0))
	err := repo.UpdateStatus(context.Background(), nil, params)
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGrievanceRepositoryUpdateStatusClearsResolutionOnReopen(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewGrievanceRepository(db)
	now := time.Now().UTC()

	mock.ExpectExec(regexp.QuoteMeta("actual_resolution_date = CASE WHEN $7 THEN NULL ELSE COALESCE($2, actual_resolution_date) END")).
		WithArgs(models.GrievanceStatusInProgress, nil, now, "g-1", models.GrievanceStatusResolved, 5, true).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.UpdateStatus(context.Background(), nil, UpdateStatusParams{
		ID:                  "g-1",
		From:                models.GrievanceStatusResolved,
		To:                  models.GrievanceStatusInProgress,
		ExpectedVersion:     5,
		ClearResolutionDate: true,
		UpdatedAt:           now,
	}))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGrievanceRepositoryUpdateFieldsBuildsSetClause(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewGrievanceRepository(db)
	now := time.Now().UTC()
	title := "Streetlight still broken"
	priority := models.PriorityUrgent

	mock.ExpectExec(regexp.QuoteMeta("UPDATE grievances SET title = $1, priority = $2, updated_at = $3, version = version + 1 WHERE id = $4 AND version = $5 AND deleted_at IS NULL")).
		WithArgs(title, priority, now, "g-1", 2).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.UpdateFields(context.Background(), nil, "g-1", 2, models.GrievanceFieldChanges{Title: &title, Priority: &priority}, now)
	require.NoError(t, err)

	require.NoError(t, repo.UpdateFields(context.Background(), nil, "g-1", 2, models.GrievanceFieldChanges{}, now))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGrievanceRepositoryAssignAndSoftDelete(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewGrievanceRepository(db)
	now := time.Now().UTC()

	mock.ExpectExec(regexp.QuoteMeta("UPDATE grievances SET assigned_to = $1, status = $2")).
		WithArgs("officer-1", models.GrievanceStatusAssigned, now, "g-1", 1).
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, repo.Assign(context.Background(), nil, AssignParams{
		ID: "g-1", AssigneeID: "officer-1", Status: models.GrievanceStatusAssigned, ExpectedVersion: 1, UpdatedAt: now,
	}))

	mock.ExpectExec(regexp.QuoteMeta("UPDATE grievances SET deleted_at = $1")).
		WithArgs(now, "g-1", 2).
		WillReturnResult(sqlmock.NewResult(0, 0))
	err := repo.SoftDelete(context.Background(), nil, "g-1", 2, now)
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}
