package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/grievance-api/internal/dto"
	"github.com/noah-isme/grievance-api/internal/models"
	appErrors "github.com/noah-isme/grievance-api/pkg/errors"
)

const (
	projectID      = "0f6a2d1e-7c3b-4b59-a1e4-5d8c9b2f3a01"
	otherProjectID = "0f6a2d1e-7c3b-4b59-a1e4-5d8c9b2f3a02"
)

type memProjectStore struct {
	items map[string]models.Project
}

func (m *memProjectStore) Create(_ context.Context, _ sqlx.ExtContext, p *models.Project) error {
	p.ID = uuid.NewString()
	m.items[p.ID] = *p
	return nil
}

func (m *memProjectStore) FindByID(_ context.Context, id string) (*models.Project, error) {
	p, ok := m.items[id]
	if !ok || p.DeletedAt != nil {
		return nil, sql.ErrNoRows
	}
	return &p, nil
}

func (m *memProjectStore) FindForUpdate(ctx context.Context, _ sqlx.ExtContext, id string) (*models.Project, error) {
	return m.FindByID(ctx, id)
}

func (m *memProjectStore) List(_ context.Context, filter models.ProjectFilter) ([]models.Project, int, error) {
	var out []models.Project
	for _, p := range m.items {
		if p.DeletedAt == nil && (filter.Status == "" || p.Status == filter.Status) {
			out = append(out, p)
		}
	}
	return out, len(out), nil
}

func (m *memProjectStore) Update(_ context.Context, _ sqlx.ExtContext, p *models.Project) error {
	if _, ok := m.items[p.ID]; !ok {
		return sql.ErrNoRows
	}
	m.items[p.ID] = *p
	return nil
}

func (m *memProjectStore) SoftDelete(_ context.Context, _ sqlx.ExtContext, id string, deletedAt time.Time) error {
	p, ok := m.items[id]
	if !ok {
		return sql.ErrNoRows
	}
	p.DeletedAt = &deletedAt
	m.items[id] = p
	return nil
}

func newProjectFixture(t *testing.T) (*ProjectService, sqlmock.Sqlmock, *memProjectStore, *memAuditStore) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	store := &memProjectStore{items: make(map[string]models.Project)}
	audits := &memAuditStore{}
	svc := NewProjectService(store, NewReferenceNumberGenerator(&counterSequence{}), NewAuditTrail(audits, nil), sqlx.NewDb(db, "sqlmock"), nil, zap.NewNop())
	svc.now = func() time.Time { return fixedNow }
	return svc, mock, store, audits
}

func TestProjectServiceCreate(t *testing.T) {
	svc, mock, _, audits := newProjectFixture(t)
	mock.ExpectBegin()
	mock.ExpectCommit()

	project, err := svc.Create(context.Background(), testActor, dto.CreateProjectRequest{
		Name:     "Village road resurfacing",
		District: "Guntur",
		Mandal:   "Tenali",
		Village:  "Kollipara",
	})
	require.NoError(t, err)
	assert.Equal(t, "PRJ-2025-0001", project.ReferenceNumber)
	assert.Equal(t, models.ProjectStatusPlanned, project.Status)
	require.Len(t, audits.items, 1)
	assert.Equal(t, models.EntityProject, audits.items[0].EntityType)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestProjectServiceCreateValidation(t *testing.T) {
	svc, mock, _, _ := newProjectFixture(t)
	start := fixedNow
	end := fixedNow.AddDate(0, 0, -1)

	_, err := svc.Create(context.Background(), testActor, dto.CreateProjectRequest{
		Name: "Bridge", District: "Guntur", Mandal: "Tenali", Village: "Kollipara", Status: "paused",
	})
	requireAppError(t, err, appErrors.ErrValidation.Code)

	_, err = svc.Create(context.Background(), testActor, dto.CreateProjectRequest{
		Name: "Bridge", District: "Guntur", Mandal: "Tenali", Village: "Kollipara", StartDate: &start, EndDate: &end,
	})
	requireAppError(t, err, appErrors.ErrValidation.Code)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestProjectServiceUpdateMovesStatusFreely(t *testing.T) {
	svc, mock, store, audits := newProjectFixture(t)
	store.items[projectID] = models.Project{ID: projectID, Name: "Drainage", Status: models.ProjectStatusCompleted}
	mock.ExpectBegin()
	mock.ExpectCommit()

	status := models.ProjectStatus("planned")
	updated, err := svc.Update(context.Background(), testActor, projectID, dto.UpdateProjectRequest{Status: &status})
	require.NoError(t, err)
	assert.Equal(t, models.ProjectStatusPlanned, updated.Status)
	assert.Equal(t, fixedNow, updated.UpdatedAt)
	require.Len(t, audits.items, 1)
	assert.Equal(t, models.AuditActionUpdate, audits.items[0].Action)
}

func TestProjectServiceDeleteAndGet(t *testing.T) {
	svc, mock, store, audits := newProjectFixture(t)
	store.items[projectID] = models.Project{ID: projectID, Name: "Drainage", Status: models.ProjectStatusInProgress}
	mock.ExpectBegin()
	mock.ExpectCommit()

	require.NoError(t, svc.Delete(context.Background(), testActor, projectID))
	_, err := svc.Get(context.Background(), projectID)
	requireAppError(t, err, appErrors.ErrNotFound.Code)
	assert.Equal(t, []models.AuditAction{models.AuditActionDelete}, audits.actions())

	mock.ExpectBegin()
	mock.ExpectRollback()
	err = svc.Delete(context.Background(), testActor, projectID)
	requireAppError(t, err, appErrors.ErrNotFound.Code)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestProjectServiceMalformedIDIsNotFound(t *testing.T) {
	svc, mock, _, audits := newProjectFixture(t)

	_, err := svc.Get(context.Background(), "drainage-42")
	requireAppError(t, err, appErrors.ErrNotFound.Code)
	status := models.ProjectStatusOnHold
	_, err = svc.Update(context.Background(), testActor, "drainage-42", dto.UpdateProjectRequest{Status: &status})
	requireAppError(t, err, appErrors.ErrNotFound.Code)
	err = svc.Delete(context.Background(), testActor, "drainage-42")
	requireAppError(t, err, appErrors.ErrNotFound.Code)
	assert.Empty(t, audits.items)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestProjectServiceList(t *testing.T) {
	svc, _, store, _ := newProjectFixture(t)
	store.items[projectID] = models.Project{ID: projectID, Status: models.ProjectStatusOnHold}
	store.items[otherProjectID] = models.Project{ID: otherProjectID, Status: models.ProjectStatusPlanned}

	items, page, err := svc.List(context.Background(), dto.ProjectQuery{Status: "on_hold"})
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, 20, page.Limit)

	_, _, err = svc.List(context.Background(), dto.ProjectQuery{Status: "archived"})
	requireAppError(t, err, appErrors.ErrValidation.Code)
}
