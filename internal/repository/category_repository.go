package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/grievance-api/internal/models"
)

// CategoryRepository reads the category reference table.
type CategoryRepository struct {
	db *sqlx.DB
}

// NewCategoryRepository constructs the repository.
func NewCategoryRepository(db *sqlx.DB) *CategoryRepository {
	return &CategoryRepository{db: db}
}

// List returns every category, active or not, so historical rows keep their labels.
func (r *CategoryRepository) List(ctx context.Context) ([]models.Category, error) {
	const query = `SELECT id, name, color, active FROM categories ORDER BY name ASC`
	var categories []models.Category
	if err := r.db.SelectContext(ctx, &categories, query); err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	return categories, nil
}

// Exists reports whether an active category with id exists.
func (r *CategoryRepository) Exists(ctx context.Context, id string) (bool, error) {
	const query = `SELECT EXISTS(SELECT 1 FROM categories WHERE id = $1 AND active = TRUE)`
	var exists bool
	if err := r.db.GetContext(ctx, &exists, query, id); err != nil {
		return false, fmt.Errorf("check category: %w", err)
	}
	return exists, nil
}

// Upsert inserts or refreshes categories by id.
func (r *CategoryRepository) Upsert(ctx context.Context, categories []models.Category) error {
	if len(categories) == 0 {
		return nil
	}
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin category upsert: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	const query = `INSERT INTO categories (id, name, color, active) VALUES (:id, :name, :color, :active)
	ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name, color = EXCLUDED.color, active = EXCLUDED.active`
	for i := range categories {
		if _, err = tx.NamedExecContext(ctx, query, &categories[i]); err != nil {
			return fmt.Errorf("upsert category %s: %w", categories[i].ID, err)
		}
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit category upsert: %w", err)
	}
	return nil
}
