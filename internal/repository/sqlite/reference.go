package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/enfdev/letterbox/internal/apperror"
	"github.com/enfdev/letterbox/internal/model"
	"github.com/enfdev/letterbox/internal/repository"
)

var _ repository.ReferenceRepository = (*DB)(nil)

// ListBirds returns all seeded birds, in name order.
func (db *DB) ListBirds(ctx context.Context) ([]model.Bird, error) {
	rows, err := db.conn.QueryContext(ctx, `SELECT id, name FROM birds ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing birds: %w", err)
	}
	defer rows.Close()

	var birds []model.Bird
	for rows.Next() {
		var b model.Bird
		if err := rows.Scan(&b.ID, &b.Name); err != nil {
			return nil, fmt.Errorf("sqlite: scanning bird: %w", err)
		}
		birds = append(birds, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: listing birds: %w", err)
	}
	return birds, nil
}

// ListCategories returns all seeded categories, in name order.
func (db *DB) ListCategories(ctx context.Context) ([]model.Category, error) {
	rows, err := db.conn.QueryContext(ctx, `SELECT id, name FROM categories ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing categories: %w", err)
	}
	defer rows.Close()

	var categories []model.Category
	for rows.Next() {
		var c model.Category
		if err := rows.Scan(&c.ID, &c.Name); err != nil {
			return nil, fmt.Errorf("sqlite: scanning category: %w", err)
		}
		categories = append(categories, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: listing categories: %w", err)
	}
	return categories, nil
}

// GetBirdByName looks up one bird. Returns apperror.ErrNotFound on a miss.
func (db *DB) GetBirdByName(ctx context.Context, name string) (*model.Bird, error) {
	var b model.Bird
	err := db.conn.QueryRowContext(ctx,
		`SELECT id, name FROM birds WHERE name = ?`, name,
	).Scan(&b.ID, &b.Name)
	if err == sql.ErrNoRows {
		return nil, apperror.NotFound("bird", name)
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite: fetching bird %q: %w", name, err)
	}
	return &b, nil
}

// GetCategoryByName looks up one category. Returns apperror.ErrNotFound on a miss.
func (db *DB) GetCategoryByName(ctx context.Context, name string) (*model.Category, error) {
	var c model.Category
	err := db.conn.QueryRowContext(ctx,
		`SELECT id, name FROM categories WHERE name = ?`, name,
	).Scan(&c.ID, &c.Name)
	if err == sql.ErrNoRows {
		return nil, apperror.NotFound("category", name)
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite: fetching category %q: %w", name, err)
	}
	return &c, nil
}
