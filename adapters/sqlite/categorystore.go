package sqlite

import (
	"context"
	"database/sql"
	"errors"

	"github.com/fazaimron27/tooldock/domain/category"
	"github.com/fazaimron27/tooldock/ports"
)

// CategoryStore implements ports.CategoryStore using SQLite.
type CategoryStore struct {
	db *DB
}

// NewCategoryStore creates a new category store.
func NewCategoryStore(db *DB) *CategoryStore {
	return &CategoryStore{db: db}
}

const categoryColumns = `slug, module, label, parent_slug, position`

// Get retrieves a single category by slug.
func (s *CategoryStore) Get(ctx context.Context, slug string) (category.Category, error) {
	var c category.Category
	err := s.db.conn(ctx).QueryRowContext(ctx,
		`SELECT `+categoryColumns+` FROM module_categories WHERE slug = ?`, slug,
	).Scan(&c.Slug, &c.Module, &c.Label, &c.ParentSlug, &c.Position)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return category.Category{}, ports.ErrNotFound
		}
		return category.Category{}, err
	}
	return c, nil
}

// All returns every category row.
func (s *CategoryStore) All(ctx context.Context) ([]category.Category, error) {
	return s.list(ctx, `SELECT `+categoryColumns+` FROM module_categories ORDER BY position, slug`)
}

// ListByModule returns the module's categories.
func (s *CategoryStore) ListByModule(ctx context.Context, moduleName string) ([]category.Category, error) {
	return s.list(ctx, `SELECT `+categoryColumns+` FROM module_categories WHERE module = ? ORDER BY position, slug`, moduleName)
}

// ListChildren returns categories whose parent matches parentSlug.
func (s *CategoryStore) ListChildren(ctx context.Context, parentSlug string) ([]category.Category, error) {
	return s.list(ctx, `SELECT `+categoryColumns+` FROM module_categories WHERE parent_slug = ? ORDER BY position, slug`, parentSlug)
}

// Create inserts a new category row.
func (s *CategoryStore) Create(ctx context.Context, c category.Category) error {
	_, err := s.db.conn(ctx).ExecContext(ctx,
		`INSERT INTO module_categories (slug, module, label, parent_slug, position)
		VALUES (?, ?, ?, ?, ?)`,
		c.Slug, c.Module, c.Label, c.ParentSlug, c.Position,
	)
	return err
}

// UpdateMetadata updates the mutable fields on an existing row.
func (s *CategoryStore) UpdateMetadata(ctx context.Context, c category.Category) error {
	res, err := s.db.conn(ctx).ExecContext(ctx,
		`UPDATE module_categories SET label = ?, parent_slug = ?, position = ? WHERE slug = ?`,
		c.Label, c.ParentSlug, c.Position, c.Slug,
	)
	if err != nil {
		return err
	}
	return requireRow(res)
}

// DeleteByModule removes the module's rows.
func (s *CategoryStore) DeleteByModule(ctx context.Context, moduleName string) (int, error) {
	res, err := s.db.conn(ctx).ExecContext(ctx,
		`DELETE FROM module_categories WHERE module = ?`, moduleName,
	)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	return int(n), err
}

func (s *CategoryStore) list(ctx context.Context, query string, args ...any) ([]category.Category, error) {
	rows, err := s.db.conn(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []category.Category
	for rows.Next() {
		var c category.Category
		if err := rows.Scan(&c.Slug, &c.Module, &c.Label, &c.ParentSlug, &c.Position); err != nil {
			return nil, err
		}
		result = append(result, c)
	}
	return result, rows.Err()
}

// Ensure interface compliance.
var _ ports.CategoryStore = (*CategoryStore)(nil)
