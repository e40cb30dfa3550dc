package sqlite

import (
	"context"
	"database/sql"
	"errors"

	"github.com/fazaimron27/tooldock/domain/menu"
	"github.com/fazaimron27/tooldock/ports"
)

// MenuStore implements ports.MenuStore using SQLite.
type MenuStore struct {
	db *DB
}

// NewMenuStore creates a new menu store.
func NewMenuStore(db *DB) *MenuStore {
	return &MenuStore{db: db}
}

const menuColumns = `key, module, label, route, icon, parent_key, position`

// Get retrieves a single menu item by key.
func (s *MenuStore) Get(ctx context.Context, key string) (menu.Item, error) {
	var it menu.Item
	err := s.db.conn(ctx).QueryRowContext(ctx,
		`SELECT `+menuColumns+` FROM module_menus WHERE key = ?`, key,
	).Scan(&it.Key, &it.Module, &it.Label, &it.Route, &it.Icon, &it.ParentKey, &it.Position)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return menu.Item{}, ports.ErrNotFound
		}
		return menu.Item{}, err
	}
	return it, nil
}

// All returns every menu item row.
func (s *MenuStore) All(ctx context.Context) ([]menu.Item, error) {
	return s.list(ctx, `SELECT `+menuColumns+` FROM module_menus ORDER BY position, key`)
}

// ListByModule returns the module's menu items.
func (s *MenuStore) ListByModule(ctx context.Context, moduleName string) ([]menu.Item, error) {
	return s.list(ctx, `SELECT `+menuColumns+` FROM module_menus WHERE module = ? ORDER BY position, key`, moduleName)
}

// ListChildren returns items whose parent matches parentKey, across modules.
func (s *MenuStore) ListChildren(ctx context.Context, parentKey string) ([]menu.Item, error) {
	return s.list(ctx, `SELECT `+menuColumns+` FROM module_menus WHERE parent_key = ? ORDER BY position, key`, parentKey)
}

// Create inserts a new menu item row.
func (s *MenuStore) Create(ctx context.Context, it menu.Item) error {
	_, err := s.db.conn(ctx).ExecContext(ctx,
		`INSERT INTO module_menus (key, module, label, route, icon, parent_key, position)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		it.Key, it.Module, it.Label, it.Route, it.Icon, it.ParentKey, it.Position,
	)
	return err
}

// UpdateMetadata updates the mutable fields on an existing row.
func (s *MenuStore) UpdateMetadata(ctx context.Context, it menu.Item) error {
	res, err := s.db.conn(ctx).ExecContext(ctx,
		`UPDATE module_menus SET label = ?, route = ?, icon = ?, parent_key = ?, position = ? WHERE key = ?`,
		it.Label, it.Route, it.Icon, it.ParentKey, it.Position, it.Key,
	)
	if err != nil {
		return err
	}
	return requireRow(res)
}

// DeleteByModule removes the module's rows.
func (s *MenuStore) DeleteByModule(ctx context.Context, moduleName string) (int, error) {
	res, err := s.db.conn(ctx).ExecContext(ctx,
		`DELETE FROM module_menus WHERE module = ?`, moduleName,
	)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	return int(n), err
}

func (s *MenuStore) list(ctx context.Context, query string, args ...any) ([]menu.Item, error) {
	rows, err := s.db.conn(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []menu.Item
	for rows.Next() {
		var it menu.Item
		if err := rows.Scan(&it.Key, &it.Module, &it.Label, &it.Route, &it.Icon, &it.ParentKey, &it.Position); err != nil {
			return nil, err
		}
		result = append(result, it)
	}
	return result, rows.Err()
}

// Ensure interface compliance.
var _ ports.MenuStore = (*MenuStore)(nil)
