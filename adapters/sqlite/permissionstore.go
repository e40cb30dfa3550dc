package sqlite

import (
	"context"
	"database/sql"
	"errors"

	"github.com/fazaimron27/tooldock/domain/permission"
	"github.com/fazaimron27/tooldock/ports"
)

// PermissionStore implements ports.PermissionStore using SQLite.
type PermissionStore struct {
	db *DB
}

// NewPermissionStore creates a new permission store.
func NewPermissionStore(db *DB) *PermissionStore {
	return &PermissionStore{db: db}
}

const permissionColumns = `name, module, label, grouping, parent`

// Get retrieves a single permission by name.
func (s *PermissionStore) Get(ctx context.Context, name string) (permission.Permission, error) {
	var p permission.Permission
	err := s.db.conn(ctx).QueryRowContext(ctx,
		`SELECT `+permissionColumns+` FROM module_permissions WHERE name = ?`, name,
	).Scan(&p.Name, &p.Module, &p.Label, &p.Group, &p.Parent)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return permission.Permission{}, ports.ErrNotFound
		}
		return permission.Permission{}, err
	}
	return p, nil
}

// All returns every permission row.
func (s *PermissionStore) All(ctx context.Context) ([]permission.Permission, error) {
	return s.list(ctx, `SELECT `+permissionColumns+` FROM module_permissions ORDER BY name`)
}

// ListByModule returns the module's permissions.
func (s *PermissionStore) ListByModule(ctx context.Context, moduleName string) ([]permission.Permission, error) {
	return s.list(ctx, `SELECT `+permissionColumns+` FROM module_permissions WHERE module = ? ORDER BY name`, moduleName)
}

// ListChildren returns permissions whose parent matches name, across modules.
func (s *PermissionStore) ListChildren(ctx context.Context, name string) ([]permission.Permission, error) {
	return s.list(ctx, `SELECT `+permissionColumns+` FROM module_permissions WHERE parent = ? ORDER BY name`, name)
}

// Create inserts a new permission row.
func (s *PermissionStore) Create(ctx context.Context, p permission.Permission) error {
	_, err := s.db.conn(ctx).ExecContext(ctx,
		`INSERT INTO module_permissions (name, module, label, grouping, parent)
		VALUES (?, ?, ?, ?, ?)`,
		p.Name, p.Module, p.Label, p.Group, p.Parent,
	)
	return err
}

// UpdateMetadata updates label, group and parent on an existing row.
func (s *PermissionStore) UpdateMetadata(ctx context.Context, p permission.Permission) error {
	res, err := s.db.conn(ctx).ExecContext(ctx,
		`UPDATE module_permissions SET label = ?, grouping = ?, parent = ? WHERE name = ?`,
		p.Label, p.Group, p.Parent, p.Name,
	)
	if err != nil {
		return err
	}
	return requireRow(res)
}

// DeleteByModule removes the module's rows.
func (s *PermissionStore) DeleteByModule(ctx context.Context, moduleName string) (int, error) {
	res, err := s.db.conn(ctx).ExecContext(ctx,
		`DELETE FROM module_permissions WHERE module = ?`, moduleName,
	)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	return int(n), err
}

func (s *PermissionStore) list(ctx context.Context, query string, args ...any) ([]permission.Permission, error) {
	rows, err := s.db.conn(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []permission.Permission
	for rows.Next() {
		var p permission.Permission
		if err := rows.Scan(&p.Name, &p.Module, &p.Label, &p.Group, &p.Parent); err != nil {
			return nil, err
		}
		result = append(result, p)
	}
	return result, rows.Err()
}

// Ensure interface compliance.
var _ ports.PermissionStore = (*PermissionStore)(nil)
