package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/fazaimron27/tooldock/domain/role"
	"github.com/fazaimron27/tooldock/ports"
)

// RoleStore implements ports.RoleStore using SQLite. Permission grants are
// stored as a JSON array in the permissions column.
type RoleStore struct {
	db *DB
}

// NewRoleStore creates a new role store.
func NewRoleStore(db *DB) *RoleStore {
	return &RoleStore{db: db}
}

// Get retrieves a single role by name.
func (s *RoleStore) Get(ctx context.Context, name string) (role.Role, error) {
	var r role.Role
	var perms string
	err := s.db.conn(ctx).QueryRowContext(ctx,
		`SELECT name, module, label, permissions FROM module_roles WHERE name = ?`, name,
	).Scan(&r.Name, &r.Module, &r.Label, &perms)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return role.Role{}, ports.ErrNotFound
		}
		return role.Role{}, err
	}
	if err := json.Unmarshal([]byte(perms), &r.Permissions); err != nil {
		return role.Role{}, fmt.Errorf("decode permissions for role %q: %w", r.Name, err)
	}
	return r, nil
}

// All returns every role row.
func (s *RoleStore) All(ctx context.Context) ([]role.Role, error) {
	return s.list(ctx, `SELECT name, module, label, permissions FROM module_roles ORDER BY name`)
}

// ListByModule returns the module's roles.
func (s *RoleStore) ListByModule(ctx context.Context, moduleName string) ([]role.Role, error) {
	return s.list(ctx, `SELECT name, module, label, permissions FROM module_roles WHERE module = ? ORDER BY name`, moduleName)
}

// Create inserts a new role row.
func (s *RoleStore) Create(ctx context.Context, r role.Role) error {
	perms, err := marshalPermissions(r.Permissions)
	if err != nil {
		return err
	}
	_, err = s.db.conn(ctx).ExecContext(ctx,
		`INSERT INTO module_roles (name, module, label, permissions) VALUES (?, ?, ?, ?)`,
		r.Name, r.Module, r.Label, perms,
	)
	return err
}

// UpdateMetadata updates label and permission grants on an existing row.
func (s *RoleStore) UpdateMetadata(ctx context.Context, r role.Role) error {
	perms, err := marshalPermissions(r.Permissions)
	if err != nil {
		return err
	}
	res, err := s.db.conn(ctx).ExecContext(ctx,
		`UPDATE module_roles SET label = ?, permissions = ? WHERE name = ?`,
		r.Label, perms, r.Name,
	)
	if err != nil {
		return err
	}
	return requireRow(res)
}

// DeleteByModule removes the module's rows.
func (s *RoleStore) DeleteByModule(ctx context.Context, moduleName string) (int, error) {
	res, err := s.db.conn(ctx).ExecContext(ctx,
		`DELETE FROM module_roles WHERE module = ?`, moduleName,
	)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	return int(n), err
}

func (s *RoleStore) list(ctx context.Context, query string, args ...any) ([]role.Role, error) {
	rows, err := s.db.conn(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []role.Role
	for rows.Next() {
		var r role.Role
		var perms string
		if err := rows.Scan(&r.Name, &r.Module, &r.Label, &perms); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(perms), &r.Permissions); err != nil {
			return nil, fmt.Errorf("decode permissions for role %q: %w", r.Name, err)
		}
		result = append(result, r)
	}
	return result, rows.Err()
}

func marshalPermissions(perms []string) (string, error) {
	if perms == nil {
		perms = []string{}
	}
	b, err := json.Marshal(perms)
	if err != nil {
		return "", fmt.Errorf("encode permissions: %w", err)
	}
	return string(b), nil
}

// Ensure interface compliance.
var _ ports.RoleStore = (*RoleStore)(nil)
