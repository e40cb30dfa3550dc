package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/fazaimron27/tooldock/domain/setting"
	"github.com/fazaimron27/tooldock/ports"
)

// SettingStore implements ports.SettingStore using SQLite.
type SettingStore struct {
	db *DB
}

// NewSettingStore creates a new setting store.
func NewSettingStore(db *DB) *SettingStore {
	return &SettingStore{db: db}
}

const settingColumns = `key, module, value, default_value, label, type, grouping, updated_at`

// Get retrieves a single setting by key.
func (s *SettingStore) Get(ctx context.Context, key string) (setting.Setting, error) {
	row := s.db.conn(ctx).QueryRowContext(ctx,
		`SELECT `+settingColumns+` FROM module_settings WHERE key = ?`, key,
	)
	st, err := scanSetting(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return setting.Setting{}, ports.ErrNotFound
		}
		return setting.Setting{}, err
	}
	return st, nil
}

// ListByModule returns the module's settings.
func (s *SettingStore) ListByModule(ctx context.Context, moduleName string) ([]setting.Setting, error) {
	return s.list(ctx, `SELECT `+settingColumns+` FROM module_settings WHERE module = ? ORDER BY key`, moduleName)
}

// All returns every setting row.
func (s *SettingStore) All(ctx context.Context) ([]setting.Setting, error) {
	return s.list(ctx, `SELECT `+settingColumns+` FROM module_settings ORDER BY key`)
}

// Create inserts a new setting row with its declared default value.
func (s *SettingStore) Create(ctx context.Context, st setting.Setting) error {
	value := st.Value
	if value == "" {
		value = st.Default
	}
	_, err := s.db.conn(ctx).ExecContext(ctx,
		`INSERT INTO module_settings (key, module, value, default_value, label, type, grouping, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP)`,
		st.Key, st.Module, value, st.Default, st.Label, st.Type, st.Group,
	)
	return err
}

// UpdateMetadata updates label/type/group/default while preserving the stored
// value, unless the declared type changed, in which case the value resets to
// the new default.
func (s *SettingStore) UpdateMetadata(ctx context.Context, st setting.Setting) error {
	res, err := s.db.conn(ctx).ExecContext(ctx,
		`UPDATE module_settings SET
			label = ?,
			grouping = ?,
			default_value = ?,
			value = CASE WHEN type != ? THEN ? ELSE value END,
			type = ?
		WHERE key = ?`,
		st.Label, st.Group, st.Default, st.Type, st.Default, st.Type, st.Key,
	)
	if err != nil {
		return err
	}
	return requireRow(res)
}

// SetValue updates only the user-facing value.
func (s *SettingStore) SetValue(ctx context.Context, key, value string) error {
	res, err := s.db.conn(ctx).ExecContext(ctx,
		`UPDATE module_settings SET value = ?, updated_at = CURRENT_TIMESTAMP WHERE key = ?`,
		value, key,
	)
	if err != nil {
		return err
	}
	return requireRow(res)
}

// DeleteByModule removes the module's rows.
func (s *SettingStore) DeleteByModule(ctx context.Context, moduleName string) (int, error) {
	res, err := s.db.conn(ctx).ExecContext(ctx,
		`DELETE FROM module_settings WHERE module = ?`, moduleName,
	)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	return int(n), err
}

func (s *SettingStore) list(ctx context.Context, query string, args ...any) ([]setting.Setting, error) {
	rows, err := s.db.conn(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []setting.Setting
	for rows.Next() {
		st, err := scanSetting(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, st)
	}
	return result, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSetting(row rowScanner) (setting.Setting, error) {
	var st setting.Setting
	var updatedAt string
	err := row.Scan(&st.Key, &st.Module, &st.Value, &st.Default, &st.Label, &st.Type, &st.Group, &updatedAt)
	if err != nil {
		return setting.Setting{}, err
	}
	st.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
	return st, nil
}

// Ensure interface compliance.
var _ ports.SettingStore = (*SettingStore)(nil)
