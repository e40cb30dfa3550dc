package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/fazaimron27/tooldock/domain/module"
	"github.com/fazaimron27/tooldock/ports"
)

// StatusStore implements ports.StatusStore using SQLite.
type StatusStore struct {
	db *DB
}

// NewStatusStore creates a new module status store.
func NewStatusStore(db *DB) *StatusStore {
	return &StatusStore{db: db}
}

// Get retrieves a single module's status.
func (s *StatusStore) Get(ctx context.Context, name string) (module.Status, error) {
	var st module.Status
	var installedAt sql.NullString

	err := s.db.conn(ctx).QueryRowContext(ctx,
		`SELECT name, is_installed, is_active, version, installed_at
		FROM modules_statuses WHERE name = ?`,
		name,
	).Scan(&st.Name, &st.Installed, &st.Active, &st.Version, &installedAt)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return module.Status{}, ports.ErrNotFound
		}
		if isMissingTable(err) {
			return module.Status{}, ports.ErrStatusTableMissing
		}
		return module.Status{}, err
	}

	if installedAt.Valid {
		if t, err := time.Parse(time.RFC3339, installedAt.String); err == nil {
			st.InstalledAt = &t
		}
	}
	return st, nil
}

// All returns every status row, ordered by name.
func (s *StatusStore) All(ctx context.Context) ([]module.Status, error) {
	rows, err := s.db.conn(ctx).QueryContext(ctx,
		`SELECT name, is_installed, is_active, version, installed_at
		FROM modules_statuses ORDER BY name`,
	)
	if err != nil {
		if isMissingTable(err) {
			return nil, ports.ErrStatusTableMissing
		}
		return nil, err
	}
	defer rows.Close()

	var result []module.Status
	for rows.Next() {
		var st module.Status
		var installedAt sql.NullString
		if err := rows.Scan(&st.Name, &st.Installed, &st.Active, &st.Version, &installedAt); err != nil {
			return nil, err
		}
		if installedAt.Valid {
			if t, err := time.Parse(time.RFC3339, installedAt.String); err == nil {
				st.InstalledAt = &t
			}
		}
		result = append(result, st)
	}
	return result, rows.Err()
}

// Register inserts a row for a newly discovered module if absent.
func (s *StatusStore) Register(ctx context.Context, st module.Status) error {
	var installedAt any
	if st.InstalledAt != nil {
		installedAt = st.InstalledAt.UTC().Format(time.RFC3339)
	}

	_, err := s.db.conn(ctx).ExecContext(ctx,
		`INSERT INTO modules_statuses (name, is_installed, is_active, version, installed_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(name) DO NOTHING`,
		st.Name, st.Installed, st.Active, st.Version, installedAt,
	)
	return err
}

// MarkInstalled flips the installed flag and stamps installed_at.
func (s *StatusStore) MarkInstalled(ctx context.Context, name string, installed bool, at *time.Time) error {
	var installedAt any
	if at != nil {
		installedAt = at.UTC().Format(time.RFC3339)
	}

	res, err := s.db.conn(ctx).ExecContext(ctx,
		`UPDATE modules_statuses SET is_installed = ?, installed_at = ? WHERE name = ?`,
		installed, installedAt, name,
	)
	if err != nil {
		return err
	}
	return requireRow(res)
}

// SetActive flips the active flag.
func (s *StatusStore) SetActive(ctx context.Context, name string, active bool) error {
	res, err := s.db.conn(ctx).ExecContext(ctx,
		`UPDATE modules_statuses SET is_active = ? WHERE name = ?`,
		active, name,
	)
	if err != nil {
		return err
	}
	return requireRow(res)
}

// UpdateVersion records a new descriptor version.
func (s *StatusStore) UpdateVersion(ctx context.Context, name, version string) error {
	res, err := s.db.conn(ctx).ExecContext(ctx,
		`UPDATE modules_statuses SET version = ? WHERE name = ?`,
		version, name,
	)
	if err != nil {
		return err
	}
	return requireRow(res)
}

// Delete removes the row entirely.
func (s *StatusStore) Delete(ctx context.Context, name string) error {
	_, err := s.db.conn(ctx).ExecContext(ctx,
		`DELETE FROM modules_statuses WHERE name = ?`, name,
	)
	return err
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ports.ErrNotFound
	}
	return nil
}

// Ensure interface compliance.
var _ ports.StatusStore = (*StatusStore)(nil)
