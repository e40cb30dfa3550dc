package app

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/fazaimron27/tooldock/ports"
	"github.com/rs/zerolog"
)

// activatorCacheTTL bounds how long the activator trusts its snapshot of
// the status table before re-reading.
const activatorCacheTTL = 5 * time.Second

// DatabaseActivator answers "is this module enabled" on top of the status
// store, with a short-lived in-memory cache. A missing status table (early
// bootstrap, before core migrations) is treated as "nothing enabled", not an
// error.
type DatabaseActivator struct {
	store  ports.StatusStore
	clock  ports.Clock
	logger zerolog.Logger

	mu       sync.Mutex
	enabled  map[string]bool // lowercased name -> active
	loadedAt time.Time
}

// NewDatabaseActivator creates a new activator.
func NewDatabaseActivator(store ports.StatusStore, clock ports.Clock, logger zerolog.Logger) *DatabaseActivator {
	return &DatabaseActivator{
		store:  store,
		clock:  clock,
		logger: logger,
	}
}

// Enabled reports whether the named module is active.
func (a *DatabaseActivator) Enabled(name string) bool {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.enabled == nil || a.clock.Now().Sub(a.loadedAt) > activatorCacheTTL {
		a.reloadLocked()
	}
	return a.enabled[strings.ToLower(name)]
}

// SetActive flips the active flag and refreshes the activator cache.
func (a *DatabaseActivator) SetActive(ctx context.Context, name string, active bool) error {
	if err := a.store.SetActive(ctx, name, active); err != nil {
		if errors.Is(err, ports.ErrStatusTableMissing) {
			return nil
		}
		return err
	}

	a.mu.Lock()
	if a.enabled != nil {
		a.enabled[strings.ToLower(name)] = active
	}
	a.mu.Unlock()
	return nil
}

// Reset drops the in-memory cache; the next Enabled call re-reads.
func (a *DatabaseActivator) Reset() {
	a.mu.Lock()
	a.enabled = nil
	a.mu.Unlock()
}

// reloadLocked rebuilds the cache from the store. Caller holds mu.
func (a *DatabaseActivator) reloadLocked() {
	a.enabled = make(map[string]bool)
	a.loadedAt = a.clock.Now()

	all, err := a.store.All(context.Background())
	if err != nil {
		if !errors.Is(err, ports.ErrStatusTableMissing) {
			a.logger.Warn().Err(err).Msg("activator status reload failed")
		}
		return
	}
	for _, st := range all {
		a.enabled[strings.ToLower(st.Name)] = st.Installed && st.Active
	}
}

// Ensure interface compliance.
var _ ports.Activator = (*DatabaseActivator)(nil)
