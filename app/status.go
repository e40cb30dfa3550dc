package app

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/fazaimron27/tooldock/domain/module"
	"github.com/fazaimron27/tooldock/ports"
	"github.com/rs/zerolog"
)

// StatusService provides access to module lifecycle status with a lazily
// loaded in-memory map. All mutations write through to the store and
// invalidate the map, so the next read reloads.
type StatusService struct {
	store  ports.StatusStore
	logger zerolog.Logger

	mu     sync.RWMutex
	cache  map[string]module.Status // keyed by lowercased name
	loaded bool
}

// NewStatusService creates a new status service.
func NewStatusService(store ports.StatusStore, logger zerolog.Logger) *StatusService {
	return &StatusService{
		store:  store,
		logger: logger,
	}
}

// Get returns a module's status, loading the cache if needed.
func (s *StatusService) Get(ctx context.Context, name string) (module.Status, error) {
	if err := s.ensureLoaded(ctx); err != nil {
		return module.Status{}, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	st, ok := s.cache[strings.ToLower(name)]
	if !ok {
		return module.Status{}, ports.ErrNotFound
	}
	return st, nil
}

// All returns every known status.
func (s *StatusService) All(ctx context.Context) ([]module.Status, error) {
	if err := s.ensureLoaded(ctx); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	result := make([]module.Status, 0, len(s.cache))
	for _, st := range s.cache {
		result = append(result, st)
	}
	return result, nil
}

// IsInstalled reports whether the named module is installed. Unknown
// modules report false.
func (s *StatusService) IsInstalled(ctx context.Context, name string) bool {
	st, err := s.Get(ctx, name)
	return err == nil && st.Installed
}

// IsEnabled reports whether the named module is installed and active.
func (s *StatusService) IsEnabled(ctx context.Context, name string) bool {
	st, err := s.Get(ctx, name)
	return err == nil && st.Installed && st.Active
}

// Register inserts a status row for a newly discovered module.
func (s *StatusService) Register(ctx context.Context, st module.Status) error {
	if err := s.store.Register(ctx, st); err != nil {
		return err
	}
	s.Invalidate()
	return nil
}

// MarkInstalled flips the installed flag, stamping installed_at.
func (s *StatusService) MarkInstalled(ctx context.Context, name string, installed bool, at *time.Time) error {
	if err := s.store.MarkInstalled(ctx, name, installed, at); err != nil {
		return err
	}
	s.Invalidate()
	return nil
}

// SetActive flips the active flag.
func (s *StatusService) SetActive(ctx context.Context, name string, active bool) error {
	if err := s.store.SetActive(ctx, name, active); err != nil {
		return err
	}
	s.Invalidate()
	return nil
}

// UpdateVersion records a new descriptor version.
func (s *StatusService) UpdateVersion(ctx context.Context, name, version string) error {
	if err := s.store.UpdateVersion(ctx, name, version); err != nil {
		return err
	}
	s.Invalidate()
	return nil
}

// Delete removes a status row entirely (full module removal).
func (s *StatusService) Delete(ctx context.Context, name string) error {
	if err := s.store.Delete(ctx, name); err != nil {
		return err
	}
	s.Invalidate()
	return nil
}

// Invalidate drops the in-memory map; the next read reloads from the store.
// Call after any out-of-band database mutation.
func (s *StatusService) Invalidate() {
	s.mu.Lock()
	s.loaded = false
	s.cache = nil
	s.mu.Unlock()
}

func (s *StatusService) ensureLoaded(ctx context.Context) error {
	s.mu.RLock()
	loaded := s.loaded
	s.mu.RUnlock()
	if loaded {
		return nil
	}

	all, err := s.store.All(ctx)
	if err != nil {
		if errors.Is(err, ports.ErrStatusTableMissing) {
			// Early bootstrap: behave as if no modules are known.
			s.mu.Lock()
			s.cache = make(map[string]module.Status)
			s.loaded = true
			s.mu.Unlock()
			return nil
		}
		return err
	}

	s.mu.Lock()
	s.cache = make(map[string]module.Status, len(all))
	for _, st := range all {
		s.cache[strings.ToLower(st.Name)] = st
	}
	s.loaded = true
	s.mu.Unlock()

	s.logger.Debug().Int("count", len(all)).Msg("module statuses loaded")
	return nil
}
