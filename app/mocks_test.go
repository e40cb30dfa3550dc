package app

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/fazaimron27/tooldock/domain/category"
	"github.com/fazaimron27/tooldock/domain/menu"
	"github.com/fazaimron27/tooldock/domain/module"
	"github.com/fazaimron27/tooldock/domain/permission"
	"github.com/fazaimron27/tooldock/domain/role"
	"github.com/fazaimron27/tooldock/domain/setting"
	"github.com/fazaimron27/tooldock/ports"
)

// ---------------------------------------------------------------------------
// Status store fake
// ---------------------------------------------------------------------------

type fakeStatusStore struct {
	mu           sync.Mutex
	rows         map[string]module.Status // lowercased name
	tableMissing bool
	failWith     error // every read fails with this when set
}

func newFakeStatusStore() *fakeStatusStore {
	return &fakeStatusStore{rows: make(map[string]module.Status)}
}

func (f *fakeStatusStore) Get(ctx context.Context, name string) (module.Status, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.tableMissing {
		return module.Status{}, ports.ErrStatusTableMissing
	}
	if f.failWith != nil {
		return module.Status{}, f.failWith
	}
	st, ok := f.rows[strings.ToLower(name)]
	if !ok {
		return module.Status{}, ports.ErrNotFound
	}
	return st, nil
}

func (f *fakeStatusStore) All(ctx context.Context) ([]module.Status, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.tableMissing {
		return nil, ports.ErrStatusTableMissing
	}
	if f.failWith != nil {
		return nil, f.failWith
	}
	result := make([]module.Status, 0, len(f.rows))
	for _, st := range f.rows {
		result = append(result, st)
	}
	return result, nil
}

func (f *fakeStatusStore) Register(ctx context.Context, s module.Status) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.tableMissing {
		return ports.ErrStatusTableMissing
	}
	key := strings.ToLower(s.Name)
	if _, ok := f.rows[key]; !ok {
		f.rows[key] = s
	}
	return nil
}

func (f *fakeStatusStore) MarkInstalled(ctx context.Context, name string, installed bool, at *time.Time) error {
	return f.update(name, func(st *module.Status) {
		st.Installed = installed
		st.InstalledAt = at
		if !installed {
			st.Active = false
		}
	})
}

func (f *fakeStatusStore) SetActive(ctx context.Context, name string, active bool) error {
	return f.update(name, func(st *module.Status) { st.Active = active })
}

func (f *fakeStatusStore) UpdateVersion(ctx context.Context, name, version string) error {
	return f.update(name, func(st *module.Status) { st.Version = version })
}

func (f *fakeStatusStore) Delete(ctx context.Context, name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := strings.ToLower(name)
	if _, ok := f.rows[key]; !ok {
		return ports.ErrNotFound
	}
	delete(f.rows, key)
	return nil
}

func (f *fakeStatusStore) update(name string, fn func(*module.Status)) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.tableMissing {
		return ports.ErrStatusTableMissing
	}
	key := strings.ToLower(name)
	st, ok := f.rows[key]
	if !ok {
		return ports.ErrNotFound
	}
	fn(&st)
	f.rows[key] = st
	return nil
}

// ---------------------------------------------------------------------------
// Migrator fake
// ---------------------------------------------------------------------------

type fakeMigrator struct {
	mu sync.Mutex

	applied     map[string]int // per module: count Migrate should report
	pathApplied map[string]int // per module: count MigratePath should report

	migrateErr  error
	seedErr     map[string]error
	rollbackErr error

	migrated   []string
	pathCalls  []string
	seeded     []string
	rolledBack []string
}

func newFakeMigrator() *fakeMigrator {
	return &fakeMigrator{
		applied:     make(map[string]int),
		pathApplied: make(map[string]int),
		seedErr:     make(map[string]error),
	}
}

func (f *fakeMigrator) Migrate(ctx context.Context, desc module.Descriptor) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.migrateErr != nil {
		return 0, f.migrateErr
	}
	f.migrated = append(f.migrated, desc.Name)
	return f.applied[desc.Name], nil
}

func (f *fakeMigrator) MigratePath(ctx context.Context, desc module.Descriptor, dir string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pathCalls = append(f.pathCalls, dir)
	return f.pathApplied[desc.Name], nil
}

func (f *fakeMigrator) Rollback(ctx context.Context, desc module.Descriptor) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.rollbackErr != nil {
		return f.rollbackErr
	}
	f.rolledBack = append(f.rolledBack, desc.Name)
	return nil
}

func (f *fakeMigrator) Seed(ctx context.Context, desc module.Descriptor) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.seedErr[desc.Name]; err != nil {
		return err
	}
	f.seeded = append(f.seeded, desc.Name)
	return nil
}

// ---------------------------------------------------------------------------
// Source scanner fake
// ---------------------------------------------------------------------------

type fakeScanner struct {
	mu    sync.Mutex
	refs  map[string][]string // by module name (selfName)
	scans int
}

func newFakeScanner() *fakeScanner {
	return &fakeScanner{refs: make(map[string][]string)}
}

func (f *fakeScanner) Scan(ctx context.Context, root, selfName string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.scans++
	return f.refs[selfName], nil
}

func (f *fakeScanner) Fingerprint(root string) (string, error) {
	return "fp-" + root, nil
}

func (f *fakeScanner) scanCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.scans
}

// ---------------------------------------------------------------------------
// Route manifest writer fake
// ---------------------------------------------------------------------------

type fakeRouteWriter struct {
	mu     sync.Mutex
	writes int
	last   map[string]string
}

func (f *fakeRouteWriter) Write(ctx context.Context, routes map[string]string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.writes++
	f.last = routes
	return nil
}

// ---------------------------------------------------------------------------
// Manifest loader fake
// ---------------------------------------------------------------------------

type fakeLoader struct {
	descriptors []module.Descriptor
	err         error
}

func (f *fakeLoader) Load(dir string) (module.Descriptor, error) {
	for _, d := range f.descriptors {
		if d.Path == dir {
			return d, nil
		}
	}
	return module.Descriptor{}, fmt.Errorf("no manifest in %s", dir)
}

func (f *fakeLoader) LoadAll(root string) ([]module.Descriptor, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.descriptors, nil
}

// ---------------------------------------------------------------------------
// Transaction runner fake (no transactional behavior)
// ---------------------------------------------------------------------------

type passTx struct{}

func (passTx) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

// ---------------------------------------------------------------------------
// In-memory registry stores
// ---------------------------------------------------------------------------

type memSettingStore struct {
	mu   sync.Mutex
	rows map[string]setting.Setting
}

func newMemSettingStore() *memSettingStore {
	return &memSettingStore{rows: make(map[string]setting.Setting)}
}

func (m *memSettingStore) Get(ctx context.Context, key string) (setting.Setting, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.rows[key]
	if !ok {
		return setting.Setting{}, ports.ErrNotFound
	}
	return s, nil
}

func (m *memSettingStore) ListByModule(ctx context.Context, moduleName string) ([]setting.Setting, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []setting.Setting
	for _, s := range m.rows {
		if s.Module == moduleName {
			result = append(result, s)
		}
	}
	return result, nil
}

func (m *memSettingStore) All(ctx context.Context) ([]setting.Setting, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	result := make([]setting.Setting, 0, len(m.rows))
	for _, s := range m.rows {
		result = append(result, s)
	}
	return result, nil
}

func (m *memSettingStore) Create(ctx context.Context, s setting.Setting) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s.Value == "" {
		s.Value = s.Default
	}
	m.rows[s.Key] = s
	return nil
}

func (m *memSettingStore) UpdateMetadata(ctx context.Context, s setting.Setting) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored, ok := m.rows[s.Key]
	if !ok {
		return ports.ErrNotFound
	}
	value := stored.Value
	if stored.Type != s.Type {
		value = s.Default
	}
	s.Value = value
	m.rows[s.Key] = s
	return nil
}

func (m *memSettingStore) SetValue(ctx context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.rows[key]
	if !ok {
		return ports.ErrNotFound
	}
	s.Value = value
	m.rows[key] = s
	return nil
}

func (m *memSettingStore) DeleteByModule(ctx context.Context, moduleName string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for key, s := range m.rows {
		if s.Module == moduleName {
			delete(m.rows, key)
			n++
		}
	}
	return n, nil
}

type memPermissionStore struct {
	mu   sync.Mutex
	rows map[string]permission.Permission
}

func newMemPermissionStore() *memPermissionStore {
	return &memPermissionStore{rows: make(map[string]permission.Permission)}
}

func (m *memPermissionStore) Get(ctx context.Context, name string) (permission.Permission, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.rows[name]
	if !ok {
		return permission.Permission{}, ports.ErrNotFound
	}
	return p, nil
}

func (m *memPermissionStore) All(ctx context.Context) ([]permission.Permission, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	result := make([]permission.Permission, 0, len(m.rows))
	for _, p := range m.rows {
		result = append(result, p)
	}
	return result, nil
}

func (m *memPermissionStore) ListByModule(ctx context.Context, moduleName string) ([]permission.Permission, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []permission.Permission
	for _, p := range m.rows {
		if p.Module == moduleName {
			result = append(result, p)
		}
	}
	return result, nil
}

func (m *memPermissionStore) Create(ctx context.Context, p permission.Permission) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rows[p.Name] = p
	return nil
}

func (m *memPermissionStore) UpdateMetadata(ctx context.Context, p permission.Permission) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.rows[p.Name]; !ok {
		return ports.ErrNotFound
	}
	m.rows[p.Name] = p
	return nil
}

func (m *memPermissionStore) DeleteByModule(ctx context.Context, moduleName string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for name, p := range m.rows {
		if p.Module == moduleName {
			delete(m.rows, name)
			n++
		}
	}
	return n, nil
}

func (m *memPermissionStore) ListChildren(ctx context.Context, name string) ([]permission.Permission, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []permission.Permission
	for _, p := range m.rows {
		if p.Parent == name {
			result = append(result, p)
		}
	}
	return result, nil
}

type memMenuStore struct {
	mu   sync.Mutex
	rows map[string]menu.Item
}

func newMemMenuStore() *memMenuStore {
	return &memMenuStore{rows: make(map[string]menu.Item)}
}

func (m *memMenuStore) Get(ctx context.Context, key string) (menu.Item, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	it, ok := m.rows[key]
	if !ok {
		return menu.Item{}, ports.ErrNotFound
	}
	return it, nil
}

func (m *memMenuStore) All(ctx context.Context) ([]menu.Item, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	result := make([]menu.Item, 0, len(m.rows))
	for _, it := range m.rows {
		result = append(result, it)
	}
	return result, nil
}

func (m *memMenuStore) ListByModule(ctx context.Context, moduleName string) ([]menu.Item, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []menu.Item
	for _, it := range m.rows {
		if it.Module == moduleName {
			result = append(result, it)
		}
	}
	return result, nil
}

func (m *memMenuStore) Create(ctx context.Context, it menu.Item) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rows[it.Key] = it
	return nil
}

func (m *memMenuStore) UpdateMetadata(ctx context.Context, it menu.Item) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.rows[it.Key]; !ok {
		return ports.ErrNotFound
	}
	m.rows[it.Key] = it
	return nil
}

func (m *memMenuStore) DeleteByModule(ctx context.Context, moduleName string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for key, it := range m.rows {
		if it.Module == moduleName {
			delete(m.rows, key)
			n++
		}
	}
	return n, nil
}

func (m *memMenuStore) ListChildren(ctx context.Context, parentKey string) ([]menu.Item, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []menu.Item
	for _, it := range m.rows {
		if it.ParentKey == parentKey {
			result = append(result, it)
		}
	}
	return result, nil
}

type memCategoryStore struct {
	mu   sync.Mutex
	rows map[string]category.Category
}

func newMemCategoryStore() *memCategoryStore {
	return &memCategoryStore{rows: make(map[string]category.Category)}
}

func (m *memCategoryStore) Get(ctx context.Context, slug string) (category.Category, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.rows[slug]
	if !ok {
		return category.Category{}, ports.ErrNotFound
	}
	return c, nil
}

func (m *memCategoryStore) All(ctx context.Context) ([]category.Category, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	result := make([]category.Category, 0, len(m.rows))
	for _, c := range m.rows {
		result = append(result, c)
	}
	return result, nil
}

func (m *memCategoryStore) ListByModule(ctx context.Context, moduleName string) ([]category.Category, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []category.Category
	for _, c := range m.rows {
		if c.Module == moduleName {
			result = append(result, c)
		}
	}
	return result, nil
}

func (m *memCategoryStore) Create(ctx context.Context, c category.Category) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rows[c.Slug] = c
	return nil
}

func (m *memCategoryStore) UpdateMetadata(ctx context.Context, c category.Category) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.rows[c.Slug]; !ok {
		return ports.ErrNotFound
	}
	m.rows[c.Slug] = c
	return nil
}

func (m *memCategoryStore) DeleteByModule(ctx context.Context, moduleName string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for slug, c := range m.rows {
		if c.Module == moduleName {
			delete(m.rows, slug)
			n++
		}
	}
	return n, nil
}

func (m *memCategoryStore) ListChildren(ctx context.Context, parentSlug string) ([]category.Category, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []category.Category
	for _, c := range m.rows {
		if c.ParentSlug == parentSlug {
			result = append(result, c)
		}
	}
	return result, nil
}

type memRoleStore struct {
	mu   sync.Mutex
	rows map[string]role.Role
}

func newMemRoleStore() *memRoleStore {
	return &memRoleStore{rows: make(map[string]role.Role)}
}

func (m *memRoleStore) Get(ctx context.Context, name string) (role.Role, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.rows[name]
	if !ok {
		return role.Role{}, ports.ErrNotFound
	}
	return r, nil
}

func (m *memRoleStore) All(ctx context.Context) ([]role.Role, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	result := make([]role.Role, 0, len(m.rows))
	for _, r := range m.rows {
		result = append(result, r)
	}
	return result, nil
}

func (m *memRoleStore) ListByModule(ctx context.Context, moduleName string) ([]role.Role, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []role.Role
	for _, r := range m.rows {
		if r.Module == moduleName {
			result = append(result, r)
		}
	}
	return result, nil
}

func (m *memRoleStore) Create(ctx context.Context, r role.Role) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rows[r.Name] = r
	return nil
}

func (m *memRoleStore) UpdateMetadata(ctx context.Context, r role.Role) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.rows[r.Name]; !ok {
		return ports.ErrNotFound
	}
	m.rows[r.Name] = r
	return nil
}

func (m *memRoleStore) DeleteByModule(ctx context.Context, moduleName string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for name, r := range m.rows {
		if r.Module == moduleName {
			delete(m.rows, name)
			n++
		}
	}
	return n, nil
}

// Interface compliance for the fakes.
var (
	_ ports.StatusStore         = (*fakeStatusStore)(nil)
	_ ports.Migrator            = (*fakeMigrator)(nil)
	_ ports.SourceScanner       = (*fakeScanner)(nil)
	_ ports.ManifestLoader      = (*fakeLoader)(nil)
	_ ports.TxRunner            = passTx{}
	_ ports.SettingStore        = (*memSettingStore)(nil)
	_ ports.PermissionStore     = (*memPermissionStore)(nil)
	_ ports.MenuStore           = (*memMenuStore)(nil)
	_ ports.CategoryStore       = (*memCategoryStore)(nil)
	_ ports.RoleStore           = (*memRoleStore)(nil)
	_ ports.RouteManifestWriter = (*fakeRouteWriter)(nil)
)
