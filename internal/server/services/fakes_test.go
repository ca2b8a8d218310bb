package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/skillhub/internal/common"
	"github.com/dmitrijs2005/skillhub/internal/dbx"
	"github.com/dmitrijs2005/skillhub/internal/logging"
	"github.com/dmitrijs2005/skillhub/internal/server/cleanup"
	"github.com/dmitrijs2005/skillhub/internal/server/config"
	"github.com/dmitrijs2005/skillhub/internal/server/models"
	"github.com/dmitrijs2005/skillhub/internal/server/moderation"
	"github.com/dmitrijs2005/skillhub/internal/server/repositories/auditlogs"
	"github.com/dmitrijs2005/skillhub/internal/server/repositories/fingerprints"
	"github.com/dmitrijs2005/skillhub/internal/server/repositories/packages"
	"github.com/dmitrijs2005/skillhub/internal/server/repositories/projections"
	"github.com/dmitrijs2005/skillhub/internal/server/repositories/reservations"
	"github.com/dmitrijs2005/skillhub/internal/server/repositories/users"
	"github.com/dmitrijs2005/skillhub/internal/server/repositories/versions"
	"github.com/stretchr/testify/require"
)

type errBoom struct{}

func (errBoom) Error() string { return "boom" }

var baseTime = time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

// memDB is an in-memory registry shared by the fake repositories. Writes
// made inside a transaction that later fails are not undone; tests that
// check rollbacks look at the sql mock and at what was never written.
type memDB struct {
	seq          int
	users        map[string]*models.User
	packages     map[string]*models.Package
	versions     map[string]*models.Version
	fingerprints []*models.FingerprintEntry
	projections  map[string]*models.Projection
	reservations []*models.Reservation
	audit        []*models.AuditLog
	failOn       map[string]error
}

func newMemDB() *memDB {
	return &memDB{
		users:       map[string]*models.User{},
		packages:    map[string]*models.Package{},
		versions:    map[string]*models.Version{},
		projections: map[string]*models.Projection{},
		failOn:      map[string]error{},
	}
}

func (m *memDB) nextID(prefix string) string {
	m.seq++
	return fmt.Sprintf("%s-%03d", prefix, m.seq)
}

func (m *memDB) tick() time.Time {
	m.seq++
	return baseTime.Add(time.Duration(m.seq) * time.Second)
}

func (m *memDB) addUser(id string, role models.Role) *models.User {
	u := &models.User{ID: id, Handle: id, Role: role, CreatedAt: baseTime}
	m.users[id] = u
	return u
}

func (m *memDB) packageBySlug(slug string) *models.Package {
	for _, p := range m.packages {
		if p.Slug == slug {
			return clonePackage(p)
		}
	}
	return nil
}

// rows returns the projection rows of a package keyed by version id.
func (m *memDB) rows(packageID string) map[string]*models.Projection {
	out := map[string]*models.Projection{}
	for _, p := range m.projections {
		if p.PackageID == packageID {
			c := *p
			out[p.VersionID] = &c
		}
	}
	return out
}

func (m *memDB) auditActions() []string {
	var out []string
	for _, e := range m.audit {
		out = append(out, e.Action)
	}
	return out
}

func clonePackage(p *models.Package) *models.Package {
	c := *p
	if p.Tags != nil {
		c.Tags = models.Tags{}
		for k, v := range p.Tags {
			c.Tags[k] = v
		}
	}
	if p.LatestVersionID != nil {
		id := *p.LatestVersionID
		c.LatestVersionID = &id
	}
	if p.SoftDeletedAt != nil {
		at := *p.SoftDeletedAt
		c.SoftDeletedAt = &at
	}
	c.ModerationFlags = append(models.Flags(nil), p.ModerationFlags...)
	return &c
}

// --- users ---

type memUsers struct{ m *memDB }

func (r memUsers) Create(_ context.Context, u *models.User) (*models.User, error) {
	c := *u
	r.m.users[u.ID] = &c
	return u, nil
}

func (r memUsers) GetByID(_ context.Context, id string) (*models.User, error) {
	if err := r.m.failOn["users.get"]; err != nil {
		return nil, err
	}
	u, ok := r.m.users[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	c := *u
	return &c, nil
}

// --- packages ---

type memPackages struct{ m *memDB }

func (r memPackages) Create(_ context.Context, p *models.Package) (*models.Package, error) {
	if r.m.packageBySlug(p.Slug) != nil {
		return nil, common.ErrSlugTaken
	}
	p.ID = r.m.nextID("pkg")
	p.CreatedAt = r.m.tick()
	p.UpdatedAt = p.CreatedAt
	r.m.packages[p.ID] = clonePackage(p)
	return p, nil
}

func (r memPackages) GetBySlug(_ context.Context, slug string) (*models.Package, error) {
	if p := r.m.packageBySlug(slug); p != nil {
		return p, nil
	}
	return nil, common.ErrorNotFound
}

func (r memPackages) GetBySlugForUpdate(ctx context.Context, slug string) (*models.Package, error) {
	return r.GetBySlug(ctx, slug)
}

func (r memPackages) GetByIDForUpdate(_ context.Context, id string) (*models.Package, error) {
	p, ok := r.m.packages[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return clonePackage(p), nil
}

func (r memPackages) Update(_ context.Context, p *models.Package) error {
	if err := r.m.failOn["packages.update"]; err != nil {
		return err
	}
	if _, ok := r.m.packages[p.ID]; !ok {
		return common.ErrorNotFound
	}
	p.UpdatedAt = r.m.tick()
	r.m.packages[p.ID] = clonePackage(p)
	return nil
}

func (r memPackages) Delete(_ context.Context, id string) error {
	if _, ok := r.m.packages[id]; !ok {
		return common.ErrorNotFound
	}
	delete(r.m.packages, id)
	return nil
}

// --- versions ---

type memVersions struct{ m *memDB }

func (r memVersions) Create(_ context.Context, v *models.Version) (*models.Version, error) {
	for _, existing := range r.m.versions {
		if existing.PackageID == v.PackageID && existing.Version == v.Version {
			return nil, common.ErrVersionExists
		}
	}
	v.ID = r.m.nextID("ver")
	v.CreatedAt = r.m.tick()
	c := *v
	r.m.versions[v.ID] = &c
	return v, nil
}

func (r memVersions) GetByID(_ context.Context, id string) (*models.Version, error) {
	v, ok := r.m.versions[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	c := *v
	return &c, nil
}

func (r memVersions) GetByPackageAndVersion(_ context.Context, packageID, version string) (*models.Version, error) {
	for _, v := range r.m.versions {
		if v.PackageID == packageID && v.Version == version {
			c := *v
			return &c, nil
		}
	}
	return nil, common.ErrorNotFound
}

func (r memVersions) ListRecent(_ context.Context, packageID string, limit int) ([]*models.Version, error) {
	var out []*models.Version
	for _, v := range r.m.versions {
		if v.PackageID == packageID {
			c := *v
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r memVersions) DeleteByPackage(_ context.Context, packageID string) (int64, error) {
	var n int64
	for id, v := range r.m.versions {
		if v.PackageID == packageID {
			delete(r.m.versions, id)
			n++
		}
	}
	return n, nil
}

// --- fingerprints ---

type memFingerprints struct{ m *memDB }

func (r memFingerprints) Create(_ context.Context, e *models.FingerprintEntry) (*models.FingerprintEntry, error) {
	e.ID = r.m.nextID("fp")
	e.CreatedAt = r.m.tick()
	c := *e
	r.m.fingerprints = append(r.m.fingerprints, &c)
	return e, nil
}

func (r memFingerprints) FindByPackageAndFingerprint(_ context.Context, packageID, fp string, limit int) ([]*models.FingerprintEntry, error) {
	var out []*models.FingerprintEntry
	for i := len(r.m.fingerprints) - 1; i >= 0 && len(out) < limit; i-- {
		e := r.m.fingerprints[i]
		if e.PackageID == packageID && e.Fingerprint == fp {
			c := *e
			out = append(out, &c)
		}
	}
	return out, nil
}

func (r memFingerprints) DeleteByPackage(context.Context, string) (int64, error) { return 0, nil }

// --- projections ---

type memProjections struct{ m *memDB }

var errLatestConflict = errors.New("duplicate key value violates unique constraint \"search_projections_latest_idx\"")

func (r memProjections) latestConflict(p *models.Projection) bool {
	if !p.IsLatest {
		return false
	}
	for _, other := range r.m.projections {
		if other.PackageID == p.PackageID && other.ID != p.ID && other.IsLatest {
			return true
		}
	}
	return false
}

func (r memProjections) Create(_ context.Context, p *models.Projection) (*models.Projection, error) {
	for _, other := range r.m.projections {
		if other.VersionID == p.VersionID {
			return nil, errors.New("duplicate projection for version")
		}
	}
	if r.latestConflict(p) {
		return nil, errLatestConflict
	}
	p.ID = r.m.nextID("proj")
	p.UpdatedAt = r.m.tick()
	c := *p
	r.m.projections[p.ID] = &c
	return p, nil
}

func (r memProjections) ListByPackage(_ context.Context, packageID string) ([]*models.Projection, error) {
	var out []*models.Projection
	for _, p := range r.m.projections {
		if p.PackageID == packageID {
			c := *p
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r memProjections) Update(_ context.Context, p *models.Projection) error {
	if _, ok := r.m.projections[p.ID]; !ok {
		return common.ErrorNotFound
	}
	if r.latestConflict(p) {
		return errLatestConflict
	}
	p.UpdatedAt = r.m.tick()
	c := *p
	r.m.projections[p.ID] = &c
	return nil
}

func (r memProjections) DeleteByPackage(context.Context, string) (int64, error) { return 0, nil }

// --- reservations ---

type memReservations struct{ m *memDB }

func (r memReservations) Active(_ context.Context, slug string, now time.Time) (*models.Reservation, error) {
	for _, res := range r.m.reservations {
		if res.Slug == slug && res.ReleasedAt == nil && res.ExpiresAt.After(now) {
			c := *res
			return &c, nil
		}
	}
	return nil, common.ErrorNotFound
}

func (r memReservations) Reserve(_ context.Context, res *models.Reservation) (*models.Reservation, error) {
	res.ID = r.m.nextID("res")
	c := *res
	r.m.reservations = append(r.m.reservations, &c)
	return res, nil
}

func (r memReservations) Release(_ context.Context, slug string, at time.Time) (int64, error) {
	var n int64
	for _, res := range r.m.reservations {
		if res.Slug == slug && res.ReleasedAt == nil {
			released := at
			res.ReleasedAt = &released
			n++
		}
	}
	return n, nil
}

// --- audit ---

type memAudit struct{ m *memDB }

func (r memAudit) Append(_ context.Context, e *models.AuditLog) (*models.AuditLog, error) {
	if err := r.m.failOn["audit.append"]; err != nil {
		return nil, err
	}
	e.ID = r.m.nextID("audit")
	e.CreatedAt = r.m.tick()
	c := *e
	r.m.audit = append(r.m.audit, &c)
	return e, nil
}

func (r memAudit) PendingEvictions(context.Context, int) ([]*models.AuditLog, error) {
	return nil, nil
}

// --- manager ---

type fakeRepoManager struct{ m *memDB }

func (f *fakeRepoManager) RunMigrations(context.Context, *sql.DB) error   { return nil }
func (f *fakeRepoManager) Users(dbx.DBTX) users.Repository               { return memUsers{f.m} }
func (f *fakeRepoManager) Packages(dbx.DBTX) packages.Repository         { return memPackages{f.m} }
func (f *fakeRepoManager) Versions(dbx.DBTX) versions.Repository         { return memVersions{f.m} }
func (f *fakeRepoManager) Fingerprints(dbx.DBTX) fingerprints.Repository { return memFingerprints{f.m} }
func (f *fakeRepoManager) Projections(dbx.DBTX) projections.Repository   { return memProjections{f.m} }
func (f *fakeRepoManager) Reservations(dbx.DBTX) reservations.Repository { return memReservations{f.m} }
func (f *fakeRepoManager) AuditLogs(dbx.DBTX) auditlogs.Repository       { return memAudit{f.m} }

// --- collaborators ---

type fakeScanner struct {
	flags []string
	err   error
	seen  []moderation.Submission
}

func (f *fakeScanner) Scan(s moderation.Submission) ([]string, error) {
	f.seen = append(f.seen, s)
	if f.err != nil {
		return nil, f.err
	}
	return append([]string{}, f.flags...), nil
}

type fakeBlobStore struct {
	puts map[string][]byte
	err  error
}

func (f *fakeBlobStore) Put(_ context.Context, key string, data []byte, _ string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	if f.puts == nil {
		f.puts = map[string][]byte{}
	}
	f.puts[key] = data
	return "mem://" + key, nil
}

type fakeQueue struct {
	tasks []cleanup.Task
	full  bool
}

func (f *fakeQueue) Enqueue(t cleanup.Task) bool {
	if f.full {
		return false
	}
	f.tasks = append(f.tasks, t)
	return true
}

// --- harness ---

type harness struct {
	db      *sql.DB
	mock    sqlmock.Sqlmock
	mem     *memDB
	rm      *fakeRepoManager
	scanner *fakeScanner
	store   *fakeBlobStore
	queue   *fakeQueue
	cfg     *config.Config
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	mem := newMemDB()
	mem.addUser("u-owner", models.RoleUser)
	mem.addUser("u-other", models.RoleUser)
	mem.addUser("u-mod", models.RoleModerator)
	mem.addUser("u-admin", models.RoleAdmin)

	cfg := &config.Config{FallbackScanWindow: 200, ReservationTTL: 24 * time.Hour}

	return &harness{
		db:      db,
		mock:    mock,
		mem:     mem,
		rm:      &fakeRepoManager{m: mem},
		scanner: &fakeScanner{},
		store:   &fakeBlobStore{},
		queue:   &fakeQueue{},
		cfg:     cfg,
	}
}

func (h *harness) expectCommit() {
	h.mock.ExpectBegin()
	h.mock.ExpectCommit()
}

func (h *harness) expectRollback() {
	h.mock.ExpectBegin()
	h.mock.ExpectRollback()
}

func (h *harness) verify(t *testing.T) {
	t.Helper()
	require.NoError(t, h.mock.ExpectationsWereMet())
}

func (h *harness) publishService() *PublishService {
	return NewPublishService(h.db, h.rm, h.scanner, logging.Discard())
}

func (h *harness) tagService() *TagService {
	return NewTagService(h.db, h.rm, logging.Discard())
}

func (h *harness) moderationService() *ModerationService {
	return NewModerationService(h.db, h.rm, logging.Discard())
}

func (h *harness) resolveService() *ResolveService {
	return NewResolveService(h.db, h.rm, h.cfg)
}

func (h *harness) restoreService() *RestoreService {
	return NewRestoreService(h.db, h.rm, h.cfg, h.scanner, h.store, h.queue, logging.Discard())
}

// publish commits one version through PublishService.
func (h *harness) publish(t *testing.T, actor string, in PublishInput) *PublishResult {
	t.Helper()
	h.expectCommit()
	res, err := h.publishService().Publish(context.Background(), actor, in)
	require.NoError(t, err)
	return res
}

func demoInput(version string) PublishInput {
	return PublishInput{
		Slug:        "demo",
		DisplayName: "Demo",
		Version:     version,
		Changelog:   "changes",
		Files: models.Files{
			{Path: "SKILL.md", Size: 10, SHA256: "aa" + version},
			{Path: "tool.sh", Size: 20, SHA256: "bb"},
		},
	}
}
