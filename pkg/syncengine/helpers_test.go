package syncengine

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/scrivanobooks/scrivano/pkg/config"
	"github.com/scrivanobooks/scrivano/pkg/migrations"
	"github.com/scrivanobooks/scrivano/pkg/models"
	"github.com/scrivanobooks/scrivano/pkg/remote"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
)

func setupTestDB(t *testing.T) *bun.DB {
	t.Helper()

	sqldb, err := sql.Open(sqliteshim.ShimName, ":memory:")
	require.NoError(t, err)
	sqldb.SetMaxOpenConns(1)

	db := bun.NewDB(sqldb, sqlitedialect.New())
	t.Cleanup(func() { db.Close() })

	_, err = migrations.BringUpToDate(context.Background(), db)
	require.NoError(t, err)

	return db
}

func setupEngine(t *testing.T) (*Engine, *fakeRemote, *fakeRetrier, *bun.DB) {
	t.Helper()

	db := setupTestDB(t)
	rc := newFakeRemote()
	retrier := &fakeRetrier{}

	cfg := config.NewForTest()
	engine := New(cfg, db, rc, retrier)
	return engine, rc, retrier, db
}

func insertBook(t *testing.T, db *bun.DB, title string, sf models.SyncFields) *models.Book {
	t.Helper()

	now := time.Now()
	book := &models.Book{
		ID:         uuid.NewString(),
		CreatedAt:  now,
		UpdatedAt:  now,
		Title:      title,
		SyncFields: sf,
	}
	_, err := db.NewInsert().Model(book).Exec(context.Background())
	require.NoError(t, err)
	return book
}

func reloadBook(t *testing.T, db *bun.DB, id string) *models.Book {
	t.Helper()

	book := &models.Book{}
	err := db.NewSelect().Model(book).Where("b.id = ?", id).Scan(context.Background())
	require.NoError(t, err)
	return book
}

type fakeRetrier struct {
	mu    sync.Mutex
	calls int
}

func (f *fakeRetrier) RetryFailed(_ context.Context) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return 0, nil
}

// fakeRemote behaves like the real record store: a push is accepted only when
// its base revision matches the revision currently held.
type fakeRemote struct {
	mu sync.Mutex

	records    map[string]*remote.PulledRecord
	revCounter int
	pushCalls  int
	pullCalls  int

	// pushHook and pullHook run at the start of the corresponding call, while
	// the engine has a record claimed. Tests use them to race local edits
	// against an in-flight sync.
	pushHook func()
	pullHook func()
}

func newFakeRemote() *fakeRemote {
	return &fakeRemote{records: map[string]*remote.PulledRecord{}}
}

func recordKey(entityType, entityID string) string {
	return entityType + "/" + entityID
}

// seedRecord installs a remote copy at a fresh revision and returns it.
func (f *fakeRemote) seedRecord(entityType, entityID string, payload []byte) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.revCounter++
	rev := fmt.Sprintf("rev-%d", f.revCounter)
	f.records[recordKey(entityType, entityID)] = &remote.PulledRecord{
		Payload:   payload,
		Revision:  rev,
		UpdatedAt: time.Now(),
	}
	return rev
}

func (f *fakeRemote) PushRecord(_ context.Context, entityType, entityID string, payload []byte, baseRevision string) (*remote.PushResult, error) {
	if f.pushHook != nil {
		f.pushHook()
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.pushCalls++

	key := recordKey(entityType, entityID)
	current, exists := f.records[key]
	if exists && current.Revision != baseRevision {
		return &remote.PushResult{Accepted: false, RemoteRevision: current.Revision}, nil
	}

	f.revCounter++
	rev := fmt.Sprintf("rev-%d", f.revCounter)
	f.records[key] = &remote.PulledRecord{
		Payload:   payload,
		Revision:  rev,
		UpdatedAt: time.Now(),
	}
	return &remote.PushResult{Accepted: true, Revision: rev}, nil
}

func (f *fakeRemote) PullRecord(_ context.Context, entityType, entityID string) (*remote.PulledRecord, error) {
	if f.pullHook != nil {
		f.pullHook()
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.pullCalls++

	rec, ok := f.records[recordKey(entityType, entityID)]
	if !ok {
		return nil, remote.ErrNotFound
	}
	return rec, nil
}

func (f *fakeRemote) GetAssetByFingerprint(_ context.Context, _ string) (*remote.AssetMetadata, error) {
	return nil, remote.ErrNotFound
}

func (f *fakeRemote) CreateAsset(_ context.Context, _ []byte, _ remote.AssetMetadata) (string, error) {
	return "", remote.ErrNotFound
}

func (f *fakeRemote) FetchAsset(_ context.Context, _ string) ([]byte, error) {
	return nil, remote.ErrNotFound
}
