package assets

import (
	"context"
	"database/sql"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/scrivanobooks/scrivano/pkg/blobstore"
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
	_, err = sqldb.Exec("PRAGMA foreign_keys = ON")
	require.NoError(t, err)

	db := bun.NewDB(sqldb, sqlitedialect.New())
	t.Cleanup(func() { db.Close() })

	_, err = migrations.BringUpToDate(context.Background(), db)
	require.NoError(t, err)

	return db
}

func setupService(t *testing.T) (*Service, *fakeRemote, *blobstore.Store, *bun.DB) {
	t.Helper()

	db := setupTestDB(t)

	store, err := blobstore.New(t.TempDir())
	require.NoError(t, err)

	rc := newFakeRemote()
	svc := NewService(db, store, rc, 25*1024*1024)
	return svc, rc, store, db
}

func createTestBook(t *testing.T, db *bun.DB) *models.Book {
	t.Helper()

	now := time.Now()
	book := &models.Book{
		ID:        uuid.NewString(),
		CreatedAt: now,
		UpdatedAt: now,
		Title:     "Test Book",
	}
	_, err := db.NewInsert().Model(book).Exec(context.Background())
	require.NoError(t, err)
	return book
}

// fakeRemote is an in-memory remote store that counts calls, so tests can
// assert an operation stayed fully local.
type fakeRemote struct {
	mu sync.Mutex

	assetData    map[string][]byte
	fingerprints map[string]remote.AssetMetadata

	fetchCalls       int
	fingerprintCalls int
	createCalls      int

	fetchErr error
}

func newFakeRemote() *fakeRemote {
	return &fakeRemote{
		assetData:    map[string][]byte{},
		fingerprints: map[string]remote.AssetMetadata{},
	}
}

func (f *fakeRemote) addAsset(remoteID string, data []byte, meta remote.AssetMetadata) {
	f.mu.Lock()
	defer f.mu.Unlock()
	meta.RemoteID = remoteID
	f.assetData[remoteID] = data
	f.fingerprints[meta.Fingerprint] = meta
}

func (f *fakeRemote) GetAssetByFingerprint(_ context.Context, fingerprint string) (*remote.AssetMetadata, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fingerprintCalls++
	meta, ok := f.fingerprints[fingerprint]
	if !ok {
		return nil, remote.ErrNotFound
	}
	return &meta, nil
}

func (f *fakeRemote) CreateAsset(_ context.Context, data []byte, meta remote.AssetMetadata) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.createCalls++
	remoteID := uuid.NewString()
	meta.RemoteID = remoteID
	f.assetData[remoteID] = data
	f.fingerprints[meta.Fingerprint] = meta
	return remoteID, nil
}

func (f *fakeRemote) FetchAsset(_ context.Context, remoteID string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fetchCalls++
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	data, ok := f.assetData[remoteID]
	if !ok {
		return nil, remote.ErrNotFound
	}
	return data, nil
}

func (f *fakeRemote) PushRecord(_ context.Context, _, _ string, _ []byte, _ string) (*remote.PushResult, error) {
	return nil, remote.ErrNotFound
}

func (f *fakeRemote) PullRecord(_ context.Context, _, _ string) (*remote.PulledRecord, error) {
	return nil, remote.ErrNotFound
}
