package uploader

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/scrivanobooks/scrivano/pkg/assets"
	"github.com/scrivanobooks/scrivano/pkg/blobstore"
	"github.com/scrivanobooks/scrivano/pkg/config"
	"github.com/scrivanobooks/scrivano/pkg/migrations"
	"github.com/scrivanobooks/scrivano/pkg/models"
	"github.com/scrivanobooks/scrivano/pkg/remote"
	"github.com/stretchr/testify/assert"
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

func setupUploader(t *testing.T, rc *fakeRemote, concurrency int) (*Uploader, *assets.Service, *blobstore.Store, *bun.DB) {
	t.Helper()

	db := setupTestDB(t)

	store, err := blobstore.New(t.TempDir())
	require.NoError(t, err)

	assetService := assets.NewService(db, store, rc, 25*1024*1024)

	cfg := config.NewForTest()
	cfg.UploadPollInterval = 10 * time.Millisecond
	cfg.UserConfig.UploadConcurrency = concurrency

	u := New(cfg, db, store, rc, assetService)
	return u, assetService, store, db
}

func importPendingAsset(t *testing.T, svc *assets.Service, data []byte) *models.Asset {
	t.Helper()

	asset, _, err := svc.ImportLocalFile(context.Background(), assets.ImportOptions{Data: data, MimeType: "image/png"})
	require.NoError(t, err)
	return asset
}

func retrieveAsset(t *testing.T, svc *assets.Service, id string) *models.Asset {
	t.Helper()

	asset, err := svc.RetrieveAsset(context.Background(), assets.RetrieveAssetOptions{ID: &id})
	require.NoError(t, err)
	return asset
}

// fakeRemote tracks in-flight creates so tests can assert the concurrency
// bound, and can be told to fail.
type fakeRemote struct {
	mu sync.Mutex

	fingerprints map[string]remote.AssetMetadata
	createCalls  int
	createErr    error
	createDelay  time.Duration

	inFlight    int
	maxInFlight int
}

func newFakeRemote() *fakeRemote {
	return &fakeRemote{fingerprints: map[string]remote.AssetMetadata{}}
}

func (f *fakeRemote) GetAssetByFingerprint(_ context.Context, fingerprint string) (*remote.AssetMetadata, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	meta, ok := f.fingerprints[fingerprint]
	if !ok {
		return nil, remote.ErrNotFound
	}
	return &meta, nil
}

func (f *fakeRemote) CreateAsset(_ context.Context, _ []byte, meta remote.AssetMetadata) (string, error) {
	f.mu.Lock()
	f.createCalls++
	f.inFlight++
	if f.inFlight > f.maxInFlight {
		f.maxInFlight = f.inFlight
	}
	delay := f.createDelay
	createErr := f.createErr
	f.mu.Unlock()

	if delay > 0 {
		time.Sleep(delay)
	}

	f.mu.Lock()
	f.inFlight--
	f.mu.Unlock()

	if createErr != nil {
		return "", createErr
	}

	remoteID := uuid.NewString()
	f.mu.Lock()
	meta.RemoteID = remoteID
	f.fingerprints[meta.Fingerprint] = meta
	f.mu.Unlock()
	return remoteID, nil
}

func (f *fakeRemote) stats() (createCalls, maxInFlight int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.createCalls, f.maxInFlight
}

func (f *fakeRemote) FetchAsset(_ context.Context, _ string) ([]byte, error) {
	return nil, remote.ErrNotFound
}

func (f *fakeRemote) PushRecord(_ context.Context, _, _ string, _ []byte, _ string) (*remote.PushResult, error) {
	return nil, remote.ErrNotFound
}

func (f *fakeRemote) PullRecord(_ context.Context, _, _ string) (*remote.PulledRecord, error) {
	return nil, remote.ErrNotFound
}

func TestUploadAsset(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	rc := newFakeRemote()
	u, svc, _, _ := setupUploader(t, rc, 2)
	asset := importPendingAsset(t, svc, []byte("upload me"))

	claimed, err := u.claim(ctx, asset)
	require.NoError(t, err)
	require.True(t, claimed)

	require.NoError(t, u.uploadAsset(ctx, asset))

	stored := retrieveAsset(t, svc, asset.ID)
	assert.Equal(t, models.AssetStatusUploaded, stored.UploadStatus)
	require.NotNil(t, stored.RemoteID)
	assert.Equal(t, 1, rc.createCalls)
}

func TestUploadAssetReusesRemoteCopy(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	rc := newFakeRemote()
	u, svc, _, _ := setupUploader(t, rc, 2)

	data := []byte("already up there")
	asset := importPendingAsset(t, svc, data)

	rc.fingerprints[asset.Fingerprint] = remote.AssetMetadata{
		RemoteID:    "remote-42",
		Fingerprint: asset.Fingerprint,
	}

	claimed, err := u.claim(ctx, asset)
	require.NoError(t, err)
	require.True(t, claimed)

	require.NoError(t, u.uploadAsset(ctx, asset))

	stored := retrieveAsset(t, svc, asset.ID)
	assert.Equal(t, models.AssetStatusUploaded, stored.UploadStatus)
	require.NotNil(t, stored.RemoteID)
	assert.Equal(t, "remote-42", *stored.RemoteID)
	assert.Zero(t, rc.createCalls)
}

func TestUploadAssetRejectsFingerprintMismatch(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	rc := newFakeRemote()
	u, svc, store, _ := setupUploader(t, rc, 2)
	asset := importPendingAsset(t, svc, []byte("original"))

	// Corrupt the stored bytes behind the catalog's back.
	require.NoError(t, os.WriteFile(store.Path(asset.ID), []byte("tampered"), 0600))

	claimed, err := u.claim(ctx, asset)
	require.NoError(t, err)
	require.True(t, claimed)

	err = u.uploadAsset(ctx, asset)
	require.Error(t, err)
	assert.Zero(t, rc.createCalls)
}

func TestClaimIsExclusive(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	rc := newFakeRemote()
	u, svc, _, _ := setupUploader(t, rc, 2)
	asset := importPendingAsset(t, svc, []byte("claim me"))

	claimed, err := u.claim(ctx, asset)
	require.NoError(t, err)
	assert.True(t, claimed)

	again, err := u.claim(ctx, asset)
	require.NoError(t, err)
	assert.False(t, again)
}

func TestRetryFailed(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	rc := newFakeRemote()
	u, svc, _, db := setupUploader(t, rc, 2)
	asset := importPendingAsset(t, svc, []byte("failed once"))

	_, err := db.NewUpdate().
		Model((*models.Asset)(nil)).
		Set("upload_status = ?", models.AssetStatusFailed).
		Where("id = ?", asset.ID).
		Exec(ctx)
	require.NoError(t, err)

	count, err := u.RetryFailed(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	stored := retrieveAsset(t, svc, asset.ID)
	assert.Equal(t, models.AssetStatusPendingUpload, stored.UploadStatus)
}

func TestRecoverStuckUploads(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	rc := newFakeRemote()
	u, svc, _, db := setupUploader(t, rc, 2)
	asset := importPendingAsset(t, svc, []byte("stuck mid-upload"))

	_, err := db.NewUpdate().
		Model((*models.Asset)(nil)).
		Set("upload_status = ?", models.AssetStatusUploading).
		Where("id = ?", asset.ID).
		Exec(ctx)
	require.NoError(t, err)

	require.NoError(t, u.recoverStuckUploads(ctx))

	stored := retrieveAsset(t, svc, asset.ID)
	assert.Equal(t, models.AssetStatusPendingUpload, stored.UploadStatus)
}

func TestUploaderDrainsQueue(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	rc := newFakeRemote()
	rc.createDelay = 20 * time.Millisecond
	u, svc, _, _ := setupUploader(t, rc, 2)

	const count = 6
	ids := make([]string, count)
	for i := 0; i < count; i++ {
		asset := importPendingAsset(t, svc, []byte(fmt.Sprintf("payload %d", i)))
		ids[i] = asset.ID
	}

	u.Start()
	defer u.Shutdown()

	require.Eventually(t, func() bool {
		pending, err := svc.ListAssets(ctx, assets.ListAssetsOptions{
			Statuses: []string{models.AssetStatusPendingUpload, models.AssetStatusUploading},
		})
		return err == nil && len(pending) == 0
	}, 5*time.Second, 10*time.Millisecond)

	for _, id := range ids {
		stored := retrieveAsset(t, svc, id)
		assert.Equal(t, models.AssetStatusUploaded, stored.UploadStatus)
		assert.NotNil(t, stored.RemoteID)
	}

	// Never more transfers in flight than the configured bound.
	creates, maxInFlight := rc.stats()
	assert.LessOrEqual(t, maxInFlight, 2)
	assert.Equal(t, count, creates)
}

func TestUploaderMarksFailuresWithoutRetrying(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	rc := newFakeRemote()
	rc.createErr = errors.New("remote unavailable")
	u, svc, _, _ := setupUploader(t, rc, 2)

	asset := importPendingAsset(t, svc, []byte("doomed"))

	u.Start()
	defer u.Shutdown()

	require.Eventually(t, func() bool {
		stored, err := svc.RetrieveAsset(ctx, assets.RetrieveAssetOptions{ID: &asset.ID})
		return err == nil && stored.UploadStatus == models.AssetStatusFailed
	}, 5*time.Second, 10*time.Millisecond)

	// The uploader itself never retries; that's the sync cycle's call.
	calls, _ := rc.stats()
	time.Sleep(50 * time.Millisecond)
	after, _ := rc.stats()
	assert.Equal(t, calls, after)
}
