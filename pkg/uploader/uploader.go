package uploader

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/robinjoseph08/golib/logger"
	"github.com/scrivanobooks/scrivano/pkg/assets"
	"github.com/scrivanobooks/scrivano/pkg/blobstore"
	"github.com/scrivanobooks/scrivano/pkg/config"
	"github.com/scrivanobooks/scrivano/pkg/models"
	"github.com/scrivanobooks/scrivano/pkg/remote"
	"github.com/uptrace/bun"
)

// Uploader drains locally-created assets to the remote store with a bounded
// worker pool. The queue has no storage of its own: membership is derived
// from upload_status, so it survives restarts by rescanning pending assets.
type Uploader struct {
	log logger.Logger

	db           *bun.DB
	store        *blobstore.Store
	remote       remote.Client
	assetService *assets.Service

	concurrency  int
	pollInterval time.Duration

	queue          chan *models.Asset
	shutdown       chan struct{}
	doneFetching   chan struct{}
	doneProcessing chan struct{}
}

func New(cfg *config.Config, db *bun.DB, store *blobstore.Store, remoteClient remote.Client, assetService *assets.Service) *Uploader {
	concurrency := cfg.UserConfig.UploadConcurrency
	if concurrency < 1 {
		concurrency = 2
	}

	return &Uploader{
		log: logger.New(),

		db:           db,
		store:        store,
		remote:       remoteClient,
		assetService: assetService,

		concurrency:  concurrency,
		pollInterval: cfg.UploadPollInterval,

		queue:          make(chan *models.Asset, concurrency),
		shutdown:       make(chan struct{}),
		doneFetching:   make(chan struct{}),
		doneProcessing: make(chan struct{}, concurrency),
	}
}

func (u *Uploader) Start() {
	// Recover assets stuck in uploading from a previous process that died
	// mid-transfer. They go back to pending and get re-pushed.
	if err := u.recoverStuckUploads(context.Background()); err != nil {
		u.log.Err(err).Error("recover stuck uploads error")
	}

	go u.fetchPending()
	for i := 0; i < u.concurrency; i++ {
		go u.processUploads()
	}
}

func (u *Uploader) Shutdown() {
	close(u.shutdown)

	<-u.doneFetching
	for i := 0; i < u.concurrency; i++ {
		<-u.doneProcessing
	}
}

// RetryFailed flips failed assets back to pending so the next poll picks them
// up. It's called once per sync cycle, never from an internal backoff loop,
// so a dead remote can't cause a retry storm.
func (u *Uploader) RetryFailed(ctx context.Context) (int, error) {
	res, err := u.db.
		NewUpdate().
		Model((*models.Asset)(nil)).
		Set("upload_status = ?", models.AssetStatusPendingUpload).
		Set("updated_at = ?", time.Now()).
		Where("upload_status = ?", models.AssetStatusFailed).
		Exec(ctx)
	if err != nil {
		return 0, errors.WithStack(err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return 0, errors.WithStack(err)
	}

	return int(affected), nil
}

func (u *Uploader) recoverStuckUploads(ctx context.Context) error {
	_, err := u.db.
		NewUpdate().
		Model((*models.Asset)(nil)).
		Set("upload_status = ?", models.AssetStatusPendingUpload).
		Set("updated_at = ?", time.Now()).
		Where("upload_status = ?", models.AssetStatusUploading).
		Exec(ctx)
	return errors.WithStack(err)
}

func (u *Uploader) fetchPending() {
	timer := time.NewTimer(u.pollInterval)

	for {
		select {
		case <-u.shutdown:
			// We're shutting down, so stop adding more assets to the queue.
			u.doneFetching <- struct{}{}
			return
		case <-timer.C:
			limit := u.concurrency
			pending, err := u.assetService.ListAssets(context.Background(), assets.ListAssetsOptions{
				Limit:    &limit,
				Statuses: []string{models.AssetStatusPendingUpload},
			})
			if err != nil {
				u.log.Err(err).Error("list pending assets error")
				timer.Reset(u.pollInterval)
				continue
			}
			for _, asset := range pending {
				select {
				case u.queue <- asset:
				case <-u.shutdown:
					u.doneFetching <- struct{}{}
					return
				}
			}
			timer.Reset(u.pollInterval)
		}
	}
}

func (u *Uploader) processUploads() {
	for {
		select {
		case <-u.shutdown:
			u.doneProcessing <- struct{}{}
			return
		case asset := <-u.queue:
			id, err := uuid.NewRandom()
			if err != nil {
				u.log.Err(err).Error("new uuid error")
				continue
			}
			log := u.log.ID(id.String()).Root(logger.Data{"asset_id": asset.ID})
			ctx := log.WithContext(context.Background())

			// upload_status doubles as a per-asset mutex: only one worker can
			// win this update, so an id is never uploaded twice concurrently.
			claimed, err := u.claim(ctx, asset)
			if err != nil {
				log.Err(err).Error("claim asset error")
				continue
			}
			if !claimed {
				continue
			}

			if err := u.uploadAsset(ctx, asset); err != nil {
				// Transient by policy: the asset stays failed until the next
				// sync cycle retries it. Nothing propagates to the UI.
				log.Err(err).Warn("asset upload failed")

				asset.UploadStatus = models.AssetStatusFailed
				if err := u.assetService.UpdateAsset(ctx, asset, []string{"upload_status"}); err != nil {
					log.Err(err).Error("mark asset failed error")
				}
				continue
			}

			log.Info("asset uploaded", logger.Data{"remote_id": *asset.RemoteID})
		}
	}
}

func (u *Uploader) claim(ctx context.Context, asset *models.Asset) (bool, error) {
	res, err := u.db.
		NewUpdate().
		Model((*models.Asset)(nil)).
		Set("upload_status = ?", models.AssetStatusUploading).
		Set("updated_at = ?", time.Now()).
		Where("id = ?", asset.ID).
		Where("upload_status IN (?)", bun.In([]string{models.AssetStatusPendingUpload, models.AssetStatusFailed})).
		Exec(ctx)
	if err != nil {
		return false, errors.WithStack(err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return false, errors.WithStack(err)
	}
	if affected == 0 {
		return false, nil
	}

	asset.UploadStatus = models.AssetStatusUploading
	return true, nil
}

func (u *Uploader) uploadAsset(ctx context.Context, asset *models.Asset) error {
	data, err := u.store.Read(asset.ID)
	if err != nil {
		return errors.WithStack(err)
	}

	// Corruption check before any bytes leave the machine. A mismatch is
	// fatal for this asset; it stays failed until someone re-imports it.
	if assets.Fingerprint(data) != asset.Fingerprint {
		return errors.Errorf("stored bytes for asset %s do not match recorded fingerprint", asset.ID)
	}

	// The remote may already have these bytes from another device. Reuse its
	// copy instead of uploading a duplicate.
	remoteID := ""
	meta, err := u.remote.GetAssetByFingerprint(ctx, asset.Fingerprint)
	switch {
	case err == nil:
		remoteID = meta.RemoteID
	case errors.Is(err, remote.ErrNotFound):
		remoteID, err = u.remote.CreateAsset(ctx, data, remote.AssetMetadata{
			Fingerprint: asset.Fingerprint,
			MimeType:    asset.MimeType,
			SizeBytes:   asset.SizeBytes,
		})
		if err != nil {
			return errors.WithStack(err)
		}
	default:
		return errors.WithStack(err)
	}

	asset.RemoteID = &remoteID
	asset.UploadStatus = models.AssetStatusUploaded
	return errors.WithStack(u.assetService.UpdateAsset(ctx, asset, []string{"remote_id", "upload_status"}))
}
