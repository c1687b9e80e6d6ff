package assets

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/scrivanobooks/scrivano/pkg/blobstore"
	"github.com/scrivanobooks/scrivano/pkg/errcodes"
	"github.com/scrivanobooks/scrivano/pkg/models"
	"github.com/scrivanobooks/scrivano/pkg/remote"
	"github.com/uptrace/bun"
)

// allowedMimeTypes is the closed set of content types an import will accept.
var allowedMimeTypes = map[string]bool{
	"image/png":       true,
	"image/jpeg":      true,
	"image/webp":      true,
	"image/gif":       true,
	"image/bmp":       true,
	"image/tiff":      true,
	"image/svg+xml":   true,
	"application/pdf": true,
}

type RetrieveAssetOptions struct {
	ID          *string
	Fingerprint *string
}

type ListAssetsOptions struct {
	Limit    *int
	Offset   *int
	Statuses []string
}

type ImportOptions struct {
	Data     []byte
	MimeType string // sniffed from the bytes when empty

	// When set, the imported asset is linked to the entity in the same call.
	Link *LinkAssetOptions
}

// Service is the asset registry. It owns the Asset and AssetLink lifecycles:
// nothing else writes those tables.
type Service struct {
	db            *bun.DB
	store         *blobstore.Store
	remote        remote.Client
	maxUploadSize int64

	// importMu makes the fingerprint lookup + insert atomic so two concurrent
	// imports of identical bytes can't race into two assets. The unique index
	// on fingerprint backs this up at the database level.
	importMu sync.Mutex
}

func NewService(db *bun.DB, store *blobstore.Store, remoteClient remote.Client, maxUploadSize int64) *Service {
	return &Service{
		db:            db,
		store:         store,
		remote:        remoteClient,
		maxUploadSize: maxUploadSize,
	}
}

// ImportLocalFile brings a byte payload into the asset system. Identical
// bytes resolve to the existing asset with no new disk write and no new
// upload; new bytes are written to the local store and left pending for the
// upload queue. The operation never touches the network, so it works fully
// offline.
func (svc *Service) ImportLocalFile(ctx context.Context, opts ImportOptions) (*models.Asset, bool, error) {
	if len(opts.Data) == 0 {
		return nil, false, errcodes.ValidationError("Import requires a non-empty payload.")
	}
	if svc.maxUploadSize > 0 && int64(len(opts.Data)) > svc.maxUploadSize {
		return nil, false, errcodes.PayloadTooLarge(fmt.Sprintf("Import exceeds the %d byte limit.", svc.maxUploadSize))
	}

	mimeType := opts.MimeType
	if mimeType == "" {
		mimeType = mimetype.Detect(opts.Data).String()
	}
	if !allowedMimeTypes[mimeType] {
		return nil, false, errcodes.UnsupportedMediaType()
	}

	fingerprint := Fingerprint(opts.Data)

	svc.importMu.Lock()
	defer svc.importMu.Unlock()

	existing, err := svc.RetrieveAsset(ctx, RetrieveAssetOptions{Fingerprint: &fingerprint})
	if err != nil && !errors.Is(err, errcodes.NotFound("Asset")) {
		return nil, false, errors.WithStack(err)
	}
	if existing != nil {
		if opts.Link != nil {
			opts.Link.AssetID = existing.ID
			if _, err := svc.LinkAsset(ctx, *opts.Link); err != nil {
				return nil, false, errors.WithStack(err)
			}
		}
		return existing, true, nil
	}

	id, err := uuid.NewRandom()
	if err != nil {
		return nil, false, errors.WithStack(err)
	}

	now := time.Now()
	asset := &models.Asset{
		ID:           id.String(),
		CreatedAt:    now,
		UpdatedAt:    now,
		Fingerprint:  fingerprint,
		MimeType:     mimeType,
		SizeBytes:    int64(len(opts.Data)),
		UploadStatus: models.AssetStatusPendingUpload,
	}

	// Bytes land on disk before the catalog row exists: an asset without a
	// local path or remote id must never be observable.
	path, err := svc.store.Write(asset.ID, opts.Data)
	if err != nil {
		return nil, false, errors.WithStack(err)
	}
	asset.LocalPath = &path

	_, err = svc.db.NewInsert().Model(asset).Exec(ctx)
	if err != nil {
		_ = svc.store.Remove(asset.ID)
		return nil, false, errors.WithStack(err)
	}

	if opts.Link != nil {
		opts.Link.AssetID = asset.ID
		if _, err := svc.LinkAsset(ctx, *opts.Link); err != nil {
			return nil, false, errors.WithStack(err)
		}
	}

	return asset, false, nil
}

// Resolve returns the asset with its bytes guaranteed to be on local disk.
// A locally-materialized asset returns immediately with zero network calls;
// a remote-only asset is fetched, verified, and cached first.
func (svc *Service) Resolve(ctx context.Context, id string) (*models.Asset, error) {
	asset, err := svc.RetrieveAsset(ctx, RetrieveAssetOptions{ID: &id})
	if err != nil {
		return nil, errors.WithStack(err)
	}

	if asset.Materialized() && svc.store.Exists(asset.ID) {
		return asset, nil
	}

	if err := svc.fetchAndCache(ctx, asset); err != nil {
		return nil, errors.WithStack(err)
	}

	return asset, nil
}

func (svc *Service) RetrieveAsset(ctx context.Context, opts RetrieveAssetOptions) (*models.Asset, error) {
	asset := &models.Asset{}

	q := svc.db.NewSelect().Model(asset)
	if opts.ID != nil {
		q = q.Where("a.id = ?", *opts.ID)
	}
	if opts.Fingerprint != nil {
		q = q.Where("a.fingerprint = ?", *opts.Fingerprint)
	}

	err := q.Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errcodes.NotFound("Asset")
	}
	if err != nil {
		return nil, errors.WithStack(err)
	}

	return asset, nil
}

func (svc *Service) ListAssets(ctx context.Context, opts ListAssetsOptions) ([]*models.Asset, error) {
	assets := []*models.Asset{}

	q := svc.db.NewSelect().Model(&assets).Order("created_at ASC")
	if len(opts.Statuses) > 0 {
		q = q.Where("a.upload_status IN (?)", bun.In(opts.Statuses))
	}
	if opts.Limit != nil {
		q = q.Limit(*opts.Limit)
	}
	if opts.Offset != nil {
		q = q.Offset(*opts.Offset)
	}

	err := q.Scan(ctx)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	return assets, nil
}

// UpdateAsset writes the given columns back to the catalog.
func (svc *Service) UpdateAsset(ctx context.Context, asset *models.Asset, columns []string) error {
	asset.UpdatedAt = time.Now()
	columns = append(columns, "updated_at")

	_, err := svc.db.
		NewUpdate().
		Model(asset).
		Column(columns...).
		WherePK().
		Exec(ctx)
	if err != nil {
		return errors.WithStack(err)
	}

	return nil
}

// DeleteAsset removes an asset from the catalog and the local store. Deleting
// an asset that other entities still link to is rejected; links have to be
// cleaned up explicitly first.
func (svc *Service) DeleteAsset(ctx context.Context, id string) error {
	asset, err := svc.RetrieveAsset(ctx, RetrieveAssetOptions{ID: &id})
	if err != nil {
		return errors.WithStack(err)
	}

	count, err := svc.db.
		NewSelect().
		Model((*models.AssetLink)(nil)).
		Where("al.asset_id = ?", asset.ID).
		Count(ctx)
	if err != nil {
		return errors.WithStack(err)
	}
	if count > 0 {
		return errcodes.Conflict(fmt.Sprintf("Asset is still linked by %d entities.", count))
	}

	_, err = svc.db.NewDelete().Model(asset).WherePK().Exec(ctx)
	if err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(svc.store.Remove(asset.ID))
}
