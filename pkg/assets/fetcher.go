package assets

import (
	"context"

	"github.com/pkg/errors"
	"github.com/robinjoseph08/golib/logger"
	"github.com/scrivanobooks/scrivano/pkg/errcodes"
	"github.com/scrivanobooks/scrivano/pkg/models"
	"github.com/scrivanobooks/scrivano/pkg/remote"
)

// fetchAndCache materializes a remote-only asset into the local store. It
// only ever runs on a cache miss; Resolve short-circuits before getting here
// when the bytes are already local. On success the asset's local path is
// recorded so every later resolution hits the fast path.
func (svc *Service) fetchAndCache(ctx context.Context, asset *models.Asset) error {
	if asset.RemoteID == nil || *asset.RemoteID == "" {
		// Neither local nor remote: the asset's bytes are gone.
		return errcodes.NotFound("Asset content")
	}

	log := logger.FromContext(ctx)
	log.Info("fetching remote asset", logger.Data{"asset_id": asset.ID, "remote_id": *asset.RemoteID})

	data, err := svc.remote.FetchAsset(ctx, *asset.RemoteID)
	if errors.Is(err, remote.ErrNotFound) {
		return errcodes.NotFound("Asset content")
	}
	if err != nil {
		return errors.WithStack(err)
	}

	// The remote's bytes have to hash to the fingerprint we recorded at
	// import time, otherwise we'd cache corruption forever.
	if Fingerprint(data) != asset.Fingerprint {
		return errcodes.Corrupted("Asset " + asset.ID)
	}

	path, err := svc.store.Write(asset.ID, data)
	if err != nil {
		return errors.WithStack(err)
	}

	asset.LocalPath = &path
	if err := svc.UpdateAsset(ctx, asset, []string{"local_path"}); err != nil {
		return errors.WithStack(err)
	}

	return nil
}
