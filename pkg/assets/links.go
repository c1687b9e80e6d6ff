package assets

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/scrivanobooks/scrivano/pkg/errcodes"
	"github.com/scrivanobooks/scrivano/pkg/models"
	"github.com/uptrace/bun"
)

type LinkAssetOptions struct {
	AssetID     string
	EntityType  string
	EntityID    string
	Role        string
	SortOrder   int
	Description *string
	Tags        *string
}

type ListLinkedAssetsOptions struct {
	EntityType string
	EntityID   string
	Role       *string
}

// LinkAsset associates an asset with an owning entity under a role. Linking
// the same (asset, entity, role) triple twice returns the existing link with
// its metadata refreshed instead of creating a duplicate.
func (svc *Service) LinkAsset(ctx context.Context, opts LinkAssetOptions) (*models.AssetLink, error) {
	if !models.ValidAssetRole(opts.Role) {
		return nil, errcodes.ValidationError("Unknown asset role " + opts.Role + ".")
	}

	// The asset has to exist before anything can link to it.
	if _, err := svc.RetrieveAsset(ctx, RetrieveAssetOptions{ID: &opts.AssetID}); err != nil {
		return nil, errors.WithStack(err)
	}

	link := &models.AssetLink{}

	err := svc.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		err := tx.
			NewSelect().
			Model(link).
			Where("al.asset_id = ?", opts.AssetID).
			Where("al.entity_type = ?", opts.EntityType).
			Where("al.entity_id = ?", opts.EntityID).
			Where("al.role = ?", opts.Role).
			Scan(ctx)
		if err != nil && !errors.Is(err, sql.ErrNoRows) {
			return errors.WithStack(err)
		}

		if err == nil {
			// Idempotent hit: refresh mutable metadata only.
			link.SortOrder = opts.SortOrder
			link.Description = opts.Description
			link.Tags = opts.Tags
			link.UpdatedAt = time.Now()

			_, err = tx.
				NewUpdate().
				Model(link).
				Column("sort_order", "description", "tags", "updated_at").
				WherePK().
				Exec(ctx)
			return errors.WithStack(err)
		}

		id, err := uuid.NewRandom()
		if err != nil {
			return errors.WithStack(err)
		}

		now := time.Now()
		link.ID = id.String()
		link.CreatedAt = now
		link.UpdatedAt = now
		link.AssetID = opts.AssetID
		link.EntityType = opts.EntityType
		link.EntityID = opts.EntityID
		link.Role = opts.Role
		link.SortOrder = opts.SortOrder
		link.Description = opts.Description
		link.Tags = opts.Tags

		_, err = tx.NewInsert().Model(link).Exec(ctx)
		return errors.WithStack(err)
	})
	if err != nil {
		return nil, errors.WithStack(err)
	}

	return link, nil
}

// LinkedAssets returns the links for an entity ordered by sort order, each
// with its asset loaded, optionally filtered to a single role.
func (svc *Service) LinkedAssets(ctx context.Context, opts ListLinkedAssetsOptions) ([]*models.AssetLink, error) {
	links := []*models.AssetLink{}

	q := svc.db.
		NewSelect().
		Model(&links).
		Relation("Asset").
		Where("al.entity_type = ?", opts.EntityType).
		Where("al.entity_id = ?", opts.EntityID).
		Order("al.sort_order ASC", "al.created_at ASC")
	if opts.Role != nil {
		q = q.Where("al.role = ?", *opts.Role)
	}

	err := q.Scan(ctx)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	return links, nil
}

// Unlink removes the association only. The underlying asset always survives;
// other links may still reference it.
func (svc *Service) Unlink(ctx context.Context, linkID string) error {
	res, err := svc.db.
		NewDelete().
		Model((*models.AssetLink)(nil)).
		Where("al.id = ?", linkID).
		Exec(ctx)
	if err != nil {
		return errors.WithStack(err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return errors.WithStack(err)
	}
	if affected == 0 {
		return errcodes.NotFound("Asset link")
	}

	return nil
}

// UnlinkEntity removes every link an entity holds, used when the entity
// itself is deleted. Assets are never cascade-deleted.
func (svc *Service) UnlinkEntity(ctx context.Context, entityType, entityID string) error {
	_, err := svc.db.
		NewDelete().
		Model((*models.AssetLink)(nil)).
		Where("al.entity_type = ?", entityType).
		Where("al.entity_id = ?", entityID).
		Exec(ctx)
	return errors.WithStack(err)
}
