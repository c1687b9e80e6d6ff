package characters

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/scrivanobooks/scrivano/pkg/assets"
	"github.com/scrivanobooks/scrivano/pkg/errcodes"
	"github.com/scrivanobooks/scrivano/pkg/models"
	"github.com/uptrace/bun"
)

type Service struct {
	db           *bun.DB
	assetService *assets.Service
}

func NewService(db *bun.DB, assetService *assets.Service) *Service {
	return &Service{db: db, assetService: assetService}
}

type CreateCharacterOptions struct {
	VersionID string
	Name      string
	Summary   *string
	Traits    *string
}

func (svc *Service) CreateCharacter(ctx context.Context, opts CreateCharacterOptions) (*models.Character, error) {
	exists, err := svc.db.
		NewSelect().
		Model((*models.Version)(nil)).
		Where("v.id = ?", opts.VersionID).
		Exists(ctx)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	if !exists {
		return nil, errcodes.NotFound("Version")
	}

	id, err := uuid.NewRandom()
	if err != nil {
		return nil, errors.WithStack(err)
	}

	now := time.Now()
	character := &models.Character{
		ID:        id.String(),
		CreatedAt: now,
		UpdatedAt: now,
		VersionID: opts.VersionID,
		Name:      opts.Name,
		Summary:   opts.Summary,
		Traits:    opts.Traits,
		SyncFields: models.SyncFields{
			SyncState:     models.SyncStateDirty,
			ConflictState: models.ConflictStateNone,
		},
	}

	_, err = svc.db.NewInsert().Model(character).Exec(ctx)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	return character, nil
}

func (svc *Service) RetrieveCharacter(ctx context.Context, id string) (*models.Character, error) {
	character := &models.Character{}

	err := svc.db.NewSelect().Model(character).Where("ch.id = ?", id).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errcodes.NotFound("Character")
	}
	if err != nil {
		return nil, errors.WithStack(err)
	}

	return character, nil
}

func (svc *Service) ListCharacters(ctx context.Context, versionID string) ([]*models.Character, error) {
	characters := []*models.Character{}

	err := svc.db.
		NewSelect().
		Model(&characters).
		Where("ch.version_id = ?", versionID).
		Order("ch.name ASC", "ch.created_at ASC").
		Scan(ctx)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	return characters, nil
}

type UpdateCharacterOptions struct {
	Name    *string
	Summary *string
	Traits  *string
}

func (svc *Service) UpdateCharacter(ctx context.Context, id string, opts UpdateCharacterOptions) (*models.Character, error) {
	character, err := svc.RetrieveCharacter(ctx, id)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	if opts.Name != nil {
		character.Name = *opts.Name
	}
	if opts.Summary != nil {
		character.Summary = opts.Summary
	}
	if opts.Traits != nil {
		character.Traits = opts.Traits
	}

	character.MarkDirty()
	character.UpdatedAt = time.Now()

	_, err = svc.db.
		NewUpdate().
		Model(character).
		Column("name", "summary", "traits", "sync_state", "updated_at").
		WherePK().
		Exec(ctx)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	return character, nil
}

func (svc *Service) DeleteCharacter(ctx context.Context, id string) error {
	character, err := svc.RetrieveCharacter(ctx, id)
	if err != nil {
		return errors.WithStack(err)
	}

	if err := svc.assetService.UnlinkEntity(ctx, models.EntityTypeCharacter, character.ID); err != nil {
		return errors.WithStack(err)
	}

	_, err = svc.db.NewDelete().Model(character).WherePK().Exec(ctx)
	return errors.WithStack(err)
}
