package chapters

import (
	"context"
	"database/sql"
	"strings"
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

type CreateChapterOptions struct {
	VersionID string
	Title     string
	Content   *string
}

func (svc *Service) CreateChapter(ctx context.Context, opts CreateChapterOptions) (*models.Chapter, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return nil, errors.WithStack(err)
	}

	chapter := &models.Chapter{}

	err = svc.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		exists, err := tx.
			NewSelect().
			Model((*models.Version)(nil)).
			Where("v.id = ?", opts.VersionID).
			Exists(ctx)
		if err != nil {
			return errors.WithStack(err)
		}
		if !exists {
			return errcodes.NotFound("Version")
		}

		// New chapters append to the end of the version.
		maxOrder := 0
		err = tx.
			NewSelect().
			Model((*models.Chapter)(nil)).
			ColumnExpr("COALESCE(MAX(sort_order), -1)").
			Where("version_id = ?", opts.VersionID).
			Scan(ctx, &maxOrder)
		if err != nil {
			return errors.WithStack(err)
		}

		now := time.Now()
		chapter.ID = id.String()
		chapter.CreatedAt = now
		chapter.UpdatedAt = now
		chapter.VersionID = opts.VersionID
		chapter.SortOrder = maxOrder + 1
		chapter.Title = opts.Title
		chapter.Content = opts.Content
		chapter.WordCount = countWords(opts.Content)
		chapter.SyncState = models.SyncStateDirty
		chapter.ConflictState = models.ConflictStateNone

		if _, err := tx.NewInsert().Model(chapter).Exec(ctx); err != nil {
			return errors.WithStack(err)
		}

		return recalculateVersionWordCount(ctx, tx, opts.VersionID)
	})
	if err != nil {
		return nil, errors.WithStack(err)
	}

	return chapter, nil
}

func (svc *Service) RetrieveChapter(ctx context.Context, id string) (*models.Chapter, error) {
	chapter := &models.Chapter{}

	err := svc.db.NewSelect().Model(chapter).Where("c.id = ?", id).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errcodes.NotFound("Chapter")
	}
	if err != nil {
		return nil, errors.WithStack(err)
	}

	return chapter, nil
}

func (svc *Service) ListChapters(ctx context.Context, versionID string) ([]*models.Chapter, error) {
	chapters := []*models.Chapter{}

	err := svc.db.
		NewSelect().
		Model(&chapters).
		Where("c.version_id = ?", versionID).
		Order("c.sort_order ASC", "c.created_at ASC").
		Scan(ctx)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	return chapters, nil
}

type UpdateChapterOptions struct {
	Title   *string
	Content *string
}

func (svc *Service) UpdateChapter(ctx context.Context, id string, opts UpdateChapterOptions) (*models.Chapter, error) {
	chapter, err := svc.RetrieveChapter(ctx, id)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	if opts.Title != nil {
		chapter.Title = *opts.Title
	}
	if opts.Content != nil {
		chapter.Content = opts.Content
		chapter.WordCount = countWords(opts.Content)
	}

	chapter.MarkDirty()
	chapter.UpdatedAt = time.Now()

	err = svc.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		_, err := tx.
			NewUpdate().
			Model(chapter).
			Column("title", "content", "word_count", "sync_state", "updated_at").
			WherePK().
			Exec(ctx)
		if err != nil {
			return errors.WithStack(err)
		}

		return recalculateVersionWordCount(ctx, tx, chapter.VersionID)
	})
	if err != nil {
		return nil, errors.WithStack(err)
	}

	return chapter, nil
}

// ReorderChapters rewrites the sort order of a version's chapters to match the
// given id list, which must cover exactly the chapters the version has.
func (svc *Service) ReorderChapters(ctx context.Context, versionID string, ids []string) ([]*models.Chapter, error) {
	chapters, err := svc.ListChapters(ctx, versionID)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	byID := make(map[string]*models.Chapter, len(chapters))
	for _, chapter := range chapters {
		byID[chapter.ID] = chapter
	}
	if len(ids) != len(chapters) {
		return nil, errcodes.ValidationError("Reorder must list every chapter of the version exactly once.")
	}
	for _, id := range ids {
		if _, ok := byID[id]; !ok {
			return nil, errcodes.ValidationError("Chapter " + id + " does not belong to this version.")
		}
	}

	err = svc.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		now := time.Now()
		for i, id := range ids {
			chapter := byID[id]
			if chapter.SortOrder == i {
				continue
			}
			chapter.SortOrder = i
			chapter.MarkDirty()
			chapter.UpdatedAt = now

			_, err := tx.
				NewUpdate().
				Model(chapter).
				Column("sort_order", "sync_state", "updated_at").
				WherePK().
				Exec(ctx)
			if err != nil {
				return errors.WithStack(err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, errors.WithStack(err)
	}

	return svc.ListChapters(ctx, versionID)
}

func (svc *Service) DeleteChapter(ctx context.Context, id string) error {
	chapter, err := svc.RetrieveChapter(ctx, id)
	if err != nil {
		return errors.WithStack(err)
	}

	if err := svc.assetService.UnlinkEntity(ctx, models.EntityTypeChapter, chapter.ID); err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(svc.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		if _, err := tx.NewDelete().Model(chapter).WherePK().Exec(ctx); err != nil {
			return errors.WithStack(err)
		}
		return recalculateVersionWordCount(ctx, tx, chapter.VersionID)
	}))
}

// recalculateVersionWordCount keeps the version's denormalized total in step
// with its chapters. The total is part of the version's synced payload, so the
// version goes dirty like any other edit; a conflicted version stays parked,
// the same rule MarkDirty applies.
func recalculateVersionWordCount(ctx context.Context, tx bun.Tx, versionID string) error {
	total := 0
	err := tx.
		NewSelect().
		Model((*models.Chapter)(nil)).
		ColumnExpr("COALESCE(SUM(word_count), 0)").
		Where("version_id = ?", versionID).
		Scan(ctx, &total)
	if err != nil {
		return errors.WithStack(err)
	}

	_, err = tx.
		NewUpdate().
		Model((*models.Version)(nil)).
		Set("word_count = ?", total).
		Set("sync_state = CASE WHEN sync_state = ? THEN sync_state ELSE ? END", models.SyncStateConflict, models.SyncStateDirty).
		Set("updated_at = ?", time.Now()).
		Where("id = ?", versionID).
		Exec(ctx)
	return errors.WithStack(err)
}

// countWords approximates the word count of a rich-text body. Good enough for
// progress tracking; not a linguistic tokenizer.
func countWords(content *string) int {
	if content == nil {
		return 0
	}
	return len(strings.Fields(*content))
}
