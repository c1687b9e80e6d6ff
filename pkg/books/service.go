package books

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

type CreateBookOptions struct {
	Title    string
	Subtitle *string
	Author   *string
	Genre    *string
	Language *string
	Synopsis *string
}

// CreateBook creates a book along with its first version. New records start
// dirty so the next sync cycle introduces them to the remote store.
func (svc *Service) CreateBook(ctx context.Context, opts CreateBookOptions) (*models.Book, error) {
	bookID, err := uuid.NewRandom()
	if err != nil {
		return nil, errors.WithStack(err)
	}
	versionID, err := uuid.NewRandom()
	if err != nil {
		return nil, errors.WithStack(err)
	}

	now := time.Now()
	book := &models.Book{
		ID:        bookID.String(),
		CreatedAt: now,
		UpdatedAt: now,
		Title:     opts.Title,
		Subtitle:  opts.Subtitle,
		Author:    opts.Author,
		Genre:     opts.Genre,
		Language:  opts.Language,
		Synopsis:  opts.Synopsis,
		SyncFields: models.SyncFields{
			SyncState:     models.SyncStateDirty,
			ConflictState: models.ConflictStateNone,
		},
	}
	version := &models.Version{
		ID:        versionID.String(),
		CreatedAt: now,
		UpdatedAt: now,
		BookID:    book.ID,
		Name:      "Draft 1",
		Status:    models.VersionStatusActive,
		SyncFields: models.SyncFields{
			SyncState:     models.SyncStateDirty,
			ConflictState: models.ConflictStateNone,
		},
	}

	err = svc.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		if _, err := tx.NewInsert().Model(book).Exec(ctx); err != nil {
			return errors.WithStack(err)
		}
		_, err := tx.NewInsert().Model(version).Exec(ctx)
		return errors.WithStack(err)
	})
	if err != nil {
		return nil, errors.WithStack(err)
	}

	book.Versions = []*models.Version{version}
	return book, nil
}

type RetrieveBookOptions struct {
	ID              string
	IncludeVersions bool
}

func (svc *Service) RetrieveBook(ctx context.Context, opts RetrieveBookOptions) (*models.Book, error) {
	book := &models.Book{}

	q := svc.db.NewSelect().Model(book).Where("b.id = ?", opts.ID)
	if opts.IncludeVersions {
		q = q.Relation("Versions", func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.Order("created_at ASC")
		})
	}

	err := q.Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errcodes.NotFound("Book")
	}
	if err != nil {
		return nil, errors.WithStack(err)
	}

	return book, nil
}

type ListBooksOptions struct {
	Limit  *int
	Offset *int
}

func (svc *Service) ListBooks(ctx context.Context, opts ListBooksOptions) ([]*models.Book, error) {
	books := []*models.Book{}

	q := svc.db.NewSelect().Model(&books).Order("title ASC", "created_at ASC")
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

	return books, nil
}

type UpdateBookOptions struct {
	Title    *string
	Subtitle *string
	Author   *string
	Genre    *string
	Language *string
	Synopsis *string
}

// UpdateBook applies the given fields and marks the book dirty. Edits to a
// book already in conflict are kept locally but stay parked until resolved.
func (svc *Service) UpdateBook(ctx context.Context, id string, opts UpdateBookOptions) (*models.Book, error) {
	book, err := svc.RetrieveBook(ctx, RetrieveBookOptions{ID: id})
	if err != nil {
		return nil, errors.WithStack(err)
	}

	if opts.Title != nil {
		book.Title = *opts.Title
	}
	if opts.Subtitle != nil {
		book.Subtitle = opts.Subtitle
	}
	if opts.Author != nil {
		book.Author = opts.Author
	}
	if opts.Genre != nil {
		book.Genre = opts.Genre
	}
	if opts.Language != nil {
		book.Language = opts.Language
	}
	if opts.Synopsis != nil {
		book.Synopsis = opts.Synopsis
	}

	book.MarkDirty()
	book.UpdatedAt = time.Now()

	_, err = svc.db.
		NewUpdate().
		Model(book).
		Column("title", "subtitle", "author", "genre", "language", "synopsis", "sync_state", "updated_at").
		WherePK().
		Exec(ctx)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	return book, nil
}

// DeleteBook removes a book and everything under it. Asset links held by the
// book and its descendants are dropped; the assets themselves survive.
func (svc *Service) DeleteBook(ctx context.Context, id string) error {
	book, err := svc.RetrieveBook(ctx, RetrieveBookOptions{ID: id, IncludeVersions: true})
	if err != nil {
		return errors.WithStack(err)
	}

	for _, version := range book.Versions {
		if err := svc.unlinkVersionTree(ctx, version.ID); err != nil {
			return errors.WithStack(err)
		}
	}
	if err := svc.assetService.UnlinkEntity(ctx, models.EntityTypeBook, book.ID); err != nil {
		return errors.WithStack(err)
	}

	_, err = svc.db.NewDelete().Model(book).WherePK().Exec(ctx)
	return errors.WithStack(err)
}

type CreateVersionOptions struct {
	BookID string
	Name   string
}

func (svc *Service) CreateVersion(ctx context.Context, opts CreateVersionOptions) (*models.Version, error) {
	if _, err := svc.RetrieveBook(ctx, RetrieveBookOptions{ID: opts.BookID}); err != nil {
		return nil, errors.WithStack(err)
	}

	id, err := uuid.NewRandom()
	if err != nil {
		return nil, errors.WithStack(err)
	}

	now := time.Now()
	version := &models.Version{
		ID:        id.String(),
		CreatedAt: now,
		UpdatedAt: now,
		BookID:    opts.BookID,
		Name:      opts.Name,
		Status:    models.VersionStatusActive,
		SyncFields: models.SyncFields{
			SyncState:     models.SyncStateDirty,
			ConflictState: models.ConflictStateNone,
		},
	}

	_, err = svc.db.NewInsert().Model(version).Exec(ctx)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	return version, nil
}

func (svc *Service) RetrieveVersion(ctx context.Context, id string) (*models.Version, error) {
	version := &models.Version{}

	err := svc.db.NewSelect().Model(version).Where("v.id = ?", id).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errcodes.NotFound("Version")
	}
	if err != nil {
		return nil, errors.WithStack(err)
	}

	return version, nil
}

func (svc *Service) ListVersions(ctx context.Context, bookID string) ([]*models.Version, error) {
	versions := []*models.Version{}

	err := svc.db.
		NewSelect().
		Model(&versions).
		Where("v.book_id = ?", bookID).
		Order("created_at ASC").
		Scan(ctx)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	return versions, nil
}

type UpdateVersionOptions struct {
	Name   *string
	Status *string
}

func (svc *Service) UpdateVersion(ctx context.Context, id string, opts UpdateVersionOptions) (*models.Version, error) {
	version, err := svc.RetrieveVersion(ctx, id)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	if opts.Name != nil {
		version.Name = *opts.Name
	}
	if opts.Status != nil {
		version.Status = *opts.Status
	}

	version.MarkDirty()
	version.UpdatedAt = time.Now()

	_, err = svc.db.
		NewUpdate().
		Model(version).
		Column("name", "status", "sync_state", "updated_at").
		WherePK().
		Exec(ctx)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	return version, nil
}

func (svc *Service) DeleteVersion(ctx context.Context, id string) error {
	version, err := svc.RetrieveVersion(ctx, id)
	if err != nil {
		return errors.WithStack(err)
	}

	if err := svc.unlinkVersionTree(ctx, version.ID); err != nil {
		return errors.WithStack(err)
	}

	_, err = svc.db.NewDelete().Model(version).WherePK().Exec(ctx)
	return errors.WithStack(err)
}

// unlinkVersionTree drops the asset links held by a version and by the
// chapters and characters under it. Database cascades delete the rows
// themselves; links live in a separate table keyed by entity id, so they need
// explicit cleanup.
func (svc *Service) unlinkVersionTree(ctx context.Context, versionID string) error {
	chapterIDs := []string{}
	err := svc.db.
		NewSelect().
		Model((*models.Chapter)(nil)).
		Column("id").
		Where("version_id = ?", versionID).
		Scan(ctx, &chapterIDs)
	if err != nil {
		return errors.WithStack(err)
	}

	characterIDs := []string{}
	err = svc.db.
		NewSelect().
		Model((*models.Character)(nil)).
		Column("id").
		Where("version_id = ?", versionID).
		Scan(ctx, &characterIDs)
	if err != nil {
		return errors.WithStack(err)
	}

	for _, id := range chapterIDs {
		if err := svc.assetService.UnlinkEntity(ctx, models.EntityTypeChapter, id); err != nil {
			return errors.WithStack(err)
		}
	}
	for _, id := range characterIDs {
		if err := svc.assetService.UnlinkEntity(ctx, models.EntityTypeCharacter, id); err != nil {
			return errors.WithStack(err)
		}
	}

	return errors.WithStack(svc.assetService.UnlinkEntity(ctx, models.EntityTypeVersion, versionID))
}
