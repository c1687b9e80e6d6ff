package syncengine

import (
	"bytes"
	"context"
	"database/sql"

	"github.com/pkg/errors"
	"github.com/scrivanobooks/scrivano/pkg/errcodes"
	"github.com/scrivanobooks/scrivano/pkg/models"
	"github.com/segmentio/encoding/json"
	"github.com/uptrace/bun"
)

// nonPayloadKeys are record fields that never cross the wire: identity and
// bookkeeping stay local, only domain fields are synced.
var nonPayloadKeys = []string{
	"id", "created_at", "updated_at",
	"rev_local", "rev_cloud", "sync_state", "conflict_state",
	"versions", "chapters", "characters", "version", "book",
}

func newRecord(entityType string) (models.Syncable, error) {
	switch entityType {
	case models.EntityTypeBook:
		return &models.Book{}, nil
	case models.EntityTypeVersion:
		return &models.Version{}, nil
	case models.EntityTypeChapter:
		return &models.Chapter{}, nil
	case models.EntityTypeCharacter:
		return &models.Character{}, nil
	}
	return nil, errcodes.ValidationError("Unknown entity type " + entityType + ".")
}

func loadRecord(ctx context.Context, db *bun.DB, entityType, entityID string) (models.Syncable, error) {
	rec, err := newRecord(entityType)
	if err != nil {
		return nil, err
	}

	err = db.NewSelect().Model(rec).Where("id = ?", entityID).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errcodes.NotFound("Record")
	}
	if err != nil {
		return nil, errors.WithStack(err)
	}

	return rec, nil
}

func toSyncables[T models.Syncable](rows []T) []models.Syncable {
	recs := make([]models.Syncable, len(rows))
	for i, r := range rows {
		recs[i] = r
	}
	return recs
}

func listRecords(ctx context.Context, db *bun.DB, entityType string, states []models.SyncState) ([]models.Syncable, error) {
	query := func(model interface{}) *bun.SelectQuery {
		q := db.NewSelect().Model(model).Order("created_at ASC")
		if len(states) > 0 {
			q = q.Where("sync_state IN (?)", bun.In(states))
		}
		return q
	}

	switch entityType {
	case models.EntityTypeBook:
		rows := []*models.Book{}
		if err := query(&rows).Scan(ctx); err != nil {
			return nil, errors.WithStack(err)
		}
		return toSyncables(rows), nil
	case models.EntityTypeVersion:
		rows := []*models.Version{}
		if err := query(&rows).Scan(ctx); err != nil {
			return nil, errors.WithStack(err)
		}
		return toSyncables(rows), nil
	case models.EntityTypeChapter:
		rows := []*models.Chapter{}
		if err := query(&rows).Scan(ctx); err != nil {
			return nil, errors.WithStack(err)
		}
		return toSyncables(rows), nil
	case models.EntityTypeCharacter:
		rows := []*models.Character{}
		if err := query(&rows).Scan(ctx); err != nil {
			return nil, errors.WithStack(err)
		}
		return toSyncables(rows), nil
	}

	return nil, errcodes.ValidationError("Unknown entity type " + entityType + ".")
}

// snapshot renders a record's domain fields as a canonical JSON payload. Map
// keys marshal sorted, so two records with equal domain fields always produce
// byte-identical payloads, which is what conflict detection compares.
func snapshot(rec models.Syncable) ([]byte, error) {
	raw, err := json.Marshal(rec)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	fields := map[string]interface{}{}
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, errors.WithStack(err)
	}
	for _, key := range nonPayloadKeys {
		delete(fields, key)
	}

	payload, err := json.Marshal(fields)
	return payload, errors.WithStack(err)
}

// applyPayload overwrites a record's domain fields from a remote payload.
// Identity, timestamps, and sync bookkeeping are untouched.
func applyPayload(rec models.Syncable, payload []byte) error {
	return errors.WithStack(json.Unmarshal(payload, rec))
}

func payloadsEqual(a, b []byte) bool {
	return bytes.Equal(a, b)
}
