package syncengine

import (
	"testing"

	"github.com/scrivanobooks/scrivano/pkg/models"
	"github.com/segmentio/encoding/json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSnapshotExcludesBookkeeping(t *testing.T) {
	t.Parallel()

	rev := "rev-7"
	book := &models.Book{
		ID:    "book-1",
		Title: "The Long Draft",
		SyncFields: models.SyncFields{
			RevLocal:      &rev,
			RevCloud:      &rev,
			SyncState:     models.SyncStateDirty,
			ConflictState: models.ConflictStateNone,
		},
	}

	payload, err := snapshot(book)
	require.NoError(t, err)

	fields := map[string]interface{}{}
	require.NoError(t, json.Unmarshal(payload, &fields))

	assert.Equal(t, "The Long Draft", fields["title"])
	for _, key := range []string{"id", "created_at", "updated_at", "rev_local", "rev_cloud", "sync_state", "conflict_state"} {
		assert.NotContains(t, fields, key)
	}
}

func TestSnapshotIsDeterministic(t *testing.T) {
	t.Parallel()

	author := "A. Writer"
	a := &models.Book{ID: "a", Title: "Same", Author: &author}
	b := &models.Book{ID: "b", Title: "Same", Author: &author, SyncFields: models.SyncFields{SyncState: models.SyncStateDirty}}

	pa, err := snapshot(a)
	require.NoError(t, err)
	pb, err := snapshot(b)
	require.NoError(t, err)

	// Equal domain fields produce equal payloads regardless of bookkeeping.
	assert.True(t, payloadsEqual(pa, pb))
}

func TestApplyPayload(t *testing.T) {
	t.Parallel()

	source := &models.Book{ID: "src", Title: "Renamed Title"}
	payload, err := snapshot(source)
	require.NoError(t, err)

	rev := "rev-3"
	target := &models.Book{
		ID:    "dst",
		Title: "Old Title",
		SyncFields: models.SyncFields{
			RevCloud:  &rev,
			SyncState: models.SyncStateIdle,
		},
	}
	require.NoError(t, applyPayload(target, payload))

	assert.Equal(t, "Renamed Title", target.Title)
	// Identity and bookkeeping survive the overwrite.
	assert.Equal(t, "dst", target.ID)
	assert.Equal(t, models.SyncStateIdle, target.SyncState)
	require.NotNil(t, target.RevCloud)
	assert.Equal(t, "rev-3", *target.RevCloud)
}

func TestNewRecordUnknownType(t *testing.T) {
	t.Parallel()

	_, err := newRecord("widget")
	assert.Error(t, err)
}
