package models

// SyncState tracks where a structured record is in its local-edit/remote-sync
// lifecycle. Transitions are owned by the sync engine; services only ever move
// a record to dirty via MarkDirty.
type SyncState string

const (
	SyncStateIdle     SyncState = "idle"
	SyncStateDirty    SyncState = "dirty"
	SyncStatePushing  SyncState = "pushing"
	SyncStatePulling  SyncState = "pulling"
	SyncStateConflict SyncState = "conflict"
)

// ConflictState tracks whether a detected conflict requires human resolution
// before the record can sync again.
type ConflictState string

const (
	ConflictStateNone        ConflictState = "none"
	ConflictStateNeedsReview ConflictState = "needs_review"
	ConflictStateBlocked     ConflictState = "blocked"
)

const (
	EntityTypeBook      = "book"
	EntityTypeVersion   = "version"
	EntityTypeChapter   = "chapter"
	EntityTypeCharacter = "character"
)

// SyncFields is embedded in every structured record. RevLocal is the last
// remote revision this record's local copy was based on; RevCloud is the last
// revision the remote confirmed. They agree when the record is idle.
type SyncFields struct {
	RevLocal      *string       `json:"rev_local"`
	RevCloud      *string       `json:"rev_cloud"`
	SyncState     SyncState     `bun:",nullzero,default:'idle'" json:"sync_state"`
	ConflictState ConflictState `bun:",nullzero,default:'none'" json:"conflict_state"`
}

// MarkDirty flags the record as locally modified. A record in conflict stays
// in conflict; the edit is kept locally but sync remains blocked until an
// explicit resolution.
func (s *SyncFields) MarkDirty() {
	if s.SyncState == SyncStateConflict {
		return
	}
	s.SyncState = SyncStateDirty
}

// Syncable is implemented by every structured record the sync engine
// reconciles against the remote store.
type Syncable interface {
	EntityType() string
	EntityID() string
	Sync() *SyncFields
}
