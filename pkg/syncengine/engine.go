package syncengine

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/robinjoseph08/golib/logger"
	"github.com/scrivanobooks/scrivano/pkg/config"
	"github.com/scrivanobooks/scrivano/pkg/errcodes"
	"github.com/scrivanobooks/scrivano/pkg/models"
	"github.com/scrivanobooks/scrivano/pkg/remote"
	"github.com/uptrace/bun"
)

const (
	ResolveSideLocal = "local"
	ResolveSideCloud = "cloud"
)

var entityTypes = []string{
	models.EntityTypeBook,
	models.EntityTypeVersion,
	models.EntityTypeChapter,
	models.EntityTypeCharacter,
}

// UploadRetrier requeues failed asset uploads. Satisfied by the uploader.
type UploadRetrier interface {
	RetryFailed(ctx context.Context) (int, error)
}

// Engine reconciles structured records with the remote store. It runs one
// cycle per interval: requeue failed uploads, push dirty records, then pull
// remote changes. Conflicting records are parked until someone resolves them.
type Engine struct {
	log logger.Logger

	db       *bun.DB
	remote   remote.Client
	uploads  UploadRetrier
	notifier *Notifier

	interval time.Duration

	kick     chan struct{}
	shutdown chan struct{}
	done     chan struct{}
}

func New(cfg *config.Config, db *bun.DB, remoteClient remote.Client, uploads UploadRetrier) *Engine {
	interval := time.Duration(cfg.UserConfig.SyncIntervalMinutes) * time.Minute
	if interval <= 0 {
		interval = time.Hour
	}

	return &Engine{
		log: logger.New(),

		db:       db,
		remote:   remoteClient,
		uploads:  uploads,
		notifier: NewNotifier(),

		interval: interval,

		kick:     make(chan struct{}, 1),
		shutdown: make(chan struct{}),
		done:     make(chan struct{}),
	}
}

func (e *Engine) Notifier() *Notifier {
	return e.notifier
}

func (e *Engine) Start() {
	go e.run()
}

func (e *Engine) Shutdown() {
	close(e.shutdown)
	<-e.done
}

// SyncNow requests an immediate cycle. It never blocks; if a cycle is already
// queued the request is coalesced into it.
func (e *Engine) SyncNow() {
	select {
	case e.kick <- struct{}{}:
	default:
	}
}

func (e *Engine) run() {
	timer := time.NewTimer(e.interval)

	for {
		select {
		case <-e.shutdown:
			close(e.done)
			return
		case <-e.kick:
		case <-timer.C:
		}

		if err := e.RunCycle(context.Background()); err != nil {
			e.log.Err(err).Error("sync cycle error")
		}
		timer.Reset(e.interval)
	}
}

// RunCycle executes one full sync pass.
func (e *Engine) RunCycle(ctx context.Context) error {
	retried, err := e.uploads.RetryFailed(ctx)
	if err != nil {
		return errors.WithStack(err)
	}
	if retried > 0 {
		e.log.Info("requeued failed uploads", logger.Data{"count": retried})
	}

	if err := e.pushDirty(ctx); err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(e.pullRemote(ctx))
}

func (e *Engine) pushDirty(ctx context.Context) error {
	for _, entityType := range entityTypes {
		recs, err := listRecords(ctx, e.db, entityType, []models.SyncState{models.SyncStateDirty})
		if err != nil {
			return errors.WithStack(err)
		}

		for _, rec := range recs {
			if err := e.pushRecord(ctx, rec); err != nil {
				// One unreachable record shouldn't stop the rest of the pass.
				e.log.Err(err).Warn("push record error", logger.Data{
					"entity_type": rec.EntityType(),
					"entity_id":   rec.EntityID(),
				})
			}
		}
	}
	return nil
}

func (e *Engine) pushRecord(ctx context.Context, rec models.Syncable) error {
	claimed, err := e.transitionState(ctx, rec, models.SyncStateDirty, models.SyncStatePushing)
	if err != nil {
		return errors.WithStack(err)
	}
	if !claimed {
		return nil
	}

	payload, err := snapshot(rec)
	if err != nil {
		return errors.WithStack(err)
	}

	base := ""
	sf := rec.Sync()
	if sf.RevCloud != nil {
		base = *sf.RevCloud
	}

	res, err := e.remote.PushRecord(ctx, rec.EntityType(), rec.EntityID(), payload, base)
	if err != nil {
		// Transient failure: the edit survives as dirty and the next cycle
		// retries it.
		if _, terr := e.transitionState(ctx, rec, models.SyncStatePushing, models.SyncStateDirty); terr != nil {
			return errors.WithStack(terr)
		}
		return errors.WithStack(err)
	}

	if !res.Accepted {
		// The remote moved past our base revision. The local edit is kept
		// verbatim and the record is parked for review.
		sf.SyncState = models.SyncStateConflict
		sf.ConflictState = models.ConflictStateNeedsReview
		finalized, err := e.saveSyncFields(ctx, rec, models.SyncStatePushing)
		if err != nil {
			return errors.WithStack(err)
		}
		if finalized {
			e.notify(rec)
		}
		return nil
	}

	sf.RevLocal = &res.Revision
	sf.RevCloud = &res.Revision
	sf.SyncState = models.SyncStateIdle
	sf.ConflictState = models.ConflictStateNone
	finalized, err := e.saveSyncFields(ctx, rec, models.SyncStatePushing)
	if err != nil {
		return errors.WithStack(err)
	}
	if finalized {
		e.notify(rec)
	}
	return nil
}

func (e *Engine) pullRemote(ctx context.Context) error {
	for _, entityType := range entityTypes {
		// Records mid-push or already in conflict are skipped: the former is
		// transient, the latter waits for resolution.
		recs, err := listRecords(ctx, e.db, entityType, []models.SyncState{
			models.SyncStateIdle,
			models.SyncStateDirty,
		})
		if err != nil {
			return errors.WithStack(err)
		}

		for _, rec := range recs {
			if err := e.pullRecord(ctx, rec); err != nil {
				e.log.Err(err).Warn("pull record error", logger.Data{
					"entity_type": rec.EntityType(),
					"entity_id":   rec.EntityID(),
				})
			}
		}
	}
	return nil
}

func (e *Engine) pullRecord(ctx context.Context, rec models.Syncable) error {
	pulled, err := e.remote.PullRecord(ctx, rec.EntityType(), rec.EntityID())
	if errors.Is(err, remote.ErrNotFound) {
		// The remote hasn't seen this record yet; a push will introduce it.
		return nil
	}
	if err != nil {
		return errors.WithStack(err)
	}

	sf := rec.Sync()
	if sf.RevCloud != nil && *sf.RevCloud == pulled.Revision {
		return nil
	}

	local, err := snapshot(rec)
	if err != nil {
		return errors.WithStack(err)
	}

	wasDirty := sf.SyncState == models.SyncStateDirty
	claimed, err := e.transitionState(ctx, rec, sf.SyncState, models.SyncStatePulling)
	if err != nil || !claimed {
		return errors.WithStack(err)
	}

	if payloadsEqual(local, pulled.Payload) {
		// Same content under a new revision, usually this device's own push
		// seen from another angle. Adopt the revision silently.
		sf.RevLocal = &pulled.Revision
		sf.RevCloud = &pulled.Revision
		sf.SyncState = models.SyncStateIdle
		sf.ConflictState = models.ConflictStateNone
		finalized, err := e.saveSyncFields(ctx, rec, models.SyncStatePulling)
		if err != nil {
			return errors.WithStack(err)
		}
		if finalized {
			e.notify(rec)
		}
		return nil
	}

	if wasDirty {
		// Remote changed and so did we. Applying either side would lose data,
		// so the record is blocked until resolved.
		sf.SyncState = models.SyncStateConflict
		sf.ConflictState = models.ConflictStateBlocked
		finalized, err := e.saveSyncFields(ctx, rec, models.SyncStatePulling)
		if err != nil {
			return errors.WithStack(err)
		}
		if finalized {
			e.notify(rec)
		}
		return nil
	}

	if err := applyPayload(rec, pulled.Payload); err != nil {
		return errors.WithStack(err)
	}
	sf.RevLocal = &pulled.Revision
	sf.RevCloud = &pulled.Revision
	sf.SyncState = models.SyncStateIdle
	sf.ConflictState = models.ConflictStateNone
	finalized, err := e.saveRecord(ctx, rec, models.SyncStatePulling)
	if err != nil {
		return errors.WithStack(err)
	}
	if finalized {
		e.notify(rec)
	}
	return nil
}

// ConflictSummary describes one parked record for the review UI.
type ConflictSummary struct {
	EntityType    string               `json:"entity_type"`
	EntityID      string               `json:"entity_id"`
	ConflictState models.ConflictState `json:"conflict_state"`
}

func (e *Engine) ListConflicts(ctx context.Context) ([]ConflictSummary, error) {
	conflicts := []ConflictSummary{}

	for _, entityType := range entityTypes {
		recs, err := listRecords(ctx, e.db, entityType, []models.SyncState{models.SyncStateConflict})
		if err != nil {
			return nil, errors.WithStack(err)
		}
		for _, rec := range recs {
			conflicts = append(conflicts, ConflictSummary{
				EntityType:    rec.EntityType(),
				EntityID:      rec.EntityID(),
				ConflictState: rec.Sync().ConflictState,
			})
		}
	}

	return conflicts, nil
}

// ResolveConflict unblocks a parked record. Side "local" keeps the local edit
// and rebases it onto the remote's current revision so the next push wins.
// Side "cloud" discards the local edit and applies the remote copy.
func (e *Engine) ResolveConflict(ctx context.Context, entityType, entityID, side string) (models.Syncable, error) {
	rec, err := loadRecord(ctx, e.db, entityType, entityID)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	sf := rec.Sync()
	if sf.SyncState != models.SyncStateConflict {
		return nil, errcodes.Conflict("Record is not in conflict.")
	}

	switch side {
	case ResolveSideCloud:
		pulled, err := e.remote.PullRecord(ctx, entityType, entityID)
		if err != nil {
			return nil, errors.WithStack(err)
		}
		if err := applyPayload(rec, pulled.Payload); err != nil {
			return nil, errors.WithStack(err)
		}
		sf.RevLocal = &pulled.Revision
		sf.RevCloud = &pulled.Revision
		sf.SyncState = models.SyncStateIdle
		sf.ConflictState = models.ConflictStateNone
		finalized, err := e.saveRecord(ctx, rec, models.SyncStateConflict)
		if err != nil {
			return nil, errors.WithStack(err)
		}
		if !finalized {
			// A concurrent resolution beat us to it.
			return nil, errcodes.Conflict("Record is not in conflict.")
		}
	case ResolveSideLocal:
		pulled, err := e.remote.PullRecord(ctx, entityType, entityID)
		if err != nil && !errors.Is(err, remote.ErrNotFound) {
			return nil, errors.WithStack(err)
		}
		if err == nil {
			sf.RevCloud = &pulled.Revision
		}
		sf.SyncState = models.SyncStateDirty
		sf.ConflictState = models.ConflictStateNone
		finalized, err := e.saveSyncFields(ctx, rec, models.SyncStateConflict)
		if err != nil {
			return nil, errors.WithStack(err)
		}
		if !finalized {
			return nil, errcodes.Conflict("Record is not in conflict.")
		}
	default:
		return nil, errcodes.ValidationError("Resolution side must be local or cloud.")
	}

	e.notify(rec)
	return rec, nil
}

// transitionState is the engine's per-record mutex: the conditional update
// only succeeds when the record is still in the expected state, so concurrent
// cycles can't double-process an id.
func (e *Engine) transitionState(ctx context.Context, rec models.Syncable, from, to models.SyncState) (bool, error) {
	if !canTransition(from, to) {
		return false, errors.Errorf("invalid sync transition %s -> %s", from, to)
	}

	res, err := e.db.
		NewUpdate().
		Model(rec).
		Set("sync_state = ?", to).
		Set("updated_at = ?", time.Now()).
		Where("id = ?", rec.EntityID()).
		Where("sync_state = ?", from).
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

	rec.Sync().SyncState = to
	return true, nil
}

// saveSyncFields finalizes a claimed record. The write is conditional on the
// record still being in the claimed state: a service edit that lands while
// the remote call is in flight writes sync_state = dirty directly, and that
// edit must survive for the next cycle instead of being clobbered to idle.
// Returns false when the record moved out from under the claim.
func (e *Engine) saveSyncFields(ctx context.Context, rec models.Syncable, from models.SyncState) (bool, error) {
	sf := rec.Sync()
	res, err := e.db.
		NewUpdate().
		Model(rec).
		Set("rev_local = ?", sf.RevLocal).
		Set("rev_cloud = ?", sf.RevCloud).
		Set("sync_state = ?", sf.SyncState).
		Set("conflict_state = ?", sf.ConflictState).
		Set("updated_at = ?", time.Now()).
		Where("id = ?", rec.EntityID()).
		Where("sync_state = ?", from).
		Exec(ctx)
	if err != nil {
		return false, errors.WithStack(err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return false, errors.WithStack(err)
	}
	return affected > 0, nil
}

// saveRecord writes a full record back, with the same conditional-state
// discipline as saveSyncFields.
func (e *Engine) saveRecord(ctx context.Context, rec models.Syncable, from models.SyncState) (bool, error) {
	res, err := e.db.
		NewUpdate().
		Model(rec).
		Value("updated_at", "?", time.Now()).
		ExcludeColumn("created_at").
		Where("id = ?", rec.EntityID()).
		Where("sync_state = ?", from).
		Exec(ctx)
	if err != nil {
		return false, errors.WithStack(err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return false, errors.WithStack(err)
	}
	return affected > 0, nil
}

func (e *Engine) notify(rec models.Syncable) {
	sf := rec.Sync()
	e.notifier.publish(Event{
		EntityType:    rec.EntityType(),
		EntityID:      rec.EntityID(),
		SyncState:     sf.SyncState,
		ConflictState: sf.ConflictState,
	})
}
