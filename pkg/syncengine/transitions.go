package syncengine

import (
	"github.com/scrivanobooks/scrivano/pkg/models"
)

// validTransitions is the full sync lifecycle. Anything not listed here is a
// bug, not a policy choice, so the engine refuses it outright.
var validTransitions = map[models.SyncState][]models.SyncState{
	models.SyncStateIdle:     {models.SyncStateDirty, models.SyncStatePulling},
	models.SyncStateDirty:    {models.SyncStatePushing, models.SyncStatePulling},
	models.SyncStatePushing:  {models.SyncStateIdle, models.SyncStateDirty, models.SyncStateConflict},
	models.SyncStatePulling:  {models.SyncStateIdle, models.SyncStateConflict},
	models.SyncStateConflict: {models.SyncStateIdle, models.SyncStateDirty},
}

func canTransition(from, to models.SyncState) bool {
	for _, next := range validTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}
