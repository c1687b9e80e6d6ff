package syncengine

import (
	"sync"

	"github.com/scrivanobooks/scrivano/pkg/models"
)

// Event is published whenever the engine changes a record's sync or conflict
// state, so UIs can re-render badges without polling.
type Event struct {
	EntityType    string               `json:"entity_type"`
	EntityID      string               `json:"entity_id"`
	SyncState     models.SyncState     `json:"sync_state"`
	ConflictState models.ConflictState `json:"conflict_state"`
}

type Notifier struct {
	mu   sync.Mutex
	subs map[int]chan Event
	next int
}

func NewNotifier() *Notifier {
	return &Notifier{subs: map[int]chan Event{}}
}

// Subscribe registers a listener. The returned cancel func must be called to
// release the channel.
func (n *Notifier) Subscribe(buffer int) (<-chan Event, func()) {
	n.mu.Lock()
	defer n.mu.Unlock()

	id := n.next
	n.next++

	ch := make(chan Event, buffer)
	n.subs[id] = ch

	cancel := func() {
		n.mu.Lock()
		defer n.mu.Unlock()
		if sub, ok := n.subs[id]; ok {
			delete(n.subs, id)
			close(sub)
		}
	}
	return ch, cancel
}

// publish never blocks: a subscriber with a full buffer misses the event
// rather than stalling the sync cycle.
func (n *Notifier) publish(evt Event) {
	n.mu.Lock()
	defer n.mu.Unlock()

	for _, ch := range n.subs {
		select {
		case ch <- evt:
		default:
		}
	}
}
