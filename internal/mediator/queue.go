package mediator

import (
	"context"
	"sync"
)

// roomQueues serializes pipelines per room. The model call is a long
// suspension point; without serialization a second message in the same
// room could read and write room state out of arrival order. Entries are
// refcounted so idle rooms cost nothing.
//
// Blocked acquirers on a channel wake in arrival order, which is exactly
// the ordering guarantee the pipeline needs.
type roomQueues struct {
	mu    sync.Mutex
	rooms map[string]*roomSlot
}

type roomSlot struct {
	busy chan struct{}
	refs int
}

func newRoomQueues() *roomQueues {
	return &roomQueues{rooms: make(map[string]*roomSlot)}
}

// acquire blocks until the room's pipeline slot is free or ctx ends.
// On success the returned release func must be called exactly once.
func (q *roomQueues) acquire(ctx context.Context, roomID string) (func(), error) {
	q.mu.Lock()
	slot, ok := q.rooms[roomID]
	if !ok {
		slot = &roomSlot{busy: make(chan struct{}, 1)}
		q.rooms[roomID] = slot
	}
	slot.refs++
	q.mu.Unlock()

	select {
	case slot.busy <- struct{}{}:
		return func() {
			<-slot.busy
			q.put(roomID, slot)
		}, nil
	case <-ctx.Done():
		q.put(roomID, slot)
		return nil, ctx.Err()
	}
}

func (q *roomQueues) put(roomID string, slot *roomSlot) {
	q.mu.Lock()
	slot.refs--
	if slot.refs == 0 {
		delete(q.rooms, roomID)
	}
	q.mu.Unlock()
}
