package memstore

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// keyedLocks is a per-resource mutex whose acquisition honours context deadlines.
type keyedLocks struct {
	mu    sync.Mutex
	slots map[uuid.UUID]chan struct{}
}

func newKeyedLocks() *keyedLocks {
	return &keyedLocks{slots: make(map[uuid.UUID]chan struct{})}
}

func (k *keyedLocks) slot(id uuid.UUID) chan struct{} {
	k.mu.Lock()
	defer k.mu.Unlock()
	c, ok := k.slots[id]
	if !ok {
		c = make(chan struct{}, 1)
		k.slots[id] = c
	}
	return c
}

func (k *keyedLocks) acquire(ctx context.Context, id uuid.UUID) error {
	select {
	case k.slot(id) <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (k *keyedLocks) release(id uuid.UUID) {
	<-k.slot(id)
}
