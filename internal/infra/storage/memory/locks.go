package memory

import (
	"context"
	"sync"

	domaincatalog "travelbooking/internal/domain/catalog"
)

// unitLocks hands out one exclusive token per catalog unit.
type unitLocks struct {
	mu    sync.Mutex
	slots map[domaincatalog.UnitID]chan struct{}
}

func newUnitLocks() *unitLocks {
	return &unitLocks{slots: make(map[domaincatalog.UnitID]chan struct{})}
}

func (l *unitLocks) slot(id domaincatalog.UnitID) chan struct{} {
	l.mu.Lock()
	defer l.mu.Unlock()
	ch, ok := l.slots[id]
	if !ok {
		ch = make(chan struct{}, 1)
		l.slots[id] = ch
	}
	return ch
}

func (l *unitLocks) acquire(ctx context.Context, id domaincatalog.UnitID) error {
	select {
	case l.slot(id) <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (l *unitLocks) release(id domaincatalog.UnitID) {
	select {
	case <-l.slot(id):
	default:
	}
}
