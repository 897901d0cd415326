package memory

import (
	"context"
	"errors"
	"fmt"
	"sync"

	appoutbox "travelbooking/internal/app/outbox"
	"travelbooking/internal/app/uow"
	domainbooking "travelbooking/internal/domain/booking"
	domaincatalog "travelbooking/internal/domain/catalog"
	domainuser "travelbooking/internal/domain/user"
)

// Factory opens units of work over a Store.
type Factory struct {
	Store *Store
}

var ErrFactoryMisconfigured = errors.New("memory: unit of work factory misconfigured")

// errStaleVersion is returned when a staged booking lost a race with another writer.
var errStaleVersion = fmt.Errorf("%w: %w", domainbooking.ErrConcurrentUpdate, uow.ErrRetryable)

func (f Factory) Begin(_ context.Context, opts uow.TxOptions) (uow.UnitOfWork, error) {
	if f.Store == nil {
		return nil, ErrFactoryMisconfigured
	}
	return &Unit{
		store:    f.Store,
		readOnly: opts.ReadOnly,
		staged:   make(map[domainbooking.BookingID]*domainbooking.Booking),
		base:     make(map[domainbooking.BookingID]int64),
		held:     make(map[domaincatalog.UnitID]struct{}),
	}, nil
}

// Unit buffers writes until Commit. Reads see committed state overlaid with the unit's own writes.
type Unit struct {
	store    *Store
	readOnly bool

	mu     sync.Mutex
	staged map[domainbooking.BookingID]*domainbooking.Booking
	// base is the committed version each staged booking was read at.
	base   map[domainbooking.BookingID]int64
	events []appoutbox.EventRecord
	held   map[domaincatalog.UnitID]struct{}
	done   bool
}

func (u *Unit) Bookings() domainbooking.Repository { return bookingRepository{unit: u} }
func (u *Unit) Units() domaincatalog.Catalog       { return catalogView{store: u.store} }
func (u *Unit) Users() domainuser.Directory        { return userDirectory{store: u.store} }
func (u *Unit) Outbox() appoutbox.Outbox           { return unitOutbox{unit: u} }

func (u *Unit) LockUnit(ctx context.Context, id domaincatalog.UnitID) error {
	u.mu.Lock()
	if u.done {
		u.mu.Unlock()
		return uow.ErrFinished
	}
	if u.readOnly {
		u.mu.Unlock()
		return uow.ErrReadOnly
	}
	if _, ok := u.held[id]; ok {
		u.mu.Unlock()
		return nil
	}
	u.mu.Unlock()

	if err := u.store.locks.acquire(ctx, id); err != nil {
		return err
	}
	u.mu.Lock()
	u.held[id] = struct{}{}
	u.mu.Unlock()
	return nil
}

func (u *Unit) Commit(context.Context) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.done {
		return uow.ErrFinished
	}
	defer u.finish()

	s := u.store
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, base := range u.base {
		if current, ok := s.bookings[id]; ok {
			if current.Version != base {
				return errStaleVersion
			}
		} else if base != 0 {
			return errStaleVersion
		}
	}
	for id, b := range u.staged {
		s.bookings[id] = b
	}
	for _, rec := range u.events {
		s.outbox = append(s.outbox, newOutboxEntry(rec))
	}
	return nil
}

func (u *Unit) Rollback(context.Context) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.done {
		return nil
	}
	u.finish()
	return nil
}

// finish releases held locks and drops staged state. Callers hold u.mu.
func (u *Unit) finish() {
	for id := range u.held {
		u.store.locks.release(id)
	}
	u.done = true
	u.held = nil
	u.staged = nil
	u.base = nil
	u.events = nil
}

func (u *Unit) writable() error {
	if u.done {
		return uow.ErrFinished
	}
	if u.readOnly {
		return uow.ErrReadOnly
	}
	return nil
}

var (
	_ uow.UoWFactory = Factory{}
	_ uow.UnitOfWork = (*Unit)(nil)
)
