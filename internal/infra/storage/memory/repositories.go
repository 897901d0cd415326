package memory

import (
	"context"

	appoutbox "travelbooking/internal/app/outbox"
	domainbooking "travelbooking/internal/domain/booking"
	domaincatalog "travelbooking/internal/domain/catalog"
	domainuser "travelbooking/internal/domain/user"
)

type bookingRepository struct {
	unit *Unit
}

func (r bookingRepository) ByID(_ context.Context, id domainbooking.BookingID) (*domainbooking.Booking, error) {
	u := r.unit
	u.mu.Lock()
	staged, ok := u.staged[id]
	u.mu.Unlock()
	if ok {
		return staged.Clone(), nil
	}
	if b, ok := u.store.Booking(id); ok {
		return b, nil
	}
	return nil, domainbooking.ErrBookingNotFound.WithDetail("booking_id", string(id))
}

// Save stages b when its version matches what this unit last saw, then bumps b.Version.
func (r bookingRepository) Save(_ context.Context, b *domainbooking.Booking) error {
	if b == nil {
		return domainbooking.ErrBookingNotFound
	}
	u := r.unit
	u.mu.Lock()
	defer u.mu.Unlock()
	if err := u.writable(); err != nil {
		return err
	}

	current, staged := u.staged[b.ID]
	if !staged {
		u.store.mu.RLock()
		committed, ok := u.store.bookings[b.ID]
		u.store.mu.RUnlock()
		if ok {
			current = committed
		}
	}
	switch {
	case current == nil && b.Version != 0:
		return errStaleVersion
	case current != nil && current.Version != b.Version:
		return errStaleVersion
	}
	if !staged {
		u.base[b.ID] = b.Version
	}
	b.Version++
	u.staged[b.ID] = b.Clone()
	return nil
}

func (r bookingRepository) ListNonTerminalByUnit(_ context.Context, unitID domaincatalog.UnitID) ([]*domainbooking.Booking, error) {
	return r.collect(func(b *domainbooking.Booking) bool {
		return b.UnitID == unitID && b.Status.Blocking()
	}), nil
}

func (r bookingRepository) ListByGuest(_ context.Context, guestID domainuser.ID) ([]*domainbooking.Booking, error) {
	return r.collect(func(b *domainbooking.Booking) bool {
		return b.GuestID == guestID
	}), nil
}

func (r bookingRepository) collect(match func(*domainbooking.Booking) bool) []*domainbooking.Booking {
	u := r.unit
	u.mu.Lock()
	staged := make(map[domainbooking.BookingID]*domainbooking.Booking, len(u.staged))
	for id, b := range u.staged {
		staged[id] = b
	}
	u.mu.Unlock()

	var out []*domainbooking.Booking
	u.store.mu.RLock()
	for id, b := range u.store.bookings {
		if _, overridden := staged[id]; overridden {
			continue
		}
		if match(b) {
			out = append(out, b.Clone())
		}
	}
	u.store.mu.RUnlock()
	for _, b := range staged {
		if match(b) {
			out = append(out, b.Clone())
		}
	}
	return out
}

type catalogView struct {
	store *Store
}

func (c catalogView) ByID(_ context.Context, id domaincatalog.UnitID) (*domaincatalog.Unit, error) {
	c.store.mu.RLock()
	defer c.store.mu.RUnlock()
	unit, ok := c.store.units[id]
	if !ok {
		return nil, domaincatalog.ErrUnitNotFound.WithDetail("unit_id", string(id))
	}
	return cloneUnit(unit), nil
}

type userDirectory struct {
	store *Store
}

func (d userDirectory) Exists(_ context.Context, id domainuser.ID) (bool, error) {
	d.store.mu.RLock()
	defer d.store.mu.RUnlock()
	_, ok := d.store.users[id]
	return ok, nil
}

type unitOutbox struct {
	unit *Unit
}

func (o unitOutbox) Add(_ context.Context, record appoutbox.EventRecord) error {
	u := o.unit
	u.mu.Lock()
	defer u.mu.Unlock()
	if err := u.writable(); err != nil {
		return err
	}
	u.events = append(u.events, record)
	return nil
}

var (
	_ domainbooking.Repository = bookingRepository{}
	_ domaincatalog.Catalog    = catalogView{}
	_ domainuser.Directory     = userDirectory{}
	_ appoutbox.Outbox         = unitOutbox{}
)
