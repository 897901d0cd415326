package memory

import (
	"context"
	"sync"

	domainbooking "travelbooking/internal/domain/booking"
	domaincatalog "travelbooking/internal/domain/catalog"
	domainuser "travelbooking/internal/domain/user"
)

// Store holds committed state for the in-memory driver. Units of work stage their
// writes and apply them here on Commit.
type Store struct {
	mu       sync.RWMutex
	bookings map[domainbooking.BookingID]*domainbooking.Booking
	units    map[domaincatalog.UnitID]*domaincatalog.Unit
	users    map[domainuser.ID]domainuser.Profile
	outbox   []*outboxEntry

	locks *unitLocks
}

func NewStore() *Store {
	return &Store{
		bookings: make(map[domainbooking.BookingID]*domainbooking.Booking),
		units:    make(map[domaincatalog.UnitID]*domaincatalog.Unit),
		users:    make(map[domainuser.ID]domainuser.Profile),
		locks:    newUnitLocks(),
	}
}

// Factory returns a unit of work factory over this store.
func (s *Store) Factory() Factory {
	return Factory{Store: s}
}

// PutUnit inserts or replaces a catalog unit.
func (s *Store) PutUnit(_ context.Context, unit *domaincatalog.Unit) error {
	if unit == nil {
		return domaincatalog.ErrUnitNotFound
	}
	if err := unit.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.units[unit.ID] = cloneUnit(unit)
	return nil
}

// PutUser inserts or replaces a user profile.
func (s *Store) PutUser(_ context.Context, profile domainuser.Profile) error {
	if profile.ID == "" {
		return domainuser.ErrIDRequired
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	profile.Roles = append([]domainuser.Role(nil), profile.Roles...)
	s.users[profile.ID] = profile
	return nil
}

// Booking returns the committed copy of a booking.
func (s *Store) Booking(id domainbooking.BookingID) (*domainbooking.Booking, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.bookings[id]
	if !ok {
		return nil, false
	}
	return b.Clone(), true
}

func (s *Store) Ping(context.Context) error { return nil }

func cloneUnit(u *domaincatalog.Unit) *domaincatalog.Unit {
	if u == nil {
		return nil
	}
	c := *u
	if u.CleaningFee != nil {
		fee := *u.CleaningFee
		c.CleaningFee = &fee
	}
	return &c
}
