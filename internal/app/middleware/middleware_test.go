package middleware

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"travelbooking/internal/app/commands"
	"travelbooking/internal/app/outbox"
	"travelbooking/internal/app/policies"
	"travelbooking/internal/app/uow"
	domainbooking "travelbooking/internal/domain/booking"
	domaincatalog "travelbooking/internal/domain/catalog"
	"travelbooking/internal/domain/shared/apperr"
	domainuser "travelbooking/internal/domain/user"
)

type echoResult struct {
	Value string `json:"value"`
}

type testCommand struct {
	Name  string `validate:"required"`
	IKey  string
	Roles []domainuser.Role
}

func (c testCommand) Key() string            { return "test.command" }
func (c testCommand) IdempotencyKey() string { return c.IKey }
func (c testCommand) ResultPrototype() any   { return &echoResult{} }
func (c testCommand) AllowedRoles() []domainuser.Role {
	return c.Roles
}

type countingBus struct {
	mu    sync.Mutex
	calls int
	fn    func(ctx context.Context, cmd commands.Command) (any, error)
}

func (b *countingBus) Dispatch(ctx context.Context, cmd commands.Command) (any, error) {
	b.mu.Lock()
	b.calls++
	b.mu.Unlock()
	return b.fn(ctx, cmd)
}

type memIdempotency struct {
	mu    sync.Mutex
	items map[string]IdempotencyRecord
}

func (s *memIdempotency) Get(_ context.Context, key string) (IdempotencyRecord, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.items[key]
	return rec, ok, nil
}

func (s *memIdempotency) Save(_ context.Context, rec IdempotencyRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.items == nil {
		s.items = map[string]IdempotencyRecord{}
	}
	if _, ok := s.items[rec.Key]; ok {
		return ErrIdempotencyKeyExists
	}
	s.items[rec.Key] = rec
	return nil
}

func TestIdempotencyReplaysSuccess(t *testing.T) {
	bus := &countingBus{fn: func(context.Context, commands.Command) (any, error) {
		return &echoResult{Value: "done"}, nil
	}}
	wrapped := ChainCommands(bus, Idempotency(&memIdempotency{}, nil))
	cmd := testCommand{Name: "x", IKey: "k-1"}

	first, err := commands.Dispatch[testCommand, *echoResult](context.Background(), wrapped, cmd)
	require.NoError(t, err)
	second, err := commands.Dispatch[testCommand, *echoResult](context.Background(), wrapped, cmd)
	require.NoError(t, err)
	require.Equal(t, first, second)
	require.Equal(t, 1, bus.calls)
}

func TestIdempotencyCachesDomainFailuresOnly(t *testing.T) {
	var fail error = apperr.New(apperr.KindUnavailable, "taken")
	bus := &countingBus{fn: func(context.Context, commands.Command) (any, error) { return nil, fail }}
	wrapped := ChainCommands(bus, Idempotency(&memIdempotency{}, nil))
	ctx := context.Background()

	_, err := wrapped.Dispatch(ctx, testCommand{IKey: "a"})
	require.ErrorIs(t, err, apperr.ErrUnavailable)
	_, err = wrapped.Dispatch(ctx, testCommand{IKey: "a"})
	require.ErrorIs(t, err, apperr.ErrUnavailable)
	require.Equal(t, 1, bus.calls)

	fail = apperr.New(apperr.KindTransient, "db down")
	_, _ = wrapped.Dispatch(ctx, testCommand{IKey: "b"})
	_, _ = wrapped.Dispatch(ctx, testCommand{IKey: "b"})
	require.Equal(t, 3, bus.calls)

	_, _ = wrapped.Dispatch(ctx, testCommand{})
	_, _ = wrapped.Dispatch(ctx, testCommand{})
	require.Equal(t, 5, bus.calls)
}

type fakeUnit struct {
	commitErr  error
	committed  bool
	rolledBack bool
}

func (u *fakeUnit) Bookings() domainbooking.Repository                   { return nil }
func (u *fakeUnit) Units() domaincatalog.Catalog                         { return nil }
func (u *fakeUnit) Users() domainuser.Directory                          { return nil }
func (u *fakeUnit) Outbox() outbox.Outbox                                { return nil }
func (u *fakeUnit) LockUnit(context.Context, domaincatalog.UnitID) error { return nil }
func (u *fakeUnit) Commit(context.Context) error {
	if u.commitErr != nil {
		return u.commitErr
	}
	u.committed = true
	return nil
}
func (u *fakeUnit) Rollback(context.Context) error {
	u.rolledBack = true
	return nil
}

type fakeFactory struct {
	units []*fakeUnit
	next  int
}

func (f *fakeFactory) Begin(context.Context, uow.TxOptions) (uow.UnitOfWork, error) {
	u := f.units[f.next]
	f.next++
	return u, nil
}

func TestTransactionCommitsAndBindsUnit(t *testing.T) {
	unit := &fakeUnit{}
	factory := &fakeFactory{units: []*fakeUnit{unit}}
	bus := &countingBus{fn: func(ctx context.Context, _ commands.Command) (any, error) {
		got, ok := uow.FromContext(ctx)
		require.True(t, ok)
		require.Same(t, unit, got)
		return "ok", nil
	}}
	res, err := ChainCommands(bus, Transaction(factory, nil, RetryPolicy{})).Dispatch(context.Background(), testCommand{})
	require.NoError(t, err)
	require.Equal(t, "ok", res)
	require.True(t, unit.committed)
	require.False(t, unit.rolledBack)
}

func TestTransactionRetriesRetryableFailures(t *testing.T) {
	conflict := errors.Join(domainbooking.ErrConcurrentUpdate, uow.ErrRetryable)
	units := []*fakeUnit{{commitErr: conflict}, {}}
	factory := &fakeFactory{units: units}
	bus := &countingBus{fn: func(context.Context, commands.Command) (any, error) { return "ok", nil }}

	_, err := ChainCommands(bus, Transaction(factory, nil, RetryPolicy{Attempts: 3, Backoff: time.Millisecond})).
		Dispatch(context.Background(), testCommand{})
	require.NoError(t, err)
	require.Equal(t, 2, bus.calls)
	require.True(t, units[0].rolledBack)
	require.True(t, units[1].committed)
}

func TestTransactionGivesUpWithConflict(t *testing.T) {
	conflict := errors.Join(domainbooking.ErrConcurrentUpdate, uow.ErrRetryable)
	factory := &fakeFactory{units: []*fakeUnit{{commitErr: conflict}, {commitErr: conflict}}}
	bus := &countingBus{fn: func(context.Context, commands.Command) (any, error) { return "ok", nil }}

	_, err := ChainCommands(bus, Transaction(factory, nil, RetryPolicy{Attempts: 2})).
		Dispatch(context.Background(), testCommand{})
	kind, ok := apperr.KindOf(err)
	require.True(t, ok)
	require.Equal(t, apperr.KindConflict, kind)
	require.Equal(t, 2, bus.calls)
}

func TestTransactionDoesNotRetryDomainErrors(t *testing.T) {
	unit := &fakeUnit{}
	factory := &fakeFactory{units: []*fakeUnit{unit}}
	bus := &countingBus{fn: func(context.Context, commands.Command) (any, error) {
		return nil, domainbooking.ErrInvalidState
	}}
	_, err := ChainCommands(bus, Transaction(factory, nil, RetryPolicy{Attempts: 3})).Dispatch(context.Background(), testCommand{})
	require.ErrorIs(t, err, domainbooking.ErrInvalidState)
	require.Equal(t, 1, bus.calls)
	require.True(t, unit.rolledBack)
}

func TestValidationReportsFields(t *testing.T) {
	bus := &countingBus{fn: func(context.Context, commands.Command) (any, error) { return nil, nil }}
	_, err := ChainCommands(bus, Validation(NewStructValidator())).Dispatch(context.Background(), testCommand{})
	kind, _ := apperr.KindOf(err)
	require.Equal(t, apperr.KindValidation, kind)
	require.Equal(t, "required", apperr.DetailsOf(err)["Name"])
	require.Zero(t, bus.calls)
}

func TestRoleAuthorizer(t *testing.T) {
	bus := &countingBus{fn: func(context.Context, commands.Command) (any, error) { return nil, nil }}
	wrapped := ChainCommands(bus, Authorization(RoleAuthorizer{}))
	cmd := testCommand{Roles: []domainuser.Role{domainuser.RoleAdmin}}

	_, err := wrapped.Dispatch(context.Background(), cmd)
	require.NoError(t, err)

	guest := policies.WithActor(context.Background(), domainuser.Actor{ID: "g", Roles: []domainuser.Role{domainuser.RoleGuest}})
	_, err = wrapped.Dispatch(guest, cmd)
	require.ErrorIs(t, err, ErrForbiddenRole)

	admin := policies.WithActor(context.Background(), domainuser.Actor{ID: "a", Roles: []domainuser.Role{domainuser.RoleAdmin}})
	_, err = wrapped.Dispatch(admin, cmd)
	require.NoError(t, err)
	require.Equal(t, 2, bus.calls)
}

type flushRecorder struct{ calls int }

func (f *flushRecorder) Flush(context.Context) error {
	f.calls++
	return errors.New("relay offline")
}

func TestOutboxFlushRunsOnSuccessOnly(t *testing.T) {
	flusher := &flushRecorder{}
	var fail error
	bus := &countingBus{fn: func(context.Context, commands.Command) (any, error) { return "ok", fail }}
	wrapped := ChainCommands(bus, OutboxFlush(flusher, nil))

	res, err := wrapped.Dispatch(context.Background(), testCommand{})
	require.NoError(t, err)
	require.Equal(t, "ok", res)
	require.Equal(t, 1, flusher.calls)

	fail = errors.New("boom")
	_, err = wrapped.Dispatch(context.Background(), testCommand{})
	require.Error(t, err)
	require.Equal(t, 1, flusher.calls)
}
