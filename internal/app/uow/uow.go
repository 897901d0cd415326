package uow

import (
	"context"
	"errors"

	"travelbooking/internal/app/outbox"
	domainbooking "travelbooking/internal/domain/booking"
	domaincatalog "travelbooking/internal/domain/catalog"
	domainuser "travelbooking/internal/domain/user"
)

var (
	ErrUnitOfWorkMissing = errors.New("uow: unit of work missing from context")
	// ErrRetryable marks failures after which the whole unit may be replayed, such as
	// write conflicts and serialization failures.
	ErrRetryable = errors.New("uow: transaction should be retried")
	ErrReadOnly  = errors.New("uow: unit of work is read-only")
	ErrFinished  = errors.New("uow: unit of work already finished")
)

// UnitOfWork coordinates repositories inside a transaction boundary.
type UnitOfWork interface {
	Bookings() domainbooking.Repository
	Units() domaincatalog.Catalog
	Users() domainuser.Directory
	Outbox() outbox.Outbox

	// LockUnit serializes writers for one unit until Commit or Rollback.
	LockUnit(ctx context.Context, id domaincatalog.UnitID) error

	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// UoWFactory starts unit of work instances.
type UoWFactory interface {
	Begin(ctx context.Context, opts TxOptions) (UnitOfWork, error)
}

type TxOptions struct {
	ReadOnly bool
}

// ContextInjector is implemented by units that carry driver state (sessions, transactions) in context.
type ContextInjector interface {
	InjectContext(ctx context.Context) context.Context
}

type ctxKey struct{}

func ContextWithUnitOfWork(ctx context.Context, unit UnitOfWork) context.Context {
	return context.WithValue(ctx, ctxKey{}, unit)
}

func FromContext(ctx context.Context) (UnitOfWork, bool) {
	val := ctx.Value(ctxKey{})
	if val == nil {
		return nil, false
	}
	unit, ok := val.(UnitOfWork)
	return unit, ok
}

// Bind returns ctx carrying the unit and any driver state it needs.
func Bind(ctx context.Context, unit UnitOfWork) context.Context {
	if injector, ok := unit.(ContextInjector); ok {
		ctx = injector.InjectContext(ctx)
	}
	return ContextWithUnitOfWork(ctx, unit)
}
