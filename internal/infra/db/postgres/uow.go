package postgres

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	appoutbox "travelbooking/internal/app/outbox"
	"travelbooking/internal/app/uow"
	domainbooking "travelbooking/internal/domain/booking"
	domaincatalog "travelbooking/internal/domain/catalog"
	domainuser "travelbooking/internal/domain/user"
)

const (
	sqlStateSerializationFailure = "40001"
	sqlStateDeadlockDetected     = "40P01"
)

var ErrUnitOfWorkNotConfigured = errors.New("postgres: unit of work factory missing pool")

var errStaleVersion = fmt.Errorf("%w: %w", domainbooking.ErrConcurrentUpdate, uow.ErrRetryable)

type Factory struct {
	Pool *pgxpool.Pool
}

func (f Factory) Begin(ctx context.Context, opts uow.TxOptions) (uow.UnitOfWork, error) {
	if f.Pool == nil {
		return nil, ErrUnitOfWorkNotConfigured
	}
	txOpts := pgx.TxOptions{IsoLevel: pgx.ReadCommitted}
	if opts.ReadOnly {
		txOpts.AccessMode = pgx.ReadOnly
	}
	tx, err := f.Pool.BeginTx(ctx, txOpts)
	if err != nil {
		return nil, classify(err)
	}
	return &Unit{tx: tx, readOnly: opts.ReadOnly}, nil
}

// Unit wraps one pgx transaction.
type Unit struct {
	tx       pgx.Tx
	readOnly bool

	mu   sync.Mutex
	done bool
}

func (u *Unit) Bookings() domainbooking.Repository { return bookingRepository{unit: u} }
func (u *Unit) Units() domaincatalog.Catalog       { return catalogView{q: u.tx} }
func (u *Unit) Users() domainuser.Directory        { return userDirectory{q: u.tx} }
func (u *Unit) Outbox() appoutbox.Outbox           { return unitOutbox{unit: u} }

// LockUnit takes a transaction-scoped advisory lock keyed by the unit id.
func (u *Unit) LockUnit(ctx context.Context, id domaincatalog.UnitID) error {
	if err := u.writable(); err != nil {
		return err
	}
	_, err := u.tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtextextended($1, 0))`, string(id))
	return classify(err)
}

func (u *Unit) Commit(ctx context.Context) error {
	if err := u.finish(); err != nil {
		return err
	}
	return classify(u.tx.Commit(ctx))
}

func (u *Unit) Rollback(ctx context.Context) error {
	if err := u.finish(); err != nil {
		return nil
	}
	if err := u.tx.Rollback(ctx); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
		return err
	}
	return nil
}

func (u *Unit) finish() error {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.done {
		return uow.ErrFinished
	}
	u.done = true
	return nil
}

func (u *Unit) writable() error {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.done {
		return uow.ErrFinished
	}
	if u.readOnly {
		return uow.ErrReadOnly
	}
	return nil
}

// classify marks serialization failures and deadlocks as retryable.
func classify(err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case sqlStateSerializationFailure, sqlStateDeadlockDetected:
			return fmt.Errorf("%w: %w", uow.ErrRetryable, err)
		}
	}
	return err
}

var (
	_ uow.UoWFactory = Factory{}
	_ uow.UnitOfWork = (*Unit)(nil)
)
