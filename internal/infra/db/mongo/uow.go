package mongo

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readconcern"
	"go.mongodb.org/mongo-driver/mongo/writeconcern"

	appoutbox "travelbooking/internal/app/outbox"
	"travelbooking/internal/app/uow"
	domainbooking "travelbooking/internal/domain/booking"
	domaincatalog "travelbooking/internal/domain/catalog"
	domainuser "travelbooking/internal/domain/user"
)

const (
	// writeConflictCode is the server code for WriteConflict inside a transaction.
	writeConflictCode       = 112
	labelTransientTxn       = "TransientTransactionError"
	labelUnknownCommitState = "UnknownTransactionCommitResult"
)

var ErrUnitOfWorkNotConfigured = errors.New("mongo: unit of work factory missing database")

var errStaleVersion = fmt.Errorf("%w: %w", domainbooking.ErrConcurrentUpdate, uow.ErrRetryable)

// Factory wires Mongo transactions into the generic UnitOfWork interface.
type Factory struct {
	DB *mongo.Database
}

// Begin starts a session with a snapshot transaction. Writers take majority write concern.
func (f Factory) Begin(ctx context.Context, opts uow.TxOptions) (uow.UnitOfWork, error) {
	if f.DB == nil {
		return nil, ErrUnitOfWorkNotConfigured
	}
	session, err := f.DB.Client().StartSession()
	if err != nil {
		return nil, err
	}
	txnOpts := options.Transaction().
		SetReadConcern(readconcern.Snapshot()).
		SetWriteConcern(writeconcern.Majority())
	if err := session.StartTransaction(txnOpts); err != nil {
		session.EndSession(ctx)
		return nil, classify(err)
	}
	return &Unit{db: f.DB, session: session, readOnly: opts.ReadOnly}, nil
}

type Unit struct {
	db       *mongo.Database
	session  mongo.Session
	readOnly bool

	mu   sync.Mutex
	done bool
}

func (u *Unit) Bookings() domainbooking.Repository {
	return bookingRepository{unit: u, col: u.db.Collection(bookingsCollection)}
}

func (u *Unit) Units() domaincatalog.Catalog {
	return catalogView{unit: u, col: u.db.Collection(unitsCollection)}
}

func (u *Unit) Users() domainuser.Directory {
	return userDirectory{unit: u, col: u.db.Collection(usersCollection)}
}

func (u *Unit) Outbox() appoutbox.Outbox {
	return unitOutbox{unit: u, col: u.db.Collection(outboxCollection)}
}

// LockUnit bumps a per-unit counter inside the transaction. A concurrent writer on the
// same unit hits a write conflict and is replayed by the transaction middleware.
func (u *Unit) LockUnit(ctx context.Context, id domaincatalog.UnitID) error {
	if err := u.writable(); err != nil {
		return err
	}
	_, err := u.db.Collection(unitLocksCollection).UpdateOne(u.sessionContext(ctx),
		bson.M{"_id": string(id)},
		bson.M{"$inc": bson.M{"seq": 1}},
		options.Update().SetUpsert(true),
	)
	return classify(err)
}

func (u *Unit) Commit(ctx context.Context) error {
	if err := u.finish(); err != nil {
		return err
	}
	defer u.session.EndSession(ctx)
	return classify(u.session.CommitTransaction(ctx))
}

func (u *Unit) Rollback(ctx context.Context) error {
	if err := u.finish(); err != nil {
		return nil
	}
	defer u.session.EndSession(ctx)
	return u.session.AbortTransaction(ctx)
}

// InjectContext ensures Mongo session is available in context for downstream repos.
func (u *Unit) InjectContext(ctx context.Context) context.Context {
	return mongo.NewSessionContext(ctx, u.session)
}

func (u *Unit) sessionContext(ctx context.Context) context.Context {
	if mongo.SessionFromContext(ctx) == u.session {
		return ctx
	}
	return u.InjectContext(ctx)
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

// classify marks errors after which replaying the whole transaction may succeed.
func classify(err error) error {
	if err == nil {
		return nil
	}
	if retryable(err) {
		return fmt.Errorf("%w: %w", uow.ErrRetryable, err)
	}
	return err
}

func retryable(err error) bool {
	var se mongo.ServerError
	if errors.As(err, &se) {
		if se.HasErrorLabel(labelTransientTxn) || se.HasErrorLabel(labelUnknownCommitState) {
			return true
		}
		if se.HasErrorCode(writeConflictCode) {
			return true
		}
	}
	return false
}

var (
	_ uow.UoWFactory      = Factory{}
	_ uow.UnitOfWork      = (*Unit)(nil)
	_ uow.ContextInjector = (*Unit)(nil)
)
