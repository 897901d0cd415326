package middleware

import (
	"context"
	"errors"
	"time"

	"travelbooking/internal/app/commands"
	"travelbooking/internal/app/uow"
	"travelbooking/internal/domain/shared/apperr"
)

type TxOptionsProvider func(cmd commands.Command) uow.TxOptions

// RetryPolicy bounds how often a unit is replayed after a retryable failure.
type RetryPolicy struct {
	Attempts int
	Backoff  time.Duration
}

func (p RetryPolicy) attempts() int {
	if p.Attempts < 1 {
		return 1
	}
	return p.Attempts
}

var ErrRetriesExhausted = apperr.New(apperr.KindConflict, "transaction: concurrent writers kept conflicting")

// Transaction runs the command inside a unit of work and commits on success.
// Retryable failures replay the whole command in a fresh unit.
func Transaction(factory uow.UoWFactory, optsProvider TxOptionsProvider, retry RetryPolicy) CommandMiddleware {
	if factory == nil {
		panic("middleware: uow factory required")
	}
	return func(next commands.Bus) commands.Bus {
		return commandFunc(func(ctx context.Context, cmd commands.Command) (any, error) {
			if _, ok := uow.FromContext(ctx); ok {
				return next.Dispatch(ctx, cmd)
			}
			opts := uow.TxOptions{}
			if optsProvider != nil {
				opts = optsProvider(cmd)
			}
			var lastErr error
			for attempt := 0; attempt < retry.attempts(); attempt++ {
				if attempt > 0 && retry.Backoff > 0 {
					select {
					case <-ctx.Done():
						return nil, ctx.Err()
					case <-time.After(retry.Backoff * time.Duration(attempt)):
					}
				}
				res, err := runInUnit(ctx, factory, opts, next, cmd)
				if err == nil {
					return res, nil
				}
				if !errors.Is(err, uow.ErrRetryable) {
					return nil, err
				}
				lastErr = err
			}
			return nil, apperr.Wrap(apperr.KindConflict, ErrRetriesExhausted.Msg, lastErr)
		})
	}
}

func runInUnit(ctx context.Context, factory uow.UoWFactory, opts uow.TxOptions, next commands.Bus, cmd commands.Command) (any, error) {
	unit, err := factory.Begin(ctx, opts)
	if err != nil {
		return nil, err
	}
	execCtx := uow.Bind(ctx, unit)
	committed := false
	defer func() {
		if !committed {
			_ = unit.Rollback(execCtx)
		}
	}()

	res, err := next.Dispatch(execCtx, cmd)
	if err != nil {
		return nil, err
	}
	if err := unit.Commit(execCtx); err != nil {
		return nil, err
	}
	committed = true
	return res, nil
}
