package middleware

import (
	"context"
	"log/slog"

	"travelbooking/internal/app/commands"
	"travelbooking/internal/app/outbox"
)

// OutboxFlush nudges the relay once the command's unit has committed. It must sit outside
// Transaction. A failed flush is logged only; the relay's own polling delivers later.
func OutboxFlush(flusher outbox.Flusher, logger *slog.Logger) CommandMiddleware {
	if flusher == nil {
		panic("middleware: outbox flusher required")
	}
	return func(next commands.Bus) commands.Bus {
		return commandFunc(func(ctx context.Context, cmd commands.Command) (any, error) {
			res, err := next.Dispatch(ctx, cmd)
			if err != nil {
				return nil, err
			}
			if err := flusher.Flush(ctx); err != nil && logger != nil {
				logger.WarnContext(ctx, "outbox flush failed", "command", cmd.Key(), "error", err)
			}
			return res, nil
		})
	}
}
