package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"travelbooking/internal/app/commands"
	"travelbooking/internal/domain/shared/apperr"
)

// IdempotentCommand must be implemented by commands that want idempotency guarantees.
type IdempotentCommand interface {
	commands.Command
	IdempotencyKey() string
	ResultPrototype() any // should match the handler result type
}

type IdempotencyRecord struct {
	Key        string
	Payload    []byte
	ErrorKind  string
	Error      string
	OccurredAt time.Time
}

// ErrIdempotencyKeyExists is returned by stores when a record for the key is already present.
var ErrIdempotencyKeyExists = errors.New("middleware: idempotency key already recorded")

type IdempotencyStore interface {
	Get(ctx context.Context, key string) (IdempotencyRecord, bool, error)
	// Save inserts rec; it must not overwrite an existing key.
	Save(ctx context.Context, rec IdempotencyRecord) error
}

type ResultCodec interface {
	Encode(v any) ([]byte, error)
	Decode(data []byte, out any) error
}

type JSONResultCodec struct{}

func (JSONResultCodec) Encode(v any) ([]byte, error) {
	return json.Marshal(v)
}

func (JSONResultCodec) Decode(data []byte, out any) error {
	return json.Unmarshal(data, out)
}

var errMissingPrototype = errors.New("middleware: idempotent command requires result prototype")

// Idempotency replays the stored outcome for a repeated key. Transient and conflict
// failures are not stored so the caller may retry them.
func Idempotency(store IdempotencyStore, codec ResultCodec) CommandMiddleware {
	if store == nil {
		panic("middleware: idempotency store required")
	}
	if codec == nil {
		codec = JSONResultCodec{}
	}
	return func(next commands.Bus) commands.Bus {
		return commandFunc(func(ctx context.Context, cmd commands.Command) (any, error) {
			idCmd, ok := cmd.(IdempotentCommand)
			if !ok || idCmd.IdempotencyKey() == "" {
				return next.Dispatch(ctx, cmd)
			}
			key := cmd.Key() + ":" + idCmd.IdempotencyKey()
			rec, found, err := store.Get(ctx, key)
			if err != nil {
				return nil, err
			}
			if found {
				return replay(rec, idCmd, codec)
			}

			result, err := next.Dispatch(ctx, cmd)
			record := IdempotencyRecord{Key: key, OccurredAt: time.Now().UTC()}
			if err != nil {
				kind, classified := apperr.KindOf(err)
				if !classified || kind == apperr.KindTransient || kind == apperr.KindConflict {
					return nil, err
				}
				record.ErrorKind = string(kind)
				record.Error = err.Error()
				if saveErr := store.Save(ctx, record); saveErr != nil {
					if errors.Is(saveErr, ErrIdempotencyKeyExists) {
						return replayExisting(ctx, store, key, idCmd, codec, err)
					}
					return nil, errors.Join(err, saveErr)
				}
				return nil, err
			}
			if result != nil {
				payload, encErr := codec.Encode(result)
				if encErr != nil {
					return nil, encErr
				}
				record.Payload = payload
			}
			if saveErr := store.Save(ctx, record); saveErr != nil {
				if errors.Is(saveErr, ErrIdempotencyKeyExists) {
					return replayExisting(ctx, store, key, idCmd, codec, saveErr)
				}
				return nil, saveErr
			}
			return result, nil
		})
	}
}

// replayExisting serves the outcome of a concurrent request with the same key, which finished first.
func replayExisting(ctx context.Context, store IdempotencyStore, key string, cmd IdempotentCommand, codec ResultCodec, fallback error) (any, error) {
	existing, ok, err := store.Get(ctx, key)
	if err != nil || !ok {
		return nil, fallback
	}
	return replay(existing, cmd, codec)
}

func replay(rec IdempotencyRecord, cmd IdempotentCommand, codec ResultCodec) (any, error) {
	if rec.Error != "" {
		return nil, &apperr.Error{Kind: apperr.Kind(rec.ErrorKind), Msg: rec.Error}
	}
	proto := cmd.ResultPrototype()
	if proto == nil {
		return nil, errMissingPrototype
	}
	if len(rec.Payload) == 0 {
		return nil, nil
	}
	if err := codec.Decode(rec.Payload, proto); err != nil {
		return nil, err
	}
	return proto, nil
}
