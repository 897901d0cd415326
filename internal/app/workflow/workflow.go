package workflow

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"travelbooking/internal/app/commands"
	"travelbooking/internal/app/dto"
	availabilityapp "travelbooking/internal/app/handlers/availability"
	bookingapp "travelbooking/internal/app/handlers/booking"
	"travelbooking/internal/app/middleware"
	"travelbooking/internal/app/outbox"
	"travelbooking/internal/app/policies"
	"travelbooking/internal/app/queries"
	"travelbooking/internal/app/uow"
)

var ErrMisconfigured = errors.New("workflow: unit of work factory and pricing are required")

// Deps are the ports the booking workflow runs against.
type Deps struct {
	UoWFactory  uow.UoWFactory
	Pricing     policies.PricingPort
	Idempotency middleware.IdempotencyStore
	Flusher     outbox.Flusher
	Authorizer  policies.Authorizer
	Encoder     outbox.EventEncoder
	Logger      *slog.Logger
	Retry       middleware.RetryPolicy
	Now         func() time.Time
	NewID       func() string
}

// Workflow exposes the reservation lifecycle as typed operations over the command and query buses.
type Workflow struct {
	Commands commands.Bus
	Queries  queries.Bus
}

func New(deps Deps) (*Workflow, error) {
	if deps.UoWFactory == nil || deps.Pricing == nil {
		return nil, ErrMisconfigured
	}
	encoder := deps.Encoder
	if encoder == nil {
		encoder = outbox.JSONEventEncoder{}
	}
	retry := deps.Retry
	if retry.Attempts < 1 {
		retry = middleware.RetryPolicy{Attempts: 3, Backoff: 10 * time.Millisecond}
	}

	commandBus := commands.NewInMemoryBus()
	create := &bookingapp.CreateBookingHandler{
		Pricing: deps.Pricing,
		Encoder: encoder,
		Logger:  deps.Logger,
		Now:     deps.Now,
		NewID:   deps.NewID,
	}
	commands.RegisterHandler(commandBus, bookingapp.CreateBookingCommand{}.Key(), create)

	transitions := &bookingapp.TransitionHandler{Encoder: encoder, Logger: deps.Logger, Now: deps.Now}
	commands.RegisterHandler(commandBus, bookingapp.ConfirmBookingCommand{}.Key(), transitions.Confirm())
	commands.RegisterHandler(commandBus, bookingapp.CompleteBookingCommand{}.Key(), transitions.Complete())
	commands.RegisterHandler(commandBus, bookingapp.MarkNoShowCommand{}.Key(), transitions.NoShow())

	cancel := &bookingapp.CancelBookingHandler{Authorizer: deps.Authorizer, Encoder: encoder, Logger: deps.Logger, Now: deps.Now}
	commands.RegisterHandler(commandBus, bookingapp.CancelBookingCommand{}.Key(), cancel)

	payments := &bookingapp.PaymentHandler{Encoder: encoder, Logger: deps.Logger, Now: deps.Now}
	commands.RegisterHandler(commandBus, bookingapp.StartPaymentCommand{}.Key(), payments.Start())
	commands.RegisterHandler(commandBus, bookingapp.ProcessPaymentCommand{}.Key(), payments.Process())
	commands.RegisterHandler(commandBus, bookingapp.FailPaymentCommand{}.Key(), payments.Fail())
	commands.RegisterHandler(commandBus, bookingapp.RefundBookingCommand{}.Key(), payments.Refund())

	queryBus := queries.NewInMemoryBus()
	queries.RegisterHandler(queryBus, bookingapp.GetBookingQuery{}.Key(), &bookingapp.GetBookingHandler{UoWFactory: deps.UoWFactory})
	queries.RegisterHandler(queryBus, bookingapp.ListGuestBookingsQuery{}.Key(), &bookingapp.ListGuestBookingsHandler{UoWFactory: deps.UoWFactory})
	queries.RegisterHandler(queryBus, bookingapp.QuotePriceQuery{}.Key(), &bookingapp.QuotePriceHandler{UoWFactory: deps.UoWFactory, Pricing: deps.Pricing})
	queries.RegisterHandler(queryBus, availabilityapp.GetOccupancyQuery{}.Key(), &availabilityapp.GetOccupancyHandler{UoWFactory: deps.UoWFactory})

	validator := middleware.NewStructValidator()
	authorizer := middleware.RoleAuthorizer{}

	var idempotency, flush middleware.CommandMiddleware
	if deps.Idempotency != nil {
		idempotency = middleware.Idempotency(deps.Idempotency, nil)
	}
	if deps.Flusher != nil {
		flush = middleware.OutboxFlush(deps.Flusher, deps.Logger)
	}

	return &Workflow{
		Commands: middleware.ChainCommands(
			commandBus,
			middleware.Validation(validator),
			middleware.Authorization(authorizer),
			middleware.Logging(deps.Logger),
			idempotency,
			flush,
			middleware.Transaction(deps.UoWFactory, nil, retry),
		),
		Queries: middleware.ChainQueries(
			queryBus,
			middleware.QueryValidation(validator),
			middleware.QueryAuthorization(authorizer),
		),
	}, nil
}

func (w *Workflow) CreateBooking(ctx context.Context, cmd bookingapp.CreateBookingCommand) (*dto.BookingDTO, error) {
	return commands.Dispatch[bookingapp.CreateBookingCommand, *dto.BookingDTO](ctx, w.Commands, cmd)
}

func (w *Workflow) ConfirmBooking(ctx context.Context, bookingID string) (*dto.BookingDTO, error) {
	return commands.Dispatch[bookingapp.ConfirmBookingCommand, *dto.BookingDTO](ctx, w.Commands, bookingapp.ConfirmBookingCommand{BookingID: bookingID})
}

// CancelBooking fills the actor from ctx when the command carries none. Cancelling without
// any actor fails; internal callers name an admin actor.
func (w *Workflow) CancelBooking(ctx context.Context, cmd bookingapp.CancelBookingCommand) (*dto.CancelBookingResult, error) {
	if cmd.Actor.ID == "" {
		if actor, ok := policies.ActorFromContext(ctx); ok {
			cmd.Actor = actor
		}
	}
	return commands.Dispatch[bookingapp.CancelBookingCommand, *dto.CancelBookingResult](ctx, w.Commands, cmd)
}

func (w *Workflow) CompleteBooking(ctx context.Context, bookingID string) (*dto.BookingDTO, error) {
	return commands.Dispatch[bookingapp.CompleteBookingCommand, *dto.BookingDTO](ctx, w.Commands, bookingapp.CompleteBookingCommand{BookingID: bookingID})
}

func (w *Workflow) MarkNoShow(ctx context.Context, bookingID string) (*dto.BookingDTO, error) {
	return commands.Dispatch[bookingapp.MarkNoShowCommand, *dto.BookingDTO](ctx, w.Commands, bookingapp.MarkNoShowCommand{BookingID: bookingID})
}

func (w *Workflow) StartPayment(ctx context.Context, cmd bookingapp.StartPaymentCommand) (*dto.BookingDTO, error) {
	return commands.Dispatch[bookingapp.StartPaymentCommand, *dto.BookingDTO](ctx, w.Commands, cmd)
}

func (w *Workflow) ProcessPayment(ctx context.Context, cmd bookingapp.ProcessPaymentCommand) (*dto.BookingDTO, error) {
	return commands.Dispatch[bookingapp.ProcessPaymentCommand, *dto.BookingDTO](ctx, w.Commands, cmd)
}

func (w *Workflow) FailPayment(ctx context.Context, cmd bookingapp.FailPaymentCommand) (*dto.BookingDTO, error) {
	return commands.Dispatch[bookingapp.FailPaymentCommand, *dto.BookingDTO](ctx, w.Commands, cmd)
}

func (w *Workflow) RefundBooking(ctx context.Context, cmd bookingapp.RefundBookingCommand) (*dto.RefundResult, error) {
	return commands.Dispatch[bookingapp.RefundBookingCommand, *dto.RefundResult](ctx, w.Commands, cmd)
}

func (w *Workflow) GetBooking(ctx context.Context, bookingID string) (*dto.BookingDTO, error) {
	return queries.Ask[bookingapp.GetBookingQuery, *dto.BookingDTO](ctx, w.Queries, bookingapp.GetBookingQuery{BookingID: bookingID})
}

func (w *Workflow) ListGuestBookings(ctx context.Context, guestID string) (dto.GuestBookingCollection, error) {
	return queries.Ask[bookingapp.ListGuestBookingsQuery, dto.GuestBookingCollection](ctx, w.Queries, bookingapp.ListGuestBookingsQuery{GuestID: guestID})
}

func (w *Workflow) QuotePrice(ctx context.Context, q bookingapp.QuotePriceQuery) (*dto.QuoteDTO, error) {
	return queries.Ask[bookingapp.QuotePriceQuery, *dto.QuoteDTO](ctx, w.Queries, q)
}

func (w *Workflow) GetOccupancy(ctx context.Context, q availabilityapp.GetOccupancyQuery) (dto.Occupancy, error) {
	return queries.Ask[availabilityapp.GetOccupancyQuery, dto.Occupancy](ctx, w.Queries, q)
}
