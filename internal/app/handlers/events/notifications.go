package events

import (
	"context"
	"encoding/json"
	"fmt"

	"travelbooking/internal/app/policies"
	domainbooking "travelbooking/internal/domain/booking"
)

const (
	TemplateBookingRequested = "booking_requested"
	TemplateBookingConfirmed = "booking_confirmed"
	TemplateBookingCancelled = "booking_cancelled"
	TemplatePaymentFailed    = "payment_failed"
	TemplatePaymentRefunded  = "payment_refunded"
)

// NotificationHandler tells hosts and guests about lifecycle changes.
type NotificationHandler struct {
	Notifier policies.Notifier
}

// Subscribe registers the handler for the events it sends messages about.
func (h *NotificationHandler) Subscribe(d *Dispatcher) {
	for _, name := range []string{
		domainbooking.EventBookingRequested,
		domainbooking.EventBookingConfirmed,
		domainbooking.EventBookingCancelled,
		domainbooking.EventPaymentFailed,
		domainbooking.EventPaymentRefunded,
	} {
		d.Subscribe(name, h)
	}
}

func (h *NotificationHandler) Handle(ctx context.Context, evt Event) error {
	switch evt.Name {
	case domainbooking.EventBookingRequested:
		var e domainbooking.BookingRequested
		if err := decode(evt, &e); err != nil {
			return err
		}
		if e.HostID == "" {
			return nil
		}
		return h.Notifier.Send(ctx, e.HostID, TemplateBookingRequested, e)
	case domainbooking.EventBookingConfirmed:
		var e domainbooking.BookingConfirmed
		if err := decode(evt, &e); err != nil {
			return err
		}
		return h.Notifier.Send(ctx, string(e.GuestID), TemplateBookingConfirmed, e)
	case domainbooking.EventBookingCancelled:
		var e domainbooking.BookingCancelled
		if err := decode(evt, &e); err != nil {
			return err
		}
		return h.Notifier.Send(ctx, string(e.GuestID), TemplateBookingCancelled, e)
	case domainbooking.EventPaymentFailed:
		var e domainbooking.PaymentDeclined
		if err := decode(evt, &e); err != nil {
			return err
		}
		return h.Notifier.Send(ctx, "booking:"+string(e.BookingID), TemplatePaymentFailed, e)
	case domainbooking.EventPaymentRefunded:
		var e domainbooking.PaymentRefundIssued
		if err := decode(evt, &e); err != nil {
			return err
		}
		return h.Notifier.Send(ctx, "booking:"+string(e.BookingID), TemplatePaymentRefunded, e)
	}
	return nil
}

func decode(evt Event, out any) error {
	if err := json.Unmarshal(evt.Data, out); err != nil {
		return fmt.Errorf("events: decode %s: %w", evt.Name, err)
	}
	return nil
}
