package events

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"travelbooking/internal/app/dto"
	"travelbooking/internal/app/policies"
	domainbooking "travelbooking/internal/domain/booking"
)

// Receipt is the archived proof of a settled or refunded payment.
type Receipt struct {
	Kind          string       `json:"kind"`
	EventID       string       `json:"event_id"`
	BookingID     string       `json:"booking_id"`
	PaymentID     string       `json:"payment_id"`
	TransactionID string       `json:"transaction_id,omitempty"`
	Amount        dto.MoneyDTO `json:"amount"`
	Partial       bool         `json:"partial,omitempty"`
	Reason        string       `json:"reason,omitempty"`
	IssuedAt      time.Time    `json:"issued_at"`
}

// ReceiptHandler archives a receipt for every captured payment and refund.
type ReceiptHandler struct {
	Archiver policies.ReceiptArchiver
	Logger   *slog.Logger
}

func (h *ReceiptHandler) Subscribe(d *Dispatcher) {
	d.Subscribe(domainbooking.EventPaymentCompleted, h)
	d.Subscribe(domainbooking.EventPaymentRefunded, h)
}

func (h *ReceiptHandler) Handle(ctx context.Context, evt Event) error {
	var receipt Receipt
	switch evt.Name {
	case domainbooking.EventPaymentCompleted:
		var e domainbooking.PaymentCaptured
		if err := decode(evt, &e); err != nil {
			return err
		}
		receipt = Receipt{
			Kind:          "payment",
			BookingID:     string(e.BookingID),
			PaymentID:     string(e.PaymentID),
			TransactionID: e.TransactionID,
			Amount:        dto.MapMoney(e.Amount),
			IssuedAt:      e.At,
		}
	case domainbooking.EventPaymentRefunded:
		var e domainbooking.PaymentRefundIssued
		if err := decode(evt, &e); err != nil {
			return err
		}
		receipt = Receipt{
			Kind:      "refund",
			BookingID: string(e.BookingID),
			PaymentID: string(e.PaymentID),
			Amount:    dto.MapMoney(e.Amount),
			Partial:   e.Partial,
			Reason:    e.Reason,
			IssuedAt:  e.At,
		}
	default:
		return nil
	}
	receipt.EventID = evt.ID
	doc, err := json.MarshalIndent(receipt, "", "  ")
	if err != nil {
		return err
	}
	location, err := h.Archiver.Archive(ctx, receipt.BookingID, doc)
	if err != nil {
		return err
	}
	if h.Logger != nil {
		h.Logger.InfoContext(ctx, "receipt archived", "booking_id", receipt.BookingID, "kind", receipt.Kind, "location", location)
	}
	return nil
}
