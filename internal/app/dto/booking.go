package dto

import (
	"time"

	domainbooking "travelbooking/internal/domain/booking"
	domainpricing "travelbooking/internal/domain/pricing"
	"travelbooking/internal/domain/shared/money"
)

type MoneyDTO struct {
	Amount   string `json:"amount"`
	Currency string `json:"currency"`
}

type PriceDTO struct {
	Nights            int      `json:"nights"`
	BasePricePerNight MoneyDTO `json:"base_price_per_night"`
	TotalBasePrice    MoneyDTO `json:"total_base_price"`
	ServiceFee        MoneyDTO `json:"service_fee"`
	CleaningFee       MoneyDTO `json:"cleaning_fee"`
	Tax               MoneyDTO `json:"tax"`
	Discount          MoneyDTO `json:"discount"`
	Total             MoneyDTO `json:"total"`
}

type GuestsDTO struct {
	Total    int `json:"total"`
	Adults   int `json:"adults"`
	Children int `json:"children"`
	Infants  int `json:"infants"`
}

type PaymentDTO struct {
	ID            string     `json:"id"`
	Status        string     `json:"status"`
	Amount        MoneyDTO   `json:"amount"`
	Method        string     `json:"method,omitempty"`
	Provider      string     `json:"provider,omitempty"`
	TransactionID string     `json:"transaction_id,omitempty"`
	FailureReason string     `json:"failure_reason,omitempty"`
	RefundAmount  MoneyDTO   `json:"refund_amount"`
	RefundReason  string     `json:"refund_reason,omitempty"`
	PaidAt        *time.Time `json:"paid_at,omitempty"`
	RefundedAt    *time.Time `json:"refunded_at,omitempty"`
}

type BookingDTO struct {
	ID                 string     `json:"id"`
	GuestID            string     `json:"guest_id"`
	UnitID             string     `json:"unit_id"`
	CheckIn            string     `json:"check_in"`
	CheckOut           string     `json:"check_out"`
	Nights             int        `json:"nights"`
	Guests             GuestsDTO  `json:"guests"`
	Status             string     `json:"status"`
	Price              PriceDTO   `json:"price"`
	Payment            PaymentDTO `json:"payment"`
	CancellationPolicy string     `json:"cancellation_policy"`
	CancellationReason string     `json:"cancellation_reason,omitempty"`
	SpecialRequests    string     `json:"special_requests,omitempty"`
	GuestMessage       string     `json:"guest_message,omitempty"`
	CreatedAt          time.Time  `json:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at"`
	ConfirmedAt        *time.Time `json:"confirmed_at,omitempty"`
	CancelledAt        *time.Time `json:"cancelled_at,omitempty"`
	CompletedAt        *time.Time `json:"completed_at,omitempty"`
	Version            int64      `json:"version"`
}

type CancelBookingResult struct {
	Booking BookingDTO `json:"booking"`
	Refund  MoneyDTO   `json:"refund"`
}

type RefundResult struct {
	Booking  BookingDTO `json:"booking"`
	Refunded MoneyDTO   `json:"refunded"`
}

type GuestBookingCollection struct {
	Items []BookingDTO `json:"items"`
}

type QuoteDTO struct {
	UnitID   string   `json:"unit_id"`
	CheckIn  string   `json:"check_in"`
	CheckOut string   `json:"check_out"`
	Guests   int      `json:"guests"`
	Price    PriceDTO `json:"price"`
}

func MapMoney(value money.Money) MoneyDTO {
	if value.Currency == "" {
		return MoneyDTO{Amount: "0.00"}
	}
	return MoneyDTO{Amount: value.Amount.StringFixed(2), Currency: value.Currency}
}

func MapPrice(p domainpricing.PriceBreakdown) PriceDTO {
	return PriceDTO{
		Nights:            p.Nights,
		BasePricePerNight: MapMoney(p.BasePricePerNight),
		TotalBasePrice:    MapMoney(p.TotalBasePrice),
		ServiceFee:        MapMoney(p.ServiceFee),
		CleaningFee:       MapMoney(p.CleaningFee),
		Tax:               MapMoney(p.Tax),
		Discount:          MapMoney(p.Discount),
		Total:             MapMoney(p.Total),
	}
}

func MapBooking(b *domainbooking.Booking) BookingDTO {
	return BookingDTO{
		ID:                 string(b.ID),
		GuestID:            string(b.GuestID),
		UnitID:             string(b.UnitID),
		CheckIn:            b.Stay.Start.Format(time.DateOnly),
		CheckOut:           b.Stay.End.Format(time.DateOnly),
		Nights:             b.Stay.Nights(),
		Guests:             GuestsDTO(b.Guests),
		Status:             string(b.Status),
		Price:              MapPrice(b.Price),
		Payment:            mapPayment(b.Payment),
		CancellationPolicy: string(b.Policy.Type),
		CancellationReason: b.CancellationReason,
		SpecialRequests:    b.SpecialRequests,
		GuestMessage:       b.GuestMessage,
		CreatedAt:          b.CreatedAt,
		UpdatedAt:          b.UpdatedAt,
		ConfirmedAt:        optionalTime(b.ConfirmedAt),
		CancelledAt:        optionalTime(b.CancelledAt),
		CompletedAt:        optionalTime(b.CompletedAt),
		Version:            b.Version,
	}
}

func mapPayment(p domainbooking.Payment) PaymentDTO {
	return PaymentDTO{
		ID:            string(p.ID),
		Status:        string(p.Status),
		Amount:        MapMoney(p.Amount),
		Method:        p.Method,
		Provider:      p.Provider,
		TransactionID: p.TransactionID,
		FailureReason: p.FailureReason,
		RefundAmount:  MapMoney(p.RefundAmount),
		RefundReason:  p.RefundReason,
		PaidAt:        optionalTime(p.PaidAt),
		RefundedAt:    optionalTime(p.RefundedAt),
	}
}

func optionalTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
