package catalog

import (
	"context"
	"errors"
	"strings"

	"travelbooking/internal/domain/cancellation"
	"travelbooking/internal/domain/shared/apperr"
	"travelbooking/internal/domain/shared/money"
)

var (
	ErrUnitNotFound   = apperr.New(apperr.KindNotFound, "catalog: unit not found")
	ErrTitleRequired  = errors.New("catalog: title is required")
	ErrGuestsLimit    = errors.New("catalog: max guests must be at least 1")
	ErrHostRequired   = errors.New("catalog: host is required")
	ErrPriceRequired  = errors.New("catalog: base price must be positive")
	ErrApprovalStatus = errors.New("catalog: unknown approval status")
)

type UnitID string

type ApprovalStatus string

const (
	ApprovalPending  ApprovalStatus = "PENDING"
	ApprovalApproved ApprovalStatus = "APPROVED"
	ApprovalRejected ApprovalStatus = "REJECTED"
)

// Unit is the read-only snapshot of a bookable accommodation owned by the catalog.
type Unit struct {
	ID                 UnitID
	HostID             string
	Title              string
	MaxGuests          int
	BasePrice          money.Money
	CleaningFee        *money.Money
	ApprovalStatus     ApprovalStatus
	CancellationPolicy cancellation.Policy
}

// Catalog resolves units by id. Implementations return ErrUnitNotFound for unknown ids.
type Catalog interface {
	ByID(ctx context.Context, id UnitID) (*Unit, error)
}

// Bookable reports whether guests may request stays at the unit.
func (u *Unit) Bookable() bool {
	return u != nil && u.ApprovalStatus == ApprovalApproved
}

func (u *Unit) Validate() error {
	if strings.TrimSpace(string(u.ID)) == "" {
		return apperr.New(apperr.KindValidation, "catalog: unit id is required")
	}
	if strings.TrimSpace(u.Title) == "" {
		return ErrTitleRequired
	}
	if strings.TrimSpace(u.HostID) == "" {
		return ErrHostRequired
	}
	if u.MaxGuests < 1 {
		return ErrGuestsLimit
	}
	if u.BasePrice.Currency == "" || !u.BasePrice.Amount.IsPositive() {
		return ErrPriceRequired
	}
	if u.CleaningFee != nil && u.CleaningFee.Currency != u.BasePrice.Currency {
		return money.ErrCurrencyMismatch
	}
	switch u.ApprovalStatus {
	case ApprovalPending, ApprovalApproved, ApprovalRejected:
	default:
		return ErrApprovalStatus
	}
	return u.CancellationPolicy.Validate()
}
