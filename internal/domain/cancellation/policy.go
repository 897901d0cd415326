package cancellation

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"travelbooking/internal/domain/shared/apperr"
	"travelbooking/internal/domain/shared/daterange"
	"travelbooking/internal/domain/shared/money"
)

type Type string

const (
	TypeFlexible    Type = "FLEXIBLE"
	TypeModerate    Type = "MODERATE"
	TypeStrict      Type = "STRICT"
	TypeSuperStrict Type = "SUPER_STRICT"
	TypeCustom      Type = "CUSTOM"
)

var (
	ErrUnknownType   = apperr.New(apperr.KindValidation, "cancellation: unknown policy type")
	ErrInvalidPolicy = apperr.New(apperr.KindValidation, "cancellation: invalid policy parameters")
)

// Policy is a tagged parameter set. The refund rule depends only on the parameters.
type Policy struct {
	Type                    Type `json:"type" bson:"type"`
	FreeCancellationDays    int  `json:"free_cancellation_days" bson:"free_cancellation_days"`
	FullRefundBeforeDays    int  `json:"full_refund_before_days" bson:"full_refund_before_days"`
	PartialRefundBeforeDays int  `json:"partial_refund_before_days" bson:"partial_refund_before_days"`
	PartialRefundPercentage int  `json:"partial_refund_percentage" bson:"partial_refund_percentage"`
}

var presets = map[Type]Policy{
	TypeFlexible:    {Type: TypeFlexible, FreeCancellationDays: 1, FullRefundBeforeDays: 1},
	TypeModerate:    {Type: TypeModerate, FreeCancellationDays: 5, FullRefundBeforeDays: 5, PartialRefundBeforeDays: 1, PartialRefundPercentage: 50},
	TypeStrict:      {Type: TypeStrict, FreeCancellationDays: 14, FullRefundBeforeDays: 14, PartialRefundBeforeDays: 7, PartialRefundPercentage: 50},
	TypeSuperStrict: {Type: TypeSuperStrict, FreeCancellationDays: 30, FullRefundBeforeDays: 30, PartialRefundBeforeDays: 14, PartialRefundPercentage: 50},
}

func Flexible() Policy    { return presets[TypeFlexible] }
func Moderate() Policy    { return presets[TypeModerate] }
func Strict() Policy      { return presets[TypeStrict] }
func SuperStrict() Policy { return presets[TypeSuperStrict] }

// PolicyFor returns the preset for a named type. CUSTOM has no preset.
func PolicyFor(t Type) (Policy, error) {
	p, ok := presets[Type(strings.ToUpper(string(t)))]
	if !ok {
		return Policy{}, fmt.Errorf("%w: %q", ErrUnknownType, t)
	}
	return p, nil
}

func (p Policy) Validate() error {
	switch p.Type {
	case TypeFlexible, TypeModerate, TypeStrict, TypeSuperStrict, TypeCustom:
	default:
		return ErrUnknownType
	}
	if p.FreeCancellationDays < 0 || p.FullRefundBeforeDays < 0 || p.PartialRefundBeforeDays < 0 {
		return ErrInvalidPolicy
	}
	if p.PartialRefundPercentage < 0 || p.PartialRefundPercentage > 100 {
		return ErrInvalidPolicy
	}
	return nil
}

// CalculateRefund picks a tier by whole days of notice before check-in.
// Cancelling on or after check-in counts as zero days of notice.
func (p Policy) CalculateRefund(total money.Money, checkIn, cancelledAt time.Time) (money.Money, error) {
	days := daterange.DaysBetween(cancelledAt, checkIn)
	if days < 0 {
		days = 0
	}
	switch {
	case days >= p.FreeCancellationDays, days >= p.FullRefundBeforeDays:
		return total, nil
	case days >= p.PartialRefundBeforeDays:
		return total.Percentage(decimal.NewFromInt(int64(clampPercent(p.PartialRefundPercentage))))
	default:
		return money.Zero(total.Currency), nil
	}
}

func clampPercent(p int) int {
	if p < 0 {
		return 0
	}
	if p > 100 {
		return 100
	}
	return p
}
