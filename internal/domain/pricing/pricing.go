package pricing

import (
	"errors"

	"github.com/shopspring/decimal"

	"travelbooking/internal/domain/shared/apperr"
	"travelbooking/internal/domain/shared/daterange"
	"travelbooking/internal/domain/shared/money"
)

var (
	ErrCurrencyUnset  = apperr.New(apperr.KindValidation, "pricing: currency must be defined")
	ErrInvalidNights  = apperr.New(apperr.KindValidation, "pricing: nights must be positive")
	ErrInvalidConfig  = apperr.New(apperr.KindValidation, "pricing: invalid fee configuration")
	ErrTotalMismatch  = errors.New("pricing: total does not match components")
	ErrMixedCurrency  = apperr.New(apperr.KindCurrencyMismatch, "pricing: components use different currencies")
	ErrInvalidGuests  = apperr.New(apperr.KindValidation, "pricing: guests must be positive")
	ErrMissingNightly = apperr.New(apperr.KindValidation, "pricing: nightly price required")
)

type CleaningFeeMode string

const (
	CleaningPerStay  CleaningFeeMode = "PER_STAY"
	CleaningPerNight CleaningFeeMode = "PER_NIGHT"
)

// PriceBreakdown is the priced snapshot stored on a booking. All components share one currency.
type PriceBreakdown struct {
	Nights            int         `json:"nights"`
	BasePricePerNight money.Money `json:"base_price_per_night"`
	TotalBasePrice    money.Money `json:"total_base_price"`
	ServiceFee        money.Money `json:"service_fee"`
	CleaningFee       money.Money `json:"cleaning_fee"`
	Tax               money.Money `json:"tax"`
	Discount          money.Money `json:"discount"`
	Total             money.Money `json:"total"`
}

func (p PriceBreakdown) Currency() string {
	return p.Total.Currency
}

// Validate checks currencies agree and the total equals the sum of its parts.
func (p PriceBreakdown) Validate() error {
	if p.BasePricePerNight.Currency == "" {
		return ErrCurrencyUnset
	}
	if p.Nights <= 0 {
		return ErrInvalidNights
	}
	currency := p.BasePricePerNight.Currency
	for _, m := range []money.Money{p.TotalBasePrice, p.ServiceFee, p.CleaningFee, p.Tax, p.Discount, p.Total} {
		if m.Currency != currency {
			return ErrMixedCurrency
		}
	}
	gross, err := sum(p.TotalBasePrice, p.ServiceFee, p.CleaningFee, p.Tax)
	if err != nil {
		return err
	}
	expected, err := gross.Sub(p.Discount)
	if err != nil {
		return err
	}
	if !expected.Amount.Equal(p.Total.Amount) {
		return ErrTotalMismatch
	}
	return nil
}

// FeeConfig holds platform fee rules. Amounts are expressed in the unit's currency.
type FeeConfig struct {
	ServiceFeeRate    decimal.Decimal
	ServiceFeeMin     decimal.Decimal
	ServiceFeeMax     decimal.Decimal
	TaxRate           decimal.Decimal
	CleaningFee       decimal.Decimal
	CleaningFeeMode   CleaningFeeMode
	LongStayMinNights int
	LongStayPercent   decimal.Decimal
}

func DefaultFeeConfig() FeeConfig {
	return FeeConfig{
		ServiceFeeRate:  decimal.RequireFromString("0.10"),
		ServiceFeeMin:   decimal.NewFromInt(5),
		ServiceFeeMax:   decimal.NewFromInt(500),
		TaxRate:         decimal.RequireFromString("0.08"),
		CleaningFee:     decimal.NewFromInt(25),
		CleaningFeeMode: CleaningPerStay,
	}
}

func (c FeeConfig) Validate() error {
	if c.ServiceFeeRate.IsNegative() || c.TaxRate.IsNegative() || c.CleaningFee.IsNegative() {
		return ErrInvalidConfig
	}
	if c.ServiceFeeMin.IsNegative() || c.ServiceFeeMax.IsNegative() {
		return ErrInvalidConfig
	}
	if c.ServiceFeeMax.IsPositive() && c.ServiceFeeMax.LessThan(c.ServiceFeeMin) {
		return ErrInvalidConfig
	}
	if c.LongStayPercent.IsNegative() || c.LongStayPercent.GreaterThan(decimal.NewFromInt(100)) {
		return ErrInvalidConfig
	}
	switch c.CleaningFeeMode {
	case "", CleaningPerStay, CleaningPerNight:
	default:
		return ErrInvalidConfig
	}
	return nil
}

type QuoteInput struct {
	UnitID            string
	BasePricePerNight money.Money
	// CleaningFee overrides the configured cleaning fee when set.
	CleaningFee *money.Money
	Stay        daterange.DateRange
	Guests      int
}

type Calculator struct {
	cfg FeeConfig
}

func NewCalculator(cfg FeeConfig) (*Calculator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.CleaningFeeMode == "" {
		cfg.CleaningFeeMode = CleaningPerStay
	}
	return &Calculator{cfg: cfg}, nil
}

func (c *Calculator) Config() FeeConfig {
	return c.cfg
}

// Quote prices a stay:
//
//	total = base + service + cleaning + tax - discount
//
// where service is clamped to [min, max] and tax applies to base plus service.
func (c *Calculator) Quote(input QuoteInput) (PriceBreakdown, error) {
	nightly := input.BasePricePerNight
	if nightly.Currency == "" {
		return PriceBreakdown{}, ErrMissingNightly
	}
	if input.Guests <= 0 {
		return PriceBreakdown{}, ErrInvalidGuests
	}
	nights := input.Stay.Nights()
	if nights < 1 {
		return PriceBreakdown{}, ErrInvalidNights
	}
	currency := nightly.Currency

	base, err := nightly.MultiplyInt(int64(nights))
	if err != nil {
		return PriceBreakdown{}, err
	}
	service, err := c.serviceFee(base)
	if err != nil {
		return PriceBreakdown{}, err
	}
	cleaning, err := c.cleaningFee(input.CleaningFee, currency, nights)
	if err != nil {
		return PriceBreakdown{}, err
	}
	taxable, err := base.Add(service)
	if err != nil {
		return PriceBreakdown{}, err
	}
	tax, err := taxable.Multiply(c.cfg.TaxRate)
	if err != nil {
		return PriceBreakdown{}, err
	}
	gross, err := sum(base, service, cleaning, tax)
	if err != nil {
		return PriceBreakdown{}, err
	}
	discount, err := c.discount(base, nights)
	if err != nil {
		return PriceBreakdown{}, err
	}
	if over, err := discount.GreaterThan(gross); err != nil {
		return PriceBreakdown{}, err
	} else if over {
		discount = gross
	}
	total, err := gross.Sub(discount)
	if err != nil {
		return PriceBreakdown{}, err
	}
	return PriceBreakdown{
		Nights:            nights,
		BasePricePerNight: nightly,
		TotalBasePrice:    base,
		ServiceFee:        service,
		CleaningFee:       cleaning,
		Tax:               tax,
		Discount:          discount,
		Total:             total,
	}, nil
}

func (c *Calculator) serviceFee(base money.Money) (money.Money, error) {
	fee, err := base.Multiply(c.cfg.ServiceFeeRate)
	if err != nil {
		return money.Money{}, err
	}
	amount := fee.Amount
	if amount.LessThan(c.cfg.ServiceFeeMin) {
		amount = c.cfg.ServiceFeeMin
	}
	if c.cfg.ServiceFeeMax.IsPositive() && amount.GreaterThan(c.cfg.ServiceFeeMax) {
		amount = c.cfg.ServiceFeeMax
	}
	return money.New(amount, base.Currency)
}

func (c *Calculator) cleaningFee(override *money.Money, currency string, nights int) (money.Money, error) {
	var fee money.Money
	if override != nil {
		if override.Currency != currency {
			return money.Money{}, money.ErrCurrencyMismatch
		}
		fee = *override
	} else {
		m, err := money.New(c.cfg.CleaningFee, currency)
		if err != nil {
			return money.Money{}, err
		}
		fee = m
	}
	if c.cfg.CleaningFeeMode == CleaningPerNight {
		return fee.MultiplyInt(int64(nights))
	}
	return fee, nil
}

func (c *Calculator) discount(base money.Money, nights int) (money.Money, error) {
	if c.cfg.LongStayMinNights <= 0 || nights < c.cfg.LongStayMinNights || !c.cfg.LongStayPercent.IsPositive() {
		return money.Zero(base.Currency), nil
	}
	return base.Percentage(c.cfg.LongStayPercent)
}

func sum(first money.Money, rest ...money.Money) (money.Money, error) {
	total := first
	for _, m := range rest {
		next, err := total.Add(m)
		if err != nil {
			return money.Money{}, err
		}
		total = next
	}
	return total, nil
}
