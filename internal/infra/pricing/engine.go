package pricing

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"travelbooking/internal/app/policies"
	domaincatalog "travelbooking/internal/domain/catalog"
	domainpricing "travelbooking/internal/domain/pricing"
	"travelbooking/internal/domain/shared/daterange"
)

var ErrUnitMissing = errors.New("pricing: unit required")

// Engine prices stays with the fee calculator, switching service fee bounds per currency.
type Engine struct {
	base   domainpricing.FeeConfig
	clamps ClampConfig
	logger *slog.Logger

	mu          sync.Mutex
	calculators map[string]*domainpricing.Calculator
}

func NewEngine(base domainpricing.FeeConfig, clamps ClampConfig, logger *slog.Logger) (*Engine, error) {
	fallback, err := domainpricing.NewCalculator(base)
	if err != nil {
		return nil, err
	}
	return &Engine{
		base:        base,
		clamps:      clamps,
		logger:      logger,
		calculators: map[string]*domainpricing.Calculator{"": fallback},
	}, nil
}

func (e *Engine) Quote(ctx context.Context, unit *domaincatalog.Unit, stay daterange.DateRange, guests int) (domainpricing.PriceBreakdown, error) {
	if unit == nil {
		return domainpricing.PriceBreakdown{}, ErrUnitMissing
	}
	calc := e.calculatorFor(unit.BasePrice.Currency)
	breakdown, err := calc.Quote(domainpricing.QuoteInput{
		UnitID:            string(unit.ID),
		BasePricePerNight: unit.BasePrice,
		CleaningFee:       unit.CleaningFee,
		Stay:              stay,
		Guests:            guests,
	})
	if err != nil {
		return domainpricing.PriceBreakdown{}, err
	}
	if e.logger != nil {
		e.logger.DebugContext(ctx, "stay priced",
			"unit_id", unit.ID, "nights", breakdown.Nights, "total", breakdown.Total.String())
	}
	return breakdown, nil
}

func (e *Engine) calculatorFor(currency string) *domainpricing.Calculator {
	rng, ok := e.clamps.rangeFor(currency)
	if !ok {
		return e.calculators[""]
	}
	key := NormalizeCurrency(currency)
	e.mu.Lock()
	defer e.mu.Unlock()
	if calc, ok := e.calculators[key]; ok {
		return calc
	}
	cfg := e.base
	cfg.ServiceFeeMin = rng.Min
	cfg.ServiceFeeMax = rng.Max
	calc, err := domainpricing.NewCalculator(cfg)
	if err != nil {
		if e.logger != nil {
			e.logger.Warn("service fee clamp rejected, using defaults", "currency", key, "error", err)
		}
		calc = e.calculators[""]
	}
	e.calculators[key] = calc
	return calc
}

var _ policies.PricingPort = (*Engine)(nil)
