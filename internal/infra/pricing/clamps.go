package pricing

import (
	"encoding/json"
	"log/slog"
	"strings"

	"github.com/shopspring/decimal"
)

// ClampRange bounds the service fee in a single currency. A zero Max leaves it open.
type ClampRange struct {
	Min decimal.Decimal `json:"min"`
	Max decimal.Decimal `json:"max"`
}

// ClampConfig overrides the service fee bounds per currency.
type ClampConfig struct {
	Currencies map[string]ClampRange `json:"currencies"`
}

func DefaultClampConfig() ClampConfig {
	return ClampConfig{
		Currencies: map[string]ClampRange{
			"JPY": {Min: decimal.NewFromInt(500), Max: decimal.NewFromInt(50_000)},
			"RUB": {Min: decimal.NewFromInt(300), Max: decimal.NewFromInt(30_000)},
		},
	}
}

// LoadClampConfig parses SERVICE_FEE_CLAMPS. Invalid input falls back to the defaults.
func LoadClampConfig(raw string, logger *slog.Logger) ClampConfig {
	if strings.TrimSpace(raw) == "" {
		return DefaultClampConfig()
	}
	var cfg ClampConfig
	if err := json.Unmarshal([]byte(raw), &cfg); err != nil {
		if logger != nil {
			logger.Warn("invalid SERVICE_FEE_CLAMPS JSON, using defaults", "error", err)
		}
		return DefaultClampConfig()
	}
	normalized := make(map[string]ClampRange, len(cfg.Currencies))
	for currency, rng := range cfg.Currencies {
		key := NormalizeCurrency(currency)
		if key == "" {
			continue
		}
		if rng.Min.IsNegative() || rng.Max.IsNegative() || (rng.Max.IsPositive() && rng.Max.LessThan(rng.Min)) {
			if logger != nil {
				logger.Warn("ignoring service fee clamp", "currency", key, "min", rng.Min.String(), "max", rng.Max.String())
			}
			continue
		}
		normalized[key] = rng
	}
	cfg.Currencies = normalized
	return cfg
}

func NormalizeCurrency(raw string) string {
	return strings.ToUpper(strings.TrimSpace(raw))
}

func (c ClampConfig) rangeFor(currency string) (ClampRange, bool) {
	rng, ok := c.Currencies[NormalizeCurrency(currency)]
	return rng, ok
}
