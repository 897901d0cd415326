package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"

	domainpricing "travelbooking/internal/domain/pricing"
)

const (
	DriverMemory   = "memory"
	DriverMongo    = "mongo"
	DriverPostgres = "postgres"
)

// Config aggregates application configuration values loaded from the environment and an optional .env file.
type Config struct {
	Env                string
	HTTPAddr           string
	StoreDriver        string
	MongoURI           string
	MongoDB            string
	PostgresURL        string
	KafkaBrokers       []string
	KafkaTopicPrefix   string
	KafkaConsumerGroup string
	OutboxPollInterval time.Duration
	RetryBackoff       []time.Duration
	IdempotencyTTL     time.Duration
	TxRetryAttempts    int
	JWTSecret          string
	JWTIssuer          string
	RateLimit          string
	CORSOrigins        []string
	Fees               domainpricing.FeeConfig
	ServiceFeeClamps   string
	S3Endpoint         string
	S3PublicEndpoint   string
	S3AccessKey        string
	S3SecretKey        string
	S3UseSSL           bool
	ReceiptsBucket     string
	UnitsFixtures      string
}

// Load reads configuration for the process. Values from dir/.env fill variables missing from the environment.
func Load(dir string) (Config, error) {
	if err := loadDotEnv(dir); err != nil {
		return Config{}, err
	}
	v := viper.New()
	v.AutomaticEnv()
	setDefaults(v)

	cfg := Config{
		Env:                strings.ToLower(strings.TrimSpace(v.GetString("APP_ENV"))),
		HTTPAddr:           v.GetString("HTTP_ADDR"),
		StoreDriver:        strings.ToLower(strings.TrimSpace(v.GetString("STORE_DRIVER"))),
		MongoURI:           strings.TrimSpace(v.GetString("MONGO_URI")),
		MongoDB:            v.GetString("MONGO_DB"),
		PostgresURL:        strings.TrimSpace(v.GetString("POSTGRES_URL")),
		KafkaBrokers:       splitList(v.GetString("KAFKA_BROKERS")),
		KafkaTopicPrefix:   v.GetString("KAFKA_TOPIC_PREFIX"),
		KafkaConsumerGroup: v.GetString("KAFKA_CONSUMER_GROUP"),
		JWTSecret:          v.GetString("JWT_SECRET"),
		JWTIssuer:          v.GetString("JWT_ISSUER"),
		RateLimit:          strings.TrimSpace(v.GetString("RATE_LIMIT")),
		CORSOrigins:        splitList(v.GetString("CORS_ORIGINS")),
		ServiceFeeClamps:   v.GetString("SERVICE_FEE_CLAMPS"),
		S3Endpoint:         strings.TrimSpace(v.GetString("S3_ENDPOINT")),
		S3PublicEndpoint:   strings.TrimSpace(v.GetString("S3_PUBLIC_ENDPOINT")),
		S3AccessKey:        v.GetString("S3_ACCESS_KEY"),
		S3SecretKey:        v.GetString("S3_SECRET_KEY"),
		ReceiptsBucket:     strings.TrimSpace(v.GetString("RECEIPTS_BUCKET")),
		UnitsFixtures:      strings.TrimSpace(v.GetString("UNITS_FIXTURES")),
	}

	var err error
	if cfg.OutboxPollInterval, err = parseDuration(v, "OUTBOX_POLL_INTERVAL"); err != nil {
		return Config{}, err
	}
	if cfg.IdempotencyTTL, err = parseDuration(v, "IDEMP_TTL"); err != nil {
		return Config{}, err
	}
	for _, raw := range splitList(v.GetString("RETRY_BACKOFF")) {
		d, err := time.ParseDuration(raw)
		if err != nil {
			return Config{}, fmt.Errorf("invalid RETRY_BACKOFF component %q: %w", raw, err)
		}
		cfg.RetryBackoff = append(cfg.RetryBackoff, d)
	}
	if cfg.TxRetryAttempts, err = parseInt(v, "TX_RETRY_ATTEMPTS"); err != nil {
		return Config{}, err
	}
	if cfg.S3UseSSL, err = parseBool(v, "S3_USE_SSL"); err != nil {
		return Config{}, err
	}
	if cfg.S3PublicEndpoint == "" {
		cfg.S3PublicEndpoint = cfg.S3Endpoint
	}
	if cfg.Fees, err = loadFees(v); err != nil {
		return Config{}, err
	}
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	switch c.StoreDriver {
	case DriverMemory:
	case DriverMongo:
		if c.MongoURI == "" {
			return errors.New("MONGO_URI is required for the mongo driver")
		}
	case DriverPostgres:
		if c.PostgresURL == "" {
			return errors.New("POSTGRES_URL is required for the postgres driver")
		}
	default:
		return fmt.Errorf("unknown STORE_DRIVER %q", c.StoreDriver)
	}
	if c.TxRetryAttempts < 1 {
		return fmt.Errorf("TX_RETRY_ATTEMPTS must be at least 1, got %d", c.TxRetryAttempts)
	}
	if c.Env != "dev" && c.Env != "local" && c.Env != "test" && c.JWTSecret == "" {
		return errors.New("JWT_SECRET is required outside dev")
	}
	return nil
}

// Dev reports whether the process runs with developer conveniences.
func (c Config) Dev() bool {
	return c.Env == "dev" || c.Env == "local"
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("APP_ENV", "dev")
	v.SetDefault("HTTP_ADDR", ":8080")
	v.SetDefault("STORE_DRIVER", DriverMemory)
	v.SetDefault("MONGO_DB", "travelbooking")
	v.SetDefault("KAFKA_TOPIC_PREFIX", "")
	v.SetDefault("KAFKA_CONSUMER_GROUP", "travelbooking-side-effects")
	v.SetDefault("OUTBOX_POLL_INTERVAL", "500ms")
	v.SetDefault("RETRY_BACKOFF", "1s,5s,30s")
	v.SetDefault("IDEMP_TTL", "168h")
	v.SetDefault("TX_RETRY_ATTEMPTS", 3)
	v.SetDefault("JWT_ISSUER", "travelbooking")
	v.SetDefault("RATE_LIMIT", "100-M")
	v.SetDefault("CORS_ORIGINS", "http://localhost:3000")
	v.SetDefault("SERVICE_FEE_RATE", "0.10")
	v.SetDefault("SERVICE_FEE_MIN", "5")
	v.SetDefault("SERVICE_FEE_MAX", "500")
	v.SetDefault("TAX_RATE", "0.08")
	v.SetDefault("CLEANING_FEE", "25")
	v.SetDefault("CLEANING_FEE_MODE", string(domainpricing.CleaningPerStay))
	v.SetDefault("LONG_STAY_MIN_NIGHTS", 0)
	v.SetDefault("LONG_STAY_PERCENT", "0")
	v.SetDefault("S3_ACCESS_KEY", "minioadmin")
	v.SetDefault("S3_SECRET_KEY", "minioadmin")
	v.SetDefault("S3_USE_SSL", false)
	v.SetDefault("RECEIPTS_BUCKET", "travelbooking-receipts")
}

func loadFees(v *viper.Viper) (domainpricing.FeeConfig, error) {
	var (
		fees domainpricing.FeeConfig
		err  error
	)
	if fees.ServiceFeeRate, err = parseDecimal(v, "SERVICE_FEE_RATE"); err != nil {
		return fees, err
	}
	if fees.ServiceFeeMin, err = parseDecimal(v, "SERVICE_FEE_MIN"); err != nil {
		return fees, err
	}
	if fees.ServiceFeeMax, err = parseDecimal(v, "SERVICE_FEE_MAX"); err != nil {
		return fees, err
	}
	if fees.TaxRate, err = parseDecimal(v, "TAX_RATE"); err != nil {
		return fees, err
	}
	if fees.CleaningFee, err = parseDecimal(v, "CLEANING_FEE"); err != nil {
		return fees, err
	}
	if fees.LongStayPercent, err = parseDecimal(v, "LONG_STAY_PERCENT"); err != nil {
		return fees, err
	}
	if fees.LongStayMinNights, err = parseInt(v, "LONG_STAY_MIN_NIGHTS"); err != nil {
		return fees, err
	}
	fees.CleaningFeeMode = domainpricing.CleaningFeeMode(strings.ToUpper(strings.TrimSpace(v.GetString("CLEANING_FEE_MODE"))))
	if err := fees.Validate(); err != nil {
		return fees, fmt.Errorf("invalid fee configuration: %w", err)
	}
	return fees, nil
}

func loadDotEnv(dir string) error {
	path := filepath.Join(dir, ".env")
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

func parseDuration(v *viper.Viper, key string) (time.Duration, error) {
	raw := strings.TrimSpace(v.GetString(key))
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s duration: %w", key, err)
	}
	return d, nil
}

func parseDecimal(v *viper.Viper, key string) (decimal.Decimal, error) {
	raw := strings.TrimSpace(v.GetString(key))
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid %s decimal %q: %w", key, raw, err)
	}
	return d, nil
}

func parseInt(v *viper.Viper, key string) (int, error) {
	raw := strings.TrimSpace(v.GetString(key))
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s integer %q: %w", key, raw, err)
	}
	return n, nil
}

func parseBool(v *viper.Viper, key string) (bool, error) {
	raw := v.GetString(key)
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "1", "t", "true", "yes", "y", "on":
		return true, nil
	case "0", "f", "false", "no", "n", "off", "":
		return false, nil
	default:
		return false, fmt.Errorf("invalid %s boolean: %q", key, raw)
	}
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
