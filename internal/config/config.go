package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

const (
	defaultDBPath   = "./dev.db"
	defaultPort     = "8080"
	defaultLogLevel = "info"

	defaultLaborRate      = "75.00"
	defaultMaterialMarkup = "22"
	defaultTaxPercent     = "0"

	defaultAlertModerate         = "5"
	defaultAlertImmediate        = "15"
	defaultTrendSamples          = 3
	defaultVolatilityWindowDays  = 90
	defaultVolatilityFraction    = "0.10"
	defaultSignificantWindowDays = 30
)

// Config holds application configuration sourced from environment variables.
type Config struct {
	DBPath       string
	Port         string
	LogLevel     string
	LogPretty    bool
	SeedDemoData bool

	// Estimate defaults.
	LaborRate      decimal.Decimal
	MaterialMarkup decimal.Decimal
	TaxPercent     decimal.Decimal

	// Price tracking heuristics.
	PriceAlertModerate    decimal.Decimal
	PriceAlertImmediate   decimal.Decimal
	TrendSamples          int
	VolatilityWindowDays  int
	VolatilityFraction    decimal.Decimal
	SignificantWindowDays int
}

// Load reads .env from the working directory, if present, and then the
// environment.
func Load() (Config, error) {
	return LoadFrom(".env")
}

// LoadFrom reads the dotenv file at path and then the environment. A missing
// file is fine; variables already set in the environment win over the file.
func LoadFrom(path string) (Config, error) {
	if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load %s: %w", path, err)
	}

	cfg := Config{
		DBPath:       getenv("DB_PATH", defaultDBPath),
		Port:         getenv("PORT", defaultPort),
		LogLevel:     strings.ToLower(getenv("LOG_LEVEL", defaultLogLevel)),
		LogPretty:    getbool("LOG_PRETTY"),
		SeedDemoData: getbool("SEED_DEMO_DATA"),
	}

	p := parser{}
	cfg.LaborRate = p.decimal("LABOR_RATE", defaultLaborRate)
	cfg.MaterialMarkup = p.decimal("MATERIAL_MARKUP", defaultMaterialMarkup)
	cfg.TaxPercent = p.decimal("DEFAULT_TAX_PERCENT", defaultTaxPercent)
	cfg.PriceAlertModerate = p.decimal("PRICE_ALERT_MODERATE", defaultAlertModerate)
	cfg.PriceAlertImmediate = p.decimal("PRICE_ALERT_IMMEDIATE", defaultAlertImmediate)
	cfg.TrendSamples = p.int("TREND_SAMPLES", defaultTrendSamples)
	cfg.VolatilityWindowDays = p.int("VOLATILITY_WINDOW_DAYS", defaultVolatilityWindowDays)
	cfg.VolatilityFraction = p.decimal("VOLATILITY_FRACTION", defaultVolatilityFraction)
	cfg.SignificantWindowDays = p.int("SIGNIFICANT_WINDOW_DAYS", defaultSignificantWindowDays)
	if p.err != nil {
		return Config{}, p.err
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	switch {
	case c.LaborRate.IsNegative(), c.MaterialMarkup.IsNegative(), c.TaxPercent.IsNegative():
		return errors.New("LABOR_RATE, MATERIAL_MARKUP and DEFAULT_TAX_PERCENT must not be negative")
	case !c.PriceAlertModerate.IsPositive():
		return errors.New("PRICE_ALERT_MODERATE must be positive")
	case !c.PriceAlertImmediate.GreaterThan(c.PriceAlertModerate):
		return errors.New("PRICE_ALERT_IMMEDIATE must be greater than PRICE_ALERT_MODERATE")
	case c.TrendSamples < 1, c.VolatilityWindowDays < 1, c.SignificantWindowDays < 1:
		return errors.New("TREND_SAMPLES and window days must be at least 1")
	case !c.VolatilityFraction.IsPositive():
		return errors.New("VOLATILITY_FRACTION must be positive")
	}
	return nil
}

func getenv(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func getbool(key string) bool {
	switch strings.ToLower(strings.TrimSpace(os.Getenv(key))) {
	case "1", "true", "yes", "on":
		return true
	}
	return false
}

// parser keeps the first parse error so Load can report it once.
type parser struct {
	err error
}

func (p *parser) decimal(key, fallback string) decimal.Decimal {
	raw := getenv(key, fallback)
	v, err := decimal.NewFromString(raw)
	if err != nil && p.err == nil {
		p.err = fmt.Errorf("parse %s=%q: %w", key, raw, err)
	}
	return v
}

func (p *parser) int(key string, fallback int) int {
	raw := os.Getenv(key)
	if strings.TrimSpace(raw) == "" {
		return fallback
	}
	v, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil && p.err == nil {
		p.err = fmt.Errorf("parse %s=%q: %w", key, raw, err)
	}
	return v
}
