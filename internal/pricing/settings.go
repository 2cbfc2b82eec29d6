package pricing

import "github.com/shopspring/decimal"

// Settings carries the tunable constants of the pricing heuristics.
type Settings struct {
	Thresholds Thresholds
	// TrendSamples is how many entries before the latest one form the trailing average.
	TrendSamples int
	// VolatilityWindowDays bounds the max-min spread used by purchase recommendations.
	VolatilityWindowDays int
	// VolatilityFraction of the current price the spread must exceed to buy ahead.
	VolatilityFraction decimal.Decimal
	// SignificantWindowDays bounds the scan for significant price changes.
	SignificantWindowDays int
}

// DefaultSettings returns the documented defaults.
func DefaultSettings() Settings {
	return Settings{
		Thresholds:            DefaultThresholds,
		TrendSamples:          3,
		VolatilityWindowDays:  90,
		VolatilityFraction:    decimal.RequireFromString("0.10"),
		SignificantWindowDays: 30,
	}
}

func (s Settings) withDefaults() Settings {
	d := DefaultSettings()
	if s.Thresholds.Moderate.IsZero() && s.Thresholds.Immediate.IsZero() {
		s.Thresholds = d.Thresholds
	}
	if s.TrendSamples <= 0 {
		s.TrendSamples = d.TrendSamples
	}
	if s.VolatilityWindowDays <= 0 {
		s.VolatilityWindowDays = d.VolatilityWindowDays
	}
	if !s.VolatilityFraction.IsPositive() {
		s.VolatilityFraction = d.VolatilityFraction
	}
	if s.SignificantWindowDays <= 0 {
		s.SignificantWindowDays = d.SignificantWindowDays
	}
	return s
}
