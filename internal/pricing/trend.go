package pricing

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Simplici0/costbook/internal/model"
)

// Trend is the direction of a material's recent prices.
type Trend string

const (
	TrendRising  Trend = "rising"
	TrendFalling Trend = "falling"
	TrendStable  Trend = "stable"
	TrendUnknown Trend = "unknown"
)

// TrendAnalysis compares the latest price against the trailing average of
// the entries before it.
type TrendAnalysis struct {
	MaterialID       int64               `json:"material_id"`
	Trend            Trend               `json:"trend"`
	LatestPrice      decimal.NullDecimal `json:"latest_price"`
	TrailingAverage  decimal.NullDecimal `json:"trailing_average"`
	PercentageChange decimal.Decimal     `json:"percentage_change"`
	Samples          int                 `json:"samples"`
}

// AnalyzePriceTrend classifies the latest entry against the mean of up to
// TrendSamples entries before it, using the alert thresholds: below the
// moderate threshold is stable. Fewer than two entries is unknown.
func (e *Engine) AnalyzePriceTrend(ctx context.Context, materialID int64) (TrendAnalysis, error) {
	if _, err := e.store.GetMaterial(ctx, materialID); err != nil {
		return TrendAnalysis{}, err
	}
	history, err := e.store.QueryPriceHistory(ctx, materialID, nil, nil)
	if err != nil {
		return TrendAnalysis{}, err
	}
	return analyzeTrend(materialID, history, e.settings), nil
}

func analyzeTrend(materialID int64, history []model.PriceHistoryEntry, s Settings) TrendAnalysis {
	out := TrendAnalysis{MaterialID: materialID, Trend: TrendUnknown, Samples: len(history)}
	if len(history) == 0 {
		return out
	}
	latest := history[len(history)-1]
	out.LatestPrice = decimal.NewNullDecimal(latest.Price)
	if len(history) < 2 {
		return out
	}

	start := len(history) - 1 - s.TrendSamples
	if start < 0 {
		start = 0
	}
	prior := history[start : len(history)-1]
	avg := meanPrice(prior)
	out.TrailingAverage = avg
	out.PercentageChange = PercentageChange(avg.Decimal, latest.Price)

	// No percentage exists against a zero average, but a price appearing
	// from nothing is a rise.
	switch {
	case !avg.Decimal.IsPositive() && latest.Price.IsPositive():
		out.Trend = TrendRising
	case s.Thresholds.Level(out.PercentageChange) == model.AlertNone:
		out.Trend = TrendStable
	case out.PercentageChange.IsPositive():
		out.Trend = TrendRising
	default:
		out.Trend = TrendFalling
	}
	return out
}

// PurchaseAction is the recommended buying behavior.
type PurchaseAction string

const (
	ActionBuyAhead PurchaseAction = "buy_ahead"
	ActionNormal   PurchaseAction = "normal"
)

// Recommendation is the outcome of GetBulkPurchaseRecommendation.
type Recommendation struct {
	MaterialID   int64               `json:"material_id"`
	Action       PurchaseAction      `json:"action"`
	Rationale    string              `json:"rationale"`
	Trend        Trend               `json:"trend"`
	CurrentPrice decimal.NullDecimal `json:"current_price"`
	Average30Day decimal.NullDecimal `json:"average_30_day"`
	Average90Day decimal.NullDecimal `json:"average_90_day"`
	Spread       decimal.NullDecimal `json:"spread"`
}

// GetBulkPurchaseRecommendation suggests buying ahead when prices are rising
// and the max-min spread over the volatility window exceeds the configured
// fraction of the current price. It never fails: missing data or storage
// errors produce a normal-cadence recommendation.
func (e *Engine) GetBulkPurchaseRecommendation(ctx context.Context, materialID int64) Recommendation {
	rec := Recommendation{
		MaterialID: materialID,
		Action:     ActionNormal,
		Trend:      TrendUnknown,
		Rationale:  "Buy as needed - not enough price data",
	}

	m, err := e.store.GetMaterial(ctx, materialID)
	if err != nil {
		e.logger.Warn().Err(err).Int64("material_id", materialID).Msg("recommendation: load material failed")
		return rec
	}
	rec.CurrentPrice = decimal.NewNullDecimal(m.CurrentPrice)

	all, err := e.store.QueryPriceHistory(ctx, materialID, nil, nil)
	if err != nil {
		e.logger.Warn().Err(err).Int64("material_id", materialID).Msg("recommendation: load history failed")
		return rec
	}
	rec.Trend = analyzeTrend(materialID, all, e.settings).Trend
	rec.Average30Day = meanPrice(since(all, e.windowStart(30)))
	rec.Average90Day = meanPrice(since(all, e.windowStart(90)))

	window := since(all, e.windowStart(e.settings.VolatilityWindowDays))
	if len(window) == 0 {
		return rec
	}
	spread := priceSpread(window)
	rec.Spread = decimal.NewNullDecimal(spread)
	limit := m.CurrentPrice.Mul(e.settings.VolatilityFraction)

	switch {
	case rec.Trend == TrendRising && spread.GreaterThan(limit):
		rec.Action = ActionBuyAhead
		rec.Rationale = fmt.Sprintf("Buy ahead - price is rising and moved %s within %d days (limit %s)",
			spread.StringFixed(2), e.settings.VolatilityWindowDays, limit.StringFixed(2))
	case rec.Trend == TrendRising:
		rec.Rationale = "Buy as needed - price is rising but has been steady"
	case rec.Trend == TrendFalling:
		rec.Rationale = "Buy as needed - price is trending down"
	case rec.Trend == TrendStable:
		rec.Rationale = "Buy as needed - price is stable"
	}
	return rec
}

func since(history []model.PriceHistoryEntry, from time.Time) []model.PriceHistoryEntry {
	for i, h := range history {
		if !h.EffectiveDate.Before(from) {
			return history[i:]
		}
	}
	return nil
}

func priceSpread(history []model.PriceHistoryEntry) decimal.Decimal {
	lo, hi := history[0].Price, history[0].Price
	for _, h := range history[1:] {
		lo = decimal.Min(lo, h.Price)
		hi = decimal.Max(hi, h.Price)
	}
	return hi.Sub(lo)
}
