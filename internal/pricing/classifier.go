package pricing

import (
	"github.com/shopspring/decimal"

	"github.com/Simplici0/costbook/internal/model"
)

// percentPlaces is the precision kept for percentage changes.
const percentPlaces = 4

var hundred = decimal.NewFromInt(100)

// Thresholds are the absolute percentage boundaries between alert levels.
type Thresholds struct {
	Moderate  decimal.Decimal
	Immediate decimal.Decimal
}

// DefaultThresholds grade a move of 5% as moderate and 15% as immediate.
var DefaultThresholds = Thresholds{
	Moderate:  decimal.NewFromInt(5),
	Immediate: decimal.NewFromInt(15),
}

// Level grades a signed percentage change.
func (t Thresholds) Level(pct decimal.Decimal) model.AlertLevel {
	abs := pct.Abs()
	switch {
	case abs.GreaterThanOrEqual(t.Immediate):
		return model.AlertImmediate
	case abs.GreaterThanOrEqual(t.Moderate):
		return model.AlertModerate
	default:
		return model.AlertNone
	}
}

// Change is the classification of a single price transition.
type Change struct {
	OldPrice   decimal.Decimal  `json:"old_price"`
	NewPrice   decimal.Decimal  `json:"new_price"`
	Percentage decimal.Decimal  `json:"percentage"`
	Level      model.AlertLevel `json:"alert_level"`
}

// Classifier grades price transitions against a set of thresholds.
type Classifier struct {
	Thresholds Thresholds
}

// Classify computes the percentage change from oldPrice to newPrice and its
// alert level. A non-positive oldPrice has no baseline and yields (0, none).
func (c Classifier) Classify(oldPrice, newPrice decimal.Decimal) Change {
	pct := PercentageChange(oldPrice, newPrice)
	return Change{
		OldPrice:   oldPrice,
		NewPrice:   newPrice,
		Percentage: pct,
		Level:      c.Thresholds.Level(pct),
	}
}

// Classify uses DefaultThresholds.
func Classify(oldPrice, newPrice decimal.Decimal) Change {
	return Classifier{Thresholds: DefaultThresholds}.Classify(oldPrice, newPrice)
}

// PercentageChange returns (new-old)/old*100 rounded to four places, or zero
// when old is not positive.
func PercentageChange(oldPrice, newPrice decimal.Decimal) decimal.Decimal {
	if !oldPrice.IsPositive() {
		return decimal.Zero
	}
	return newPrice.Sub(oldPrice).Div(oldPrice).Mul(hundred).Round(percentPlaces)
}
