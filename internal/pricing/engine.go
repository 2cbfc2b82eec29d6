package pricing

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/Simplici0/costbook/internal/model"
)

// Store is the persistence the engine needs.
type Store interface {
	GetMaterial(ctx context.Context, id int64) (*model.Material, error)
	ListMaterials(ctx context.Context) ([]*model.Material, error)
	// QueryPriceHistory returns entries ordered by effective date ascending.
	// Nil bounds are open; non-nil bounds are inclusive.
	QueryPriceHistory(ctx context.Context, materialID int64, from, to *time.Time) ([]model.PriceHistoryEntry, error)
	// SavePriceChange appends entry and stores m in one transaction.
	SavePriceChange(ctx context.Context, m *model.Material, entry *model.PriceHistoryEntry) error
}

// PriceUpdate is the input of UpdatePrice.
type PriceUpdate struct {
	MaterialID    int64
	NewPrice      decimal.Decimal
	Actor         string
	VendorID      *int64
	PurchaseOrder *string
	Quantity      *decimal.Decimal
}

// PriceChange is the result of a successful UpdatePrice.
type PriceChange struct {
	Material model.Material          `json:"material"`
	Entry    model.PriceHistoryEntry `json:"entry"`
	Change   Change                  `json:"change"`
}

// Engine orchestrates price updates and answers history questions.
// It does no locking of its own: concurrent writers must be serialized per material.
type Engine struct {
	store      Store
	settings   Settings
	classifier Classifier
	now        func() time.Time
	logger     zerolog.Logger

	listeners listenerSet
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithLogger sets the logger used for notifications and swallowed errors.
func WithLogger(l zerolog.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// NewEngine builds an Engine. Zero-valued settings fall back to DefaultSettings.
func NewEngine(store Store, settings Settings, opts ...Option) *Engine {
	settings = settings.withDefaults()
	e := &Engine{
		store:      store,
		settings:   settings,
		classifier: Classifier{Thresholds: settings.Thresholds},
		now:        time.Now,
		logger:     log.Logger,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Settings returns the effective settings.
func (e *Engine) Settings() Settings {
	return e.settings
}

// UpdatePrice records a new price for a material. The history entry and the
// material's current price are stored together; listeners run only after
// both are durable. Re-submitting the current price is recorded as a
// confirmation with no alert.
func (e *Engine) UpdatePrice(ctx context.Context, u PriceUpdate) (PriceChange, error) {
	if u.NewPrice.IsNegative() {
		return PriceChange{}, fmt.Errorf("%w: price must not be negative", model.ErrInvalidValue)
	}
	if u.Quantity != nil && !u.Quantity.IsPositive() {
		return PriceChange{}, fmt.Errorf("%w: quantity purchased must be positive", model.ErrInvalidValue)
	}
	actor := strings.TrimSpace(u.Actor)
	if actor == "" {
		actor = "system"
	}

	m, err := e.store.GetMaterial(ctx, u.MaterialID)
	if err != nil {
		return PriceChange{}, err
	}

	change := e.classifier.Classify(m.CurrentPrice, u.NewPrice)
	now := e.now().UTC()

	entry := model.PriceHistoryEntry{
		MaterialID:                   m.ID,
		Price:                        u.NewPrice,
		EffectiveDate:                now,
		CreatedBy:                    actor,
		VendorID:                     u.VendorID,
		PurchaseOrder:                u.PurchaseOrder,
		QuantityPurchased:            u.Quantity,
		PercentageChangeFromPrevious: change.Percentage,
		AlertLevel:                   change.Level,
	}
	updated := *m
	updated.CurrentPrice = u.NewPrice
	updated.UpdatedAt = now

	if err := e.store.SavePriceChange(ctx, &updated, &entry); err != nil {
		return PriceChange{}, err
	}

	e.logger.Info().
		Int64("material_id", m.ID).
		Str("old_price", change.OldPrice.StringFixed(2)).
		Str("new_price", change.NewPrice.StringFixed(2)).
		Str("percentage_change", change.Percentage.String()).
		Str("alert_level", string(change.Level)).
		Str("actor", actor).
		Msg("material price updated")

	if change.Level != model.AlertNone {
		e.notify(ctx, PriceChangeEvent{
			Material:         updated,
			OldPrice:         change.OldPrice,
			NewPrice:         change.NewPrice,
			PercentageChange: change.Percentage,
			AlertLevel:       change.Level,
			At:               now,
		})
	}

	return PriceChange{Material: updated, Entry: entry, Change: change}, nil
}

// GetPriceHistory returns history for a material, newest first. Bounds are
// inclusive; an empty result is not an error.
func (e *Engine) GetPriceHistory(ctx context.Context, materialID int64, from, to *time.Time) ([]model.PriceHistoryEntry, error) {
	if from != nil && to != nil && from.After(*to) {
		return nil, fmt.Errorf("%w: from date is after to date", model.ErrInvalidValue)
	}
	history, err := e.store.QueryPriceHistory(ctx, materialID, from, to)
	if err != nil {
		return nil, err
	}
	out := make([]model.PriceHistoryEntry, len(history))
	for i, h := range history {
		out[len(history)-1-i] = h
	}
	return out, nil
}

// GetAveragePrice is the arithmetic mean of the prices observed in the last
// windowDays. It reports no data (Valid == false) when the window is empty.
func (e *Engine) GetAveragePrice(ctx context.Context, materialID int64, windowDays int) (decimal.NullDecimal, error) {
	if windowDays < 0 {
		return decimal.NullDecimal{}, fmt.Errorf("%w: window must not be negative", model.ErrInvalidValue)
	}
	if _, err := e.store.GetMaterial(ctx, materialID); err != nil {
		return decimal.NullDecimal{}, err
	}
	from := e.windowStart(windowDays)
	history, err := e.store.QueryPriceHistory(ctx, materialID, &from, nil)
	if err != nil {
		return decimal.NullDecimal{}, err
	}
	return meanPrice(history), nil
}

// GetMaterialsWithSignificantPriceChanges returns the materials whose most
// recent entry inside the significant-change window moved by more than
// thresholdPercent in either direction.
func (e *Engine) GetMaterialsWithSignificantPriceChanges(ctx context.Context, thresholdPercent decimal.Decimal) ([]*model.Material, error) {
	if thresholdPercent.IsNegative() {
		return nil, fmt.Errorf("%w: threshold must not be negative", model.ErrInvalidValue)
	}
	materials, err := e.store.ListMaterials(ctx)
	if err != nil {
		return nil, err
	}
	from := e.windowStart(e.settings.SignificantWindowDays)

	out := []*model.Material{}
	for _, m := range materials {
		history, err := e.store.QueryPriceHistory(ctx, m.ID, &from, nil)
		if err != nil {
			return nil, err
		}
		if len(history) == 0 {
			continue
		}
		latest := history[len(history)-1]
		if latest.PercentageChangeFromPrevious.Abs().GreaterThan(thresholdPercent) {
			out = append(out, m)
		}
	}
	return out, nil
}

// GetPriceAlerts rebuilds the alerts raised in the last windowDays from
// history, newest first.
func (e *Engine) GetPriceAlerts(ctx context.Context, windowDays int) ([]model.PriceAlert, error) {
	if windowDays < 0 {
		return nil, fmt.Errorf("%w: window must not be negative", model.ErrInvalidValue)
	}
	materials, err := e.store.ListMaterials(ctx)
	if err != nil {
		return nil, err
	}
	since := e.windowStart(windowDays)

	alerts := []model.PriceAlert{}
	for _, m := range materials {
		history, err := e.store.QueryPriceHistory(ctx, m.ID, nil, nil)
		if err != nil {
			return nil, err
		}
		for i, h := range history {
			if h.AlertLevel == model.AlertNone || h.EffectiveDate.Before(since) {
				continue
			}
			alerts = append(alerts, model.PriceAlert{
				MaterialID:       m.ID,
				Name:             m.Name,
				OldPrice:         previousPrice(history, i),
				NewPrice:         h.Price,
				PercentageChange: h.PercentageChangeFromPrevious,
				AlertLevel:       h.AlertLevel,
				Timestamp:        h.EffectiveDate,
			})
		}
	}
	sort.SliceStable(alerts, func(i, j int) bool {
		return alerts[i].Timestamp.After(alerts[j].Timestamp)
	})
	return alerts, nil
}

func (e *Engine) windowStart(days int) time.Time {
	return e.now().UTC().AddDate(0, 0, -days)
}

// previousPrice returns the price before history[i]. The first entry has no
// predecessor, so its old price is recovered from the stored percentage.
func previousPrice(history []model.PriceHistoryEntry, i int) decimal.Decimal {
	if i > 0 {
		return history[i-1].Price
	}
	h := history[i]
	factor := decimal.NewFromInt(1).Add(h.PercentageChangeFromPrevious.Div(hundred))
	if !factor.IsPositive() {
		return decimal.Zero
	}
	return h.Price.Div(factor).Round(2)
}

func meanPrice(history []model.PriceHistoryEntry) decimal.NullDecimal {
	if len(history) == 0 {
		return decimal.NullDecimal{}
	}
	sum := decimal.Zero
	for _, h := range history {
		sum = sum.Add(h.Price)
	}
	return decimal.NewNullDecimal(sum.Div(decimal.NewFromInt(int64(len(history)))))
}
