package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Material is a purchasable item whose price is tracked over time.
// CurrentPrice is only changed through the pricing engine.
type Material struct {
	ID            int64           `json:"id"`
	Code          string          `json:"code"`
	Name          string          `json:"name"`
	Category      string          `json:"category"`
	UnitOfMeasure string          `json:"unit_of_measure"`
	CurrentPrice  decimal.Decimal `json:"current_price"`
	TaxRate       decimal.Decimal `json:"tax_rate"` // percent
	Active        bool            `json:"active"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// PriceListItem is a standalone catalog entry that can be quoted directly or
// used as an assembly component.
type PriceListItem struct {
	ID            int64           `json:"id"`
	Code          string          `json:"code"`
	Name          string          `json:"name"`
	Category      string          `json:"category"`
	BaseCost      decimal.Decimal `json:"base_cost"`
	MarkupPercent decimal.Decimal `json:"markup_percent"`
	LaborMinutes  int             `json:"labor_minutes"`
	Active        bool            `json:"active"`
}

// AlertLevel grades how significant a price movement is.
type AlertLevel string

const (
	AlertNone      AlertLevel = "none"
	AlertModerate  AlertLevel = "moderate"
	AlertImmediate AlertLevel = "immediate"
)

// PriceHistoryEntry is one immutable price observation for a material.
type PriceHistoryEntry struct {
	ID                           int64            `json:"id"`
	MaterialID                   int64            `json:"material_id"`
	Price                        decimal.Decimal  `json:"price"`
	EffectiveDate                time.Time        `json:"effective_date"`
	CreatedBy                    string           `json:"created_by"`
	VendorID                     *int64           `json:"vendor_id,omitempty"`
	PurchaseOrder                *string          `json:"purchase_order,omitempty"`
	QuantityPurchased            *decimal.Decimal `json:"quantity_purchased,omitempty"`
	PercentageChangeFromPrevious decimal.Decimal  `json:"percentage_change_from_previous"`
	AlertLevel                   AlertLevel       `json:"alert_level"`
}

// PriceAlert is derived from history and never persisted.
type PriceAlert struct {
	MaterialID       int64           `json:"material_id"`
	Name             string          `json:"name"`
	OldPrice         decimal.Decimal `json:"old_price"`
	NewPrice         decimal.Decimal `json:"new_price"`
	PercentageChange decimal.Decimal `json:"percentage_change"`
	AlertLevel       AlertLevel      `json:"alert_level"`
	Timestamp        time.Time       `json:"timestamp"`
}
