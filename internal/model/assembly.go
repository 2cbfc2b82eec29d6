package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Labor holds the per-stage labor minutes of an assembly or line item.
type Labor struct {
	RoughMinutes   int `json:"rough_minutes"`
	FinishMinutes  int `json:"finish_minutes"`
	ServiceMinutes int `json:"service_minutes"`
	ExtraMinutes   int `json:"extra_minutes"`
}

// Total returns the sum of all four buckets.
func (l Labor) Total() int {
	return l.RoughMinutes + l.FinishMinutes + l.ServiceMinutes + l.ExtraMinutes
}

// Valid reports whether every bucket is non-negative.
func (l Labor) Valid() bool {
	return l.RoughMinutes >= 0 && l.FinishMinutes >= 0 && l.ServiceMinutes >= 0 && l.ExtraMinutes >= 0
}

// Scale multiplies every bucket by n.
func (l Labor) Scale(n int) Labor {
	return Labor{
		RoughMinutes:   l.RoughMinutes * n,
		FinishMinutes:  l.FinishMinutes * n,
		ServiceMinutes: l.ServiceMinutes * n,
		ExtraMinutes:   l.ExtraMinutes * n,
	}
}

// AssemblyTemplate is a reusable bundle of components and stage labor.
// Templates sharing a Code form a variant group with exactly one default.
type AssemblyTemplate struct {
	ID          int64     `json:"id"`
	Code        string    `json:"code"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Category    string    `json:"category"`
	Labor       Labor     `json:"labor"`
	IsDefault   bool      `json:"is_default"`
	Active      bool      `json:"active"`
	SortOrder   int       `json:"sort_order"`
	CreatedBy   string    `json:"created_by"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedBy   string    `json:"updated_by,omitempty"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// ItemKind identifies which catalog an assembly component points to.
type ItemKind string

const (
	ItemMaterial      ItemKind = "material"
	ItemPriceListItem ItemKind = "price_list_item"
)

// ItemRef references a material or price list item.
type ItemRef struct {
	Kind ItemKind `json:"kind"`
	ID   int64    `json:"id"`
}

// AssemblyComponent is one item of an assembly. UnitPrice and ItemName are
// cached when the component is added and are used for display only.
type AssemblyComponent struct {
	ID         int64           `json:"id"`
	AssemblyID int64           `json:"assembly_id"`
	Item       ItemRef         `json:"item"`
	Quantity   decimal.Decimal `json:"quantity"`
	UnitPrice  decimal.Decimal `json:"unit_price"`
	ItemName   string          `json:"item_name"`
	Notes      string          `json:"notes,omitempty"`
}

// Minutes returns the buckets in Stages order.
func (l Labor) Minutes() []int {
	return []int{l.RoughMinutes, l.FinishMinutes, l.ServiceMinutes, l.ExtraMinutes}
}
