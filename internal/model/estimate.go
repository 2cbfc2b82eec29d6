package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// EstimateStatus represents the lifecycle of an estimate.
type EstimateStatus string

const (
	EstimateDraft     EstimateStatus = "draft"
	EstimateSent      EstimateStatus = "sent"
	EstimateApproved  EstimateStatus = "approved"
	EstimateRejected  EstimateStatus = "rejected"
	EstimateConverted EstimateStatus = "converted"
)

// Estimate is the whole estimate aggregate. Totals are never stored on it;
// they are folded from the room/line-item tree on demand.
type Estimate struct {
	ID             int64           `json:"id"`
	Number         string          `json:"number"`
	CustomerID     int64           `json:"customer_id"`
	JobName        string          `json:"job_name"`
	Status         EstimateStatus  `json:"status"`
	LaborRate      decimal.Decimal `json:"labor_rate"`
	MaterialMarkup decimal.Decimal `json:"material_markup"` // percent
	TaxPercent     decimal.Decimal `json:"tax_percent"`
	JobID          *int64          `json:"job_id,omitempty"`
	Notes          string          `json:"notes,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
	Rooms          []*EstimateRoom `json:"rooms"`
}

// Locked reports whether the estimate can no longer be edited.
func (e *Estimate) Locked() bool {
	return e.Status == EstimateConverted || e.JobID != nil
}

// Room returns the room with the given id.
func (e *Estimate) Room(id int64) *EstimateRoom {
	for _, r := range e.Rooms {
		if r.ID == id {
			return r
		}
	}
	return nil
}

// LineItem returns the line item with the given id and the room holding it.
func (e *Estimate) LineItem(id int64) (*EstimateRoom, *LineItem) {
	for _, r := range e.Rooms {
		for _, li := range r.Items {
			if li.ID == id {
				return r, li
			}
		}
	}
	return nil, nil
}

// EstimateRoom groups line items for one area of the job.
type EstimateRoom struct {
	ID         int64       `json:"id"`
	EstimateID int64       `json:"estimate_id"`
	Name       string      `json:"name"`
	Order      int         `json:"order"`
	Items      []*LineItem `json:"items"`
}

// Total is the sum of the extended cost of every line in the room.
func (r *EstimateRoom) Total() decimal.Decimal {
	total := decimal.Zero
	for _, li := range r.Items {
		total = total.Add(li.ExtendedMaterialCost())
	}
	return total
}

// EntryMode tells how a line item was created.
type EntryMode string

const (
	ModeAssembly  EntryMode = "assembly"
	ModePriceList EntryMode = "price_list"
)

// LineItem is a quantity-scaled snapshot of an assembly or a price list item.
// Costs and labor are per unit; Extended* values scale with Quantity.
type LineItem struct {
	ID               int64           `json:"id"`
	RoomID           int64           `json:"room_id"`
	Mode             EntryMode       `json:"mode"`
	AssemblyID       *int64          `json:"assembly_id,omitempty"`
	PriceListItemID  *int64          `json:"price_list_item_id,omitempty"`
	Code             string          `json:"code"`
	Description      string          `json:"description"`
	Quantity         int             `json:"quantity"`
	UnitMaterialCost decimal.Decimal `json:"unit_material_cost"`
	UnitPrice        decimal.Decimal `json:"unit_price"`
	// StageLabor is only meaningful in assembly mode.
	StageLabor Labor `json:"stage_labor"`
	// LaborMinutes is the per-unit labor of a price list line.
	LaborMinutes int    `json:"labor_minutes"`
	LineOrder    int    `json:"line_order"`
	Notes        string `json:"notes,omitempty"`
}

// UnitLaborMinutes returns the per-unit labor of the line.
func (li *LineItem) UnitLaborMinutes() int {
	if li.Mode == ModeAssembly {
		return li.StageLabor.Total()
	}
	return li.LaborMinutes
}

// ExtendedLaborMinutes is the per-unit labor times the quantity.
func (li *LineItem) ExtendedLaborMinutes() int {
	return li.UnitLaborMinutes() * li.Quantity
}

// ExtendedLaborHours converts the extended labor to hours.
func (li *LineItem) ExtendedLaborHours() decimal.Decimal {
	return MinutesToHours(li.ExtendedLaborMinutes())
}

// ExtendedMaterialCost is the unit material cost times the quantity.
func (li *LineItem) ExtendedMaterialCost() decimal.Decimal {
	return li.UnitMaterialCost.Mul(decimal.NewFromInt(int64(li.Quantity)))
}

// ExtendedPrice is the unit sell price times the quantity.
func (li *LineItem) ExtendedPrice() decimal.Decimal {
	return li.UnitPrice.Mul(decimal.NewFromInt(int64(li.Quantity)))
}

var sixty = decimal.NewFromInt(60)

// MinutesToHours converts whole minutes to decimal hours.
func MinutesToHours(minutes int) decimal.Decimal {
	return decimal.NewFromInt(int64(minutes)).Div(sixty)
}

// LaborCost prices minutes of labor at an hourly rate.
func LaborCost(minutes int, rate decimal.Decimal) decimal.Decimal {
	return decimal.NewFromInt(int64(minutes)).Mul(rate).Div(sixty)
}
