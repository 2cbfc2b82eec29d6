package estimate

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/Simplici0/costbook/internal/assembly"
	"github.com/Simplici0/costbook/internal/model"
)

var (
	hundred = decimal.NewFromInt(100)
	sixty   = decimal.NewFromInt(60)
)

// FromAssembly snapshots a priced assembly into a line item of quantity 1.
// Later edits to the assembly or its component prices do not reach the line.
func FromAssembly(cost assembly.Cost, laborRate, markupPercent decimal.Decimal) *model.LineItem {
	a := cost.Assembly
	id := a.ID
	return &model.LineItem{
		Mode:             model.ModeAssembly,
		AssemblyID:       &id,
		Code:             a.Code,
		Description:      a.Name,
		Quantity:         1,
		UnitMaterialCost: cost.TotalMaterialCost,
		UnitPrice:        cost.TotalCost(laborRate, markupPercent),
		StageLabor:       a.Labor,
	}
}

// FromPriceListItem snapshots a catalog item into a line item of quantity 1.
// laborHours, when set, replaces the item's own labor minutes.
func FromPriceListItem(item *model.PriceListItem, laborHours *decimal.Decimal, laborRate, markupPercent decimal.Decimal) (*model.LineItem, error) {
	minutes := item.LaborMinutes
	if laborHours != nil {
		if laborHours.IsNegative() {
			return nil, fmt.Errorf("%w: labor hours must not be negative", model.ErrInvalidValue)
		}
		minutes = int(laborHours.Mul(sixty).Round(0).IntPart())
	}

	id := item.ID
	material := item.BaseCost.Mul(decimal.NewFromInt(1).Add(markupPercent.Div(hundred)))
	return &model.LineItem{
		Mode:             model.ModePriceList,
		PriceListItemID:  &id,
		Code:             item.Code,
		Description:      item.Name,
		Quantity:         1,
		UnitMaterialCost: item.BaseCost,
		UnitPrice:        model.LaborCost(minutes, laborRate).Add(material),
		LaborMinutes:     minutes,
	}, nil
}

// SetQuantity rescales a line. Unit values are not re-derived from the source.
func SetQuantity(li *model.LineItem, qty int) error {
	if qty < 1 {
		return fmt.Errorf("%w: quantity must be at least 1", model.ErrInvalidValue)
	}
	li.Quantity = qty
	return nil
}
