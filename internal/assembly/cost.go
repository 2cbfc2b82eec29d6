package assembly

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/Simplici0/costbook/internal/model"
)

var hundred = decimal.NewFromInt(100)

// ComponentCost is one component priced at read time.
type ComponentCost struct {
	Component *model.AssemblyComponent `json:"component"`
	UnitPrice decimal.Decimal          `json:"unit_price"`
	Extended  decimal.Decimal          `json:"extended"`
}

// Cost is an assembly priced against the current catalog.
type Cost struct {
	Assembly          *model.AssemblyTemplate `json:"assembly"`
	Components        []ComponentCost         `json:"components"`
	TotalMaterialCost decimal.Decimal         `json:"total_material_cost"`
	TotalLaborMinutes int                     `json:"total_labor_minutes"`
	LaborHours        decimal.Decimal         `json:"labor_hours"`
}

// Cost prices assembly id. Every component price is looked up again on each
// call, so a material price change shows up immediately.
func (s *Service) Cost(ctx context.Context, id int64) (Cost, error) {
	a, err := s.store.GetAssembly(ctx, id)
	if err != nil {
		return Cost{}, err
	}
	components, err := s.store.ListComponents(ctx, id)
	if err != nil {
		return Cost{}, err
	}

	out := Cost{
		Assembly:          a,
		Components:        make([]ComponentCost, 0, len(components)),
		TotalMaterialCost: decimal.Zero,
		TotalLaborMinutes: a.Labor.Total(),
		LaborHours:        model.MinutesToHours(a.Labor.Total()),
	}
	for _, c := range components {
		price, _, err := s.resolve(ctx, c.Item)
		if err != nil {
			return Cost{}, err
		}
		ext := c.Quantity.Mul(price)
		out.Components = append(out.Components, ComponentCost{Component: c, UnitPrice: price, Extended: ext})
		out.TotalMaterialCost = out.TotalMaterialCost.Add(ext)
	}
	return out, nil
}

// LaborCost prices the labor at an hourly rate. Minutes are multiplied
// before dividing so whole-cent results stay exact.
func (c Cost) LaborCost(rate decimal.Decimal) decimal.Decimal {
	return model.LaborCost(c.TotalLaborMinutes, rate)
}

// TotalCost is the labor at rate plus the material cost with markupPercent applied.
func (c Cost) TotalCost(rate, markupPercent decimal.Decimal) decimal.Decimal {
	material := c.TotalMaterialCost.Mul(decimal.NewFromInt(1).Add(markupPercent.Div(hundred)))
	return c.LaborCost(rate).Add(material)
}
