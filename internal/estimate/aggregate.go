package estimate

import (
	"github.com/shopspring/decimal"

	"github.com/Simplici0/costbook/internal/model"
)

// StageTotals is the rollup of one labor stage.
type StageTotals struct {
	Stage        string          `json:"stage"`
	Minutes      int             `json:"minutes"`
	Hours        decimal.Decimal `json:"hours"`
	MaterialCost decimal.Decimal `json:"material_cost"`
}

// RoomTotals is the rollup of one room.
type RoomTotals struct {
	RoomID       int64           `json:"room_id"`
	Name         string          `json:"name"`
	MaterialCost decimal.Decimal `json:"material_cost"`
	LaborMinutes int             `json:"labor_minutes"`
	LaborHours   decimal.Decimal `json:"labor_hours"`
	Price        decimal.Decimal `json:"price"`
}

// Totals are derived from the room/line-item tree and never stored.
type Totals struct {
	LineCount    int             `json:"line_count"`
	MaterialCost decimal.Decimal `json:"material_cost"`
	LaborMinutes int             `json:"labor_minutes"`
	LaborHours   decimal.Decimal `json:"labor_hours"`

	// Stages only count assembly lines; price list lines carry no stage
	// split and are reported as unstaged.
	Stages               []StageTotals   `json:"stages"`
	UnstagedMinutes      int             `json:"unstaged_minutes"`
	UnstagedHours        decimal.Decimal `json:"unstaged_hours"`
	UnstagedMaterialCost decimal.Decimal `json:"unstaged_material_cost"`

	LaborCost        decimal.Decimal `json:"labor_cost"`
	MarkedUpMaterial decimal.Decimal `json:"marked_up_material"`
	Subtotal         decimal.Decimal `json:"subtotal"`
	Tax              decimal.Decimal `json:"tax"`
	TotalPrice       decimal.Decimal `json:"total_price"`

	Rooms []RoomTotals `json:"rooms"`
}

// Stage returns the totals of a named stage.
func (t Totals) Stage(name string) StageTotals {
	for _, s := range t.Stages {
		if s.Stage == name {
			return s
		}
	}
	return StageTotals{Stage: name, Hours: decimal.Zero, MaterialCost: decimal.Zero}
}

// Aggregate folds the estimate tree into totals. It reads nothing but e and
// gives the same result regardless of the order lines were added in.
func Aggregate(e *model.Estimate) Totals {
	stageMinutes := make([]int, len(model.Stages))
	stageMaterial := make([]decimal.Decimal, len(model.Stages))
	for i := range stageMaterial {
		stageMaterial[i] = decimal.Zero
	}

	t := Totals{
		MaterialCost:         decimal.Zero,
		UnstagedMaterialCost: decimal.Zero,
		Rooms:                make([]RoomTotals, 0, len(e.Rooms)),
	}
	for _, r := range e.Rooms {
		rt := RoomTotals{RoomID: r.ID, Name: r.Name, MaterialCost: decimal.Zero, Price: decimal.Zero}
		for _, li := range r.Items {
			t.LineCount++
			material := li.ExtendedMaterialCost()
			minutes := li.ExtendedLaborMinutes()

			rt.MaterialCost = rt.MaterialCost.Add(material)
			rt.LaborMinutes += minutes
			rt.Price = rt.Price.Add(li.ExtendedPrice())

			if li.Mode != model.ModeAssembly {
				t.UnstagedMinutes += minutes
				t.UnstagedMaterialCost = t.UnstagedMaterialCost.Add(material)
				continue
			}
			labor := li.StageLabor.Scale(li.Quantity)
			split := labor.Minutes()
			for i, m := range split {
				stageMinutes[i] += m
			}
			for i, share := range splitMaterial(material, split) {
				stageMaterial[i] = stageMaterial[i].Add(share)
			}
		}
		rt.LaborHours = model.MinutesToHours(rt.LaborMinutes)
		t.MaterialCost = t.MaterialCost.Add(rt.MaterialCost)
		t.LaborMinutes += rt.LaborMinutes
		t.Rooms = append(t.Rooms, rt)
	}

	t.Stages = make([]StageTotals, len(model.Stages))
	for i, name := range model.Stages {
		t.Stages[i] = StageTotals{
			Stage:        name,
			Minutes:      stageMinutes[i],
			Hours:        model.MinutesToHours(stageMinutes[i]),
			MaterialCost: stageMaterial[i],
		}
	}
	t.LaborHours = model.MinutesToHours(t.LaborMinutes)
	t.UnstagedHours = model.MinutesToHours(t.UnstagedMinutes)

	t.LaborCost = model.LaborCost(t.LaborMinutes, e.LaborRate)
	t.MarkedUpMaterial = t.MaterialCost.Mul(decimal.NewFromInt(1).Add(e.MaterialMarkup.Div(hundred)))
	t.Subtotal = t.LaborCost.Add(t.MarkedUpMaterial)
	t.Tax = t.Subtotal.Mul(e.TaxPercent).Div(hundred).Round(2)
	t.TotalPrice = t.Subtotal.Add(t.Tax).Round(2)
	return t
}

// splitMaterial spreads an assembly line's material cost over its stages in
// proportion to their minutes. Shares are rounded to cents and the last
// staged bucket takes the remainder, so the shares always add up to cost.
// A line without labor books all material to Finish.
func splitMaterial(cost decimal.Decimal, minutes []int) []decimal.Decimal {
	shares := make([]decimal.Decimal, len(minutes))
	for i := range shares {
		shares[i] = decimal.Zero
	}

	total, last := 0, -1
	for i, m := range minutes {
		total += m
		if m > 0 {
			last = i
		}
	}
	if total == 0 {
		shares[finishIndex] = cost
		return shares
	}

	allocated := decimal.Zero
	for i, m := range minutes {
		if m == 0 || i == last {
			continue
		}
		shares[i] = cost.Mul(decimal.NewFromInt(int64(m))).Div(decimal.NewFromInt(int64(total))).Round(2)
		allocated = allocated.Add(shares[i])
	}
	shares[last] = cost.Sub(allocated)
	return shares
}

// finishIndex is the position of the Finish stage in model.Stages.
const finishIndex = 1
