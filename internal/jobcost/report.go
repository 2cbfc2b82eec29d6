package jobcost

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/Simplici0/costbook/internal/model"
)

var hundred = decimal.NewFromInt(100)

// StageProfit is the estimated total minus the actual total of a stage, both
// priced at rate.
func StageProfit(st *model.JobStage, rate decimal.Decimal) decimal.Decimal {
	return st.EstimatedTotal(rate).Sub(st.ActualTotal(rate))
}

// ProfitPercentage is profit as a percentage of estimatedTotal, rounded to
// two places. It is zero when nothing was estimated.
func ProfitPercentage(profit, estimatedTotal decimal.Decimal) decimal.Decimal {
	if estimatedTotal.IsZero() {
		return decimal.Zero
	}
	return profit.Div(estimatedTotal).Mul(hundred).Round(2)
}

// StageReport compares one stage.
type StageReport struct {
	Stage            *model.JobStage `json:"stage"`
	HoursVariance    decimal.Decimal `json:"hours_variance"`
	MaterialVariance decimal.Decimal `json:"material_variance"`
	EstimatedTotal   decimal.Decimal `json:"estimated_total"`
	ActualTotal      decimal.Decimal `json:"actual_total"`
	Profit           decimal.Decimal `json:"profit"`
	ProfitPercentage decimal.Decimal `json:"profit_percentage"`
}

// Report compares a whole job. Job figures are sums over its stages, except
// the estimated labor cost, which is priced once from the summed minutes so it
// matches the estimate's labor cost.
type Report struct {
	Job                   *model.Job      `json:"job"`
	Stages                []StageReport   `json:"stages"`
	EstimatedMinutes      int             `json:"estimated_minutes"`
	EstimatedHours        decimal.Decimal `json:"estimated_hours"`
	ActualHours           decimal.Decimal `json:"actual_hours"`
	EstimatedLaborCost    decimal.Decimal `json:"estimated_labor_cost"`
	EstimatedMaterialCost decimal.Decimal `json:"estimated_material_cost"`
	ActualMaterialCost    decimal.Decimal `json:"actual_material_cost"`
	EstimatedTotal        decimal.Decimal `json:"estimated_total"`
	ActualTotal           decimal.Decimal `json:"actual_total"`
	Profit                decimal.Decimal `json:"profit"`
	ProfitPercentage      decimal.Decimal `json:"profit_percentage"`
}

// Report loads a job and compares its estimated and actual figures.
func (s *Service) Report(ctx context.Context, jobID int64) (Report, error) {
	job, err := s.store.GetJob(ctx, jobID)
	if err != nil {
		return Report{}, err
	}
	stages, err := s.store.GetJobStages(ctx, jobID)
	if err != nil {
		return Report{}, err
	}
	return BuildReport(job, stages), nil
}

// BuildReport compares stages priced at the job's labor rate.
func BuildReport(job *model.Job, stages []*model.JobStage) Report {
	r := Report{
		Job:                   job,
		Stages:                make([]StageReport, 0, len(stages)),
		ActualHours:           decimal.Zero,
		EstimatedMaterialCost: decimal.Zero,
		ActualMaterialCost:    decimal.Zero,
		ActualTotal:           decimal.Zero,
	}
	rate := job.LaborRate
	for _, st := range stages {
		est, act := st.EstimatedTotal(rate), st.ActualTotal(rate)
		profit := est.Sub(act)
		r.Stages = append(r.Stages, StageReport{
			Stage:            st,
			HoursVariance:    st.HoursVariance(),
			MaterialVariance: st.MaterialVariance(),
			EstimatedTotal:   est,
			ActualTotal:      act,
			Profit:           profit,
			ProfitPercentage: ProfitPercentage(profit, est),
		})
		r.EstimatedMinutes += st.EstimatedMinutes
		r.ActualHours = r.ActualHours.Add(st.ActualHours)
		r.EstimatedMaterialCost = r.EstimatedMaterialCost.Add(st.EstimatedMaterialCost)
		r.ActualMaterialCost = r.ActualMaterialCost.Add(st.ActualMaterialCost)
		r.ActualTotal = r.ActualTotal.Add(act)
	}
	r.EstimatedHours = model.MinutesToHours(r.EstimatedMinutes)
	r.EstimatedLaborCost = model.LaborCost(r.EstimatedMinutes, rate)
	r.EstimatedTotal = r.EstimatedLaborCost.Add(r.EstimatedMaterialCost)
	r.Profit = r.EstimatedTotal.Sub(r.ActualTotal)
	r.ProfitPercentage = ProfitPercentage(r.Profit, r.EstimatedTotal)
	return r
}
