package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Stage names used for labor buckets and job stages.
const (
	StageRough   = "Rough"
	StageFinish  = "Finish"
	StageService = "Service"
	StageExtra   = "Extra"
	StageOther   = "Other"
)

// Stages lists the labor stages in display order.
var Stages = []string{StageRough, StageFinish, StageService, StageExtra}

// JobActive is the status of a job created from an estimate.
const JobActive = "active"

// ValidStage reports whether name is a known job stage.
func ValidStage(name string) bool {
	for _, s := range Stages {
		if s == name {
			return true
		}
	}
	return name == StageOther
}

// Job is the executed counterpart of an approved estimate.
type Job struct {
	ID         int64           `json:"id"`
	Number     string          `json:"number"`
	EstimateID int64           `json:"estimate_id"`
	CustomerID int64           `json:"customer_id"`
	Name       string          `json:"name"`
	Status     string          `json:"status"`
	LaborRate  decimal.Decimal `json:"labor_rate"`
	CreatedAt  time.Time       `json:"created_at"`
	Notes      string          `json:"notes,omitempty"`
}

// JobStage holds estimated figures copied at conversion time and the actuals
// accumulated while the job runs. EstimatedMinutes is the source of the
// estimated labor; EstimatedHours is its display form.
type JobStage struct {
	ID                    int64           `json:"id"`
	JobID                 int64           `json:"job_id"`
	Name                  string          `json:"name"`
	EstimatedMinutes      int             `json:"estimated_minutes"`
	EstimatedHours        decimal.Decimal `json:"estimated_hours"`
	EstimatedMaterialCost decimal.Decimal `json:"estimated_material_cost"`
	ActualHours           decimal.Decimal `json:"actual_hours"`
	ActualMaterialCost    decimal.Decimal `json:"actual_material_cost"`
	Notes                 string          `json:"notes,omitempty"`
}

// HoursVariance is estimated minus actual hours.
func (s *JobStage) HoursVariance() decimal.Decimal {
	return s.EstimatedHours.Sub(s.ActualHours)
}

// MaterialVariance is estimated minus actual material cost.
func (s *JobStage) MaterialVariance() decimal.Decimal {
	return s.EstimatedMaterialCost.Sub(s.ActualMaterialCost)
}

// EstimatedLaborCost prices the estimated minutes the same way the estimate
// prices its labor.
func (s *JobStage) EstimatedLaborCost(rate decimal.Decimal) decimal.Decimal {
	return LaborCost(s.EstimatedMinutes, rate)
}

// EstimatedTotal is the estimated labor cost plus estimated material.
func (s *JobStage) EstimatedTotal(rate decimal.Decimal) decimal.Decimal {
	return s.EstimatedLaborCost(rate).Add(s.EstimatedMaterialCost)
}

// ActualTotal prices the actual hours at rate and adds actual material.
func (s *JobStage) ActualTotal(rate decimal.Decimal) decimal.Decimal {
	return s.ActualHours.Mul(rate).Add(s.ActualMaterialCost)
}
