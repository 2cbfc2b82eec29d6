// Package jobcost converts approved estimates into jobs and compares the
// estimated stage figures with the actuals recorded while the job runs.
package jobcost

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/Simplici0/costbook/internal/estimate"
	"github.com/Simplici0/costbook/internal/model"
)

// Store is the persistence the job cost service needs.
type Store interface {
	GetEstimate(ctx context.Context, id int64) (*model.Estimate, error)
	// ConvertEstimate saves job and stages and marks the estimate converted
	// atomically. It fails with ErrInvalidState if the estimate is no longer
	// an unconverted approved estimate.
	ConvertEstimate(ctx context.Context, estimateID int64, job *model.Job, stages []*model.JobStage) error
	GetJob(ctx context.Context, id int64) (*model.Job, error)
	GetJobStages(ctx context.Context, jobID int64) ([]*model.JobStage, error)
	AddStageActuals(ctx context.Context, jobID int64, stage string, hours, material decimal.Decimal) (*model.JobStage, error)
}

// Service implements job conversion and actuals tracking.
type Service struct {
	store  Store
	logger zerolog.Logger
}

// NewService builds a Service logging through the global logger.
func NewService(store Store) *Service {
	return &Service{store: store, logger: log.Logger}
}

// Convert turns an approved estimate into a job. Each stage's estimate is
// copied once from the estimate rollup; later estimate edits are refused
// because the estimate is locked.
func (s *Service) Convert(ctx context.Context, estimateID int64) (*model.Job, []*model.JobStage, error) {
	est, err := s.store.GetEstimate(ctx, estimateID)
	if err != nil {
		return nil, nil, err
	}
	if est.Locked() {
		return nil, nil, fmt.Errorf("%w: estimate %d was already converted", model.ErrInvalidState, estimateID)
	}
	if est.Status != model.EstimateApproved {
		return nil, nil, fmt.Errorf("%w: estimate %d is %s, only approved estimates can be converted", model.ErrInvalidState, estimateID, est.Status)
	}

	stages := StagesFromTotals(estimate.Aggregate(est))
	job := &model.Job{
		CustomerID: est.CustomerID,
		Name:       est.JobName,
		Status:     model.JobActive,
		LaborRate:  est.LaborRate,
		Notes:      fmt.Sprintf("Created from estimate %s", est.Number),
	}
	if err := s.store.ConvertEstimate(ctx, estimateID, job, stages); err != nil {
		return nil, nil, err
	}

	s.logger.Info().
		Int64("estimate_id", estimateID).
		Int64("job_id", job.ID).
		Int("stages", len(stages)).
		Msg("estimate converted to job")
	return job, stages, nil
}

// StagesFromTotals builds the job stages of an estimate rollup: the four
// labor stages always, plus Other when price list lines carried labor or
// material.
func StagesFromTotals(t estimate.Totals) []*model.JobStage {
	stages := make([]*model.JobStage, 0, len(model.Stages)+1)
	for _, name := range model.Stages {
		st := t.Stage(name)
		stages = append(stages, newStage(name, st.Minutes, st.MaterialCost))
	}
	if t.UnstagedMinutes > 0 || !t.UnstagedMaterialCost.IsZero() {
		stages = append(stages, newStage(model.StageOther, t.UnstagedMinutes, t.UnstagedMaterialCost))
	}
	return stages
}

func newStage(name string, minutes int, material decimal.Decimal) *model.JobStage {
	return &model.JobStage{
		Name:                  name,
		EstimatedMinutes:      minutes,
		EstimatedHours:        model.MinutesToHours(minutes),
		EstimatedMaterialCost: material,
		ActualHours:           decimal.Zero,
		ActualMaterialCost:    decimal.Zero,
	}
}

// RecordLabor adds worked hours to a stage.
func (s *Service) RecordLabor(ctx context.Context, jobID int64, stage string, hours decimal.Decimal) (*model.JobStage, error) {
	if !hours.IsPositive() {
		return nil, fmt.Errorf("%w: labor hours must be positive", model.ErrInvalidValue)
	}
	if !model.ValidStage(stage) {
		return nil, fmt.Errorf("%w: unknown stage %q", model.ErrInvalidValue, stage)
	}
	return s.store.AddStageActuals(ctx, jobID, stage, hours, decimal.Zero)
}

// RecordMaterial adds a material purchase to a stage.
func (s *Service) RecordMaterial(ctx context.Context, jobID int64, stage string, cost decimal.Decimal) (*model.JobStage, error) {
	if !cost.IsPositive() {
		return nil, fmt.Errorf("%w: material cost must be positive", model.ErrInvalidValue)
	}
	if !model.ValidStage(stage) {
		return nil, fmt.Errorf("%w: unknown stage %q", model.ErrInvalidValue, stage)
	}
	return s.store.AddStageActuals(ctx, jobID, stage, decimal.Zero, cost)
}
