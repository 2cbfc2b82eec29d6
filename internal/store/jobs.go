package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/Simplici0/costbook/internal/model"
)

const jobStageColumns = `id, job_id, name, estimated_minutes, estimated_hours, estimated_material_cost,
	actual_hours, actual_material_cost, notes`

// ConvertEstimate creates job and its stages and marks the estimate as
// converted, all in one transaction. The estimate must still be approved and
// unlinked when the transaction runs; otherwise ErrInvalidState is returned
// and nothing is written.
func (s *Store) ConvertEstimate(ctx context.Context, estimateID int64, job *model.Job, stages []*model.JobStage) error {
	now, ts := s.stamp()

	return s.withTx(ctx, "convert estimate", func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
			INSERT INTO jobs (number, estimate_id, customer_id, name, status, labor_rate, created_at, notes)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		`, pendingNumber(job.Number), estimateID, job.CustomerID, job.Name, job.Status, job.LaborRate, ts, job.Notes)
		if err != nil {
			if isUniqueViolation(err) {
				return fmt.Errorf("%w: estimate %d already has a job", model.ErrInvalidState, estimateID)
			}
			return wrapErr("insert job", err)
		}
		jobID, err := res.LastInsertId()
		if err != nil {
			return wrapErr("insert job id", err)
		}
		if job.Number == "" {
			job.Number = fmt.Sprintf("JOB-%05d", jobID)
			if _, err := tx.ExecContext(ctx, `UPDATE jobs SET number = ? WHERE id = ?`, job.Number, jobID); err != nil {
				return wrapErr("number job", err)
			}
		}

		for _, st := range stages {
			st.JobID = jobID
			if err := insertJobStage(ctx, tx, st); err != nil {
				return err
			}
		}

		res, err = tx.ExecContext(ctx, `
			UPDATE estimates SET status = ?, job_id = ?, updated_at = ?
			WHERE id = ? AND status = ? AND job_id IS NULL
		`, string(model.EstimateConverted), jobID, ts, estimateID, string(model.EstimateApproved))
		if err != nil {
			return wrapErr("mark estimate converted", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return wrapErr("mark estimate converted", err)
		}
		if n == 0 {
			return fmt.Errorf("%w: estimate %d is not an unconverted approved estimate", model.ErrInvalidState, estimateID)
		}

		job.ID = jobID
		job.EstimateID = estimateID
		job.CreatedAt = now
		return nil
	})
}

// GetJob returns a job by id.
func (s *Store) GetJob(ctx context.Context, id int64) (*model.Job, error) {
	var (
		j         model.Job
		createdAt string
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT id, number, estimate_id, customer_id, name, status, labor_rate, created_at, notes
		FROM jobs WHERE id = ?
	`, id).Scan(&j.ID, &j.Number, &j.EstimateID, &j.CustomerID, &j.Name, &j.Status, &j.LaborRate, &createdAt, &j.Notes)
	if err != nil {
		return nil, wrapErr(fmt.Sprintf("get job %d", id), err)
	}
	if j.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	return &j, nil
}

// GetJobStages returns the stages of a job in creation order.
func (s *Store) GetJobStages(ctx context.Context, jobID int64) ([]*model.JobStage, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+jobStageColumns+` FROM job_stages WHERE job_id = ? ORDER BY id`, jobID)
	if err != nil {
		return nil, wrapErr("list job stages", err)
	}
	defer rows.Close()

	out := []*model.JobStage{}
	for rows.Next() {
		st, err := scanJobStage(rows)
		if err != nil {
			return nil, wrapErr("scan job stage", err)
		}
		out = append(out, st)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapErr("list job stages", err)
	}
	return out, nil
}

// AddStageActuals adds hours and material cost to the actuals of a job
// stage. A stage that was not estimated is created with zero estimates.
func (s *Store) AddStageActuals(ctx context.Context, jobID int64, stage string, hours, material decimal.Decimal) (*model.JobStage, error) {
	var out *model.JobStage
	err := s.withTx(ctx, "add stage actuals", func(tx *sql.Tx) error {
		var exists bool
		if err := tx.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM jobs WHERE id = ?)`, jobID).Scan(&exists); err != nil {
			return wrapErr("check job existence", err)
		}
		if !exists {
			return fmt.Errorf("%w: job %d", model.ErrNotFound, jobID)
		}

		row := tx.QueryRowContext(ctx, `SELECT `+jobStageColumns+` FROM job_stages WHERE job_id = ? AND name = ?`, jobID, stage)
		st, err := scanJobStage(row)
		switch {
		case errors.Is(err, sql.ErrNoRows):
			st = &model.JobStage{JobID: jobID, Name: stage}
			if err := insertJobStage(ctx, tx, st); err != nil {
				return err
			}
		case err != nil:
			return wrapErr("get job stage", err)
		}

		st.ActualHours = st.ActualHours.Add(hours)
		st.ActualMaterialCost = st.ActualMaterialCost.Add(material)
		if _, err := tx.ExecContext(ctx, `
			UPDATE job_stages SET actual_hours = ?, actual_material_cost = ? WHERE id = ?
		`, st.ActualHours, st.ActualMaterialCost, st.ID); err != nil {
			return wrapErr("update job stage actuals", err)
		}
		out = st
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func insertJobStage(ctx context.Context, ex executor, st *model.JobStage) error {
	res, err := ex.ExecContext(ctx, `
		INSERT INTO job_stages (job_id, name, estimated_minutes, estimated_hours, estimated_material_cost,
		                        actual_hours, actual_material_cost, notes)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, st.JobID, st.Name, st.EstimatedMinutes, st.EstimatedHours, st.EstimatedMaterialCost, st.ActualHours, st.ActualMaterialCost, st.Notes)
	if err != nil {
		return wrapErr("insert job stage", err)
	}
	if st.ID, err = res.LastInsertId(); err != nil {
		return wrapErr("insert job stage id", err)
	}
	return nil
}

func scanJobStage(row scanner) (*model.JobStage, error) {
	var st model.JobStage
	if err := row.Scan(&st.ID, &st.JobID, &st.Name, &st.EstimatedMinutes, &st.EstimatedHours, &st.EstimatedMaterialCost,
		&st.ActualHours, &st.ActualMaterialCost, &st.Notes); err != nil {
		return nil, err
	}
	return &st, nil
}
