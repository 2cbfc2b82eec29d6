package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/Simplici0/costbook/internal/model"
)

const estimateColumns = `id, number, customer_id, job_name, status, labor_rate, material_markup, tax_percent,
	job_id, notes, created_at, updated_at`

// CreateEstimate inserts the estimate header and its rooms. A blank Number
// is assigned from the generated id.
func (s *Store) CreateEstimate(ctx context.Context, e *model.Estimate) error {
	now, ts := s.stamp()

	return s.withTx(ctx, "create estimate", func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
			INSERT INTO estimates (number, customer_id, job_name, status, labor_rate, material_markup, tax_percent,
			                       job_id, notes, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`, pendingNumber(e.Number), e.CustomerID, e.JobName, string(e.Status), e.LaborRate, e.MaterialMarkup,
			e.TaxPercent, nullInt64(e.JobID), e.Notes, ts, ts)
		if err != nil {
			return wrapErr("insert estimate", err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return wrapErr("insert estimate id", err)
		}
		if e.Number == "" {
			e.Number = fmt.Sprintf("EST-%05d", id)
			if _, err := tx.ExecContext(ctx, `UPDATE estimates SET number = ? WHERE id = ?`, e.Number, id); err != nil {
				return wrapErr("number estimate", err)
			}
		}

		e.ID = id
		e.CreatedAt = now
		e.UpdatedAt = now
		return replaceRooms(ctx, tx, e)
	})
}

// GetEstimate loads the whole estimate aggregate.
func (s *Store) GetEstimate(ctx context.Context, id int64) (*model.Estimate, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+estimateColumns+` FROM estimates WHERE id = ?`, id)
	e, err := scanEstimate(row)
	if err != nil {
		return nil, wrapErr(fmt.Sprintf("get estimate %d", id), err)
	}

	rooms, err := s.db.QueryContext(ctx, `
		SELECT id, estimate_id, name, room_order FROM estimate_rooms WHERE estimate_id = ? ORDER BY room_order, id
	`, id)
	if err != nil {
		return nil, wrapErr("list estimate rooms", err)
	}
	defer rooms.Close()

	byID := map[int64]*model.EstimateRoom{}
	e.Rooms = []*model.EstimateRoom{}
	for rooms.Next() {
		r := &model.EstimateRoom{Items: []*model.LineItem{}}
		if err := rooms.Scan(&r.ID, &r.EstimateID, &r.Name, &r.Order); err != nil {
			return nil, wrapErr("scan estimate room", err)
		}
		e.Rooms = append(e.Rooms, r)
		byID[r.ID] = r
	}
	if err := rooms.Err(); err != nil {
		return nil, wrapErr("list estimate rooms", err)
	}

	items, err := s.db.QueryContext(ctx, `
		SELECT li.id, li.room_id, li.mode, li.assembly_id, li.price_list_item_id, li.code, li.description,
		       li.quantity, li.unit_material_cost, li.unit_price, li.rough_minutes, li.finish_minutes,
		       li.service_minutes, li.extra_minutes, li.labor_minutes, li.line_order, li.notes
		FROM estimate_line_items li
		JOIN estimate_rooms r ON r.id = li.room_id
		WHERE r.estimate_id = ?
		ORDER BY li.line_order, li.id
	`, id)
	if err != nil {
		return nil, wrapErr("list estimate line items", err)
	}
	defer items.Close()

	for items.Next() {
		var (
			li              model.LineItem
			mode            string
			assemblyID, pli sql.NullInt64
		)
		if err := items.Scan(&li.ID, &li.RoomID, &mode, &assemblyID, &pli, &li.Code, &li.Description,
			&li.Quantity, &li.UnitMaterialCost, &li.UnitPrice, &li.StageLabor.RoughMinutes,
			&li.StageLabor.FinishMinutes, &li.StageLabor.ServiceMinutes, &li.StageLabor.ExtraMinutes,
			&li.LaborMinutes, &li.LineOrder, &li.Notes); err != nil {
			return nil, wrapErr("scan estimate line item", err)
		}
		li.Mode = model.EntryMode(mode)
		li.AssemblyID = int64Ptr(assemblyID)
		li.PriceListItemID = int64Ptr(pli)
		if r, ok := byID[li.RoomID]; ok {
			r.Items = append(r.Items, &li)
		}
	}
	if err := items.Err(); err != nil {
		return nil, wrapErr("list estimate line items", err)
	}
	return e, nil
}

// SaveEstimate stores the whole aggregate: the header is updated and the
// room/line-item tree is replaced. Existing ids are kept; new rooms and
// lines get their ids assigned.
func (s *Store) SaveEstimate(ctx context.Context, e *model.Estimate) error {
	now, ts := s.stamp()

	return s.withTx(ctx, "save estimate", func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
			UPDATE estimates
			SET customer_id = ?, job_name = ?, status = ?, labor_rate = ?, material_markup = ?, tax_percent = ?,
			    job_id = ?, notes = ?, updated_at = ?
			WHERE id = ?
		`, e.CustomerID, e.JobName, string(e.Status), e.LaborRate, e.MaterialMarkup, e.TaxPercent,
			nullInt64(e.JobID), e.Notes, ts, e.ID)
		if err != nil {
			return wrapErr("update estimate", err)
		}
		if err := requireRow(res, fmt.Sprintf("update estimate %d", e.ID)); err != nil {
			return err
		}

		if _, err := tx.ExecContext(ctx, `DELETE FROM estimate_rooms WHERE estimate_id = ?`, e.ID); err != nil {
			return wrapErr("clear estimate rooms", err)
		}
		if err := replaceRooms(ctx, tx, e); err != nil {
			return err
		}
		e.UpdatedAt = now
		return nil
	})
}

// replaceRooms inserts the room/line-item tree of e. Rows are written with
// their existing ids when they have one.
func replaceRooms(ctx context.Context, tx *sql.Tx, e *model.Estimate) error {
	for _, r := range e.Rooms {
		r.EstimateID = e.ID
		res, err := tx.ExecContext(ctx, `
			INSERT INTO estimate_rooms (id, estimate_id, name, room_order) VALUES (?, ?, ?, ?)
		`, zeroAsNull(r.ID), r.EstimateID, r.Name, r.Order)
		if err != nil {
			return wrapErr("insert estimate room", err)
		}
		if r.ID == 0 {
			if r.ID, err = res.LastInsertId(); err != nil {
				return wrapErr("insert estimate room id", err)
			}
		}

		for _, li := range r.Items {
			li.RoomID = r.ID
			res, err := tx.ExecContext(ctx, `
				INSERT INTO estimate_line_items (id, room_id, mode, assembly_id, price_list_item_id, code, description,
				                                 quantity, unit_material_cost, unit_price, rough_minutes, finish_minutes,
				                                 service_minutes, extra_minutes, labor_minutes, line_order, notes)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			`, zeroAsNull(li.ID), li.RoomID, string(li.Mode), nullInt64(li.AssemblyID), nullInt64(li.PriceListItemID),
				li.Code, li.Description, li.Quantity, li.UnitMaterialCost, li.UnitPrice,
				li.StageLabor.RoughMinutes, li.StageLabor.FinishMinutes, li.StageLabor.ServiceMinutes,
				li.StageLabor.ExtraMinutes, li.LaborMinutes, li.LineOrder, li.Notes)
			if err != nil {
				return wrapErr("insert estimate line item", err)
			}
			if li.ID == 0 {
				if li.ID, err = res.LastInsertId(); err != nil {
					return wrapErr("insert estimate line item id", err)
				}
			}
		}
	}
	return nil
}

func scanEstimate(row scanner) (*model.Estimate, error) {
	var (
		e                    model.Estimate
		status               string
		jobID                sql.NullInt64
		createdAt, updatedAt string
	)
	if err := row.Scan(&e.ID, &e.Number, &e.CustomerID, &e.JobName, &status, &e.LaborRate, &e.MaterialMarkup,
		&e.TaxPercent, &jobID, &e.Notes, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	e.Status = model.EstimateStatus(status)
	e.JobID = int64Ptr(jobID)
	var err error
	if e.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if e.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}
	return &e, nil
}

func zeroAsNull(id int64) sql.NullInt64 {
	return sql.NullInt64{Int64: id, Valid: id != 0}
}

// pendingNumber stores NULL until the generated number is written.
func pendingNumber(n string) any {
	if n == "" {
		return sql.NullString{}
	}
	return n
}
