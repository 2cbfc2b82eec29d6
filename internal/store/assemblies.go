package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/Simplici0/costbook/internal/model"
)

const assemblyColumns = `id, code, name, description, category, rough_minutes, finish_minutes, service_minutes,
	extra_minutes, is_default, active, sort_order, created_by, created_at, updated_by, updated_at`

const componentColumns = `id, assembly_id, item_kind, item_id, quantity, unit_price, item_name, notes`

// CreateAssembly inserts a template and its components. When a.IsDefault is
// set the previous default of the same code is cleared in the same transaction.
func (s *Store) CreateAssembly(ctx context.Context, a *model.AssemblyTemplate, components []*model.AssemblyComponent) error {
	now, ts := s.stamp()

	return s.withTx(ctx, "create assembly", func(tx *sql.Tx) error {
		if a.IsDefault {
			if _, err := tx.ExecContext(ctx, `UPDATE assemblies SET is_default = 0 WHERE code = ?`, a.Code); err != nil {
				return wrapErr("clear default assembly", err)
			}
		}

		res, err := tx.ExecContext(ctx, `
			INSERT INTO assemblies (code, name, description, category, rough_minutes, finish_minutes, service_minutes,
			                        extra_minutes, is_default, active, sort_order, created_by, created_at, updated_by, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`, a.Code, a.Name, a.Description, a.Category, a.Labor.RoughMinutes, a.Labor.FinishMinutes,
			a.Labor.ServiceMinutes, a.Labor.ExtraMinutes, a.IsDefault, a.Active, a.SortOrder,
			a.CreatedBy, ts, a.CreatedBy, ts)
		if err != nil {
			return wrapErr("insert assembly", err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return wrapErr("insert assembly id", err)
		}

		for _, c := range components {
			c.AssemblyID = id
			if err := insertComponent(ctx, tx, c); err != nil {
				return err
			}
		}

		a.ID = id
		a.CreatedAt = now
		a.UpdatedAt = now
		a.UpdatedBy = a.CreatedBy
		return nil
	})
}

// GetAssembly returns a template by id.
func (s *Store) GetAssembly(ctx context.Context, id int64) (*model.AssemblyTemplate, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+assemblyColumns+` FROM assemblies WHERE id = ?`, id)
	a, err := scanAssembly(row)
	if err != nil {
		return nil, wrapErr(fmt.Sprintf("get assembly %d", id), err)
	}
	return a, nil
}

// ListAssembliesByCode returns the variant group of code, default first.
func (s *Store) ListAssembliesByCode(ctx context.Context, code string) ([]*model.AssemblyTemplate, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+assemblyColumns+`
		FROM assemblies
		WHERE code = ?
		ORDER BY is_default DESC, sort_order, id
	`, code)
	if err != nil {
		return nil, wrapErr("list assemblies", err)
	}
	defer rows.Close()

	out := []*model.AssemblyTemplate{}
	for rows.Next() {
		a, err := scanAssembly(rows)
		if err != nil {
			return nil, wrapErr("scan assembly", err)
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapErr("list assemblies", err)
	}
	return out, nil
}

// UpdateAssemblyLabor replaces the stage minutes of a template.
func (s *Store) UpdateAssemblyLabor(ctx context.Context, id int64, labor model.Labor, actor string) error {
	_, ts := s.stamp()
	res, err := s.db.ExecContext(ctx, `
		UPDATE assemblies
		SET rough_minutes = ?, finish_minutes = ?, service_minutes = ?, extra_minutes = ?, updated_by = ?, updated_at = ?
		WHERE id = ?
	`, labor.RoughMinutes, labor.FinishMinutes, labor.ServiceMinutes, labor.ExtraMinutes, actor, ts, id)
	if err != nil {
		return wrapErr("update assembly labor", err)
	}
	return requireRow(res, fmt.Sprintf("update assembly %d", id))
}

// SetDefaultAssembly makes id the single default of its variant group.
func (s *Store) SetDefaultAssembly(ctx context.Context, id int64) error {
	return s.withTx(ctx, "set default assembly", func(tx *sql.Tx) error {
		var code string
		if err := tx.QueryRowContext(ctx, `SELECT code FROM assemblies WHERE id = ?`, id).Scan(&code); err != nil {
			return wrapErr(fmt.Sprintf("get assembly %d", id), err)
		}
		if _, err := tx.ExecContext(ctx, `UPDATE assemblies SET is_default = 0 WHERE code = ? AND id <> ?`, code, id); err != nil {
			return wrapErr("clear default assembly", err)
		}
		if _, err := tx.ExecContext(ctx, `UPDATE assemblies SET is_default = 1 WHERE id = ?`, id); err != nil {
			return wrapErr("set default assembly", err)
		}
		return nil
	})
}

// ListComponents returns the components of an assembly in insertion order.
func (s *Store) ListComponents(ctx context.Context, assemblyID int64) ([]*model.AssemblyComponent, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+componentColumns+` FROM assembly_components WHERE assembly_id = ? ORDER BY id
	`, assemblyID)
	if err != nil {
		return nil, wrapErr("list components", err)
	}
	defer rows.Close()

	out := []*model.AssemblyComponent{}
	for rows.Next() {
		c, err := scanComponent(rows)
		if err != nil {
			return nil, wrapErr("scan component", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapErr("list components", err)
	}
	return out, nil
}

// AddComponent inserts c. An item already present in the assembly yields
// ErrDuplicateComponent.
func (s *Store) AddComponent(ctx context.Context, c *model.AssemblyComponent) error {
	return s.withTx(ctx, "add component", func(tx *sql.Tx) error {
		var exists bool
		if err := tx.QueryRowContext(ctx, `
			SELECT EXISTS(SELECT 1 FROM assembly_components WHERE assembly_id = ? AND item_kind = ? AND item_id = ?)
		`, c.AssemblyID, string(c.Item.Kind), c.Item.ID).Scan(&exists); err != nil {
			return wrapErr("check component existence", err)
		}
		if exists {
			return fmt.Errorf("%w: %s %d in assembly %d", model.ErrDuplicateComponent, c.Item.Kind, c.Item.ID, c.AssemblyID)
		}
		return insertComponent(ctx, tx, c)
	})
}

// UpdateComponentQuantity changes the quantity of a component.
func (s *Store) UpdateComponentQuantity(ctx context.Context, id int64, qty decimal.Decimal) error {
	res, err := s.db.ExecContext(ctx, `UPDATE assembly_components SET quantity = ? WHERE id = ?`, qty, id)
	if err != nil {
		return wrapErr("update component quantity", err)
	}
	return requireRow(res, fmt.Sprintf("update component %d", id))
}

// DeleteComponent removes a component and reports whether a row was deleted.
func (s *Store) DeleteComponent(ctx context.Context, id int64) (bool, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM assembly_components WHERE id = ?`, id)
	if err != nil {
		return false, wrapErr("delete component", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, wrapErr("delete component", err)
	}
	return n > 0, nil
}

func insertComponent(ctx context.Context, ex executor, c *model.AssemblyComponent) error {
	res, err := ex.ExecContext(ctx, `
		INSERT INTO assembly_components (assembly_id, item_kind, item_id, quantity, unit_price, item_name, notes)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, c.AssemblyID, string(c.Item.Kind), c.Item.ID, c.Quantity, c.UnitPrice, c.ItemName, c.Notes)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: %s %d in assembly %d", model.ErrDuplicateComponent, c.Item.Kind, c.Item.ID, c.AssemblyID)
		}
		return wrapErr("insert component", err)
	}
	if c.ID, err = res.LastInsertId(); err != nil {
		return wrapErr("insert component id", err)
	}
	return nil
}

func scanAssembly(row scanner) (*model.AssemblyTemplate, error) {
	var (
		a                    model.AssemblyTemplate
		createdAt, updatedAt string
	)
	if err := row.Scan(&a.ID, &a.Code, &a.Name, &a.Description, &a.Category,
		&a.Labor.RoughMinutes, &a.Labor.FinishMinutes, &a.Labor.ServiceMinutes, &a.Labor.ExtraMinutes,
		&a.IsDefault, &a.Active, &a.SortOrder, &a.CreatedBy, &createdAt, &a.UpdatedBy, &updatedAt); err != nil {
		return nil, err
	}
	var err error
	if a.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if a.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}
	return &a, nil
}

func scanComponent(row scanner) (*model.AssemblyComponent, error) {
	var (
		c    model.AssemblyComponent
		kind string
	)
	if err := row.Scan(&c.ID, &c.AssemblyID, &kind, &c.Item.ID, &c.Quantity, &c.UnitPrice,
		&c.ItemName, &c.Notes); err != nil {
		return nil, err
	}
	c.Item.Kind = model.ItemKind(kind)
	return &c, nil
}
