package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Simplici0/costbook/internal/model"
)

const materialColumns = `id, code, name, category, unit_of_measure, current_price, tax_rate, active, created_at, updated_at`

// CreateMaterial inserts m and records its starting price as the first
// history entry, so every later change has a predecessor to compare with.
func (s *Store) CreateMaterial(ctx context.Context, m *model.Material, actor string) error {
	m.Code = strings.TrimSpace(m.Code)
	m.Name = strings.TrimSpace(m.Name)
	if m.Code == "" || m.Name == "" {
		return fmt.Errorf("%w: material code and name are required", model.ErrInvalidValue)
	}
	if m.CurrentPrice.IsNegative() || m.TaxRate.IsNegative() {
		return fmt.Errorf("%w: material price and tax rate must not be negative", model.ErrInvalidValue)
	}
	if m.UnitOfMeasure == "" {
		m.UnitOfMeasure = "EA"
	}
	if actor == "" {
		actor = "system"
	}
	now, ts := s.stamp()

	return s.withTx(ctx, "create material", func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
			INSERT INTO materials (code, name, category, unit_of_measure, current_price, tax_rate, active, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		`, m.Code, m.Name, m.Category, m.UnitOfMeasure, m.CurrentPrice, m.TaxRate, m.Active, ts, ts)
		if err != nil {
			return wrapErr("insert material", err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return wrapErr("insert material id", err)
		}

		baseline := model.PriceHistoryEntry{
			MaterialID:                   id,
			Price:                        m.CurrentPrice,
			EffectiveDate:                now,
			CreatedBy:                    actor,
			PercentageChangeFromPrevious: decimal.Zero,
			AlertLevel:                   model.AlertNone,
		}
		if err := insertPriceHistory(ctx, tx, &baseline); err != nil {
			return err
		}

		m.ID = id
		m.CreatedAt = now
		m.UpdatedAt = now
		return nil
	})
}

// GetMaterial returns a material by id.
func (s *Store) GetMaterial(ctx context.Context, id int64) (*model.Material, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+materialColumns+` FROM materials WHERE id = ?`, id)
	m, err := scanMaterial(row)
	if err != nil {
		return nil, wrapErr(fmt.Sprintf("get material %d", id), err)
	}
	return m, nil
}

// GetMaterialByCode returns a material by its unique code.
func (s *Store) GetMaterialByCode(ctx context.Context, code string) (*model.Material, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+materialColumns+` FROM materials WHERE code = ?`, code)
	m, err := scanMaterial(row)
	if err != nil {
		return nil, wrapErr(fmt.Sprintf("get material %q", code), err)
	}
	return m, nil
}

// ListMaterials returns the active materials ordered by id.
func (s *Store) ListMaterials(ctx context.Context) ([]*model.Material, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+materialColumns+` FROM materials WHERE active = 1 ORDER BY id`)
	if err != nil {
		return nil, wrapErr("list materials", err)
	}
	defer rows.Close()

	materials := []*model.Material{}
	for rows.Next() {
		m, err := scanMaterial(rows)
		if err != nil {
			return nil, wrapErr("scan material", err)
		}
		materials = append(materials, m)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapErr("list materials", err)
	}
	return materials, nil
}

// QueryPriceHistory returns a material's history in ascending effective date
// order. Nil bounds are open and non-nil bounds are inclusive.
func (s *Store) QueryPriceHistory(ctx context.Context, materialID int64, from, to *time.Time) ([]model.PriceHistoryEntry, error) {
	query := `
		SELECT id, material_id, price, effective_date, created_by, vendor_id, purchase_order,
		       quantity_purchased, percentage_change, alert_level
		FROM price_history
		WHERE material_id = ?`
	args := []any{materialID}
	if from != nil {
		query += ` AND effective_date >= ?`
		args = append(args, formatTime(*from))
	}
	if to != nil {
		query += ` AND effective_date <= ?`
		args = append(args, formatTime(*to))
	}
	query += ` ORDER BY effective_date, id`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, wrapErr("query price history", err)
	}
	defer rows.Close()

	history := []model.PriceHistoryEntry{}
	for rows.Next() {
		var (
			h        model.PriceHistoryEntry
			at       string
			vendorID sql.NullInt64
			po       sql.NullString
			qty      decimal.NullDecimal
			level    string
		)
		if err := rows.Scan(&h.ID, &h.MaterialID, &h.Price, &at, &h.CreatedBy, &vendorID, &po,
			&qty, &h.PercentageChangeFromPrevious, &level); err != nil {
			return nil, wrapErr("scan price history", err)
		}
		if h.EffectiveDate, err = parseTime(at); err != nil {
			return nil, err
		}
		h.VendorID = int64Ptr(vendorID)
		if po.Valid {
			v := po.String
			h.PurchaseOrder = &v
		}
		if qty.Valid {
			v := qty.Decimal
			h.QuantityPurchased = &v
		}
		h.AlertLevel = model.AlertLevel(level)
		history = append(history, h)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapErr("query price history", err)
	}
	return history, nil
}

// SavePriceChange appends entry and stores the material's new current price
// in one transaction. Nothing is written if either step fails.
func (s *Store) SavePriceChange(ctx context.Context, m *model.Material, entry *model.PriceHistoryEntry) error {
	return s.withTx(ctx, "save price change", func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
			UPDATE materials SET current_price = ?, updated_at = ? WHERE id = ?
		`, m.CurrentPrice, formatTime(m.UpdatedAt), m.ID)
		if err != nil {
			return wrapErr("update material price", err)
		}
		if err := requireRow(res, fmt.Sprintf("update material %d", m.ID)); err != nil {
			return err
		}
		return insertPriceHistory(ctx, tx, entry)
	})
}

func insertPriceHistory(ctx context.Context, ex executor, h *model.PriceHistoryEntry) error {
	var po sql.NullString
	if h.PurchaseOrder != nil {
		po = sql.NullString{String: *h.PurchaseOrder, Valid: true}
	}
	var qty decimal.NullDecimal
	if h.QuantityPurchased != nil {
		qty = decimal.NewNullDecimal(*h.QuantityPurchased)
	}

	res, err := ex.ExecContext(ctx, `
		INSERT INTO price_history (material_id, price, effective_date, created_by, vendor_id, purchase_order,
		                           quantity_purchased, percentage_change, alert_level)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, h.MaterialID, h.Price, formatTime(h.EffectiveDate), h.CreatedBy, nullInt64(h.VendorID), po,
		qty, h.PercentageChangeFromPrevious, string(h.AlertLevel))
	if err != nil {
		return wrapErr("insert price history", err)
	}
	if h.ID, err = res.LastInsertId(); err != nil {
		return wrapErr("insert price history id", err)
	}
	return nil
}

func scanMaterial(row scanner) (*model.Material, error) {
	var (
		m                    model.Material
		createdAt, updatedAt string
	)
	if err := row.Scan(&m.ID, &m.Code, &m.Name, &m.Category, &m.UnitOfMeasure, &m.CurrentPrice,
		&m.TaxRate, &m.Active, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	var err error
	if m.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if m.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}
	return &m, nil
}
