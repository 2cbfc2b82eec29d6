package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/Simplici0/costbook/internal/model"
)

const priceListColumns = `id, code, name, category, base_cost, markup_percent, labor_minutes, active`

// CreatePriceListItem inserts a catalog entry.
func (s *Store) CreatePriceListItem(ctx context.Context, p *model.PriceListItem) error {
	p.Code = strings.TrimSpace(p.Code)
	p.Name = strings.TrimSpace(p.Name)
	if p.Code == "" || p.Name == "" {
		return fmt.Errorf("%w: price list item code and name are required", model.ErrInvalidValue)
	}
	if p.BaseCost.IsNegative() || p.MarkupPercent.IsNegative() || p.LaborMinutes < 0 {
		return fmt.Errorf("%w: price list item cost, markup and labor must not be negative", model.ErrInvalidValue)
	}

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO price_list_items (code, name, category, base_cost, markup_percent, labor_minutes, active)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, p.Code, p.Name, p.Category, p.BaseCost, p.MarkupPercent, p.LaborMinutes, p.Active)
	if err != nil {
		return wrapErr("insert price list item", err)
	}
	if p.ID, err = res.LastInsertId(); err != nil {
		return wrapErr("insert price list item id", err)
	}
	return nil
}

// GetPriceListItem returns a price list item by id.
func (s *Store) GetPriceListItem(ctx context.Context, id int64) (*model.PriceListItem, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+priceListColumns+` FROM price_list_items WHERE id = ?`, id)
	p, err := scanPriceListItem(row)
	if err != nil {
		return nil, wrapErr(fmt.Sprintf("get price list item %d", id), err)
	}
	return p, nil
}

// UpdatePriceListItemCost changes the base cost of a catalog entry.
func (s *Store) UpdatePriceListItemCost(ctx context.Context, id int64, baseCost decimal.Decimal) error {
	if baseCost.IsNegative() {
		return fmt.Errorf("%w: base cost must not be negative", model.ErrInvalidValue)
	}
	res, err := s.db.ExecContext(ctx, `UPDATE price_list_items SET base_cost = ? WHERE id = ?`, baseCost, id)
	if err != nil {
		return wrapErr("update price list item cost", err)
	}
	return requireRow(res, fmt.Sprintf("update price list item %d", id))
}

func scanPriceListItem(row scanner) (*model.PriceListItem, error) {
	var p model.PriceListItem
	if err := row.Scan(&p.ID, &p.Code, &p.Name, &p.Category, &p.BaseCost, &p.MarkupPercent,
		&p.LaborMinutes, &p.Active); err != nil {
		return nil, err
	}
	return &p, nil
}
