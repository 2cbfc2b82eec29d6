// Package assembly manages assembly templates and prices them against the
// live material and price list catalog.
package assembly

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/Simplici0/costbook/internal/model"
)

// Store is the persistence the assembly service needs.
type Store interface {
	CreateAssembly(ctx context.Context, a *model.AssemblyTemplate, components []*model.AssemblyComponent) error
	GetAssembly(ctx context.Context, id int64) (*model.AssemblyTemplate, error)
	ListAssembliesByCode(ctx context.Context, code string) ([]*model.AssemblyTemplate, error)
	UpdateAssemblyLabor(ctx context.Context, id int64, labor model.Labor, actor string) error
	SetDefaultAssembly(ctx context.Context, id int64) error

	ListComponents(ctx context.Context, assemblyID int64) ([]*model.AssemblyComponent, error)
	AddComponent(ctx context.Context, c *model.AssemblyComponent) error
	UpdateComponentQuantity(ctx context.Context, id int64, qty decimal.Decimal) error
	DeleteComponent(ctx context.Context, id int64) (bool, error)

	GetMaterial(ctx context.Context, id int64) (*model.Material, error)
	GetPriceListItem(ctx context.Context, id int64) (*model.PriceListItem, error)
}

// Service implements assembly template operations.
type Service struct {
	store  Store
	logger zerolog.Logger
}

// NewService builds a Service logging through the global logger.
func NewService(store Store) *Service {
	return &Service{store: store, logger: log.Logger}
}

// NewAssembly is the input of Create.
type NewAssembly struct {
	Code        string
	Name        string
	Description string
	Category    string
	Labor       model.Labor
	SortOrder   int
	Actor       string
	// MakeDefault replaces the current default of the code. The first
	// template of a code is always the default.
	MakeDefault bool
}

// Create stores a new template. A template whose code already exists is
// created as a non-default variant unless MakeDefault is set.
func (s *Service) Create(ctx context.Context, in NewAssembly) (*model.AssemblyTemplate, error) {
	code := strings.ToUpper(strings.TrimSpace(in.Code))
	name := strings.TrimSpace(in.Name)
	if code == "" || strings.ContainsAny(code, " \t\n") {
		return nil, fmt.Errorf("%w: assembly code %q is malformed", model.ErrInvalidValue, in.Code)
	}
	if name == "" {
		return nil, fmt.Errorf("%w: assembly name is required", model.ErrInvalidValue)
	}
	if !in.Labor.Valid() {
		return nil, fmt.Errorf("%w: labor minutes must not be negative", model.ErrInvalidValue)
	}

	group, err := s.store.ListAssembliesByCode(ctx, code)
	if err != nil {
		return nil, err
	}

	a := &model.AssemblyTemplate{
		Code:        code,
		Name:        name,
		Description: in.Description,
		Category:    in.Category,
		Labor:       in.Labor,
		IsDefault:   len(group) == 0 || in.MakeDefault,
		Active:      true,
		SortOrder:   in.SortOrder,
		CreatedBy:   actorOrSystem(in.Actor),
	}
	if err := s.store.CreateAssembly(ctx, a, nil); err != nil {
		return nil, err
	}
	s.logger.Info().Int64("assembly_id", a.ID).Str("code", a.Code).Bool("default", a.IsDefault).Msg("assembly created")
	return a, nil
}

// CreateVariant copies the labor and components of sourceID into a new,
// non-default template sharing its code.
func (s *Service) CreateVariant(ctx context.Context, sourceID int64, name, actor string) (*model.AssemblyTemplate, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: variant name is required", model.ErrInvalidValue)
	}
	src, err := s.store.GetAssembly(ctx, sourceID)
	if err != nil {
		return nil, err
	}
	components, err := s.store.ListComponents(ctx, sourceID)
	if err != nil {
		return nil, err
	}

	variant := &model.AssemblyTemplate{
		Code:        src.Code,
		Name:        name,
		Description: src.Description,
		Category:    src.Category,
		Labor:       src.Labor,
		Active:      true,
		SortOrder:   src.SortOrder,
		CreatedBy:   actorOrSystem(actor),
	}
	copies := make([]*model.AssemblyComponent, 0, len(components))
	for _, c := range components {
		copies = append(copies, &model.AssemblyComponent{
			Item:      c.Item,
			Quantity:  c.Quantity,
			UnitPrice: c.UnitPrice,
			ItemName:  c.ItemName,
			Notes:     c.Notes,
		})
	}
	if err := s.store.CreateAssembly(ctx, variant, copies); err != nil {
		return nil, err
	}
	return variant, nil
}

// SetDefault makes id the default of its variant group.
func (s *Service) SetDefault(ctx context.Context, id int64) error {
	return s.store.SetDefaultAssembly(ctx, id)
}

// Variants lists the templates sharing code, default first.
func (s *Service) Variants(ctx context.Context, code string) ([]*model.AssemblyTemplate, error) {
	return s.store.ListAssembliesByCode(ctx, strings.ToUpper(strings.TrimSpace(code)))
}

// DefaultFor returns the default template of code.
func (s *Service) DefaultFor(ctx context.Context, code string) (*model.AssemblyTemplate, error) {
	group, err := s.Variants(ctx, code)
	if err != nil {
		return nil, err
	}
	for _, a := range group {
		if a.IsDefault {
			return a, nil
		}
	}
	return nil, fmt.Errorf("%w: no default assembly for code %q", model.ErrNotFound, code)
}

// UpdateLabor replaces the stage minutes of a template. Estimate lines
// already built from it keep their copied minutes.
func (s *Service) UpdateLabor(ctx context.Context, id int64, labor model.Labor, actor string) error {
	if !labor.Valid() {
		return fmt.Errorf("%w: labor minutes must not be negative", model.ErrInvalidValue)
	}
	return s.store.UpdateAssemblyLabor(ctx, id, labor, actorOrSystem(actor))
}

// AddComponent adds an item to an assembly. Adding an item that is already
// a component fails with ErrDuplicateComponent; change its quantity instead.
func (s *Service) AddComponent(ctx context.Context, assemblyID int64, item model.ItemRef, qty decimal.Decimal, notes string) (*model.AssemblyComponent, error) {
	if !qty.IsPositive() {
		return nil, fmt.Errorf("%w: component quantity must be positive", model.ErrInvalidValue)
	}
	if _, err := s.store.GetAssembly(ctx, assemblyID); err != nil {
		return nil, err
	}
	price, name, err := s.resolve(ctx, item)
	if err != nil {
		return nil, err
	}

	c := &model.AssemblyComponent{
		AssemblyID: assemblyID,
		Item:       item,
		Quantity:   qty,
		UnitPrice:  price,
		ItemName:   name,
		Notes:      strings.TrimSpace(notes),
	}
	if err := s.store.AddComponent(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

// UpdateComponentQuantity changes the quantity of an existing component.
func (s *Service) UpdateComponentQuantity(ctx context.Context, componentID int64, qty decimal.Decimal) error {
	if !qty.IsPositive() {
		return fmt.Errorf("%w: component quantity must be positive", model.ErrInvalidValue)
	}
	return s.store.UpdateComponentQuantity(ctx, componentID, qty)
}

// RemoveComponent deletes a component. Removing one that is already gone is
// not an error.
func (s *Service) RemoveComponent(ctx context.Context, componentID int64) error {
	deleted, err := s.store.DeleteComponent(ctx, componentID)
	if err != nil {
		return err
	}
	if !deleted {
		s.logger.Debug().Int64("component_id", componentID).Msg("component already removed")
	}
	return nil
}

// resolve returns the live unit price and display name of an item.
func (s *Service) resolve(ctx context.Context, item model.ItemRef) (decimal.Decimal, string, error) {
	switch item.Kind {
	case model.ItemMaterial:
		m, err := s.store.GetMaterial(ctx, item.ID)
		if err != nil {
			return decimal.Zero, "", err
		}
		return m.CurrentPrice, m.Name, nil
	case model.ItemPriceListItem:
		p, err := s.store.GetPriceListItem(ctx, item.ID)
		if err != nil {
			return decimal.Zero, "", err
		}
		return p.BaseCost, p.Name, nil
	default:
		return decimal.Zero, "", fmt.Errorf("%w: unknown component kind %q", model.ErrInvalidValue, item.Kind)
	}
}

func actorOrSystem(actor string) string {
	if a := strings.TrimSpace(actor); a != "" {
		return a
	}
	return "system"
}
