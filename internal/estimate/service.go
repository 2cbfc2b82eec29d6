// Package estimate builds estimates from assemblies and price list items and
// rolls them up into totals.
package estimate

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/Simplici0/costbook/internal/assembly"
	"github.com/Simplici0/costbook/internal/model"
)

// Store is the persistence the estimate service needs. Estimates are always
// loaded and saved as a whole aggregate.
type Store interface {
	CreateEstimate(ctx context.Context, e *model.Estimate) error
	GetEstimate(ctx context.Context, id int64) (*model.Estimate, error)
	SaveEstimate(ctx context.Context, e *model.Estimate) error
	GetPriceListItem(ctx context.Context, id int64) (*model.PriceListItem, error)
}

// AssemblyCoster prices an assembly against the live catalog.
type AssemblyCoster interface {
	Cost(ctx context.Context, id int64) (assembly.Cost, error)
}

// Defaults seed the rates of new estimates.
type Defaults struct {
	LaborRate      decimal.Decimal
	MaterialMarkup decimal.Decimal
	TaxPercent     decimal.Decimal
}

// Service implements estimate editing.
type Service struct {
	store      Store
	assemblies AssemblyCoster
	defaults   Defaults
	logger     zerolog.Logger
}

// NewService builds a Service.
func NewService(store Store, assemblies AssemblyCoster, defaults Defaults) *Service {
	return &Service{store: store, assemblies: assemblies, defaults: defaults, logger: log.Logger}
}

// NewEstimate is the input of Create. Nil rates take the service defaults.
type NewEstimate struct {
	CustomerID     int64
	JobName        string
	LaborRate      *decimal.Decimal
	MaterialMarkup *decimal.Decimal
	TaxPercent     *decimal.Decimal
	Notes          string
}

// Create stores a new draft estimate.
func (s *Service) Create(ctx context.Context, in NewEstimate) (*model.Estimate, error) {
	e := &model.Estimate{
		CustomerID:     in.CustomerID,
		JobName:        strings.TrimSpace(in.JobName),
		Status:         model.EstimateDraft,
		LaborRate:      pick(in.LaborRate, s.defaults.LaborRate),
		MaterialMarkup: pick(in.MaterialMarkup, s.defaults.MaterialMarkup),
		TaxPercent:     pick(in.TaxPercent, s.defaults.TaxPercent),
		Notes:          in.Notes,
		Rooms:          []*model.EstimateRoom{},
	}
	if e.JobName == "" {
		return nil, fmt.Errorf("%w: job name is required", model.ErrInvalidValue)
	}
	if e.LaborRate.IsNegative() || e.MaterialMarkup.IsNegative() || e.TaxPercent.IsNegative() {
		return nil, fmt.Errorf("%w: rates must not be negative", model.ErrInvalidValue)
	}
	if err := s.store.CreateEstimate(ctx, e); err != nil {
		return nil, err
	}
	s.logger.Info().Int64("estimate_id", e.ID).Str("number", e.Number).Msg("estimate created")
	return e, nil
}

// Get loads an estimate.
func (s *Service) Get(ctx context.Context, id int64) (*model.Estimate, error) {
	return s.store.GetEstimate(ctx, id)
}

// Totals recomputes the totals of an estimate from its stored tree.
func (s *Service) Totals(ctx context.Context, id int64) (Totals, error) {
	e, err := s.store.GetEstimate(ctx, id)
	if err != nil {
		return Totals{}, err
	}
	return Aggregate(e), nil
}

// AddRoom appends a room.
func (s *Service) AddRoom(ctx context.Context, estimateID int64, name string) (*model.EstimateRoom, Totals, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, Totals{}, fmt.Errorf("%w: room name is required", model.ErrInvalidValue)
	}
	e, err := s.editable(ctx, estimateID)
	if err != nil {
		return nil, Totals{}, err
	}

	order := 0
	for _, r := range e.Rooms {
		if r.Order > order {
			order = r.Order
		}
	}
	room := &model.EstimateRoom{Name: name, Order: order + 1, Items: []*model.LineItem{}}
	e.Rooms = append(e.Rooms, room)

	totals, err := s.commit(ctx, e)
	if err != nil {
		return nil, Totals{}, err
	}
	return room, totals, nil
}

// RemoveRoom deletes a room and its lines.
func (s *Service) RemoveRoom(ctx context.Context, estimateID, roomID int64) (Totals, error) {
	e, err := s.editable(ctx, estimateID)
	if err != nil {
		return Totals{}, err
	}
	kept := e.Rooms[:0]
	found := false
	for _, r := range e.Rooms {
		if r.ID == roomID {
			found = true
			continue
		}
		kept = append(kept, r)
	}
	if !found {
		return Totals{}, fmt.Errorf("%w: room %d in estimate %d", model.ErrNotFound, roomID, estimateID)
	}
	e.Rooms = kept
	return s.commit(ctx, e)
}

// AddAssemblyLine snapshots assemblyID at its current cost into a room.
func (s *Service) AddAssemblyLine(ctx context.Context, estimateID, roomID, assemblyID int64, qty int) (*model.LineItem, Totals, error) {
	e, room, err := s.editableRoom(ctx, estimateID, roomID)
	if err != nil {
		return nil, Totals{}, err
	}
	cost, err := s.assemblies.Cost(ctx, assemblyID)
	if err != nil {
		return nil, Totals{}, err
	}

	li := FromAssembly(cost, e.LaborRate, e.MaterialMarkup)
	return s.addLine(ctx, e, room, li, qty)
}

// AddPriceListLine snapshots a price list item into a room. laborHours
// overrides the item's labor when set.
func (s *Service) AddPriceListLine(ctx context.Context, estimateID, roomID, itemID int64, qty int, laborHours *decimal.Decimal) (*model.LineItem, Totals, error) {
	e, room, err := s.editableRoom(ctx, estimateID, roomID)
	if err != nil {
		return nil, Totals{}, err
	}
	item, err := s.store.GetPriceListItem(ctx, itemID)
	if err != nil {
		return nil, Totals{}, err
	}

	li, err := FromPriceListItem(item, laborHours, e.LaborRate, e.MaterialMarkup)
	if err != nil {
		return nil, Totals{}, err
	}
	return s.addLine(ctx, e, room, li, qty)
}

// SetQuantity changes the quantity of a line.
func (s *Service) SetQuantity(ctx context.Context, estimateID, lineID int64, qty int) (Totals, error) {
	e, err := s.editable(ctx, estimateID)
	if err != nil {
		return Totals{}, err
	}
	_, li := e.LineItem(lineID)
	if li == nil {
		return Totals{}, fmt.Errorf("%w: line item %d in estimate %d", model.ErrNotFound, lineID, estimateID)
	}
	if err := SetQuantity(li, qty); err != nil {
		return Totals{}, err
	}
	return s.commit(ctx, e)
}

// RemoveLine deletes a line.
func (s *Service) RemoveLine(ctx context.Context, estimateID, lineID int64) (Totals, error) {
	e, err := s.editable(ctx, estimateID)
	if err != nil {
		return Totals{}, err
	}
	room, _ := e.LineItem(lineID)
	if room == nil {
		return Totals{}, fmt.Errorf("%w: line item %d in estimate %d", model.ErrNotFound, lineID, estimateID)
	}
	kept := room.Items[:0]
	for _, li := range room.Items {
		if li.ID != lineID {
			kept = append(kept, li)
		}
	}
	room.Items = kept
	return s.commit(ctx, e)
}

// transitions lists the status changes SetStatus accepts. Conversion to a
// job is done by the jobcost package.
var transitions = map[model.EstimateStatus][]model.EstimateStatus{
	model.EstimateDraft:    {model.EstimateSent, model.EstimateApproved, model.EstimateRejected},
	model.EstimateSent:     {model.EstimateDraft, model.EstimateApproved, model.EstimateRejected},
	model.EstimateApproved: {model.EstimateDraft, model.EstimateRejected},
	model.EstimateRejected: {model.EstimateDraft},
}

// SetStatus moves an estimate through its lifecycle.
func (s *Service) SetStatus(ctx context.Context, estimateID int64, status model.EstimateStatus) error {
	e, err := s.editable(ctx, estimateID)
	if err != nil {
		return err
	}
	if e.Status == status {
		return nil
	}
	allowed := false
	for _, next := range transitions[e.Status] {
		if next == status {
			allowed = true
			break
		}
	}
	if !allowed {
		return fmt.Errorf("%w: estimate %d cannot move from %s to %s", model.ErrInvalidState, estimateID, e.Status, status)
	}

	e.Status = status
	if _, err := s.commit(ctx, e); err != nil {
		return err
	}
	s.logger.Info().Int64("estimate_id", e.ID).Str("status", string(status)).Msg("estimate status changed")
	return nil
}

func (s *Service) addLine(ctx context.Context, e *model.Estimate, room *model.EstimateRoom, li *model.LineItem, qty int) (*model.LineItem, Totals, error) {
	if err := SetQuantity(li, qty); err != nil {
		return nil, Totals{}, err
	}
	order := 0
	for _, other := range room.Items {
		if other.LineOrder > order {
			order = other.LineOrder
		}
	}
	li.LineOrder = order + 1
	room.Items = append(room.Items, li)

	totals, err := s.commit(ctx, e)
	if err != nil {
		return nil, Totals{}, err
	}
	return li, totals, nil
}

// commit recomputes the totals and saves the whole aggregate.
func (s *Service) commit(ctx context.Context, e *model.Estimate) (Totals, error) {
	totals := Aggregate(e)
	if err := s.store.SaveEstimate(ctx, e); err != nil {
		return Totals{}, err
	}
	s.logger.Debug().
		Int64("estimate_id", e.ID).
		Int("lines", totals.LineCount).
		Str("total_price", totals.TotalPrice.StringFixed(2)).
		Msg("estimate recalculated")
	return totals, nil
}

func (s *Service) editable(ctx context.Context, id int64) (*model.Estimate, error) {
	e, err := s.store.GetEstimate(ctx, id)
	if err != nil {
		return nil, err
	}
	if e.Locked() {
		return nil, fmt.Errorf("%w: estimate %d was converted to a job", model.ErrEstimateLocked, id)
	}
	return e, nil
}

func (s *Service) editableRoom(ctx context.Context, estimateID, roomID int64) (*model.Estimate, *model.EstimateRoom, error) {
	e, err := s.editable(ctx, estimateID)
	if err != nil {
		return nil, nil, err
	}
	room := e.Room(roomID)
	if room == nil {
		return nil, nil, fmt.Errorf("%w: room %d in estimate %d", model.ErrNotFound, roomID, estimateID)
	}
	return e, room, nil
}

func pick(v *decimal.Decimal, fallback decimal.Decimal) decimal.Decimal {
	if v != nil {
		return *v
	}
	return fallback
}
