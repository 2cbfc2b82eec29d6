package main

import (
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/Simplici0/costbook/internal/model"
	"github.com/Simplici0/costbook/internal/pricing"
)

type createMaterialRequest struct {
	Code          string          `json:"code"`
	Name          string          `json:"name"`
	Category      string          `json:"category"`
	UnitOfMeasure string          `json:"unit_of_measure"`
	CurrentPrice  decimal.Decimal `json:"current_price"`
	TaxRate       decimal.Decimal `json:"tax_rate"`
	Actor         string          `json:"actor"`
}

func (s *server) handleCreateMaterial(w http.ResponseWriter, r *http.Request) {
	var req createMaterialRequest
	if err := decodeJSON(r, &req); err != nil {
		badRequest(w, err.Error())
		return
	}
	m := &model.Material{
		Code:          req.Code,
		Name:          req.Name,
		Category:      req.Category,
		UnitOfMeasure: req.UnitOfMeasure,
		CurrentPrice:  req.CurrentPrice,
		TaxRate:       req.TaxRate,
		Active:        true,
	}
	if err := s.store.CreateMaterial(r.Context(), m, req.Actor); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, m)
}

func (s *server) handleListMaterials(w http.ResponseWriter, r *http.Request) {
	materials, err := s.store.ListMaterials(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, materials)
}

func (s *server) handleGetMaterial(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r, "id")
	if err != nil {
		badRequest(w, err.Error())
		return
	}
	m, err := s.store.GetMaterial(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, m)
}

type updatePriceRequest struct {
	Price         *decimal.Decimal `json:"price"`
	Actor         string           `json:"actor"`
	VendorID      *int64           `json:"vendor_id"`
	PurchaseOrder *string          `json:"purchase_order"`
	Quantity      *decimal.Decimal `json:"quantity"`
}

func (s *server) handleUpdatePrice(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r, "id")
	if err != nil {
		badRequest(w, err.Error())
		return
	}
	var req updatePriceRequest
	if err := decodeJSON(r, &req); err != nil {
		badRequest(w, err.Error())
		return
	}
	if req.Price == nil {
		badRequest(w, "price is required")
		return
	}

	change, err := s.pricing.UpdatePrice(r.Context(), pricing.PriceUpdate{
		MaterialID:    id,
		NewPrice:      *req.Price,
		Actor:         req.Actor,
		VendorID:      req.VendorID,
		PurchaseOrder: req.PurchaseOrder,
		Quantity:      req.Quantity,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, change)
}

func (s *server) handlePriceHistory(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r, "id")
	if err != nil {
		badRequest(w, err.Error())
		return
	}
	from, err := queryTime(r, "from", false)
	if err != nil {
		badRequest(w, err.Error())
		return
	}
	to, err := queryTime(r, "to", true)
	if err != nil {
		badRequest(w, err.Error())
		return
	}

	history, err := s.pricing.GetPriceHistory(r.Context(), id, from, to)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, history)
}

type averagePriceResponse struct {
	MaterialID int64               `json:"material_id"`
	WindowDays int                 `json:"window_days"`
	Average    decimal.NullDecimal `json:"average"`
}

func (s *server) handleAveragePrice(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r, "id")
	if err != nil {
		badRequest(w, err.Error())
		return
	}
	days, err := queryInt(r, "days", 30)
	if err != nil {
		badRequest(w, err.Error())
		return
	}

	avg, err := s.pricing.GetAveragePrice(r.Context(), id, days)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, averagePriceResponse{MaterialID: id, WindowDays: days, Average: avg})
}

func (s *server) handlePriceTrend(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r, "id")
	if err != nil {
		badRequest(w, err.Error())
		return
	}
	trend, err := s.pricing.AnalyzePriceTrend(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, trend)
}

func (s *server) handleRecommendation(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r, "id")
	if err != nil {
		badRequest(w, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, s.pricing.GetBulkPurchaseRecommendation(r.Context(), id))
}

func (s *server) handleSignificantChanges(w http.ResponseWriter, r *http.Request) {
	threshold, err := queryDecimal(r, "threshold", s.pricing.Settings().Thresholds.Moderate)
	if err != nil {
		badRequest(w, err.Error())
		return
	}
	materials, err := s.pricing.GetMaterialsWithSignificantPriceChanges(r.Context(), threshold)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, materials)
}

func (s *server) handlePriceAlerts(w http.ResponseWriter, r *http.Request) {
	days, err := queryInt(r, "days", s.pricing.Settings().SignificantWindowDays)
	if err != nil {
		badRequest(w, err.Error())
		return
	}
	alerts, err := s.pricing.GetPriceAlerts(r.Context(), days)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, alerts)
}

type createPriceListItemRequest struct {
	Code          string          `json:"code"`
	Name          string          `json:"name"`
	Category      string          `json:"category"`
	BaseCost      decimal.Decimal `json:"base_cost"`
	MarkupPercent decimal.Decimal `json:"markup_percent"`
	LaborMinutes  int             `json:"labor_minutes"`
}

func (s *server) handleCreatePriceListItem(w http.ResponseWriter, r *http.Request) {
	var req createPriceListItemRequest
	if err := decodeJSON(r, &req); err != nil {
		badRequest(w, err.Error())
		return
	}
	item := &model.PriceListItem{
		Code:          req.Code,
		Name:          req.Name,
		Category:      req.Category,
		BaseCost:      req.BaseCost,
		MarkupPercent: req.MarkupPercent,
		LaborMinutes:  req.LaborMinutes,
		Active:        true,
	}
	if err := s.store.CreatePriceListItem(r.Context(), item); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, item)
}

func (s *server) handleGetPriceListItem(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r, "id")
	if err != nil {
		badRequest(w, err.Error())
		return
	}
	item, err := s.store.GetPriceListItem(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, item)
}

type updatePriceListCostRequest struct {
	BaseCost *decimal.Decimal `json:"base_cost"`
}

// handleUpdatePriceListItemCost changes a catalog entry's base cost. Assembly
// costs read the catalog live, so they follow without further writes.
func (s *server) handleUpdatePriceListItemCost(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r, "id")
	if err != nil {
		badRequest(w, err.Error())
		return
	}
	var req updatePriceListCostRequest
	if err := decodeJSON(r, &req); err != nil {
		badRequest(w, err.Error())
		return
	}
	if req.BaseCost == nil {
		badRequest(w, "base_cost is required")
		return
	}

	if err := s.store.UpdatePriceListItemCost(r.Context(), id, *req.BaseCost); err != nil {
		s.writeError(w, r, err)
		return
	}
	item, err := s.store.GetPriceListItem(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, item)
}
