package main

import (
	"fmt"
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/Simplici0/costbook/internal/estimate"
	"github.com/Simplici0/costbook/internal/model"
)

type createEstimateRequest struct {
	CustomerID     int64            `json:"customer_id"`
	JobName        string           `json:"job_name"`
	LaborRate      *decimal.Decimal `json:"labor_rate"`
	MaterialMarkup *decimal.Decimal `json:"material_markup"`
	TaxPercent     *decimal.Decimal `json:"tax_percent"`
	Notes          string           `json:"notes"`
}

type estimateResponse struct {
	Estimate *model.Estimate `json:"estimate"`
	Totals   estimate.Totals `json:"totals"`
}

func (s *server) handleCreateEstimate(w http.ResponseWriter, r *http.Request) {
	var req createEstimateRequest
	if err := decodeJSON(r, &req); err != nil {
		badRequest(w, err.Error())
		return
	}
	e, err := s.estimates.Create(r.Context(), estimate.NewEstimate{
		CustomerID:     req.CustomerID,
		JobName:        req.JobName,
		LaborRate:      req.LaborRate,
		MaterialMarkup: req.MaterialMarkup,
		TaxPercent:     req.TaxPercent,
		Notes:          req.Notes,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, e)
}

func (s *server) handleGetEstimate(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r, "id")
	if err != nil {
		badRequest(w, err.Error())
		return
	}
	e, err := s.estimates.Get(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, estimateResponse{Estimate: e, Totals: estimate.Aggregate(e)})
}

func (s *server) handleEstimateTotals(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r, "id")
	if err != nil {
		badRequest(w, err.Error())
		return
	}
	totals, err := s.estimates.Totals(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, totals)
}

type addRoomRequest struct {
	Name string `json:"name"`
}

type roomResponse struct {
	Room   *model.EstimateRoom `json:"room"`
	Totals estimate.Totals     `json:"totals"`
}

func (s *server) handleAddRoom(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r, "id")
	if err != nil {
		badRequest(w, err.Error())
		return
	}
	var req addRoomRequest
	if err := decodeJSON(r, &req); err != nil {
		badRequest(w, err.Error())
		return
	}
	room, totals, err := s.estimates.AddRoom(r.Context(), id, req.Name)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, roomResponse{Room: room, Totals: totals})
}

func (s *server) handleRemoveRoom(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r, "id")
	if err != nil {
		badRequest(w, err.Error())
		return
	}
	roomID, err := parseID(r, "roomID")
	if err != nil {
		badRequest(w, err.Error())
		return
	}
	totals, err := s.estimates.RemoveRoom(r.Context(), id, roomID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, totals)
}

// addLineItemRequest adds either an assembly (mode "assembly") or a price
// list item (mode "price_list"). LaborHours overrides the item's own labor.
type addLineItemRequest struct {
	Mode            model.EntryMode  `json:"mode"`
	AssemblyID      int64            `json:"assembly_id"`
	PriceListItemID int64            `json:"price_list_item_id"`
	Quantity        int              `json:"quantity"`
	LaborHours      *decimal.Decimal `json:"labor_hours"`
}

type lineItemResponse struct {
	Item   *model.LineItem `json:"item"`
	Totals estimate.Totals `json:"totals"`
}

func (s *server) handleAddLineItem(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r, "id")
	if err != nil {
		badRequest(w, err.Error())
		return
	}
	roomID, err := parseID(r, "roomID")
	if err != nil {
		badRequest(w, err.Error())
		return
	}
	var req addLineItemRequest
	if err := decodeJSON(r, &req); err != nil {
		badRequest(w, err.Error())
		return
	}
	if req.Quantity == 0 {
		req.Quantity = 1
	}

	var (
		li     *model.LineItem
		totals estimate.Totals
	)
	switch req.Mode {
	case model.ModeAssembly:
		li, totals, err = s.estimates.AddAssemblyLine(r.Context(), id, roomID, req.AssemblyID, req.Quantity)
	case model.ModePriceList:
		li, totals, err = s.estimates.AddPriceListLine(r.Context(), id, roomID, req.PriceListItemID, req.Quantity, req.LaborHours)
	default:
		badRequest(w, fmt.Sprintf("mode must be %q or %q", model.ModeAssembly, model.ModePriceList))
		return
	}
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, lineItemResponse{Item: li, Totals: totals})
}

type setQuantityRequest struct {
	Quantity int `json:"quantity"`
}

func (s *server) handleSetQuantity(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r, "id")
	if err != nil {
		badRequest(w, err.Error())
		return
	}
	itemID, err := parseID(r, "itemID")
	if err != nil {
		badRequest(w, err.Error())
		return
	}
	var req setQuantityRequest
	if err := decodeJSON(r, &req); err != nil {
		badRequest(w, err.Error())
		return
	}
	totals, err := s.estimates.SetQuantity(r.Context(), id, itemID, req.Quantity)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, totals)
}

func (s *server) handleRemoveLineItem(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r, "id")
	if err != nil {
		badRequest(w, err.Error())
		return
	}
	itemID, err := parseID(r, "itemID")
	if err != nil {
		badRequest(w, err.Error())
		return
	}
	totals, err := s.estimates.RemoveLine(r.Context(), id, itemID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, totals)
}

type setStatusRequest struct {
	Status model.EstimateStatus `json:"status"`
}

func (s *server) handleSetStatus(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r, "id")
	if err != nil {
		badRequest(w, err.Error())
		return
	}
	var req setStatusRequest
	if err := decodeJSON(r, &req); err != nil {
		badRequest(w, err.Error())
		return
	}
	if err := s.estimates.SetStatus(r.Context(), id, req.Status); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type convertResponse struct {
	Job    *model.Job        `json:"job"`
	Stages []*model.JobStage `json:"stages"`
}

func (s *server) handleConvert(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r, "id")
	if err != nil {
		badRequest(w, err.Error())
		return
	}
	job, stages, err := s.jobs.Convert(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, convertResponse{Job: job, Stages: stages})
}
