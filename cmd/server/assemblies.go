package main

import (
	"net/http"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/Simplici0/costbook/internal/assembly"
	"github.com/Simplici0/costbook/internal/model"
)

type createAssemblyRequest struct {
	Code        string      `json:"code"`
	Name        string      `json:"name"`
	Description string      `json:"description"`
	Category    string      `json:"category"`
	Labor       model.Labor `json:"labor"`
	SortOrder   int         `json:"sort_order"`
	Actor       string      `json:"actor"`
	MakeDefault bool        `json:"make_default"`
}

func (s *server) handleCreateAssembly(w http.ResponseWriter, r *http.Request) {
	var req createAssemblyRequest
	if err := decodeJSON(r, &req); err != nil {
		badRequest(w, err.Error())
		return
	}
	a, err := s.assemblies.Create(r.Context(), assembly.NewAssembly{
		Code:        req.Code,
		Name:        req.Name,
		Description: req.Description,
		Category:    req.Category,
		Labor:       req.Labor,
		SortOrder:   req.SortOrder,
		Actor:       req.Actor,
		MakeDefault: req.MakeDefault,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, a)
}

func (s *server) handleListVariants(w http.ResponseWriter, r *http.Request) {
	code := strings.TrimSpace(r.URL.Query().Get("code"))
	if code == "" {
		badRequest(w, "code is required")
		return
	}
	variants, err := s.assemblies.Variants(r.Context(), code)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, variants)
}

type assemblyResponse struct {
	*model.AssemblyTemplate
	Components []*model.AssemblyComponent `json:"components"`
}

func (s *server) handleGetAssembly(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r, "id")
	if err != nil {
		badRequest(w, err.Error())
		return
	}
	a, err := s.store.GetAssembly(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	components, err := s.store.ListComponents(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, assemblyResponse{AssemblyTemplate: a, Components: components})
}

type assemblyCostResponse struct {
	assembly.Cost
	LaborRate     decimal.Decimal `json:"labor_rate"`
	MarkupPercent decimal.Decimal `json:"markup_percent"`
	LaborCost     decimal.Decimal `json:"labor_cost"`
	TotalCost     decimal.Decimal `json:"total_cost"`
}

// handleAssemblyCost prices the assembly against the live catalog. The
// labor_rate and markup query parameters default to the estimate defaults.
func (s *server) handleAssemblyCost(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r, "id")
	if err != nil {
		badRequest(w, err.Error())
		return
	}
	rate, err := queryDecimal(r, "labor_rate", s.defaults.LaborRate)
	if err != nil {
		badRequest(w, err.Error())
		return
	}
	markup, err := queryDecimal(r, "markup", s.defaults.MaterialMarkup)
	if err != nil {
		badRequest(w, err.Error())
		return
	}

	cost, err := s.assemblies.Cost(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, assemblyCostResponse{
		Cost:          cost,
		LaborRate:     rate,
		MarkupPercent: markup,
		LaborCost:     cost.LaborCost(rate),
		TotalCost:     cost.TotalCost(rate, markup),
	})
}

type updateLaborRequest struct {
	Labor model.Labor `json:"labor"`
	Actor string      `json:"actor"`
}

func (s *server) handleUpdateLabor(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r, "id")
	if err != nil {
		badRequest(w, err.Error())
		return
	}
	var req updateLaborRequest
	if err := decodeJSON(r, &req); err != nil {
		badRequest(w, err.Error())
		return
	}
	if err := s.assemblies.UpdateLabor(r.Context(), id, req.Labor, req.Actor); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *server) handleSetDefault(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r, "id")
	if err != nil {
		badRequest(w, err.Error())
		return
	}
	if err := s.assemblies.SetDefault(r.Context(), id); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type createVariantRequest struct {
	Name  string `json:"name"`
	Actor string `json:"actor"`
}

func (s *server) handleCreateVariant(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r, "id")
	if err != nil {
		badRequest(w, err.Error())
		return
	}
	var req createVariantRequest
	if err := decodeJSON(r, &req); err != nil {
		badRequest(w, err.Error())
		return
	}
	a, err := s.assemblies.CreateVariant(r.Context(), id, req.Name, req.Actor)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, a)
}

type addComponentRequest struct {
	Kind     model.ItemKind  `json:"kind"`
	ItemID   int64           `json:"item_id"`
	Quantity decimal.Decimal `json:"quantity"`
	Notes    string          `json:"notes"`
}

func (s *server) handleAddComponent(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r, "id")
	if err != nil {
		badRequest(w, err.Error())
		return
	}
	var req addComponentRequest
	if err := decodeJSON(r, &req); err != nil {
		badRequest(w, err.Error())
		return
	}
	c, err := s.assemblies.AddComponent(r.Context(), id, model.ItemRef{Kind: req.Kind, ID: req.ItemID}, req.Quantity, req.Notes)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, c)
}

type updateComponentRequest struct {
	Quantity decimal.Decimal `json:"quantity"`
}

func (s *server) handleUpdateComponent(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r, "id")
	if err != nil {
		badRequest(w, err.Error())
		return
	}
	var req updateComponentRequest
	if err := decodeJSON(r, &req); err != nil {
		badRequest(w, err.Error())
		return
	}
	if err := s.assemblies.UpdateComponentQuantity(r.Context(), id, req.Quantity); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleRemoveComponent succeeds whether or not the component existed.
func (s *server) handleRemoveComponent(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r, "id")
	if err != nil {
		badRequest(w, err.Error())
		return
	}
	if err := s.assemblies.RemoveComponent(r.Context(), id); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
