package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/Simplici0/costbook/internal/assembly"
	"github.com/Simplici0/costbook/internal/config"
	"github.com/Simplici0/costbook/internal/estimate"
	"github.com/Simplici0/costbook/internal/jobcost"
	"github.com/Simplici0/costbook/internal/logging"
	"github.com/Simplici0/costbook/internal/model"
	"github.com/Simplici0/costbook/internal/pricing"
	"github.com/Simplici0/costbook/internal/store"
)

const dateLayout = "2006-01-02"

type server struct {
	store      *store.Store
	pricing    *pricing.Engine
	assemblies *assembly.Service
	estimates  *estimate.Service
	jobs       *jobcost.Service
	defaults   estimate.Defaults
	logger     zerolog.Logger
}

func newServer(st *store.Store, cfg config.Config, logger zerolog.Logger) *server {
	settings := pricing.Settings{
		Thresholds: pricing.Thresholds{
			Moderate:  cfg.PriceAlertModerate,
			Immediate: cfg.PriceAlertImmediate,
		},
		TrendSamples:          cfg.TrendSamples,
		VolatilityWindowDays:  cfg.VolatilityWindowDays,
		VolatilityFraction:    cfg.VolatilityFraction,
		SignificantWindowDays: cfg.SignificantWindowDays,
	}
	defaults := estimate.Defaults{
		LaborRate:      cfg.LaborRate,
		MaterialMarkup: cfg.MaterialMarkup,
		TaxPercent:     cfg.TaxPercent,
	}
	assemblies := assembly.NewService(st)
	return &server{
		store:      st,
		pricing:    pricing.NewEngine(st, settings, pricing.WithLogger(logger)),
		assemblies: assemblies,
		estimates:  estimate.NewService(st, assemblies, defaults),
		jobs:       jobcost.NewService(st),
		defaults:   defaults,
		logger:     logger,
	}
}

func (s *server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(logging.RequestLogger(s.logger))

	r.Route("/materials", func(r chi.Router) {
		r.Get("/", s.handleListMaterials)
		r.Post("/", s.handleCreateMaterial)
		r.Get("/significant", s.handleSignificantChanges)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", s.handleGetMaterial)
			r.Post("/price", s.handleUpdatePrice)
			r.Get("/history", s.handlePriceHistory)
			r.Get("/average", s.handleAveragePrice)
			r.Get("/trend", s.handlePriceTrend)
			r.Get("/recommendation", s.handleRecommendation)
		})
	})
	r.Get("/alerts", s.handlePriceAlerts)
	r.Post("/price-list-items", s.handleCreatePriceListItem)
	r.Get("/price-list-items/{id}", s.handleGetPriceListItem)
	r.Put("/price-list-items/{id}/cost", s.handleUpdatePriceListItemCost)

	r.Route("/assemblies", func(r chi.Router) {
		r.Get("/", s.handleListVariants)
		r.Post("/", s.handleCreateAssembly)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", s.handleGetAssembly)
			r.Get("/cost", s.handleAssemblyCost)
			r.Put("/labor", s.handleUpdateLabor)
			r.Post("/default", s.handleSetDefault)
			r.Post("/variants", s.handleCreateVariant)
			r.Post("/components", s.handleAddComponent)
		})
	})
	r.Patch("/components/{id}", s.handleUpdateComponent)
	r.Delete("/components/{id}", s.handleRemoveComponent)

	r.Route("/estimates", func(r chi.Router) {
		r.Post("/", s.handleCreateEstimate)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", s.handleGetEstimate)
			r.Get("/totals", s.handleEstimateTotals)
			r.Post("/rooms", s.handleAddRoom)
			r.Delete("/rooms/{roomID}", s.handleRemoveRoom)
			r.Post("/rooms/{roomID}/items", s.handleAddLineItem)
			r.Patch("/items/{itemID}", s.handleSetQuantity)
			r.Delete("/items/{itemID}", s.handleRemoveLineItem)
			r.Post("/status", s.handleSetStatus)
			r.Post("/convert", s.handleConvert)
		})
	})

	r.Route("/jobs/{id}", func(r chi.Router) {
		r.Get("/report", s.handleJobReport)
		r.Post("/labor", s.handleRecordLabor)
		r.Post("/materials", s.handleRecordMaterial)
	})
	return r
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps the model sentinels onto HTTP status codes. Anything
// unrecognized is logged and reported as a generic 500.
func (s *server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, model.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, model.ErrInvalidValue):
		status = http.StatusBadRequest
	case errors.Is(err, model.ErrDuplicateComponent),
		errors.Is(err, model.ErrInvalidState),
		errors.Is(err, model.ErrEstimateLocked):
		status = http.StatusConflict
	}
	if status == http.StatusInternalServerError {
		s.logger.Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
		writeJSON(w, status, errorResponse{Error: "internal error"})
		return
	}
	writeJSON(w, status, errorResponse{Error: err.Error()})
}

func badRequest(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusBadRequest, errorResponse{Error: msg})
}

// decodeJSON reads a single JSON object and rejects unknown fields.
func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("invalid request body: %v", err)
	}
	return nil
}

func parseID(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid %s", name)
	}
	return id, nil
}

func queryInt(r *http.Request, name string, fallback int) (int, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return 0, fmt.Errorf("%s must be a non-negative integer", name)
	}
	return v, nil
}

func queryDecimal(r *http.Request, name string, fallback decimal.Decimal) (decimal.Decimal, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return fallback, nil
	}
	v, err := decimal.NewFromString(raw)
	if err != nil || v.IsNegative() {
		return decimal.Zero, fmt.Errorf("%s must be a non-negative number", name)
	}
	return v, nil
}

// queryTime accepts RFC 3339 timestamps or plain dates. A plain date used as
// an upper bound covers the whole day.
func queryTime(r *http.Request, name string, endOfDay bool) (*time.Time, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return &t, nil
	}
	t, err := time.Parse(dateLayout, raw)
	if err != nil {
		return nil, fmt.Errorf("%s must be a date (YYYY-MM-DD) or RFC 3339 timestamp", name)
	}
	if endOfDay {
		t = t.Add(24*time.Hour - time.Nanosecond)
	}
	return &t, nil
}
