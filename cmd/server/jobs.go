package main

import (
	"net/http"

	"github.com/shopspring/decimal"
)

func (s *server) handleJobReport(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r, "id")
	if err != nil {
		badRequest(w, err.Error())
		return
	}
	report, err := s.jobs.Report(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

type recordLaborRequest struct {
	Stage string          `json:"stage"`
	Hours decimal.Decimal `json:"hours"`
}

func (s *server) handleRecordLabor(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r, "id")
	if err != nil {
		badRequest(w, err.Error())
		return
	}
	var req recordLaborRequest
	if err := decodeJSON(r, &req); err != nil {
		badRequest(w, err.Error())
		return
	}
	stage, err := s.jobs.RecordLabor(r.Context(), id, req.Stage, req.Hours)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stage)
}

type recordMaterialRequest struct {
	Stage string          `json:"stage"`
	Cost  decimal.Decimal `json:"cost"`
}

func (s *server) handleRecordMaterial(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r, "id")
	if err != nil {
		badRequest(w, err.Error())
		return
	}
	var req recordMaterialRequest
	if err := decodeJSON(r, &req); err != nil {
		badRequest(w, err.Error())
		return
	}
	stage, err := s.jobs.RecordMaterial(r.Context(), id, req.Stage, req.Cost)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stage)
}
