package http

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"flotas/internal/core"
	"flotas/internal/log"
)

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"timestamp": time.Now().Format(time.RFC3339),
		"uptime":    time.Since(s.started).String(),
	})
}

// handleReady verifies the spreadsheet backend answers before the
// service takes traffic.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	status := "ready"
	httpStatus := http.StatusOK
	checks := map[string]any{}

	if s.analysis == nil {
		checks["backend"] = "not_configured"
		status = "not_ready"
		httpStatus = http.StatusServiceUnavailable
	} else if _, err := s.analysis.Years(ctx); err != nil {
		checks["backend"] = fmt.Sprintf("failed: %v", err)
		status = "not_ready"
		httpStatus = http.StatusServiceUnavailable
	} else {
		checks["backend"] = "ok"
	}

	writeJSON(w, httpStatus, map[string]any{
		"status":    status,
		"timestamp": time.Now().Format(time.RFC3339),
		"checks":    checks,
	})
}

func (s *Server) handleYears(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}
	years, err := s.analysis.Years(r.Context())
	if err != nil {
		s.serviceError(w, r, "List years failed", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"years": years})
}

func (s *Server) handleAnalysis(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}
	year, ok := s.resolveYear(w, r)
	if !ok {
		return
	}
	report, err := s.analysis.Report(r.Context(), year)
	if err != nil {
		s.serviceError(w, r, "Analysis failed", err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (s *Server) handleCosts(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}
	year, ok := s.resolveYear(w, r)
	if !ok {
		return
	}
	costs, err := s.analysis.Costs(r.Context(), year)
	if err != nil {
		s.serviceError(w, r, "Cost summary failed", err)
		return
	}
	writeJSON(w, http.StatusOK, costs)
}

func (s *Server) handleIncome(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}
	year, ok := s.resolveYear(w, r)
	if !ok {
		return
	}
	income, err := s.analysis.Income(r.Context(), year)
	if err != nil {
		s.serviceError(w, r, "Income summary failed", err)
		return
	}
	writeJSON(w, http.StatusOK, income)
}

func (s *Server) handleVehicles(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}
	vehicles, err := s.analysis.Vehicles(r.Context())
	if err != nil {
		s.serviceError(w, r, "List vehicles failed", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"vehicles": vehicles})
}

// importRequest is the payload for POST /api/ledger/import.
type importRequest struct {
	Rows []core.LedgerRow `json:"rows"`
}

func (s *Server) handleImportLedger(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}
	if s.importer == nil {
		writeError(w, http.StatusNotImplemented, "imports not configured")
		return
	}

	var req importRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 4<<20))
	if err := dec.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if len(req.Rows) == 0 {
		writeError(w, http.StatusUnprocessableEntity, "no rows to import")
		return
	}

	result, err := s.importer.ImportLedger(r.Context(), req.Rows)
	if err != nil {
		if result.Inserted == 0 && len(result.Rejected) > 0 {
			writeJSON(w, http.StatusUnprocessableEntity, result)
			return
		}
		s.serviceError(w, r, "Ledger import failed", err)
		return
	}

	writeJSON(w, http.StatusCreated, result)
}

// resolveYear reads the year query parameter, defaulting to the most
// recent year with data.
func (s *Server) resolveYear(w http.ResponseWriter, r *http.Request) (int, bool) {
	if year, ok, err := parseYearParam(r); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return 0, false
	} else if ok {
		return year, true
	}

	years, err := s.analysis.Years(r.Context())
	if err != nil {
		s.serviceError(w, r, "List years failed", err)
		return 0, false
	}
	if len(years) == 0 {
		writeError(w, http.StatusNotFound, "no data available for any year")
		return 0, false
	}
	return years[0], true
}

func (s *Server) serviceError(w http.ResponseWriter, r *http.Request, msg string, err error) {
	s.logger.ErrorContext(r.Context(), msg,
		log.FieldError, err,
		log.FieldPath, r.URL.Path)
	writeError(w, http.StatusBadGateway, "backend error")
}
