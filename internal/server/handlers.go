package server

import (
	"encoding/json"
	"net/http"

	"exchange-ledger/internal/aggregator"
	"exchange-ledger/internal/models"
	"exchange-ledger/pkg/errors"

	"github.com/go-chi/chi/v5"
)

type refreshResponse struct {
	Remote      int      `json:"remote"`
	Local       int      `json:"local"`
	Diagnostics []string `json:"diagnostics"`
}

func (s *Server) summary() *aggregator.Summary {
	summary := aggregator.Summarize(s.store.Merged(), s.config.Locale)
	summary.Diagnostics = s.currentDiagnostics()
	return summary
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.summary())
}

func (s *Server) handleDeals(w http.ResponseWriter, r *http.Request) {
	deals := aggregator.Aggregate(s.store.Merged()).Sorted(s.config.Locale)
	writeJSON(w, http.StatusOK, deals)
}

func (s *Server) handleTransactions(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.store.Merged())
}

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	dealID := chi.URLParam(r, "dealID")

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(s.reports.Build(dealID, s.store.Merged())))
}

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	if s.intake == nil {
		writeError(w, http.StatusNotImplemented, "transaction intake is disabled", nil)
		return
	}

	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20))
	dec.UseNumber()

	var raw models.RawRecord
	if err := dec.Decode(&raw); err != nil || raw == nil {
		writeError(w, http.StatusBadRequest, "request body must be a JSON object", nil)
		return
	}

	tx, err := s.intake.Submit(r.Context(), raw)
	if err != nil {
		if errors.IsCategory(err, errors.CategoryValidation) {
			writeError(w, http.StatusUnprocessableEntity, "transaction rejected", diagnosticMessages(err))
			return
		}
		s.logger.WithError(err).Error("Failed to save transaction")
		writeError(w, http.StatusInternalServerError, "failed to save transaction", diagnosticMessages(err))
		return
	}

	writeJSON(w, http.StatusCreated, tx)
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	err := s.store.Refresh(r.Context())
	s.SetDiagnostics(err)

	diagnostics := s.currentDiagnostics()
	if diagnostics == nil {
		diagnostics = []string{}
	}

	writeJSON(w, http.StatusOK, refreshResponse{
		Remote:      len(s.store.Remote()),
		Local:       len(s.store.Local()),
		Diagnostics: diagnostics,
	})
}
