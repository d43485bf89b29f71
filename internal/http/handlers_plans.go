package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/BenWWTF/wirtschaftlichkeitsplan-sub005/internal/core"
)

func (s *Server) handleListPlans(w http.ResponseWriter, r *http.Request) {
	identity, ok := s.identify(w, r)
	if !ok {
		return
	}

	year := parseYear(r)
	plans, err := s.store.PlansForYear(r.Context(), identity.UserID, year)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load plans")
		return
	}
	if plans == nil {
		plans = []core.MonthlyPlan{}
	}
	writeJSON(w, http.StatusOK, plans)
}

type upsertPlanRequest struct {
	TherapyTypeID   string `json:"therapy_type_id"`
	Month           string `json:"month"`
	PlannedSessions int    `json:"planned_sessions"`
}

// handleUpsertPlan sets the planned session count for one therapy type
// and month. Imported actuals are never touched here.
func (s *Server) handleUpsertPlan(w http.ResponseWriter, r *http.Request) {
	identity, ok := s.identify(w, r)
	if !ok {
		return
	}

	var req upsertPlanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.TherapyTypeID == "" {
		writeError(w, http.StatusBadRequest, "therapy_type_id is required")
		return
	}
	month, err := core.ParseMonth(req.Month)
	if err != nil {
		writeError(w, http.StatusBadRequest, "month must use the YYYY-MM form")
		return
	}

	if err := s.store.SetPlannedSessions(r.Context(), identity.UserID, req.TherapyTypeID, month, req.PlannedSessions); err != nil {
		if errors.Is(err, core.ErrNegativeCount) {
			writeError(w, http.StatusBadRequest, "planned_sessions must not be negative")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to save plan")
		return
	}
	s.overviewCache.InvalidateUser(identity.UserID)
	w.WriteHeader(http.StatusNoContent)
}
