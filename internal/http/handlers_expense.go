package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/BenWWTF/wirtschaftlichkeitsplan-sub005/internal/core"
	"github.com/BenWWTF/wirtschaftlichkeitsplan-sub005/internal/storage"
)

func (s *Server) handleListExpenses(w http.ResponseWriter, r *http.Request) {
	identity, ok := s.identify(w, r)
	if !ok {
		return
	}

	year := parseYear(r)
	expenses, err := s.store.ExpensesForYear(r.Context(), identity.UserID, year)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load expenses")
		return
	}
	if expenses == nil {
		expenses = []core.Expense{}
	}
	writeJSON(w, http.StatusOK, expenses)
}

type createExpenseRequest struct {
	Month       string `json:"month"`
	Category    string `json:"category"`
	Description string `json:"description"`
	AmountCents int64  `json:"amount_cents"`
}

func (s *Server) handleCreateExpense(w http.ResponseWriter, r *http.Request) {
	identity, ok := s.identify(w, r)
	if !ok {
		return
	}

	var req createExpenseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	month, err := core.ParseMonth(req.Month)
	if err != nil {
		writeError(w, http.StatusBadRequest, "month must use the YYYY-MM form")
		return
	}

	created, err := s.store.CreateExpense(r.Context(), core.Expense{
		UserID:      identity.UserID,
		Month:       month,
		Category:    req.Category,
		Description: req.Description,
		Amount:      core.Money{Cents: req.AmountCents},
	})
	if err != nil {
		if errors.Is(err, core.ErrEmptyCategory) || errors.Is(err, core.ErrInvalidAmount) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to create expense")
		return
	}
	s.overviewCache.InvalidateUser(identity.UserID)
	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) handleDeleteExpense(w http.ResponseWriter, r *http.Request) {
	identity, ok := s.identify(w, r)
	if !ok {
		return
	}

	err := s.store.DeleteExpense(r.Context(), identity.UserID, r.PathValue("id"))
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeError(w, http.StatusNotFound, "expense not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to delete expense")
		return
	}
	s.overviewCache.InvalidateUser(identity.UserID)
	w.WriteHeader(http.StatusNoContent)
}
