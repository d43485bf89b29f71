package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/BenWWTF/wirtschaftlichkeitsplan-sub005/internal/core"
	"github.com/BenWWTF/wirtschaftlichkeitsplan-sub005/internal/storage"
)

func (s *Server) handleListTherapyTypes(w http.ResponseWriter, r *http.Request) {
	identity, ok := s.identify(w, r)
	if !ok {
		return
	}

	types, err := s.store.TherapyTypes(r.Context(), identity.UserID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load therapy types")
		return
	}
	if types == nil {
		types = []core.TherapyType{}
	}
	writeJSON(w, http.StatusOK, types)
}

type createTherapyTypeRequest struct {
	Name                 string `json:"name"`
	PricePerSessionCents int64  `json:"price_per_session_cents"`
}

func (s *Server) handleCreateTherapyType(w http.ResponseWriter, r *http.Request) {
	identity, ok := s.identify(w, r)
	if !ok {
		return
	}

	var req createTherapyTypeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	created, err := s.store.CreateTherapyType(r.Context(), core.TherapyType{
		UserID:          identity.UserID,
		Name:            req.Name,
		PricePerSession: core.Money{Cents: req.PricePerSessionCents},
	})
	if err != nil {
		if errors.Is(err, core.ErrEmptyName) || errors.Is(err, core.ErrInvalidAmount) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to create therapy type")
		return
	}
	s.overviewCache.InvalidateUser(identity.UserID)
	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) handleDeleteTherapyType(w http.ResponseWriter, r *http.Request) {
	identity, ok := s.identify(w, r)
	if !ok {
		return
	}

	err := s.store.DeleteTherapyType(r.Context(), identity.UserID, r.PathValue("id"))
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeError(w, http.StatusNotFound, "therapy type not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to delete therapy type")
		return
	}
	s.overviewCache.InvalidateUser(identity.UserID)
	w.WriteHeader(http.StatusNoContent)
}
