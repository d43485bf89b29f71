package http

import (
	"net/http"
	"strconv"
)

// handleDashboard returns the planned-vs-actual overview for one year.
// Responses are cached per (user, year) and invalidated on every mutation.
func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	identity, ok := s.identify(w, r)
	if !ok {
		return
	}

	year := parseYear(r)
	key := identity.UserID + "|" + strconv.Itoa(year)

	data, ok := s.overviewCache.Get(key)
	if !ok {
		var err error
		data, err = s.dashboard.Overview(r.Context(), identity.UserID, year)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "failed to load dashboard")
			return
		}
		s.overviewCache.Set(key, data)
	}

	// An optional month=1..12 narrows the months slice; totals stay
	// yearly. Filter on a copy, the cached value keeps all twelve.
	if month := parseMonth(r); month != 0 {
		narrowed := *data
		narrowed.Months = data.Months[month-1 : month]
		writeJSON(w, http.StatusOK, &narrowed)
		return
	}
	writeJSON(w, http.StatusOK, data)
}
