package http

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/BenWWTF/wirtschaftlichkeitsplan-sub005/internal/auth"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// identify resolves the caller or writes a 401 and returns false.
func (s *Server) identify(w http.ResponseWriter, r *http.Request) (auth.Identity, bool) {
	identity, err := s.authenticator.Resolve(r)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return auth.Identity{}, false
	}
	return identity, true
}

// parseYear reads the year query parameter, defaulting to the current year.
func parseYear(r *http.Request) int {
	if v := strings.TrimSpace(r.URL.Query().Get("year")); v != "" {
		if y, err := strconv.Atoi(v); err == nil && y >= 2000 && y <= 2200 {
			return y
		}
	}
	return time.Now().Year()
}

// parseMonth reads the optional month query parameter (1-12); 0 means unset.
func parseMonth(r *http.Request) int {
	if v := strings.TrimSpace(r.URL.Query().Get("month")); v != "" {
		if m, err := strconv.Atoi(v); err == nil && m >= 1 && m <= 12 {
			return m
		}
	}
	return 0
}
