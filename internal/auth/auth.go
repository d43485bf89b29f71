// Package auth resolves the acting user for incoming requests.
package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

var ErrUnauthorized = errors.New("unauthorized")

// Identity is the resolved caller. Every storage query is scoped by its
// UserID.
type Identity struct {
	UserID string
}

// SessionStore resolves a bearer token to a user ID.
type SessionStore interface {
	SessionUserID(ctx context.Context, token string) (string, error)
}

type Authenticator struct {
	sessions   SessionStore
	demoMode   bool
	demoUserID string
}

// New builds an Authenticator. With demoMode enabled, requests without a
// bearer token fall back to the configured demo user instead of being
// rejected; a presented token is still resolved normally.
func New(sessions SessionStore, demoMode bool, demoUserID string) *Authenticator {
	return &Authenticator{sessions: sessions, demoMode: demoMode, demoUserID: demoUserID}
}

// Resolve extracts the caller identity from the request.
func (a *Authenticator) Resolve(r *http.Request) (Identity, error) {
	token := bearerToken(r)
	if token == "" {
		if a.demoMode {
			return Identity{UserID: a.demoUserID}, nil
		}
		return Identity{}, fmt.Errorf("missing bearer token: %w", ErrUnauthorized)
	}

	userID, err := a.sessions.SessionUserID(r.Context(), token)
	if err != nil {
		return Identity{}, fmt.Errorf("%w: %v", ErrUnauthorized, err)
	}
	return Identity{UserID: userID}, nil
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if len(header) <= len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return ""
	}
	return strings.TrimSpace(header[len(prefix):])
}
