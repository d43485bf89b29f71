package auth

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

type fakeSessions struct {
	tokens map[string]string
}

func (f *fakeSessions) SessionUserID(_ context.Context, token string) (string, error) {
	if userID, ok := f.tokens[token]; ok {
		return userID, nil
	}
	return "", errors.New("record not found")
}

func newRequest(authorization string) *http.Request {
	r := httptest.NewRequest(http.MethodGet, "/api/dashboard", nil)
	if authorization != "" {
		r.Header.Set("Authorization", authorization)
	}
	return r
}

func TestResolve(t *testing.T) {
	sessions := &fakeSessions{tokens: map[string]string{"tok-1": "user-1"}}

	tests := []struct {
		name          string
		demoMode      bool
		authorization string
		wantUserID    string
		wantErr       bool
	}{
		{
			name:          "valid bearer token",
			authorization: "Bearer tok-1",
			wantUserID:    "user-1",
		},
		{
			name:          "case-insensitive scheme",
			authorization: "bearer tok-1",
			wantUserID:    "user-1",
		},
		{
			name:          "unknown token",
			authorization: "Bearer tok-2",
			wantErr:       true,
		},
		{
			name:    "missing header",
			wantErr: true,
		},
		{
			name:          "wrong scheme",
			authorization: "Basic dXNlcjpwYXNz",
			wantErr:       true,
		},
		{
			name:       "demo mode without token",
			demoMode:   true,
			wantUserID: "demo",
		},
		{
			name:          "demo mode with valid token resolves session",
			demoMode:      true,
			authorization: "Bearer tok-1",
			wantUserID:    "user-1",
		},
		{
			name:          "demo mode with bad token is still rejected",
			demoMode:      true,
			authorization: "Bearer tok-2",
			wantErr:       true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := New(sessions, tt.demoMode, "demo")
			identity, err := a.Resolve(newRequest(tt.authorization))
			if tt.wantErr {
				if !errors.Is(err, ErrUnauthorized) {
					t.Errorf("Resolve() error = %v, want ErrUnauthorized", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Resolve() error = %v", err)
			}
			if identity.UserID != tt.wantUserID {
				t.Errorf("Resolve() user = %q, want %q", identity.UserID, tt.wantUserID)
			}
		})
	}
}
