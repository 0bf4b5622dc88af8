// Package session holds the signed-in user's bearer token and decoded claims.
//
// The token is read once by Init, replaced by Set after sign-in, and removed by
// Clear. Claims are decoded without signature verification: the client only
// needs the user id and name the server put there, and the server verifies
// every request anyway.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"toolbox/internal/models"

	"github.com/golang-jwt/jwt/v5"
)

// ErrMalformedToken is returned when a token's claims cannot be decoded.
var ErrMalformedToken = errors.New("malformed session token")

// Session is the process-wide sign-in state.
type Session struct {
	store Store

	mu    sync.RWMutex
	token string
	user  *models.User
}

// New returns an empty session backed by store.
func New(store Store) *Session {
	if store == nil {
		store = &MemoryStore{}
	}
	return &Session{store: store}
}

// Init loads a previously stored token. A stored token that no longer decodes
// is cleared and the session starts signed out.
func (s *Session) Init(ctx context.Context) error {
	token, err := s.store.Load(ctx)
	if err != nil {
		return err
	}
	if token == "" {
		return nil
	}
	user, err := DecodeClaims(token)
	if err != nil {
		_ = s.store.Clear(ctx)
		return nil
	}
	s.mu.Lock()
	s.token, s.user = token, user
	s.mu.Unlock()
	return nil
}

// Set persists token and returns the user decoded from its claims.
func (s *Session) Set(ctx context.Context, token string) (*models.User, error) {
	user, err := DecodeClaims(token)
	if err != nil {
		return nil, err
	}
	if err := s.store.Save(ctx, token); err != nil {
		return nil, err
	}
	s.mu.Lock()
	s.token, s.user = token, user
	s.mu.Unlock()
	return cloneUser(user), nil
}

// Clear signs the session out.
func (s *Session) Clear(ctx context.Context) error {
	s.mu.Lock()
	s.token, s.user = "", nil
	s.mu.Unlock()
	return s.store.Clear(ctx)
}

// Token returns the bearer token, or "" when signed out.
func (s *Session) Token() string {
	if s == nil {
		return ""
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

// User returns a copy of the signed-in user, or nil.
func (s *Session) User() *models.User {
	if s == nil {
		return nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneUser(s.user)
}

// SignedIn reports whether a token is present.
func (s *Session) SignedIn() bool {
	return s.Token() != ""
}

func cloneUser(u *models.User) *models.User {
	if u == nil {
		return nil
	}
	c := *u
	return &c
}

// DecodeClaims extracts the user from a JWT payload without verifying it.
// Servers either put the user fields at the top level or nest them under
// "payload" or "user".
func DecodeClaims(token string) (*models.User, error) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedToken, err)
	}

	var body any = map[string]any(claims)
	for _, k := range []string{"payload", "user"} {
		if nested, ok := claims[k].(map[string]any); ok {
			body = nested
			break
		}
	}

	raw, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedToken, err)
	}
	var user models.User
	if err := json.Unmarshal(raw, &user); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedToken, err)
	}
	return &user, nil
}
