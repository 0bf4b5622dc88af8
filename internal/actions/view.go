// Package actions holds the view controllers a front end drives: they own
// per-view state, validate input before any network call, re-fetch after
// successful mutations and turn failures into display messages.
//
// Every load takes a ticket. A result is applied only while its ticket is the
// newest one and the view has not been closed, so a slow response can never
// overwrite a newer one or touch a discarded view.
package actions

import (
	"context"
	"errors"
	"sync"

	"toolbox/internal/api"
	"toolbox/internal/identity"
	"toolbox/internal/models"
	"toolbox/internal/observability"
)

// Signed-out prompts.
const (
	SignInToComment = "Please sign in to comment"
	SignInToLike    = "Please sign in to like posts"
	SignInToSave    = "Please sign in to save posts"
	SignInToDelete  = "Please sign in to delete posts"
	SignInToPost    = "Please sign in to create posts"
	SignInToView    = "Please sign in to view this page"
	SignInToChat    = "Please sign in to chat"
)

// UnexpectedError is shown when a failure carries nothing presentable.
const UnexpectedError = "An unexpected error occurred. Please try again."

// CurrentUser yields the signed-in user, or nil. *session.Session
// implements it.
type CurrentUser interface {
	User() *models.User
}

// Confirmer asks the user to approve an irreversible action.
type Confirmer interface {
	Confirm(ctx context.Context, prompt string) (bool, error)
}

// ConfirmFunc adapts a function to Confirmer.
type ConfirmFunc func(ctx context.Context, prompt string) (bool, error)

func (f ConfirmFunc) Confirm(ctx context.Context, prompt string) (bool, error) {
	return f(ctx, prompt)
}

// ErrorMessage picks the text to display for err: the server's message for
// API failures, the message of validation and authorization errors, and
// fallback for transport and decoding failures.
func ErrorMessage(err error, fallback string) string {
	if err == nil {
		return ""
	}
	var apiErr *api.APIError
	if errors.As(err, &apiErr) {
		if apiErr.Message != "" {
			return apiErr.Message
		}
		return fallback
	}
	var appErr *models.AppError
	if errors.As(err, &appErr) {
		switch appErr.Code {
		case models.CodeNetwork, models.CodeInternal:
			return fallback
		}
		if appErr.Message != "" {
			return appErr.Message
		}
		return fallback
	}
	if msg := err.Error(); msg != "" {
		return msg
	}
	return fallback
}

// view is the state every controller shares: error text, the loading flag and
// the stale-response guard.
type view struct {
	mu      sync.Mutex
	gen     uint64
	closed  bool
	loading bool
	err     string

	users CurrentUser
	log   *observability.APILogger
}

func (v *view) init(users CurrentUser, component string) {
	v.users = users
	v.log = observability.NewAPILogger(component, nil)
}

func (v *view) user() *models.User {
	if v.users == nil {
		return nil
	}
	return v.users.User()
}

func (v *view) userID() string {
	return identity.CanonicalID(v.user())
}

// begin starts a load and returns its ticket.
func (v *view) begin() uint64 {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.gen++
	v.loading = true
	return v.gen
}

// commit runs apply under the lock if ticket is still current.
func (v *view) commit(ticket uint64, apply func()) bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.closed || ticket != v.gen {
		return false
	}
	v.loading = false
	apply()
	return true
}

// update runs apply under the lock unless the view is closed. Mutation
// results use it: they are not superseded by later loads.
func (v *view) update(apply func()) bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.closed {
		return false
	}
	apply()
	return true
}

// fail stores the display message for err and returns err.
func (v *view) fail(ctx context.Context, action string, err error, fallback string) error {
	msg := ErrorMessage(err, fallback)
	v.update(func() { v.err = msg })
	v.log.LogAction(ctx, action, map[string]interface{}{"ok": false, "error": err.Error()})
	return err
}

// failLoad is fail for a ticketed load.
func (v *view) failLoad(ctx context.Context, ticket uint64, action string, err error, fallback string) error {
	msg := ErrorMessage(err, fallback)
	v.commit(ticket, func() { v.err = msg })
	v.log.LogAction(ctx, action, map[string]interface{}{"ok": false, "error": err.Error()})
	return err
}

// prompt stores a signed-out prompt and returns it as an UNAUTHORIZED error.
func (v *view) prompt(msg string) error {
	v.update(func() { v.err = msg })
	return models.NewUnauthorizedError(msg)
}

func (v *view) ok(ctx context.Context, action string) {
	v.update(func() { v.err = "" })
	v.log.LogAction(ctx, action, map[string]interface{}{"ok": true})
}

// approved gates a destructive action. A Confirmer error counts as a refusal.
func (v *view) approved(ctx context.Context, c Confirmer, prompt string) bool {
	if c == nil {
		return false
	}
	yes, err := c.Confirm(ctx, prompt)
	return err == nil && yes
}

// LastError returns the message of the most recent failure, or "".
func (v *view) LastError() string {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.err
}

// Loading reports whether a load is in flight.
func (v *view) Loading() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.loading
}

// Close discards the view; in-flight results are dropped from now on.
func (v *view) Close() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.closed = true
	v.loading = false
}
