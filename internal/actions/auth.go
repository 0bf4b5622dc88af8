package actions

import (
	"context"
	"maps"

	"toolbox/internal/models"
	"toolbox/internal/validation"
)

// AuthAPI is the part of the API client the auth form uses.
type AuthAPI interface {
	SignUp(ctx context.Context, r models.Registration) (*models.User, error)
	SignIn(ctx context.Context, creds models.Credentials) (*models.User, error)
	SignOut(ctx context.Context) error
}

const (
	msgSignUp        = "Sign up failed. Please try again."
	msgSignInFailed  = "Sign in failed. Please check your credentials."
	msgBadCredential = "Invalid username or password. Please try again."
)

// SignInMessage maps a sign-in failure to the text shown on the form.
func SignInMessage(err error) string {
	switch msg := ErrorMessage(err, UnexpectedError); msg {
	case "Invalid credentials":
		return msgBadCredential
	case "Sign in failed":
		return msgSignInFailed
	default:
		return msg
	}
}

// AuthForm signs users up, in and out.
type AuthForm struct {
	view
	api    AuthAPI
	fields validation.FieldErrors
}

// NewAuthForm returns an auth form.
func NewAuthForm(a AuthAPI, users CurrentUser) *AuthForm {
	f := &AuthForm{api: a}
	f.init(users, "auth")
	return f
}

// FieldErrors returns per-field messages from the last submission.
func (f *AuthForm) FieldErrors() validation.FieldErrors {
	f.mu.Lock()
	defer f.mu.Unlock()
	return maps.Clone(f.fields)
}

func (f *AuthForm) invalid(ctx context.Context, action string, fields validation.FieldErrors) error {
	f.update(func() { f.fields = fields })
	return f.fail(ctx, action, fields.Err(), validation.FormInvalidMessage)
}

// SignUp validates r, registers and signs in.
func (f *AuthForm) SignUp(ctx context.Context, r models.Registration) (*models.User, error) {
	if fields := validation.SignUp(r); len(fields) > 0 {
		return nil, f.invalid(ctx, "sign_up", fields)
	}
	f.update(func() { f.fields = nil })
	user, err := f.api.SignUp(ctx, r)
	if err != nil {
		return nil, f.fail(ctx, "sign_up", err, msgSignUp)
	}
	f.ok(ctx, "sign_up")
	return user, nil
}

// SignIn validates creds and signs in.
func (f *AuthForm) SignIn(ctx context.Context, creds models.Credentials) (*models.User, error) {
	if fields := validation.SignIn(creds); len(fields) > 0 {
		return nil, f.invalid(ctx, "sign_in", fields)
	}
	f.update(func() { f.fields = nil })
	user, err := f.api.SignIn(ctx, creds)
	if err != nil {
		msg := SignInMessage(err)
		f.update(func() { f.err = msg })
		f.log.LogAction(ctx, "sign_in", map[string]interface{}{"ok": false, "error": err.Error()})
		return nil, err
	}
	f.ok(ctx, "sign_in")
	return user, nil
}

// SignOut clears the session.
func (f *AuthForm) SignOut(ctx context.Context) error {
	if err := f.api.SignOut(ctx); err != nil {
		return f.fail(ctx, "sign_out", err, UnexpectedError)
	}
	f.ok(ctx, "sign_out")
	return nil
}
