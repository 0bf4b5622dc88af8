package api

import (
	"context"
	"errors"
	"net/http"

	"toolbox/internal/models"
)

type tokenResponse struct {
	Token string `json:"token"`
}

// SignUp registers an account and signs the session in with the returned
// token.
func (c *Client) SignUp(ctx context.Context, r models.Registration) (*models.User, error) {
	req := request{
		method:   http.MethodPost,
		path:     "/auth/sign-up",
		endpoint: "/auth/sign-up",
		body:     r,
		auth:     authNone,
		fallback: "Something went wrong",
	}
	return c.authenticate(ctx, req, "Something went wrong")
}

// SignIn exchanges credentials for a token and stores it in the session.
func (c *Client) SignIn(ctx context.Context, creds models.Credentials) (*models.User, error) {
	req := request{
		method:   http.MethodPost,
		path:     "/auth/sign-in",
		endpoint: "/auth/sign-in",
		body:     creds,
		auth:     authNone,
		fallback: "Sign in failed",
	}
	return c.authenticate(ctx, req, "Sign in failed")
}

func (c *Client) authenticate(ctx context.Context, req request, noToken string) (*models.User, error) {
	var out tokenResponse
	if err := c.do(ctx, req, &out); err != nil {
		return nil, err
	}
	if out.Token == "" {
		return nil, errors.New(noToken)
	}
	return c.session.Set(ctx, out.Token)
}

// SignOut forgets the token. The backend keeps no session state.
func (c *Client) SignOut(ctx context.Context) error {
	return c.session.Clear(ctx)
}
