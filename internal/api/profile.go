package api

import (
	"context"
	"encoding/json"
	"net/http"

	"toolbox/internal/models"
)

// GetProfile returns the signed-in user's profile.
func (c *Client) GetProfile(ctx context.Context) (*models.User, error) {
	body, err := c.doRaw(ctx, get("/profile/me", "/profile/me", authRequired))
	if err != nil {
		return nil, err
	}
	var u models.User
	if err := json.Unmarshal(unwrap(body, "user"), &u); err != nil {
		return nil, models.NewInternalError(err)
	}
	return &u, nil
}

// UpdateProfile patches the signed-in user's profile.
func (c *Client) UpdateProfile(ctx context.Context, in models.ProfileUpdate) error {
	req := send(http.MethodPatch, "/profile/me", "/profile/me", in)
	req.fallback = "Failed to update profile"
	return c.do(ctx, req, nil)
}

// GetPublicProfile returns another user's public profile.
func (c *Client) GetPublicProfile(ctx context.Context, userID models.ID) (*models.PublicProfile, error) {
	body, err := c.doRaw(ctx, get("/profile/:id", "/profile/"+pathID(userID), authOptional))
	if err != nil {
		return nil, err
	}
	return decodeProfile(body)
}

// UserStats returns the signed-in user's activity counters.
func (c *Client) UserStats(ctx context.Context) (*models.UserStats, error) {
	var s models.UserStats
	if err := c.do(ctx, get("/users/stats", "/users/stats", authRequired), &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// CurrentUser returns the user record behind the token.
func (c *Client) CurrentUser(ctx context.Context) (*models.User, error) {
	body, err := c.doRaw(ctx, get("/users/currentUser", "/users/currentUser", authRequired))
	if err != nil {
		return nil, err
	}
	var u models.User
	if err := json.Unmarshal(unwrap(body, "user"), &u); err != nil {
		return nil, models.NewInternalError(err)
	}
	return &u, nil
}

// UserProfile returns a user's profile as seen by a signed-in user.
func (c *Client) UserProfile(ctx context.Context, userID models.ID) (*models.PublicProfile, error) {
	body, err := c.doRaw(ctx, get("/users/profile/:id", "/users/profile/"+pathID(userID), authRequired))
	if err != nil {
		return nil, err
	}
	return decodeProfile(body)
}

// decodeProfile accepts the user at the top level or under "user", with
// posts and stats beside it.
func decodeProfile(body []byte) (*models.PublicProfile, error) {
	var p models.PublicProfile
	if err := json.Unmarshal(body, &p); err != nil {
		return nil, models.NewInternalError(err)
	}
	if inner := unwrap(body, "user"); len(inner) != len(body) {
		if err := json.Unmarshal(inner, &p.User); err != nil {
			return nil, models.NewInternalError(err)
		}
	}
	return &p, nil
}
