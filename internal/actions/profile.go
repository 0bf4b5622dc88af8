package actions

import (
	"context"
	"maps"

	"toolbox/internal/models"
	"toolbox/internal/validation"
)

// ProfileAPI is the part of the API client the profile views use.
type ProfileAPI interface {
	GetProfile(ctx context.Context) (*models.User, error)
	UpdateProfile(ctx context.Context, in models.ProfileUpdate) error
	UserStats(ctx context.Context) (*models.UserStats, error)
	GetPublicProfile(ctx context.Context, userID models.ID) (*models.PublicProfile, error)
}

const (
	msgFetchProfile  = "Failed to fetch profile"
	msgUpdateProfile = "Failed to update profile"
	msgLoadPublic    = "Failed to load user profile"
)

// ProfileView shows and edits the signed-in user's profile, or shows another
// user's public profile.
type ProfileView struct {
	view
	api ProfileAPI

	me     *models.User
	stats  *models.UserStats
	public *models.PublicProfile
	fields validation.FieldErrors
}

// NewProfileView returns an empty profile view.
func NewProfileView(p ProfileAPI, users CurrentUser) *ProfileView {
	v := &ProfileView{api: p}
	v.init(users, "profile")
	return v
}

// Load fetches the user's profile and activity stats. Stats are optional.
func (v *ProfileView) Load(ctx context.Context) error {
	if v.user() == nil {
		return v.prompt(SignInToView)
	}
	ticket := v.begin()
	me, err := v.api.GetProfile(ctx)
	if err != nil {
		return v.failLoad(ctx, ticket, "load_profile", err, msgFetchProfile)
	}
	stats, err := v.api.UserStats(ctx)
	if err != nil {
		v.log.LogError(ctx, "GET", "/users/stats", err)
	}
	v.commit(ticket, func() {
		v.me = me
		v.stats = stats
		v.err = ""
	})
	return nil
}

// Profile returns the loaded profile, or nil.
func (v *ProfileView) Profile() *models.User {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.me == nil {
		return nil
	}
	u := *v.me
	return &u
}

// Stats returns the loaded stats, or nil.
func (v *ProfileView) Stats() *models.UserStats {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.stats == nil {
		return nil
	}
	s := *v.stats
	return &s
}

// FieldErrors returns per-field messages from the last Update.
func (v *ProfileView) FieldErrors() validation.FieldErrors {
	v.mu.Lock()
	defer v.mu.Unlock()
	return maps.Clone(v.fields)
}

// Update validates and saves in, then re-fetches the profile.
func (v *ProfileView) Update(ctx context.Context, in models.ProfileUpdate) error {
	if v.user() == nil {
		return v.prompt(SignInToView)
	}
	if fields := validation.Profile(in); len(fields) > 0 {
		v.update(func() { v.fields = fields })
		return v.fail(ctx, "update_profile", fields.Err(), msgUpdateProfile)
	}
	v.update(func() { v.fields = nil })
	if err := v.api.UpdateProfile(ctx, in); err != nil {
		return v.fail(ctx, "update_profile", err, msgUpdateProfile)
	}
	v.ok(ctx, "update_profile")
	return v.Load(ctx)
}

// LoadPublic fetches another user's public profile.
func (v *ProfileView) LoadPublic(ctx context.Context, userID models.ID) error {
	ticket := v.begin()
	p, err := v.api.GetPublicProfile(ctx, userID)
	if err != nil {
		return v.failLoad(ctx, ticket, "load_public_profile", err, msgLoadPublic)
	}
	v.commit(ticket, func() {
		v.public = p
		v.err = ""
	})
	return nil
}

// Public returns the loaded public profile, or nil.
func (v *ProfileView) Public() *models.PublicProfile {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.public
}
