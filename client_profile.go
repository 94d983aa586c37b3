package goAuthClient

import (
	"context"

	"github.com/MrEthical07/goAuthClient/api"
	"github.com/MrEthical07/goAuthClient/internal/flows"
)

func (c *Client) profileDeps() flows.ProfileDeps {
	return flows.ProfileDeps{
		Get:    c.get,
		Patch:  c.patch,
		Upload: c.upload,
	}
}

// LoadProfile fetches the current user and replaces Session.User. A 401 that
// survives the refresh pipeline ends the session.
func (c *Client) LoadProfile(ctx context.Context) (*User, error) {
	if err := c.requireSession(); err != nil {
		return nil, err
	}
	gen := c.sessionGeneration()

	var res flows.ProfileResult[User]
	err := c.track("Failed to load profile", func() error {
		res = flows.RunLoadProfile[User](ctx, c.profileDeps())
		return res.Err
	})
	if err != nil {
		if res.Failure == flows.ProfileFailureUnauthorized && c.sameSession(gen) {
			c.forceLogout(ctx, err)
		}
		return nil, err
	}

	if !c.setUser(gen, res.User) {
		return nil, ErrNotAuthenticated
	}
	c.metricInc(MetricProfileLoaded)
	c.emit(ctx, EventProfileLoaded, true, "", nil)
	return &res.User, nil
}

// UpdateProfile describes the updateprofile operation and its observable behavior.
//
// UpdateProfile sends a JSON PATCH, or a multipart PATCH when an avatar is
// attached, and replaces Session.User with the user the backend returns.
func (c *Client) UpdateProfile(ctx context.Context, req UpdateProfileRequest) (*User, error) {
	if err := c.requireSession(); err != nil {
		return nil, err
	}
	gen := c.sessionGeneration()

	var res flows.ProfileResult[User]
	err := c.track("Failed to update profile", func() error {
		if err := c.validate(req); err != nil {
			return err
		}
		res = flows.RunUpdateProfile[User](ctx, flows.ProfileUpdate{Body: req, Form: req.form()}, c.profileDeps())
		return res.Err
	})
	if err != nil {
		return nil, err
	}

	if !c.setUser(gen, res.User) {
		return nil, ErrNotAuthenticated
	}
	meta := map[string]string(nil)
	if res.Message != "" {
		meta = map[string]string{"message": res.Message}
	}
	c.emit(ctx, EventProfileUpdated, true, "", meta)
	return &res.User, nil
}

type deleteAccountRequest struct {
	Password string `json:"password" validate:"required"`
}

// DeleteAccount deletes the current user's account after password
// confirmation. On success the session ends.
func (c *Client) DeleteAccount(ctx context.Context, password string) error {
	if err := c.requireSession(); err != nil {
		return err
	}

	err := c.track("Failed to delete account", func() error {
		body := deleteAccountRequest{Password: password}
		if err := c.validate(body); err != nil {
			return err
		}
		return c.del(ctx, api.EndpointProfile, body, nil)
	})
	if err != nil {
		return err
	}

	c.metricInc(MetricAccountDeleted)
	c.endSession(ctx, EventAccountDeleted, nil)
	c.navigateTo(ctx, c.cfg.Routes.Login)
	return nil
}

// ChangePassword changes the current user's password. The session is kept.
func (c *Client) ChangePassword(ctx context.Context, req ChangePasswordRequest) (string, error) {
	if err := c.requireSession(); err != nil {
		return "", err
	}

	var out Detail
	err := c.track("Failed to change password", func() error {
		if err := c.validate(req); err != nil {
			return err
		}
		return c.post(ctx, api.EndpointPasswordChange, req, &out)
	})
	return out.Detail, err
}
