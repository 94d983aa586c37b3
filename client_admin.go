package goAuthClient

import (
	"context"

	"github.com/MrEthical07/goAuthClient/api"
)

// GetUser fetches one user by id.
func (c *Client) GetUser(ctx context.Context, id int64) (*User, error) {
	if err := c.requireSession(); err != nil {
		return nil, err
	}
	var out User
	err := c.track("Failed to load user", func() error {
		return c.get(ctx, api.UserEndpoint(id), nil, &out)
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// ListUsers returns one page of users matching filters.
func (c *Client) ListUsers(ctx context.Context, filters UserListFilters) (*UserPage, error) {
	if err := c.requireSession(); err != nil {
		return nil, err
	}
	var out UserPage
	err := c.track("Failed to load users", func() error {
		return c.get(ctx, api.EndpointUsers, filters.Values(), &out)
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateUser applies a partial update to another user.
func (c *Client) UpdateUser(ctx context.Context, id int64, update UserUpdate) (*User, error) {
	if err := c.requireSession(); err != nil {
		return nil, err
	}
	var out User
	err := c.track("Failed to update user", func() error {
		if err := c.validate(update); err != nil {
			return err
		}
		return c.patch(ctx, api.UserEndpoint(id), update, &out)
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteUser removes a user.
func (c *Client) DeleteUser(ctx context.Context, id int64) error {
	if err := c.requireSession(); err != nil {
		return err
	}
	return c.track("Failed to delete user", func() error {
		return c.del(ctx, api.UserEndpoint(id), nil, nil)
	})
}

func (c *Client) ActivateUser(ctx context.Context, id int64) (*User, error) {
	return c.userAction(ctx, id, "activate", "Failed to activate user")
}

func (c *Client) DeactivateUser(ctx context.Context, id int64) (*User, error) {
	return c.userAction(ctx, id, "deactivate", "Failed to deactivate user")
}

// ResetUserPassword triggers a password reset mail for another user.
func (c *Client) ResetUserPassword(ctx context.Context, id int64) (string, error) {
	if err := c.requireSession(); err != nil {
		return "", err
	}
	var out Detail
	err := c.track("Failed to reset user password", func() error {
		return c.post(ctx, api.UserEndpoint(id, "reset-password"), struct{}{}, &out)
	})
	return out.Detail, err
}

func (c *Client) userAction(ctx context.Context, id int64, action, fallback string) (*User, error) {
	if err := c.requireSession(); err != nil {
		return nil, err
	}
	var out User
	err := c.track(fallback, func() error {
		return c.post(ctx, api.UserEndpoint(id, action), struct{}{}, &out)
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}
