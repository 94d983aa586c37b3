package goAuthClient

import (
	"context"

	"github.com/MrEthical07/goAuthClient/api"
)

// The operations in this file only forward a request and surface the
// loading and error signals; they never change the session state.

// RequestPasswordReset asks the backend to mail a password reset link.
func (c *Client) RequestPasswordReset(ctx context.Context, email string) (string, error) {
	return c.acknowledge(ctx, api.EndpointPasswordReset, PasswordResetRequest{Email: email}, "Failed to request password reset")
}

// ConfirmPasswordReset sets a new password from a mailed reset link.
func (c *Client) ConfirmPasswordReset(ctx context.Context, req PasswordResetConfirm) (string, error) {
	return c.acknowledge(ctx, api.EndpointPasswordResetConfirm, req, "Failed to reset password")
}

// VerifyEmail confirms the address behind a mailed verification link.
func (c *Client) VerifyEmail(ctx context.Context, uid, token string) (string, error) {
	return c.acknowledge(ctx, api.EndpointVerifyEmail, EmailVerification{UID: uid, Token: token}, "Email verification failed")
}

// ResendVerification asks the backend to mail a new verification link.
func (c *Client) ResendVerification(ctx context.Context, email string) (string, error) {
	return c.acknowledge(ctx, api.EndpointResendVerification, PasswordResetRequest{Email: email}, "Failed to resend verification email")
}

func (c *Client) acknowledge(ctx context.Context, endpoint string, body any, fallback string) (string, error) {
	var out Detail
	err := c.track(fallback, func() error {
		if err := c.validate(body); err != nil {
			c.metricInc(MetricValidationRejected)
			return err
		}
		return c.post(ctx, endpoint, body, &out)
	})
	return out.Detail, err
}
