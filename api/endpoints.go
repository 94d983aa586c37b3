package api

import "strconv"

// Backend endpoints, relative to the base URL.
const (
	EndpointLogin                = "auth/login/"
	EndpointRegister             = "auth/register/"
	EndpointLogout               = "auth/logout/"
	EndpointRefresh              = "auth/refresh/"
	EndpointProfile              = "auth/profile/"
	EndpointPasswordReset        = "auth/password/reset/"
	EndpointPasswordResetConfirm = "auth/password/reset/confirm/"
	EndpointPasswordChange       = "auth/password/change/"
	EndpointVerifyEmail          = "auth/verify-email/"
	EndpointResendVerification   = "auth/resend-verification/"
	EndpointUsers                = "users/"
)

// UserEndpoint returns "users/<id>/" followed by any action segments, each
// terminated by a slash.
func UserEndpoint(id int64, action ...string) string {
	out := EndpointUsers + strconv.FormatInt(id, 10) + "/"
	for _, a := range action {
		out += a + "/"
	}
	return out
}
