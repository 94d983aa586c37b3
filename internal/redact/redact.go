// Package redact renders secrets and personal data safely for logs.
package redact

import "strings"

const (
	redactedToken    = "[REDACTED_TOKEN]"
	redactedPassword = "[REDACTED_PASSWORD]"
)

func Password() string { return redactedPassword }

// Email keeps the first two characters of the local part and the domain.
func Email(s string) string {
	parts := strings.Split(s, "@")
	if len(parts) != 2 {
		return "***"
	}

	local, domain := parts[0], parts[1]
	if len(local) > 2 {
		local = local[:2] + "***"
	} else {
		local = "***"
	}
	return local + "@" + domain
}

// Authorization masks the credential of an Authorization header value while
// keeping its scheme.
func Authorization(v string) string {
	if v == "" {
		return ""
	}
	if i := strings.IndexByte(v, ' '); i > 0 {
		return v[:i] + " " + redactedToken
	}
	return redactedToken
}
