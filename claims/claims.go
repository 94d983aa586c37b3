package claims

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/MrEthical07/goAuthClient/permission"
	"github.com/golang-jwt/jwt/v5"
)

// ErrMalformed is returned when a token cannot be decoded into [Claims].
var ErrMalformed = errors.New("malformed token")

// SubjectID is the backend user identifier. The backend may encode it as a
// JSON number or a JSON string; both decode to the same textual form.
type SubjectID string

// UnmarshalJSON accepts numeric and string encodings.
func (id *SubjectID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = SubjectID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("user_id: %w", err)
	}
	*id = SubjectID(n.String())
	return nil
}

// Claims is the access-token payload issued by the user-management backend.
type Claims struct {
	TokenType   string    `json:"token_type,omitempty"`
	UserID      SubjectID `json:"user_id,omitempty"`
	Username    string    `json:"username,omitempty"`
	Email       string    `json:"email,omitempty"`
	IsStaff     bool      `json:"is_staff,omitempty"`
	IsSuperuser bool      `json:"is_superuser,omitempty"`
	Permissions []string  `json:"permissions,omitempty"`
	jwt.RegisteredClaims
}

var parser = jwt.NewParser()

// Decode reads the payload of a three-segment token without verifying its
// signature. Any structural problem is reported as an error wrapping
// [ErrMalformed]; Decode never panics on arbitrary input.
func Decode(token string) (*Claims, error) {
	if token == "" {
		return nil, fmt.Errorf("%w: empty token", ErrMalformed)
	}
	if strings.Count(token, ".") != 2 {
		return nil, fmt.Errorf("%w: expected three segments", ErrMalformed)
	}

	c := &Claims{}
	if _, _, err := parser.ParseUnverified(token, c); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return c, nil
}

// Expiry returns the exp instant, if the token carries one.
func (c *Claims) Expiry() (time.Time, bool) {
	if c == nil || c.ExpiresAt == nil {
		return time.Time{}, false
	}
	return c.ExpiresAt.Time, true
}

// Expired reports whether the token is expired at now. The boundary is
// inclusive: a token whose exp equals now is expired. A token without exp is
// treated as expired.
func (c *Claims) Expired(now time.Time) bool {
	exp, ok := c.Expiry()
	if !ok {
		return true
	}
	return !now.Before(exp)
}

// Policy returns the permission subject described by the claims.
func (c *Claims) Policy() permission.Subject {
	if c == nil {
		return permission.Subject{}
	}
	return permission.NewSubject(c.IsSuperuser, c.IsStaff, c.Permissions)
}

// HasPermission evaluates a single permission against the claims.
func (c *Claims) HasPermission(perm string) bool {
	return c.Policy().Has(perm)
}

// HasAnyPermission reports whether at least one of perms is held.
func (c *Claims) HasAnyPermission(perms ...string) bool {
	return c.Policy().HasAny(perms...)
}

// HasAllPermissions reports whether every one of perms is held.
func (c *Claims) HasAllPermissions(perms ...string) bool {
	return c.Policy().HasAll(perms...)
}

// Admin reports whether the claims carry the staff or superuser flag.
func (c *Claims) Admin() bool {
	return c.Policy().Admin()
}
