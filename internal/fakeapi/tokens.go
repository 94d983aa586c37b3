package fakeapi

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/MrEthical07/goAuthClient/claims"
	"github.com/MrEthical07/goAuthClient/internal/redact"
)

const (
	tokenTypeAccess  = "access"
	tokenTypeRefresh = "refresh"
)

var errWrongTokenType = errors.New("wrong token type")

func uidOf(id int64) string {
	return strconv.FormatInt(id, 10)
}

func (s *Server) sign(c *claims.Claims) (string, error) {
	return jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(s.opts.Secret)
}

func (s *Server) newClaims(u User, kind string, ttl time.Duration) *claims.Claims {
	now := s.now()
	return &claims.Claims{
		TokenType:   kind,
		UserID:      claims.SubjectID(uidOf(u.ID)),
		Username:    u.Username,
		Email:       u.Email,
		IsStaff:     u.IsStaff,
		IsSuperuser: u.IsSuperuser,
		Permissions: u.UserPermissions,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
}

// IssueAccess signs an access token for the user named username. Tests use
// it to plant tokens with a chosen lifetime.
func (s *Server) IssueAccess(username string, ttl time.Duration) (string, error) {
	s.mu.Lock()
	a := s.byUsernameLocked(username)
	s.mu.Unlock()
	if a == nil {
		return "", errors.New("unknown user")
	}
	return s.sign(s.newClaims(a.user, tokenTypeAccess, ttl))
}

// LiveRefreshTokens counts the refresh tokens issued to username that have
// not been revoked by rotation or logout.
func (s *Server) LiveRefreshTokens(username string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	a := s.byUsernameLocked(username)
	if a == nil {
		return 0
	}
	n := 0
	for _, id := range s.refresh {
		if id == a.user.ID {
			n++
		}
	}
	return n
}

// issuePairLocked signs a new pair and registers the refresh token.
func (s *Server) issuePairLocked(u User) (access, refresh string, err error) {
	access, err = s.sign(s.newClaims(u, tokenTypeAccess, s.opts.AccessTTL))
	if err != nil {
		return "", "", err
	}
	rc := s.newClaims(u, tokenTypeRefresh, s.opts.RefreshTTL)
	refresh, err = s.sign(rc)
	if err != nil {
		return "", "", err
	}
	s.refresh[rc.ID] = u.ID
	return access, refresh, nil
}

// parse verifies a token's signature, expiry, and type.
func (s *Server) parse(token, kind string) (*claims.Claims, error) {
	c := &claims.Claims{}
	_, err := jwt.ParseWithClaims(token, c,
		func(*jwt.Token) (any, error) { return s.opts.Secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.now),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, err
	}
	if c.TokenType != kind {
		return nil, errWrongTokenType
	}
	return c, nil
}

type accountKey struct{}

func accountFrom(ctx context.Context) *account {
	a, _ := ctx.Value(accountKey{}).(*account)
	return a
}

// authenticate accepts a valid bearer access token for an active account.
func (s *Server) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		if !ok || raw == "" {
			writeDetail(w, http.StatusUnauthorized, "Authentication credentials were not provided.")
			return
		}
		c, err := s.parse(raw, tokenTypeAccess)
		if err != nil {
			s.opts.Logger.Debug("fakeapi: token rejected",
				slog.String("authorization", redact.Authorization(r.Header.Get("Authorization"))),
				slog.String("err", err.Error()),
			)
			writeJSON(w, http.StatusUnauthorized, map[string]string{
				"detail": "Given token not valid for any token type",
				"code":   "token_not_valid",
			})
			return
		}

		id, _ := strconv.ParseInt(string(c.UserID), 10, 64)
		s.mu.Lock()
		a := s.accounts[id]
		s.mu.Unlock()
		if a == nil || !a.user.IsActive {
			writeDetail(w, http.StatusUnauthorized, "User not found")
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), accountKey{}, a)))
	})
}

func (s *Server) requireStaff(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		a := accountFrom(r.Context())
		allowed := a != nil && (a.user.IsStaff || a.user.IsSuperuser)
		s.mu.Unlock()
		if !allowed {
			writeDetail(w, http.StatusForbidden, "You do not have permission to perform this action.")
			return
		}
		next.ServeHTTP(w, r)
	})
}
