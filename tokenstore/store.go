package tokenstore

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/MrEthical07/goAuthClient/claims"
)

var (
	// ErrTokenMalformed is returned by SetTokens when the access token has no
	// decodable payload. The store is left unchanged.
	ErrTokenMalformed = errors.New("access token malformed")
	// ErrEmptyToken is returned by SetTokens when either token is empty.
	ErrEmptyToken = errors.New("empty token")
	// ErrSuperseded is returned by SetTokensIf when the store was cleared
	// after the caller took its generation.
	ErrSuperseded = errors.New("token store cleared since generation was read")
)

// TokenPair is the credential pair issued by login and refresh.
type TokenPair struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
}

// Record is the persisted form of a token pair. ExpiresAt is the access
// token's exp in Unix seconds, or 0 when nothing is stored.
type Record struct {
	Access    string `json:"access_token,omitempty"`
	Refresh   string `json:"refresh_token,omitempty"`
	ExpiresAt int64  `json:"token_expiry,omitempty"`
}

// Empty reports whether r holds no access token.
func (r Record) Empty() bool {
	return r.Access == ""
}

// Backend persists a Record. Implementations must write and clear all three
// fields as one unit.
type Backend interface {
	Load(ctx context.Context) (Record, error)
	Save(ctx context.Context, rec Record) error
	Clear(ctx context.Context) error
}

// Option configures a Store.
type Option func(*Store)

// WithClock overrides the time source used for expiry checks.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// Store is the process-wide token holder. Reads are served from memory;
// writes go to the backend first and are then published to readers in one
// step.
type Store struct {
	backend Backend
	now     func() time.Time

	writeMu sync.Mutex
	mu      sync.RWMutex
	rec     Record
	gen     uint64
}

// New creates a Store over backend. A nil backend selects [NewMemoryBackend].
func New(backend Backend, opts ...Option) *Store {
	if backend == nil {
		backend = NewMemoryBackend()
	}
	s := &Store{
		backend: backend,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Load hydrates the in-memory record from the backend. It is called once at
// startup so that a persisted session survives a restart.
func (s *Store) Load(ctx context.Context) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	rec, err := s.backend.Load(ctx)
	if err != nil {
		return fmt.Errorf("load tokens: %w", err)
	}
	if rec.Access != "" && rec.ExpiresAt == 0 {
		if c, err := claims.Decode(rec.Access); err == nil {
			if exp, ok := c.Expiry(); ok {
				rec.ExpiresAt = exp.Unix()
			}
		}
	}

	s.mu.Lock()
	s.rec = rec
	s.mu.Unlock()
	return nil
}

// SetTokens stores pair and caches the access token's expiry. It overwrites
// whatever was stored before.
func (s *Store) SetTokens(ctx context.Context, pair TokenPair) error {
	rec, err := recordFor(pair)
	if err != nil {
		return err
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return s.commitLocked(ctx, rec)
}

// SetTokensIf behaves like SetTokens but only commits when no Clear happened
// since gen was read from [Store.RefreshLease] or [Store.Generation].
// Otherwise it returns [ErrSuperseded] and leaves the store and backend
// untouched.
func (s *Store) SetTokensIf(ctx context.Context, gen uint64, pair TokenPair) error {
	rec, err := recordFor(pair)
	if err != nil {
		return err
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if s.Generation() != gen {
		return ErrSuperseded
	}
	return s.commitLocked(ctx, rec)
}

func recordFor(pair TokenPair) (Record, error) {
	if pair.Access == "" || pair.Refresh == "" {
		return Record{}, ErrEmptyToken
	}
	c, err := claims.Decode(pair.Access)
	if err != nil {
		return Record{}, fmt.Errorf("%w: %v", ErrTokenMalformed, err)
	}
	rec := Record{Access: pair.Access, Refresh: pair.Refresh}
	if exp, ok := c.Expiry(); ok {
		rec.ExpiresAt = exp.Unix()
	}
	return rec, nil
}

// commitLocked requires writeMu.
func (s *Store) commitLocked(ctx context.Context, rec Record) error {
	if err := s.backend.Save(ctx, rec); err != nil {
		return fmt.Errorf("save tokens: %w", err)
	}

	s.mu.Lock()
	s.rec = rec
	s.mu.Unlock()
	return nil
}

// Generation returns a counter that advances on every Clear. Results of
// network calls started under one generation are stale once it changes.
func (s *Store) Generation() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.gen
}

// RefreshLease returns the stored refresh token together with the generation
// it belongs to, read from the same record.
func (s *Store) RefreshLease() (string, uint64, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.rec.Refresh, s.gen, s.rec.Refresh != ""
}

// Clear erases the access token, refresh token, and cached expiry. The
// in-memory record is cleared even when the backend fails, so the process
// never keeps using a session it tried to drop.
func (s *Store) Clear(ctx context.Context) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	s.mu.Lock()
	s.rec = Record{}
	s.gen++
	s.mu.Unlock()

	if err := s.backend.Clear(ctx); err != nil {
		return fmt.Errorf("clear tokens: %w", err)
	}
	return nil
}

// Snapshot returns the current record.
func (s *Store) Snapshot() Record {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.rec
}

// AccessToken returns the stored access token.
func (s *Store) AccessToken() (string, bool) {
	rec := s.Snapshot()
	return rec.Access, rec.Access != ""
}

// RefreshToken returns the stored refresh token.
func (s *Store) RefreshToken() (string, bool) {
	rec := s.Snapshot()
	return rec.Refresh, rec.Refresh != ""
}

// Tokens returns both tokens from the same record.
func (s *Store) Tokens() (TokenPair, bool) {
	rec := s.Snapshot()
	if rec.Access == "" && rec.Refresh == "" {
		return TokenPair{}, false
	}
	return TokenPair{Access: rec.Access, Refresh: rec.Refresh}, true
}

// ExpiresAt returns the cached expiry of the stored access token.
func (s *Store) ExpiresAt() (time.Time, bool) {
	rec := s.Snapshot()
	if rec.Access == "" || rec.ExpiresAt == 0 {
		return time.Time{}, false
	}
	return time.Unix(rec.ExpiresAt, 0), true
}

// TimeToExpiry returns how long the stored access token stays valid. It is
// zero or negative when the token is expired or absent.
func (s *Store) TimeToExpiry() time.Duration {
	exp, ok := s.ExpiresAt()
	if !ok {
		return 0
	}
	return exp.Sub(s.now())
}

// IsExpired reports whether the stored access token is expired. A missing
// token is expired.
func (s *Store) IsExpired() bool {
	token, ok := s.AccessToken()
	if !ok {
		return true
	}
	return s.IsTokenExpired(token)
}

// IsTokenExpired decodes token and reports whether it is expired at the
// store's current time. Tokens that cannot be decoded are expired.
func (s *Store) IsTokenExpired(token string) bool {
	c, err := claims.Decode(token)
	if err != nil {
		return true
	}
	return c.Expired(s.now())
}

// IsAuthenticated reports whether a non-expired access token is stored.
func (s *Store) IsAuthenticated() bool {
	token, ok := s.AccessToken()
	return ok && !s.IsTokenExpired(token)
}

// Claims decodes the stored access token.
func (s *Store) Claims() (*claims.Claims, bool) {
	token, ok := s.AccessToken()
	if !ok {
		return nil, false
	}
	c, err := claims.Decode(token)
	if err != nil {
		return nil, false
	}
	return c, true
}
