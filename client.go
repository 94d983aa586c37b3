package goAuthClient

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/MrEthical07/goAuthClient/api"
	"github.com/MrEthical07/goAuthClient/claims"
	"github.com/MrEthical07/goAuthClient/tokenstore"
	"github.com/MrEthical07/goAuthClient/transport"
)

// Client is the session controller. It owns the token store, the refresh
// gate shared with the request pipeline, and the background refresher.
//
// Client instances are created by [Builder.Build] and are safe for concurrent
// use until [Client.Close].
type Client struct {
	cfg      Config
	logger   *slog.Logger
	api      *api.Client
	tokens   *tokenstore.Store
	gate     *transport.RefreshGate
	nav      transport.Navigator
	metrics  *Metrics
	events   *eventDispatcher
	validate func(any) error
	now      func() time.Time

	mu      sync.Mutex
	state   State
	authed  bool
	user    *User
	loading int
	lastErr string

	refMu     sync.Mutex
	refCancel context.CancelFunc
	bg        sync.WaitGroup

	closed atomic.Bool
}

// Close stops the background refresher and flushes pending events. Tokens
// are left in the store so a persistent backend keeps the session for the
// next process.
func (c *Client) Close() {
	if c == nil || !c.closed.CompareAndSwap(false, true) {
		return
	}
	c.stopRefresher()
	c.bg.Wait()
	c.events.Close()
}

// Session returns a snapshot of the session state.
func (c *Client) Session() Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sessionLocked()
}

func (c *Client) sessionLocked() Session {
	s := Session{
		State:         c.state,
		Authenticated: c.authed && c.tokens.IsAuthenticated(),
		Loading:       c.loading > 0,
		LastError:     c.lastErr,
	}
	if c.user != nil {
		u := *c.user
		s.User = &u
	}
	return s
}

// IsAuthenticated reports whether a live session exists: the controller is
// authenticated and the stored access token has not expired.
func (c *Client) IsAuthenticated() bool {
	c.mu.Lock()
	authed := c.authed
	c.mu.Unlock()
	return authed && c.tokens.IsAuthenticated()
}

// User returns a copy of the current user, if loaded.
func (c *Client) User() (User, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.user == nil {
		return User{}, false
	}
	return *c.user, true
}

// Claims decodes the stored access token.
func (c *Client) Claims() (*claims.Claims, bool) {
	return c.tokens.Claims()
}

// Tokens returns the stored token pair.
func (c *Client) Tokens() (TokenPair, bool) {
	return c.tokens.Tokens()
}

// HasPermission reports whether the current token grants perm.
func (c *Client) HasPermission(perm string) bool {
	cl, ok := c.tokens.Claims()
	return ok && cl.HasPermission(perm)
}

// HasAnyPermission reports whether the current token grants at least one of
// perms.
func (c *Client) HasAnyPermission(perms ...string) bool {
	cl, ok := c.tokens.Claims()
	return ok && cl.HasAnyPermission(perms...)
}

// HasAllPermissions reports whether the current token grants every perm.
func (c *Client) HasAllPermissions(perms ...string) bool {
	cl, ok := c.tokens.Claims()
	return ok && cl.HasAllPermissions(perms...)
}

// IsStaff reports whether the current token carries the staff flag.
func (c *Client) IsStaff() bool {
	cl, ok := c.tokens.Claims()
	return ok && cl.IsStaff
}

// IsSuperuser reports whether the current token carries the superuser flag.
func (c *Client) IsSuperuser() bool {
	cl, ok := c.tokens.Claims()
	return ok && cl.IsSuperuser
}

// ClearError resets Session.LastError.
func (c *Client) ClearError() {
	c.SetError("")
}

// SetError replaces Session.LastError.
func (c *Client) SetError(msg string) {
	if c.closed.Load() {
		return
	}
	c.mu.Lock()
	changed := c.lastErr != msg
	c.lastErr = msg
	c.mu.Unlock()
	if changed {
		c.emit(context.Background(), EventErrorChanged, msg == "", msg, nil)
	}
}

// MetricsSnapshot returns the in-process counters.
func (c *Client) MetricsSnapshot() MetricsSnapshot {
	if c == nil || c.metrics == nil {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}
	return c.metrics.Snapshot()
}

// EventsDropped returns how many events were dropped by a full queue.
func (c *Client) EventsDropped() uint64 {
	if c == nil {
		return 0
	}
	return c.events.Dropped()
}

// RefreshesStarted returns how many refreshes actually reached the backend.
func (c *Client) RefreshesStarted() uint64 {
	return c.gate.Started()
}

// HTTPClient returns the authenticated *http.Client used by the Client. It
// can issue requests to endpoints the Client has no method for.
func (c *Client) HTTPClient() *http.Client {
	return c.api.HTTP()
}

func (c *Client) checkOpen() error {
	if c == nil || c.closed.Load() {
		return ErrClientClosed
	}
	return nil
}

func (c *Client) metricInc(id MetricID) {
	if c == nil || c.metrics == nil {
		return
	}
	c.metrics.Inc(id)
}

/*
====================================
STATE TRANSITIONS
====================================
*/

// begin marks an operation as loading and clears the last error.
func (c *Client) begin() {
	c.mu.Lock()
	c.loading++
	c.lastErr = ""
	c.mu.Unlock()
}

// end finishes an operation started with begin, recording err's message.
func (c *Client) end(err error, fallback string) {
	c.mu.Lock()
	if c.loading > 0 {
		c.loading--
	}
	if err != nil {
		c.lastErr = messageOr(err, fallback)
	}
	c.mu.Unlock()
}

// track wraps a pass-through operation with loading and error signals.
func (c *Client) track(fallback string, fn func() error) error {
	if err := c.checkOpen(); err != nil {
		return err
	}
	c.begin()
	err := fn()
	c.end(err, fallback)
	return err
}

// teardownLocked clears the token store and resets the session in one
// critical section. It reports whether there was anything to tear down.
func (c *Client) teardownLocked(ctx context.Context) bool {
	_, hadTokens := c.tokens.Tokens()
	had := hadTokens || c.authed || c.user != nil || c.state != StateAnonymous

	if err := c.tokens.Clear(context.WithoutCancel(ctx)); err != nil {
		c.logger.Warn("goauthclient: token backend clear failed", slog.String("err", err.Error()))
	}
	c.authed = false
	c.user = nil
	c.state = StateAnonymous
	return had
}

// endSession tears the session down, stops the refresher, and emits kind.
func (c *Client) endSession(ctx context.Context, kind EventType, cause error) bool {
	c.mu.Lock()
	if c.closed.Load() {
		c.mu.Unlock()
		return false
	}
	had := c.teardownLocked(ctx)
	c.mu.Unlock()

	c.stopRefresher()
	if had {
		msg := ""
		if cause != nil {
			msg = messageOr(cause, "")
		}
		c.emit(ctx, kind, cause == nil, msg, nil)
	}
	return had
}

// forceLogout ends the session after an unrecoverable auth failure and
// sends the user to the login route.
func (c *Client) forceLogout(ctx context.Context, cause error) {
	if c.endSession(ctx, EventSessionExpired, cause) {
		c.metricInc(MetricForcedLogout)
		c.logger.Info("goauthclient: session expired", slog.String("reason", messageOr(cause, "")))
		c.navigateTo(ctx, c.cfg.Routes.Login)
	}
}

// authenticate enters StateAuthenticated with user and starts the refresher.
func (c *Client) authenticate(user *User) bool {
	c.mu.Lock()
	if c.closed.Load() {
		c.mu.Unlock()
		return false
	}
	c.authed = true
	if user != nil {
		c.user = user
	}
	c.state = StateAuthenticated
	c.mu.Unlock()

	c.startRefresher()
	return true
}

// sessionGeneration identifies the current session. It changes on every
// teardown.
func (c *Client) sessionGeneration() uint64 {
	return c.tokens.Generation()
}

// sameSession reports whether no teardown happened since gen was taken.
func (c *Client) sameSession(gen uint64) bool {
	return c.tokens.Generation() == gen
}

// setUser replaces the session user when the session that requested it is
// still the current one.
func (c *Client) setUser(gen uint64, user User) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed.Load() || !c.authed || c.tokens.Generation() != gen {
		return false
	}
	c.user = &user
	return true
}

func (c *Client) emit(ctx context.Context, kind EventType, success bool, errMsg string, meta map[string]string) {
	if c.events == nil {
		return
	}
	c.events.Emit(ctx, Event{
		Timestamp: c.now(),
		Type:      kind,
		Session:   c.Session(),
		Success:   success,
		Error:     errMsg,
		Metadata:  meta,
	})
}

func (c *Client) navigateTo(ctx context.Context, target string) {
	if c.nav == nil || target == "" {
		return
	}
	c.nav.Navigate(ctx, target)
}

// errorNavigator forwards error-page navigation unless the request context
// asked for silence.
type errorNavigator struct {
	next transport.Navigator
}

func (n errorNavigator) Navigate(ctx context.Context, target string) {
	if n.next == nil || navigationSuppressed(ctx) {
		return
	}
	n.next.Navigate(ctx, target)
}

func (c *Client) errorRoute(status int) string {
	return c.cfg.Routes.ErrorPrefix + strconv.Itoa(status)
}

func (c *Client) pipelineHooks() transport.Hooks {
	return transport.Hooks{
		OnUnauthorized: func() { c.metricInc(MetricUnauthorized) },
		OnRetry:        func() { c.metricInc(MetricRetry) },
		OnNetworkError: func(error) { c.metricInc(MetricNetworkError) },
		OnStatus: func(status int) {
			switch {
			case status == http.StatusForbidden:
				c.metricInc(MetricForbidden)
			case status == http.StatusNotFound:
				c.metricInc(MetricNotFound)
			case status >= 500:
				c.metricInc(MetricServerError)
			}
		},
	}
}

/*
====================================
API ADAPTERS
====================================
*/

func (c *Client) observe(start time.Time) {
	if c.metrics.LatencyEnabled() {
		c.metrics.Observe(MetricRequestLatency, c.now().Sub(start))
	}
}

func (c *Client) get(ctx context.Context, endpoint string, query url.Values, out any) error {
	defer c.observe(c.now())
	_, err := c.api.Get(ctx, endpoint, query, out)
	return err
}

func (c *Client) post(ctx context.Context, endpoint string, body, out any) error {
	defer c.observe(c.now())
	_, err := c.api.Post(ctx, endpoint, body, out)
	return err
}

func (c *Client) patch(ctx context.Context, endpoint string, body, out any) error {
	defer c.observe(c.now())
	_, err := c.api.Patch(ctx, endpoint, body, out)
	return err
}

func (c *Client) del(ctx context.Context, endpoint string, body, out any) error {
	defer c.observe(c.now())
	_, err := c.api.Delete(ctx, endpoint, body, out)
	return err
}

func (c *Client) upload(ctx context.Context, method, endpoint string, form api.Form, out any) error {
	defer c.observe(c.now())
	_, err := c.api.Upload(ctx, method, endpoint, form, out)
	return err
}

// requireSession fails fast when no session tokens are stored.
func (c *Client) requireSession() error {
	if err := c.checkOpen(); err != nil {
		return err
	}
	if _, ok := c.tokens.Tokens(); !ok {
		return ErrNotAuthenticated
	}
	return nil
}

func messageOr(err error, fallback string) string {
	if err == nil {
		return ""
	}
	if msg := api.Message(err); msg != "" {
		return msg
	}
	return fallback
}
