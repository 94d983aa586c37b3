package goAuthClient

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/MrEthical07/goAuthClient/internal/flows"
	"github.com/MrEthical07/goAuthClient/internal/redact"
	"github.com/MrEthical07/goAuthClient/transport"
)

// Start restores a persisted session. When the stored access token has
// expired but a refresh token remains, one refresh is attempted. A restored
// session loads the profile when Session.LoadProfileOnStart is set; a 401
// during that load ends the session.
//
// Start returns the session as it stands afterwards. Only backend read
// failures and profile load failures are reported as errors; "no session" is
// not an error.
func (c *Client) Start(ctx context.Context) (Session, error) {
	if err := c.checkOpen(); err != nil {
		return Session{}, err
	}
	if err := c.tokens.Load(ctx); err != nil {
		return c.Session(), fmt.Errorf("restore session: %w", err)
	}

	if !c.tokens.IsAuthenticated() {
		if _, ok := c.tokens.RefreshToken(); !ok {
			return c.Session(), nil
		}
		if _, err := c.refreshAccess(WithoutNavigation(ctx)); err != nil {
			c.logger.Info("goauthclient: stored session could not be renewed", slog.String("err", err.Error()))
			return c.Session(), nil
		}
	}

	if !c.authenticate(nil) {
		return Session{}, ErrClientClosed
	}
	c.emit(ctx, EventSessionRestored, true, "", nil)

	if c.cfg.Session.LoadProfileOnStart {
		if _, err := c.LoadProfile(WithoutNavigation(ctx)); err != nil {
			return c.Session(), err
		}
	}
	return c.Session(), nil
}

// Login describes the login operation and its observable behavior.
//
// Any existing session is torn down locally first. The controller moves to
// StateAuthenticating with Loading set and LastError cleared. On success the
// token pair is stored, the user is set, and the refresher starts; on failure
// the controller returns to StateAnonymous with LastError holding the
// flattened backend message, and the token store is not written.
func (c *Client) Login(ctx context.Context, req LoginRequest) (*User, error) {
	if err := c.checkOpen(); err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.teardownLocked(ctx)
	c.state = StateAuthenticating
	c.loading++
	c.lastErr = ""
	c.mu.Unlock()
	c.stopRefresher()
	c.emit(ctx, EventLoginStarted, true, "", map[string]string{"username": req.Username})

	res := flows.RunLogin[User](ctx, req, flows.LoginDeps{
		Validate: c.validate,
		Post:     c.post,
		Store:    c.tokens,
	})

	if res.Failure != flows.LoginFailureNone {
		msg := messageOr(res.Err, "Login failed")
		c.mu.Lock()
		c.state = StateAnonymous
		c.authed = false
		c.user = nil
		if c.loading > 0 {
			c.loading--
		}
		c.lastErr = msg
		c.mu.Unlock()

		c.metricInc(MetricLoginFailure)
		if res.Failure == flows.LoginFailureInvalid {
			c.metricInc(MetricValidationRejected)
		}
		c.logger.Info("goauthclient: login failed",
			slog.String("username", req.Username),
			slog.String("password", redact.Password()),
			slog.String("err", msg),
		)
		c.emit(ctx, EventLoginFailed, false, msg, map[string]string{"username": req.Username})
		return nil, res.Err
	}

	user := res.User
	c.mu.Lock()
	if c.loading > 0 {
		c.loading--
	}
	c.mu.Unlock()
	if !c.authenticate(&user) {
		return nil, ErrClientClosed
	}

	c.metricInc(MetricLoginSuccess)
	c.logger.Info("goauthclient: logged in", slog.Int64("user_id", user.ID))
	c.emit(ctx, EventLoginSucceeded, true, "", nil)
	return &user, nil
}

// Register describes the register operation and its observable behavior.
//
// The form is validated locally before any network call. An anonymous
// controller reports StateAuthenticating while the call runs and returns to
// StateAnonymous afterwards. A successful registration never authenticates;
// the user logs in separately.
func (c *Client) Register(ctx context.Context, req RegisterRequest) (*User, error) {
	c.mu.Lock()
	anonymous := c.state == StateAnonymous
	if anonymous {
		c.state = StateAuthenticating
	}
	c.mu.Unlock()
	if anonymous {
		defer func() {
			c.mu.Lock()
			if c.state == StateAuthenticating {
				c.state = StateAnonymous
			}
			c.mu.Unlock()
		}()
	}

	var res flows.RegisterResult[User]
	err := c.track("Registration failed", func() error {
		res = flows.RunRegister[User](ctx, req, flows.RegisterDeps{
			Validate: c.validate,
			Post:     c.post,
		})
		return res.Err
	})

	switch res.Failure {
	case flows.RegisterFailureNone:
		if err != nil {
			return nil, err
		}
		c.metricInc(MetricRegisterSuccess)
		c.logger.Info("goauthclient: registered",
			slog.String("username", res.User.Username),
			slog.String("email", redact.Email(res.User.Email)),
		)
		return &res.User, nil
	case flows.RegisterFailureInvalid:
		c.metricInc(MetricValidationRejected)
	}
	c.metricInc(MetricRegisterFailure)
	return nil, err
}

// Logout describes the logout operation and its observable behavior.
//
// Logout asks the backend to revoke the refresh token, bounded by
// Session.LogoutTimeout, then always tears the session down locally and
// navigates to the login route. The returned error reports only the remote
// revocation; the local session is gone either way.
//
// The revocation request bypasses the pipeline's refresh-and-replay. When the
// access token has expired, Logout refreshes once through the shared gate and
// revokes the refresh token that is current after it, so a rotating backend
// is left with no live refresh token.
func (c *Client) Logout(ctx context.Context) error {
	if err := c.checkOpen(); err != nil {
		return err
	}

	res := flows.RunLogout(ctx, flows.LogoutDeps{
		Post: func(ctx context.Context, endpoint string, body, out any) error {
			return c.post(transport.WithoutRefresh(ctx), endpoint, body, out)
		},
		Store:   c.tokens,
		Timeout: c.cfg.Session.LogoutTimeout,
		Refresh: func(ctx context.Context) error {
			_, err := c.refreshAccess(WithoutNavigation(ctx))
			return err
		},
	})
	if res.Err != nil {
		c.logger.Warn("goauthclient: remote logout failed", slog.String("err", res.Err.Error()))
	}

	c.endSession(ctx, EventLogout, nil)
	c.metricInc(MetricLogout)
	c.navigateTo(ctx, c.cfg.Routes.Login)
	return res.Err
}

// Refresh describes the refresh operation and its observable behavior.
//
// Refresh joins the process-wide refresh gate shared with the request
// pipeline, so it never overlaps another refresh. Without a stored refresh
// token the session ends and ErrNoRefreshToken is returned. Any refresh
// failure ends the session.
func (c *Client) Refresh(ctx context.Context) (TokenPair, error) {
	if err := c.checkOpen(); err != nil {
		return TokenPair{}, err
	}
	if _, err := c.refreshAccess(ctx); err != nil {
		return TokenPair{}, err
	}
	pair, _ := c.tokens.Tokens()
	return pair, nil
}

// refreshAccess is the pipeline's RefreshFunc.
func (c *Client) refreshAccess(ctx context.Context) (string, error) {
	if err := c.checkOpen(); err != nil {
		return "", err
	}
	token, shared, err := c.gate.Do(ctx, c.runRefresh)
	if shared {
		c.metricInc(MetricRefreshShared)
	}
	return token, err
}

// runRefresh performs one refresh inside the gate. A failure ends the session
// here, once, for every waiter. A result that arrives after the session it
// was started for has been torn down is dropped without touching the current
// session.
func (c *Client) runRefresh(ctx context.Context) (string, error) {
	res := flows.RunRefresh(ctx, flows.RefreshDeps{
		Post:           c.post,
		Store:          c.tokens,
		NoRefreshToken: ErrNoRefreshToken,
		Superseded:     ErrNotAuthenticated,
	})

	if res.Failure == flows.RefreshFailureSuperseded ||
		(res.Failure != flows.RefreshFailureNone && res.Failure != flows.RefreshFailureNoToken && !c.sameSession(res.Generation)) {
		c.logger.Debug("goauthclient: refresh result discarded, session ended while in flight")
		return "", ErrNotAuthenticated
	}

	if res.Failure != flows.RefreshFailureNone {
		if res.Failure != flows.RefreshFailureNoToken {
			c.metricInc(MetricRefreshFailure)
			c.emit(ctx, EventRefreshFailed, false, messageOr(res.Err, ""), nil)
		}
		c.logger.Warn("goauthclient: refresh failed", slog.String("err", res.Err.Error()))
		c.forceLogout(ctx, res.Err)
		return "", res.Err
	}

	c.metricInc(MetricRefreshSuccess)
	c.logger.Debug("goauthclient: tokens refreshed", slog.Bool("rotated", res.Rotated))
	c.emit(ctx, EventRefreshSucceeded, true, "", nil)
	return res.Tokens.Access, nil
}

/*
====================================
BACKGROUND REFRESHER
====================================
*/

// startRefresher launches the proactive refresh loop unless one is running.
func (c *Client) startRefresher() {
	c.refMu.Lock()
	defer c.refMu.Unlock()
	if c.refCancel != nil || c.closed.Load() {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	c.refCancel = cancel
	c.bg.Add(1)
	go c.refreshLoop(ctx)
}

// stopRefresher cancels the loop without waiting; the loop may be the caller.
func (c *Client) stopRefresher() {
	c.refMu.Lock()
	cancel := c.refCancel
	c.refCancel = nil
	c.refMu.Unlock()
	if cancel != nil {
		cancel()
	}
}

func (c *Client) refreshLoop(ctx context.Context) {
	defer c.bg.Done()

	ticker := time.NewTicker(c.cfg.Session.RefreshCheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.checkExpiry(ctx)
		}
	}
}

// checkExpiry refreshes when the access token is within RefreshThreshold of
// expiring.
func (c *Client) checkExpiry(ctx context.Context) {
	if _, ok := c.tokens.RefreshToken(); !ok {
		return
	}
	if c.tokens.TimeToExpiry() >= c.cfg.Session.RefreshThreshold {
		return
	}

	c.mu.Lock()
	if c.state != StateAuthenticated || c.closed.Load() {
		c.mu.Unlock()
		return
	}
	c.state = StateRefreshing
	c.mu.Unlock()
	c.emit(ctx, EventRefreshStarted, true, "", nil)
	c.metricInc(MetricRefreshProactive)

	_, err := c.refreshAccess(WithoutNavigation(ctx))

	c.mu.Lock()
	if c.state == StateRefreshing {
		// A failed refresh has already torn the session down.
		c.state = StateAuthenticated
		if !c.authed {
			c.state = StateAnonymous
		}
	}
	c.mu.Unlock()

	if err != nil && !errors.Is(err, context.Canceled) {
		c.logger.Debug("goauthclient: proactive refresh failed", slog.String("err", err.Error()))
	}
}
