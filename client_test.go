package goAuthClient

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrEthical07/goAuthClient/api"
	"github.com/MrEthical07/goAuthClient/guard"
	"github.com/MrEthical07/goAuthClient/internal/fakeapi"
	"github.com/MrEthical07/goAuthClient/tokenstore"
)

var _ guard.Source = (*Client)(nil)

type recordingNavigator struct {
	mu      sync.Mutex
	targets []string
}

func (n *recordingNavigator) Navigate(_ context.Context, target string) {
	n.mu.Lock()
	n.targets = append(n.targets, target)
	n.mu.Unlock()
}

func (n *recordingNavigator) Targets() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.targets...)
}

func (n *recordingNavigator) Count(target string) int {
	count := 0
	for _, t := range n.Targets() {
		if t == target {
			count++
		}
	}
	return count
}

type harness struct {
	client *Client
	fake   *fakeapi.Server
	srv    *httptest.Server
	nav    *recordingNavigator
}

type harnessOption func(*harnessSetup)

type harnessSetup struct {
	fake    fakeapi.Options
	cfg     func(*Config)
	backend tokenstore.Backend
	redis   redis.UniversalClient
	sinks   []EventSink
	held    *heldResponse
}

func withFake(opts fakeapi.Options) harnessOption {
	return func(s *harnessSetup) { s.fake = opts }
}

func withConfig(fn func(*Config)) harnessOption {
	return func(s *harnessSetup) { s.cfg = fn }
}

func withBackend(b tokenstore.Backend) harnessOption {
	return func(s *harnessSetup) { s.backend = b }
}

func withRedisClient(rdb redis.UniversalClient) harnessOption {
	return func(s *harnessSetup) { s.redis = rdb }
}

func withSink(sink EventSink) harnessOption {
	return func(s *harnessSetup) { s.sinks = append(s.sinks, sink) }
}

// withHeld routes the fake through held so one response can be withheld.
func withHeld(held *heldResponse) harnessOption {
	return func(s *harnessSetup) { s.held = held }
}

func newHarness(t *testing.T, opts ...harnessOption) *harness {
	t.Helper()

	var setup harnessSetup
	for _, opt := range opts {
		opt(&setup)
	}

	fake := fakeapi.New(setup.fake)
	var handler http.Handler = fake
	if setup.held != nil {
		handler = setup.held.wrap(fake)
	}
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	if setup.held != nil {
		t.Cleanup(setup.held.Release)
	}

	h := &harness{fake: fake, srv: srv}
	h.client = h.build(t, setup)
	return h
}

// build creates another Client against the same fake backend.
func (h *harness) build(t *testing.T, setup harnessSetup) *Client {
	t.Helper()

	cfg := DefaultConfig()
	cfg.API.BaseURL = h.srv.URL + h.fake.BasePath() + "/"
	cfg.Session.LoadProfileOnStart = true
	if setup.cfg != nil {
		setup.cfg(&cfg)
	}

	nav := &recordingNavigator{}
	if h.nav == nil {
		h.nav = nav
	} else {
		nav = h.nav
	}

	b := New().
		WithConfig(cfg).
		WithHTTPClient(h.srv.Client()).
		WithLogger(slog.New(slog.DiscardHandler)).
		WithNavigator(nav)
	if setup.backend != nil {
		b = b.WithTokenBackend(setup.backend)
	}
	if setup.redis != nil {
		b = b.WithRedis(setup.redis)
	}
	for _, s := range setup.sinks {
		b = b.WithEventSink(s)
	}

	c, err := b.Build()
	require.NoError(t, err)
	t.Cleanup(c.Close)
	return c
}

func (h *harness) login(t *testing.T, username, password string) *User {
	t.Helper()
	u, err := h.client.Login(context.Background(), LoginRequest{Username: username, Password: password})
	require.NoError(t, err)
	return u
}

// expireAccess swaps the stored access token for an expired one, keeping
// the refresh token.
func (h *harness) expireAccess(t *testing.T, username string) {
	t.Helper()
	pair, ok := h.client.Tokens()
	require.True(t, ok)
	stale, err := h.fake.IssueAccess(username, -time.Minute)
	require.NoError(t, err)
	require.NoError(t, h.client.tokens.SetTokens(context.Background(), TokenPair{Access: stale, Refresh: pair.Refresh}))
}

type protectedBody struct {
	Username string `json:"username"`
}

/*
====================================
LOGIN / REGISTER
====================================
*/

func TestLoginAuthenticatesSession(t *testing.T) {
	h := newHarness(t)

	u := h.login(t, "alice", "Secret123")
	assert.Equal(t, "alice", u.Username)
	assert.Equal(t, "Alice Liddell", u.FullName())

	s := h.client.Session()
	assert.Equal(t, StateAuthenticated, s.State)
	assert.True(t, s.Authenticated)
	assert.False(t, s.Loading)
	assert.Empty(t, s.LastError)
	require.NotNil(t, s.User)
	assert.Equal(t, u.ID, s.User.ID)

	cl, ok := h.client.Claims()
	require.True(t, ok)
	assert.Equal(t, "alice", cl.Username)
	assert.True(t, h.client.HasPermission("users.view_user"))
	assert.True(t, h.client.HasAllPermissions("users.view_user", "auth.change_own_profile"))
	assert.False(t, h.client.HasAnyPermission("users.delete_user"))
	assert.False(t, h.client.IsStaff())

	pair, ok := h.client.Tokens()
	require.True(t, ok)
	assert.NotEmpty(t, pair.Access)
	assert.NotEmpty(t, pair.Refresh)
	assert.Equal(t, uint64(1), h.client.MetricsSnapshot().Counters[MetricLoginSuccess])
}

func TestFailedLoginEndsPriorSessionAndRecordsMessage(t *testing.T) {
	h := newHarness(t)
	h.login(t, "alice", "Secret123")

	_, err := h.client.Login(context.Background(), LoginRequest{Username: "alice", Password: "wrong-pass1"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnauthorized))

	s := h.client.Session()
	assert.Equal(t, StateAnonymous, s.State)
	assert.False(t, s.Authenticated)
	assert.False(t, s.Loading)
	assert.Nil(t, s.User)
	assert.Equal(t, "No active account found with the given credentials", s.LastError)

	_, ok := h.client.Tokens()
	assert.False(t, ok)

	h.client.ClearError()
	assert.Empty(t, h.client.Session().LastError)
}

func TestLoginRequiresCredentialsLocally(t *testing.T) {
	h := newHarness(t)

	_, err := h.client.Login(context.Background(), LoginRequest{Username: "alice"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrValidation))
	assert.Equal(t, 0, h.fake.Hits("POST /auth/login/"))
	assert.Equal(t, uint64(1), h.client.MetricsSnapshot().Counters[MetricValidationRejected])
}

func TestRegisterPasswordMismatchNeverReachesBackend(t *testing.T) {
	h := newHarness(t)

	_, err := h.client.Register(context.Background(), RegisterRequest{
		Username:  "carol",
		Email:     "carol@example.com",
		Password:  "Secret123",
		Password2: "Secret124",
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrValidation))

	var apiErr *api.Error
	require.True(t, errors.As(err, &apiErr))
	assert.NotEmpty(t, apiErr.FieldErrors("password2"))
	assert.Equal(t, 0, h.fake.Hits("POST /auth/register/"))
	assert.NotEmpty(t, h.client.Session().LastError)
}

func TestRegisterThenVerifyEmailDoesNotAuthenticate(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	u, err := h.client.Register(ctx, RegisterRequest{
		Username:  "carol",
		Email:     "carol@example.com",
		Password:  "Secret123",
		Password2: "Secret123",
		FirstName: "Carol",
	})
	require.NoError(t, err)
	assert.Equal(t, "carol", u.Username)
	assert.False(t, h.client.IsAuthenticated())
	assert.Equal(t, StateAnonymous, h.client.Session().State)

	uid, token, ok := h.fake.VerificationToken("carol@example.com")
	require.True(t, ok)
	detail, err := h.client.VerifyEmail(ctx, uid, token)
	require.NoError(t, err)
	assert.Equal(t, "Email verified successfully.", detail)

	_, err = h.client.VerifyEmail(ctx, uid, token)
	require.Error(t, err)
	assert.Equal(t, "Invalid verification link.", ErrorMessage(err))
}

func TestRegisterDuplicateUsernameFlattensFieldErrors(t *testing.T) {
	h := newHarness(t)

	_, err := h.client.Register(context.Background(), RegisterRequest{
		Username:  "alice",
		Email:     "alice2@example.com",
		Password:  "Secret123",
		Password2: "Secret123",
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrValidation))
	assert.Equal(t, "username: A user with that username already exists.", h.client.Session().LastError)
}

/*
====================================
REFRESH
====================================
*/

func TestConcurrentUnauthorizedRequestsShareOneRefresh(t *testing.T) {
	h := newHarness(t, withFake(fakeapi.Options{RefreshDelay: 100 * time.Millisecond}))
	h.login(t, "alice", "Secret123")
	h.expireAccess(t, "alice")

	const callers = 8
	var wg sync.WaitGroup
	errs := make([]error, callers)
	names := make([]string, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			var out protectedBody
			errs[i] = h.client.get(context.Background(), "debug/protected/", nil, &out)
			names[i] = out.Username
		}(i)
	}
	wg.Wait()

	for i := 0; i < callers; i++ {
		require.NoError(t, errs[i], "caller %d", i)
		assert.Equal(t, "alice", names[i])
	}
	assert.Equal(t, 1, h.fake.RefreshCalls())
	assert.Equal(t, uint64(1), h.client.RefreshesStarted())
	assert.True(t, h.client.IsAuthenticated())

	snap := h.client.MetricsSnapshot()
	assert.Equal(t, uint64(1), snap.Counters[MetricRefreshSuccess])
	assert.GreaterOrEqual(t, snap.Counters[MetricRetry], uint64(1))
}

func TestRefreshFailureLogsOutOnce(t *testing.T) {
	h := newHarness(t, withFake(fakeapi.Options{RefreshDelay: 50 * time.Millisecond}))
	h.login(t, "alice", "Secret123")
	h.expireAccess(t, "alice")
	h.fake.SetFailRefresh(true)

	const callers = 6
	var wg sync.WaitGroup
	errs := make([]error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = h.client.get(context.Background(), "debug/protected/", nil, nil)
		}(i)
	}
	wg.Wait()

	for i, err := range errs {
		require.Error(t, err, "caller %d", i)
		assert.True(t, errors.Is(err, ErrRefreshFailed) || errors.Is(err, ErrUnauthorized), "caller %d: %v", i, err)
	}

	assert.Equal(t, 1, h.fake.RefreshCalls())
	assert.Equal(t, 1, h.nav.Count("/auth/login"))

	s := h.client.Session()
	assert.Equal(t, StateAnonymous, s.State)
	assert.False(t, s.Authenticated)
	_, ok := h.client.Tokens()
	assert.False(t, ok)
	assert.Equal(t, uint64(1), h.client.MetricsSnapshot().Counters[MetricForcedLogout])
}

func TestRefreshWithoutSessionReturnsNoRefreshToken(t *testing.T) {
	h := newHarness(t)

	_, err := h.client.Refresh(context.Background())
	require.ErrorIs(t, err, ErrNoRefreshToken)
	assert.Equal(t, 0, h.fake.RefreshCalls())
	assert.Empty(t, h.nav.Targets())
}

func TestRefreshKeepsRefreshTokenWhenNotRotated(t *testing.T) {
	h := newHarness(t)
	h.login(t, "alice", "Secret123")
	before, _ := h.client.Tokens()

	pair, err := h.client.Refresh(context.Background())
	require.NoError(t, err)
	assert.NotEqual(t, before.Access, pair.Access)
	assert.Equal(t, before.Refresh, pair.Refresh)
}

func TestRefreshStoresRotatedPair(t *testing.T) {
	h := newHarness(t, withFake(fakeapi.Options{RotateRefresh: true}))
	h.login(t, "alice", "Secret123")
	before, _ := h.client.Tokens()

	pair, err := h.client.Refresh(context.Background())
	require.NoError(t, err)
	assert.NotEqual(t, before.Refresh, pair.Refresh)

	stored, ok := h.client.Tokens()
	require.True(t, ok)
	assert.Equal(t, pair, stored)
}

func TestBackgroundRefresherRenewsNearExpiry(t *testing.T) {
	h := newHarness(t,
		withFake(fakeapi.Options{AccessTTL: 2 * time.Minute}),
		withConfig(func(c *Config) {
			c.Session.RefreshCheckInterval = 20 * time.Millisecond
		}),
	)
	h.login(t, "alice", "Secret123")
	before, _ := h.client.Tokens()

	require.Eventually(t, func() bool {
		return h.fake.RefreshCalls() >= 1
	}, 2*time.Second, 10*time.Millisecond)
	require.Eventually(t, func() bool {
		pair, ok := h.client.Tokens()
		return ok && pair.Access != before.Access
	}, 2*time.Second, 10*time.Millisecond)

	assert.GreaterOrEqual(t, h.client.MetricsSnapshot().Counters[MetricRefreshProactive], uint64(1))
	assert.True(t, h.client.IsAuthenticated())
}

func TestBackgroundRefresherIdleWhenFarFromExpiry(t *testing.T) {
	h := newHarness(t, withConfig(func(c *Config) {
		c.Session.RefreshCheckInterval = 10 * time.Millisecond
		c.Session.RefreshThreshold = time.Minute
	}))
	h.login(t, "alice", "Secret123")

	time.Sleep(80 * time.Millisecond)
	assert.Equal(t, 0, h.fake.RefreshCalls())
}

/*
====================================
LOGOUT / START
====================================
*/

func TestLogoutClearsTokensAndNavigatesToLogin(t *testing.T) {
	h := newHarness(t)
	h.login(t, "alice", "Secret123")

	require.NoError(t, h.client.Logout(context.Background()))

	assert.Equal(t, 1, h.fake.Hits("POST /auth/logout/"))
	_, ok := h.client.Tokens()
	assert.False(t, ok)
	s := h.client.Session()
	assert.Equal(t, StateAnonymous, s.State)
	assert.Nil(t, s.User)
	assert.Equal(t, []string{"/auth/login"}, h.nav.Targets())

	_, err := h.client.LoadProfile(context.Background())
	assert.ErrorIs(t, err, ErrNotAuthenticated)
}

func TestLogoutWithoutSessionSkipsBackend(t *testing.T) {
	h := newHarness(t)

	require.NoError(t, h.client.Logout(context.Background()))
	assert.Equal(t, 0, h.fake.Hits("POST /auth/logout/"))
}

func TestStartRestoresPersistedSession(t *testing.T) {
	backend := tokenstore.NewMemoryBackend()
	h := newHarness(t, withBackend(backend))
	h.login(t, "alice", "Secret123")
	h.client.Close()

	sink := NewChannelSink(16)
	second := h.build(t, harnessSetup{backend: backend, sinks: []EventSink{sink}})

	s, err := second.Start(context.Background())
	require.NoError(t, err)
	assert.True(t, s.Authenticated)
	assert.Equal(t, StateAuthenticated, s.State)
	require.NotNil(t, s.User)
	assert.Equal(t, "alice", s.User.Username)
	assert.Equal(t, 0, h.fake.RefreshCalls())

	second.Close()
	var types []EventType
	for len(sink.Events()) > 0 {
		types = append(types, (<-sink.Events()).Type)
	}
	assert.Equal(t, []EventType{EventSessionRestored, EventProfileLoaded}, types)
}

func TestStartRenewsExpiredAccessToken(t *testing.T) {
	backend := tokenstore.NewMemoryBackend()
	h := newHarness(t, withBackend(backend))
	h.login(t, "alice", "Secret123")
	h.expireAccess(t, "alice")
	h.client.Close()

	second := h.build(t, harnessSetup{backend: backend})
	s, err := second.Start(context.Background())
	require.NoError(t, err)
	assert.True(t, s.Authenticated)
	assert.Equal(t, 1, h.fake.RefreshCalls())
}

func TestStartWithoutTokensStaysAnonymous(t *testing.T) {
	h := newHarness(t)

	s, err := h.client.Start(context.Background())
	require.NoError(t, err)
	assert.False(t, s.Authenticated)
	assert.Equal(t, StateAnonymous, s.State)
	assert.Equal(t, 0, h.fake.Hits("GET /auth/profile/"))
}

func TestRedisBackedSessionSurvivesRestart(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()

	h := newHarness(t, withRedisClient(rdb))
	h.login(t, "alice", "Secret123")
	assert.True(t, mr.Exists("gac:access_token"))
	h.client.Close()

	second := h.build(t, harnessSetup{redis: rdb})
	s, err := second.Start(context.Background())
	require.NoError(t, err)
	assert.True(t, s.Authenticated)

	require.NoError(t, second.Logout(context.Background()))
	assert.False(t, mr.Exists("gac:access_token"))
	assert.False(t, mr.Exists("gac:refresh_token"))
}

/*
====================================
NAVIGATION / EVENTS
====================================
*/

func TestErrorStatusesNavigateToErrorPage(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	err := h.client.get(ctx, "debug/status/500/", nil, nil)
	require.ErrorIs(t, err, ErrServer)
	err = h.client.get(ctx, "debug/status/404/", nil, nil)
	require.ErrorIs(t, err, ErrNotFound)
	err = h.client.get(WithoutNavigation(ctx), "debug/status/503/", nil, nil)
	require.ErrorIs(t, err, ErrServer)
	err = h.client.get(ctx, "debug/status/409/", nil, nil)
	require.ErrorIs(t, err, ErrValidation)

	assert.Equal(t, []string{"/error/500", "/error/404"}, h.nav.Targets())

	snap := h.client.MetricsSnapshot()
	assert.Equal(t, uint64(2), snap.Counters[MetricServerError])
	assert.Equal(t, uint64(1), snap.Counters[MetricNotFound])
}

func TestSessionEventsDeliveredInOrder(t *testing.T) {
	sink := NewChannelSink(32)
	h := newHarness(t, withSink(sink))
	h.login(t, "alice", "Secret123")
	require.NoError(t, h.client.Logout(context.Background()))
	h.client.Close()

	var events []Event
	for len(sink.Events()) > 0 {
		events = append(events, <-sink.Events())
	}
	require.Len(t, events, 3)
	assert.Equal(t, EventLoginStarted, events[0].Type)
	assert.Equal(t, EventLoginSucceeded, events[1].Type)
	assert.True(t, events[1].Session.Authenticated)
	assert.Equal(t, EventLogout, events[2].Type)
	assert.False(t, events[2].Session.Authenticated)
	assert.Equal(t, uint64(0), h.client.EventsDropped())
}

/*
====================================
PROFILE / ACCOUNT
====================================
*/

func TestUpdateProfileWithAvatarUsesMultipart(t *testing.T) {
	h := newHarness(t)
	h.login(t, "alice", "Secret123")

	bio := "Curiouser and curiouser"
	u, err := h.client.UpdateProfile(context.Background(), UpdateProfileRequest{
		Bio: &bio,
		Avatar: &api.File{
			Name:        "alice.png",
			ContentType: "image/png",
			Data:        []byte{0x89, 'P', 'N', 'G'},
		},
	})
	require.NoError(t, err)
	require.NotNil(t, u.Avatar)
	assert.Equal(t, "/media/avatars/alice.png", *u.Avatar)
	require.NotNil(t, u.Bio)
	assert.Equal(t, bio, *u.Bio)

	current, ok := h.client.User()
	require.True(t, ok)
	require.NotNil(t, current.Avatar)
	assert.Equal(t, *u.Avatar, *current.Avatar)
}

func TestUpdateProfileJSONRejectsBadEmailLocally(t *testing.T) {
	h := newHarness(t)
	h.login(t, "alice", "Secret123")

	bad := "not-an-email"
	_, err := h.client.UpdateProfile(context.Background(), UpdateProfileRequest{Email: &bad})
	require.ErrorIs(t, err, ErrValidation)
	assert.Equal(t, 0, h.fake.Hits("PATCH /auth/profile/"))

	first := "Alicia"
	u, err := h.client.UpdateProfile(context.Background(), UpdateProfileRequest{FirstName: &first})
	require.NoError(t, err)
	assert.Equal(t, "Alicia", u.FirstName)
}

func TestDeleteAccountEndsSession(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.login(t, "alice", "Secret123")

	err := h.client.DeleteAccount(ctx, "wrong-pass1")
	require.ErrorIs(t, err, ErrValidation)
	assert.True(t, h.client.IsAuthenticated())

	require.NoError(t, h.client.DeleteAccount(ctx, "Secret123"))
	assert.False(t, h.client.IsAuthenticated())
	assert.Equal(t, []string{"/auth/login"}, h.nav.Targets())
	assert.Equal(t, uint64(1), h.client.MetricsSnapshot().Counters[MetricAccountDeleted])

	_, err = h.client.Login(ctx, LoginRequest{Username: "alice", Password: "Secret123"})
	require.ErrorIs(t, err, ErrUnauthorized)
}

func TestChangePasswordKeepsSession(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.login(t, "alice", "Secret123")

	detail, err := h.client.ChangePassword(ctx, ChangePasswordRequest{
		OldPassword:     "Secret123",
		NewPassword:     "Changed456",
		ConfirmPassword: "Changed456",
	})
	require.NoError(t, err)
	assert.Equal(t, "Password updated successfully.", detail)
	assert.True(t, h.client.IsAuthenticated())

	h.login(t, "alice", "Changed456")
}

func TestPasswordResetFlow(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	detail, err := h.client.RequestPasswordReset(ctx, "alice@example.com")
	require.NoError(t, err)
	assert.Equal(t, "Password reset e-mail has been sent.", detail)

	uid, token, ok := h.fake.ResetToken("alice@example.com")
	require.True(t, ok)

	_, err = h.client.ConfirmPasswordReset(ctx, PasswordResetConfirm{
		UID:             uid,
		Token:           token,
		NewPassword:     "Reset7890",
		ConfirmPassword: "Reset789",
	})
	require.ErrorIs(t, err, ErrValidation)

	_, err = h.client.ConfirmPasswordReset(ctx, PasswordResetConfirm{
		UID:             uid,
		Token:           token,
		NewPassword:     "Reset7890",
		ConfirmPassword: "Reset7890",
	})
	require.NoError(t, err)

	h.login(t, "alice", "Reset7890")
}

/*
====================================
ADMIN
====================================
*/

func TestAdminListAndDeactivate(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.login(t, "admin", "Admin1234")
	assert.True(t, h.client.IsStaff())
	assert.True(t, h.client.IsSuperuser())

	staff := true
	page, err := h.client.ListUsers(ctx, UserListFilters{IsStaff: &staff, Ordering: "username"})
	require.NoError(t, err)
	assert.Equal(t, 2, page.Count)
	require.Len(t, page.Results, 2)
	assert.Equal(t, "admin", page.Results[0].Username)
	assert.Equal(t, "bob", page.Results[1].Username)

	alice, err := h.client.GetUser(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "alice", alice.Username)

	u, err := h.client.DeactivateUser(ctx, alice.ID)
	require.NoError(t, err)
	assert.False(t, u.IsActive)

	_, err = h.client.GetUser(ctx, 999)
	require.ErrorIs(t, err, ErrNotFound)

	_, err = h.client.Login(ctx, LoginRequest{Username: "alice", Password: "Secret123"})
	require.ErrorIs(t, err, ErrUnauthorized)
}

func TestNonStaffForbiddenFromUserAdmin(t *testing.T) {
	h := newHarness(t)
	h.login(t, "alice", "Secret123")

	_, err := h.client.ListUsers(context.Background(), UserListFilters{})
	require.ErrorIs(t, err, ErrForbidden)
	assert.Equal(t, []string{"/error/403"}, h.nav.Targets())
	assert.True(t, h.client.IsAuthenticated())
}

/*
====================================
LIFECYCLE
====================================
*/

func TestClosedClientRejectsOperations(t *testing.T) {
	h := newHarness(t)
	h.login(t, "alice", "Secret123")
	h.client.Close()
	h.client.Close()

	_, err := h.client.Login(context.Background(), LoginRequest{Username: "alice", Password: "Secret123"})
	assert.ErrorIs(t, err, ErrClientClosed)
	_, err = h.client.Refresh(context.Background())
	assert.ErrorIs(t, err, ErrClientClosed)
	assert.ErrorIs(t, h.client.Logout(context.Background()), ErrClientClosed)

	// Tokens stay in the store for the next process.
	_, ok := h.client.Tokens()
	assert.True(t, ok)
}

func TestOperationsRequireSession(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	_, err := h.client.LoadProfile(ctx)
	assert.ErrorIs(t, err, ErrNotAuthenticated)
	_, err = h.client.ListUsers(ctx, UserListFilters{})
	assert.ErrorIs(t, err, ErrNotAuthenticated)
	assert.ErrorIs(t, h.client.DeleteAccount(ctx, "x"), ErrNotAuthenticated)
}

func TestGuardsFollowSession(t *testing.T) {
	h := newHarness(t)
	routes := guard.Routes{Login: h.client.cfg.Routes.Login, Home: h.client.cfg.Routes.Home}

	d := guard.Auth(h.client, "/profile", routes)
	assert.False(t, d.Allowed)
	assert.Equal(t, "/auth/login?returnUrl=%2Fprofile", d.Redirect)

	h.login(t, "alice", "Secret123")
	assert.True(t, guard.Auth(h.client, "/profile", routes).Allowed)
	assert.Equal(t, guard.Decision{Redirect: "/"}, guard.Admin(h.client, "/admin", routes))

	h.login(t, "bob", "Staff1234")
	assert.True(t, guard.Admin(h.client, "/admin", routes).Allowed)

	require.NoError(t, h.client.Logout(context.Background()))
	assert.False(t, guard.Admin(h.client, "/admin", routes).Allowed)
}
