package flows

import (
	"context"
	"encoding/json"
	"errors"
	"net/url"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/MrEthical07/goAuthClient/api"
	"github.com/MrEthical07/goAuthClient/tokenstore"
)

type stubStore struct {
	pair    tokenstore.TokenPair
	setErr  error
	setCall int
	gen     uint64
}

func (s *stubStore) SetTokens(_ context.Context, pair tokenstore.TokenPair) error {
	s.setCall++
	if s.setErr != nil {
		return s.setErr
	}
	s.pair = pair
	return nil
}

func (s *stubStore) RefreshToken() (string, bool) {
	return s.pair.Refresh, s.pair.Refresh != ""
}

func (s *stubStore) RefreshLease() (string, uint64, bool) {
	return s.pair.Refresh, s.gen, s.pair.Refresh != ""
}

func (s *stubStore) SetTokensIf(ctx context.Context, gen uint64, pair tokenstore.TokenPair) error {
	if gen != s.gen {
		return tokenstore.ErrSuperseded
	}
	return s.SetTokens(ctx, pair)
}

// clear drops the stored pair and advances the generation.
func (s *stubStore) clear() {
	s.pair = tokenstore.TokenPair{}
	s.gen++
}

type stubUser struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
}

// respond returns a PostFunc that decodes payload into out and records calls.
func respond(payload string, err error, calls *[]string) PostFunc {
	return func(_ context.Context, endpoint string, _ any, out any) error {
		*calls = append(*calls, endpoint)
		if err != nil {
			return err
		}
		if out == nil {
			return nil
		}
		return json.Unmarshal([]byte(payload), out)
	}
}

func TestRunLoginStoresTokens(t *testing.T) {
	var calls []string
	store := &stubStore{}
	res := RunLogin[stubUser](context.Background(), map[string]string{"username": "alice"}, LoginDeps{
		Post:  respond(`{"user":{"id":7,"username":"alice"},"tokens":{"access":"a1","refresh":"r1"}}`, nil, &calls),
		Store: store,
	})

	require.Equal(t, LoginFailureNone, res.Failure)
	require.NoError(t, res.Err)
	require.Equal(t, "alice", res.User.Username)
	require.Equal(t, tokenstore.TokenPair{Access: "a1", Refresh: "r1"}, store.pair)
	require.Equal(t, []string{api.EndpointLogin}, calls)
}

func TestRunLoginValidationSkipsNetwork(t *testing.T) {
	var calls []string
	invalid := errors.New("invalid")
	store := &stubStore{}
	res := RunLogin[stubUser](context.Background(), struct{}{}, LoginDeps{
		Validate: func(any) error { return invalid },
		Post:     respond(`{}`, nil, &calls),
		Store:    store,
	})

	require.Equal(t, LoginFailureInvalid, res.Failure)
	require.ErrorIs(t, res.Err, invalid)
	require.Empty(t, calls)
	require.Zero(t, store.setCall)
}

func TestRunLoginRequestFailureLeavesStoreUntouched(t *testing.T) {
	var calls []string
	store := &stubStore{}
	res := RunLogin[stubUser](context.Background(), struct{}{}, LoginDeps{
		Post:  respond("", api.Classify(401, []byte(`{"detail":"No active account"}`)), &calls),
		Store: store,
	})

	require.Equal(t, LoginFailureRequest, res.Failure)
	require.ErrorIs(t, res.Err, api.ErrUnauthorized)
	require.Zero(t, store.setCall)
}

func TestRunLoginIncompleteResponse(t *testing.T) {
	var calls []string
	store := &stubStore{}
	res := RunLogin[stubUser](context.Background(), struct{}{}, LoginDeps{
		Post:  respond(`{"user":{"id":1},"tokens":{"access":"a1"}}`, nil, &calls),
		Store: store,
	})

	require.Equal(t, LoginFailureMalformed, res.Failure)
	require.ErrorIs(t, res.Err, ErrLoginResponseIncomplete)
	require.Zero(t, store.setCall)
}

func TestRunLoginStoreFailure(t *testing.T) {
	var calls []string
	storeErr := errors.New("disk full")
	res := RunLogin[stubUser](context.Background(), struct{}{}, LoginDeps{
		Post:  respond(`{"tokens":{"access":"a1","refresh":"r1"}}`, nil, &calls),
		Store: &stubStore{setErr: storeErr},
	})

	require.Equal(t, LoginFailureStore, res.Failure)
	require.ErrorIs(t, res.Err, storeErr)
}

func TestRunRefreshWithoutToken(t *testing.T) {
	var calls []string
	noToken := errors.New("no refresh token")
	res := RunRefresh(context.Background(), RefreshDeps{
		Post:           respond(`{}`, nil, &calls),
		Store:          &stubStore{},
		NoRefreshToken: noToken,
	})

	require.Equal(t, RefreshFailureNoToken, res.Failure)
	require.ErrorIs(t, res.Err, noToken)
	require.Empty(t, calls)
}

func TestRunRefreshKeepsRefreshTokenWhenNotRotated(t *testing.T) {
	var calls []string
	store := &stubStore{pair: tokenstore.TokenPair{Access: "old", Refresh: "r1"}}
	res := RunRefresh(context.Background(), RefreshDeps{
		Post:  respond(`{"access":"new"}`, nil, &calls),
		Store: store,
	})

	require.Equal(t, RefreshFailureNone, res.Failure)
	require.False(t, res.Rotated)
	require.Equal(t, tokenstore.TokenPair{Access: "new", Refresh: "r1"}, store.pair)
	require.Equal(t, []string{api.EndpointRefresh}, calls)
}

func TestRunRefreshRotates(t *testing.T) {
	var calls []string
	store := &stubStore{pair: tokenstore.TokenPair{Access: "old", Refresh: "r1"}}
	res := RunRefresh(context.Background(), RefreshDeps{
		Post:  respond(`{"access":"new","refresh":"r2"}`, nil, &calls),
		Store: store,
	})

	require.True(t, res.Rotated)
	require.Equal(t, "r2", store.pair.Refresh)
}

func TestRunRefreshMissingAccess(t *testing.T) {
	var calls []string
	store := &stubStore{pair: tokenstore.TokenPair{Access: "old", Refresh: "r1"}}
	res := RunRefresh(context.Background(), RefreshDeps{
		Post:  respond(`{"refresh":"r2"}`, nil, &calls),
		Store: store,
	})

	require.Equal(t, RefreshFailureMalformed, res.Failure)
	require.Equal(t, "old", store.pair.Access)
}

func TestRunRefreshDiscardsPairAfterClear(t *testing.T) {
	store := &stubStore{pair: tokenstore.TokenPair{Access: "old", Refresh: "r1"}}
	gone := errors.New("session ended")
	res := RunRefresh(context.Background(), RefreshDeps{
		Post: func(_ context.Context, _ string, _ any, out any) error {
			store.clear()
			return json.Unmarshal([]byte(`{"access":"new","refresh":"r2"}`), out)
		},
		Store:      store,
		Superseded: gone,
	})

	require.Equal(t, RefreshFailureSuperseded, res.Failure)
	require.ErrorIs(t, res.Err, gone)
	require.Zero(t, store.setCall)
	require.Equal(t, tokenstore.TokenPair{}, store.pair)
}

func TestRunLogoutSurvivesCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var sawErr error
	res := RunLogout(ctx, LogoutDeps{
		Post: func(ctx context.Context, endpoint string, _ any, _ any) error {
			sawErr = ctx.Err()
			return nil
		},
		Store: &stubStore{pair: tokenstore.TokenPair{Access: "a", Refresh: "r"}},
	})

	require.True(t, res.Attempted)
	require.NoError(t, res.Err)
	require.NoError(t, sawErr)
}

func TestRunLogoutWithoutRefreshTokenSkipsNetwork(t *testing.T) {
	var calls []string
	res := RunLogout(context.Background(), LogoutDeps{
		Post:  respond("", nil, &calls),
		Store: &stubStore{},
	})

	require.False(t, res.Attempted)
	require.Empty(t, calls)
}

func TestRunLogoutAfterUnauthorizedRevokesRotatedToken(t *testing.T) {
	store := &stubStore{pair: tokenstore.TokenPair{Access: "expired", Refresh: "r1"}}
	var sent []string
	res := RunLogout(context.Background(), LogoutDeps{
		Post: func(_ context.Context, _ string, body any, _ any) error {
			sent = append(sent, body.(refreshRequest).Refresh)
			if store.pair.Access == "expired" {
				return &api.Error{Kind: api.KindUnauthorized, Status: 401}
			}
			return nil
		},
		Store: store,
		Refresh: func(context.Context) error {
			store.pair = tokenstore.TokenPair{Access: "fresh", Refresh: "r2"}
			return nil
		},
	})

	require.True(t, res.Retried)
	require.NoError(t, res.Err)
	require.Equal(t, []string{"r1", "r2"}, sent)
}

func TestRunLogoutKeepsFirstErrorWhenRefreshFails(t *testing.T) {
	store := &stubStore{pair: tokenstore.TokenPair{Access: "expired", Refresh: "r1"}}
	var calls []string
	res := RunLogout(context.Background(), LogoutDeps{
		Post:  respond("", &api.Error{Kind: api.KindUnauthorized, Status: 401}, &calls),
		Store: store,
		Refresh: func(context.Context) error {
			return errors.New("refresh rejected")
		},
	})

	require.False(t, res.Retried)
	require.ErrorIs(t, res.Err, api.ErrUnauthorized)
	require.Equal(t, []string{api.EndpointLogout}, calls)
}

func TestRunLoadProfileUnauthorized(t *testing.T) {
	res := RunLoadProfile[stubUser](context.Background(), ProfileDeps{
		Get: func(context.Context, string, url.Values, any) error {
			return api.Classify(401, nil)
		},
	})
	require.Equal(t, ProfileFailureUnauthorized, res.Failure)
}

func TestRunUpdateProfileUsesMultipartWhenFormAttached(t *testing.T) {
	var method string
	res := RunUpdateProfile[stubUser](context.Background(), ProfileUpdate{
		Form: &api.Form{Fields: map[string]string{"bio": "hi"}},
	}, ProfileDeps{
		Patch: func(context.Context, string, any, any) error {
			t.Fatal("json patch used for multipart update")
			return nil
		},
		Upload: func(_ context.Context, m, _ string, _ api.Form, out any) error {
			method = m
			return json.Unmarshal([]byte(`{"user":{"id":3,"username":"bob"},"message":"ok"}`), out)
		},
	})

	require.Equal(t, ProfileFailureNone, res.Failure)
	require.Equal(t, "PATCH", method)
	require.Equal(t, "bob", res.User.Username)
	require.Equal(t, "ok", res.Message)
}

func TestRunRegisterValidatesFirst(t *testing.T) {
	var calls []string
	invalid := api.NewValidationError(map[string][]string{"password2": {"Passwords do not match."}})
	res := RunRegister[stubUser](context.Background(), struct{}{}, RegisterDeps{
		Validate: func(any) error { return invalid },
		Post:     respond(`{}`, nil, &calls),
	})

	require.Equal(t, RegisterFailureInvalid, res.Failure)
	require.ErrorIs(t, res.Err, api.ErrValidation)
	require.Empty(t, calls)
}
