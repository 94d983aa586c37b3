package transport

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/MrEthical07/goAuthClient/internal/logctx"
)

// DefaultBootstrapPaths are endpoints that establish or renew a session.
// They are never decorated with a bearer token and never trigger refresh.
var DefaultBootstrapPaths = []string{
	"auth/login/",
	"auth/refresh/",
	"auth/register/",
}

// DefaultPublicPaths are unauthenticated endpoints forwarded untouched.
var DefaultPublicPaths = []string{
	"auth/password/reset/",
	"auth/password/reset/confirm/",
}

// TokenSource exposes the current access token.
type TokenSource interface {
	AccessToken() (string, bool)
}

// Navigator receives navigation side effects such as error pages.
type Navigator interface {
	Navigate(ctx context.Context, target string)
}

// NavigatorFunc adapts a function to Navigator.
type NavigatorFunc func(ctx context.Context, target string)

func (f NavigatorFunc) Navigate(ctx context.Context, target string) {
	f(ctx, target)
}

// Hooks receive pipeline observations. Every field is optional.
type Hooks struct {
	OnUnauthorized func()
	OnRetry        func()
	OnStatus       func(status int)
	OnNetworkError func(err error)
}

// PipelineConfig configures a Pipeline.
type PipelineConfig struct {
	Base           http.RoundTripper
	Tokens         TokenSource
	Refresh        RefreshFunc
	Navigator      Navigator
	BootstrapPaths []string
	PublicPaths    []string
	ErrorRoute     func(status int) string
	Hooks          Hooks
	Logger         *slog.Logger
}

// Pipeline is the authenticated request RoundTripper.
type Pipeline struct {
	base       http.RoundTripper
	tokens     TokenSource
	refresh    RefreshFunc
	navigator  Navigator
	bootstrap  []string
	public     []string
	errorRoute func(int) string
	hooks      Hooks
	logger     *slog.Logger
}

// NewPipeline builds a Pipeline. Refresh must already be coordinated through
// a RefreshGate; the pipeline calls it once per unrecovered 401.
func NewPipeline(cfg PipelineConfig) *Pipeline {
	p := &Pipeline{
		base:       cfg.Base,
		tokens:     cfg.Tokens,
		refresh:    cfg.Refresh,
		navigator:  cfg.Navigator,
		bootstrap:  cfg.BootstrapPaths,
		public:     cfg.PublicPaths,
		errorRoute: cfg.ErrorRoute,
		hooks:      cfg.Hooks,
		logger:     cfg.Logger,
	}
	if p.base == nil {
		p.base = http.DefaultTransport
	}
	if p.bootstrap == nil {
		p.bootstrap = DefaultBootstrapPaths
	}
	if p.public == nil {
		p.public = DefaultPublicPaths
	}
	if p.errorRoute == nil {
		p.errorRoute = DefaultErrorRoute
	}
	return p
}

// DefaultErrorRoute maps a status to "/error/<status>".
func DefaultErrorRoute(status int) string {
	return fmt.Sprintf("/error/%d", status)
}

// RoundTrip implements http.RoundTripper.
func (p *Pipeline) RoundTrip(req *http.Request) (*http.Response, error) {
	if p.passThrough(req.URL.Path) {
		resp, err := p.base.RoundTrip(req)
		p.observe(req.Context(), resp, err)
		return resp, err
	}

	token, hasToken := "", false
	if p.tokens != nil {
		token, hasToken = p.tokens.AccessToken()
	}
	if !hasToken {
		resp, err := p.base.RoundTrip(req)
		p.observe(req.Context(), resp, err)
		return resp, err
	}

	req, err := replayable(req)
	if err != nil {
		return nil, err
	}

	resp, err := p.base.RoundTrip(withBearer(req, req.Body, token))
	if err != nil {
		p.observe(req.Context(), nil, err)
		return nil, err
	}
	if resp.StatusCode != http.StatusUnauthorized || p.refresh == nil || refreshSuppressed(req.Context()) {
		p.observe(req.Context(), resp, nil)
		return resp, nil
	}

	if p.hooks.OnUnauthorized != nil {
		p.hooks.OnUnauthorized()
	}
	drain(resp)

	ctx := req.Context()
	log := logctx.From(ctx, p.logger)
	fresh, err := p.recoverToken(ctx, token)
	if err != nil {
		log.Warn("transport: 401 not recovered", slog.String("err", err.Error()))
		return nil, &RefreshError{Err: err}
	}

	body, err := rewind(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBodyNotReplayable, err)
	}
	if p.hooks.OnRetry != nil {
		p.hooks.OnRetry()
	}
	log.Debug("transport: retrying after refresh")

	resp, err = p.base.RoundTrip(withBearer(req, body, fresh))
	p.observe(ctx, resp, err)
	return resp, err
}

// recoverToken returns a usable access token after a 401 on stale. When the
// store already holds a different token, another caller has refreshed since
// stale was attached and no new refresh is needed.
func (p *Pipeline) recoverToken(ctx context.Context, stale string) (string, error) {
	if p.tokens != nil {
		if current, ok := p.tokens.AccessToken(); ok && current != stale {
			return current, nil
		}
	}
	return p.refresh(ctx)
}

func (p *Pipeline) passThrough(path string) bool {
	for _, prefix := range p.bootstrap {
		if strings.Contains(path, prefix) {
			return true
		}
	}
	for _, prefix := range p.public {
		if strings.Contains(path, prefix) {
			return true
		}
	}
	return false
}

func (p *Pipeline) observe(ctx context.Context, resp *http.Response, err error) {
	if err != nil {
		if p.hooks.OnNetworkError != nil {
			p.hooks.OnNetworkError(err)
		}
		return
	}
	if resp == nil {
		return
	}
	if p.hooks.OnStatus != nil {
		p.hooks.OnStatus(resp.StatusCode)
	}
	if p.navigator == nil {
		return
	}
	switch code := resp.StatusCode; {
	case code == http.StatusForbidden, code == http.StatusNotFound, code >= 500:
		p.navigator.Navigate(ctx, p.errorRoute(code))
	}
}

// replayable guarantees req.GetBody is set when req has a body, buffering
// the body if necessary.
func replayable(req *http.Request) (*http.Request, error) {
	if req.Body == nil || req.Body == http.NoBody || req.GetBody != nil {
		return req, nil
	}

	data, err := io.ReadAll(req.Body)
	req.Body.Close()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBodyNotReplayable, err)
	}

	out := req.Clone(req.Context())
	out.Body = io.NopCloser(bytes.NewReader(data))
	out.GetBody = func() (io.ReadCloser, error) {
		return io.NopCloser(bytes.NewReader(data)), nil
	}
	out.ContentLength = int64(len(data))
	return out, nil
}

// rewind returns a fresh copy of the request body for a replay.
func rewind(req *http.Request) (io.ReadCloser, error) {
	if req.GetBody == nil {
		return req.Body, nil
	}
	return req.GetBody()
}

func withBearer(req *http.Request, body io.ReadCloser, token string) *http.Request {
	out := req.Clone(req.Context())
	out.Body = body
	out.Header.Set("Authorization", "Bearer "+token)
	return out
}

func drain(resp *http.Response) {
	if resp == nil || resp.Body == nil {
		return
	}
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
	resp.Body.Close()
}
