package goAuthClient

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/MrEthical07/goAuthClient/api"
	"github.com/MrEthical07/goAuthClient/internal/forms"
	"github.com/MrEthical07/goAuthClient/tokenstore"
	"github.com/MrEthical07/goAuthClient/transport"
)

// Builder assembles a Client.
//
// Builder instances are intended to be configured during initialization and
// used for exactly one Build.
type Builder struct {
	config     Config
	httpClient *http.Client
	backend    tokenstore.Backend
	redis      redis.UniversalClient
	logger     *slog.Logger
	navigator  transport.Navigator
	sinks      []EventSink
	now        func() time.Time

	built bool
}

// New describes the new operation and its observable behavior.
//
// New starts from [DefaultConfig]; API.BaseURL must still be provided.
func New() *Builder {
	return &Builder{
		config: DefaultConfig(),
	}
}

// WithConfig replaces the whole configuration with a copy of cfg.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithBaseURL sets API.BaseURL.
func (b *Builder) WithBaseURL(base string) *Builder {
	b.config.API.BaseURL = base
	return b
}

// WithHTTPClient supplies the client whose Transport carries requests to the
// backend. Its Transport becomes the base of the authenticated pipeline.
func (b *Builder) WithHTTPClient(hc *http.Client) *Builder {
	b.httpClient = hc
	return b
}

// WithTokenBackend selects where tokens are persisted. It takes precedence
// over WithRedis and Tokens.FilePath.
func (b *Builder) WithTokenBackend(backend tokenstore.Backend) *Builder {
	b.backend = backend
	return b
}

// WithRedis persists tokens in Redis under Tokens.RedisPrefix.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

// WithLogger sets the structured logger. The default is slog.Default().
func (b *Builder) WithLogger(logger *slog.Logger) *Builder {
	b.logger = logger
	return b
}

// WithNavigator receives login redirects and error-page navigation.
func (b *Builder) WithNavigator(nav transport.Navigator) *Builder {
	b.navigator = nav
	return b
}

// WithEventSink adds a sink for session events. It may be called more than
// once.
func (b *Builder) WithEventSink(sink EventSink) *Builder {
	if sink != nil {
		b.sinks = append(b.sinks, sink)
	}
	return b
}

// WithMetricsEnabled describes the withmetricsenabled operation and its observable behavior.
func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

// WithLatencyHistograms describes the withlatencyhistograms operation and its observable behavior.
func (b *Builder) WithLatencyHistograms(enabled bool) *Builder {
	b.config.Metrics.EnableLatencyHistograms = enabled
	return b
}

// WithClock overrides the time source used for expiry checks.
func (b *Builder) WithClock(now func() time.Time) *Builder {
	b.now = now
	return b
}

// Build describes the build operation and its observable behavior.
//
// Build validates the configuration, selects the token backend, and wires
// the authenticated transport. It performs no network I/O; call
// [Client.Start] to restore a persisted session.
func (b *Builder) Build() (*Client, error) {
	if b.built {
		return nil, ErrBuilderUsed
	}

	cfg := cloneConfig(b.config)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger := b.logger
	if logger == nil {
		logger = slog.Default()
	}
	now := b.now
	if now == nil {
		now = time.Now
	}

	c := &Client{
		cfg:      cfg,
		logger:   logger,
		tokens:   tokenstore.New(b.selectBackend(cfg), tokenstore.WithClock(now)),
		gate:     transport.NewRefreshGate(cfg.Session.RefreshTimeout),
		metrics:  NewMetrics(cfg.Metrics),
		validate: forms.Validate,
		now:      now,
	}
	if b.navigator != nil {
		c.nav = b.navigator
	} else {
		c.nav = transport.NavigatorFunc(func(ctx context.Context, target string) {
			logger.DebugContext(ctx, "goauthclient: navigate", slog.String("target", target))
		})
	}

	rt := transport.New(transport.Config{
		Logger: logger,
		Pipeline: transport.PipelineConfig{
			Base:           b.baseTransport(),
			Tokens:         c.tokens,
			Refresh:        c.refreshAccess,
			Navigator:      errorNavigator{next: c.nav},
			BootstrapPaths: cfg.Transport.BootstrapPaths,
			PublicPaths:    cfg.Transport.PublicPaths,
			ErrorRoute:     c.errorRoute,
			Hooks:          c.pipelineHooks(),
		},
	})

	hc := &http.Client{Transport: rt, Timeout: cfg.API.Timeout}
	if b.httpClient != nil {
		hc.Jar = b.httpClient.Jar
		hc.CheckRedirect = b.httpClient.CheckRedirect
		if b.httpClient.Timeout > 0 {
			hc.Timeout = b.httpClient.Timeout
		}
	}

	apiClient, err := api.New(api.Config{
		BaseURL:    cfg.API.BaseURL,
		AppVersion: cfg.API.AppVersion,
		HTTPClient: hc,
	})
	if err != nil {
		return nil, err
	}
	c.api = apiClient
	c.events = newEventDispatcher(cfg.Events, logger, b.sinks...)

	b.built = true
	return c, nil
}

func (b *Builder) selectBackend(cfg Config) tokenstore.Backend {
	switch {
	case b.backend != nil:
		return b.backend
	case b.redis != nil:
		return tokenstore.NewRedisBackend(b.redis, cfg.Tokens.RedisPrefix, cfg.Tokens.RedisTTL)
	case strings.TrimSpace(cfg.Tokens.FilePath) != "":
		return tokenstore.NewFileBackend(cfg.Tokens.FilePath)
	default:
		return tokenstore.NewMemoryBackend()
	}
}

func (b *Builder) baseTransport() http.RoundTripper {
	if b.httpClient != nil && b.httpClient.Transport != nil {
		return b.httpClient.Transport
	}
	return http.DefaultTransport
}
