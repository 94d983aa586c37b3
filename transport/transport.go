package transport

import (
	"log/slog"
	"net/http"
)

// Config assembles the default chain.
type Config struct {
	Pipeline PipelineConfig
	Logger   *slog.Logger
}

// New returns RequestID -> Logging -> Pipeline -> cfg.Pipeline.Base.
func New(cfg Config) http.RoundTripper {
	if cfg.Pipeline.Logger == nil {
		cfg.Pipeline.Logger = cfg.Logger
	}
	pipeline := NewPipeline(cfg.Pipeline)
	return Chain(pipeline, RequestID(), Logging(cfg.Logger))
}
