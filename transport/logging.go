package transport

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/MrEthical07/goAuthClient/internal/logctx"
)

// Logging writes one record per request with its id, method, path, status,
// and duration. The enriched logger is placed in the request context so
// inner RoundTrippers log under the same request id. Headers and bodies are
// never logged.
func Logging(base *slog.Logger) Middleware {
	if base == nil {
		base = slog.Default()
	}
	return func(next http.RoundTripper) http.RoundTripper {
		return RoundTripperFunc(func(req *http.Request) (*http.Response, error) {
			start := time.Now()
			l := base.With(
				slog.String("request_id", req.Header.Get(HeaderRequestID)),
				slog.String("method", req.Method),
				slog.String("path", req.URL.Path),
			)
			req = req.WithContext(logctx.Into(req.Context(), l))

			resp, err := next.RoundTrip(req)
			if err != nil {
				l.Warn("http", slog.String("err", err.Error()), slog.Duration("dur", time.Since(start)))
				return nil, err
			}

			level := slog.LevelInfo
			if resp.StatusCode >= 500 {
				level = slog.LevelWarn
			}
			l.Log(req.Context(), level, "http",
				slog.Int("status", resp.StatusCode),
				slog.Duration("dur", time.Since(start)),
			)
			return resp, nil
		})
	}
}
