// Command refresh-storm measures how the client behaves when many requests
// hit an expired access token at once. Each round waits for the access token
// to expire, then fires -concurrency protected requests together; every one
// of them gets a 401 and must recover through a single shared refresh.
//
// Without -target an in-process fake backend is started. Tokens are stored
// in Redis: -redis-addr, REDIS_ADDR, or an embedded miniredis.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	client "github.com/MrEthical07/goAuthClient"
	"github.com/MrEthical07/goAuthClient/internal/fakeapi"
)

type options struct {
	target       string
	username     string
	password     string
	path         string
	concurrency  int
	rounds       int
	accessTTL    time.Duration
	refreshDelay time.Duration
	redisAddr    string
}

func main() {
	opts := options{}
	flag.StringVar(&opts.target, "target", "", "backend base URL, e.g. http://localhost:8000/api/; empty starts a fake backend")
	flag.StringVar(&opts.username, "username", "alice", "login username")
	flag.StringVar(&opts.password, "password", "Secret123", "login password")
	flag.StringVar(&opts.path, "path", "debug/protected/", "protected endpoint, relative to the base URL")
	flag.IntVar(&opts.concurrency, "concurrency", 64, "concurrent requests per round")
	flag.IntVar(&opts.rounds, "rounds", 5, "number of expiry rounds")
	flag.DurationVar(&opts.accessTTL, "access-ttl", 2*time.Second, "access token lifetime of the fake backend")
	flag.DurationVar(&opts.refreshDelay, "refresh-delay", 50*time.Millisecond, "refresh latency of the fake backend")
	flag.StringVar(&opts.redisAddr, "redis-addr", "", "redis address; if empty, REDIS_ADDR env or miniredis is used")
	flag.Parse()

	if opts.concurrency <= 0 || opts.rounds <= 0 {
		fmt.Fprintln(os.Stderr, "concurrency and rounds must be > 0")
		os.Exit(2)
	}

	rep, err := runStorm(context.Background(), opts, os.Stdout)
	if err != nil {
		fmt.Fprintf(os.Stderr, "storm failed: %v\n", err)
		os.Exit(1)
	}
	printReport(os.Stdout, rep)
}

type report struct {
	rounds         []roundStats
	refreshStarted uint64
	refreshShared  uint64
	backendRefresh int // -1 when the backend cannot be inspected
}

type roundStats struct {
	total    time.Duration
	ops      int
	failures int64
	p50      time.Duration
	p95      time.Duration
	p99      time.Duration
}

func runStorm(ctx context.Context, opts options, out io.Writer) (report, error) {
	rep := report{backendRefresh: -1}

	addr := opts.redisAddr
	if addr == "" {
		addr = os.Getenv("REDIS_ADDR")
	}
	if addr == "" {
		mr, err := miniredis.Run()
		if err != nil {
			return rep, fmt.Errorf("start miniredis: %w", err)
		}
		defer mr.Close()
		addr = mr.Addr()
		fmt.Fprintf(out, "using miniredis at %s\n", addr)
	} else {
		fmt.Fprintf(out, "using redis at %s\n", addr)
	}
	rdb := redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{addr}})
	defer rdb.Close()

	base := opts.target
	var fake *fakeapi.Server
	if base == "" {
		fake = fakeapi.New(fakeapi.Options{
			AccessTTL:     opts.accessTTL,
			RefreshDelay:  opts.refreshDelay,
			RotateRefresh: true,
		})
		ln, err := net.Listen("tcp", "127.0.0.1:0")
		if err != nil {
			return rep, fmt.Errorf("listen: %w", err)
		}
		srv := &http.Server{Handler: fake, ReadHeaderTimeout: 5 * time.Second}
		go func() { _ = srv.Serve(ln) }()
		defer srv.Close()
		base = "http://" + ln.Addr().String() + "/api/"
		fmt.Fprintf(out, "using fake backend at %s\n", base)
	}

	c, err := client.New().
		WithRedis(rdb).
		WithLogger(slog.New(slog.DiscardHandler)).
		WithConfig(stormConfig(base)).
		Build()
	if err != nil {
		return rep, err
	}
	defer c.Close()

	if _, err := c.Login(ctx, client.LoginRequest{Username: opts.username, Password: opts.password}); err != nil {
		return rep, fmt.Errorf("login: %w", err)
	}

	endpoint := strings.TrimSuffix(base, "/") + "/" + strings.TrimPrefix(opts.path, "/")
	for i := 0; i < opts.rounds; i++ {
		if err := waitForExpiry(ctx, c); err != nil {
			return rep, err
		}
		rep.rounds = append(rep.rounds, runRound(ctx, c.HTTPClient(), endpoint, opts.concurrency))
	}

	snap := c.MetricsSnapshot()
	rep.refreshStarted = c.RefreshesStarted()
	rep.refreshShared = snap.Counters[client.MetricRefreshShared]
	if fake != nil {
		rep.backendRefresh = fake.RefreshCalls()
	}
	return rep, nil
}

// stormConfig keeps the background refresher out of the way so every
// refresh in the run is triggered by a 401.
func stormConfig(base string) client.Config {
	cfg := client.DefaultConfig()
	cfg.API.BaseURL = base
	cfg.Session.RefreshCheckInterval = time.Hour
	cfg.Session.RefreshThreshold = time.Millisecond
	cfg.Session.LoadProfileOnStart = false
	cfg.Events.Enabled = false
	return cfg
}

func waitForExpiry(ctx context.Context, c *client.Client) error {
	cl, ok := c.Claims()
	if !ok {
		return errors.New("no decodable access token")
	}
	exp, ok := cl.Expiry()
	if !ok {
		return nil
	}
	// exp has second precision; step past it.
	wait := time.Until(exp) + 10*time.Millisecond
	if wait <= 0 {
		return nil
	}
	t := time.NewTimer(wait)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func runRound(ctx context.Context, hc *http.Client, endpoint string, concurrency int) roundStats {
	var (
		wg        sync.WaitGroup
		failures  int64
		latencies = make([]time.Duration, concurrency)
		start     = make(chan struct{})
	)

	for w := 0; w < concurrency; w++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			<-start
			t0 := time.Now()
			if err := get(ctx, hc, endpoint); err != nil {
				atomic.AddInt64(&failures, 1)
			}
			latencies[worker] = time.Since(t0)
		}(w)
	}

	t0 := time.Now()
	close(start)
	wg.Wait()
	return computeStats(time.Since(t0), latencies, failures)
}

func get(ctx context.Context, hc *http.Client, endpoint string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}
	resp, err := hc.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("status %d", resp.StatusCode)
	}
	return nil
}

func computeStats(total time.Duration, samples []time.Duration, failures int64) roundStats {
	if len(samples) == 0 {
		return roundStats{total: total}
	}
	sort.Slice(samples, func(i, j int) bool { return samples[i] < samples[j] })
	return roundStats{
		total:    total,
		ops:      len(samples),
		failures: failures,
		p50:      percentile(samples, 50),
		p95:      percentile(samples, 95),
		p99:      percentile(samples, 99),
	}
}

func percentile(samples []time.Duration, p int) time.Duration {
	if len(samples) == 0 {
		return 0
	}
	if p <= 0 {
		return samples[0]
	}
	if p >= 100 {
		return samples[len(samples)-1]
	}
	idx := (len(samples) - 1) * p / 100
	return samples[idx]
}

func printReport(w io.Writer, rep report) {
	fmt.Fprintln(w, "---- results ----")
	for i, s := range rep.rounds {
		fmt.Fprintf(w, "round %d: ops=%d failures=%d total=%s p50=%s p95=%s p99=%s\n",
			i+1,
			s.ops,
			s.failures,
			s.total.Round(time.Millisecond),
			s.p50.Round(time.Microsecond),
			s.p95.Round(time.Microsecond),
			s.p99.Round(time.Microsecond),
		)
	}
	fmt.Fprintf(w, "refreshes started=%d shared=%d", rep.refreshStarted, rep.refreshShared)
	if rep.backendRefresh >= 0 {
		fmt.Fprintf(w, " backend=%d", rep.backendRefresh)
	}
	fmt.Fprintln(w)
}
