package goAuthClient

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/MrEthical07/goAuthClient/internal/fakeapi"
)

func TestRefreshConcurrencySingleRotation(t *testing.T) {
	h := newHarness(t, withFake(fakeapi.Options{
		RotateRefresh: true,
		RefreshDelay:  50 * time.Millisecond,
	}))
	h.login(t, "alice", "Secret123")

	const n = 16
	var wg sync.WaitGroup
	wg.Add(n)

	results := make(chan TokenPair, n)
	errs := make(chan error, n)
	start := make(chan struct{})
	for i := 0; i < n; i++ {
		go func() {
			defer wg.Done()
			<-start
			pair, err := h.client.Refresh(context.Background())
			if err != nil {
				errs <- err
				return
			}
			results <- pair
		}()
	}
	close(start)
	wg.Wait()
	close(results)
	close(errs)

	for err := range errs {
		t.Fatalf("unexpected refresh error: %v", err)
	}

	seen := 0
	for pair := range results {
		if pair.Access == "" || pair.Refresh == "" {
			t.Fatalf("refresh returned an incomplete pair: %+v", pair)
		}
		seen++
	}
	if seen != n {
		t.Fatalf("expected %d results, got %d", n, seen)
	}

	// Stragglers that arrive after the rotation start a second refresh with
	// the already rotated token, which must still succeed.
	if calls := h.fake.RefreshCalls(); calls < 1 || calls > 2 {
		t.Fatalf("expected one or two refresh calls, got %d", calls)
	}
	if !h.client.IsAuthenticated() {
		t.Fatal("session lost after concurrent refresh")
	}
}

func TestRefreshGateSharedAcrossPipelineAndExplicitRefresh(t *testing.T) {
	h := newHarness(t, withFake(fakeapi.Options{RefreshDelay: 80 * time.Millisecond}))
	h.login(t, "alice", "Secret123")
	h.expireAccess(t, "alice")

	var wg sync.WaitGroup
	wg.Add(2)
	var getErr, refreshErr error
	go func() {
		defer wg.Done()
		getErr = h.client.get(context.Background(), "debug/protected/", nil, nil)
	}()
	go func() {
		defer wg.Done()
		time.Sleep(10 * time.Millisecond)
		_, refreshErr = h.client.Refresh(context.Background())
	}()
	wg.Wait()

	if getErr != nil {
		t.Fatalf("request failed: %v", getErr)
	}
	if refreshErr != nil {
		t.Fatalf("refresh failed: %v", refreshErr)
	}
	if calls := h.fake.RefreshCalls(); calls != 1 {
		t.Fatalf("expected a single refresh call, got %d", calls)
	}
}
