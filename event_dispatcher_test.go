package goAuthClient

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"sync"
	"testing"
	"time"
)

type captureSink struct {
	mu     sync.Mutex
	events []Event
}

func (s *captureSink) Emit(_ context.Context, e Event) {
	s.mu.Lock()
	s.events = append(s.events, e)
	s.mu.Unlock()
}

func (s *captureSink) Types() []EventType {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]EventType, 0, len(s.events))
	for _, e := range s.events {
		out = append(out, e.Type)
	}
	return out
}

// gateSink blocks every delivery until gate is closed.
type gateSink struct {
	started chan struct{}
	gate    chan struct{}
	once    sync.Once
}

func newGateSink() *gateSink {
	return &gateSink{
		started: make(chan struct{}),
		gate:    make(chan struct{}),
	}
}

func (s *gateSink) Emit(context.Context, Event) {
	s.once.Do(func() { close(s.started) })
	<-s.gate
}

type panicSink struct{}

func (panicSink) Emit(context.Context, Event) { panic("boom") }

func waitStarted(t *testing.T, s *gateSink) {
	t.Helper()
	select {
	case <-s.started:
	case <-time.After(time.Second):
		t.Fatal("sink never received the first event")
	}
}

func TestEventDispatcherDisabledIsNil(t *testing.T) {
	d := newEventDispatcher(EventsConfig{Enabled: false, BufferSize: 4}, nil, &captureSink{})
	if d != nil {
		t.Fatal("expected nil dispatcher when events are disabled")
	}
	// nil dispatcher is inert
	d.Emit(context.Background(), Event{Type: EventLogout})
	d.Close()
	if d.Dropped() != 0 || d.Delivered() != 0 {
		t.Fatal("nil dispatcher reported activity")
	}
}

func TestEventDispatcherDropIfFullNonBlocking(t *testing.T) {
	sink := newGateSink()
	d := newEventDispatcher(EventsConfig{Enabled: true, BufferSize: 1, DropIfFull: true}, nil, sink)

	d.Emit(context.Background(), Event{Type: EventLoginStarted})
	waitStarted(t, sink)

	d.Emit(context.Background(), Event{Type: EventLoginSucceeded})

	done := make(chan struct{})
	go func() {
		d.Emit(context.Background(), Event{Type: EventLogout})
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Emit blocked with DropIfFull set")
	}

	if got := d.Dropped(); got != 1 {
		t.Fatalf("expected 1 dropped event, got %d", got)
	}

	close(sink.gate)
	d.Close()
	if got := d.Delivered(); got != 2 {
		t.Fatalf("expected 2 delivered events, got %d", got)
	}
}

func TestEventDispatcherBlocksUntilSpace(t *testing.T) {
	sink := newGateSink()
	d := newEventDispatcher(EventsConfig{Enabled: true, BufferSize: 1, DropIfFull: false}, nil, sink)

	d.Emit(context.Background(), Event{Type: EventLoginStarted})
	waitStarted(t, sink)
	d.Emit(context.Background(), Event{Type: EventLoginSucceeded})

	done := make(chan struct{})
	go func() {
		d.Emit(context.Background(), Event{Type: EventLogout})
		close(done)
	}()

	select {
	case <-done:
		t.Fatal("Emit returned while the queue was full")
	case <-time.After(50 * time.Millisecond):
	}

	close(sink.gate)
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Emit never unblocked")
	}

	d.Close()
	if got := d.Dropped(); got != 0 {
		t.Fatalf("expected no drops, got %d", got)
	}
	if got := d.Delivered(); got != 3 {
		t.Fatalf("expected 3 delivered events, got %d", got)
	}
}

func TestEventDispatcherBlockingHonoursContext(t *testing.T) {
	sink := newGateSink()
	d := newEventDispatcher(EventsConfig{Enabled: true, BufferSize: 1, DropIfFull: false}, nil, sink)

	d.Emit(context.Background(), Event{Type: EventLoginStarted})
	waitStarted(t, sink)
	d.Emit(context.Background(), Event{Type: EventLoginSucceeded})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	d.Emit(ctx, Event{Type: EventLogout})

	if got := d.Dropped(); got != 1 {
		t.Fatalf("expected 1 dropped event, got %d", got)
	}
	close(sink.gate)
	d.Close()
}

func TestEventDispatcherFansOutAndSurvivesPanics(t *testing.T) {
	a := &captureSink{}
	b := &captureSink{}
	d := newEventDispatcher(EventsConfig{Enabled: true, BufferSize: 8, DropIfFull: true}, nil, a, panicSink{}, nil, b)

	d.Emit(context.Background(), Event{Type: EventLoginSucceeded})
	d.Emit(context.Background(), Event{Type: EventLogout})
	d.Close()

	for name, s := range map[string]*captureSink{"a": a, "b": b} {
		got := s.Types()
		if len(got) != 2 || got[0] != EventLoginSucceeded || got[1] != EventLogout {
			t.Fatalf("sink %s got %v", name, got)
		}
	}
}

func TestEventDispatcherEmitAfterCloseIgnored(t *testing.T) {
	s := &captureSink{}
	d := newEventDispatcher(EventsConfig{Enabled: true, BufferSize: 2, DropIfFull: true}, nil, s)
	d.Close()
	d.Close()

	d.Emit(context.Background(), Event{Type: EventLogout})
	if len(s.Types()) != 0 {
		t.Fatal("event delivered after Close")
	}
}

func TestJSONWriterSinkWritesOneLinePerEvent(t *testing.T) {
	var buf bytes.Buffer
	sink := NewJSONWriterSink(&buf)

	user := User{ID: 7, Username: "alice"}
	sink.Emit(context.Background(), Event{
		Type:    EventLoginSucceeded,
		Session: Session{State: StateAuthenticated, User: &user, Authenticated: true},
		Success: true,
	})
	sink.Emit(context.Background(), Event{Type: EventLogout, Success: true})

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d: %q", len(lines), buf.String())
	}

	var first map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &first); err != nil {
		t.Fatalf("line is not JSON: %v", err)
	}
	if first["event_type"] != "login_succeeded" {
		t.Fatalf("unexpected event_type %v", first["event_type"])
	}
	session, ok := first["session"].(map[string]any)
	if !ok {
		t.Fatalf("missing session object: %v", first)
	}
	if session["state"] != "authenticated" {
		t.Fatalf("unexpected state %v", session["state"])
	}
}
