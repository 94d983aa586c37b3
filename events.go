package goAuthClient

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"sync"
	"time"
)

// EventType names a session transition.
type EventType string

const (
	EventLoginStarted     EventType = "login_started"
	EventLoginSucceeded   EventType = "login_succeeded"
	EventLoginFailed      EventType = "login_failed"
	EventLogout           EventType = "logout"
	EventSessionExpired   EventType = "session_expired"
	EventSessionRestored  EventType = "session_restored"
	EventRefreshStarted   EventType = "refresh_started"
	EventRefreshSucceeded EventType = "refresh_succeeded"
	EventRefreshFailed    EventType = "refresh_failed"
	EventProfileLoaded    EventType = "profile_loaded"
	EventProfileUpdated   EventType = "profile_updated"
	EventAccountDeleted   EventType = "account_deleted"
	EventErrorChanged     EventType = "error_changed"
)

// Event describes one session transition together with the session as it
// looked right after it.
type Event struct {
	Timestamp time.Time         `json:"timestamp"`
	Type      EventType         `json:"event_type"`
	Session   Session           `json:"session"`
	Success   bool              `json:"success"`
	Error     string            `json:"error,omitempty"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

// EventSink receives events from the dispatcher goroutine.
type EventSink interface {
	Emit(ctx context.Context, event Event)
}

type NoOpSink struct{}

func (NoOpSink) Emit(context.Context, Event) {}

type ChannelSink struct {
	events chan Event
}

func NewChannelSink(buffer int) *ChannelSink {
	if buffer <= 0 {
		buffer = 1
	}
	return &ChannelSink{
		events: make(chan Event, buffer),
	}
}

func (s *ChannelSink) Emit(ctx context.Context, event Event) {
	select {
	case s.events <- event:
	case <-ctx.Done():
	}
}

func (s *ChannelSink) Events() <-chan Event {
	return s.events
}

type JSONWriterSink struct {
	writer io.Writer
	mu     sync.Mutex
}

func NewJSONWriterSink(w io.Writer) *JSONWriterSink {
	return &JSONWriterSink{
		writer: w,
	}
}

func (s *JSONWriterSink) Emit(ctx context.Context, event Event) {
	if s == nil || s.writer == nil {
		return
	}
	data, err := json.Marshal(event)
	if err != nil {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	_, _ = s.writer.Write(data)
	_, _ = s.writer.Write([]byte("\n"))
}

// SlogSink writes each event as one structured log record.
type SlogSink struct {
	logger *slog.Logger
	level  slog.Level
}

func NewSlogSink(logger *slog.Logger, level slog.Level) *SlogSink {
	if logger == nil {
		logger = slog.Default()
	}
	return &SlogSink{logger: logger, level: level}
}

func (s *SlogSink) Emit(ctx context.Context, event Event) {
	attrs := []slog.Attr{
		slog.String("event", string(event.Type)),
		slog.String("state", event.Session.State.String()),
		slog.Bool("authenticated", event.Session.Authenticated),
		slog.Bool("success", event.Success),
	}
	if event.Session.User != nil {
		attrs = append(attrs, slog.Int64("user_id", event.Session.User.ID))
	}
	if event.Error != "" {
		attrs = append(attrs, slog.String("error", event.Error))
	}
	for k, v := range event.Metadata {
		attrs = append(attrs, slog.String(k, v))
	}
	s.logger.LogAttrs(ctx, s.level, "session event", attrs...)
}
