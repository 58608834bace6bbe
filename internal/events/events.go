package events

import (
	"context"
	"encoding/json"
	"io"
	"sync"
	"time"
)

// Type names a session lifecycle event.
type Type string

const (
	TypeLogin                   Type = "login"
	TypeOTPVerify               Type = "otp_verify"
	TypeRefresh                 Type = "refresh"
	TypeRefreshBackgroundFailed Type = "refresh_background_failed"
	TypeLogout                  Type = "logout"
	TypeForcedLogout            Type = "forced_logout"
	TypeStorageFallback         Type = "storage_fallback"
)

// Types lists every event type in a stable order.
var Types = []Type{
	TypeLogin,
	TypeOTPVerify,
	TypeRefresh,
	TypeRefreshBackgroundFailed,
	TypeLogout,
	TypeForcedLogout,
	TypeStorageFallback,
}

// Event is the canonical lifecycle record used by dispatching and root APIs.
type Event struct {
	Timestamp time.Time         `json:"timestamp"`
	Type      Type              `json:"type"`
	UserID    string            `json:"user_id,omitempty"`
	Role      string            `json:"role,omitempty"`
	Trigger   string            `json:"trigger,omitempty"`
	Success   bool              `json:"success"`
	Error     string            `json:"error,omitempty"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

// Sink receives emitted events.
type Sink interface {
	Emit(ctx context.Context, event Event)
}

// NoOpSink drops events.
type NoOpSink struct{}

func (NoOpSink) Emit(context.Context, Event) {}

// SinkFunc adapts a function to [Sink].
type SinkFunc func(ctx context.Context, event Event)

func (f SinkFunc) Emit(ctx context.Context, event Event) { f(ctx, event) }

// ChannelSink writes events into a buffered channel.
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

// JSONWriterSink writes one JSON object per line.
type JSONWriterSink struct {
	writer io.Writer
	mu     sync.Mutex
}

func NewJSONWriterSink(w io.Writer) *JSONWriterSink {
	return &JSONWriterSink{
		writer: w,
	}
}

func (s *JSONWriterSink) Emit(_ context.Context, event Event) {
	if s == nil || s.writer == nil {
		return
	}
	data, err := json.Marshal(event)
	if err != nil {
		return
	}
	data = append(data, '\n')

	s.mu.Lock()
	defer s.mu.Unlock()
	_, _ = s.writer.Write(data)
}
