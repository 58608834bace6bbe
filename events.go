package goTutor

import (
	"context"
	"io"

	"github.com/MrEthical07/goTutor/internal/events"
	"github.com/MrEthical07/goTutor/session"
)

// Event is a structured session lifecycle record. It never carries the access token.
type Event = events.Event

// EventType names an [Event].
type EventType = events.Type

// EventSink receives events asynchronously from the Manager's dispatcher.
type EventSink = events.Sink

const (
	EventLogin                   = events.TypeLogin
	EventOTPVerify               = events.TypeOTPVerify
	EventRefresh                 = events.TypeRefresh
	EventRefreshBackgroundFailed = events.TypeRefreshBackgroundFailed
	EventLogout                  = events.TypeLogout
	EventForcedLogout            = events.TypeForcedLogout
	EventStorageFallback         = events.TypeStorageFallback
)

// NoOpSink drops events.
type NoOpSink = events.NoOpSink

// EventSinkFunc adapts a function to [EventSink].
type EventSinkFunc = events.SinkFunc

// ChannelSink buffers events in a channel; read them with Events().
type ChannelSink = events.ChannelSink

// JSONWriterSink writes one JSON object per line.
type JSONWriterSink = events.JSONWriterSink

func NewChannelSink(buffer int) *ChannelSink { return events.NewChannelSink(buffer) }

func NewJSONWriterSink(w io.Writer) *JSONWriterSink { return events.NewJSONWriterSink(w) }

func (m *Manager) emit(ctx context.Context, typ EventType, user *session.UserProfile, trigger string, err error, metadata map[string]string) {
	if m.events == nil {
		return
	}
	ev := Event{
		Timestamp: m.now(),
		Type:      typ,
		Trigger:   trigger,
		Success:   err == nil,
		Metadata:  metadata,
	}
	if user != nil {
		ev.UserID = user.ID
		ev.Role = string(user.Role)
	}
	if err != nil {
		ev.Error = err.Error()
	}
	m.events.Emit(ctx, ev)
}

// EventStats is a copy of the event dispatcher counters.
type EventStats = events.Stats

// MetaCoalesced is the Event.Metadata key holding how many repeats were folded into an
// event.
const MetaCoalesced = events.MetaCoalesced

// EventTypes lists every event type in a stable order.
func EventTypes() []EventType {
	return append([]EventType(nil), events.Types...)
}

// EventStats returns how many events were dropped, in total and per type, and how many
// repeats were coalesced.
func (m *Manager) EventStats() EventStats {
	return m.events.Stats()
}
