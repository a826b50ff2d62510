package syncer

import (
	"log/slog"
	"time"
)

type EventType string

const (
	EventSyncSucceeded  EventType = "sync_succeeded"
	EventSyncFailed     EventType = "sync_failed"
	EventSessionStarted EventType = "remote_session_started"
	EventSessionEnded   EventType = "session_ended"
)

// Event is a semantic sync notification. The core emits these; a
// presentation layer decides how to surface them.
type Event struct {
	Type   EventType `json:"type"`
	Reason string    `json:"reason,omitempty"`
	At     time.Time `json:"at"`
}

type Notifier interface {
	Notify(Event)
}

// NotifierFunc adapts a function to the Notifier interface.
type NotifierFunc func(Event)

func (f NotifierFunc) Notify(e Event) { f(e) }

// LogNotifier reports sync events through slog, the default sink when no
// other presentation layer is wired.
type LogNotifier struct{}

func (LogNotifier) Notify(e Event) {
	switch e.Type {
	case EventSyncFailed:
		slog.Warn("sync failed", "reason", e.Reason)
	default:
		slog.Info("sync event", "type", string(e.Type), "reason", e.Reason)
	}
}
