package service

import (
	"context"

	"github.com/helpdesk-ai/support-platform/internal/model"
)

// Broadcaster is the real-time fan-out surface the pipeline emits into.
// The websocket hub implements it; tests substitute a recorder.
type Broadcaster interface {
	// ToRoom delivers an event to every member of a conversation room,
	// optionally excluding one principal.
	ToRoom(conversationID, event string, payload any, excludeUserID string)

	// ToReviewers delivers an event to every connected agent or admin,
	// regardless of room membership.
	ToReviewers(event string, payload any)
}

// EventLog is the durable append-only log of pipeline outcomes. The NATS
// stream manager implements it.
type EventLog interface {
	PublishMessage(ctx context.Context, msg *model.Message) error
	PublishReportEvent(ctx context.Context, event string, report *model.Report) error

	// Replay returns a conversation's logged messages, oldest first.
	Replay(ctx context.Context, conversationID string, limit int) ([]model.Message, error)
}

// nopBroadcaster and nopEventLog stand in when the transport or log is not
// wired, so services never nil-check.
type nopBroadcaster struct{}

func (nopBroadcaster) ToRoom(string, string, any, string) {}
func (nopBroadcaster) ToReviewers(string, any)            {}

type nopEventLog struct{}

func (nopEventLog) PublishMessage(context.Context, *model.Message) error            { return nil }
func (nopEventLog) PublishReportEvent(context.Context, string, *model.Report) error { return nil }
func (nopEventLog) Replay(context.Context, string, int) ([]model.Message, error)    { return nil, nil }

// orNopBroadcaster returns b or a no-op stand-in.
func orNopBroadcaster(b Broadcaster) Broadcaster {
	if b == nil {
		return nopBroadcaster{}
	}
	return b
}

// orNopEventLog returns l or a no-op stand-in.
func orNopEventLog(l EventLog) EventLog {
	if l == nil {
		return nopEventLog{}
	}
	return l
}
