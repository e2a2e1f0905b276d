package nats

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go/jetstream"

	"github.com/helpdesk-ai/support-platform/internal/model"
)

const (
	// StreamName is the name of the support event stream.
	StreamName = "SUPPORT"

	// SubjectPrefix is the prefix for all support subjects.
	SubjectPrefix = "support"
)

// StreamManager handles JetStream stream operations. It is the durable
// event log behind the in-memory stores: every persisted message and every
// report transition is appended here for audit and replay.
type StreamManager struct {
	client *Client
}

// NewStreamManager creates a new stream manager.
func NewStreamManager(client *Client) *StreamManager {
	return &StreamManager{client: client}
}

// EnsureStream ensures the support stream exists with proper configuration.
func (m *StreamManager) EnsureStream(ctx context.Context) error {
	js := m.client.JetStream()

	_, err := js.Stream(ctx, StreamName)
	if err == nil {
		return nil
	}

	_, err = js.CreateStream(ctx, jetstream.StreamConfig{
		Name:        StreamName,
		Subjects:    []string{fmt.Sprintf("%s.>", SubjectPrefix)},
		Retention:   jetstream.LimitsPolicy,
		MaxAge:      365 * 24 * time.Hour,
		MaxBytes:    10 * 1024 * 1024 * 1024,
		Storage:     jetstream.FileStorage,
		Replicas:    1,
		Compression: jetstream.S2Compression,
		DenyDelete:  true,
		DenyPurge:   true,
		Description: "All support conversation messages and report events",
	})
	if err != nil {
		return fmt.Errorf("failed to create stream: %w", err)
	}

	return nil
}

// MessageSubject returns the subject for a message.
func MessageSubject(conversationID string, senderType model.SenderType) string {
	return fmt.Sprintf("%s.conversation.%s.msg.%s", SubjectPrefix, conversationID, senderType)
}

// ReportSubject returns the subject for a report lifecycle event.
func ReportSubject(event string) string {
	return fmt.Sprintf("%s.report.%s", SubjectPrefix, event)
}

// ConversationFilter returns the filter subject for all messages in a
// conversation.
func ConversationFilter(conversationID string) string {
	return fmt.Sprintf("%s.conversation.%s.>", SubjectPrefix, conversationID)
}

// PublishMessage appends a message to the event log.
func (m *StreamManager) PublishMessage(ctx context.Context, msg *model.Message) error {
	subject := MessageSubject(msg.ConversationID, msg.SenderType)

	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	if _, err := m.client.JetStream().Publish(ctx, subject, data); err != nil {
		return fmt.Errorf("failed to publish message: %w", err)
	}
	return nil
}

// PublishReportEvent appends a report lifecycle event to the event log.
func (m *StreamManager) PublishReportEvent(ctx context.Context, event string, report *model.Report) error {
	subject := ReportSubject(event)

	data, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("failed to marshal report: %w", err)
	}

	if _, err := m.client.JetStream().Publish(ctx, subject, data); err != nil {
		return fmt.Errorf("failed to publish report event: %w", err)
	}
	return nil
}

// Replay retrieves messages from a conversation's log segment, oldest first.
func (m *StreamManager) Replay(ctx context.Context, conversationID string, limit int) ([]model.Message, error) {
	js := m.client.JetStream()

	consumer, err := js.CreateConsumer(ctx, StreamName, jetstream.ConsumerConfig{
		FilterSubject: ConversationFilter(conversationID),
		AckPolicy:     jetstream.AckNonePolicy,
		DeliverPolicy: jetstream.DeliverAllPolicy,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create consumer: %w", err)
	}

	batch, err := consumer.Fetch(limit, jetstream.FetchMaxWait(2*time.Second))
	if err != nil {
		return nil, fmt.Errorf("failed to fetch messages: %w", err)
	}

	var messages []model.Message
	for msg := range batch.Messages() {
		var message model.Message
		if err := json.Unmarshal(msg.Data(), &message); err != nil {
			continue
		}
		messages = append(messages, message)
	}
	if batch.Error() != nil && batch.Error() != context.DeadlineExceeded {
		return nil, fmt.Errorf("batch error: %w", batch.Error())
	}

	return messages, nil
}
