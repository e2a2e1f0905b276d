package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/helpdesk-ai/support-platform/internal/model"
	"github.com/helpdesk-ai/support-platform/internal/store"
	"github.com/helpdesk-ai/support-platform/internal/ws"
	"github.com/helpdesk-ai/support-platform/pkg/logger"
	"github.com/helpdesk-ai/support-platform/pkg/metrics"
)

// aiErrorMessage is the explanatory string returned on partial failure.
const aiErrorMessage = "Failed to generate AI response. Please try again."

// MessageService orchestrates the message-processing pipeline: safety gate,
// sentiment classification, persistence, state aggregation, knowledge
// retrieval, response generation, and real-time fan-out.
type MessageService struct {
	store         *store.Store
	conversations *ConversationService
	safety        *SafetyGate
	sentiment     *SentimentClassifier
	knowledge     *KnowledgeService
	generator     *ResponseGenerator
	broadcaster   Broadcaster
	eventLog      EventLog
	knowledgeLim  int
	logger        *logger.Logger
}

// NewMessageService creates a new message service. broadcaster and eventLog
// may be nil.
func NewMessageService(
	s *store.Store,
	conversations *ConversationService,
	safety *SafetyGate,
	sentiment *SentimentClassifier,
	knowledge *KnowledgeService,
	generator *ResponseGenerator,
	broadcaster Broadcaster,
	eventLog EventLog,
	knowledgeLimit int,
	log *logger.Logger,
) *MessageService {
	if knowledgeLimit <= 0 {
		knowledgeLimit = 5
	}
	return &MessageService{
		store:         s,
		conversations: conversations,
		safety:        safety,
		sentiment:     sentiment,
		knowledge:     knowledge,
		generator:     generator,
		broadcaster:   orNopBroadcaster(broadcaster),
		eventLog:      orNopEventLog(eventLog),
		knowledgeLim:  knowledgeLimit,
		logger:        log,
	}
}

// Send runs the pipeline for one inbound message. A safety rejection
// returns ErrContentViolation with nothing persisted. A generation failure
// still commits the user message and reports the partial outcome through
// SendMessageResponse.AIError.
func (s *MessageService) Send(ctx context.Context, principal *model.User, conversationID, content string) (*model.SendMessageResponse, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, fmt.Errorf("%w: message content is required", ErrInvalidInput)
	}

	conv, err := s.conversations.Get(ctx, principal, conversationID)
	if err != nil {
		return nil, err
	}

	// Safety gate: reject before any persistence or counter mutation.
	if check := s.safety.Check(ctx, content); !check.Safe {
		s.logger.Info("message rejected by safety gate",
			zap.String("conversation_id", conversationID),
			zap.String("user_id", principal.ID),
		)
		return nil, ErrContentViolation
	}

	sentiment := s.sentiment.Classify(ctx, content)

	// History is captured before the new message persists so the prompt
	// replays prior turns only; the current message is appended by the
	// generator.
	history, err := s.store.Messages.Tail(ctx, conversationID, 2*s.generator.historyWindow)
	if err != nil {
		return nil, fmt.Errorf("load history: %w", err)
	}

	senderType := model.SenderUser
	if principal.Role == model.RoleAgent {
		senderType = model.SenderAgent
	}

	userMsg := model.Message{
		ID:             uuid.Must(uuid.NewV7()).String(),
		ConversationID: conversationID,
		SenderID:       principal.ID,
		SenderType:     senderType,
		Content:        content,
		Metadata:       model.MessageMetadata{Sentiment: sentiment.Value},
		CreatedAt:      time.Now(),
	}
	if err := s.store.Messages.Create(ctx, userMsg); err != nil {
		return nil, fmt.Errorf("persist message: %w", err)
	}
	metrics.MessagesTotal.WithLabelValues(string(senderType)).Inc()

	conv, err = s.conversations.RecordUserMessage(ctx, conversationID, sentiment.Value, senderType, principal.ID)
	if err != nil {
		return nil, fmt.Errorf("record message: %w", err)
	}

	if err := s.eventLog.PublishMessage(ctx, &userMsg); err != nil {
		s.logger.Warn("failed to log message", zap.Error(err))
	}

	// The sender sees the persisted message in this response; the room echo
	// goes to everyone else.
	s.broadcaster.ToRoom(conversationID, ws.EventMessageReceived, ws.MessagePayload{
		ConversationID: conversationID,
		Message:        &userMsg,
	}, principal.ID)

	resp := &model.SendMessageResponse{UserMessage: &userMsg}

	// Generation runs only for customer messages with no agent involved.
	if principal.Role != model.RoleCustomer || conv.IsAgentInvolved {
		return resp, nil
	}

	aiMsg, err := s.generateReply(ctx, principal, conversationID, content, history)
	if err != nil {
		s.logger.Error("AI response failed",
			zap.String("conversation_id", conversationID),
			zap.Error(err),
		)
		resp.AIError = aiErrorMessage
		return resp, nil
	}

	resp.AIMessage = aiMsg
	return resp, nil
}

// generateReply runs one generation cycle: retrieve knowledge, assemble the
// prompt, call the provider, persist the AI message, fold its processing
// time into the conversation counters, then account knowledge usage.
func (s *MessageService) generateReply(ctx context.Context, principal *model.User, conversationID, content string, history []model.Message) (*model.Message, error) {
	s.broadcaster.ToRoom(conversationID, ws.EventAITyping, ws.ConversationPayload{
		ConversationID: conversationID,
	}, principal.ID)

	entries, err := s.knowledge.Retrieve(ctx, content, s.knowledgeLim)
	if err != nil {
		return nil, err
	}

	result, err := s.generator.Generate(ctx, content, history, principal.Preferences, entries)
	if err != nil {
		metrics.RecordGeneration("", "error", 0, 0)
		return nil, err
	}
	metrics.RecordGeneration(result.Model, "success", float64(result.LatencyMs)/1000.0, result.TokensUsed)

	aiSentiment := s.sentiment.Classify(ctx, result.Content)

	aiMsg := model.Message{
		ID:             uuid.Must(uuid.NewV7()).String(),
		ConversationID: conversationID,
		SenderID:       principal.ID,
		SenderType:     model.SenderAI,
		Content:        result.Content,
		Metadata: model.MessageMetadata{
			Sentiment:        aiSentiment.Value,
			ProcessingTimeMs: result.LatencyMs,
			TokensUsed:       result.TokensUsed,
			Model:            result.Model,
		},
		CreatedAt: time.Now(),
	}
	if err := s.store.Messages.Create(ctx, aiMsg); err != nil {
		return nil, fmt.Errorf("persist AI message: %w", err)
	}
	metrics.MessagesTotal.WithLabelValues(string(model.SenderAI)).Inc()

	if _, err := s.conversations.RecordAIMessage(ctx, conversationID, result.LatencyMs); err != nil {
		return nil, fmt.Errorf("record AI message: %w", err)
	}

	// Usage accounting covers every retrieval candidate of this cycle,
	// used by the answer or not.
	s.knowledge.RecordUsage(ctx, entries)

	if err := s.eventLog.PublishMessage(ctx, &aiMsg); err != nil {
		s.logger.Warn("failed to log AI message", zap.Error(err))
	}

	s.broadcaster.ToRoom(conversationID, ws.EventMessageReceived, ws.MessagePayload{
		ConversationID: conversationID,
		Message:        &aiMsg,
	}, "")

	return &aiMsg, nil
}

// AuditLog returns a conversation's turns as recorded in the durable event
// log, oldest first. The log is a review surface, so only agents and admins
// may read it.
func (s *MessageService) AuditLog(ctx context.Context, principal *model.User, conversationID string, limit int) ([]model.Message, error) {
	if !principal.Role.CanReview() {
		return nil, ErrForbidden
	}
	if _, err := s.conversations.Get(ctx, principal, conversationID); err != nil {
		return nil, err
	}

	if limit <= 0 || limit > 500 {
		limit = 100
	}
	return s.eventLog.Replay(ctx, conversationID, limit)
}

// List returns a conversation's messages in creation order.
func (s *MessageService) List(ctx context.Context, principal *model.User, conversationID string, offset, limit int) ([]model.Message, error) {
	if _, err := s.conversations.Get(ctx, principal, conversationID); err != nil {
		return nil, err
	}

	if limit <= 0 || limit > 100 {
		limit = 50
	}
	return s.store.Messages.ListByConversation(ctx, conversationID, offset, limit)
}

// MarkRead marks messages of a conversation as read and notifies the other
// room members.
func (s *MessageService) MarkRead(ctx context.Context, principal *model.User, conversationID string, messageIDs []string) error {
	if _, err := s.conversations.Get(ctx, principal, conversationID); err != nil {
		return err
	}

	if err := s.store.Messages.MarkRead(ctx, conversationID, messageIDs, time.Now()); err != nil {
		return err
	}

	s.broadcaster.ToRoom(conversationID, ws.EventMessageRead, ws.ReadPayload{
		ConversationID: conversationID,
		MessageIDs:     messageIDs,
		ReadBy:         principal.ID,
	}, principal.ID)

	return nil
}
