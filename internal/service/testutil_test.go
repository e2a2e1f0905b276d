package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/helpdesk-ai/support-platform/internal/ai"
	"github.com/helpdesk-ai/support-platform/internal/model"
	"github.com/helpdesk-ai/support-platform/internal/store"
	"github.com/helpdesk-ai/support-platform/pkg/logger"
)

// fakeAI is a scriptable AI client. Unset hooks return benign defaults:
// moderation passes, classification says neutral, generation echoes a
// canned reply.
type fakeAI struct {
	mu            sync.Mutex
	moderateFn    func(text string) (*ai.ModerationResult, error)
	classifyFn    func(text string) (string, error)
	generateFn    func(messages []ai.ChatMessage, params ai.GenerationParams) (*ai.GenerationResult, error)
	generateCalls int
}

func (f *fakeAI) Moderate(ctx context.Context, text string) (*ai.ModerationResult, error) {
	if f.moderateFn != nil {
		return f.moderateFn(text)
	}
	return &ai.ModerationResult{Flagged: false}, nil
}

func (f *fakeAI) Classify(ctx context.Context, text string) (string, error) {
	if f.classifyFn != nil {
		return f.classifyFn(text)
	}
	return "neutral", nil
}

func (f *fakeAI) Generate(ctx context.Context, messages []ai.ChatMessage, params ai.GenerationParams) (*ai.GenerationResult, error) {
	f.mu.Lock()
	f.generateCalls++
	f.mu.Unlock()
	if f.generateFn != nil {
		return f.generateFn(messages, params)
	}
	return &ai.GenerationResult{
		Content:    "Happy to help with that.",
		Model:      "test-model",
		TokensUsed: 42,
		LatencyMs:  120,
	}, nil
}

func (f *fakeAI) Name() string { return "fake" }

func (f *fakeAI) generations() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.generateCalls
}

// recordedEvent is one broadcast captured by the fake broadcaster.
type recordedEvent struct {
	Room    string
	Event   string
	Payload any
	Exclude string
}

type fakeBroadcaster struct {
	mu        sync.Mutex
	room      []recordedEvent
	reviewers []recordedEvent
}

func (b *fakeBroadcaster) ToRoom(conversationID, event string, payload any, excludeUserID string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.room = append(b.room, recordedEvent{Room: conversationID, Event: event, Payload: payload, Exclude: excludeUserID})
}

func (b *fakeBroadcaster) ToReviewers(event string, payload any) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.reviewers = append(b.reviewers, recordedEvent{Event: event, Payload: payload})
}

func (b *fakeBroadcaster) roomEvents(event string) []recordedEvent {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []recordedEvent
	for _, e := range b.room {
		if e.Event == event {
			out = append(out, e)
		}
	}
	return out
}

func (b *fakeBroadcaster) reviewerEvents(event string) []recordedEvent {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []recordedEvent
	for _, e := range b.reviewers {
		if e.Event == event {
			out = append(out, e)
		}
	}
	return out
}

// fakeEventLog keeps published messages in memory and replays them, standing
// in for the JetStream-backed log.
type fakeEventLog struct {
	mu       sync.Mutex
	messages []model.Message
}

func (l *fakeEventLog) PublishMessage(ctx context.Context, msg *model.Message) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.messages = append(l.messages, *msg)
	return nil
}

func (l *fakeEventLog) PublishReportEvent(context.Context, string, *model.Report) error {
	return nil
}

func (l *fakeEventLog) Replay(ctx context.Context, conversationID string, limit int) ([]model.Message, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []model.Message
	for _, m := range l.messages {
		if m.ConversationID != conversationID {
			continue
		}
		out = append(out, m)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

// testEnv wires a full pipeline against the fake AI client and broadcaster.
type testEnv struct {
	store         *store.Store
	ai            *fakeAI
	broadcaster   *fakeBroadcaster
	eventLog      *fakeEventLog
	conversations *ConversationService
	knowledge     *KnowledgeService
	messages      *MessageService
	reports       *ReportService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	log := logger.NewNop()
	st, err := store.New(log)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	client := &fakeAI{}
	broadcaster := &fakeBroadcaster{}
	eventLog := &fakeEventLog{}

	conversations := NewConversationService(st, log)
	safety := NewSafetyGate(client, log)
	sentiment := NewSentimentClassifier(client, log)
	knowledge := NewKnowledgeService(st.Knowledge, log)
	generator := NewResponseGenerator(client, DefaultHistoryWindow, log)
	messages := NewMessageService(st, conversations, safety, sentiment, knowledge, generator, broadcaster, eventLog, 5, log)
	reports := NewReportService(st, conversations, broadcaster, nil, log)

	return &testEnv{
		store:         st,
		ai:            client,
		broadcaster:   broadcaster,
		eventLog:      eventLog,
		conversations: conversations,
		knowledge:     knowledge,
		messages:      messages,
		reports:       reports,
	}
}

func testCustomer(id string) *model.User {
	return &model.User{ID: id, Name: "Test Customer", Role: model.RoleCustomer, CreatedAt: time.Now()}
}

func testAgent(id string) *model.User {
	return &model.User{ID: id, Name: "Test Agent", Role: model.RoleAgent, CreatedAt: time.Now()}
}

func testAdmin(id string) *model.User {
	return &model.User{ID: id, Name: "Test Admin", Role: model.RoleAdmin, CreatedAt: time.Now()}
}

func (e *testEnv) newConversation(t *testing.T, owner *model.User) *model.Conversation {
	t.Helper()
	conv, err := e.conversations.Create(context.Background(), owner, &model.CreateConversationRequest{Title: "Billing question"})
	require.NoError(t, err)
	return conv
}
