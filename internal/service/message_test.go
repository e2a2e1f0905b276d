package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/helpdesk-ai/support-platform/internal/ai"
	"github.com/helpdesk-ai/support-platform/internal/model"
	"github.com/helpdesk-ai/support-platform/internal/ws"
)

func TestMessageService_Send(t *testing.T) {
	ctx := context.Background()

	t.Run("full success persists both messages and updates counters", func(t *testing.T) {
		env := newTestEnv(t)
		customer := testCustomer("cust-1")
		conv := env.newConversation(t, customer)

		resp, err := env.messages.Send(ctx, customer, conv.ID, "How do I update my payment method?")
		require.NoError(t, err)
		require.NotNil(t, resp.UserMessage)
		require.NotNil(t, resp.AIMessage)
		assert.Empty(t, resp.AIError)

		assert.Equal(t, model.SenderUser, resp.UserMessage.SenderType)
		assert.Equal(t, model.SenderAI, resp.AIMessage.SenderType)
		assert.Equal(t, "test-model", resp.AIMessage.Metadata.Model)
		assert.Equal(t, int64(120), resp.AIMessage.Metadata.ProcessingTimeMs)

		updated, err := env.conversations.Get(ctx, customer, conv.ID)
		require.NoError(t, err)
		assert.Equal(t, 2, updated.Metadata.TotalMessages)
		assert.Equal(t, 1, updated.Metadata.UserMessages)
		assert.Equal(t, 1, updated.Metadata.AIMessages)
		assert.InDelta(t, 120.0, updated.Metadata.AverageResponseTime, 0.001)
	})

	t.Run("flagged content persists nothing", func(t *testing.T) {
		env := newTestEnv(t)
		env.ai.moderateFn = func(string) (*ai.ModerationResult, error) {
			return &ai.ModerationResult{Flagged: true, Categories: map[string]bool{"hate": true}}, nil
		}
		customer := testCustomer("cust-1")
		conv := env.newConversation(t, customer)

		_, err := env.messages.Send(ctx, customer, conv.ID, "flagged content")
		require.ErrorIs(t, err, ErrContentViolation)

		assert.Zero(t, env.store.Messages.CountByConversation(ctx, conv.ID))
		updated, err := env.conversations.Get(ctx, customer, conv.ID)
		require.NoError(t, err)
		assert.Zero(t, updated.Metadata.TotalMessages)
	})

	t.Run("moderation outage fails open", func(t *testing.T) {
		env := newTestEnv(t)
		env.ai.moderateFn = func(string) (*ai.ModerationResult, error) {
			return nil, errors.New("moderation endpoint down")
		}
		customer := testCustomer("cust-1")
		conv := env.newConversation(t, customer)

		resp, err := env.messages.Send(ctx, customer, conv.ID, "hello there")
		require.NoError(t, err)
		require.NotNil(t, resp.UserMessage)
		require.NotNil(t, resp.AIMessage)
	})

	t.Run("classifier outage degrades to neutral sentiment", func(t *testing.T) {
		env := newTestEnv(t)
		env.ai.classifyFn = func(string) (string, error) {
			return "", errors.New("classifier down")
		}
		customer := testCustomer("cust-1")
		conv := env.newConversation(t, customer)

		resp, err := env.messages.Send(ctx, customer, conv.ID, "hello there")
		require.NoError(t, err)
		assert.Equal(t, model.SentimentNeutral, resp.UserMessage.Metadata.Sentiment)
	})

	t.Run("unknown classifier answer falls back to neutral", func(t *testing.T) {
		env := newTestEnv(t)
		env.ai.classifyFn = func(string) (string, error) {
			return "ecstatic", nil
		}
		customer := testCustomer("cust-1")
		conv := env.newConversation(t, customer)

		resp, err := env.messages.Send(ctx, customer, conv.ID, "hello there")
		require.NoError(t, err)
		assert.Equal(t, model.SentimentNeutral, resp.UserMessage.Metadata.Sentiment)
	})

	t.Run("generation failure commits user message and reports partial outcome", func(t *testing.T) {
		env := newTestEnv(t)
		env.ai.generateFn = func([]ai.ChatMessage, ai.GenerationParams) (*ai.GenerationResult, error) {
			return nil, errors.New("provider timeout")
		}
		customer := testCustomer("cust-1")
		conv := env.newConversation(t, customer)

		resp, err := env.messages.Send(ctx, customer, conv.ID, "hello there")
		require.NoError(t, err)
		require.NotNil(t, resp.UserMessage)
		assert.Nil(t, resp.AIMessage)
		assert.Equal(t, "Failed to generate AI response. Please try again.", resp.AIError)

		assert.Equal(t, 1, env.store.Messages.CountByConversation(ctx, conv.ID))
		updated, err := env.conversations.Get(ctx, customer, conv.ID)
		require.NoError(t, err)
		assert.Equal(t, 1, updated.Metadata.TotalMessages)
		assert.Zero(t, updated.Metadata.AIMessages)
	})

	t.Run("agent involvement suppresses generation", func(t *testing.T) {
		env := newTestEnv(t)
		customer := testCustomer("cust-1")
		agent := testAgent("agent-1")
		conv := env.newConversation(t, customer)

		agentResp, err := env.messages.Send(ctx, agent, conv.ID, "Hi, I'm taking over this conversation.")
		require.NoError(t, err)
		assert.Nil(t, agentResp.AIMessage)
		assert.Empty(t, agentResp.AIError)

		resp, err := env.messages.Send(ctx, customer, conv.ID, "Thanks! Here's my question.")
		require.NoError(t, err)
		assert.Nil(t, resp.AIMessage)
		assert.Empty(t, resp.AIError)
		assert.Zero(t, env.ai.generations())
	})

	t.Run("agent message claims the conversation and skips the user counter", func(t *testing.T) {
		env := newTestEnv(t)
		customer := testCustomer("cust-1")
		agent := testAgent("agent-1")
		conv := env.newConversation(t, customer)

		resp, err := env.messages.Send(ctx, agent, conv.ID, "Taking a look now.")
		require.NoError(t, err)
		assert.Equal(t, model.SenderAgent, resp.UserMessage.SenderType)

		updated, err := env.conversations.Get(ctx, customer, conv.ID)
		require.NoError(t, err)
		assert.True(t, updated.IsAgentInvolved)
		assert.Equal(t, agent.ID, updated.AssignedAgentID)
		assert.Equal(t, 1, updated.Metadata.TotalMessages)
		assert.Zero(t, updated.Metadata.UserMessages)
	})

	t.Run("empty content is rejected", func(t *testing.T) {
		env := newTestEnv(t)
		customer := testCustomer("cust-1")
		conv := env.newConversation(t, customer)

		_, err := env.messages.Send(ctx, customer, conv.ID, "   ")
		require.ErrorIs(t, err, ErrInvalidInput)
	})

	t.Run("customer cannot send into another customer's conversation", func(t *testing.T) {
		env := newTestEnv(t)
		owner := testCustomer("cust-1")
		intruder := testCustomer("cust-2")
		conv := env.newConversation(t, owner)

		_, err := env.messages.Send(ctx, intruder, conv.ID, "hello")
		require.ErrorIs(t, err, ErrForbidden)
	})

	t.Run("user echo excludes the sender, AI broadcast reaches the whole room", func(t *testing.T) {
		env := newTestEnv(t)
		customer := testCustomer("cust-1")
		conv := env.newConversation(t, customer)

		_, err := env.messages.Send(ctx, customer, conv.ID, "hello there")
		require.NoError(t, err)

		received := env.broadcaster.roomEvents(ws.EventMessageReceived)
		require.Len(t, received, 2)
		assert.Equal(t, customer.ID, received[0].Exclude)
		assert.Empty(t, received[1].Exclude)

		typing := env.broadcaster.roomEvents(ws.EventAITyping)
		require.Len(t, typing, 1)
		assert.Equal(t, customer.ID, typing[0].Exclude)
	})

	t.Run("retrieval candidates are charged usage exactly once per cycle", func(t *testing.T) {
		env := newTestEnv(t)
		customer := testCustomer("cust-1")
		conv := env.newConversation(t, customer)

		entry, err := env.knowledge.Create(ctx, "admin-1", &model.CreateKnowledgeRequest{
			Category: model.CategoryBilling,
			Question: "How do I update my payment method?",
			Answer:   "Open Settings, then Billing, then Payment Methods.",
			Keywords: []string{"payment", "billing"},
		})
		require.NoError(t, err)

		_, err = env.messages.Send(ctx, customer, conv.ID, "How do I update my payment method?")
		require.NoError(t, err)

		stored, err := env.knowledge.Get(ctx, entry.ID)
		require.NoError(t, err)
		assert.Equal(t, 1, stored.UsageCount)
	})

	t.Run("concurrent sends never lose counter updates", func(t *testing.T) {
		env := newTestEnv(t)
		customer := testCustomer("cust-1")
		agent := testAgent("agent-1")
		conv := env.newConversation(t, customer)

		// Put an agent in the loop first so sends do not trigger generation.
		_, err := env.messages.Send(ctx, agent, conv.ID, "On it.")
		require.NoError(t, err)

		const sends = 16
		var wg sync.WaitGroup
		for i := 0; i < sends; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := env.messages.Send(ctx, customer, conv.ID, "another detail")
				assert.NoError(t, err)
			}()
		}
		wg.Wait()

		updated, err := env.conversations.Get(ctx, customer, conv.ID)
		require.NoError(t, err)
		assert.Equal(t, sends+1, updated.Metadata.TotalMessages)
		assert.Equal(t, sends, updated.Metadata.UserMessages)
	})
}

func TestMessageService_List(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	customer := testCustomer("cust-1")
	conv := env.newConversation(t, customer)

	for i := 0; i < 3; i++ {
		_, err := env.messages.Send(ctx, customer, conv.ID, "hello again")
		require.NoError(t, err)
	}

	messages, err := env.messages.List(ctx, customer, conv.ID, 0, 0)
	require.NoError(t, err)
	// Three user messages and three AI replies, in creation order.
	require.Len(t, messages, 6)
	assert.Equal(t, model.SenderUser, messages[0].SenderType)
	assert.Equal(t, model.SenderAI, messages[1].SenderType)

	_, err = env.messages.List(ctx, testCustomer("cust-2"), conv.ID, 0, 0)
	require.ErrorIs(t, err, ErrForbidden)
}

func TestMessageService_MarkRead(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	customer := testCustomer("cust-1")
	conv := env.newConversation(t, customer)

	resp, err := env.messages.Send(ctx, customer, conv.ID, "hello there")
	require.NoError(t, err)

	err = env.messages.MarkRead(ctx, customer, conv.ID, []string{resp.AIMessage.ID})
	require.NoError(t, err)

	messages, err := env.messages.List(ctx, customer, conv.ID, 0, 0)
	require.NoError(t, err)
	require.Len(t, messages, 2)
	assert.False(t, messages[0].IsRead)
	assert.True(t, messages[1].IsRead)
	require.NotNil(t, messages[1].ReadAt)
	firstReadAt := *messages[1].ReadAt

	// Marking again must not move the timestamp.
	err = env.messages.MarkRead(ctx, customer, conv.ID, []string{resp.AIMessage.ID})
	require.NoError(t, err)
	messages, err = env.messages.List(ctx, customer, conv.ID, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, firstReadAt, *messages[1].ReadAt)

	reads := env.broadcaster.roomEvents(ws.EventMessageRead)
	require.NotEmpty(t, reads)
	assert.Equal(t, customer.ID, reads[0].Exclude)
}

func TestMessageService_AuditLog(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	customer := testCustomer("cust-1")
	conv := env.newConversation(t, customer)

	resp, err := env.messages.Send(ctx, customer, conv.ID, "Where do I find my invoices?")
	require.NoError(t, err)
	require.NotNil(t, resp.AIMessage)

	t.Run("reviewers replay the durable log oldest first", func(t *testing.T) {
		logged, err := env.messages.AuditLog(ctx, testAgent("agent-1"), conv.ID, 0)
		require.NoError(t, err)
		require.Len(t, logged, 2)
		assert.Equal(t, model.SenderUser, logged[0].SenderType)
		assert.Equal(t, model.SenderAI, logged[1].SenderType)
	})

	t.Run("customers are refused", func(t *testing.T) {
		_, err := env.messages.AuditLog(ctx, customer, conv.ID, 0)
		require.ErrorIs(t, err, ErrForbidden)
	})

	t.Run("unknown conversation", func(t *testing.T) {
		_, err := env.messages.AuditLog(ctx, testAdmin("admin-1"), "no-such-conversation", 0)
		require.ErrorIs(t, err, ErrNotFound)
	})
}
