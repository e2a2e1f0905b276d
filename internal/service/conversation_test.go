package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/helpdesk-ai/support-platform/internal/model"
)

func TestConversationService_Create(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	customer := testCustomer("cust-1")

	t.Run("applies defaults", func(t *testing.T) {
		conv, err := env.conversations.Create(ctx, customer, &model.CreateConversationRequest{})
		require.NoError(t, err)
		assert.Equal(t, "New Conversation", conv.Title)
		assert.Equal(t, model.CategoryGeneral, conv.Category)
		assert.Equal(t, model.StatusActive, conv.Status)
		assert.Equal(t, model.SentimentNeutral, conv.Sentiment)
		assert.Equal(t, customer.ID, conv.UserID)
		assert.False(t, conv.IsAgentInvolved)
	})

	t.Run("keeps provided title and category", func(t *testing.T) {
		conv, err := env.conversations.Create(ctx, customer, &model.CreateConversationRequest{
			Title:    "Refund request",
			Category: model.CategoryBilling,
		})
		require.NoError(t, err)
		assert.Equal(t, "Refund request", conv.Title)
		assert.Equal(t, model.CategoryBilling, conv.Category)
	})
}

func TestConversationService_Access(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	owner := testCustomer("cust-1")
	conv := env.newConversation(t, owner)

	t.Run("owner reads own conversation", func(t *testing.T) {
		got, err := env.conversations.Get(ctx, owner, conv.ID)
		require.NoError(t, err)
		assert.Equal(t, conv.ID, got.ID)
	})

	t.Run("other customers are rejected", func(t *testing.T) {
		_, err := env.conversations.Get(ctx, testCustomer("cust-2"), conv.ID)
		require.ErrorIs(t, err, ErrForbidden)
	})

	t.Run("agents and admins read any conversation", func(t *testing.T) {
		_, err := env.conversations.Get(ctx, testAgent("agent-1"), conv.ID)
		require.NoError(t, err)
		_, err = env.conversations.Get(ctx, testAdmin("admin-1"), conv.ID)
		require.NoError(t, err)
	})

	t.Run("unknown conversation is not found", func(t *testing.T) {
		_, err := env.conversations.Get(ctx, owner, "00000000-0000-0000-0000-000000000000")
		require.ErrorIs(t, err, ErrNotFound)
	})
}

func TestConversationService_List(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	alice := testCustomer("cust-alice")
	bob := testCustomer("cust-bob")
	agent := testAgent("agent-1")

	aliceConv := env.newConversation(t, alice)
	env.newConversation(t, bob)

	_, err := env.conversations.Update(ctx, agent, aliceConv.ID, &model.UpdateConversationRequest{
		AssignedAgent: agent.ID,
	})
	require.NoError(t, err)

	t.Run("customers see only their own", func(t *testing.T) {
		out, err := env.conversations.List(ctx, alice)
		require.NoError(t, err)
		require.Len(t, out, 1)
		assert.Equal(t, aliceConv.ID, out[0].ID)
	})

	t.Run("agents see assigned or escalated", func(t *testing.T) {
		out, err := env.conversations.List(ctx, agent)
		require.NoError(t, err)
		require.Len(t, out, 1)
		assert.Equal(t, aliceConv.ID, out[0].ID)
	})

	t.Run("admins see everything", func(t *testing.T) {
		out, err := env.conversations.List(ctx, testAdmin("admin-1"))
		require.NoError(t, err)
		assert.Len(t, out, 2)
	})
}

func TestConversationService_Update(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	owner := testCustomer("cust-1")
	agent := testAgent("agent-1")
	conv := env.newConversation(t, owner)

	t.Run("customers may not triage", func(t *testing.T) {
		_, err := env.conversations.Update(ctx, owner, conv.ID, &model.UpdateConversationRequest{Status: model.StatusResolved})
		require.ErrorIs(t, err, ErrForbidden)
	})

	t.Run("unknown status is rejected", func(t *testing.T) {
		_, err := env.conversations.Update(ctx, agent, conv.ID, &model.UpdateConversationRequest{Status: "archived"})
		require.ErrorIs(t, err, ErrInvalidInput)
	})

	t.Run("any valid status may be set without transition guards", func(t *testing.T) {
		updated, err := env.conversations.Update(ctx, agent, conv.ID, &model.UpdateConversationRequest{Status: model.StatusResolved})
		require.NoError(t, err)
		assert.Equal(t, model.StatusResolved, updated.Status)

		updated, err = env.conversations.Update(ctx, agent, conv.ID, &model.UpdateConversationRequest{Status: model.StatusActive})
		require.NoError(t, err)
		assert.Equal(t, model.StatusActive, updated.Status)
	})

	t.Run("assignment marks agent involvement", func(t *testing.T) {
		updated, err := env.conversations.Update(ctx, agent, conv.ID, &model.UpdateConversationRequest{AssignedAgent: agent.ID})
		require.NoError(t, err)
		assert.Equal(t, agent.ID, updated.AssignedAgentID)
		assert.True(t, updated.IsAgentInvolved)
	})
}

func TestConversationService_Delete(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	owner := testCustomer("cust-1")
	admin := testAdmin("admin-1")
	conv := env.newConversation(t, owner)

	_, err := env.messages.Send(ctx, owner, conv.ID, "hello")
	require.NoError(t, err)
	require.NotZero(t, env.store.Messages.CountByConversation(ctx, conv.ID))

	require.ErrorIs(t, env.conversations.Delete(ctx, owner, conv.ID), ErrForbidden)
	require.ErrorIs(t, env.conversations.Delete(ctx, testAgent("agent-1"), conv.ID), ErrForbidden)

	require.NoError(t, env.conversations.Delete(ctx, admin, conv.ID))
	_, err = env.conversations.Get(ctx, admin, conv.ID)
	require.ErrorIs(t, err, ErrNotFound)
	assert.Zero(t, env.store.Messages.CountByConversation(ctx, conv.ID))
}

func TestConversationService_RecordAIMessage(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	owner := testCustomer("cust-1")
	conv := env.newConversation(t, owner)

	// The running average over times t1..tn equals their exact mean.
	for _, ms := range []int64{100, 200, 300} {
		_, err := env.conversations.RecordAIMessage(ctx, conv.ID, ms)
		require.NoError(t, err)
	}

	updated, err := env.conversations.Get(ctx, owner, conv.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, updated.Metadata.AIMessages)
	assert.Equal(t, 3, updated.Metadata.TotalMessages)
	assert.InDelta(t, 200.0, updated.Metadata.AverageResponseTime, 0.001)
}

func TestConversationService_AgentInvolvementIsMonotonic(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	owner := testCustomer("cust-1")
	agent := testAgent("agent-1")
	conv := env.newConversation(t, owner)

	_, err := env.conversations.RecordUserMessage(ctx, conv.ID, model.SentimentNeutral, model.SenderAgent, agent.ID)
	require.NoError(t, err)

	// Later customer messages must not reset the flag or the assignment.
	_, err = env.conversations.RecordUserMessage(ctx, conv.ID, model.SentimentPositive, model.SenderUser, owner.ID)
	require.NoError(t, err)

	updated, err := env.conversations.Get(ctx, owner, conv.ID)
	require.NoError(t, err)
	assert.True(t, updated.IsAgentInvolved)
	assert.Equal(t, agent.ID, updated.AssignedAgentID)
	assert.Equal(t, model.SentimentPositive, updated.Sentiment)
}
