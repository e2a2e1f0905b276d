package store

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/helpdesk-ai/support-platform/internal/model"
)

func conversation(id, userID string, lastMessageAt time.Time) model.Conversation {
	now := time.Now()
	return model.Conversation{
		ID:        id,
		UserID:    userID,
		Title:     "test",
		Status:    model.StatusActive,
		Sentiment: model.SentimentNeutral,
		Category:  model.CategoryGeneral,
		Metadata:  model.ConversationMetadata{LastMessageAt: lastMessageAt},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func TestConversationStore_UpdateSerializesCounterBumps(t *testing.T) {
	ctx := context.Background()
	s := NewConversationStore()
	require.NoError(t, s.Create(ctx, conversation("c1", "u1", time.Now())))

	const workers = 32
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.Update(ctx, "c1", func(c *model.Conversation) error {
				c.Metadata.TotalMessages++
				return nil
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	got, err := s.Get(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, workers, got.Metadata.TotalMessages)
}

func TestConversationStore_UpdateRollsBackOnError(t *testing.T) {
	ctx := context.Background()
	s := NewConversationStore()
	require.NoError(t, s.Create(ctx, conversation("c1", "u1", time.Now())))

	_, err := s.Update(ctx, "c1", func(c *model.Conversation) error {
		return assert.AnError
	})
	require.ErrorIs(t, err, assert.AnError)
}

func TestConversationStore_GetReturnsCopy(t *testing.T) {
	ctx := context.Background()
	s := NewConversationStore()
	require.NoError(t, s.Create(ctx, conversation("c1", "u1", time.Now())))

	got, err := s.Get(ctx, "c1")
	require.NoError(t, err)
	got.Title = "mutated"

	again, err := s.Get(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, "test", again.Title)
}

func TestConversationStore_ListOrdersByActivity(t *testing.T) {
	ctx := context.Background()
	s := NewConversationStore()

	base := time.Now()
	require.NoError(t, s.Create(ctx, conversation("old", "u1", base.Add(-time.Hour))))
	require.NoError(t, s.Create(ctx, conversation("new", "u1", base)))
	require.NoError(t, s.Create(ctx, conversation("other", "u2", base.Add(-time.Minute))))

	out, err := s.List(ctx, func(c *model.Conversation) bool { return c.UserID == "u1" })
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, "new", out[0].ID)
	assert.Equal(t, "old", out[1].ID)

	all, err := s.List(ctx, nil)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestConversationStore_NotFound(t *testing.T) {
	ctx := context.Background()
	s := NewConversationStore()

	_, err := s.Get(ctx, "missing")
	require.ErrorIs(t, err, ErrNotFound)

	_, err = s.Update(ctx, "missing", func(*model.Conversation) error { return nil })
	require.ErrorIs(t, err, ErrNotFound)

	require.ErrorIs(t, s.Delete(ctx, "missing"), ErrNotFound)
}
