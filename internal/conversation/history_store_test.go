package conversation

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestHistoryStore(t *testing.T) (*HistoryStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewHistoryStore(client, time.Hour), mr
}

func TestHistoryStoreSaveAndLoad(t *testing.T) {
	store, _ := newTestHistoryStore(t)
	ctx := context.Background()

	history := []ChatMessage{
		{Role: ChatRoleUser, Content: "I want to book an appointment"},
		{Role: ChatRoleAssistant, Content: "What date works for you?"},
	}
	require.NoError(t, store.Save(ctx, "session-1", history))

	loaded, err := store.Load(ctx, "session-1")
	require.NoError(t, err)
	assert.Equal(t, history, loaded)
}

func TestHistoryStoreLoadUnknownSession(t *testing.T) {
	store, _ := newTestHistoryStore(t)

	loaded, err := store.Load(context.Background(), "never-seen")
	require.NoError(t, err)
	assert.Empty(t, loaded)
}

func TestHistoryStoreAppend(t *testing.T) {
	store, _ := newTestHistoryStore(t)
	ctx := context.Background()

	require.NoError(t, store.Append(ctx, "session-2",
		ChatMessage{Role: ChatRoleUser, Content: "hello"}))
	require.NoError(t, store.Append(ctx, "session-2",
		ChatMessage{Role: ChatRoleAssistant, Content: "hi, how can I help?"},
		ChatMessage{Role: ChatRoleUser, Content: "what are your hours?"}))

	loaded, err := store.Load(ctx, "session-2")
	require.NoError(t, err)
	require.Len(t, loaded, 3)
	assert.Equal(t, "what are your hours?", loaded[2].Content)
}

func TestHistoryStoreExpiry(t *testing.T) {
	store, mr := newTestHistoryStore(t)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, "session-3", []ChatMessage{{Role: ChatRoleUser, Content: "hi"}}))
	mr.FastForward(2 * time.Hour)

	loaded, err := store.Load(ctx, "session-3")
	require.NoError(t, err)
	assert.Empty(t, loaded)
}
