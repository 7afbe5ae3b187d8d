package quizme

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func exerciseStore(t *testing.T, store StateStore) {
	t.Helper()
	ctx := context.Background()
	id := "amzn1.ask.session." + uuid.NewString()

	st, err := store.Load(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, NewSessionState(), st)

	e := NewEngine(StaticSource{Cards: capitals()}, LexicalJudge{})
	_, st = e.Handle(ctx, st, Action{Kind: ActionStart})
	_, st = e.Handle(ctx, st, Action{Kind: ActionAnswer, Answer: "Spain"})
	require.NoError(t, store.Save(ctx, id, st))

	loaded, err := store.Load(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, st, loaded)

	other, err := store.Load(ctx, id+"-other")
	require.NoError(t, err)
	assert.Equal(t, PhaseIdle, other.Phase())

	require.NoError(t, store.Delete(ctx, id))
	gone, err := store.Load(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, NewSessionState(), gone)
}

func TestMemoryStore(t *testing.T) {
	store := NewMemoryStore()
	exerciseStore(t, store)
	assert.Zero(t, store.Len())
}

func TestRedisStore(t *testing.T) {
	redisURL := os.Getenv("REDIS_URL")
	if redisURL == "" {
		t.Skip("REDIS_URL not set")
	}

	client, err := NewRedisClient(context.Background(), redisURL)
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })

	store := NewRedisStore(client, time.Minute)
	exerciseStore(t, store)

	id := "ttl-" + uuid.NewString()
	require.NoError(t, store.Save(context.Background(), id, NewSessionState()))
	ttl, err := client.TTL(context.Background(), redisKeyPrefix+id).Result()
	require.NoError(t, err)
	assert.Greater(t, ttl, time.Duration(0))
	assert.LessOrEqual(t, ttl, time.Minute)
	require.NoError(t, store.Delete(context.Background(), id))
}

func TestNewRedisClient_BadURL(t *testing.T) {
	_, err := NewRedisClient(context.Background(), "not a redis url")
	assert.Error(t, err)
}
