package redis

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lokmanch/lokmanch/internal/domain"
)

func setupRedis(t *testing.T) *redis.Client {
	mr, err := miniredis.Run()
	require.NoError(t, err)

	client := redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})

	t.Cleanup(func() {
		client.Close()
		mr.Close()
	})

	return client
}

func TestViewCounter_Hit_Accumulates(t *testing.T) {
	client := setupRedis(t)
	views := NewViewCounter(client, "views")

	ctx := context.Background()
	post := domain.PostID("01HXXXXXXXXXXXXXXXXXXXXX")

	first, err := views.Hit(ctx, post)
	require.NoError(t, err)
	second, err := views.Hit(ctx, post)
	require.NoError(t, err)

	assert.Equal(t, int64(1), first)
	assert.Equal(t, int64(2), second)
}

func TestViewCounter_Drain_ReturnsAndResets(t *testing.T) {
	client := setupRedis(t)
	views := NewViewCounter(client, "views")

	ctx := context.Background()
	postA := domain.PostID("01HXXXXXXXXXXXXXXXXXXXXA")
	postB := domain.PostID("01HXXXXXXXXXXXXXXXXXXXXB")

	for i := 0; i < 3; i++ {
		_, err := views.Hit(ctx, postA)
		require.NoError(t, err)
	}
	_, err := views.Hit(ctx, postB)
	require.NoError(t, err)

	drained, err := views.Drain(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), drained[postA])
	assert.Equal(t, int64(1), drained[postB])

	// A second drain must see nothing; hits are flushed exactly once.
	again, err := views.Drain(ctx)
	require.NoError(t, err)
	assert.Empty(t, again)
}

func TestViewCounter_Drain_EmptyIsNoop(t *testing.T) {
	client := setupRedis(t)
	views := NewViewCounter(client, "views")

	drained, err := views.Drain(context.Background())
	require.NoError(t, err)
	assert.Empty(t, drained)
}

func TestViewCounter_Drain_StaleDirtyFlag_IsCleared(t *testing.T) {
	client := setupRedis(t)
	views := NewViewCounter(client, "views")
	ctx := context.Background()

	// A flag without a counter is what a half-finished earlier drain leaves
	// behind. It must not survive or produce a delta.
	require.NoError(t, client.SAdd(ctx, "views:dirty", "01HXXXXXXXXXXXXXXXXXXXXD").Err())

	drained, err := views.Drain(ctx)
	require.NoError(t, err)
	assert.Empty(t, drained)

	members, err := client.SMembers(ctx, "views:dirty").Result()
	require.NoError(t, err)
	assert.Empty(t, members)
}

func TestViewCounter_Drain_KeepsNewHitsAfterDrain(t *testing.T) {
	client := setupRedis(t)
	views := NewViewCounter(client, "views")

	ctx := context.Background()
	post := domain.PostID("01HXXXXXXXXXXXXXXXXXXXXC")

	_, err := views.Hit(ctx, post)
	require.NoError(t, err)
	_, err = views.Drain(ctx)
	require.NoError(t, err)

	_, err = views.Hit(ctx, post)
	require.NoError(t, err)

	drained, err := views.Drain(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), drained[post])
}
