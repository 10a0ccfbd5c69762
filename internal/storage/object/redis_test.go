package object_test

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	backend "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/artfoundry/atelier/backend/internal/storage/object"
)

func newStore(t *testing.T) *object.RedisStore {
	t.Helper()

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := backend.NewClient(&backend.Options{Addr: mr.Addr()})
	return object.NewFromClient(client)
}

func TestRedisStorePutGet(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, "stability_sessions/demo/session_data", []byte(`{"step":"base"}`)))

	data, err := store.Get(ctx, "stability_sessions/demo/session_data")
	require.NoError(t, err)
	require.Equal(t, []byte(`{"step":"base"}`), data)
}

func TestRedisStoreGetMissing(t *testing.T) {
	store := newStore(t)

	_, err := store.Get(context.Background(), "stability_sessions/ghost/session_data")
	require.ErrorIs(t, err, object.ErrNotFound)
}

func TestRedisStoreExists(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	ok, err := store.Exists(ctx, "titan_sessions/demo/base_images/abc.png")
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, store.Put(ctx, "titan_sessions/demo/base_images/abc.png", []byte{1, 2, 3}))

	ok, err = store.Exists(ctx, "titan_sessions/demo/base_images/abc.png")
	require.NoError(t, err)
	require.True(t, ok)
}

func TestRedisStoreListByPrefix(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, "stability_sessions/a/session_data", []byte("a")))
	require.NoError(t, store.Put(ctx, "stability_sessions/b/session_data", []byte("b")))
	require.NoError(t, store.Put(ctx, "titan_sessions/c/session_data", []byte("c")))

	keys, err := store.List(ctx, "stability_sessions/")
	require.NoError(t, err)
	require.Equal(t, []string{
		"stability_sessions/a/session_data",
		"stability_sessions/b/session_data",
	}, keys)
}

func TestRedisStoreListPrefixIsLiteral(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, "stability_sessions/ab/session_data", []byte("ab")))
	require.NoError(t, store.Put(ctx, "stability_sessions/a?/session_data", []byte("a?")))
	require.NoError(t, store.Put(ctx, "stability_sessions/a*/session_data", []byte("a*")))
	require.NoError(t, store.Put(ctx, "stability_sessions/a[b]/session_data", []byte("a[b]")))

	// A prefix containing glob metacharacters matches only its own keys,
	// never a neighboring session's.
	keys, err := store.List(ctx, "stability_sessions/a?/")
	require.NoError(t, err)
	require.Equal(t, []string{"stability_sessions/a?/session_data"}, keys)

	keys, err = store.List(ctx, "stability_sessions/a*/")
	require.NoError(t, err)
	require.Equal(t, []string{"stability_sessions/a*/session_data"}, keys)

	keys, err = store.List(ctx, "stability_sessions/a[b]/")
	require.NoError(t, err)
	require.Equal(t, []string{"stability_sessions/a[b]/session_data"}, keys)
}

func TestRedisStoreDeleteIsIdempotent(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, "stability_sessions/a/session_data", []byte("a")))
	require.NoError(t, store.Delete(ctx, "stability_sessions/a/session_data"))
	require.NoError(t, store.Delete(ctx, "stability_sessions/a/session_data"))

	_, err := store.Get(ctx, "stability_sessions/a/session_data")
	require.ErrorIs(t, err, object.ErrNotFound)
}
