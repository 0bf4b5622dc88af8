package session

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func signed(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("any-secret"))
	require.NoError(t, err)
	return token
}

func TestDecodeClaims(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		claims   jwt.MapClaims
		wantID   string
		wantName string
	}{
		{"top level", jwt.MapClaims{"_id": "u1", "username": "alice"}, "u1", "alice"},
		{"nested payload", jwt.MapClaims{"payload": map[string]any{"_id": "u2", "username": "bob"}}, "u2", "bob"},
		{"nested user with numeric id", jwt.MapClaims{"user": map[string]any{"id": 7, "username": "carol"}}, "7", "carol"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			u, err := DecodeClaims(signed(t, tt.claims))
			require.NoError(t, err)
			assert.Equal(t, tt.wantID, string(u.IDs()[0]))
			assert.Equal(t, tt.wantName, u.Username)
		})
	}

	_, err := DecodeClaims("not-a-token")
	assert.ErrorIs(t, err, ErrMalformedToken)
}

func TestSession_Lifecycle(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := &MemoryStore{}
	s := New(store)

	require.NoError(t, s.Init(ctx))
	assert.False(t, s.SignedIn())
	assert.Nil(t, s.User())

	token := signed(t, jwt.MapClaims{"_id": "u1", "username": "alice"})
	u, err := s.Set(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, "alice", u.Username)
	assert.Equal(t, token, s.Token())

	u.Username = "mutated"
	assert.Equal(t, "alice", s.User().Username, "callers get copies")

	restored := New(store)
	require.NoError(t, restored.Init(ctx))
	assert.Equal(t, "alice", restored.User().Username)

	require.NoError(t, s.Clear(ctx))
	assert.False(t, s.SignedIn())
	stored, _ := store.Load(ctx)
	assert.Empty(t, stored)
}

func TestSession_SetRejectsGarbageWithoutPersisting(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := &MemoryStore{}
	s := New(store)

	_, err := s.Set(ctx, "garbage")
	assert.ErrorIs(t, err, ErrMalformedToken)
	stored, _ := store.Load(ctx)
	assert.Empty(t, stored)
}

func TestSession_InitDropsUndecodableToken(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := &MemoryStore{}
	require.NoError(t, store.Save(ctx, "garbage"))

	s := New(store)
	require.NoError(t, s.Init(ctx))
	assert.False(t, s.SignedIn())
	stored, _ := store.Load(ctx)
	assert.Empty(t, stored)
}

func TestFileStore(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "token")
	store := FileStore{Path: path}

	got, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, got)

	require.NoError(t, store.Save(ctx, "tok"))
	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	got, err = store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, "tok", got)

	require.NoError(t, store.Clear(ctx))
	require.NoError(t, store.Clear(ctx))
}

func TestRedisStore(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	store := NewRedisStore(client)

	got, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, got)

	require.NoError(t, store.Save(ctx, "tok"))
	v, err := mr.Get(RedisKey)
	require.NoError(t, err)
	assert.Equal(t, "tok", v)

	require.NoError(t, store.Clear(ctx))
	assert.False(t, mr.Exists(RedisKey))
}
