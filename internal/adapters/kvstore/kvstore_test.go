package kvstore

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type store interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Put(ctx context.Context, key string, value []byte) error
	Stop()
}

func exerciseStore(t *testing.T, s store) {
	t.Helper()
	ctx := context.Background()

	_, ok, err := s.Get(ctx, "rules")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.Put(ctx, "rules", []byte(`{"a@x.com":"A"}`)))
	value, ok, err := s.Get(ctx, "rules")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.JSONEq(t, `{"a@x.com":"A"}`, string(value))

	require.NoError(t, s.Put(ctx, "rules", []byte(`{}`)))
	value, ok, err = s.Get(ctx, "rules")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "{}", string(value))
}

func TestMemoryStore(t *testing.T) {
	s := NewMemoryStore("default", zap.NewNop())
	defer s.Stop()
	exerciseStore(t, s)
}

func TestMemoryStoreCopiesValues(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore("default", zap.NewNop())

	value := []byte("abc")
	require.NoError(t, s.Put(ctx, "k", value))
	value[0] = 'z'

	got, _, err := s.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "abc", string(got))
}

func TestSQLiteStore(t *testing.T) {
	s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "kv.db"), "default", zap.NewNop())
	require.NoError(t, err)
	defer s.Stop()
	exerciseStore(t, s)
}

func TestSQLiteStoreScopes(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "kv.db")

	alice, err := NewSQLiteStore(path, "alice", zap.NewNop())
	require.NoError(t, err)
	defer alice.Stop()
	bob, err := NewSQLiteStore(path, "bob", zap.NewNop())
	require.NoError(t, err)
	defer bob.Stop()

	require.NoError(t, alice.Put(ctx, "rules", []byte(`{"x@y.com":"A"}`)))

	_, ok, err := bob.Get(ctx, "rules")
	require.NoError(t, err)
	assert.False(t, ok)

	_, ok, err = alice.Get(ctx, "rules")
	require.NoError(t, err)
	assert.True(t, ok)
}
