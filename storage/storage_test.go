package storage

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type kvStore interface {
	Get(key string) (string, bool, error)
	Set(key, value string) error
	Delete(key string) error
	List(prefix string) ([]string, error)
}

func newSqliteKV(t *testing.T) *KV {
	t.Helper()
	db, err := NewSqliteDB(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	kv, err := NewKV(db)
	require.NoError(t, err)
	return kv
}

func backends(t *testing.T) map[string]kvStore {
	return map[string]kvStore{
		"sqlite": newSqliteKV(t),
		"memory": NewMemory(),
	}
}

func TestKV_SetGetDelete(t *testing.T) {
	for name, kv := range backends(t) {
		t.Run(name, func(t *testing.T) {
			_, ok, err := kv.Get("missing")
			require.NoError(t, err)
			assert.False(t, ok)

			require.NoError(t, kv.Set("session_id", "abc"))
			v, ok, err := kv.Get("session_id")
			require.NoError(t, err)
			assert.True(t, ok)
			assert.Equal(t, "abc", v)

			require.NoError(t, kv.Set("session_id", "def"))
			v, _, err = kv.Get("session_id")
			require.NoError(t, err)
			assert.Equal(t, "def", v)

			require.NoError(t, kv.Delete("session_id"))
			_, ok, err = kv.Get("session_id")
			require.NoError(t, err)
			assert.False(t, ok)

			// deleting again is a no-op
			require.NoError(t, kv.Delete("session_id"))
		})
	}
}

func TestKV_List(t *testing.T) {
	for name, kv := range backends(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, kv.Set("session_messages_b", "[]"))
			require.NoError(t, kv.Set("session_messages_a", "[]"))
			require.NoError(t, kv.Set("sessions", "[]"))
			require.NoError(t, kv.Set("session_messagesXc", "[]"))

			keys, err := kv.List("session_messages_")
			require.NoError(t, err)
			assert.Equal(t, []string{"session_messages_a", "session_messages_b"}, keys)

			keys, err = kv.List("nothing")
			require.NoError(t, err)
			assert.Empty(t, keys)
		})
	}
}

func TestKV_PersistsAcrossConnections(t *testing.T) {
	path := filepath.Join(t.TempDir(), "persist.db")

	db, err := NewSqliteDB(path)
	require.NoError(t, err)
	kv, err := NewKV(db)
	require.NoError(t, err)
	require.NoError(t, kv.Set("sessions", `[{"id":"1"}]`))
	require.NoError(t, db.Close())

	db, err = NewSqliteDB(path)
	require.NoError(t, err)
	defer db.Close()
	kv, err = NewKV(db)
	require.NoError(t, err)

	v, ok, err := kv.Get("sessions")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, `[{"id":"1"}]`, v)
}
