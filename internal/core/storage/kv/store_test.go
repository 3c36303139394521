package kv

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dep2p/go-dds/internal/core/storage/engine"
	"github.com/dep2p/go-dds/internal/core/storage/engine/badger"
)

func testStore(t *testing.T, prefix string) (*Store, engine.InternalEngine) {
	t.Helper()
	eng, err := badger.New(engine.DefaultConfig(filepath.Join(t.TempDir(), "kv.db")))
	require.NoError(t, err)
	t.Cleanup(func() { _ = eng.Close() })
	return New(eng, []byte(prefix)), eng
}

func TestStore_PrefixIsolation(t *testing.T) {
	s, eng := testStore(t, "s/")
	other := New(eng, []byte("m/"))

	require.NoError(t, s.Put([]byte("k"), []byte("sample")))
	require.NoError(t, other.Put([]byte("k"), []byte("meta")))

	raw, err := eng.Get([]byte("s/k"))
	require.NoError(t, err)
	assert.Equal(t, []byte("sample"), raw)

	got, err := other.Get([]byte("k"))
	require.NoError(t, err)
	assert.Equal(t, []byte("meta"), got)
}

func TestStore_JSON(t *testing.T) {
	s, _ := testStore(t, "m/")

	type meta struct {
		Type  string
		Count int
	}
	require.NoError(t, s.PutJSON([]byte("topic"), meta{Type: "T", Count: 2}))

	var got meta
	require.NoError(t, s.GetJSON([]byte("topic"), &got))
	assert.Equal(t, meta{Type: "T", Count: 2}, got)

	assert.ErrorIs(t, s.GetJSON([]byte("missing"), &got), engine.ErrNotFound)
}

func TestStore_ScanCountDeletePrefix(t *testing.T) {
	s, _ := testStore(t, "s/")
	topic := s.SubStore([]byte("chat/"))

	b := topic.NewBatch()
	b.Put([]byte("1"), []byte("a"))
	b.Put([]byte("2"), []byte("b"))
	require.NoError(t, b.Write())
	require.NoError(t, s.Put([]byte("other/1"), []byte("c")))

	var keys []string
	require.NoError(t, topic.PrefixScan(nil, func(k, _ []byte) bool {
		keys = append(keys, string(k))
		return true
	}))
	assert.Equal(t, []string{"1", "2"}, keys)

	n, err := s.Count([]byte("chat/"))
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	require.NoError(t, topic.DeletePrefix(nil))
	n, err = s.Count(nil)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}
