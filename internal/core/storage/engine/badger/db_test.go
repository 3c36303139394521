package badger

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dep2p/go-dds/internal/core/storage/engine"
)

// testEngine 使用 t.TempDir() 创建引擎
func testEngine(t *testing.T) *Engine {
	t.Helper()

	e, err := New(engine.DefaultConfig(filepath.Join(t.TempDir(), "test.db")))
	require.NoError(t, err)
	t.Cleanup(func() { _ = e.Close() })
	return e
}

func TestEngine_PutGetDelete(t *testing.T) {
	e := testEngine(t)

	require.NoError(t, e.Put([]byte("k"), []byte("v")))

	got, err := e.Get([]byte("k"))
	require.NoError(t, err)
	assert.Equal(t, []byte("v"), got)

	ok, err := e.Has([]byte("k"))
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, e.Delete([]byte("k")))
	_, err = e.Get([]byte("k"))
	assert.ErrorIs(t, err, engine.ErrNotFound)

	ok, err = e.Has([]byte("k"))
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestEngine_EmptyKey(t *testing.T) {
	e := testEngine(t)

	assert.ErrorIs(t, e.Put(nil, []byte("v")), engine.ErrEmptyKey)
	_, err := e.Get(nil)
	assert.ErrorIs(t, err, engine.ErrEmptyKey)
}

func TestEngine_BatchAndPrefixIterator(t *testing.T) {
	e := testEngine(t)

	b := e.NewBatch()
	b.Put([]byte("a/1"), []byte("one"))
	b.Put([]byte("a/2"), []byte("two"))
	b.Put([]byte("b/1"), []byte("other"))
	assert.Equal(t, 3, b.Size())
	require.NoError(t, b.Write())
	assert.ErrorIs(t, b.Write(), engine.ErrBatchClosed)

	it := e.NewPrefixIterator([]byte("a/"))
	defer it.Close()

	var keys, values []string
	for it.First(); it.Valid(); it.Next() {
		keys = append(keys, string(it.Key()))
		values = append(values, string(it.Value()))
	}
	require.NoError(t, it.Error())
	assert.Equal(t, []string{"a/1", "a/2"}, keys)
	assert.Equal(t, []string{"one", "two"}, values)
}

func TestEngine_Reopen(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "reopen.db")

	e, err := New(engine.DefaultConfig(dir))
	require.NoError(t, err)
	require.NoError(t, e.Put([]byte("persist"), []byte("yes")))
	require.NoError(t, e.Close())

	e2, err := New(engine.DefaultConfig(dir))
	require.NoError(t, err)
	defer e2.Close()

	got, err := e2.Get([]byte("persist"))
	require.NoError(t, err)
	assert.Equal(t, []byte("yes"), got)
}

func TestEngine_Closed(t *testing.T) {
	e := testEngine(t)
	require.NoError(t, e.Close())
	require.NoError(t, e.Close())

	assert.ErrorIs(t, e.Put([]byte("k"), nil), engine.ErrClosed)
	assert.ErrorIs(t, e.Start(), engine.ErrClosed)
}

func TestConfig_Validate(t *testing.T) {
	cfg := engine.DefaultConfig("")
	assert.ErrorIs(t, cfg.Validate(), engine.ErrInvalidConfig)

	cfg = engine.DefaultConfig("x")
	cfg.MemTableSize = 1
	assert.ErrorIs(t, cfg.Validate(), engine.ErrInvalidConfig)
}
