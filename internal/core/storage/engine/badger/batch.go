package badger

import (
	"github.com/dgraph-io/badger/v4"

	"github.com/dep2p/go-dds/internal/core/storage/engine"
)

// WriteBatch BadgerDB 批量写入
type WriteBatch struct {
	engine *Engine
	batch  *badger.WriteBatch
	count  int
	err    error
	done   bool
}

// Put 加入写入操作
func (b *WriteBatch) Put(key, value []byte) {
	if b.done || len(key) == 0 || b.err != nil {
		return
	}
	b.err = b.batch.Set(key, value)
	b.count++
}

// Delete 加入删除操作
func (b *WriteBatch) Delete(key []byte) {
	if b.done || len(key) == 0 || b.err != nil {
		return
	}
	b.err = b.batch.Delete(key)
	b.count++
}

// Write 提交批量操作，之后 WriteBatch 不可再用
func (b *WriteBatch) Write() error {
	if b.done {
		return engine.ErrBatchClosed
	}
	b.done = true
	if b.engine.closed.Load() {
		b.batch.Cancel()
		return engine.ErrClosed
	}
	if b.err != nil {
		b.batch.Cancel()
		return b.err
	}
	return convertError(b.batch.Flush())
}

// Size 返回操作数
func (b *WriteBatch) Size() int {
	return b.count
}
