package badger

import (
	"bytes"

	"github.com/dgraph-io/badger/v4"
)

// Iterator BadgerDB 前缀迭代器
type Iterator struct {
	txn    *badger.Txn
	iter   *badger.Iterator
	prefix []byte
	closed bool
	err    error
}

// First 定位到第一个键
func (it *Iterator) First() bool {
	if it.closed {
		return false
	}
	it.iter.Seek(it.prefix)
	return it.Valid()
}

// Next 前进一个键
func (it *Iterator) Next() bool {
	if it.closed {
		return false
	}
	it.iter.Next()
	return it.Valid()
}

// Valid 当前位置是否有效
func (it *Iterator) Valid() bool {
	if it.closed || !it.iter.Valid() {
		return false
	}
	return bytes.HasPrefix(it.iter.Item().Key(), it.prefix)
}

// Key 返回当前键的副本
func (it *Iterator) Key() []byte {
	if !it.Valid() {
		return nil
	}
	return it.iter.Item().KeyCopy(nil)
}

// Value 返回当前值的副本
func (it *Iterator) Value() []byte {
	if !it.Valid() {
		return nil
	}
	v, err := it.iter.Item().ValueCopy(nil)
	if err != nil {
		it.err = err
		return nil
	}
	return v
}

// Close 释放迭代器和只读事务
func (it *Iterator) Close() {
	if it.closed {
		return
	}
	it.closed = true
	it.iter.Close()
	it.txn.Discard()
}

// Error 返回迭代过程中的错误
func (it *Iterator) Error() error {
	return it.err
}
