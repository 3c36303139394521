package engine

import "github.com/dep2p/go-dds/pkg/interfaces"

// InternalEngine 内部扩展接口
type InternalEngine interface {
	interfaces.Engine

	// NewBatch 创建批量写入对象
	NewBatch() Batch

	// NewPrefixIterator 创建只遍历指定前缀的迭代器，调用者负责 Close
	NewPrefixIterator(prefix []byte) Iterator

	// Start 启动后台任务（值日志 GC）
	Start() error

	// Sync 同步数据到磁盘
	Sync() error
}

// Batch 批量写入，非并发安全
type Batch interface {
	Put(key, value []byte)
	Delete(key []byte)

	// Write 原子提交所有操作
	Write() error

	// Size 返回待提交的操作数
	Size() int
}

// Iterator 迭代器，保持创建时的快照视图
//
//	it := eng.NewPrefixIterator(prefix)
//	defer it.Close()
//	for it.First(); it.Valid(); it.Next() {
//	    use(it.Key(), it.Value())
//	}
//	return it.Error()
type Iterator interface {
	First() bool
	Next() bool
	Valid() bool

	// Key 返回当前键的副本
	Key() []byte

	// Value 返回当前值的副本
	Value() []byte

	Close()
	Error() error
}
