package interfaces

// Engine 键值存储引擎基础接口
//
// PERSISTENT 持久性的样本经由该接口落盘，默认实现基于 BadgerDB。
// 实现必须保证并发安全。
type Engine interface {
	// Get 返回值的副本；键不存在时返回 ErrNotFound
	Get(key []byte) ([]byte, error)

	// Put 设置键值对，已存在时覆盖
	Put(key, value []byte) error

	// Delete 删除键，键不存在时不返回错误
	Delete(key []byte) error

	// Has 检查键是否存在
	Has(key []byte) (bool, error)

	// Close 关闭引擎
	Close() error
}
