package dds

import "github.com/dep2p/go-dds/pkg/types"

// TypeSupport 描述主题上承载的数据类型
//
// Name 是类型标识，写端和读端的类型名必须完全一致才会匹配。
// Key 返回样本的实例键；为 nil 时类型无键，所有样本属于同一实例。
type TypeSupport[T any] struct {
	Name string
	Key  func(T) string
}

// keyOf 返回样本的实例键
func (ts TypeSupport[T]) keyOf(v T) string {
	if ts.Key == nil {
		return ""
	}
	return ts.Key(v)
}

// InstanceHandle 返回键对应的实例句柄
func (ts TypeSupport[T]) InstanceHandle(v T) types.InstanceHandle {
	return types.KeyHandle(ts.keyOf(v))
}
