package types

import "github.com/spaolacci/murmur3"

// KeyHandle 计算数据实例键对应的实例句柄
//
// 相同的键总是得到相同的句柄，与写入端无关。无键类型使用空字符串作为键。
func KeyHandle(key string) InstanceHandle {
	h := murmur3.Sum64([]byte(key))
	if h == 0 {
		h = 1
	}
	return InstanceHandle(h)
}
