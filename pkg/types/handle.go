package types

import (
	"strconv"
	"sync/atomic"
)

// InstanceHandle 实体或数据实例的本地句柄
//
// 句柄只在同一个 Factory 内有意义，HandleNil 表示无效句柄。
type InstanceHandle uint64

// HandleNil 空句柄
const HandleNil InstanceHandle = 0

// IsNil 检查是否为空句柄
func (h InstanceHandle) IsNil() bool {
	return h == HandleNil
}

// String 返回句柄的十进制表示
func (h InstanceHandle) String() string {
	return strconv.FormatUint(uint64(h), 10)
}

// HandleAllocator 单调递增的句柄分配器，并发安全
//
// 本地实体与远端发现记录共用同一个分配器，二者的句柄不会冲突。
type HandleAllocator struct {
	next atomic.Uint64
}

// NewHandleAllocator 创建句柄分配器
func NewHandleAllocator() *HandleAllocator {
	return &HandleAllocator{}
}

// Next 分配一个新句柄，从不返回 HandleNil
func (a *HandleAllocator) Next() InstanceHandle {
	return InstanceHandle(a.next.Add(1))
}
