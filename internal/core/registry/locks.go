package registry

import (
	"sync"

	"github.com/dep2p/go-dds/pkg/types"
)

// LockTable 按句柄分配的互斥锁表，与匹配引擎共享
//
// 每个锁带引用计数：持有或等待中的调用都计入，Forget 只在计数归零后才真正删除。
type LockTable struct {
	mu    sync.Mutex
	locks map[types.InstanceHandle]*handleLock
}

type handleLock struct {
	sync.Mutex
	refs      int
	forgotten bool
}

// NewLockTable 创建锁表
func NewLockTable() *LockTable {
	return &LockTable{locks: make(map[types.InstanceHandle]*handleLock)}
}

func (t *LockTable) acquire(h types.InstanceHandle) *handleLock {
	t.mu.Lock()
	defer t.mu.Unlock()
	l, ok := t.locks[h]
	if !ok {
		l = &handleLock{}
		t.locks[h] = l
	}
	l.refs++
	return l
}

func (t *LockTable) release(h types.InstanceHandle, l *handleLock) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if l.refs--; l.refs == 0 && l.forgotten && t.locks[h] == l {
		delete(t.locks, h)
	}
}

// Lock 锁定单个句柄，返回解锁函数
func (t *LockTable) Lock(h types.InstanceHandle) func() {
	l := t.acquire(h)
	l.Lock()
	return func() {
		l.Unlock()
		t.release(h, l)
	}
}

// LockPair 按句柄从小到大的顺序锁定两个句柄，返回解锁函数
func (t *LockTable) LockPair(a, b types.InstanceHandle) func() {
	if a == b {
		return t.Lock(a)
	}
	if b < a {
		a, b = b, a
	}
	first, second := t.acquire(a), t.acquire(b)
	first.Lock()
	second.Lock()
	return func() {
		second.Unlock()
		first.Unlock()
		t.release(b, second)
		t.release(a, first)
	}
}

// Forget 删除句柄的锁；仍被持有或等待时推迟到最后一个使用者解锁
func (t *LockTable) Forget(h types.InstanceHandle) {
	t.mu.Lock()
	defer t.mu.Unlock()
	l, ok := t.locks[h]
	if !ok {
		return
	}
	if l.refs == 0 {
		delete(t.locks, h)
		return
	}
	l.forgotten = true
}

// Len 返回锁表大小
func (t *LockTable) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.locks)
}
