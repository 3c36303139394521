package durability

import (
	"slices"
	"sync"

	"github.com/gammazero/deque"

	"github.com/dep2p/go-dds/pkg/qos"
	"github.com/dep2p/go-dds/pkg/types"
)

// ============================================================================
//                              写端历史
// ============================================================================

// WriterHistory TRANSIENT_LOCAL 写端的按实例历史
//
// 每个实例最多保留 limit 条（KEEP_LAST 深度与 max_samples_per_instance 取小），
// Unlimited 时全部保留。
type WriterHistory struct {
	mu        sync.Mutex
	limit     int
	instances map[types.InstanceHandle]*deque.Deque[types.DataMessage]
	size      int
}

// NewWriterHistory 按写端 QoS 创建历史
func NewWriterHistory(s qos.Set) *WriterHistory {
	return &WriterHistory{
		limit:     qos.InstanceLimit(s.History(), s.ResourceLimits()),
		instances: make(map[types.InstanceHandle]*deque.Deque[types.DataMessage]),
	}
}

// Add 追加一条写端消息，超出上限时丢弃该实例最旧的消息
func (h *WriterHistory) Add(msg types.DataMessage) {
	h.mu.Lock()
	defer h.mu.Unlock()

	inst := msg.Instance()
	q, ok := h.instances[inst]
	if !ok {
		q = new(deque.Deque[types.DataMessage])
		h.instances[inst] = q
	}
	q.PushBack(msg)
	h.size++
	for h.limit != qos.Unlimited && q.Len() > h.limit {
		q.PopFront()
		h.size--
	}
}

// Snapshot 返回全部历史，按写端序列号排序
func (h *WriterHistory) Snapshot() []types.DataMessage {
	h.mu.Lock()
	out := make([]types.DataMessage, 0, h.size)
	for _, q := range h.instances {
		for i := 0; i < q.Len(); i++ {
			out = append(out, q.At(i))
		}
	}
	h.mu.Unlock()

	slices.SortFunc(out, func(a, b types.DataMessage) int {
		switch {
		case a.Sequence < b.Sequence:
			return -1
		case a.Sequence > b.Sequence:
			return 1
		default:
			return 0
		}
	})
	return out
}

// Len 返回历史消息数
func (h *WriterHistory) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.size
}

// Clear 清空历史
func (h *WriterHistory) Clear() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.instances = make(map[types.InstanceHandle]*deque.Deque[types.DataMessage])
	h.size = 0
}
