package durability

import (
	"encoding/binary"
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/gammazero/deque"

	"github.com/dep2p/go-dds/internal/core/storage/kv"
	"github.com/dep2p/go-dds/pkg/qos"
	"github.com/dep2p/go-dds/pkg/types"
)

// ErrStoreClosed 存储已关闭
var ErrStoreClosed = errors.New("durability store closed")

// Store 按主题保存样本记录
type Store interface {
	// Append 追加记录，实例超出 depth 条时丢弃最旧的记录（depth 为 Unlimited 时不限）
	Append(topic string, rec Record, depth int) error
	// Load 返回主题的全部记录，按源时间戳和序列号排序
	Load(topic string) ([]Record, error)
	// Drop 删除主题的全部记录
	Drop(topic string) error
	// Close 关闭存储
	Close() error
}

func sortRecords(recs []Record) {
	slices.SortStableFunc(recs, func(a, b Record) int {
		switch {
		case a.SourceTimestamp.Before(b.SourceTimestamp):
			return -1
		case b.SourceTimestamp.Before(a.SourceTimestamp):
			return 1
		case a.Sequence < b.Sequence:
			return -1
		case a.Sequence > b.Sequence:
			return 1
		default:
			return 0
		}
	})
}

// ============================================================================
//                              内存存储
// ============================================================================

// MemoryStore TRANSIENT 样本的工厂级内存存储
type MemoryStore struct {
	mu     sync.Mutex
	topics map[string]map[types.InstanceHandle]*deque.Deque[Record]
	closed bool
}

// NewMemoryStore 创建内存存储
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{topics: make(map[string]map[types.InstanceHandle]*deque.Deque[Record])}
}

// Append 实现 Store
func (s *MemoryStore) Append(topic string, rec Record, depth int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrStoreClosed
	}
	instances, ok := s.topics[topic]
	if !ok {
		instances = make(map[types.InstanceHandle]*deque.Deque[Record])
		s.topics[topic] = instances
	}
	q, ok := instances[rec.Instance()]
	if !ok {
		q = new(deque.Deque[Record])
		instances[rec.Instance()] = q
	}
	q.PushBack(rec)
	for depth != qos.Unlimited && q.Len() > depth {
		q.PopFront()
	}
	return nil
}

// Load 实现 Store
func (s *MemoryStore) Load(topic string) ([]Record, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, ErrStoreClosed
	}
	var out []Record
	for _, q := range s.topics[topic] {
		for i := 0; i < q.Len(); i++ {
			out = append(out, q.At(i))
		}
	}
	s.mu.Unlock()
	sortRecords(out)
	return out, nil
}

// Drop 实现 Store
func (s *MemoryStore) Drop(topic string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.topics, topic)
	return nil
}

// Topics 返回有记录的主题
func (s *MemoryStore) Topics() []string {
	s.mu.Lock()
	out := make([]string, 0, len(s.topics))
	for t := range s.topics {
		out = append(out, t)
	}
	s.mu.Unlock()
	slices.Sort(out)
	return out
}

// Close 实现 Store
func (s *MemoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.topics = nil
	return nil
}

// ============================================================================
//                              KV 存储
// ============================================================================

// KVStore PERSISTENT 样本的 BadgerDB 存储
//
// 键布局：topic 0x00 instance(8) source(8) writer(16) sequence(8)，
// 同一实例的记录按源时间戳排列。
type KVStore struct {
	mu sync.Mutex
	kv *kv.Store
}

// NewKVStore 在前缀 KV 存储上创建持久化存储
func NewKVStore(store *kv.Store) *KVStore {
	return &KVStore{kv: store}
}

func topicPrefix(topic string) []byte {
	return append([]byte(topic), 0)
}

func instancePrefix(topic string, h types.InstanceHandle) []byte {
	return binary.BigEndian.AppendUint64(topicPrefix(topic), uint64(h))
}

func recordKey(topic string, rec Record) []byte {
	k := instancePrefix(topic, rec.Instance())
	k = binary.BigEndian.AppendUint64(k, uint64(rec.SourceTimestamp.UnixNano()))
	k = append(k, rec.Writer.Bytes()...)
	return binary.BigEndian.AppendUint64(k, rec.Sequence)
}

// Append 实现 Store
func (s *KVStore) Append(topic string, rec Record, depth int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.kv.Put(recordKey(topic, rec), rec.Marshal()); err != nil {
		return fmt.Errorf("persist record: %w", err)
	}
	if depth == qos.Unlimited {
		return nil
	}

	prefix := instancePrefix(topic, rec.Instance())
	var keys [][]byte
	if err := s.kv.PrefixScan(prefix, func(key, _ []byte) bool {
		keys = append(keys, slices.Clone(key))
		return true
	}); err != nil {
		return err
	}
	if len(keys) <= depth {
		return nil
	}
	b := s.kv.NewBatch()
	for _, k := range keys[:len(keys)-depth] {
		b.Delete(k)
	}
	return b.Write()
}

// Load 实现 Store
func (s *KVStore) Load(topic string) ([]Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var (
		out    []Record
		decErr error
	)
	err := s.kv.PrefixScan(topicPrefix(topic), func(_, value []byte) bool {
		rec, err := Unmarshal(value)
		if err != nil {
			decErr = err
			return false
		}
		out = append(out, rec)
		return true
	})
	if err != nil {
		return nil, err
	}
	if decErr != nil {
		return nil, decErr
	}
	sortRecords(out)
	return out, nil
}

// Drop 实现 Store
func (s *KVStore) Drop(topic string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.kv.DeletePrefix(topicPrefix(topic))
}

// Close 实现 Store；引擎由存储模块关闭
func (s *KVStore) Close() error {
	return nil
}
