package kv

import (
	"encoding/json"

	"github.com/dep2p/go-dds/internal/core/storage/engine"
)

// Store 为所有键自动添加前缀的 KV 存储
type Store struct {
	engine engine.InternalEngine
	prefix []byte
}

// New 创建 Store
func New(eng engine.InternalEngine, prefix []byte) *Store {
	return &Store{engine: eng, prefix: append([]byte(nil), prefix...)}
}

func (s *Store) prefixKey(key []byte) []byte {
	out := make([]byte, 0, len(s.prefix)+len(key))
	out = append(out, s.prefix...)
	return append(out, key...)
}

func (s *Store) stripPrefix(key []byte) []byte {
	if len(key) < len(s.prefix) {
		return key
	}
	return key[len(s.prefix):]
}

// Get 获取值
func (s *Store) Get(key []byte) ([]byte, error) {
	return s.engine.Get(s.prefixKey(key))
}

// Put 设置值
func (s *Store) Put(key, value []byte) error {
	return s.engine.Put(s.prefixKey(key), value)
}

// Delete 删除键
func (s *Store) Delete(key []byte) error {
	return s.engine.Delete(s.prefixKey(key))
}

// Has 检查键是否存在
func (s *Store) Has(key []byte) (bool, error) {
	return s.engine.Has(s.prefixKey(key))
}

// GetJSON 读取并反序列化 JSON 值
func (s *Store) GetJSON(key []byte, v any) error {
	data, err := s.Get(key)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, v)
}

// PutJSON 序列化为 JSON 并存储
func (s *Store) PutJSON(key []byte, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return s.Put(key, data)
}

// PrefixScan 按键序遍历子前缀下的键值对，fn 返回 false 时停止
//
// 传给 fn 的键已去掉 Store 自身的前缀。
func (s *Store) PrefixScan(subPrefix []byte, fn func(key, value []byte) bool) error {
	it := s.engine.NewPrefixIterator(s.prefixKey(subPrefix))
	defer it.Close()

	for it.First(); it.Valid(); it.Next() {
		if !fn(s.stripPrefix(it.Key()), it.Value()) {
			break
		}
	}
	return it.Error()
}

// Count 统计子前缀下的键数量
func (s *Store) Count(subPrefix []byte) (int, error) {
	n := 0
	err := s.PrefixScan(subPrefix, func(_, _ []byte) bool {
		n++
		return true
	})
	return n, err
}

// DeletePrefix 删除子前缀下的所有键
func (s *Store) DeletePrefix(subPrefix []byte) error {
	var keys [][]byte
	if err := s.PrefixScan(subPrefix, func(key, _ []byte) bool {
		keys = append(keys, key)
		return true
	}); err != nil {
		return err
	}
	if len(keys) == 0 {
		return nil
	}

	b := s.NewBatch()
	for _, k := range keys {
		b.Delete(k)
	}
	return b.Write()
}

// SubStore 返回叠加子前缀的 Store
func (s *Store) SubStore(subPrefix []byte) *Store {
	return New(s.engine, s.prefixKey(subPrefix))
}

// ============================================================================
//                              批量写入
// ============================================================================

// Batch 带前缀的批量写入
type Batch struct {
	store *Store
	batch engine.Batch
}

// NewBatch 创建批量写入
func (s *Store) NewBatch() *Batch {
	return &Batch{store: s, batch: s.engine.NewBatch()}
}

// Put 加入写入操作
func (b *Batch) Put(key, value []byte) {
	b.batch.Put(b.store.prefixKey(key), value)
}

// Delete 加入删除操作
func (b *Batch) Delete(key []byte) {
	b.batch.Delete(b.store.prefixKey(key))
}

// Write 原子提交
func (b *Batch) Write() error {
	return b.batch.Write()
}

// Size 返回待提交的操作数
func (b *Batch) Size() int {
	return b.batch.Size()
}
