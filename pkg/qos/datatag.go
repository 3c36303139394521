package qos

import (
	"maps"
	"slices"
)

// DataTag 数据标签策略
//
// 以字符串键值对为实体打标签。与其他策略一样，DataTag 是不可变值，
// Set/Remove 返回新的 DataTag。
//
//	tags := qos.NewDataTag(map[string]string{"site": "lab"}).Set("rack", "12")
//	v, ok := tags.TryGet("rack") // "12", true
type DataTag struct {
	tags map[string]string
}

// NewDataTag 从映射创建 DataTag（复制输入）
func NewDataTag(entries map[string]string) DataTag {
	if len(entries) == 0 {
		return DataTag{}
	}
	return DataTag{tags: maps.Clone(entries)}
}

// PolicyID 实现 Policy
func (DataTag) PolicyID() PolicyKind { return PolicyDataTag }

// Set 添加或覆盖标签
func (t DataTag) Set(key, value string) DataTag {
	m := make(map[string]string, len(t.tags)+1)
	maps.Copy(m, t.tags)
	m[key] = value
	return DataTag{tags: m}
}

// SetAll 批量添加或覆盖标签
func (t DataTag) SetAll(entries map[string]string) DataTag {
	m := make(map[string]string, len(t.tags)+len(entries))
	maps.Copy(m, t.tags)
	maps.Copy(m, entries)
	return DataTag{tags: m}
}

// Remove 移除标签
func (t DataTag) Remove(key string) DataTag {
	if _, ok := t.tags[key]; !ok {
		return t
	}
	m := maps.Clone(t.tags)
	delete(m, key)
	return DataTag{tags: m}
}

// Get 返回标签值，不存在时返回空字符串
func (t DataTag) Get(key string) string {
	return t.tags[key]
}

// TryGet 返回标签值以及是否存在
func (t DataTag) TryGet(key string) (string, bool) {
	v, ok := t.tags[key]
	return v, ok
}

// Exists 检查标签是否存在
func (t DataTag) Exists(key string) bool {
	_, ok := t.tags[key]
	return ok
}

// Size 返回标签数量
func (t DataTag) Size() int {
	return len(t.tags)
}

// Keys 返回排序后的标签键
func (t DataTag) Keys() []string {
	keys := make([]string, 0, len(t.tags))
	for k := range t.tags {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// All 返回全部标签的副本
func (t DataTag) All() map[string]string {
	return maps.Clone(t.tags)
}

// Equal 比较两组标签
func (t DataTag) Equal(o DataTag) bool {
	return maps.Equal(t.tags, o.tags)
}
