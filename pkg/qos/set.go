package qos

import (
	"bytes"
	"slices"
	"strings"
)

// Set QoS 策略集合
//
// Set 是不可变值：零值表示空集合，所有策略都取默认值。
// 修改操作返回新的 Set，原集合不受影响。
type Set struct {
	policies map[PolicyKind]Policy
}

// NewSet 创建包含指定策略的集合，后出现的同类策略覆盖先出现的
func NewSet(policies ...Policy) Set {
	return Set{}.With(policies...)
}

// With 返回加入（或替换）指定策略后的新集合
func (s Set) With(policies ...Policy) Set {
	m := make(map[PolicyKind]Policy, len(s.policies)+len(policies))
	for k, p := range s.policies {
		m[k] = p
	}
	for _, p := range policies {
		if p == nil {
			continue
		}
		m[p.PolicyID()] = p
	}
	return Set{policies: m}
}

// Without 返回移除指定策略类型后的新集合（被移除的策略回落到默认值）
func (s Set) Without(kinds ...PolicyKind) Set {
	m := make(map[PolicyKind]Policy, len(s.policies))
	for k, p := range s.policies {
		m[k] = p
	}
	for _, k := range kinds {
		delete(m, k)
	}
	return Set{policies: m}
}

// Merge 返回以 o 覆盖 s 的新集合
func (s Set) Merge(o Set) Set {
	m := make(map[PolicyKind]Policy, len(s.policies)+len(o.policies))
	for k, p := range s.policies {
		m[k] = p
	}
	for k, p := range o.policies {
		m[k] = p
	}
	return Set{policies: m}
}

// Get 返回显式设置的策略
func (s Set) Get(k PolicyKind) (Policy, bool) {
	p, ok := s.policies[k]
	return p, ok
}

// Effective 返回策略的生效值（未设置时为默认值）
func (s Set) Effective(k PolicyKind) Policy {
	if p, ok := s.policies[k]; ok {
		return p
	}
	return defaultPolicy(k)
}

// Has 检查是否显式设置了某策略
func (s Set) Has(k PolicyKind) bool {
	_, ok := s.policies[k]
	return ok
}

// Len 返回显式设置的策略数量
func (s Set) Len() int {
	return len(s.policies)
}

// Kinds 返回显式设置的策略类型（升序）
func (s Set) Kinds() []PolicyKind {
	kinds := make([]PolicyKind, 0, len(s.policies))
	for k := range s.policies {
		kinds = append(kinds, k)
	}
	slices.Sort(kinds)
	return kinds
}

// Equal 比较两个集合的生效值是否完全一致
func (s Set) Equal(o Set) bool {
	return len(s.Diff(o)) == 0
}

// Diff 返回生效值不同的策略类型（升序）
func (s Set) Diff(o Set) []PolicyKind {
	var diff []PolicyKind
	for _, k := range AllKinds() {
		if !policyEqual(s.Effective(k), o.Effective(k)) {
			diff = append(diff, k)
		}
	}
	return diff
}

// String 返回集合的简短描述，用于日志
func (s Set) String() string {
	var b strings.Builder
	b.WriteByte('{')
	for i, k := range s.Kinds() {
		if i > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(k.String())
	}
	b.WriteByte('}')
	return b.String()
}

// policyEqual 比较两个策略值；含切片或映射的策略单独处理
func policyEqual(a, b Policy) bool {
	switch av := a.(type) {
	case Partition:
		bv, ok := b.(Partition)
		return ok && slices.Equal(av.Names, bv.Names)
	case UserData:
		bv, ok := b.(UserData)
		return ok && bytes.Equal(av.Value, bv.Value)
	case TopicData:
		bv, ok := b.(TopicData)
		return ok && bytes.Equal(av.Value, bv.Value)
	case GroupData:
		bv, ok := b.(GroupData)
		return ok && bytes.Equal(av.Value, bv.Value)
	case DataTag:
		bv, ok := b.(DataTag)
		return ok && av.Equal(bv)
	default:
		return a == b
	}
}

// ============================================================================
//                              类型化访问器
// ============================================================================

func effective[T Policy](s Set, k PolicyKind) T {
	if p, ok := s.policies[k]; ok {
		if v, ok := p.(T); ok {
			return v
		}
	}
	v, _ := defaultPolicy(k).(T)
	return v
}

// Reliability 返回可靠性策略
func (s Set) Reliability() Reliability { return effective[Reliability](s, PolicyReliability) }

// Durability 返回持久性策略
func (s Set) Durability() Durability { return effective[Durability](s, PolicyDurability) }

// Deadline 返回截止期策略
func (s Set) Deadline() Deadline { return effective[Deadline](s, PolicyDeadline) }

// LatencyBudget 返回延迟预算策略
func (s Set) LatencyBudget() LatencyBudget {
	return effective[LatencyBudget](s, PolicyLatencyBudget)
}

// Liveliness 返回存活策略
func (s Set) Liveliness() Liveliness { return effective[Liveliness](s, PolicyLiveliness) }

// Ownership 返回所有权策略
func (s Set) Ownership() Ownership { return effective[Ownership](s, PolicyOwnership) }

// OwnershipStrength 返回所有权强度
func (s Set) OwnershipStrength() OwnershipStrength {
	return effective[OwnershipStrength](s, PolicyOwnershipStrength)
}

// DestinationOrder 返回目的端排序策略
func (s Set) DestinationOrder() DestinationOrder {
	return effective[DestinationOrder](s, PolicyDestinationOrder)
}

// History 返回历史策略
func (s Set) History() History { return effective[History](s, PolicyHistory) }

// ResourceLimits 返回资源限制策略
func (s Set) ResourceLimits() ResourceLimits {
	return effective[ResourceLimits](s, PolicyResourceLimits)
}

// Presentation 返回呈现策略
func (s Set) Presentation() Presentation { return effective[Presentation](s, PolicyPresentation) }

// Partition 返回分区策略
func (s Set) Partition() Partition { return effective[Partition](s, PolicyPartition) }

// TimeBasedFilter 返回时间过滤策略
func (s Set) TimeBasedFilter() TimeBasedFilter {
	return effective[TimeBasedFilter](s, PolicyTimeBasedFilter)
}

// Lifespan 返回生存期策略
func (s Set) Lifespan() Lifespan { return effective[Lifespan](s, PolicyLifespan) }

// UserData 返回用户数据
func (s Set) UserData() UserData { return effective[UserData](s, PolicyUserData) }

// TopicData 返回主题数据
func (s Set) TopicData() TopicData { return effective[TopicData](s, PolicyTopicData) }

// GroupData 返回组数据
func (s Set) GroupData() GroupData { return effective[GroupData](s, PolicyGroupData) }

// EntityFactory 返回实体工厂策略
func (s Set) EntityFactory() EntityFactory {
	return effective[EntityFactory](s, PolicyEntityFactory)
}

// DataTag 返回数据标签策略
func (s Set) DataTag() DataTag { return effective[DataTag](s, PolicyDataTag) }
