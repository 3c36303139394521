package qos

import (
	"bytes"
	"fmt"
	"math"
	"slices"
	"time"
)

// Infinite 表示无限时长
const Infinite = time.Duration(math.MaxInt64)

// Unlimited 表示资源无上限
const Unlimited = -1

// ============================================================================
//                              PolicyKind 策略类型
// ============================================================================

// PolicyKind QoS 策略标识，数值与 DDS QosPolicyId 保持一致
type PolicyKind int32

// 策略标识常量
const (
	PolicyInvalid           PolicyKind = 0
	PolicyUserData          PolicyKind = 1
	PolicyDurability        PolicyKind = 2
	PolicyPresentation      PolicyKind = 3
	PolicyDeadline          PolicyKind = 4
	PolicyLatencyBudget     PolicyKind = 5
	PolicyOwnership         PolicyKind = 6
	PolicyOwnershipStrength PolicyKind = 7
	PolicyLiveliness        PolicyKind = 8
	PolicyTimeBasedFilter   PolicyKind = 9
	PolicyPartition         PolicyKind = 10
	PolicyReliability       PolicyKind = 11
	PolicyDestinationOrder  PolicyKind = 12
	PolicyHistory           PolicyKind = 13
	PolicyResourceLimits    PolicyKind = 14
	PolicyEntityFactory     PolicyKind = 15
	PolicyTopicData         PolicyKind = 18
	PolicyGroupData         PolicyKind = 19
	PolicyLifespan          PolicyKind = 21

	// PolicyDataTag 厂商扩展策略
	PolicyDataTag PolicyKind = 1000
)

// String 返回策略名称
func (k PolicyKind) String() string {
	switch k {
	case PolicyUserData:
		return "USER_DATA"
	case PolicyDurability:
		return "DURABILITY"
	case PolicyPresentation:
		return "PRESENTATION"
	case PolicyDeadline:
		return "DEADLINE"
	case PolicyLatencyBudget:
		return "LATENCY_BUDGET"
	case PolicyOwnership:
		return "OWNERSHIP"
	case PolicyOwnershipStrength:
		return "OWNERSHIP_STRENGTH"
	case PolicyLiveliness:
		return "LIVELINESS"
	case PolicyTimeBasedFilter:
		return "TIME_BASED_FILTER"
	case PolicyPartition:
		return "PARTITION"
	case PolicyReliability:
		return "RELIABILITY"
	case PolicyDestinationOrder:
		return "DESTINATION_ORDER"
	case PolicyHistory:
		return "HISTORY"
	case PolicyResourceLimits:
		return "RESOURCE_LIMITS"
	case PolicyEntityFactory:
		return "ENTITY_FACTORY"
	case PolicyTopicData:
		return "TOPIC_DATA"
	case PolicyGroupData:
		return "GROUP_DATA"
	case PolicyLifespan:
		return "LIFESPAN"
	case PolicyDataTag:
		return "DATA_TAG"
	default:
		return fmt.Sprintf("POLICY(%d)", int32(k))
	}
}

// Mutable 报告策略在实体启用后是否仍可修改
func (k PolicyKind) Mutable() bool {
	switch k {
	case PolicyDurability, PolicyPresentation, PolicyOwnership, PolicyLiveliness,
		PolicyReliability, PolicyDestinationOrder, PolicyHistory, PolicyResourceLimits,
		PolicyDataTag:
		return false
	default:
		return true
	}
}

// Policy QoS 策略值
//
// 所有实现都是值类型，Set 持有的策略不会被原地修改。
type Policy interface {
	PolicyID() PolicyKind
}

// ============================================================================
//                              Reliability
// ============================================================================

// ReliabilityKind 可靠性类型（BestEffort < Reliable）
type ReliabilityKind int

const (
	// ReliabilityBestEffort 尽力而为
	ReliabilityBestEffort ReliabilityKind = iota
	// ReliabilityReliable 可靠传输
	ReliabilityReliable
)

// String 返回可靠性名称
func (k ReliabilityKind) String() string {
	if k == ReliabilityReliable {
		return "RELIABLE"
	}
	return "BEST_EFFORT"
}

// Reliability 可靠性策略
type Reliability struct {
	Kind            ReliabilityKind
	MaxBlockingTime time.Duration
}

// PolicyID 实现 Policy
func (Reliability) PolicyID() PolicyKind { return PolicyReliability }

// ============================================================================
//                              Durability
// ============================================================================

// DurabilityKind 持久性类型，按 Volatile < TransientLocal < Transient < Persistent 排序
type DurabilityKind int

const (
	DurabilityVolatile DurabilityKind = iota
	DurabilityTransientLocal
	DurabilityTransient
	DurabilityPersistent
)

// String 返回持久性名称
func (k DurabilityKind) String() string {
	switch k {
	case DurabilityTransientLocal:
		return "TRANSIENT_LOCAL"
	case DurabilityTransient:
		return "TRANSIENT"
	case DurabilityPersistent:
		return "PERSISTENT"
	default:
		return "VOLATILE"
	}
}

// Durability 持久性策略
type Durability struct {
	Kind DurabilityKind
}

// PolicyID 实现 Policy
func (Durability) PolicyID() PolicyKind { return PolicyDurability }

// ============================================================================
//                              时间类策略
// ============================================================================

// Deadline 截止期策略
type Deadline struct {
	Period time.Duration
}

// PolicyID 实现 Policy
func (Deadline) PolicyID() PolicyKind { return PolicyDeadline }

// LatencyBudget 延迟预算策略
type LatencyBudget struct {
	Duration time.Duration
}

// PolicyID 实现 Policy
func (LatencyBudget) PolicyID() PolicyKind { return PolicyLatencyBudget }

// TimeBasedFilter 基于时间的过滤策略（仅读端）
type TimeBasedFilter struct {
	MinimumSeparation time.Duration
}

// PolicyID 实现 Policy
func (TimeBasedFilter) PolicyID() PolicyKind { return PolicyTimeBasedFilter }

// Lifespan 样本生存期策略
type Lifespan struct {
	Duration time.Duration
}

// PolicyID 实现 Policy
func (Lifespan) PolicyID() PolicyKind { return PolicyLifespan }

// ============================================================================
//                              Liveliness
// ============================================================================

// LivelinessKind 存活声明方式，Automatic < ManualByParticipant < ManualByTopic
type LivelinessKind int

const (
	LivelinessAutomatic LivelinessKind = iota
	LivelinessManualByParticipant
	LivelinessManualByTopic
)

// String 返回存活声明方式名称
func (k LivelinessKind) String() string {
	switch k {
	case LivelinessManualByParticipant:
		return "MANUAL_BY_PARTICIPANT"
	case LivelinessManualByTopic:
		return "MANUAL_BY_TOPIC"
	default:
		return "AUTOMATIC"
	}
}

// Liveliness 存活策略
type Liveliness struct {
	Kind          LivelinessKind
	LeaseDuration time.Duration
}

// PolicyID 实现 Policy
func (Liveliness) PolicyID() PolicyKind { return PolicyLiveliness }

// ============================================================================
//                              Ownership
// ============================================================================

// OwnershipKind 所有权类型
type OwnershipKind int

const (
	OwnershipShared OwnershipKind = iota
	OwnershipExclusive
)

// String 返回所有权名称
func (k OwnershipKind) String() string {
	if k == OwnershipExclusive {
		return "EXCLUSIVE"
	}
	return "SHARED"
}

// Ownership 所有权策略
type Ownership struct {
	Kind OwnershipKind
}

// PolicyID 实现 Policy
func (Ownership) PolicyID() PolicyKind { return PolicyOwnership }

// OwnershipStrength 所有权强度（仅写端）
type OwnershipStrength struct {
	Value int32
}

// PolicyID 实现 Policy
func (OwnershipStrength) PolicyID() PolicyKind { return PolicyOwnershipStrength }

// ============================================================================
//                              DestinationOrder
// ============================================================================

// DestinationOrderKind 目的端排序方式，ByReception < BySourceTimestamp
type DestinationOrderKind int

const (
	DestinationOrderByReception DestinationOrderKind = iota
	DestinationOrderBySourceTimestamp
)

// String 返回排序方式名称
func (k DestinationOrderKind) String() string {
	if k == DestinationOrderBySourceTimestamp {
		return "BY_SOURCE_TIMESTAMP"
	}
	return "BY_RECEPTION_TIMESTAMP"
}

// DestinationOrder 目的端排序策略
type DestinationOrder struct {
	Kind DestinationOrderKind
}

// PolicyID 实现 Policy
func (DestinationOrder) PolicyID() PolicyKind { return PolicyDestinationOrder }

// ============================================================================
//                              History / ResourceLimits
// ============================================================================

// HistoryKind 历史类型
type HistoryKind int

const (
	HistoryKeepLast HistoryKind = iota
	HistoryKeepAll
)

// String 返回历史类型名称
func (k HistoryKind) String() string {
	if k == HistoryKeepAll {
		return "KEEP_ALL"
	}
	return "KEEP_LAST"
}

// History 历史策略
type History struct {
	Kind  HistoryKind
	Depth int
}

// PolicyID 实现 Policy
func (History) PolicyID() PolicyKind { return PolicyHistory }

// ResourceLimits 资源限制策略，字段取值 Unlimited 表示无上限
type ResourceLimits struct {
	MaxSamples            int
	MaxInstances          int
	MaxSamplesPerInstance int
}

// PolicyID 实现 Policy
func (ResourceLimits) PolicyID() PolicyKind { return PolicyResourceLimits }

// ============================================================================
//                              Presentation / Partition
// ============================================================================

// AccessScopeKind 访问范围，Instance < Topic < Group
type AccessScopeKind int

const (
	AccessScopeInstance AccessScopeKind = iota
	AccessScopeTopic
	AccessScopeGroup
)

// String 返回访问范围名称
func (k AccessScopeKind) String() string {
	switch k {
	case AccessScopeTopic:
		return "TOPIC"
	case AccessScopeGroup:
		return "GROUP"
	default:
		return "INSTANCE"
	}
}

// Presentation 呈现策略（Publisher/Subscriber 级别）
type Presentation struct {
	AccessScope    AccessScopeKind
	CoherentAccess bool
	OrderedAccess  bool
}

// PolicyID 实现 Policy
func (Presentation) PolicyID() PolicyKind { return PolicyPresentation }

// Partition 分区策略
type Partition struct {
	Names []string
}

// NewPartition 创建分区策略（复制名称列表）
func NewPartition(names ...string) Partition {
	return Partition{Names: slices.Clone(names)}
}

// PolicyID 实现 Policy
func (Partition) PolicyID() PolicyKind { return PolicyPartition }

// ============================================================================
//                              不透明数据策略
// ============================================================================

// UserData 用户数据
type UserData struct {
	Value []byte
}

// PolicyID 实现 Policy
func (UserData) PolicyID() PolicyKind { return PolicyUserData }

// TopicData 主题数据
type TopicData struct {
	Value []byte
}

// PolicyID 实现 Policy
func (TopicData) PolicyID() PolicyKind { return PolicyTopicData }

// GroupData 组数据
type GroupData struct {
	Value []byte
}

// PolicyID 实现 Policy
func (GroupData) PolicyID() PolicyKind { return PolicyGroupData }

// NewUserData 创建 UserData（复制字节）
func NewUserData(b []byte) UserData { return UserData{Value: bytes.Clone(b)} }

// NewTopicData 创建 TopicData（复制字节）
func NewTopicData(b []byte) TopicData { return TopicData{Value: bytes.Clone(b)} }

// NewGroupData 创建 GroupData（复制字节）
func NewGroupData(b []byte) GroupData { return GroupData{Value: bytes.Clone(b)} }

// EntityFactory 控制子实体创建后是否自动启用
type EntityFactory struct {
	AutoenableCreatedEntities bool
}

// PolicyID 实现 Policy
func (EntityFactory) PolicyID() PolicyKind { return PolicyEntityFactory }

// ============================================================================
//                              默认值
// ============================================================================

// defaultPolicy 返回某类策略的 DDS 默认值
func defaultPolicy(k PolicyKind) Policy {
	switch k {
	case PolicyUserData:
		return UserData{}
	case PolicyDurability:
		return Durability{Kind: DurabilityVolatile}
	case PolicyPresentation:
		return Presentation{AccessScope: AccessScopeInstance}
	case PolicyDeadline:
		return Deadline{Period: Infinite}
	case PolicyLatencyBudget:
		return LatencyBudget{}
	case PolicyOwnership:
		return Ownership{Kind: OwnershipShared}
	case PolicyOwnershipStrength:
		return OwnershipStrength{}
	case PolicyLiveliness:
		return Liveliness{Kind: LivelinessAutomatic, LeaseDuration: Infinite}
	case PolicyTimeBasedFilter:
		return TimeBasedFilter{}
	case PolicyPartition:
		return Partition{}
	case PolicyReliability:
		return Reliability{Kind: ReliabilityBestEffort, MaxBlockingTime: 100 * time.Millisecond}
	case PolicyDestinationOrder:
		return DestinationOrder{Kind: DestinationOrderByReception}
	case PolicyHistory:
		return History{Kind: HistoryKeepLast, Depth: 1}
	case PolicyResourceLimits:
		return ResourceLimits{MaxSamples: Unlimited, MaxInstances: Unlimited, MaxSamplesPerInstance: Unlimited}
	case PolicyEntityFactory:
		return EntityFactory{AutoenableCreatedEntities: true}
	case PolicyTopicData:
		return TopicData{}
	case PolicyGroupData:
		return GroupData{}
	case PolicyLifespan:
		return Lifespan{Duration: Infinite}
	case PolicyDataTag:
		return DataTag{}
	default:
		return nil
	}
}

// AllKinds 返回所有已知策略类型（按标识升序）
func AllKinds() []PolicyKind {
	return []PolicyKind{
		PolicyUserData, PolicyDurability, PolicyPresentation, PolicyDeadline,
		PolicyLatencyBudget, PolicyOwnership, PolicyOwnershipStrength, PolicyLiveliness,
		PolicyTimeBasedFilter, PolicyPartition, PolicyReliability, PolicyDestinationOrder,
		PolicyHistory, PolicyResourceLimits, PolicyEntityFactory, PolicyTopicData,
		PolicyGroupData, PolicyLifespan, PolicyDataTag,
	}
}
