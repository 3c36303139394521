package types

import "github.com/dep2p/go-dds/pkg/qos"

// StatusKind 通信状态掩码
type StatusKind uint32

const (
	StatusInconsistentTopic StatusKind = 1 << iota
	StatusOfferedDeadlineMissed
	StatusRequestedDeadlineMissed
	StatusOfferedIncompatibleQos
	StatusRequestedIncompatibleQos
	StatusSampleLost
	StatusSampleRejected
	StatusDataOnReaders
	StatusDataAvailable
	StatusLivelinessLost
	StatusLivelinessChanged
	StatusPublicationMatched
	StatusSubscriptionMatched

	// StatusNone 空掩码
	StatusNone StatusKind = 0
	// StatusAll 全部状态
	StatusAll StatusKind = 1<<13 - 1
)

// Has 检查掩码是否包含 k
func (m StatusKind) Has(k StatusKind) bool {
	return m&k != 0
}

// String 返回单个状态的名称
func (m StatusKind) String() string {
	switch m {
	case StatusInconsistentTopic:
		return "inconsistent_topic"
	case StatusOfferedDeadlineMissed:
		return "offered_deadline_missed"
	case StatusRequestedDeadlineMissed:
		return "requested_deadline_missed"
	case StatusOfferedIncompatibleQos:
		return "offered_incompatible_qos"
	case StatusRequestedIncompatibleQos:
		return "requested_incompatible_qos"
	case StatusSampleLost:
		return "sample_lost"
	case StatusSampleRejected:
		return "sample_rejected"
	case StatusDataOnReaders:
		return "data_on_readers"
	case StatusDataAvailable:
		return "data_available"
	case StatusLivelinessLost:
		return "liveliness_lost"
	case StatusLivelinessChanged:
		return "liveliness_changed"
	case StatusPublicationMatched:
		return "publication_matched"
	case StatusSubscriptionMatched:
		return "subscription_matched"
	default:
		return "status_mask"
	}
}

// ============================================================================
//                              状态结构
// ============================================================================
//
// *Change 字段记录自上次读取以来的增量，读取后清零。

// PublicationMatchedStatus 写端匹配状态
type PublicationMatchedStatus struct {
	TotalCount             int
	TotalCountChange       int
	CurrentCount           int
	CurrentCountChange     int
	LastSubscriptionHandle InstanceHandle
}

// SubscriptionMatchedStatus 读端匹配状态
type SubscriptionMatchedStatus struct {
	TotalCount            int
	TotalCountChange      int
	CurrentCount          int
	CurrentCountChange    int
	LastPublicationHandle InstanceHandle
}

// IncompatibleQosStatus 不兼容 QoS 状态（写端为 offered，读端为 requested）
type IncompatibleQosStatus struct {
	TotalCount       int
	TotalCountChange int
	LastPolicyID     qos.PolicyKind
	Policies         map[qos.PolicyKind]int
}

// SampleLostStatus 样本丢失状态
type SampleLostStatus struct {
	TotalCount       int
	TotalCountChange int
}

// SampleRejectedReason 样本被拒绝的原因
type SampleRejectedReason int

const (
	// NotRejected 未拒绝
	NotRejected SampleRejectedReason = iota
	// RejectedByInstancesLimit 超出 max_instances
	RejectedByInstancesLimit
	// RejectedBySamplesLimit 超出 max_samples
	RejectedBySamplesLimit
	// RejectedBySamplesPerInstanceLimit 超出 max_samples_per_instance
	RejectedBySamplesPerInstanceLimit
)

// String 返回原因名称
func (r SampleRejectedReason) String() string {
	switch r {
	case RejectedByInstancesLimit:
		return "instances_limit"
	case RejectedBySamplesLimit:
		return "samples_limit"
	case RejectedBySamplesPerInstanceLimit:
		return "samples_per_instance_limit"
	default:
		return "not_rejected"
	}
}

// SampleRejectedStatus 样本拒绝状态
type SampleRejectedStatus struct {
	TotalCount         int
	TotalCountChange   int
	LastReason         SampleRejectedReason
	LastInstanceHandle InstanceHandle
}

// LivelinessChangedStatus 读端观察到的写端存活变化
type LivelinessChangedStatus struct {
	AliveCount            int
	NotAliveCount         int
	AliveCountChange      int
	NotAliveCountChange   int
	LastPublicationHandle InstanceHandle
}

// InconsistentTopicStatus 主题不一致状态
type InconsistentTopicStatus struct {
	TotalCount       int
	TotalCountChange int
}
