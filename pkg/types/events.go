package types

import (
	"time"

	"github.com/dep2p/go-dds/pkg/qos"
)

// ============================================================================
//                              实体生命周期事件
// ============================================================================

// EvtEntityCreated 实体已创建
type EvtEntityCreated struct {
	Handle      InstanceHandle
	Kind        EntityKind
	Parent      InstanceHandle
	Participant InstanceHandle
	Time        time.Time
}

// EvtEntityEnabled 实体已启用
type EvtEntityEnabled struct {
	Handle InstanceHandle
	Kind   EntityKind
	Time   time.Time
}

// EvtEntityClosed 实体已关闭
type EvtEntityClosed struct {
	Handle InstanceHandle
	Kind   EntityKind
	Time   time.Time
}

// EvtQosChanged 实体 QoS 已修改
type EvtQosChanged struct {
	Handle  InstanceHandle
	Kind    EntityKind
	Changed []qos.PolicyKind
}

// ============================================================================
//                              发现事件
// ============================================================================

// EvtRemoteAnnounced 远端实体首次通告
type EvtRemoteAnnounced struct {
	Participant InstanceHandle
	Record      EntityRecord
}

// EvtRemoteLost 远端实体丢失（租约过期或撤回）
type EvtRemoteLost struct {
	Participant InstanceHandle
	Record      EntityRecord
}

// EvtRemoteIgnored 远端实体被忽略
type EvtRemoteIgnored struct {
	Participant InstanceHandle
	Record      EntityRecord
}

// ============================================================================
//                              匹配事件
// ============================================================================

// EvtMatched 写端与读端建立匹配
type EvtMatched struct {
	Writer InstanceHandle
	Reader InstanceHandle
}

// EvtUnmatched 写端与读端匹配解除
type EvtUnmatched struct {
	Writer InstanceHandle
	Reader InstanceHandle
}

// EvtIncompatibleQos 写端与读端 QoS 不兼容
type EvtIncompatibleQos struct {
	Writer   InstanceHandle
	Reader   InstanceHandle
	Policies []qos.PolicyKind
}

// ============================================================================
//                              样本事件
// ============================================================================

// EvtSamplesPushed 样本进入读端缓存
type EvtSamplesPushed struct {
	Reader InstanceHandle
	Count  int
}

// EvtSamplesLost 读端缓存淘汰了未读样本
type EvtSamplesLost struct {
	Reader InstanceHandle
	Count  int
}

// EvtSampleRejected 读端缓存拒绝了样本
type EvtSampleRejected struct {
	Reader InstanceHandle
	Reason SampleRejectedReason
}

// EvtSamplesTaken 样本被 take 取走
type EvtSamplesTaken struct {
	Reader InstanceHandle
	Count  int
}
