package dds

import (
	"github.com/dep2p/go-dds/pkg/qos"
	"github.com/dep2p/go-dds/pkg/types"
)

// ============================================================================
//                              类型别名
// ============================================================================
//
// 常用类型从 pkg/types 重导出，调用方无需再导入内部包。

type (
	// InstanceHandle 实体或数据实例句柄
	InstanceHandle = types.InstanceHandle
	// GUID 实体全局标识
	GUID = types.GUID
	// EntityKind 实体类型
	EntityKind = types.EntityKind
	// StatusKind 通信状态掩码
	StatusKind = types.StatusKind

	// SampleInfo 样本元信息
	SampleInfo = types.SampleInfo
	// Cookie 随写入附带的不透明字节串
	Cookie = types.Cookie
	// DataState 读取过滤使用的状态组合
	DataState = types.DataState
	// SampleState 样本读取状态
	SampleState = types.SampleState
	// ViewState 实例视图状态
	ViewState = types.ViewState
	// InstanceState 实例存活状态
	InstanceState = types.InstanceState

	// PublicationMatchedStatus 写端匹配状态
	PublicationMatchedStatus = types.PublicationMatchedStatus
	// SubscriptionMatchedStatus 读端匹配状态
	SubscriptionMatchedStatus = types.SubscriptionMatchedStatus
	// IncompatibleQosStatus QoS 不兼容状态
	IncompatibleQosStatus = types.IncompatibleQosStatus
	// SampleLostStatus 样本丢失状态
	SampleLostStatus = types.SampleLostStatus
	// SampleRejectedStatus 样本拒绝状态
	SampleRejectedStatus = types.SampleRejectedStatus
	// LivelinessChangedStatus 存活变化状态
	LivelinessChangedStatus = types.LivelinessChangedStatus
	// InconsistentTopicStatus 主题不一致状态
	InconsistentTopicStatus = types.InconsistentTopicStatus

	// QosSet QoS 策略集合
	QosSet = qos.Set
)

// HandleNil 空句柄
const HandleNil = types.HandleNil

// 实体类型
const (
	KindParticipant = types.KindParticipant
	KindPublisher   = types.KindPublisher
	KindSubscriber  = types.KindSubscriber
	KindTopic       = types.KindTopic
	KindDataWriter  = types.KindDataWriter
	KindDataReader  = types.KindDataReader
)

// NewCookie 复制 b 构造 Cookie
func NewCookie(b []byte) Cookie {
	return types.NewCookie(b)
}

// AnyState 不做状态过滤
func AnyState() DataState {
	return types.AnyState()
}

// NewData 只选择未读样本
func NewData() DataState {
	return types.NewData()
}
