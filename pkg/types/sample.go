package types

import "time"

// ChangeKind 写端产生的变更类型
type ChangeKind uint8

const (
	// ChangeAlive 普通写入
	ChangeAlive ChangeKind = iota
	// ChangeDisposed 销毁实例
	ChangeDisposed
	// ChangeUnregistered 写端注销实例
	ChangeUnregistered
)

// String 返回变更类型名称
func (k ChangeKind) String() string {
	switch k {
	case ChangeDisposed:
		return "disposed"
	case ChangeUnregistered:
		return "unregistered"
	default:
		return "alive"
	}
}

// SampleInfo 样本的元信息
type SampleInfo struct {
	SampleState   SampleState
	ViewState     ViewState
	InstanceState InstanceState

	// SourceTimestamp 写端时间戳
	SourceTimestamp time.Time
	// ReceptionTimestamp 进入读端缓存的时间
	ReceptionTimestamp time.Time

	// InstanceHandle 数据实例句柄
	InstanceHandle InstanceHandle
	// PublicationHandle 写端在读端参与者中的句柄
	PublicationHandle InstanceHandle

	// Valid 是否携带数据；销毁和注销通知为 false
	Valid bool

	// SequenceNumber 写端序列号
	SequenceNumber uint64

	// Cookie 写端随样本附带的 Cookie，未附带时为空
	Cookie Cookie
}

// Sample 读端缓存中的样本
type Sample struct {
	Data any
	Info SampleInfo
}

// DataMessage 写端发往读端的一次变更
//
// 回环传输在进程内直接传递 Payload，持久化存储时 Payload 以 JSON 编码。
type DataMessage struct {
	Writer          GUID
	Kind            ChangeKind
	Key             string
	Payload         any
	SourceTimestamp time.Time
	Sequence        uint64
	Cookie          Cookie
}

// Instance 返回消息对应的数据实例句柄
func (m DataMessage) Instance() InstanceHandle {
	return KeyHandle(m.Key)
}
