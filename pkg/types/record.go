package types

import (
	"time"

	"github.com/dep2p/go-dds/pkg/qos"
)

// BuiltinKind 发现记录的种类（对应四个内置主题）
type BuiltinKind int

const (
	// BuiltinUnknown 未知
	BuiltinUnknown BuiltinKind = iota
	// BuiltinParticipant 参与者
	BuiltinParticipant
	// BuiltinPublication 写端
	BuiltinPublication
	// BuiltinSubscription 读端
	BuiltinSubscription
	// BuiltinTopic 主题
	BuiltinTopic
)

// String 返回记录种类名称
func (k BuiltinKind) String() string {
	switch k {
	case BuiltinParticipant:
		return "participant"
	case BuiltinPublication:
		return "publication"
	case BuiltinSubscription:
		return "subscription"
	case BuiltinTopic:
		return "topic"
	default:
		return "unknown"
	}
}

// BuiltinKindOf 返回实体类型对应的记录种类；发布者和订阅者不单独通告
func BuiltinKindOf(k EntityKind) BuiltinKind {
	switch k {
	case KindParticipant:
		return BuiltinParticipant
	case KindDataWriter:
		return BuiltinPublication
	case KindDataReader:
		return BuiltinSubscription
	case KindTopic:
		return BuiltinTopic
	default:
		return BuiltinUnknown
	}
}

// Origin 记录来源
type Origin int

const (
	// OriginLocal 本参与者创建的实体
	OriginLocal Origin = iota
	// OriginRemote 经传输层发现的实体
	OriginRemote
)

// String 返回来源名称
func (o Origin) String() string {
	if o == OriginRemote {
		return "remote"
	}
	return "local"
}

// RecordState 发现记录的生命周期状态
type RecordState int

const (
	// RecordUnknown 从未见过
	RecordUnknown RecordState = iota
	// RecordAnnounced 已通告
	RecordAnnounced
	// RecordLost 租约过期或被撤回（终态）
	RecordLost
	// RecordIgnored 被忽略（终态）
	RecordIgnored
)

// String 返回状态名称
func (s RecordState) String() string {
	switch s {
	case RecordAnnounced:
		return "announced"
	case RecordLost:
		return "lost"
	case RecordIgnored:
		return "ignored"
	default:
		return "unknown"
	}
}

// EntityRecord 发现缓存中的实体记录
type EntityRecord struct {
	Handle      InstanceHandle
	GUID        GUID
	Participant GUID
	Kind        BuiltinKind
	TopicName   string
	TypeName    string
	Qos         qos.Set
	DomainID    uint32
	// LeaseDuration 为零时使用配置的默认租约
	LeaseDuration time.Duration
	Origin        Origin
	LastSeen      time.Time
	State         RecordState
}

// IsEndpoint 是否为写端或读端记录
func (r EntityRecord) IsEndpoint() bool {
	return r.Kind == BuiltinPublication || r.Kind == BuiltinSubscription
}

// Equivalent 比较两个通告内容是否一致（忽略句柄、时间和状态）
func (r EntityRecord) Equivalent(o EntityRecord) bool {
	return r.GUID == o.GUID &&
		r.Kind == o.Kind &&
		r.TopicName == o.TopicName &&
		r.TypeName == o.TypeName &&
		r.LeaseDuration == o.LeaseDuration &&
		r.Qos.Equal(o.Qos)
}
