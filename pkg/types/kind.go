package types

// EntityKind 实体类型
type EntityKind int

const (
	// KindUnknown 未知类型
	KindUnknown EntityKind = iota
	// KindParticipant 域参与者
	KindParticipant
	// KindPublisher 发布者
	KindPublisher
	// KindSubscriber 订阅者
	KindSubscriber
	// KindTopic 主题
	KindTopic
	// KindDataWriter 数据写端
	KindDataWriter
	// KindDataReader 数据读端
	KindDataReader
)

// String 返回实体类型名称
func (k EntityKind) String() string {
	switch k {
	case KindParticipant:
		return "participant"
	case KindPublisher:
		return "publisher"
	case KindSubscriber:
		return "subscriber"
	case KindTopic:
		return "topic"
	case KindDataWriter:
		return "datawriter"
	case KindDataReader:
		return "datareader"
	default:
		return "unknown"
	}
}

// Valid 检查是否为已知类型
func (k EntityKind) Valid() bool {
	return k >= KindParticipant && k <= KindDataReader
}

// ParentKind 返回该类型要求的父实体类型，参与者没有父实体
func (k EntityKind) ParentKind() EntityKind {
	switch k {
	case KindPublisher, KindSubscriber, KindTopic:
		return KindParticipant
	case KindDataWriter:
		return KindPublisher
	case KindDataReader:
		return KindSubscriber
	default:
		return KindUnknown
	}
}

// IsEndpoint 是否为数据端点（写端或读端）
func (k EntityKind) IsEndpoint() bool {
	return k == KindDataWriter || k == KindDataReader
}

func (k EntityKind) idByte() byte {
	switch k {
	case KindParticipant:
		return entityKindParticipant
	case KindPublisher:
		return entityKindPublisher
	case KindSubscriber:
		return entityKindSubscriber
	case KindTopic:
		return entityKindTopic
	case KindDataWriter:
		return entityKindWriter
	case KindDataReader:
		return entityKindReader
	default:
		return 0
	}
}
