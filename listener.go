package dds

import (
	"github.com/dep2p/go-dds/internal/core/status"
	"github.com/dep2p/go-dds/pkg/types"
)

// ============================================================================
//                              回调实体
// ============================================================================
//
// 回调在中间件的调度 goroutine 上执行。传给回调的实体是回调作用域的副本：
// 在回调内调用它的 Close 不会阻塞，关闭在回调返回后进行。

// Entity 所有实体的公共视图
type Entity interface {
	Handle() InstanceHandle
	GUID() GUID
	Close() error
}

// ReaderEntity 读端的非泛型视图，可断言为 *DataReader[T]
type ReaderEntity interface {
	Entity
	TopicName() string
	TypeName() string
	Subscriber() *Subscriber
}

// WriterEntity 写端的非泛型视图，可断言为 *DataWriter[T]
type WriterEntity interface {
	Entity
	TopicName() string
	TypeName() string
	Publisher() *Publisher
}

// ============================================================================
//                              能力接口
// ============================================================================

// DataAvailableListener 读端有新数据
type DataAvailableListener interface {
	OnDataAvailable(r ReaderEntity)
}

// DataOnReadersListener 订阅者下某个读端有新数据，优先于 DataAvailable
type DataOnReadersListener interface {
	OnDataOnReaders(s *Subscriber)
}

// SampleLostListener 读端丢失样本
type SampleLostListener interface {
	OnSampleLost(r ReaderEntity, st SampleLostStatus)
}

// SampleRejectedListener 读端拒绝样本
type SampleRejectedListener interface {
	OnSampleRejected(r ReaderEntity, st SampleRejectedStatus)
}

// SubscriptionMatchedListener 读端匹配变化
type SubscriptionMatchedListener interface {
	OnSubscriptionMatched(r ReaderEntity, st SubscriptionMatchedStatus)
}

// RequestedIncompatibleQosListener 读端请求的 QoS 不被满足
type RequestedIncompatibleQosListener interface {
	OnRequestedIncompatibleQos(r ReaderEntity, st IncompatibleQosStatus)
}

// LivelinessChangedListener 匹配写端的存活状态变化
type LivelinessChangedListener interface {
	OnLivelinessChanged(r ReaderEntity, st LivelinessChangedStatus)
}

// PublicationMatchedListener 写端匹配变化
type PublicationMatchedListener interface {
	OnPublicationMatched(w WriterEntity, st PublicationMatchedStatus)
}

// OfferedIncompatibleQosListener 写端提供的 QoS 不满足读端
type OfferedIncompatibleQosListener interface {
	OnOfferedIncompatibleQos(w WriterEntity, st IncompatibleQosStatus)
}

// InconsistentTopicListener 发现同名但类型不同的远端主题
type InconsistentTopicListener interface {
	OnInconsistentTopic(t *Topic, st InconsistentTopicStatus)
}

// ============================================================================
//                              组合接口
// ============================================================================

// DataReaderListener 读端全部回调
type DataReaderListener interface {
	DataAvailableListener
	SampleLostListener
	SampleRejectedListener
	SubscriptionMatchedListener
	RequestedIncompatibleQosListener
	LivelinessChangedListener
}

// DataWriterListener 写端全部回调
type DataWriterListener interface {
	PublicationMatchedListener
	OfferedIncompatibleQosListener
}

// SubscriberListener 订阅者回调
type SubscriberListener interface {
	DataReaderListener
	DataOnReadersListener
}

// PublisherListener 发布者回调
type PublisherListener = DataWriterListener

// TopicListener 主题回调
type TopicListener = InconsistentTopicListener

// ParticipantListener 参与者全部回调
type ParticipantListener interface {
	SubscriberListener
	DataWriterListener
	InconsistentTopicListener
}

// ============================================================================
//                              空实现
// ============================================================================

// NoOpDataReaderListener 读端空监听器，嵌入后只覆盖关心的方法
type NoOpDataReaderListener struct{}

func (NoOpDataReaderListener) OnDataAvailable(ReaderEntity)                                  {}
func (NoOpDataReaderListener) OnSampleLost(ReaderEntity, SampleLostStatus)                   {}
func (NoOpDataReaderListener) OnSampleRejected(ReaderEntity, SampleRejectedStatus)           {}
func (NoOpDataReaderListener) OnSubscriptionMatched(ReaderEntity, SubscriptionMatchedStatus) {}
func (NoOpDataReaderListener) OnRequestedIncompatibleQos(ReaderEntity, IncompatibleQosStatus) {
}
func (NoOpDataReaderListener) OnLivelinessChanged(ReaderEntity, LivelinessChangedStatus) {}

// NoOpDataWriterListener 写端空监听器
type NoOpDataWriterListener struct{}

func (NoOpDataWriterListener) OnPublicationMatched(WriterEntity, PublicationMatchedStatus)  {}
func (NoOpDataWriterListener) OnOfferedIncompatibleQos(WriterEntity, IncompatibleQosStatus) {}

// NoOpSubscriberListener 订阅者空监听器
type NoOpSubscriberListener struct {
	NoOpDataReaderListener
}

func (NoOpSubscriberListener) OnDataOnReaders(*Subscriber) {}

// NoOpParticipantListener 参与者空监听器
type NoOpParticipantListener struct {
	NoOpSubscriberListener
	NoOpDataWriterListener
}

func (NoOpParticipantListener) OnInconsistentTopic(*Topic, InconsistentTopicStatus) {}

var (
	_ DataReaderListener  = NoOpDataReaderListener{}
	_ DataWriterListener  = NoOpDataWriterListener{}
	_ SubscriberListener  = NoOpSubscriberListener{}
	_ ParticipantListener = NoOpParticipantListener{}
)

// ListenerMask 返回监听器实现的回调对应的状态掩码
func ListenerMask(l any) StatusKind {
	var mask StatusKind
	if l == nil {
		return mask
	}
	if _, ok := l.(DataAvailableListener); ok {
		mask |= types.StatusDataAvailable
	}
	if _, ok := l.(DataOnReadersListener); ok {
		mask |= types.StatusDataOnReaders
	}
	if _, ok := l.(SampleLostListener); ok {
		mask |= types.StatusSampleLost
	}
	if _, ok := l.(SampleRejectedListener); ok {
		mask |= types.StatusSampleRejected
	}
	if _, ok := l.(SubscriptionMatchedListener); ok {
		mask |= types.StatusSubscriptionMatched
	}
	if _, ok := l.(RequestedIncompatibleQosListener); ok {
		mask |= types.StatusRequestedIncompatibleQos
	}
	if _, ok := l.(LivelinessChangedListener); ok {
		mask |= types.StatusLivelinessChanged
	}
	if _, ok := l.(PublicationMatchedListener); ok {
		mask |= types.StatusPublicationMatched
	}
	if _, ok := l.(OfferedIncompatibleQosListener); ok {
		mask |= types.StatusOfferedIncompatibleQos
	}
	if _, ok := l.(InconsistentTopicListener); ok {
		mask |= types.StatusInconsistentTopic
	}
	return mask
}

// ============================================================================
//                              投递
// ============================================================================

// scopable 能生成回调作用域副本的实体
type scopable interface {
	scoped() any
}

// notify 在调度 goroutine 上把状态通知转成监听器方法调用
//
// 状态在这里读取，读取即清零。
func (f *Factory) notify(n status.Notification) {
	v, ok := f.entities.Load(n.Source)
	if !ok {
		return
	}
	src := v.(scopable).scoped()
	st := f.status

	switch n.Kind {
	case types.StatusDataAvailable:
		l, ok1 := n.Listener.(DataAvailableListener)
		r, ok2 := src.(ReaderEntity)
		if ok1 && ok2 {
			l.OnDataAvailable(r)
		}
	case types.StatusDataOnReaders:
		l, ok1 := n.Listener.(DataOnReadersListener)
		s, ok2 := src.(*Subscriber)
		if ok1 && ok2 {
			l.OnDataOnReaders(s)
		}
	case types.StatusSampleLost:
		l, ok1 := n.Listener.(SampleLostListener)
		r, ok2 := src.(ReaderEntity)
		if ok1 && ok2 {
			if s, err := st.SampleLostStatus(n.Source); err == nil {
				l.OnSampleLost(r, s)
			}
		}
	case types.StatusSampleRejected:
		l, ok1 := n.Listener.(SampleRejectedListener)
		r, ok2 := src.(ReaderEntity)
		if ok1 && ok2 {
			if s, err := st.SampleRejectedStatus(n.Source); err == nil {
				l.OnSampleRejected(r, s)
			}
		}
	case types.StatusSubscriptionMatched:
		l, ok1 := n.Listener.(SubscriptionMatchedListener)
		r, ok2 := src.(ReaderEntity)
		if ok1 && ok2 {
			if s, err := st.SubscriptionMatchedStatus(n.Source); err == nil {
				l.OnSubscriptionMatched(r, s)
			}
		}
	case types.StatusRequestedIncompatibleQos:
		l, ok1 := n.Listener.(RequestedIncompatibleQosListener)
		r, ok2 := src.(ReaderEntity)
		if ok1 && ok2 {
			if s, err := st.RequestedIncompatibleQosStatus(n.Source); err == nil {
				l.OnRequestedIncompatibleQos(r, s)
			}
		}
	case types.StatusLivelinessChanged:
		l, ok1 := n.Listener.(LivelinessChangedListener)
		r, ok2 := src.(ReaderEntity)
		if ok1 && ok2 {
			if s, err := st.LivelinessChangedStatus(n.Source); err == nil {
				l.OnLivelinessChanged(r, s)
			}
		}
	case types.StatusPublicationMatched:
		l, ok1 := n.Listener.(PublicationMatchedListener)
		w, ok2 := src.(WriterEntity)
		if ok1 && ok2 {
			if s, err := st.PublicationMatchedStatus(n.Source); err == nil {
				l.OnPublicationMatched(w, s)
			}
		}
	case types.StatusOfferedIncompatibleQos:
		l, ok1 := n.Listener.(OfferedIncompatibleQosListener)
		w, ok2 := src.(WriterEntity)
		if ok1 && ok2 {
			if s, err := st.OfferedIncompatibleQosStatus(n.Source); err == nil {
				l.OnOfferedIncompatibleQos(w, s)
			}
		}
	case types.StatusInconsistentTopic:
		l, ok1 := n.Listener.(InconsistentTopicListener)
		t, ok2 := src.(*Topic)
		if ok1 && ok2 {
			if s, err := st.InconsistentTopicStatus(n.Source); err == nil {
				l.OnInconsistentTopic(t, s)
			}
		}
	default:
		log.Debug("unhandled status notification", "kind", n.Kind, "source", n.Source)
	}
}
