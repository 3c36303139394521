package dds

import (
	"fmt"
	"sync"
	"time"

	"github.com/dep2p/go-dds/internal/core/durability"
	"github.com/dep2p/go-dds/internal/core/registry"
	"github.com/dep2p/go-dds/pkg/qos"
	"github.com/dep2p/go-dds/pkg/types"
)

// ============================================================================
//                              DataWriter
// ============================================================================

// DataWriter 类型化写端
type DataWriter[T any] struct {
	*writerState[T]
	scope bool
}

type writerState[T any] struct {
	entity
	participant *participantState
	publisher   *groupState
	topic       *topicState
	ts          TypeSupport[T]

	// mu 保证序列号、历史和投递顺序一致
	mu         sync.Mutex
	seq        uint64
	durability qos.DurabilityKind
	// hist TRANSIENT_LOCAL 及以上写端的历史
	hist *durability.WriterHistory
}

func (w *DataWriter[T]) scoped() any {
	return &DataWriter[T]{writerState: w.writerState, scope: true}
}

// Close 关闭写端，匹配的读端上仅由它写入的实例变为 NOT_ALIVE_NO_WRITERS
func (w *DataWriter[T]) Close() error {
	return w.f.closeEntity(w.handle, w.scope)
}

// NewDataWriter 在发布者下为主题创建写端，T 必须与主题类型登记的 Go 类型一致
func NewDataWriter[T any](pub *Publisher, topic *Topic, opts ...EntityOption) (*DataWriter[T], error) {
	if pub == nil || topic == nil {
		return nil, fmt.Errorf("%w: nil publisher or topic", types.ErrBadParameter)
	}
	p := pub.participant
	if topic.participant != p {
		return nil, fmt.Errorf("%w: topic %q belongs to another participant", types.ErrPreconditionNotMet, topic.name)
	}
	ts, err := typeSupportFor[T](p, topic.typeName)
	if err != nil {
		return nil, err
	}

	o := newEntityOptions(opts)
	h, err := p.f.create(types.KindDataWriter, pub.handle, o,
		registry.WithName(topic.name),
		registry.WithTypeName(topic.typeName),
		registry.WithTopic(topic.handle),
	)
	if err != nil {
		return nil, err
	}
	base, err := newEntity(p.f, h)
	if err != nil {
		_ = p.f.reg.Close(h)
		return nil, err
	}
	set, _ := p.f.reg.GetQos(h)
	st := &writerState[T]{
		entity:      base,
		participant: p,
		publisher:   pub.groupState,
		topic:       topic.topicState,
		ts:          ts,
		durability:  set.Durability().Kind,
	}
	if st.durability >= qos.DurabilityTransientLocal {
		st.hist = durability.NewWriterHistory(set)
	}
	w := &DataWriter[T]{writerState: st}

	p.addWriter(h, st)
	if err := p.f.track(h, w, func() { p.removeWriter(h) }); err != nil {
		p.removeWriter(h)
		return nil, err
	}
	if err := p.f.finish(h, pub.handle, o); err != nil {
		_ = p.f.reg.Close(h)
		return nil, err
	}
	log.Debug("writer created", "handle", h, "topic", topic.name, "durability", st.durability)
	return w, nil
}

// ============================================================================
//                              写入
// ============================================================================

// WriteParams 单次写入的附加参数
type WriteParams struct {
	// Timestamp 源时间戳，零值取参与者时钟
	Timestamp time.Time
	// Cookie 随样本送达读端，在 SampleInfo.Cookie 中返回
	Cookie Cookie
}

// Write 写入一个样本，源时间戳取参与者时钟
func (w *writerState[T]) Write(v T) error {
	return w.WriteWithParams(v, WriteParams{})
}

// WriteWithTimestamp 以指定源时间戳写入
func (w *writerState[T]) WriteWithTimestamp(v T, ts time.Time) error {
	return w.WriteWithParams(v, WriteParams{Timestamp: ts})
}

// WriteWithCookie 写入并附带 Cookie
func (w *writerState[T]) WriteWithCookie(v T, c Cookie) error {
	return w.WriteWithParams(v, WriteParams{Cookie: c})
}

// WriteWithParams 按参数写入；Cookie 被复制，调用方之后可以复用原切片
func (w *writerState[T]) WriteWithParams(v T, p WriteParams) error {
	ts := p.Timestamp
	if ts.IsZero() {
		ts = w.f.clock.Now()
	}
	return w.send(types.ChangeAlive, w.ts.keyOf(v), v, ts, types.NewCookie(p.Cookie))
}

// Dispose 销毁样本所在的实例
func (w *writerState[T]) Dispose(v T) error {
	return w.send(types.ChangeDisposed, w.ts.keyOf(v), nil, w.f.clock.Now(), nil)
}

// DisposeWithTimestamp 以指定源时间戳销毁实例
func (w *writerState[T]) DisposeWithTimestamp(v T, ts time.Time) error {
	return w.send(types.ChangeDisposed, w.ts.keyOf(v), nil, ts, nil)
}

// Unregister 注销样本所在的实例
func (w *writerState[T]) Unregister(v T) error {
	return w.send(types.ChangeUnregistered, w.ts.keyOf(v), nil, w.f.clock.Now(), nil)
}

func (w *writerState[T]) send(kind types.ChangeKind, key string, payload any, ts time.Time, cookie types.Cookie) error {
	if err := w.f.reg.Check(w.handle); err != nil {
		return err
	}
	if !w.IsEnabled() {
		return fmt.Errorf("%w: writer %s", types.ErrNotEnabled, w.handle)
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	w.seq++
	msg := types.DataMessage{
		Writer:          w.guid,
		Kind:            kind,
		Key:             key,
		Payload:         payload,
		SourceTimestamp: ts,
		Sequence:        w.seq,
		Cookie:          cookie,
	}
	if w.hist != nil {
		w.hist.Add(msg)
	}
	if w.durability >= qos.DurabilityTransient {
		if err := w.f.durability.Record(w.topic.name, w.Qos(), msg); err != nil {
			return fmt.Errorf("record sample on %q: %w", w.topic.name, err)
		}
	}
	w.participant.route(w.handle, msg)
	return nil
}

// history 实现 writerPort
func (w *writerState[T]) history() []types.DataMessage {
	if w.hist == nil {
		return nil
	}
	return w.hist.Snapshot()
}

// durabilityKind 实现 writerPort
func (w *writerState[T]) durabilityKind() qos.DurabilityKind {
	return w.durability
}

// ============================================================================
//                              查询
// ============================================================================

// LookupInstance 返回样本对应的实例句柄
func (w *writerState[T]) LookupInstance(v T) InstanceHandle {
	return w.ts.InstanceHandle(v)
}

// TopicName 返回主题名
func (w *writerState[T]) TopicName() string {
	return w.topic.name
}

// TypeName 返回类型名
func (w *writerState[T]) TypeName() string {
	return w.topic.typeName
}

// Topic 返回写端的主题
func (w *writerState[T]) Topic() *Topic {
	return &Topic{topicState: w.topic}
}

// Publisher 返回所属发布者
func (w *writerState[T]) Publisher() *Publisher {
	return &Publisher{groupState: w.publisher}
}

// SetQos 修改写端 QoS 并重新通告，匹配关系随之重算
func (w *writerState[T]) SetQos(set QosSet) error {
	if err := w.mergeQos(set); err != nil {
		return err
	}
	w.participant.refresh(w.handle)
	return nil
}

// MatchedSubscriptions 返回匹配的读端句柄（发现缓存中的句柄）
func (w *writerState[T]) MatchedSubscriptions() []InstanceHandle {
	return w.participant.engine.Matches(w.handle)
}

// MatchedSubscriptionData 返回匹配读端的内置主题数据
func (w *writerState[T]) MatchedSubscriptionData(h InstanceHandle) (SubscriptionBuiltinTopicData, error) {
	if !w.participant.engine.IsMatched(w.handle, h) {
		return SubscriptionBuiltinTopicData{}, fmt.Errorf("%w: subscription %s not matched", types.ErrBadParameter, h)
	}
	rec, ok := w.participant.cache.Lookup(h)
	if !ok {
		return SubscriptionBuiltinTopicData{}, fmt.Errorf("%w: subscription %s", types.ErrNotFound, h)
	}
	return subscriptionData(rec), nil
}

// PublicationMatchedStatus 读取并清零匹配状态
func (w *writerState[T]) PublicationMatchedStatus() (PublicationMatchedStatus, error) {
	return w.f.status.PublicationMatchedStatus(w.handle)
}

// OfferedIncompatibleQosStatus 读取并清零 QoS 不兼容状态
func (w *writerState[T]) OfferedIncompatibleQosStatus() (IncompatibleQosStatus, error) {
	return w.f.status.OfferedIncompatibleQosStatus(w.handle)
}

// AssertLiveliness 刷新写端所在参与者的租约
func (w *writerState[T]) AssertLiveliness() error {
	return w.participant.AssertLiveliness()
}
