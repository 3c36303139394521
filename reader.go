package dds

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/dep2p/go-dds/internal/core/registry"
	"github.com/dep2p/go-dds/internal/core/samplecache"
	"github.com/dep2p/go-dds/pkg/qos"
	"github.com/dep2p/go-dds/pkg/types"
)

// ============================================================================
//                              DataReader
// ============================================================================

// Sample 类型化样本；Info.Valid 为 false 时 Data 为零值
type Sample[T any] struct {
	Data T
	Info SampleInfo
}

// DataReader 类型化读端
type DataReader[T any] struct {
	*readerState[T]
	scope bool
}

type readerState[T any] struct {
	entity
	participant *participantState
	subscriber  *groupState
	topic       *topicState
	ts          TypeSupport[T]
	cache       *samplecache.Cache

	mu           sync.RWMutex
	defaultState DataState
}

func (r *DataReader[T]) scoped() any {
	return &DataReader[T]{readerState: r.readerState, scope: true}
}

// Close 关闭读端并丢弃缓存
func (r *DataReader[T]) Close() error {
	return r.f.closeEntity(r.handle, r.scope)
}

// NewDataReader 在订阅者下为主题创建读端，T 必须与主题类型登记的 Go 类型一致
func NewDataReader[T any](sub *Subscriber, topic *Topic, opts ...EntityOption) (*DataReader[T], error) {
	if sub == nil || topic == nil {
		return nil, fmt.Errorf("%w: nil subscriber or topic", types.ErrBadParameter)
	}
	return newDataReader[T](sub.groupState, topic.topicState, newEntityOptions(opts))
}

func newDataReader[T any](sub *groupState, topic *topicState, o *entityOptions) (*DataReader[T], error) {
	p := sub.participant
	if topic.participant != p {
		return nil, fmt.Errorf("%w: topic %q belongs to another participant", types.ErrPreconditionNotMet, topic.name)
	}
	ts, err := typeSupportFor[T](p, topic.typeName)
	if err != nil {
		return nil, err
	}

	h, err := p.f.create(types.KindDataReader, sub.handle, o,
		registry.WithName(topic.name),
		registry.WithTypeName(topic.typeName),
		registry.WithTopic(topic.handle),
	)
	if err != nil {
		return nil, err
	}
	if o.internal {
		p.markInternal(h)
	}
	base, err := newEntity(p.f, h)
	if err != nil {
		_ = p.f.reg.Close(h)
		return nil, err
	}
	set, _ := p.f.reg.GetQos(h)
	cache, err := samplecache.New(samplecache.Deps{
		Reader: h,
		Sink:   p.f.status,
		Clock:  p.f.clock,
		Bus:    p.f.bus,
	}, samplecache.ConfigFromQos(set))
	if err != nil {
		_ = p.f.reg.Close(h)
		return nil, err
	}
	st := &readerState[T]{
		entity:       base,
		participant:  p,
		subscriber:   sub,
		topic:        topic,
		ts:           ts,
		cache:        cache,
		defaultState: types.AnyState(),
	}
	r := &DataReader[T]{readerState: st}

	p.addReader(h, base.guid, st)
	if err := p.f.track(h, r, func() {
		p.removeReader(h, base.guid)
		_ = cache.Close()
	}); err != nil {
		p.removeReader(h, base.guid)
		_ = cache.Close()
		return nil, err
	}

	if kind := set.Durability().Kind; kind >= qos.DurabilityTransient {
		st.replayDurable(kind)
	}
	if err := p.f.finish(h, sub.handle, o); err != nil {
		_ = p.f.reg.Close(h)
		return nil, err
	}
	log.Debug("reader created", "handle", h, "topic", topic.name)
	return r, nil
}

// replayDurable 从持久性服务取回主题上的 TRANSIENT/PERSISTENT 样本
func (r *readerState[T]) replayDurable(kind qos.DurabilityKind) {
	msgs, err := r.f.durability.Replay(r.topic.name, kind)
	if err != nil {
		log.Warn("durable replay failed", "reader", r.handle, "topic", r.topic.name, "err", err)
		return
	}
	for _, m := range msgs {
		pub := types.HandleNil
		if rec, ok := r.participant.cache.LookupGUID(m.Writer); ok {
			pub = rec.Handle
		}
		r.deliver(pub, m)
	}
	if len(msgs) > 0 {
		log.Debug("durable samples replayed", "reader", r.handle, "count", len(msgs))
	}
}

// deliver 实现 readerPort；持久化回放的 JSON 负载在这里解码为 T
func (r *readerState[T]) deliver(pub types.InstanceHandle, msg types.DataMessage) {
	switch payload := msg.Payload.(type) {
	case nil, T:
	case json.RawMessage:
		var v T
		if err := json.Unmarshal(payload, &v); err != nil {
			log.Warn("undecodable payload dropped", "reader", r.handle, "writer", msg.Writer, "err", err)
			return
		}
		msg.Payload = v
	default:
		log.Warn("payload type mismatch", "reader", r.handle, "writer", msg.Writer, "type", fmt.Sprintf("%T", payload))
		return
	}
	_, _ = r.cache.Push(pub, msg)
}

// writerLost 实现 readerPort
func (r *readerState[T]) writerLost(pub types.InstanceHandle) {
	r.cache.WriterLost(pub)
}

// ============================================================================
//                              读取
// ============================================================================

func (r *readerState[T]) usable() error {
	if err := r.f.reg.Check(r.handle); err != nil {
		return err
	}
	if !r.IsEnabled() {
		return fmt.Errorf("%w: reader %s", types.ErrNotEnabled, r.handle)
	}
	return nil
}

func (r *readerState[T]) collect(take bool, f samplecache.Filter) ([]Sample[T], error) {
	if err := r.usable(); err != nil {
		return nil, err
	}
	var raw []types.Sample
	if take {
		raw = r.cache.Take(f)
	} else {
		raw = r.cache.Read(f)
	}
	r.f.status.ClearDataAvailable(r.handle)
	return convert[T](raw), nil
}

func convert[T any](raw []types.Sample) []Sample[T] {
	out := make([]Sample[T], len(raw))
	for i, s := range raw {
		out[i].Info = s.Info
		if v, ok := s.Data.(T); ok {
			out[i].Data = v
		}
	}
	return out
}

// Read 读取默认状态过滤下的全部样本，样本标记为已读但保留在缓存中
func (r *readerState[T]) Read() ([]Sample[T], error) {
	return r.collect(false, samplecache.NewFilter(samplecache.State(r.DefaultFilterState())))
}

// Take 取走默认状态过滤下的全部样本
func (r *readerState[T]) Take() ([]Sample[T], error) {
	return r.collect(true, samplecache.NewFilter(samplecache.State(r.DefaultFilterState())))
}

// ReadValid 只读取携带数据的样本
func (r *readerState[T]) ReadValid() ([]Sample[T], error) {
	return r.collect(false, samplecache.NewFilter(samplecache.State(r.DefaultFilterState()), samplecache.ValidOnly()))
}

// TakeValid 只取走携带数据的样本
func (r *readerState[T]) TakeValid() ([]Sample[T], error) {
	return r.collect(true, samplecache.NewFilter(samplecache.State(r.DefaultFilterState()), samplecache.ValidOnly()))
}

// Select 返回一次带条件读取的构造器
func (r *readerState[T]) Select() *Selector[T] {
	return &Selector[T]{r: r, state: r.DefaultFilterState()}
}

// DefaultFilterState 返回 Read/Take 使用的默认状态过滤
func (r *readerState[T]) DefaultFilterState() DataState {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.defaultState
}

// SetDefaultFilterState 设置默认状态过滤
func (r *readerState[T]) SetDefaultFilterState(ds DataState) {
	r.mu.Lock()
	r.defaultState = ds
	r.mu.Unlock()
}

// ============================================================================
//                              实例
// ============================================================================

// LookupInstance 返回样本对应的实例句柄，缓存中没有该实例时返回 HandleNil
func (r *readerState[T]) LookupInstance(v T) InstanceHandle {
	return r.cache.LookupInstance(r.ts.keyOf(v))
}

// InstanceState 返回实例状态
func (r *readerState[T]) InstanceState(h InstanceHandle) (InstanceState, error) {
	return r.cache.InstanceState(h)
}

// InstanceKey 返回实例键
func (r *readerState[T]) InstanceKey(h InstanceHandle) (string, error) {
	return r.cache.InstanceKey(h)
}

// Instances 返回缓存中的实例句柄
func (r *readerState[T]) Instances() []InstanceHandle {
	return r.cache.Instances()
}

// Len 返回缓存中的样本数
func (r *readerState[T]) Len() int {
	return r.cache.Len()
}

// ============================================================================
//                              查询与状态
// ============================================================================

// TopicName 返回主题名
func (r *readerState[T]) TopicName() string {
	return r.topic.name
}

// TypeName 返回类型名
func (r *readerState[T]) TypeName() string {
	return r.topic.typeName
}

// Topic 返回读端的主题
func (r *readerState[T]) Topic() *Topic {
	return &Topic{topicState: r.topic}
}

// Subscriber 返回所属订阅者
func (r *readerState[T]) Subscriber() *Subscriber {
	return &Subscriber{groupState: r.subscriber}
}

// SetQos 修改读端 QoS，缓存容量和匹配关系随之更新
func (r *readerState[T]) SetQos(set QosSet) error {
	if err := r.mergeQos(set); err != nil {
		return err
	}
	if err := r.cache.SetConfig(samplecache.ConfigFromQos(r.Qos())); err != nil {
		return err
	}
	r.participant.refresh(r.handle)
	return nil
}

// MatchedPublications 返回匹配的写端句柄（发现缓存中的句柄）
func (r *readerState[T]) MatchedPublications() []InstanceHandle {
	return r.participant.engine.Matches(r.handle)
}

// MatchedPublicationData 返回匹配写端的内置主题数据
func (r *readerState[T]) MatchedPublicationData(h InstanceHandle) (PublicationBuiltinTopicData, error) {
	if !r.participant.engine.IsMatched(h, r.handle) {
		return PublicationBuiltinTopicData{}, fmt.Errorf("%w: publication %s not matched", types.ErrBadParameter, h)
	}
	rec, ok := r.participant.cache.Lookup(h)
	if !ok {
		return PublicationBuiltinTopicData{}, fmt.Errorf("%w: publication %s", types.ErrNotFound, h)
	}
	return publicationData(rec), nil
}

// SubscriptionMatchedStatus 读取并清零匹配状态
func (r *readerState[T]) SubscriptionMatchedStatus() (SubscriptionMatchedStatus, error) {
	return r.f.status.SubscriptionMatchedStatus(r.handle)
}

// RequestedIncompatibleQosStatus 读取并清零 QoS 不兼容状态
func (r *readerState[T]) RequestedIncompatibleQosStatus() (IncompatibleQosStatus, error) {
	return r.f.status.RequestedIncompatibleQosStatus(r.handle)
}

// SampleLostStatus 读取并清零样本丢失状态
func (r *readerState[T]) SampleLostStatus() (SampleLostStatus, error) {
	return r.f.status.SampleLostStatus(r.handle)
}

// SampleRejectedStatus 读取并清零样本拒绝状态
func (r *readerState[T]) SampleRejectedStatus() (SampleRejectedStatus, error) {
	return r.f.status.SampleRejectedStatus(r.handle)
}

// LivelinessChangedStatus 读取并清零存活变化状态
func (r *readerState[T]) LivelinessChangedStatus() (LivelinessChangedStatus, error) {
	return r.f.status.LivelinessChangedStatus(r.handle)
}
