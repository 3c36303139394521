package dds

import (
	"sync/atomic"
	"time"

	"github.com/dep2p/go-dds/pkg/qos"
	"github.com/dep2p/go-dds/pkg/types"
)

// ============================================================================
//                              内置主题数据
// ============================================================================

// 内置主题名
const (
	BuiltinParticipantTopic  = "DCPSParticipant"
	BuiltinPublicationTopic  = "DCPSPublication"
	BuiltinSubscriptionTopic = "DCPSSubscription"
	BuiltinTopicTopic        = "DCPSTopic"
)

// ParticipantBuiltinTopicData 远端参与者
type ParticipantBuiltinTopicData struct {
	Key           GUID
	DomainID      uint32
	UserData      []byte
	LeaseDuration time.Duration
}

// TopicBuiltinTopicData 远端主题
type TopicBuiltinTopicData struct {
	Key         GUID
	Participant GUID
	Name        string
	TypeName    string
	Qos         QosSet
}

// PublicationBuiltinTopicData 远端写端
type PublicationBuiltinTopicData struct {
	Key         GUID
	Participant GUID
	TopicName   string
	TypeName    string
	Qos         QosSet
}

// SubscriptionBuiltinTopicData 远端读端
type SubscriptionBuiltinTopicData struct {
	Key         GUID
	Participant GUID
	TopicName   string
	TypeName    string
	Qos         QosSet
}

func participantData(rec types.EntityRecord) ParticipantBuiltinTopicData {
	return ParticipantBuiltinTopicData{
		Key:           rec.GUID,
		DomainID:      rec.DomainID,
		UserData:      rec.Qos.UserData().Value,
		LeaseDuration: rec.LeaseDuration,
	}
}

func topicData(rec types.EntityRecord) TopicBuiltinTopicData {
	return TopicBuiltinTopicData{Key: rec.GUID, Participant: rec.Participant, Name: rec.TopicName, TypeName: rec.TypeName, Qos: rec.Qos}
}

func publicationData(rec types.EntityRecord) PublicationBuiltinTopicData {
	return PublicationBuiltinTopicData{Key: rec.GUID, Participant: rec.Participant, TopicName: rec.TopicName, TypeName: rec.TypeName, Qos: rec.Qos}
}

func subscriptionData(rec types.EntityRecord) SubscriptionBuiltinTopicData {
	return SubscriptionBuiltinTopicData{Key: rec.GUID, Participant: rec.Participant, TopicName: rec.TopicName, TypeName: rec.TypeName, Qos: rec.Qos}
}

// ============================================================================
//                              内置订阅者
// ============================================================================

// BuiltinSubscriber 内置订阅者，四个读端由发现缓存填充
//
// 每个远端实体是一个实例（键为 GUID），重新通告产生新样本，
// 丢失或被忽略时实例被销毁。本参与者自己的实体不出现在内置主题中。
type BuiltinSubscriber struct {
	*Subscriber

	participants  *DataReader[ParticipantBuiltinTopicData]
	topics        *DataReader[TopicBuiltinTopicData]
	publications  *DataReader[PublicationBuiltinTopicData]
	subscriptions *DataReader[SubscriptionBuiltinTopicData]

	seq    atomic.Uint64
	closed atomic.Bool
}

// ParticipantReader 返回 DCPSParticipant 读端
func (b *BuiltinSubscriber) ParticipantReader() *DataReader[ParticipantBuiltinTopicData] {
	return b.participants
}

// TopicReader 返回 DCPSTopic 读端
func (b *BuiltinSubscriber) TopicReader() *DataReader[TopicBuiltinTopicData] {
	return b.topics
}

// PublicationReader 返回 DCPSPublication 读端
func (b *BuiltinSubscriber) PublicationReader() *DataReader[PublicationBuiltinTopicData] {
	return b.publications
}

// SubscriptionReader 返回 DCPSSubscription 读端
func (b *BuiltinSubscriber) SubscriptionReader() *DataReader[SubscriptionBuiltinTopicData] {
	return b.subscriptions
}

// BuiltinSubscriber 返回内置订阅者，首次调用时创建并用已发现的实体填充
func (p *participantState) BuiltinSubscriber() (*BuiltinSubscriber, error) {
	p.builtinMu.Lock()
	defer p.builtinMu.Unlock()

	p.mu.RLock()
	b := p.builtin
	p.mu.RUnlock()
	if b != nil && !b.closed.Load() {
		return b, nil
	}
	if err := p.f.reg.Check(p.handle); err != nil {
		return nil, err
	}

	b = &BuiltinSubscriber{}
	internal := func() *entityOptions {
		return &entityOptions{internal: true}
	}
	sub, err := p.createSubscriber(internal(), func() { b.closed.Store(true) })
	if err != nil {
		return nil, err
	}
	b.Subscriber = sub

	fail := func(err error) (*BuiltinSubscriber, error) {
		_ = p.f.reg.Close(sub.handle)
		return nil, err
	}
	readerQos := func() *entityOptions {
		o := internal()
		o.qos = qos.Set{}.With(
			qos.Reliability{Kind: qos.ReliabilityReliable},
			qos.Durability{Kind: qos.DurabilityTransientLocal},
			qos.History{Kind: qos.HistoryKeepLast, Depth: 1},
		)
		o.hasQos = true
		return o
	}

	if b.participants, err = builtinReader(p, sub, BuiltinParticipantTopic, func(d ParticipantBuiltinTopicData) GUID { return d.Key }, readerQos()); err != nil {
		return fail(err)
	}
	if b.topics, err = builtinReader(p, sub, BuiltinTopicTopic, func(d TopicBuiltinTopicData) GUID { return d.Key }, readerQos()); err != nil {
		return fail(err)
	}
	if b.publications, err = builtinReader(p, sub, BuiltinPublicationTopic, func(d PublicationBuiltinTopicData) GUID { return d.Key }, readerQos()); err != nil {
		return fail(err)
	}
	if b.subscriptions, err = builtinReader(p, sub, BuiltinSubscriptionTopic, func(d SubscriptionBuiltinTopicData) GUID { return d.Key }, readerQos()); err != nil {
		return fail(err)
	}

	// 先注册观察者再回填，回填与并发通告可能重复，同一实例的重复样本无害
	p.cache.AddObserver(b)
	for _, recs := range [][]types.EntityRecord{p.cache.Participants(), p.cache.Topics(), p.cache.Publications(), p.cache.Subscriptions()} {
		for _, rec := range recs {
			b.OnRecordAnnounced(rec)
		}
	}

	p.mu.Lock()
	p.builtin = b
	p.mu.Unlock()
	log.Debug("builtin subscriber created", "participant", p.handle)
	return b, nil
}

// builtinReader 创建内置主题和读端
func builtinReader[T any](p *participantState, sub *Subscriber, topicName string, key func(T) GUID, o *entityOptions) (*DataReader[T], error) {
	ts := TypeSupport[T]{
		Name: topicName,
		Key:  func(v T) string { return key(v).String() },
	}
	p.mu.Lock()
	p.typeSupports[ts.Name] = ts
	p.mu.Unlock()

	// 内置订阅者重建时复用已有的内置主题
	var topic *Topic
	if h, err := p.f.reg.Find(p.handle, types.KindTopic, topicName); err == nil {
		topic, _ = lookupEntity[*Topic](p.f, h)
	}
	if topic == nil {
		var err error
		if topic, err = p.createTopic(topicName, ts.Name, &entityOptions{internal: true}); err != nil {
			return nil, err
		}
	}
	return newDataReader[T](sub.groupState, topic.topicState, o)
}

// OnRecordAnnounced 实现 discovery.Observer
func (b *BuiltinSubscriber) OnRecordAnnounced(rec types.EntityRecord) {
	if rec.Origin != types.OriginRemote {
		return
	}
	b.push(rec, types.ChangeAlive)
}

// OnRecordLost 实现 discovery.Observer
func (b *BuiltinSubscriber) OnRecordLost(rec types.EntityRecord) {
	if rec.Origin != types.OriginRemote {
		return
	}
	b.push(rec, types.ChangeDisposed)
}

func (b *BuiltinSubscriber) push(rec types.EntityRecord, kind types.ChangeKind) {
	if b.closed.Load() {
		return
	}
	msg := types.DataMessage{
		Writer:          rec.GUID,
		Kind:            kind,
		Key:             rec.GUID.String(),
		SourceTimestamp: rec.LastSeen,
		Sequence:        b.seq.Add(1),
	}
	switch rec.Kind {
	case types.BuiltinParticipant:
		if kind == types.ChangeAlive {
			msg.Payload = participantData(rec)
		}
		b.participants.deliver(rec.Handle, msg)
	case types.BuiltinTopic:
		if kind == types.ChangeAlive {
			msg.Payload = topicData(rec)
		}
		b.topics.deliver(rec.Handle, msg)
	case types.BuiltinPublication:
		if kind == types.ChangeAlive {
			msg.Payload = publicationData(rec)
		}
		b.publications.deliver(rec.Handle, msg)
	case types.BuiltinSubscription:
		if kind == types.ChangeAlive {
			msg.Payload = subscriptionData(rec)
		}
		b.subscriptions.deliver(rec.Handle, msg)
	}
}
