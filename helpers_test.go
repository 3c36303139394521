package dds

import (
	"sync"
	"testing"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/require"

	"github.com/dep2p/go-dds/config"
)

type reading struct {
	Sensor string
	Value  int
}

var readingType = TypeSupport[reading]{
	Name: "Reading",
	Key:  func(r reading) string { return r.Sensor },
}

func newTestFactory(t *testing.T, opts ...Option) *Factory {
	t.Helper()
	cfg := config.NewConfig()
	cfg.Log.Level = "error"
	f, err := NewFactory(append([]Option{WithConfig(cfg), WithClock(clock.NewMock())}, opts...)...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = f.Finalize() })
	return f
}

// endpoints 一个参与者上的常用实体
type endpoints struct {
	p     *DomainParticipant
	topic *Topic
	pub   *Publisher
	sub   *Subscriber
}

func newEndpoints(t *testing.T, f *Factory, domain uint32, topicName string) endpoints {
	t.Helper()
	p, err := f.CreateParticipant(domain)
	require.NoError(t, err)
	require.NoError(t, RegisterType(p, readingType))
	topic, err := p.CreateTopic(topicName, readingType.Name)
	require.NoError(t, err)
	pub, err := p.CreatePublisher()
	require.NoError(t, err)
	sub, err := p.CreateSubscriber()
	require.NoError(t, err)
	return endpoints{p: p, topic: topic, pub: pub, sub: sub}
}

func (e endpoints) writer(t *testing.T, opts ...EntityOption) *DataWriter[reading] {
	t.Helper()
	w, err := NewDataWriter[reading](e.pub, e.topic, opts...)
	require.NoError(t, err)
	return w
}

func (e endpoints) reader(t *testing.T, opts ...EntityOption) *DataReader[reading] {
	t.Helper()
	r, err := NewDataReader[reading](e.sub, e.topic, opts...)
	require.NoError(t, err)
	return r
}

func values(samples []Sample[reading]) []int {
	out := make([]int, 0, len(samples))
	for _, s := range samples {
		if s.Info.Valid {
			out = append(out, s.Data.Value)
		}
	}
	return out
}

// recordingListener 记录回调
type recordingListener struct {
	NoOpDataReaderListener
	NoOpDataWriterListener

	mu        sync.Mutex
	available int
	subMatch  []SubscriptionMatchedStatus
	pubMatch  []PublicationMatchedStatus
	lost      []SampleLostStatus
	incompat  []IncompatibleQosStatus
	onData    func(r ReaderEntity)
}

func (l *recordingListener) OnDataAvailable(r ReaderEntity) {
	l.mu.Lock()
	l.available++
	fn := l.onData
	l.mu.Unlock()
	if fn != nil {
		fn(r)
	}
}

func (l *recordingListener) OnSubscriptionMatched(_ ReaderEntity, st SubscriptionMatchedStatus) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.subMatch = append(l.subMatch, st)
}

func (l *recordingListener) OnPublicationMatched(_ WriterEntity, st PublicationMatchedStatus) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.pubMatch = append(l.pubMatch, st)
}

func (l *recordingListener) OnSampleLost(_ ReaderEntity, st SampleLostStatus) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.lost = append(l.lost, st)
}

func (l *recordingListener) OnOfferedIncompatibleQos(_ WriterEntity, st IncompatibleQosStatus) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.incompat = append(l.incompat, st)
}

type listenerCounts struct {
	available int
	subMatch  []SubscriptionMatchedStatus
	pubMatch  []PublicationMatchedStatus
	lost      []SampleLostStatus
	incompat  []IncompatibleQosStatus
}

func (l *recordingListener) snapshot() listenerCounts {
	l.mu.Lock()
	defer l.mu.Unlock()
	return listenerCounts{
		available: l.available,
		subMatch:  append([]SubscriptionMatchedStatus(nil), l.subMatch...),
		pubMatch:  append([]PublicationMatchedStatus(nil), l.pubMatch...),
		lost:      append([]SampleLostStatus(nil), l.lost...),
		incompat:  append([]IncompatibleQosStatus(nil), l.incompat...),
	}
}
