package dds

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dep2p/go-dds/pkg/qos"
	"github.com/dep2p/go-dds/pkg/types"
)

func TestListener_DataAvailable(t *testing.T) {
	f := newTestFactory(t)
	e := newEndpoints(t, f, 0, "t")
	l := &recordingListener{}
	w := e.writer(t)
	r := e.reader(t, WithListener(l))

	require.NoError(t, w.Write(reading{Sensor: "a", Value: 1}))
	f.disp.Flush()

	got := l.snapshot()
	assert.GreaterOrEqual(t, got.available, 1)
	require.Len(t, got.subMatch, 1)
	assert.Equal(t, 1, got.subMatch[0].CurrentCount)
	assert.Equal(t, w.GUID(), mustPublicationData(t, r, got.subMatch[0].LastPublicationHandle).Key)

	// 监听器读取了状态，计数变化已清零
	st, err := r.SubscriptionMatchedStatus()
	require.NoError(t, err)
	assert.Zero(t, st.CurrentCountChange)
}

func mustPublicationData(t *testing.T, r *DataReader[reading], h InstanceHandle) PublicationBuiltinTopicData {
	t.Helper()
	d, err := r.MatchedPublicationData(h)
	require.NoError(t, err)
	return d
}

func TestListener_TakeInsideCallback(t *testing.T) {
	f := newTestFactory(t)
	e := newEndpoints(t, f, 0, "t")

	var taken atomic.Int64
	l := &recordingListener{onData: func(re ReaderEntity) {
		r := re.(*DataReader[reading])
		samples, err := r.Take()
		if err == nil {
			taken.Add(int64(len(samples)))
		}
	}}
	w := e.writer(t)
	e.reader(t, WithListener(l), WithQos(qos.History{Kind: qos.HistoryKeepAll}))

	// KEEP_ALL 下回调晚到也能取到之前写入的全部样本
	for i := 0; i < 5; i++ {
		require.NoError(t, w.Write(reading{Sensor: "a", Value: i}))
	}
	f.disp.Flush()
	assert.Equal(t, int64(5), taken.Load())
}

func TestListener_CloseInsideCallback(t *testing.T) {
	f := newTestFactory(t)
	e := newEndpoints(t, f, 0, "t")

	closeErr := make(chan error, 1)
	l := &recordingListener{onData: func(re ReaderEntity) {
		select {
		case closeErr <- re.Close():
		default:
		}
	}}
	w := e.writer(t)
	r := e.reader(t, WithListener(l))

	require.NoError(t, w.Write(reading{Sensor: "a", Value: 1}))
	f.disp.Flush()

	select {
	case err := <-closeErr:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("listener not invoked")
	}
	require.Eventually(t, r.IsClosed, time.Second, 5*time.Millisecond)
	assert.Empty(t, w.MatchedSubscriptions())
}

func TestListener_CloseAncestorInsideCallback(t *testing.T) {
	f := newTestFactory(t)
	e := newEndpoints(t, f, 0, "t")

	closeErr := make(chan error, 1)
	l := &recordingListener{onData: func(ReaderEntity) {
		select {
		case closeErr <- e.sub.Close():
		default:
		}
	}}
	w := e.writer(t)
	r := e.reader(t, WithListener(l))

	require.NoError(t, w.Write(reading{Sensor: "a", Value: 1}))

	select {
	case err := <-closeErr:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("closing the subscriber inside the callback did not return")
	}
	assert.True(t, e.sub.IsClosed())
	assert.True(t, r.IsClosed())
	f.disp.Flush()
	assert.Empty(t, w.MatchedSubscriptions())

	// 工作 goroutine 仍在运行
	require.NoError(t, e.pub.Close())
}

func TestListener_PublicationMatched(t *testing.T) {
	f := newTestFactory(t)
	e := newEndpoints(t, f, 0, "t")
	l := &recordingListener{}
	w := e.writer(t, WithListener(l))

	r := e.reader(t)
	f.disp.Flush()
	got := l.snapshot()
	require.Len(t, got.pubMatch, 1)
	assert.Equal(t, 1, got.pubMatch[0].CurrentCount)
	assert.Equal(t, 1, got.pubMatch[0].CurrentCountChange)

	require.NoError(t, r.Close())
	f.disp.Flush()
	got = l.snapshot()
	require.Len(t, got.pubMatch, 2)
	assert.Equal(t, 0, got.pubMatch[1].CurrentCount)
	assert.Equal(t, -1, got.pubMatch[1].CurrentCountChange)
	assert.Equal(t, 1, got.pubMatch[1].TotalCount)
	assert.Empty(t, w.MatchedSubscriptions())
}

func TestListener_OfferedIncompatibleQos(t *testing.T) {
	f := newTestFactory(t)
	e := newEndpoints(t, f, 0, "t")
	l := &recordingListener{}
	e.writer(t, WithListener(l), WithQos(qos.Reliability{Kind: qos.ReliabilityBestEffort}))
	e.reader(t, WithQos(qos.Reliability{Kind: qos.ReliabilityReliable}))

	f.disp.Flush()
	got := l.snapshot()
	require.Len(t, got.incompat, 1)
	assert.Equal(t, qos.PolicyReliability, got.incompat[0].LastPolicyID)
	assert.Empty(t, got.pubMatch)
}

func TestListener_SampleLost(t *testing.T) {
	f := newTestFactory(t)
	e := newEndpoints(t, f, 0, "t")
	l := &recordingListener{}
	w := e.writer(t)
	e.reader(t, WithListener(l))

	require.NoError(t, w.Write(reading{Sensor: "a", Value: 1}))
	require.NoError(t, w.Write(reading{Sensor: "a", Value: 2}))
	f.disp.Flush()

	got := l.snapshot()
	require.NotEmpty(t, got.lost)
	assert.Equal(t, 1, got.lost[len(got.lost)-1].TotalCount)
}

func TestListener_ParticipantCatchesUnhandledStatus(t *testing.T) {
	f := newTestFactory(t)
	l := &recordingListener{}
	p, err := f.CreateParticipant(0, WithListener(l))
	require.NoError(t, err)
	require.NoError(t, RegisterType(p, readingType))
	topic, err := p.CreateTopic("t", readingType.Name)
	require.NoError(t, err)
	pub, err := p.CreatePublisher()
	require.NoError(t, err)
	sub, err := p.CreateSubscriber()
	require.NoError(t, err)

	w, err := NewDataWriter[reading](pub, topic)
	require.NoError(t, err)
	_, err = NewDataReader[reading](sub, topic)
	require.NoError(t, err)
	require.NoError(t, w.Write(reading{Sensor: "a", Value: 1}))
	f.disp.Flush()

	got := l.snapshot()
	assert.GreaterOrEqual(t, got.available, 1)
	assert.Len(t, got.pubMatch, 1)
	assert.Len(t, got.subMatch, 1)
}

func TestListener_MaskLimitsDelivery(t *testing.T) {
	f := newTestFactory(t)
	e := newEndpoints(t, f, 0, "t")
	parent := &recordingListener{}
	require.NoError(t, e.sub.SetListener(parent))

	own := &recordingListener{}
	w := e.writer(t)
	e.reader(t, WithListener(own), WithListenerMask(types.StatusSubscriptionMatched))

	require.NoError(t, w.Write(reading{Sensor: "a", Value: 1}))
	f.disp.Flush()

	assert.Len(t, own.snapshot().subMatch, 1)
	assert.Zero(t, own.snapshot().available)
	assert.GreaterOrEqual(t, parent.snapshot().available, 1)
	assert.Empty(t, parent.snapshot().subMatch)
}

// onReaders 订阅者级监听器，转发给各读端
type onReaders struct {
	NoOpSubscriberListener
	calls atomic.Int64
}

func (l *onReaders) OnDataOnReaders(s *Subscriber) {
	l.calls.Add(1)
	s.NotifyDataReaders()
}

func TestListener_DataOnReadersTakesPrecedence(t *testing.T) {
	f := newTestFactory(t)
	e := newEndpoints(t, f, 0, "t")
	subL := &onReaders{}
	require.NoError(t, e.sub.SetListener(subL, types.StatusDataOnReaders))

	readerL := &recordingListener{}
	w := e.writer(t)
	e.reader(t, WithListener(readerL))

	require.NoError(t, w.Write(reading{Sensor: "a", Value: 1}))
	f.disp.Flush()

	assert.Positive(t, subL.calls.Load())
	assert.GreaterOrEqual(t, readerL.snapshot().available, 1)
}

func TestListener_RemovedListenerStopsCallbacks(t *testing.T) {
	f := newTestFactory(t)
	e := newEndpoints(t, f, 0, "t")
	l := &recordingListener{}
	w := e.writer(t)
	r := e.reader(t, WithListener(l))

	require.NoError(t, r.SetListener(nil))
	require.NoError(t, w.Write(reading{Sensor: "a", Value: 1}))
	f.disp.Flush()

	assert.Zero(t, l.snapshot().available)
	changes, err := r.StatusChanges()
	require.NoError(t, err)
	assert.True(t, changes.Has(types.StatusDataAvailable))
}
