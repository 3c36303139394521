package status

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dep2p/go-dds/internal/core/dispatch"
	"github.com/dep2p/go-dds/internal/core/qosstore"
	"github.com/dep2p/go-dds/internal/core/registry"
	"github.com/dep2p/go-dds/pkg/qos"
	"github.com/dep2p/go-dds/pkg/types"
)

type fixture struct {
	reg   *registry.Registry
	disp  *dispatch.Dispatcher
	store *Store
	participant, subscriber, reader,
	publisher, writer, topic types.InstanceHandle

	mu  sync.Mutex
	got []Notification
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	qs, err := qosstore.New(nil)
	require.NoError(t, err)
	disp := dispatch.New()
	t.Cleanup(disp.Stop)
	reg, err := registry.New(registry.Deps{Qos: qs, Quiescer: disp})
	require.NoError(t, err)

	f := &fixture{reg: reg, disp: disp, store: New(reg, disp)}
	f.store.SetNotifier(func(n Notification) {
		f.mu.Lock()
		defer f.mu.Unlock()
		f.got = append(f.got, n)
	})

	f.participant, err = reg.Create(types.KindParticipant, types.HandleNil, qos.DefaultParticipant())
	require.NoError(t, err)
	f.topic, err = reg.Create(types.KindTopic, f.participant, qos.DefaultTopic(), registry.WithName("t"))
	require.NoError(t, err)
	f.subscriber, err = reg.Create(types.KindSubscriber, f.participant, qos.DefaultSubscriber())
	require.NoError(t, err)
	f.reader, err = reg.Create(types.KindDataReader, f.subscriber, qos.DefaultReader(), registry.WithTopic(f.topic))
	require.NoError(t, err)
	f.publisher, err = reg.Create(types.KindPublisher, f.participant, qos.DefaultPublisher())
	require.NoError(t, err)
	f.writer, err = reg.Create(types.KindDataWriter, f.publisher, qos.DefaultWriter(), registry.WithTopic(f.topic))
	require.NoError(t, err)
	return f
}

func (f *fixture) notifications() []Notification {
	f.disp.Flush()
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Notification(nil), f.got...)
}

func TestStore_MatchedReadAndReset(t *testing.T) {
	f := newFixture(t)

	f.store.OnPublicationMatched(f.writer, 99, +1)
	f.store.OnPublicationMatched(f.writer, 100, +1)

	changes, _ := f.reg.StatusChanges(f.writer)
	assert.True(t, changes.Has(types.StatusPublicationMatched))

	st, err := f.store.PublicationMatchedStatus(f.writer)
	require.NoError(t, err)
	assert.Equal(t, 2, st.TotalCount)
	assert.Equal(t, 2, st.TotalCountChange)
	assert.Equal(t, 2, st.CurrentCount)
	assert.Equal(t, types.InstanceHandle(100), st.LastSubscriptionHandle)

	changes, _ = f.reg.StatusChanges(f.writer)
	assert.False(t, changes.Has(types.StatusPublicationMatched))

	f.store.OnPublicationMatched(f.writer, 99, -1)
	st, _ = f.store.PublicationMatchedStatus(f.writer)
	assert.Equal(t, 2, st.TotalCount)
	assert.Equal(t, 0, st.TotalCountChange)
	assert.Equal(t, 1, st.CurrentCount)
	assert.Equal(t, -1, st.CurrentCountChange)
}

func TestStore_IncompatibleQos(t *testing.T) {
	f := newFixture(t)

	f.store.OnRequestedIncompatibleQos(f.reader, []qos.PolicyKind{qos.PolicyReliability})
	f.store.OnRequestedIncompatibleQos(f.reader, []qos.PolicyKind{qos.PolicyDurability, qos.PolicyReliability})

	st, err := f.store.RequestedIncompatibleQosStatus(f.reader)
	require.NoError(t, err)
	assert.Equal(t, 2, st.TotalCount)
	assert.Equal(t, qos.PolicyDurability, st.LastPolicyID)
	assert.Equal(t, 2, st.Policies[qos.PolicyReliability])
	assert.Equal(t, 1, st.Policies[qos.PolicyDurability])

	st, _ = f.store.RequestedIncompatibleQosStatus(f.reader)
	assert.Equal(t, 0, st.TotalCountChange)
}

func TestStore_RoutesToNearestListener(t *testing.T) {
	f := newFixture(t)

	require.NoError(t, f.reg.SetListener(f.participant, "participant", types.StatusAll))
	require.NoError(t, f.reg.SetListener(f.subscriber, "subscriber", types.StatusSampleLost))

	f.store.OnSampleLost(f.reader, 2)
	f.store.OnSubscriptionMatched(f.reader, 7, +1)

	got := f.notifications()
	require.Len(t, got, 2)
	assert.Equal(t, f.subscriber, got[0].Target)
	assert.Equal(t, "subscriber", got[0].Listener)
	assert.Equal(t, f.reader, got[0].Source)
	assert.Equal(t, f.participant, got[1].Target)
	assert.Equal(t, types.StatusSubscriptionMatched, got[1].Kind)
}

func TestStore_DataOnReadersPreferred(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.reg.SetListener(f.reader, "reader", types.StatusDataAvailable))

	f.store.OnDataAvailable(f.reader)
	got := f.notifications()
	require.Len(t, got, 1)
	assert.Equal(t, types.StatusDataAvailable, got[0].Kind)

	require.NoError(t, f.reg.SetListener(f.subscriber, "subscriber", types.StatusDataOnReaders))
	f.store.OnDataAvailable(f.reader)
	got = f.notifications()
	require.Len(t, got, 2)
	assert.Equal(t, types.StatusDataOnReaders, got[1].Kind)
	assert.Equal(t, f.subscriber, got[1].Target)

	f.store.ClearDataAvailable(f.reader)
	changes, _ := f.reg.StatusChanges(f.reader)
	assert.False(t, changes.Has(types.StatusDataAvailable))
}

func TestStore_NoListenerNoCallback(t *testing.T) {
	f := newFixture(t)
	f.store.OnSampleRejected(f.reader, types.RejectedBySamplesLimit, 42)
	assert.Empty(t, f.notifications())

	st, err := f.store.SampleRejectedStatus(f.reader)
	require.NoError(t, err)
	assert.Equal(t, 1, st.TotalCount)
	assert.Equal(t, types.RejectedBySamplesLimit, st.LastReason)
	assert.Equal(t, types.InstanceHandle(42), st.LastInstanceHandle)
}

func TestStore_ClosedEntityIgnored(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.reg.SetListener(f.reader, "reader", types.StatusAll))
	require.NoError(t, f.reg.Close(f.reader))

	f.store.OnSampleLost(f.reader, 1)
	f.store.OnLivelinessChanged(f.reader, 1, 1, 0)
	assert.Empty(t, f.notifications())

	_, err := f.store.SampleLostStatus(f.reader)
	assert.ErrorIs(t, err, types.ErrPreconditionNotMet)

	// 远端句柄没有计数器
	f.store.OnPublicationMatched(9999, f.reader, 1)
	_, err = f.store.PublicationMatchedStatus(9999)
	assert.ErrorIs(t, err, types.ErrNotFound)
}

func TestStore_LivelinessAndTopic(t *testing.T) {
	f := newFixture(t)

	f.store.OnLivelinessChanged(f.reader, f.writer, +1, 0)
	f.store.OnLivelinessChanged(f.reader, f.writer, -1, 0)
	st, err := f.store.LivelinessChangedStatus(f.reader)
	require.NoError(t, err)
	assert.Equal(t, 0, st.AliveCount)
	assert.Equal(t, f.writer, st.LastPublicationHandle)

	f.store.OnInconsistentTopic(f.topic)
	it, err := f.store.InconsistentTopicStatus(f.topic)
	require.NoError(t, err)
	assert.Equal(t, 1, it.TotalCount)
}
