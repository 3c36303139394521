package dds

import (
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dep2p/go-dds/pkg/qos"
	"github.com/dep2p/go-dds/pkg/types"
)

func TestBuiltin_ReadersSeeRemoteEntities(t *testing.T) {
	f := newTestFactory(t)
	a := newEndpoints(t, f, 0, "t")
	b := newEndpoints(t, f, 0, "t")
	w := b.writer(t)
	r := b.reader(t)

	bs, err := a.p.BuiltinSubscriber()
	require.NoError(t, err)
	again, err := a.p.BuiltinSubscriber()
	require.NoError(t, err)
	assert.Same(t, bs, again)

	parts, err := bs.ParticipantReader().Take()
	require.NoError(t, err)
	require.Len(t, parts, 1)
	assert.Equal(t, b.p.GUID(), parts[0].Data.Key)

	topics, err := bs.TopicReader().Take()
	require.NoError(t, err)
	require.Len(t, topics, 1)
	assert.Equal(t, "t", topics[0].Data.Name)
	assert.Equal(t, "Reading", topics[0].Data.TypeName)

	pubs, err := bs.PublicationReader().Take()
	require.NoError(t, err)
	require.Len(t, pubs, 1)
	assert.Equal(t, w.GUID(), pubs[0].Data.Key)

	subs, err := bs.SubscriptionReader().Take()
	require.NoError(t, err)
	require.Len(t, subs, 1)
	assert.Equal(t, r.GUID(), subs[0].Data.Key)
	assert.Equal(t, b.p.GUID(), subs[0].Data.Participant)

	// 内置实体不出现在用户视图中
	assert.Len(t, a.p.Subscribers(), 1)
	assert.Len(t, a.p.Topics(), 1)
	assert.Empty(t, b.p.DiscoveredSubscriptions())
}

func TestBuiltin_LateAnnouncementsAndLoss(t *testing.T) {
	f := newTestFactory(t)
	a := newEndpoints(t, f, 0, "t")
	bs, err := a.p.BuiltinSubscriber()
	require.NoError(t, err)

	got, err := bs.PublicationReader().Take()
	require.NoError(t, err)
	assert.Empty(t, got)

	b := newEndpoints(t, f, 0, "t")
	w := b.writer(t)

	pubs, err := bs.PublicationReader().Take()
	require.NoError(t, err)
	require.Len(t, pubs, 1)
	assert.Equal(t, w.GUID(), pubs[0].Data.Key)

	// QoS 变化产生新样本
	require.NoError(t, w.SetQos(qos.Set{}.With(qos.Deadline{Period: 5e9})))
	pubs, err = bs.PublicationReader().Take()
	require.NoError(t, err)
	require.NotEmpty(t, pubs)
	assert.Equal(t, int64(5e9), int64(pubs[len(pubs)-1].Data.Qos.Deadline().Period))

	require.NoError(t, w.Close())
	inst := types.KeyHandle(w.GUID().String())
	st, err := bs.PublicationReader().InstanceState(inst)
	require.NoError(t, err)
	assert.Equal(t, types.InstanceNotAliveDisposed, st)
}

func TestBuiltin_ClosedWithParticipantChildren(t *testing.T) {
	f := newTestFactory(t)
	a := newEndpoints(t, f, 0, "t")
	bs, err := a.p.BuiltinSubscriber()
	require.NoError(t, err)

	require.NoError(t, a.p.DeleteContainedEntities())
	assert.False(t, bs.IsClosed())

	require.NoError(t, bs.Close())
	again, err := a.p.BuiltinSubscriber()
	require.NoError(t, err)
	assert.NotSame(t, bs, again)
}

func TestTopic_Lifecycle(t *testing.T) {
	f := newTestFactory(t)
	p, err := f.CreateParticipant(0)
	require.NoError(t, err)
	require.NoError(t, RegisterType(p, readingType))

	_, err = p.CreateTopic("", readingType.Name)
	assert.ErrorIs(t, err, ErrBadParameter)

	topic, err := p.CreateTopic("t", readingType.Name, WithQos(qos.TopicData{Value: []byte("x")}))
	require.NoError(t, err)
	assert.Equal(t, "t", topic.Name())
	assert.Equal(t, "Reading", topic.TypeName())
	assert.Equal(t, p.Handle(), topic.Participant().Handle())
	assert.Equal(t, []byte("x"), topic.Qos().TopicData().Value)

	require.NoError(t, topic.SetQos(qos.Set{}.With(qos.TopicData{Value: []byte("y")})))
	assert.Equal(t, []byte("y"), topic.Qos().TopicData().Value)

	other, err := f.CreateParticipant(0)
	require.NoError(t, err)
	require.NoError(t, RegisterType(other, readingType))
	pub, err := other.CreatePublisher()
	require.NoError(t, err)
	_, err = NewDataWriter[reading](pub, topic)
	assert.ErrorIs(t, err, ErrPreconditionNotMet)

	require.NoError(t, topic.Close())
	assert.True(t, topic.IsClosed())
	_, err = p.FindTopic("t")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDistributedLogger_PublishesRecords(t *testing.T) {
	f := newTestFactory(t)
	a := newEndpoints(t, f, 0, "t")
	b := newEndpoints(t, f, 0, "t")

	lr, err := NewLogReader(b.sub)
	require.NoError(t, err)

	dl, err := NewDistributedLogger(a.p, WithLogLevel(slog.LevelInfo), WithLogCategory("app"), WithLogHost("h1"))
	require.NoError(t, err)

	dl.Debug("dropped")
	dl.Info("started", "port", 7400)
	dl.Warn("slow", "category", "net", "rtt", "12ms")

	got, err := lr.Take()
	require.NoError(t, err)
	require.Len(t, got, 2)

	byCat := map[string]LogMessage{}
	for _, s := range got {
		byCat[s.Data.Category] = s.Data
	}
	assert.Equal(t, "started", byCat["app"].Message)
	assert.Equal(t, "7400", byCat["app"].Attrs["port"])
	assert.Equal(t, "h1", byCat["app"].Host)
	assert.Equal(t, slog.LevelWarn, byCat["net"].Level)
	assert.NotContains(t, byCat["net"].Attrs, "category")

	assert.Equal(t, LogTopicName, dl.Writer().TopicName())
	require.NoError(t, dl.Close())
	assert.True(t, dl.Writer().IsClosed())

	// 同一参与者上可以重复创建，复用已有主题
	dl2, err := NewDistributedLogger(a.p)
	require.NoError(t, err)
	require.NoError(t, dl2.Close())
}
