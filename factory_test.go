package dds

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dep2p/go-dds/config"
	"github.com/dep2p/go-dds/pkg/qos"
	"github.com/dep2p/go-dds/pkg/types"
)

func TestFactory_CreateAndLookupParticipant(t *testing.T) {
	f := newTestFactory(t)

	p0, err := f.CreateParticipant(0)
	require.NoError(t, err)
	p7, err := f.CreateParticipant(7)
	require.NoError(t, err)

	assert.True(t, p0.IsEnabled())
	assert.Equal(t, uint32(7), p7.DomainID())
	assert.False(t, p0.GUID().IsZero())
	assert.NotEqual(t, p0.GUID().Prefix, p7.GUID().Prefix)

	got, err := f.LookupParticipant(7)
	require.NoError(t, err)
	assert.Equal(t, p7.Handle(), got.Handle())

	_, err = f.LookupParticipant(3)
	assert.ErrorIs(t, err, ErrNotFound)

	assert.Len(t, f.Participants(), 2)
	require.NoError(t, p0.Close())
	assert.Len(t, f.Participants(), 1)
}

func TestFactory_FinalizeIsTerminal(t *testing.T) {
	f := newTestFactory(t)
	p, err := f.CreateParticipant(0)
	require.NoError(t, err)

	require.NoError(t, f.Finalize())
	require.NoError(t, f.Finalize())
	assert.True(t, p.IsClosed())

	_, err = f.CreateParticipant(0)
	assert.ErrorIs(t, err, ErrPreconditionNotMet)
	_, err = f.LookupParticipant(0)
	assert.ErrorIs(t, err, ErrPreconditionNotMet)
	assert.ErrorIs(t, f.SetDefaultParticipantQos(qos.DefaultParticipant()), ErrPreconditionNotMet)
}

func TestFactory_AutoenablePolicy(t *testing.T) {
	f := newTestFactory(t)
	require.NoError(t, f.SetQos(qos.Set{}.With(qos.EntityFactory{AutoenableCreatedEntities: false})))

	p, err := f.CreateParticipant(0)
	require.NoError(t, err)
	assert.False(t, p.IsEnabled())
	assert.ErrorIs(t, p.AssertLiveliness(), ErrNotEnabled)

	require.NoError(t, p.Enable())
	assert.True(t, p.IsEnabled())
	require.NoError(t, p.AssertLiveliness())
}

func TestFactory_DisabledEntitiesEnableWithParent(t *testing.T) {
	f := newTestFactory(t)
	p, err := f.CreateParticipant(0, Disabled())
	require.NoError(t, err)
	require.NoError(t, RegisterType(p, readingType))

	topic, err := p.CreateTopic("t", readingType.Name)
	require.NoError(t, err)
	pub, err := p.CreatePublisher()
	require.NoError(t, err)
	w, err := NewDataWriter[reading](pub, topic)
	require.NoError(t, err)

	assert.False(t, w.IsEnabled())
	assert.ErrorIs(t, w.Write(reading{Sensor: "a"}), ErrNotEnabled)

	require.NoError(t, p.Enable())
	assert.True(t, topic.IsEnabled())
	assert.True(t, w.IsEnabled())
	require.NoError(t, w.Write(reading{Sensor: "a"}))
}

func TestFactory_CloseIdempotent(t *testing.T) {
	f := newTestFactory(t)
	e := newEndpoints(t, f, 0, "t")
	w := e.writer(t)
	r := e.reader(t)

	require.NoError(t, r.Close())
	require.NoError(t, r.Close())
	require.NoError(t, e.p.Close())
	require.NoError(t, e.p.Close())

	assert.True(t, w.IsClosed())
	assert.True(t, e.topic.IsClosed())
	_, err := r.Take()
	assert.Error(t, err)
	assert.ErrorIs(t, w.Write(reading{}), ErrPreconditionNotMet)
}

func TestFactory_DefaultParticipantQos(t *testing.T) {
	f := newTestFactory(t)
	set := qos.DefaultParticipant().With(qos.UserData{Value: []byte("hello")})
	require.NoError(t, f.SetDefaultParticipantQos(set))

	p, err := f.CreateParticipant(0)
	require.NoError(t, err)
	assert.Equal(t, []byte("hello"), p.Qos().UserData().Value)
}

func TestFactory_ConfigFile(t *testing.T) {
	_, err := NewFactory(WithConfigFile("testdata/missing.yaml"))
	assert.Error(t, err)

	_, err = NewFactory(WithConfig(nil))
	assert.ErrorIs(t, err, ErrBadParameter)

	cfg := config.NewConfig()
	cfg.Discovery.LeaseDuration = config.Duration(-time.Second)
	_, err = NewFactory(WithConfig(cfg))
	assert.Error(t, err)
}

func TestFactory_Metrics(t *testing.T) {
	f := newTestFactory(t)
	e := newEndpoints(t, f, 0, "t")
	w := e.writer(t)
	r := e.reader(t)
	require.NoError(t, w.Write(reading{Sensor: "a", Value: 1}))
	_, err := r.Take()
	require.NoError(t, err)

	reg := f.MetricsRegistry()
	require.NotNil(t, reg)
	require.Eventually(t, func() bool {
		return gathered(t, reg, "dds_samples_pushed_total") >= 1 &&
			gathered(t, reg, "dds_samples_taken_total") >= 1
	}, time.Second, 5*time.Millisecond)

	count, err := testutil.GatherAndCount(reg, "dds_entities_created_total")
	require.NoError(t, err)
	assert.Positive(t, count)
}

// gathered 返回指标族的样本值之和
func gathered(t *testing.T, reg prometheus.Gatherer, name string) float64 {
	t.Helper()
	families, err := reg.Gather()
	require.NoError(t, err)
	var sum float64
	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
		for _, m := range mf.GetMetric() {
			switch {
			case m.GetCounter() != nil:
				sum += m.GetCounter().GetValue()
			case m.GetGauge() != nil:
				sum += m.GetGauge().GetValue()
			}
		}
	}
	return sum
}

func TestParticipant_TypeRegistration(t *testing.T) {
	f := newTestFactory(t)
	p, err := f.CreateParticipant(0)
	require.NoError(t, err)

	_, err = p.CreateTopic("t", "Reading")
	assert.ErrorIs(t, err, ErrPreconditionNotMet)

	require.NoError(t, RegisterType(p, readingType))
	require.NoError(t, RegisterType(p, readingType))
	assert.True(t, p.IsTypeRegistered("Reading"))
	assert.ErrorIs(t, RegisterType(p, TypeSupport[string]{Name: "Reading"}), ErrPreconditionNotMet)
	assert.ErrorIs(t, RegisterType(p, TypeSupport[string]{}), ErrBadParameter)

	topic, err := p.CreateTopic("t", "Reading")
	require.NoError(t, err)
	_, err = p.CreateTopic("t", "Reading")
	assert.ErrorIs(t, err, ErrPreconditionNotMet)

	pub, err := p.CreatePublisher()
	require.NoError(t, err)
	_, err = NewDataWriter[string](pub, topic)
	assert.ErrorIs(t, err, ErrBadParameter)

	assert.ErrorIs(t, p.UnregisterType("Reading"), ErrPreconditionNotMet)
	require.NoError(t, topic.Close())
	require.NoError(t, p.UnregisterType("Reading"))
	assert.ErrorIs(t, p.UnregisterType("Reading"), ErrNotFound)
}

func TestParticipant_Children(t *testing.T) {
	f := newTestFactory(t)
	e := newEndpoints(t, f, 0, "t")
	w := e.writer(t)
	r := e.reader(t)

	found, err := e.p.FindTopic("t")
	require.NoError(t, err)
	assert.Equal(t, e.topic.Handle(), found.Handle())
	_, err = e.p.FindTopic("missing")
	assert.ErrorIs(t, err, ErrNotFound)

	assert.Len(t, e.p.Topics(), 1)
	assert.Len(t, e.p.Publishers(), 1)
	assert.Len(t, e.p.Subscribers(), 1)
	assert.True(t, e.p.ContainsEntity(w.Handle()))
	assert.True(t, e.p.ContainsEntity(r.Handle()))

	lw, ok := e.pub.LookupDataWriter("t")
	require.True(t, ok)
	assert.Equal(t, w.Handle(), lw.Handle())
	lr, ok := e.sub.LookupDataReader("t")
	require.True(t, ok)
	assert.Equal(t, r.Handle(), lr.Handle())
	assert.Same(t, w, lw.(*DataWriter[reading]))

	assert.ErrorIs(t, e.topic.Close(), ErrPreconditionNotMet)

	require.NoError(t, e.p.DeleteContainedEntities())
	assert.Empty(t, e.p.Topics())
	assert.True(t, e.p.IsEnabled())
}

func TestParticipant_DefaultQosScope(t *testing.T) {
	f := newTestFactory(t)
	e := newEndpoints(t, f, 0, "t")

	keepAll := qos.DefaultReader().With(qos.History{Kind: qos.HistoryKeepAll})
	require.NoError(t, e.p.SetDefaultQos(types.KindDataReader, keepAll))
	assert.ErrorIs(t, e.p.SetDefaultQos(types.KindParticipant, qos.DefaultParticipant()), ErrBadParameter)

	r := e.reader(t)
	assert.Equal(t, qos.HistoryKeepAll, r.Qos().History().Kind)

	e.p.ResetDefaultQos(types.KindDataReader)
	assert.Equal(t, qos.HistoryKeepLast, e.p.DefaultQos(types.KindDataReader).History().Kind)
}
