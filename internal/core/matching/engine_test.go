package matching

import (
	"sync"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dep2p/go-dds/internal/core/discovery"
	"github.com/dep2p/go-dds/internal/core/eventbus"
	pkgif "github.com/dep2p/go-dds/pkg/interfaces"
	"github.com/dep2p/go-dds/pkg/qos"
	"github.com/dep2p/go-dds/pkg/types"
)

// ============================================================================
//                              测试辅助
// ============================================================================

type sinkCall struct {
	kind   string
	h      types.InstanceHandle
	peer   types.InstanceHandle
	delta  int
	policy []qos.PolicyKind
}

type recordingSink struct {
	mu    sync.Mutex
	calls []sinkCall
}

func (s *recordingSink) add(c sinkCall) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, c)
}

func (s *recordingSink) OnPublicationMatched(w, r types.InstanceHandle, d int) {
	s.add(sinkCall{kind: "pub", h: w, peer: r, delta: d})
}

func (s *recordingSink) OnSubscriptionMatched(r, w types.InstanceHandle, d int) {
	s.add(sinkCall{kind: "sub", h: r, peer: w, delta: d})
}

func (s *recordingSink) OnOfferedIncompatibleQos(w types.InstanceHandle, p []qos.PolicyKind) {
	s.add(sinkCall{kind: "offered", h: w, policy: p})
}

func (s *recordingSink) OnRequestedIncompatibleQos(r types.InstanceHandle, p []qos.PolicyKind) {
	s.add(sinkCall{kind: "requested", h: r, policy: p})
}

func (s *recordingSink) OnInconsistentTopic(t types.InstanceHandle) {
	s.add(sinkCall{kind: "inconsistent", h: t})
}

func (s *recordingSink) OnLivelinessChanged(r, w types.InstanceHandle, alive, notAlive int) {
	s.add(sinkCall{kind: "liveliness", h: r, peer: w, delta: alive})
}

func (s *recordingSink) count(kind string, delta int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, c := range s.calls {
		if c.kind == kind && c.delta == delta {
			n++
		}
	}
	return n
}

func (s *recordingSink) last(kind string) (sinkCall, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := len(s.calls) - 1; i >= 0; i-- {
		if s.calls[i].kind == kind {
			return s.calls[i], true
		}
	}
	return sinkCall{}, false
}

type recordingConnector struct {
	mu        sync.Mutex
	matched   []Record
	unmatched []Record
}

func (c *recordingConnector) OnMatched(r Record) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.matched = append(c.matched, r)
}

func (c *recordingConnector) OnUnmatched(r Record) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.unmatched = append(c.unmatched, r)
}

type fixture struct {
	cache  *discovery.Cache
	engine *Engine
	sink   *recordingSink
	conn   *recordingConnector
	clock  *clock.Mock
	next   types.InstanceHandle
	seq    uint32
}

func newFixture(t *testing.T, opts ...EvalOption) *fixture {
	t.Helper()
	mock := clock.NewMock()
	cache, err := discovery.New(discovery.Deps{
		Participant: 1,
		Handles:     types.NewHandleAllocator(),
		Clock:       mock,
	}, discovery.Config{LeaseDuration: 10 * time.Second})
	require.NoError(t, err)

	sink := &recordingSink{}
	eng, err := New(Deps{Cache: cache, Sink: sink, Clock: mock}, opts...)
	require.NoError(t, err)
	conn := &recordingConnector{}
	eng.AddConnector(conn)
	return &fixture{cache: cache, engine: eng, sink: sink, conn: conn, clock: mock, next: 1000}
}

var (
	localPrefix  = types.GUIDPrefix{0xa}
	remotePrefix = types.GUIDPrefix{0xb}
)

func (f *fixture) local(t *testing.T, kind types.BuiltinKind, topic string, set qos.Set) types.InstanceHandle {
	t.Helper()
	f.next++
	f.seq++
	ek := types.KindDataWriter
	if kind == types.BuiltinSubscription {
		ek = types.KindDataReader
	}
	rec := types.EntityRecord{
		Handle:    f.next,
		GUID:      types.GUID{Prefix: localPrefix, Entity: types.NewEntityID(f.seq, ek)},
		Kind:      kind,
		TopicName: topic,
		TypeName:  "Msg",
		Qos:       set,
	}
	require.NoError(t, f.cache.AddLocal(rec))
	return rec.Handle
}

func (f *fixture) remote(t *testing.T, kind types.BuiltinKind, topic string, set qos.Set) types.InstanceHandle {
	t.Helper()
	f.seq++
	ek := types.KindDataWriter
	if kind == types.BuiltinSubscription {
		ek = types.KindDataReader
	}
	h, err := f.cache.OnAnnounce(types.EntityRecord{
		GUID:      types.GUID{Prefix: remotePrefix, Entity: types.NewEntityID(f.seq, ek)},
		Kind:      kind,
		TopicName: topic,
		TypeName:  "Msg",
		Qos:       set,
	})
	require.NoError(t, err)
	return h
}

func record(kind types.BuiltinKind, topic, typeName string, set qos.Set) types.EntityRecord {
	return types.EntityRecord{Kind: kind, TopicName: topic, TypeName: typeName, Qos: set}
}

// ============================================================================
//                              Evaluate
// ============================================================================

func TestEvaluate_Compatible(t *testing.T) {
	w := record(types.BuiltinPublication, "chat", "Msg", qos.DefaultWriter().With(qos.Durability{Kind: qos.DurabilityTransientLocal}))
	r := record(types.BuiltinSubscription, "chat", "Msg", qos.DefaultReader())

	res := Evaluate(w, r)
	assert.True(t, res.Compatible())
	assert.Empty(t, res.Policies)
}

func TestEvaluate_ReliabilityMismatch(t *testing.T) {
	w := record(types.BuiltinPublication, "chat", "Msg", qos.DefaultWriter().With(qos.Reliability{Kind: qos.ReliabilityBestEffort}))
	r := record(types.BuiltinSubscription, "chat", "Msg", qos.DefaultReader().With(qos.Reliability{Kind: qos.ReliabilityReliable}))

	res := Evaluate(w, r)
	assert.Equal(t, IncompatibleQos, res.Outcome)
	assert.Equal(t, []qos.PolicyKind{qos.PolicyReliability}, res.Policies)
	assert.Equal(t, "incompatible_qos(RELIABILITY)", res.String())
}

func TestEvaluate_FirstVersusExhaustive(t *testing.T) {
	w := record(types.BuiltinPublication, "chat", "Msg", qos.DefaultWriter().With(
		qos.Reliability{Kind: qos.ReliabilityBestEffort},
		qos.Durability{Kind: qos.DurabilityVolatile},
	))
	r := record(types.BuiltinSubscription, "chat", "Msg", qos.DefaultReader().With(
		qos.Reliability{Kind: qos.ReliabilityReliable},
		qos.Durability{Kind: qos.DurabilityTransientLocal},
	))

	first := Evaluate(w, r)
	assert.Equal(t, []qos.PolicyKind{qos.PolicyDurability}, first.Policies)

	all := Evaluate(w, r, Exhaustive())
	assert.Equal(t, []qos.PolicyKind{qos.PolicyDurability, qos.PolicyReliability}, all.Policies)
}

func TestEvaluate_TypeAndTopic(t *testing.T) {
	w := record(types.BuiltinPublication, "chat", "Msg", qos.DefaultWriter())

	assert.Equal(t, IncompatibleType, Evaluate(w, record(types.BuiltinSubscription, "chat", "Other", qos.DefaultReader())).Outcome)
	assert.Equal(t, IncompatibleType, Evaluate(w, record(types.BuiltinSubscription, "news", "Msg", qos.DefaultReader())).Outcome)
}

func TestEvaluate_Partition(t *testing.T) {
	w := record(types.BuiltinPublication, "chat", "Msg", qos.DefaultWriter().With(qos.NewPartition("room/a")))
	r := record(types.BuiltinSubscription, "chat", "Msg", qos.DefaultReader().With(qos.NewPartition("room/b")))
	assert.Equal(t, PartitionMismatch, Evaluate(w, r).Outcome)

	r.Qos = r.Qos.With(qos.NewPartition("room/*"))
	assert.True(t, Evaluate(w, r).Compatible())
}

// ============================================================================
//                              Engine
// ============================================================================

func TestEngine_LocalPairMatches(t *testing.T) {
	f := newFixture(t)

	w := f.local(t, types.BuiltinPublication, "chat", qos.DefaultWriter())
	r := f.local(t, types.BuiltinSubscription, "chat", qos.DefaultReader())

	assert.True(t, f.engine.IsMatched(w, r))
	assert.Equal(t, []types.InstanceHandle{r}, f.engine.Matches(w))
	assert.Equal(t, []types.InstanceHandle{w}, f.engine.Matches(r))
	assert.Equal(t, 1, f.sink.count("pub", 1))
	assert.Equal(t, 1, f.sink.count("sub", 1))
	assert.Equal(t, 1, f.sink.count("liveliness", 1))

	recs := f.engine.Records()
	require.Len(t, recs, 1)
	assert.Equal(t, f.clock.Now(), recs[0].Created)
	require.Len(t, f.conn.matched, 1)
	assert.Equal(t, w, f.conn.matched[0].Writer)

	// 重复评估不产生重复通知
	require.NoError(t, f.engine.Connect(w))
	assert.Equal(t, 1, f.sink.count("pub", 1))
}

func TestEngine_IncompatibleQosSignalsOnce(t *testing.T) {
	f := newFixture(t)

	w := f.local(t, types.BuiltinPublication, "chat", qos.DefaultWriter().With(qos.Reliability{Kind: qos.ReliabilityBestEffort}))
	r := f.remote(t, types.BuiltinSubscription, "chat", qos.DefaultReader().With(qos.Reliability{Kind: qos.ReliabilityReliable}))

	assert.False(t, f.engine.IsMatched(w, r))
	call, ok := f.sink.last("offered")
	require.True(t, ok)
	assert.Equal(t, w, call.h)
	assert.Equal(t, []qos.PolicyKind{qos.PolicyReliability}, call.policy)

	require.NoError(t, f.engine.Reevaluate(w))
	assert.Equal(t, 1, f.sink.count("offered", 0))

	res, err := f.engine.Evaluate(w, r)
	require.NoError(t, err)
	assert.Equal(t, IncompatibleQos, res.Outcome)
}

func TestEngine_QosChangeRemovesMatch(t *testing.T) {
	f := newFixture(t)

	w := f.local(t, types.BuiltinPublication, "chat", qos.DefaultWriter())
	r := f.local(t, types.BuiltinSubscription, "chat", qos.DefaultReader())
	require.True(t, f.engine.IsMatched(w, r))

	rec, _ := f.cache.Lookup(r)
	rec.Qos = rec.Qos.With(qos.Deadline{Period: time.Second})
	require.NoError(t, f.cache.UpdateLocal(rec))

	assert.False(t, f.engine.IsMatched(w, r))
	assert.Equal(t, 1, f.sink.count("pub", -1))
	assert.Equal(t, 1, f.sink.count("sub", -1))
	require.Len(t, f.conn.unmatched, 1)

	// 恢复后重新匹配
	rec.Qos = rec.Qos.Without(qos.PolicyDeadline)
	require.NoError(t, f.cache.UpdateLocal(rec))
	assert.True(t, f.engine.IsMatched(w, r))
}

func TestEngine_RemotePairsIgnored(t *testing.T) {
	f := newFixture(t)

	f.remote(t, types.BuiltinPublication, "chat", qos.DefaultWriter())
	f.remote(t, types.BuiltinSubscription, "chat", qos.DefaultReader())
	assert.Equal(t, 0, f.engine.Len())
}

func TestEngine_LeaseExpiryRemovesMatches(t *testing.T) {
	f := newFixture(t)

	r := f.local(t, types.BuiltinSubscription, "chat", qos.DefaultReader())
	w1 := f.remote(t, types.BuiltinPublication, "chat", qos.DefaultWriter())
	w2 := f.remote(t, types.BuiltinPublication, "chat", qos.DefaultWriter())
	require.Equal(t, []types.InstanceHandle{w1, w2}, f.engine.Matches(r))

	f.clock.Add(11 * time.Second)
	assert.ElementsMatch(t, []types.InstanceHandle{w1, w2}, f.cache.CheckLeases())

	assert.Empty(t, f.engine.Matches(r))
	assert.Empty(t, f.engine.Matches(w1))
	assert.Equal(t, 0, f.engine.Len())
	assert.Equal(t, 2, f.sink.count("sub", -1))
	assert.Equal(t, 2, f.sink.count("liveliness", -1))
}

func TestEngine_IgnoreAndLocalRemoval(t *testing.T) {
	f := newFixture(t)

	w := f.local(t, types.BuiltinPublication, "chat", qos.DefaultWriter())
	r1 := f.remote(t, types.BuiltinSubscription, "chat", qos.DefaultReader())
	r2 := f.local(t, types.BuiltinSubscription, "chat", qos.DefaultReader())
	require.Len(t, f.engine.Matches(w), 2)

	require.NoError(t, f.cache.Ignore(r1))
	assert.Equal(t, []types.InstanceHandle{r2}, f.engine.Matches(w))

	f.cache.RemoveLocal(w)
	assert.Empty(t, f.engine.Matches(r2))
	assert.Equal(t, 0, f.engine.Len())
}

func TestEngine_InconsistentTopic(t *testing.T) {
	f := newFixture(t)

	local := types.EntityRecord{
		Handle:    500,
		GUID:      types.GUID{Prefix: localPrefix, Entity: types.NewEntityID(99, types.KindTopic)},
		Kind:      types.BuiltinTopic,
		TopicName: "chat",
		TypeName:  "Msg",
	}
	require.NoError(t, f.cache.AddLocal(local))

	remote := types.EntityRecord{
		GUID:      types.GUID{Prefix: remotePrefix, Entity: types.NewEntityID(99, types.KindTopic)},
		Kind:      types.BuiltinTopic,
		TopicName: "chat",
		TypeName:  "Other",
	}
	_, err := f.cache.OnAnnounce(remote)
	require.NoError(t, err)

	call, ok := f.sink.last("inconsistent")
	require.True(t, ok)
	assert.Equal(t, types.InstanceHandle(500), call.h)

	// 同名同类型不报告
	same := remote
	same.GUID.Entity = types.NewEntityID(100, types.KindTopic)
	same.TypeName = "Msg"
	_, err = f.cache.OnAnnounce(same)
	require.NoError(t, err)
	assert.Equal(t, 1, f.sink.count("inconsistent", 0))
}

func TestEngine_EvaluateErrors(t *testing.T) {
	f := newFixture(t)
	w := f.local(t, types.BuiltinPublication, "chat", qos.DefaultWriter())

	_, err := f.engine.Evaluate(w, 9999)
	assert.ErrorIs(t, err, types.ErrNotFound)
	_, err = f.engine.Evaluate(w, w)
	assert.ErrorIs(t, err, types.ErrBadParameter)
	assert.ErrorIs(t, f.engine.Connect(4242), types.ErrNotFound)
}

func TestEngine_Events(t *testing.T) {
	bus := eventbus.NewBus()
	sub, err := bus.Subscribe(new(types.EvtMatched), pkgif.BufSize(4))
	require.NoError(t, err)
	defer sub.Close()

	cache, err := discovery.New(discovery.Deps{Participant: 1, Handles: types.NewHandleAllocator()}, discovery.Config{})
	require.NoError(t, err)
	eng, err := New(Deps{Cache: cache, Bus: bus})
	require.NoError(t, err)
	defer eng.Close()

	require.NoError(t, cache.AddLocal(types.EntityRecord{
		Handle: 10, GUID: types.GUID{Prefix: localPrefix, Entity: types.NewEntityID(1, types.KindDataWriter)},
		Kind: types.BuiltinPublication, TopicName: "t", TypeName: "T", Qos: qos.DefaultWriter(),
	}))
	require.NoError(t, cache.AddLocal(types.EntityRecord{
		Handle: 11, GUID: types.GUID{Prefix: localPrefix, Entity: types.NewEntityID(2, types.KindDataReader)},
		Kind: types.BuiltinSubscription, TopicName: "t", TypeName: "T", Qos: qos.DefaultReader(),
	}))

	select {
	case ev := <-sub.Out():
		m := ev.(types.EvtMatched)
		assert.Equal(t, types.InstanceHandle(10), m.Writer)
		assert.Equal(t, types.InstanceHandle(11), m.Reader)
	case <-time.After(time.Second):
		t.Fatal("no match event")
	}
}
