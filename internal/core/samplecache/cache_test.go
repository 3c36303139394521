package samplecache

import (
	"sync"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/dep2p/go-dds/pkg/qos"
	"github.com/dep2p/go-dds/pkg/types"
)

// ============================================================================
//                              测试辅助
// ============================================================================

type sink struct {
	mu        sync.Mutex
	lost      int
	rejected  []types.SampleRejectedReason
	available int
}

func (s *sink) OnSampleLost(_ types.InstanceHandle, n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lost += n
}

func (s *sink) OnSampleRejected(_ types.InstanceHandle, reason types.SampleRejectedReason, _ types.InstanceHandle) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rejected = append(s.rejected, reason)
}

func (s *sink) OnDataAvailable(types.InstanceHandle) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.available++
}

type reading struct {
	Sensor string
	Value  int
}

var epoch = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func at(sec int) time.Time {
	return epoch.Add(time.Duration(sec) * time.Second)
}

func msg(key string, value int, sec int) types.DataMessage {
	return types.DataMessage{
		Key:             key,
		Payload:         reading{Sensor: key, Value: value},
		SourceTimestamp: at(sec),
	}
}

func newCache(t *testing.T, cfg Config) (*Cache, *sink) {
	t.Helper()
	s := &sink{}
	c, err := New(Deps{Reader: 7, Sink: s, Clock: clock.NewMock()}, cfg)
	require.NoError(t, err)
	return c, s
}

func keepLast(depth int) Config {
	return Config{
		History: qos.History{Kind: qos.HistoryKeepLast, Depth: depth},
		Limits:  qos.ResourceLimits{MaxSamples: qos.Unlimited, MaxInstances: qos.Unlimited, MaxSamplesPerInstance: qos.Unlimited},
	}
}

func values(samples []types.Sample) []int {
	out := make([]int, 0, len(samples))
	for _, s := range samples {
		if s.Info.Valid {
			out = append(out, s.Data.(reading).Value)
		}
	}
	return out
}

// ============================================================================
//                              排序与读取
// ============================================================================

func TestCache_TakeOrdersBySourceTimestamp(t *testing.T) {
	c, s := newCache(t, keepLast(10))

	for _, m := range []types.DataMessage{msg("a", 3, 3), msg("a", 1, 1), msg("a", 2, 2)} {
		_, err := c.Push(1, m)
		require.NoError(t, err)
	}
	assert.Equal(t, 3, s.available)

	got := c.Take(NewFilter())
	assert.Equal(t, []int{1, 2, 3}, values(got))
	assert.Empty(t, c.Take(NewFilter()))
	assert.Equal(t, 0, c.Len())
}

func TestCache_ArrivalSlotsAcrossInstances(t *testing.T) {
	c, _ := newCache(t, keepLast(10))

	// a 占用槽位 1、3，b 占用槽位 2
	_, _ = c.Push(1, msg("a", 20, 20))
	_, _ = c.Push(1, msg("b", 15, 15))
	_, _ = c.Push(1, msg("a", 10, 10))

	assert.Equal(t, []int{10, 15, 20}, values(c.Read(NewFilter())))
}

func TestCache_ReadMarksState(t *testing.T) {
	c, _ := newCache(t, keepLast(10))
	_, _ = c.Push(1, msg("a", 1, 1))

	first := c.Read(NewFilter())
	require.Len(t, first, 1)
	assert.Equal(t, types.SampleNotRead, first[0].Info.SampleState)
	assert.Equal(t, types.ViewNew, first[0].Info.ViewState)
	assert.Equal(t, types.InstanceAlive, first[0].Info.InstanceState)
	assert.Equal(t, types.KeyHandle("a"), first[0].Info.InstanceHandle)
	assert.Equal(t, types.InstanceHandle(1), first[0].Info.PublicationHandle)

	second := c.Read(NewFilter())
	require.Len(t, second, 1)
	assert.Equal(t, types.SampleRead, second[0].Info.SampleState)
	assert.Equal(t, types.ViewNotNew, second[0].Info.ViewState)

	assert.Empty(t, c.Read(NewFilter(State(types.NewData()))))
}

// ============================================================================
//                              容量
// ============================================================================

func TestCache_KeepLastEvictsOldestUnread(t *testing.T) {
	cfg := keepLast(2)
	cfg.Limits.MaxSamplesPerInstance = 2
	c, s := newCache(t, cfg)

	var lost int
	for i := 1; i <= 3; i++ {
		res, err := c.Push(1, msg("a", i, i))
		require.NoError(t, err)
		lost += res.Lost
	}
	assert.Equal(t, 1, lost)
	assert.Equal(t, 1, s.lost)
	assert.Equal(t, []int{2, 3}, values(c.Take(NewFilter())))
}

func TestCache_EvictReadSampleWithoutLoss(t *testing.T) {
	c, s := newCache(t, keepLast(1))

	_, _ = c.Push(1, msg("a", 1, 1))
	c.Read(NewFilter())
	res, err := c.Push(1, msg("a", 2, 2))
	require.NoError(t, err)
	assert.Equal(t, 0, res.Lost)
	assert.Equal(t, 0, s.lost)
	assert.Equal(t, []int{2}, values(c.Read(NewFilter())))
}

func TestCache_RejectsOnInstanceLimit(t *testing.T) {
	cfg := keepLast(1)
	cfg.Limits.MaxInstances = 1
	c, s := newCache(t, cfg)

	_, err := c.Push(1, msg("a", 1, 1))
	require.NoError(t, err)
	res, err := c.Push(1, msg("b", 1, 1))
	assert.ErrorIs(t, err, types.ErrResourceLimitExceeded)
	assert.False(t, res.Accepted)
	assert.Equal(t, types.RejectedByInstancesLimit, res.Reason)
	assert.Equal(t, []types.SampleRejectedReason{types.RejectedByInstancesLimit}, s.rejected)
}

func TestCache_KeepAllRejects(t *testing.T) {
	c, _ := newCache(t, Config{
		History: qos.History{Kind: qos.HistoryKeepAll},
		Limits:  qos.ResourceLimits{MaxSamples: 3, MaxInstances: qos.Unlimited, MaxSamplesPerInstance: 2},
	})

	_, _ = c.Push(1, msg("a", 1, 1))
	_, _ = c.Push(1, msg("a", 2, 2))
	res, err := c.Push(1, msg("a", 3, 3))
	assert.ErrorIs(t, err, types.ErrResourceLimitExceeded)
	assert.Equal(t, types.RejectedBySamplesPerInstanceLimit, res.Reason)

	_, err = c.Push(1, msg("b", 1, 1))
	require.NoError(t, err)
	res, err = c.Push(1, msg("c", 1, 1))
	assert.ErrorIs(t, err, types.ErrResourceLimitExceeded)
	assert.Equal(t, types.RejectedBySamplesLimit, res.Reason)
}

func TestCache_MaxSamplesKeepLast(t *testing.T) {
	cfg := keepLast(5)
	cfg.Limits.MaxSamples = 5
	cfg.Limits.MaxSamplesPerInstance = 5
	c, _ := newCache(t, cfg)

	for i := 1; i <= 5; i++ {
		_, err := c.Push(1, msg("a", i, i))
		require.NoError(t, err)
	}
	// 本实例有可淘汰样本
	res, err := c.Push(1, msg("a", 6, 6))
	require.NoError(t, err)
	assert.Equal(t, 1, res.Lost)

	// 新实例没有可淘汰样本
	res, err = c.Push(1, msg("b", 1, 1))
	assert.ErrorIs(t, err, types.ErrResourceLimitExceeded)
	assert.Equal(t, types.RejectedBySamplesLimit, res.Reason)
}

func TestCache_InvalidConfig(t *testing.T) {
	_, err := New(Deps{}, Config{History: qos.History{Kind: qos.HistoryKeepLast, Depth: 0}})
	assert.ErrorIs(t, err, types.ErrInvalidQos)
}

// ============================================================================
//                              实例状态
// ============================================================================

func TestCache_DisposeAndRebirth(t *testing.T) {
	c, _ := newCache(t, keepLast(5))

	_, _ = c.Push(1, msg("a", 1, 1))
	c.Take(NewFilter())

	dispose := types.DataMessage{Key: "a", Kind: types.ChangeDisposed, SourceTimestamp: at(2)}
	res, err := c.Push(1, dispose)
	require.NoError(t, err)
	assert.True(t, res.Accepted)

	got := c.Read(NewFilter())
	require.Len(t, got, 1)
	assert.False(t, got[0].Info.Valid)
	assert.Equal(t, types.InstanceNotAliveDisposed, got[0].Info.InstanceState)
	assert.Empty(t, c.Read(NewFilter(ValidOnly())))

	_, _ = c.Push(1, msg("a", 3, 3))
	got = c.Read(NewFilter(ValidOnly()))
	require.Len(t, got, 1)
	assert.Equal(t, types.InstanceAlive, got[0].Info.InstanceState)
	assert.Equal(t, types.ViewNew, got[0].Info.ViewState)
}

func TestCache_UnregisterAndWriterLost(t *testing.T) {
	c, _ := newCache(t, keepLast(5))

	_, _ = c.Push(1, msg("a", 1, 1))
	_, _ = c.Push(2, msg("a", 2, 2))
	_, _ = c.Push(1, msg("b", 1, 1))

	// a 仍有写端 2
	_, err := c.Push(1, types.DataMessage{Key: "a", Kind: types.ChangeUnregistered})
	require.NoError(t, err)
	st, _ := c.InstanceState(types.KeyHandle("a"))
	assert.Equal(t, types.InstanceAlive, st)

	assert.Equal(t, 2, c.WriterLost(2)+c.WriterLost(1))
	st, _ = c.InstanceState(types.KeyHandle("a"))
	assert.Equal(t, types.InstanceNotAliveNoWriters, st)
	st, _ = c.InstanceState(types.KeyHandle("b"))
	assert.Equal(t, types.InstanceNotAliveNoWriters, st)

	// 取走后不存活的空实例被清理
	c.Take(NewFilter())
	assert.Equal(t, 0, c.InstanceCount())
	_, err = c.InstanceState(types.KeyHandle("a"))
	assert.ErrorIs(t, err, types.ErrNotFound)
}

func TestCache_UnknownInstanceDisposeIgnored(t *testing.T) {
	c, _ := newCache(t, keepLast(1))
	res, err := c.Push(1, types.DataMessage{Key: "ghost", Kind: types.ChangeDisposed})
	require.NoError(t, err)
	assert.False(t, res.Accepted)
	assert.Equal(t, 0, c.Len())
}

// ============================================================================
//                              过滤
// ============================================================================

func TestCache_Filters(t *testing.T) {
	c, _ := newCache(t, keepLast(10))
	for i, key := range []string{"a", "b", "c", "a", "b"} {
		_, err := c.Push(1, msg(key, i+1, i+1))
		require.NoError(t, err)
	}
	ha, hb := types.KeyHandle("a"), types.KeyHandle("b")

	assert.Equal(t, []int{1, 4}, values(c.Read(NewFilter(Instance(ha)))))
	assert.Equal(t, []int{1, 2}, values(c.Read(NewFilter(MaxSamples(2)))))

	q, err := CompileQuery("data.Value >= %0 && key != 'c'", 2)
	require.NoError(t, err)
	assert.Equal(t, []int{2, 4, 5}, values(c.Read(NewFilter(Where(q)))))
	assert.Equal(t, []int{4, 5}, values(c.Read(NewFilter(Where(q.WithParams(4))))))

	odd := Content(func(d any) bool { return d.(reading).Value%2 == 1 })
	assert.Equal(t, []int{1, 3, 5}, values(c.Read(NewFilter(odd))))

	// 下一个实例按句柄顺序
	instances := c.Instances()
	require.Len(t, instances, 3)
	next := c.Read(NewFilter(NextInstance(types.HandleNil)))
	require.NotEmpty(t, next)
	assert.Equal(t, instances[0], next[0].Info.InstanceHandle)
	assert.Empty(t, c.Read(NewFilter(NextInstance(instances[2]))))

	assert.Equal(t, hb, c.LookupInstance("b"))
	assert.True(t, c.LookupInstance("zzz").IsNil())
}

func TestCompileQuery_Errors(t *testing.T) {
	_, err := CompileQuery("data.Value +")
	assert.ErrorIs(t, err, types.ErrBadParameter)
	_, err = CompileQuery("1 + 2")
	assert.ErrorIs(t, err, types.ErrBadParameter)
}

func TestCompileQuery_FieldAccess(t *testing.T) {
	q, err := CompileQuery("data.Value > 1")
	require.NoError(t, err)
	assert.True(t, q.match(reading{Value: 2}, "a"))
	assert.False(t, q.match(reading{Value: 1}, "a"))
	// 字段不存在时求值失败，视为不匹配
	assert.False(t, q.match(struct{}{}, "a"))
}

func TestCompileQuery_ParamsOutsideLiterals(t *testing.T) {
	assert.Equal(t, "key == '50%0' && data.Value > params[0]", rewriteParams("key == '50%0' && data.Value > %0"))
	assert.Equal(t, `key == "a\"%1" || params[12] == 1`, rewriteParams(`key == "a\"%1" || %12 == 1`))
	assert.Equal(t, "data.Value % 2 == 0", rewriteParams("data.Value % 2 == 0"))

	q, err := CompileQuery("key == '50%0' && data.Value > %0", 1)
	require.NoError(t, err)
	assert.True(t, q.match(reading{Value: 3}, "50%0"))
	assert.False(t, q.match(reading{Value: 3}, "501"))
}

// ============================================================================
//                              并发
// ============================================================================

func TestCache_ConcurrentTakeNoDuplicates(t *testing.T) {
	c, _ := newCache(t, Config{
		History: qos.History{Kind: qos.HistoryKeepAll},
		Limits:  qos.ResourceLimits{MaxSamples: qos.Unlimited, MaxInstances: qos.Unlimited, MaxSamplesPerInstance: qos.Unlimited},
	})
	const n = 500
	for i := 0; i < n; i++ {
		_, err := c.Push(1, msg("k", i, i))
		require.NoError(t, err)
	}

	var mu sync.Mutex
	seen := make(map[int]int)
	var g errgroup.Group
	for w := 0; w < 8; w++ {
		g.Go(func() error {
			for {
				got := c.Take(NewFilter(MaxSamples(7)))
				if len(got) == 0 {
					return nil
				}
				mu.Lock()
				for _, v := range values(got) {
					seen[v]++
				}
				mu.Unlock()
			}
		})
	}
	require.NoError(t, g.Wait())

	assert.Len(t, seen, n)
	for v, count := range seen {
		assert.Equal(t, 1, count, "sample %d taken more than once", v)
	}
}
