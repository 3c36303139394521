package status

import (
	"maps"
	"sync"

	"github.com/dep2p/go-dds/internal/core/dispatch"
	"github.com/dep2p/go-dds/internal/core/registry"
	"github.com/dep2p/go-dds/internal/util/logger"
	"github.com/dep2p/go-dds/pkg/qos"
	"github.com/dep2p/go-dds/pkg/types"
)

var log = logger.Logger("status")

// Notification 一次待投递的状态通知
type Notification struct {
	// Source 状态发生变化的实体
	Source types.InstanceHandle
	// Target 监听器所属实体
	Target types.InstanceHandle
	// Kind 状态类型
	Kind types.StatusKind
	// Listener Target 上绑定的监听器
	Listener registry.Listener
}

// Notifier 在调度器 goroutine 上执行，负责调用具体的监听器方法
type Notifier func(n Notification)

// counters 单个实体的状态计数
type counters struct {
	pubMatched        types.PublicationMatchedStatus
	subMatched        types.SubscriptionMatchedStatus
	offeredIncompat   types.IncompatibleQosStatus
	requestedIncompat types.IncompatibleQosStatus
	lost              types.SampleLostStatus
	rejected          types.SampleRejectedStatus
	liveliness        types.LivelinessChangedStatus
	inconsistent      types.InconsistentTopicStatus
}

// Store 状态存储
type Store struct {
	mu      sync.Mutex
	entries map[types.InstanceHandle]*counters

	reg  *registry.Registry
	disp *dispatch.Dispatcher

	notifyMu sync.RWMutex
	notifier Notifier
}

// New 创建状态存储并注册为注册表的生命周期观察者
func New(reg *registry.Registry, disp *dispatch.Dispatcher) *Store {
	s := &Store{
		entries: make(map[types.InstanceHandle]*counters),
		reg:     reg,
		disp:    disp,
	}
	reg.AddObserver(s)
	return s
}

// SetNotifier 设置监听器调用函数
func (s *Store) SetNotifier(n Notifier) {
	s.notifyMu.Lock()
	defer s.notifyMu.Unlock()
	s.notifier = n
}

// OnEntityEnabled 实现 registry.LifecycleObserver
func (s *Store) OnEntityEnabled(registry.View) {}

// OnEntityClosed 实现 registry.LifecycleObserver
func (s *Store) OnEntityClosed(v registry.View) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, v.Handle)
}

// update 在实体的计数器上执行 fn；非本地或已关闭的实体被忽略
func (s *Store) update(h types.InstanceHandle, fn func(c *counters)) bool {
	if s.reg.Check(h) != nil {
		return false
	}
	s.mu.Lock()
	c, ok := s.entries[h]
	if !ok {
		c = &counters{}
		s.entries[h] = c
	}
	fn(c)
	s.mu.Unlock()
	return true
}

// read 读取计数器并清除状态标志
func (s *Store) read(h types.InstanceHandle, kind types.StatusKind, fn func(c *counters)) error {
	if err := s.reg.Check(h); err != nil {
		return err
	}
	s.mu.Lock()
	c, ok := s.entries[h]
	if !ok {
		c = &counters{}
		s.entries[h] = c
	}
	fn(c)
	s.mu.Unlock()
	return s.reg.ClearStatus(h, kind)
}

// ============================================================================
//                              更新
// ============================================================================

// OnPublicationMatched 写端匹配数变化，delta 为 +1 或 -1
func (s *Store) OnPublicationMatched(writer, reader types.InstanceHandle, delta int) {
	if s.update(writer, func(c *counters) {
		st := &c.pubMatched
		if delta > 0 {
			st.TotalCount++
			st.TotalCountChange++
		}
		st.CurrentCount += delta
		st.CurrentCountChange += delta
		st.LastSubscriptionHandle = reader
	}) {
		s.signal(writer, types.StatusPublicationMatched)
	}
}

// OnSubscriptionMatched 读端匹配数变化，delta 为 +1 或 -1
func (s *Store) OnSubscriptionMatched(reader, writer types.InstanceHandle, delta int) {
	if s.update(reader, func(c *counters) {
		st := &c.subMatched
		if delta > 0 {
			st.TotalCount++
			st.TotalCountChange++
		}
		st.CurrentCount += delta
		st.CurrentCountChange += delta
		st.LastPublicationHandle = writer
	}) {
		s.signal(reader, types.StatusSubscriptionMatched)
	}
}

func addIncompatible(st *types.IncompatibleQosStatus, policies []qos.PolicyKind) {
	st.TotalCount++
	st.TotalCountChange++
	if st.Policies == nil {
		st.Policies = make(map[qos.PolicyKind]int)
	}
	for _, k := range policies {
		st.Policies[k]++
	}
	if len(policies) > 0 {
		st.LastPolicyID = policies[0]
	}
}

// OnOfferedIncompatibleQos 写端发现不兼容读端
func (s *Store) OnOfferedIncompatibleQos(writer types.InstanceHandle, policies []qos.PolicyKind) {
	if s.update(writer, func(c *counters) { addIncompatible(&c.offeredIncompat, policies) }) {
		s.signal(writer, types.StatusOfferedIncompatibleQos)
	}
}

// OnRequestedIncompatibleQos 读端发现不兼容写端
func (s *Store) OnRequestedIncompatibleQos(reader types.InstanceHandle, policies []qos.PolicyKind) {
	if s.update(reader, func(c *counters) { addIncompatible(&c.requestedIncompat, policies) }) {
		s.signal(reader, types.StatusRequestedIncompatibleQos)
	}
}

// OnInconsistentTopic 发现同名但类型不同的主题
func (s *Store) OnInconsistentTopic(topic types.InstanceHandle) {
	if s.update(topic, func(c *counters) {
		c.inconsistent.TotalCount++
		c.inconsistent.TotalCountChange++
	}) {
		s.signal(topic, types.StatusInconsistentTopic)
	}
}

// OnLivelinessChanged 读端观察到的写端存活数变化
func (s *Store) OnLivelinessChanged(reader, writer types.InstanceHandle, aliveDelta, notAliveDelta int) {
	if s.update(reader, func(c *counters) {
		st := &c.liveliness
		st.AliveCount += aliveDelta
		st.AliveCountChange += aliveDelta
		st.NotAliveCount += notAliveDelta
		st.NotAliveCountChange += notAliveDelta
		st.LastPublicationHandle = writer
	}) {
		s.signal(reader, types.StatusLivelinessChanged)
	}
}

// OnSampleLost 读端丢失样本
func (s *Store) OnSampleLost(reader types.InstanceHandle, n int) {
	if n <= 0 {
		return
	}
	if s.update(reader, func(c *counters) {
		c.lost.TotalCount += n
		c.lost.TotalCountChange += n
	}) {
		s.signal(reader, types.StatusSampleLost)
	}
}

// OnSampleRejected 读端拒绝样本
func (s *Store) OnSampleRejected(reader types.InstanceHandle, reason types.SampleRejectedReason, instance types.InstanceHandle) {
	if s.update(reader, func(c *counters) {
		c.rejected.TotalCount++
		c.rejected.TotalCountChange++
		c.rejected.LastReason = reason
		c.rejected.LastInstanceHandle = instance
	}) {
		s.signal(reader, types.StatusSampleRejected)
	}
}

// OnDataAvailable 读端有新数据
func (s *Store) OnDataAvailable(reader types.InstanceHandle) {
	if s.reg.MarkStatus(reader, types.StatusDataAvailable) != nil {
		return
	}
	v, err := s.reg.Get(reader)
	if err != nil {
		return
	}
	_ = s.reg.MarkStatus(v.Parent, types.StatusDataOnReaders)

	// DATA_ON_READERS 优先于 DATA_AVAILABLE
	if target, l, ok := s.route(v.Parent, types.StatusDataOnReaders); ok {
		s.deliver(Notification{Source: v.Parent, Target: target, Kind: types.StatusDataOnReaders, Listener: l})
		return
	}
	s.signal(reader, types.StatusDataAvailable)
}

// ============================================================================
//                              路由
// ============================================================================

// signal 置位状态标志并通知最近的监听器
func (s *Store) signal(h types.InstanceHandle, kind types.StatusKind) {
	if err := s.reg.MarkStatus(h, kind); err != nil {
		return
	}
	target, l, ok := s.route(h, kind)
	if !ok {
		return
	}
	s.deliver(Notification{Source: h, Target: target, Kind: kind, Listener: l})
}

// route 沿父链查找掩码包含 kind 的监听器
func (s *Store) route(h types.InstanceHandle, kind types.StatusKind) (types.InstanceHandle, registry.Listener, bool) {
	for cur := h; !cur.IsNil(); {
		l, mask, err := s.reg.Listener(cur)
		if err != nil {
			return types.HandleNil, nil, false
		}
		if l != nil && mask.Has(kind) {
			return cur, l, true
		}
		v, err := s.reg.Get(cur)
		if err != nil {
			return types.HandleNil, nil, false
		}
		cur = v.Parent
	}
	return types.HandleNil, nil, false
}

func (s *Store) deliver(n Notification) {
	s.notifyMu.RLock()
	notify := s.notifier
	s.notifyMu.RUnlock()
	if notify == nil {
		return
	}

	keys := []types.InstanceHandle{n.Source}
	if n.Target != n.Source {
		keys = append(keys, n.Target)
	}
	if !s.disp.Dispatch(func() { notify(n) }, keys...) {
		log.Debug("status notification dropped", "source", n.Source, "kind", n.Kind)
	}
}

// ============================================================================
//                              读取（读取即清零）
// ============================================================================

// PublicationMatchedStatus 读取写端匹配状态
func (s *Store) PublicationMatchedStatus(h types.InstanceHandle) (st types.PublicationMatchedStatus, err error) {
	err = s.read(h, types.StatusPublicationMatched, func(c *counters) {
		st = c.pubMatched
		c.pubMatched.TotalCountChange = 0
		c.pubMatched.CurrentCountChange = 0
	})
	return st, err
}

// SubscriptionMatchedStatus 读取读端匹配状态
func (s *Store) SubscriptionMatchedStatus(h types.InstanceHandle) (st types.SubscriptionMatchedStatus, err error) {
	err = s.read(h, types.StatusSubscriptionMatched, func(c *counters) {
		st = c.subMatched
		c.subMatched.TotalCountChange = 0
		c.subMatched.CurrentCountChange = 0
	})
	return st, err
}

func readIncompatible(st *types.IncompatibleQosStatus) types.IncompatibleQosStatus {
	out := *st
	out.Policies = maps.Clone(st.Policies)
	st.TotalCountChange = 0
	return out
}

// OfferedIncompatibleQosStatus 读取写端不兼容状态
func (s *Store) OfferedIncompatibleQosStatus(h types.InstanceHandle) (st types.IncompatibleQosStatus, err error) {
	err = s.read(h, types.StatusOfferedIncompatibleQos, func(c *counters) {
		st = readIncompatible(&c.offeredIncompat)
	})
	return st, err
}

// RequestedIncompatibleQosStatus 读取读端不兼容状态
func (s *Store) RequestedIncompatibleQosStatus(h types.InstanceHandle) (st types.IncompatibleQosStatus, err error) {
	err = s.read(h, types.StatusRequestedIncompatibleQos, func(c *counters) {
		st = readIncompatible(&c.requestedIncompat)
	})
	return st, err
}

// SampleLostStatus 读取样本丢失状态
func (s *Store) SampleLostStatus(h types.InstanceHandle) (st types.SampleLostStatus, err error) {
	err = s.read(h, types.StatusSampleLost, func(c *counters) {
		st = c.lost
		c.lost.TotalCountChange = 0
	})
	return st, err
}

// SampleRejectedStatus 读取样本拒绝状态
func (s *Store) SampleRejectedStatus(h types.InstanceHandle) (st types.SampleRejectedStatus, err error) {
	err = s.read(h, types.StatusSampleRejected, func(c *counters) {
		st = c.rejected
		c.rejected.TotalCountChange = 0
	})
	return st, err
}

// LivelinessChangedStatus 读取存活变化状态
func (s *Store) LivelinessChangedStatus(h types.InstanceHandle) (st types.LivelinessChangedStatus, err error) {
	err = s.read(h, types.StatusLivelinessChanged, func(c *counters) {
		st = c.liveliness
		c.liveliness.AliveCountChange = 0
		c.liveliness.NotAliveCountChange = 0
	})
	return st, err
}

// InconsistentTopicStatus 读取主题不一致状态
func (s *Store) InconsistentTopicStatus(h types.InstanceHandle) (st types.InconsistentTopicStatus, err error) {
	err = s.read(h, types.StatusInconsistentTopic, func(c *counters) {
		st = c.inconsistent
		c.inconsistent.TotalCountChange = 0
	})
	return st, err
}

// ClearDataAvailable 读端被读取后清除数据标志
func (s *Store) ClearDataAvailable(reader types.InstanceHandle) {
	_ = s.reg.ClearStatus(reader, types.StatusDataAvailable)
	if v, err := s.reg.Get(reader); err == nil {
		_ = s.reg.ClearStatus(v.Parent, types.StatusDataOnReaders)
	}
}
