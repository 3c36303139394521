package samplecache

import (
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/dep2p/go-dds/internal/util/logger"
	pkgif "github.com/dep2p/go-dds/pkg/interfaces"
	"github.com/dep2p/go-dds/pkg/qos"
	"github.com/dep2p/go-dds/pkg/types"
)

var log = logger.Logger("samplecache")

// StatusSink 接收样本缓存产生的状态变化，由状态存储实现
type StatusSink interface {
	OnSampleLost(reader types.InstanceHandle, n int)
	OnSampleRejected(reader types.InstanceHandle, reason types.SampleRejectedReason, instance types.InstanceHandle)
	OnDataAvailable(reader types.InstanceHandle)
}

// ============================================================================
//                              内部结构
// ============================================================================

type entry struct {
	data     any
	valid    bool
	read     bool
	arrival  uint64
	source   time.Time
	received time.Time
	pub      types.InstanceHandle
	seq      uint64
	cookie   types.Cookie
}

func (e *entry) sampleState() types.SampleState {
	if e.read {
		return types.SampleRead
	}
	return types.SampleNotRead
}

func (e *entry) before(o *entry) bool {
	if !e.source.Equal(o.source) {
		return e.source.Before(o.source)
	}
	return e.arrival < o.arrival
}

type instance struct {
	handle  types.InstanceHandle
	key     string
	state   types.InstanceState
	seen    bool
	writers map[types.InstanceHandle]struct{}
	// samples 按源时间戳排序
	samples []*entry
}

func (i *instance) viewState() types.ViewState {
	if i.seen {
		return types.ViewNotNew
	}
	return types.ViewNew
}

func (i *instance) insert(e *entry) {
	idx, _ := slices.BinarySearchFunc(i.samples, e, func(a, b *entry) int {
		if a.before(b) {
			return -1
		}
		return 1
	})
	i.samples = slices.Insert(i.samples, idx, e)
}

// evictOldest 淘汰 keep 以外最旧的未读样本，全部已读时淘汰最旧样本；
// 返回是否计为丢失
func (i *instance) evictOldest(keep *entry) (lost bool) {
	oldest := -1
	for idx, e := range i.samples {
		if e == keep {
			continue
		}
		if oldest < 0 {
			oldest = idx
		}
		if !e.read {
			i.samples = slices.Delete(i.samples, idx, idx+1)
			return true
		}
	}
	if oldest >= 0 {
		i.samples = slices.Delete(i.samples, oldest, oldest+1)
	}
	return false
}

func (i *instance) remove(e *entry) {
	if idx := slices.Index(i.samples, e); idx >= 0 {
		i.samples = slices.Delete(i.samples, idx, idx+1)
	}
}

// ============================================================================
//                              Cache
// ============================================================================

// Config 缓存配置，取自读端 QoS
type Config struct {
	History qos.History
	Limits  qos.ResourceLimits
}

// ConfigFromQos 从读端 QoS 提取缓存配置
func ConfigFromQos(s qos.Set) Config {
	return Config{History: s.History(), Limits: s.ResourceLimits()}
}

// Deps 缓存依赖
type Deps struct {
	Reader types.InstanceHandle
	Sink   StatusSink
	Clock  clock.Clock
	Bus    pkgif.EventBus
}

// PushResult 一次 Push 的结果
type PushResult struct {
	Accepted bool
	Instance types.InstanceHandle
	// Lost 因容量淘汰的未读样本数
	Lost   int
	Reason types.SampleRejectedReason
}

// Cache 读端样本缓存
type Cache struct {
	reader types.InstanceHandle
	sink   StatusSink
	clock  clock.Clock

	mu        sync.Mutex
	cfg       Config
	arrival   uint64
	total     int
	instances map[types.InstanceHandle]*instance

	emPushed   pkgif.Emitter
	emLost     pkgif.Emitter
	emRejected pkgif.Emitter
	emTaken    pkgif.Emitter
}

// New 创建样本缓存
func New(d Deps, cfg Config) (*Cache, error) {
	if err := qos.Validate(qos.NewSet(cfg.History, cfg.Limits)); err != nil {
		return nil, err
	}
	if d.Clock == nil {
		d.Clock = clock.New()
	}
	c := &Cache{
		reader:    d.Reader,
		sink:      d.Sink,
		clock:     d.Clock,
		cfg:       cfg,
		instances: make(map[types.InstanceHandle]*instance),
	}
	if d.Bus != nil {
		var err error
		if c.emPushed, err = d.Bus.Emitter(new(types.EvtSamplesPushed)); err != nil {
			return nil, err
		}
		if c.emLost, err = d.Bus.Emitter(new(types.EvtSamplesLost)); err != nil {
			return nil, err
		}
		if c.emRejected, err = d.Bus.Emitter(new(types.EvtSampleRejected)); err != nil {
			return nil, err
		}
		if c.emTaken, err = d.Bus.Emitter(new(types.EvtSamplesTaken)); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// SetConfig 更新可变的缓存配置，已缓存的样本不受影响
func (c *Cache) SetConfig(cfg Config) error {
	if err := qos.Validate(qos.NewSet(cfg.History, cfg.Limits)); err != nil {
		return err
	}
	c.mu.Lock()
	c.cfg = cfg
	c.mu.Unlock()
	return nil
}

func emit(em pkgif.Emitter, ev any) {
	if em == nil {
		return
	}
	if err := em.Emit(ev); err != nil {
		log.Debug("emit failed", "err", err)
	}
}

// ============================================================================
//                              Push
// ============================================================================

// Push 把写端 pub 的一次变更放入缓存
//
// 普通写入按容量规则放置；销毁和注销产生无效样本并改变实例状态。
// 注销未知实例或仍有其他写端时不产生样本。
func (c *Cache) Push(pub types.InstanceHandle, msg types.DataMessage) (PushResult, error) {
	h := msg.Instance()
	now := c.clock.Now()

	c.mu.Lock()
	res, err := c.pushLocked(pub, h, msg, now)
	c.mu.Unlock()

	switch {
	case err != nil:
		log.Debug("sample rejected", "reader", c.reader, "instance", h, "reason", res.Reason)
		if c.sink != nil {
			c.sink.OnSampleRejected(c.reader, res.Reason, h)
		}
		emit(c.emRejected, types.EvtSampleRejected{Reader: c.reader, Reason: res.Reason})
	case res.Accepted:
		if res.Lost > 0 && c.sink != nil {
			c.sink.OnSampleLost(c.reader, res.Lost)
		}
		if res.Lost > 0 {
			emit(c.emLost, types.EvtSamplesLost{Reader: c.reader, Count: res.Lost})
		}
		emit(c.emPushed, types.EvtSamplesPushed{Reader: c.reader, Count: 1})
		if c.sink != nil {
			c.sink.OnDataAvailable(c.reader)
		}
	}
	return res, err
}

func (c *Cache) pushLocked(pub, h types.InstanceHandle, msg types.DataMessage, now time.Time) (PushResult, error) {
	res := PushResult{Instance: h}
	inst, ok := c.instances[h]

	if msg.Kind != types.ChangeAlive {
		if !ok {
			return res, nil
		}
		switch msg.Kind {
		case types.ChangeDisposed:
			inst.state = types.InstanceNotAliveDisposed
		case types.ChangeUnregistered:
			delete(inst.writers, pub)
			if len(inst.writers) > 0 || inst.state != types.InstanceAlive {
				return res, nil
			}
			inst.state = types.InstanceNotAliveNoWriters
		}
		c.appendLocked(inst, &entry{pub: pub, seq: msg.Sequence, cookie: msg.Cookie, source: msg.SourceTimestamp, received: now})
		res.Accepted = true
		return res, nil
	}

	lim := c.cfg.Limits
	if !ok {
		if lim.MaxInstances != qos.Unlimited && len(c.instances) >= lim.MaxInstances {
			res.Reason = types.RejectedByInstancesLimit
			return res, fmt.Errorf("%w: reader %s holds %d instances", types.ErrResourceLimitExceeded, c.reader, len(c.instances))
		}
		inst = &instance{
			handle:  h,
			key:     msg.Key,
			state:   types.InstanceAlive,
			writers: make(map[types.InstanceHandle]struct{}),
		}
	}

	keepAll := c.cfg.History.Kind == qos.HistoryKeepAll
	perInstance := qos.InstanceLimit(c.cfg.History, lim)
	if keepAll {
		if perInstance != qos.Unlimited && len(inst.samples) >= perInstance {
			res.Reason = types.RejectedBySamplesPerInstanceLimit
			return res, fmt.Errorf("%w: instance %s holds %d samples", types.ErrResourceLimitExceeded, h, len(inst.samples))
		}
		if lim.MaxSamples != qos.Unlimited && c.total >= lim.MaxSamples {
			res.Reason = types.RejectedBySamplesLimit
			return res, fmt.Errorf("%w: reader %s holds %d samples", types.ErrResourceLimitExceeded, c.reader, c.total)
		}
	} else if lim.MaxSamples != qos.Unlimited && c.total >= lim.MaxSamples && len(inst.samples) == 0 {
		res.Reason = types.RejectedBySamplesLimit
		return res, fmt.Errorf("%w: reader %s holds %d samples", types.ErrResourceLimitExceeded, c.reader, c.total)
	}

	if !ok {
		c.instances[h] = inst
	}
	if inst.state != types.InstanceAlive {
		// 实例重生
		inst.state = types.InstanceAlive
		inst.seen = false
	}
	inst.writers[pub] = struct{}{}
	added := &entry{
		data:     msg.Payload,
		valid:    true,
		pub:      pub,
		seq:      msg.Sequence,
		cookie:   msg.Cookie,
		source:   msg.SourceTimestamp,
		received: now,
	}
	c.appendLocked(inst, added)
	res.Accepted = true

	if !keepAll {
		for perInstance != qos.Unlimited && len(inst.samples) > perInstance {
			c.total--
			if inst.evictOldest(added) {
				res.Lost++
			}
		}
		for lim.MaxSamples != qos.Unlimited && c.total > lim.MaxSamples && len(inst.samples) > 1 {
			c.total--
			if inst.evictOldest(added) {
				res.Lost++
			}
		}
	}
	return res, nil
}

func (c *Cache) appendLocked(inst *instance, e *entry) {
	c.arrival++
	e.arrival = c.arrival
	if e.source.IsZero() {
		e.source = e.received
	}
	inst.insert(e)
	c.total++
}

// WriterLost 写端丢失或解除匹配：仅由它写入的存活实例变为 NOT_ALIVE_NO_WRITERS
func (c *Cache) WriterLost(pub types.InstanceHandle) int {
	now := c.clock.Now()
	changed := 0

	c.mu.Lock()
	for _, inst := range c.instances {
		if _, ok := inst.writers[pub]; !ok {
			continue
		}
		delete(inst.writers, pub)
		if len(inst.writers) > 0 || inst.state != types.InstanceAlive {
			continue
		}
		inst.state = types.InstanceNotAliveNoWriters
		if len(inst.samples) == 0 {
			c.appendLocked(inst, &entry{pub: pub, source: now, received: now})
		}
		changed++
	}
	c.mu.Unlock()

	if changed > 0 && c.sink != nil {
		c.sink.OnDataAvailable(c.reader)
	}
	return changed
}

// ============================================================================
//                              Read / Take
// ============================================================================

type slot struct {
	e    *entry
	inst *instance
	// pos 样本占用的到达槽位
	pos uint64
}

// orderedLocked 返回按到达槽位排列的全部样本
//
// 实例内第 i 个样本（按源时间戳）占用该实例第 i 小的到达序号。
func (c *Cache) orderedLocked() []slot {
	out := make([]slot, 0, c.total)
	for _, inst := range c.instances {
		arrivals := make([]uint64, len(inst.samples))
		for i, e := range inst.samples {
			arrivals[i] = e.arrival
		}
		slices.Sort(arrivals)
		for i, e := range inst.samples {
			out = append(out, slot{e: e, inst: inst, pos: arrivals[i]})
		}
	}
	slices.SortFunc(out, func(a, b slot) int {
		switch {
		case a.pos < b.pos:
			return -1
		case a.pos > b.pos:
			return 1
		default:
			return 0
		}
	})
	return out
}

// selectLocked 按过滤条件选出样本
func (c *Cache) selectLocked(f Filter) []slot {
	all := c.orderedLocked()

	target := f.instance
	if f.hasInst && f.next {
		target = types.HandleNil
		for _, s := range all {
			h := s.inst.handle
			if h > f.instance && (target.IsNil() || h < target) && f.admits(s.e, s.inst) {
				target = h
			}
		}
		if target.IsNil() {
			return nil
		}
	}

	var out []slot
	for _, s := range all {
		if f.hasInst && s.inst.handle != target {
			continue
		}
		if !f.admits(s.e, s.inst) {
			continue
		}
		out = append(out, s)
		if f.max > 0 && len(out) >= f.max {
			break
		}
	}
	return out
}

func toSample(s slot) types.Sample {
	return types.Sample{
		Data: s.e.data,
		Info: types.SampleInfo{
			SampleState:        s.e.sampleState(),
			ViewState:          s.inst.viewState(),
			InstanceState:      s.inst.state,
			SourceTimestamp:    s.e.source,
			ReceptionTimestamp: s.e.received,
			InstanceHandle:     s.inst.handle,
			PublicationHandle:  s.e.pub,
			Valid:              s.e.valid,
			SequenceNumber:     s.e.seq,
			Cookie:             s.e.cookie,
		},
	}
}

// Read 返回满足过滤条件的样本并标记为已读，实例视图变为 NOT_NEW
func (c *Cache) Read(f Filter) []types.Sample {
	c.mu.Lock()
	defer c.mu.Unlock()

	picked := c.selectLocked(f)
	out := make([]types.Sample, len(picked))
	for i, s := range picked {
		out[i] = toSample(s)
	}
	for _, s := range picked {
		s.e.read = true
		s.inst.seen = true
	}
	return out
}

// Take 返回满足过滤条件的样本并从缓存移除，每个样本至多被取走一次
func (c *Cache) Take(f Filter) []types.Sample {
	c.mu.Lock()
	picked := c.selectLocked(f)
	out := make([]types.Sample, len(picked))
	for i, s := range picked {
		out[i] = toSample(s)
	}
	for _, s := range picked {
		s.inst.remove(s.e)
		s.inst.seen = true
		c.total--
	}
	c.pruneLocked()
	c.mu.Unlock()

	if len(out) > 0 {
		emit(c.emTaken, types.EvtSamplesTaken{Reader: c.reader, Count: len(out)})
	}
	return out
}

// pruneLocked 删除既无样本又不存活的实例
func (c *Cache) pruneLocked() {
	for h, inst := range c.instances {
		if len(inst.samples) == 0 && inst.state != types.InstanceAlive {
			delete(c.instances, h)
		}
	}
}

// ============================================================================
//                              查询
// ============================================================================

// Len 返回缓存的样本数
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.total
}

// InstanceCount 返回实例数
func (c *Cache) InstanceCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.instances)
}

// Instances 返回实例句柄（升序）
func (c *Cache) Instances() []types.InstanceHandle {
	c.mu.Lock()
	out := make([]types.InstanceHandle, 0, len(c.instances))
	for h := range c.instances {
		out = append(out, h)
	}
	c.mu.Unlock()
	slices.Sort(out)
	return out
}

// InstanceState 返回实例状态
func (c *Cache) InstanceState(h types.InstanceHandle) (types.InstanceState, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	inst, ok := c.instances[h]
	if !ok {
		return 0, fmt.Errorf("%w: instance %s", types.ErrNotFound, h)
	}
	return inst.state, nil
}

// InstanceKey 返回实例键
func (c *Cache) InstanceKey(h types.InstanceHandle) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	inst, ok := c.instances[h]
	if !ok {
		return "", fmt.Errorf("%w: instance %s", types.ErrNotFound, h)
	}
	return inst.key, nil
}

// LookupInstance 按键查找实例句柄
func (c *Cache) LookupInstance(key string) types.InstanceHandle {
	h := types.KeyHandle(key)
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.instances[h]; !ok {
		return types.HandleNil
	}
	return h
}

// Close 清空缓存并关闭事件发射器
func (c *Cache) Close() error {
	c.mu.Lock()
	c.instances = make(map[types.InstanceHandle]*instance)
	c.total = 0
	c.mu.Unlock()
	for _, em := range []pkgif.Emitter{c.emPushed, c.emLost, c.emRejected, c.emTaken} {
		if em != nil {
			_ = em.Close()
		}
	}
	return nil
}
