package matching

import (
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/dep2p/go-dds/internal/core/discovery"
	"github.com/dep2p/go-dds/internal/core/registry"
	"github.com/dep2p/go-dds/internal/util/logger"
	pkgif "github.com/dep2p/go-dds/pkg/interfaces"
	"github.com/dep2p/go-dds/pkg/qos"
	"github.com/dep2p/go-dds/pkg/types"
)

var log = logger.Logger("matching")

// ============================================================================
//                              接口
// ============================================================================

// StatusSink 接收匹配产生的通信状态变化，由状态存储实现
//
// 非本地句柄的更新由实现方忽略。
type StatusSink interface {
	OnPublicationMatched(writer, reader types.InstanceHandle, delta int)
	OnSubscriptionMatched(reader, writer types.InstanceHandle, delta int)
	OnOfferedIncompatibleQos(writer types.InstanceHandle, policies []qos.PolicyKind)
	OnRequestedIncompatibleQos(reader types.InstanceHandle, policies []qos.PolicyKind)
	OnInconsistentTopic(topic types.InstanceHandle)
	OnLivelinessChanged(reader, writer types.InstanceHandle, aliveDelta, notAliveDelta int)
}

// Connector 匹配建立和解除时的数据通路钩子
//
// 写端一侧借此向迟加入的读端回放 TRANSIENT_LOCAL 历史。
type Connector interface {
	OnMatched(rec Record)
	OnUnmatched(rec Record)
}

// Record 一条匹配记录
type Record struct {
	Writer     types.InstanceHandle
	Reader     types.InstanceHandle
	WriterGUID types.GUID
	ReaderGUID types.GUID
	Created    time.Time
}

type pair struct {
	w, r types.InstanceHandle
}

type topicPair struct {
	local, remote types.InstanceHandle
}

// notice 在释放锁之后发出的通知
type notice struct {
	matched      *Record
	unmatched    *Record
	incompatible []qos.PolicyKind
	w, r         types.InstanceHandle
}

// ============================================================================
//                              Engine
// ============================================================================

// Deps 引擎依赖
type Deps struct {
	Cache *discovery.Cache
	Locks *registry.LockTable
	Sink  StatusSink
	Clock clock.Clock
	Bus   pkgif.EventBus
}

// Engine 参与者的匹配引擎
type Engine struct {
	cache *discovery.Cache
	locks *registry.LockTable
	sink  StatusSink
	clock clock.Clock
	opts  []EvalOption

	mu           sync.RWMutex
	matched      map[pair]Record
	incompatible map[pair][]qos.PolicyKind
	byHandle     map[types.InstanceHandle]map[pair]struct{}
	inconsistent map[topicPair]struct{}
	connectors   []Connector

	emMatched      pkgif.Emitter
	emUnmatched    pkgif.Emitter
	emIncompatible pkgif.Emitter
}

// New 创建匹配引擎并注册为发现缓存的观察者
func New(d Deps, opts ...EvalOption) (*Engine, error) {
	if d.Cache == nil {
		return nil, fmt.Errorf("%w: matching engine requires a discovery cache", types.ErrBadParameter)
	}
	if d.Locks == nil {
		d.Locks = registry.NewLockTable()
	}
	if d.Clock == nil {
		d.Clock = clock.New()
	}
	e := &Engine{
		cache:        d.Cache,
		locks:        d.Locks,
		sink:         d.Sink,
		clock:        d.Clock,
		opts:         opts,
		matched:      make(map[pair]Record),
		incompatible: make(map[pair][]qos.PolicyKind),
		byHandle:     make(map[types.InstanceHandle]map[pair]struct{}),
		inconsistent: make(map[topicPair]struct{}),
	}
	if d.Bus != nil {
		var err error
		if e.emMatched, err = d.Bus.Emitter(new(types.EvtMatched)); err != nil {
			return nil, err
		}
		if e.emUnmatched, err = d.Bus.Emitter(new(types.EvtUnmatched)); err != nil {
			return nil, err
		}
		if e.emIncompatible, err = d.Bus.Emitter(new(types.EvtIncompatibleQos)); err != nil {
			return nil, err
		}
	}
	d.Cache.AddObserver(e)
	return e, nil
}

// AddConnector 注册数据通路钩子
func (e *Engine) AddConnector(c Connector) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.connectors = append(e.connectors, c)
}

// ============================================================================
//                              发现观察者
// ============================================================================

// OnRecordAnnounced 新记录或记录变化时重新评估
func (e *Engine) OnRecordAnnounced(rec types.EntityRecord) {
	switch {
	case rec.IsEndpoint():
		e.evaluateRecord(rec)
	case rec.Kind == types.BuiltinTopic:
		e.checkTopic(rec)
	}
}

// OnRecordLost 记录丢失、被忽略或本地实体删除时解除所有相关匹配
func (e *Engine) OnRecordLost(rec types.EntityRecord) {
	e.Disconnect(rec.Handle)
	if rec.Origin == types.OriginRemote {
		e.locks.Forget(rec.Handle)
	}
}

// ============================================================================
//                              评估
// ============================================================================

// Evaluate 按句柄评估一对端点，不修改匹配状态
func (e *Engine) Evaluate(writer, reader types.InstanceHandle, opts ...EvalOption) (Result, error) {
	w, ok := e.cache.Lookup(writer)
	if !ok {
		return Result{}, fmt.Errorf("%w: writer %s", types.ErrNotFound, writer)
	}
	r, ok := e.cache.Lookup(reader)
	if !ok {
		return Result{}, fmt.Errorf("%w: reader %s", types.ErrNotFound, reader)
	}
	if w.Kind != types.BuiltinPublication || r.Kind != types.BuiltinSubscription {
		return Result{}, fmt.Errorf("%w: evaluate needs a writer and a reader, got %s and %s", types.ErrBadParameter, w.Kind, r.Kind)
	}
	return Evaluate(w, r, append(slices.Clone(e.opts), opts...)...), nil
}

// Connect 评估本地端点与同主题所有对端候选
func (e *Engine) Connect(h types.InstanceHandle) error {
	rec, ok := e.cache.Lookup(h)
	if !ok {
		return fmt.Errorf("%w: endpoint %s", types.ErrNotFound, h)
	}
	if !rec.IsEndpoint() {
		return fmt.Errorf("%w: %s is not an endpoint", types.ErrBadParameter, h)
	}
	e.evaluateRecord(rec)
	return nil
}

// Reevaluate QoS 变化后重新评估，可能解除已有匹配
func (e *Engine) Reevaluate(h types.InstanceHandle) error {
	return e.Connect(h)
}

func opposite(k types.BuiltinKind) types.BuiltinKind {
	if k == types.BuiltinPublication {
		return types.BuiltinSubscription
	}
	return types.BuiltinPublication
}

func (e *Engine) evaluateRecord(rec types.EntityRecord) {
	for _, cand := range e.cache.Candidates(rec.TopicName, opposite(rec.Kind)) {
		if rec.Origin == types.OriginRemote && cand.Origin == types.OriginRemote {
			continue
		}
		if rec.Kind == types.BuiltinPublication {
			e.evaluatePair(rec, cand)
		} else {
			e.evaluatePair(cand, rec)
		}
	}
}

func (e *Engine) evaluatePair(w, r types.EntityRecord) {
	unlock := e.locks.LockPair(w.Handle, r.Handle)
	// 加锁后重新读取，避免使用过期的记录
	if cur, ok := e.cache.Lookup(w.Handle); ok {
		w = cur
	} else {
		unlock()
		return
	}
	if cur, ok := e.cache.Lookup(r.Handle); ok {
		r = cur
	} else {
		unlock()
		return
	}
	res := Evaluate(w, r, e.opts...)
	p := pair{w: w.Handle, r: r.Handle}
	n := notice{w: w.Handle, r: r.Handle}

	e.mu.Lock()
	_, was := e.matched[p]
	switch {
	case res.Compatible() && !was:
		rec := Record{
			Writer:     w.Handle,
			Reader:     r.Handle,
			WriterGUID: w.GUID,
			ReaderGUID: r.GUID,
			Created:    e.clock.Now(),
		}
		e.addLocked(p, rec)
		n.matched = &rec
	case !res.Compatible() && was:
		rec := e.removeLocked(p)
		n.unmatched = &rec
	}
	if res.Outcome == IncompatibleQos {
		if !slices.Equal(e.incompatible[p], res.Policies) {
			e.incompatible[p] = res.Policies
			n.incompatible = res.Policies
		}
	} else {
		delete(e.incompatible, p)
	}
	connectors := slices.Clone(e.connectors)
	e.mu.Unlock()
	unlock()

	if n.matched != nil || n.unmatched != nil || n.incompatible != nil {
		log.Debug("pair evaluated", "writer", w.Handle, "reader", r.Handle, "result", res)
	}
	e.notify(n, connectors)
}

func (e *Engine) addLocked(p pair, rec Record) {
	e.matched[p] = rec
	for _, h := range []types.InstanceHandle{p.w, p.r} {
		set, ok := e.byHandle[h]
		if !ok {
			set = make(map[pair]struct{})
			e.byHandle[h] = set
		}
		set[p] = struct{}{}
	}
}

func (e *Engine) removeLocked(p pair) Record {
	rec := e.matched[p]
	delete(e.matched, p)
	for _, h := range []types.InstanceHandle{p.w, p.r} {
		if set, ok := e.byHandle[h]; ok {
			delete(set, p)
			if len(set) == 0 {
				delete(e.byHandle, h)
			}
		}
	}
	return rec
}

func (e *Engine) notify(n notice, connectors []Connector) {
	if n.unmatched != nil {
		rec := *n.unmatched
		for _, c := range connectors {
			c.OnUnmatched(rec)
		}
		if e.sink != nil {
			e.sink.OnPublicationMatched(rec.Writer, rec.Reader, -1)
			e.sink.OnSubscriptionMatched(rec.Reader, rec.Writer, -1)
			e.sink.OnLivelinessChanged(rec.Reader, rec.Writer, -1, 0)
		}
		emit(e.emUnmatched, types.EvtUnmatched{Writer: rec.Writer, Reader: rec.Reader})
	}
	if n.matched != nil {
		rec := *n.matched
		if e.sink != nil {
			e.sink.OnPublicationMatched(rec.Writer, rec.Reader, 1)
			e.sink.OnSubscriptionMatched(rec.Reader, rec.Writer, 1)
			e.sink.OnLivelinessChanged(rec.Reader, rec.Writer, 1, 0)
		}
		emit(e.emMatched, types.EvtMatched{Writer: rec.Writer, Reader: rec.Reader})
		for _, c := range connectors {
			c.OnMatched(rec)
		}
	}
	if n.incompatible != nil {
		if e.sink != nil {
			e.sink.OnOfferedIncompatibleQos(n.w, n.incompatible)
			e.sink.OnRequestedIncompatibleQos(n.r, n.incompatible)
		}
		emit(e.emIncompatible, types.EvtIncompatibleQos{Writer: n.w, Reader: n.r, Policies: n.incompatible})
	}
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
//                              主题一致性
// ============================================================================

// checkTopic 同名主题类型不一致时向本地主题报告 InconsistentTopic
func (e *Engine) checkTopic(rec types.EntityRecord) {
	var report []types.InstanceHandle
	e.mu.Lock()
	for _, other := range e.cache.Topics() {
		if other.Handle == rec.Handle || other.TopicName != rec.TopicName || other.Origin == rec.Origin {
			continue
		}
		tp := topicPair{local: rec.Handle, remote: other.Handle}
		if rec.Origin == types.OriginRemote {
			tp = topicPair{local: other.Handle, remote: rec.Handle}
		}
		if other.TypeName == rec.TypeName {
			delete(e.inconsistent, tp)
			continue
		}
		if _, seen := e.inconsistent[tp]; seen {
			continue
		}
		e.inconsistent[tp] = struct{}{}
		report = append(report, tp.local)
	}
	e.mu.Unlock()

	for _, h := range report {
		log.Debug("inconsistent topic", "topic", rec.TopicName, "local", h)
		if e.sink != nil {
			e.sink.OnInconsistentTopic(h)
		}
	}
}

// ============================================================================
//                              解除
// ============================================================================

// Disconnect 删除所有引用 h 的匹配记录并发出解除通知
func (e *Engine) Disconnect(h types.InstanceHandle) {
	e.mu.RLock()
	pairs := make([]pair, 0, len(e.byHandle[h]))
	for p := range e.byHandle[h] {
		pairs = append(pairs, p)
	}
	e.mu.RUnlock()
	slices.SortFunc(pairs, comparePairs)

	for _, p := range pairs {
		unlock := e.locks.LockPair(p.w, p.r)
		e.mu.Lock()
		_, ok := e.matched[p]
		var rec Record
		if ok {
			rec = e.removeLocked(p)
		}
		connectors := slices.Clone(e.connectors)
		e.mu.Unlock()
		unlock()
		if ok {
			e.notify(notice{unmatched: &rec}, connectors)
		}
	}

	e.mu.Lock()
	for p := range e.incompatible {
		if p.w == h || p.r == h {
			delete(e.incompatible, p)
		}
	}
	for tp := range e.inconsistent {
		if tp.local == h || tp.remote == h {
			delete(e.inconsistent, tp)
		}
	}
	e.mu.Unlock()
}

func comparePairs(a, b pair) int {
	switch {
	case a.w != b.w:
		if a.w < b.w {
			return -1
		}
		return 1
	case a.r < b.r:
		return -1
	case a.r > b.r:
		return 1
	default:
		return 0
	}
}

// ============================================================================
//                              查询
// ============================================================================

// Matches 返回与 h 匹配的对端句柄（升序）
func (e *Engine) Matches(h types.InstanceHandle) []types.InstanceHandle {
	e.mu.RLock()
	out := make([]types.InstanceHandle, 0, len(e.byHandle[h]))
	for p := range e.byHandle[h] {
		if p.w == h {
			out = append(out, p.r)
		} else {
			out = append(out, p.w)
		}
	}
	e.mu.RUnlock()
	slices.Sort(out)
	return out
}

// IsMatched 检查一对端点是否已匹配
func (e *Engine) IsMatched(writer, reader types.InstanceHandle) bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	_, ok := e.matched[pair{w: writer, r: reader}]
	return ok
}

// Records 返回所有匹配记录，按写端、读端排序
func (e *Engine) Records() []Record {
	e.mu.RLock()
	out := make([]Record, 0, len(e.matched))
	for _, rec := range e.matched {
		out = append(out, rec)
	}
	e.mu.RUnlock()
	slices.SortFunc(out, func(a, b Record) int {
		return comparePairs(pair{a.Writer, a.Reader}, pair{b.Writer, b.Reader})
	})
	return out
}

// Len 返回匹配记录数量
func (e *Engine) Len() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.matched)
}

// Close 关闭事件发射器
func (e *Engine) Close() error {
	for _, em := range []pkgif.Emitter{e.emMatched, e.emUnmatched, e.emIncompatible} {
		if em != nil {
			_ = em.Close()
		}
	}
	return nil
}
