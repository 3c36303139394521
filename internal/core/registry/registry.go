package registry

import (
	"fmt"
	"slices"
	"sync"

	"github.com/benbjohnson/clock"
	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/multierr"

	"github.com/dep2p/go-dds/internal/core/qosstore"
	"github.com/dep2p/go-dds/internal/util/logger"
	pkgif "github.com/dep2p/go-dds/pkg/interfaces"
	"github.com/dep2p/go-dds/pkg/qos"
	"github.com/dep2p/go-dds/pkg/types"
)

var log = logger.Logger("registry")

// DefaultClosedHistory 默认墓碑数量
const DefaultClosedHistory = 1024

// LifecycleObserver 实体生命周期观察者
//
// 回调同步执行，执行时不持有注册表锁，可以回调注册表的查询方法。
type LifecycleObserver interface {
	// OnEntityEnabled 实体已启用
	OnEntityEnabled(v View)
	// OnEntityClosed 实体正在关闭，子实体已全部关闭，QoS 仍可查询
	OnEntityClosed(v View)
}

// Quiescer 回调调度屏障
type Quiescer interface {
	Quiesce(h types.InstanceHandle)
}

// Registry 实体注册表
type Registry struct {
	mu         sync.RWMutex
	entities   map[types.InstanceHandle]*entity
	tombstones *lru.Cache[types.InstanceHandle, View]

	handles  *types.HandleAllocator
	qos      *qosstore.Store
	quiescer Quiescer
	locks    *LockTable
	clock    clock.Clock

	obsMu     sync.RWMutex
	observers []LifecycleObserver

	emCreated pkgif.Emitter
	emEnabled pkgif.Emitter
	emClosed  pkgif.Emitter
}

// Deps 注册表依赖
type Deps struct {
	Handles       *types.HandleAllocator
	Qos           *qosstore.Store
	Quiescer      Quiescer
	Bus           pkgif.EventBus
	Clock         clock.Clock
	ClosedHistory int
}

// New 创建注册表
func New(d Deps) (*Registry, error) {
	if d.Qos == nil {
		return nil, fmt.Errorf("%w: registry requires a qos store", types.ErrBadParameter)
	}
	if d.Handles == nil {
		d.Handles = types.NewHandleAllocator()
	}
	if d.Clock == nil {
		d.Clock = clock.New()
	}
	if d.ClosedHistory <= 0 {
		d.ClosedHistory = DefaultClosedHistory
	}
	tombstones, err := lru.New[types.InstanceHandle, View](d.ClosedHistory)
	if err != nil {
		return nil, err
	}

	r := &Registry{
		entities:   make(map[types.InstanceHandle]*entity),
		tombstones: tombstones,
		handles:    d.Handles,
		qos:        d.Qos,
		quiescer:   d.Quiescer,
		locks:      NewLockTable(),
		clock:      d.Clock,
	}
	if d.Bus != nil {
		if r.emCreated, err = d.Bus.Emitter(new(types.EvtEntityCreated)); err != nil {
			return nil, err
		}
		if r.emEnabled, err = d.Bus.Emitter(new(types.EvtEntityEnabled)); err != nil {
			return nil, err
		}
		if r.emClosed, err = d.Bus.Emitter(new(types.EvtEntityClosed)); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Handles 返回句柄分配器，发现缓存为远端记录分配句柄时共用
func (r *Registry) Handles() *types.HandleAllocator {
	return r.handles
}

// Qos 返回 QoS 存储
func (r *Registry) Qos() *qosstore.Store {
	return r.qos
}

// Locks 返回按句柄的锁表
func (r *Registry) Locks() *LockTable {
	return r.locks
}

// AddObserver 注册生命周期观察者
func (r *Registry) AddObserver(o LifecycleObserver) {
	r.obsMu.Lock()
	defer r.obsMu.Unlock()
	r.observers = append(r.observers, o)
}

// RemoveObserver 注销生命周期观察者
func (r *Registry) RemoveObserver(o LifecycleObserver) {
	r.obsMu.Lock()
	defer r.obsMu.Unlock()
	for i, x := range r.observers {
		if x == o {
			r.observers = append(r.observers[:i], r.observers[i+1:]...)
			return
		}
	}
}

func (r *Registry) snapshotObservers() []LifecycleObserver {
	r.obsMu.RLock()
	defer r.obsMu.RUnlock()
	return append([]LifecycleObserver(nil), r.observers...)
}

// ============================================================================
//                              创建与启用
// ============================================================================

// Create 创建实体并登记 QoS
func (r *Registry) Create(kind types.EntityKind, parent types.InstanceHandle, set qos.Set, opts ...Option) (types.InstanceHandle, error) {
	if !kind.Valid() {
		return types.HandleNil, fmt.Errorf("%w: entity kind %d", types.ErrBadParameter, kind)
	}
	o := &createOptions{}
	for _, opt := range opts {
		opt(o)
	}
	if err := qos.Validate(set); err != nil {
		return types.HandleNil, err
	}

	r.mu.Lock()
	e := &entity{
		kind:     kind,
		children: make(map[types.InstanceHandle]struct{}),
		name:     o.name,
		typeName: o.typeName,
		topic:    o.topic,
	}

	autoEnable := true
	var p *entity
	if kind == types.KindParticipant {
		if !parent.IsNil() {
			r.mu.Unlock()
			return types.HandleNil, fmt.Errorf("%w: participant cannot have a parent", types.ErrPreconditionNotMet)
		}
		prefix := o.prefix
		if prefix.IsZero() {
			prefix = types.NewGUIDPrefix()
		}
		e.guid = types.GUID{Prefix: prefix, Entity: types.EntityIDParticipant}
		e.domainID = o.domainID
	} else {
		var err error
		if p, err = r.usableLocked(parent); err != nil {
			r.mu.Unlock()
			return types.HandleNil, fmt.Errorf("%w: create %s: parent %s: %v", types.ErrPreconditionNotMet, kind, parent, err)
		}
		if p.kind != kind.ParentKind() {
			r.mu.Unlock()
			return types.HandleNil, fmt.Errorf("%w: %s cannot be a child of %s", types.ErrPreconditionNotMet, kind, p.kind)
		}
		root := r.entities[p.participant]
		root.nextEntity++
		e.guid = types.GUID{Prefix: root.guid.Prefix, Entity: types.NewEntityID(root.nextEntity, kind)}
		e.domainID = root.domainID

		parentQos, _ := r.qos.Get(parent)
		autoEnable = parentQos.EntityFactory().AutoenableCreatedEntities && p.state == StateEnabled
	}
	if o.autoEnable != nil {
		autoEnable = *o.autoEnable && (p == nil || p.state == StateEnabled)
	}

	e.handle = r.handles.Next()
	if kind == types.KindParticipant {
		e.participant = e.handle
	} else {
		e.parent = parent
		e.participant = p.participant
	}

	if err := r.qos.Register(e.handle, kind, set); err != nil {
		r.mu.Unlock()
		return types.HandleNil, err
	}
	r.entities[e.handle] = e
	if p != nil {
		p.children[e.handle] = struct{}{}
	}
	h := e.handle
	r.mu.Unlock()

	log.Debug("entity created", "handle", h, "kind", kind, "parent", parent)
	if r.emCreated != nil {
		_ = r.emCreated.Emit(types.EvtEntityCreated{
			Handle:      h,
			Kind:        kind,
			Parent:      parent,
			Participant: e.participant,
			Time:        r.clock.Now(),
		})
	}

	if autoEnable {
		if err := r.Enable(h); err != nil {
			return h, err
		}
	}
	return h, nil
}

// Enable 启用实体（幂等），要求父实体已启用
//
// 若实体的 EntityFactory 策略要求自动启用，已创建的子实体随之启用。
func (r *Registry) Enable(h types.InstanceHandle) error {
	unlock := r.locks.Lock(h)

	r.mu.Lock()
	e, err := r.usableLocked(h)
	if err != nil {
		r.mu.Unlock()
		unlock()
		return err
	}
	if e.state == StateEnabled {
		r.mu.Unlock()
		unlock()
		return nil
	}
	if p, ok := r.entities[e.parent]; ok && p.state != StateEnabled {
		r.mu.Unlock()
		unlock()
		return fmt.Errorf("%w: parent %s of %s is not enabled", types.ErrPreconditionNotMet, e.parent, h)
	}
	e.state = StateEnabled
	v := e.view()
	r.mu.Unlock()

	if err := r.qos.Enable(h); err != nil {
		unlock()
		return err
	}
	v.Qos, _ = r.qos.Get(h)
	unlock()

	for _, o := range r.snapshotObservers() {
		o.OnEntityEnabled(v)
	}
	if r.emEnabled != nil {
		_ = r.emEnabled.Emit(types.EvtEntityEnabled{Handle: h, Kind: v.Kind, Time: r.clock.Now()})
	}

	if v.Qos.EntityFactory().AutoenableCreatedEntities {
		for _, c := range v.Children {
			if err := r.Enable(c); err != nil {
				log.Debug("cascade enable failed", "handle", c, "err", err)
			}
		}
	}
	return nil
}

// ============================================================================
//                              关闭
// ============================================================================

// SetFinalizer 追加实体关闭时执行的终结函数，按注册顺序执行
func (r *Registry) SetFinalizer(h types.InstanceHandle, fn func() error) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, err := r.usableLocked(h)
	if err != nil {
		return err
	}
	e.finalizers = append(e.finalizers, fn)
	return nil
}

// Close 关闭实体及其所有子实体（幂等）
//
// 已关闭或正在关闭的实体返回 nil；未知句柄返回 ErrNotFound。
func (r *Registry) Close(h types.InstanceHandle) error {
	r.mu.Lock()
	e, ok := r.entities[h]
	if !ok {
		r.mu.Unlock()
		if r.tombstones.Contains(h) {
			return nil
		}
		return fmt.Errorf("%w: entity %s", types.ErrNotFound, h)
	}
	if e.closing {
		r.mu.Unlock()
		return nil
	}
	e.closing = true
	children := e.view().Children
	r.mu.Unlock()

	var errs error
	for _, c := range children {
		errs = multierr.Append(errs, r.Close(c))
	}

	unlock := r.locks.Lock(h)
	r.mu.Lock()
	v := e.view()
	finalizers := e.finalizers
	e.finalizers = nil
	r.mu.Unlock()
	v.Qos, _ = r.qos.Get(h)
	unlock()

	for _, o := range r.snapshotObservers() {
		o.OnEntityClosed(v)
	}
	for _, fn := range finalizers {
		errs = multierr.Append(errs, fn())
	}
	if r.quiescer != nil {
		r.quiescer.Quiesce(h)
	}

	r.mu.Lock()
	e.state = StateClosed
	e.listener = nil
	v.State = StateClosed
	v.Children = nil
	delete(r.entities, h)
	if p, ok := r.entities[e.parent]; ok {
		delete(p.children, h)
	}
	r.tombstones.Add(h, v)
	r.mu.Unlock()

	r.qos.Remove(h)
	r.locks.Forget(h)

	log.Debug("entity closed", "handle", h, "kind", v.Kind)
	if r.emClosed != nil {
		_ = r.emClosed.Emit(types.EvtEntityClosed{Handle: h, Kind: v.Kind, Time: r.clock.Now()})
	}
	return errs
}

// CloseAll 关闭所有参与者
func (r *Registry) CloseAll() error {
	var errs error
	for _, h := range r.FindAll(types.HandleNil, types.KindParticipant) {
		errs = multierr.Append(errs, r.Close(h))
	}
	return errs
}

// Stop 关闭事件发射器
func (r *Registry) Stop() error {
	var errs error
	for _, em := range []pkgif.Emitter{r.emCreated, r.emEnabled, r.emClosed} {
		if em != nil {
			errs = multierr.Append(errs, em.Close())
		}
	}
	return errs
}

// ============================================================================
//                              查询
// ============================================================================

// usableLocked 返回未关闭的实体，调用方持有 r.mu
func (r *Registry) usableLocked(h types.InstanceHandle) (*entity, error) {
	e, ok := r.entities[h]
	if !ok {
		if r.tombstones.Contains(h) {
			return nil, fmt.Errorf("%w: entity %s", types.ErrAlreadyClosed, h)
		}
		return nil, fmt.Errorf("%w: entity %s", types.ErrNotFound, h)
	}
	if !e.usable() {
		return nil, fmt.Errorf("%w: entity %s", types.ErrAlreadyClosed, h)
	}
	return e, nil
}

// Check 检查实体存在且未关闭
func (r *Registry) Check(h types.InstanceHandle) error {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, err := r.usableLocked(h)
	return err
}

// Get 返回实体快照，已关闭实体返回墓碑记录
func (r *Registry) Get(h types.InstanceHandle) (View, error) {
	r.mu.RLock()
	e, ok := r.entities[h]
	var v View
	if ok {
		v = e.view()
	}
	r.mu.RUnlock()

	if !ok {
		if tomb, found := r.tombstones.Get(h); found {
			return tomb, nil
		}
		return View{}, fmt.Errorf("%w: entity %s", types.ErrNotFound, h)
	}
	v.Qos, _ = r.qos.Get(h)
	return v, nil
}

// ChildrenOf 返回按句柄排序的子实体
func (r *Registry) ChildrenOf(h types.InstanceHandle) ([]types.InstanceHandle, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entities[h]
	if !ok {
		if r.tombstones.Contains(h) {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: entity %s", types.ErrNotFound, h)
	}
	return e.view().Children, nil
}

// Contains 检查 h 是否为 root 或其后代
func (r *Registry) Contains(root, h types.InstanceHandle) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for cur := h; !cur.IsNil(); {
		if cur == root {
			return true
		}
		e, ok := r.entities[cur]
		if !ok {
			return false
		}
		cur = e.parent
	}
	return false
}

// Find 在 parent 的子实体中按类型和名称查找
//
// parent 为 HandleNil 时在所有参与者中查找。
func (r *Registry) Find(parent types.InstanceHandle, kind types.EntityKind, name string) (types.InstanceHandle, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	best := types.HandleNil
	for h, e := range r.entities {
		if e.parent != parent || e.kind != kind || e.name != name || !e.usable() {
			continue
		}
		if best.IsNil() || h < best {
			best = h
		}
	}
	if best.IsNil() {
		return types.HandleNil, fmt.Errorf("%w: %s %q under %s", types.ErrNotFound, kind, name, parent)
	}
	return best, nil
}

// FindAll 返回 parent 下某类型的所有未关闭子实体，按句柄排序
func (r *Registry) FindAll(parent types.InstanceHandle, kind types.EntityKind) []types.InstanceHandle {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []types.InstanceHandle
	for h, e := range r.entities {
		if e.parent == parent && e.kind == kind && e.usable() {
			out = append(out, h)
		}
	}
	slices.Sort(out)
	return out
}

// Endpoints 返回参与者下引用某主题的所有端点
func (r *Registry) Endpoints(topic types.InstanceHandle) []types.InstanceHandle {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []types.InstanceHandle
	for h, e := range r.entities {
		if e.topic == topic && e.kind.IsEndpoint() && e.usable() {
			out = append(out, h)
		}
	}
	slices.Sort(out)
	return out
}

// Len 返回存活实体数量
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entities)
}

// ============================================================================
//                              监听器与状态标志
// ============================================================================

// SetListener 绑定监听器和掩码，listener 为 nil 时解除绑定
func (r *Registry) SetListener(h types.InstanceHandle, l Listener, mask types.StatusKind) error {
	unlock := r.locks.Lock(h)
	defer unlock()

	r.mu.Lock()
	defer r.mu.Unlock()
	e, err := r.usableLocked(h)
	if err != nil {
		return err
	}
	if l == nil {
		mask = types.StatusNone
	}
	e.listener = l
	e.listenerMask = mask
	return nil
}

// Listener 返回绑定的监听器和掩码
func (r *Registry) Listener(h types.InstanceHandle) (Listener, types.StatusKind, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, err := r.usableLocked(h)
	if err != nil {
		return nil, types.StatusNone, err
	}
	return e.listener, e.listenerMask, nil
}

// MarkStatus 置位状态变化标志
func (r *Registry) MarkStatus(h types.InstanceHandle, mask types.StatusKind) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, err := r.usableLocked(h)
	if err != nil {
		return err
	}
	e.statusChanges |= mask
	return nil
}

// ClearStatus 清除状态变化标志
func (r *Registry) ClearStatus(h types.InstanceHandle, mask types.StatusKind) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, err := r.usableLocked(h)
	if err != nil {
		return err
	}
	e.statusChanges &^= mask
	return nil
}

// StatusChanges 返回状态变化标志
func (r *Registry) StatusChanges(h types.InstanceHandle) (types.StatusKind, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, err := r.usableLocked(h)
	if err != nil {
		return types.StatusNone, err
	}
	return e.statusChanges, nil
}

// ============================================================================
//                              QoS
// ============================================================================

// SetQos 修改实体 QoS，在句柄锁下执行，返回修改前的集合
func (r *Registry) SetQos(h types.InstanceHandle, set qos.Set) (qos.Set, error) {
	unlock := r.locks.Lock(h)
	defer unlock()
	if err := r.Check(h); err != nil {
		return qos.Set{}, err
	}
	return r.qos.Set(h, set)
}

// UpdateQos 在句柄锁下读取当前 QoS，把 fn 的结果写回，返回修改前的集合
//
// 并发的 UpdateQos 串行执行，互不覆盖对方的修改。
func (r *Registry) UpdateQos(h types.InstanceHandle, fn func(cur qos.Set) qos.Set) (qos.Set, error) {
	unlock := r.locks.Lock(h)
	defer unlock()
	if err := r.Check(h); err != nil {
		return qos.Set{}, err
	}
	cur, err := r.qos.Get(h)
	if err != nil {
		return qos.Set{}, err
	}
	return r.qos.Set(h, fn(cur))
}

// GetQos 返回实体 QoS
func (r *Registry) GetQos(h types.InstanceHandle) (qos.Set, error) {
	if err := r.Check(h); err != nil {
		return qos.Set{}, err
	}
	return r.qos.Get(h)
}
