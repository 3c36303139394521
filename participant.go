package dds

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/multierr"

	"github.com/dep2p/go-dds/internal/core/discovery"
	"github.com/dep2p/go-dds/internal/core/matching"
	"github.com/dep2p/go-dds/internal/core/registry"
	pkgif "github.com/dep2p/go-dds/pkg/interfaces"
	"github.com/dep2p/go-dds/pkg/qos"
	"github.com/dep2p/go-dds/pkg/types"
)

// ============================================================================
//                              DomainParticipant
// ============================================================================

// DomainParticipant 域参与者
//
// 参与者拥有自己的发现缓存、匹配引擎和传输会话。本参与者的主题、写端和读端
// 启用后写入发现缓存并向域内通告；远端通告经传输会话进入发现缓存。
type DomainParticipant struct {
	*participantState
	scope bool
}

// readerPort 本地读端的数据入口
type readerPort interface {
	deliver(pub types.InstanceHandle, msg types.DataMessage)
	writerLost(pub types.InstanceHandle)
}

// writerPort 本地写端的历史出口
type writerPort interface {
	// history 返回 TRANSIENT_LOCAL 及以上写端保留的历史，VOLATILE 写端返回 nil
	history() []types.DataMessage
	durabilityKind() qos.DurabilityKind
}

type participantState struct {
	entity
	domainID uint32

	cache     *discovery.Cache
	engine    *matching.Engine
	session   pkgif.TransportSession
	leases    *discovery.LeaseChecker
	announcer *discovery.Announcer

	mu          sync.RWMutex
	readers     map[types.InstanceHandle]readerPort
	readerGUIDs map[types.GUID]types.InstanceHandle
	writers     map[types.InstanceHandle]writerPort
	// pending 正在通告的写端，通告完成前的匹配回放暂存于此
	pending map[types.InstanceHandle][]matching.Record
	// internal 内置实体，不写入发现缓存也不通告
	internal     map[types.InstanceHandle]struct{}
	typeSupports map[string]any
	builtin      *BuiltinSubscriber
	builtinMu    sync.Mutex
	closed       bool
}

func (p *DomainParticipant) scoped() any {
	return &DomainParticipant{participantState: p.participantState, scope: true}
}

// Close 关闭参与者及其全部子实体
func (p *DomainParticipant) Close() error {
	return p.f.closeEntity(p.handle, p.scope)
}

// newParticipant 创建参与者，接入传输但不启用
func newParticipant(f *Factory, domainID uint32, set qos.Set, o *entityOptions) (p *DomainParticipant, err error) {
	h, err := f.reg.Create(types.KindParticipant, types.HandleNil, set,
		registry.WithDomainID(domainID),
		registry.WithGUIDPrefix(o.prefix),
		registry.WithAutoEnable(false),
	)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err != nil {
			_ = f.reg.Close(h)
		}
	}()

	base, err := newEntity(f, h)
	if err != nil {
		return nil, err
	}
	st := &participantState{
		entity:       base,
		domainID:     domainID,
		readers:      make(map[types.InstanceHandle]readerPort),
		readerGUIDs:  make(map[types.GUID]types.InstanceHandle),
		writers:      make(map[types.InstanceHandle]writerPort),
		pending:      make(map[types.InstanceHandle][]matching.Record),
		internal:     make(map[types.InstanceHandle]struct{}),
		typeSupports: make(map[string]any),
	}
	p = &DomainParticipant{participantState: st}

	if err = f.track(h, p, st.finalize); err != nil {
		return nil, err
	}
	if st.cache, err = f.discoveries.NewCache(h, domainID); err != nil {
		return nil, err
	}
	if st.engine, err = f.matchers.NewEngine(st.cache); err != nil {
		return nil, err
	}
	st.engine.AddConnector(st)
	f.reg.AddObserver(st)

	if o.listener != nil {
		if err = f.bindListener(h, o.listener, o.mask); err != nil {
			return nil, err
		}
	}

	if st.session, err = f.transport.Attach(domainID, base.guid.Prefix, st); err != nil {
		return nil, fmt.Errorf("attach participant to domain %d: %w", domainID, err)
	}
	st.leases = discovery.NewLeaseChecker(st.cache)
	st.leases.Start()

	log.Info("participant created", "handle", h, "domain", domainID, "guid", base.guid)
	return p, nil
}

// finalize 参与者关闭后的清理，所有子实体已经关闭
func (p *participantState) finalize() {
	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()

	if p.announcer != nil {
		p.announcer.Stop()
	}
	if p.leases != nil {
		p.leases.Stop()
	}
	p.f.reg.RemoveObserver(p)

	var errs error
	if p.session != nil {
		errs = multierr.Append(errs, p.session.Close())
	}
	if p.engine != nil {
		errs = multierr.Append(errs, p.engine.Close())
	}
	if p.cache != nil {
		errs = multierr.Append(errs, p.cache.Close())
	}
	if errs != nil {
		log.Debug("participant cleanup", "handle", p.handle, "err", errs)
	}
	p.f.forgetParticipant(p.handle)
	log.Info("participant closed", "handle", p.handle, "domain", p.domainID)
}

// Factory 返回所属工厂
func (p *participantState) Factory() *Factory {
	return p.f
}

// DomainID 返回域编号
func (p *participantState) DomainID() uint32 {
	return p.domainID
}

// CurrentTime 返回参与者时钟的当前时间
func (p *participantState) CurrentTime() time.Time {
	return p.f.clock.Now()
}

// ContainsEntity 句柄是否属于本参与者（含间接子实体）
func (p *participantState) ContainsEntity(h InstanceHandle) bool {
	return p.f.reg.Contains(p.handle, h)
}

// SetQos 修改参与者 QoS，变化随下一次通告发出
func (p *participantState) SetQos(set QosSet) error {
	if err := p.mergeQos(set); err != nil {
		return err
	}
	p.refresh(p.handle)
	return nil
}

// DefaultQos 返回本参与者下某类实体的默认 QoS
func (p *participantState) DefaultQos(kind EntityKind) QosSet {
	return p.f.reg.Qos().Default(p.handle, kind)
}

// SetDefaultQos 设置本参与者下某类实体的默认 QoS
func (p *participantState) SetDefaultQos(kind EntityKind, set QosSet) error {
	if kind == types.KindParticipant {
		return fmt.Errorf("%w: participant defaults belong to the factory", types.ErrBadParameter)
	}
	return p.f.reg.Qos().SetDefault(p.handle, kind, set)
}

// ResetDefaultQos 恢复某类实体的内置默认 QoS
func (p *participantState) ResetDefaultQos(kind EntityKind) {
	p.f.reg.Qos().ResetDefault(p.handle, kind)
}

// AssertLiveliness 立即重新通告参与者，刷新远端租约
func (p *participantState) AssertLiveliness() error {
	if err := p.f.reg.Check(p.handle); err != nil {
		return err
	}
	if !p.IsEnabled() {
		return fmt.Errorf("%w: participant %s", types.ErrNotEnabled, p.handle)
	}
	p.announceSelf()
	return nil
}

// DeleteContainedEntities 关闭参与者下的全部实体，参与者本身保留
func (p *participantState) DeleteContainedEntities() error {
	children, err := p.f.reg.ChildrenOf(p.handle)
	if err != nil {
		return err
	}
	var errs error
	for _, c := range children {
		if p.isInternal(c) {
			continue
		}
		errs = multierr.Append(errs, p.f.reg.Close(c))
	}
	return errs
}

// ============================================================================
//                              类型注册
// ============================================================================

// RegisterType 在参与者上登记数据类型，类型名取 ts.Name
//
// 同名类型重复登记时要求类型参数一致。
func RegisterType[T any](p *DomainParticipant, ts TypeSupport[T]) error {
	if ts.Name == "" {
		return fmt.Errorf("%w: empty type name", types.ErrBadParameter)
	}
	if err := p.f.reg.Check(p.handle); err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if cur, ok := p.typeSupports[ts.Name]; ok {
		if _, same := cur.(TypeSupport[T]); !same {
			return fmt.Errorf("%w: type %q registered with a different Go type", types.ErrPreconditionNotMet, ts.Name)
		}
	}
	p.typeSupports[ts.Name] = ts
	return nil
}

// IsTypeRegistered 类型是否已登记
func (p *participantState) IsTypeRegistered(name string) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	_, ok := p.typeSupports[name]
	return ok
}

// UnregisterType 注销类型，仍有主题使用该类型时失败
func (p *participantState) UnregisterType(name string) error {
	for _, h := range p.f.reg.FindAll(p.handle, types.KindTopic) {
		if v, err := p.f.reg.Get(h); err == nil && v.TypeName == name {
			return fmt.Errorf("%w: type %q in use by topic %q", types.ErrPreconditionNotMet, name, v.Name)
		}
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.typeSupports[name]; !ok {
		return fmt.Errorf("%w: type %q", types.ErrNotFound, name)
	}
	delete(p.typeSupports, name)
	return nil
}

// typeSupportFor 取出类型 T 的登记信息
func typeSupportFor[T any](p *participantState, name string) (TypeSupport[T], error) {
	p.mu.RLock()
	cur, ok := p.typeSupports[name]
	p.mu.RUnlock()
	if !ok {
		return TypeSupport[T]{}, fmt.Errorf("%w: type %q not registered", types.ErrPreconditionNotMet, name)
	}
	ts, ok := cur.(TypeSupport[T])
	if !ok {
		return TypeSupport[T]{}, fmt.Errorf("%w: type %q registered with a different Go type", types.ErrBadParameter, name)
	}
	return ts, nil
}

// ============================================================================
//                              子实体
// ============================================================================

// Publishers 返回参与者下的发布者
func (p *participantState) Publishers() []*Publisher {
	return collect[*Publisher](p, types.KindPublisher)
}

// Subscribers 返回参与者下的订阅者（不含内置订阅者）
func (p *participantState) Subscribers() []*Subscriber {
	return collect[*Subscriber](p, types.KindSubscriber)
}

// Topics 返回参与者下的主题（不含内置主题）
func (p *participantState) Topics() []*Topic {
	return collect[*Topic](p, types.KindTopic)
}

// FindTopic 按名称查找本地主题
func (p *participantState) FindTopic(name string) (*Topic, error) {
	h, err := p.f.reg.Find(p.handle, types.KindTopic, name)
	if err != nil {
		return nil, err
	}
	if p.isInternal(h) {
		return nil, fmt.Errorf("%w: topic %q", types.ErrNotFound, name)
	}
	t, ok := lookupEntity[*Topic](p.f, h)
	if !ok {
		return nil, fmt.Errorf("%w: topic %q", types.ErrNotFound, name)
	}
	return t, nil
}

func collect[E any](p *participantState, kind types.EntityKind) []E {
	handles := p.f.reg.FindAll(p.handle, kind)
	out := make([]E, 0, len(handles))
	for _, h := range handles {
		if p.isInternal(h) {
			continue
		}
		if e, ok := lookupEntity[E](p.f, h); ok {
			out = append(out, e)
		}
	}
	return out
}

func lookupEntity[E any](f *Factory, h types.InstanceHandle) (E, bool) {
	var zero E
	v, ok := f.entities.Load(h)
	if !ok {
		return zero, false
	}
	e, ok := v.(E)
	return e, ok
}

func (p *participantState) isInternal(h types.InstanceHandle) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	_, ok := p.internal[h]
	return ok
}

func (p *participantState) markInternal(h types.InstanceHandle) {
	p.mu.Lock()
	p.internal[h] = struct{}{}
	p.mu.Unlock()
}

// ============================================================================
//                              忽略与已发现实体
// ============================================================================

func (p *participantState) ignore(h InstanceHandle, kind types.BuiltinKind) error {
	rec, ok := p.cache.Lookup(h)
	if !ok {
		rec, ok = p.cache.History(h)
	}
	if !ok {
		return fmt.Errorf("%w: discovered entity %s", types.ErrNotFound, h)
	}
	if rec.Kind != kind {
		return fmt.Errorf("%w: %s is a %s, not a %s", types.ErrBadParameter, h, rec.Kind, kind)
	}
	return p.cache.Ignore(h)
}

// IgnoreParticipant 忽略远端参与者及其全部实体
func (p *participantState) IgnoreParticipant(h InstanceHandle) error {
	return p.ignore(h, types.BuiltinParticipant)
}

// IgnoreTopic 忽略远端主题
func (p *participantState) IgnoreTopic(h InstanceHandle) error {
	return p.ignore(h, types.BuiltinTopic)
}

// IgnorePublication 忽略远端写端
func (p *participantState) IgnorePublication(h InstanceHandle) error {
	return p.ignore(h, types.BuiltinPublication)
}

// IgnoreSubscription 忽略远端读端
func (p *participantState) IgnoreSubscription(h InstanceHandle) error {
	return p.ignore(h, types.BuiltinSubscription)
}

func remoteHandles(recs []types.EntityRecord) []InstanceHandle {
	out := make([]InstanceHandle, 0, len(recs))
	for _, r := range recs {
		if r.Origin == types.OriginRemote {
			out = append(out, r.Handle)
		}
	}
	return out
}

func (p *participantState) discovered(h InstanceHandle, kind types.BuiltinKind) (types.EntityRecord, error) {
	rec, ok := p.cache.Lookup(h)
	if !ok || rec.Origin != types.OriginRemote {
		return types.EntityRecord{}, fmt.Errorf("%w: discovered entity %s", types.ErrNotFound, h)
	}
	if rec.Kind != kind {
		return types.EntityRecord{}, fmt.Errorf("%w: %s is a %s, not a %s", types.ErrBadParameter, h, rec.Kind, kind)
	}
	return rec, nil
}

// DiscoveredParticipants 返回已发现的远端参与者句柄
func (p *participantState) DiscoveredParticipants() []InstanceHandle {
	return remoteHandles(p.cache.Participants())
}

// DiscoveredParticipantData 返回远端参与者的内置主题数据
func (p *participantState) DiscoveredParticipantData(h InstanceHandle) (ParticipantBuiltinTopicData, error) {
	rec, err := p.discovered(h, types.BuiltinParticipant)
	if err != nil {
		return ParticipantBuiltinTopicData{}, err
	}
	return participantData(rec), nil
}

// DiscoveredTopics 返回已发现的远端主题句柄
func (p *participantState) DiscoveredTopics() []InstanceHandle {
	return remoteHandles(p.cache.Topics())
}

// DiscoveredTopicData 返回远端主题的内置主题数据
func (p *participantState) DiscoveredTopicData(h InstanceHandle) (TopicBuiltinTopicData, error) {
	rec, err := p.discovered(h, types.BuiltinTopic)
	if err != nil {
		return TopicBuiltinTopicData{}, err
	}
	return topicData(rec), nil
}

// DiscoveredPublications 返回已发现的远端写端句柄
func (p *participantState) DiscoveredPublications() []InstanceHandle {
	return remoteHandles(p.cache.Publications())
}

// DiscoveredPublicationData 返回远端写端的内置主题数据
func (p *participantState) DiscoveredPublicationData(h InstanceHandle) (PublicationBuiltinTopicData, error) {
	rec, err := p.discovered(h, types.BuiltinPublication)
	if err != nil {
		return PublicationBuiltinTopicData{}, err
	}
	return publicationData(rec), nil
}

// DiscoveredSubscriptions 返回已发现的远端读端句柄
func (p *participantState) DiscoveredSubscriptions() []InstanceHandle {
	return remoteHandles(p.cache.Subscriptions())
}

// DiscoveredSubscriptionData 返回远端读端的内置主题数据
func (p *participantState) DiscoveredSubscriptionData(h InstanceHandle) (SubscriptionBuiltinTopicData, error) {
	rec, err := p.discovered(h, types.BuiltinSubscription)
	if err != nil {
		return SubscriptionBuiltinTopicData{}, err
	}
	return subscriptionData(rec), nil
}

// ============================================================================
//                              通告（registry.LifecycleObserver）
// ============================================================================

// OnEntityEnabled 本参与者的实体启用后写入发现缓存并通告
func (p *participantState) OnEntityEnabled(v registry.View) {
	if v.Participant != p.handle || p.isInternal(v.Handle) {
		return
	}
	if v.Kind == types.KindParticipant {
		p.publish(v, false)
		p.announcer = discovery.NewAnnouncer(p.f.clock, p.cache.Config().AnnouncePeriod, p.announceSelf)
		p.announcer.Start()
		return
	}
	p.publish(v, false)
}

// OnEntityClosed 本参与者的实体关闭后撤回
func (p *participantState) OnEntityClosed(v registry.View) {
	if v.Participant != p.handle || v.Kind == types.KindParticipant {
		return
	}
	if p.isInternal(v.Handle) {
		p.mu.Lock()
		delete(p.internal, v.Handle)
		p.mu.Unlock()
		return
	}
	if v.State != registry.StateEnabled || types.BuiltinKindOf(v.Kind) == types.BuiltinUnknown {
		return
	}
	p.cache.RemoveLocal(v.Handle)
	if err := p.session.Withdraw(v.GUID); err != nil {
		log.Debug("withdraw failed", "handle", v.Handle, "err", err)
	}
}

// localRecord 由实体快照生成发现记录；发布者和订阅者不单独通告
//
// 端点记录携带所属发布者或订阅者的 Partition、Presentation 和 GroupData。
func (p *participantState) localRecord(v registry.View) (types.EntityRecord, bool) {
	rec := types.EntityRecord{
		Handle:   v.Handle,
		GUID:     v.GUID,
		Kind:     types.BuiltinKindOf(v.Kind),
		Qos:      v.Qos,
		DomainID: p.domainID,
	}
	switch v.Kind {
	case types.KindParticipant:
		rec.LeaseDuration = p.cache.Config().LeaseDuration
	case types.KindTopic:
		rec.TopicName = v.Name
		rec.TypeName = v.TypeName
	case types.KindDataWriter, types.KindDataReader:
		rec.TopicName = v.Name
		rec.TypeName = v.TypeName
		if group, err := p.f.reg.GetQos(v.Parent); err == nil {
			rec.Qos = v.Qos.With(group.Partition(), group.Presentation(), group.GroupData())
		}
	default:
		return rec, false
	}
	return rec, true
}

// publish 写入（或更新）发现缓存并向域内通告
//
// 写端在通告完成前建立的匹配暂不回放历史，远端要先收到写端记录才会接受样本。
func (p *participantState) publish(v registry.View, update bool) {
	rec, ok := p.localRecord(v)
	if !ok {
		return
	}
	isWriter := v.Kind == types.KindDataWriter
	if isWriter {
		p.mu.Lock()
		p.pending[v.Handle] = nil
		p.mu.Unlock()
	}

	var err error
	if update {
		err = p.cache.UpdateLocal(rec)
	} else {
		err = p.cache.AddLocal(rec)
	}
	if err != nil {
		log.Warn("local record rejected", "handle", v.Handle, "kind", v.Kind, "err", err)
	}
	if err := p.session.Announce(rec); err != nil {
		log.Debug("announce failed", "handle", v.Handle, "err", err)
	}

	if isWriter {
		p.mu.Lock()
		queued := p.pending[v.Handle]
		delete(p.pending, v.Handle)
		w := p.writers[v.Handle]
		p.mu.Unlock()
		for _, m := range queued {
			p.replay(w, m)
		}
	}
}

// refresh 实体 QoS 变化后更新发现记录并重新通告
func (p *participantState) refresh(h types.InstanceHandle) {
	v, err := p.f.reg.Get(h)
	if err != nil || v.State != registry.StateEnabled {
		return
	}
	if v.Kind == types.KindParticipant {
		p.announceSelf()
		return
	}
	p.publish(v, true)
}

// refreshGroup 发布者或订阅者 QoS 变化后刷新其下全部端点
func (p *participantState) refreshGroup(group types.InstanceHandle) {
	children, err := p.f.reg.ChildrenOf(group)
	if err != nil {
		return
	}
	for _, c := range children {
		p.refresh(c)
	}
}

// announceSelf 重新通告参与者记录
func (p *participantState) announceSelf() {
	v, err := p.f.reg.Get(p.handle)
	if err != nil || v.State != registry.StateEnabled {
		return
	}
	rec, _ := p.localRecord(v)
	if err := p.cache.UpdateLocal(rec); err != nil {
		log.Debug("participant record update failed", "err", err)
	}
	if err := p.session.Announce(rec); err != nil {
		log.Debug("participant announce failed", "err", err)
	}
}

// ============================================================================
//                              传输回调（pkgif.TransportSink）
// ============================================================================

// OnAnnounce 远端通告进入发现缓存
func (p *participantState) OnAnnounce(rec types.EntityRecord) {
	if _, err := p.cache.OnAnnounce(rec); err != nil && !errors.Is(err, types.ErrIgnored) {
		log.Debug("announcement dropped", "guid", rec.GUID, "err", err)
	}
}

// OnWithdraw 远端撤回
func (p *participantState) OnWithdraw(g types.GUID) {
	if err := p.cache.OnWithdraw(g); err != nil && !errors.Is(err, types.ErrNotFound) {
		log.Debug("withdraw dropped", "guid", g, "err", err)
	}
}

// OnSample 远端写端发往本地读端的样本
//
// 只接受发现缓存中已知且与读端匹配的写端。
func (p *participantState) OnSample(reader types.GUID, msg types.DataMessage) {
	p.mu.RLock()
	rh, ok := p.readerGUIDs[reader]
	port := p.readers[rh]
	p.mu.RUnlock()
	if !ok || port == nil {
		return
	}
	wrec, ok := p.cache.LookupGUID(msg.Writer)
	if !ok || !p.engine.IsMatched(wrec.Handle, rh) {
		log.Debug("sample from unmatched writer dropped", "reader", rh, "writer", msg.Writer)
		return
	}
	port.deliver(wrec.Handle, msg)
}

// ============================================================================
//                              数据通路（matching.Connector）
// ============================================================================

// OnMatched 本地写端向新匹配的读端回放历史
func (p *participantState) OnMatched(rec matching.Record) {
	p.mu.Lock()
	w, ok := p.writers[rec.Writer]
	if ok {
		if queued, announcing := p.pending[rec.Writer]; announcing {
			p.pending[rec.Writer] = append(queued, rec)
			p.mu.Unlock()
			return
		}
	}
	p.mu.Unlock()
	if ok {
		p.replay(w, rec)
	}
}

// OnUnmatched 本地读端失去写端
func (p *participantState) OnUnmatched(rec matching.Record) {
	p.mu.RLock()
	r, ok := p.readers[rec.Reader]
	p.mu.RUnlock()
	if ok {
		r.writerLost(rec.Writer)
	}
}

// replay 把写端历史发给一个读端
//
// 双方都是 TRANSIENT 及以上且读端在本工厂内时，读端已从持久性服务取得历史。
func (p *participantState) replay(w writerPort, rec matching.Record) {
	if w == nil {
		return
	}
	msgs := w.history()
	if len(msgs) == 0 {
		return
	}
	rrec, ok := p.cache.Lookup(rec.Reader)
	if !ok {
		return
	}
	rk := rrec.Qos.Durability().Kind
	if rk < qos.DurabilityTransientLocal {
		return
	}
	if rk >= qos.DurabilityTransient && w.durabilityKind() >= qos.DurabilityTransient && p.f.servesReader(rrec.GUID) {
		return
	}
	for _, m := range msgs {
		p.deliverTo(rrec, rec.Writer, m)
	}
}

// route 把写端的一次变更发给全部匹配的读端
func (p *participantState) route(writer types.InstanceHandle, msg types.DataMessage) {
	for _, rh := range p.engine.Matches(writer) {
		rrec, ok := p.cache.Lookup(rh)
		if !ok {
			continue
		}
		p.deliverTo(rrec, writer, msg)
	}
}

func (p *participantState) deliverTo(rrec types.EntityRecord, writer types.InstanceHandle, msg types.DataMessage) {
	if rrec.Origin == types.OriginLocal {
		p.mu.RLock()
		port := p.readers[rrec.Handle]
		p.mu.RUnlock()
		if port != nil {
			port.deliver(writer, msg)
		}
		return
	}
	if err := p.session.Deliver(rrec.GUID, msg); err != nil {
		log.Debug("deliver failed", "reader", rrec.GUID, "err", err)
	}
}

// ============================================================================
//                              端点登记
// ============================================================================

func (p *participantState) addReader(h types.InstanceHandle, g types.GUID, r readerPort) {
	p.mu.Lock()
	p.readers[h] = r
	p.readerGUIDs[g] = h
	p.mu.Unlock()
	p.f.readerGUIDs.Store(g, struct{}{})
}

func (p *participantState) removeReader(h types.InstanceHandle, g types.GUID) {
	p.mu.Lock()
	delete(p.readers, h)
	delete(p.readerGUIDs, g)
	p.mu.Unlock()
	p.f.readerGUIDs.Delete(g)
}

func (p *participantState) addWriter(h types.InstanceHandle, w writerPort) {
	p.mu.Lock()
	p.writers[h] = w
	p.mu.Unlock()
}

func (p *participantState) removeWriter(h types.InstanceHandle) {
	p.mu.Lock()
	delete(p.writers, h)
	delete(p.pending, h)
	p.mu.Unlock()
}

// servesReader 读端是否属于本工厂（可直接从持久性服务回放）
func (f *Factory) servesReader(g types.GUID) bool {
	_, ok := f.readerGUIDs.Load(g)
	return ok
}

var (
	_ registry.LifecycleObserver = (*participantState)(nil)
	_ pkgif.TransportSink        = (*participantState)(nil)
	_ matching.Connector         = (*participantState)(nil)
)
