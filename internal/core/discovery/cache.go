package discovery

import (
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/dep2p/go-dds/internal/util/logger"
	pkgif "github.com/dep2p/go-dds/pkg/interfaces"
	"github.com/dep2p/go-dds/pkg/types"
)

var log = logger.Logger("discovery")

// Observer 记录变化的观察者
type Observer interface {
	// OnRecordAnnounced 新记录出现，或已有记录的内容发生变化
	OnRecordAnnounced(rec types.EntityRecord)
	// OnRecordLost 记录丢失、被忽略或本地实体删除
	OnRecordLost(rec types.EntityRecord)
}

// Cache 单个参与者的发现缓存
type Cache struct {
	mu      sync.RWMutex
	records map[types.InstanceHandle]*types.EntityRecord
	byGUID  map[types.GUID]types.InstanceHandle
	history *lru.Cache[types.InstanceHandle, types.EntityRecord]
	ignored *lru.Cache[types.GUID, struct{}]

	participant types.InstanceHandle
	domainID    uint32
	handles     *types.HandleAllocator
	clock       clock.Clock
	cfg         Config

	obsMu     sync.RWMutex
	observers []Observer

	emAnnounced pkgif.Emitter
	emLost      pkgif.Emitter
	emIgnored   pkgif.Emitter
}

// Deps 发现缓存依赖
type Deps struct {
	// Participant 缓存所属的本地参与者
	Participant types.InstanceHandle
	DomainID    uint32
	Handles     *types.HandleAllocator
	Clock       clock.Clock
	Bus         pkgif.EventBus
}

// New 创建发现缓存
func New(d Deps, cfg Config) (*Cache, error) {
	if d.Handles == nil {
		return nil, fmt.Errorf("%w: discovery cache requires a handle allocator", types.ErrBadParameter)
	}
	if d.Clock == nil {
		d.Clock = clock.New()
	}
	def := DefaultConfig()
	if cfg.LeaseDuration <= 0 {
		cfg.LeaseDuration = def.LeaseDuration
	}
	if cfg.AnnouncePeriod <= 0 {
		cfg.AnnouncePeriod = def.AnnouncePeriod
	}
	if cfg.LeaseCheckInterval <= 0 {
		cfg.LeaseCheckInterval = def.LeaseCheckInterval
	}
	if cfg.MaxIgnored <= 0 {
		cfg.MaxIgnored = def.MaxIgnored
	}
	if cfg.LostHistory <= 0 {
		cfg.LostHistory = def.LostHistory
	}

	history, err := lru.New[types.InstanceHandle, types.EntityRecord](cfg.LostHistory)
	if err != nil {
		return nil, err
	}
	ignored, err := lru.New[types.GUID, struct{}](cfg.MaxIgnored)
	if err != nil {
		return nil, err
	}

	c := &Cache{
		records:     make(map[types.InstanceHandle]*types.EntityRecord),
		byGUID:      make(map[types.GUID]types.InstanceHandle),
		history:     history,
		ignored:     ignored,
		participant: d.Participant,
		domainID:    d.DomainID,
		handles:     d.Handles,
		clock:       d.Clock,
		cfg:         cfg,
	}
	if d.Bus != nil {
		if c.emAnnounced, err = d.Bus.Emitter(new(types.EvtRemoteAnnounced)); err != nil {
			return nil, err
		}
		if c.emLost, err = d.Bus.Emitter(new(types.EvtRemoteLost)); err != nil {
			return nil, err
		}
		if c.emIgnored, err = d.Bus.Emitter(new(types.EvtRemoteIgnored)); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// Config 返回缓存配置
func (c *Cache) Config() Config {
	return c.cfg
}

// Clock 返回缓存使用的时钟
func (c *Cache) Clock() clock.Clock {
	return c.clock
}

// Participant 返回缓存所属的参与者句柄
func (c *Cache) Participant() types.InstanceHandle {
	return c.participant
}

// AddObserver 注册观察者
func (c *Cache) AddObserver(o Observer) {
	c.obsMu.Lock()
	defer c.obsMu.Unlock()
	c.observers = append(c.observers, o)
}

func (c *Cache) snapshotObservers() []Observer {
	c.obsMu.RLock()
	defer c.obsMu.RUnlock()
	return append([]Observer(nil), c.observers...)
}

func (c *Cache) notifyAnnounced(rec types.EntityRecord) {
	for _, o := range c.snapshotObservers() {
		o.OnRecordAnnounced(rec)
	}
}

func (c *Cache) notifyLost(rec types.EntityRecord) {
	for _, o := range c.snapshotObservers() {
		o.OnRecordLost(rec)
	}
}

func emit(em pkgif.Emitter, ev any) {
	if em == nil {
		return
	}
	if err := em.Emit(ev); err != nil {
		log.Debug("emit discovery event failed", "err", err)
	}
}

// ============================================================================
//                              远端记录
// ============================================================================

// isIgnoredLocked 检查 GUID 或其参与者是否被忽略，调用方持有 c.mu
func (c *Cache) isIgnoredLocked(g types.GUID) bool {
	return c.ignored.Contains(g) || c.ignored.Contains(g.Participant())
}

// OnAnnounce 处理远端通告
//
// 未知 GUID 分配新句柄；已知 GUID 刷新最近通告时间，内容变化时通知观察者。
// 参与者的通告同时刷新其所有端点的租约。
func (c *Cache) OnAnnounce(rec types.EntityRecord) (types.InstanceHandle, error) {
	if rec.GUID.IsZero() || rec.Kind == types.BuiltinUnknown {
		return types.HandleNil, fmt.Errorf("%w: announcement without guid or kind", types.ErrBadParameter)
	}
	if rec.DomainID != c.domainID {
		return types.HandleNil, fmt.Errorf("%w: domain %d, cache serves domain %d", types.ErrBadParameter, rec.DomainID, c.domainID)
	}
	now := c.clock.Now()

	c.mu.Lock()
	if c.isIgnoredLocked(rec.GUID) {
		c.mu.Unlock()
		return types.HandleNil, types.ErrIgnored
	}

	if h, ok := c.byGUID[rec.GUID]; ok {
		cur := c.records[h]
		if cur.Origin == types.OriginLocal {
			c.mu.Unlock()
			return h, nil
		}
		changed := !cur.Equivalent(rec)
		cur.LastSeen = now
		if rec.Kind == types.BuiltinParticipant {
			c.refreshEndpointsLocked(rec.GUID, now)
		}
		if changed {
			cur.TopicName = rec.TopicName
			cur.TypeName = rec.TypeName
			cur.Qos = rec.Qos
			cur.LeaseDuration = rec.LeaseDuration
		}
		snapshot := *cur
		c.mu.Unlock()

		if changed {
			log.Debug("remote record changed", "handle", h, "guid", rec.GUID)
			c.notifyAnnounced(snapshot)
		}
		return h, nil
	}

	h := c.handles.Next()
	stored := rec
	stored.Handle = h
	stored.Participant = rec.GUID.Participant()
	stored.Origin = types.OriginRemote
	stored.LastSeen = now
	stored.State = types.RecordAnnounced
	c.records[h] = &stored
	c.byGUID[rec.GUID] = h
	c.mu.Unlock()

	log.Debug("remote record announced", "handle", h, "kind", rec.Kind, "guid", rec.GUID, "topic", rec.TopicName)
	emit(c.emAnnounced, types.EvtRemoteAnnounced{Participant: c.participant, Record: stored})
	c.notifyAnnounced(stored)
	return h, nil
}

func (c *Cache) refreshEndpointsLocked(participant types.GUID, now time.Time) {
	for _, r := range c.records {
		if r.Origin == types.OriginRemote && r.Participant == participant {
			r.LastSeen = now
		}
	}
}

// OnLost 把记录标记为丢失；参与者丢失时级联到其所有记录
func (c *Cache) OnLost(h types.InstanceHandle) error {
	lost, err := c.terminate(h, types.RecordLost)
	if err != nil {
		return err
	}
	for _, rec := range lost {
		log.Debug("remote record lost", "handle", rec.Handle, "kind", rec.Kind, "guid", rec.GUID)
		emit(c.emLost, types.EvtRemoteLost{Participant: c.participant, Record: rec})
		c.notifyLost(rec)
	}
	return nil
}

// OnWithdraw 处理远端显式撤回
func (c *Cache) OnWithdraw(g types.GUID) error {
	c.mu.RLock()
	h, ok := c.byGUID[g]
	c.mu.RUnlock()
	if !ok {
		return fmt.Errorf("%w: guid %s", types.ErrNotFound, g)
	}
	return c.OnLost(h)
}

// terminate 把记录及其下属记录移入历史，返回被终止的记录（下属在前）
func (c *Cache) terminate(h types.InstanceHandle, state types.RecordState) ([]types.EntityRecord, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	rec, ok := c.records[h]
	if !ok {
		if _, found := c.history.Get(h); found {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: record %s", types.ErrNotFound, h)
	}
	if rec.Origin == types.OriginLocal {
		return nil, fmt.Errorf("%w: record %s is local", types.ErrPreconditionNotMet, h)
	}

	var out []types.EntityRecord
	if rec.Kind == types.BuiltinParticipant {
		var owned []types.InstanceHandle
		for oh, r := range c.records {
			if oh != h && r.Origin == types.OriginRemote && r.Participant == rec.GUID {
				owned = append(owned, oh)
			}
		}
		slices.Sort(owned)
		for _, oh := range owned {
			out = append(out, c.removeLocked(oh, state))
		}
	}
	return append(out, c.removeLocked(h, state)), nil
}

func (c *Cache) removeLocked(h types.InstanceHandle, state types.RecordState) types.EntityRecord {
	rec := c.records[h]
	delete(c.records, h)
	delete(c.byGUID, rec.GUID)
	rec.State = state
	c.history.Add(h, *rec)
	return *rec
}

// Ignore 忽略一个远端记录，此后该 GUID（参与者则包括其所有实体）的通告被丢弃
func (c *Cache) Ignore(h types.InstanceHandle) error {
	c.mu.Lock()
	var g types.GUID
	if rec, ok := c.records[h]; ok {
		if rec.Origin == types.OriginLocal {
			c.mu.Unlock()
			return fmt.Errorf("%w: cannot ignore local entity %s", types.ErrPreconditionNotMet, h)
		}
		g = rec.GUID
	} else if past, ok := c.history.Peek(h); ok {
		g = past.GUID
	} else {
		c.mu.Unlock()
		return fmt.Errorf("%w: record %s", types.ErrNotFound, h)
	}

	if !c.ignored.Contains(g) {
		if c.ignored.Len() >= c.cfg.MaxIgnored && !c.cfg.IgnoreReplacement {
			c.mu.Unlock()
			return fmt.Errorf("%w: ignore list holds %d entries", types.ErrResourceLimitExceeded, c.cfg.MaxIgnored)
		}
		c.ignored.Add(g, struct{}{})
	}
	_, live := c.records[h]
	c.mu.Unlock()

	if !live {
		return nil
	}
	ignored, err := c.terminate(h, types.RecordIgnored)
	if err != nil {
		return err
	}
	for _, rec := range ignored {
		log.Debug("remote record ignored", "handle", rec.Handle, "guid", rec.GUID)
		emit(c.emIgnored, types.EvtRemoteIgnored{Participant: c.participant, Record: rec})
		c.notifyLost(rec)
	}
	return nil
}

// IsIgnored 检查 GUID 是否被忽略
func (c *Cache) IsIgnored(g types.GUID) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.isIgnoredLocked(g)
}

// ============================================================================
//                              本地记录
// ============================================================================

// AddLocal 登记本地实体，rec.Handle 为注册表句柄
func (c *Cache) AddLocal(rec types.EntityRecord) error {
	if rec.Handle.IsNil() || rec.GUID.IsZero() {
		return fmt.Errorf("%w: local record without handle or guid", types.ErrBadParameter)
	}
	rec.Origin = types.OriginLocal
	rec.State = types.RecordAnnounced
	rec.Participant = rec.GUID.Participant()
	rec.DomainID = c.domainID
	rec.LastSeen = c.clock.Now()

	c.mu.Lock()
	c.records[rec.Handle] = &rec
	c.byGUID[rec.GUID] = rec.Handle
	c.mu.Unlock()

	c.notifyAnnounced(rec)
	return nil
}

// UpdateLocal 本地实体 QoS 变化后更新记录并通知观察者
func (c *Cache) UpdateLocal(rec types.EntityRecord) error {
	c.mu.Lock()
	cur, ok := c.records[rec.Handle]
	if !ok || cur.Origin != types.OriginLocal {
		c.mu.Unlock()
		return fmt.Errorf("%w: local record %s", types.ErrNotFound, rec.Handle)
	}
	cur.Qos = rec.Qos
	cur.LastSeen = c.clock.Now()
	snapshot := *cur
	c.mu.Unlock()

	c.notifyAnnounced(snapshot)
	return nil
}

// RemoveLocal 删除本地实体记录
func (c *Cache) RemoveLocal(h types.InstanceHandle) {
	c.mu.Lock()
	rec, ok := c.records[h]
	if !ok || rec.Origin != types.OriginLocal {
		c.mu.Unlock()
		return
	}
	removed := c.removeLocked(h, types.RecordLost)
	c.mu.Unlock()

	c.notifyLost(removed)
}

// ============================================================================
//                              租约
// ============================================================================

func (c *Cache) leaseOf(r *types.EntityRecord) time.Duration {
	if r.LeaseDuration > 0 {
		return r.LeaseDuration
	}
	return c.cfg.LeaseDuration
}

// CheckLeases 使过期的远端记录丢失，返回丢失的句柄
func (c *Cache) CheckLeases() []types.InstanceHandle {
	now := c.clock.Now()

	c.mu.RLock()
	var expired []types.InstanceHandle
	for h, r := range c.records {
		if r.Origin != types.OriginRemote {
			continue
		}
		lease := c.leaseOf(r)
		if r.Kind != types.BuiltinParticipant {
			// 端点跟随所属参与者的租约
			if ph, ok := c.byGUID[r.Participant]; ok {
				lease = c.leaseOf(c.records[ph])
			}
		}
		if now.Sub(r.LastSeen) > lease {
			expired = append(expired, h)
		}
	}
	c.mu.RUnlock()
	slices.Sort(expired)

	var lost []types.InstanceHandle
	for _, h := range expired {
		// 参与者丢失时其端点已被级联
		if c.State(h) != types.RecordAnnounced {
			continue
		}
		if err := c.OnLost(h); err == nil {
			lost = append(lost, h)
		}
	}
	if len(lost) > 0 {
		log.Info("remote leases expired", "participant", c.participant, "count", len(lost))
	}
	return lost
}

// ============================================================================
//                              查询
// ============================================================================

// Lookup 按句柄查询存活记录
func (c *Cache) Lookup(h types.InstanceHandle) (types.EntityRecord, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if r, ok := c.records[h]; ok {
		return *r, true
	}
	return types.EntityRecord{}, false
}

// LookupGUID 按 GUID 查询存活记录
func (c *Cache) LookupGUID(g types.GUID) (types.EntityRecord, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if h, ok := c.byGUID[g]; ok {
		return *c.records[h], true
	}
	return types.EntityRecord{}, false
}

// State 返回记录状态，最近丢失或忽略的句柄仍可查询
func (c *Cache) State(h types.InstanceHandle) types.RecordState {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if r, ok := c.records[h]; ok {
		return r.State
	}
	if r, ok := c.history.Peek(h); ok {
		return r.State
	}
	return types.RecordUnknown
}

// History 返回最近丢失或忽略的记录
func (c *Cache) History(h types.InstanceHandle) (types.EntityRecord, bool) {
	return c.history.Peek(h)
}

func (c *Cache) query(match func(r *types.EntityRecord) bool) []types.EntityRecord {
	c.mu.RLock()
	var out []types.EntityRecord
	for _, r := range c.records {
		if match(r) {
			out = append(out, *r)
		}
	}
	c.mu.RUnlock()
	slices.SortFunc(out, func(a, b types.EntityRecord) int {
		switch {
		case a.Handle < b.Handle:
			return -1
		case a.Handle > b.Handle:
			return 1
		default:
			return 0
		}
	})
	return out
}

func ofKind(k types.BuiltinKind) func(r *types.EntityRecord) bool {
	return func(r *types.EntityRecord) bool { return r.Kind == k }
}

// Participants 返回所有参与者记录
func (c *Cache) Participants() []types.EntityRecord {
	return c.query(ofKind(types.BuiltinParticipant))
}

// Topics 返回所有主题记录
func (c *Cache) Topics() []types.EntityRecord {
	return c.query(ofKind(types.BuiltinTopic))
}

// Publications 返回所有写端记录
func (c *Cache) Publications() []types.EntityRecord {
	return c.query(ofKind(types.BuiltinPublication))
}

// Subscriptions 返回所有读端记录
func (c *Cache) Subscriptions() []types.EntityRecord {
	return c.query(ofKind(types.BuiltinSubscription))
}

// Candidates 返回某主题上某种端点的记录
func (c *Cache) Candidates(topic string, kind types.BuiltinKind) []types.EntityRecord {
	return c.query(func(r *types.EntityRecord) bool {
		return r.Kind == kind && r.TopicName == topic
	})
}

// Local 返回本地记录
func (c *Cache) Local() []types.EntityRecord {
	return c.query(func(r *types.EntityRecord) bool { return r.Origin == types.OriginLocal })
}

// Len 返回存活记录数量
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.records)
}

// Close 关闭事件发射器
func (c *Cache) Close() error {
	for _, em := range []pkgif.Emitter{c.emAnnounced, c.emLost, c.emIgnored} {
		if em != nil {
			_ = em.Close()
		}
	}
	return nil
}
