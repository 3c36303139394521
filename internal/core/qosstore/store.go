package qosstore

import (
	"fmt"
	"sync"

	"github.com/dep2p/go-dds/internal/util/logger"
	pkgif "github.com/dep2p/go-dds/pkg/interfaces"
	"github.com/dep2p/go-dds/pkg/qos"
	"github.com/dep2p/go-dds/pkg/types"
)

var log = logger.Logger("qosstore")

// entry 单个实体的 QoS 记录
type entry struct {
	kind    types.EntityKind
	set     qos.Set
	enabled bool
}

type defaultKey struct {
	scope types.InstanceHandle
	kind  types.EntityKind
}

// Store 实体 QoS 存储，并发安全
type Store struct {
	mu       sync.RWMutex
	entries  map[types.InstanceHandle]*entry
	defaults map[defaultKey]qos.Set

	emitter pkgif.Emitter
}

// New 创建 QoS 存储，bus 为 nil 时不发射事件
func New(bus pkgif.EventBus) (*Store, error) {
	s := &Store{
		entries:  make(map[types.InstanceHandle]*entry),
		defaults: make(map[defaultKey]qos.Set),
	}
	if bus != nil {
		em, err := bus.Emitter(new(types.EvtQosChanged))
		if err != nil {
			return nil, fmt.Errorf("qos changed emitter: %w", err)
		}
		s.emitter = em
	}
	return s, nil
}

// Register 登记新实体的 QoS
func (s *Store) Register(h types.InstanceHandle, kind types.EntityKind, set qos.Set) error {
	if h.IsNil() || !kind.Valid() {
		return types.ErrBadParameter
	}
	if err := qos.Validate(set); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.entries[h]; ok {
		return fmt.Errorf("%w: handle %s already registered", types.ErrPreconditionNotMet, h)
	}
	s.entries[h] = &entry{kind: kind, set: set}
	return nil
}

// Enable 标记实体已启用，此后不可变策略不能再修改
func (s *Store) Enable(h types.InstanceHandle) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[h]
	if !ok {
		return fmt.Errorf("%w: qos of %s", types.ErrNotFound, h)
	}
	e.enabled = true
	return nil
}

// Remove 删除实体的 QoS 以及以它为作用域的默认值
func (s *Store) Remove(h types.InstanceHandle) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, h)
	for k := range s.defaults {
		if k.scope == h {
			delete(s.defaults, k)
		}
	}
}

// Get 返回实体当前的 QoS
func (s *Store) Get(h types.InstanceHandle) (qos.Set, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entries[h]
	if !ok {
		return qos.Set{}, fmt.Errorf("%w: qos of %s", types.ErrNotFound, h)
	}
	return e.set, nil
}

// Set 替换实体的 QoS，返回修改前的集合
func (s *Store) Set(h types.InstanceHandle, set qos.Set) (qos.Set, error) {
	if err := qos.Validate(set); err != nil {
		return qos.Set{}, err
	}

	s.mu.Lock()
	e, ok := s.entries[h]
	if !ok {
		s.mu.Unlock()
		return qos.Set{}, fmt.Errorf("%w: qos of %s", types.ErrNotFound, h)
	}
	old := e.set
	if e.enabled {
		if err := qos.CheckMutation(old, set); err != nil {
			s.mu.Unlock()
			return qos.Set{}, err
		}
	}
	e.set = set
	kind := e.kind
	s.mu.Unlock()

	changed := old.Diff(set)
	if len(changed) > 0 && s.emitter != nil {
		if err := s.emitter.Emit(types.EvtQosChanged{Handle: h, Kind: kind, Changed: changed}); err != nil {
			log.Debug("emit qos changed failed", "handle", h, "err", err)
		}
	}
	return old, nil
}

// ============================================================================
//                              默认 QoS
// ============================================================================

// KindDefault 返回实体类型的内置默认 QoS
func KindDefault(kind types.EntityKind) qos.Set {
	switch kind {
	case types.KindParticipant:
		return qos.DefaultParticipant()
	case types.KindPublisher:
		return qos.DefaultPublisher()
	case types.KindSubscriber:
		return qos.DefaultSubscriber()
	case types.KindTopic:
		return qos.DefaultTopic()
	case types.KindDataWriter:
		return qos.DefaultWriter()
	case types.KindDataReader:
		return qos.DefaultReader()
	default:
		return qos.Set{}
	}
}

// Default 返回作用域下某类实体的默认 QoS，未设置时返回内置默认值
func (s *Store) Default(scope types.InstanceHandle, kind types.EntityKind) qos.Set {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if set, ok := s.defaults[defaultKey{scope, kind}]; ok {
		return set
	}
	return KindDefault(kind)
}

// SetDefault 设置作用域下某类实体的默认 QoS
func (s *Store) SetDefault(scope types.InstanceHandle, kind types.EntityKind, set qos.Set) error {
	if !kind.Valid() {
		return types.ErrBadParameter
	}
	if err := qos.Validate(set); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.defaults[defaultKey{scope, kind}] = set
	return nil
}

// ResetDefault 恢复作用域下某类实体的内置默认 QoS
func (s *Store) ResetDefault(scope types.InstanceHandle, kind types.EntityKind) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.defaults, defaultKey{scope, kind})
}

// Len 返回登记的实体数量
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// Close 关闭事件发射器
func (s *Store) Close() error {
	if s.emitter != nil {
		return s.emitter.Close()
	}
	return nil
}
