// Package loopback 实现进程内的域集线器传输
//
// 同一 Hub 上接入同一域的参与者互相可见：Announce 广播给域内其他参与者，
// Withdraw 广播撤回，Deliver 按读端 GUID 前缀交给所属参与者。
// 新接入的参与者会收到域内已有的全部通告；会话关闭时其记录被撤回。
//
// 回调在调用方 goroutine 上同步执行，执行时不持有集线器锁。
package loopback

import (
	"bytes"
	"errors"
	"fmt"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/dep2p/go-dds/internal/util/logger"
	pkgif "github.com/dep2p/go-dds/pkg/interfaces"
	"github.com/dep2p/go-dds/pkg/types"
)

var log = logger.Logger("transport/loopback")

// ErrClosed 集线器或会话已关闭
var ErrClosed = errors.New("transport closed")

var _ pkgif.Transport = (*Hub)(nil)

// Stats 集线器统计
type Stats struct {
	Sessions  int
	Announced uint64
	Withdrawn uint64
	Delivered uint64
}

// Hub 进程内集线器
type Hub struct {
	mu      sync.RWMutex
	domains map[uint32]map[types.GUIDPrefix]*session
	closed  bool

	announced atomic.Uint64
	withdrawn atomic.Uint64
	delivered atomic.Uint64
}

// New 创建集线器
func New() *Hub {
	return &Hub{domains: make(map[uint32]map[types.GUIDPrefix]*session)}
}

// Attach 实现 pkgif.Transport
func (h *Hub) Attach(domainID uint32, prefix types.GUIDPrefix, sink pkgif.TransportSink) (pkgif.TransportSession, error) {
	if prefix.IsZero() || sink == nil {
		return nil, fmt.Errorf("%w: attach needs a guid prefix and a sink", types.ErrBadParameter)
	}

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return nil, ErrClosed
	}
	peers, ok := h.domains[domainID]
	if !ok {
		peers = make(map[types.GUIDPrefix]*session)
		h.domains[domainID] = peers
	}
	if _, dup := peers[prefix]; dup {
		h.mu.Unlock()
		return nil, fmt.Errorf("%w: prefix %s already attached to domain %d", types.ErrPreconditionNotMet, prefix, domainID)
	}
	s := &session{
		hub:     h,
		domain:  domainID,
		prefix:  prefix,
		sink:    sink,
		records: make(map[types.GUID]types.EntityRecord),
	}
	peers[prefix] = s
	existing := h.recordsLocked(domainID, prefix)
	h.mu.Unlock()

	log.Debug("participant attached", "domain", domainID, "prefix", prefix, "replay", len(existing))
	for _, rec := range existing {
		sink.OnAnnounce(rec)
	}
	return s, nil
}

// recordsLocked 返回域内除 exclude 以外所有会话的通告，参与者记录在前
func (h *Hub) recordsLocked(domainID uint32, exclude types.GUIDPrefix) []types.EntityRecord {
	var out []types.EntityRecord
	for p, s := range h.domains[domainID] {
		if p == exclude {
			continue
		}
		s.mu.Lock()
		for _, rec := range s.records {
			out = append(out, rec)
		}
		s.mu.Unlock()
	}
	slices.SortFunc(out, func(a, b types.EntityRecord) int {
		if (a.Kind == types.BuiltinParticipant) != (b.Kind == types.BuiltinParticipant) {
			if a.Kind == types.BuiltinParticipant {
				return -1
			}
			return 1
		}
		return bytes.Compare(a.GUID.Bytes(), b.GUID.Bytes())
	})
	return out
}

// peers 返回域内除 exclude 以外的会话
func (h *Hub) peers(domainID uint32, exclude types.GUIDPrefix) []*session {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]*session, 0, len(h.domains[domainID]))
	for p, s := range h.domains[domainID] {
		if p != exclude {
			out = append(out, s)
		}
	}
	return out
}

func (h *Hub) lookup(domainID uint32, prefix types.GUIDPrefix) (*session, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	s, ok := h.domains[domainID][prefix]
	return s, ok
}

func (h *Hub) detach(s *session) {
	h.mu.Lock()
	if peers, ok := h.domains[s.domain]; ok {
		delete(peers, s.prefix)
		if len(peers) == 0 {
			delete(h.domains, s.domain)
		}
	}
	h.mu.Unlock()
}

// Stats 返回统计
func (h *Hub) Stats() Stats {
	h.mu.RLock()
	n := 0
	for _, peers := range h.domains {
		n += len(peers)
	}
	h.mu.RUnlock()
	return Stats{
		Sessions:  n,
		Announced: h.announced.Load(),
		Withdrawn: h.withdrawn.Load(),
		Delivered: h.delivered.Load(),
	}
}

// Close 实现 pkgif.Transport，关闭全部会话
func (h *Hub) Close() error {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return nil
	}
	h.closed = true
	var sessions []*session
	for _, peers := range h.domains {
		for _, s := range peers {
			sessions = append(sessions, s)
		}
	}
	h.mu.Unlock()

	for _, s := range sessions {
		_ = s.Close()
	}
	return nil
}

// ============================================================================
//                              会话
// ============================================================================

type session struct {
	hub    *Hub
	domain uint32
	prefix types.GUIDPrefix
	sink   pkgif.TransportSink

	mu      sync.Mutex
	records map[types.GUID]types.EntityRecord
	closed  bool
}

func (s *session) Announce(rec types.EntityRecord) error {
	if rec.GUID.Prefix != s.prefix {
		return fmt.Errorf("%w: record %s does not belong to participant %s", types.ErrBadParameter, rec.GUID, s.prefix)
	}
	// 接收方分配自己的句柄和来源
	rec.DomainID = s.domain
	rec.Handle = types.HandleNil
	rec.Origin = types.OriginRemote

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	s.records[rec.GUID] = rec
	s.mu.Unlock()

	s.hub.announced.Add(1)
	for _, p := range s.hub.peers(s.domain, s.prefix) {
		p.sink.OnAnnounce(rec)
	}
	return nil
}

func (s *session) Withdraw(g types.GUID) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	delete(s.records, g)
	s.mu.Unlock()

	s.hub.withdrawn.Add(1)
	for _, p := range s.hub.peers(s.domain, s.prefix) {
		p.sink.OnWithdraw(g)
	}
	return nil
}

func (s *session) Deliver(reader types.GUID, msg types.DataMessage) error {
	s.mu.Lock()
	closed := s.closed
	s.mu.Unlock()
	if closed {
		return ErrClosed
	}
	target, ok := s.hub.lookup(s.domain, reader.Prefix)
	if !ok {
		return fmt.Errorf("%w: no participant for reader %s", types.ErrNotFound, reader)
	}
	s.hub.delivered.Add(1)
	target.sink.OnSample(reader, msg)
	return nil
}

// Close 离开域；其他参与者收到参与者撤回，端点随之丢失
func (s *session) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.records = nil
	s.mu.Unlock()

	s.hub.detach(s)
	participant := types.GUID{Prefix: s.prefix, Entity: types.EntityIDParticipant}
	for _, p := range s.hub.peers(s.domain, s.prefix) {
		p.sink.OnWithdraw(participant)
	}
	log.Debug("participant detached", "domain", s.domain, "prefix", s.prefix)
	return nil
}
