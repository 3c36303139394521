package dds

import (
	"github.com/dep2p/go-dds/pkg/types"
)

// Subscriber 读端分组
type Subscriber struct {
	*groupState
	scope bool
}

func (s *Subscriber) scoped() any {
	return &Subscriber{groupState: s.groupState, scope: true}
}

// Close 关闭订阅者及其全部读端
func (s *Subscriber) Close() error {
	return s.f.closeEntity(s.handle, s.scope)
}

// CreateSubscriber 创建订阅者
func (p *participantState) CreateSubscriber(opts ...EntityOption) (*Subscriber, error) {
	return p.createSubscriber(newEntityOptions(opts), nil)
}

func (p *participantState) createSubscriber(o *entityOptions, onClose func()) (*Subscriber, error) {
	g, err := p.createGroup(types.KindSubscriber, o)
	if err != nil {
		return nil, err
	}
	sub := &Subscriber{groupState: g}
	if err := p.f.track(g.handle, sub, onClose); err != nil {
		return nil, err
	}
	if err := p.f.finish(g.handle, p.handle, o); err != nil {
		_ = p.f.reg.Close(g.handle)
		return nil, err
	}
	return sub, nil
}

// Readers 返回订阅者下的读端
func (s *Subscriber) Readers() []ReaderEntity {
	var out []ReaderEntity
	for _, e := range s.children() {
		if r, ok := e.(ReaderEntity); ok {
			out = append(out, r)
		}
	}
	return out
}

// LookupDataReader 按主题名查找读端
func (s *Subscriber) LookupDataReader(topicName string) (ReaderEntity, bool) {
	for _, r := range s.Readers() {
		if r.TopicName() == topicName {
			return r, true
		}
	}
	return nil, false
}

// NotifyDataReaders 对有新数据的读端调用其 DataAvailable 监听器
//
// 通常在 OnDataOnReaders 回调中调用。
func (s *Subscriber) NotifyDataReaders() {
	for _, r := range s.Readers() {
		h := r.Handle()
		changes, err := s.f.reg.StatusChanges(h)
		if err != nil || !changes.Has(types.StatusDataAvailable) {
			continue
		}
		l, mask, err := s.f.reg.Listener(h)
		if err != nil || l == nil || !mask.Has(types.StatusDataAvailable) {
			continue
		}
		dl, ok := l.(DataAvailableListener)
		if !ok {
			continue
		}
		scoped := r.(scopable).scoped().(ReaderEntity)
		s.f.disp.Dispatch(func() { dl.OnDataAvailable(scoped) }, h)
	}
}
