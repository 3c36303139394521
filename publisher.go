package dds

import (
	"go.uber.org/multierr"

	"github.com/dep2p/go-dds/pkg/types"
)

// ============================================================================
//                              Publisher
// ============================================================================

// Publisher 写端分组，Partition 和 Presentation 作用于其下全部写端
type Publisher struct {
	*groupState
	scope bool
}

// groupState 发布者和订阅者共用的状态
type groupState struct {
	entity
	participant *participantState
}

func (p *Publisher) scoped() any {
	return &Publisher{groupState: p.groupState, scope: true}
}

// Close 关闭发布者及其全部写端
func (p *Publisher) Close() error {
	return p.f.closeEntity(p.handle, p.scope)
}

// CreatePublisher 创建发布者
func (p *participantState) CreatePublisher(opts ...EntityOption) (*Publisher, error) {
	o := newEntityOptions(opts)
	g, err := p.createGroup(types.KindPublisher, o)
	if err != nil {
		return nil, err
	}
	pub := &Publisher{groupState: g}
	if err := p.f.track(g.handle, pub, nil); err != nil {
		return nil, err
	}
	if err := p.f.finish(g.handle, p.handle, o); err != nil {
		_ = p.f.reg.Close(g.handle)
		return nil, err
	}
	return pub, nil
}

func (p *participantState) createGroup(kind types.EntityKind, o *entityOptions) (*groupState, error) {
	h, err := p.f.create(kind, p.handle, o)
	if err != nil {
		return nil, err
	}
	if o.internal {
		p.markInternal(h)
	}
	base, err := newEntity(p.f, h)
	if err != nil {
		_ = p.f.reg.Close(h)
		return nil, err
	}
	return &groupState{entity: base, participant: p}, nil
}

// Participant 返回所属参与者
func (g *groupState) Participant() *DomainParticipant {
	return &DomainParticipant{participantState: g.participant}
}

// SetQos 修改 QoS；Partition 等分组策略随端点重新通告生效
func (g *groupState) SetQos(set QosSet) error {
	if err := g.mergeQos(set); err != nil {
		return err
	}
	g.participant.refreshGroup(g.handle)
	return nil
}

// DeleteContainedEntities 关闭其下全部端点
func (g *groupState) DeleteContainedEntities() error {
	children, err := g.f.reg.ChildrenOf(g.handle)
	if err != nil {
		return err
	}
	var errs error
	for _, c := range children {
		errs = multierr.Append(errs, g.f.reg.Close(c))
	}
	return errs
}

func (g *groupState) children() []any {
	handles, err := g.f.reg.ChildrenOf(g.handle)
	if err != nil {
		return nil
	}
	out := make([]any, 0, len(handles))
	for _, h := range handles {
		if e, ok := g.f.entities.Load(h); ok {
			out = append(out, e)
		}
	}
	return out
}

// Writers 返回发布者下的写端
func (p *Publisher) Writers() []WriterEntity {
	var out []WriterEntity
	for _, e := range p.children() {
		if w, ok := e.(WriterEntity); ok {
			out = append(out, w)
		}
	}
	return out
}

// LookupDataWriter 按主题名查找写端
func (p *Publisher) LookupDataWriter(topicName string) (WriterEntity, bool) {
	for _, w := range p.Writers() {
		if w.TopicName() == topicName {
			return w, true
		}
	}
	return nil, false
}
