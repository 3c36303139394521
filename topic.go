package dds

import (
	"fmt"

	"github.com/dep2p/go-dds/internal/core/registry"
	"github.com/dep2p/go-dds/pkg/types"
)

// Topic 主题：名称加类型名
type Topic struct {
	*topicState
	scope bool
}

type topicState struct {
	entity
	participant *participantState
	name        string
	typeName    string
}

func (t *Topic) scoped() any {
	return &Topic{topicState: t.topicState, scope: true}
}

// Close 关闭主题；仍有写端或读端引用时失败
func (t *Topic) Close() error {
	if n := len(t.f.reg.Endpoints(t.handle)); n > 0 {
		return fmt.Errorf("%w: topic %q still has %d endpoints", types.ErrPreconditionNotMet, t.name, n)
	}
	return t.f.closeEntity(t.handle, t.scope)
}

// CreateTopic 创建主题，类型必须已经用 RegisterType 登记
func (p *participantState) CreateTopic(name, typeName string, opts ...EntityOption) (*Topic, error) {
	if name == "" {
		return nil, fmt.Errorf("%w: empty topic name", types.ErrBadParameter)
	}
	if !p.IsTypeRegistered(typeName) {
		return nil, fmt.Errorf("%w: type %q not registered", types.ErrPreconditionNotMet, typeName)
	}
	return p.createTopic(name, typeName, newEntityOptions(opts))
}

func (p *participantState) createTopic(name, typeName string, o *entityOptions) (*Topic, error) {
	if _, err := p.f.reg.Find(p.handle, types.KindTopic, name); err == nil {
		return nil, fmt.Errorf("%w: topic %q already exists", types.ErrPreconditionNotMet, name)
	}
	h, err := p.f.create(types.KindTopic, p.handle, o,
		registry.WithName(name),
		registry.WithTypeName(typeName),
	)
	if err != nil {
		return nil, err
	}
	if o.internal {
		p.markInternal(h)
	}
	base, err := newEntity(p.f, h)
	if err != nil {
		return nil, err
	}
	t := &Topic{topicState: &topicState{
		entity:      base,
		participant: p,
		name:        name,
		typeName:    typeName,
	}}
	if err := p.f.track(h, t, nil); err != nil {
		return nil, err
	}
	if err := p.f.finish(h, p.handle, o); err != nil {
		_ = p.f.reg.Close(h)
		return nil, err
	}
	log.Debug("topic created", "handle", h, "name", name, "type", typeName)
	return t, nil
}

// Name 返回主题名
func (t *topicState) Name() string {
	return t.name
}

// TypeName 返回类型名
func (t *topicState) TypeName() string {
	return t.typeName
}

// Participant 返回所属参与者
func (t *topicState) Participant() *DomainParticipant {
	return &DomainParticipant{participantState: t.participant}
}

// SetQos 修改主题 QoS 并重新通告
func (t *topicState) SetQos(set QosSet) error {
	if err := t.mergeQos(set); err != nil {
		return err
	}
	t.participant.refresh(t.handle)
	return nil
}

// InconsistentTopicStatus 读取并清零主题不一致状态
func (t *topicState) InconsistentTopicStatus() (InconsistentTopicStatus, error) {
	return t.f.status.InconsistentTopicStatus(t.handle)
}
