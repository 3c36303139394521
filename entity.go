package dds

import (
	"github.com/dep2p/go-dds/internal/core/registry"
	"github.com/dep2p/go-dds/pkg/types"
)

// entity 各类实体共用的句柄和查询
type entity struct {
	f      *Factory
	handle types.InstanceHandle
	guid   types.GUID
}

func newEntity(f *Factory, h types.InstanceHandle) (entity, error) {
	v, err := f.reg.Get(h)
	if err != nil {
		return entity{}, err
	}
	return entity{f: f, handle: h, guid: v.GUID}, nil
}

// Handle 返回实体句柄
func (e *entity) Handle() InstanceHandle {
	return e.handle
}

// GUID 返回实体 GUID
func (e *entity) GUID() GUID {
	return e.guid
}

// Enable 启用实体
func (e *entity) Enable() error {
	return e.f.reg.Enable(e.handle)
}

// IsEnabled 实体是否已启用
func (e *entity) IsEnabled() bool {
	v, err := e.f.reg.Get(e.handle)
	return err == nil && v.State == registry.StateEnabled
}

// IsClosed 实体是否已关闭
func (e *entity) IsClosed() bool {
	v, err := e.f.reg.Get(e.handle)
	return err != nil || v.Closed()
}

// Qos 返回当前 QoS；实体关闭后返回空集合
func (e *entity) Qos() QosSet {
	set, _ := e.f.reg.GetQos(e.handle)
	return set
}

// StatusChanges 返回自上次读取以来变化过的状态
func (e *entity) StatusChanges() (StatusKind, error) {
	return e.f.reg.StatusChanges(e.handle)
}

// SetListener 替换监听器，mask 省略时由监听器实现的接口推导
func (e *entity) SetListener(l any, mask ...StatusKind) error {
	var m *StatusKind
	if len(mask) > 0 {
		combined := mask[0]
		for _, k := range mask[1:] {
			combined |= k
		}
		m = &combined
	}
	return e.f.bindListener(e.handle, l, m)
}

// mergeQos 把 set 合并进当前 QoS
func (e *entity) mergeQos(set QosSet) error {
	_, err := e.f.reg.UpdateQos(e.handle, func(cur QosSet) QosSet {
		return cur.Merge(set)
	})
	return err
}

// create 创建实体但暂不启用
//
// 调用方完成登记后调用 finish，按父实体的 EntityFactory 策略决定是否启用。
func (f *Factory) create(kind types.EntityKind, parent types.InstanceHandle, o *entityOptions, opts ...registry.Option) (types.InstanceHandle, error) {
	base := f.reg.Qos().Default(f.scopeOf(parent), kind)
	set := o.resolveQos(base)
	opts = append(opts, registry.WithAutoEnable(false))
	h, err := f.reg.Create(kind, parent, set, opts...)
	if err != nil {
		return types.HandleNil, err
	}
	if o.listener != nil {
		if err := f.bindListener(h, o.listener, o.mask); err != nil {
			_ = f.reg.Close(h)
			return types.HandleNil, err
		}
	}
	return h, nil
}

// finish 按父实体的 EntityFactory 策略启用新实体
func (f *Factory) finish(h, parent types.InstanceHandle, o *entityOptions) error {
	if o.disabled {
		return nil
	}
	pv, err := f.reg.Get(parent)
	if err != nil {
		return err
	}
	if pv.State != registry.StateEnabled || !pv.Qos.EntityFactory().AutoenableCreatedEntities {
		return nil
	}
	return f.reg.Enable(h)
}

// scopeOf 返回实体默认 QoS 所在的作用域（所属参与者）
func (f *Factory) scopeOf(parent types.InstanceHandle) types.InstanceHandle {
	if parent.IsNil() {
		return types.HandleNil
	}
	v, err := f.reg.Get(parent)
	if err != nil {
		return types.HandleNil
	}
	return v.Participant
}
