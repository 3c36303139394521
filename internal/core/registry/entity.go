package registry

import (
	"slices"

	"github.com/dep2p/go-dds/pkg/qos"
	"github.com/dep2p/go-dds/pkg/types"
)

// State 实体生命周期状态
type State int

const (
	// StateCreated 已创建未启用
	StateCreated State = iota
	// StateEnabled 已启用
	StateEnabled
	// StateClosed 已关闭（终态）
	StateClosed
)

// String 返回状态名称
func (s State) String() string {
	switch s {
	case StateCreated:
		return "created"
	case StateEnabled:
		return "enabled"
	default:
		return "closed"
	}
}

// Listener 监听器绑定，具体接口由上层定义
type Listener any

// entity 注册表内部记录，字段由 Registry.mu 保护
type entity struct {
	handle      types.InstanceHandle
	kind        types.EntityKind
	parent      types.InstanceHandle
	participant types.InstanceHandle
	children    map[types.InstanceHandle]struct{}
	state       State
	closing     bool

	statusChanges types.StatusKind
	listener      Listener
	listenerMask  types.StatusKind

	name     string
	typeName string
	topic    types.InstanceHandle
	guid     types.GUID
	domainID uint32

	// nextEntity 参与者内的实体序号
	nextEntity uint32

	finalizers []func() error
}

func (e *entity) view() View {
	children := make([]types.InstanceHandle, 0, len(e.children))
	for h := range e.children {
		children = append(children, h)
	}
	slices.Sort(children)

	return View{
		Handle:        e.handle,
		Kind:          e.kind,
		Parent:        e.parent,
		Participant:   e.participant,
		Children:      children,
		State:         e.state,
		StatusChanges: e.statusChanges,
		ListenerMask:  e.listenerMask,
		Name:          e.name,
		TypeName:      e.typeName,
		Topic:         e.topic,
		GUID:          e.guid,
		DomainID:      e.domainID,
	}
}

// usable 检查实体是否还能接受操作
func (e *entity) usable() bool {
	return e.state != StateClosed && !e.closing
}

// View 实体快照
type View struct {
	Handle        types.InstanceHandle
	Kind          types.EntityKind
	Parent        types.InstanceHandle
	Participant   types.InstanceHandle
	Children      []types.InstanceHandle
	State         State
	StatusChanges types.StatusKind
	ListenerMask  types.StatusKind
	Name          string
	TypeName      string
	Topic         types.InstanceHandle
	GUID          types.GUID
	DomainID      uint32

	// Qos 快照时的 QoS，墓碑记录为关闭前最后的值
	Qos qos.Set
}

// Closed 是否已关闭
func (v View) Closed() bool {
	return v.State == StateClosed
}

// ============================================================================
//                              创建选项
// ============================================================================

type createOptions struct {
	name       string
	typeName   string
	topic      types.InstanceHandle
	prefix     types.GUIDPrefix
	domainID   uint32
	autoEnable *bool
}

// Option 创建选项
type Option func(*createOptions)

// WithName 设置实体名称（主题名）
func WithName(name string) Option {
	return func(o *createOptions) { o.name = name }
}

// WithTypeName 设置类型名（主题和端点）
func WithTypeName(name string) Option {
	return func(o *createOptions) { o.typeName = name }
}

// WithTopic 设置端点所属主题
func WithTopic(h types.InstanceHandle) Option {
	return func(o *createOptions) { o.topic = h }
}

// WithGUIDPrefix 指定参与者的 GUID 前缀，默认随机生成
func WithGUIDPrefix(p types.GUIDPrefix) Option {
	return func(o *createOptions) { o.prefix = p }
}

// WithDomainID 设置参与者的域 ID
func WithDomainID(id uint32) Option {
	return func(o *createOptions) { o.domainID = id }
}

// WithAutoEnable 覆盖父实体 EntityFactory 策略决定的自动启用行为
//
// 参与者没有父实体，由 Factory 的策略通过该选项决定。
func WithAutoEnable(enable bool) Option {
	return func(o *createOptions) { o.autoEnable = &enable }
}
