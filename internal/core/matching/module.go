package matching

import (
	"github.com/benbjohnson/clock"
	"go.uber.org/fx"

	"github.com/dep2p/go-dds/internal/core/discovery"
	"github.com/dep2p/go-dds/internal/core/registry"
	"github.com/dep2p/go-dds/internal/core/status"
	pkgif "github.com/dep2p/go-dds/pkg/interfaces"
)

var _ StatusSink = (*status.Store)(nil)

// Params 模块依赖
type Params struct {
	fx.In

	Registry *registry.Registry
	Status   *status.Store
	Clock    clock.Clock    `optional:"true"`
	Bus      pkgif.EventBus `optional:"true"`
}

// Factory 为每个参与者创建匹配引擎
type Factory struct {
	deps Deps
}

// Module 返回 Fx 模块
func Module() fx.Option {
	return fx.Module("matching",
		fx.Provide(ProvideFactory),
	)
}

// ProvideFactory 提供匹配引擎工厂
func ProvideFactory(p Params) *Factory {
	return &Factory{deps: Deps{
		Locks: p.Registry.Locks(),
		Sink:  p.Status,
		Clock: p.Clock,
		Bus:   p.Bus,
	}}
}

// NewEngine 为参与者的发现缓存创建匹配引擎
func (f *Factory) NewEngine(cache *discovery.Cache, opts ...EvalOption) (*Engine, error) {
	d := f.deps
	d.Cache = cache
	return New(d, opts...)
}

// ============================================================================
//                              模块元信息
// ============================================================================

const (
	// Version 模块版本
	Version = "1.0.0"
	// Name 模块名称
	Name = "matching"
	// Description 模块描述
	Description = "写端与读端 QoS 匹配引擎，维护匹配记录并发出匹配状态"
)
