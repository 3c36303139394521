package discovery

import (
	"github.com/benbjohnson/clock"
	"go.uber.org/fx"

	"github.com/dep2p/go-dds/config"
	pkgif "github.com/dep2p/go-dds/pkg/interfaces"
	"github.com/dep2p/go-dds/pkg/types"
)

// Params 模块依赖
type Params struct {
	fx.In

	Handles *types.HandleAllocator
	Clock   clock.Clock    `optional:"true"`
	Bus     pkgif.EventBus `optional:"true"`
	Config  *config.Config `optional:"true"`
}

// Factory 为每个参与者创建发现缓存
type Factory struct {
	deps Deps
	cfg  Config
}

// Module 返回 Fx 模块
//
// 发现缓存属于参与者，模块只提供创建缓存的 Factory。
func Module() fx.Option {
	return fx.Module("discovery",
		fx.Provide(ProvideFactory),
	)
}

// ProvideFactory 提供发现缓存工厂
func ProvideFactory(p Params) *Factory {
	return &Factory{
		deps: Deps{Handles: p.Handles, Clock: p.Clock, Bus: p.Bus},
		cfg:  ConfigFromUnified(p.Config),
	}
}

// NewCache 为参与者创建发现缓存
func (f *Factory) NewCache(participant types.InstanceHandle, domainID uint32) (*Cache, error) {
	d := f.deps
	d.Participant = participant
	d.DomainID = domainID
	return New(d, f.cfg)
}

// Config 返回发现配置
func (f *Factory) Config() Config {
	return f.cfg
}

// ============================================================================
//                              模块元信息
// ============================================================================

const (
	// Version 模块版本
	Version = "1.0.0"
	// Name 模块名称
	Name = "discovery"
	// Description 模块描述
	Description = "参与者发现缓存，维护本地与远端实体记录、租约和忽略列表"
)
