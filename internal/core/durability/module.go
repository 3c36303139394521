package durability

import (
	"context"

	"go.uber.org/fx"

	"github.com/dep2p/go-dds/internal/core/storage/engine"
)

// Params 模块依赖
type Params struct {
	fx.In

	Engine engine.InternalEngine `optional:"true"`
}

// Module 返回 Fx 模块
func Module() fx.Option {
	return fx.Module("durability",
		fx.Provide(ProvideService),
		fx.Invoke(registerLifecycle),
	)
}

// ProvideService 提供持久性服务
func ProvideService(p Params) *Service {
	if p.Engine == nil {
		log.Debug("persistence disabled, PERSISTENT samples kept in memory")
	}
	return NewService(p.Engine)
}

func registerLifecycle(lc fx.Lifecycle, s *Service) {
	lc.Append(fx.Hook{
		OnStop: func(_ context.Context) error {
			return s.Close()
		},
	})
}

// ============================================================================
//                              模块元信息
// ============================================================================

const (
	// Version 模块版本
	Version = "1.0.0"
	// Name 模块名称
	Name = "durability"
	// Description 模块描述
	Description = "写端历史与 TRANSIENT/PERSISTENT 样本存储"
)
