package registry

import (
	"context"

	"github.com/benbjohnson/clock"
	"go.uber.org/fx"
	"go.uber.org/multierr"

	"github.com/dep2p/go-dds/config"
	"github.com/dep2p/go-dds/internal/core/dispatch"
	"github.com/dep2p/go-dds/internal/core/qosstore"
	pkgif "github.com/dep2p/go-dds/pkg/interfaces"
	"github.com/dep2p/go-dds/pkg/types"
)

// Params 模块依赖
type Params struct {
	fx.In

	Qos        *qosstore.Store
	Dispatcher *dispatch.Dispatcher
	Bus        pkgif.EventBus         `optional:"true"`
	Clock      clock.Clock            `optional:"true"`
	Handles    *types.HandleAllocator `optional:"true"`
	Config     *config.Config         `optional:"true"`
}

// Module 返回 Fx 模块
func Module() fx.Option {
	return fx.Module("registry",
		fx.Provide(ProvideRegistry),
		fx.Invoke(registerLifecycle),
	)
}

// ProvideRegistry 提供实体注册表
func ProvideRegistry(p Params) (*Registry, error) {
	d := Deps{
		Handles:  p.Handles,
		Qos:      p.Qos,
		Quiescer: p.Dispatcher,
		Bus:      p.Bus,
		Clock:    p.Clock,
	}
	if p.Config != nil {
		d.ClosedHistory = p.Config.Resource.ClosedEntityHistory
	}
	return New(d)
}

func registerLifecycle(lc fx.Lifecycle, r *Registry) {
	lc.Append(fx.Hook{
		OnStop: func(_ context.Context) error {
			err := multierr.Append(r.CloseAll(), r.Stop())
			if err != nil {
				log.Warn("registry shutdown", "err", err)
			}
			return err
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
	Name = "registry"
	// Description 模块描述
	Description = "实体注册表，维护包含关系、生命周期、监听器绑定和状态标志"
)
