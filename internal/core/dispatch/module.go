package dispatch

import (
	"context"

	"go.uber.org/fx"

	"github.com/dep2p/go-dds/config"
)

// Params 模块依赖
type Params struct {
	fx.In

	Config *config.Config `optional:"true"`
}

// Module 返回 Fx 模块
func Module() fx.Option {
	return fx.Module("dispatch",
		fx.Provide(ProvideDispatcher),
		fx.Invoke(registerLifecycle),
	)
}

// ProvideDispatcher 按配置创建调度器
func ProvideDispatcher(p Params) *Dispatcher {
	var opts []Option
	if p.Config != nil {
		opts = append(opts, WithQueueWarn(p.Config.Resource.DispatchQueueSize))
	}
	return New(opts...)
}

func registerLifecycle(lc fx.Lifecycle, d *Dispatcher) {
	lc.Append(fx.Hook{
		OnStop: func(_ context.Context) error {
			d.Stop()
			log.Debug("dispatcher stopped")
			return nil
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
	Name = "dispatch"
	// Description 模块描述
	Description = "监听器回调调度，单工作 goroutine 串行执行并提供关闭屏障"
)
