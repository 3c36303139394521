package status

import (
	"go.uber.org/fx"

	"github.com/dep2p/go-dds/internal/core/dispatch"
	"github.com/dep2p/go-dds/internal/core/registry"
)

// Module 返回 Fx 模块
func Module() fx.Option {
	return fx.Module("status",
		fx.Provide(ProvideStore),
	)
}

// ProvideStore 提供状态存储
func ProvideStore(reg *registry.Registry, disp *dispatch.Dispatcher) *Store {
	return New(reg, disp)
}

// ============================================================================
//                              模块元信息
// ============================================================================

const (
	// Version 模块版本
	Version = "1.0.0"
	// Name 模块名称
	Name = "status"
	// Description 模块描述
	Description = "通信状态计数，读取即清零，按监听器掩码路由回调"
)
