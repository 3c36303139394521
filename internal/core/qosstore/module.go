package qosstore

import (
	"context"

	"go.uber.org/fx"

	pkgif "github.com/dep2p/go-dds/pkg/interfaces"
)

// Params 模块依赖
type Params struct {
	fx.In

	Bus pkgif.EventBus `optional:"true"`
}

// Module 返回 Fx 模块
func Module() fx.Option {
	return fx.Module("qosstore",
		fx.Provide(ProvideStore),
		fx.Invoke(registerLifecycle),
	)
}

// ProvideStore 提供 QoS 存储
func ProvideStore(p Params) (*Store, error) {
	return New(p.Bus)
}

func registerLifecycle(lc fx.Lifecycle, s *Store) {
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
	Name = "qosstore"
	// Description 模块描述
	Description = "实体 QoS 存储，写时复制，启用后保护不可变策略"
)
