package transport

import (
	"context"

	"go.uber.org/fx"

	"github.com/dep2p/go-dds/internal/core/transport/loopback"
	"github.com/dep2p/go-dds/internal/util/logger"
	pkgif "github.com/dep2p/go-dds/pkg/interfaces"
)

var log = logger.Logger("transport")

// Params 模块依赖
type Params struct {
	fx.In

	// Transport 外部注入的传输，为空时使用回环集线器
	Transport pkgif.Transport `name:"external_transport" optional:"true"`
}

// Module 返回 Fx 模块
func Module() fx.Option {
	return fx.Module("transport",
		fx.Provide(ProvideTransport),
		fx.Invoke(registerLifecycle),
	)
}

// ProvideTransport 提供传输实现
func ProvideTransport(p Params) pkgif.Transport {
	if p.Transport != nil {
		log.Debug("using external transport")
		return p.Transport
	}
	return loopback.New()
}

func registerLifecycle(lc fx.Lifecycle, t pkgif.Transport) {
	lc.Append(fx.Hook{
		OnStop: func(_ context.Context) error {
			return t.Close()
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
	Name = "transport"
	// Description 模块描述
	Description = "参与者发现与样本传输，默认为进程内回环集线器"
)
