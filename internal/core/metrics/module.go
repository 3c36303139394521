package metrics

import (
	"context"

	"github.com/benbjohnson/clock"
	"go.uber.org/fx"

	"github.com/dep2p/go-dds/config"
	pkgif "github.com/dep2p/go-dds/pkg/interfaces"
)

// Config 指标配置
type Config struct {
	// Enabled 是否订阅事件总线
	Enabled bool
	// Namespace 指标名前缀
	Namespace string
}

// DefaultConfig 返回默认配置
func DefaultConfig() Config {
	return Config{
		Enabled:   true,
		Namespace: "dds",
	}
}

// ConfigFromUnified 从统一配置创建指标配置
func ConfigFromUnified(cfg *config.Config) Config {
	if cfg == nil {
		return DefaultConfig()
	}
	return Config{
		Enabled:   cfg.Metrics.Enable,
		Namespace: cfg.Metrics.Namespace,
	}
}

// Params 模块依赖
type Params struct {
	fx.In

	Config *config.Config `optional:"true"`
	Clock  clock.Clock    `optional:"true"`
	Bus    pkgif.EventBus `optional:"true"`
}

// Module 返回 Fx 模块
//
// 指标关闭时仍提供空注册表，不订阅总线。
func Module() fx.Option {
	return fx.Module("metrics",
		fx.Provide(ProvideCollector),
		fx.Invoke(registerLifecycle),
	)
}

// ProvideCollector 提供收集器
func ProvideCollector(p Params) *Collector {
	return New(ConfigFromUnified(p.Config).Namespace, p.Clock)
}

type lifecycleInput struct {
	fx.In

	LC        fx.Lifecycle
	Collector *Collector
	Config    *config.Config `optional:"true"`
	Bus       pkgif.EventBus `optional:"true"`
}

func registerLifecycle(input lifecycleInput) {
	cfg := ConfigFromUnified(input.Config)
	if !cfg.Enabled || input.Bus == nil {
		return
	}
	var feed *Feed
	input.LC.Append(fx.Hook{
		OnStart: func(_ context.Context) error {
			f, err := input.Collector.Attach(input.Bus)
			if err != nil {
				return err
			}
			feed = f
			return nil
		},
		OnStop: func(_ context.Context) error {
			if feed == nil {
				return nil
			}
			return feed.Close()
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
	Name = "metrics"
	// Description 模块描述
	Description = "Prometheus 指标，由事件总线驱动"
)
