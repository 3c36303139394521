package dds

import (
	"fmt"

	"github.com/benbjohnson/clock"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"

	"github.com/dep2p/go-dds/internal/core/discovery"
	"github.com/dep2p/go-dds/internal/core/dispatch"
	"github.com/dep2p/go-dds/internal/core/durability"
	"github.com/dep2p/go-dds/internal/core/eventbus"
	"github.com/dep2p/go-dds/internal/core/matching"
	"github.com/dep2p/go-dds/internal/core/metrics"
	"github.com/dep2p/go-dds/internal/core/qosstore"
	"github.com/dep2p/go-dds/internal/core/registry"
	"github.com/dep2p/go-dds/internal/core/status"
	"github.com/dep2p/go-dds/internal/core/storage"
	"github.com/dep2p/go-dds/internal/core/transport"
	"github.com/dep2p/go-dds/internal/util/logger"
	pkgif "github.com/dep2p/go-dds/pkg/interfaces"
	"github.com/dep2p/go-dds/pkg/types"
)

var log = logger.Logger("dds")

// buildFxApp 构建 Fx 应用
//
// 模块按依赖顺序加载，Fx 按相反顺序停止：
//  1. 基础：EventBus → QosStore → Dispatcher
//  2. 存储：Storage → Durability（持久化关闭时 Engine 为 nil）
//  3. 传输与指标：Transport → Metrics
//  4. 实体：Registry → Status → Discovery → Matching
//
// 注册表最后加载、最先停止，关闭参与者时传输和调度器仍然可用。
func buildFxApp(o *options, f *Factory) (*fx.App, error) {
	if err := o.config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	logger.Apply(o.config.Log.Level, o.config.Log.Format)

	clk := o.clock
	if clk == nil {
		clk = clock.New()
	}

	modules := []fx.Option{
		fx.WithLogger(func() fxevent.Logger {
			return &fxevent.ZapLogger{Logger: zap.NewNop()}
		}),

		// 配置注入
		fx.Supply(o.config),
		fx.Provide(func() clock.Clock { return clk }),
		fx.Supply(types.NewHandleAllocator()),

		// 基础组件
		eventbus.Module(),
		qosstore.Module(),
		dispatch.Module(),

		// 存储
		storage.Module(),
		durability.Module(),
	}

	// 外部传输
	if o.transport != nil {
		t := o.transport
		modules = append(modules, fx.Provide(fx.Annotate(
			func() pkgif.Transport { return t },
			fx.ResultTags(`name:"external_transport"`),
		)))
	}

	modules = append(modules,
		transport.Module(),
		metrics.Module(),

		registry.Module(),
		status.Module(),
		discovery.Module(),
		matching.Module(),
	)

	modules = append(modules, o.fxOptions...)

	// 填充工厂依赖
	modules = append(modules, fx.Populate(
		&f.cfg,
		&f.clock,
		&f.bus,
		&f.reg,
		&f.status,
		&f.disp,
		&f.discoveries,
		&f.matchers,
		&f.transport,
		&f.durability,
		&f.metrics,
	))

	app := fx.New(modules...)
	if err := app.Err(); err != nil {
		return nil, fmt.Errorf("build fx app: %w", err)
	}
	return app, nil
}
