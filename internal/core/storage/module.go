package storage

import (
	"context"

	"go.uber.org/fx"

	"github.com/dep2p/go-dds/config"
	"github.com/dep2p/go-dds/internal/core/storage/engine"
	"github.com/dep2p/go-dds/internal/core/storage/engine/badger"
	"github.com/dep2p/go-dds/internal/core/storage/kv"
	"github.com/dep2p/go-dds/internal/util/logger"
)

var log = logger.Logger("storage")

// Params 模块依赖
type Params struct {
	fx.In

	UnifiedCfg *config.Config `optional:"true"`
}

// Result 模块输出
//
// 未启用持久化时 Engine 为 nil。
type Result struct {
	fx.Out

	Engine engine.InternalEngine
	Config Config
}

// Module 返回存储 Fx 模块
func Module() fx.Option {
	return fx.Module("storage",
		fx.Provide(ProvideStorage),
		fx.Invoke(registerLifecycle),
	)
}

// ProvideStorage 按配置打开存储引擎
func ProvideStorage(p Params) (Result, error) {
	cfg := ConfigFromUnified(p.UnifiedCfg)
	if err := cfg.Validate(); err != nil {
		return Result{}, err
	}
	if !cfg.Enabled {
		return Result{Config: cfg}, nil
	}

	eng, err := NewEngine(cfg)
	if err != nil {
		return Result{}, err
	}
	return Result{Engine: eng, Config: cfg}, nil
}

type lifecycleInput struct {
	fx.In

	LC     fx.Lifecycle
	Engine engine.InternalEngine
}

func registerLifecycle(in lifecycleInput) {
	if in.Engine == nil {
		return
	}
	in.LC.Append(fx.Hook{
		OnStart: func(_ context.Context) error {
			if err := in.Engine.Start(); err != nil {
				log.Error("storage engine start failed", "err", err)
				return err
			}
			return nil
		},
		OnStop: func(_ context.Context) error {
			if err := in.Engine.Close(); err != nil {
				log.Warn("storage engine close failed", "err", err)
				return err
			}
			log.Debug("storage engine closed")
			return nil
		},
	})
}

// NewEngine 根据配置打开 BadgerDB
func NewEngine(cfg Config) (engine.InternalEngine, error) {
	log.Debug("opening storage engine", "path", cfg.Path)
	return badger.New(cfg.ToEngineConfig())
}

// NewKVStore 创建带前缀的 Store
func NewKVStore(eng engine.InternalEngine, prefix []byte) *kv.Store {
	return kv.New(eng, prefix)
}
