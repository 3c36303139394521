package dds

import (
	"fmt"

	"github.com/benbjohnson/clock"
	"go.uber.org/fx"

	"github.com/dep2p/go-dds/config"
	pkgif "github.com/dep2p/go-dds/pkg/interfaces"
	"github.com/dep2p/go-dds/pkg/qos"
	"github.com/dep2p/go-dds/pkg/types"
)

// ============================================================================
//                              工厂选项
// ============================================================================

// Option 工厂配置选项
type Option func(*options) error

// options 内部选项结构
type options struct {
	config    *config.Config
	clock     clock.Clock
	transport pkgif.Transport
	fxOptions []fx.Option
}

// newOptions 创建默认选项
func newOptions() *options {
	return &options{config: config.NewConfig()}
}

// WithConfig 使用完整配置
func WithConfig(cfg *config.Config) Option {
	return func(o *options) error {
		if cfg == nil {
			return fmt.Errorf("%w: nil config", types.ErrBadParameter)
		}
		o.config = config.CloneConfig(cfg)
		return nil
	}
}

// WithConfigFile 从 JSON 或 YAML 文件加载配置
func WithConfigFile(path string) Option {
	return func(o *options) error {
		cfg, err := config.LoadFile(path)
		if err != nil {
			return fmt.Errorf("load config %s: %w", path, err)
		}
		o.config = cfg
		return nil
	}
}

// WithPersistence 启用 BadgerDB 持久化，PERSISTENT 样本写入 dataDir
func WithPersistence(dataDir string) Option {
	return func(o *options) error {
		o.config.Storage.EnablePersistence = true
		if dataDir != "" {
			o.config.Storage.DataDir = dataDir
		}
		return nil
	}
}

// WithClock 替换时钟，测试中传入 clock.NewMock()
func WithClock(clk clock.Clock) Option {
	return func(o *options) error {
		o.clock = clk
		return nil
	}
}

// WithTransport 替换默认的进程内传输
func WithTransport(t pkgif.Transport) Option {
	return func(o *options) error {
		o.transport = t
		return nil
	}
}

// WithFxOptions 追加自定义 Fx 选项
func WithFxOptions(opts ...fx.Option) Option {
	return func(o *options) error {
		o.fxOptions = append(o.fxOptions, opts...)
		return nil
	}
}

// ============================================================================
//                              实体选项
// ============================================================================

// EntityOption 创建实体时的选项
type EntityOption func(*entityOptions)

type entityOptions struct {
	qos      qos.Set
	hasQos   bool
	listener any
	mask     *types.StatusKind
	prefix   types.GUIDPrefix
	disabled bool
	// internal 内置实体，不通告
	internal bool
}

func newEntityOptions(opts []EntityOption) *entityOptions {
	o := &entityOptions{}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// resolveQos 用显式 QoS 覆盖作用域默认值
func (o *entityOptions) resolveQos(base qos.Set) qos.Set {
	if !o.hasQos {
		return base
	}
	return base.Merge(o.qos)
}

// WithQos 设置实体 QoS，未设置的策略取参与者默认值
func WithQos(policies ...qos.Policy) EntityOption {
	return func(o *entityOptions) {
		o.qos = o.qos.With(policies...)
		o.hasQos = true
	}
}

// WithQosSet 设置实体 QoS 集合
func WithQosSet(set qos.Set) EntityOption {
	return func(o *entityOptions) {
		o.qos = o.qos.Merge(set)
		o.hasQos = true
	}
}

// WithListener 绑定监听器，掩码默认由监听器实现的接口推导
func WithListener(l any) EntityOption {
	return func(o *entityOptions) {
		o.listener = l
	}
}

// WithListenerMask 显式指定监听器掩码
func WithListenerMask(mask StatusKind) EntityOption {
	return func(o *entityOptions) {
		o.mask = &mask
	}
}

// WithGUIDPrefix 指定参与者 GUID 前缀
func WithGUIDPrefix(p types.GUIDPrefix) EntityOption {
	return func(o *entityOptions) {
		o.prefix = p
	}
}

// Disabled 创建后不自动启用，需调用 Enable
func Disabled() EntityOption {
	return func(o *entityOptions) {
		o.disabled = true
	}
}
