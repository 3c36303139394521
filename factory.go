package dds

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/fx"

	"github.com/dep2p/go-dds/config"
	"github.com/dep2p/go-dds/internal/core/discovery"
	"github.com/dep2p/go-dds/internal/core/dispatch"
	"github.com/dep2p/go-dds/internal/core/durability"
	"github.com/dep2p/go-dds/internal/core/matching"
	"github.com/dep2p/go-dds/internal/core/metrics"
	"github.com/dep2p/go-dds/internal/core/registry"
	"github.com/dep2p/go-dds/internal/core/status"
	pkgif "github.com/dep2p/go-dds/pkg/interfaces"
	"github.com/dep2p/go-dds/pkg/qos"
	"github.com/dep2p/go-dds/pkg/types"
)

// 启停超时
const (
	startTimeout = 30 * time.Second
	stopTimeout  = 30 * time.Second
)

// ============================================================================
//                              Factory
// ============================================================================

// Factory 参与者工厂
//
// 一个 Factory 拥有一套独立的注册表、调度器、传输和持久化服务。
// 同一进程内可以创建多个 Factory，它们之间不共享任何状态。
type Factory struct {
	app *fx.App

	cfg         *config.Config
	clock       clock.Clock
	bus         pkgif.EventBus
	reg         *registry.Registry
	status      *status.Store
	disp        *dispatch.Dispatcher
	discoveries *discovery.Factory
	matchers    *matching.Factory
	transport   pkgif.Transport
	durability  *durability.Service
	metrics     *metrics.Collector

	// entities 句柄到实体状态，监听器投递时按句柄取回实体
	entities sync.Map
	// readerGUIDs 本工厂内全部读端的 GUID
	readerGUIDs sync.Map

	mu           sync.Mutex
	participants map[types.InstanceHandle]*DomainParticipant
	qos          qos.Set
	finalized    bool
}

// NewFactory 创建并启动参与者工厂
func NewFactory(opts ...Option) (*Factory, error) {
	o := newOptions()
	for _, opt := range opts {
		if err := opt(o); err != nil {
			return nil, err
		}
	}

	f := &Factory{
		participants: make(map[types.InstanceHandle]*DomainParticipant),
		qos:          qos.Set{}.With(qos.EntityFactory{AutoenableCreatedEntities: true}),
	}
	app, err := buildFxApp(o, f)
	if err != nil {
		return nil, err
	}
	f.app = app

	ctx, cancel := context.WithTimeout(context.Background(), startTimeout)
	defer cancel()
	if err := app.Start(ctx); err != nil {
		return nil, fmt.Errorf("start factory: %w", err)
	}
	f.status.SetNotifier(f.notify)

	log.Info("factory started",
		"persistence", f.durability.Persistent(),
		"metrics", f.cfg.Metrics.Enable)
	return f, nil
}

// check 工厂是否仍可使用
func (f *Factory) check() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.finalized {
		return fmt.Errorf("%w: factory finalized", types.ErrPreconditionNotMet)
	}
	return nil
}

// Finalize 关闭全部参与者并停止工厂（幂等）
//
// 之后工厂上的任何调用都返回 ErrPreconditionNotMet。
func (f *Factory) Finalize() error {
	f.mu.Lock()
	if f.finalized {
		f.mu.Unlock()
		return nil
	}
	f.finalized = true
	f.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), stopTimeout)
	defer cancel()
	if err := f.app.Stop(ctx); err != nil {
		return fmt.Errorf("stop factory: %w", err)
	}
	log.Info("factory finalized")
	return nil
}

// Config 返回工厂配置的副本
func (f *Factory) Config() *config.Config {
	return config.CloneConfig(f.cfg)
}

// Clock 返回工厂时钟
func (f *Factory) Clock() clock.Clock {
	return f.clock
}

// MetricsRegistry 返回指标注册表，可挂到 promhttp.HandlerFor
func (f *Factory) MetricsRegistry() *prometheus.Registry {
	return f.metrics.Registry()
}

// Qos 返回工厂 QoS（仅 EntityFactory 策略有意义）
func (f *Factory) Qos() QosSet {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.qos
}

// SetQos 设置工厂 QoS
func (f *Factory) SetQos(set QosSet) error {
	if err := f.check(); err != nil {
		return err
	}
	if err := qos.Validate(set); err != nil {
		return err
	}
	f.mu.Lock()
	f.qos = f.qos.Merge(set)
	f.mu.Unlock()
	return nil
}

// DefaultParticipantQos 返回参与者默认 QoS
func (f *Factory) DefaultParticipantQos() QosSet {
	return f.reg.Qos().Default(types.HandleNil, types.KindParticipant)
}

// SetDefaultParticipantQos 设置参与者默认 QoS
func (f *Factory) SetDefaultParticipantQos(set QosSet) error {
	if err := f.check(); err != nil {
		return err
	}
	return f.reg.Qos().SetDefault(types.HandleNil, types.KindParticipant, set)
}

// ============================================================================
//                              参与者
// ============================================================================

// CreateParticipant 在域 domainID 中创建参与者
func (f *Factory) CreateParticipant(domainID uint32, opts ...EntityOption) (*DomainParticipant, error) {
	if err := f.check(); err != nil {
		return nil, err
	}
	o := newEntityOptions(opts)
	set := o.resolveQos(f.DefaultParticipantQos())

	p, err := newParticipant(f, domainID, set, o)
	if err != nil {
		return nil, err
	}

	f.mu.Lock()
	f.participants[p.handle] = p
	autoEnable := f.qos.EntityFactory().AutoenableCreatedEntities
	f.mu.Unlock()

	if autoEnable && !o.disabled {
		if err := p.Enable(); err != nil {
			_ = p.Close()
			return nil, err
		}
	}
	return p, nil
}

// forgetParticipant 参与者关闭时调用
func (f *Factory) forgetParticipant(h types.InstanceHandle) {
	f.mu.Lock()
	delete(f.participants, h)
	f.mu.Unlock()
}

// LookupParticipant 返回域内任意一个本地参与者
func (f *Factory) LookupParticipant(domainID uint32) (*DomainParticipant, error) {
	if err := f.check(); err != nil {
		return nil, err
	}
	for _, p := range f.Participants() {
		if p.domainID == domainID {
			return p, nil
		}
	}
	return nil, fmt.Errorf("%w: no participant in domain %d", types.ErrNotFound, domainID)
}

// Participants 返回全部本地参与者，按句柄排序
func (f *Factory) Participants() []*DomainParticipant {
	f.mu.Lock()
	out := make([]*DomainParticipant, 0, len(f.participants))
	for _, p := range f.participants {
		out = append(out, p)
	}
	f.mu.Unlock()
	slices.SortFunc(out, func(a, b *DomainParticipant) int {
		return int(a.handle) - int(b.handle)
	})
	return out
}

// ============================================================================
//                              实体辅助
// ============================================================================

// bindListener 绑定监听器；掩码未显式指定时由监听器推导
func (f *Factory) bindListener(h types.InstanceHandle, l any, mask *types.StatusKind) error {
	m := ListenerMask(l)
	if mask != nil {
		m = *mask
	}
	if l == nil {
		m = 0
	}
	return f.reg.SetListener(h, l, m)
}

// track 登记实体状态并在实体关闭时移除
func (f *Factory) track(h types.InstanceHandle, e scopable, onClose func()) error {
	f.entities.Store(h, e)
	return f.reg.SetFinalizer(h, func() error {
		f.entities.Delete(h)
		if onClose != nil {
			onClose()
		}
		return nil
	})
}

// closeEntity 关闭实体；回调作用域内的关闭推迟到回调返回后执行
func (f *Factory) closeEntity(h types.InstanceHandle, scoped bool) error {
	if scoped {
		f.disp.Go(func() {
			if err := f.reg.Close(h); err != nil {
				log.Debug("deferred close failed", "handle", h, "err", err)
			}
		})
		return nil
	}
	return f.reg.Close(h)
}
