package discovery

import (
	"context"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
)

// ============================================================================
//                              周期任务
// ============================================================================

// ticker 按时钟周期执行 fn，供租约检查和重新通告使用
type ticker struct {
	clock  clock.Clock
	period time.Duration
	fn     func()

	mu     sync.Mutex
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func newTicker(clk clock.Clock, period time.Duration, fn func()) *ticker {
	return &ticker{clock: clk, period: period, fn: fn}
}

func (t *ticker) start() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.cancel != nil {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	t.cancel = cancel

	tk := t.clock.Ticker(t.period)
	t.wg.Add(1)
	go func() {
		defer t.wg.Done()
		defer tk.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-tk.C:
				t.fn()
			}
		}
	}()
}

func (t *ticker) stop() {
	t.mu.Lock()
	cancel := t.cancel
	t.cancel = nil
	t.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	t.wg.Wait()
}

// LeaseChecker 按 LeaseCheckInterval 周期调用 Cache.CheckLeases
type LeaseChecker struct {
	t *ticker
}

// NewLeaseChecker 创建租约检查器
func NewLeaseChecker(c *Cache) *LeaseChecker {
	return &LeaseChecker{t: newTicker(c.clock, c.cfg.LeaseCheckInterval, func() { c.CheckLeases() })}
}

// Start 启动后台检查，重复调用无副作用
func (l *LeaseChecker) Start() { l.t.start() }

// Stop 停止后台检查并等待其退出
func (l *LeaseChecker) Stop() { l.t.stop() }

// Announcer 按 AnnouncePeriod 周期重新通告本地参与者的记录
type Announcer struct {
	t *ticker
}

// NewAnnouncer 创建周期通告器，announce 在后台 goroutine 上执行
func NewAnnouncer(clk clock.Clock, period time.Duration, announce func()) *Announcer {
	if clk == nil {
		clk = clock.New()
	}
	return &Announcer{t: newTicker(clk, period, announce)}
}

// Start 启动周期通告
func (a *Announcer) Start() { a.t.start() }

// Stop 停止周期通告
func (a *Announcer) Stop() { a.t.stop() }
