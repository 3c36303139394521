package dispatch

import (
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gammazero/deque"
	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/time/rate"

	"github.com/dep2p/go-dds/internal/util/logger"
	"github.com/dep2p/go-dds/pkg/types"
)

var log = logger.Logger("dispatch")

// ErrStopped 调度器已停止
var ErrStopped = errors.New("dispatcher stopped")

const (
	// DefaultQueueWarn 默认积压告警阈值
	DefaultQueueWarn = 256
	// DefaultQuiescedHistory 默认记住的已静默句柄数量
	DefaultQuiescedHistory = 1024
	// slowCallback 回调执行超过该时长时告警
	slowCallback = 100 * time.Millisecond
)

// job 一次排队的回调
type job struct {
	keys []types.InstanceHandle
	fn   func()
}

func (j job) covers(h types.InstanceHandle) bool {
	for _, k := range j.keys {
		if k == h {
			return true
		}
	}
	return false
}

// Dispatcher 回调调度器
type Dispatcher struct {
	mu       sync.Mutex
	cond     *sync.Cond
	queue    deque.Deque[job]
	inflight map[types.InstanceHandle]int
	quiesced *lru.Cache[types.InstanceHandle, struct{}]
	running  *job
	stopped  bool

	// 工作 goroutine 编号，回调内的 Quiesce 和 Flush 据此识别自身
	workerID atomic.Uint64

	queueWarn int
	warnQueue rate.Sometimes
	warnSlow  rate.Sometimes

	worker sync.WaitGroup
	extra  sync.WaitGroup
}

// Option 调度器选项
type Option func(*Dispatcher)

// WithQueueWarn 设置积压告警阈值
func WithQueueWarn(n int) Option {
	return func(d *Dispatcher) {
		if n > 0 {
			d.queueWarn = n
		}
	}
}

// New 创建调度器并启动工作 goroutine
func New(opts ...Option) *Dispatcher {
	quiesced, _ := lru.New[types.InstanceHandle, struct{}](DefaultQuiescedHistory)
	d := &Dispatcher{
		inflight:  make(map[types.InstanceHandle]int),
		quiesced:  quiesced,
		queueWarn: DefaultQueueWarn,
		warnQueue: rate.Sometimes{Interval: 10 * time.Second},
		warnSlow:  rate.Sometimes{Interval: 10 * time.Second},
	}
	d.cond = sync.NewCond(&d.mu)
	for _, opt := range opts {
		opt(d)
	}

	d.worker.Add(1)
	go d.run()
	return d
}

// Dispatch 排队一个回调
//
// keys 是回调涉及的实体（状态所属实体和监听器所属实体），任一已被 Quiesce
// 时回调被丢弃并返回 false。
func (d *Dispatcher) Dispatch(fn func(), keys ...types.InstanceHandle) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stopped {
		return false
	}
	for _, k := range keys {
		if d.quiesced.Contains(k) {
			return false
		}
	}

	for _, k := range keys {
		d.inflight[k]++
	}
	d.queue.PushBack(job{keys: keys, fn: fn})
	if n := d.queue.Len(); n > d.queueWarn {
		d.warnQueue.Do(func() {
			log.Warn("listener queue backlog", "pending", n, "threshold", d.queueWarn)
		})
	}
	d.cond.Broadcast()
	return true
}

// Quiesce 静默句柄：丢弃排队中的回调并等待正在执行的回调结束
//
// 返回后不会再有新的涉及 h 的回调开始。在回调内部调用时不等待该回调自身，
// 它在 Quiesce 返回后继续执行到结束。
func (d *Dispatcher) Quiesce(h types.InstanceHandle) {
	onWorker := d.OnWorker()

	d.mu.Lock()
	defer d.mu.Unlock()

	d.quiesced.Add(h, struct{}{})
	if d.inflight[h] == 0 {
		delete(d.inflight, h)
		return
	}

	for i := 0; i < d.queue.Len(); {
		j := d.queue.At(i)
		if !j.covers(h) {
			i++
			continue
		}
		d.queue.Remove(i)
		d.release(j)
	}

	self := 0
	if onWorker && d.running != nil && d.running.covers(h) {
		self = 1
	}
	for d.inflight[h] > self {
		d.cond.Wait()
	}
	delete(d.inflight, h)
}

// OnWorker 报告调用方是否运行在工作 goroutine 上，即处于某个回调内部
func (d *Dispatcher) OnWorker() bool {
	id := d.workerID.Load()
	return id != 0 && id == curGoroutineID()
}

// Pending 返回排队中的回调数量
func (d *Dispatcher) Pending() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.queue.Len()
}

// Go 在受跟踪的 goroutine 上执行 fn，Stop 会等待它结束
func (d *Dispatcher) Go(fn func()) {
	d.extra.Add(1)
	go func() {
		defer d.extra.Done()
		fn()
	}()
}

// Flush 等待当前排队的回调全部执行完毕，在回调内部调用时立即返回
func (d *Dispatcher) Flush() {
	if d.OnWorker() {
		return
	}
	done := make(chan struct{})
	if !d.Dispatch(func() { close(done) }) {
		return
	}
	<-done
}

// Stop 丢弃剩余回调并停止工作 goroutine，可重复调用
func (d *Dispatcher) Stop() {
	d.extra.Wait()

	d.mu.Lock()
	if d.stopped {
		d.mu.Unlock()
		return
	}
	d.stopped = true
	for d.queue.Len() > 0 {
		d.release(d.queue.PopFront())
	}
	d.cond.Broadcast()
	d.mu.Unlock()

	d.worker.Wait()
}

func (d *Dispatcher) run() {
	defer d.worker.Done()
	d.workerID.Store(curGoroutineID())

	for {
		d.mu.Lock()
		for d.queue.Len() == 0 && !d.stopped {
			d.cond.Wait()
		}
		if d.stopped {
			d.mu.Unlock()
			return
		}
		j := d.queue.PopFront()
		d.running = &j
		d.mu.Unlock()

		d.execute(j)

		d.mu.Lock()
		d.running = nil
		d.release(j)
		d.mu.Unlock()
	}
}

func (d *Dispatcher) execute(j job) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			log.Error("listener callback panicked", "keys", j.keys, "panic", r)
		}
		if elapsed := time.Since(start); elapsed > slowCallback {
			d.warnSlow.Do(func() {
				log.Warn("slow listener callback", "keys", j.keys, "elapsed", elapsed)
			})
		}
	}()
	j.fn()
}

// release 归还 inflight 计数，调用方持有 d.mu
func (d *Dispatcher) release(j job) {
	for _, k := range j.keys {
		if d.inflight[k]--; d.inflight[k] <= 0 {
			delete(d.inflight, k)
		}
	}
	d.cond.Broadcast()
}
