package metrics

import (
	"sync"

	"go.uber.org/multierr"

	pkgif "github.com/dep2p/go-dds/pkg/interfaces"
	"github.com/dep2p/go-dds/pkg/types"
)

const feedBufSize = 256

// observedEvents 收集器订阅的事件类型
var observedEvents = []any{
	new(types.EvtEntityCreated),
	new(types.EvtEntityClosed),
	new(types.EvtRemoteAnnounced),
	new(types.EvtRemoteLost),
	new(types.EvtRemoteIgnored),
	new(types.EvtMatched),
	new(types.EvtUnmatched),
	new(types.EvtIncompatibleQos),
	new(types.EvtSamplesPushed),
	new(types.EvtSamplesLost),
	new(types.EvtSampleRejected),
	new(types.EvtSamplesTaken),
}

// Feed 把总线订阅接到收集器上
type Feed struct {
	c    *Collector
	subs []pkgif.Subscription
	wg   sync.WaitGroup
}

// Attach 订阅总线上的全部 DDS 事件；失败时已建立的订阅会被关闭
func (c *Collector) Attach(bus pkgif.EventBus) (*Feed, error) {
	f := &Feed{c: c}
	for _, typ := range observedEvents {
		sub, err := bus.Subscribe(typ, pkgif.BufSize(feedBufSize))
		if err != nil {
			_ = f.Close()
			return nil, err
		}
		f.subs = append(f.subs, sub)
	}
	for _, sub := range f.subs {
		f.wg.Add(1)
		go f.drain(sub)
	}
	return f, nil
}

func (f *Feed) drain(sub pkgif.Subscription) {
	defer f.wg.Done()
	for ev := range sub.Out() {
		f.c.Observe(ev)
	}
}

// Close 取消订阅并等待消费协程退出
func (f *Feed) Close() error {
	var err error
	for _, sub := range f.subs {
		err = multierr.Append(err, sub.Close())
	}
	f.wg.Wait()
	return err
}
