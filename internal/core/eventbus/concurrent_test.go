package eventbus

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	pkgif "github.com/dep2p/go-dds/pkg/interfaces"
	"github.com/dep2p/go-dds/pkg/types"
)

// TestConcurrent_MultipleEmitters 多个发射器并发发射
func TestConcurrent_MultipleEmitters(t *testing.T) {
	bus := NewBus()

	sub, _ := bus.Subscribe(new(types.EvtEntityCreated), pkgif.BufSize(100))
	defer sub.Close()

	const numEmitters, perEmitter = 10, 10

	var wg sync.WaitGroup
	for i := 0; i < numEmitters; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			em, _ := bus.Emitter(new(types.EvtEntityCreated))
			defer em.Close()
			for j := 0; j < perEmitter; j++ {
				em.Emit(types.EvtEntityCreated{Handle: types.InstanceHandle(id*1000 + j)})
			}
		}(i)
	}
	wg.Wait()

	received := 0
	timeout := time.After(time.Second)
loop:
	for received < numEmitters*perEmitter {
		select {
		case <-sub.Out():
			received++
		case <-timeout:
			break loop
		}
	}
	assert.Equal(t, numEmitters*perEmitter, received)
}

// TestConcurrent_SubscribeCloseWhileEmitting 订阅关闭与发射交错时不 panic
func TestConcurrent_SubscribeCloseWhileEmitting(t *testing.T) {
	bus := NewBus()
	em, _ := bus.Emitter(new(types.EvtSamplesTaken))
	defer em.Close()

	stop := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-stop:
				return
			default:
				em.Emit(types.EvtSamplesTaken{Count: 1})
			}
		}
	}()

	for i := 0; i < 100; i++ {
		sub, _ := bus.Subscribe(new(types.EvtSamplesTaken), pkgif.BufSize(1))
		sub.Close()
	}
	close(stop)
	wg.Wait()
}
