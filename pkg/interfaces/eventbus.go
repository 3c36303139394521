package interfaces

// EventBus 进程内事件总线
//
// 事件按 Go 类型路由：Subscribe(new(types.EvtMatched)) 只收到 types.EvtMatched。
type EventBus interface {
	// Subscribe 订阅指定类型的事件，eventType 必须是指针
	Subscribe(eventType any, opts ...SubscriptionOpt) (Subscription, error)

	// Emitter 获取指定类型的发射器，eventType 必须是指针
	Emitter(eventType any, opts ...EmitterOpt) (Emitter, error)

	// EventTypes 返回所有已注册的事件类型名称
	EventTypes() []string
}

// Subscription 事件订阅
type Subscription interface {
	// Out 返回接收事件的通道，Close 后通道关闭
	Out() <-chan any

	// Close 取消订阅
	Close() error
}

// Emitter 事件发射器
type Emitter interface {
	// Emit 发射事件，不阻塞；订阅者缓冲区满时事件被丢弃并计数
	Emit(event any) error

	// Close 关闭发射器
	Close() error
}

// SubscriptionOpt 订阅选项
type SubscriptionOpt func(*SubscriptionSettings)

// EmitterOpt 发射器选项
type EmitterOpt func(*EmitterSettings)

// SubscriptionSettings 订阅设置
type SubscriptionSettings struct {
	Buffer int
}

// EmitterSettings 发射器设置
type EmitterSettings struct {
	Stateful bool
}

// BufSize 设置订阅缓冲区大小
func BufSize(size int) SubscriptionOpt {
	return func(s *SubscriptionSettings) {
		s.Buffer = size
	}
}

// Stateful 新订阅者会立即收到最后一个事件
func Stateful() EmitterOpt {
	return func(s *EmitterSettings) {
		s.Stateful = true
	}
}
