// Package eventbus 实现进程内事件总线
//
// 注册表、发现缓存、匹配引擎和读端缓存把生命周期、发现、匹配、样本事件
// 发射到总线上，指标模块订阅这些事件。事件按 Go 类型路由：
//
//	sub, _ := bus.Subscribe(new(types.EvtMatched), pkgif.BufSize(64))
//	defer sub.Close()
//
//	em, _ := bus.Emitter(new(types.EvtMatched))
//	defer em.Close()
//	em.Emit(types.EvtMatched{Writer: w, Reader: r})
//
// Emit 从不阻塞：订阅者缓冲区满时事件被丢弃，丢弃数可由 Dropped 查询，
// 慢消费者告警按时间节流。需要可靠送达的回调走 dispatch 包，而不是事件总线。
package eventbus
