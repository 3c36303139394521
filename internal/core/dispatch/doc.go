// Package dispatch 在中间件拥有的 goroutine 上执行监听器回调
//
// 所有回调按入队顺序在单个工作 goroutine 上串行执行，从不在调用方的
// goroutine 上执行。队列不设上限：回调内部再次触发状态变化时不会因为
// 等待自己的队列而死锁；积压超过阈值时输出限频告警。
//
// Quiesce 是关闭屏障：丢弃该句柄尚在排队的回调，并等待正在执行的回调结束。
// 回调内部调用 Quiesce（例如在回调里关闭所属实体或其祖先）不等待该回调自身，
// 工作 goroutine 由 OnWorker 识别。
package dispatch
