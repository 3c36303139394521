// Package status 维护每个实体的通信状态计数并把变化路由到监听器
//
// 计数器遵循 DDS 的读取即清零语义：*Status 方法返回当前状态并把 *Change
// 字段清零，同时清除注册表中的状态变化标志。
//
// 每次更新都会置位实体的状态变化标志，然后沿 实体 → 发布者/订阅者 → 参与者
// 查找掩码包含该状态的最近监听器，在调度器 goroutine 上调用 Notifier。
// 读端收到数据时，若订阅者链上有关注 DATA_ON_READERS 的监听器，优先通知它。
package status
