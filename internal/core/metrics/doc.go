// Package metrics 把事件总线上的 DDS 事件转换为 Prometheus 指标
//
// Collector 持有独立的 prometheus.Registry，不注册到全局默认注册表。
// 指标：
//   - entities_created_total / entities_closed_total / entities_active，按实体类型
//   - discovery_records_total，按记录种类和结果（announced/lost/ignored）
//   - matches_total / unmatches_total / matches_active
//   - incompatible_qos_total，按策略
//   - samples_pushed_total / samples_lost_total / samples_rejected_total（按原因）/ samples_taken_total
//   - samples_push_rate，最近一分钟每秒进入读端缓存的样本数
//
// 模块启动时订阅总线，停止时取消订阅；Observe 可直接调用，便于测试。
package metrics
