// Package matching 评估写端与读端的兼容性并维护匹配记录
//
// 评估顺序：
//
//  1. 主题名与类型名必须完全一致，否则为 IncompatibleType
//  2. 按策略标识顺序比较 offered/requested QoS，不兼容时为 IncompatibleQos
//  3. 分区无交集时为 PartitionMismatch，不产生状态
//
// 默认只报告第一个不兼容的策略，Exhaustive() 报告全部。
//
// 每个参与者拥有一个 Engine，作为发现缓存的观察者：本地端点启用或 QoS 变化、
// 远端端点通告时重新评估；记录丢失或被忽略时删除所有相关匹配。只处理至少
// 一端为本地端点的组合。
//
// 单对评估在注册表锁表的 LockPair 下进行（小句柄先加锁），状态通知和
// Connector 回调在释放锁之后发出。
package matching
