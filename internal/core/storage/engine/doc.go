// Package engine 定义存储引擎的内部接口
//
// 在 pkg/interfaces.Engine 之上增加批量写入和前缀迭代，
// 供持久化样本存储使用。所有实现必须并发安全。
package engine
