// Package storage 提供 go-dds 的持久化存储
//
// 只有 PERSISTENT 持久性的样本需要跨进程保存，因此存储引擎默认不打开，
// 由 config.Storage.EnablePersistence 控制。打开后引擎由 fx 生命周期管理：
//
//	engine/         - 引擎内部接口
//	engine/badger/  - BadgerDB 实现
//	kv/             - 前缀隔离的 KV 存储
package storage
