// Package types 定义 go-dds 的公共数据结构
//
// 这是最底层的包，只依赖 pkg/qos。所有类型都是值类型，用于在各模块间传递数据。
//
// # 文件组织
//
// 标识:
//   - handle.go  - InstanceHandle, HandleAllocator
//   - guid.go    - GUIDPrefix, EntityID, GUID
//   - key.go     - 数据实例键哈希
//
// 实体:
//   - kind.go    - EntityKind 及父子关系
//   - record.go  - EntityRecord（发现记录）
//
// 数据:
//   - state.go   - 样本/视图/实例状态与 DataState 掩码
//   - sample.go  - Sample, SampleInfo, DataMessage
//
// 状态与事件:
//   - status.go  - StatusKind 掩码与各状态结构
//   - events.go  - 事件总线上的事件类型
//   - errors.go  - 公共错误定义
package types
