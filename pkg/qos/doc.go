// Package qos 定义 DDS QoS 策略与策略集合
//
// 本包是 QoS 相关的最底层包，不依赖任何其他 go-dds 内部包：
//   - policy.go   - PolicyKind 以及全部策略值类型
//   - set.go      - Set：不可变（copy-on-write）的策略集合
//   - datatag.go  - DataTag 策略（字符串键值标签）
//   - validate.go - 纯函数一致性校验 Validate
//   - compat.go   - 写端 offered / 读端 requested 兼容性比较
//   - partition.go - Partition 匹配（支持通配符）
//   - profiles.go - 常用预设配置
//
// # 不可变语义
//
// Set 的所有修改方法（With、Without、Merge）都返回新的集合，
// 原集合保持不变。调用方可以安全地在多个 goroutine 间共享 Set。
//
//	q := qos.DefaultWriter().With(qos.Reliability{Kind: qos.ReliabilityBestEffort})
//	if err := qos.Validate(q); err != nil {
//	    return err
//	}
package qos
