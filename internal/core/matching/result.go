package matching

import (
	"fmt"
	"slices"
	"strings"

	"github.com/dep2p/go-dds/pkg/qos"
	"github.com/dep2p/go-dds/pkg/types"
)

// ============================================================================
//                              评估结果
// ============================================================================

// Outcome 评估结论
type Outcome int

const (
	// Compatible 兼容
	Compatible Outcome = iota
	// IncompatibleQos QoS 不兼容
	IncompatibleQos
	// IncompatibleType 主题名或类型不一致
	IncompatibleType
	// PartitionMismatch 分区无交集
	PartitionMismatch
)

// String 返回结论名称
func (o Outcome) String() string {
	switch o {
	case Compatible:
		return "compatible"
	case IncompatibleQos:
		return "incompatible_qos"
	case IncompatibleType:
		return "incompatible_type"
	case PartitionMismatch:
		return "partition_mismatch"
	default:
		return "unknown"
	}
}

// Result 一次评估的结果
type Result struct {
	Outcome Outcome
	// Policies 不兼容的策略，仅 IncompatibleQos 时非空
	Policies []qos.PolicyKind
}

// Compatible 是否兼容
func (r Result) Compatible() bool {
	return r.Outcome == Compatible
}

// Equal 比较两个结果
func (r Result) Equal(o Result) bool {
	return r.Outcome == o.Outcome && slices.Equal(r.Policies, o.Policies)
}

// String 返回可读描述
func (r Result) String() string {
	if r.Outcome != IncompatibleQos {
		return r.Outcome.String()
	}
	names := make([]string, len(r.Policies))
	for i, k := range r.Policies {
		names[i] = k.String()
	}
	return fmt.Sprintf("%s(%s)", r.Outcome, strings.Join(names, ","))
}

// ============================================================================
//                              评估选项
// ============================================================================

type evalOptions struct {
	exhaustive bool
}

// EvalOption 评估选项
type EvalOption func(*evalOptions)

// Exhaustive 报告全部不兼容策略而不是第一个
func Exhaustive() EvalOption {
	return func(o *evalOptions) { o.exhaustive = true }
}

// ============================================================================
//                              评估
// ============================================================================

// Evaluate 评估写端记录与读端记录
//
// 端点记录的 QoS 中携带其发布者/订阅者的 Partition。
func Evaluate(writer, reader types.EntityRecord, opts ...EvalOption) Result {
	var o evalOptions
	for _, opt := range opts {
		opt(&o)
	}

	if writer.TopicName != reader.TopicName || writer.TypeName != reader.TypeName {
		return Result{Outcome: IncompatibleType}
	}
	if failed := qos.Check(writer.Qos, reader.Qos, o.exhaustive); len(failed) > 0 {
		return Result{Outcome: IncompatibleQos, Policies: failed}
	}
	if !qos.PartitionsMatch(writer.Qos.Partition(), reader.Qos.Partition()) {
		return Result{Outcome: PartitionMismatch}
	}
	return Result{Outcome: Compatible}
}
