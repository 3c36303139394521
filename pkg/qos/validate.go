package qos

import (
	"errors"
	"fmt"
	"strings"
)

// ============================================================================
//                              错误定义
// ============================================================================

var (
	// ErrInvalidQos QoS 策略集合自身不一致
	ErrInvalidQos = errors.New("inconsistent qos policy")

	// ErrImmutableQos 试图在实体启用后修改不可变策略
	ErrImmutableQos = errors.New("immutable qos policy")
)

// PolicyError 携带相关策略类型的 QoS 错误
type PolicyError struct {
	// Err 为 ErrInvalidQos 或 ErrImmutableQos
	Err error

	// Policies 涉及的策略
	Policies []PolicyKind

	// Reason 说明
	Reason string
}

// Error 实现 error
func (e *PolicyError) Error() string {
	names := make([]string, len(e.Policies))
	for i, k := range e.Policies {
		names[i] = k.String()
	}
	if e.Reason == "" {
		return fmt.Sprintf("%v: [%s]", e.Err, strings.Join(names, ","))
	}
	return fmt.Sprintf("%v: [%s]: %s", e.Err, strings.Join(names, ","), e.Reason)
}

// Unwrap 支持 errors.Is
func (e *PolicyError) Unwrap() error {
	return e.Err
}

func inconsistent(reason string, kinds ...PolicyKind) error {
	return &PolicyError{Err: ErrInvalidQos, Policies: kinds, Reason: reason}
}

// ============================================================================
//                              一致性校验
// ============================================================================

// Validate 校验策略集合的自洽性
//
// 校验是纯函数：相同输入总是得到相同结果，与调用顺序无关。
// 检查按策略标识顺序进行，返回第一个违反的规则。
func Validate(s Set) error {
	deadline := s.Deadline()
	if deadline.Period < 0 {
		return inconsistent("deadline period must not be negative", PolicyDeadline)
	}

	budget := s.LatencyBudget()
	if budget.Duration < 0 {
		return inconsistent("latency budget must not be negative", PolicyLatencyBudget)
	}
	if budget.Duration > deadline.Period {
		return inconsistent("latency budget exceeds deadline period", PolicyLatencyBudget, PolicyDeadline)
	}

	liveliness := s.Liveliness()
	if liveliness.LeaseDuration <= 0 {
		return inconsistent("liveliness lease duration must be positive", PolicyLiveliness)
	}

	filter := s.TimeBasedFilter()
	if filter.MinimumSeparation < 0 {
		return inconsistent("minimum separation must not be negative", PolicyTimeBasedFilter)
	}
	if filter.MinimumSeparation > deadline.Period {
		return inconsistent("minimum separation exceeds deadline period", PolicyTimeBasedFilter, PolicyDeadline)
	}

	for _, name := range s.Partition().Names {
		if name == "" {
			return inconsistent("empty partition name", PolicyPartition)
		}
	}

	if s.Reliability().MaxBlockingTime < 0 {
		return inconsistent("max blocking time must not be negative", PolicyReliability)
	}

	if err := validateHistory(s.History(), s.ResourceLimits()); err != nil {
		return err
	}

	if lifespan := s.Lifespan(); lifespan.Duration <= 0 {
		return inconsistent("lifespan must be positive", PolicyLifespan)
	}

	for _, key := range s.DataTag().Keys() {
		if key == "" {
			return inconsistent("empty data tag key", PolicyDataTag)
		}
	}

	return nil
}

func validateHistory(h History, rl ResourceLimits) error {
	for _, v := range []int{rl.MaxSamples, rl.MaxInstances, rl.MaxSamplesPerInstance} {
		if v != Unlimited && v < 1 {
			return inconsistent("resource limits must be positive or unlimited", PolicyResourceLimits)
		}
	}
	if rl.MaxSamples != Unlimited && rl.MaxSamplesPerInstance != Unlimited &&
		rl.MaxSamplesPerInstance > rl.MaxSamples {
		return inconsistent("max_samples_per_instance exceeds max_samples", PolicyResourceLimits)
	}

	switch h.Kind {
	case HistoryKeepLast:
		if h.Depth < 1 {
			return inconsistent("keep last depth must be at least 1", PolicyHistory)
		}
		if rl.MaxSamplesPerInstance != Unlimited && h.Depth > rl.MaxSamplesPerInstance {
			return inconsistent("history depth exceeds max_samples_per_instance", PolicyHistory, PolicyResourceLimits)
		}
	case HistoryKeepAll:
	default:
		return inconsistent("unknown history kind", PolicyHistory)
	}
	return nil
}

// CheckMutation 检查从 old 到 updated 的修改是否触及不可变策略
//
// 仅在实体已启用时调用。返回的错误包装 ErrImmutableQos。
func CheckMutation(old, updated Set) error {
	var kinds []PolicyKind
	for _, k := range old.Diff(updated) {
		if !k.Mutable() {
			kinds = append(kinds, k)
		}
	}
	if len(kinds) == 0 {
		return nil
	}
	return &PolicyError{Err: ErrImmutableQos, Policies: kinds}
}

// InstanceLimit 返回每实例的有效样本上限（KeepLast 深度与资源限制取小），
// Unlimited 表示无上限
func InstanceLimit(h History, rl ResourceLimits) int {
	limit := rl.MaxSamplesPerInstance
	if h.Kind == HistoryKeepLast {
		if limit == Unlimited || h.Depth < limit {
			limit = h.Depth
		}
	}
	return limit
}
