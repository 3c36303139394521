package types

import (
	"errors"
	"fmt"

	"github.com/dep2p/go-dds/pkg/qos"
)

// ============================================================================
//                              返回码
// ============================================================================

var (
	// ErrPreconditionNotMet 实体状态不允许该操作（已关闭、父实体缺失等）
	ErrPreconditionNotMet = errors.New("precondition not met")

	// ErrResourceLimitExceeded 超出资源限制
	ErrResourceLimitExceeded = errors.New("resource limit exceeded")

	// ErrNotFound 句柄或名称不存在
	ErrNotFound = errors.New("not found")

	// ErrBadParameter 参数无效
	ErrBadParameter = errors.New("bad parameter")

	// ErrNotEnabled 实体尚未启用
	ErrNotEnabled = errors.New("entity not enabled")

	// ErrAlreadyClosed 实体已关闭，同时满足 errors.Is(err, ErrPreconditionNotMet)
	ErrAlreadyClosed = fmt.Errorf("entity already closed: %w", ErrPreconditionNotMet)

	// ErrIgnored 记录来自被忽略的实体
	ErrIgnored = errors.New("entity ignored")
)

// QoS 错误由 pkg/qos 定义，这里重导出
var (
	// ErrInvalidQos QoS 策略不一致
	ErrInvalidQos = qos.ErrInvalidQos

	// ErrImmutableQos 启用后修改了不可变策略
	ErrImmutableQos = qos.ErrImmutableQos
)
