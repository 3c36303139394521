package dds

import "github.com/dep2p/go-dds/pkg/types"

// 公共错误定义，用 errors.Is 判断
var (
	// ────────────────────────────────────────────────────────────────────────
	// 实体状态
	// ────────────────────────────────────────────────────────────────────────

	// ErrPreconditionNotMet 实体状态不允许该操作（已关闭、工厂已结束等）
	ErrPreconditionNotMet = types.ErrPreconditionNotMet

	// ErrNotEnabled 实体尚未启用
	ErrNotEnabled = types.ErrNotEnabled

	// ────────────────────────────────────────────────────────────────────────
	// QoS
	// ────────────────────────────────────────────────────────────────────────

	// ErrInvalidQos QoS 策略不一致
	ErrInvalidQos = types.ErrInvalidQos

	// ErrImmutableQos 启用后修改了不可变策略
	ErrImmutableQos = types.ErrImmutableQos

	// ────────────────────────────────────────────────────────────────────────
	// 参数与资源
	// ────────────────────────────────────────────────────────────────────────

	// ErrResourceLimitExceeded 超出资源限制
	ErrResourceLimitExceeded = types.ErrResourceLimitExceeded

	// ErrNotFound 句柄或名称不存在
	ErrNotFound = types.ErrNotFound

	// ErrBadParameter 参数无效
	ErrBadParameter = types.ErrBadParameter

	// ErrIgnored 实体已被忽略
	ErrIgnored = types.ErrIgnored
)
