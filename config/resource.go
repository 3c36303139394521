package config

import "errors"

// ResourceConfig 资源配置
type ResourceConfig struct {
	// ClosedEntityHistory 记住的已关闭句柄数量
	//
	// 对这些句柄的操作返回 ErrAlreadyClosed 而不是 ErrNotFound。
	ClosedEntityHistory int `json:"closed_entity_history" yaml:"closed_entity_history"`

	// DispatchQueueSize 回调队列告警阈值
	//
	// 队列本身不设上限，积压超过该值时输出限频告警。
	DispatchQueueSize int `json:"dispatch_queue_size" yaml:"dispatch_queue_size"`
}

// DefaultResourceConfig 返回默认资源配置
func DefaultResourceConfig() ResourceConfig {
	return ResourceConfig{
		ClosedEntityHistory: 1024,
		DispatchQueueSize:   256,
	}
}

// Validate 验证资源配置
func (c *ResourceConfig) Validate() error {
	if c.ClosedEntityHistory <= 0 {
		return errors.New("resource: closed_entity_history must be positive")
	}
	if c.DispatchQueueSize <= 0 {
		return errors.New("resource: dispatch_queue_size must be positive")
	}
	return nil
}
