package config

import (
	"errors"
	"fmt"
)

// ValidateAll 验证整个配置的有效性
//
// 这是 Config.Validate() 的别名，接受 nil。
func ValidateAll(c *Config) error {
	if c == nil {
		return errors.New("config is nil")
	}
	return c.Validate()
}

// ValidateAndFix 验证配置并尝试自动修复常见问题
//
// 可修复的问题：
//   - 公告周期不短于租约 -> 取租约的三分之一
//   - 容量为非正数 -> 使用默认值
func ValidateAndFix(c *Config) (*Config, error) {
	if c == nil {
		return NewConfig(), nil
	}

	def := NewConfig()
	if c.Discovery.LeaseDuration <= 0 {
		c.Discovery.LeaseDuration = def.Discovery.LeaseDuration
	}
	if c.Discovery.AnnouncePeriod <= 0 || c.Discovery.AnnouncePeriod >= c.Discovery.LeaseDuration {
		c.Discovery.AnnouncePeriod = c.Discovery.LeaseDuration / 3
	}
	if c.Discovery.LeaseCheckInterval <= 0 {
		c.Discovery.LeaseCheckInterval = def.Discovery.LeaseCheckInterval
	}
	if c.Discovery.MaxIgnored <= 0 {
		c.Discovery.MaxIgnored = def.Discovery.MaxIgnored
	}
	if c.Discovery.LostHistory <= 0 {
		c.Discovery.LostHistory = def.Discovery.LostHistory
	}
	if c.Resource.ClosedEntityHistory <= 0 {
		c.Resource.ClosedEntityHistory = def.Resource.ClosedEntityHistory
	}
	if c.Resource.DispatchQueueSize <= 0 {
		c.Resource.DispatchQueueSize = def.Resource.DispatchQueueSize
	}

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validation failed after fixes: %w", err)
	}
	return c, nil
}

// MustValidate 验证配置，如果失败则 panic
//
// 仅用于初始化阶段或测试代码。
func MustValidate(c *Config) {
	if err := c.Validate(); err != nil {
		panic(fmt.Sprintf("config validation failed: %v", err))
	}
}
