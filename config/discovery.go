package config

import (
	"errors"
	"time"
)

// DiscoveryConfig 发现配置
//
// 控制远端实体记录的租约、公告节奏以及忽略列表容量。
type DiscoveryConfig struct {
	// LeaseDuration 本地参与者公告的租约时长
	LeaseDuration Duration `json:"lease_duration" yaml:"lease_duration"`

	// AnnouncePeriod 本地参与者重新公告的周期，必须小于租约
	AnnouncePeriod Duration `json:"announce_period" yaml:"announce_period"`

	// LeaseCheckInterval 检查远端租约过期的间隔
	LeaseCheckInterval Duration `json:"lease_check_interval" yaml:"lease_check_interval"`

	// MaxIgnored 每个参与者忽略列表的容量
	MaxIgnored int `json:"max_ignored" yaml:"max_ignored"`

	// IgnoreReplacement 忽略列表满时是否淘汰最旧条目
	//
	// 为 false 时满了之后的 Ignore 调用返回 ErrResourceLimitExceeded。
	IgnoreReplacement bool `json:"ignore_replacement" yaml:"ignore_replacement"`

	// LostHistory 保留的已丢失远端记录数量
	LostHistory int `json:"lost_history" yaml:"lost_history"`
}

// DefaultDiscoveryConfig 返回默认发现配置
func DefaultDiscoveryConfig() DiscoveryConfig {
	return DiscoveryConfig{
		LeaseDuration:      Duration(30 * time.Second),
		AnnouncePeriod:     Duration(10 * time.Second),
		LeaseCheckInterval: Duration(time.Second),
		MaxIgnored:         1024,
		LostHistory:        256,
	}
}

// Validate 验证发现配置
func (c *DiscoveryConfig) Validate() error {
	if c.LeaseDuration <= 0 {
		return errors.New("discovery: lease_duration must be positive")
	}
	if c.AnnouncePeriod <= 0 || c.AnnouncePeriod >= c.LeaseDuration {
		return errors.New("discovery: announce_period must be positive and shorter than lease_duration")
	}
	if c.LeaseCheckInterval <= 0 {
		return errors.New("discovery: lease_check_interval must be positive")
	}
	if c.MaxIgnored <= 0 {
		return errors.New("discovery: max_ignored must be positive")
	}
	if c.LostHistory <= 0 {
		return errors.New("discovery: lost_history must be positive")
	}
	return nil
}
