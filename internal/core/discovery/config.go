package discovery

import (
	"time"

	"github.com/dep2p/go-dds/config"
)

// Config 发现缓存配置
type Config struct {
	// LeaseDuration 远端记录未携带租约时使用的默认租约
	LeaseDuration time.Duration
	// AnnouncePeriod 本地参与者重新通告的周期
	AnnouncePeriod time.Duration
	// LeaseCheckInterval 租约检查间隔
	LeaseCheckInterval time.Duration
	// MaxIgnored 忽略列表容量
	MaxIgnored int
	// IgnoreReplacement 忽略列表满时淘汰最旧条目
	IgnoreReplacement bool
	// LostHistory 已丢失/忽略记录的历史容量
	LostHistory int
}

// DefaultConfig 返回默认配置
func DefaultConfig() Config {
	return ConfigFromUnified(nil)
}

// ConfigFromUnified 从统一配置创建发现配置
func ConfigFromUnified(cfg *config.Config) Config {
	d := config.DefaultDiscoveryConfig()
	if cfg != nil {
		d = cfg.Discovery
	}
	return Config{
		LeaseDuration:      d.LeaseDuration.Duration(),
		AnnouncePeriod:     d.AnnouncePeriod.Duration(),
		LeaseCheckInterval: d.LeaseCheckInterval.Duration(),
		MaxIgnored:         d.MaxIgnored,
		IgnoreReplacement:  d.IgnoreReplacement,
		LostHistory:        d.LostHistory,
	}
}
