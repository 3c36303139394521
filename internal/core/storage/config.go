package storage

import (
	"path/filepath"
	"time"

	"github.com/dep2p/go-dds/config"
	"github.com/dep2p/go-dds/internal/core/storage/engine"
)

// Config 存储模块配置
type Config struct {
	// Enabled 为 false 时不打开数据库，PERSISTENT 样本退化为进程内保存
	Enabled bool

	// Path BadgerDB 数据库目录
	Path string

	// SyncWrites 是否同步写入
	SyncWrites bool

	// GCInterval 值日志 GC 间隔
	GCInterval time.Duration
}

// DefaultConfig 返回默认配置
func DefaultConfig() Config {
	return Config{
		Path:       filepath.Join("data", "dds.db"),
		GCInterval: 10 * time.Minute,
	}
}

// ConfigFromUnified 从统一配置创建存储配置
func ConfigFromUnified(cfg *config.Config) Config {
	c := DefaultConfig()
	if cfg == nil {
		return c
	}
	c.Enabled = cfg.Storage.EnablePersistence
	c.SyncWrites = cfg.Storage.SyncWrites
	if cfg.Storage.DataDir != "" {
		c.Path = cfg.Storage.DBPath()
	}
	return c
}

// Validate 验证配置
func (c *Config) Validate() error {
	if c.Enabled && c.Path == "" {
		return ErrInvalidConfig
	}
	if c.GCInterval > 0 && c.GCInterval < time.Minute {
		c.GCInterval = time.Minute
	}
	return nil
}

// ToEngineConfig 转换为引擎配置
func (c *Config) ToEngineConfig() *engine.Config {
	ec := engine.DefaultConfig(c.Path)
	ec.SyncWrites = c.SyncWrites
	ec.GCInterval = c.GCInterval
	return ec
}
