package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// FromJSON 从 JSON 数据创建配置
//
// 未出现的字段保留默认值。
//
// 示例 JSON:
//
//	{
//	  "discovery": {"lease_duration": "10s", "announce_period": "3s"},
//	  "storage": {"enable_persistence": true, "data_dir": "/var/lib/dds"}
//	}
func FromJSON(data []byte) (*Config, error) {
	cfg := NewConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return cfg, nil
}

// FromYAML 从 YAML 数据创建配置
func FromYAML(data []byte) (*Config, error) {
	cfg := NewConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return cfg, nil
}

// LoadFile 按扩展名加载配置文件并验证
//
// .yaml / .yml 使用 YAML，其余按 JSON 解析。
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	var cfg *Config
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		cfg, err = FromYAML(data)
	default:
		cfg, err = FromJSON(data)
	}
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// ApplyPreset 应用预设配置
//
// 支持的预设：
//   - "default": 默认值
//   - "embedded": 小容量、短租约，适合单进程测试和嵌入式设备
//   - "persistent": 启用 BadgerDB 并同步写入
func ApplyPreset(cfg *Config, presetName string) error {
	if cfg == nil {
		return fmt.Errorf("config is nil")
	}

	switch presetName {
	case "default":
		*cfg = *NewConfig()
	case "embedded":
		cfg.Discovery.LeaseDuration = Duration(5 * time.Second)
		cfg.Discovery.AnnouncePeriod = Duration(time.Second)
		cfg.Discovery.LeaseCheckInterval = Duration(500 * time.Millisecond)
		cfg.Discovery.MaxIgnored = 64
		cfg.Discovery.IgnoreReplacement = true
		cfg.Discovery.LostHistory = 32
		cfg.Resource.ClosedEntityHistory = 128
		cfg.Resource.DispatchQueueSize = 64
		cfg.Metrics.Enable = false
	case "persistent":
		cfg.Storage.EnablePersistence = true
		cfg.Storage.SyncWrites = true
	default:
		return fmt.Errorf("unknown preset: %s", presetName)
	}
	return nil
}

// CloneConfig 克隆配置
//
// 所有子配置都是值类型，浅拷贝即深拷贝。
func CloneConfig(cfg *Config) *Config {
	if cfg == nil {
		return nil
	}
	cloned := *cfg
	return &cloned
}
