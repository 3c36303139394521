package config

import (
	"fmt"
	"strings"
)

// LogConfig 日志配置
//
// 为空时沿用环境变量 DDS_LOG_LEVEL / DDS_LOG_FORMAT。
type LogConfig struct {
	// Level 日志级别，支持按子系统设置，如 "discovery=debug,info"
	Level string `json:"level,omitempty" yaml:"level,omitempty"`

	// Format 输出格式：text 或 json
	Format string `json:"format,omitempty" yaml:"format,omitempty"`
}

// DefaultLogConfig 返回默认日志配置
func DefaultLogConfig() LogConfig {
	return LogConfig{}
}

// Validate 验证日志配置
func (c *LogConfig) Validate() error {
	switch strings.ToLower(c.Format) {
	case "", "text", "json":
	default:
		return fmt.Errorf("log: unknown format %q", c.Format)
	}
	return nil
}
