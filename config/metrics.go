package config

import (
	"errors"
	"regexp"
)

var metricNamespace = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// MetricsConfig 指标配置
type MetricsConfig struct {
	// Enable 是否注册 Prometheus 指标
	Enable bool `json:"enable" yaml:"enable"`

	// Namespace 指标名前缀
	Namespace string `json:"namespace" yaml:"namespace"`
}

// DefaultMetricsConfig 返回默认指标配置
func DefaultMetricsConfig() MetricsConfig {
	return MetricsConfig{
		Enable:    true,
		Namespace: "dds",
	}
}

// Validate 验证指标配置
func (c *MetricsConfig) Validate() error {
	if c.Enable && !metricNamespace.MatchString(c.Namespace) {
		return errors.New("metrics: namespace must be a valid prometheus identifier")
	}
	return nil
}
