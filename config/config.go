// Package config 提供统一的配置管理
//
// 本包采用混合配置模式：
//   - 主 Config 结构体嵌入所有子配置
//   - 每个子配置在独立文件中定义
//   - 支持从 JSON / YAML 加载配置
//   - 支持预设配置（default/embedded/persistent）
//
// 使用示例：
//
//	cfg := config.NewConfig()
//	cfg.Discovery.LeaseDuration = config.Duration(10 * time.Second)
//
//	// 从文件加载（按扩展名选择 JSON 或 YAML）
//	cfg, err := config.LoadFile("dds.yaml")
package config

// Config 是 DDS 的完整配置结构
//
// 配置按照功能模块组织：
//   - Discovery: 发现与租约
//   - Resource: 实体历史与回调队列
//   - Storage: 持久化存储
//   - Metrics: Prometheus 指标
//   - Log: 日志
type Config struct {
	// Discovery 发现配置
	Discovery DiscoveryConfig `json:"discovery" yaml:"discovery"`

	// Resource 资源配置
	Resource ResourceConfig `json:"resource" yaml:"resource"`

	// Storage 存储配置
	Storage StorageConfig `json:"storage" yaml:"storage"`

	// Metrics 指标配置
	Metrics MetricsConfig `json:"metrics" yaml:"metrics"`

	// Log 日志配置
	Log LogConfig `json:"log" yaml:"log"`
}

// NewConfig 创建默认配置
func NewConfig() *Config {
	return &Config{
		Discovery: DefaultDiscoveryConfig(),
		Resource:  DefaultResourceConfig(),
		Storage:   DefaultStorageConfig(),
		Metrics:   DefaultMetricsConfig(),
		Log:       DefaultLogConfig(),
	}
}

// Validate 验证配置的有效性
//
// 检查所有子配置是否有效，如果发现无效配置则返回错误。
func (c *Config) Validate() error {
	if err := c.Discovery.Validate(); err != nil {
		return err
	}
	if err := c.Resource.Validate(); err != nil {
		return err
	}
	if err := c.Storage.Validate(); err != nil {
		return err
	}
	if err := c.Metrics.Validate(); err != nil {
		return err
	}
	if err := c.Log.Validate(); err != nil {
		return err
	}
	return nil
}
