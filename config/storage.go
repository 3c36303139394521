package config

import (
	"fmt"
	"path/filepath"
)

// StorageConfig 存储配置
//
// PERSISTENT 持久性的样本写入 BadgerDB，通过 Key 前缀按主题隔离。
//
// 数据目录结构：
//
//	${DataDir}/
//	└── dds.db/             # BadgerDB 主数据库
//	    ├── 000001.vlog
//	    ├── 000001.sst
//	    └── MANIFEST
type StorageConfig struct {
	// DataDir 数据目录路径
	// 默认值: "./data"
	DataDir string `json:"data_dir" yaml:"data_dir"`

	// EnablePersistence 是否打开 BadgerDB
	//
	// 关闭时 PERSISTENT 样本与 TRANSIENT 一样只保存在进程内。
	EnablePersistence bool `json:"enable_persistence" yaml:"enable_persistence"`

	// SyncWrites 每次写入都同步到磁盘
	SyncWrites bool `json:"sync_writes" yaml:"sync_writes"`
}

// DefaultStorageConfig 返回默认的存储配置
func DefaultStorageConfig() StorageConfig {
	return StorageConfig{
		DataDir: "./data",
	}
}

// Validate 验证存储配置的有效性
func (c *StorageConfig) Validate() error {
	if c.EnablePersistence && c.DataDir == "" {
		return fmt.Errorf("storage: data_dir cannot be empty when persistence is enabled")
	}
	return nil
}

// DBPath 返回 BadgerDB 数据库路径
func (c *StorageConfig) DBPath() string {
	return filepath.Join(c.DataDir, "dds.db")
}
