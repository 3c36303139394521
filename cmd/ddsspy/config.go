package main

import (
	"os"
	"time"

	"github.com/dep2p/go-dds/config"
)

// ============================================================================
//                              环境变量（CLI 专用）
// ============================================================================

const (
	envPreset         = "DDS_PRESET"
	envDataDir        = "DDS_DATA_DIR"
	envLeaseDuration  = "DDS_LEASE_DURATION"
	envAnnouncePeriod = "DDS_ANNOUNCE_PERIOD"
)

// applyEnvOverrides 应用环境变量覆盖配置
//
// 环境变量优先级高于配置文件，但低于命令行参数。
// 无法解析的值被忽略并记录警告。
func applyEnvOverrides(cfg *config.Config) {
	if v := os.Getenv(envPreset); v != "" && !isFlagSet("preset") {
		if err := config.ApplyPreset(cfg, v); err != nil {
			log.Warn("ignore env", "name", envPreset, "err", err)
		}
	}

	if v := os.Getenv(envDataDir); v != "" {
		cfg.Storage.DataDir = v
		cfg.Storage.EnablePersistence = true
	}

	if v := os.Getenv(envLeaseDuration); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Discovery.LeaseDuration = config.Duration(d)
		} else {
			log.Warn("ignore env", "name", envLeaseDuration, "err", err)
		}
	}

	if v := os.Getenv(envAnnouncePeriod); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Discovery.AnnouncePeriod = config.Duration(d)
		} else {
			log.Warn("ignore env", "name", envAnnouncePeriod, "err", err)
		}
	}
}
