// Package kv 提供带前缀隔离的 KV 存储
//
// 键空间约定：
//   - s/<topic>/<instance>/<seq> - 持久化样本
//   - m/<topic>                  - 主题元信息
package kv
