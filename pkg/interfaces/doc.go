// Package interfaces 定义 DDS 核心组件之间的公共接口
//
// 接口文件：
//   - eventbus.go   - 进程内事件总线
//   - storage.go    - 键值存储引擎
//   - transport.go  - 发现与数据传输
package interfaces
