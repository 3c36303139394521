// Package transport 提供参与者之间的发现与数据传输
//
// 传输接口见 pkg/interfaces.Transport。当前实现：
//
//	loopback/  - 进程内的域集线器，同一工厂内的参与者互相可见
//
// 线协议编码和网络传输插件不在本模块范围内。
//
// # Fx 模块集成
//
//	fx.New(
//	    transport.Module(),
//	    fx.Invoke(func(t pkgif.Transport) { ... }),
//	)
package transport
