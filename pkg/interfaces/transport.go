package interfaces

import (
	"github.com/dep2p/go-dds/pkg/types"
)

// Transport 发现与数据传输
//
// 每个参与者通过 Attach 获得一个会话；同一域内其他参与者的通告、
// 撤回和发往本参与者读端的样本通过 TransportSink 回调交付。
type Transport interface {
	// Attach 把参与者接入域
	//
	// prefix 是参与者 GUID 前缀，用于把样本路由到读端所在的参与者。
	Attach(domainID uint32, prefix types.GUIDPrefix, sink TransportSink) (TransportSession, error)

	// Close 关闭传输，所有会话失效
	Close() error
}

// TransportSession 参与者的传输会话
type TransportSession interface {
	// Announce 向域内其他参与者通告（或重新通告）一条记录
	Announce(record types.EntityRecord) error

	// Withdraw 显式撤回一条记录，接收方视为丢失
	Withdraw(guid types.GUID) error

	// Deliver 把一次变更交给读端所在的参与者
	Deliver(reader types.GUID, msg types.DataMessage) error

	// Close 离开域
	Close() error
}

// TransportSink 接收传输层回调
//
// 回调在发送方的 goroutine 上同步执行，实现不得阻塞。
type TransportSink interface {
	// OnAnnounce 收到远端记录
	OnAnnounce(record types.EntityRecord)

	// OnWithdraw 远端记录被撤回
	OnWithdraw(guid types.GUID)

	// OnSample 收到发往本地读端的变更
	OnSample(reader types.GUID, msg types.DataMessage)
}
