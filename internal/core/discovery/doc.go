// Package discovery 维护参与者视角下已知的实体记录
//
// 每个本地参与者拥有一个 Cache，保存本地实体（由注册表生命周期驱动，永不过期）
// 和经传输层发现的远端实体（带租约）。
//
// 记录状态机：
//
//	Unknown --OnAnnounce--> Announced --OnLost/租约过期--> Lost
//	                           |
//	                           +------Ignore-------------> Ignored
//
// Lost 和 Ignored 是终态：同一 GUID 之后再次通告会得到新句柄（被忽略的 GUID
// 直接丢弃）。最近丢失或忽略的句柄保存在有界历史中，State 仍可查询。
//
// 观察者（匹配引擎）在不持有缓存锁时被同步回调。
package discovery
