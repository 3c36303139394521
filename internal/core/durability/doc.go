// Package durability 保存写端历史供迟加入的读端回放
//
//   - TRANSIENT_LOCAL：写端自身按实例保存 KEEP_LAST 历史（WriterHistory），写端关闭后丢弃
//   - TRANSIENT：样本写入工厂级内存存储，按主题索引，写端关闭后仍保留
//   - PERSISTENT：样本写入 BadgerDB，进程重启后仍保留；未启用持久化时退化为内存存储
//
// 持久化记录使用 protowire 编码，负载为 JSON：
//
//	1: writer    bytes   写端 GUID
//	2: kind      varint  变更类型
//	3: key       string  实例键
//	4: payload   bytes   JSON 负载
//	5: source    sint64  源时间戳（Unix 纳秒）
//	6: sequence  varint  写端序列号
package durability
