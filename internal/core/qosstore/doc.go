// Package qosstore 保存每个实体当前生效的 QoS
//
// QoS 集合是不可变值（写时复制），Get 直接返回存储的集合，无需防御性拷贝。
// Set 在实体启用后拒绝修改不可变策略，成功时发射 types.EvtQosChanged。
//
// 默认 QoS 按作用域保存：参与者句柄作用域下是该参与者为子实体设置的默认值，
// types.HandleNil 作用域是 Factory 级的参与者默认值。
package qosstore
