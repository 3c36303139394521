// Package samplecache 实现读端的样本缓存
//
// 每个读端拥有一个 Cache，由一把互斥锁保护，不同读端之间互不竞争。
//
// 容量规则：
//   - KEEP_LAST：实例超出深度（或 max_samples_per_instance）时淘汰该实例最旧的
//     未读样本并计入 SampleLost；全部已读时淘汰最旧样本，不计丢失
//   - KEEP_ALL：实例或总数达到上限时拒绝新样本
//   - max_instances 达到上限时拒绝新实例的样本
//   - max_samples 达到上限且本实例没有可淘汰的样本时拒绝
//
// 被拒绝的样本返回 ErrResourceLimitExceeded 并计入 SampleRejected。
//
// 排序：实例内按源时间戳排序（到达序号打破平局）；跨实例保留到达槽位，
// 即每个实例占用的位置与其样本的到达顺序一致。过滤只做子集，不改变顺序。
package samplecache
