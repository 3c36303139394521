// Package registry 维护实体包含关系图
//
// 每个实体由句柄标识，记录类型、父实体（弱引用，父实体拥有子实体的生命周期）、
// 子实体集合、状态（Created → Enabled → Closed）、状态变化标志和监听器绑定。
//
// Close 幂等并深度优先级联：子实体先于父实体关闭。对每个实体依次通知生命周期
// 观察者、执行终结函数、等待回调调度屏障、删除 QoS，最后留下一个有界的墓碑
// 记录供查询。
//
// 锁顺序：注册表锁 → 句柄锁；观察者回调在不持有任何注册表锁时执行。
package registry
