// Package dds 实现 DDS 发布订阅的实体模型、发现与匹配
//
// # 核心概念
//
//   - Factory: 参与者工厂，持有注册表、调度器、传输和持久化服务
//   - DomainParticipant: 域参与者，拥有发现缓存和匹配引擎
//   - Publisher / Subscriber: 写端和读端分组，承载 Partition 等分组策略
//   - Topic: 主题名加类型名
//   - DataWriter[T] / DataReader[T]: 类型化的写端和读端
//
// 写端与读端在主题名、类型名相同且 QoS 兼容（写端提供 ≥ 读端请求）时匹配。
// 匹配后写端的样本进入读端的样本缓存，由 Read/Take 取出。
//
// # 快速开始
//
//	f, err := dds.NewFactory()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer f.Finalize()
//
//	p, _ := f.CreateParticipant(0)
//	ts := dds.TypeSupport[Temp]{Name: "Temp", Key: func(t Temp) string { return t.Sensor }}
//	_ = dds.RegisterType(p, ts)
//	topic, _ := p.CreateTopic("temperature", ts.Name)
//
//	pub, _ := p.CreatePublisher()
//	w, _ := dds.NewDataWriter[Temp](pub, topic)
//
//	sub, _ := p.CreateSubscriber()
//	r, _ := dds.NewDataReader[Temp](sub, topic, dds.WithListener(myListener))
//
//	_ = w.Write(Temp{Sensor: "s1", Value: 21.5})
//	samples, _ := r.Take()
//
// # 实体层次
//
//	Factory
//	└── DomainParticipant (domainID)
//	    ├── Topic
//	    ├── Publisher ── DataWriter[T]
//	    ├── Subscriber ── DataReader[T]
//	    └── BuiltinSubscriber ── DCPSParticipant / DCPSTopic / DCPSPublication / DCPSSubscription
//
// 关闭实体时先关闭其全部子实体。关闭是幂等的，返回时该实体的监听器回调已全部结束。
//
// # 监听器
//
// 监听器是实现了若干能力接口（DataAvailableListener、PublicationMatchedListener 等）
// 的任意值，掩码由实现的接口推导。状态变化沿父链投递给最近一个掩码包含该状态的监听器。
// 回调在调度 goroutine 上执行，回调收到的实体调用 Close 时关闭推迟到回调返回后。
//
// # 文件组织
//
//	dds/
//	├── factory.go      # Factory、参与者创建
//	├── fx.go           # Fx 模块装配
//	├── participant.go  # DomainParticipant、通告、传输回调、数据通路
//	├── topic.go        # Topic
//	├── publisher.go    # Publisher
//	├── subscriber.go   # Subscriber
//	├── writer.go       # DataWriter[T]
//	├── reader.go       # DataReader[T]
//	├── selector.go     # 条件读取
//	├── builtin.go      # 内置主题与内置订阅者
//	├── listener.go     # 监听器接口与投递
//	├── distlog.go      # 分布式日志
//	├── options.go      # 工厂与实体选项
//	├── types.go        # 类型别名
//	└── errors.go       # 错误定义
package dds
