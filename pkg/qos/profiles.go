package qos

import "time"

// ============================================================================
//                              实体默认配置
// ============================================================================

// DefaultParticipant 参与者默认 QoS
func DefaultParticipant() Set {
	return NewSet(EntityFactory{AutoenableCreatedEntities: true})
}

// DefaultPublisher 发布者默认 QoS
func DefaultPublisher() Set {
	return NewSet(
		Presentation{AccessScope: AccessScopeInstance},
		EntityFactory{AutoenableCreatedEntities: true},
	)
}

// DefaultSubscriber 订阅者默认 QoS
func DefaultSubscriber() Set {
	return DefaultPublisher()
}

// DefaultTopic 主题默认 QoS
func DefaultTopic() Set {
	return NewSet(
		Reliability{Kind: ReliabilityBestEffort, MaxBlockingTime: 100 * time.Millisecond},
		Durability{Kind: DurabilityVolatile},
		History{Kind: HistoryKeepLast, Depth: 1},
	)
}

// DefaultWriter 写端默认 QoS：可靠传输，KeepLast(1)
func DefaultWriter() Set {
	return NewSet(
		Reliability{Kind: ReliabilityReliable, MaxBlockingTime: 100 * time.Millisecond},
		Durability{Kind: DurabilityVolatile},
		History{Kind: HistoryKeepLast, Depth: 1},
		Liveliness{Kind: LivelinessAutomatic, LeaseDuration: Infinite},
	)
}

// DefaultReader 读端默认 QoS：尽力而为，KeepLast(1)
func DefaultReader() Set {
	return NewSet(
		Reliability{Kind: ReliabilityBestEffort, MaxBlockingTime: 100 * time.Millisecond},
		Durability{Kind: DurabilityVolatile},
		History{Kind: HistoryKeepLast, Depth: 1},
		Liveliness{Kind: LivelinessAutomatic, LeaseDuration: Infinite},
	)
}

// ============================================================================
//                              预设配置
// ============================================================================

// SensorData 传感器数据：尽力而为、易失、KeepLast(5)
func SensorData() Set {
	return DefaultReader().With(
		Reliability{Kind: ReliabilityBestEffort},
		History{Kind: HistoryKeepLast, Depth: 5},
	)
}

// TransientLocal 迟到订阅者可获得最后一个样本：可靠、TransientLocal、KeepLast(1)
func TransientLocal() Set {
	return DefaultWriter().With(
		Reliability{Kind: ReliabilityReliable, MaxBlockingTime: 100 * time.Millisecond},
		Durability{Kind: DurabilityTransientLocal},
		History{Kind: HistoryKeepLast, Depth: 1},
	)
}

// KeepAll 保留全部样本：可靠、KeepAll
func KeepAll() Set {
	return DefaultWriter().With(History{Kind: HistoryKeepAll})
}
