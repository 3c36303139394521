package durability

import (
	"fmt"

	"go.uber.org/multierr"

	"github.com/dep2p/go-dds/internal/core/storage/engine"
	"github.com/dep2p/go-dds/internal/core/storage/kv"
	"github.com/dep2p/go-dds/internal/util/logger"
	"github.com/dep2p/go-dds/pkg/qos"
	"github.com/dep2p/go-dds/pkg/types"
)

var log = logger.Logger("durability")

// kvPrefix 持久化样本在存储引擎中的前缀
var kvPrefix = []byte("dds/durability/")

// Service 工厂级持久性服务，为 TRANSIENT 和 PERSISTENT 写端保存样本
type Service struct {
	transient  *MemoryStore
	persistent Store
}

// NewService 创建持久性服务；eng 为 nil 时 PERSISTENT 退化为内存存储
func NewService(eng engine.InternalEngine) *Service {
	s := &Service{transient: NewMemoryStore()}
	if eng != nil {
		s.persistent = NewKVStore(kv.New(eng, kvPrefix))
	} else {
		s.persistent = s.transient
	}
	return s
}

// Persistent 是否有真正的持久化存储
func (s *Service) Persistent() bool {
	_, ok := s.persistent.(*KVStore)
	return ok
}

// storeFor 返回持久性类型对应的存储，VOLATILE 和 TRANSIENT_LOCAL 返回 nil
func (s *Service) storeFor(kind qos.DurabilityKind) Store {
	switch kind {
	case qos.DurabilityTransient:
		return s.transient
	case qos.DurabilityPersistent:
		return s.persistent
	default:
		return nil
	}
}

// Record 按写端 QoS 保存一条消息
func (s *Service) Record(topic string, writerQos qos.Set, msg types.DataMessage) error {
	store := s.storeFor(writerQos.Durability().Kind)
	if store == nil {
		return nil
	}
	rec, err := FromMessage(msg)
	if err != nil {
		return err
	}
	depth := qos.InstanceLimit(writerQos.History(), writerQos.ResourceLimits())
	if err := store.Append(topic, rec, depth); err != nil {
		return fmt.Errorf("record sample on %q: %w", topic, err)
	}
	return nil
}

// Replay 返回读端可见的已保存消息
//
// 读端请求的持久性决定可见范围：TRANSIENT 读端只看内存存储，PERSISTENT 读端两者都看。
func (s *Service) Replay(topic string, readerDurability qos.DurabilityKind) ([]types.DataMessage, error) {
	var stores []Store
	switch readerDurability {
	case qos.DurabilityTransient:
		stores = []Store{s.transient}
	case qos.DurabilityPersistent:
		stores = []Store{s.transient}
		if s.persistent != Store(s.transient) {
			stores = append(stores, s.persistent)
		}
	default:
		return nil, nil
	}

	var recs []Record
	for _, st := range stores {
		loaded, err := st.Load(topic)
		if err != nil {
			return nil, err
		}
		recs = append(recs, loaded...)
	}
	sortRecords(recs)
	out := make([]types.DataMessage, len(recs))
	for i, r := range recs {
		out[i] = r.Message()
	}
	log.Debug("replaying durable samples", "topic", topic, "count", len(out))
	return out, nil
}

// Drop 删除主题在所有存储中的样本
func (s *Service) Drop(topic string) error {
	err := s.transient.Drop(topic)
	if s.Persistent() {
		err = multierr.Append(err, s.persistent.Drop(topic))
	}
	return err
}

// Close 关闭存储
func (s *Service) Close() error {
	err := s.transient.Close()
	if s.Persistent() {
		err = multierr.Append(err, s.persistent.Close())
	}
	return err
}
