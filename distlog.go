package dds

import (
	"context"
	"errors"
	"log/slog"

	"go.uber.org/multierr"

	"github.com/dep2p/go-dds/internal/core/distlog"
	"github.com/dep2p/go-dds/pkg/qos"
	"github.com/dep2p/go-dds/pkg/types"
)

// ============================================================================
//                              分布式日志
// ============================================================================

// LogMessage 分布式日志样本
type LogMessage = distlog.LogMessage

// LogOption 分布式日志选项
type LogOption = distlog.Option

// 分布式日志选项
var (
	// WithLogLevel 过滤级别，默认 Info
	WithLogLevel = distlog.WithLevel
	// WithLogCategory 默认分类，记录中的 "category" 属性优先
	WithLogCategory = distlog.WithCategory
	// WithLogHost 主机名，默认 os.Hostname
	WithLogHost = distlog.WithHost
)

// LogTopicName 分布式日志主题
const LogTopicName = distlog.Topic

// logTypeSupport 日志类型，以分类为实例键
var logTypeSupport = TypeSupport[LogMessage]{
	Name: distlog.TypeName,
	Key:  LogMessage.Key,
}

// DistributedLogger 把日志记录发布到 dds/distlog 主题的 slog.Logger
type DistributedLogger struct {
	*slog.Logger

	pub    *Publisher
	writer *DataWriter[LogMessage]
}

// logTopic 查找或创建日志主题
func logTopic(p *DomainParticipant) (*Topic, error) {
	if err := RegisterType(p, logTypeSupport); err != nil {
		return nil, err
	}
	t, err := p.FindTopic(LogTopicName)
	if err == nil {
		return t, nil
	}
	if !errors.Is(err, types.ErrNotFound) {
		return nil, err
	}
	return p.CreateTopic(LogTopicName, logTypeSupport.Name)
}

// logQos 日志端点 QoS：可靠传输，每个分类保留最近的记录
func logQos() EntityOption {
	return WithQos(
		qos.Reliability{Kind: qos.ReliabilityReliable},
		qos.History{Kind: qos.HistoryKeepLast, Depth: 64},
	)
}

// NewDistributedLogger 在参与者上创建分布式日志
//
// 日志写端挂在独立的发布者下，Close 时一并关闭。
func NewDistributedLogger(p *DomainParticipant, opts ...LogOption) (*DistributedLogger, error) {
	topic, err := logTopic(p)
	if err != nil {
		return nil, err
	}
	pub, err := p.CreatePublisher()
	if err != nil {
		return nil, err
	}
	w, err := NewDataWriter[LogMessage](pub, topic, logQos())
	if err != nil {
		_ = pub.Close()
		return nil, err
	}
	h := distlog.NewHandler(distlog.PublishFunc(func(_ context.Context, msg LogMessage) error {
		return w.Write(msg)
	}), opts...)
	return &DistributedLogger{Logger: slog.New(h), pub: pub, writer: w}, nil
}

// Writer 返回日志写端
func (l *DistributedLogger) Writer() *DataWriter[LogMessage] {
	return l.writer
}

// Close 关闭日志写端和它的发布者
func (l *DistributedLogger) Close() error {
	return multierr.Combine(l.writer.Close(), l.pub.Close())
}

// NewLogReader 在订阅者下创建日志读端
func NewLogReader(sub *Subscriber, opts ...EntityOption) (*DataReader[LogMessage], error) {
	p := sub.Participant()
	topic, err := logTopic(p)
	if err != nil {
		return nil, err
	}
	return NewDataReader[LogMessage](sub, topic, append([]EntityOption{logQos()}, opts...)...)
}
