package main

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	dds "github.com/dep2p/go-dds"
	"github.com/dep2p/go-dds/pkg/qos"
)

// ============================================================================
//                              演示类型
// ============================================================================

// heartbeatTopic 演示参与者发布心跳的主题
const heartbeatTopic = "ddsspy/heartbeat"

// Heartbeat 演示样本，以节点名为实例键
type Heartbeat struct {
	Node string
	Seq  int
	At   time.Time
}

var heartbeatType = dds.TypeSupport[Heartbeat]{
	Name: "ddsspy.Heartbeat",
	Key:  func(h Heartbeat) string { return h.Node },
}

func heartbeatQos() dds.EntityOption {
	return dds.WithQos(
		qos.Reliability{Kind: qos.ReliabilityReliable},
		qos.Durability{Kind: qos.DurabilityTransientLocal},
		qos.History{Kind: qos.HistoryKeepLast, Depth: 1},
	)
}

// heartbeatTopicOn 注册心跳类型并查找或创建主题
func heartbeatTopicOn(p *dds.DomainParticipant) (*dds.Topic, error) {
	if err := dds.RegisterType(p, heartbeatType); err != nil {
		return nil, err
	}
	if t, err := p.FindTopic(heartbeatTopic); err == nil {
		return t, nil
	}
	return p.CreateTopic(heartbeatTopic, heartbeatType.Name)
}

// ============================================================================
//                              观察者
// ============================================================================

// spy 持有观察参与者和它的读端
type spy struct {
	p          *dds.DomainParticipant
	builtin    *dds.BuiltinSubscriber
	heartbeats *dds.DataReader[Heartbeat]
	logs       *dds.DataReader[dds.LogMessage]

	// 内置主题实例到 GUID 的映射，销毁样本不携带数据
	known map[dds.InstanceHandle]string
}

func newSpy(f *dds.Factory, domainID uint32) (*spy, error) {
	p, err := f.CreateParticipant(domainID)
	if err != nil {
		return nil, fmt.Errorf("创建参与者失败: %w", err)
	}
	b, err := p.BuiltinSubscriber()
	if err != nil {
		return nil, err
	}
	topic, err := heartbeatTopicOn(p)
	if err != nil {
		return nil, err
	}
	sub, err := p.CreateSubscriber()
	if err != nil {
		return nil, err
	}
	hb, err := dds.NewDataReader[Heartbeat](sub, topic, heartbeatQos())
	if err != nil {
		return nil, err
	}
	logs, err := dds.NewLogReader(sub)
	if err != nil {
		return nil, err
	}
	return &spy{p: p, builtin: b, heartbeats: hb, logs: logs, known: make(map[dds.InstanceHandle]string)}, nil
}

// run 按间隔轮询所有读端直到 ctx 结束
func (s *spy) run(ctx context.Context, every time.Duration) error {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		if err := s.poll(); err != nil {
			return err
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func (s *spy) poll() error {
	parts, err := s.builtin.ParticipantReader().Take()
	if err != nil {
		return err
	}
	for _, smp := range parts {
		s.report("participant", smp.Info, func() string {
			return fmt.Sprintf("%s domain=%d lease=%s", smp.Data.Key, smp.Data.DomainID, smp.Data.LeaseDuration)
		})
	}

	topics, err := s.builtin.TopicReader().Take()
	if err != nil {
		return err
	}
	for _, smp := range topics {
		s.report("topic", smp.Info, func() string {
			return fmt.Sprintf("%s name=%s type=%s", smp.Data.Key, smp.Data.Name, smp.Data.TypeName)
		})
	}

	pubs, err := s.builtin.PublicationReader().Take()
	if err != nil {
		return err
	}
	for _, smp := range pubs {
		s.report("writer", smp.Info, func() string {
			return fmt.Sprintf("%s topic=%s %s", smp.Data.Key, smp.Data.TopicName, describeQos(smp.Data.Qos))
		})
	}

	subs, err := s.builtin.SubscriptionReader().Take()
	if err != nil {
		return err
	}
	for _, smp := range subs {
		s.report("reader", smp.Info, func() string {
			return fmt.Sprintf("%s topic=%s %s", smp.Data.Key, smp.Data.TopicName, describeQos(smp.Data.Qos))
		})
	}

	hbs, err := s.heartbeats.TakeValid()
	if err != nil {
		return err
	}
	for _, smp := range hbs {
		fmt.Printf("  ♥ %-12s seq=%d at=%s\n", smp.Data.Node, smp.Data.Seq, smp.Data.At.Format(time.TimeOnly))
	}

	logs, err := s.logs.TakeValid()
	if err != nil {
		return err
	}
	for _, smp := range logs {
		fmt.Printf("  [%s] %s/%s %s%s\n", smp.Data.Level, smp.Data.Host, smp.Data.Category, smp.Data.Message, formatAttrs(smp.Data.Attrs))
	}
	return nil
}

// report 打印一条内置主题变化
func (s *spy) report(kind string, info dds.SampleInfo, describe func() string) {
	if info.Valid {
		line := describe()
		s.known[info.InstanceHandle] = strings.Fields(line)[0]
		fmt.Printf("+ %-11s %s\n", kind, line)
		return
	}
	fmt.Printf("- %-11s %s (%s)\n", kind, s.known[info.InstanceHandle], info.InstanceState)
	delete(s.known, info.InstanceHandle)
}

func describeQos(set dds.QosSet) string {
	return fmt.Sprintf("reliability=%s durability=%s", set.Reliability().Kind, set.Durability().Kind)
}

func formatAttrs(attrs map[string]string) string {
	if len(attrs) == 0 {
		return ""
	}
	keys := make([]string, 0, len(attrs))
	for k := range attrs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var b strings.Builder
	for _, k := range keys {
		fmt.Fprintf(&b, " %s=%s", k, attrs[k])
	}
	return b.String()
}

// ============================================================================
//                              演示参与者
// ============================================================================

// runDemo 启动一个演示参与者，按间隔发布心跳和日志，退出时关闭
func runDemo(ctx context.Context, f *dds.Factory, domainID uint32, idx int, every time.Duration) error {
	node := fmt.Sprintf("demo-%d", idx)
	p, err := f.CreateParticipant(domainID)
	if err != nil {
		return err
	}
	defer func() { _ = p.Close() }()

	topic, err := heartbeatTopicOn(p)
	if err != nil {
		return err
	}
	pub, err := p.CreatePublisher()
	if err != nil {
		return err
	}
	w, err := dds.NewDataWriter[Heartbeat](pub, topic, heartbeatQos())
	if err != nil {
		return err
	}
	dl, err := dds.NewDistributedLogger(p, dds.WithLogCategory(node), dds.WithLogHost(node))
	if err != nil {
		return err
	}
	defer func() { _ = dl.Close() }()

	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for seq := 1; ; seq++ {
		if err := w.Write(Heartbeat{Node: node, Seq: seq, At: time.Now()}); err != nil {
			return fmt.Errorf("%s: %w", node, err)
		}
		if seq%5 == 0 {
			dl.Info("heartbeat", "seq", seq, "matched", len(w.MatchedSubscriptions()))
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
