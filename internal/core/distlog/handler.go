// Package distlog 实现把日志记录发布为 DDS 样本的 slog.Handler
//
// 每条记录转换为 LogMessage，经 Publisher 写到 dds/distlog 主题，
// 以分类名作为实例键。属性中的 "category" 键覆盖默认分类；
// 组名以点号前缀展开到属性键上。
package distlog

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"
)

const (
	// Topic 分布式日志主题名
	Topic = "dds/distlog"
	// TypeName 分布式日志类型名
	TypeName = "dds::LogMessage"
	// CategoryKey 覆盖分类的属性键
	CategoryKey = "category"
	// DefaultCategory 默认分类
	DefaultCategory = "default"
)

// LogMessage 一条分布式日志
type LogMessage struct {
	Level     slog.Level        `json:"level"`
	Category  string            `json:"category"`
	Message   string            `json:"message"`
	Attrs     map[string]string `json:"attrs,omitempty"`
	Timestamp time.Time         `json:"timestamp"`
	Host      string            `json:"host"`
}

// Key 返回实例键
func (m LogMessage) Key() string {
	return m.Category
}

// Publisher 发布日志样本
type Publisher interface {
	Publish(ctx context.Context, msg LogMessage) error
}

// PublishFunc 函数形式的 Publisher
type PublishFunc func(ctx context.Context, msg LogMessage) error

// Publish 实现 Publisher
func (f PublishFunc) Publish(ctx context.Context, msg LogMessage) error {
	return f(ctx, msg)
}

// Option 处理器选项
type Option func(*options)

type options struct {
	level    slog.Leveler
	category string
	host     string
}

// WithLevel 设置过滤级别，低于该级别的记录不发布
func WithLevel(l slog.Leveler) Option {
	return func(o *options) { o.level = l }
}

// WithCategory 设置默认分类
func WithCategory(c string) Option {
	return func(o *options) { o.category = c }
}

// WithHost 设置主机名，默认取 os.Hostname
func WithHost(h string) Option {
	return func(o *options) { o.host = h }
}

// Handler 发布日志记录的 slog.Handler
type Handler struct {
	pub      Publisher
	level    slog.Leveler
	category string
	host     string
	prefix   string
	attrs    map[string]string
}

var _ slog.Handler = (*Handler)(nil)

// NewHandler 创建处理器
func NewHandler(pub Publisher, opts ...Option) *Handler {
	o := options{level: slog.LevelInfo, category: DefaultCategory}
	for _, opt := range opts {
		opt(&o)
	}
	if o.host == "" {
		o.host, _ = os.Hostname()
	}
	return &Handler{pub: pub, level: o.level, category: o.category, host: o.host}
}

// Enabled 实现 slog.Handler
func (h *Handler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

// Handle 实现 slog.Handler
func (h *Handler) Handle(ctx context.Context, r slog.Record) error {
	msg := LogMessage{
		Level:     r.Level,
		Category:  h.category,
		Message:   r.Message,
		Timestamp: r.Time,
		Host:      h.host,
	}
	if len(h.attrs) > 0 || r.NumAttrs() > 0 {
		msg.Attrs = make(map[string]string, len(h.attrs)+r.NumAttrs())
		for k, v := range h.attrs {
			msg.Attrs[k] = v
		}
		r.Attrs(func(a slog.Attr) bool {
			flatten(msg.Attrs, h.prefix, a)
			return true
		})
	}
	if c, ok := msg.Attrs[CategoryKey]; ok {
		msg.Category = c
		delete(msg.Attrs, CategoryKey)
	}
	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now()
	}
	return h.pub.Publish(ctx, msg)
}

// WithAttrs 实现 slog.Handler
func (h *Handler) WithAttrs(attrs []slog.Attr) slog.Handler {
	if len(attrs) == 0 {
		return h
	}
	next := h.clone()
	for _, a := range attrs {
		flatten(next.attrs, next.prefix, a)
	}
	return next
}

// WithGroup 实现 slog.Handler
func (h *Handler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	next := h.clone()
	next.prefix = h.prefix + name + "."
	return next
}

func (h *Handler) clone() *Handler {
	next := *h
	next.attrs = make(map[string]string, len(h.attrs))
	for k, v := range h.attrs {
		next.attrs[k] = v
	}
	return &next
}

// flatten 把属性展开为点号分隔的键
func flatten(dst map[string]string, prefix string, a slog.Attr) {
	v := a.Value.Resolve()
	if v.Kind() == slog.KindGroup {
		p := prefix
		if a.Key != "" {
			p = prefix + a.Key + "."
		}
		for _, ga := range v.Group() {
			flatten(dst, p, ga)
		}
		return
	}
	if a.Key == "" {
		return
	}
	key := prefix + a.Key
	// 顶层的 category 保持原键，用于覆盖分类
	if a.Key == CategoryKey && prefix == "" {
		key = CategoryKey
	}
	dst[key] = fmt.Sprint(v.Any())
}
