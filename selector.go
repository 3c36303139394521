package dds

import (
	"github.com/dep2p/go-dds/internal/core/samplecache"
)

// Selector 一次带条件的读取
//
//	samples, err := reader.Select().
//		State(dds.NewData()).
//		Query("data.Temp > %0", 30).
//		MaxSamples(10).
//		Take()
//
// 查询语法见 expr-lang，表达式中 data 为样本，key 为实例键。
type Selector[T any] struct {
	r     *readerState[T]
	state DataState
	opts  []samplecache.Option
	err   error
}

// Instance 只选择指定实例
func (s *Selector[T]) Instance(h InstanceHandle) *Selector[T] {
	s.opts = append(s.opts, samplecache.Instance(h))
	return s
}

// NextInstance 选择句柄大于 h 的下一个实例
func (s *Selector[T]) NextInstance(h InstanceHandle) *Selector[T] {
	s.opts = append(s.opts, samplecache.NextInstance(h))
	return s
}

// State 替换状态过滤
func (s *Selector[T]) State(ds DataState) *Selector[T] {
	s.state = ds
	return s
}

// Query 按内容表达式过滤，%0、%1 引用 params
func (s *Selector[T]) Query(expression string, params ...any) *Selector[T] {
	q, err := samplecache.CompileQuery(expression, params...)
	if err != nil {
		s.err = err
		return s
	}
	s.opts = append(s.opts, samplecache.Where(q))
	return s
}

// Content 按函数过滤；无效样本不参与过滤
func (s *Selector[T]) Content(fn func(T) bool) *Selector[T] {
	s.opts = append(s.opts, samplecache.Content(func(data any) bool {
		v, ok := data.(T)
		return ok && fn(v)
	}))
	return s
}

// MaxSamples 限制返回数量
func (s *Selector[T]) MaxSamples(n int) *Selector[T] {
	s.opts = append(s.opts, samplecache.MaxSamples(n))
	return s
}

// ValidOnly 跳过销毁和注销通知
func (s *Selector[T]) ValidOnly() *Selector[T] {
	s.opts = append(s.opts, samplecache.ValidOnly())
	return s
}

func (s *Selector[T]) filter() samplecache.Filter {
	opts := append([]samplecache.Option{samplecache.State(s.state)}, s.opts...)
	return samplecache.NewFilter(opts...)
}

// Read 读取满足条件的样本
func (s *Selector[T]) Read() ([]Sample[T], error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.r.collect(false, s.filter())
}

// Take 取走满足条件的样本
func (s *Selector[T]) Take() ([]Sample[T], error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.r.collect(true, s.filter())
}
