package samplecache

import "github.com/dep2p/go-dds/pkg/types"

// ============================================================================
//                              过滤条件
// ============================================================================

// Filter read/take 的过滤条件，零值不过滤
type Filter struct {
	instance  types.InstanceHandle
	next      bool
	hasInst   bool
	state     types.DataState
	query     *Query
	content   func(any) bool
	max       int
	validOnly bool
}

// Option 过滤选项
type Option func(*Filter)

// NewFilter 组合过滤选项
func NewFilter(opts ...Option) Filter {
	var f Filter
	for _, opt := range opts {
		opt(&f)
	}
	return f
}

// Instance 只返回指定实例的样本
func Instance(h types.InstanceHandle) Option {
	return func(f *Filter) {
		f.instance, f.next, f.hasInst = h, false, true
	}
}

// NextInstance 只返回句柄大于 h 的下一个有匹配样本的实例
func NextInstance(h types.InstanceHandle) Option {
	return func(f *Filter) {
		f.instance, f.next, f.hasInst = h, true, true
	}
}

// State 按样本、视图、实例状态过滤
func State(s types.DataState) Option {
	return func(f *Filter) { f.state = s }
}

// Where 按内容查询过滤，无效样本不参与查询
func Where(q *Query) Option {
	return func(f *Filter) { f.query = q }
}

// Content 按函数过滤样本数据，无效样本不参与
func Content(fn func(data any) bool) Option {
	return func(f *Filter) { f.content = fn }
}

// MaxSamples 限制返回数量，n <= 0 表示不限制
func MaxSamples(n int) Option {
	return func(f *Filter) { f.max = n }
}

// ValidOnly 只返回携带数据的样本
func ValidOnly() Option {
	return func(f *Filter) { f.validOnly = true }
}

// admits 检查样本是否满足除实例和数量外的条件
func (f *Filter) admits(e *entry, inst *instance) bool {
	if f.validOnly && !e.valid {
		return false
	}
	if !f.state.Matches(e.sampleState(), inst.viewState(), inst.state) {
		return false
	}
	if f.query != nil || f.content != nil {
		if !e.valid {
			return false
		}
		if f.query != nil && !f.query.match(e.data, inst.key) {
			return false
		}
		if f.content != nil && !f.content(e.data) {
			return false
		}
	}
	return true
}
