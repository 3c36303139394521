package samplecache

import (
	"fmt"
	"strings"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"

	"github.com/dep2p/go-dds/pkg/types"
)

// Query 编译后的内容查询
//
// 表达式使用 expr 语法，可引用：
//
//	data    样本数据（结构体字段按导出名访问）
//	key     实例键
//	params  查询参数，%0、%1 是 params[0]、params[1] 的简写
type Query struct {
	src     string
	params  []any
	program *vm.Program
}

// CompileQuery 编译查询表达式，表达式必须产生布尔值
func CompileQuery(src string, params ...any) (*Query, error) {
	program, err := expr.Compile(rewriteParams(src), expr.Env(queryEnv{}), expr.AsBool())
	if err != nil {
		return nil, fmt.Errorf("%w: query %q: %v", types.ErrBadParameter, src, err)
	}
	return &Query{src: src, params: params, program: program}, nil
}

// String 返回原始表达式
func (q *Query) String() string {
	return q.src
}

// Params 返回查询参数
func (q *Query) Params() []any {
	return q.params
}

// WithParams 返回替换参数后的查询，表达式不重新编译
func (q *Query) WithParams(params ...any) *Query {
	return &Query{src: q.src, params: params, program: q.program}
}

// queryEnv 查询求值环境；data 声明为 any，字段访问在运行时解析
type queryEnv struct {
	Data   any    `expr:"data"`
	Key    string `expr:"key"`
	Params []any  `expr:"params"`
}

// rewriteParams 把引号外的 %N 改写为 params[N]，字符串字面量保持原样
func rewriteParams(src string) string {
	var b strings.Builder
	b.Grow(len(src))
	var quote byte
	for i := 0; i < len(src); i++ {
		c := src[i]
		if quote != 0 {
			b.WriteByte(c)
			switch {
			case c == '\\' && quote != '`' && i+1 < len(src):
				i++
				b.WriteByte(src[i])
			case c == quote:
				quote = 0
			}
			continue
		}
		switch c {
		case '\'', '"', '`':
			quote = c
		case '%':
			j := i + 1
			for j < len(src) && src[j] >= '0' && src[j] <= '9' {
				j++
			}
			if j > i+1 {
				b.WriteString("params[")
				b.WriteString(src[i+1 : j])
				b.WriteByte(']')
				i = j - 1
				continue
			}
		}
		b.WriteByte(c)
	}
	return b.String()
}

// match 对样本求值，求值错误视为不匹配
func (q *Query) match(data any, key string) bool {
	out, err := expr.Run(q.program, queryEnv{Data: data, Key: key, Params: q.params})
	if err != nil {
		log.Debug("query evaluation failed", "query", q.src, "err", err)
		return false
	}
	ok, _ := out.(bool)
	return ok
}
