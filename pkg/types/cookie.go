package types

import (
	"bytes"
	"encoding/hex"
)

// Cookie 应用附加在写入上的不透明字节串
//
// 中间件不解释其内容，随样本原样送达读端，在 SampleInfo.Cookie 中返回。
type Cookie []byte

// NewCookie 复制 b 构造 Cookie
func NewCookie(b []byte) Cookie {
	if len(b) == 0 {
		return nil
	}
	return Cookie(bytes.Clone(b))
}

// Bytes 返回内容副本
func (c Cookie) Bytes() []byte {
	return bytes.Clone(c)
}

// Equal 内容逐字节相等；nil 与空 Cookie 相等
func (c Cookie) Equal(o Cookie) bool {
	return bytes.Equal(c, o)
}

// IsZero 是否为空
func (c Cookie) IsZero() bool {
	return len(c) == 0
}

// String 十六进制表示
func (c Cookie) String() string {
	return hex.EncodeToString(c)
}
