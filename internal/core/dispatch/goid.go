package dispatch

import (
	"bytes"
	"runtime"
	"strconv"
)

var goroutinePrefix = []byte("goroutine ")

// curGoroutineID 从栈头 "goroutine N [" 解析当前 goroutine 编号
func curGoroutineID() uint64 {
	buf := make([]byte, 64)
	buf = buf[:runtime.Stack(buf, false)]
	buf = bytes.TrimPrefix(buf, goroutinePrefix)
	if i := bytes.IndexByte(buf, ' '); i > 0 {
		buf = buf[:i]
	}
	n, err := strconv.ParseUint(string(buf), 10, 64)
	if err != nil {
		return 0
	}
	return n
}
