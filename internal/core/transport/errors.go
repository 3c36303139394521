package transport

import "github.com/dep2p/go-dds/internal/core/transport/loopback"

// ErrClosed 传输已关闭
var ErrClosed = loopback.ErrClosed
