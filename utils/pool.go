package utils

import (
	"bytes"
	"sync"
)

var (
	// stores []byte of len MaxBufLen, used to read from net.Conn
	standardPacketPool sync.Pool

	bufPool sync.Pool //stores *bytes.Buffer
)

// MaxBufLen is the biggest read buffer we use, 64k.
// For reference, io.Copy uses 32k, and a tls record carries at most 16k of plaintext.
var MaxBufLen = DefaultMaxBufLen

const DefaultMaxBufLen = 64 * 1024

func init() {
	standardPacketPool = sync.Pool{
		New: func() interface{} {
			return make([]byte, MaxBufLen)
		},
	}

	bufPool = sync.Pool{
		New: func() interface{} {
			return &bytes.Buffer{}
		},
	}
}

// AdjustBufSize must be called after MaxBufLen is changed.
func AdjustBufSize() {
	standardPacketPool = sync.Pool{
		New: func() interface{} {
			return make([]byte, MaxBufLen)
		},
	}
}

// GetBuf takes a *bytes.Buffer from the Pool.
func GetBuf() *bytes.Buffer {
	return bufPool.Get().(*bytes.Buffer)
}

// PutBuf resets buf and puts it back.
func PutBuf(buf *bytes.Buffer) {
	buf.Reset()
	bufPool.Put(buf)
}

// GetPacket returns a []byte of len MaxBufLen, for reading net.Conn.
func GetPacket() []byte {
	return standardPacketPool.Get().([]byte)
}

// PutPacket puts back a []byte got by GetPacket. Smaller slices are dropped.
func PutPacket(bs []byte) {
	if cap(bs) < MaxBufLen {
		return
	}
	standardPacketPool.Put(bs[:MaxBufLen])
}
