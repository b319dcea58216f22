package utils

import (
	"encoding/binary"
	"encoding/hex"
	"time"
)

// NumberToBytes converts n to big endian bytes, left padded with zeros to at least minSize bytes.
//
//	NumberToBytes(257, 2) // [0x01, 0x01]
//	NumberToBytes(1, 2)   // [0x00, 0x01]
//	NumberToBytes(5, 3)   // [0x00, 0x00, 0x05]
func NumberToBytes(n uint64, minSize int) []byte {
	var tmp [8]byte
	binary.BigEndian.PutUint64(tmp[:], n)

	i := 0
	for i < 7 && tmp[i] == 0 {
		i++
	}
	significant := tmp[i:]

	if len(significant) >= minSize {
		return append([]byte(nil), significant...)
	}

	result := make([]byte, minSize)
	copy(result[minSize-len(significant):], significant)
	return result
}

// UTCBytes returns the current unix time in seconds as 4 big endian bytes,
// i.e. the gmt_unix_time field of a TLS 1.2 Random.
func UTCBytes() []byte {
	var bs [4]byte
	binary.BigEndian.PutUint32(bs[:], uint32(time.Now().Unix()))
	return bs[:]
}

// RandomChunks splits b into consecutive sub slices whose lengths are picked by RandomInt(min, max).
// The chunks cover b exactly once, in order. Every chunk but the last is in [min,max];
// the last one holds whatever remains, in [1,max]. An empty b gives no chunk.
//
// The chunks share memory with b.
func RandomChunks(b []byte, min, max int) (chunks [][]byte) {
	if min < 1 {
		min = 1
	}
	for len(b) > 0 {
		n := RandomInt(min, max)
		if n > len(b) {
			n = len(b)
		}
		chunks = append(chunks, b[:n])
		b = b[n:]
	}
	return
}

// MustHex is for package level protocol constants.
func MustHex(s string) []byte {
	bs, err := hex.DecodeString(s)
	if err != nil {
		panic("utils.MustHex: " + err.Error())
	}
	return bs
}
