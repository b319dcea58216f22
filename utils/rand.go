package utils

import (
	crand "crypto/rand"
	"math/rand"
	"time"
)

func init() {
	//make sure the seed differs between runs and between go test processes
	rand.Seed(time.Now().UnixNano())
}

// RandomInt returns an int in [min, max], both ends included. If max <= min, min is returned.
func RandomInt(min, max int) int {
	if max <= min {
		return min
	}
	return rand.Intn(max-min+1) + min
}

// RandomBytes returns n bytes from crypto/rand.
// A failing system CSPRNG is unrecoverable for us, so it panics; presetLayer.Setup checks it beforehand.
func RandomBytes(n int) []byte {
	bs := make([]byte, n)
	if _, err := crand.Read(bs); err != nil {
		panic("utils.RandomBytes: crypto/rand failed: " + err.Error())
	}
	return bs
}
