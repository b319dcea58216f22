package presetLayer

import (
	crand "crypto/rand"
	"errors"
	"sync"

	"github.com/e1732a364fed/blinkpipe/utils"
	"go.uber.org/atomic"
)

var ErrNotSetup = errors.New("presetLayer: Setup has not succeeded")

var (
	setupOnce sync.Once
	setupErr  error
	setupDone atomic.Bool
)

// Setup prepares what every preset depends on: right now, a working system CSPRNG, which the
// handshakes and ciphers draw from without checking errors. It runs once; later calls return the
// first result. NewChain refuses to work before it succeeded.
func Setup() error {
	setupOnce.Do(func() {
		var probe [32]byte
		if _, err := crand.Read(probe[:]); err != nil {
			setupErr = utils.ErrInErr{ErrDesc: "presetLayer: crypto/rand unusable", ErrDetail: err}
			return
		}
		setupDone.Store(true)
	})
	return setupErr
}

func IsSetup() bool {
	return setupDone.Load()
}
