/*
Package presetLayer chains stream transforms ("presets") between a local peer and a remote peer.

A Pipeline holds one fresh instance of every preset of a Chain. Bytes read from the local peer go
through the presets front to back (the out direction) and are written to the remote peer; bytes read
from the remote peer go back to front (the in direction) and are written to the local peer.

A preset implements only the hooks it cares about; a missing hook passes bytes through unchanged.
Which hook runs depends on the role of the process:

	         out direction      in direction
	client   ClientOut          ClientIn
	server   ServerOut          ServerIn

Inside a hook the preset decides what happens to the bytes through the given Emitter. It may call
Next any number of times (also later, from an AdvancedBuffer callback), emit straight onto the wire
with Direct or Reply, emit nothing to consume them, or return an error, which breaks the pipeline.

The slice given to a hook is only valid during the call. A preset keeping data must copy it.
*/
package presetLayer

type Emitter interface {

	// Next hands b to the next preset, or to the wire when this is the last one.
	Next(b []byte) error

	// Direct writes b onto the wire of the current direction, skipping the remaining presets.
	Direct(b []byte) error

	// Reply writes b onto the wire back toward the peer the current bytes came from,
	// skipping every preset. Handshake answers use it.
	Reply(b []byte) error
}

type Preset interface {
	Name() string
}

type ClientOuter interface {
	ClientOut(b []byte, e Emitter) error
}

type ServerIner interface {
	ServerIn(b []byte, e Emitter) error
}

type ServerOuter interface {
	ServerOut(b []byte, e Emitter) error
}

type ClientIner interface {
	ClientIn(b []byte, e Emitter) error
}

// Withholder is implemented by presets that may keep out direction bytes back and emit them later,
// e.g. until a handshake is done. While one of them withholds, the remote peer must not be half-closed.
//
// Withholding may be called from any goroutine.
type Withholder interface {
	Withholding() bool
}

// Destroyer is called once when the pipeline is closed, to drop buffers and key material.
type Destroyer interface {
	Destroy()
}
