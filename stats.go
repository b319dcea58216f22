package blinkpipe

import (
	"go.uber.org/atomic"
)

// GlobalInfo holds the traffic counters of an instance. Upload is what was written to the remote
// peers of our connections, Download what was written to the local peers.
type GlobalInfo struct {
	ActiveConnectionCount      atomic.Int32
	AllUploadBytesSinceStart   atomic.Uint64
	AllDownloadBytesSinceStart atomic.Uint64
}
