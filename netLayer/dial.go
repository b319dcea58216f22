package netLayer

import (
	"context"
	"net"
	"time"
)

const DialTimeout = time.Second * 15

// Dial connects to addr. Only stream networks are supported; an empty Network means tcp.
func (addr *Addr) Dial(ctx context.Context) (net.Conn, error) {
	if addr.IP != nil && addr.IP.To4() == nil && !machineCanConnectToIpv6 {
		return nil, ErrMachineCantConnectToIpv6
	}

	d := net.Dialer{Timeout: DialTimeout}
	return d.DialContext(ctx, addr.NetworkOrTCP(), addr.String())
}
