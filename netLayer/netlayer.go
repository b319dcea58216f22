/*
Package netLayer contains definitions in network layer AND transport layer.

It has the Addr type, the socks5 style address record that presets put on the wire,
and the dial / listen helpers the relay uses, including PROXY protocol support.
*/
package netLayer

import (
	"net"

	"github.com/e1732a364fed/blinkpipe/utils"
	"go.uber.org/zap"
)

var (
	// If the machine has no ipv6 address it can't reach ipv6 targets; knowing it lets
	// Dial refuse early instead of logging lots of timeouts.
	machineCanConnectToIpv6 = true

	ErrMachineCantConnectToIpv6 = utils.NumErr{Prefix: "ErrMachineCantConnectToIpv6"}
)

type NetAddresser interface {
	LocalAddr() net.Addr
	RemoteAddr() net.Addr
}

// Prepare does some one-time checks that speed up the other functions of this package.
func Prepare() {
	machineCanConnectToIpv6 = HasIpv6Interface()
}

func HasIpv6Interface() bool {
	addrs, err := net.InterfaceAddrs()
	if err != nil {
		if ce := utils.CanLogErr("call net.InterfaceAddrs failed"); ce != nil {
			ce.Write(zap.Error(err))
		}
		return false
	}

	for _, address := range addrs {
		ipnet, ok := address.(*net.IPNet)
		if !ok || ipnet.IP.IsLoopback() || ipnet.IP.IsPrivate() || ipnet.IP.IsLinkLocalUnicast() {
			continue
		}
		if ipnet.IP.To4() == nil {
			if ce := utils.CanLogDebug("Has Ipv6Interface!"); ce != nil {
				ce.Write(zap.String("ip", ipnet.IP.String()))
			}
			return true
		}
	}
	return false
}
