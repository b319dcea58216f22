package netLayer

import (
	"io"
	"net"
	"strconv"

	"github.com/e1732a364fed/blinkpipe/utils"
	"github.com/pires/go-proxyproto"
)

var proxyProtocolListenPolicyFunc = func(upstream net.Addr) (proxyproto.Policy, error) { return proxyproto.REQUIRE, nil }

// WritePROXYprotocol writes a PROXY protocol header describing wlc onto wrc.
// Reference: http://www.haproxy.org/download/1.8/doc/proxy-protocol.txt
//
// xver must be 1 or 2. tcp only. Used by the server role to tell the dialed target who the real
// client is.
func WritePROXYprotocol(xver int, wlc NetAddresser, wrc io.Writer) (n int, err error) {
	if xver != 1 && xver != 2 {
		return 0, utils.ErrInErr{ErrDesc: "Invalid xver", ErrDetail: utils.ErrWrongParameter, Data: xver}
	}

	clientAddr, err := NewAddrFromAny(wlc.RemoteAddr())
	if err != nil {
		return
	}
	selfAddr, err := NewAddrFromAny(wlc.LocalAddr())
	if err != nil {
		return
	}

	buf := utils.GetBuf()
	defer utils.PutBuf(buf)

	switch xver {
	case 1:
		headStr := "PROXY TCP4 "
		if clientAddr.IsIpv6() {
			headStr = "PROXY TCP6 "
		}

		buf.WriteString(headStr)
		buf.WriteString(clientAddr.IP.String())
		buf.WriteString(" ")
		buf.WriteString(selfAddr.IP.String())
		buf.WriteString(" ")
		buf.WriteString(strconv.Itoa(clientAddr.Port))
		buf.WriteString(" ")
		buf.WriteString(strconv.Itoa(selfAddr.Port))
		buf.WriteString("\r\n")

	case 2:
		buf.WriteString("\x0D\x0A\x0D\x0A\x00\x0D\x0A\x51\x55\x49\x54\x0A\x21") // signature + v2 + PROXY

		if clientAddr.IsIpv6() {
			buf.WriteString("\x21\x00\x24") // AF_INET6 + STREAM + 36 bytes
			buf.Write(clientAddr.IP.To16())
			buf.Write(selfAddr.IP.To16())
		} else {
			buf.WriteString("\x11\x00\x0C") // AF_INET + STREAM + 12 bytes
			buf.Write(clientAddr.IP.To4())
			buf.Write(selfAddr.IP.To4())
		}

		p1 := uint16(clientAddr.Port)
		p2 := uint16(selfAddr.Port)
		buf.Write([]byte{byte(p1 >> 8), byte(p1), byte(p2 >> 8), byte(p2)})
	}

	return wrc.Write(buf.Bytes())
}
