package tlsLayer

import (
	"encoding/binary"
	"strings"

	"github.com/e1732a364fed/blinkpipe/utils"
	utls "github.com/refraction-networking/utls"
)

// ClientHelloInfo is what we can tell about a peer from its ClientHello.
type ClientHelloInfo struct {
	Vers         uint16
	ServerName   string
	CipherSuites []uint16
	SessionID    []byte
	TicketLen    int
	Extensions   []uint16
}

// ExtensionNames is for logging.
func (ci *ClientHelloInfo) ExtensionNames() string {
	names := make([]string, 0, len(ci.Extensions))
	for _, et := range ci.Extensions {
		names = append(names, ExtensionName(et))
	}
	return strings.Join(names, ",")
}

// SniffClientHello parses a whole ClientHello record.
func SniffClientHello(record []byte) (*ClientHelloInfo, error) {
	if len(record) < RecordHeaderLen+4 {
		return nil, utils.ErrInErr{ErrDesc: "SniffClientHello: record too short", ErrDetail: utils.ErrFrameTooShort, Data: len(record)}
	}
	if record[0] != RecordHandshake || record[RecordHeaderLen] != HandshakeClientHello {
		return nil, utils.ErrInErr{ErrDesc: "SniffClientHello: not a ClientHello", ErrDetail: utils.ErrMalformedHeader, Data: record[0]}
	}
	msg := record[RecordHeaderLen:]

	hello := utls.UnmarshalClientHello(msg)
	if hello == nil {
		return nil, utils.ErrInErr{ErrDesc: "SniffClientHello: utls can't parse it", ErrDetail: utils.ErrInvalidData}
	}

	ci := &ClientHelloInfo{
		Vers:         hello.Vers,
		ServerName:   hello.ServerName,
		CipherSuites: hello.CipherSuites,
		SessionID:    hello.SessionId,
		TicketLen:    len(hello.SessionTicket),
	}
	ci.Extensions = helloExtensionTypes(msg)
	return ci, nil
}

// helloExtensionTypes walks the extension list of a ClientHello message whose structure utls already
// validated, returning the extension types in wire order.
func helloExtensionTypes(msg []byte) (result []uint16) {
	//type(1) len(3) version(2) random(32)
	p := msg[4+2+32:]

	sessionL := int(p[0])
	p = p[1+sessionL:]

	suitesL := int(binary.BigEndian.Uint16(p))
	p = p[2+suitesL:]

	compressionL := int(p[0])
	p = p[1+compressionL:]

	if len(p) < 2 {
		return
	}
	p = p[2:]

	for len(p) >= 4 {
		et := binary.BigEndian.Uint16(p)
		l := int(binary.BigEndian.Uint16(p[2:]))
		result = append(result, et)
		if len(p) < 4+l {
			break
		}
		p = p[4+l:]
	}
	return
}
