package netLayer

import (
	"errors"
	"net"
	"net/url"
	"reflect"
	"strconv"
	"strings"

	"github.com/e1732a364fed/blinkpipe/utils"
)

// Atyp in v2ray's numbering; socks5 and shadowsocks use 1,3,4 for the same meanings.
const (
	AtypIP4    byte = 1
	AtypDomain byte = 2
	AtypIP6    byte = 3
)

// socks5 standard atyp values, which is what address records on the wire use.
const (
	Socks5AtypIP4    byte = 1
	Socks5AtypDomain byte = 3
	Socks5AtypIP6    byte = 4
)

// DefaultPort is used when a host string carries no port.
const DefaultPort = 80

// ATypeToSocks5Standard converts 123 to 134.
func ATypeToSocks5Standard(atype byte) byte {
	if atype == 1 {
		return 1
	}
	return atype + 1
}

// Socks5StandardToAType converts 134 to 123. Unknown values give 0.
func Socks5StandardToAType(atype byte) byte {
	switch atype {
	case Socks5AtypIP4:
		return AtypIP4
	case Socks5AtypDomain:
		return AtypDomain
	case Socks5AtypIP6:
		return AtypIP6
	}
	return 0
}

// Addr represents an address that you want to access by proxy. Either Name or IP is used exclusively.
// Network records the transport protocol name.
type Addr struct {
	Network string
	Name    string // domain name, or the file path of a unix domain socket
	IP      net.IP
	Port    int
}

func newAddrFromTCPAddr(addr *net.TCPAddr) Addr {
	return Addr{
		IP:      addr.IP,
		Port:    addr.Port,
		Network: "tcp",
	}
}

// hostPortStr must be host:port
func NewAddrByHostPort(hostPortStr string) (Addr, error) {
	host, portStr, err := net.SplitHostPort(hostPortStr)
	if err != nil {
		return Addr{}, err
	}
	if host == "" {
		host = "127.0.0.1"
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return Addr{}, err
	}
	if port < 0 || port > 65535 {
		return Addr{}, utils.ErrInErr{ErrDesc: "Invalid port", Data: port}
	}

	a := Addr{Port: port}
	if ip := net.ParseIP(host); ip != nil {
		a.IP = ip
	} else {
		a.Name = host
	}
	return a, nil
}

// HostToAddress accepts "host", "host:port", "[v6]:port", a bare ipv6 literal, or an url like
// "https://host:443/path". A missing port means DefaultPort.
func HostToAddress(host string) (Addr, error) {
	if host == "" {
		return Addr{}, utils.ErrNilParameter
	}

	if strings.Contains(host, "://") {
		u, err := url.Parse(host)
		if err != nil {
			return Addr{}, utils.ErrInErr{ErrDesc: "HostToAddress can't parse url", ErrDetail: err, Data: host}
		}
		host = u.Host
	}

	if ip := net.ParseIP(strings.Trim(host, "[]")); ip != nil {
		return Addr{IP: ip, Port: DefaultPort, Network: "tcp"}, nil
	}

	if _, _, err := net.SplitHostPort(host); err != nil {
		host = net.JoinHostPort(strings.Trim(host, "[]"), strconv.Itoa(DefaultPort))
	}

	a, err := NewAddrByHostPort(host)
	if err != nil {
		return a, utils.ErrInErr{ErrDesc: "HostToAddress failed", ErrDetail: err, Data: host}
	}
	a.Network = "tcp"
	return a, nil
}

// NewAddrFromAny builds an Addr from a port number, an url, a host:port string,
// a unix socket path or a net.Addr. toml decodes integers as int64.
func NewAddrFromAny(thing any) (addr Addr, err error) {
	var integer int
	var dest_string string
	isPortOnly := false

	switch value := thing.(type) {
	case int64:
		if value > 65535 || value < 0 {
			err = utils.ErrInErr{ErrDesc: "Invalid port", Data: value}
			return
		}
		integer = int(value)
		isPortOnly = true
	case int:
		if value > 65535 || value < 0 {
			err = utils.ErrInErr{ErrDesc: "Invalid port", Data: value}
			return
		}
		integer = value
		isPortOnly = true

	case string:
		if strings.Contains(value, "://") {
			var u *url.URL
			u, err = url.Parse(value)
			if err != nil {
				return
			}
			addr, err = NewAddrByHostPort(u.Host)
			addr.Network = u.Scheme
			return
		}

		if !strings.Contains(value, ":") {
			addr = Addr{Network: "unix", Name: value}
			return
		}
		dest_string = value

	case *net.TCPAddr:
		return newAddrFromTCPAddr(value), nil

	case net.Addr:
		var host, port string
		host, port, err = net.SplitHostPort(value.String())
		if err != nil {
			return
		}
		addr.Network = value.Network()
		addr.IP = net.ParseIP(host)
		addr.Port, err = strconv.Atoi(port)
		return

	default:
		err = utils.ErrInErr{ErrDesc: "NewAddrFromAny: unsupported type", Data: reflect.TypeOf(thing)}
		return
	}

	if isPortOnly {
		addr = Addr{
			IP:   net.IPv4(127, 0, 0, 1),
			Port: integer,
		}
		return
	}

	addr, err = NewAddrByHostPort(dest_string)
	if err != nil {
		err = utils.ErrInErr{ErrDesc: "Failed in addr create with given string", ErrDetail: err, Data: dest_string}
	}
	return
}

// Return host:port string. If the network is unix, a.Name is returned directly.
func (a *Addr) String() string {
	if a.Network == "unix" {
		return a.Name
	} else {
		port := strconv.Itoa(a.Port)
		if a.IP == nil {
			return net.JoinHostPort(a.Name, port)
		}
		return net.JoinHostPort(a.IP.String(), port)
	}
}

func (a *Addr) IsIpv6() bool {
	return a.IP.To4() == nil
}

// Returned host string
func (a *Addr) HostStr() string {
	if a.IP == nil {
		return a.Name
	}
	return a.IP.String()
}

func (a *Addr) NetworkOrTCP() string {
	if a.Network == "" {
		return "tcp"
	}
	return a.Network
}

// AddressBytes returns the address data and its v2ray atyp.
// For a domain the first byte is the length of the name. For an ip a copy is returned.
func (a *Addr) AddressBytes() (addr []byte, atyp byte) {

	if a.IP != nil {
		if ip4 := a.IP.To4(); ip4 != nil {
			addr = make([]byte, net.IPv4len)
			atyp = AtypIP4
			copy(addr[:], ip4)
		} else {
			addr = make([]byte, net.IPv6len)
			atyp = AtypIP6
			copy(addr[:], a.IP)
		}
	} else {
		if len(a.Name) > 255 {
			return nil, 0
		}
		addr = make([]byte, 1+len(a.Name))
		atyp = AtypDomain
		addr[0] = byte(len(a.Name))
		copy(addr[1:], a.Name)
	}

	return
}

// AddressRecord is the wire form of a target: ATYP | address | port, socks5 numbering.
// For a domain Address starts with the length byte.
type AddressRecord struct {
	Atyp    byte
	Address []byte
	Port    [2]byte
}

// Record builds the AddressRecord of a. The zero record is returned if the domain is longer than 255.
func (a *Addr) Record() (r AddressRecord) {
	addr, atyp := a.AddressBytes()
	if atyp == 0 {
		return
	}
	r.Atyp = ATypeToSocks5Standard(atyp)
	r.Address = addr
	r.Port = [2]byte{byte(a.Port >> 8), byte(a.Port)}
	return
}

func (r AddressRecord) IsValid() bool {
	return r.Atyp != 0 && len(r.Address) > 0
}

func (r AddressRecord) Len() int {
	return 1 + len(r.Address) + 2
}

func (r AddressRecord) Bytes() []byte {
	bs := make([]byte, 0, r.Len())
	bs = append(bs, r.Atyp)
	bs = append(bs, r.Address...)
	return append(bs, r.Port[:]...)
}

var errRecordIncomplete = utils.ErrInErr{ErrDesc: "address record incomplete", ErrDetail: utils.ErrFrameTooShort}

// ParseAddressRecord reads a socks5 style address record from the head of b, returning the
// address and the number of bytes it took. If b is not long enough yet, the error wraps
// utils.ErrFrameTooShort; an unknown atyp gives utils.ErrMalformedHeader.
func ParseAddressRecord(b []byte) (addr Addr, n int, err error) {
	if len(b) < 1 {
		err = errRecordIncomplete
		return
	}
	var addrLen int
	start := 1
	switch b[0] {
	case Socks5AtypIP4:
		addrLen = net.IPv4len
	case Socks5AtypIP6:
		addrLen = net.IPv6len
	case Socks5AtypDomain:
		if len(b) < 2 {
			err = errRecordIncomplete
			return
		}
		addrLen = int(b[1])
		if addrLen == 0 {
			err = utils.ErrInErr{ErrDesc: "got domain atyp with length 0", ErrDetail: utils.ErrMalformedHeader}
			return
		}
		start = 2
	default:
		err = utils.ErrInErr{ErrDesc: "unknown atyp", ErrDetail: utils.ErrMalformedHeader, Data: b[0]}
		return
	}

	n = start + addrLen + 2
	if len(b) < n {
		n = 0
		err = errRecordIncomplete
		return
	}

	addrBs := b[start : start+addrLen]
	if b[0] == Socks5AtypDomain {
		addr.Name = string(addrBs)
	} else {
		addr.IP = append(net.IP(nil), addrBs...)
	}
	addr.Port = int(b[n-2])<<8 | int(b[n-1])
	addr.Network = "tcp"

	if addr.Port == 0 {
		n = 0
		err = errors.New("address record with port 0")
	}
	return
}
