package netLayer_test

import (
	"errors"
	"net"
	"testing"

	"github.com/e1732a364fed/blinkpipe/netLayer"
	"github.com/e1732a364fed/blinkpipe/utils"
	"github.com/stretchr/testify/require"
)

func TestHostToAddress(t *testing.T) {
	cases := []struct {
		in   string
		name string
		ip   string
		port int
	}{
		{"example.com", "example.com", "", 80},
		{"example.com:443", "example.com", "", 443},
		{"https://example.com:8443/path?q=1", "example.com", "", 8443},
		{"http://example.com/", "example.com", "", 80},
		{"1.2.3.4", "", "1.2.3.4", 80},
		{"1.2.3.4:53", "", "1.2.3.4", 53},
		{"::1", "", "::1", 80},
		{"[::1]:443", "", "::1", 443},
		{"[2001:db8::1]", "", "2001:db8::1", 80},
	}

	for _, c := range cases {
		a, err := netLayer.HostToAddress(c.in)
		require.NoError(t, err, c.in)
		require.Equal(t, c.port, a.Port, c.in)
		if c.ip != "" {
			require.True(t, net.ParseIP(c.ip).Equal(a.IP), c.in)
			require.Empty(t, a.Name, c.in)
		} else {
			require.Equal(t, c.name, a.Name, c.in)
			require.Nil(t, a.IP, c.in)
		}
	}

	_, err := netLayer.HostToAddress("")
	require.Error(t, err)

	_, err = netLayer.HostToAddress("example.com:99999")
	require.Error(t, err)
}

func TestAddressRecord(t *testing.T) {
	a, err := netLayer.HostToAddress("example.com:443")
	require.NoError(t, err)

	r := a.Record()
	require.True(t, r.IsValid())
	require.Equal(t, netLayer.Socks5AtypDomain, r.Atyp)
	require.Equal(t, append([]byte{3, 11}, append([]byte("example.com"), 0x01, 0xbb)...), r.Bytes())
	require.Equal(t, len(r.Bytes()), r.Len())

	a4 := netLayer.Addr{IP: net.IPv4(10, 0, 0, 1), Port: 8080}
	require.Equal(t, []byte{1, 10, 0, 0, 1, 0x1f, 0x90}, a4.Record().Bytes())

	a6 := netLayer.Addr{IP: net.ParseIP("::1"), Port: 1}
	bs := a6.Record().Bytes()
	require.Len(t, bs, 1+16+2)
	require.Equal(t, netLayer.Socks5AtypIP6, bs[0])

	long := netLayer.Addr{Name: string(make([]byte, 256)), Port: 1}
	require.False(t, long.Record().IsValid())
}

func TestParseAddressRecord(t *testing.T) {
	addrs := []netLayer.Addr{
		{Name: "example.com", Port: 443},
		{IP: net.IPv4(8, 8, 8, 8), Port: 53},
		{IP: net.ParseIP("2001:db8::1"), Port: 65535},
	}

	for _, want := range addrs {
		rec := want.Record().Bytes()
		payload := []byte("rest of stream")
		b := append(append([]byte{}, rec...), payload...)

		got, n, err := netLayer.ParseAddressRecord(b)
		require.NoError(t, err)
		require.Equal(t, len(rec), n)
		require.Equal(t, want.Port, got.Port)
		require.Equal(t, want.HostStr(), got.HostStr())
		require.Equal(t, payload, b[n:])

		for i := 0; i < len(rec); i++ {
			_, _, err = netLayer.ParseAddressRecord(rec[:i])
			require.True(t, errors.Is(err, utils.ErrFrameTooShort), "prefix %d", i)
		}
	}

	_, _, err := netLayer.ParseAddressRecord([]byte{2, 1, 2, 3, 4, 0, 80})
	require.True(t, errors.Is(err, utils.ErrMalformedHeader))

	_, _, err = netLayer.ParseAddressRecord([]byte{3, 0, 0, 80})
	require.True(t, errors.Is(err, utils.ErrMalformedHeader))
}

func TestAtypConversion(t *testing.T) {
	for _, atyp := range []byte{netLayer.AtypIP4, netLayer.AtypDomain, netLayer.AtypIP6} {
		require.Equal(t, atyp, netLayer.Socks5StandardToAType(netLayer.ATypeToSocks5Standard(atyp)))
	}
	require.Zero(t, netLayer.Socks5StandardToAType(2))
}

func TestNewAddrFromAny(t *testing.T) {
	a, err := netLayer.NewAddrFromAny(int64(1080))
	require.NoError(t, err)
	require.Equal(t, "127.0.0.1:1080", a.String())

	a, err = netLayer.NewAddrFromAny("tcp://127.0.0.1:53")
	require.NoError(t, err)
	require.Equal(t, "tcp", a.Network)
	require.Equal(t, 53, a.Port)

	a, err = netLayer.NewAddrFromAny("/tmp/blinkpipe.sock")
	require.NoError(t, err)
	require.Equal(t, "unix", a.Network)
	require.Equal(t, "/tmp/blinkpipe.sock", a.String())

	_, err = netLayer.NewAddrFromAny(int64(70000))
	require.Error(t, err)

	_, err = netLayer.NewAddrFromAny(1.5)
	require.Error(t, err)
}
