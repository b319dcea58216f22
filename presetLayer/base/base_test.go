package base_test

import (
	"errors"
	"net"
	"testing"

	"github.com/e1732a364fed/blinkpipe/netLayer"
	"github.com/e1732a364fed/blinkpipe/presetLayer"
	"github.com/e1732a364fed/blinkpipe/presetLayer/base"
	"github.com/e1732a364fed/blinkpipe/utils"
	"github.com/stretchr/testify/require"
)

func newChain(t *testing.T) *presetLayer.Chain {
	require.NoError(t, presetLayer.Setup())
	c, err := presetLayer.NewChain([]*presetLayer.Conf{{Name: base.Name}})
	require.NoError(t, err)
	return c
}

func TestClientPrefixesOnce(t *testing.T) {
	target := netLayer.Addr{Name: "example.com", Port: 443}
	var sent [][]byte
	client, err := newChain(t).NewPipeline(presetLayer.Env{IsClient: true, Target: &target},
		func(b []byte) error { sent = append(sent, append([]byte(nil), b...)); return nil },
		func(b []byte) error { return nil })
	require.NoError(t, err)

	require.NoError(t, client.FromLocal([]byte("GET /")))
	require.NoError(t, client.FromLocal([]byte(" HTTP/1.1")))

	header := target.Record().Bytes()
	require.Equal(t, append(header, "GET /"...), sent[0])
	require.Equal(t, []byte(" HTTP/1.1"), sent[1])
}

func TestClientNeedsTarget(t *testing.T) {
	_, err := newChain(t).NewPipeline(presetLayer.Env{IsClient: true}, nil, nil)
	require.True(t, errors.Is(err, utils.ErrNilParameter))

	long := netLayer.Addr{Name: string(make([]byte, 300)), Port: 1}
	_, err = newChain(t).NewPipeline(presetLayer.Env{IsClient: true, Target: &long}, nil, nil)
	require.True(t, errors.Is(err, utils.ErrWrongParameter))
}

func TestServerResolves(t *testing.T) {
	targets := []netLayer.Addr{
		{Name: "example.com", Port: 443},
		{IP: net.IPv4(127, 0, 0, 1), Port: 8080},
		{IP: net.ParseIP("2001:db8::2"), Port: 22},
	}

	for _, target := range targets {
		var got []netLayer.Addr
		var forwarded []byte
		server, err := newChain(t).NewPipeline(presetLayer.Env{OnTarget: func(a netLayer.Addr) error {
			got = append(got, a)
			return nil
		}},
			func(b []byte) error { return nil },
			func(b []byte) error { forwarded = append(forwarded, b...); return nil })
		require.NoError(t, err)

		stream := append(target.Record().Bytes(), "payload and more"...)
		for _, piece := range utils.RandomChunks(stream, 1, 3) {
			require.NoError(t, server.FromRemote(piece))
		}

		require.Len(t, got, 1)
		require.Equal(t, target.String(), got[0].String())
		require.Equal(t, "payload and more", string(forwarded))
	}
}

func TestServerRejects(t *testing.T) {
	errRefused := errors.New("refused")
	server, err := newChain(t).NewPipeline(presetLayer.Env{OnTarget: func(a netLayer.Addr) error { return errRefused }},
		func(b []byte) error { return nil }, func(b []byte) error { return nil })
	require.NoError(t, err)
	require.ErrorIs(t, server.FromRemote([]byte{1, 1, 2, 3, 4, 0, 80}), errRefused)

	server, err = newChain(t).NewPipeline(presetLayer.Env{},
		func(b []byte) error { return nil }, func(b []byte) error { return nil })
	require.NoError(t, err)
	require.True(t, errors.Is(server.FromRemote([]byte{9, 1, 2, 3}), utils.ErrMalformedHeader))
}
