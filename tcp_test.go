package blinkpipe_test

import (
	"fmt"
	"io"
	"net"
	"testing"
	"time"

	"github.com/e1732a364fed/blinkpipe"
	"github.com/e1732a364fed/blinkpipe/netLayer"
	"github.com/e1732a364fed/blinkpipe/presetLayer"
	_ "github.com/e1732a364fed/blinkpipe/presetLayer/aead"
	_ "github.com/e1732a364fed/blinkpipe/presetLayer/base"
	_ "github.com/e1732a364fed/blinkpipe/presetLayer/obfstls"
	"github.com/e1732a364fed/blinkpipe/utils"
	"github.com/stretchr/testify/require"
)

const fullPresets = `
[[presets]]
name = "ss-base"

[[presets]]
name = "ss-aead-cipher"
params = { method = "aes-256-gcm", key = "a684455c-b14f-11ea" }

[[presets]]
name = "obfs-tls1.2-ticket"
params = { sni = "www.example.com" }
`

const obfsOnlyPresets = `
[[presets]]
name = "obfs-tls1.2-ticket"
params = { sni = "www.example.com" }
`

func startEcho(t *testing.T, xver int) net.Listener {
	lis, err := netLayer.ListenAndAccept("tcp", "127.0.0.1:0", xver, func(c net.Conn) {
		defer c.Close()
		io.Copy(c, c)
	})
	require.NoError(t, err)
	t.Cleanup(func() { lis.Close() })
	return lis
}

func startServer(t *testing.T, confStr string, gi *blinkpipe.GlobalInfo) *blinkpipe.Server {
	conf, err := blinkpipe.LoadTomlConfStr(confStr)
	require.NoError(t, err)

	s, err := blinkpipe.NewServer(&conf, gi)
	require.NoError(t, err)
	require.NoError(t, s.ListenAndServe())
	t.Cleanup(func() { s.Stop() })
	return s
}

// startPair starts a server and a client in front of it, and returns the client.
func startPair(t *testing.T, presets, serverExtra, clientTarget string, clientInfo *blinkpipe.GlobalInfo) *blinkpipe.Server {
	require.NoError(t, presetLayer.Setup())

	ser := startServer(t, fmt.Sprintf("role = \"server\"\nlisten = \"127.0.0.1:0\"\n%s\n%s", serverExtra, presets), nil)

	cli := startServer(t, fmt.Sprintf("role = \"client\"\nlisten = \"127.0.0.1:0\"\nremote = %q\ntarget = %q\n%s",
		ser.Addr().String(), clientTarget, presets), clientInfo)
	return cli
}

func echoThrough(t *testing.T, addr net.Addr, size int) {
	c, err := net.Dial("tcp", addr.String())
	require.NoError(t, err)
	defer c.Close()
	c.SetDeadline(time.Now().Add(20 * time.Second))

	data := utils.RandomBytes(size)
	go func() {
		for _, chunk := range utils.RandomChunks(data, 1, 20000) {
			if _, err := c.Write(chunk); err != nil {
				return
			}
		}
	}()

	got := make([]byte, size)
	_, err = io.ReadFull(c, got)
	require.NoError(t, err)
	require.Equal(t, data, got)
}

func TestTCP_fullChain(t *testing.T) {
	echo := startEcho(t, 0)

	gi := new(blinkpipe.GlobalInfo)
	cli := startPair(t, fullPresets, "", echo.Addr().String(), gi)

	echoThrough(t, cli.Addr(), 300000)

	require.Greater(t, gi.AllUploadBytesSinceStart.Load(), uint64(300000))
	require.GreaterOrEqual(t, gi.AllDownloadBytesSinceStart.Load(), uint64(300000))
}

func TestTCP_manyConnections(t *testing.T) {
	echo := startEcho(t, 0)
	cli := startPair(t, fullPresets, "", echo.Addr().String(), nil)

	t.Run("group", func(t *testing.T) {
		for i := 0; i < 8; i++ {
			t.Run(fmt.Sprint(i), func(t *testing.T) {
				t.Parallel()
				echoThrough(t, cli.Addr(), 5000)
			})
		}
	})
}

// Without ss-base the server uses its own target.
func TestTCP_serverTarget(t *testing.T) {
	echo := startEcho(t, 0)
	cli := startPair(t, obfsOnlyPresets, fmt.Sprintf("target = %q", echo.Addr().String()), "127.0.0.1:1", nil)

	echoThrough(t, cli.Addr(), 1000)
}

func TestTCP_targetPROXYprotocol(t *testing.T) {
	echo := startEcho(t, 1)
	cli := startPair(t, fullPresets, "target_xver = 1", echo.Addr().String(), nil)

	echoThrough(t, cli.Addr(), 1000)
}

// startSink starts a target that reads its client until EOF, reports what it got, then answers and closes.
func startSink(t *testing.T, answer []byte) (net.Listener, <-chan []byte) {
	got := make(chan []byte, 1)
	lis, err := netLayer.ListenAndAccept("tcp", "127.0.0.1:0", 0, func(c net.Conn) {
		defer c.Close()
		bs, _ := io.ReadAll(c)
		got <- bs
		c.Write(answer)
	})
	require.NoError(t, err)
	t.Cleanup(func() { lis.Close() })
	return lis, got
}

// A client that shuts its write side right after the request still gets it delivered, even though
// the request is held back by the tls handshake at the time of the EOF, and still gets the answer.
func TestTCP_halfClose(t *testing.T) {
	chains := map[string]string{
		"obfs only": obfsOnlyPresets,
		"full":      fullPresets,
	}
	request := []byte("GET / HTTP/1.0\r\n\r\n")
	answer := []byte("HTTP/1.0 200 OK\r\n\r\nbody")

	for name, presets := range chains {
		t.Run(name, func(t *testing.T) {
			sink, got := startSink(t, answer)
			sinkAddr := sink.Addr().String()
			cli := startPair(t, presets, fmt.Sprintf("target = %q", sinkAddr), sinkAddr, nil)

			c, err := net.Dial("tcp", cli.Addr().String())
			require.NoError(t, err)
			defer c.Close()
			c.SetDeadline(time.Now().Add(10 * time.Second))

			_, err = c.Write(request)
			require.NoError(t, err)
			require.NoError(t, c.(*net.TCPConn).CloseWrite())

			select {
			case bs := <-got:
				require.Equal(t, request, bs)
			case <-time.After(10 * time.Second):
				t.Fatal("target never got the request")
			}

			resp, err := io.ReadAll(c)
			require.NoError(t, err)
			require.Equal(t, answer, resp)
		})
	}
}

func TestTCP_wrongKey(t *testing.T) {
	require.NoError(t, presetLayer.Setup())
	echo := startEcho(t, 0)

	ser := startServer(t, `
role = "server"
listen = "127.0.0.1:0"

[[presets]]
name = "ss-base"

[[presets]]
name = "ss-aead-cipher"
params = { key = "right" }
`, nil)

	cli := startServer(t, fmt.Sprintf(`
role = "client"
listen = "127.0.0.1:0"
remote = %q
target = %q

[[presets]]
name = "ss-base"

[[presets]]
name = "ss-aead-cipher"
params = { key = "wrong" }
`, ser.Addr().String(), echo.Addr().String()), nil)

	c, err := net.Dial("tcp", cli.Addr().String())
	require.NoError(t, err)
	defer c.Close()
	c.SetDeadline(time.Now().Add(10 * time.Second))

	_, err = c.Write([]byte("hello"))
	require.NoError(t, err)

	_, err = c.Read(make([]byte, 10))
	require.Error(t, err)
}

func TestTCP_stop(t *testing.T) {
	echo := startEcho(t, 0)
	gi := new(blinkpipe.GlobalInfo)
	cli := startPair(t, fullPresets, "", echo.Addr().String(), gi)
	addr := cli.Addr().String()

	c, err := net.Dial("tcp", addr)
	require.NoError(t, err)
	defer c.Close()
	_, err = c.Write([]byte("hello"))
	require.NoError(t, err)
	c.SetDeadline(time.Now().Add(10 * time.Second))
	_, err = io.ReadFull(c, make([]byte, 5))
	require.NoError(t, err)
	require.EqualValues(t, 1, gi.ActiveConnectionCount.Load())

	require.NoError(t, cli.Stop())
	require.Nil(t, cli.Addr())

	_, err = c.Read(make([]byte, 1))
	require.Error(t, err)

	require.Eventually(t, func() bool { return gi.ActiveConnectionCount.Load() == 0 }, 5*time.Second, 10*time.Millisecond)

	_, err = net.DialTimeout("tcp", addr, time.Second)
	require.Error(t, err)
}
