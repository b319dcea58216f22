package blinkpipe_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/e1732a364fed/blinkpipe"
	"github.com/e1732a364fed/blinkpipe/presetLayer"
	"github.com/e1732a364fed/blinkpipe/utils"
	"github.com/stretchr/testify/require"
)

const testClientConf = `
role = "client"
listen = "127.0.0.1:10800"
remote = "example.com:443"
target = "127.0.0.1:8080"

[app]
loglevel = 0
logfile = "bp.log"

[[presets]]
name = "ss-base"

[[presets]]
name = "ss-aead-cipher"
params = { method = "chacha20-ietf-poly1305", key = "secret" }

[[presets]]
name = "obfs-tls1.2-ticket"
params = { sni = "www.bing.com" }
`

func TestLoadTomlConfStr(t *testing.T) {
	c, err := blinkpipe.LoadTomlConfStr(testClientConf)
	require.NoError(t, err)

	require.True(t, c.IsClient())
	require.Equal(t, "127.0.0.1:10800", c.Listen)
	require.Equal(t, "example.com:443", c.Remote)
	require.NotNil(t, c.App)
	require.NotNil(t, c.App.LogLevel)
	require.Equal(t, 0, *c.App.LogLevel)
	require.Nil(t, c.App.MaxBufLen)
	require.Equal(t, "bp.log", c.App.LogFile)

	require.Len(t, c.Presets, 3)
	require.Equal(t, "ss-aead-cipher", c.Presets[1].Name)
	key, err := c.Presets[1].String("key", "")
	require.NoError(t, err)
	require.Equal(t, "secret", key)
	sni, err := c.Presets[2].String("sni", "")
	require.NoError(t, err)
	require.Equal(t, "www.bing.com", sni)

	require.NoError(t, c.Validate())
}

func TestLoadTomlConfFile(t *testing.T) {
	fn := filepath.Join(t.TempDir(), "client.toml")
	require.NoError(t, os.WriteFile(fn, []byte(testClientConf), 0644))

	c, err := blinkpipe.LoadTomlConfFile(fn)
	require.NoError(t, err)
	require.Len(t, c.Presets, 3)

	_, err = blinkpipe.LoadTomlConfFile(filepath.Join(t.TempDir(), "nope.toml"))
	require.Error(t, err)

	_, err = blinkpipe.LoadTomlConfStr("role = ")
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	cases := map[string]blinkpipe.StandardConf{
		"no role":          {Listen: "127.0.0.1:1"},
		"bad role":         {Role: "relay", Listen: "127.0.0.1:1"},
		"no listen":        {Role: "server"},
		"client no remote": {Role: "client", Listen: "127.0.0.1:1"},
		"bad xver":         {Role: "server", Listen: "127.0.0.1:1", Xver: 3},
		"client xver":      {Role: "client", Listen: "127.0.0.1:1", Remote: "a.com", TargetXver: 1},
		"bad target":       {Role: "server", Listen: "127.0.0.1:1", Target: "a.com:99999"},
	}
	for name, c := range cases {
		c := c
		require.Error(t, c.Validate(), name)
	}

	ok := blinkpipe.StandardConf{Role: " Server ", Listen: "127.0.0.1:1"}
	require.NoError(t, ok.Validate())
	require.False(t, ok.IsClient())
}

func TestNewServer(t *testing.T) {
	require.NoError(t, presetLayer.Setup())

	c, err := blinkpipe.LoadTomlConfStr(testClientConf)
	require.NoError(t, err)

	c.Presets = append(c.Presets, &presetLayer.Conf{Name: "no-such-preset"})
	_, err = blinkpipe.NewServer(&c, nil)
	require.True(t, errors.Is(err, utils.ErrWrongParameter))

	//ss-base on a client can't work without a target
	c.Presets = c.Presets[:1]
	c.Target = ""
	_, err = blinkpipe.NewServer(&c, nil)
	require.True(t, errors.Is(err, utils.ErrNilParameter))

	_, err = blinkpipe.NewServer(nil, nil)
	require.Error(t, err)
}
