package main

import (
	"path/filepath"
	"testing"

	"github.com/e1732a364fed/blinkpipe"
	"github.com/e1732a364fed/blinkpipe/presetLayer"
	"github.com/e1732a364fed/blinkpipe/utils"
	"github.com/stretchr/testify/require"
)

func TestGenerateConfs(t *testing.T) {
	require.NoError(t, presetLayer.Setup())

	o := defaultGenOptions()
	require.Len(t, o.key, 32)

	confClient, confServer := generateConfs(o)

	for _, c := range []blinkpipe.StandardConf{confClient, confServer} {
		str, err := utils.GetPurgedTomlStr(c)
		require.NoError(t, err)

		loaded, err := blinkpipe.LoadTomlConfStr(str)
		require.NoError(t, err)
		require.Equal(t, c.Role, loaded.Role)
		require.Equal(t, c.Listen, loaded.Listen)
		require.Len(t, loaded.Presets, 3)

		key, err := loaded.Presets[1].String("key", "")
		require.NoError(t, err)
		require.Equal(t, o.key, key)

		_, err = blinkpipe.NewServer(&loaded, nil)
		require.NoError(t, err)
	}
	require.Equal(t, "127.0.0.1:4433", confClient.Remote)
}

func TestRunInit(t *testing.T) {
	dir := t.TempDir()
	require.Equal(t, 0, runInit([]string{"-o", dir}))

	for _, fn := range []string{"client.toml", "server.toml"} {
		c, err := blinkpipe.LoadTomlConfFile(filepath.Join(dir, fn))
		require.NoError(t, err)
		require.NoError(t, c.Validate())
	}

	require.NotEqual(t, 0, runInit([]string{"-o", filepath.Join(dir, "missing")}))
}

func TestValidators(t *testing.T) {
	require.NoError(t, validatePort("443"))
	require.Error(t, validatePort("0"))
	require.Error(t, validatePort("65536"))
	require.Error(t, validatePort("abc"))

	require.NoError(t, validateTarget("example.com:80"))
	require.Error(t, validateTarget(""))
}
