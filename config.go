package blinkpipe

import (
	"io"
	"os"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/e1732a364fed/blinkpipe/netLayer"
	"github.com/e1732a364fed/blinkpipe/presetLayer"
	"github.com/e1732a364fed/blinkpipe/utils"
)

const (
	RoleClient = "client"
	RoleServer = "server"
)

type AppConf struct {
	LogLevel *int   `toml:"loglevel,omitempty"` //must be a pointer, or we can't tell an explicit 0 from an absent value
	LogFile  string `toml:"logfile,omitempty"`

	MaxBufLen *int `toml:"max_buf_len,omitempty"` //size of the read buffer of every connection
}

// StandardConf is the toml config of one blinkpipe instance.
//
//	role = "client"
//	listen = "127.0.0.1:1080"
//	remote = "example.com:443"
//	target = "127.0.0.1:8080"
//
//	[[presets]]
//	name = "ss-base"
//
//	[[presets]]
//	name = "ss-aead-cipher"
//	params = { method = "aes-256-gcm", key = "secret" }
//
//	[[presets]]
//	name = "obfs-tls1.2-ticket"
//	params = { sni = "www.bing.com" }
//
// Both ends must list the same presets in the same order.
type StandardConf struct {
	App *AppConf `toml:"app,omitempty"`

	Role string `toml:"role"`

	Network string `toml:"network,omitempty"` //tcp or unix, for listen. Default tcp
	Listen  string `toml:"listen"`
	Xver    int    `toml:"xver,omitempty"` //if > 0, the listener requires a PROXY protocol header

	Remote string `toml:"remote,omitempty"` //client only: the server

	//client: where the server should connect to, sent by ss-base.
	//server: where to connect when no preset reported a target.
	Target string `toml:"target,omitempty"`

	TargetXver int `toml:"target_xver,omitempty"` //server only: write a PROXY protocol header to the target

	Presets []*presetLayer.Conf `toml:"presets"`
}

func (c *StandardConf) IsClient() bool {
	return strings.EqualFold(strings.TrimSpace(c.Role), RoleClient)
}

// Validate checks the fields that can be checked without the preset registry.
func (c *StandardConf) Validate() error {
	role := strings.ToLower(strings.TrimSpace(c.Role))
	if role != RoleClient && role != RoleServer {
		return utils.ErrInErr{ErrDesc: "role must be client or server", ErrDetail: utils.ErrWrongParameter, Data: c.Role}
	}
	if c.Listen == "" {
		return utils.ErrInErr{ErrDesc: "no listen address", ErrDetail: utils.ErrNilParameter}
	}
	if c.Xver < 0 || c.Xver > 2 {
		return utils.ErrInErr{ErrDesc: "xver must be 0, 1 or 2", ErrDetail: utils.ErrWrongParameter, Data: c.Xver}
	}
	if c.TargetXver < 0 || c.TargetXver > 2 {
		return utils.ErrInErr{ErrDesc: "target_xver must be 0, 1 or 2", ErrDetail: utils.ErrWrongParameter, Data: c.TargetXver}
	}

	if role == RoleClient {
		if c.Remote == "" {
			return utils.ErrInErr{ErrDesc: "client needs a remote", ErrDetail: utils.ErrNilParameter}
		}
		if c.TargetXver != 0 {
			return utils.ErrInErr{ErrDesc: "target_xver is for the server", ErrDetail: utils.ErrWrongParameter}
		}
	}
	for _, addr := range []string{c.Remote, c.Target} {
		if addr == "" {
			continue
		}
		if _, err := netLayer.HostToAddress(addr); err != nil {
			return err
		}
	}
	return nil
}

func LoadTomlConfStr(str string) (c StandardConf, err error) {
	_, err = toml.Decode(str, &c)
	return
}

func LoadTomlConfFile(fileNamePath string) (StandardConf, error) {
	cf, err := os.Open(utils.GetFilePath(fileNamePath))
	if err != nil {
		return StandardConf{}, utils.ErrInErr{ErrDesc: "can't open config file", ErrDetail: err, Data: fileNamePath}
	}
	defer cf.Close()

	bs, err := io.ReadAll(cf)
	if err != nil {
		return StandardConf{}, utils.ErrInErr{ErrDesc: "can't read config file", ErrDetail: err, Data: fileNamePath}
	}
	return LoadTomlConfStr(string(bs))
}
