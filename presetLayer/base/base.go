/*
Package base implements the "ss-base" preset, which tells the server where to connect.

The client puts the address record of its target in front of the first bytes it sends:

	+------+----------+----------+
	| ATYP | DST.ADDR | DST.PORT |
	+------+----------+----------+
	|  1   | Variable |    2     |
	+------+----------+----------+

ATYP is 1 (ipv4), 3 (domain, prefixed by its length) or 4 (ipv6), as in socks5 and shadowsocks.
The server strips the record and reports the address through presetLayer.Env.OnTarget.
Nothing is done in the other direction.
*/
package base

import (
	"errors"

	"github.com/e1732a364fed/blinkpipe/netLayer"
	"github.com/e1732a364fed/blinkpipe/presetLayer"
	"github.com/e1732a364fed/blinkpipe/utils"
	"go.uber.org/zap"
)

const Name = "ss-base"

func init() {
	presetLayer.RegisterCreator(Name, Creator{})
}

type Creator struct{}

func (Creator) NewPreset(conf *presetLayer.Conf, env presetLayer.Env) (presetLayer.Preset, error) {
	if !env.IsClient {
		return &Preset{onTarget: env.OnTarget}, nil
	}

	if env.Target == nil {
		return nil, utils.ErrInErr{ErrDesc: "ss-base: client needs a target", ErrDetail: utils.ErrNilParameter}
	}
	rec := env.Target.Record()
	if !rec.IsValid() {
		return nil, utils.ErrInErr{ErrDesc: "ss-base: can't encode target", ErrDetail: utils.ErrWrongParameter, Data: env.Target.String()}
	}
	return &Preset{header: rec.Bytes()}, nil
}

type Preset struct {
	// client
	header     []byte
	headerSent bool

	// server
	onTarget func(netLayer.Addr) error
	resolved bool
	pending  []byte
}

func (*Preset) Name() string { return Name }

func (p *Preset) ClientOut(b []byte, e presetLayer.Emitter) error {
	if p.headerSent {
		return e.Next(b)
	}
	p.headerSent = true

	out := make([]byte, 0, len(p.header)+len(b))
	out = append(out, p.header...)
	out = append(out, b...)
	return e.Next(out)
}

func (p *Preset) ServerIn(b []byte, e presetLayer.Emitter) error {
	if p.resolved {
		return e.Next(b)
	}

	p.pending = append(p.pending, b...)
	addr, n, err := netLayer.ParseAddressRecord(p.pending)
	if err != nil {
		if errors.Is(err, utils.ErrFrameTooShort) {
			return nil
		}
		return err
	}
	p.resolved = true

	if ce := utils.CanLogDebug("ss-base got target"); ce != nil {
		ce.Write(zap.String("target", addr.String()))
	}

	if p.onTarget != nil {
		if err := p.onTarget(addr); err != nil {
			return err
		}
	}

	rest := p.pending[n:]
	p.pending = nil
	if len(rest) == 0 {
		return nil
	}
	return e.Next(rest)
}

func (p *Preset) Destroy() {
	p.pending = nil
}
