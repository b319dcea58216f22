/*
Package obfstls implements the "obfs-tls1.2-ticket" preset: a fake TLS 1.2 session resumption
handshake, after which every byte travels inside Application Data records.

	C ---- ClientHello ---> S
	C <--- ServerHello, ChangeCipherSpec, Finished --- S
	C ---- ChangeCipherSpec, Finished, ApplicationData, ... ---> S
	C <--- ApplicationData, ... --- S

Params:

	sni: the server name put into the ClientHello. Client side only.

There is no cryptography here; put an encrypting preset before it.
*/
package obfstls

import (
	"sync"

	"github.com/asaskevich/govalidator"
	"github.com/e1732a364fed/blinkpipe/presetLayer"
	"github.com/e1732a364fed/blinkpipe/tlsLayer"
	"github.com/e1732a364fed/blinkpipe/utils"
	"go.uber.org/atomic"
	"go.uber.org/zap"
)

const Name = "obfs-tls1.2-ticket"

// ClientHelloMinLen is the shortest first packet a server accepts.
const ClientHelloMinLen = 200

// MaxSNILen is the longest sni accepted, the length limit of a DNS name.
const MaxSNILen = 253

type stage int

const (
	stageHello stage = iota
	stageChangeCipherSpec
	stageApplicationData
)

func (s stage) String() string {
	switch s {
	case stageHello:
		return "hello"
	case stageChangeCipherSpec:
		return "change_cipher_spec"
	case stageApplicationData:
		return "application_data"
	}
	return "unknown"
}

func init() {
	presetLayer.RegisterCreator(Name, Creator{})
}

type Creator struct{}

func (Creator) Validate(conf *presetLayer.Conf) error {
	sni, err := conf.String("sni", "")
	if err != nil {
		return err
	}
	if len(sni) > MaxSNILen {
		return utils.ErrInErr{ErrDesc: "sni too long", ErrDetail: utils.ErrWrongParameter, Data: len(sni)}
	}
	if sni != "" && !govalidator.IsDNSName(sni) {
		if ce := utils.CanLogWarn("obfs-tls1.2-ticket: sni doesn't look like a domain name"); ce != nil {
			ce.Write(zap.String("sni", sni))
		}
	}
	return nil
}

func (c Creator) NewPreset(conf *presetLayer.Conf, env presetLayer.Env) (presetLayer.Preset, error) {
	if err := c.Validate(conf); err != nil {
		return nil, err
	}
	sni, _ := conf.String("sni", "")

	p := &Preset{sni: sni}
	p.adBuf = presetLayer.NewAdvancedBuffer(tlsLayer.MaxAppDataRecordLen, tlsLayer.MeasureRecord, p.onRecord)
	return p, nil
}

// Preset is the per connection state. The hooks of the two directions may run concurrently.
// mu guards stage and pending during the handshake, and is held while handshake bytes are emitted,
// so that data written meanwhile can't get ahead of them. Once in stageApplicationData the stage
// never changes again and the hooks run without the lock.
type Preset struct {
	sni string

	mu      sync.Mutex
	stage   stage
	pending []byte

	// server side: bytes of the client's ChangeCipherSpec + Finished still to drop
	dropLeft int

	// client side: whether the server's ChangeCipherSpec was seen
	sawServerCCS bool

	// client side: set from the ClientHello until our Finished and the pending data are written
	holding atomic.Bool

	// in direction only
	adBuf  *presetLayer.AdvancedBuffer
	inEmit presetLayer.Emitter
}

func (*Preset) Name() string { return Name }

func (p *Preset) Withholding() bool { return p.holding.Load() }

func unexpected(hook string, st stage) error {
	return utils.ErrInErr{ErrDesc: "obfs-tls1.2-ticket: " + hook + " called in wrong stage", ErrDetail: utils.ErrInvalidData, Data: st.String()}
}

func (p *Preset) ClientOut(b []byte, e presetLayer.Emitter) error {
	p.mu.Lock()

	switch st := p.stage; st {
	case stageApplicationData:
		p.mu.Unlock()
		return e.Next(tlsLayer.WrapAppData(b))

	case stageHello:
		p.pending = append([]byte(nil), b...)
		p.stage = stageChangeCipherSpec
		p.holding.Store(true)
		err := e.Direct(tlsLayer.BuildClientHello(p.sni))
		p.mu.Unlock()
		return err

	case stageChangeCipherSpec:
		//the server hasn't answered yet; goes out right after our Finished.
		p.pending = append(p.pending, b...)
		p.mu.Unlock()
		return nil

	default:
		p.mu.Unlock()
		return unexpected("ClientOut", st)
	}
}

func (p *Preset) ServerOut(b []byte, e presetLayer.Emitter) error {
	p.mu.Lock()
	st := p.stage
	p.mu.Unlock()

	if st != stageApplicationData {
		return unexpected("ServerOut", st)
	}
	return e.Next(tlsLayer.WrapAppData(b))
}

func (p *Preset) ServerIn(b []byte, e presetLayer.Emitter) error {
	p.inEmit = e
	p.mu.Lock()

	switch st := p.stage; st {
	case stageApplicationData:
		p.mu.Unlock()
		return p.adBuf.Put(b)

	case stageHello:
		err := p.answerClientHello(b, e)
		p.mu.Unlock()
		return err

	case stageChangeCipherSpec:
		//the client's ChangeCipherSpec and Finished carry nothing for us.
		n := p.dropLeft
		if n > len(b) {
			n = len(b)
		}
		p.dropLeft -= n
		b = b[n:]
		if p.dropLeft > 0 {
			p.mu.Unlock()
			return nil
		}
		p.stage = stageApplicationData
		p.mu.Unlock()
		return p.adBuf.Put(b)

	default:
		p.mu.Unlock()
		return unexpected("ServerIn", st)
	}
}

func (p *Preset) answerClientHello(b []byte, e presetLayer.Emitter) error {
	if err := checkClientHello(b); err != nil {
		return err
	}
	if ce := utils.CanLogDebug("obfs-tls1.2-ticket got ClientHello"); ce != nil {
		if ci, err := tlsLayer.SniffClientHello(b); err == nil {
			ce.Write(zap.String("sni", ci.ServerName), zap.Int("ticket", ci.TicketLen), zap.String("extensions", ci.ExtensionNames()))
		} else {
			ce.Write(zap.Error(err))
		}
	}

	p.stage = stageChangeCipherSpec
	p.dropLeft = tlsLayer.ClientFinishFlightLen
	return e.Reply(tlsLayer.BuildServerFlight())
}

func (p *Preset) ClientIn(b []byte, e presetLayer.Emitter) error {
	p.inEmit = e
	p.mu.Lock()

	switch st := p.stage; st {
	case stageApplicationData:
		p.mu.Unlock()
		return p.adBuf.Put(b)

	case stageChangeCipherSpec:
		//records of the server's flight come through onRecord, which finishes the handshake.
		err := p.adBuf.Put(b)
		p.mu.Unlock()
		return err

	default:
		p.mu.Unlock()
		return unexpected("ClientIn", st)
	}
}

// onRecord is called by adBuf with one whole record. In stageChangeCipherSpec p.mu is held.
func (p *Preset) onRecord(record []byte) error {
	switch st := p.stage; st {
	case stageApplicationData:
		if record[0] != tlsLayer.RecordApplicationData {
			return utils.ErrInErr{ErrDesc: "obfs-tls1.2-ticket: expect Application Data", ErrDetail: utils.ErrMalformedHeader, Data: record[0]}
		}
		return p.inEmit.Next(tlsLayer.RecordPayload(record))

	case stageChangeCipherSpec:
		//only the client reads records in this stage: ServerHello, ChangeCipherSpec, Finished
		switch record[0] {
		case tlsLayer.RecordChangeCipherSpec:
			p.sawServerCCS = true
			return nil
		case tlsLayer.RecordHandshake:
			if !p.sawServerCCS {
				return nil
			}
			return p.finishClientHandshake()
		case tlsLayer.RecordAlert:
			return utils.ErrInErr{ErrDesc: "obfs-tls1.2-ticket: server sent an alert", ErrDetail: utils.ErrMalformedHeader, Data: record[tlsLayer.RecordHeaderLen:]}
		}
		return utils.ErrInErr{ErrDesc: "obfs-tls1.2-ticket: unexpected record in server handshake", ErrDetail: utils.ErrMalformedHeader, Data: record[0]}

	default:
		return unexpected("onRecord", st)
	}
}

// finishClientHandshake sends our ChangeCipherSpec + Finished and the data held back so far.
func (p *Preset) finishClientHandshake() error {
	out := tlsLayer.AppendClientFinishFlight(nil)
	out = append(out, tlsLayer.WrapAppData(p.pending)...)

	if ce := utils.CanLogDebug("obfs-tls1.2-ticket client handshake done"); ce != nil {
		ce.Write(zap.Int("pending", len(p.pending)))
	}

	p.pending = nil
	p.stage = stageApplicationData
	err := p.inEmit.Reply(out)
	p.holding.Store(false)
	return err
}

func checkClientHello(b []byte) error {
	if len(b) < ClientHelloMinLen {
		return utils.ErrInErr{ErrDesc: "obfs-tls1.2-ticket: TLS handshake header is too short", ErrDetail: utils.ErrFrameTooShort, Data: len(b)}
	}
	if b[0] != tlsLayer.RecordHandshake || b[1] != 0x03 || b[2] != 0x01 {
		return utils.ErrInErr{ErrDesc: "obfs-tls1.2-ticket: invalid TLS handshake header", ErrDetail: utils.ErrMalformedHeader, Data: b[:3]}
	}
	if l := int(b[3])<<8 | int(b[4]); l != len(b)-tlsLayer.RecordHeaderLen {
		return utils.ErrInErr{ErrDesc: "obfs-tls1.2-ticket: unexpected TLS handshake header length", ErrDetail: utils.ErrLengthMismatch, Data: l}
	}
	return nil
}

func (p *Preset) Destroy() {
	p.mu.Lock()
	p.pending = nil
	p.adBuf.Reset()
	p.mu.Unlock()
}
