/*
Package aead implements the "ss-aead-cipher" preset: the shadowsocks AEAD stream format.

	[salt][encrypted payload length][length tag][encrypted payload][payload tag]...

Each direction starts with a random salt, from which the session subkey is derived. A payload chunk
is at most 0x3FFF bytes. The nonce is a little endian counter, incremented after every Seal/Open.

Params:

	method: a go-shadowsocks2 AEAD cipher name. Default chacha20-ietf-poly1305.
	key: the password. Required.

Reference: https://shadowsocks.org/doc/aead.html
*/
package aead

import (
	"crypto/cipher"
	"encoding/binary"
	"strings"

	"github.com/e1732a364fed/blinkpipe/presetLayer"
	"github.com/e1732a364fed/blinkpipe/utils"
	"github.com/shadowsocks/go-shadowsocks2/core"
	"github.com/shadowsocks/go-shadowsocks2/shadowaead"
)

const Name = "ss-aead-cipher"

const (
	DefaultMethod = "chacha20-ietf-poly1305"

	MaxPayloadLen = 0x3FFF

	// every AEAD shadowsocks uses has a 16 byte tag
	maxTagLen = 16

	maxChunkLen = 2 + maxTagLen + MaxPayloadLen + maxTagLen
)

// Methods lists the accepted method names. The AEAD_* names of go-shadowsocks2 work too.
var Methods = []string{"chacha20-ietf-poly1305", "aes-256-gcm", "aes-128-gcm"}

func init() {
	presetLayer.RegisterCreator(Name, Creator{})
}

func pickCipher(conf *presetLayer.Conf) (shadowaead.Cipher, error) {
	method, err := conf.String("method", DefaultMethod)
	if err != nil {
		return nil, err
	}
	key, err := conf.String("key", "")
	if err != nil {
		return nil, err
	}
	if key == "" {
		return nil, utils.ErrInErr{ErrDesc: "ss-aead-cipher: key is required", ErrDetail: utils.ErrWrongParameter}
	}

	c, err := core.PickCipher(strings.ToUpper(method), nil, key)
	if err != nil {
		return nil, utils.ErrInErr{ErrDesc: "ss-aead-cipher: bad method", ErrDetail: err, Data: method}
	}
	ac, ok := c.(shadowaead.Cipher)
	if !ok {
		return nil, utils.ErrInErr{ErrDesc: "ss-aead-cipher: not an AEAD method", ErrDetail: utils.ErrWrongParameter, Data: method}
	}
	return ac, nil
}

type Creator struct{}

func (Creator) Validate(conf *presetLayer.Conf) error {
	_, err := pickCipher(conf)
	return err
}

func (Creator) NewPreset(conf *presetLayer.Conf, env presetLayer.Env) (presetLayer.Preset, error) {
	c, err := pickCipher(conf)
	if err != nil {
		return nil, err
	}
	p := &Preset{cipher: c, payloadLen: -1}
	p.ab = presetLayer.NewAdvancedBuffer(maxChunkLen, p.measure, p.onFrame)
	return p, nil
}

// Preset keeps one AEAD per direction. The out fields are only touched by the out direction,
// the in fields only by the in direction.
type Preset struct {
	cipher shadowaead.Cipher

	//out
	enc      cipher.AEAD
	encNonce []byte

	//in
	dec        cipher.AEAD
	decNonce   []byte
	payloadLen int // decrypted length of the chunk being received, -1 if not known yet
	lenBuf     [2]byte
	plainBuf   []byte
	ab         *presetLayer.AdvancedBuffer
	inEmit     presetLayer.Emitter
}

func (*Preset) Name() string { return Name }

func (p *Preset) ClientOut(b []byte, e presetLayer.Emitter) error { return p.encrypt(b, e) }
func (p *Preset) ServerOut(b []byte, e presetLayer.Emitter) error { return p.encrypt(b, e) }
func (p *Preset) ClientIn(b []byte, e presetLayer.Emitter) error  { return p.decrypt(b, e) }
func (p *Preset) ServerIn(b []byte, e presetLayer.Emitter) error  { return p.decrypt(b, e) }

func increment(nonce []byte) {
	for i := range nonce {
		nonce[i]++
		if nonce[i] != 0 {
			return
		}
	}
}

func (p *Preset) seal(dst, plain []byte) []byte {
	dst = p.enc.Seal(dst, p.encNonce, plain, nil)
	increment(p.encNonce)
	return dst
}

func (p *Preset) encrypt(b []byte, e presetLayer.Emitter) error {
	if len(b) == 0 {
		return nil
	}

	chunks := (len(b) + MaxPayloadLen - 1) / MaxPayloadLen
	out := make([]byte, 0, p.cipher.SaltSize()+len(b)+chunks*(2+2*maxTagLen))

	if p.enc == nil {
		salt := utils.RandomBytes(p.cipher.SaltSize())
		aead, err := p.cipher.Encrypter(salt)
		if err != nil {
			return utils.ErrInErr{ErrDesc: "ss-aead-cipher: create encrypter failed", ErrDetail: err}
		}
		p.enc = aead
		p.encNonce = make([]byte, aead.NonceSize())
		out = append(out, salt...)
	}

	var lenBs [2]byte
	for len(b) > 0 {
		n := len(b)
		if n > MaxPayloadLen {
			n = MaxPayloadLen
		}
		binary.BigEndian.PutUint16(lenBs[:], uint16(n))
		out = p.seal(out, lenBs[:])
		out = p.seal(out, b[:n])
		b = b[n:]
	}
	return e.Next(out)
}

func (p *Preset) decrypt(b []byte, e presetLayer.Emitter) error {
	p.inEmit = e
	return p.ab.Put(b)
}

// measure asks for the salt first, then for one chunk at a time. The length block of a chunk is
// opened once and remembered, since every Open moves the nonce.
func (p *Preset) measure(pending []byte) (int, error) {
	if p.dec == nil {
		return p.cipher.SaltSize(), nil
	}
	tagLen := p.dec.Overhead()

	if p.payloadLen < 0 {
		lenBlockLen := 2 + tagLen
		if len(pending) < lenBlockLen {
			return 0, nil
		}
		lenBs, err := p.dec.Open(p.lenBuf[:0], p.decNonce, pending[:lenBlockLen], nil)
		if err != nil {
			return 0, utils.ErrInErr{ErrDesc: "ss-aead-cipher: length authentication failed", ErrDetail: utils.ErrInvalidData}
		}
		increment(p.decNonce)

		n := int(binary.BigEndian.Uint16(lenBs))
		if n > MaxPayloadLen {
			return 0, utils.ErrInErr{ErrDesc: "ss-aead-cipher: chunk too large", ErrDetail: utils.ErrFrameTooLarge, Data: n}
		}
		p.payloadLen = n
	}
	return 2 + tagLen + p.payloadLen + tagLen, nil
}

func (p *Preset) onFrame(frame []byte) error {
	if p.dec == nil {
		aead, err := p.cipher.Decrypter(frame)
		if err != nil {
			return utils.ErrInErr{ErrDesc: "ss-aead-cipher: create decrypter failed", ErrDetail: err}
		}
		p.dec = aead
		p.decNonce = make([]byte, aead.NonceSize())
		return nil
	}

	sealed := frame[2+p.dec.Overhead():]
	plain, err := p.dec.Open(p.plainBuf[:0], p.decNonce, sealed, nil)
	if err != nil {
		return utils.ErrInErr{ErrDesc: "ss-aead-cipher: payload authentication failed", ErrDetail: utils.ErrInvalidData}
	}
	increment(p.decNonce)
	p.payloadLen = -1
	p.plainBuf = plain[:0]

	if len(plain) == 0 {
		return nil
	}
	return p.inEmit.Next(plain)
}

func (p *Preset) Destroy() {
	p.ab.Reset()
	p.enc, p.dec = nil, nil
	p.plainBuf = nil
}
