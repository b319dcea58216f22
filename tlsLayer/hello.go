package tlsLayer

import (
	"github.com/e1732a364fed/blinkpipe/utils"
)

// The handshake built here looks like a Chrome-ish TLS 1.2 client resuming a session
// with a SessionTicket. No key is ever agreed; everything after it is plain records.
//
//	C ---- ClientHello ---> S
//	C <--- ServerHello, ChangeCipherSpec, Finished --- S
//	C ---- ChangeCipherSpec, Finished, ApplicationData, ... ---> S
//	C <--- ApplicationData, ... --- S

const (
	SessionIDLen = 32

	minSessionTicketLen = 200
	maxSessionTicketLen = 400

	minServerFinishedLen = 32
	maxServerFinishedLen = 40

	clientFinishedLen = 32
)

var (
	clientHelloCipherSuites = utils.MustHex("001a" +
		"c02b" + // TLS_ECDHE_ECDSA_WITH_AES_128_GCM_SHA256
		"c02f" + // TLS_ECDHE_RSA_WITH_AES_128_GCM_SHA256
		"c02c" + // TLS_ECDHE_ECDSA_WITH_AES_256_GCM_SHA384
		"c030" + // TLS_ECDHE_RSA_WITH_AES_256_GCM_SHA384
		"cc14" + // TLS_ECDHE_ECDSA_WITH_CHACHA20_POLY1305_SHA256 (draft)
		"cc13" + // TLS_ECDHE_RSA_WITH_CHACHA20_POLY1305_SHA256 (draft)
		"c013" + // TLS_ECDHE_RSA_WITH_AES_128_CBC_SHA
		"c014" + // TLS_ECDHE_RSA_WITH_AES_256_CBC_SHA
		"009c" + // TLS_RSA_WITH_AES_128_GCM_SHA256
		"009d" + // TLS_RSA_WITH_AES_256_GCM_SHA384
		"002f" + // TLS_RSA_WITH_AES_128_CBC_SHA
		"0035" + // TLS_RSA_WITH_AES_256_CBC_SHA
		"000a") // TLS_RSA_WITH_3DES_EDE_CBC_SHA

	extRenegotiationInfo    = utils.MustHex("ff01000100")
	extExtendedMasterSecret = utils.MustHex("00170000")

	// extensions after the session ticket, in order
	clientHelloTailExts = utils.MustHex(
		"000d00140012040308040401050308050501080606010201" + // signature_algorithms
			"000500050100000000" + // status_request
			"00120000" + // signed_certificate_timestamp
			"75500000" + // channel_id
			"000b00020100" + // ec_point_formats
			"000a0006000400170018") // supported_groups: secp256r1, secp384r1

	serverHelloExts = utils.MustHex(
		"ff01000100" + // renegotiation_info
			"00050000" + // status_request
			"00170000") // extended_master_secret

	// ChangeCipherSpecRecord is the whole CCS record, the same in both directions.
	ChangeCipherSpecRecord = utils.MustHex("140303000101")
)

// ClientFinishFlightLen is the length of the client's ChangeCipherSpec + Finished,
// which the server drops without looking at it.
const ClientFinishFlightLen = 6 + RecordHeaderLen + clientFinishedLen

// appendHandshake appends a handshake record holding exactly one handshake message.
func appendHandshake(dst []byte, recordVersion uint16, msgType byte, body []byte) []byte {
	dst = AppendRecordHeader(dst, RecordHandshake, recordVersion, 1+3+len(body))
	dst = append(dst, msgType)
	dst = append(dst, utils.NumberToBytes(uint64(len(body)), 3)...)
	return append(dst, body...)
}

// appendRandomAndSession appends a TLS 1.2 Random (gmt_unix_time + 28 random bytes) and a random session id.
func appendRandomAndSession(dst []byte) []byte {
	dst = append(dst, utils.UTCBytes()...)
	dst = append(dst, utils.RandomBytes(28)...)
	dst = append(dst, SessionIDLen)
	return append(dst, utils.RandomBytes(SessionIDLen)...)
}

func appendServerNameExt(dst []byte, sni string) []byte {
	dst = append(dst, 0x00, 0x00)
	dst = append(dst, utils.NumberToBytes(uint64(2+1+2+len(sni)), 2)...)
	dst = append(dst, utils.NumberToBytes(uint64(1+2+len(sni)), 2)...)
	dst = append(dst, 0x00) // host_name
	dst = append(dst, utils.NumberToBytes(uint64(len(sni)), 2)...)
	return append(dst, sni...)
}

// BuildClientHello returns a complete ClientHello record carrying sni and a random session ticket.
// The record layer version is TLS 1.0 and the hello version TLS 1.2, like browsers send.
func BuildClientHello(sni string) []byte {
	ticketLen := utils.RandomInt(minSessionTicketLen, maxSessionTicketLen)

	exts := make([]byte, 0, 128+len(sni)+ticketLen)
	exts = append(exts, extRenegotiationInfo...)
	exts = appendServerNameExt(exts, sni)
	exts = append(exts, extExtendedMasterSecret...)
	exts = append(exts, 0x00, 0x23) // SessionTicket TLS
	exts = append(exts, utils.NumberToBytes(uint64(ticketLen), 2)...)
	exts = append(exts, utils.RandomBytes(ticketLen)...)
	exts = append(exts, clientHelloTailExts...)

	body := make([]byte, 0, 2+32+1+SessionIDLen+len(clientHelloCipherSuites)+2+2+len(exts))
	body = append(body, 0x03, 0x03)
	body = appendRandomAndSession(body)
	body = append(body, clientHelloCipherSuites...)
	body = append(body, 0x01, 0x00) // compression methods: null
	body = append(body, utils.NumberToBytes(uint64(len(exts)), 2)...)
	body = append(body, exts...)

	return appendHandshake(nil, VersionTLS10, HandshakeClientHello, body)
}

// BuildServerFlight returns ServerHello + ChangeCipherSpec + Finished, the server's whole answer
// to a ClientHello. The "Finished" is 32 to 40 random bytes.
func BuildServerFlight() []byte {
	body := make([]byte, 0, 2+32+1+SessionIDLen+3+2+len(serverHelloExts))
	body = append(body, 0x03, 0x03)
	body = appendRandomAndSession(body)
	body = append(body, 0xc0, 0x2f) // TLS_ECDHE_RSA_WITH_AES_128_GCM_SHA256
	body = append(body, 0x00)       // compression method: null
	body = append(body, utils.NumberToBytes(uint64(len(serverHelloExts)), 2)...)
	body = append(body, serverHelloExts...)

	finishedLen := utils.RandomInt(minServerFinishedLen, maxServerFinishedLen)

	flight := make([]byte, 0, RecordHeaderLen+4+len(body)+len(ChangeCipherSpecRecord)+RecordHeaderLen+finishedLen)
	flight = appendHandshake(flight, VersionTLS12, HandshakeServerHello, body)
	flight = append(flight, ChangeCipherSpecRecord...)
	flight = AppendRecordHeader(flight, RecordHandshake, VersionTLS12, finishedLen)
	return append(flight, utils.RandomBytes(finishedLen)...)
}

// AppendClientFinishFlight appends the client's ChangeCipherSpec + Finished, ClientFinishFlightLen bytes.
func AppendClientFinishFlight(dst []byte) []byte {
	dst = append(dst, ChangeCipherSpecRecord...)
	dst = AppendRecordHeader(dst, RecordHandshake, VersionTLS12, clientFinishedLen)
	return append(dst, utils.RandomBytes(clientFinishedLen)...)
}
