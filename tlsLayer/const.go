package tlsLayer

// record content types
const (
	RecordChangeCipherSpec byte = 20
	RecordAlert            byte = 21
	RecordHandshake        byte = 22
	RecordApplicationData  byte = 23
)

// handshake message types
const (
	HandshakeClientHello byte = 1
	HandshakeServerHello byte = 2
)

const (
	VersionTLS10 uint16 = 0x0301
	VersionTLS12 uint16 = 0x0303
)

const (
	RecordHeaderLen = 5

	// MaxPlaintextLen is 2^14, the biggest fragment a record may carry.
	MaxPlaintextLen = 1 << 14

	// payload length range of each disguised Application Data record
	AppDataMinPayloadLen = 0x0800
	AppDataMaxPayloadLen = 0x3FFF

	// MaxAppDataRecordLen is the frame limit on the read side. A little bigger than a real
	// TLS 1.2 record may be, so that a peer padding up to the cipher overhead still passes.
	MaxAppDataRecordLen = RecordHeaderLen + MaxPlaintextLen + 2048
)

var etStrMap map[int]string

const (
	et_server_name                            = 0
	et_max_fragment_length                    = 1
	et_status_request                         = 5
	et_supported_groups                       = 10
	et_ec_point_formats                       = 11
	et_signature_algorithms                   = 13
	et_use_srtp                               = 14
	et_heartbeat                              = 15
	et_application_layer_protocol_negotiation = 16
	et_signed_certificate_timestamp           = 18
	et_client_certificate_type                = 19
	et_server_certificate_type                = 20
	et_padding                                = 21
	et_extended_master_secret                 = 23
	et_session_ticket                         = 35
	et_pre_shared_key                         = 41
	et_early_data                             = 42
	et_supported_versions                     = 43
	et_cookie                                 = 44
	et_psk_key_exchange_modes                 = 45
	et_certificate_authorities                = 47
	et_oid_filters                            = 48
	et_post_handshake_auth                    = 49
	et_signature_algorithms_cert              = 50
	et_key_share                              = 51
	et_channel_id                             = 0x7550
	et_renegotiation_info                     = 0xff01
)

func init() {
	etStrMap = map[int]string{
		et_server_name:                            "server_name",
		et_max_fragment_length:                    "max_fragment_length",
		et_status_request:                         "status_request",
		et_supported_groups:                       "supported_groups",
		et_ec_point_formats:                       "ec_point_formats",
		et_signature_algorithms:                   "signature_algorithms",
		et_use_srtp:                               "use_srtp",
		et_heartbeat:                              "heartbeat",
		et_application_layer_protocol_negotiation: "application_layer_protocol_negotiation",
		et_signed_certificate_timestamp:           "signed_certificate_timestamp",
		et_client_certificate_type:                "client_certificate_type",
		et_server_certificate_type:                "server_certificate_type",
		et_padding:                                "padding",
		et_extended_master_secret:                 "extended_master_secret",
		et_session_ticket:                         "session_ticket",
		et_pre_shared_key:                         "pre_shared_key",
		et_early_data:                             "early_data",
		et_supported_versions:                     "supported_versions",
		et_cookie:                                 "cookie",
		et_psk_key_exchange_modes:                 "psk_key_exchange_modes",
		et_certificate_authorities:                "certificate_authorities",
		et_oid_filters:                            "oid_filters",
		et_post_handshake_auth:                    "post_handshake_auth",
		et_signature_algorithms_cert:              "signature_algorithms_cert",
		et_key_share:                              "key_share",
		et_channel_id:                             "channel_id",
		et_renegotiation_info:                     "renegotiation_info",
	}
}

// ExtensionName returns the IANA name of a TLS extension type, or "unknown".
func ExtensionName(et uint16) string {
	if s, ok := etStrMap[int(et)]; ok {
		return s
	}
	return "unknown"
}
