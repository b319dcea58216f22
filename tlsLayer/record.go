package tlsLayer

import (
	"encoding/binary"

	"github.com/e1732a364fed/blinkpipe/utils"
)

func AppendRecordHeader(dst []byte, contentType byte, version uint16, length int) []byte {
	return append(dst, contentType, byte(version>>8), byte(version), byte(length>>8), byte(length))
}

// AppendAppData appends d as one Application Data record. len(d) must not exceed 0xFFFF.
func AppendAppData(dst, d []byte) []byte {
	dst = AppendRecordHeader(dst, RecordApplicationData, VersionTLS12, len(d))
	return append(dst, d...)
}

// WrapAppData splits d into random sized chunks of [AppDataMinPayloadLen, AppDataMaxPayloadLen]
// bytes and wraps each one into an Application Data record. An empty d gives nil.
func WrapAppData(d []byte) []byte {
	if len(d) == 0 {
		return nil
	}
	chunks := utils.RandomChunks(d, AppDataMinPayloadLen, AppDataMaxPayloadLen)

	result := make([]byte, 0, len(d)+len(chunks)*RecordHeaderLen)
	for _, c := range chunks {
		result = AppendAppData(result, c)
	}
	return result
}

var errRecordHeaderIncomplete = utils.ErrInErr{ErrDesc: "tls record header incomplete", ErrDetail: utils.ErrFrameTooShort}

// MeasureRecord reports the whole length of the record at the head of pending.
// Less than RecordHeaderLen bytes gives an error wrapping utils.ErrFrameTooShort.
func MeasureRecord(pending []byte) (int, error) {
	if len(pending) < RecordHeaderLen {
		return 0, errRecordHeaderIncomplete
	}
	return RecordHeaderLen + int(binary.BigEndian.Uint16(pending[3:5])), nil
}

// RecordPayload strips the record header.
func RecordPayload(record []byte) []byte {
	return record[RecordHeaderLen:]
}
