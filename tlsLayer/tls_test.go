package tlsLayer_test

import (
	"bytes"
	"encoding/binary"
	"errors"
	"testing"

	"github.com/e1732a364fed/blinkpipe/tlsLayer"
	"github.com/e1732a364fed/blinkpipe/utils"
	"github.com/stretchr/testify/require"
)

// splitRecords cuts b into whole records, failing the test on a partial one.
func splitRecords(t *testing.T, b []byte) (records [][]byte) {
	for len(b) > 0 {
		n, err := tlsLayer.MeasureRecord(b)
		require.NoError(t, err)
		require.LessOrEqual(t, n, len(b))
		records = append(records, b[:n])
		b = b[n:]
	}
	return
}

func TestClientHello(t *testing.T) {
	const sni = "www.bing.com"
	for i := 0; i < 20; i++ {
		hello := tlsLayer.BuildClientHello(sni)

		require.Equal(t, []byte{0x16, 0x03, 0x01}, hello[:3])
		require.Equal(t, len(hello)-5, int(binary.BigEndian.Uint16(hello[3:5])))
		require.Equal(t, tlsLayer.HandshakeClientHello, hello[5])
		require.Equal(t, len(hello)-9, int(hello[6])<<16|int(hello[7])<<8|int(hello[8]))
		require.GreaterOrEqual(t, len(hello), 200)
		require.True(t, bytes.Contains(hello, []byte(sni)))

		ci, err := tlsLayer.SniffClientHello(hello)
		require.NoError(t, err)
		require.Equal(t, sni, ci.ServerName)
		require.Equal(t, tlsLayer.VersionTLS12, ci.Vers)
		require.Len(t, ci.SessionID, tlsLayer.SessionIDLen)
		require.Equal(t, []uint16{0xc02b, 0xc02f, 0xc02c, 0xc030, 0xcc14, 0xcc13, 0xc013, 0xc014, 0x009c, 0x009d, 0x002f, 0x0035, 0x000a}, ci.CipherSuites)
		require.GreaterOrEqual(t, ci.TicketLen, 200)
		require.LessOrEqual(t, ci.TicketLen, 400)
		require.Equal(t, []uint16{0xff01, 0x0000, 0x0017, 0x0023, 0x000d, 0x0005, 0x0012, 0x7550, 0x000b, 0x000a}, ci.Extensions)
		require.Contains(t, ci.ExtensionNames(), "server_name")
		require.Contains(t, ci.ExtensionNames(), "session_ticket")
	}
}

func TestSniffClientHelloRejects(t *testing.T) {
	_, err := tlsLayer.SniffClientHello([]byte{0x16, 0x03})
	require.True(t, errors.Is(err, utils.ErrFrameTooShort))

	_, err = tlsLayer.SniffClientHello(tlsLayer.BuildServerFlight())
	require.True(t, errors.Is(err, utils.ErrMalformedHeader))

	hello := tlsLayer.BuildClientHello("example.com")
	hello = hello[:len(hello)-3]
	_, err = tlsLayer.SniffClientHello(hello)
	require.True(t, errors.Is(err, utils.ErrInvalidData))
}

func TestServerFlight(t *testing.T) {
	for i := 0; i < 20; i++ {
		records := splitRecords(t, tlsLayer.BuildServerFlight())
		require.Len(t, records, 3)

		sh := records[0]
		require.Equal(t, []byte{0x16, 0x03, 0x03}, sh[:3])
		require.Equal(t, tlsLayer.HandshakeServerHello, sh[5])
		body := sh[9:]
		require.Equal(t, len(body), int(sh[6])<<16|int(sh[7])<<8|int(sh[8]))
		require.Equal(t, []byte{0x03, 0x03}, body[:2])
		require.Equal(t, byte(32), body[34])
		require.Equal(t, []byte{0xc0, 0x2f, 0x00, 0x00, 0x0d}, body[67:72])
		require.Equal(t, utils.MustHex("ff010001000005000000170000"), body[72:])

		require.Equal(t, tlsLayer.ChangeCipherSpecRecord, records[1])

		fin := records[2]
		require.Equal(t, []byte{0x16, 0x03, 0x03}, fin[:3])
		require.GreaterOrEqual(t, len(fin)-5, 32)
		require.LessOrEqual(t, len(fin)-5, 40)
	}
}

func TestClientFinishFlight(t *testing.T) {
	f := tlsLayer.AppendClientFinishFlight(nil)
	require.Len(t, f, tlsLayer.ClientFinishFlightLen)
	require.Equal(t, 43, tlsLayer.ClientFinishFlightLen)
	require.Equal(t, utils.MustHex("1403030001011603030020"), f[:11])
}

func TestAppData(t *testing.T) {
	lens := []int{1, 100, tlsLayer.AppDataMinPayloadLen, tlsLayer.AppDataMaxPayloadLen, tlsLayer.AppDataMaxPayloadLen + 1, 3*tlsLayer.AppDataMaxPayloadLen + 7, utils.MaxBufLen}

	for _, l := range lens {
		data := utils.RandomBytes(l)
		wrapped := tlsLayer.WrapAppData(data)

		var got []byte
		for _, r := range splitRecords(t, wrapped) {
			require.Equal(t, []byte{0x17, 0x03, 0x03}, r[:3])
			payload := tlsLayer.RecordPayload(r)
			require.NotEmpty(t, payload)
			require.LessOrEqual(t, len(payload), tlsLayer.AppDataMaxPayloadLen)
			got = append(got, payload...)
		}
		require.Equal(t, data, got, "len %d", l)
	}

	require.Nil(t, tlsLayer.WrapAppData(nil))
}

func TestMeasureRecord(t *testing.T) {
	for i := 0; i < tlsLayer.RecordHeaderLen; i++ {
		_, err := tlsLayer.MeasureRecord(make([]byte, i))
		require.True(t, errors.Is(err, utils.ErrFrameTooShort))
	}
	n, err := tlsLayer.MeasureRecord([]byte{0x17, 0x03, 0x03, 0x01, 0x00})
	require.NoError(t, err)
	require.Equal(t, 5+256, n)
}

func TestAppendAppData(t *testing.T) {
	require.Equal(t, []byte{0x17, 0x03, 0x03, 0x12, 0x34}, tlsLayer.AppendRecordHeader(nil, tlsLayer.RecordApplicationData, tlsLayer.VersionTLS12, 0x1234))
	require.Equal(t, []byte{0x17, 0x03, 0x03, 0x00, 0x02, 'h', 'i'}, tlsLayer.AppendAppData(nil, []byte("hi")))
}
