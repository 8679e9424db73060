package kasa

import (
	"encoding/binary"
	"errors"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kasafinder/internal/device"
)

const plugReply = `{"system":{"get_sysinfo":{"sw_ver":"1.0.2 Build 200804 Rel.095135","hw_ver":"5.0","model":"HS103(US)","alias":" Living Room Lamp ","mac":"50:c7:bf:0a:0b:0c","relay_state":1,"err_code":0}}}`

func TestEncryptDecryptRoundTrip(t *testing.T) {
	plain := []byte(sysinfoQuery)
	cipher := Encrypt(plain)
	require.Len(t, cipher, len(plain))
	assert.Equal(t, byte(0xd0), cipher[0], "'{' xor 171")
	assert.Equal(t, plain, Decrypt(cipher))
}

func TestDiscoveryQuery(t *testing.T) {
	assert.Equal(t, sysinfoQuery, string(Decrypt(DiscoveryQuery())))
}

func TestParsePlug(t *testing.T) {
	rec, err := Parse(Encrypt([]byte(plugReply)), net.ParseIP("192.168.2.10"))
	require.NoError(t, err)
	assert.Equal(t, "192.168.2.10", rec.IP)
	assert.Equal(t, "50:C7:BF:0A:0B:0C", rec.MAC)
	assert.Equal(t, "Living Room Lamp", rec.Alias)
	assert.Equal(t, "HS103(US)", rec.Model)
	assert.Equal(t, device.StateOn, rec.State)
	assert.Equal(t, device.OriginUnknown, rec.DiscoveredBy)
}

func TestParseBulbUsesMicMACAndLightState(t *testing.T) {
	reply := `{"system":{"get_sysinfo":{"model":"KL130(US)","alias":"Desk","mic_mac":"50C7BF112233","light_state":{"on_off":0},"err_code":0}}}`
	rec, err := Parse(Encrypt([]byte(reply)), net.ParseIP("192.168.2.11"))
	require.NoError(t, err)
	assert.Equal(t, "50:C7:BF:11:22:33", rec.MAC)
	assert.Equal(t, device.StateOff, rec.State)
}

func TestParseWithoutOptionalFields(t *testing.T) {
	rec, err := Parse(Encrypt([]byte(`{"system":{"get_sysinfo":{}}}`)), net.ParseIP("10.0.0.7"))
	require.NoError(t, err)
	assert.Equal(t, "10.0.0.7", rec.IP)
	assert.Empty(t, rec.MAC)
	assert.Empty(t, rec.Alias)
	assert.Equal(t, device.StateUnknown, rec.State)
}

func TestParseStripsTCPFrame(t *testing.T) {
	body := Encrypt([]byte(plugReply))
	framed := make([]byte, 4+len(body))
	binary.BigEndian.PutUint32(framed, uint32(len(body)))
	copy(framed[4:], body)

	rec, err := Parse(framed, net.ParseIP("192.168.2.10"))
	require.NoError(t, err)
	assert.Equal(t, "HS103(US)", rec.Model)
}

func TestParseMalformed(t *testing.T) {
	full := Encrypt([]byte(plugReply))
	payloads := map[string][]byte{
		"empty":        nil,
		"one byte":     {0xd0},
		"truncated":    full[:len(full)/2],
		"plaintext":    []byte(plugReply),
		"wrong shape":  Encrypt([]byte(`{"emeter":{}}`)),
		"null":         Encrypt([]byte(`null`)),
		"device error": Encrypt([]byte(`{"system":{"get_sysinfo":{"err_code":-1}}}`)),
	}
	for name, payload := range payloads {
		_, err := Parse(payload, net.ParseIP("192.168.2.10"))
		require.Error(t, err, name)

		var perr *ParseError
		require.True(t, errors.As(err, &perr), name)
		assert.Equal(t, Malformed, perr.Kind, name)
		assert.ErrorIs(t, err, ErrMalformed, name)
		assert.NotErrorIs(t, err, ErrIncompleteFields, name)
	}
}

func TestParseIncompleteFields(t *testing.T) {
	payload := Encrypt([]byte(plugReply))
	for _, src := range []net.IP{nil, net.IPv4zero, net.IPv4bcast, net.ParseIP("fe80::1")} {
		_, err := Parse(payload, src)
		assert.ErrorIs(t, err, ErrIncompleteFields, "source %v", src)
	}
}
