// Package kasa speaks the local discovery protocol of TP-Link Kasa smart
// plugs and decodes their replies into device records.
//
// Requests and replies are JSON documents obfuscated with an autokey XOR
// cipher whose initial key is 171. Over UDP the ciphertext is sent bare;
// over TCP it is preceded by a 4-byte big-endian length.
package kasa

import (
	"encoding/binary"
)

const (
	// Port is the UDP/TCP port Kasa devices listen on.
	Port = 9999

	initialKey byte = 171

	sysinfoQuery = `{"system":{"get_sysinfo":{}}}`
)

// Encrypt obfuscates plaintext with the autokey cipher.
func Encrypt(plaintext []byte) []byte {
	out := make([]byte, len(plaintext))
	key := initialKey
	for i, b := range plaintext {
		key ^= b
		out[i] = key
	}
	return out
}

// Decrypt reverses Encrypt.
func Decrypt(ciphertext []byte) []byte {
	out := make([]byte, len(ciphertext))
	key := initialKey
	for i, c := range ciphertext {
		out[i] = key ^ c
		key = c
	}
	return out
}

// DiscoveryQuery returns the encrypted get_sysinfo request sent by both
// scan phases.
func DiscoveryQuery() []byte {
	return Encrypt([]byte(sysinfoQuery))
}

// stripFrame removes a TCP length prefix when one is present and matches
// the payload length.
func stripFrame(payload []byte) []byte {
	if len(payload) < 4 {
		return payload
	}
	if int(binary.BigEndian.Uint32(payload[:4])) == len(payload)-4 {
		return payload[4:]
	}
	return payload
}
