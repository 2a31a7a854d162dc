// Package codec frames audio packets for the websocket ingestion transport.
// Video frames travel as raw binary messages and need no header; audio packets
// carry sender metadata in a fixed-width big-endian header.
package codec

import (
	"encoding/binary"
	"errors"

	"github.com/tiality/teleop-server/internal/protocol"
)

// AudioHeaderSize is the fixed header length preceding the opus payload:
// timestamp (8) + sequence number (4) + algorithm delay (4) + payload length (2).
const AudioHeaderSize = 18

var (
	// ErrShortFrame reports a message smaller than the fixed header.
	ErrShortFrame = errors.New("audio frame shorter than header")
	// ErrLengthMismatch reports a header length field disagreeing with the payload.
	ErrLengthMismatch = errors.New("audio frame length mismatch")
)

// DecodeAudio parses one binary websocket message into an AudioPacket.
// The payload is copied so the caller may reuse the read buffer.
func DecodeAudio(frame []byte) (protocol.AudioPacket, error) {
	if len(frame) < AudioHeaderSize {
		return protocol.AudioPacket{}, ErrShortFrame
	}
	packetLength := binary.BigEndian.Uint16(frame[16:18])
	if int(packetLength) != len(frame)-AudioHeaderSize {
		return protocol.AudioPacket{}, ErrLengthMismatch
	}

	payload := make([]byte, packetLength)
	copy(payload, frame[AudioHeaderSize:])

	return protocol.AudioPacket{
		Payload:        payload,
		Timestamp:      binary.BigEndian.Uint64(frame[0:8]),
		SequenceNumber: binary.BigEndian.Uint32(frame[8:12]),
		AlgorithmDelay: binary.BigEndian.Uint32(frame[12:16]),
		PacketLength:   packetLength,
	}, nil
}

// EncodeAudio builds the binary message for one AudioPacket. The header length
// field is always derived from the payload, not from pkt.PacketLength.
func EncodeAudio(pkt protocol.AudioPacket) []byte {
	frame := make([]byte, AudioHeaderSize+len(pkt.Payload))
	binary.BigEndian.PutUint64(frame[0:8], pkt.Timestamp)
	binary.BigEndian.PutUint32(frame[8:12], pkt.SequenceNumber)
	binary.BigEndian.PutUint32(frame[12:16], pkt.AlgorithmDelay)
	binary.BigEndian.PutUint16(frame[16:18], uint16(len(pkt.Payload)))
	copy(frame[AudioHeaderSize:], pkt.Payload)
	return frame
}
