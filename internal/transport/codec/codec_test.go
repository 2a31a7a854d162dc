package codec

import (
	"bytes"
	"encoding/binary"
	"errors"
	"testing"

	"github.com/tiality/teleop-server/internal/protocol"
)

func TestEncodeDecodeAudio(t *testing.T) {
	pkt := protocol.AudioPacket{
		Payload:        []byte{0x01, 0x02, 0x03, 0x04},
		Timestamp:      1723456789012,
		SequenceNumber: 42,
		AlgorithmDelay: 6500,
	}
	frame := EncodeAudio(pkt)

	got, err := DecodeAudio(frame)
	if err != nil {
		t.Fatalf("DecodeAudio returned error: %v", err)
	}
	if !bytes.Equal(got.Payload, pkt.Payload) {
		t.Fatalf("payload=%v, want %v", got.Payload, pkt.Payload)
	}
	if got.Timestamp != pkt.Timestamp {
		t.Fatalf("timestamp=%d, want %d", got.Timestamp, pkt.Timestamp)
	}
	if got.SequenceNumber != pkt.SequenceNumber {
		t.Fatalf("sequence=%d, want %d", got.SequenceNumber, pkt.SequenceNumber)
	}
	if got.AlgorithmDelay != pkt.AlgorithmDelay {
		t.Fatalf("algorithm_delay=%d, want %d", got.AlgorithmDelay, pkt.AlgorithmDelay)
	}
	if got.PacketLength != uint16(len(pkt.Payload)) {
		t.Fatalf("packet_length=%d, want %d", got.PacketLength, len(pkt.Payload))
	}
}

func TestDecodeAudioShortFrame(t *testing.T) {
	_, err := DecodeAudio(make([]byte, AudioHeaderSize-1))
	if !errors.Is(err, ErrShortFrame) {
		t.Fatalf("DecodeAudio error=%v, want %v", err, ErrShortFrame)
	}
}

func TestDecodeAudioLengthMismatch(t *testing.T) {
	frame := make([]byte, AudioHeaderSize+4)
	binary.BigEndian.PutUint16(frame[16:18], 10)

	_, err := DecodeAudio(frame)
	if !errors.Is(err, ErrLengthMismatch) {
		t.Fatalf("DecodeAudio error=%v, want %v", err, ErrLengthMismatch)
	}
}

func TestDecodeAudioCopiesPayload(t *testing.T) {
	pkt := protocol.AudioPacket{Payload: []byte{9, 9, 9}}
	frame := EncodeAudio(pkt)

	got, err := DecodeAudio(frame)
	if err != nil {
		t.Fatalf("DecodeAudio returned error: %v", err)
	}
	frame[AudioHeaderSize] = 0
	if got.Payload[0] != 9 {
		t.Fatal("decoded payload aliases the wire buffer")
	}
}
