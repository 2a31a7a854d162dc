// Package audio provides the default opus packet decoder and the PCM byte
// conversions shared by the server and the robot-side clients.
package audio

import (
	"fmt"
	"sync"

	"github.com/hraban/opus"
)

// maxFrameSamples covers the largest opus frame (120ms at 48kHz) per channel.
const maxFrameSamples = 5760

// OpusDecoder decodes opus packets to little-endian 16-bit PCM. It satisfies
// the decode worker's PacketDecoder. Construction fails when the native opus
// library is unavailable, which disables the audio feature for the process.
type OpusDecoder struct {
	decoder    *opus.Decoder
	channels   int
	sampleRate int
	pcmBuffer  []int16
	mutex      sync.Mutex
}

// NewOpusDecoder creates a decoder for the given stream parameters.
func NewOpusDecoder(sampleRate, channels int) (*OpusDecoder, error) {
	dec, err := opus.NewDecoder(sampleRate, channels)
	if err != nil {
		return nil, fmt.Errorf("create opus decoder: %w", err)
	}
	return &OpusDecoder{
		decoder:    dec,
		channels:   channels,
		sampleRate: sampleRate,
		pcmBuffer:  make([]int16, maxFrameSamples*channels),
	}, nil
}

// Decode converts one encoded packet into PCM bytes.
func (d *OpusDecoder) Decode(payload []byte) ([]byte, error) {
	d.mutex.Lock()
	defer d.mutex.Unlock()

	n, err := d.decoder.Decode(payload, d.pcmBuffer)
	if err != nil {
		return nil, fmt.Errorf("opus decode: %w", err)
	}
	return Int16SliceToBytes(d.pcmBuffer[:n*d.channels]), nil
}

// SampleRate reports the configured output sample rate.
func (d *OpusDecoder) SampleRate() int { return d.sampleRate }

// Channels reports the configured channel count.
func (d *OpusDecoder) Channels() int { return d.channels }
