package client

import (
	"context"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/tiality/teleop-server/internal/protocol"
	"github.com/tiality/teleop-server/internal/transport/codec"
)

const (
	defaultInitialBackoff = 500 * time.Millisecond
	defaultMaxBackoff     = 5 * time.Second
	// defaultResetAfterFailures forces a capture re-acquisition after this
	// many consecutive stream failures: failure runs on this path tend to
	// correlate with a wedged capture device, not the link.
	defaultResetAfterFailures = 5
)

// Packet is one encoded capture unit handed to the publisher. AlgorithmDelay
// is the encoder's fixed latency, forwarded verbatim for lag accounting.
type Packet struct {
	Payload        []byte
	AlgorithmDelay uint32
}

// CaptureSource supplies encoded audio packets. ReadPacket blocks until a
// packet is ready or the source fails.
type CaptureSource interface {
	ReadPacket() (Packet, error)
	Close() error
}

// CaptureOpener acquires a CaptureSource; the publisher re-acquires through
// it when the current source is suspected wedged.
type CaptureOpener interface {
	Open() (CaptureSource, error)
}

// AudioConfig tunes the audio publisher's retry behavior. Zero values select
// the defaults.
type AudioConfig struct {
	URL                string
	InitialBackoff     time.Duration
	MaxBackoff         time.Duration
	ResetAfterFailures int
}

// AudioPublisher pushes framed audio packets to the audio ingestion endpoint.
// Reconnection policy: capped exponential backoff, with a full capture
// re-acquisition after a run of consecutive failures.
type AudioPublisher struct {
	cfg    AudioConfig
	opener CaptureOpener
	logger *zap.Logger
	dialer *websocket.Dialer
	seq    uint32
}

// NewAudioPublisher creates a publisher reading from sources acquired via opener.
func NewAudioPublisher(cfg AudioConfig, opener CaptureOpener, logger *zap.Logger) *AudioPublisher {
	if cfg.InitialBackoff <= 0 {
		cfg.InitialBackoff = defaultInitialBackoff
	}
	if cfg.MaxBackoff <= 0 {
		cfg.MaxBackoff = defaultMaxBackoff
	}
	if cfg.ResetAfterFailures <= 0 {
		cfg.ResetAfterFailures = defaultResetAfterFailures
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AudioPublisher{
		cfg:    cfg,
		opener: opener,
		logger: logger.Named("audio-publisher"),
		dialer: websocket.DefaultDialer,
	}
}

// Run streams until ctx is cancelled.
func (p *AudioPublisher) Run(ctx context.Context) error {
	backoff := p.cfg.InitialBackoff
	failures := 0
	var source CaptureSource
	defer func() {
		if source != nil {
			source.Close()
		}
	}()

	for {
		if source == nil {
			var err error
			source, err = p.opener.Open()
			if err != nil {
				p.logger.Error("capture open failed", zap.Duration("retry_in", backoff), zap.Error(err))
				if !p.wait(ctx, backoff) {
					return ctx.Err()
				}
				backoff = nextBackoff(backoff, p.cfg.MaxBackoff)
				continue
			}
		}

		sent, err := p.stream(ctx, source)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if sent > 0 {
			// A productive stream clears the failure run.
			backoff = p.cfg.InitialBackoff
			failures = 0
		}

		failures++
		p.logger.Warn("audio stream ended, retrying",
			zap.Int("consecutive_failures", failures),
			zap.Duration("retry_in", backoff),
			zap.Error(err),
		)
		if failures >= p.cfg.ResetAfterFailures {
			p.logger.Warn("re-acquiring capture source after failure run",
				zap.Int("consecutive_failures", failures),
			)
			source.Close()
			source = nil
			failures = 0
		}

		if !p.wait(ctx, backoff) {
			return ctx.Err()
		}
		backoff = nextBackoff(backoff, p.cfg.MaxBackoff)
	}
}

func (p *AudioPublisher) stream(ctx context.Context, source CaptureSource) (int, error) {
	conn, _, err := p.dialer.DialContext(ctx, p.cfg.URL, nil)
	if err != nil {
		return 0, err
	}
	defer conn.Close()
	p.logger.Info("audio stream connected", zap.String("url", p.cfg.URL))

	sent := 0
	for {
		select {
		case <-ctx.Done():
			return sent, nil
		default:
		}
		pkt, err := source.ReadPacket()
		if err != nil {
			return sent, err
		}
		frame := codec.EncodeAudio(protocol.AudioPacket{
			Payload:        pkt.Payload,
			Timestamp:      uint64(time.Now().UnixMilli()),
			SequenceNumber: p.seq,
			AlgorithmDelay: pkt.AlgorithmDelay,
		})
		if err := conn.WriteMessage(websocket.BinaryMessage, frame); err != nil {
			return sent, err
		}
		p.seq++
		sent++
	}
}

func (p *AudioPublisher) wait(ctx context.Context, d time.Duration) bool {
	select {
	case <-ctx.Done():
		return false
	case <-time.After(d):
		return true
	}
}

// nextBackoff doubles the delay up to the ceiling.
func nextBackoff(current, max time.Duration) time.Duration {
	next := current * 2
	if next > max {
		return max
	}
	return next
}
