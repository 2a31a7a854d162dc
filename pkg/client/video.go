// Package client implements the robot-side producers: push clients that
// stream captured frames and audio packets to the console's ingestion
// endpoints and survive link loss without operator intervention.
package client

import (
	"context"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// FrameSource supplies encoded video frames; camera capture and compression
// live behind it.
type FrameSource interface {
	NextFrame() ([]byte, error)
}

// VideoPublisher pushes frames to the video ingestion endpoint. Reconnection
// policy: fixed-delay infinite retry.
type VideoPublisher struct {
	url    string
	source FrameSource
	logger *zap.Logger
	dialer *websocket.Dialer
	retry  time.Duration
}

// NewVideoPublisher creates a publisher for the given ws endpoint URL.
// retry <= 0 selects the default 5s interval.
func NewVideoPublisher(url string, source FrameSource, retry time.Duration, logger *zap.Logger) *VideoPublisher {
	if retry <= 0 {
		retry = 5 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &VideoPublisher{
		url:    url,
		source: source,
		logger: logger.Named("video-publisher"),
		dialer: websocket.DefaultDialer,
		retry:  retry,
	}
}

// Run streams until ctx is cancelled, reconnecting after every failure.
func (p *VideoPublisher) Run(ctx context.Context) error {
	for {
		if err := p.stream(ctx); err != nil {
			p.logger.Warn("video stream ended, retrying",
				zap.Duration("retry_in", p.retry),
				zap.Error(err),
			)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(p.retry):
		}
	}
}

func (p *VideoPublisher) stream(ctx context.Context) error {
	conn, _, err := p.dialer.DialContext(ctx, p.url, nil)
	if err != nil {
		return err
	}
	defer conn.Close()
	p.logger.Info("video stream connected", zap.String("url", p.url))

	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}
		payload, err := p.source.NextFrame()
		if err != nil {
			return err
		}
		if err := conn.WriteMessage(websocket.BinaryMessage, payload); err != nil {
			return err
		}
	}
}
