// Package decode runs the workers that drain the ingestion queues through
// injected codecs. Decoders are opaque external collaborators; a decode error
// drops the current item and the loop continues.
package decode

import (
	"fmt"
	"image"
	"time"

	"go.uber.org/zap"

	"github.com/tiality/teleop-server/internal/protocol"
	"github.com/tiality/teleop-server/internal/queue"
	"github.com/tiality/teleop-server/internal/supervisor"
)

// DefaultPollInterval bounds every queue wait so workers observe the shutdown
// signal promptly.
const DefaultPollInterval = 100 * time.Millisecond

// FrameDecoder turns an encoded frame payload into a renderable image.
// A nil image with a nil error means the decoder skipped the frame.
type FrameDecoder interface {
	Decode(payload []byte) (image.Image, error)
}

// VideoWorker drains the incoming frame queue, decodes, and publishes into the
// decoded freshness queue for polling consumers.
type VideoWorker struct {
	id       int
	incoming *queue.Freshness[protocol.Frame]
	decoded  *queue.Freshness[image.Image]
	decoder  FrameDecoder
	logger   *zap.Logger
	poll     time.Duration
}

// NewVideoPool creates n decode workers sharing the same queues and decoder.
// The 1-slot queues make n>1 a race between workers; the default is 1 and the
// config layer warns when asked for more.
func NewVideoPool(n int, incoming *queue.Freshness[protocol.Frame], decoded *queue.Freshness[image.Image], decoder FrameDecoder, logger *zap.Logger) []*VideoWorker {
	if n < 1 {
		n = 1
	}
	workers := make([]*VideoWorker, n)
	for i := range workers {
		workers[i] = &VideoWorker{
			id:       i,
			incoming: incoming,
			decoded:  decoded,
			decoder:  decoder,
			logger:   logger.Named("video-decode"),
			poll:     DefaultPollInterval,
		}
	}
	return workers
}

// Name implements supervisor.SubService.
func (w *VideoWorker) Name() string { return fmt.Sprintf("video-decode-%d", w.id) }

// Run implements supervisor.SubService.
func (w *VideoWorker) Run(ctx *supervisor.Context) {
	for !ctx.Shutdown.IsSet() {
		frame, ok := w.incoming.Get(w.poll)
		if !ok {
			continue
		}
		img, err := w.decoder.Decode(frame.Payload)
		if err != nil {
			w.logger.Warn("frame decode failed", zap.Int("worker", w.id), zap.Error(err))
			continue
		}
		if img == nil {
			continue
		}
		w.decoded.Put(img)
	}
}
