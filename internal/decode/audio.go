package decode

import (
	"time"

	"go.uber.org/zap"

	"github.com/tiality/teleop-server/internal/protocol"
	"github.com/tiality/teleop-server/internal/queue"
	"github.com/tiality/teleop-server/internal/supervisor"
)

// PacketDecoder turns an encoded audio packet payload into PCM bytes.
type PacketDecoder interface {
	Decode(payload []byte) ([]byte, error)
}

// Sink is the playback output the audio worker writes decoded PCM to.
type Sink interface {
	Write(pcm []byte) error
	Close() error
}

// SinkOpener acquires the playback resource. The worker opens it once per run
// and releases it on every exit path.
type SinkOpener interface {
	Open() (Sink, error)
}

// AudioWorker drains the audio queue through the injected decoder, writes PCM
// to the sink, and publishes the latest result for polling consumers.
type AudioWorker struct {
	incoming *queue.DropOldest[protocol.AudioPacket]
	results  *queue.Freshness[protocol.PCMResult]
	decoder  PacketDecoder
	opener   SinkOpener
	logger   *zap.Logger
	poll     time.Duration
}

// NewAudioWorker creates the single audio decode worker. opener may be nil
// when no playback output is attached; results are still published.
func NewAudioWorker(incoming *queue.DropOldest[protocol.AudioPacket], results *queue.Freshness[protocol.PCMResult], decoder PacketDecoder, opener SinkOpener, logger *zap.Logger) *AudioWorker {
	return &AudioWorker{
		incoming: incoming,
		results:  results,
		decoder:  decoder,
		opener:   opener,
		logger:   logger.Named("audio-decode"),
		poll:     DefaultPollInterval,
	}
}

// Name implements supervisor.SubService.
func (w *AudioWorker) Name() string { return "audio-decode" }

// Run implements supervisor.SubService. A sink acquisition failure returns,
// letting the supervisor restart the worker with a fresh resource.
func (w *AudioWorker) Run(ctx *supervisor.Context) {
	var sink Sink
	if w.opener != nil {
		var err error
		sink, err = w.opener.Open()
		if err != nil {
			w.logger.Error("audio sink open failed", zap.Error(err))
			return
		}
		defer sink.Close()
	}

	for !ctx.Shutdown.IsSet() {
		pkt, ok := w.incoming.Get(w.poll)
		if !ok {
			continue
		}
		pcm, err := w.decoder.Decode(pkt.Payload)
		if err != nil {
			w.logger.Warn("audio decode failed",
				zap.Uint32("sequence", pkt.SequenceNumber),
				zap.Error(err),
			)
			continue
		}
		w.results.Put(protocol.PCMResult{
			PCM:            pcm,
			Timestamp:      pkt.Timestamp,
			SequenceNumber: pkt.SequenceNumber,
			AlgorithmDelay: pkt.AlgorithmDelay,
		})
		if sink == nil {
			continue
		}
		if err := sink.Write(pcm); err != nil {
			w.logger.Warn("audio sink write failed", zap.Error(err))
		}
	}
}
