package ingest

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/tiality/teleop-server/internal/protocol"
	"github.com/tiality/teleop-server/internal/queue"
	"github.com/tiality/teleop-server/internal/supervisor"
	"github.com/tiality/teleop-server/internal/transport/codec"
)

// AudioService accepts a client-streamed sequence of framed audio packets and
// pushes each into the drop-oldest queue. Malformed frames are logged and
// skipped; the stream itself is never torn down for a bad packet.
type AudioService struct {
	addr     string
	incoming *queue.DropOldest[protocol.AudioPacket]
	logger   *zap.Logger
	stats    *StreamStats
	upgrader websocket.Upgrader
}

// NewAudioService creates the audio ingestion service listening on addr.
func NewAudioService(addr string, incoming *queue.DropOldest[protocol.AudioPacket], logger *zap.Logger) *AudioService {
	return &AudioService{
		addr:     addr,
		incoming: incoming,
		logger:   logger.Named("audio-ingest"),
		stats:    &StreamStats{},
		upgrader: newUpgrader(),
	}
}

// Name implements supervisor.SubService.
func (s *AudioService) Name() string { return "audio-ingest" }

// Stats exposes the service counters, including the sequence gap estimate.
func (s *AudioService) Stats() *StreamStats { return s.stats }

// Run implements supervisor.SubService.
func (s *AudioService) Run(ctx *supervisor.Context) {
	router := newRouter()
	router.GET("/status", statusHandler(ctx, s.stats))
	router.GET("/stream/audio", func(c *gin.Context) {
		s.handleStream(ctx, c)
	})
	runServer(ctx, s.logger, s.Name(), s.addr, router)
}

func (s *AudioService) handleStream(ctx *supervisor.Context, c *gin.Context) {
	conn, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.logger.Warn("audio upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	streamID := uuid.NewString()
	s.logger.Info("audio producer connected", zap.String("stream_id", streamID))
	s.stats.StreamStarted()

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			msgType, data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			if msgType != websocket.BinaryMessage {
				continue
			}
			pkt, err := codec.DecodeAudio(data)
			if err != nil {
				s.logger.Warn("dropping malformed audio frame", zap.Error(err))
				continue
			}
			s.incoming.Put(pkt)
			s.stats.MessageReceived(len(pkt.Payload))
			s.stats.ObserveSequence(pkt.SequenceNumber)
		}
	}()

	select {
	case <-done:
	case <-ctx.Shutdown.Done():
		conn.Close()
		<-done
	}

	writeStreamResponse(conn, "audio stream ended")
	s.logger.Info("audio producer disconnected", zap.String("stream_id", streamID))
}
