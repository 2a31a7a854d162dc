package ingest

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/tiality/teleop-server/internal/protocol"
	"github.com/tiality/teleop-server/internal/queue"
	"github.com/tiality/teleop-server/internal/supervisor"
)

// VideoService accepts a client-streamed sequence of encoded frames and pushes
// each into the incoming freshness queue. One producer at a time; a frame is
// never rejected for being old here — staleness is handled by the queue.
type VideoService struct {
	addr     string
	incoming *queue.Freshness[protocol.Frame]
	logger   *zap.Logger
	stats    *StreamStats
	upgrader websocket.Upgrader
}

// NewVideoService creates the video ingestion service listening on addr.
func NewVideoService(addr string, incoming *queue.Freshness[protocol.Frame], logger *zap.Logger) *VideoService {
	return &VideoService{
		addr:     addr,
		incoming: incoming,
		logger:   logger.Named("video-ingest"),
		stats:    &StreamStats{},
		upgrader: newUpgrader(),
	}
}

// Name implements supervisor.SubService.
func (s *VideoService) Name() string { return "video-ingest" }

// Stats exposes the service counters for the status endpoint and pollers.
func (s *VideoService) Stats() *StreamStats { return s.stats }

// Run implements supervisor.SubService. It hosts the websocket endpoint until
// shutdown; a listener failure returns and the supervisor restarts it.
func (s *VideoService) Run(ctx *supervisor.Context) {
	router := newRouter()
	router.GET("/status", statusHandler(ctx, s.stats))
	router.GET("/stream/video", func(c *gin.Context) {
		s.handleStream(ctx, c)
	})
	runServer(ctx, s.logger, s.Name(), s.addr, router)
}

func (s *VideoService) handleStream(ctx *supervisor.Context, c *gin.Context) {
	conn, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.logger.Warn("video upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	streamID := uuid.NewString()
	s.logger.Info("video producer connected", zap.String("stream_id", streamID))
	s.stats.StreamStarted()
	ctx.Connected.Set()

	frames := 0
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
			s.incoming.Put(protocol.Frame{Payload: data})
			s.stats.MessageReceived(len(data))
			frames++
		}
	}()

	select {
	case <-done:
	case <-ctx.Shutdown.Done():
		conn.Close()
		<-done
	}

	ctx.Connected.Clear()
	writeStreamResponse(conn, "video stream ended")
	s.logger.Info("video producer disconnected",
		zap.String("stream_id", streamID),
		zap.Int("frames", frames),
	)
}
