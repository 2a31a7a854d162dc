// Package ingest implements the push-stream ingestion services: websocket
// endpoints the robot streams encoded video frames and audio packets into.
// The services are connection-agnostic: whichever stream is currently open
// feeds the same queue, and a reconnect after a drop resumes transparently.
package ingest

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/tiality/teleop-server/internal/protocol"
	"github.com/tiality/teleop-server/internal/supervisor"
)

const serverCloseTimeout = 2 * time.Second

func newUpgrader() websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			return true
		},
	}
}

// runServer hosts a gin router on addr until the shutdown signal is set or the
// listener fails. A listener failure returns so the supervisor restarts the
// service; shutdown closes the server and returns cleanly.
func runServer(ctx *supervisor.Context, logger *zap.Logger, name, addr string, router *gin.Engine) {
	srv := &http.Server{Addr: addr, Handler: router}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()
	logger.Info("ingestion server listening", zap.String("service", name), zap.String("addr", addr))

	select {
	case <-ctx.Shutdown.Done():
		closeCtx, cancel := context.WithTimeout(context.Background(), serverCloseTimeout)
		defer cancel()
		if err := srv.Shutdown(closeCtx); err != nil {
			srv.Close()
		}
	case err := <-errCh:
		logger.Error("ingestion server failed", zap.String("service", name), zap.Error(err))
	}
}

func newRouter() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.RedirectTrailingSlash = false
	router.Use(gin.Recovery())
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	return router
}

func statusHandler(ctx *supervisor.Context, stats *StreamStats) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"connected": ctx.Connected.IsSet(),
			"stats":     stats.Snapshot(),
		})
	}
}

// writeStreamResponse sends the single terminal status message for a stream.
// Best effort: the producer may already be gone.
func writeStreamResponse(conn *websocket.Conn, message string) {
	payload, err := json.Marshal(protocol.StreamResponse{StatusMessage: message})
	if err != nil {
		return
	}
	conn.SetWriteDeadline(time.Now().Add(time.Second))
	_ = conn.WriteMessage(websocket.TextMessage, payload)
}
