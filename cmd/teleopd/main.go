package main

import (
	"bytes"
	"flag"
	"image"
	"image/jpeg"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/tiality/teleop-server/pkg/runtime"
)

// jpegDecoder is the default frame decoder: the robot's camera pipeline
// compresses frames as JPEG.
type jpegDecoder struct{}

func (jpegDecoder) Decode(payload []byte) (image.Image, error) {
	return jpeg.Decode(bytes.NewReader(payload))
}

func main() {
	configPath := flag.String("config", "", "path to config yaml (optional)")
	flag.Parse()

	srv, err := runtime.New(*configPath, runtime.Options{
		FrameDecoder: jpegDecoder{},
	})
	if err != nil {
		fallback, _ := zap.NewProduction()
		defer fallback.Sync()
		fallback.Fatal("failed to start teleop server", zap.Error(err))
	}

	srv.Start()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	srv.Shutdown()
}
