// Package runtime wires the queues, ingestion services, decode workers,
// command router, and supervisor into one server with a polling consumer
// surface. Accessors never block and are safe to call from any goroutine,
// connected or not.
package runtime

import (
	"fmt"
	"image"
	"time"

	"go.uber.org/zap"

	"github.com/tiality/teleop-server/internal/command"
	"github.com/tiality/teleop-server/internal/config"
	"github.com/tiality/teleop-server/internal/decode"
	"github.com/tiality/teleop-server/internal/ingest"
	"github.com/tiality/teleop-server/internal/logger"
	"github.com/tiality/teleop-server/internal/protocol"
	"github.com/tiality/teleop-server/internal/queue"
	"github.com/tiality/teleop-server/internal/supervisor"
	"github.com/tiality/teleop-server/pkg/audio"
)

// Options carries the injected external collaborators.
type Options struct {
	// FrameDecoder turns encoded frames into images. Required.
	FrameDecoder decode.FrameDecoder
	// PacketDecoder decodes audio packets to PCM. Nil selects the default
	// opus decoder; if that fails to initialize, audio is disabled for the
	// process lifetime.
	PacketDecoder decode.PacketDecoder
	// SinkOpener acquires the playback output for the audio worker. Optional.
	SinkOpener decode.SinkOpener
	// Connector overrides the pub/sub connection factory. Nil selects MQTT
	// per the config.
	Connector command.Connector
}

// Server is the media-ingestion-and-control supervisor process.
type Server struct {
	cfg    config.Config
	logger *zap.Logger
	ctx    *supervisor.Context
	sup    *supervisor.Supervisor

	incomingVideo *queue.Freshness[protocol.Frame]
	decodedVideo  *queue.Freshness[image.Image]
	incomingAudio *queue.DropOldest[protocol.AudioPacket]
	audioResults  *queue.Freshness[protocol.PCMResult]
	commands      *queue.DropOldest[string]

	audioEnabled bool
	done         chan struct{}
}

// New loads configuration from configPath (empty selects defaults and
// environment) and builds the server.
func New(configPath string, opts Options) (*Server, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("load teleop config: %w", err)
	}

	log, err := logger.New(cfg.Log)
	if err != nil {
		log, _ = zap.NewProduction()
	}
	return NewWithConfig(cfg, log, opts)
}

// NewWithConfig builds the server from an already-validated configuration.
func NewWithConfig(cfg config.Config, log *zap.Logger, opts Options) (*Server, error) {
	if opts.FrameDecoder == nil {
		return nil, fmt.Errorf("frame decoder is required")
	}
	if log == nil {
		log = zap.NewNop()
	}

	s := &Server{
		cfg:           cfg,
		logger:        log,
		incomingVideo: queue.NewFreshness[protocol.Frame](),
		decodedVideo:  queue.NewFreshness[image.Image](),
		incomingAudio: queue.NewDropOldest[protocol.AudioPacket](cfg.Audio.QueueCapacity),
		audioResults:  queue.NewFreshness[protocol.PCMResult](),
		commands:      queue.NewDropOldest[string](cfg.Command.QueueCapacity),
	}

	s.ctx = supervisor.NewContext(log)
	tick := time.Duration(cfg.Supervisor.TickIntervalMS) * time.Millisecond
	s.sup = supervisor.New(s.ctx, tick)

	packetDecoder := s.resolveAudio(opts)

	// Registration order is also the shutdown join order: video producer,
	// audio producer, decode workers, command router.
	s.sup.Register(ingest.NewVideoService(cfg.Video.Addr, s.incomingVideo, log))
	if s.audioEnabled {
		s.sup.Register(ingest.NewAudioService(cfg.Audio.Addr, s.incomingAudio, log))
	}

	if cfg.Video.DecodeWorkers > 1 {
		log.Warn("multiple decode workers race on the single-slot frame queue",
			zap.Int("decode_workers", cfg.Video.DecodeWorkers),
		)
	}
	for _, w := range decode.NewVideoPool(cfg.Video.DecodeWorkers, s.incomingVideo, s.decodedVideo, opts.FrameDecoder, log) {
		s.sup.Register(w)
	}
	if s.audioEnabled {
		s.sup.Register(decode.NewAudioWorker(s.incomingAudio, s.audioResults, packetDecoder, opts.SinkOpener, log))
	}

	connector := opts.Connector
	if connector == nil {
		mqttCfg := command.MQTTConfig{
			BrokerHost: cfg.MQTT.BrokerHost,
			BrokerPort: cfg.MQTT.BrokerPort,
			ClientID:   cfg.MQTT.ClientID,
		}
		connector = func() (command.Publisher, error) {
			return command.ConnectMQTT(mqttCfg, log)
		}
	}
	topics := command.Topics{Vehicle: cfg.MQTT.VehicleTxTopic, Gimbal: cfg.MQTT.GimbalTxTopic}
	s.sup.Register(command.NewRouter(s.commands, topics, connector, log))

	return s, nil
}

// resolveAudio decides whether the audio feature runs and with which decoder.
// A decoder initialization failure disables audio for the process lifetime;
// it is never retried.
func (s *Server) resolveAudio(opts Options) decode.PacketDecoder {
	if !s.cfg.Audio.Enabled {
		return nil
	}
	if opts.PacketDecoder != nil {
		s.audioEnabled = true
		return opts.PacketDecoder
	}
	dec, err := audio.NewOpusDecoder(s.cfg.Audio.SampleRate, s.cfg.Audio.Channels)
	if err != nil {
		s.logger.Error("audio decoder unavailable, audio disabled for this process", zap.Error(err))
		return nil
	}
	s.audioEnabled = true
	return dec
}

// Start launches the supervisor. It returns immediately.
func (s *Server) Start() {
	if s.done != nil {
		return
	}
	s.done = make(chan struct{})
	go func() {
		defer close(s.done)
		s.sup.Run()
	}()
}

// Shutdown sets the shared shutdown signal and waits for every sub-service to
// stop. Safe to call whether or not any connection was established.
func (s *Server) Shutdown() {
	s.ctx.Shutdown.Set()
	if s.done != nil {
		<-s.done
	}
}

// GetVideoFrame returns the most recent decoded frame, or false when none has
// arrived since the last call.
func (s *Server) GetVideoFrame() (image.Image, bool) {
	return s.decodedVideo.TryGet()
}

// GetAudioResult returns the most recent decoded audio packet, or false.
func (s *Server) GetAudioResult() (protocol.PCMResult, bool) {
	return s.audioResults.TryGet()
}

// SendCommand queues one outbound command for the router. Oldest pending
// commands are evicted under pressure.
func (s *Server) SendCommand(cmd string) {
	s.commands.Put(cmd)
}

// Connected reports the connection-established indicator. Display only.
func (s *Server) Connected() bool {
	return s.ctx.Connected.IsSet()
}

// AudioEnabled reports whether the audio feature survived startup.
func (s *Server) AudioEnabled() bool {
	return s.audioEnabled
}
