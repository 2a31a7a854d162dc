// Package command routes outbound operator commands to the robot over pub/sub.
// Routing inspects only the command's "type" discriminator; every other field
// is opaque. Routing is total: unparseable commands go to the vehicle topic.
package command

import (
	"encoding/json"
	"time"

	"go.uber.org/zap"

	"github.com/tiality/teleop-server/internal/queue"
	"github.com/tiality/teleop-server/internal/supervisor"
)

const pollInterval = 100 * time.Millisecond

// Topics names the two pub/sub destinations.
type Topics struct {
	Vehicle string
	Gimbal  string
}

// Publisher is the pub/sub connection the router holds for its lifetime.
type Publisher interface {
	Publish(topic, payload string) error
	Close()
}

// Connector acquires a Publisher. The router connects once per run; a failed
// connect returns so the supervisor restarts the router, which retries.
type Connector func() (Publisher, error)

// DetermineTopic picks the destination for a command. Valid JSON with
// type "gimbal" routes to the gimbal topic; everything else, including parse
// failures and missing discriminators, routes to the vehicle topic.
func DetermineTopic(command string, topics Topics) string {
	var probe struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal([]byte(command), &probe); err == nil && probe.Type == "gimbal" {
		return topics.Gimbal
	}
	return topics.Vehicle
}

// Router drains the outbound command queue and publishes each command.
// Publish failures are logged and the command is lost; commands are never
// retried.
type Router struct {
	outbound *queue.DropOldest[string]
	topics   Topics
	connect  Connector
	logger   *zap.Logger
}

// NewRouter creates the command router sub-service.
func NewRouter(outbound *queue.DropOldest[string], topics Topics, connect Connector, logger *zap.Logger) *Router {
	return &Router{
		outbound: outbound,
		topics:   topics,
		connect:  connect,
		logger:   logger.Named("command-router"),
	}
}

// Name implements supervisor.SubService.
func (r *Router) Name() string { return "command-router" }

// Run implements supervisor.SubService.
func (r *Router) Run(ctx *supervisor.Context) {
	pub, err := r.connect()
	if err != nil {
		r.logger.Error("pub/sub connect failed", zap.Error(err))
		return
	}
	defer pub.Close()

	r.logger.Info("command router started",
		zap.String("vehicle_topic", r.topics.Vehicle),
		zap.String("gimbal_topic", r.topics.Gimbal),
	)

	for !ctx.Shutdown.IsSet() {
		cmd, ok := r.outbound.Get(pollInterval)
		if !ok {
			continue
		}
		topic := DetermineTopic(cmd, r.topics)
		if err := pub.Publish(topic, cmd); err != nil {
			r.logger.Warn("command publish failed, command dropped",
				zap.String("topic", topic),
				zap.Error(err),
			)
		}
	}
}
