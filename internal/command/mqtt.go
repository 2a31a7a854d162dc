package command

import (
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	connectTimeout = 5 * time.Second
	publishTimeout = time.Second
	// retryInterval is the fixed-delay reconnect policy for this thin
	// transport client; paho performs the retry loop itself.
	retryInterval = 5 * time.Second
)

// MQTTConfig is the broker surface supplied at construction.
type MQTTConfig struct {
	BrokerHost string
	BrokerPort int
	ClientID   string
}

// MQTTPublisher is the persistent pub/sub connection owned by the router.
type MQTTPublisher struct {
	client mqtt.Client
	logger *zap.Logger
}

// ConnectMQTT establishes the broker connection with automatic fixed-interval
// reconnection. Commands published while disconnected fail immediately.
func ConnectMQTT(cfg MQTTConfig, logger *zap.Logger) (*MQTTPublisher, error) {
	clientID := cfg.ClientID
	if clientID == "" {
		clientID = "teleop-server-" + uuid.NewString()[:8]
	}

	broker := fmt.Sprintf("tcp://%s:%d", cfg.BrokerHost, cfg.BrokerPort)
	opts := mqtt.NewClientOptions()
	opts.AddBroker(broker)
	opts.SetClientID(clientID)
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectRetryInterval(retryInterval)
	opts.SetMaxReconnectInterval(retryInterval)

	opts.OnConnect = func(c mqtt.Client) {
		logger.Info("mqtt connected", zap.String("broker", broker), zap.String("client_id", clientID))
	}
	opts.OnConnectionLost = func(c mqtt.Client, err error) {
		logger.Warn("mqtt connection lost, reconnecting", zap.String("broker", broker), zap.Error(err))
	}

	client := mqtt.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(connectTimeout) {
		return nil, fmt.Errorf("mqtt connect to %s: timeout", broker)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("mqtt connect to %s: %w", broker, err)
	}

	return &MQTTPublisher{client: client, logger: logger}, nil
}

// Publish sends one command at QoS 1 with a bounded wait. No delivery
// confirmation is consumed beyond the broker ack.
func (p *MQTTPublisher) Publish(topic, payload string) error {
	token := p.client.Publish(topic, 1, false, payload)
	if !token.WaitTimeout(publishTimeout) {
		return fmt.Errorf("publish to %s: timeout", topic)
	}
	return token.Error()
}

// Close disconnects from the broker.
func (p *MQTTPublisher) Close() {
	p.client.Disconnect(250)
}
