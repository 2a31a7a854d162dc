// Package config loads the process configuration: listen addresses, broker
// surface, queue capacities, worker counts, and logging. All values are
// supplied at construction; there is no runtime reconfiguration.
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/tiality/teleop-server/internal/logger"
)

// VideoConfig configures the video ingestion and decode path.
type VideoConfig struct {
	Addr          string `mapstructure:"addr"`
	DecodeWorkers int    `mapstructure:"decode_workers"`
}

// AudioConfig configures the optional audio path.
type AudioConfig struct {
	Enabled       bool   `mapstructure:"enabled"`
	Addr          string `mapstructure:"addr"`
	SampleRate    int    `mapstructure:"sample_rate"`
	Channels      int    `mapstructure:"channels"`
	QueueCapacity int    `mapstructure:"queue_capacity"`
}

// MQTTConfig configures the command pub/sub broker.
type MQTTConfig struct {
	BrokerHost     string `mapstructure:"broker_host"`
	BrokerPort     int    `mapstructure:"broker_port"`
	ClientID       string `mapstructure:"client_id"`
	VehicleTxTopic string `mapstructure:"vehicle_tx_topic"`
	GimbalTxTopic  string `mapstructure:"gimbal_tx_topic"`
}

// CommandConfig configures the outbound command queue.
type CommandConfig struct {
	QueueCapacity int `mapstructure:"queue_capacity"`
}

// SupervisorConfig configures the supervision loop.
type SupervisorConfig struct {
	TickIntervalMS int `mapstructure:"tick_interval_ms"`
}

// Config is the full process configuration.
type Config struct {
	Video      VideoConfig      `mapstructure:"video"`
	Audio      AudioConfig      `mapstructure:"audio"`
	MQTT       MQTTConfig       `mapstructure:"mqtt"`
	Command    CommandConfig    `mapstructure:"command"`
	Supervisor SupervisorConfig `mapstructure:"supervisor"`
	Log        logger.Config    `mapstructure:"log"`
}

// Load reads configuration from an optional YAML file, environment variables
// (TELEOP_ prefix), and defaults, in that precedence order.
func Load(configPath string) (Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("teleop")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path := strings.TrimSpace(configPath); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects configurations the runtime cannot start with.
func (c Config) Validate() error {
	if strings.TrimSpace(c.Video.Addr) == "" {
		return fmt.Errorf("video.addr is required")
	}
	if c.Video.DecodeWorkers < 1 {
		return fmt.Errorf("video.decode_workers must be >= 1, got %d", c.Video.DecodeWorkers)
	}
	if c.Audio.Enabled && strings.TrimSpace(c.Audio.Addr) == "" {
		return fmt.Errorf("audio.addr is required when audio is enabled")
	}
	if c.Audio.QueueCapacity < 1 {
		return fmt.Errorf("audio.queue_capacity must be >= 1, got %d", c.Audio.QueueCapacity)
	}
	if strings.TrimSpace(c.MQTT.BrokerHost) == "" {
		return fmt.Errorf("mqtt.broker_host is required")
	}
	if c.MQTT.BrokerPort <= 0 || c.MQTT.BrokerPort > 65535 {
		return fmt.Errorf("mqtt.broker_port must be 1-65535, got %d", c.MQTT.BrokerPort)
	}
	if c.Command.QueueCapacity < 1 {
		return fmt.Errorf("command.queue_capacity must be >= 1, got %d", c.Command.QueueCapacity)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("video.addr", ":50051")
	v.SetDefault("video.decode_workers", 1)

	v.SetDefault("audio.enabled", true)
	v.SetDefault("audio.addr", ":50052")
	v.SetDefault("audio.sample_rate", 48000)
	v.SetDefault("audio.channels", 1)
	v.SetDefault("audio.queue_capacity", 10)

	v.SetDefault("mqtt.broker_host", "127.0.0.1")
	v.SetDefault("mqtt.broker_port", 1883)
	v.SetDefault("mqtt.client_id", "")
	v.SetDefault("mqtt.vehicle_tx_topic", "robot/tx")
	v.SetDefault("mqtt.gimbal_tx_topic", "robot/gimbal/tx")

	v.SetDefault("command.queue_capacity", 5)

	v.SetDefault("supervisor.tick_interval_ms", 100)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.stdout", true)
	v.SetDefault("log.file.enabled", false)
	v.SetDefault("log.file.path", "./logs")
	v.SetDefault("log.file.name", "teleop-server.log")
	v.SetDefault("log.file.max_size_mb", 100)
	v.SetDefault("log.file.max_backups", 5)
	v.SetDefault("log.file.max_age_days", 30)
	v.SetDefault("log.file.compress", true)
}
