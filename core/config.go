package core

import (
	"fmt"
	"net/url"
	"time"
)

// Config 是客户端配置，字段与 YAML 文件结构一一对应
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Queue     QueueConfig     `mapstructure:"queue"`
	Heartbeat HeartbeatConfig `mapstructure:"heartbeat"`
	Verbose   bool            `mapstructure:"verbose_logging"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	Metrics   MetricsConfig   `mapstructure:"metrics"`
}

type ServerConfig struct {
	EndpointURL      string        `mapstructure:"endpoint_url"`
	ClientID         string        `mapstructure:"client_id"`
	HandshakeTimeout time.Duration `mapstructure:"handshake_timeout"`
	WriteTimeout     time.Duration `mapstructure:"write_timeout"`
}

type QueueConfig struct {
	// WeakThreshold 是软阈值，队列长度超过它时上报 NetworkWeak
	WeakThreshold int `mapstructure:"weak_threshold"`
}

type HeartbeatConfig struct {
	// Interval 为 0 时不启动心跳
	Interval time.Duration `mapstructure:"interval"`
}

type LoggingConfig struct {
	Level   string   `mapstructure:"level"`
	Outputs []string `mapstructure:"outputs"`
	Format  string   `mapstructure:"format"`
}

type MetricsConfig struct {
	Namespace  string `mapstructure:"namespace"`
	ListenAddr string `mapstructure:"listen_addr"`
}

// DefaultConfig 返回默认配置，端点地址需由调用方提供
func DefaultConfig() Config {
	return Config{
		Server: ServerConfig{
			HandshakeTimeout: 10 * time.Second,
			WriteTimeout:     5 * time.Second,
		},
		Queue: QueueConfig{
			WeakThreshold: 8,
		},
		Logging: LoggingConfig{
			Level:   "info",
			Outputs: []string{"stdout"},
			Format:  "text",
		},
		Metrics: MetricsConfig{
			Namespace: "posebridge",
		},
	}
}

func (c Config) Validate() error {
	if c.Server.EndpointURL == "" {
		return fmt.Errorf("%w: server.endpoint_url is required", ErrInvalidConfig)
	}
	u, err := url.Parse(c.Server.EndpointURL)
	if err != nil {
		return fmt.Errorf("%w: server.endpoint_url: %v", ErrInvalidConfig, err)
	}
	if u.Scheme != "ws" && u.Scheme != "wss" {
		return fmt.Errorf("%w: server.endpoint_url scheme must be ws or wss, got %q", ErrInvalidConfig, u.Scheme)
	}
	if c.Queue.WeakThreshold < 0 {
		return fmt.Errorf("%w: queue.weak_threshold must be >= 0", ErrInvalidConfig)
	}
	if c.Heartbeat.Interval < 0 {
		return fmt.Errorf("%w: heartbeat.interval must be >= 0", ErrInvalidConfig)
	}
	return nil
}
