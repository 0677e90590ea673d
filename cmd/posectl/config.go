package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/lisuiheng/posebridge/core"
	"github.com/lisuiheng/posebridge/logger"
	"github.com/spf13/viper"
)

// loadConfig 加载配置文件，未指定路径时在默认目录中搜索 config.yaml
func loadConfig(v *viper.Viper, configPath string) (core.Config, error) {
	v.SetConfigType("yaml")
	setDefaults(v)

	v.SetEnvPrefix("POSECTL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		// 使用命令行指定的路径
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		v.AddConfigPath("/etc/posebridge")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configPath != "" || !errors.As(err, &notFound) {
			return core.Config{}, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg core.Config
	if err := v.Unmarshal(&cfg); err != nil {
		return core.Config{}, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return core.Config{}, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	d := core.DefaultConfig()
	v.SetDefault("server.endpoint_url", d.Server.EndpointURL)
	v.SetDefault("server.client_id", d.Server.ClientID)
	v.SetDefault("server.handshake_timeout", d.Server.HandshakeTimeout)
	v.SetDefault("server.write_timeout", d.Server.WriteTimeout)
	v.SetDefault("queue.weak_threshold", d.Queue.WeakThreshold)
	v.SetDefault("heartbeat.interval", d.Heartbeat.Interval)
	v.SetDefault("verbose_logging", d.Verbose)
	v.SetDefault("logging.level", d.Logging.Level)
	v.SetDefault("logging.outputs", d.Logging.Outputs)
	v.SetDefault("logging.format", d.Logging.Format)
	v.SetDefault("metrics.namespace", d.Metrics.Namespace)
	v.SetDefault("metrics.listen_addr", d.Metrics.ListenAddr)
}

// initLogger 初始化日志系统
func initLogger(cfg core.Config) error {
	logCfg := logger.Config{
		Level:   cfg.Logging.Level,
		Outputs: cfg.Logging.Outputs,
		Format:  cfg.Logging.Format,
	}

	// 调试模式覆盖配置
	if cfg.Verbose {
		logCfg.Level = "debug"
	}

	return logger.Init(logCfg)
}
