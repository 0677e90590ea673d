// Posectl talks to a pose-estimation server over a single WebSocket
// connection. Each subcommand sends one request and prints the reply;
// `shell` keeps the connection open for interactive use.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"github.com/lisuiheng/posebridge/core"
	"github.com/lisuiheng/posebridge/logger"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

type app struct {
	v          *viper.Viper
	configPath string
	timeout    time.Duration
	cfg        core.Config
	registry   *prometheus.Registry
	metricsSrv *http.Server
}

func main() {
	a := &app{v: viper.New(), registry: prometheus.NewRegistry()}
	if err := a.rootCommand().Execute(); err != nil {
		logger.Error("Command failed", "error", err)
		os.Exit(1)
	}
}

func (a *app) rootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "posectl",
		Short:         "Client for the pose-estimation WebSocket API",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(a.v, a.configPath)
			if err != nil {
				return err
			}
			a.cfg = cfg
			if err := initLogger(cfg); err != nil {
				return err
			}
			a.startMetrics()
			return nil
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			a.stopMetrics()
			return nil
		},
	}

	flags := root.PersistentFlags()
	flags.StringVarP(&a.configPath, "config", "c", "", "Path to config file (default searches ./config.yaml, ./config/config.yaml, /etc/posebridge/config.yaml)")
	flags.DurationVar(&a.timeout, "timeout", 15*time.Second, "How long to wait for a reply")
	flags.String("url", "", "Server endpoint (ws:// or wss://)")
	flags.Bool("verbose", false, "Log every raw frame")
	flags.String("log-level", "", "Log level (debug, info, warn, error)")
	flags.String("metrics-addr", "", "Serve Prometheus metrics on this address")
	_ = a.v.BindPFlag("server.endpoint_url", flags.Lookup("url"))
	_ = a.v.BindPFlag("verbose_logging", flags.Lookup("verbose"))
	_ = a.v.BindPFlag("logging.level", flags.Lookup("log-level"))
	_ = a.v.BindPFlag("metrics.listen_addr", flags.Lookup("metrics-addr"))

	root.AddCommand(
		a.loginCommand(),
		a.registerCommand(),
		a.levelsCommand(),
		a.resultsCommand(),
		a.updateResultCommand(),
		a.detectCommand(),
		a.shellCommand(),
	)
	return root
}

func (a *app) newClient(handlers core.HandlerSet) (*core.Client, error) {
	return core.NewClient(a.cfg, handlers, logger.Logger(), core.WithRegisterer(a.registry))
}

func (a *app) startMetrics() {
	if a.cfg.Metrics.ListenAddr == "" {
		return
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(a.registry, promhttp.HandlerOpts{}))
	a.metricsSrv = &http.Server{
		Addr:              a.cfg.Metrics.ListenAddr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		logger.Info("Serving metrics", "addr", a.cfg.Metrics.ListenAddr)
		if err := a.metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Metrics server stopped", "error", err)
		}
	}()
}

func (a *app) stopMetrics() {
	if a.metricsSrv == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_ = a.metricsSrv.Shutdown(ctx)
}
