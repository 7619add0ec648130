// Command fluxmasterd runs the master process: the Data Info Provider,
// Task Analyser, and Scheduler behind a gRPC API.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/fluxrun/fluxrun/pkg/api"
	"github.com/fluxrun/fluxrun/pkg/config"
	"github.com/fluxrun/fluxrun/pkg/log"
	"github.com/fluxrun/fluxrun/pkg/metrics"
	"github.com/fluxrun/fluxrun/pkg/runtime"
)

var (
	Version = "dev"
	Commit  = "unknown"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:     "fluxmasterd",
	Short:   "fluxmasterd runs the runtime's master process",
	Version: Version,
	RunE:    runMaster,
}

func init() {
	rootCmd.SetVersionTemplate(fmt.Sprintf("fluxmasterd %s (%s)\n", Version, Commit))

	rootCmd.Flags().String("config", "", "path to a YAML config file (defaults to zero-config startup)")
	rootCmd.Flags().String("api-addr", "", "override the gRPC listen address")
	rootCmd.Flags().String("metrics-addr", ":9090", "metrics HTTP listen address")
	rootCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.Flags().Bool("log-json", false, "emit logs as JSON")
}

func runMaster(cmd *cobra.Command, args []string) error {
	logLevel, _ := cmd.Flags().GetString("log-level")
	logJSON, _ := cmd.Flags().GetBool("log-json")
	log.Init(log.Config{Level: log.Level(logLevel), JSONOutput: logJSON})

	cfg := config.Default()
	if path, _ := cmd.Flags().GetString("config"); path != "" {
		loaded, err := config.Load(path)
		if err != nil {
			return fmt.Errorf("load config %s: %w", path, err)
		}
		cfg = loaded
	}
	if addr, _ := cmd.Flags().GetString("api-addr"); addr != "" {
		cfg.API.ListenAddr = addr
	}

	rt := runtime.New(cfg)
	server := api.NewServer(rt)
	rt.SetDispatcher(server)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	runtimeErrCh := make(chan error, 1)
	go func() { runtimeErrCh <- rt.Run(ctx) }()

	metricsAddr, _ := cmd.Flags().GetString("metrics-addr")
	go func() {
		http.Handle("/metrics", metrics.Handler())
		if err := http.ListenAndServe(metricsAddr, nil); err != nil {
			log.Logger.Error().Err(err).Msg("metrics server stopped")
		}
	}()

	serverErrCh := make(chan error, 1)
	go func() { serverErrCh <- server.Start(cfg.API.ListenAddr) }()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-sigCh:
		log.Logger.Info().Msg("shutting down")
	case err := <-serverErrCh:
		if err != nil {
			return fmt.Errorf("api server: %w", err)
		}
	case err := <-runtimeErrCh:
		if err != nil {
			return fmt.Errorf("runtime halted: %w", err)
		}
	}

	server.Stop()
	cancel()
	return nil
}
