// Command orchestratord runs a standalone simulation orchestrator: it loads
// a scenario config, serves the websocket transport for renderers and FMU
// models, and drives the sync-topic barrier loop until signaled to stop.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/edufford/aerosim/internal/config"
	"github.com/edufford/aerosim/internal/logging"
	"github.com/edufford/aerosim/internal/orchestrator"
	"github.com/edufford/aerosim/internal/registry"
	"github.com/edufford/aerosim/internal/scenegraph"
	"github.com/edufford/aerosim/internal/transport"
)

func main() {
	configPath := flag.String("config", "", "path to the scenario JSON config")
	listenAddr := flag.String("listen", ":8088", "websocket listen address")
	outputOverride := flag.String("output", "", "override the config's output_sim_data_file path")
	logFile := flag.String("log-file", "", "optional additional log file path")
	flag.Parse()

	if *configPath == "" {
		fmt.Fprintln(os.Stderr, "orchestratord: -config is required")
		os.Exit(2)
	}

	if err := run(*configPath, *listenAddr, *outputOverride, *logFile); err != nil {
		fmt.Fprintln(os.Stderr, "orchestratord:", err)
		os.Exit(1)
	}
}

func run(configPath, listenAddr, outputOverride, logFile string) error {
	logger, err := newLogger(logFile)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	slog.SetDefault(logger)

	data, err := os.ReadFile(configPath)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}
	cfg, err := config.Parse(data)
	if err != nil {
		return fmt.Errorf("parse config: %w", err)
	}
	if outputOverride != "" {
		cfg.Orchestrator.OutputSimDataFile = outputOverride
	}

	broker := transport.NewWSBroker()
	defer broker.Close()

	mux := http.NewServeMux()
	mux.Handle("/ws", broker)
	server := &http.Server{Addr: listenAddr, Handler: mux}
	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("websocket server stopped", "err", err)
		}
	}()

	reg := registry.Bootstrap(registerWireTypes)
	orch := orchestrator.New(broker, reg, logger)

	if err := orch.Load(cfg, openRecorderFile); err != nil {
		return fmt.Errorf("load: %w", err)
	}
	if err := orch.Start(); err != nil {
		return fmt.Errorf("start: %w", err)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh
	logger.Info("shutdown signal received, stopping orchestrator")

	if err := orch.Stop(); err != nil {
		logger.Error("orchestrator stop failed", "err", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

func newLogger(logFile string) (*slog.Logger, error) {
	return logging.New(slog.LevelInfo, logFile)
}

// openRecorderFile satisfies orchestrator.RecorderOpener: an empty path
// disables recording, matching the upstream's "absent writer is silent"
// contract.
func openRecorderFile(path string) (io.Writer, io.Closer, error) {
	if path == "" {
		return nil, nil, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, err
	}
	return f, f, nil
}

// registerWireTypes binds every payload type the recorder may see to a
// schema name, mirroring the upstream's startup type registration.
func registerWireTypes(reg *registry.Registry) {
	must := func(err error) {
		if err != nil {
			panic(err)
		}
	}
	must(registry.Register[orchestrator.Command](reg, "Command"))
	must(registry.Register[orchestrator.RendererStatus](reg, "RendererStatus"))
	must(registry.Register[orchestrator.ClockMessage](reg, "ClockMessage"))
	must(registry.Register[scenegraph.Snapshot](reg, "SceneGraphSnapshot"))
	must(registry.Register[scenegraph.ActorStatePayload](reg, "ActorState"))
	must(registry.Register[scenegraph.ActorStatePayload](reg, "EffectorState"))
	must(registry.Register[scenegraph.PFDPayload](reg, "PFDState"))
	must(registry.Register[scenegraph.TrajectoryPayload](reg, "TrajectoryState"))
	must(registry.Register[orchestrator.FMUMessage](reg, "FMUMessage"))
}
