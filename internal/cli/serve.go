package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/shaiso/conveyor/internal/config"
	"github.com/shaiso/conveyor/internal/pipeline"
)

// NewServeCmd создаёт команду serve.
func NewServeCmd(logger *slog.Logger) *cobra.Command {
	var configPath string
	var listenAddr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Load pipelines from configs and serve them",
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(logger, configPath, listenAddr)
		},
	}

	cmd.Flags().StringVar(&configPath, "config",
		envOr("CONVEYOR_CONFIG", "configs"),
		"Path to pipeline config file or directory")
	cmd.Flags().StringVar(&listenAddr, "listen",
		envOr("CONVEYOR_LISTEN", ":8080"),
		"Address for /healthz, /metrics and /pipelines")

	return cmd
}

func serve(logger *slog.Logger, configPath, listenAddr string) error {
	logger.Info("starting conveyor")

	// graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	specs, err := config.LoadPath(configPath)
	if err != nil {
		return err
	}

	registry := pipeline.NewRegistry(pipeline.RegistryConfig{
		Factories: defaultFactories(logger),
		Logger:    logger,
	})

	for _, spec := range specs {
		if err := registry.Load(spec); err != nil {
			return fmt.Errorf("load pipeline %q: %w", spec.Name, err)
		}
		logger.Info("pipeline loaded",
			"pipeline", spec.Name,
			"sources", len(spec.Sources),
			"steps", len(spec.Steps),
			"sinks", len(spec.Sinks),
		)
	}

	for _, spec := range specs {
		if err := registry.Start(ctx, spec.Name); err != nil {
			registry.StopAll()
			return fmt.Errorf("start pipeline %q: %w", spec.Name, err)
		}
	}

	// HTTP mux: /healthz + /metrics + /pipelines
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/pipelines", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(registry.List())
	})

	srv := &http.Server{Addr: listenAddr, Handler: mux}
	go func() {
		logger.Info("listening", "addr", listenAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
			cancel()
		}
	}()

	// Ожидаем сигнал завершения
	<-ctx.Done()
	logger.Info("shutting down")

	registry.StopAll()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	srv.Shutdown(shutdownCtx)

	logger.Info("conveyor stopped")
	return nil
}

// envOr возвращает значение переменной окружения или fallback.
func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
