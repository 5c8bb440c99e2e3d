package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/JonMunkholm/salon/internal/config"
	"github.com/JonMunkholm/salon/internal/core"
	_ "github.com/JonMunkholm/salon/internal/core/tables" // Register all tables
	"github.com/JonMunkholm/salon/internal/logging"
	"github.com/JonMunkholm/salon/internal/metrics"
	"github.com/JonMunkholm/salon/internal/source"
	"github.com/JonMunkholm/salon/internal/store"
	"github.com/JonMunkholm/salon/internal/web"
	"github.com/joho/godotenv"
)

func main() {
	// Overload so a local .env wins over stale shell exports.
	if err := godotenv.Overload(); err != nil {
		slog.Info("no .env file found, using environment variables")
	} else {
		slog.Info("loaded .env file (overwriting existing env vars)")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logging.Setup(cfg.Logging.Level, cfg.Logging.Format)
	source.MaxFileSize = cfg.Import.MaxFileSize

	slog.Info("configuration loaded",
		"port", cfg.Server.Port,
		"store", cfg.Store.Driver,
		"import_max_concurrent", cfg.Import.MaxConcurrent,
		"api_key_required", cfg.Security.RequireAPIKey,
	)

	mappings, err := config.LoadMappings(cfg.Import.MappingFile)
	if err != nil {
		slog.Error("failed to load mapping file", "error", err)
		os.Exit(1)
	}

	ctx := context.Background()
	st, err := store.Open(ctx, cfg)
	if err != nil {
		slog.Error("failed to open store", "error", err)
		os.Exit(1)
	}
	defer st.Close()

	reg := metrics.NewRegistry()
	service, err := core.NewService(st, cfg, mappings, reg)
	if err != nil {
		slog.Error("failed to create service", "error", err)
		os.Exit(1)
	}

	slog.Info("tables registered", "count", core.TableCount())
	for _, info := range service.ListTables() {
		slog.Debug("table", "key", info.Key, "param", info.Param, "stage", info.Stage)
	}

	server := web.NewServer(service, cfg, reg)

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		slog.Info("shutting down...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		// A half-finished import leaves tables cleared, so let it finish.
		if status := service.ImportStatus(); status.Active > 0 {
			slog.Info("waiting for imports to complete", "active", status.Active)
			if err := service.WaitForImports(shutdownCtx); err != nil {
				slog.Warn("imports did not complete in time", "error", err)
			} else {
				slog.Info("all imports completed")
			}
		}

		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("shutdown error", "error", err)
		}
	}()

	slog.Info("server starting", "addr", cfg.Server.Addr())
	if err := server.Start(); err != nil {
		slog.Info("server stopped", "error", err)
	}
}
