package server

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	"biblestudy/internal/app"
	"biblestudy/internal/config"
	"biblestudy/internal/logging"
	"biblestudy/internal/preflight"
)

// Options configures server process runtime behavior.
type Options struct {
	LogLevel    string
	Bind        string
	Development bool
}

// Run starts the server and blocks until SIGINT, SIGTERM or cancellation of
// cmdCtx.
func Run(cmdCtx context.Context, cfg *config.Config, opts Options) error {
	if cfg == nil {
		return fmt.Errorf("config is required")
	}
	if bind := strings.TrimSpace(opts.Bind); bind != "" {
		cfg.Server.Bind = bind
	}

	signalCtx, cancel := signal.NotifyContext(cmdCtx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := cfg.EnsureDirectories(); err != nil {
		return err
	}
	level := cfg.Logging.Level
	if strings.TrimSpace(opts.LogLevel) != "" {
		level = opts.LogLevel
	}
	outputs := []string{"stdout"}
	logPath := cfg.LogPath()
	if logPath != "" {
		outputs = append(outputs, logPath)
	}
	logger, err := logging.New(logging.Options{
		Level:       level,
		Format:      cfg.Logging.Format,
		OutputPaths: outputs,
		Development: opts.Development,
	})
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}

	logging.PruneOldLogs(logger, cfg.Paths.LogDir, "*.log", logPath, cfg.Logging.RetentionDays)
	logReadinessSnapshot(signalCtx, logger, cfg)

	pidPath := filepath.Join(cfg.Paths.DataDir, "biblestudy.pid")
	if err := writePIDFile(pidPath); err != nil {
		return fmt.Errorf("write pid file: %w", err)
	}
	defer os.Remove(pidPath)

	a, err := app.Open(cfg, logger)
	if err != nil {
		logger.Error("open application", logging.Error(err))
		return err
	}
	defer a.Close()

	srv, err := New(cfg, a, logger)
	if err != nil {
		return fmt.Errorf("create server: %w", err)
	}
	if err := srv.Start(signalCtx); err != nil {
		return err
	}
	defer srv.Stop()

	<-signalCtx.Done()
	logger.Info("biblestudy server shutting down")
	return nil
}

func writePIDFile(path string) error {
	if path == "" {
		return nil
	}
	value := strconv.Itoa(os.Getpid()) + "\n"
	return os.WriteFile(path, []byte(value), 0o644)
}

// logReadinessSnapshot records local preflight results. Failures degrade a
// tier rather than stop the server, so they are warnings.
func logReadinessSnapshot(ctx context.Context, logger *slog.Logger, cfg *config.Config) {
	results := preflight.RunAll(ctx, cfg)
	for _, r := range preflight.Failed(results) {
		logging.WarnWithContext(logger, "preflight check failed", "preflight_failed",
			logging.String("check", r.Name),
			logging.String("detail", r.Detail),
			logging.String(logging.FieldErrorHint, "run `biblestudy doctor` for details"),
		)
	}
	logger.Info("readiness snapshot",
		logging.String(logging.FieldEventType, "readiness_snapshot"),
		logging.Int("checks", len(results)),
		logging.Int("failed", len(preflight.Failed(results))),
		logging.Bool("llm_configured", cfg.LLMConfigured()),
		logging.String("llm_provider", cfg.LLM.Provider),
		logging.Bool("single_flight", cfg.Cache.SingleFlight),
		logging.Bool("remote_gateway", strings.TrimSpace(cfg.Server.GatewayURL) != ""),
	)
}
