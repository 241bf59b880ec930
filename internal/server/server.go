package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"strings"
	"sync/atomic"
	"time"

	"github.com/gofrs/flock"

	"biblestudy/internal/app"
	"biblestudy/internal/config"
	"biblestudy/internal/logging"
)

// Server serves the HTTP surface for one data directory.
type Server struct {
	cfg     *config.Config
	app     *app.App
	logger  *slog.Logger
	started time.Time

	lockPath string
	lock     *flock.Flock

	running  atomic.Bool
	listener net.Listener
	http     *http.Server
}

// Status represents server runtime information.
type Status struct {
	Running       bool   `json:"running"`
	PID           int    `json:"pid"`
	Address       string `json:"address,omitempty"`
	LockFilePath  string `json:"lockFilePath"`
	StatePath     string `json:"statePath"`
	DatasetDir    string `json:"datasetDir"`
	LLMConfigured bool   `json:"llmConfigured"`
	Provider      string `json:"provider"`
	Uptime        string `json:"uptime,omitempty"`
}

// New constructs a server around an opened App.
func New(cfg *config.Config, a *app.App, logger *slog.Logger) (*Server, error) {
	if cfg == nil || a == nil {
		return nil, errors.New("server requires config and app")
	}
	lockPath := cfg.LockPath()
	s := &Server{
		cfg:      cfg,
		app:      a,
		logger:   logging.NewComponentLogger(logger, "server"),
		lockPath: lockPath,
		lock:     flock.New(lockPath),
	}
	s.http = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      120 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return s, nil
}

// Handler returns the full route table wrapped in middleware.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.Handle("/api/chat", s.app.Gateway.ChatHandler())
	mux.Handle("/api/test", s.app.Gateway.TestHandler())

	mux.HandleFunc("GET /api/status", s.handleStatus)
	mux.HandleFunc("GET /api/chapter", s.handleChapter)
	mux.HandleFunc("GET /api/books", s.handleBooks)
	mux.HandleFunc("GET /api/cache", s.handleCacheList)
	mux.HandleFunc("DELETE /api/cache", s.handleCacheClear)
	mux.HandleFunc("GET /api/memory/{page}", s.handleMemoryGet)
	mux.HandleFunc("PUT /api/memory/{page}", s.handleMemoryPut)
	mux.HandleFunc("DELETE /api/memory/{page}", s.handleMemoryDelete)
	mux.HandleFunc("POST /api/memory/{page}/chat", s.handleMemoryChat)

	return requestIDMiddleware(s.logger, authMiddleware(s.cfg.Server.APIToken, mux))
}

// Start acquires the instance lock and begins serving on server.bind. The
// listener shuts down when ctx is cancelled.
func (s *Server) Start(ctx context.Context) error {
	if s.running.Load() {
		return errors.New("server already running")
	}

	ok, err := s.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return fmt.Errorf("another biblestudy server is already using %s", s.cfg.Paths.DataDir)
	}

	bind := strings.TrimSpace(s.cfg.Server.Bind)
	listener, err := net.Listen("tcp", bind)
	if err != nil {
		_ = s.lock.Unlock()
		return fmt.Errorf("listen on %s: %w", bind, err)
	}
	s.listener = listener
	s.started = time.Now()
	s.running.Store(true)

	go func() {
		if err := s.http.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("http server error", logging.Error(err))
		}
	}()
	go func() {
		<-ctx.Done()
		s.Stop()
	}()

	s.logger.Info("biblestudy server listening",
		logging.String("address", listener.Addr().String()),
		logging.String("lock", s.lockPath),
		logging.Bool("auth", s.cfg.Server.APIToken != ""),
	)
	return nil
}

// Stop shuts the listener down and releases the lock. It is safe to call
// more than once.
func (s *Server) Stop() {
	if !s.running.CompareAndSwap(true, false) {
		return
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.http.Shutdown(shutdownCtx); err != nil {
		s.logger.Warn("http shutdown incomplete", logging.Error(err))
	}
	if err := s.lock.Unlock(); err != nil {
		logging.WarnWithContext(s.logger, "failed to release server lock", "lock_release_failed",
			logging.String("lock", s.lockPath),
			logging.Error(err),
		)
	}
	s.logger.Info("biblestudy server stopped")
}

// Addr reports the bound listener address, or "" before Start.
func (s *Server) Addr() string {
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Status returns the current server status.
func (s *Server) Status() Status {
	status := Status{
		Running:       s.running.Load(),
		PID:           os.Getpid(),
		Address:       s.Addr(),
		LockFilePath:  s.lockPath,
		StatePath:     s.cfg.Paths.StatePath,
		DatasetDir:    s.cfg.Paths.DatasetDir,
		LLMConfigured: s.cfg.LLMConfigured(),
		Provider:      s.cfg.LLM.Provider,
	}
	if status.Running {
		status.Uptime = time.Since(s.started).Round(time.Second).String()
	}
	return status
}
