// Package app assembles the chapter cache, study memory, gateway and prompt
// dispatcher from configuration. The server and the CLI share it so both
// resolve chapters and completions the same way.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"biblestudy/internal/bible"
	"biblestudy/internal/chaptercache"
	"biblestudy/internal/config"
	"biblestudy/internal/gateway"
	"biblestudy/internal/kvstore"
	"biblestudy/internal/logging"
	"biblestudy/internal/memory"
	"biblestudy/internal/offline"
	"biblestudy/internal/prompt"
	"biblestudy/internal/services/bibleapi"
)

// App holds the wired components. Close releases the state database.
type App struct {
	Config     *config.Config
	Logger     *slog.Logger
	Store      *kvstore.SQLiteStore
	Offline    *offline.Loader
	Remote     *bibleapi.Client
	Cache      *chaptercache.Cache
	Memory     *memory.Store
	Gateway    *gateway.Gateway
	Dispatcher *prompt.Dispatcher
}

// Open creates directories, opens the state database and wires every
// component. When server.gateway_url is set the dispatcher talks to that
// gateway over HTTP instead of the in-process one.
func Open(cfg *config.Config, logger *slog.Logger) (*App, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, err
	}

	store, err := kvstore.Open(cfg.Paths.StatePath)
	if err != nil {
		return nil, fmt.Errorf("open state database: %w", err)
	}

	loader := offline.NewLoader(os.DirFS(cfg.Paths.DatasetDir), logger)
	remote := bibleapi.NewClient(cfg.BibleAPI.BaseURL, time.Duration(cfg.BibleAPI.TimeoutSeconds)*time.Second)
	cache := chaptercache.New(store, loader, remote,
		chaptercache.WithCapacity(cfg.Cache.MemoryCapacity),
		chaptercache.WithTTL(time.Duration(cfg.Cache.RetentionDays)*24*time.Hour),
		chaptercache.WithSingleFlight(cfg.Cache.SingleFlight),
		chaptercache.WithLogger(logger),
	)

	gw := gateway.NewFromConfig(cfg, logger)
	var completer prompt.Completer = gateway.NewLocal(gw)
	if url := strings.TrimSpace(cfg.Server.GatewayURL); url != "" {
		completer = prompt.NewGatewayClient(url, prompt.WithBearerToken(cfg.Server.APIToken))
	}

	return &App{
		Config:     cfg,
		Logger:     logger,
		Store:      store,
		Offline:    loader,
		Remote:     remote,
		Cache:      cache,
		Memory:     memory.New(store, logger),
		Gateway:    gw,
		Dispatcher: prompt.NewDispatcher(completer, logger),
	}, nil
}

// Close releases the state database.
func (a *App) Close() error {
	if a == nil || a.Store == nil {
		return nil
	}
	return a.Store.Close()
}

// BookInfo is one entry of a book listing.
type BookInfo struct {
	Name      string          `json:"name"`
	Testament bible.Testament `json:"testament,omitempty"`
	Chapters  int             `json:"chapters,omitempty"`
}

// Books lists the books for translation in canonical order. Chapter counts
// come from the offline dataset when one is available; otherwise only the
// catalog is returned.
func (a *App) Books(ctx context.Context, translation string) ([]BookInfo, error) {
	translation = strings.ToLower(strings.TrimSpace(translation))
	if translation == "" {
		translation = bible.DefaultTranslation
	}
	counts := make(map[int]int)
	if a.Offline != nil && a.Offline.IsAvailable(translation) {
		summaries, err := a.Offline.Books(ctx, translation)
		if err != nil {
			logging.WarnWithContext(a.Logger, "offline book listing failed; using catalog", "books_offline_failed",
				logging.String("translation", translation),
				logging.Error(err),
				logging.String(logging.FieldImpact, "chapter counts omitted"),
			)
		}
		for _, s := range summaries {
			if s.Index >= 0 {
				counts[s.Index] = s.Chapters
			}
		}
	}

	books := bible.Books()
	out := make([]BookInfo, 0, len(books))
	for i, b := range books {
		out = append(out, BookInfo{Name: b.Name, Testament: b.Testament, Chapters: counts[i]})
	}
	return out, nil
}
