package offline

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io/fs"
	"log/slog"
	"strings"
	"sync"

	"biblestudy/internal/bible"
	"biblestudy/internal/logging"
	"biblestudy/internal/services"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// BookSummary describes a book available in a dataset.
type BookSummary struct {
	Abbrev   string `json:"abbrev"`
	Name     string `json:"name"`
	Chapters int    `json:"chapters"`
	// Index is the book's position in the canonical catalog, -1 when the
	// abbreviation is unknown.
	Index int `json:"index"`
}

// Loader reads dataset files from fsys and keeps every parsed dataset for
// the lifetime of the process.
type Loader struct {
	fsys   fs.FS
	logger *slog.Logger

	mu    sync.Mutex
	cache map[string]*Dataset
}

// NewLoader constructs a loader over a directory of <translation>.json files.
func NewLoader(fsys fs.FS, logger *slog.Logger) *Loader {
	return &Loader{
		fsys:   fsys,
		logger: logging.NewComponentLogger(logger, "offline"),
		cache:  make(map[string]*Dataset),
	}
}

// Load returns the parsed dataset for translation, reading the file on first
// use only.
func (l *Loader) Load(ctx context.Context, translation string) (*Dataset, error) {
	translation = strings.ToLower(strings.TrimSpace(translation))
	if !IsAvailableOffline(translation) {
		return nil, services.Wrap(services.ErrNotFound, "offline", "load dataset",
			fmt.Sprintf("translation %q is not available offline (have %s)", translation, strings.Join(allowList, ", ")), ErrUnavailable)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if ds, ok := l.cache[translation]; ok {
		return ds, nil
	}

	if l.fsys == nil {
		return nil, services.Wrap(services.ErrConfiguration, "offline", "load dataset", "dataset directory not configured", nil)
	}
	name := FileName(translation)
	data, err := fs.ReadFile(l.fsys, name)
	if err != nil {
		return nil, services.Wrap(services.ErrNotFound, "offline", "load dataset", "read "+name, err)
	}
	var books []BookEntry
	if err := json.Unmarshal(bytes.TrimPrefix(data, utf8BOM), &books); err != nil {
		return nil, services.Wrap(services.ErrValidation, "offline", "load dataset", "decode "+name, err)
	}

	ds := newDataset(translation, books)
	l.cache[translation] = ds
	l.logger.Info("offline dataset loaded",
		logging.String(logging.FieldTranslation, translation),
		logging.Int("books", len(books)),
		logging.String(logging.FieldEventType, "offline_dataset_loaded"),
	)
	return ds, nil
}

// Loaded reports which translations are already parsed.
func (l *Loader) Loaded() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]string, 0, len(l.cache))
	for _, id := range allowList {
		if _, ok := l.cache[id]; ok {
			out = append(out, id)
		}
	}
	return out
}

// IsAvailable reports whether translation is on the offline allow-list.
func (l *Loader) IsAvailable(translation string) bool {
	return IsAvailableOffline(translation)
}

// FetchChapter loads the dataset, resolves the book and slices the chapter.
func (l *Loader) FetchChapter(ctx context.Context, book string, chapter int, translation string) (bible.Chapter, error) {
	ds, err := l.Load(ctx, translation)
	if err != nil {
		return bible.Chapter{}, err
	}
	entry, err := ds.ResolveBook(book)
	if err != nil {
		return bible.Chapter{}, err
	}
	return SliceChapter(entry, book, chapter, ds.Translation)
}

// Books lists every book in the dataset with chapter counts taken from the
// data itself.
func (l *Loader) Books(ctx context.Context, translation string) ([]BookSummary, error) {
	ds, err := l.Load(ctx, translation)
	if err != nil {
		return nil, err
	}
	catalog := bible.Books()
	full := len(ds.Books) == len(catalog)
	out := make([]BookSummary, 0, len(ds.Books))
	for i, b := range ds.Books {
		summary := BookSummary{Abbrev: b.Abbrev, Name: strings.ToUpper(b.Abbrev), Chapters: len(b.Chapters), Index: -1}
		// Full datasets are named by position, as in ResolveBook.
		if full {
			summary.Name, summary.Index = catalog[i].Name, i
		} else if book, ok := bible.LookupBook(b.Abbrev); ok {
			summary.Name, summary.Index = book.Name, book.Index()
		}
		out = append(out, summary)
	}
	return out, nil
}

// ChapterCount returns the number of chapters for book in translation.
func (l *Loader) ChapterCount(ctx context.Context, book, translation string) (int, error) {
	ds, err := l.Load(ctx, translation)
	if err != nil {
		return 0, err
	}
	entry, err := ds.ResolveBook(book)
	if err != nil {
		return 0, err
	}
	return len(entry.Chapters), nil
}
