package datasets

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/tidwall/gjson"

	"biblestudy/internal/logging"
	"biblestudy/internal/offline"
	"biblestudy/internal/services"
)

const (
	defaultRetries  = 3
	defaultTimeout  = 60 * time.Second
	maxDatasetBytes = 64 << 20
	userAgent       = "biblestudy/1.0"
)

// Result describes one downloaded dataset file.
type Result struct {
	Translation string `json:"translation"`
	Path        string `json:"path"`
	Bytes       int64  `json:"bytes"`
	Books       int    `json:"books"`
}

// DefaultSources are the download locations used when neither a
// per-translation URL nor a mirror is configured. The file keeps the
// {abbrev, chapters} layout and orders its books canonically. There is no
// public WEB dataset in that layout.
var DefaultSources = map[string]string{
	"kjv": "https://raw.githubusercontent.com/thiagobodruk/bible/master/json/en_kjv.json",
}

// Fetcher downloads dataset files into a directory.
type Fetcher struct {
	baseURL string
	sources map[string]string
	dir     string
	client  *retryablehttp.Client
	logger  *slog.Logger
}

// Option customizes a Fetcher.
type Option func(*Fetcher)

// WithHTTPClient replaces the transport used underneath the retrying client.
func WithHTTPClient(client *http.Client) Option {
	return func(f *Fetcher) {
		if client != nil {
			f.client.HTTPClient = client
		}
	}
}

// WithBackoff overrides the wait bounds between attempts.
func WithBackoff(minWait, maxWait time.Duration) Option {
	return func(f *Fetcher) {
		f.client.RetryWaitMin = minWait
		f.client.RetryWaitMax = maxWait
	}
}

// WithSources sets the full download URL per translation. They take
// precedence over the mirror base URL.
func WithSources(sources map[string]string) Option {
	return func(f *Fetcher) {
		for tr, u := range sources {
			if u = strings.TrimSpace(u); u != "" {
				f.sources[strings.ToLower(strings.TrimSpace(tr))] = u
			}
		}
	}
}

// WithLogger attaches a logger. Retry diagnostics go through it as well.
func WithLogger(logger *slog.Logger) Option {
	return func(f *Fetcher) {
		f.logger = logging.NewComponentLogger(logger, "datasets")
	}
}

// NewFetcher builds a fetcher for the mirror baseURL (may be empty) writing
// into dir. retries is the
// number of retries after the first attempt; zero uses the default.
func NewFetcher(baseURL, dir string, retries int, opts ...Option) *Fetcher {
	if retries <= 0 {
		retries = defaultRetries
	}
	client := retryablehttp.NewClient()
	client.RetryMax = retries
	client.HTTPClient.Timeout = defaultTimeout
	client.ErrorHandler = retryablehttp.PassthroughErrorHandler

	f := &Fetcher{
		baseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		sources: make(map[string]string),
		dir:     dir,
		client:  client,
		logger:  logging.NewComponentLogger(nil, "datasets"),
	}
	for _, opt := range opts {
		opt(f)
	}
	f.client.Logger = f.logger
	return f
}

// URL returns the download location for translation: a configured source,
// then the mirror, then DefaultSources.
func (f *Fetcher) URL(translation string) (string, error) {
	translation = strings.ToLower(strings.TrimSpace(translation))
	if u, ok := f.sources[translation]; ok {
		return u, nil
	}
	if f.baseURL != "" {
		return f.baseURL + "/" + offline.FileName(translation), nil
	}
	if u, ok := DefaultSources[translation]; ok {
		return u, nil
	}
	return "", services.Wrap(services.ErrConfiguration, "datasets", "resolve source",
		fmt.Sprintf("no download source for %s; set bible_api.dataset_urls.%s or bible_api.dataset_base_url", translation, translation), nil)
}

// Fetch downloads one translation. Only allow-listed translations are
// accepted.
func (f *Fetcher) Fetch(ctx context.Context, translation string) (Result, error) {
	translation = strings.ToLower(strings.TrimSpace(translation))
	if !offline.IsAvailableOffline(translation) {
		return Result{}, services.Wrap(services.ErrValidation, "datasets", "fetch",
			fmt.Sprintf("translation %q has no offline dataset (want one of %s)",
				translation, strings.Join(offline.AvailableTranslations(), ", ")), nil)
	}
	url, err := f.URL(translation)
	if err != nil {
		return Result{}, err
	}
	started := time.Now()
	body, err := f.download(ctx, url)
	if err != nil {
		logging.WarnWithContext(f.logger, "dataset download failed", "dataset_download_failed",
			logging.String("translation", translation),
			logging.String("url", url),
			logging.Error(err),
			logging.String(logging.FieldImpact, "offline tier unavailable for this translation"),
		)
		return Result{}, err
	}

	books, err := validate(body)
	if err != nil {
		return Result{}, services.Wrap(services.ErrValidation, "datasets", "fetch",
			fmt.Sprintf("%s is not a dataset", url), err)
	}

	path := filepath.Join(f.dir, offline.FileName(translation))
	if err := writeAtomic(path, body); err != nil {
		return Result{}, services.Wrap(services.ErrTransport, "datasets", "fetch", "write dataset", err)
	}

	f.logger.Info("dataset downloaded",
		logging.String("translation", translation),
		logging.String("path", path),
		logging.Int("books", books),
		logging.Int("bytes", len(body)),
		logging.Duration("elapsed", time.Since(started)),
	)
	return Result{Translation: translation, Path: path, Bytes: int64(len(body)), Books: books}, nil
}

// FetchAll downloads every translation in order and stops at the first
// failure. An empty list means every allow-listed translation.
func (f *Fetcher) FetchAll(ctx context.Context, translations []string) ([]Result, error) {
	if len(translations) == 0 {
		translations = offline.AvailableTranslations()
	}
	results := make([]Result, 0, len(translations))
	for _, translation := range translations {
		res, err := f.Fetch(ctx, translation)
		if err != nil {
			return results, err
		}
		results = append(results, res)
	}
	return results, nil
}

func (f *Fetcher) download(ctx context.Context, url string) ([]byte, error) {
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, services.Wrap(services.ErrValidation, "datasets", "download", "build request", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, services.Wrap(services.ErrTransport, "datasets", "download", "request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		marker := services.ErrTransport
		if resp.StatusCode == http.StatusNotFound {
			marker = services.ErrNotFound
		}
		return nil, services.Wrap(marker, "datasets", "download",
			fmt.Sprintf("HTTP error! status: %d", resp.StatusCode), nil)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxDatasetBytes+1))
	if err != nil {
		return nil, services.Wrap(services.ErrTransport, "datasets", "download", "read body", err)
	}
	if len(body) > maxDatasetBytes {
		return nil, services.Wrap(services.ErrValidation, "datasets", "download", "dataset exceeds size limit", nil)
	}
	return body, nil
}

// validate checks that body is a JSON array of books and returns the count.
func validate(body []byte) (int, error) {
	trimmed := bytes.TrimPrefix(body, []byte{0xEF, 0xBB, 0xBF})
	if !gjson.ValidBytes(trimmed) {
		return 0, fmt.Errorf("invalid JSON")
	}
	root := gjson.ParseBytes(trimmed)
	if !root.IsArray() {
		return 0, fmt.Errorf("expected an array of books")
	}
	books := int(root.Get("#").Int())
	if books == 0 {
		return 0, fmt.Errorf("no books")
	}
	if !root.Get("0.chapters").IsArray() {
		return 0, fmt.Errorf("first book has no chapters")
	}
	return books, nil
}

func writeAtomic(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".download-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		os.Remove(tmpName)
		return err
	}
	return os.Rename(tmpName, path)
}
