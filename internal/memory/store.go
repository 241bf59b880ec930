package memory

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"biblestudy/internal/kvstore"
	"biblestudy/internal/logging"
	"biblestudy/internal/services"
)

// Store persists page memory in a kvstore.Store. Reads never fail: a
// missing, unreadable or corrupt record yields an empty state and a warning.
type Store struct {
	kv     kvstore.Store
	logger *slog.Logger
	now    func() time.Time
	mu     sync.Mutex
}

// Option customizes the store.
type Option func(*Store)

// WithClock overrides the timestamp source for chat messages.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// New wraps kv.
func New(kv kvstore.Store, logger *slog.Logger, opts ...Option) *Store {
	s := &Store{
		kv:     kv,
		logger: logging.NewComponentLogger(logger, "memory"),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// LoadExplorer returns the explorer page memory.
func (s *Store) LoadExplorer(ctx context.Context) ExplorerState {
	var state ExplorerState
	if !s.load(ctx, PageExplorer, &state) {
		return ExplorerState{}
	}
	return state
}

// SaveExplorer replaces the explorer page memory.
func (s *Store) SaveExplorer(ctx context.Context, state ExplorerState) error {
	state.ChatHistory = trimHistory(state.ChatHistory)
	return s.save(ctx, PageExplorer, state)
}

// LoadStudy returns the study page memory.
func (s *Store) LoadStudy(ctx context.Context) StudyState {
	var state StudyState
	if !s.load(ctx, PageStudy, &state) {
		return StudyState{}
	}
	return state
}

// SaveStudy replaces the study page memory.
func (s *Store) SaveStudy(ctx context.Context, state StudyState) error {
	state.ChatHistory = trimHistory(state.ChatHistory)
	return s.save(ctx, PageStudy, state)
}

// Load returns the state for page as ExplorerState or StudyState.
func (s *Store) Load(ctx context.Context, page Page) (any, error) {
	switch page {
	case PageExplorer:
		return s.LoadExplorer(ctx), nil
	case PageStudy:
		return s.LoadStudy(ctx), nil
	default:
		_, err := ParsePage(string(page))
		return nil, err
	}
}

// SaveJSON replaces the state for page from a JSON document, rejecting
// fields that do not belong to the page.
func (s *Store) SaveJSON(ctx context.Context, page Page, raw []byte) error {
	decode := func(target any) error {
		decoder := json.NewDecoder(bytes.NewReader(raw))
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(target); err != nil {
			return services.Wrap(services.ErrValidation, "memory", "decode", string(page), err)
		}
		return nil
	}
	switch page {
	case PageExplorer:
		var state ExplorerState
		if err := decode(&state); err != nil {
			return err
		}
		return s.SaveExplorer(ctx, state)
	case PageStudy:
		var state StudyState
		if err := decode(&state); err != nil {
			return err
		}
		return s.SaveStudy(ctx, state)
	default:
		_, err := ParsePage(string(page))
		return err
	}
}

// Clear removes the record for page.
func (s *Store) Clear(ctx context.Context, page Page) error {
	key := page.Key()
	if key == "" {
		_, err := ParsePage(string(page))
		return err
	}
	if err := s.kv.Delete(ctx, key); err != nil {
		return services.Wrap(services.ErrTransport, "memory", "clear", string(page), err)
	}
	return nil
}

// AddChatMessage appends a message to page's chat history, keeping only the
// newest MaxChatHistory entries.
func (s *Store) AddChatMessage(ctx context.Context, page Page, role Role, content string) (ChatMessage, error) {
	if !role.Valid() {
		return ChatMessage{}, services.Wrap(services.ErrValidation, "memory", "add chat message",
			fmt.Sprintf("unknown role %q", role), nil)
	}
	msg := ChatMessage{Role: role, Content: content, Timestamp: s.now().UTC()}

	s.mu.Lock()
	defer s.mu.Unlock()
	switch page {
	case PageExplorer:
		state := s.LoadExplorer(ctx)
		state.ChatHistory = append(state.ChatHistory, msg)
		return msg, s.SaveExplorer(ctx, state)
	case PageStudy:
		state := s.LoadStudy(ctx)
		state.ChatHistory = append(state.ChatHistory, msg)
		return msg, s.SaveStudy(ctx, state)
	default:
		_, err := ParsePage(string(page))
		return ChatMessage{}, err
	}
}

// ChatHistory returns page's chat messages oldest first.
func (s *Store) ChatHistory(ctx context.Context, page Page) []ChatMessage {
	switch page {
	case PageExplorer:
		return s.LoadExplorer(ctx).ChatHistory
	case PageStudy:
		return s.LoadStudy(ctx).ChatHistory
	default:
		return nil
	}
}

func (s *Store) load(ctx context.Context, page Page, target any) bool {
	raw, ok, err := s.kv.Get(ctx, page.Key())
	if err == nil && !ok {
		return true
	}
	if err == nil {
		err = json.Unmarshal([]byte(raw), target)
	}
	if err != nil {
		logging.WarnWithContext(s.logger, "failed to load study memory; starting empty", "memory_load_failed",
			logging.String("page", string(page)),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "run 'biblestudy memory clear "+string(page)+"' to reset the record"),
			logging.String(logging.FieldImpact, "previous session state is not restored"),
		)
		return false
	}
	return true
}

func (s *Store) save(ctx context.Context, page Page, state any) error {
	encoded, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("encode %s memory: %w", page, err)
	}
	if err := s.kv.Set(ctx, page.Key(), string(encoded)); err != nil {
		logging.WarnWithContext(s.logger, "failed to save study memory", "memory_save_failed",
			logging.String("page", string(page)),
			logging.Error(err),
			logging.String(logging.FieldImpact, "state is lost when the process exits"),
		)
		return services.Wrap(services.ErrTransport, "memory", "save", string(page), err)
	}
	return nil
}
