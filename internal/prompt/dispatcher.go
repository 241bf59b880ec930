package prompt

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"biblestudy/internal/logging"
	"biblestudy/internal/services"
)

// Token ceilings per operation.
const (
	InsightMaxTokens             = 2778
	SummaryMaxTokens             = 1000
	ChapterCommentaryMaxTokens   = 2000
	SelectionCommentaryMaxTokens = 1500
	ChatMaxTokens                = 1500
)

// Messages prefixed to failures of each operation.
const (
	insightFailure    = "Theological Insight Error"
	summaryFailure    = "Failed to summarize chapter"
	commentaryFailure = "Failed to generate commentary"
	chatFailure       = "Failed to process chat message"
)

// MinSelectionLength is the shortest excerpt accepted for selection
// commentary; shorter selections are usually accidental clicks.
const MinSelectionLength = 6

// Source is a reference link returned with an insight.
type Source struct {
	URI   string `json:"uri"`
	Title string `json:"title"`
}

// Insight is a theological answer with reference sources.
type Insight struct {
	Text    string   `json:"text"`
	Sources []Source `json:"sources"`
}

// InsightSources are returned with every insight.
func InsightSources() []Source {
	return []Source{
		{URI: "https://www.esv.org/", Title: "ESV Bible Online"},
		{URI: "https://www.biblegateway.com/", Title: "Bible Gateway"},
	}
}

// Error is a dispatcher failure. Message names the operation; Err keeps the
// gateway or transport cause for errors.Is / errors.As.
type Error struct {
	Intent  Intent
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return e.Message
	}
	return e.Message + ": " + e.Err.Error()
}

func (e *Error) Unwrap() error { return e.Err }

// Dispatcher turns study actions into gateway requests.
type Dispatcher struct {
	completer Completer
	logger    *slog.Logger
}

// NewDispatcher constructs a dispatcher over completer.
func NewDispatcher(completer Completer, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{
		completer: completer,
		logger:    logging.NewComponentLogger(logger, "prompt"),
	}
}

func (d *Dispatcher) send(ctx context.Context, req Request, failure string) (string, error) {
	ctx = services.WithIntent(ctx, string(req.Type))
	logger := logging.WithContext(ctx, d.logger)
	if d.completer == nil {
		return "", &Error{Intent: req.Type, Message: failure,
			Err: services.Wrap(services.ErrConfiguration, "prompt", "dispatch", "no completion backend configured", nil)}
	}
	logger.Debug("dispatching completion request",
		logging.Int("max_tokens", req.MaxTokens),
		logging.Int("prompt_chars", len(req.Prompt)),
	)
	reply, err := d.completer.Complete(ctx, req)
	if err != nil {
		logger.Warn("completion request failed",
			logging.Error(err),
			logging.String(logging.FieldEventType, "dispatch_failed"),
			logging.String(logging.FieldErrorHint, "check the gateway logs and llm credentials"),
		)
		return "", &Error{Intent: req.Type, Message: failure, Err: err}
	}
	return reply, nil
}

func invalid(intent Intent, failure, message string) error {
	return &Error{Intent: intent, Message: failure,
		Err: services.Wrap(services.ErrValidation, "prompt", string(intent), message, nil)}
}

// FetchInsight asks for a theological treatment of topic.
func (d *Dispatcher) FetchInsight(ctx context.Context, topic string) (Insight, error) {
	topic = strings.TrimSpace(topic)
	if topic == "" {
		return Insight{}, invalid(IntentTheologicalInsight, insightFailure, "topic is required")
	}
	text, err := d.send(ctx, Request{
		Prompt:    InsightPrompt(topic),
		Type:      IntentTheologicalInsight,
		MaxTokens: InsightMaxTokens,
	}, insightFailure)
	if err != nil {
		return Insight{}, err
	}
	return Insight{Text: text, Sources: InsightSources()}, nil
}

// SummarizeChapter asks for a concise summary of a chapter.
func (d *Dispatcher) SummarizeChapter(ctx context.Context, text, reference string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "", invalid(IntentChapterSummary, summaryFailure, "chapter text is required")
	}
	return d.send(ctx, Request{
		Prompt:    SummaryPrompt(text, reference),
		Type:      IntentChapterSummary,
		MaxTokens: SummaryMaxTokens,
	}, summaryFailure)
}

// ChapterCommentary asks for commentary on a full chapter from perspective.
func (d *Dispatcher) ChapterCommentary(ctx context.Context, text, reference string, perspective Perspective) (string, error) {
	if !perspective.Valid() {
		return "", invalid(IntentCommentary, commentaryFailure, fmt.Sprintf("unknown perspective %q", perspective))
	}
	if strings.TrimSpace(text) == "" {
		return "", invalid(IntentCommentary, commentaryFailure, "chapter text is required")
	}
	return d.send(ctx, Request{
		Prompt:    ChapterCommentaryPrompt(text, reference, perspective),
		Type:      IntentCommentary,
		MaxTokens: ChapterCommentaryMaxTokens,
	}, commentaryFailure)
}

// SelectionCommentary asks for commentary on an excerpt of a chapter.
func (d *Dispatcher) SelectionCommentary(ctx context.Context, excerpt, reference string, perspective Perspective) (string, error) {
	if !perspective.Valid() {
		return "", invalid(IntentCommentary, commentaryFailure, fmt.Sprintf("unknown perspective %q", perspective))
	}
	excerpt = strings.TrimSpace(excerpt)
	if len([]rune(excerpt)) < MinSelectionLength {
		return "", invalid(IntentCommentary, commentaryFailure,
			fmt.Sprintf("selection must be at least %d characters", MinSelectionLength))
	}
	return d.send(ctx, Request{
		Prompt:    SelectionCommentaryPrompt(excerpt, reference, perspective),
		Type:      IntentCommentary,
		MaxTokens: SelectionCommentaryMaxTokens,
	}, commentaryFailure)
}

// ChatSession answers questions about one chapter. Each message re-sends the
// chapter as context; the transcript belongs to the caller.
type ChatSession interface {
	Reference() string
	SendMessage(ctx context.Context, message string) (string, error)
}

type scriptureChat struct {
	dispatcher *Dispatcher
	reference  string
	text       string
}

// NewChatSession binds a chat to reference and its chapter text.
func (d *Dispatcher) NewChatSession(reference, text string) ChatSession {
	return &scriptureChat{dispatcher: d, reference: reference, text: text}
}

func (s *scriptureChat) Reference() string { return s.reference }

func (s *scriptureChat) SendMessage(ctx context.Context, message string) (string, error) {
	if strings.TrimSpace(message) == "" {
		return "", invalid(IntentChat, chatFailure, "message is required")
	}
	return s.dispatcher.send(ctx, Request{
		Prompt:    ChatPrompt(s.reference, s.text, message),
		Type:      IntentChat,
		MaxTokens: ChatMaxTokens,
	}, chatFailure)
}
