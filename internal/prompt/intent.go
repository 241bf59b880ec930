package prompt

import (
	"fmt"
	"strings"

	"biblestudy/internal/services"
)

// Intent classifies a completion request. The gateway selects the system
// role and sampling temperature from it.
type Intent string

const (
	IntentTheologicalInsight Intent = "theological_insight"
	IntentChapterSummary     Intent = "chapter_summary"
	IntentCommentary         Intent = "commentary"
	IntentChat               Intent = "chat"
)

var intents = []Intent{IntentTheologicalInsight, IntentChapterSummary, IntentCommentary, IntentChat}

// Intents lists every valid intent in canonical order.
func Intents() []Intent {
	out := make([]Intent, len(intents))
	copy(out, intents)
	return out
}

// IntentNames renders the valid intents for error messages.
func IntentNames() string {
	names := make([]string, len(intents))
	for i, intent := range intents {
		names[i] = string(intent)
	}
	return strings.Join(names, ", ")
}

// Valid reports whether i is one of the closed set.
func (i Intent) Valid() bool {
	switch i {
	case IntentTheologicalInsight, IntentChapterSummary, IntentCommentary, IntentChat:
		return true
	default:
		return false
	}
}

func (i Intent) String() string { return string(i) }

// ParseIntent accepts an intent name exactly as it travels on the wire.
func ParseIntent(raw string) (Intent, error) {
	intent := Intent(strings.TrimSpace(raw))
	if !intent.Valid() {
		return "", services.Wrap(services.ErrValidation, "prompt", "parse intent",
			fmt.Sprintf("unknown type %q; expected one of: %s", raw, IntentNames()), nil)
	}
	return intent, nil
}
