package bible

import (
	"regexp"
	"strings"
)

// Verse is a single numbered verse within a chapter.
type Verse struct {
	BookID   string `json:"book_id,omitempty"`
	BookName string `json:"book_name"`
	Chapter  int    `json:"chapter"`
	Verse    int    `json:"verse"`
	Text     string `json:"text"`
}

// Chapter is a resolved chapter of text. Values are treated as read-only once
// returned from the cache.
type Chapter struct {
	Reference       string  `json:"reference"`
	Verses          []Verse `json:"verses"`
	Text            string  `json:"text"`
	TranslationID   string  `json:"translation_id"`
	TranslationName string  `json:"translation_name"`
	TranslationNote string  `json:"translation_note,omitempty"`
}

var footnoteMarker = regexp.MustCompile(`\[\d+\]`)

// CleanVerseText strips bracketed footnote markers such as "[12]" and trims
// surrounding whitespace.
func CleanVerseText(text string) string {
	return strings.TrimSpace(footnoteMarker.ReplaceAllString(text, ""))
}

// AnalysisText concatenates the cleaned verse texts with single spaces. It is
// the text handed to summaries, commentary and chat.
func (c Chapter) AnalysisText() string {
	if len(c.Verses) == 0 {
		return CleanVerseText(c.Text)
	}
	parts := make([]string, 0, len(c.Verses))
	for _, v := range c.Verses {
		if cleaned := CleanVerseText(v.Text); cleaned != "" {
			parts = append(parts, cleaned)
		}
	}
	return strings.Join(parts, " ")
}

// Clone returns a deep copy so callers cannot mutate cached verses.
func (c Chapter) Clone() Chapter {
	out := c
	if c.Verses != nil {
		out.Verses = make([]Verse, len(c.Verses))
		copy(out.Verses, c.Verses)
	}
	return out
}
