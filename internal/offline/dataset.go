package offline

import (
	"errors"
	"fmt"
	"strings"

	"biblestudy/internal/bible"
	"biblestudy/internal/services"
)

var (
	// ErrBookNotFound marks names that match no book in the dataset.
	ErrBookNotFound = errors.New("book not found")
	// ErrOutOfRange marks chapter numbers outside the book.
	ErrOutOfRange = errors.New("chapter out of range")
	// ErrUnavailable marks translations outside the offline allow-list.
	ErrUnavailable = errors.New("translation not available offline")
)

// BookEntry is one book as stored in a dataset file.
type BookEntry struct {
	Abbrev   string     `json:"abbrev"`
	Chapters [][]string `json:"chapters"`
}

// Dataset is a parsed translation file.
type Dataset struct {
	Translation string
	Books       []BookEntry

	byAbbrev map[string]int
}

func newDataset(translation string, books []BookEntry) *Dataset {
	ds := &Dataset{
		Translation: translation,
		Books:       books,
		byAbbrev:    make(map[string]int, len(books)),
	}
	for i, b := range books {
		key := bible.NormalizeName(b.Abbrev)
		if _, exists := ds.byAbbrev[key]; !exists {
			ds.byAbbrev[key] = i
		}
	}
	return ds
}

// ResolveBook finds a book by abbreviation or canonical name. Matching
// ignores case and whitespace; a direct abbreviation match wins over the
// canonical alias table.
func (d *Dataset) ResolveBook(nameOrAbbrev string) (*BookEntry, error) {
	normalized := bible.NormalizeName(nameOrAbbrev)
	if normalized == "" {
		return nil, services.Wrap(services.ErrValidation, "offline", "resolve book", "book name is empty", nil)
	}
	if idx, ok := d.byAbbrev[normalized]; ok {
		return &d.Books[idx], nil
	}
	if book, ok := bible.LookupBook(normalized); ok {
		// Full datasets are in canonical order, and their abbreviations can
		// collide with the alias table ("jn" is Jonah in some editions).
		if len(d.Books) == len(bible.Books()) {
			return &d.Books[book.Index()], nil
		}
		for _, alias := range book.Aliases() {
			if idx, ok := d.byAbbrev[alias]; ok {
				return &d.Books[idx], nil
			}
		}
	}
	return nil, services.Wrap(services.ErrNotFound, "offline", "resolve book",
		fmt.Sprintf("book %q not found in offline %s bible", nameOrAbbrev, strings.ToUpper(d.Translation)), ErrBookNotFound)
}

// SliceChapter builds a chapter from a 1-based chapter number. book is the
// name the caller asked for and only affects display fields.
func SliceChapter(entry *BookEntry, book string, chapter int, translation string) (bible.Chapter, error) {
	if entry == nil {
		return bible.Chapter{}, services.Wrap(services.ErrNotFound, "offline", "slice chapter", "no book entry", ErrBookNotFound)
	}
	name := bible.DisplayName(book)
	if chapter < 1 || chapter > len(entry.Chapters) {
		return bible.Chapter{}, services.Wrap(services.ErrNotFound, "offline", "slice chapter",
			fmt.Sprintf("chapter %d not found in %s; valid chapters are 1-%d", chapter, name, len(entry.Chapters)), ErrOutOfRange)
	}

	texts := entry.Chapters[chapter-1]
	translation = strings.ToLower(strings.TrimSpace(translation))
	upper := strings.ToUpper(translation)
	verses := make([]bible.Verse, len(texts))
	for i, text := range texts {
		verses[i] = bible.Verse{
			BookID:   entry.Abbrev,
			BookName: name,
			Chapter:  chapter,
			Verse:    i + 1,
			Text:     text,
		}
	}
	return bible.Chapter{
		Reference:       fmt.Sprintf("%s %d", name, chapter),
		Verses:          verses,
		Text:            strings.Join(texts, " "),
		TranslationID:   translation,
		TranslationName: upper,
		TranslationNote: upper + " - Offline Version",
	}, nil
}

var allowList = []string{"kjv", "web"}

// IsAvailableOffline reports whether translation has a bundled dataset.
func IsAvailableOffline(translation string) bool {
	translation = strings.ToLower(strings.TrimSpace(translation))
	for _, id := range allowList {
		if id == translation {
			return true
		}
	}
	return false
}

// AvailableTranslations returns the offline allow-list.
func AvailableTranslations() []string {
	out := make([]string, len(allowList))
	copy(out, allowList)
	return out
}

// FileName returns the dataset file name for a translation.
func FileName(translation string) string {
	return strings.ToLower(strings.TrimSpace(translation)) + ".json"
}
