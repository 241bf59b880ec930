package testsupport

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"testing/fstest"
)

type fixtureBook struct {
	Abbrev   string     `json:"abbrev"`
	Chapters [][]string `json:"chapters"`
}

// Fixture dataset shape: Genesis has 50 chapters with 31 verses in
// chapter 1, Exodus has 40 chapters and John has 21. John 11:35 carries a
// footnote marker.
const (
	GenesisChapters  = 50
	GenesisOneVerses = 31
	ExodusChapters   = 40
	JohnChapters     = 21
)

// DatasetJSON renders a small offline dataset for translation. Verse text is
// prefixed with the translation code so editions can be told apart.
func DatasetJSON(translation string) []byte {
	books := []fixtureBook{
		buildBook(translation, "gn", "Genesis", GenesisChapters, func(ch int) int {
			if ch == 1 {
				return GenesisOneVerses
			}
			return 3
		}),
		buildBook(translation, "ex", "Exodus", ExodusChapters, func(int) int { return 2 }),
		buildBook(translation, "jn", "John", JohnChapters, func(ch int) int {
			if ch == 11 {
				return 35
			}
			return 2
		}),
	}
	books[2].Chapters[10][34] = fmt.Sprintf("%s Jesus wept.[1]", translation)
	data, err := json.Marshal(books)
	if err != nil {
		panic(err)
	}
	return data
}

func buildBook(translation, abbrev, name string, chapters int, verses func(int) int) fixtureBook {
	book := fixtureBook{Abbrev: abbrev, Chapters: make([][]string, chapters)}
	for ch := 1; ch <= chapters; ch++ {
		n := verses(ch)
		texts := make([]string, n)
		for v := 1; v <= n; v++ {
			texts[v-1] = VerseText(translation, name, ch, v)
		}
		book.Chapters[ch-1] = texts
	}
	return book
}

// VerseText returns the fixture text for a verse.
func VerseText(translation, book string, chapter, verse int) string {
	return fmt.Sprintf("%s %s %d:%d", translation, book, chapter, verse)
}

// DatasetFS returns an in-memory dataset directory for translations
// (kjv and web when none are given).
func DatasetFS(translations ...string) fstest.MapFS {
	if len(translations) == 0 {
		translations = []string{"kjv", "web"}
	}
	fsys := fstest.MapFS{}
	for _, tr := range translations {
		fsys[tr+".json"] = &fstest.MapFile{Data: DatasetJSON(tr)}
	}
	return fsys
}

// WriteDatasets writes fixture datasets into dir.
func WriteDatasets(t testing.TB, dir string, translations ...string) {
	t.Helper()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir %s: %v", dir, err)
	}
	for name, file := range DatasetFS(translations...) {
		if err := os.WriteFile(filepath.Join(dir, name), file.Data, 0o644); err != nil {
			t.Fatalf("write dataset %s: %v", name, err)
		}
	}
}
