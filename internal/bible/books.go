package bible

import (
	"sort"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

type Testament string

const (
	OldTestament Testament = "OT"
	NewTestament Testament = "NT"
)

// Book is a canonical book with the abbreviations recognized for it.
type Book struct {
	Name      string    `json:"name"`
	Testament Testament `json:"testament"`
	Abbrevs   []string  `json:"abbrevs"`
}

// Index returns the zero-based canonical position of the book.
func (b Book) Index() int {
	if idx, ok := aliases[b.Key()]; ok {
		return idx
	}
	return -1
}

// Key returns the normalized canonical name, e.g. "songofsolomon".
func (b Book) Key() string {
	return NormalizeName(b.Name)
}

var catalog = []Book{
	{"Genesis", OldTestament, []string{"gn", "gen"}},
	{"Exodus", OldTestament, []string{"ex", "exo"}},
	{"Leviticus", OldTestament, []string{"lv", "lev"}},
	{"Numbers", OldTestament, []string{"nu", "num"}},
	{"Deuteronomy", OldTestament, []string{"dt", "deu"}},
	{"Joshua", OldTestament, []string{"jos", "josh"}},
	{"Judges", OldTestament, []string{"jdg", "judg"}},
	{"Ruth", OldTestament, []string{"ru"}},
	{"1 Samuel", OldTestament, []string{"1sa", "1sam"}},
	{"2 Samuel", OldTestament, []string{"2sa", "2sam"}},
	{"1 Kings", OldTestament, []string{"1ki", "1kgs"}},
	{"2 Kings", OldTestament, []string{"2ki", "2kgs"}},
	{"1 Chronicles", OldTestament, []string{"1ch", "1chr"}},
	{"2 Chronicles", OldTestament, []string{"2ch", "2chr"}},
	{"Ezra", OldTestament, []string{"ezr"}},
	{"Nehemiah", OldTestament, []string{"ne", "neh"}},
	{"Esther", OldTestament, []string{"es", "est"}},
	{"Job", OldTestament, []string{"job"}},
	{"Psalms", OldTestament, []string{"ps", "psa"}},
	{"Proverbs", OldTestament, []string{"pr", "pro"}},
	{"Ecclesiastes", OldTestament, []string{"ec", "ecc"}},
	{"Song of Solomon", OldTestament, []string{"ss", "song"}},
	{"Isaiah", OldTestament, []string{"is", "isa"}},
	{"Jeremiah", OldTestament, []string{"je", "jer"}},
	{"Lamentations", OldTestament, []string{"la", "lam"}},
	{"Ezekiel", OldTestament, []string{"eze", "ezek"}},
	{"Daniel", OldTestament, []string{"da", "dan"}},
	{"Hosea", OldTestament, []string{"ho", "hos"}},
	{"Joel", OldTestament, []string{"joe"}},
	{"Amos", OldTestament, []string{"am"}},
	{"Obadiah", OldTestament, []string{"ob", "oba"}},
	{"Jonah", OldTestament, []string{"jon"}},
	{"Micah", OldTestament, []string{"mic"}},
	{"Nahum", OldTestament, []string{"na", "nah"}},
	{"Habakkuk", OldTestament, []string{"hab"}},
	{"Zephaniah", OldTestament, []string{"zep"}},
	{"Haggai", OldTestament, []string{"hag"}},
	{"Zechariah", OldTestament, []string{"zec", "zech"}},
	{"Malachi", OldTestament, []string{"mal"}},
	{"Matthew", NewTestament, []string{"mt", "mat"}},
	{"Mark", NewTestament, []string{"mr", "mrk"}},
	{"Luke", NewTestament, []string{"lu", "luk"}},
	{"John", NewTestament, []string{"jn", "joh"}},
	{"Acts", NewTestament, []string{"ac", "act"}},
	{"Romans", NewTestament, []string{"ro", "rom"}},
	{"1 Corinthians", NewTestament, []string{"1co", "1cor"}},
	{"2 Corinthians", NewTestament, []string{"2co", "2cor"}},
	{"Galatians", NewTestament, []string{"ga", "gal"}},
	{"Ephesians", NewTestament, []string{"ep", "eph"}},
	{"Philippians", NewTestament, []string{"ph", "php"}},
	{"Colossians", NewTestament, []string{"col"}},
	{"1 Thessalonians", NewTestament, []string{"1th", "1thes"}},
	{"2 Thessalonians", NewTestament, []string{"2th", "2thes"}},
	{"1 Timothy", NewTestament, []string{"1ti", "1tim"}},
	{"2 Timothy", NewTestament, []string{"2ti", "2tim"}},
	{"Titus", NewTestament, []string{"tit"}},
	{"Philemon", NewTestament, []string{"phm", "phlm"}},
	{"Hebrews", NewTestament, []string{"he", "heb"}},
	{"James", NewTestament, []string{"jas"}},
	{"1 Peter", NewTestament, []string{"1pe", "1pet"}},
	{"2 Peter", NewTestament, []string{"2pe", "2pet"}},
	{"1 John", NewTestament, []string{"1jn"}},
	{"2 John", NewTestament, []string{"2jn"}},
	{"3 John", NewTestament, []string{"3jn"}},
	{"Jude", NewTestament, []string{"jud"}},
	{"Revelation", NewTestament, []string{"re", "rev"}},
}

// aliases maps every normalized name and abbreviation to its catalog index.
var aliases = func() map[string]int {
	out := make(map[string]int, len(catalog)*3)
	for i, b := range catalog {
		out[b.Key()] = i
		for _, a := range b.Abbrevs {
			out[a] = i
		}
	}
	return out
}()

// NormalizeName lowercases s and removes all whitespace.
func NormalizeName(s string) string {
	var sb strings.Builder
	sb.Grow(len(s))
	for _, r := range s {
		if unicode.IsSpace(r) {
			continue
		}
		sb.WriteRune(unicode.ToLower(r))
	}
	return sb.String()
}

// LookupBook resolves a canonical name or abbreviation, ignoring case and
// whitespace.
func LookupBook(nameOrAbbrev string) (Book, bool) {
	idx, ok := aliases[NormalizeName(nameOrAbbrev)]
	if !ok {
		return Book{}, false
	}
	return catalog[idx], true
}

// Aliases returns the normalized canonical name followed by its abbreviations.
func (b Book) Aliases() []string {
	out := make([]string, 0, len(b.Abbrevs)+1)
	out = append(out, b.Key())
	return append(out, b.Abbrevs...)
}

// Books returns the catalog in canonical order.
func Books() []Book {
	out := make([]Book, len(catalog))
	copy(out, catalog)
	return out
}

// BooksAlphabetical returns the catalog sorted by display name.
func BooksAlphabetical() []Book {
	out := Books()
	sort.SliceStable(out, func(i, j int) bool {
		return strings.ToLower(out[i].Name) < strings.ToLower(out[j].Name)
	})
	return out
}

var titleCaser = cases.Title(language.English)

// DisplayName returns the catalog name for known books and a title-cased
// rendering of the input otherwise.
func DisplayName(nameOrAbbrev string) string {
	if book, ok := LookupBook(nameOrAbbrev); ok {
		return book.Name
	}
	return titleCaser.String(strings.Join(strings.Fields(nameOrAbbrev), " "))
}
