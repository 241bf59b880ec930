package bible

import "strings"

// Translation is a Bible edition the remote chapter service understands.
type Translation struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

var translations = []Translation{
	{ID: "web", Name: "World English Bible"},
	{ID: "kjv", Name: "King James Version"},
	{ID: "bbe", Name: "Bible in Basic English"},
	{ID: "asv", Name: "American Standard Version"},
}

// DefaultTranslation is used when a request omits the translation.
const DefaultTranslation = "web"

// Translations lists the selectable translations.
func Translations() []Translation {
	out := make([]Translation, len(translations))
	copy(out, translations)
	return out
}

// LookupTranslation finds a translation by code, ignoring case.
func LookupTranslation(id string) (Translation, bool) {
	id = strings.ToLower(strings.TrimSpace(id))
	for _, t := range translations {
		if t.ID == id {
			return t, true
		}
	}
	return Translation{}, false
}
