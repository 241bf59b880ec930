// Package bible holds the value types shared by the chapter cache, the
// offline dataset loader and the HTTP surface: chapters, verses, the
// canonical 66-book catalog with its recognized abbreviations, and the
// selectable translations.
package bible
