// Package offline loads bundled translation datasets and slices chapters out
// of them.
//
// A dataset is a JSON array of {abbrev, chapters} objects where chapters is
// an array of arrays of verse text. Each translation is parsed once per
// Loader and kept for the process lifetime. Only translations on the
// allow-list (kjv, web) are ever read.
package offline
