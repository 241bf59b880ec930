// Package bibleapi is the client for the remote chapter text service used as
// the last tier of chapter resolution.
package bibleapi
