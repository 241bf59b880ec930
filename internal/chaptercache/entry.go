package chaptercache

import (
	"encoding/json"
	"fmt"
	"time"

	"biblestudy/internal/bible"
)

// Entry is a cached chapter and its creation instant. Timestamp is stored as
// Unix milliseconds.
type Entry struct {
	Data      bible.Chapter `json:"data"`
	Timestamp int64         `json:"timestamp"`
}

func newEntry(ch bible.Chapter, now time.Time) Entry {
	return Entry{Data: ch.Clone(), Timestamp: now.UnixMilli()}
}

// Created returns the creation instant.
func (e Entry) Created() time.Time {
	return time.UnixMilli(e.Timestamp)
}

// Expired reports whether the entry is at least ttl old at now.
func (e Entry) Expired(now time.Time, ttl time.Duration) bool {
	return now.Sub(e.Created()) >= ttl
}

func encodeEntry(e Entry) (string, error) {
	data, err := json.Marshal(e)
	if err != nil {
		return "", fmt.Errorf("encode cache entry: %w", err)
	}
	return string(data), nil
}

func decodeEntry(raw string) (Entry, error) {
	var e Entry
	if err := json.Unmarshal([]byte(raw), &e); err != nil {
		return Entry{}, fmt.Errorf("decode cache entry: %w", err)
	}
	if e.Timestamp <= 0 {
		return Entry{}, fmt.Errorf("decode cache entry: missing timestamp")
	}
	return e, nil
}
