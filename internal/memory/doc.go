// Package memory keeps long-term study state across sessions: the explorer
// page (last chapter, last analysis, chapter chat) and the study page (last
// question and insight, topical chat). Each page is one JSON record in the
// key-value store and keeps at most MaxChatHistory chat messages.
package memory
