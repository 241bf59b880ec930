package memory

import (
	"fmt"
	"strings"
	"time"

	"biblestudy/internal/services"
)

// MaxChatHistory is the number of chat messages kept per page.
const MaxChatHistory = 50

// Page identifies one of the independent memory records.
type Page string

const (
	PageExplorer Page = "explorer"
	PageStudy    Page = "study"
)

// Key is the persistent key of the record for p.
func (p Page) Key() string {
	switch p {
	case PageExplorer:
		return "biblestudy-explorer-memory"
	case PageStudy:
		return "biblestudy-study-memory"
	default:
		return ""
	}
}

// ParsePage accepts "explorer" or "study".
func ParsePage(raw string) (Page, error) {
	page := Page(strings.ToLower(strings.TrimSpace(raw)))
	if page.Key() == "" {
		return "", services.Wrap(services.ErrValidation, "memory", "parse page",
			fmt.Sprintf("unknown page %q; expected explorer or study", raw), nil)
	}
	return page, nil
}

// Role is the author of a chat message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAssistant
}

// ChatMessage is one persisted chat turn.
type ChatMessage struct {
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// ChapterAnalysis is the last summary or commentary shown for a chapter.
type ChapterAnalysis struct {
	Type        string `json:"type"`
	Text        string `json:"text"`
	Perspective string `json:"perspective,omitempty"`
	BookName    string `json:"bookName"`
	Chapter     int    `json:"chapter"`
	Translation string `json:"translation"`
}

// SelectionAnalysis is the last commentary on a text selection.
type SelectionAnalysis struct {
	Text         string `json:"text"`
	Perspective  string `json:"perspective"`
	SelectedText string `json:"selectedText"`
	BookName     string `json:"bookName"`
	Chapter      int    `json:"chapter"`
}

// ExplorerState is the chapter-browsing page's memory.
type ExplorerState struct {
	LastBook          string             `json:"lastBook,omitempty"`
	LastChapter       int                `json:"lastChapter,omitempty"`
	LastTranslation   string             `json:"lastTranslation,omitempty"`
	ChapterAnalysis   *ChapterAnalysis   `json:"chapterAnalysis,omitempty"`
	SelectionAnalysis *SelectionAnalysis `json:"selectionAnalysis,omitempty"`
	ChatHistory       []ChatMessage      `json:"chatHistory,omitempty"`
}

// StudyResponse is the last insight shown on the study page.
type StudyResponse struct {
	Response  string    `json:"response"`
	Sources   []string  `json:"sources,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// StudyState is the topical study page's memory.
type StudyState struct {
	LastQuery    string         `json:"lastQuery,omitempty"`
	LastResponse *StudyResponse `json:"lastResponse,omitempty"`
	ChatHistory  []ChatMessage  `json:"chatHistory,omitempty"`
}

// trimHistory keeps the newest MaxChatHistory messages.
func trimHistory(history []ChatMessage) []ChatMessage {
	if len(history) <= MaxChatHistory {
		return history
	}
	return append([]ChatMessage(nil), history[len(history)-MaxChatHistory:]...)
}
