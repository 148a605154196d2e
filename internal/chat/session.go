package chat

import (
	"time"

	"github.com/google/uuid"
)

const (
	// DefaultTitle is shown until the first user message names the session.
	DefaultTitle   = "New conversation"
	maxTitleLength = 30
	titleEllipsis  = "..."
)

// Session represents a chat session
type Session struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	LastUpdated time.Time `json:"lastUpdated"`
}

// NewSession creates a new Session instance
func NewSession(title string) *Session {
	if title == "" {
		title = DefaultTitle
	}
	return &Session{
		ID:          uuid.NewString(),
		Title:       title,
		LastUpdated: time.Now(),
	}
}

// TitleFromContent derives a session title from a user message.
func TitleFromContent(content string) string {
	runes := []rune(content)
	if len(runes) <= maxTitleLength {
		return content
	}
	return string(runes[:maxTitleLength]) + titleEllipsis
}

// TitleFromMessages returns the title derived from the first user message,
// or an empty string when there is none.
func TitleFromMessages(messages []Message) string {
	for _, m := range messages {
		if m.Role == ChatRoleUser {
			return TitleFromContent(m.Content)
		}
	}
	return ""
}
