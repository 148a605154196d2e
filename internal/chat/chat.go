package chat

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// DefaultTransport is used for every place visit until the server reports one.
const DefaultTransport = "walk"

// TripPlanReply is the assistant message content that accompanies a trip.
const TripPlanReply = "Here's your travel plan!"

type ChatRole string

const (
	ChatRoleUser      ChatRole = "user"
	ChatRoleAssistant ChatRole = "assistant"
)

// Message is one entry of a session's message log
type Message struct {
	ID        string    `json:"id"`
	Role      ChatRole  `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
	Trip      *TripPlan `json:"trip,omitempty"`
}

// NewMessage creates a new Message with a fresh id and the current time
func NewMessage(role ChatRole, content string) Message {
	return Message{
		ID:        uuid.NewString(),
		Role:      role,
		Content:   content,
		Timestamp: time.Now(),
	}
}

type TripPlan struct {
	Days []DayPlan `json:"days"`
}

type DayPlan struct {
	Date   string       `json:"date"`
	Places []PlaceVisit `json:"places"`
}

type PlaceVisit struct {
	Time      string  `json:"time"`
	Name      string  `json:"name"`
	Location  string  `json:"location,omitempty"`
	Transport string  `json:"transport"`
	Lat       float64 `json:"lat"`
	Lng       float64 `json:"lng"`
}

// MessageRequest is the body of POST /api/messages
type MessageRequest struct {
	SessionID string   `json:"session_id"`
	Role      ChatRole `json:"role"`
	Content   string   `json:"content"`
}

// HistoryMessage is a message as the server records it
type HistoryMessage struct {
	ID        string    `json:"id"`
	SessionID string    `json:"session_id"`
	Role      ChatRole  `json:"role"`
	Content   string    `json:"content"`
	CreatedAt ServerTime `json:"created_at"`
}

// naiveLayout is how the server writes timestamps stored without a zone.
const naiveLayout = "2006-01-02T15:04:05.999999"

// ServerTime is a server timestamp. Values without a zone offset are read as UTC.
type ServerTime struct {
	time.Time
}

func (t *ServerTime) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if raw == "" {
		t.Time = time.Time{}
		return nil
	}

	parsed, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		parsed, err = time.Parse(naiveLayout, raw)
		if err != nil {
			return fmt.Errorf("invalid server time %q: %w", raw, err)
		}
	}
	t.Time = parsed
	return nil
}
