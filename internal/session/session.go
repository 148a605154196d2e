// Package session keeps the local registry of chat sessions and their
// message logs on top of a key-value backend.
//
// Persisted values are read leniently: a missing or malformed entry is
// treated as absent and logged, never returned as an error.
package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/gennadis/tripchat/internal/chat"
)

const (
	activeKey         = "session_id"
	sessionsKey       = "sessions"
	messagesKeyPrefix = "session_messages_"
)

// ErrEmptySessionID is returned when an operation is given an empty session id.
var ErrEmptySessionID = errors.New("empty session id")

// KV is the persistence backend used by Store.
type KV interface {
	Get(key string) (string, bool, error)
	Set(key, value string) error
	Delete(key string) error
	List(prefix string) ([]string, error)
}

// Store manages sessions. It expects a single writer.
type Store struct {
	kv  KV
	now func() time.Time
}

// NewStore creates a Store over kv
func NewStore(kv KV) *Store {
	return &Store{kv: kv, now: time.Now}
}

// ActiveSessionID returns the active session id, if one is set
func (s *Store) ActiveSessionID() (string, bool) {
	id, ok, err := s.kv.Get(activeKey)
	if err != nil {
		slog.Warn("Failed to read active session id", "error", err)
		return "", false
	}
	return id, ok && id != ""
}

// EnsureSessionID returns the active session id, creating and registering a
// new session when none is active.
func (s *Store) EnsureSessionID() (string, error) {
	if id, ok := s.ActiveSessionID(); ok {
		return id, nil
	}

	sess := chat.NewSession(chat.DefaultTitle)
	sess.LastUpdated = s.now()
	if err := s.kv.Set(activeKey, sess.ID); err != nil {
		return "", fmt.Errorf("failed to set active session: %w", err)
	}

	sessions := append([]chat.Session{*sess}, s.ListSessions()...)
	if err := s.writeSessions(sessions); err != nil {
		return "", err
	}

	slog.Debug("session created",
		slog.String("id", sess.ID),
		slog.Time("timestamp", sess.LastUpdated),
	)
	return sess.ID, nil
}

// NewSession drops the active session pointer and creates a fresh session.
func (s *Store) NewSession() (string, error) {
	if err := s.kv.Delete(activeKey); err != nil {
		return "", fmt.Errorf("failed to clear active session: %w", err)
	}
	return s.EnsureSessionID()
}

// ListSessions returns the registry in stored order
func (s *Store) ListSessions() []chat.Session {
	raw, ok, err := s.kv.Get(sessionsKey)
	if err != nil {
		slog.Warn("Failed to read sessions", "error", err)
		return []chat.Session{}
	}
	if !ok {
		return []chat.Session{}
	}

	var sessions []chat.Session
	if err := json.Unmarshal([]byte(raw), &sessions); err != nil {
		slog.Warn("Failed to parse sessions", "error", err)
		return []chat.Session{}
	}
	if sessions == nil {
		sessions = []chat.Session{}
	}
	return sessions
}

// SaveSession updates the session's title and timestamp, inserting it at the
// front of the registry when it is not there yet. An empty title keeps the
// current one.
func (s *Store) SaveSession(id, title string) error {
	if id == "" {
		return ErrEmptySessionID
	}
	sessions := s.ListSessions()
	now := s.now()

	i := slices.IndexFunc(sessions, func(sess chat.Session) bool { return sess.ID == id })
	if i >= 0 {
		if title != "" {
			sessions[i].Title = title
		}
		sessions[i].LastUpdated = now
	} else {
		if title == "" {
			title = chat.DefaultTitle
		}
		sessions = append([]chat.Session{{ID: id, Title: title, LastUpdated: now}}, sessions...)
	}

	if err := s.writeSessions(sessions); err != nil {
		return err
	}

	slog.Debug("session saved",
		slog.String("id", id),
		slog.String("title", title),
		slog.Time("timestamp", now),
	)
	return nil
}

// SwitchSession makes id the active session. It refreshes the session's
// timestamp when it is registered but never registers it.
func (s *Store) SwitchSession(id string) (string, error) {
	if id == "" {
		return "", ErrEmptySessionID
	}
	if err := s.kv.Set(activeKey, id); err != nil {
		return "", fmt.Errorf("failed to set active session: %w", err)
	}

	sessions := s.ListSessions()
	i := slices.IndexFunc(sessions, func(sess chat.Session) bool { return sess.ID == id })
	if i < 0 {
		return id, nil
	}
	sessions[i].LastUpdated = s.now()
	if err := s.writeSessions(sessions); err != nil {
		return "", err
	}
	return id, nil
}

// DeleteSession removes the session and its message log. Unknown ids are ignored.
func (s *Store) DeleteSession(id string) error {
	if id == "" {
		return ErrEmptySessionID
	}
	sessions := s.ListSessions()
	kept := slices.DeleteFunc(slices.Clone(sessions), func(sess chat.Session) bool { return sess.ID == id })
	if len(kept) != len(sessions) {
		if err := s.writeSessions(kept); err != nil {
			return err
		}
	}

	if err := s.kv.Delete(messagesKey(id)); err != nil {
		return fmt.Errorf("failed to delete messages for session %s: %w", id, err)
	}

	if active, ok := s.ActiveSessionID(); ok && active == id {
		if err := s.kv.Delete(activeKey); err != nil {
			return fmt.Errorf("failed to clear active session: %w", err)
		}
	}

	slog.Debug("session deleted",
		slog.String("id", id),
	)
	return nil
}

// LoadMessages returns the message log of a session, or an empty log when
// none is stored or it cannot be parsed.
func (s *Store) LoadMessages(id string) []chat.Message {
	raw, ok, err := s.kv.Get(messagesKey(id))
	if err != nil {
		slog.Warn("Failed to read session messages", "session_id", id, "error", err)
		return []chat.Message{}
	}
	if !ok {
		return []chat.Message{}
	}

	var messages []chat.Message
	if err := json.Unmarshal([]byte(raw), &messages); err != nil {
		slog.Warn("Failed to parse session messages", "session_id", id, "error", err)
		return []chat.Message{}
	}
	if messages == nil {
		messages = []chat.Message{}
	}
	return messages
}

// SaveMessages replaces the message log of a session
func (s *Store) SaveMessages(id string, messages []chat.Message) error {
	if id == "" {
		return ErrEmptySessionID
	}
	data, err := json.Marshal(messages)
	if err != nil {
		return fmt.Errorf("failed to encode messages for session %s: %w", id, err)
	}
	if err := s.kv.Set(messagesKey(id), string(data)); err != nil {
		return fmt.Errorf("failed to write messages for session %s: %w", id, err)
	}

	slog.Debug("session messages saved",
		slog.String("session_id", id),
		slog.Int("count", len(messages)),
	)
	return nil
}

// Prune deletes message logs that belong to no registered session and
// returns the ids it removed.
func (s *Store) Prune() ([]string, error) {
	keys, err := s.kv.List(messagesKeyPrefix)
	if err != nil {
		return nil, fmt.Errorf("failed to list message logs: %w", err)
	}

	known := make(map[string]bool)
	for _, sess := range s.ListSessions() {
		known[sess.ID] = true
	}

	var pruned []string
	for _, key := range keys {
		id := strings.TrimPrefix(key, messagesKeyPrefix)
		if known[id] {
			continue
		}
		if err := s.kv.Delete(key); err != nil {
			return pruned, fmt.Errorf("failed to delete messages for session %s: %w", id, err)
		}
		pruned = append(pruned, id)
	}
	return pruned, nil
}

func (s *Store) writeSessions(sessions []chat.Session) error {
	data, err := json.Marshal(sessions)
	if err != nil {
		return fmt.Errorf("failed to encode sessions: %w", err)
	}
	if err := s.kv.Set(sessionsKey, string(data)); err != nil {
		return fmt.Errorf("failed to write sessions: %w", err)
	}
	return nil
}

func messagesKey(id string) string {
	return messagesKeyPrefix + id
}
