// Package conversation runs chat turns against the trip planner and keeps the
// active session's message log in sync with the session store.
//
// Only one turn is live at a time. Starting a turn, or changing the active
// session, cancels the previous turn; events that the stale turn reads
// afterwards are dropped and never reach the message log or the UI.
package conversation

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"slices"
	"strings"
	"sync"

	"github.com/gennadis/tripchat/internal/chat"
	"github.com/gennadis/tripchat/internal/client"
	"github.com/gennadis/tripchat/internal/event"
	"github.com/gennadis/tripchat/internal/reveal"
	"github.com/gennadis/tripchat/internal/session"
)

// ErrSuperseded is returned by Send when a newer turn or a session change
// replaced the turn before it finished.
var ErrSuperseded = errors.New("turn superseded")

// UI receives the visible effects of a turn. Calls for one turn are made
// from the goroutine running Send.
type UI interface {
	Thinking(active bool)
	Thought(text string)
	Trip(plan chat.TripPlan)
	Failure(err error)
	Messages(messages []chat.Message)
}

type ChatSession struct {
	client *client.Client
	store  *session.Store
	reveal *reveal.Scheduler

	mu        sync.Mutex
	sessionID string
	messages  []chat.Message
	turn      uint64
	cancel    context.CancelFunc
	// turn that shows the thinking indicator; 0 when it is off
	thinking uint64
}

// New creates a ChatSession on the store's active session, creating one if needed.
func New(c *client.Client, store *session.Store, scheduler *reveal.Scheduler) (*ChatSession, error) {
	id, err := store.EnsureSessionID()
	if err != nil {
		return nil, err
	}
	return &ChatSession{
		client:    c,
		store:     store,
		reveal:    scheduler,
		sessionID: id,
		messages:  store.LoadMessages(id),
	}, nil
}

func (cs *ChatSession) SessionID() string {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	return cs.sessionID
}

func (cs *ChatSession) Messages() []chat.Message {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	return slices.Clone(cs.messages)
}

func (cs *ChatSession) Sessions() []chat.Session {
	return cs.store.ListSessions()
}

// Send runs one turn: it records the user message, streams the reply and
// records the trip plan if one arrives. It returns nil when the stream
// completes, ErrSuperseded when the turn was replaced, and the failure
// otherwise. Server and parse errors are returned as *event.ErrorEvent.
func (cs *ChatSession) Send(ctx context.Context, content string, ui UI) error {
	if strings.TrimSpace(content) == "" {
		return nil
	}

	cs.mu.Lock()
	turn := cs.beginLocked()
	cs.thinking = turn
	ctx, cancel := context.WithCancel(ctx)
	cs.cancel = cancel
	sessionID := cs.sessionID
	cs.messages = append(cs.messages, chat.NewMessage(chat.ChatRoleUser, content))
	msgs := cs.persistLocked()
	cs.mu.Unlock()

	defer cs.finish(turn, cancel, ui)

	ui.Messages(msgs)
	ui.Thinking(true)

	stream, err := cs.client.PostMessage(ctx, sessionID, content)
	if err != nil {
		return cs.fail(turn, ui, err)
	}
	defer stream.Close()

	for {
		ev, err := stream.Next()
		if errors.Is(err, io.EOF) {
			if !cs.current(turn) {
				return ErrSuperseded
			}
			return nil
		}
		if err != nil {
			return cs.fail(turn, ui, err)
		}

		switch ev := ev.(type) {
		case *event.ThoughtDelta:
			if !cs.current(turn) {
				return ErrSuperseded
			}
			err := cs.reveal.Reveal(ctx, ev.Text, func(prefix string) {
				if cs.current(turn) {
					ui.Thought(prefix)
				}
			})
			if err != nil {
				return cs.fail(turn, ui, err)
			}

		case *event.TripResult:
			msgs, ok := cs.appendReply(turn, ev.Trip)
			if !ok {
				return ErrSuperseded
			}
			ui.Trip(ev.Trip)
			ui.Thought("")
			ui.Messages(msgs)

		case *event.ErrorEvent:
			return cs.fail(turn, ui, ev)
		}
	}
}

// Cancel aborts the live turn, if any.
func (cs *ChatSession) Cancel() {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	if cs.cancel != nil {
		cs.cancel()
	}
}

// NewChat starts a fresh session and makes it active.
func (cs *ChatSession) NewChat() (string, error) {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	cs.beginLocked()

	id, err := cs.store.NewSession()
	if err != nil {
		return "", err
	}
	cs.sessionID = id
	cs.messages = []chat.Message{}
	return id, nil
}

// Switch makes id the active session and loads its message log.
func (cs *ChatSession) Switch(id string) error {
	if id == "" {
		return session.ErrEmptySessionID
	}

	cs.mu.Lock()
	defer cs.mu.Unlock()
	cs.beginLocked()

	id, err := cs.store.SwitchSession(id)
	if err != nil {
		return err
	}
	cs.sessionID = id
	cs.messages = cs.store.LoadMessages(id)
	return nil
}

// Delete removes a session. Deleting the active session moves to a new one.
func (cs *ChatSession) Delete(id string) error {
	if id == "" {
		return session.ErrEmptySessionID
	}

	cs.mu.Lock()
	defer cs.mu.Unlock()

	active := id == cs.sessionID
	if active {
		cs.beginLocked()
	}
	if err := cs.store.DeleteSession(id); err != nil {
		return err
	}
	if !active {
		return nil
	}

	newID, err := cs.store.EnsureSessionID()
	if err != nil {
		return err
	}
	cs.sessionID = newID
	cs.messages = cs.store.LoadMessages(newID)
	return nil
}

// beginLocked cancels the live turn and returns the number of the next one.
func (cs *ChatSession) beginLocked() uint64 {
	if cs.cancel != nil {
		cs.cancel()
		cs.cancel = nil
	}
	cs.turn++
	return cs.turn
}

func (cs *ChatSession) current(turn uint64) bool {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	return cs.turn == turn
}

func (cs *ChatSession) appendReply(turn uint64, trip chat.TripPlan) ([]chat.Message, bool) {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	if cs.turn != turn {
		return nil, false
	}

	reply := chat.NewMessage(chat.ChatRoleAssistant, chat.TripPlanReply)
	reply.Trip = &trip
	cs.messages = append(cs.messages, reply)
	return cs.persistLocked(), true
}

// persistLocked writes the message log and the derived title. Write
// failures are logged; the in-memory log stays authoritative for the turn.
func (cs *ChatSession) persistLocked() []chat.Message {
	if err := cs.store.SaveMessages(cs.sessionID, cs.messages); err != nil {
		slog.Error("Failed to save messages", "session_id", cs.sessionID, "error", err)
	}
	if title := chat.TitleFromMessages(cs.messages); title != "" {
		if err := cs.store.SaveSession(cs.sessionID, title); err != nil {
			slog.Error("Failed to save session", "session_id", cs.sessionID, "error", err)
		}
	}
	return slices.Clone(cs.messages)
}

func (cs *ChatSession) fail(turn uint64, ui UI, err error) error {
	if !cs.current(turn) {
		slog.Debug("stale turn stopped",
			slog.Uint64("turn", turn),
			slog.String("reason", err.Error()),
		)
		return ErrSuperseded
	}
	slog.Error("Chat turn failed", "error", err)
	ui.Failure(err)
	return err
}

func (cs *ChatSession) finish(turn uint64, cancel context.CancelFunc, ui UI) {
	cancel()

	cs.mu.Lock()
	if cs.turn == turn {
		cs.cancel = nil
	}
	// a newer Send takes the indicator over; a session change leaves it to us
	owner := cs.thinking == turn
	if owner {
		cs.thinking = 0
	}
	cs.mu.Unlock()

	if owner {
		ui.Thinking(false)
	}
}
