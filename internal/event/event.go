// Package event classifies decoded stream payloads into typed events.
//
// A payload is probed for the fields thought, trip and error, in that order.
// Every field that is present yields its own event, so one payload can produce
// up to three events. A payload with none of them is inert.
package event

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/gennadis/tripchat/internal/chat"
	"github.com/tidwall/gjson"
)

// ErrParse marks an ErrorEvent produced because the payload was not valid JSON.
var ErrParse = errors.New("failed to parse server response")

// Event is one of *ThoughtDelta, *TripResult or *ErrorEvent.
type Event interface {
	isEvent()
}

// ThoughtDelta carries the full current text of the assistant's reasoning.
type ThoughtDelta struct {
	Text string
}

// TripResult carries the finalized trip plan for the turn.
type TripResult struct {
	Trip chat.TripPlan
}

// ErrorEvent ends the current turn. Err is set when the event was raised
// client side (a parse failure); it is nil for errors reported by the server.
type ErrorEvent struct {
	Message string
	Raw     string
	Err     error
}

func (*ThoughtDelta) isEvent() {}
func (*TripResult) isEvent()   {}
func (*ErrorEvent) isEvent()   {}

func (e *ErrorEvent) Error() string {
	return e.Message
}

func (e *ErrorEvent) Unwrap() error {
	return e.Err
}

// Interpret returns the events carried by a single frame payload.
// It never fails: a malformed payload becomes an ErrorEvent wrapping ErrParse.
func Interpret(payload string) []Event {
	if !gjson.Valid(payload) {
		return []Event{parseError(payload)}
	}

	var events []Event
	doc := gjson.Parse(payload)

	if thought := doc.Get("thought"); thought.Type == gjson.String && thought.Str != "" {
		events = append(events, &ThoughtDelta{Text: thought.Str})
	}

	if trip := doc.Get("trip"); truthy(trip) {
		events = append(events, &TripResult{Trip: normalizeTrip(trip)})
	}

	if msg := doc.Get("error"); truthy(msg) {
		text := msg.Raw
		if msg.Type == gjson.String {
			text = msg.Str
		}
		events = append(events, &ErrorEvent{Message: text, Raw: payload})
	}

	return events
}

// parseError builds the client-side error event for a malformed payload.
// encoding/json is used only to recover a readable reason.
func parseError(payload string) *ErrorEvent {
	var probe any
	reason := "invalid JSON"
	if err := json.Unmarshal([]byte(payload), &probe); err != nil {
		reason = err.Error()
	}

	err := fmt.Errorf("%w: %s", ErrParse, reason)
	return &ErrorEvent{
		Message: err.Error(),
		Raw:     payload,
		Err:     err,
	}
}

// truthy reports whether a field is present with a value other than
// null, false, 0 or "".
func truthy(r gjson.Result) bool {
	switch r.Type {
	case gjson.Null:
		return false
	case gjson.False:
		return false
	case gjson.String:
		return r.Str != ""
	case gjson.Number:
		return r.Num != 0
	default:
		return r.Exists()
	}
}
