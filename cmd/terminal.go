package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/gennadis/tripchat/internal/chat"
)

var (
	userPrompt   = color.New(color.FgGreen, color.Bold)
	thoughtColor = color.New(color.Faint)
	tripColor    = color.New(color.FgCyan)
	errorColor   = color.New(color.FgRed)
	infoColor    = color.New(color.FgYellow)
)

// terminalUI renders a conversation on a line-oriented terminal
type terminalUI struct {
	out     io.Writer
	thought string
}

func newTerminalUI(out io.Writer) *terminalUI {
	return &terminalUI{out: out}
}

func (t *terminalUI) Prompt() {
	userPrompt.Fprint(t.out, "you> ")
}

func (t *terminalUI) Info(format string, args ...any) {
	infoColor.Fprintf(t.out, format+"\n", args...)
}

func (t *terminalUI) Thinking(active bool) {
	if active {
		thoughtColor.Fprintln(t.out, "thinking...")
		return
	}
	t.endThought()
}

// Thought prints only the characters added since the previous prefix.
func (t *terminalUI) Thought(text string) {
	if !strings.HasPrefix(text, t.thought) {
		t.endThought()
	}
	thoughtColor.Fprint(t.out, strings.TrimPrefix(text, t.thought))
	t.thought = text
}

func (t *terminalUI) endThought() {
	if t.thought != "" {
		fmt.Fprintln(t.out)
	}
	t.thought = ""
}

func (t *terminalUI) Trip(plan chat.TripPlan) {
	t.endThought()
	printTrip(t.out, plan)
}

func (t *terminalUI) Failure(err error) {
	t.endThought()
	errorColor.Fprintf(t.out, "error: %v\n", err)
}

func (t *terminalUI) Messages([]chat.Message) {}

// Replay prints a stored message
func (t *terminalUI) Replay(m chat.Message) {
	switch m.Role {
	case chat.ChatRoleUser:
		userPrompt.Fprint(t.out, "you> ")
		fmt.Fprintln(t.out, m.Content)
	default:
		fmt.Fprintln(t.out, m.Content)
		if m.Trip != nil {
			printTrip(t.out, *m.Trip)
		}
	}
}

func printTrip(out io.Writer, plan chat.TripPlan) {
	if len(plan.Days) == 0 {
		tripColor.Fprintln(out, "(empty itinerary)")
		return
	}
	for i, day := range plan.Days {
		tripColor.Fprintf(out, "Day %d  %s\n", i+1, day.Date)
		for _, p := range day.Places {
			fmt.Fprintf(out, "  %-6s %s", p.Time, p.Name)
			if p.Location != "" {
				fmt.Fprintf(out, " (%s)", p.Location)
			}
			fmt.Fprintf(out, " [%s]\n", p.Transport)
		}
	}
}
