package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/gennadis/tripchat/internal/conversation"
	"github.com/gennadis/tripchat/internal/reveal"
)

func (a *app) runChat(ctx context.Context, in io.Reader, out io.Writer) error {
	cs, err := conversation.New(a.client, a.store, reveal.NewScheduler(a.cfg.RevealDelay))
	if err != nil {
		return fmt.Errorf("starting conversation: %w", err)
	}

	ui := newTerminalUI(out)
	ui.Info("session %s", cs.SessionID())
	for _, m := range cs.Messages() {
		ui.Replay(m)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
	}()

	for {
		ui.Prompt()
		var line string
		select {
		case <-ctx.Done():
			return nil
		case l, ok := <-lines:
			if !ok {
				return nil
			}
			line = strings.TrimSpace(l)
		}

		quit, err := a.handleLine(ctx, cs, ui, line)
		if err != nil {
			ui.Failure(err)
		}
		if quit {
			return nil
		}
	}
}

func (a *app) handleLine(ctx context.Context, cs *conversation.ChatSession, ui *terminalUI, line string) (bool, error) {
	command, arg, _ := strings.Cut(line, " ")
	arg = strings.TrimSpace(arg)

	switch command {
	case "/quit", "/exit":
		return true, nil
	case "/new":
		id, err := cs.NewChat()
		if err != nil {
			return false, err
		}
		ui.Info("session %s", id)
	case "/sessions":
		printSessions(ui.out, cs.Sessions(), cs.SessionID())
	case "/switch":
		if arg == "" {
			ui.Info("usage: /switch <session id>")
			return false, nil
		}
		if err := cs.Switch(arg); err != nil {
			return false, err
		}
		ui.Info("session %s", cs.SessionID())
		for _, m := range cs.Messages() {
			ui.Replay(m)
		}
	case "/delete":
		if arg == "" {
			ui.Info("usage: /delete <session id>")
			return false, nil
		}
		if err := cs.Delete(arg); err != nil {
			return false, err
		}
		ui.Info("deleted %s, active session %s", arg, cs.SessionID())
	default:
		// failures are already shown by the UI
		err := cs.Send(ctx, line, ui)
		if errors.Is(err, conversation.ErrSuperseded) {
			ui.Info("previous request was replaced")
		}
	}
	return false, nil
}
