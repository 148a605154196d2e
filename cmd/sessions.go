package main

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/gennadis/tripchat/internal/chat"
	"github.com/spf13/cobra"
)

func newSessionsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sessions",
		Short: "Manage local conversations",
		RunE: func(cmd *cobra.Command, _ []string) error {
			active, _ := a.store.ActiveSessionID()
			printSessions(cmd.OutOrStdout(), a.store.ListSessions(), active)
			return nil
		},
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List conversations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			active, _ := a.store.ActiveSessionID()
			printSessions(cmd.OutOrStdout(), a.store.ListSessions(), active)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "new",
		Short: "Start a new conversation and make it active",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			id, err := a.store.NewSession()
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), id)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "switch <id>",
		Short: "Make a conversation active",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := a.store.SwitchSession(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), id)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a conversation and its messages",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			return a.store.DeleteSession(args[0])
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "prune",
		Short: "Remove message logs of deleted conversations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			pruned, err := a.store.Prune()
			for _, id := range pruned {
				fmt.Fprintln(cmd.OutOrStdout(), id)
			}
			return err
		},
	})

	return cmd
}

func newHistoryCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "history [session-id]",
		Short: "Show the server's record of a conversation",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, ok := a.store.ActiveSessionID()
			if len(args) == 1 {
				id, ok = args[0], true
			}
			if !ok {
				return fmt.Errorf("no active session")
			}

			messages, err := a.client.FetchMessages(cmd.Context(), id)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, m := range messages {
				fmt.Fprintf(out, "%s  %-9s %s\n", m.CreatedAt.Local().Format(time.DateTime), m.Role, m.Content)
			}
			return nil
		},
	}
}

func printSessions(out io.Writer, sessions []chat.Session, active string) {
	if len(sessions) == 0 {
		fmt.Fprintln(out, "No sessions yet")
		return
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	for _, s := range sessions {
		marker := " "
		if s.ID == active {
			marker = "*"
		}
		title := s.Title
		if title == "" {
			title = chat.DefaultTitle
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", marker, s.ID, title, s.LastUpdated.Local().Format(time.DateTime))
	}
	w.Flush()
}
