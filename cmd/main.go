package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/gennadis/tripchat/internal/client"
	"github.com/gennadis/tripchat/internal/config"
	"github.com/gennadis/tripchat/internal/session"
	"github.com/gennadis/tripchat/storage"
	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"
)

const rootLongDesc = `tripchat is a terminal client for the trip planner.

Type a request to plan a trip; the planner's reasoning is shown as it
streams in and the final itinerary is saved with the conversation.

Inside the chat:
  /new              start a new conversation
  /sessions         list conversations
  /switch <id>      switch to a conversation
  /delete <id>      delete a conversation
  /quit             exit`

// app holds the dependencies shared by all commands
type app struct {
	cfg    *config.Config
	db     *sqlx.DB
	store  *session.Store
	client *client.Client
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	a := &app{}

	cmd := &cobra.Command{
		Use:          "tripchat",
		Short:        "Chat with the trip planner",
		Long:         rootLongDesc,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.init(cmd)
		},
		PersistentPostRunE: func(*cobra.Command, []string) error {
			return a.close()
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.runChat(cmd.Context(), cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}

	flags := cmd.PersistentFlags()
	flags.String("env-file", ".env", "Environment file to load")
	flags.String("base-url", "", "Trip planner API base URL")
	flags.String("db", "", "Path of the local session database")
	flags.Duration("reveal-delay", 0, "Delay between revealed characters of a thought")
	flags.BoolP("debug", "d", false, "Enable debug logging")

	cmd.AddCommand(newSessionsCmd(a))
	cmd.AddCommand(newHistoryCmd(a))
	return cmd
}

func (a *app) init(cmd *cobra.Command) error {
	envFile, _ := cmd.Flags().GetString("env-file")
	v := config.NewViper(envFile)

	for key, flag := range map[string]string{
		config.KeyBaseURL:     "base-url",
		config.KeyDBPath:      "db",
		config.KeyRevealDelay: "reveal-delay",
		config.KeyDebug:       "debug",
	} {
		// unset flags fall through to env and defaults
		if f := cmd.Flags().Lookup(flag); f != nil && f.Changed {
			if err := v.BindPFlag(key, f); err != nil {
				return fmt.Errorf("binding flag %s: %w", flag, err)
			}
		}
	}

	cfg, err := config.Load(v)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	a.cfg = cfg
	setupLogger(cfg.Debug)

	db, err := storage.NewSqliteDB(cfg.DBPath)
	if err != nil {
		slog.Error("Failed to open database", "path", cfg.DBPath, "error", err)
		return err
	}
	kv, err := storage.NewKV(db)
	if err != nil {
		db.Close()
		return err
	}

	a.db = db
	a.store = session.NewStore(kv)
	a.client = client.NewClient(*cfg)
	return nil
}

func (a *app) close() error {
	if a.db == nil {
		return nil
	}
	return a.db.Close()
}

func setupLogger(debug bool) {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
}
