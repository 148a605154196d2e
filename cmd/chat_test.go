package main

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/gennadis/tripchat/internal/client"
	"github.com/gennadis/tripchat/internal/config"
	"github.com/gennadis/tripchat/internal/session"
	"github.com/gennadis/tripchat/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func newTestApp() *app {
	cfg := config.NewConfig()
	return &app{
		cfg:    cfg,
		store:  session.NewStore(storage.NewMemory()),
		client: client.NewClient(*cfg),
	}
}

func TestRunChat_QuitStopsReader(t *testing.T) {
	defer goleak.VerifyNone(t)

	a := newTestApp()
	var out bytes.Buffer
	// lines after /quit are never consumed
	err := a.runChat(context.Background(), strings.NewReader("/quit\nRome\nPorto\n"), &out)
	require.NoError(t, err)
}

func TestRunChat_SessionCommandsNeedID(t *testing.T) {
	a := newTestApp()
	var out bytes.Buffer

	err := a.runChat(context.Background(), strings.NewReader("/switch\n/delete\n/quit\n"), &out)
	require.NoError(t, err)

	assert.Contains(t, out.String(), "usage: /switch <session id>")
	assert.Contains(t, out.String(), "usage: /delete <session id>")
	sessions := a.store.ListSessions()
	for _, s := range sessions {
		assert.NotEmpty(t, s.ID)
	}
	id, ok := a.store.ActiveSessionID()
	assert.True(t, ok)
	assert.NotEmpty(t, id)
}
