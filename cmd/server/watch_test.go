package main

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"workmatch/internal/client"
	"workmatch/internal/domain"
)

func TestTranscriptPrintsEachMessageOnce(t *testing.T) {
	var out bytes.Buffer
	tr := &transcript{out: &out, self: 1, printed: make(map[int64]bool)}
	at := time.Date(2026, 3, 1, 9, 30, 0, 0, time.Local)

	first := client.Snapshot{Entries: []client.Entry{
		{Message: &domain.Message{ID: 1, SenderID: 2, Body: "hello", CreatedAt: at}},
		{Message: &domain.Message{SenderID: 1, Body: "draft"}, TempID: "tmp", Pending: true},
	}}
	tr.update(first)
	tr.update(client.Snapshot{Entries: []client.Entry{
		{Message: &domain.Message{ID: 1, SenderID: 2, Body: "hello", CreatedAt: at}},
		{Message: &domain.Message{ID: 2, SenderID: 1, Body: "hi there", CreatedAt: at}},
	}})

	assert.Equal(t, "[09:30] user 2: hello\n[09:30] you: hi there\n", out.String())
}

func TestWatchIntervalFollowsConfig(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("WORKMATCH_TOKEN", "token")
	t.Setenv("POLL_INTERVAL", "3s")
	t.Cleanup(func() { watchToken, watchInterval = "", client.DefaultPollInterval })

	require.NoError(t, watchCmd.PersistentPreRunE(watchCmd, nil))
	assert.Equal(t, 3*time.Second, watchInterval)

	require.NoError(t, watchCmd.Flags().Set("interval", "2s"))
	require.NoError(t, watchCmd.PersistentPreRunE(watchCmd, nil))
	assert.Equal(t, 2*time.Second, watchInterval)
}
