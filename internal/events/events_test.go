package events

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncode(t *testing.T) {
	at := time.Date(2026, 5, 2, 10, 0, 0, 0, time.UTC)
	msg, err := encode(Event{
		Type:       MessageAppended,
		ActorID:    7,
		Key:        "conversation:3",
		OccurredAt: at,
		Payload:    map[string]int64{"message_id": 11},
	})
	require.NoError(t, err)

	assert.Equal(t, "conversation:3", string(msg.Key))
	assert.Equal(t, at, msg.Time)
	require.Len(t, msg.Headers, 1)
	assert.Equal(t, MessageAppended, string(msg.Headers[0].Value))

	var decoded struct {
		ID      string           `json:"id"`
		Type    string           `json:"type"`
		ActorID int64            `json:"actor_id"`
		Payload map[string]int64 `json:"payload"`
	}
	require.NoError(t, json.Unmarshal(msg.Value, &decoded))
	assert.NotEmpty(t, decoded.ID)
	assert.Equal(t, MessageAppended, decoded.Type)
	assert.Equal(t, int64(7), decoded.ActorID)
	assert.Equal(t, int64(11), decoded.Payload["message_id"])
}

func TestEncodeRejectsUnmarshalablePayload(t *testing.T) {
	_, err := encode(Event{Type: MessageAppended, Payload: func() {}})
	assert.Error(t, err)
}

func TestNop(t *testing.T) {
	var p Publisher = Nop{}
	assert.NoError(t, p.Publish(context.Background(), Event{Type: ConversationRead}))
	assert.NoError(t, p.Close())
}
