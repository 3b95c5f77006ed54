package chat

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChatRequest_Validate(t *testing.T) {
	tests := []struct {
		name    string
		req     ChatRequest
		wantErr string
	}{
		{
			name: "valid request",
			req:  ChatRequest{CharacterID: "james-blackwood", Message: "Where were you at 9pm?"},
		},
		{
			name:    "empty message",
			req:     ChatRequest{CharacterID: "james-blackwood", Message: ""},
			wantErr: "message cannot be empty",
		},
		{
			name:    "message too long",
			req:     ChatRequest{CharacterID: "james-blackwood", Message: strings.Repeat("a", MaxMessageLength+1)},
			wantErr: "exceeds 500 characters",
		},
		{
			name: "message at exactly the limit",
			req:  ChatRequest{CharacterID: "james-blackwood", Message: strings.Repeat("a", MaxMessageLength)},
		},
		{
			name:    "missing character",
			req:     ChatRequest{Message: "Hello?"},
			wantErr: "character_id is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.req.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
			} else {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
			}
		})
	}
}

func TestMessage_TimestampRoundTrip(t *testing.T) {
	msg := NewMessage("victoria-ashworth", ChatRoleAgent, "I was in the conservatory.")

	data, err := json.Marshal(msg)
	require.NoError(t, err)

	var decoded Message
	require.NoError(t, json.Unmarshal(data, &decoded))

	assert.Equal(t, msg.ID, decoded.ID)
	assert.Equal(t, msg.CharacterID, decoded.CharacterID)
	assert.Equal(t, msg.Content, decoded.Content)
	// Timestamps must survive serialization to the second; cooldown math
	// depends on them being real time values after a reload.
	assert.WithinDuration(t, msg.CreatedAt, decoded.CreatedAt, time.Second)
}

func TestMessage_ToChatMessage(t *testing.T) {
	msg := NewMessage("james-blackwood", ChatRoleUser, "Who found the body?")
	cm := msg.ToChatMessage()

	assert.Equal(t, ChatRoleUser, cm.Role)
	assert.Equal(t, "Who found the body?", cm.Content)
}
