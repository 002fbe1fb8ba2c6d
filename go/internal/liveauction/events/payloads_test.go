package events

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePayload(t *testing.T) {
	data := json.RawMessage(`{"session_id":"s1","player_id":"p1","team_id":"t1","amount":12.5,"kind":"JUMP"}`)

	payload, err := ParsePayload(EventTypeBidPlaced, data)
	require.NoError(t, err)

	bid, ok := payload.(*BidPlacedPayload)
	require.True(t, ok)
	assert.Equal(t, "t1", bid.TeamID)
	assert.Equal(t, 12.5, bid.Amount)
	assert.Equal(t, "JUMP", bid.Kind)
}

func TestParsePayloadErrors(t *testing.T) {
	_, err := ParsePayload("Unknown", json.RawMessage(`{}`))
	assert.Error(t, err)

	_, err = ParsePayload(EventTypePlayerSold, json.RawMessage(`{"amount":"lots"}`))
	assert.Error(t, err)
}
