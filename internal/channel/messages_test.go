package channel

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseMessage(t *testing.T) {
	tests := []struct {
		in    string
		kind  Kind
		score int
	}{
		{"0", KindScore, 0},
		{"57", KindScore, 57},
		{"100", KindScore, 100},
		{" 42\n", KindScore, 42},
		{"101", KindIgnored, 0},
		{"-1", KindIgnored, 0},
		{"+5", KindIgnored, 0},
		{"4.5", KindIgnored, 0},
		{"banana", KindIgnored, 0},
		{"", KindIgnored, 0},
		{"0057", KindIgnored, 0},
		{"error:disk full", KindServerError, 0},
		{"error:", KindServerError, 0},
		{"ERROR:caps", KindIgnored, 0},
		{" error:leading space", KindIgnored, 0},
	}
	for _, tt := range tests {
		msg := ParseMessage(tt.in)
		assert.Equal(t, tt.kind, msg.Kind, "input %q", tt.in)
		assert.Equal(t, tt.score, msg.Score, "input %q", tt.in)
	}
}

func TestParseServerErrorStripsPrefix(t *testing.T) {
	msg := ParseMessage("error:disk full")
	assert.Equal(t, "disk full", msg.Text)
	assert.Empty(t, ParseMessage("error:").Text)
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "disconnected", Disconnected.String())
	assert.Equal(t, "connecting", Connecting.String())
	assert.Equal(t, "connected", Connected.String())
	assert.Equal(t, "error", Erroring.String())
	assert.Equal(t, "closing", Closing.String())
	assert.Equal(t, "unknown", State(99).String())
}

func TestCanOpen(t *testing.T) {
	assert.True(t, Disconnected.CanOpen())
	assert.True(t, Erroring.CanOpen())
	assert.False(t, Connecting.CanOpen())
	assert.False(t, Connected.CanOpen())
	assert.False(t, Closing.CanOpen())
}
