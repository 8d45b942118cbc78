package conversation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const fencedPayload = "```json\n" +
	`{"conversation":[{"speaker":"شخص اول","text":"سلام، حال شما چطور است؟"},{"speaker":"شخص دوم","text":"ممنون، خوبم."}]}` +
	"\n```"

func TestCleanFences(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"no fences", `{"a":1}`, `{"a":1}`},
		{"json fence", "```json\n{\"a\":1}\n```", `{"a":1}`},
		{"fence with trailing spaces", "```json   \n{\"a\":1}\n```", `{"a":1}`},
		{"only trailing fence", "{\"a\":1}\n```", `{"a":1}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CleanFences(tt.in))
		})
	}
}

func TestParseFencedPayload(t *testing.T) {
	p, err := Parse(fencedPayload)
	require.NoError(t, err)
	require.Len(t, p.Conversation, 2)
	assert.Equal(t, "شخص اول", p.Conversation[0].Speaker)
	assert.Equal(t, "ممنون، خوبم.", p.Conversation[1].Text)
}

func TestParseInvalidJSON(t *testing.T) {
	_, err := Parse("this is not json")
	assert.Error(t, err)
}

func TestTurnOptions(t *testing.T) {
	p := Payload{Conversation: []Turn{
		{Speaker: "A", Text: "short"},
		{Speaker: "", Text: "0123456789012345678901234567890123456789"},
	}}

	options := TurnOptions(p)
	require.Len(t, options, 2)
	assert.Equal(t, "0: A - short...", options[0])
	assert.Equal(t, "1: Speaker? - 012345678901234567890123456789...", options[1])
}

func TestTurnOptionsEmpty(t *testing.T) {
	assert.Empty(t, TurnOptions(Payload{}))
}
