package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type decision struct {
	NeedsTitle string `json:"needs_title"`
}

func TestDecodeJSON(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{name: "plain", content: `{"needs_title":"Yes"}`, want: "Yes"},
		{name: "fenced", content: "```json\n{\"needs_title\":\"No\"}\n```", want: "No"},
		{name: "bare fence", content: "```\n{\"needs_title\":\"Yes\"}\n```", want: "Yes"},
		{name: "chatter around object", content: "Sure! Here you go: {\"needs_title\":\"No\"} Hope it helps.", want: "No"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got decision
			require.NoError(t, DecodeJSON(tt.content, &got))
			assert.Equal(t, tt.want, got.NeedsTitle)
		})
	}
}

func TestDecodeJSON_Errors(t *testing.T) {
	var got decision
	assert.ErrorIs(t, DecodeJSON("   ", &got), ErrEmptyPayload)
	assert.Error(t, DecodeJSON("no json here", &got))
	assert.Error(t, DecodeJSON(`{"needs_title": }`, &got))
}

func TestApply(t *testing.T) {
	opts := Apply(Options{Temperature: 0.7}, WithJSONFormat(), WithTemperature(0.1), WithModel("m"), WithMaxTokens(10))
	assert.True(t, opts.JSON)
	assert.Equal(t, 0.1, opts.Temperature)
	assert.Equal(t, "m", opts.Model)
	assert.Equal(t, 10, opts.MaxTokens)
}
