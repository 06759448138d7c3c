package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDecodeLenient(t *testing.T) {
	tests := []struct {
		name  string
		input any
		want  any
	}{
		{
			name:  "nil",
			input: nil,
			want:  map[string]any{},
		},
		{
			name:  "blank",
			input: "   \n",
			want:  map[string]any{},
		},
		{
			name:  "plain array",
			input: `[{"amount":"1000.00","currency":"CNY"}]`,
			want:  []any{map[string]any{"amount": "1000.00", "currency": "CNY"}},
		},
		{
			name:  "fenced object",
			input: "```json\n{\"a\":1}\n```",
			want:  map[string]any{"a": 1.0},
		},
		{
			name:  "prose around array",
			input: "Here you go: ```json\n[{\"amount\":1}]\n``` Let me know!",
			want:  []any{map[string]any{"amount": 1.0}},
		},
		{
			name:  "prose around object",
			input: `Sure! {"transactions": []} hope this helps`,
			want:  map[string]any{"transactions": []any{}},
		},
		{
			name:  "no json",
			input: "I could not read the screenshot.",
			want:  map[string]any{},
		},
		{
			name:  "truncated",
			input: `[{"amount": 1`,
			want:  map[string]any{},
		},
		{
			name:  "mismatched brackets",
			input: `{ not json ]`,
			want:  map[string]any{},
		},
		{
			name:  "scalar json",
			input: "42",
			want:  42.0,
		},
		{
			name:  "non-string passes through",
			input: []any{"x"},
			want:  []any{"x"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DecodeLenient(tt.input))
		})
	}
}

func TestCleanModelJSON(t *testing.T) {
	assert.Equal(t, `[1]`, cleanModelJSON("```json\n[1]\n```"))
	assert.Equal(t, `[1]`, cleanModelJSON("```\n[1]```"))
	assert.Equal(t, "```", cleanModelJSON("```"))
	assert.Equal(t, `[1]`, cleanModelJSON("  [1]  "))
}
