package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLookupCost(t *testing.T) {
	tests := []struct {
		model string
		want  *ModelCost
	}{
		{"gpt-4o-mini", &ModelCost{0.15, 0.6}},
		{"claude-sonnet-4-20250514", &ModelCost{3, 15}},
		{"claude-haiku-4-5-20251001", &ModelCost{1, 5}},
		{"gpt-4o-2024-08-06", &ModelCost{2.5, 10}},
		{"anthropic/claude-3-5-haiku", &ModelCost{0.8, 4}},
		{"google/gemini-2.0-flash-exp:free", &ModelCost{0, 0}},
		{"claude-3-7-sonnet-latest", &ModelCost{3, 15}},
		{"mock", nil},
		{"", nil},
	}
	for _, tt := range tests {
		t.Run(tt.model, func(t *testing.T) {
			assert.Equal(t, tt.want, LookupCost(tt.model))
		})
	}
}

func TestModelCost_Cost(t *testing.T) {
	c := LookupCost("gpt-4o")
	require.NotNil(t, c)
	assert.InDelta(t, 2.5+5.0, c.Cost(1_000_000, 500_000), 1e-9)
	assert.Zero(t, c.Cost(0, 0))
}
