package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractJSON(t *testing.T) {
	raw, ok := ExtractJSON("Sure! Here you go:\n```json\n{\"a\": {\"b\": 1}}\n```\nEnjoy.")
	require.True(t, ok)
	assert.Equal(t, `{"a": {"b": 1}}`, raw)

	_, ok = ExtractJSON("no object here")
	assert.False(t, ok)
	_, ok = ExtractJSON("} backwards {")
	assert.False(t, ok)
}

func TestParseModelReply(t *testing.T) {
	tests := []struct {
		name string
		text string
		hp   int
		gold int
		item string
		xp   int
	}{
		{
			name: "clean json",
			text: `{"narrative": "You find coins.", "hp_change": 0, "gold_change": 12, "new_item": null, "item_used": null, "combat_ended": false, "level_up": false, "xp_gained": 5, "choices": ["Go on", "Rest"]}`,
			gold: 12, xp: 5,
		},
		{
			name: "prose and fences around the object",
			text: "Okay!\n```json\n{\"narrative\": \"A trap!\", \"hp_change\": -4, \"choices\": []}\n```",
			hp:   -4,
		},
		{
			name: "trailing commas",
			text: `{"narrative": "A gem glints.", "new_item": "Ruby", "choices": ["Take it", "Leave it",],}`,
			item: "Ruby",
		},
		{
			name: "single quotes",
			text: `{'narrative': 'The wind howls.', 'gold_change': 3}`,
			gold: 3,
		},
		{
			name: "unquoted keys",
			text: `{narrative: "Silence.", hp_change: -2, xp_gained: 10}`,
			hp:   -2, xp: 10,
		},
		{
			name: "quoted numbers and nulls",
			text: `{"narrative": "Ouch.", "hp_change": "-5", "gold_change": null, "xp_gained": "7"}`,
			hp:   -5, xp: 7,
		},
		{
			name: "xp is clamped",
			text: `{"narrative": "Legendary.", "xp_gained": 9000}`,
			xp:   50,
		},
		{
			name: "negative xp is dropped",
			text: `{"narrative": "Meh.", "xp_gained": -30}`,
		},
		{
			name: "placeholder item names",
			text: `{"narrative": "Nothing.", "new_item": "none", "item_used": "N/A"}`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := ParseModelReply(tt.text)
			require.NoError(t, err)
			assert.NotEmpty(t, result.Narrative)
			assert.Equal(t, tt.hp, result.HPChange)
			assert.Equal(t, tt.gold, result.GoldChange)
			assert.Equal(t, tt.item, result.NewItem)
			assert.Equal(t, tt.xp, result.XPGained)
			assert.Empty(t, result.ItemUsed)
		})
	}
}

func TestParseModelReplyChoices(t *testing.T) {
	result, err := ParseModelReply(`{"narrative": "Crossroads.", "choices": [" North ", "", "South", "East", "West", "Up"]}`)
	require.NoError(t, err)
	assert.Equal(t, []string{"North", "South", "East", "West"}, result.Choices)
}

func TestParseModelReplyFailures(t *testing.T) {
	tests := []struct {
		name string
		text string
	}{
		{"no object", "I cannot answer that."},
		{"missing narrative", `{"hp_change": -3}`},
		{"blank narrative", `{"narrative": "   "}`},
		{"garbage inside braces", `{this is [not valid: at all`},
		{"non numeric delta", `{"narrative": "x", "hp_change": "lots"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseModelReply(tt.text)
			assert.Error(t, err)
		})
	}
}
