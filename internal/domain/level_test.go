package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDifficulty_Label(t *testing.T) {
	tests := []struct {
		value  Difficulty
		label  string
		wantOK bool
	}{
		{0, "Easy", true},
		{1, "Medium", true},
		{2, "Tough", true},
		{3, "Very Tough", true},
		{4, "", false},
		{-1, "", false},
	}

	for _, tt := range tests {
		label, ok := tt.value.Label()
		assert.Equal(t, tt.wantOK, ok, "difficulty %d", tt.value)
		assert.Equal(t, tt.label, label, "difficulty %d", tt.value)
	}
}

func TestPlayerModeOf(t *testing.T) {
	mode, ok := PlayerModeOf(true, true)
	assert.True(t, ok)
	assert.Equal(t, PlayerModeBoth, mode)
	assert.Equal(t, "1P + 2P", mode.Label())

	mode, ok = PlayerModeOf(true, false)
	assert.True(t, ok)
	assert.Equal(t, PlayerModeSingle, mode)
	assert.Contains(t, mode.Label(), "single-player only")

	mode, ok = PlayerModeOf(false, true)
	assert.True(t, ok)
	assert.Equal(t, PlayerModeTwo, mode)

	_, ok = PlayerModeOf(false, false)
	assert.False(t, ok)
}
