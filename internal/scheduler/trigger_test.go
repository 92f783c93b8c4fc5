package scheduler

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDaily_Next(t *testing.T) {
	trigger, err := DailyAt(5, 0, 0, time.UTC)
	require.NoError(t, err)

	tests := []struct {
		name  string
		after time.Time
		want  time.Time
	}{
		{
			name:  "before today's time",
			after: time.Date(2026, 3, 14, 4, 59, 59, 0, time.UTC),
			want:  time.Date(2026, 3, 14, 5, 0, 0, 0, time.UTC),
		},
		{
			name:  "exactly at today's time",
			after: time.Date(2026, 3, 14, 5, 0, 0, 0, time.UTC),
			want:  time.Date(2026, 3, 15, 5, 0, 0, 0, time.UTC),
		},
		{
			name:  "after today's time",
			after: time.Date(2026, 3, 14, 18, 0, 0, 0, time.UTC),
			want:  time.Date(2026, 3, 15, 5, 0, 0, 0, time.UTC),
		},
		{
			name:  "year rollover",
			after: time.Date(2026, 12, 31, 6, 0, 0, 0, time.UTC),
			want:  time.Date(2027, 1, 1, 5, 0, 0, 0, time.UTC),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.True(t, tt.want.Equal(trigger.Next(tt.after)), "got %s", trigger.Next(tt.after))
		})
	}
}

func TestDaily_NextInLocation(t *testing.T) {
	loc := time.FixedZone("UTC+9", 9*60*60)
	trigger, err := DailyAt(5, 0, 0, loc)
	require.NoError(t, err)

	// 21:00 UTC is 06:00 the next day in UTC+9, past the firing time.
	next := trigger.Next(time.Date(2026, 3, 14, 21, 0, 0, 0, time.UTC))
	assert.True(t, time.Date(2026, 3, 16, 5, 0, 0, 0, loc).Equal(next), "got %s", next)
}

func TestParseDaily(t *testing.T) {
	trigger, err := ParseDaily("05:30", nil)
	require.NoError(t, err)
	assert.Equal(t, "daily at 05:30:00 UTC", trigger.String())

	trigger, err = ParseDaily("23:59:30", time.UTC)
	require.NoError(t, err)
	assert.Equal(t, "daily at 23:59:30 UTC", trigger.String())

	for _, bad := range []string{"", "5", "24:00", "05:60", "aa:bb", "1:2:3:4"} {
		_, err := ParseDaily(bad, time.UTC)
		assert.Error(t, err, bad)
	}
}
