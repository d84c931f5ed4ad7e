package jobs

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseClock(t *testing.T) {
	hour, minute, err := parseClock("23:59")
	require.NoError(t, err)
	assert.Equal(t, 23, hour)
	assert.Equal(t, 59, minute)

	_, _, err = parseClock("24:00")
	assert.Error(t, err)
	_, _, err = parseClock("7pm")
	assert.Error(t, err)
}

func TestNextRunDaily(t *testing.T) {
	e := entry{hour: 23, minute: 59}

	now := time.Date(2024, 6, 10, 12, 0, 0, 0, time.Local)
	next := nextRun(now, e)
	assert.Equal(t, time.Date(2024, 6, 10, 23, 59, 0, 0, time.Local), next)

	// Past today's slot rolls to tomorrow.
	now = time.Date(2024, 6, 10, 23, 59, 30, 0, time.Local)
	next = nextRun(now, e)
	assert.Equal(t, time.Date(2024, 6, 11, 23, 59, 0, 0, time.Local), next)
}

func TestNextRunWeekly(t *testing.T) {
	sat := time.Saturday
	e := entry{weekday: &sat, hour: 0, minute: 5}

	// Monday 2024-06-10 -> Saturday 2024-06-15.
	now := time.Date(2024, 6, 10, 12, 0, 0, 0, time.Local)
	next := nextRun(now, e)
	assert.Equal(t, time.Date(2024, 6, 15, 0, 5, 0, 0, time.Local), next)

	// Saturday after the slot rolls a full week.
	now = time.Date(2024, 6, 15, 1, 0, 0, 0, time.Local)
	next = nextRun(now, e)
	assert.Equal(t, time.Date(2024, 6, 22, 0, 5, 0, 0, time.Local), next)
}
