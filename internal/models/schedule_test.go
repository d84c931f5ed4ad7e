package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseWeeklySchedule(t *testing.T) {
	ws, err := ParseWeeklySchedule(`{"day":[2,4],"hour":"14:00"}`)
	require.NoError(t, err)
	assert.Equal(t, []int{2, 4}, ws.Days)
	assert.Equal(t, "14:00", ws.StartTime)
	assert.Empty(t, ws.EndTime)

	ws, err = ParseWeeklySchedule(`{"day":[6],"hour":"09:30","end_time":"11:00"}`)
	require.NoError(t, err)
	assert.Equal(t, "11:00", ws.EndTime)
}

func TestParseWeeklyScheduleRejectsMalformed(t *testing.T) {
	cases := map[string]string{
		"not json":        `{day: [2]}`,
		"empty days":      `{"day":[],"hour":"14:00"}`,
		"missing days":    `{"hour":"14:00"}`,
		"missing hour":    `{"day":[2,3]}`,
		"bad hour":        `{"day":[2],"hour":"2pm"}`,
		"day out of range": `{"day":[0,8],"hour":"14:00"}`,
		"bad end time":    `{"day":[2],"hour":"14:00","end_time":"25:00"}`,
	}
	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := ParseWeeklySchedule(raw)
			assert.Error(t, err)
		})
	}
}

func TestEndMinutesDefaultsToOneHour(t *testing.T) {
	ws := &WeeklySchedule{Days: []int{2}, StartTime: "14:00"}
	assert.Equal(t, 14*60, ws.StartMinutes())
	assert.Equal(t, 15*60, ws.EndMinutes())

	ws.EndTime = "15:30"
	assert.Equal(t, 15*60+30, ws.EndMinutes())
}

func TestOverlapsHalfOpenBoundary(t *testing.T) {
	a := &WeeklySchedule{Days: []int{WeekdayMonday}, StartTime: "14:00", EndTime: "15:00"}

	// Mon 14:30-15:30 collides.
	b := &WeeklySchedule{Days: []int{WeekdayMonday}, StartTime: "14:30", EndTime: "15:30"}
	assert.True(t, a.Overlaps(b))
	assert.True(t, b.Overlaps(a))

	// Back-to-back slots do not collide.
	c := &WeeklySchedule{Days: []int{WeekdayMonday}, StartTime: "15:00", EndTime: "16:00"}
	assert.False(t, a.Overlaps(c))
	assert.False(t, c.Overlaps(a))

	// Same time on a different day does not collide.
	d := &WeeklySchedule{Days: []int{WeekdayTuesday}, StartTime: "14:00", EndTime: "15:00"}
	assert.False(t, a.Overlaps(d))
}

func TestWeekAnchorIsSunday(t *testing.T) {
	// 2024-06-12 is a Wednesday; its week anchor is Sunday 2024-06-09.
	wed := time.Date(2024, 6, 12, 15, 30, 0, 0, time.Local)
	anchor := WeekAnchor(wed)
	assert.Equal(t, time.Sunday, anchor.Weekday())
	assert.Equal(t, "2024-06-09", FormatDate(anchor))

	// A Sunday anchors to itself at midnight.
	sun := time.Date(2024, 6, 9, 23, 0, 0, 0, time.Local)
	assert.Equal(t, "2024-06-09", FormatDate(WeekAnchor(sun)))
}

func TestDateForWeekday(t *testing.T) {
	anchor := time.Date(2024, 6, 9, 0, 0, 0, 0, time.Local) // Sunday
	assert.Equal(t, "2024-06-09", FormatDate(DateForWeekday(anchor, WeekdaySunday)))
	assert.Equal(t, "2024-06-10", FormatDate(DateForWeekday(anchor, WeekdayMonday)))
	assert.Equal(t, "2024-06-15", FormatDate(DateForWeekday(anchor, WeekdaySaturday)))
}

func TestScheduleString(t *testing.T) {
	ws := &WeeklySchedule{Days: []int{WeekdayMonday, WeekdayWednesday}, StartTime: "14:00", EndTime: "15:30"}
	assert.Equal(t, "Mon, Wed at 14:00 - 15:30", ws.String())

	ws = &WeeklySchedule{Days: []int{WeekdaySunday}, StartTime: "08:00"}
	assert.Equal(t, "Sun at 08:00", ws.String())
}
