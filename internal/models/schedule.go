package models

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Weekday codes follow the academy's storage convention: 1 = Sunday through
// 7 = Saturday. Weeks are anchored on Sunday everywhere, so the concrete date
// for weekday d within a week is anchor + (d-1) days. The attendance generator
// and the teaching-schedule reconciler both rely on this single convention.
const (
	WeekdaySunday    = 1
	WeekdayMonday    = 2
	WeekdayTuesday   = 3
	WeekdayWednesday = 4
	WeekdayThursday  = 5
	WeekdayFriday    = 6
	WeekdaySaturday  = 7
)

// DateLayout is the calendar date format used across the service. Dates are
// carried as plain strings and computed on local calendar components so no
// UTC conversion can shift a day.
const DateLayout = "2006-01-02"

// defaultSessionMinutes applies when a schedule omits its end time.
const defaultSessionMinutes = 60

var weekdayNames = [...]string{"", "Sun", "Mon", "Tue", "Wed", "Thu", "Fri", "Sat"}

// WeeklySchedule is a recurring weekly time slot: a set of weekdays plus a
// start time and optional end time. It is stored on the course as a JSON
// descriptor, e.g. {"day":[2,4],"hour":"14:00","end_time":"15:30"}.
type WeeklySchedule struct {
	Days      []int  `json:"day"`
	StartTime string `json:"hour"`
	EndTime   string `json:"end_time,omitempty"`
}

// ParseWeeklySchedule decodes a raw schedule descriptor. Malformed input,
// missing days or an unparsable start time yield an error; callers treat such
// courses as inert (skipped, never fatal).
func ParseWeeklySchedule(raw string) (*WeeklySchedule, error) {
	var ws WeeklySchedule
	if err := json.Unmarshal([]byte(raw), &ws); err != nil {
		return nil, fmt.Errorf("decode schedule: %w", err)
	}
	if len(ws.Days) == 0 {
		return nil, fmt.Errorf("schedule has no days")
	}
	for _, d := range ws.Days {
		if d < WeekdaySunday || d > WeekdaySaturday {
			return nil, fmt.Errorf("invalid weekday code %d", d)
		}
	}
	if _, err := clockMinutes(ws.StartTime); err != nil {
		return nil, fmt.Errorf("invalid start time: %w", err)
	}
	if ws.EndTime != "" {
		if _, err := clockMinutes(ws.EndTime); err != nil {
			return nil, fmt.Errorf("invalid end time: %w", err)
		}
	}
	return &ws, nil
}

// StartMinutes returns the start time as minutes from midnight.
func (s *WeeklySchedule) StartMinutes() int {
	m, _ := clockMinutes(s.StartTime)
	return m
}

// EndMinutes returns the end time as minutes from midnight, defaulting to
// one hour after the start when no end time is set.
func (s *WeeklySchedule) EndMinutes() int {
	if s.EndTime == "" {
		return s.StartMinutes() + defaultSessionMinutes
	}
	m, _ := clockMinutes(s.EndTime)
	return m
}

// SharesDay reports whether both schedules meet on at least one common weekday.
func (s *WeeklySchedule) SharesDay(other *WeeklySchedule) bool {
	for _, a := range s.Days {
		for _, b := range other.Days {
			if a == b {
				return true
			}
		}
	}
	return false
}

// Overlaps reports whether the two schedules collide: a shared weekday and
// overlapping time ranges under half-open interval semantics
// (start1 < end2 && start2 < end1).
func (s *WeeklySchedule) Overlaps(other *WeeklySchedule) bool {
	if !s.SharesDay(other) {
		return false
	}
	return s.StartMinutes() < other.EndMinutes() && other.StartMinutes() < s.EndMinutes()
}

// String renders the schedule for operator-readable diagnostics,
// e.g. "Mon, Wed at 14:00 - 15:30".
func (s *WeeklySchedule) String() string {
	names := make([]string, len(s.Days))
	for i, d := range s.Days {
		names[i] = weekdayNames[d]
	}
	if s.EndTime != "" {
		return fmt.Sprintf("%s at %s - %s", strings.Join(names, ", "), s.StartTime, s.EndTime)
	}
	return fmt.Sprintf("%s at %s", strings.Join(names, ", "), s.StartTime)
}

// WeekAnchor returns local midnight of the Sunday in the week containing t.
func WeekAnchor(t time.Time) time.Time {
	day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
	return day.AddDate(0, 0, -int(day.Weekday()))
}

// DateForWeekday returns the date of the given weekday code within the week
// starting at anchor (a Sunday).
func DateForWeekday(anchor time.Time, weekday int) time.Time {
	return anchor.AddDate(0, 0, weekday-WeekdaySunday)
}

// FormatDate renders a calendar date using DateLayout.
func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}

// ParseDate parses a DateLayout calendar date in local time.
func ParseDate(s string) (time.Time, error) {
	return time.ParseInLocation(DateLayout, s, time.Local)
}

func clockMinutes(s string) (int, error) {
	parts := strings.SplitN(s, ":", 2)
	if len(parts) != 2 {
		return 0, fmt.Errorf("expected HH:MM, got %q", s)
	}
	hour, err := strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return 0, fmt.Errorf("invalid hour in %q", s)
	}
	minute, err := strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return 0, fmt.Errorf("invalid minute in %q", s)
	}
	return hour*60 + minute, nil
}

// ScheduleConflictError reports a weekly schedule collision between the
// candidate course and one the user already staffs or leads.
type ScheduleConflictError struct {
	CourseID   int64
	CourseName string
	Existing   *WeeklySchedule
	Candidate  *WeeklySchedule
}

// Error implements the error interface.
func (e *ScheduleConflictError) Error() string {
	return fmt.Sprintf(
		"schedule conflict: user is already assigned to course %q (%s); new course schedule: %s",
		e.CourseName, e.Existing, e.Candidate,
	)
}
