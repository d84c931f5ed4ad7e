package models

import (
	"fmt"
	"time"
)

// TeachingStatus represents the lifecycle state of a teaching-schedule record.
// The lifecycle is one-way: UPCOMING -> CHECKED_IN -> CHECKED_OUT. ABSENT is
// reachable from UPCOMING only through the daily sweep.
type TeachingStatus string

const (
	TeachingUpcoming   TeachingStatus = "UPCOMING"
	TeachingCheckedIn  TeachingStatus = "CHECKED_IN"
	TeachingCheckedOut TeachingStatus = "CHECKED_OUT"
	TeachingAbsent     TeachingStatus = "ABSENT"
)

// Valid returns true when the status is a supported value.
func (s TeachingStatus) Valid() bool {
	switch s {
	case TeachingUpcoming, TeachingCheckedIn, TeachingCheckedOut, TeachingAbsent:
		return true
	default:
		return false
	}
}

// TeachingSchedule is a dated teaching slot for a staff member. At most one
// row exists per (user, course, date, time) tuple. Rows are created and
// removed by the weekly reconciler; status and timestamps are mutated only by
// check-in/check-out and the daily sweep.
type TeachingSchedule struct {
	ID           int64          `db:"id" json:"id"`
	UserID       int64          `db:"user_id" json:"user_id"`
	CourseID     int64          `db:"course_id" json:"course_id"`
	Date         string         `db:"date" json:"date"`
	Time         string         `db:"time" json:"time"`
	Status       TeachingStatus `db:"status" json:"status"`
	CheckinTime  *time.Time     `db:"checkin_time" json:"checkin_time,omitempty"`
	CheckoutTime *time.Time     `db:"checkout_time" json:"checkout_time,omitempty"`
	CreatedAt    time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt    *time.Time     `db:"updated_at" json:"updated_at,omitempty"`
}

// Key identifies the teaching slot for reconciliation diffing.
func (s TeachingSchedule) Key() string {
	return TeachingScheduleKey(s.UserID, s.CourseID, s.Date, s.Time)
}

// TeachingScheduleKey builds the uniqueness key for a teaching slot.
func TeachingScheduleKey(userID, courseID int64, date, tm string) string {
	return fmt.Sprintf("%d-%d-%s-%s", userID, courseID, date, tm)
}

// TeachingScheduleFilter narrows teaching-schedule searches.
type TeachingScheduleFilter struct {
	CourseID *int64
	UserID   *int64
	Date     string
	Time     string
	Status   *TeachingStatus
}

// ReconcileResult reports the outcome of a weekly reconciliation run.
type ReconcileResult struct {
	WeekStart string `json:"week_start"`
	Created   int    `json:"created"`
	Deleted   int    `json:"deleted"`
	Skipped   int    `json:"skipped"`
}

// SweepResult reports the outcome of a daily absence sweep.
type SweepResult struct {
	Date                    string `json:"date"`
	AttendanceUpdated       int    `json:"attendance_updated"`
	TeachingScheduleUpdated int    `json:"teaching_schedule_updated"`
}
