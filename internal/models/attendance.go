package models

import (
	"fmt"
	"time"
)

// AttendanceStatus represents the status for student attendance records.
type AttendanceStatus string

const (
	AttendanceNotCheckedIn     AttendanceStatus = "NOT_CHECKED_IN"
	AttendanceCheckedIn        AttendanceStatus = "CHECKED_IN"
	AttendanceAbsentNoReason   AttendanceStatus = "ABSENT_NO_REASON"
	AttendanceAbsentWithReason AttendanceStatus = "ABSENT_WITH_REASON"
)

// Valid returns true when the status is a supported value.
func (s AttendanceStatus) Valid() bool {
	switch s {
	case AttendanceNotCheckedIn, AttendanceCheckedIn, AttendanceAbsentNoReason, AttendanceAbsentWithReason:
		return true
	default:
		return false
	}
}

// Attendance is a dated session slot for a student. At most one row exists per
// (student, course, date, time) tuple; the generator relies on that invariant.
type Attendance struct {
	ID        int64            `db:"id" json:"id"`
	StudentID int64            `db:"student_id" json:"student_id"`
	CourseID  int64            `db:"course_id" json:"course_id"`
	Date      string           `db:"date" json:"date"`
	Time      string           `db:"time" json:"time"`
	Status    AttendanceStatus `db:"status" json:"status"`
	IsTrial   bool             `db:"is_trial" json:"is_trial"`
	CreatedAt time.Time        `db:"created_at" json:"created_at"`
	UpdatedAt *time.Time       `db:"updated_at" json:"updated_at,omitempty"`
}

// Key identifies the attendance slot for duplicate detection.
func (a Attendance) Key() string {
	return AttendanceKey(a.StudentID, a.CourseID, a.Date, a.Time)
}

// AttendanceKey builds the uniqueness key for a session slot.
func AttendanceKey(studentID, courseID int64, date, tm string) string {
	return fmt.Sprintf("%d-%d-%s-%s", studentID, courseID, date, tm)
}

// AttendanceFilter narrows attendance searches.
type AttendanceFilter struct {
	StudentID *int64
	CourseID  *int64
	Date      string
	DateFrom  string
	DateTo    string
	Status    *AttendanceStatus
	IsTrial   *bool
}

// GenerateAllResult summarises a batch generation run across students.
type GenerateAllResult struct {
	TotalStudents int `json:"total_students"`
	Enqueued      int `json:"enqueued"`
	Skipped       int `json:"skipped"`
}

// StudentAttendanceStatus reports whether a student is ready for generation.
type StudentAttendanceStatus struct {
	StudentID           int64    `json:"student_id"`
	StudentName         string   `json:"student_name"`
	HasSubscription     bool     `json:"has_subscription"`
	HasActiveCourses    bool     `json:"has_courses"`
	CourseIDs           []int64  `json:"course_ids"`
	CanGenerate         bool     `json:"can_generate"`
	Reason              string   `json:"reason,omitempty"`
	SubscriptionID      *int64   `json:"subscription_id,omitempty"`
	PackageQuantity     *int     `json:"package_quantity,omitempty"`
	SubscriptionStarted *string  `json:"subscription_start_date,omitempty"`
}
