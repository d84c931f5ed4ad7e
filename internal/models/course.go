package models

// Course represents a class offered by the academy. The weekly schedule is
// stored as a JSON descriptor in Schedule; courses whose descriptor does not
// parse are skipped by generation and conflict checks.
type Course struct {
	ID       int64  `db:"id" json:"id"`
	Name     string `db:"course_name" json:"course_name"`
	Summary  *string `db:"summary" json:"summary,omitempty"`
	Schedule string `db:"schedule" json:"schedule"`
	CourtID  int64  `db:"court_id" json:"court_id"`
	LeadID   *int64 `db:"lead_id" json:"lead_id,omitempty"`
	Active   bool   `db:"status" json:"status"`
}

// CourseStudent links a student to a course. Active enrollments feed the
// attendance generator.
type CourseStudent struct {
	ID        int64 `db:"id" json:"id"`
	CourseID  int64 `db:"course_id" json:"course_id"`
	StudentID int64 `db:"student_id" json:"student_id"`
	Active    bool  `db:"status" json:"status"`
}
