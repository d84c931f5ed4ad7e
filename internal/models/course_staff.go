package models

// StaffRole classifies a staff member's involvement in a course.
type StaffRole string

const (
	StaffRoleLead     StaffRole = "LEAD"
	StaffRoleSubTutor StaffRole = "SUB_TUTOR"
	StaffRoleManager  StaffRole = "MANAGER"
)

// Valid returns true when the role is a supported value.
func (r StaffRole) Valid() bool {
	switch r {
	case StaffRoleLead, StaffRoleSubTutor, StaffRoleManager:
		return true
	default:
		return false
	}
}

// CourseStaff assigns a user to a course in a given role. Assignments are
// only persisted after the conflict detector clears them.
type CourseStaff struct {
	ID       int64     `db:"id" json:"id"`
	CourseID int64     `db:"course_id" json:"course_id"`
	UserID   int64     `db:"user_id" json:"user_id"`
	Role     StaffRole `db:"role" json:"role"`
}

// CourseStaffFilter narrows course staff searches.
type CourseStaffFilter struct {
	CourseID  *int64
	CourseIDs []int64
	UserID    *int64
}
