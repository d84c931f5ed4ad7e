package models

// TrialStatus tracks a student's trial-class funnel position.
type TrialStatus string

const (
	TrialRegistered TrialStatus = "TRIAL_REGISTERED"
	TrialAttended   TrialStatus = "TRIAL_ATTENDED"
)

// Student is an enrolled learner.
type Student struct {
	ID          int64        `db:"id" json:"id"`
	Name        string       `db:"name" json:"name"`
	ParentID    *int64       `db:"parent_id" json:"parent_id,omitempty"`
	TrialStatus *TrialStatus `db:"trial_status" json:"trial_status,omitempty"`
}
