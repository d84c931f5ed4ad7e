package models

// Subscription is a purchased session package for a student. StartDate is a
// UNIX timestamp (seconds) marking the first eligible session day; the
// generator reads the first active, non-deleted subscription per student.
type Subscription struct {
	ID        int64  `db:"subscription_id" json:"subscription_id"`
	StudentID int64  `db:"student_id" json:"student_id"`
	PackageID int64  `db:"package_id" json:"package_id"`
	Quantity  int    `db:"quantity" json:"quantity"`
	StartDate *int64 `db:"start_date" json:"start_date,omitempty"`
	Status    int    `db:"status" json:"status"`
	Deleted   int    `db:"deleted" json:"deleted"`
}

// Package is a session bundle from the price catalog. Quantity is the number
// of sessions a subscription to this package entitles a student to.
type Package struct {
	ID       int64  `db:"package_id" json:"package_id"`
	Name     string `db:"package_name" json:"package_name"`
	Quantity int    `db:"quantity" json:"quantity"`
}
