package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// CourseStudentRepository reads course enrollments. Enrollment CRUD lives in
// the student management surface.
type CourseStudentRepository struct {
	db *sqlx.DB
}

// NewCourseStudentRepository creates a new enrollment repository.
func NewCourseStudentRepository(db *sqlx.DB) *CourseStudentRepository {
	return &CourseStudentRepository{db: db}
}

// ListActiveCourseIDs returns the ids of courses the student is actively
// enrolled in.
func (r *CourseStudentRepository) ListActiveCourseIDs(ctx context.Context, studentID int64) ([]int64, error) {
	const query = `SELECT course_id FROM course_student WHERE student_id = $1 AND status = TRUE ORDER BY course_id`
	var ids []int64
	if err := r.db.SelectContext(ctx, &ids, query, studentID); err != nil {
		return nil, fmt.Errorf("list active course ids: %w", err)
	}
	return ids, nil
}

// ListStudentIDsWithActiveEnrollment returns distinct students with at least
// one active enrollment, used by batch attendance generation.
func (r *CourseStudentRepository) ListStudentIDsWithActiveEnrollment(ctx context.Context) ([]int64, error) {
	const query = `SELECT DISTINCT student_id FROM course_student WHERE status = TRUE ORDER BY student_id`
	var ids []int64
	if err := r.db.SelectContext(ctx, &ids, query); err != nil {
		return nil, fmt.Errorf("list enrolled student ids: %w", err)
	}
	return ids, nil
}
