package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/courtside/academy-api/internal/models"
)

// CourseStaffRepository provides persistence for course staff assignments.
type CourseStaffRepository struct {
	db *sqlx.DB
}

// NewCourseStaffRepository creates a new course staff repository.
func NewCourseStaffRepository(db *sqlx.DB) *CourseStaffRepository {
	return &CourseStaffRepository{db: db}
}

// FindByID loads an assignment by id.
func (r *CourseStaffRepository) FindByID(ctx context.Context, id int64) (*models.CourseStaff, error) {
	const query = `SELECT id, course_id, user_id, role FROM course_staff WHERE id = $1`
	var staff models.CourseStaff
	if err := r.db.GetContext(ctx, &staff, query, id); err != nil {
		return nil, err
	}
	return &staff, nil
}

// ListByUser returns all assignments for a user.
func (r *CourseStaffRepository) ListByUser(ctx context.Context, userID int64) ([]models.CourseStaff, error) {
	const query = `SELECT id, course_id, user_id, role FROM course_staff WHERE user_id = $1 ORDER BY id`
	var staff []models.CourseStaff
	if err := r.db.SelectContext(ctx, &staff, query, userID); err != nil {
		return nil, fmt.Errorf("list course staff by user: %w", err)
	}
	return staff, nil
}

// ListByCourse returns all assignments for a course.
func (r *CourseStaffRepository) ListByCourse(ctx context.Context, courseID int64) ([]models.CourseStaff, error) {
	const query = `SELECT id, course_id, user_id, role FROM course_staff WHERE course_id = $1 ORDER BY id`
	var staff []models.CourseStaff
	if err := r.db.SelectContext(ctx, &staff, query, courseID); err != nil {
		return nil, fmt.Errorf("list course staff by course: %w", err)
	}
	return staff, nil
}

// Search returns assignments matching the filter.
func (r *CourseStaffRepository) Search(ctx context.Context, filter models.CourseStaffFilter) ([]models.CourseStaff, error) {
	query := "SELECT id, course_id, user_id, role FROM course_staff WHERE 1=1"
	var conditions []string
	var args []interface{}

	if filter.CourseID != nil {
		conditions = append(conditions, "course_id = ?")
		args = append(args, *filter.CourseID)
	}
	if filter.UserID != nil {
		conditions = append(conditions, "user_id = ?")
		args = append(args, *filter.UserID)
	}
	if len(filter.CourseIDs) > 0 {
		conditions = append(conditions, "course_id IN (?)")
		args = append(args, filter.CourseIDs)
	}

	if len(conditions) > 0 {
		query += " AND " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY id"

	query, expanded, err := sqlx.In(query, args...)
	if err != nil {
		return nil, fmt.Errorf("build course staff search: %w", err)
	}
	query = r.db.Rebind(query)

	var staff []models.CourseStaff
	if err := r.db.SelectContext(ctx, &staff, query, expanded...); err != nil {
		return nil, fmt.Errorf("search course staff: %w", err)
	}
	return staff, nil
}

// Create stores a new assignment.
func (r *CourseStaffRepository) Create(ctx context.Context, staff *models.CourseStaff) error {
	const query = `INSERT INTO course_staff (course_id, user_id, role) VALUES ($1, $2, $3) RETURNING id`
	if err := r.db.GetContext(ctx, &staff.ID, query, staff.CourseID, staff.UserID, staff.Role); err != nil {
		return fmt.Errorf("create course staff: %w", err)
	}
	return nil
}

// Update modifies an existing assignment.
func (r *CourseStaffRepository) Update(ctx context.Context, staff *models.CourseStaff) error {
	const query = `UPDATE course_staff SET course_id = $2, user_id = $3, role = $4 WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, staff.ID, staff.CourseID, staff.UserID, staff.Role)
	if err != nil {
		return fmt.Errorf("update course staff: %w", err)
	}
	if affected, _ := result.RowsAffected(); affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// Delete removes an assignment by id.
func (r *CourseStaffRepository) Delete(ctx context.Context, id int64) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM course_staff WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete course staff: %w", err)
	}
	if affected, _ := result.RowsAffected(); affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
