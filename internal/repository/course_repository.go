package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/courtside/academy-api/internal/models"
)

const courseColumns = "id, course_name, summary, schedule, court_id, lead_id, status"

// CourseRepository provides read access to courses. Course creation and
// editing live in the course management surface; this service only consumes
// schedule, court and lead data.
type CourseRepository struct {
	db *sqlx.DB
}

// NewCourseRepository creates a new course repository.
func NewCourseRepository(db *sqlx.DB) *CourseRepository {
	return &CourseRepository{db: db}
}

// FindByID loads a course by id.
func (r *CourseRepository) FindByID(ctx context.Context, id int64) (*models.Course, error) {
	query := fmt.Sprintf("SELECT %s FROM course WHERE id = $1", courseColumns)
	var course models.Course
	if err := r.db.GetContext(ctx, &course, query, id); err != nil {
		return nil, err
	}
	return &course, nil
}

// ListActive returns all active courses.
func (r *CourseRepository) ListActive(ctx context.Context) ([]models.Course, error) {
	query := fmt.Sprintf("SELECT %s FROM course WHERE status = TRUE ORDER BY id", courseColumns)
	var courses []models.Course
	if err := r.db.SelectContext(ctx, &courses, query); err != nil {
		return nil, fmt.Errorf("list active courses: %w", err)
	}
	return courses, nil
}

// ListActiveByIDs returns the active courses among the given ids.
func (r *CourseRepository) ListActiveByIDs(ctx context.Context, ids []int64) ([]models.Course, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	query, args, err := sqlx.In(
		fmt.Sprintf("SELECT %s FROM course WHERE status = TRUE AND id IN (?)", courseColumns), ids)
	if err != nil {
		return nil, fmt.Errorf("build course id query: %w", err)
	}
	query = r.db.Rebind(query)
	var courses []models.Course
	if err := r.db.SelectContext(ctx, &courses, query, args...); err != nil {
		return nil, fmt.Errorf("list courses by ids: %w", err)
	}
	return courses, nil
}

// ListActiveByLead returns active courses where the user is the lead.
func (r *CourseRepository) ListActiveByLead(ctx context.Context, userID int64) ([]models.Course, error) {
	query := fmt.Sprintf("SELECT %s FROM course WHERE status = TRUE AND lead_id = $1", courseColumns)
	var courses []models.Course
	if err := r.db.SelectContext(ctx, &courses, query, userID); err != nil {
		return nil, fmt.Errorf("list courses by lead: %w", err)
	}
	return courses, nil
}
