package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/courtside/academy-api/internal/models"
)

const attendanceColumns = "id, student_id, course_id, date, time, status, is_trial, created_at, updated_at"

// AttendanceRepository persists attendance rows.
type AttendanceRepository struct {
	db *sqlx.DB
}

func NewAttendanceRepository(db *sqlx.DB) *AttendanceRepository {
	return &AttendanceRepository{db: db}
}

func (r *AttendanceRepository) FindByID(ctx context.Context, id int64) (*models.Attendance, error) {
	query := "SELECT " + attendanceColumns + " FROM attendance WHERE id = $1"

	var att models.Attendance
	if err := r.db.GetContext(ctx, &att, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find attendance %d: %w", id, err)
	}
	return &att, nil
}

// ListByStudentCourse returns every attendance row for one student in one
// course, ordered by session date.
func (r *AttendanceRepository) ListByStudentCourse(ctx context.Context, studentID, courseID int64) ([]models.Attendance, error) {
	query := "SELECT " + attendanceColumns + ` FROM attendance
		WHERE student_id = $1 AND course_id = $2
		ORDER BY date, time`

	var rows []models.Attendance
	if err := r.db.SelectContext(ctx, &rows, query, studentID, courseID); err != nil {
		return nil, fmt.Errorf("list attendance for student %d course %d: %w", studentID, courseID, err)
	}
	return rows, nil
}

func (r *AttendanceRepository) Search(ctx context.Context, filter models.AttendanceFilter) ([]models.Attendance, error) {
	query := "SELECT " + attendanceColumns + " FROM attendance WHERE 1=1"
	var conditions []string
	var args []interface{}

	if filter.StudentID != nil {
		conditions = append(conditions, "student_id = ?")
		args = append(args, *filter.StudentID)
	}
	if filter.CourseID != nil {
		conditions = append(conditions, "course_id = ?")
		args = append(args, *filter.CourseID)
	}
	if filter.Date != "" {
		conditions = append(conditions, "date = ?")
		args = append(args, filter.Date)
	}
	if filter.DateFrom != "" {
		conditions = append(conditions, "date >= ?")
		args = append(args, filter.DateFrom)
	}
	if filter.DateTo != "" {
		conditions = append(conditions, "date <= ?")
		args = append(args, filter.DateTo)
	}
	if filter.Status != nil {
		conditions = append(conditions, "status = ?")
		args = append(args, string(*filter.Status))
	}
	if filter.IsTrial != nil {
		conditions = append(conditions, "is_trial = ?")
		args = append(args, *filter.IsTrial)
	}

	if len(conditions) > 0 {
		query += " AND " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY date, time, id"

	query, expanded, err := sqlx.In(query, args...)
	if err != nil {
		return nil, fmt.Errorf("build attendance search: %w", err)
	}
	query = r.db.Rebind(query)

	var rows []models.Attendance
	if err := r.db.SelectContext(ctx, &rows, query, expanded...); err != nil {
		return nil, fmt.Errorf("search attendance: %w", err)
	}
	return rows, nil
}

func (r *AttendanceRepository) Create(ctx context.Context, att *models.Attendance) error {
	query := `INSERT INTO attendance (student_id, course_id, date, time, status, is_trial)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at, updated_at`

	err := r.db.QueryRowxContext(ctx, query,
		att.StudentID, att.CourseID, att.Date, att.Time, string(att.Status), att.IsTrial,
	).Scan(&att.ID, &att.CreatedAt, &att.UpdatedAt)
	if err != nil {
		return fmt.Errorf("create attendance: %w", err)
	}
	return nil
}

func (r *AttendanceRepository) Update(ctx context.Context, att *models.Attendance) error {
	query := `UPDATE attendance
		SET date = $1, time = $2, status = $3, is_trial = $4, updated_at = NOW()
		WHERE id = $5`

	result, err := r.db.ExecContext(ctx, query,
		att.Date, att.Time, string(att.Status), att.IsTrial, att.ID)
	if err != nil {
		return fmt.Errorf("update attendance %d: %w", att.ID, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update attendance %d: %w", att.ID, err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func (r *AttendanceRepository) Delete(ctx context.Context, id int64) error {
	result, err := r.db.ExecContext(ctx, "DELETE FROM attendance WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("delete attendance %d: %w", id, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete attendance %d: %w", id, err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// BulkInsertIfAbsent inserts the given rows, silently skipping any whose
// (student_id, course_id, date, time) tuple already exists. Returns the
// number of rows actually inserted.
func (r *AttendanceRepository) BulkInsertIfAbsent(ctx context.Context, rows []models.Attendance) (int, error) {
	if len(rows) == 0 {
		return 0, nil
	}

	query := `INSERT INTO attendance (student_id, course_id, date, time, status, is_trial)
		VALUES (:student_id, :course_id, :date, :time, :status, :is_trial)
		ON CONFLICT (student_id, course_id, date, time) DO NOTHING`

	inserted := 0
	for i := range rows {
		result, err := r.db.NamedExecContext(ctx, query, rows[i])
		if err != nil {
			return inserted, fmt.Errorf("insert attendance for student %d on %s: %w", rows[i].StudentID, rows[i].Date, err)
		}
		affected, err := result.RowsAffected()
		if err != nil {
			return inserted, fmt.Errorf("insert attendance for student %d on %s: %w", rows[i].StudentID, rows[i].Date, err)
		}
		inserted += int(affected)
	}
	return inserted, nil
}

// MarkAbsentsForDate flips every still-pending row on the given date to
// unexcused absence and returns the number of rows changed.
func (r *AttendanceRepository) MarkAbsentsForDate(ctx context.Context, date string) (int, error) {
	query := `UPDATE attendance
		SET status = $1, updated_at = NOW()
		WHERE date = $2 AND status = $3`

	result, err := r.db.ExecContext(ctx, query,
		string(models.AttendanceAbsentNoReason), date, string(models.AttendanceNotCheckedIn))
	if err != nil {
		return 0, fmt.Errorf("mark absents for %s: %w", date, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("mark absents for %s: %w", date, err)
	}
	return int(affected), nil
}
