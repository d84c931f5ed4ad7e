package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/courtside/academy-api/internal/models"
)

const teachingScheduleColumns = "id, user_id, course_id, date, time, status, checkin_time, checkout_time, created_at, updated_at"

// TeachingScheduleRepository persists teaching-schedule rows.
type TeachingScheduleRepository struct {
	db *sqlx.DB
}

func NewTeachingScheduleRepository(db *sqlx.DB) *TeachingScheduleRepository {
	return &TeachingScheduleRepository{db: db}
}

func (r *TeachingScheduleRepository) FindByID(ctx context.Context, id int64) (*models.TeachingSchedule, error) {
	query := "SELECT " + teachingScheduleColumns + " FROM teaching_schedule WHERE id = $1"

	var ts models.TeachingSchedule
	if err := r.db.GetContext(ctx, &ts, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find teaching schedule %d: %w", id, err)
	}
	return &ts, nil
}

// ListByCourseBetween returns every teaching slot for one course whose date
// falls inside [from, to], both "YYYY-MM-DD" inclusive.
func (r *TeachingScheduleRepository) ListByCourseBetween(ctx context.Context, courseID int64, from, to string) ([]models.TeachingSchedule, error) {
	query := "SELECT " + teachingScheduleColumns + ` FROM teaching_schedule
		WHERE course_id = $1 AND date >= $2 AND date <= $3
		ORDER BY date, time`

	var rows []models.TeachingSchedule
	if err := r.db.SelectContext(ctx, &rows, query, courseID, from, to); err != nil {
		return nil, fmt.Errorf("list teaching schedule for course %d: %w", courseID, err)
	}
	return rows, nil
}

// ListByUserBetween returns every teaching slot for one staff member whose
// date falls inside [from, to], both "YYYY-MM-DD" inclusive.
func (r *TeachingScheduleRepository) ListByUserBetween(ctx context.Context, userID int64, from, to string) ([]models.TeachingSchedule, error) {
	query := "SELECT " + teachingScheduleColumns + ` FROM teaching_schedule
		WHERE user_id = $1 AND date >= $2 AND date <= $3
		ORDER BY date, time`

	var rows []models.TeachingSchedule
	if err := r.db.SelectContext(ctx, &rows, query, userID, from, to); err != nil {
		return nil, fmt.Errorf("list teaching schedule for user %d: %w", userID, err)
	}
	return rows, nil
}

func (r *TeachingScheduleRepository) Search(ctx context.Context, filter models.TeachingScheduleFilter) ([]models.TeachingSchedule, error) {
	query := "SELECT " + teachingScheduleColumns + " FROM teaching_schedule WHERE 1=1"
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
	if filter.Date != "" {
		conditions = append(conditions, "date = ?")
		args = append(args, filter.Date)
	}
	if filter.Time != "" {
		conditions = append(conditions, "time = ?")
		args = append(args, filter.Time)
	}
	if filter.Status != nil {
		conditions = append(conditions, "status = ?")
		args = append(args, string(*filter.Status))
	}

	if len(conditions) > 0 {
		query += " AND " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY date, time, id"

	query, expanded, err := sqlx.In(query, args...)
	if err != nil {
		return nil, fmt.Errorf("build teaching schedule search: %w", err)
	}
	query = r.db.Rebind(query)

	var rows []models.TeachingSchedule
	if err := r.db.SelectContext(ctx, &rows, query, expanded...); err != nil {
		return nil, fmt.Errorf("search teaching schedule: %w", err)
	}
	return rows, nil
}

func (r *TeachingScheduleRepository) Create(ctx context.Context, ts *models.TeachingSchedule) error {
	query := `INSERT INTO teaching_schedule (user_id, course_id, date, time, status)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at, updated_at`

	err := r.db.QueryRowxContext(ctx, query,
		ts.UserID, ts.CourseID, ts.Date, ts.Time, string(ts.Status),
	).Scan(&ts.ID, &ts.CreatedAt, &ts.UpdatedAt)
	if err != nil {
		return fmt.Errorf("create teaching schedule: %w", err)
	}
	return nil
}

func (r *TeachingScheduleRepository) Delete(ctx context.Context, id int64) error {
	result, err := r.db.ExecContext(ctx, "DELETE FROM teaching_schedule WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("delete teaching schedule %d: %w", id, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete teaching schedule %d: %w", id, err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// ApplyWeekDiff creates and deletes teaching slots for one course inside a
// single transaction, so a half-applied reconciliation never survives a crash.
func (r *TeachingScheduleRepository) ApplyWeekDiff(ctx context.Context, create []models.TeachingSchedule, deleteIDs []int64) (created, deleted int, err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, 0, fmt.Errorf("begin week diff: %w", err)
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	insertQuery := `INSERT INTO teaching_schedule (user_id, course_id, date, time, status)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (user_id, course_id, date, time) DO NOTHING`

	for i := range create {
		row := create[i]
		result, execErr := tx.ExecContext(ctx, insertQuery,
			row.UserID, row.CourseID, row.Date, row.Time, string(row.Status))
		if execErr != nil {
			err = fmt.Errorf("insert teaching slot for user %d on %s: %w", row.UserID, row.Date, execErr)
			return created, deleted, err
		}
		affected, raErr := result.RowsAffected()
		if raErr != nil {
			err = fmt.Errorf("insert teaching slot for user %d on %s: %w", row.UserID, row.Date, raErr)
			return created, deleted, err
		}
		created += int(affected)
	}

	if len(deleteIDs) > 0 {
		deleteQuery, args, inErr := sqlx.In("DELETE FROM teaching_schedule WHERE id IN (?)", deleteIDs)
		if inErr != nil {
			err = fmt.Errorf("build week diff delete: %w", inErr)
			return created, deleted, err
		}
		result, execErr := tx.ExecContext(ctx, tx.Rebind(deleteQuery), args...)
		if execErr != nil {
			err = fmt.Errorf("delete stale teaching slots: %w", execErr)
			return created, deleted, err
		}
		affected, raErr := result.RowsAffected()
		if raErr != nil {
			err = fmt.Errorf("delete stale teaching slots: %w", raErr)
			return created, deleted, err
		}
		deleted = int(affected)
	}

	if err = tx.Commit(); err != nil {
		err = fmt.Errorf("commit week diff: %w", err)
		return created, deleted, err
	}
	return created, deleted, nil
}

// MarkCheckedIn moves a slot from UPCOMING to CHECKED_IN. Returns
// sql.ErrNoRows when the slot is missing or not in UPCOMING, so concurrent
// check-ins cannot both succeed.
func (r *TeachingScheduleRepository) MarkCheckedIn(ctx context.Context, id int64, at time.Time) error {
	query := `UPDATE teaching_schedule
		SET status = $1, checkin_time = $2, updated_at = NOW()
		WHERE id = $3 AND status = $4`

	result, err := r.db.ExecContext(ctx, query,
		string(models.TeachingCheckedIn), at, id, string(models.TeachingUpcoming))
	if err != nil {
		return fmt.Errorf("mark checked in %d: %w", id, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("mark checked in %d: %w", id, err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// MarkCheckedOut moves a slot from CHECKED_IN to CHECKED_OUT. Returns
// sql.ErrNoRows when the slot is missing or not in CHECKED_IN.
func (r *TeachingScheduleRepository) MarkCheckedOut(ctx context.Context, id int64, at time.Time) error {
	query := `UPDATE teaching_schedule
		SET status = $1, checkout_time = $2, updated_at = NOW()
		WHERE id = $3 AND status = $4`

	result, err := r.db.ExecContext(ctx, query,
		string(models.TeachingCheckedOut), at, id, string(models.TeachingCheckedIn))
	if err != nil {
		return fmt.Errorf("mark checked out %d: %w", id, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("mark checked out %d: %w", id, err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// UpdateStatus sets an arbitrary status on a slot. Used by the admin
// correction endpoint, not by the check-in flow.
func (r *TeachingScheduleRepository) UpdateStatus(ctx context.Context, id int64, status models.TeachingStatus) error {
	query := `UPDATE teaching_schedule
		SET status = $1, updated_at = NOW()
		WHERE id = $2`

	result, err := r.db.ExecContext(ctx, query, string(status), id)
	if err != nil {
		return fmt.Errorf("update teaching schedule status %d: %w", id, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update teaching schedule status %d: %w", id, err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// MarkAbsentsForDate flips every still-UPCOMING slot on the given date to
// ABSENT and returns the number of rows changed.
func (r *TeachingScheduleRepository) MarkAbsentsForDate(ctx context.Context, date string) (int, error) {
	query := `UPDATE teaching_schedule
		SET status = $1, updated_at = NOW()
		WHERE date = $2 AND status = $3`

	result, err := r.db.ExecContext(ctx, query,
		string(models.TeachingAbsent), date, string(models.TeachingUpcoming))
	if err != nil {
		return 0, fmt.Errorf("mark teaching absents for %s: %w", date, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("mark teaching absents for %s: %w", date, err)
	}
	return int(affected), nil
}
