package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/courtside/academy-api/internal/models"
)

func newAttendanceRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func attendanceRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "student_id", "course_id", "date", "time", "status", "is_trial", "created_at", "updated_at"})
}

func TestAttendanceRepositoryFindByID(t *testing.T) {
	db, mock, cleanup := newAttendanceRepoMock(t)
	defer cleanup()

	repo := NewAttendanceRepository(db)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, student_id, course_id, date, time, status")).
		WithArgs(int64(7)).
		WillReturnRows(attendanceRows().
			AddRow(7, 3, 12, "2026-09-06", "14:00", "NOT_CHECKED_IN", false, time.Now(), nil))

	att, err := repo.FindByID(context.Background(), 7)
	require.NoError(t, err)
	require.Equal(t, int64(3), att.StudentID)
	require.Equal(t, models.AttendanceNotCheckedIn, att.Status)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAttendanceRepositorySearchFilters(t *testing.T) {
	db, mock, cleanup := newAttendanceRepoMock(t)
	defer cleanup()

	repo := NewAttendanceRepository(db)
	status := models.AttendanceCheckedIn
	courseID := int64(12)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, student_id, course_id, date, time, status")).
		WithArgs(courseID, "2026-09-06", string(status)).
		WillReturnRows(attendanceRows().
			AddRow(1, 3, 12, "2026-09-06", "14:00", "CHECKED_IN", false, time.Now(), nil))

	rows, err := repo.Search(context.Background(), models.AttendanceFilter{
		CourseID: &courseID,
		Date:     "2026-09-06",
		Status:   &status,
	})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.Equal(t, models.AttendanceCheckedIn, rows[0].Status)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAttendanceRepositoryBulkInsertSkipsExisting(t *testing.T) {
	db, mock, cleanup := newAttendanceRepoMock(t)
	defer cleanup()

	repo := NewAttendanceRepository(db)
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO attendance")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO attendance")).
		WillReturnResult(sqlmock.NewResult(0, 0)) // duplicate tuple, skipped

	inserted, err := repo.BulkInsertIfAbsent(context.Background(), []models.Attendance{
		{StudentID: 3, CourseID: 12, Date: "2026-09-06", Time: "14:00", Status: models.AttendanceNotCheckedIn},
		{StudentID: 3, CourseID: 12, Date: "2026-09-08", Time: "14:00", Status: models.AttendanceNotCheckedIn},
	})
	require.NoError(t, err)
	require.Equal(t, 1, inserted)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAttendanceRepositoryMarkAbsentsForDate(t *testing.T) {
	db, mock, cleanup := newAttendanceRepoMock(t)
	defer cleanup()

	repo := NewAttendanceRepository(db)
	mock.ExpectExec(regexp.QuoteMeta("UPDATE attendance")).
		WithArgs("ABSENT_NO_REASON", "2026-09-06", "NOT_CHECKED_IN").
		WillReturnResult(sqlmock.NewResult(0, 4))

	updated, err := repo.MarkAbsentsForDate(context.Background(), "2026-09-06")
	require.NoError(t, err)
	require.Equal(t, 4, updated)
	require.NoError(t, mock.ExpectationsWereMet())
}
