package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubSweeper struct {
	dates   []string
	updated int
	err     error
}

func (s *stubSweeper) MarkDailyAbsents(ctx context.Context, date string) (int, error) {
	s.dates = append(s.dates, date)
	if s.err != nil {
		return 0, s.err
	}
	return s.updated, nil
}

func TestSweepRunsBothSidesForOneDate(t *testing.T) {
	attendance := &stubSweeper{updated: 3}
	teaching := &stubSweeper{updated: 2}
	svc := NewSweepService(attendance, teaching, nil)

	now := time.Date(2026, 9, 6, 23, 59, 0, 0, time.Local)
	result, err := svc.Run(context.Background(), now)
	require.NoError(t, err)

	assert.Equal(t, "2026-09-06", result.Date)
	assert.Equal(t, 3, result.AttendanceUpdated)
	assert.Equal(t, 2, result.TeachingScheduleUpdated)
	assert.Equal(t, []string{"2026-09-06"}, attendance.dates)
	assert.Equal(t, []string{"2026-09-06"}, teaching.dates)
}

func TestSweepSidesAreIndependent(t *testing.T) {
	attendance := &stubSweeper{err: errors.New("attendance table locked")}
	teaching := &stubSweeper{updated: 2}
	svc := NewSweepService(attendance, teaching, nil)

	result, err := svc.RunForDate(context.Background(), "2026-09-06")
	require.Error(t, err)
	assert.ErrorContains(t, err, "attendance sweep")

	// the teaching side still ran and its count is reported
	assert.Equal(t, []string{"2026-09-06"}, teaching.dates)
	require.NotNil(t, result)
	assert.Equal(t, 2, result.TeachingScheduleUpdated)
	assert.Zero(t, result.AttendanceUpdated)
}

func TestSweepReportsBothSidesFailing(t *testing.T) {
	attendance := &stubSweeper{err: errors.New("attendance down")}
	teaching := &stubSweeper{err: errors.New("teaching down")}
	svc := NewSweepService(attendance, teaching, nil)

	_, err := svc.RunForDate(context.Background(), "2026-09-06")
	require.Error(t, err)
	assert.ErrorContains(t, err, "attendance sweep")
	assert.ErrorContains(t, err, "teaching sweep")
	assert.NotEmpty(t, attendance.dates)
	assert.NotEmpty(t, teaching.dates)
}

func TestSweepRerunTouchesNothingNew(t *testing.T) {
	attendance := &stubSweeper{}
	teaching := &stubSweeper{}
	svc := NewSweepService(attendance, teaching, nil)

	result, err := svc.RunForDate(context.Background(), "2026-09-06")
	require.NoError(t, err)
	assert.Zero(t, result.AttendanceUpdated)
	assert.Zero(t, result.TeachingScheduleUpdated)
}
