package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/courtside/academy-api/internal/models"
)

type attendanceSweeper interface {
	MarkDailyAbsents(ctx context.Context, date string) (int, error)
}

type teachingSweeper interface {
	MarkDailyAbsents(ctx context.Context, date string) (int, error)
}

// SweepService runs the end-of-day absence sweep: attendance rows and
// teaching slots still pending for the day are both flipped to their absent
// states. It only ever touches the given date, so sessions on later dates are
// never affected by a late-running sweep.
type SweepService struct {
	attendance attendanceSweeper
	teaching   teachingSweeper
	logger     *zap.Logger
}

// NewSweepService constructs SweepService.
func NewSweepService(attendance attendanceSweeper, teaching teachingSweeper, logger *zap.Logger) *SweepService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SweepService{attendance: attendance, teaching: teaching, logger: logger}
}

// Run sweeps the calendar date containing now.
func (s *SweepService) Run(ctx context.Context, now time.Time) (*models.SweepResult, error) {
	return s.RunForDate(ctx, models.FormatDate(now))
}

// RunForDate sweeps one specific date. The two sides are independent: a
// failing attendance sweep never stops the teaching sweep, and vice versa.
// Re-running is safe; rows already flipped no longer match and stay untouched.
func (s *SweepService) RunForDate(ctx context.Context, date string) (*models.SweepResult, error) {
	result := &models.SweepResult{Date: date}
	var errs []error

	attendanceUpdated, err := s.attendance.MarkDailyAbsents(ctx, date)
	if err != nil {
		s.logger.Error("attendance sweep failed", zap.String("date", date), zap.Error(err))
		errs = append(errs, fmt.Errorf("attendance sweep: %w", err))
	} else {
		result.AttendanceUpdated = attendanceUpdated
	}

	teachingUpdated, err := s.teaching.MarkDailyAbsents(ctx, date)
	if err != nil {
		s.logger.Error("teaching sweep failed", zap.String("date", date), zap.Error(err))
		errs = append(errs, fmt.Errorf("teaching sweep: %w", err))
	} else {
		result.TeachingScheduleUpdated = teachingUpdated
	}

	if len(errs) > 0 {
		return result, errors.Join(errs...)
	}
	s.logger.Info("daily absence sweep finished",
		zap.String("date", result.Date),
		zap.Int("attendance_updated", result.AttendanceUpdated),
		zap.Int("teaching_updated", result.TeachingScheduleUpdated))
	return result, nil
}
