package service

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/courtside/academy-api/internal/models"
	appErrors "github.com/courtside/academy-api/pkg/errors"
	"github.com/courtside/academy-api/pkg/export"
	"github.com/courtside/academy-api/pkg/geo"
)

type teachingScheduleRepository interface {
	FindByID(ctx context.Context, id int64) (*models.TeachingSchedule, error)
	ListByCourseBetween(ctx context.Context, courseID int64, from, to string) ([]models.TeachingSchedule, error)
	ListByUserBetween(ctx context.Context, userID int64, from, to string) ([]models.TeachingSchedule, error)
	Search(ctx context.Context, filter models.TeachingScheduleFilter) ([]models.TeachingSchedule, error)
	ApplyWeekDiff(ctx context.Context, create []models.TeachingSchedule, deleteIDs []int64) (created, deleted int, err error)
	MarkCheckedIn(ctx context.Context, id int64, at time.Time) error
	MarkCheckedOut(ctx context.Context, id int64, at time.Time) error
	UpdateStatus(ctx context.Context, id int64, status models.TeachingStatus) error
	MarkAbsentsForDate(ctx context.Context, date string) (int, error)
}

type activeCourseLister interface {
	FindByID(ctx context.Context, id int64) (*models.Course, error)
	ListActive(ctx context.Context) ([]models.Course, error)
}

type courseStaffLister interface {
	ListByCourse(ctx context.Context, courseID int64) ([]models.CourseStaff, error)
}

type courtLocator interface {
	Locate(ctx context.Context, courtID int64) (*models.Court, error)
}

// CheckInRequest carries the caller's reported location.
type CheckInRequest struct {
	UserID    int64   `json:"user_id" validate:"required"`
	Latitude  float64 `json:"latitude" validate:"required"`
	Longitude float64 `json:"longitude" validate:"required"`
}

// CheckOutRequest carries the caller's reported location.
type CheckOutRequest struct {
	UserID    int64   `json:"user_id" validate:"required"`
	Latitude  float64 `json:"latitude" validate:"required"`
	Longitude float64 `json:"longitude" validate:"required"`
}

// UpdateTeachingStatusRequest describes an admin status correction. When
// coordinates are supplied the geofence check applies; without them the
// correction bypasses it.
type UpdateTeachingStatusRequest struct {
	Status    models.TeachingStatus `json:"status" validate:"required"`
	Latitude  *float64              `json:"latitude"`
	Longitude *float64              `json:"longitude"`
}

// TeachingScheduleService maintains per-staff teaching slots: the weekly
// reconciler, the geofenced check-in/check-out flow and the daily sweep.
type TeachingScheduleService struct {
	repo        teachingScheduleRepository
	courses     activeCourseLister
	staff       courseStaffLister
	courts      courtLocator
	maxDistance float64
	validator   *validator.Validate
	logger      *zap.Logger
}

// NewTeachingScheduleService constructs TeachingScheduleService. maxDistance
// is the geofence radius in meters.
func NewTeachingScheduleService(repo teachingScheduleRepository, courses activeCourseLister, staff courseStaffLister, courts courtLocator, maxDistance float64, validate *validator.Validate, logger *zap.Logger) *TeachingScheduleService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if maxDistance <= 0 {
		maxDistance = 100
	}
	return &TeachingScheduleService{
		repo:        repo,
		courses:     courses,
		staff:       staff,
		courts:      courts,
		maxDistance: maxDistance,
		validator:   validate,
		logger:      logger,
	}
}

// ReconcileWeek aligns teaching slots for the upcoming week (next Sunday
// through Saturday) with current course schedules and staff assignments.
// courseID, when set, limits the run to that course. Matched rows keep their
// status untouched; only UPCOMING rows that no longer correspond to an
// expected slot are removed.
func (s *TeachingScheduleService) ReconcileWeek(ctx context.Context, now time.Time, courseID *int64) (*models.ReconcileResult, error) {
	anchor := models.WeekAnchor(now).AddDate(0, 0, 7)
	from := models.FormatDate(anchor)
	to := models.FormatDate(anchor.AddDate(0, 0, 6))
	result := &models.ReconcileResult{WeekStart: from}

	var courses []models.Course
	if courseID != nil {
		course, err := s.courses.FindByID(ctx, *courseID)
		if err != nil {
			if err == sql.ErrNoRows {
				return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
			}
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
		}
		if !course.Active {
			return nil, appErrors.Clone(appErrors.ErrValidation, "course is inactive")
		}
		courses = []models.Course{*course}
	} else {
		var err error
		courses, err = s.courses.ListActive(ctx)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list courses")
		}
	}

	for _, course := range courses {
		ws, parseErr := models.ParseWeeklySchedule(course.Schedule)
		if parseErr != nil {
			s.logger.Warn("skipping course with malformed schedule",
				zap.Int64("course_id", course.ID), zap.Error(parseErr))
			result.Skipped++
			continue
		}

		staff, staffErr := s.staff.ListByCourse(ctx, course.ID)
		if staffErr != nil {
			return nil, appErrors.Wrap(staffErr, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list course staff")
		}
		userIDs := make([]int64, 0, len(staff)+1)
		seen := make(map[int64]bool)
		for _, member := range staff {
			if !seen[member.UserID] {
				seen[member.UserID] = true
				userIDs = append(userIDs, member.UserID)
			}
		}
		// A course lead teaches even without an explicit staff row.
		if course.LeadID != nil && !seen[*course.LeadID] {
			userIDs = append(userIDs, *course.LeadID)
		}
		if len(userIDs) == 0 {
			result.Skipped++
			continue
		}

		expected := make(map[string]models.TeachingSchedule)
		for _, userID := range userIDs {
			for _, day := range ws.Days {
				date := models.FormatDate(models.DateForWeekday(anchor, day))
				slot := models.TeachingSchedule{
					UserID:   userID,
					CourseID: course.ID,
					Date:     date,
					Time:     ws.StartTime,
					Status:   models.TeachingUpcoming,
				}
				expected[slot.Key()] = slot
			}
		}

		current, listErr := s.repo.ListByCourseBetween(ctx, course.ID, from, to)
		if listErr != nil {
			return nil, appErrors.Wrap(listErr, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list teaching slots")
		}

		var deleteIDs []int64
		for _, row := range current {
			if _, ok := expected[row.Key()]; ok {
				delete(expected, row.Key())
				continue
			}
			if row.Status == models.TeachingUpcoming {
				deleteIDs = append(deleteIDs, row.ID)
			}
		}
		create := make([]models.TeachingSchedule, 0, len(expected))
		for _, slot := range expected {
			create = append(create, slot)
		}

		created, deleted, applyErr := s.repo.ApplyWeekDiff(ctx, create, deleteIDs)
		if applyErr != nil {
			return nil, appErrors.Wrap(applyErr, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to apply week diff")
		}
		result.Created += created
		result.Deleted += deleted
	}

	s.logger.Info("teaching schedule reconciled",
		zap.String("week_start", result.WeekStart),
		zap.Int("created", result.Created),
		zap.Int("deleted", result.Deleted),
		zap.Int("skipped", result.Skipped))
	return result, nil
}

// CheckIn moves a slot from UPCOMING to CHECKED_IN after verifying the caller
// stands within the geofence of the course's court.
func (s *TeachingScheduleService) CheckIn(ctx context.Context, id int64, req CheckInRequest) (*models.TeachingSchedule, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid check-in payload")
	}
	slot, err := s.loadOwnedSlot(ctx, id, req.UserID)
	if err != nil {
		return nil, err
	}
	switch slot.Status {
	case models.TeachingUpcoming:
	case models.TeachingCheckedIn, models.TeachingCheckedOut:
		return nil, appErrors.Clone(appErrors.ErrConflict, "already checked in")
	default:
		return nil, appErrors.Clone(appErrors.ErrConflict, fmt.Sprintf("slot is %s, not %s", slot.Status, models.TeachingUpcoming))
	}
	if err := s.verifyGeofence(ctx, slot.CourseID, req.Latitude, req.Longitude); err != nil {
		return nil, err
	}

	now := time.Now()
	if err := s.repo.MarkCheckedIn(ctx, id, now); err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrConflict, "already checked in")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check in")
	}
	slot.Status = models.TeachingCheckedIn
	slot.CheckinTime = &now
	return slot, nil
}

// CheckOut moves a slot from CHECKED_IN to CHECKED_OUT under the same
// geofence rule as check-in.
func (s *TeachingScheduleService) CheckOut(ctx context.Context, id int64, req CheckOutRequest) (*models.TeachingSchedule, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid check-out payload")
	}
	slot, err := s.loadOwnedSlot(ctx, id, req.UserID)
	if err != nil {
		return nil, err
	}
	if slot.Status == models.TeachingCheckedOut {
		return nil, appErrors.Clone(appErrors.ErrConflict, "already checked out")
	}
	if slot.Status != models.TeachingCheckedIn {
		return nil, appErrors.Clone(appErrors.ErrConflict, "not checked in")
	}
	if err := s.verifyGeofence(ctx, slot.CourseID, req.Latitude, req.Longitude); err != nil {
		return nil, err
	}

	now := time.Now()
	if err := s.repo.MarkCheckedOut(ctx, id, now); err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrConflict, "already checked out")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check out")
	}
	slot.Status = models.TeachingCheckedOut
	slot.CheckoutTime = &now
	return slot, nil
}

// UpdateStatus sets an arbitrary status on a slot. Admin corrections bypass
// the one-way check-in lifecycle.
func (s *TeachingScheduleService) UpdateStatus(ctx context.Context, id int64, req UpdateTeachingStatusRequest) (*models.TeachingSchedule, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid status payload")
	}
	if !req.Status.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown teaching status")
	}
	if req.Latitude != nil && req.Longitude != nil {
		current, loadErr := s.repo.FindByID(ctx, id)
		if loadErr != nil {
			if loadErr == sql.ErrNoRows {
				return nil, appErrors.Clone(appErrors.ErrNotFound, "teaching slot not found")
			}
			return nil, appErrors.Wrap(loadErr, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load teaching slot")
		}
		if err := s.verifyGeofence(ctx, current.CourseID, *req.Latitude, *req.Longitude); err != nil {
			return nil, err
		}
	}
	if err := s.repo.UpdateStatus(ctx, id, req.Status); err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "teaching slot not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update status")
	}
	slot, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load teaching slot")
	}
	return slot, nil
}

// MarkDailyAbsents flips every still-UPCOMING slot on the given date to
// ABSENT.
func (s *TeachingScheduleService) MarkDailyAbsents(ctx context.Context, date string) (int, error) {
	if _, err := models.ParseDate(date); err != nil {
		return 0, appErrors.Clone(appErrors.ErrValidation, "invalid date")
	}
	updated, err := s.repo.MarkAbsentsForDate(ctx, date)
	if err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to mark absents")
	}
	if updated > 0 {
		s.logger.Info("teaching absents marked", zap.String("date", date), zap.Int("updated", updated))
	}
	return updated, nil
}

// Search returns teaching slots matching the filter.
func (s *TeachingScheduleService) Search(ctx context.Context, filter models.TeachingScheduleFilter) ([]models.TeachingSchedule, error) {
	rows, err := s.repo.Search(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to search teaching schedule")
	}
	return rows, nil
}

// Get returns one teaching slot.
func (s *TeachingScheduleService) Get(ctx context.Context, id int64) (*models.TeachingSchedule, error) {
	slot, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "teaching slot not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load teaching slot")
	}
	return slot, nil
}

// ExportWeek builds a tabular dataset of one staff member's slots in the week
// starting at weekStart (a Sunday date).
func (s *TeachingScheduleService) ExportWeek(ctx context.Context, userID int64, weekStart string) (export.Dataset, error) {
	start, err := models.ParseDate(weekStart)
	if err != nil {
		return export.Dataset{}, appErrors.Clone(appErrors.ErrValidation, "invalid week start date")
	}
	from := models.FormatDate(models.WeekAnchor(start))
	to := models.FormatDate(models.WeekAnchor(start).AddDate(0, 0, 6))

	rows, err := s.repo.ListByUserBetween(ctx, userID, from, to)
	if err != nil {
		return export.Dataset{}, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list teaching slots")
	}

	courseNames := make(map[int64]string)
	dataset := export.Dataset{
		Headers: []string{"date", "time", "course", "status", "checkin_time", "checkout_time"},
	}
	for _, row := range rows {
		name, ok := courseNames[row.CourseID]
		if !ok {
			course, courseErr := s.courses.FindByID(ctx, row.CourseID)
			if courseErr != nil {
				name = fmt.Sprintf("course %d", row.CourseID)
			} else {
				name = course.Name
			}
			courseNames[row.CourseID] = name
		}
		dataset.Rows = append(dataset.Rows, map[string]string{
			"date":          row.Date,
			"time":          row.Time,
			"course":        name,
			"status":        string(row.Status),
			"checkin_time":  formatClock(row.CheckinTime),
			"checkout_time": formatClock(row.CheckoutTime),
		})
	}
	return dataset, nil
}

func (s *TeachingScheduleService) loadOwnedSlot(ctx context.Context, id, userID int64) (*models.TeachingSchedule, error) {
	slot, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "teaching slot not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load teaching slot")
	}
	if slot.UserID != userID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "slot belongs to another staff member")
	}
	return slot, nil
}

func (s *TeachingScheduleService) verifyGeofence(ctx context.Context, courseID int64, lat, lon float64) error {
	course, err := s.courses.FindByID(ctx, courseID)
	if err != nil {
		if err == sql.ErrNoRows {
			return appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
	}
	court, err := s.courts.Locate(ctx, course.CourtID)
	if err != nil {
		if err == sql.ErrNoRows {
			return appErrors.Clone(appErrors.ErrNotFound, "court not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load court")
	}
	if !court.HasCoordinates() {
		return appErrors.Clone(appErrors.ErrValidation, "court location is not configured")
	}

	distance := geo.Distance(lat, lon, *court.Latitude, *court.Longitude)
	if distance > s.maxDistance {
		return appErrors.Clone(appErrors.ErrGeofence,
			fmt.Sprintf("you are %.0fm from %s; check-in requires being within %.0fm", distance, court.Name, s.maxDistance))
	}
	return nil
}

func formatClock(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format("15:04")
}
