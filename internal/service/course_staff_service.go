package service

import (
	"context"
	"database/sql"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/courtside/academy-api/internal/models"
	appErrors "github.com/courtside/academy-api/pkg/errors"
)

type courseStaffRepository interface {
	FindByID(ctx context.Context, id int64) (*models.CourseStaff, error)
	ListByUser(ctx context.Context, userID int64) ([]models.CourseStaff, error)
	Search(ctx context.Context, filter models.CourseStaffFilter) ([]models.CourseStaff, error)
	Create(ctx context.Context, staff *models.CourseStaff) error
	Update(ctx context.Context, staff *models.CourseStaff) error
	Delete(ctx context.Context, id int64) error
}

type conflictCourseReader interface {
	FindByID(ctx context.Context, id int64) (*models.Course, error)
	ListActiveByIDs(ctx context.Context, ids []int64) ([]models.Course, error)
	ListActiveByLead(ctx context.Context, userID int64) ([]models.Course, error)
}

// AssignStaffRequest describes a staff assignment.
type AssignStaffRequest struct {
	CourseID int64            `json:"course_id" validate:"required"`
	UserID   int64            `json:"user_id" validate:"required"`
	Role     models.StaffRole `json:"role" validate:"required"`
}

// CourseStaffService manages staff assignments, gating every assignment
// behind the weekly schedule conflict check.
type CourseStaffService struct {
	repo      courseStaffRepository
	courses   conflictCourseReader
	validator *validator.Validate
	logger    *zap.Logger
}

// NewCourseStaffService constructs CourseStaffService.
func NewCourseStaffService(repo courseStaffRepository, courses conflictCourseReader, validate *validator.Validate, logger *zap.Logger) *CourseStaffService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CourseStaffService{repo: repo, courses: courses, validator: validate, logger: logger}
}

// CheckConflict reports whether assigning the user to the course would put
// them in two places at once. excludeAssignmentID, when set, ignores that
// assignment row so a reassignment is not blocked by the row it replaces.
// Courses whose schedule descriptor does not parse are ignored rather than
// blocking the assignment.
func (s *CourseStaffService) CheckConflict(ctx context.Context, userID, courseID int64, excludeAssignmentID *int64) (*models.ScheduleConflictError, error) {
	candidate, err := s.courses.FindByID(ctx, courseID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
	}
	// An inactive course occupies no slot, and a candidate without a parsable
	// schedule has nothing to compare: both pass without a check.
	if !candidate.Active {
		return nil, nil
	}
	candidateSchedule, err := models.ParseWeeklySchedule(candidate.Schedule)
	if err != nil {
		s.logger.Warn("skipping conflict check for malformed schedule",
			zap.Int64("course_id", courseID), zap.Error(err))
		return nil, nil
	}

	// The user's existing commitments: explicit staff rows plus any courses
	// they lead.
	assignments, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list assignments")
	}
	seen := map[int64]bool{courseID: true}
	var courseIDs []int64
	for _, a := range assignments {
		if excludeAssignmentID != nil && a.ID == *excludeAssignmentID {
			continue
		}
		if !seen[a.CourseID] {
			seen[a.CourseID] = true
			courseIDs = append(courseIDs, a.CourseID)
		}
	}
	led, err := s.courses.ListActiveByLead(ctx, userID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list led courses")
	}

	existing := led
	if len(courseIDs) > 0 {
		assigned, listErr := s.courses.ListActiveByIDs(ctx, courseIDs)
		if listErr != nil {
			return nil, appErrors.Wrap(listErr, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load assigned courses")
		}
		for _, course := range assigned {
			if course.ID != courseID {
				existing = append(existing, course)
			}
		}
	}

	for _, course := range existing {
		if course.ID == courseID {
			continue
		}
		ws, parseErr := models.ParseWeeklySchedule(course.Schedule)
		if parseErr != nil {
			continue
		}
		if ws.Overlaps(candidateSchedule) {
			return &models.ScheduleConflictError{
				CourseID:   course.ID,
				CourseName: course.Name,
				Existing:   ws,
				Candidate:  candidateSchedule,
			}, nil
		}
	}
	return nil, nil
}

// Assign creates a staff assignment after the conflict check clears it.
func (s *CourseStaffService) Assign(ctx context.Context, req AssignStaffRequest) (*models.CourseStaff, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid assignment payload")
	}
	if !req.Role.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown staff role")
	}

	conflict, err := s.CheckConflict(ctx, req.UserID, req.CourseID, nil)
	if err != nil {
		return nil, err
	}
	if conflict != nil {
		return nil, appErrors.Clone(appErrors.ErrConflict, conflict.Error())
	}

	staff := &models.CourseStaff{CourseID: req.CourseID, UserID: req.UserID, Role: req.Role}
	if err := s.repo.Create(ctx, staff); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create assignment")
	}
	s.logger.Info("staff assigned",
		zap.Int64("course_id", staff.CourseID),
		zap.Int64("user_id", staff.UserID),
		zap.String("role", string(staff.Role)))
	return staff, nil
}

// Reassign moves an existing assignment to another course or role, re-running
// the conflict check against the new target.
func (s *CourseStaffService) Reassign(ctx context.Context, id int64, req AssignStaffRequest) (*models.CourseStaff, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid assignment payload")
	}
	if !req.Role.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown staff role")
	}

	staff, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "assignment not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load assignment")
	}

	if staff.CourseID != req.CourseID || staff.UserID != req.UserID {
		conflict, checkErr := s.CheckConflict(ctx, req.UserID, req.CourseID, &staff.ID)
		if checkErr != nil {
			return nil, checkErr
		}
		if conflict != nil {
			return nil, appErrors.Clone(appErrors.ErrConflict, conflict.Error())
		}
	}

	staff.CourseID = req.CourseID
	staff.UserID = req.UserID
	staff.Role = req.Role
	if err := s.repo.Update(ctx, staff); err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "assignment not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update assignment")
	}
	return staff, nil
}

// Search returns assignments matching the filter.
func (s *CourseStaffService) Search(ctx context.Context, filter models.CourseStaffFilter) ([]models.CourseStaff, error) {
	rows, err := s.repo.Search(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to search assignments")
	}
	return rows, nil
}

// Get returns one assignment.
func (s *CourseStaffService) Get(ctx context.Context, id int64) (*models.CourseStaff, error) {
	staff, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "assignment not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load assignment")
	}
	return staff, nil
}

// Remove deletes an assignment.
func (s *CourseStaffService) Remove(ctx context.Context, id int64) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		if err == sql.ErrNoRows {
			return appErrors.Clone(appErrors.ErrNotFound, "assignment not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete assignment")
	}
	return nil
}
