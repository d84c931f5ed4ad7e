package service

import (
	"context"
	"database/sql"
	"sort"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/courtside/academy-api/internal/models"
	appErrors "github.com/courtside/academy-api/pkg/errors"
	"github.com/courtside/academy-api/pkg/jobs"
)

// maxGenerationWeeks caps how far ahead the generator walks when filling a
// quota, so a student enrolled in a course with a broken cadence cannot spin
// the loop forever.
const maxGenerationWeeks = 104

// JobTypeGenerateAttendance labels queued per-student generation jobs.
const JobTypeGenerateAttendance = "attendance.generate"

type attendanceRepository interface {
	FindByID(ctx context.Context, id int64) (*models.Attendance, error)
	ListByStudentCourse(ctx context.Context, studentID, courseID int64) ([]models.Attendance, error)
	Search(ctx context.Context, filter models.AttendanceFilter) ([]models.Attendance, error)
	Create(ctx context.Context, att *models.Attendance) error
	Update(ctx context.Context, att *models.Attendance) error
	Delete(ctx context.Context, id int64) error
	BulkInsertIfAbsent(ctx context.Context, rows []models.Attendance) (int, error)
	MarkAbsentsForDate(ctx context.Context, date string) (int, error)
}

type subscriptionReader interface {
	FindActiveByStudent(ctx context.Context, studentID int64) (*models.Subscription, error)
	GetPackage(ctx context.Context, packageID int64) (*models.Package, error)
}

type enrollmentReader interface {
	ListActiveCourseIDs(ctx context.Context, studentID int64) ([]int64, error)
	ListStudentIDsWithActiveEnrollment(ctx context.Context) ([]int64, error)
}

type courseReader interface {
	FindByID(ctx context.Context, id int64) (*models.Course, error)
	ListActiveByIDs(ctx context.Context, ids []int64) ([]models.Course, error)
}

type studentReader interface {
	FindByID(ctx context.Context, id int64) (*models.Student, error)
	UpdateTrialStatus(ctx context.Context, id int64, status models.TrialStatus) error
}

type jobEnqueuer interface {
	Enqueue(job jobs.Job) error
}

// CreateAttendanceRequest describes manual attendance creation.
type CreateAttendanceRequest struct {
	StudentID int64  `json:"student_id" validate:"required"`
	CourseID  int64  `json:"course_id" validate:"required"`
	Date      string `json:"date" validate:"required"`
	Time      string `json:"time" validate:"required"`
	IsTrial   bool   `json:"is_trial"`
}

// UpdateAttendanceStatusRequest describes a status correction.
type UpdateAttendanceStatusRequest struct {
	Status models.AttendanceStatus `json:"status" validate:"required"`
}

// GenerateResult reports one generation run for a single student.
type GenerateResult struct {
	StudentID int64 `json:"student_id"`
	Quota     int   `json:"quota"`
	Existing  int   `json:"existing"`
	Created   int   `json:"created"`
}

// AttendanceService generates and maintains student attendance rows.
type AttendanceService struct {
	repo        attendanceRepository
	subs        subscriptionReader
	enrollments enrollmentReader
	courses     courseReader
	students    studentReader
	queue       jobEnqueuer
	validator   *validator.Validate
	logger      *zap.Logger
}

// NewAttendanceService constructs AttendanceService. The queue may be nil when
// background generation is disabled.
func NewAttendanceService(repo attendanceRepository, subs subscriptionReader, enrollments enrollmentReader, courses courseReader, students studentReader, queue jobEnqueuer, validate *validator.Validate, logger *zap.Logger) *AttendanceService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AttendanceService{
		repo:        repo,
		subs:        subs,
		enrollments: enrollments,
		courses:     courses,
		students:    students,
		queue:       queue,
		validator:   validate,
		logger:      logger,
	}
}

// Generate fills the student's session quota, walking week by week from the
// Sunday of the subscription's start date. A slot the walk visits counts
// toward the quota whether it already existed or is newly created, so running
// Generate twice never produces more sessions than the package allows and a
// past start date backfills deterministically. Unmet preconditions (no
// subscription, no start date, no quota, no enrollment, no usable schedule)
// produce an empty result rather than an error.
func (s *AttendanceService) Generate(ctx context.Context, studentID int64) (*GenerateResult, error) {
	result := &GenerateResult{StudentID: studentID}

	sub, err := s.subs.FindActiveByStudent(ctx, studentID)
	if err != nil {
		if err == sql.ErrNoRows {
			s.logger.Info("skipping generation: no active subscription", zap.Int64("student_id", studentID))
			return result, nil
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load subscription")
	}
	if sub.StartDate == nil {
		s.logger.Info("skipping generation: subscription has no start date",
			zap.Int64("student_id", studentID), zap.Int64("subscription_id", sub.ID))
		return result, nil
	}
	pkg, err := s.subs.GetPackage(ctx, sub.PackageID)
	if err != nil {
		if err == sql.ErrNoRows {
			s.logger.Warn("skipping generation: subscription package not found",
				zap.Int64("student_id", studentID), zap.Int64("package_id", sub.PackageID))
			return result, nil
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load package")
	}
	if pkg.Quantity <= 0 {
		s.logger.Info("skipping generation: package has no session quota",
			zap.Int64("student_id", studentID), zap.Int64("package_id", pkg.ID))
		return result, nil
	}

	courseIDs, err := s.enrollments.ListActiveCourseIDs(ctx, studentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enrollments")
	}
	if len(courseIDs) == 0 {
		s.logger.Info("skipping generation: no active course enrollment", zap.Int64("student_id", studentID))
		return result, nil
	}
	courses, err := s.courses.ListActiveByIDs(ctx, courseIDs)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load courses")
	}

	// One slot per (weekday, time, course); sorted so each week is visited in
	// the same order on every run.
	type sessionSlot struct {
		courseID  int64
		day       int
		startTime string
	}
	var slots []sessionSlot
	existing := make(map[string]bool)
	for _, course := range courses {
		ws, parseErr := models.ParseWeeklySchedule(course.Schedule)
		if parseErr != nil {
			s.logger.Warn("skipping course with malformed schedule",
				zap.Int64("course_id", course.ID), zap.Error(parseErr))
			continue
		}
		for _, day := range ws.Days {
			slots = append(slots, sessionSlot{courseID: course.ID, day: day, startTime: ws.StartTime})
		}

		rows, listErr := s.repo.ListByStudentCourse(ctx, studentID, course.ID)
		if listErr != nil {
			return nil, appErrors.Wrap(listErr, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load existing attendance")
		}
		for _, row := range rows {
			existing[row.Key()] = true
		}
	}
	if len(slots) == 0 {
		s.logger.Info("skipping generation: no course has a usable schedule", zap.Int64("student_id", studentID))
		return result, nil
	}
	sort.Slice(slots, func(i, j int) bool {
		if slots[i].day != slots[j].day {
			return slots[i].day < slots[j].day
		}
		if slots[i].startTime != slots[j].startTime {
			return slots[i].startTime < slots[j].startTime
		}
		return slots[i].courseID < slots[j].courseID
	})

	result.Quota = pkg.Quantity
	start := time.Unix(*sub.StartDate, 0)
	startDate := models.FormatDate(start)
	anchor := models.WeekAnchor(start)

	trial := false
	if student, findErr := s.students.FindByID(ctx, studentID); findErr == nil {
		trial = student.TrialStatus != nil && *student.TrialStatus == models.TrialRegistered
	}

	var toInsert []models.Attendance
	counted := 0
	for week := 0; week < maxGenerationWeeks && counted < result.Quota; week++ {
		for _, slot := range slots {
			if counted == result.Quota {
				break
			}
			date := models.FormatDate(models.DateForWeekday(anchor, slot.day))
			if date < startDate {
				continue
			}
			key := models.AttendanceKey(studentID, slot.courseID, date, slot.startTime)
			if existing[key] {
				result.Existing++
				counted++
				continue
			}
			row := models.Attendance{
				StudentID: studentID,
				CourseID:  slot.courseID,
				Date:      date,
				Time:      slot.startTime,
				Status:    models.AttendanceNotCheckedIn,
			}
			if trial && len(toInsert) == 0 {
				row.IsTrial = true
			}
			existing[key] = true
			toInsert = append(toInsert, row)
			counted++
		}
		anchor = anchor.AddDate(0, 0, 7)
	}

	created, err := s.repo.BulkInsertIfAbsent(ctx, toInsert)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to insert attendance")
	}
	result.Created = created
	s.logger.Info("attendance generated",
		zap.Int64("student_id", studentID),
		zap.Int("quota", result.Quota),
		zap.Int("existing", result.Existing),
		zap.Int("created", result.Created))
	return result, nil
}

// EnqueueGenerateAll queues one generation job per student with at least one
// active enrollment.
func (s *AttendanceService) EnqueueGenerateAll(ctx context.Context) (*models.GenerateAllResult, error) {
	if s.queue == nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "background generation is disabled")
	}
	studentIDs, err := s.enrollments.ListStudentIDsWithActiveEnrollment(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list students")
	}

	result := &models.GenerateAllResult{TotalStudents: len(studentIDs)}
	for _, id := range studentIDs {
		job := jobs.Job{
			ID:      uuid.NewString(),
			Type:    JobTypeGenerateAttendance,
			Payload: id,
		}
		if err := s.queue.Enqueue(job); err != nil {
			s.logger.Warn("failed to enqueue generation job",
				zap.Int64("student_id", id), zap.Error(err))
			result.Skipped++
			continue
		}
		result.Enqueued++
	}
	return result, nil
}

// HandleGenerateJob is the queue handler for per-student generation jobs.
func (s *AttendanceService) HandleGenerateJob(ctx context.Context, job jobs.Job) error {
	studentID, ok := job.Payload.(int64)
	if !ok {
		s.logger.Error("generation job carries unexpected payload", zap.String("job_id", job.ID))
		return nil
	}
	_, err := s.Generate(ctx, studentID)
	return err
}

// StudentStatus reports whether a student is ready for generation and why not
// when they are not.
func (s *AttendanceService) StudentStatus(ctx context.Context, studentID int64) (*models.StudentAttendanceStatus, error) {
	student, err := s.students.FindByID(ctx, studentID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}

	status := &models.StudentAttendanceStatus{StudentID: student.ID, StudentName: student.Name}

	hasStart := false
	sub, err := s.subs.FindActiveByStudent(ctx, studentID)
	switch {
	case err == sql.ErrNoRows:
		status.Reason = "no active subscription"
	case err != nil:
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load subscription")
	default:
		status.HasSubscription = true
		status.SubscriptionID = &sub.ID
		if sub.StartDate != nil {
			hasStart = true
			started := models.FormatDate(time.Unix(*sub.StartDate, 0))
			status.SubscriptionStarted = &started
		} else {
			status.Reason = "subscription has no start date"
		}
		if pkg, pkgErr := s.subs.GetPackage(ctx, sub.PackageID); pkgErr == nil {
			status.PackageQuantity = &pkg.Quantity
		}
	}

	courseIDs, err := s.enrollments.ListActiveCourseIDs(ctx, studentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enrollments")
	}
	status.CourseIDs = courseIDs
	status.HasActiveCourses = len(courseIDs) > 0
	if !status.HasActiveCourses && status.Reason == "" {
		status.Reason = "no active course enrollment"
	}

	status.CanGenerate = status.HasSubscription && hasStart && status.HasActiveCourses
	return status, nil
}

// MarkDailyAbsents flips every still-pending attendance row on the given date
// to unexcused absence.
func (s *AttendanceService) MarkDailyAbsents(ctx context.Context, date string) (int, error) {
	if _, err := models.ParseDate(date); err != nil {
		return 0, appErrors.Clone(appErrors.ErrValidation, "invalid date")
	}
	updated, err := s.repo.MarkAbsentsForDate(ctx, date)
	if err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to mark absents")
	}
	if updated > 0 {
		s.logger.Info("attendance absents marked", zap.String("date", date), zap.Int("updated", updated))
	}
	return updated, nil
}

// Search returns attendance rows matching the filter.
func (s *AttendanceService) Search(ctx context.Context, filter models.AttendanceFilter) ([]models.Attendance, error) {
	rows, err := s.repo.Search(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to search attendance")
	}
	return rows, nil
}

// Get returns one attendance row.
func (s *AttendanceService) Get(ctx context.Context, id int64) (*models.Attendance, error) {
	att, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "attendance not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load attendance")
	}
	return att, nil
}

// Create inserts a manual attendance row outside the generator.
func (s *AttendanceService) Create(ctx context.Context, req CreateAttendanceRequest) (*models.Attendance, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid attendance payload")
	}
	if _, err := models.ParseDate(req.Date); err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "invalid date")
	}
	if _, err := s.courses.FindByID(ctx, req.CourseID); err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
	}

	att := &models.Attendance{
		StudentID: req.StudentID,
		CourseID:  req.CourseID,
		Date:      req.Date,
		Time:      req.Time,
		Status:    models.AttendanceNotCheckedIn,
		IsTrial:   req.IsTrial,
	}
	if err := s.repo.Create(ctx, att); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create attendance")
	}
	return att, nil
}

// UpdateStatus corrects the status of an attendance row. The first checked-in
// trial session also moves the student out of the trial funnel.
func (s *AttendanceService) UpdateStatus(ctx context.Context, id int64, req UpdateAttendanceStatusRequest) (*models.Attendance, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid status payload")
	}
	if !req.Status.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown attendance status")
	}

	att, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "attendance not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load attendance")
	}

	att.Status = req.Status
	if err := s.repo.Update(ctx, att); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update attendance")
	}

	if att.IsTrial && req.Status == models.AttendanceCheckedIn {
		if err := s.students.UpdateTrialStatus(ctx, att.StudentID, models.TrialAttended); err != nil && err != sql.ErrNoRows {
			s.logger.Warn("failed to advance trial status",
				zap.Int64("student_id", att.StudentID), zap.Error(err))
		}
	}
	return att, nil
}

// Delete removes an attendance row.
func (s *AttendanceService) Delete(ctx context.Context, id int64) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		if err == sql.ErrNoRows {
			return appErrors.Clone(appErrors.ErrNotFound, "attendance not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete attendance")
	}
	return nil
}
