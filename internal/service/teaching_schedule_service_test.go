package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/courtside/academy-api/internal/models"
	appErrors "github.com/courtside/academy-api/pkg/errors"
)

type mockTeachingRepo struct {
	rows   map[int64]models.TeachingSchedule
	nextID int64
}

func newMockTeachingRepo() *mockTeachingRepo {
	return &mockTeachingRepo{rows: make(map[int64]models.TeachingSchedule)}
}

func (m *mockTeachingRepo) add(row models.TeachingSchedule) models.TeachingSchedule {
	m.nextID++
	row.ID = m.nextID
	m.rows[row.ID] = row
	return row
}

func (m *mockTeachingRepo) FindByID(ctx context.Context, id int64) (*models.TeachingSchedule, error) {
	if row, ok := m.rows[id]; ok {
		r := row
		return &r, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockTeachingRepo) ListByCourseBetween(ctx context.Context, courseID int64, from, to string) ([]models.TeachingSchedule, error) {
	var out []models.TeachingSchedule
	for _, row := range m.rows {
		if row.CourseID == courseID && row.Date >= from && row.Date <= to {
			out = append(out, row)
		}
	}
	return out, nil
}

func (m *mockTeachingRepo) ListByUserBetween(ctx context.Context, userID int64, from, to string) ([]models.TeachingSchedule, error) {
	var out []models.TeachingSchedule
	for _, row := range m.rows {
		if row.UserID == userID && row.Date >= from && row.Date <= to {
			out = append(out, row)
		}
	}
	return out, nil
}

func (m *mockTeachingRepo) Search(ctx context.Context, filter models.TeachingScheduleFilter) ([]models.TeachingSchedule, error) {
	var out []models.TeachingSchedule
	for _, row := range m.rows {
		out = append(out, row)
	}
	return out, nil
}

func (m *mockTeachingRepo) ApplyWeekDiff(ctx context.Context, create []models.TeachingSchedule, deleteIDs []int64) (int, int, error) {
	created := 0
	for _, row := range create {
		exists := false
		for _, existing := range m.rows {
			if existing.Key() == row.Key() {
				exists = true
				break
			}
		}
		if exists {
			continue
		}
		m.add(row)
		created++
	}
	deleted := 0
	for _, id := range deleteIDs {
		if _, ok := m.rows[id]; ok {
			delete(m.rows, id)
			deleted++
		}
	}
	return created, deleted, nil
}

func (m *mockTeachingRepo) MarkCheckedIn(ctx context.Context, id int64, at time.Time) error {
	row, ok := m.rows[id]
	if !ok || row.Status != models.TeachingUpcoming {
		return sql.ErrNoRows
	}
	row.Status = models.TeachingCheckedIn
	row.CheckinTime = &at
	m.rows[id] = row
	return nil
}

func (m *mockTeachingRepo) MarkCheckedOut(ctx context.Context, id int64, at time.Time) error {
	row, ok := m.rows[id]
	if !ok || row.Status != models.TeachingCheckedIn {
		return sql.ErrNoRows
	}
	row.Status = models.TeachingCheckedOut
	row.CheckoutTime = &at
	m.rows[id] = row
	return nil
}

func (m *mockTeachingRepo) UpdateStatus(ctx context.Context, id int64, status models.TeachingStatus) error {
	row, ok := m.rows[id]
	if !ok {
		return sql.ErrNoRows
	}
	row.Status = status
	m.rows[id] = row
	return nil
}

func (m *mockTeachingRepo) MarkAbsentsForDate(ctx context.Context, date string) (int, error) {
	updated := 0
	for id, row := range m.rows {
		if row.Date == date && row.Status == models.TeachingUpcoming {
			row.Status = models.TeachingAbsent
			m.rows[id] = row
			updated++
		}
	}
	return updated, nil
}

type mockActiveCourses struct {
	courses map[int64]models.Course
}

func (m *mockActiveCourses) FindByID(ctx context.Context, id int64) (*models.Course, error) {
	if c, ok := m.courses[id]; ok {
		return &c, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockActiveCourses) ListActive(ctx context.Context) ([]models.Course, error) {
	var out []models.Course
	for _, c := range m.courses {
		if c.Active {
			out = append(out, c)
		}
	}
	return out, nil
}

type mockStaffLister struct {
	byCourse map[int64][]models.CourseStaff
}

func (m *mockStaffLister) ListByCourse(ctx context.Context, courseID int64) ([]models.CourseStaff, error) {
	return m.byCourse[courseID], nil
}

type mockCourtLocator struct {
	courts map[int64]models.Court
}

func (m *mockCourtLocator) Locate(ctx context.Context, courtID int64) (*models.Court, error) {
	if c, ok := m.courts[courtID]; ok {
		return &c, nil
	}
	return nil, sql.ErrNoRows
}

func float64Ptr(v float64) *float64 { return &v }
func int64Ptr(v int64) *int64       { return &v }

// courtLat/courtLon anchor geofence tests; nearbyLat sits ~50m north and
// farLat ~1km north.
const (
	courtLat  = -6.200000
	courtLon  = 106.816666
	nearbyLat = -6.199550
	farLat    = -6.191000
)

func newTeachingFixture() (*TeachingScheduleService, *mockTeachingRepo) {
	repo := newMockTeachingRepo()
	courses := &mockActiveCourses{courses: map[int64]models.Course{
		12: {ID: 12, Name: "Junior Tennis", Schedule: `{"day":[2,4],"hour":"14:00"}`, CourtID: 1, LeadID: int64Ptr(7), Active: true},
	}}
	staff := &mockStaffLister{byCourse: map[int64][]models.CourseStaff{
		12: {{ID: 1, CourseID: 12, UserID: 5, Role: models.StaffRoleSubTutor}},
	}}
	courts := &mockCourtLocator{courts: map[int64]models.Court{
		1: {ID: 1, Name: "Center Court", Latitude: float64Ptr(courtLat), Longitude: float64Ptr(courtLon)},
	}}
	svc := NewTeachingScheduleService(repo, courses, staff, courts, 100, nil, nil)
	return svc, repo
}

func TestReconcileWeekCreatesExpectedSlots(t *testing.T) {
	svc, repo := newTeachingFixture()
	now := time.Date(2026, 9, 1, 10, 0, 0, 0, time.Local) // Tuesday

	result, err := svc.ReconcileWeek(context.Background(), now, nil)
	require.NoError(t, err)

	// next week runs Sunday 2026-09-06 through Saturday 2026-09-12
	assert.Equal(t, "2026-09-06", result.WeekStart)
	// two staff (sub tutor + lead) times two weekdays
	assert.Equal(t, 4, result.Created)
	assert.Equal(t, 0, result.Deleted)

	dates := make(map[string]bool)
	for _, row := range repo.rows {
		assert.Equal(t, models.TeachingUpcoming, row.Status)
		dates[row.Date] = true
	}
	assert.Equal(t, map[string]bool{"2026-09-07": true, "2026-09-09": true}, dates)
}

func TestReconcileWeekIsIdempotent(t *testing.T) {
	svc, _ := newTeachingFixture()
	now := time.Date(2026, 9, 1, 10, 0, 0, 0, time.Local)

	first, err := svc.ReconcileWeek(context.Background(), now, nil)
	require.NoError(t, err)
	require.Equal(t, 4, first.Created)

	second, err := svc.ReconcileWeek(context.Background(), now, nil)
	require.NoError(t, err)
	assert.Equal(t, 0, second.Created)
	assert.Equal(t, 0, second.Deleted)
}

func TestReconcileWeekPreservesMatchedStatusAndRemovesStale(t *testing.T) {
	svc, repo := newTeachingFixture()
	now := time.Date(2026, 9, 1, 10, 0, 0, 0, time.Local)

	// a matched slot that already progressed and a stale upcoming one
	checkedIn := repo.add(models.TeachingSchedule{
		UserID: 5, CourseID: 12, Date: "2026-09-07", Time: "14:00", Status: models.TeachingCheckedIn,
	})
	stale := repo.add(models.TeachingSchedule{
		UserID: 9, CourseID: 12, Date: "2026-09-08", Time: "10:00", Status: models.TeachingUpcoming,
	})
	staleProgressed := repo.add(models.TeachingSchedule{
		UserID: 9, CourseID: 12, Date: "2026-09-09", Time: "10:00", Status: models.TeachingCheckedOut,
	})
	staleAttended := repo.add(models.TeachingSchedule{
		UserID: 10, CourseID: 12, Date: "2026-09-10", Time: "10:00", Status: models.TeachingCheckedIn,
	})

	result, err := svc.ReconcileWeek(context.Background(), now, nil)
	require.NoError(t, err)
	assert.Equal(t, 3, result.Created)
	assert.Equal(t, 1, result.Deleted)

	assert.Equal(t, models.TeachingCheckedIn, repo.rows[checkedIn.ID].Status)
	_, staleExists := repo.rows[stale.ID]
	assert.False(t, staleExists)
	_, progressedExists := repo.rows[staleProgressed.ID]
	assert.True(t, progressedExists)
	// attendance evidence on a no-longer-scheduled slot is never discarded
	_, attendedExists := repo.rows[staleAttended.ID]
	assert.True(t, attendedExists)
}

func TestReconcileWeekSkipsMalformedSchedule(t *testing.T) {
	svc, _ := newTeachingFixture()
	svc.courses = &mockActiveCourses{courses: map[int64]models.Course{
		13: {ID: 13, Name: "Broken", Schedule: `oops`, Active: true},
	}}

	result, err := svc.ReconcileWeek(context.Background(), time.Date(2026, 9, 1, 10, 0, 0, 0, time.Local), nil)
	require.NoError(t, err)
	assert.Equal(t, 0, result.Created)
	assert.Equal(t, 1, result.Skipped)
}

func TestReconcileWeekHonorsCourseFilter(t *testing.T) {
	svc, repo := newTeachingFixture()
	courses := svc.courses.(*mockActiveCourses)
	courses.courses[13] = models.Course{
		ID: 13, Name: "Padel Basics", Schedule: `{"day":[6],"hour":"09:00"}`, CourtID: 1, LeadID: int64Ptr(8), Active: true,
	}

	courseID := int64(13)
	result, err := svc.ReconcileWeek(context.Background(), time.Date(2026, 9, 1, 10, 0, 0, 0, time.Local), &courseID)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Created)
	for _, row := range repo.rows {
		assert.Equal(t, int64(13), row.CourseID)
	}
}

func TestCheckInWithinGeofence(t *testing.T) {
	svc, repo := newTeachingFixture()
	slot := repo.add(models.TeachingSchedule{
		UserID: 5, CourseID: 12, Date: "2026-09-07", Time: "14:00", Status: models.TeachingUpcoming,
	})

	result, err := svc.CheckIn(context.Background(), slot.ID, CheckInRequest{
		UserID: 5, Latitude: nearbyLat, Longitude: courtLon,
	})
	require.NoError(t, err)
	assert.Equal(t, models.TeachingCheckedIn, result.Status)
	require.NotNil(t, result.CheckinTime)
	assert.Equal(t, models.TeachingCheckedIn, repo.rows[slot.ID].Status)
}

func TestCheckInRejectedOutsideGeofence(t *testing.T) {
	svc, repo := newTeachingFixture()
	slot := repo.add(models.TeachingSchedule{
		UserID: 5, CourseID: 12, Date: "2026-09-07", Time: "14:00", Status: models.TeachingUpcoming,
	})

	_, err := svc.CheckIn(context.Background(), slot.ID, CheckInRequest{
		UserID: 5, Latitude: farLat, Longitude: courtLon,
	})
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrGeofence.Code, appErr.Code)
	assert.Equal(t, models.TeachingUpcoming, repo.rows[slot.ID].Status)
}

func TestCheckInIsOneWay(t *testing.T) {
	svc, repo := newTeachingFixture()
	slot := repo.add(models.TeachingSchedule{
		UserID: 5, CourseID: 12, Date: "2026-09-07", Time: "14:00", Status: models.TeachingUpcoming,
	})

	_, err := svc.CheckIn(context.Background(), slot.ID, CheckInRequest{
		UserID: 5, Latitude: nearbyLat, Longitude: courtLon,
	})
	require.NoError(t, err)

	_, err = svc.CheckIn(context.Background(), slot.ID, CheckInRequest{
		UserID: 5, Latitude: nearbyLat, Longitude: courtLon,
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
}

func TestCheckInOnAbsentSlotNamesTheState(t *testing.T) {
	svc, repo := newTeachingFixture()
	slot := repo.add(models.TeachingSchedule{
		UserID: 5, CourseID: 12, Date: "2026-09-07", Time: "14:00", Status: models.TeachingAbsent,
	})

	_, err := svc.CheckIn(context.Background(), slot.ID, CheckInRequest{
		UserID: 5, Latitude: nearbyLat, Longitude: courtLon,
	})
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErr.Code)
	assert.Contains(t, appErr.Message, "ABSENT")
	assert.NotContains(t, appErr.Message, "already checked in")
}

func TestCheckInRejectsOtherStaff(t *testing.T) {
	svc, repo := newTeachingFixture()
	slot := repo.add(models.TeachingSchedule{
		UserID: 5, CourseID: 12, Date: "2026-09-07", Time: "14:00", Status: models.TeachingUpcoming,
	})

	_, err := svc.CheckIn(context.Background(), slot.ID, CheckInRequest{
		UserID: 9, Latitude: nearbyLat, Longitude: courtLon,
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestCheckOutRequiresCheckIn(t *testing.T) {
	svc, repo := newTeachingFixture()
	slot := repo.add(models.TeachingSchedule{
		UserID: 5, CourseID: 12, Date: "2026-09-07", Time: "14:00", Status: models.TeachingUpcoming,
	})

	_, err := svc.CheckOut(context.Background(), slot.ID, CheckOutRequest{
		UserID: 5, Latitude: nearbyLat, Longitude: courtLon,
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)

	_, err = svc.CheckIn(context.Background(), slot.ID, CheckInRequest{
		UserID: 5, Latitude: nearbyLat, Longitude: courtLon,
	})
	require.NoError(t, err)

	result, err := svc.CheckOut(context.Background(), slot.ID, CheckOutRequest{
		UserID: 5, Latitude: nearbyLat, Longitude: courtLon,
	})
	require.NoError(t, err)
	assert.Equal(t, models.TeachingCheckedOut, result.Status)
	require.NotNil(t, result.CheckoutTime)
}

func TestCheckInFailsWhenCourtHasNoCoordinates(t *testing.T) {
	svc, repo := newTeachingFixture()
	svc.courts = &mockCourtLocator{courts: map[int64]models.Court{
		1: {ID: 1, Name: "Unmapped Court"},
	}}
	slot := repo.add(models.TeachingSchedule{
		UserID: 5, CourseID: 12, Date: "2026-09-07", Time: "14:00", Status: models.TeachingUpcoming,
	})

	_, err := svc.CheckIn(context.Background(), slot.ID, CheckInRequest{
		UserID: 5, Latitude: nearbyLat, Longitude: courtLon,
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestUpdateStatusAppliesGeofenceOnlyWhenLocated(t *testing.T) {
	svc, repo := newTeachingFixture()
	slot := repo.add(models.TeachingSchedule{
		UserID: 5, CourseID: 12, Date: "2026-09-07", Time: "14:00", Status: models.TeachingUpcoming,
	})

	_, err := svc.UpdateStatus(context.Background(), slot.ID, UpdateTeachingStatusRequest{
		Status: models.TeachingCheckedIn, Latitude: float64Ptr(farLat), Longitude: float64Ptr(courtLon),
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrGeofence.Code, appErrors.FromError(err).Code)

	result, err := svc.UpdateStatus(context.Background(), slot.ID, UpdateTeachingStatusRequest{
		Status: models.TeachingCheckedIn,
	})
	require.NoError(t, err)
	assert.Equal(t, models.TeachingCheckedIn, result.Status)
}

func TestTeachingMarkDailyAbsentsScopesToDate(t *testing.T) {
	svc, repo := newTeachingFixture()
	pending := repo.add(models.TeachingSchedule{UserID: 5, CourseID: 12, Date: "2026-09-07", Time: "14:00", Status: models.TeachingUpcoming})
	done := repo.add(models.TeachingSchedule{UserID: 7, CourseID: 12, Date: "2026-09-07", Time: "14:00", Status: models.TeachingCheckedOut})
	future := repo.add(models.TeachingSchedule{UserID: 5, CourseID: 12, Date: "2026-09-09", Time: "14:00", Status: models.TeachingUpcoming})

	updated, err := svc.MarkDailyAbsents(context.Background(), "2026-09-07")
	require.NoError(t, err)
	assert.Equal(t, 1, updated)
	assert.Equal(t, models.TeachingAbsent, repo.rows[pending.ID].Status)
	assert.Equal(t, models.TeachingCheckedOut, repo.rows[done.ID].Status)
	assert.Equal(t, models.TeachingUpcoming, repo.rows[future.ID].Status)
}
