package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/courtside/academy-api/internal/models"
	appErrors "github.com/courtside/academy-api/pkg/errors"
)

type mockCourseStaffRepo struct {
	rows   map[int64]models.CourseStaff
	nextID int64
}

func newMockCourseStaffRepo() *mockCourseStaffRepo {
	return &mockCourseStaffRepo{rows: make(map[int64]models.CourseStaff)}
}

func (m *mockCourseStaffRepo) FindByID(ctx context.Context, id int64) (*models.CourseStaff, error) {
	if row, ok := m.rows[id]; ok {
		r := row
		return &r, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockCourseStaffRepo) ListByUser(ctx context.Context, userID int64) ([]models.CourseStaff, error) {
	var out []models.CourseStaff
	for _, row := range m.rows {
		if row.UserID == userID {
			out = append(out, row)
		}
	}
	return out, nil
}

func (m *mockCourseStaffRepo) Search(ctx context.Context, filter models.CourseStaffFilter) ([]models.CourseStaff, error) {
	var out []models.CourseStaff
	for _, row := range m.rows {
		out = append(out, row)
	}
	return out, nil
}

func (m *mockCourseStaffRepo) Create(ctx context.Context, staff *models.CourseStaff) error {
	m.nextID++
	staff.ID = m.nextID
	m.rows[staff.ID] = *staff
	return nil
}

func (m *mockCourseStaffRepo) Update(ctx context.Context, staff *models.CourseStaff) error {
	if _, ok := m.rows[staff.ID]; !ok {
		return sql.ErrNoRows
	}
	m.rows[staff.ID] = *staff
	return nil
}

func (m *mockCourseStaffRepo) Delete(ctx context.Context, id int64) error {
	if _, ok := m.rows[id]; !ok {
		return sql.ErrNoRows
	}
	delete(m.rows, id)
	return nil
}

type mockConflictCourses struct {
	courses map[int64]models.Course
	leads   map[int64][]int64
}

func (m *mockConflictCourses) FindByID(ctx context.Context, id int64) (*models.Course, error) {
	if c, ok := m.courses[id]; ok {
		return &c, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockConflictCourses) ListActiveByIDs(ctx context.Context, ids []int64) ([]models.Course, error) {
	var out []models.Course
	for _, id := range ids {
		if c, ok := m.courses[id]; ok && c.Active {
			out = append(out, c)
		}
	}
	return out, nil
}

func (m *mockConflictCourses) ListActiveByLead(ctx context.Context, userID int64) ([]models.Course, error) {
	var out []models.Course
	for _, id := range m.leads[userID] {
		if c, ok := m.courses[id]; ok && c.Active {
			out = append(out, c)
		}
	}
	return out, nil
}

func newConflictFixture(courses map[int64]models.Course) (*CourseStaffService, *mockCourseStaffRepo, *mockConflictCourses) {
	repo := newMockCourseStaffRepo()
	reader := &mockConflictCourses{courses: courses, leads: map[int64][]int64{}}
	return NewCourseStaffService(repo, reader, nil, nil), repo, reader
}

func TestCheckConflictDetectsOverlap(t *testing.T) {
	svc, repo, _ := newConflictFixture(map[int64]models.Course{
		12: {ID: 12, Name: "Junior Tennis", Schedule: `{"day":[2,4],"hour":"14:00","end_time":"15:30"}`, Active: true},
		13: {ID: 13, Name: "Padel Basics", Schedule: `{"day":[4],"hour":"15:00","end_time":"16:00"}`, Active: true},
	})
	repo.rows[1] = models.CourseStaff{ID: 1, CourseID: 12, UserID: 5, Role: models.StaffRoleSubTutor}

	conflict, err := svc.CheckConflict(context.Background(), 5, 13, nil)
	require.NoError(t, err)
	require.NotNil(t, conflict)
	assert.Equal(t, int64(12), conflict.CourseID)
	assert.Contains(t, conflict.Error(), "Junior Tennis")
}

func TestCheckConflictIsSymmetric(t *testing.T) {
	courses := map[int64]models.Course{
		12: {ID: 12, Name: "Junior Tennis", Schedule: `{"day":[4],"hour":"14:00","end_time":"15:30"}`, Active: true},
		13: {ID: 13, Name: "Padel Basics", Schedule: `{"day":[4],"hour":"15:00","end_time":"16:00"}`, Active: true},
	}

	svcA, repoA, _ := newConflictFixture(courses)
	repoA.rows[1] = models.CourseStaff{ID: 1, CourseID: 12, UserID: 5, Role: models.StaffRoleSubTutor}
	conflictA, err := svcA.CheckConflict(context.Background(), 5, 13, nil)
	require.NoError(t, err)

	svcB, repoB, _ := newConflictFixture(courses)
	repoB.rows[1] = models.CourseStaff{ID: 1, CourseID: 13, UserID: 5, Role: models.StaffRoleSubTutor}
	conflictB, err := svcB.CheckConflict(context.Background(), 5, 12, nil)
	require.NoError(t, err)

	assert.Equal(t, conflictA != nil, conflictB != nil)
	assert.NotNil(t, conflictA)
}

func TestCheckConflictBackToBackSessionsDoNotCollide(t *testing.T) {
	svc, repo, _ := newConflictFixture(map[int64]models.Course{
		12: {ID: 12, Name: "Junior Tennis", Schedule: `{"day":[4],"hour":"14:00","end_time":"15:00"}`, Active: true},
		13: {ID: 13, Name: "Padel Basics", Schedule: `{"day":[4],"hour":"15:00","end_time":"16:00"}`, Active: true},
	})
	repo.rows[1] = models.CourseStaff{ID: 1, CourseID: 12, UserID: 5, Role: models.StaffRoleSubTutor}

	conflict, err := svc.CheckConflict(context.Background(), 5, 13, nil)
	require.NoError(t, err)
	assert.Nil(t, conflict)
}

func TestCheckConflictDefaultsMissingEndToOneHour(t *testing.T) {
	svc, repo, _ := newConflictFixture(map[int64]models.Course{
		12: {ID: 12, Name: "Junior Tennis", Schedule: `{"day":[4],"hour":"14:00"}`, Active: true},
		13: {ID: 13, Name: "Padel Basics", Schedule: `{"day":[4],"hour":"14:30","end_time":"15:30"}`, Active: true},
	})
	repo.rows[1] = models.CourseStaff{ID: 1, CourseID: 12, UserID: 5, Role: models.StaffRoleSubTutor}

	conflict, err := svc.CheckConflict(context.Background(), 5, 13, nil)
	require.NoError(t, err)
	assert.NotNil(t, conflict)
}

func TestCheckConflictIncludesLedCourses(t *testing.T) {
	svc, _, reader := newConflictFixture(map[int64]models.Course{
		12: {ID: 12, Name: "Junior Tennis", Schedule: `{"day":[4],"hour":"14:00","end_time":"15:30"}`, Active: true},
		13: {ID: 13, Name: "Padel Basics", Schedule: `{"day":[4],"hour":"15:00","end_time":"16:00"}`, Active: true},
	})
	reader.leads[7] = []int64{12}

	conflict, err := svc.CheckConflict(context.Background(), 7, 13, nil)
	require.NoError(t, err)
	require.NotNil(t, conflict)
	assert.Equal(t, int64(12), conflict.CourseID)
}

func TestCheckConflictIgnoresMalformedSchedules(t *testing.T) {
	svc, repo, _ := newConflictFixture(map[int64]models.Course{
		12: {ID: 12, Name: "Broken", Schedule: `oops`, Active: true},
		13: {ID: 13, Name: "Padel Basics", Schedule: `{"day":[4],"hour":"15:00","end_time":"16:00"}`, Active: true},
	})
	repo.rows[1] = models.CourseStaff{ID: 1, CourseID: 12, UserID: 5, Role: models.StaffRoleSubTutor}

	conflict, err := svc.CheckConflict(context.Background(), 5, 13, nil)
	require.NoError(t, err)
	assert.Nil(t, conflict)
}

func TestCheckConflictSkipsUnparsableCandidate(t *testing.T) {
	svc, repo, _ := newConflictFixture(map[int64]models.Course{
		12: {ID: 12, Name: "Junior Tennis", Schedule: `{"day":[4],"hour":"14:00","end_time":"15:30"}`, Active: true},
		13: {ID: 13, Name: "Broken", Schedule: `oops`, Active: true},
	})
	repo.rows[1] = models.CourseStaff{ID: 1, CourseID: 12, UserID: 5, Role: models.StaffRoleSubTutor}

	conflict, err := svc.CheckConflict(context.Background(), 5, 13, nil)
	require.NoError(t, err)
	assert.Nil(t, conflict)
}

func TestCheckConflictSkipsInactiveCandidate(t *testing.T) {
	svc, repo, _ := newConflictFixture(map[int64]models.Course{
		12: {ID: 12, Name: "Junior Tennis", Schedule: `{"day":[4],"hour":"14:00","end_time":"15:30"}`, Active: true},
		13: {ID: 13, Name: "Padel Basics", Schedule: `{"day":[4],"hour":"15:00","end_time":"16:00"}`, Active: false},
	})
	repo.rows[1] = models.CourseStaff{ID: 1, CourseID: 12, UserID: 5, Role: models.StaffRoleSubTutor}

	conflict, err := svc.CheckConflict(context.Background(), 5, 13, nil)
	require.NoError(t, err)
	assert.Nil(t, conflict)
}

func TestCheckConflictExcludesReplacedAssignment(t *testing.T) {
	svc, repo, _ := newConflictFixture(map[int64]models.Course{
		12: {ID: 12, Name: "Junior Tennis", Schedule: `{"day":[4],"hour":"14:00","end_time":"15:30"}`, Active: true},
		13: {ID: 13, Name: "Padel Basics", Schedule: `{"day":[4],"hour":"15:00","end_time":"16:00"}`, Active: true},
	})
	repo.rows[1] = models.CourseStaff{ID: 1, CourseID: 12, UserID: 5, Role: models.StaffRoleSubTutor}

	blocked, err := svc.CheckConflict(context.Background(), 5, 13, nil)
	require.NoError(t, err)
	require.NotNil(t, blocked)

	excludeID := int64(1)
	cleared, err := svc.CheckConflict(context.Background(), 5, 13, &excludeID)
	require.NoError(t, err)
	assert.Nil(t, cleared)
}

func TestReassignIgnoresOwnAssignment(t *testing.T) {
	svc, repo, _ := newConflictFixture(map[int64]models.Course{
		12: {ID: 12, Name: "Junior Tennis", Schedule: `{"day":[4],"hour":"14:00","end_time":"15:30"}`, Active: true},
		13: {ID: 13, Name: "Padel Basics", Schedule: `{"day":[4],"hour":"15:00","end_time":"16:00"}`, Active: true},
	})
	repo.rows[1] = models.CourseStaff{ID: 1, CourseID: 12, UserID: 5, Role: models.StaffRoleSubTutor}
	repo.nextID = 1

	staff, err := svc.Reassign(context.Background(), 1, AssignStaffRequest{CourseID: 13, UserID: 5, Role: models.StaffRoleSubTutor})
	require.NoError(t, err)
	assert.Equal(t, int64(13), staff.CourseID)
}

func TestAssignBlockedByConflict(t *testing.T) {
	svc, repo, _ := newConflictFixture(map[int64]models.Course{
		12: {ID: 12, Name: "Junior Tennis", Schedule: `{"day":[4],"hour":"14:00","end_time":"15:30"}`, Active: true},
		13: {ID: 13, Name: "Padel Basics", Schedule: `{"day":[4],"hour":"15:00","end_time":"16:00"}`, Active: true},
	})
	repo.rows[1] = models.CourseStaff{ID: 1, CourseID: 12, UserID: 5, Role: models.StaffRoleSubTutor}
	repo.nextID = 1

	_, err := svc.Assign(context.Background(), AssignStaffRequest{CourseID: 13, UserID: 5, Role: models.StaffRoleSubTutor})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
	assert.Len(t, repo.rows, 1)
}

func TestAssignSucceedsWithoutConflict(t *testing.T) {
	svc, repo, _ := newConflictFixture(map[int64]models.Course{
		12: {ID: 12, Name: "Junior Tennis", Schedule: `{"day":[2],"hour":"14:00"}`, Active: true},
		13: {ID: 13, Name: "Padel Basics", Schedule: `{"day":[4],"hour":"15:00"}`, Active: true},
	})
	repo.rows[1] = models.CourseStaff{ID: 1, CourseID: 12, UserID: 5, Role: models.StaffRoleSubTutor}
	repo.nextID = 1

	staff, err := svc.Assign(context.Background(), AssignStaffRequest{CourseID: 13, UserID: 5, Role: models.StaffRoleSubTutor})
	require.NoError(t, err)
	assert.NotZero(t, staff.ID)
	assert.Len(t, repo.rows, 2)
}
