package service

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/EduCollab-AI/EduCollab-Backend/internal/dto"
	"github.com/EduCollab-AI/EduCollab-Backend/internal/models"
	"github.com/EduCollab-AI/EduCollab-Backend/internal/recurrence"
	appErrors "github.com/EduCollab-AI/EduCollab-Backend/pkg/errors"
)

type projectionFixture struct {
	students    *studentsStub
	enrollments *enrollmentsStub
	courses     *coursesStub
	schedules   *schedulesStub
	exceptions  *exceptionsStub
	metrics     *MetricsService
}

func newProjectionFixture() *projectionFixture {
	return &projectionFixture{
		students: newStudentsStub(studentA),
		enrollments: &enrollmentsStub{byStudent: map[string][]models.Enrollment{
			studentA: {{ID: "enr-1", CourseID: "course-1", StudentID: studentA, Status: "active"}},
		}},
		courses: &coursesStub{courses: []models.Course{
			{ID: "course-1", Name: "Piano", TotalSessions: 4, TeacherName: lo.ToPtr("Ms. Lee")},
		}},
		schedules: &schedulesStub{schedules: []models.Schedule{{
			ID:              "sched-1",
			CourseID:        "course-1",
			DayOfWeek:       "Monday",
			StartTime:       recurrence.TimeOfDay{Hour: 16},
			StartDate:       day(2024, 1, 1),
			DurationMinutes: 60,
		}}},
		exceptions: &exceptionsStub{},
		metrics:    NewMetricsService(),
	}
}

func (f *projectionFixture) service(now time.Time) *ClassScheduleService {
	svc := NewClassScheduleService(f.students, f.enrollments, f.courses, f.schedules, f.exceptions, nil, f.metrics, ProjectionConfig{}, zap.NewNop())
	svc.now = fixedNow(now)
	return svc
}

func eventDates(events []dto.ClassScheduleEvent) []time.Time {
	return lo.Map(events, func(e dto.ClassScheduleEvent, _ int) time.Time { return recurrence.DateOf(e.StartTime) })
}

func TestProjectStopsAtSessionBudget(t *testing.T) {
	f := newProjectionFixture()
	svc := f.service(day(2024, 1, 1))

	resp, err := svc.Project(context.Background(), studentA, day(2024, 1, 1), day(2024, 6, 30), nil)
	require.NoError(t, err)

	require.Len(t, resp.Courses, 1)
	assert.Equal(t, "Piano", resp.Courses[0].Name)
	assert.Equal(t, models.EnrollmentStatusActive, resp.Courses[0].Status)
	assert.Equal(t, []time.Time{day(2024, 1, 1), day(2024, 1, 8), day(2024, 1, 15), day(2024, 1, 22)}, eventDates(resp.Events))
	assert.Equal(t, time.Date(2024, 1, 1, 17, 0, 0, 0, time.UTC), resp.Events[0].EndTime)
	assert.Equal(t, 1, testutil.CollectAndCount(f.metrics.dbQueryDuration))
}

func TestProjectCancellationRemovesExactlyOneOccurrence(t *testing.T) {
	f := newProjectionFixture()
	f.exceptions.exceptions = []models.ScheduleException{{
		ID:                "exc-1",
		ScheduleID:        "sched-1",
		OriginalDate:      day(2024, 1, 8),
		OriginalStartTime: recurrence.TimeOfDay{Hour: 16},
		IsCancelled:       true,
	}}
	svc := f.service(day(2024, 1, 1))

	resp, err := svc.Project(context.Background(), studentA, day(2024, 1, 1), day(2024, 6, 30), nil)
	require.NoError(t, err)
	assert.Equal(t, []time.Time{day(2024, 1, 1), day(2024, 1, 15), day(2024, 1, 22)}, eventDates(resp.Events))

	f.exceptions.exceptions = nil
	resp, err = svc.Project(context.Background(), studentA, day(2024, 1, 1), day(2024, 6, 30), nil)
	require.NoError(t, err)
	assert.Equal(t, []time.Time{day(2024, 1, 1), day(2024, 1, 8), day(2024, 1, 15), day(2024, 1, 22)}, eventDates(resp.Events))
}

func TestProjectRescheduledOccurrenceKeepsOrder(t *testing.T) {
	f := newProjectionFixture()
	moved := day(2024, 1, 17)
	f.exceptions.exceptions = []models.ScheduleException{{
		ScheduleID:        "sched-1",
		OriginalDate:      day(2024, 1, 8),
		OriginalStartTime: recurrence.TimeOfDay{Hour: 16},
		NewDate:           &moved,
	}}
	svc := f.service(day(2024, 1, 1))

	resp, err := svc.Project(context.Background(), studentA, day(2024, 1, 1), day(2024, 6, 30), nil)
	require.NoError(t, err)
	assert.Equal(t, []time.Time{day(2024, 1, 1), day(2024, 1, 15), day(2024, 1, 17), day(2024, 1, 22)}, eventDates(resp.Events))

	rescheduled := resp.Events[2]
	assert.True(t, rescheduled.Rescheduled)
	require.NotNil(t, rescheduled.OriginalDate)
	assert.Equal(t, "2024-01-08", *rescheduled.OriginalDate)
}

func TestProjectSplitsSessionsAcrossSchedules(t *testing.T) {
	f := newProjectionFixture()
	f.courses.courses[0].TotalSessions = 10
	f.schedules.schedules = append(f.schedules.schedules, models.Schedule{
		ID:              "sched-2",
		CourseID:        "course-1",
		DayOfWeek:       "Thursday",
		StartTime:       recurrence.TimeOfDay{Hour: 10},
		StartDate:       day(2024, 1, 4),
		DurationMinutes: 45,
	})
	svc := f.service(day(2024, 1, 1))

	resp, err := svc.Project(context.Background(), studentA, day(2024, 1, 1), day(2024, 12, 31), nil)
	require.NoError(t, err)

	require.Len(t, resp.Events, 10)
	counts := lo.CountValuesBy(resp.Events, func(e dto.ClassScheduleEvent) string { return e.ScheduleID })
	assert.Equal(t, map[string]int{"sched-1": 5, "sched-2": 5}, counts)
	for i := 1; i < len(resp.Events); i++ {
		assert.False(t, resp.Events[i].StartTime.Before(resp.Events[i-1].StartTime))
	}
}

func TestProjectLaterWindowConsumesBudget(t *testing.T) {
	f := newProjectionFixture()
	svc := f.service(day(2024, 1, 1))

	resp, err := svc.Project(context.Background(), studentA, day(2024, 1, 15), day(2024, 6, 30), nil)
	require.NoError(t, err)
	assert.Equal(t, []time.Time{day(2024, 1, 15), day(2024, 1, 22)}, eventDates(resp.Events))
}

func TestProjectHonoursMaxCountAndDeactivation(t *testing.T) {
	f := newProjectionFixture()
	svc := f.service(day(2024, 1, 1))

	resp, err := svc.Project(context.Background(), studentA, day(2024, 1, 1), day(2024, 6, 30), lo.ToPtr(2))
	require.NoError(t, err)
	assert.Len(t, resp.Events, 2)

	deactivated := day(2024, 1, 8)
	f.enrollments.byStudent[studentA] = []models.Enrollment{{CourseID: "course-1", Status: "inactive", DeactivatedAt: &deactivated}}
	resp, err = svc.Project(context.Background(), studentA, day(2024, 1, 1), day(2024, 6, 30), nil)
	require.NoError(t, err)
	assert.Equal(t, []time.Time{day(2024, 1, 1), day(2024, 1, 8)}, eventDates(resp.Events))
	require.NotNil(t, resp.Courses[0].InactiveDate)
	assert.Equal(t, "2024-01-08", *resp.Courses[0].InactiveDate)
	assert.Equal(t, "inactive", resp.Courses[0].Status)
}

func TestProjectSkipsUnreadableRule(t *testing.T) {
	f := newProjectionFixture()
	f.schedules.schedules[0].RecurrenceRule = lo.ToPtr("FREQ=HOURLY")
	svc := f.service(day(2024, 1, 1))

	resp, err := svc.Project(context.Background(), studentA, day(2024, 1, 1), day(2024, 6, 30), nil)
	require.NoError(t, err)
	assert.Len(t, resp.Courses, 1)
	assert.Empty(t, resp.Events)
}

func TestProjectUnknownStudentAndNoEnrollments(t *testing.T) {
	f := newProjectionFixture()
	svc := f.service(day(2024, 1, 1))

	_, err := svc.Project(context.Background(), studentB, day(2024, 1, 1), day(2024, 6, 30), nil)
	require.Error(t, err)
	assert.True(t, appErrors.IsCode(err, appErrors.ErrNotFound.Code))

	f.students.ids[studentB] = true
	resp, err := svc.Project(context.Background(), studentB, day(2024, 1, 1), day(2024, 6, 30), nil)
	require.NoError(t, err)
	assert.Empty(t, resp.Courses)
	assert.Empty(t, resp.Events)
}

func TestGetClassSchedulesValidatesInput(t *testing.T) {
	f := newProjectionFixture()
	svc := f.service(day(2024, 1, 1))
	ctx := context.Background()

	_, err := svc.GetClassSchedules(ctx, "", dto.ClassScheduleQuery{})
	assert.True(t, appErrors.IsCode(err, appErrors.ErrValidation.Code))

	_, err = svc.GetClassSchedules(ctx, "not-a-uuid", dto.ClassScheduleQuery{})
	assert.True(t, appErrors.IsCode(err, appErrors.ErrValidation.Code))

	_, err = svc.GetClassSchedules(ctx, studentA, dto.ClassScheduleQuery{MaxCount: lo.ToPtr(-1)})
	assert.True(t, appErrors.IsCode(err, appErrors.ErrValidation.Code))

	_, err = svc.GetClassSchedules(ctx, studentA, dto.ClassScheduleQuery{Start: day(2024, 3, 1), End: day(2024, 2, 1)})
	assert.True(t, appErrors.IsCode(err, appErrors.ErrValidation.Code))

	resp, err := svc.GetClassSchedules(ctx, studentA, dto.ClassScheduleQuery{})
	require.NoError(t, err)
	assert.Len(t, resp.Events, 4)
}
