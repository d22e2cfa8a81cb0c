package service

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"go.uber.org/zap"

	"github.com/EduCollab-AI/EduCollab-Backend/internal/dto"
	"github.com/EduCollab-AI/EduCollab-Backend/internal/models"
	"github.com/EduCollab-AI/EduCollab-Backend/internal/recurrence"
	appErrors "github.com/EduCollab-AI/EduCollab-Backend/pkg/errors"
)

type studentChecker interface {
	Exists(ctx context.Context, id string) (bool, error)
}

type enrollmentLister interface {
	ListByStudent(ctx context.Context, studentID string) ([]models.Enrollment, error)
}

type courseLister interface {
	ListByIDs(ctx context.Context, ids []string) ([]models.Course, error)
}

type scheduleLister interface {
	ListByCourseIDs(ctx context.Context, courseIDs []string) ([]models.Schedule, error)
}

type exceptionLister interface {
	ListByScheduleIDs(ctx context.Context, scheduleIDs []string) ([]models.ScheduleException, error)
}

// ProjectionConfig tunes ClassScheduleService.
type ProjectionConfig struct {
	DefaultWindowMonths int
	FloorAllocation     bool
	LegacyFallback      bool
	CacheTTL            time.Duration
}

// ClassScheduleService projects a student's class sessions from course schedules.
type ClassScheduleService struct {
	students    studentChecker
	enrollments enrollmentLister
	courses     courseLister
	schedules   scheduleLister
	exceptions  exceptionLister
	cache       *CacheService
	metrics     *MetricsService
	cfg         ProjectionConfig
	logger      *zap.Logger
	now         func() time.Time
}

// NewClassScheduleService constructs the projection service.
func NewClassScheduleService(
	students studentChecker,
	enrollments enrollmentLister,
	courses courseLister,
	schedules scheduleLister,
	exceptions exceptionLister,
	cache *CacheService,
	metrics *MetricsService,
	cfg ProjectionConfig,
	logger *zap.Logger,
) *ClassScheduleService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.DefaultWindowMonths <= 0 {
		cfg.DefaultWindowMonths = 3
	}
	return &ClassScheduleService{
		students:    students,
		enrollments: enrollments,
		courses:     courses,
		schedules:   schedules,
		exceptions:  exceptions,
		cache:       cache,
		metrics:     metrics,
		cfg:         cfg,
		logger:      logger,
		now:         time.Now,
	}
}

type projectionStats struct {
	emitted     int
	rescheduled int
	cancelled   int
}

// GetClassSchedules returns the student's courses and the class events in the
// requested window, earliest first.
func (s *ClassScheduleService) GetClassSchedules(ctx context.Context, studentID string, query dto.ClassScheduleQuery) (*dto.ClassScheduleResponse, error) {
	if err := validateStudentID(studentID); err != nil {
		return nil, err
	}
	start, end, err := resolveWindow(query.Start, query.End, s.now(), s.cfg.DefaultWindowMonths)
	if err != nil {
		return nil, err
	}
	if query.MaxCount != nil && *query.MaxCount < 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "maximumCount must not be negative")
	}

	key := ClassScheduleCacheKey(studentID, start, end, query.MaxCount)
	var cached dto.ClassScheduleResponse
	if hit, _ := s.cache.Get(ctx, key, &cached); hit {
		return &cached, nil
	}

	resp, err := s.Project(ctx, studentID, start, end, query.MaxCount)
	if err != nil {
		return nil, err
	}
	_ = s.cache.Set(ctx, key, resp, s.cfg.CacheTTL)
	return resp, nil
}

// Project runs the projection for an explicit window without caching.
func (s *ClassScheduleService) Project(ctx context.Context, studentID string, start, end time.Time, maxCount *int) (*dto.ClassScheduleResponse, error) {
	began := time.Now()
	start, end = recurrence.DateOf(start), recurrence.DateOf(end)

	exists, err := s.students.Exists(ctx, studentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	if !exists {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
	}

	loadStart := time.Now()
	enrollments, err := s.enrollments.ListByStudent(ctx, studentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enrollments")
	}
	resp := &dto.ClassScheduleResponse{Courses: []dto.ClassScheduleCourse{}, Events: []dto.ClassScheduleEvent{}}
	if len(enrollments) == 0 {
		s.metrics.ObserveDBQuery("class_schedule_load", time.Since(loadStart))
		return resp, nil
	}

	today := recurrence.DateOf(s.now())
	lifecycles := buildLifecycles(enrollments, today)
	courseIDs := lo.Uniq(lo.FilterMap(enrollments, func(e models.Enrollment, _ int) (string, bool) {
		return e.CourseID, e.CourseID != ""
	}))
	sort.Strings(courseIDs)

	courses, err := s.courses.ListByIDs(ctx, courseIDs)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load courses")
	}
	schedules, err := s.schedules.ListByCourseIDs(ctx, courseIDs)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load schedules")
	}
	var exceptions []models.ScheduleException
	if len(schedules) > 0 {
		scheduleIDs := lo.Map(schedules, func(sc models.Schedule, _ int) string { return sc.ID })
		exceptions, err = s.exceptions.ListByScheduleIDs(ctx, scheduleIDs)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load schedule exceptions")
		}
	}
	s.metrics.ObserveDBQuery("class_schedule_load", time.Since(loadStart))

	courseByID := lo.KeyBy(courses, func(c models.Course) string { return c.ID })
	schedulesByCourse := lo.GroupBy(schedules, func(sc models.Schedule) string { return sc.CourseID })
	allocations := make(map[string]map[string]int, len(schedulesByCourse))
	for courseID, group := range schedulesByCourse {
		course, ok := courseByID[courseID]
		if !ok {
			continue
		}
		ids := lo.Map(group, func(sc models.Schedule, _ int) string { return sc.ID })
		allocations[courseID] = Allocate(course.TotalSessions, ids, s.cfg.FloorAllocation)
	}

	overlay := newExceptionOverlay(exceptions)
	var stats projectionStats
	events := make([]models.ClassEvent, 0)
	for _, schedule := range schedules {
		allocation, ok := allocations[schedule.CourseID]
		if !ok {
			continue
		}
		events = append(events, s.projectSchedule(schedule, allocation[schedule.ID], lifecycles[schedule.CourseID], overlay, start, end, maxCount, &stats)...)
	}
	sort.SliceStable(events, func(i, j int) bool { return events[i].Start.Before(events[j].Start) })

	for _, course := range courses {
		resp.Courses = append(resp.Courses, toClassScheduleCourse(course, lifecycles[course.ID]))
	}
	for _, event := range events {
		resp.Events = append(resp.Events, toClassScheduleEvent(event))
	}

	s.metrics.ObserveProjection(time.Since(began), stats.emitted, stats.rescheduled, stats.cancelled)
	s.logger.Debug("class schedules projected",
		zap.String("student_id", studentID),
		zap.String("start", recurrence.FormatDate(start)),
		zap.String("end", recurrence.FormatDate(end)),
		zap.Int("courses", len(resp.Courses)),
		zap.Int("events", len(resp.Events)),
	)
	return resp, nil
}

func (s *ClassScheduleService) projectSchedule(
	schedule models.Schedule,
	allocation int,
	lifecycle CourseLifecycle,
	overlay exceptionOverlay,
	start, end time.Time,
	maxCount *int,
	stats *projectionStats,
) []models.ClassEvent {
	anchor := recurrence.DateOf(schedule.StartDate)
	rule, err := recurrence.ParseSchedule(schedule.Rule(), schedule.DayOfWeek, anchor, recurrence.ParseOptions{LegacyFallback: s.cfg.LegacyFallback})
	if err != nil {
		s.logger.Warn("skipping schedule with unreadable recurrence rule",
			zap.String("schedule_id", schedule.ID),
			zap.String("rule", schedule.Rule()),
			zap.Error(err),
		)
		return nil
	}

	effectiveStart := recurrence.MaxDate(anchor, start)
	upper, ok := lifecycle.bound(effectiveStart, end)
	if !ok {
		return nil
	}
	remaining := remainingSessions(rule, anchor, effectiveStart, allocation)
	limit := sessionCap(remaining, maxCount)
	if limit == 0 {
		return nil
	}

	dates := rule.Expand(anchor, effectiveStart, upper, limit)
	events := make([]models.ClassEvent, 0, len(dates))
	for _, date := range dates {
		event, outcome := overlay.apply(schedule, date)
		switch outcome {
		case occurrenceCancelled:
			stats.cancelled++
			continue
		case occurrenceRescheduled:
			stats.rescheduled++
		}
		stats.emitted++
		events = append(events, event)
	}

	s.logger.Debug("schedule expanded",
		zap.String("schedule_id", schedule.ID),
		zap.String("rule", rule.String()),
		zap.Int("allocation", allocation),
		zap.Int("remaining", remaining),
		zap.Int("limit", limit),
		zap.Int("events", len(events)),
	)
	return events
}

func toClassScheduleCourse(course models.Course, lifecycle CourseLifecycle) dto.ClassScheduleCourse {
	item := dto.ClassScheduleCourse{
		CourseID:    course.ID,
		Name:        course.Name,
		TeacherName: course.TeacherName,
		Location:    course.Location,
		Description: course.Description,
		Status:      lifecycle.Status,
	}
	if item.Status == "" {
		item.Status = models.EnrollmentStatusActive
	}
	if lifecycle.InactiveDate != nil {
		item.InactiveDate = lo.ToPtr(recurrence.FormatDate(*lifecycle.InactiveDate))
	}
	return item
}

func toClassScheduleEvent(event models.ClassEvent) dto.ClassScheduleEvent {
	item := dto.ClassScheduleEvent{
		ScheduleID:      event.ScheduleID,
		CourseID:        event.CourseID,
		StartTime:       event.Start,
		EndTime:         event.End,
		DurationMinutes: event.DurationMinutes,
		Rescheduled:     event.Rescheduled,
	}
	if event.Rescheduled {
		item.OriginalDate = lo.ToPtr(recurrence.FormatDate(event.OriginalDate))
	}
	return item
}

func validateStudentID(studentID string) error {
	if studentID == "" {
		return appErrors.Clone(appErrors.ErrValidation, "studentId is required")
	}
	if _, err := uuid.Parse(studentID); err != nil {
		return appErrors.Clone(appErrors.ErrValidation, "invalid studentId format")
	}
	return nil
}

// resolveWindow applies the default window: today through today plus the
// configured number of months.
func resolveWindow(start, end, now time.Time, months int) (time.Time, time.Time, error) {
	today := recurrence.DateOf(now)
	if start.IsZero() {
		start = today
	}
	if end.IsZero() {
		end = today.AddDate(0, months, 0)
	}
	start, end = recurrence.DateOf(start), recurrence.DateOf(end)
	if end.Before(start) {
		return time.Time{}, time.Time{}, appErrors.Clone(appErrors.ErrValidation, "endDate must not be before startDate")
	}
	return start, end, nil
}
