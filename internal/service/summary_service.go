package service

import (
	"context"
	"strings"
	"time"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/EduCollab-AI/EduCollab-Backend/internal/dto"
	"github.com/EduCollab-AI/EduCollab-Backend/internal/models"
	"github.com/EduCollab-AI/EduCollab-Backend/internal/recurrence"
	appErrors "github.com/EduCollab-AI/EduCollab-Backend/pkg/errors"
)

var (
	summaryEpoch   = recurrence.Date(1970, time.January, 1)
	minutesPerHour = decimal.NewFromInt(60)
)

type classProjector interface {
	Project(ctx context.Context, studentID string, start, end time.Time, maxCount *int) (*dto.ClassScheduleResponse, error)
}

type paidEventLister interface {
	ListPaidBefore(ctx context.Context, studentID string, before time.Time) ([]models.PaymentEvent, error)
}

// SummaryConfig tunes SummaryService.
type SummaryConfig struct {
	FloorAllocation bool
	LegacyItemJoin  bool
	CacheTTL        time.Duration
}

// SummaryService aggregates taken and pending hours and paid amounts per course.
type SummaryService struct {
	students    studentChecker
	enrollments enrollmentLister
	courses     courseLister
	schedules   scheduleLister
	payments    paidEventLister
	projector   classProjector
	cache       *CacheService
	metrics     *MetricsService
	cfg         SummaryConfig
	logger      *zap.Logger
	now         func() time.Time
}

// NewSummaryService constructs the summary service.
func NewSummaryService(
	students studentChecker,
	enrollments enrollmentLister,
	courses courseLister,
	schedules scheduleLister,
	payments paidEventLister,
	projector classProjector,
	cache *CacheService,
	metrics *MetricsService,
	cfg SummaryConfig,
	logger *zap.Logger,
) *SummaryService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SummaryService{
		students:    students,
		enrollments: enrollments,
		courses:     courses,
		schedules:   schedules,
		payments:    payments,
		projector:   projector,
		cache:       cache,
		metrics:     metrics,
		cfg:         cfg,
		logger:      logger,
		now:         time.Now,
	}
}

// GetStudentSummary reports, per enrolled course, the hours held before today,
// the hours still planned and the amount paid for it.
func (s *SummaryService) GetStudentSummary(ctx context.Context, studentID string) (*dto.StudentSummaryResponse, error) {
	if err := validateStudentID(studentID); err != nil {
		return nil, err
	}
	today := recurrence.DateOf(s.now())

	key := SummaryCacheKey(studentID, today)
	var cached dto.StudentSummaryResponse
	if hit, _ := s.cache.Get(ctx, key, &cached); hit {
		return &cached, nil
	}

	exists, err := s.students.Exists(ctx, studentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	if !exists {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
	}

	resp := &dto.StudentSummaryResponse{
		StudentID:   studentID,
		SummaryDate: recurrence.FormatDate(today),
		Courses:     []dto.CourseSummary{},
	}

	loadStart := time.Now()
	enrollments, err := s.enrollments.ListByStudent(ctx, studentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enrollments")
	}
	courseIDs := lo.Uniq(lo.FilterMap(enrollments, func(e models.Enrollment, _ int) (string, bool) {
		return e.CourseID, e.CourseID != ""
	}))
	if len(courseIDs) == 0 {
		return resp, nil
	}

	courses, err := s.courses.ListByIDs(ctx, courseIDs)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load courses")
	}
	schedules, err := s.schedules.ListByCourseIDs(ctx, courseIDs)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load schedules")
	}
	paid, err := s.payments.ListPaidBefore(ctx, studentID, today)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load paid payment events")
	}
	s.metrics.ObserveDBQuery("summary_load", time.Since(loadStart))

	end := today.AddDate(0, 0, -1)
	if end.Before(summaryEpoch) {
		end = summaryEpoch
	}
	projection, err := s.projector.Project(ctx, studentID, summaryEpoch, end, nil)
	if err != nil {
		return nil, err
	}

	taken := minutesTakenByCourse(projection.Events, today)
	planned := s.plannedMinutesByCourse(courses, schedules)
	totals := s.paidByCourse(paid, courses)

	for _, course := range courses {
		pending := planned[course.ID] - taken[course.ID]
		if pending < 0 {
			pending = 0
		}
		total, ok := totals[course.ID]
		if !ok {
			total = decimal.Zero
		}
		resp.Courses = append(resp.Courses, dto.CourseSummary{
			CourseID:        course.ID,
			CourseName:      course.Name,
			TotalPaidAmount: total,
			HoursTaken:      minutesToHours(taken[course.ID]),
			PendingHours:    minutesToHours(pending),
		})
	}

	_ = s.cache.Set(ctx, key, resp, s.cfg.CacheTTL)
	s.logger.Debug("student summary built", zap.String("student_id", studentID), zap.Int("courses", len(resp.Courses)))
	return resp, nil
}

func minutesTakenByCourse(events []dto.ClassScheduleEvent, today time.Time) map[string]int64 {
	taken := make(map[string]int64)
	for _, event := range events {
		if !recurrence.DateOf(event.StartTime).Before(today) {
			continue
		}
		taken[event.CourseID] += int64(event.DurationMinutes)
	}
	return taken
}

func (s *SummaryService) plannedMinutesByCourse(courses []models.Course, schedules []models.Schedule) map[string]int64 {
	planned := make(map[string]int64, len(courses))
	byCourse := lo.GroupBy(schedules, func(sc models.Schedule) string { return sc.CourseID })
	for _, course := range courses {
		group := byCourse[course.ID]
		if course.TotalSessions <= 0 || len(group) == 0 {
			continue
		}
		allocation := Allocate(course.TotalSessions, lo.Map(group, func(sc models.Schedule, _ int) string { return sc.ID }), s.cfg.FloorAllocation)
		for _, schedule := range group {
			planned[course.ID] += int64(schedule.DurationMinutes) * int64(allocation[schedule.ID])
		}
	}
	return planned
}

// paidByCourse attributes paid amounts by course id, falling back to a
// case-insensitive match of the item against the course name.
func (s *SummaryService) paidByCourse(events []models.PaymentEvent, courses []models.Course) map[string]decimal.Decimal {
	byID := lo.KeyBy(courses, func(c models.Course) string { return c.ID })
	byName := make(map[string]string, len(courses))
	for _, course := range courses {
		if course.Name != "" {
			byName[strings.ToLower(course.Name)] = course.ID
		}
	}

	totals := make(map[string]decimal.Decimal)
	for _, event := range events {
		courseID := ""
		if event.CourseID != nil {
			if _, ok := byID[*event.CourseID]; ok {
				courseID = *event.CourseID
			}
		} else if s.cfg.LegacyItemJoin && event.Item != nil {
			courseID = byName[strings.ToLower(*event.Item)]
		}
		if courseID == "" {
			continue
		}
		amount := decimal.Zero
		if event.Amount.Valid {
			amount = event.Amount.Decimal
		}
		totals[courseID] = totals[courseID].Add(amount)
	}
	return totals
}

// minutesToHours converts minutes to hours rounded half-up to two places.
func minutesToHours(minutes int64) decimal.Decimal {
	if minutes <= 0 {
		return decimal.Zero.Round(2)
	}
	return decimal.NewFromInt(minutes).DivRound(minutesPerHour, 2)
}
