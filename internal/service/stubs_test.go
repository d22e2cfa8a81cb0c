package service

import (
	"context"
	"database/sql"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/samber/lo"

	"github.com/EduCollab-AI/EduCollab-Backend/internal/models"
	"github.com/EduCollab-AI/EduCollab-Backend/internal/recurrence"
	"github.com/EduCollab-AI/EduCollab-Backend/internal/repository"
	appErrors "github.com/EduCollab-AI/EduCollab-Backend/pkg/errors"
)

const (
	studentA = "11111111-1111-1111-1111-111111111111"
	studentB = "22222222-2222-2222-2222-222222222222"
)

func fixedNow(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

type studentsStub struct {
	ids map[string]bool
	err error
}

func newStudentsStub(ids ...string) *studentsStub {
	s := &studentsStub{ids: make(map[string]bool)}
	for _, id := range ids {
		s.ids[id] = true
	}
	return s
}

func (s *studentsStub) Exists(ctx context.Context, id string) (bool, error) {
	if s.err != nil {
		return false, s.err
	}
	return s.ids[id], nil
}

type enrollmentsStub struct {
	byStudent map[string][]models.Enrollment
}

func (s *enrollmentsStub) ListByStudent(ctx context.Context, studentID string) ([]models.Enrollment, error) {
	return s.byStudent[studentID], nil
}

type coursesStub struct {
	courses []models.Course
}

func (s *coursesStub) ListByIDs(ctx context.Context, ids []string) ([]models.Course, error) {
	return lo.Filter(s.courses, func(c models.Course, _ int) bool { return lo.Contains(ids, c.ID) }), nil
}

func (s *coursesStub) FindByID(ctx context.Context, id string) (*models.Course, error) {
	course, ok := lo.Find(s.courses, func(c models.Course) bool { return c.ID == id })
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &course, nil
}

type schedulesStub struct {
	schedules []models.Schedule
}

func (s *schedulesStub) ListByCourseIDs(ctx context.Context, courseIDs []string) ([]models.Schedule, error) {
	return lo.Filter(s.schedules, func(sc models.Schedule, _ int) bool { return lo.Contains(courseIDs, sc.CourseID) }), nil
}

func (s *schedulesStub) FindByID(ctx context.Context, id string) (*models.Schedule, error) {
	schedule, ok := lo.Find(s.schedules, func(sc models.Schedule) bool { return sc.ID == id })
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &schedule, nil
}

type exceptionsStub struct {
	exceptions []models.ScheduleException
	saved      []models.ScheduleException
	lookups    []string
}

func (s *exceptionsStub) ListByScheduleIDs(ctx context.Context, scheduleIDs []string) ([]models.ScheduleException, error) {
	return lo.Filter(s.exceptions, func(e models.ScheduleException, _ int) bool { return lo.Contains(scheduleIDs, e.ScheduleID) }), nil
}

func (s *exceptionsStub) FindByOccurrence(ctx context.Context, scheduleID string, date time.Time, start recurrence.TimeOfDay) (*models.ScheduleException, error) {
	s.lookups = append(s.lookups, "original")
	for _, e := range s.exceptions {
		if e.ScheduleID == scheduleID && e.OriginalDate.Equal(date) && e.OriginalStartTime == start {
			found := e
			return &found, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (s *exceptionsStub) FindByRescheduled(ctx context.Context, scheduleID string, date time.Time, start recurrence.TimeOfDay) (*models.ScheduleException, error) {
	s.lookups = append(s.lookups, "rescheduled")
	for _, e := range s.exceptions {
		if e.ScheduleID != scheduleID || e.NewDate == nil || !e.NewDate.Equal(date) {
			continue
		}
		if e.NewStartTime != nil && *e.NewStartTime == start {
			found := e
			return &found, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (s *exceptionsStub) Save(ctx context.Context, exception *models.ScheduleException) error {
	if exception.ID == "" {
		exception.ID = uuid.NewString()
	}
	s.saved = append(s.saved, *exception)
	return nil
}

type paymentSchedulesStub struct {
	schedules []models.PaymentSchedule
	created   []models.PaymentSchedule
	deleted   []string
	lastExec  sqlx.ExtContext
}

func (s *paymentSchedulesStub) ListByStudent(ctx context.Context, studentID string) ([]models.PaymentSchedule, error) {
	return lo.Filter(s.schedules, func(sc models.PaymentSchedule, _ int) bool { return sc.StudentID == studentID }), nil
}

func (s *paymentSchedulesStub) FindByID(ctx context.Context, id string) (*models.PaymentSchedule, error) {
	schedule, ok := lo.Find(s.schedules, func(sc models.PaymentSchedule) bool { return sc.ID == id })
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &schedule, nil
}

func (s *paymentSchedulesStub) Delete(ctx context.Context, exec sqlx.ExtContext, id string) error {
	s.lastExec = exec
	s.deleted = append(s.deleted, id)
	return nil
}

func (s *paymentSchedulesStub) Create(ctx context.Context, schedule *models.PaymentSchedule) error {
	schedule.ID = uuid.NewString()
	s.created = append(s.created, *schedule)
	return nil
}

// paymentEventsStub is an in-memory event table enforcing the natural key.
type paymentEventsStub struct {
	mu           sync.Mutex
	events       []models.PaymentEvent
	inserts      int
	existsChecks int
	markPaidErr  error
	futureCut    time.Time
	lastExec     sqlx.ExtContext
}

func (s *paymentEventsStub) ListByStudentInRange(ctx context.Context, studentID string, from, to time.Time) ([]models.PaymentEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := lo.Filter(s.events, func(e models.PaymentEvent, _ int) bool {
		return e.StudentID == studentID && !e.DueDate.Before(from) && !e.DueDate.After(to)
	})
	sort.SliceStable(out, func(i, j int) bool { return out[i].DueDate.Before(out[j].DueDate) })
	return out, nil
}

func (s *paymentEventsStub) ListKeysByStudent(ctx context.Context, studentID string) ([]models.PaymentEventKey, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return lo.FilterMap(s.events, func(e models.PaymentEvent, _ int) (models.PaymentEventKey, bool) {
		return e.Key(), e.StudentID == studentID
	}), nil
}

func (s *paymentEventsStub) ExistsByKey(ctx context.Context, studentID string, key models.PaymentEventKey) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.existsChecks++
	return lo.ContainsBy(s.events, func(e models.PaymentEvent) bool {
		return e.StudentID == studentID && e.Key() == key
	}), nil
}

func (s *paymentEventsStub) InsertIgnoreConflicts(ctx context.Context, events []models.PaymentEvent) (repository.InsertResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var result repository.InsertResult
	for _, event := range events {
		duplicate := lo.ContainsBy(s.events, func(e models.PaymentEvent) bool {
			return e.StudentID == event.StudentID && e.Key() == event.Key()
		})
		if duplicate {
			result.Conflicts++
			continue
		}
		event.ID = uuid.NewString()
		s.events = append(s.events, event)
		result.Inserted++
		s.inserts++
	}
	return result, nil
}

func (s *paymentEventsStub) FindByID(ctx context.Context, id string) (*models.PaymentEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	event, ok := lo.Find(s.events, func(e models.PaymentEvent) bool { return e.ID == id })
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &event, nil
}

func (s *paymentEventsStub) MarkPaid(ctx context.Context, id string, paidDate time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.markPaidErr != nil {
		return false, s.markPaidErr
	}
	for i := range s.events {
		if s.events[i].ID == id && s.events[i].Status == models.PaymentStatusPending {
			s.events[i].Status = models.PaymentStatusPaid
			s.events[i].PaidDate = &paidDate
			return true, nil
		}
	}
	return false, nil
}

func (s *paymentEventsStub) ListPaidBefore(ctx context.Context, studentID string, before time.Time) ([]models.PaymentEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return lo.Filter(s.events, func(e models.PaymentEvent, _ int) bool {
		return e.StudentID == studentID && e.Status == models.PaymentStatusPaid && e.DueDate.Before(before)
	}), nil
}

func (s *paymentEventsStub) DeleteFutureBySchedule(ctx context.Context, exec sqlx.ExtContext, scheduleID string, after time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastExec = exec
	s.futureCut = after
	kept := s.events[:0]
	var deleted int64
	for _, e := range s.events {
		if e.PaymentScheduleID == scheduleID && e.DueDate.After(after) {
			deleted++
			continue
		}
		kept = append(kept, e)
	}
	s.events = kept
	return deleted, nil
}

func (s *paymentEventsStub) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	before := len(s.events)
	s.events = lo.Reject(s.events, func(e models.PaymentEvent, _ int) bool { return e.ID == id })
	if len(s.events) == before {
		return appErrors.ErrNotFound
	}
	return nil
}

type txStub struct {
	calls int
	err   error
}

func (s *txStub) WithTx(ctx context.Context, fn func(ctx context.Context, tx sqlx.ExtContext) error) error {
	s.calls++
	if s.err != nil {
		return s.err
	}
	return fn(ctx, nil)
}
