package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/samber/lo"
	"go.uber.org/zap"

	"github.com/EduCollab-AI/EduCollab-Backend/internal/dto"
	"github.com/EduCollab-AI/EduCollab-Backend/internal/models"
	"github.com/EduCollab-AI/EduCollab-Backend/internal/recurrence"
	"github.com/EduCollab-AI/EduCollab-Backend/internal/repository"
	appErrors "github.com/EduCollab-AI/EduCollab-Backend/pkg/errors"
)

type paymentScheduleStore interface {
	ListByStudent(ctx context.Context, studentID string) ([]models.PaymentSchedule, error)
	FindByID(ctx context.Context, id string) (*models.PaymentSchedule, error)
	Delete(ctx context.Context, exec sqlx.ExtContext, id string) error
}

type paymentEventStore interface {
	ListByStudentInRange(ctx context.Context, studentID string, from, to time.Time) ([]models.PaymentEvent, error)
	ListKeysByStudent(ctx context.Context, studentID string) ([]models.PaymentEventKey, error)
	ExistsByKey(ctx context.Context, studentID string, key models.PaymentEventKey) (bool, error)
	InsertIgnoreConflicts(ctx context.Context, events []models.PaymentEvent) (repository.InsertResult, error)
	FindByID(ctx context.Context, id string) (*models.PaymentEvent, error)
	MarkPaid(ctx context.Context, id string, paidDate time.Time) (bool, error)
	DeleteFutureBySchedule(ctx context.Context, exec sqlx.ExtContext, scheduleID string, after time.Time) (int64, error)
	Delete(ctx context.Context, id string) error
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(ctx context.Context, tx sqlx.ExtContext) error) error
}

// PaymentConfig tunes PaymentService.
type PaymentConfig struct {
	DefaultWindowMonths int
	LegacyFallback      bool
}

// PaymentService materializes payment events from billing rules and manages them.
type PaymentService struct {
	students  studentChecker
	schedules paymentScheduleStore
	events    paymentEventStore
	tx        txRunner
	cache     *CacheService
	metrics   *MetricsService
	cfg       PaymentConfig
	logger    *zap.Logger
	now       func() time.Time
}

// NewPaymentService constructs the payment service.
func NewPaymentService(
	students studentChecker,
	schedules paymentScheduleStore,
	events paymentEventStore,
	tx txRunner,
	cache *CacheService,
	metrics *MetricsService,
	cfg PaymentConfig,
	logger *zap.Logger,
) *PaymentService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.DefaultWindowMonths <= 0 {
		cfg.DefaultWindowMonths = 3
	}
	return &PaymentService{
		students:  students,
		schedules: schedules,
		events:    events,
		tx:        tx,
		cache:     cache,
		metrics:   metrics,
		cfg:       cfg,
		logger:    logger,
		now:       time.Now,
	}
}

// GetPaymentEvents returns the student's billing rules and the payment events
// due in the window, generating and persisting missing events on the way.
func (s *PaymentService) GetPaymentEvents(ctx context.Context, studentID string, query dto.PaymentEventQuery) (*dto.PaymentEventsResponse, error) {
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

	events, schedules, err := s.Materialize(ctx, studentID, start, end, query.MaxCount)
	if err != nil {
		return nil, err
	}

	return &dto.PaymentEventsResponse{
		Schedules: lo.Map(schedules, func(sc models.PaymentSchedule, _ int) dto.PaymentScheduleItem { return toPaymentScheduleItem(sc) }),
		Events:    lo.Map(events, func(ev models.PaymentEvent, _ int) dto.PaymentEventItem { return toPaymentEventItem(ev) }),
	}, nil
}

// Materialize loads the events in [start, end] and persists the missing ones.
// Generation is idempotent: rows already stored, including those written by a
// concurrent call, are skipped by the unique key.
func (s *PaymentService) Materialize(ctx context.Context, studentID string, start, end time.Time, maxCount *int) ([]models.PaymentEvent, []models.PaymentSchedule, error) {
	start, end = recurrence.DateOf(start), recurrence.DateOf(end)

	exists, err := s.students.Exists(ctx, studentID)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	if !exists {
		return nil, nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
	}

	loadStart := time.Now()
	schedules, err := s.schedules.ListByStudent(ctx, studentID)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load payment schedules")
	}
	existing, err := s.events.ListByStudentInRange(ctx, studentID, start, end)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load payment events")
	}
	s.metrics.ObserveDBQuery("payment_load", time.Since(loadStart))

	if maxCount != nil && len(existing) > *maxCount {
		s.metrics.ObserveMaterialization(DecisionTrim, 0, 0)
		return existing[:*maxCount], schedules, nil
	}
	if !shouldGenerate(existing, end, maxCount) {
		s.metrics.ObserveMaterialization(DecisionReuse, 0, 0)
		return existing, schedules, nil
	}

	slots := -1
	if maxCount != nil {
		slots = *maxCount - len(existing)
	}
	generated, err := s.generate(ctx, studentID, schedules, start, end, slots)
	if err != nil {
		return nil, nil, err
	}
	if len(generated) == 0 {
		s.metrics.ObserveMaterialization(DecisionGenerate, 0, 0)
		return existing, schedules, nil
	}

	result, err := s.events.InsertIgnoreConflicts(ctx, generated)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to persist payment events")
	}
	s.metrics.ObserveMaterialization(DecisionGenerate, result.Inserted, result.Conflicts)
	if result.Conflicts > 0 {
		s.logger.Warn("payment events already materialized",
			zap.String("student_id", studentID),
			zap.Int("conflicts", result.Conflicts),
		)
	}
	s.logger.Info("payment events materialized",
		zap.String("student_id", studentID),
		zap.String("start", recurrence.FormatDate(start)),
		zap.String("end", recurrence.FormatDate(end)),
		zap.Int("inserted", result.Inserted),
		zap.Int("conflicts", result.Conflicts),
	)

	refreshed, err := s.events.ListByStudentInRange(ctx, studentID, start, end)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to reload payment events")
	}
	if maxCount != nil && len(refreshed) > *maxCount {
		refreshed = refreshed[:*maxCount]
	}
	if result.Inserted > 0 {
		_ = s.cache.InvalidateStudent(ctx, studentID)
	}
	return refreshed, schedules, nil
}

// shouldGenerate decides whether the window may be missing events.
func shouldGenerate(existing []models.PaymentEvent, end time.Time, maxCount *int) bool {
	if len(existing) == 0 {
		return true
	}
	if maxCount != nil && len(existing) >= *maxCount {
		return false
	}
	latest := existing[len(existing)-1].DueDate
	for _, event := range existing {
		if event.DueDate.After(latest) {
			latest = event.DueDate
		}
	}
	return !recurrence.DateOf(latest).After(end)
}

// generate builds the pending events missing from storage. slots < 0 means unbounded.
func (s *PaymentService) generate(ctx context.Context, studentID string, schedules []models.PaymentSchedule, start, end time.Time, slots int) ([]models.PaymentEvent, error) {
	if slots == 0 || len(schedules) == 0 {
		return nil, nil
	}
	keys, err := s.events.ListKeysByStudent(ctx, studentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load payment event keys")
	}
	known := make(map[models.PaymentEventKey]struct{}, len(keys))
	for _, key := range keys {
		known[key] = struct{}{}
	}

	generated := make([]models.PaymentEvent, 0)
	for _, schedule := range schedules {
		rule, err := billingRule(schedule, s.cfg.LegacyFallback)
		if err != nil {
			s.logger.Warn("skipping payment schedule with unreadable billing rule",
				zap.String("payment_schedule_id", schedule.ID),
				zap.String("rule", schedule.BillingRRule),
				zap.Error(err),
			)
			continue
		}
		for _, due := range ExpandPaymentSchedule(schedule, rule, start, end) {
			if due.Before(start) || due.After(end) {
				continue
			}
			key := models.PaymentEventKey{ScheduleID: schedule.ID, DueDate: due}
			if _, ok := known[key]; ok {
				continue
			}
			stored, err := s.events.ExistsByKey(ctx, studentID, key)
			if err != nil {
				return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check payment event")
			}
			known[key] = struct{}{}
			if stored {
				continue
			}
			generated = append(generated, newPendingEvent(studentID, schedule, due))
			if slots > 0 {
				slots--
				if slots == 0 {
					return generated, nil
				}
			}
		}
	}
	return generated, nil
}

func newPendingEvent(studentID string, schedule models.PaymentSchedule, due time.Time) models.PaymentEvent {
	return models.PaymentEvent{
		StudentID:         studentID,
		PaymentScheduleID: schedule.ID,
		CourseID:          schedule.CourseID,
		Item:              schedule.Item,
		Amount:            schedule.Amount,
		DueDate:           due,
		Status:            models.PaymentStatusPending,
		Note:              schedule.Note,
	}
}

// UpdatePaymentEventStatus marks a pending event as paid today. No other
// transition is allowed.
func (s *PaymentService) UpdatePaymentEventStatus(ctx context.Context, eventID, status string) (*dto.PaymentEventItem, error) {
	if _, err := uuid.Parse(eventID); err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "invalid paymentEventId format")
	}
	target := models.PaymentStatus(strings.ToLower(strings.TrimSpace(status)))
	if target == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "status is required")
	}
	if !target.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown payment status")
	}

	event, err := s.events.FindByID(ctx, eventID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "payment event not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load payment event")
	}
	if target != models.PaymentStatusPaid || event.Status != models.PaymentStatusPending {
		return nil, appErrors.Clone(appErrors.ErrIllegalTransition, "payment event cannot move from "+string(event.Status)+" to "+string(target))
	}

	today := recurrence.DateOf(s.now())
	updated, err := s.events.MarkPaid(ctx, eventID, today)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update payment event")
	}
	if !updated {
		return nil, appErrors.Clone(appErrors.ErrIllegalTransition, "payment event is no longer pending")
	}

	event.Status = models.PaymentStatusPaid
	event.PaidDate = &today
	_ = s.cache.InvalidateStudent(ctx, event.StudentID)
	s.logger.Info("payment event paid", zap.String("payment_event_id", eventID), zap.String("student_id", event.StudentID))

	item := toPaymentEventItem(*event)
	return &item, nil
}

// DeletePaymentSchedule removes the student's schedule and its events due after
// today. Past events stay for history.
func (s *PaymentService) DeletePaymentSchedule(ctx context.Context, studentID, scheduleID string) (*dto.DeletePaymentScheduleResponse, error) {
	if err := validateStudentID(studentID); err != nil {
		return nil, err
	}
	if _, err := uuid.Parse(scheduleID); err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "invalid paymentScheduleId format")
	}

	schedule, err := s.schedules.FindByID(ctx, scheduleID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "payment schedule not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load payment schedule")
	}
	if schedule.StudentID != studentID {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "payment schedule not found for student")
	}

	today := recurrence.DateOf(s.now())
	var deleted int64
	err = s.tx.WithTx(ctx, func(ctx context.Context, tx sqlx.ExtContext) error {
		n, err := s.events.DeleteFutureBySchedule(ctx, tx, scheduleID, today)
		if err != nil {
			return err
		}
		deleted = n
		return s.schedules.Delete(ctx, tx, scheduleID)
	})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete payment schedule")
	}

	_ = s.cache.InvalidateStudent(ctx, studentID)
	s.logger.Info("payment schedule deleted",
		zap.String("payment_schedule_id", scheduleID),
		zap.String("student_id", studentID),
		zap.Int64("future_events_deleted", deleted),
	)
	return &dto.DeletePaymentScheduleResponse{Success: true, PaymentScheduleID: scheduleID, FutureEventsDeleted: deleted}, nil
}

// DeletePaymentEvent removes one event of the student.
func (s *PaymentService) DeletePaymentEvent(ctx context.Context, studentID, eventID string) (*dto.DeletePaymentEventResponse, error) {
	if err := validateStudentID(studentID); err != nil {
		return nil, err
	}
	if _, err := uuid.Parse(eventID); err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "invalid paymentEventId format")
	}

	event, err := s.events.FindByID(ctx, eventID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "payment event not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load payment event")
	}
	if event.StudentID != studentID {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "payment event not found for student")
	}
	if err := s.events.Delete(ctx, eventID); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete payment event")
	}

	_ = s.cache.InvalidateStudent(ctx, studentID)
	return &dto.DeletePaymentEventResponse{Success: true, PaymentEventID: eventID}, nil
}

func toPaymentScheduleItem(schedule models.PaymentSchedule) dto.PaymentScheduleItem {
	item := dto.PaymentScheduleItem{
		PaymentScheduleID: schedule.ID,
		CourseID:          schedule.CourseID,
		BillingRRule:      schedule.BillingRRule,
		StartDate:         recurrence.FormatDate(schedule.StartDate),
		Item:              schedule.Item,
		Note:              schedule.Note,
	}
	if schedule.Amount.Valid {
		item.Amount = lo.ToPtr(schedule.Amount.Decimal)
	}
	return item
}

func toPaymentEventItem(event models.PaymentEvent) dto.PaymentEventItem {
	item := dto.PaymentEventItem{
		PaymentEventID:    event.ID,
		PaymentScheduleID: event.PaymentScheduleID,
		CourseID:          event.CourseID,
		Item:              event.Item,
		Status:            dto.PaymentLabelUnpaid,
		RawStatus:         string(event.Status),
		DueDate:           recurrence.FormatDate(event.DueDate),
		Note:              event.Note,
	}
	if strings.EqualFold(string(event.Status), string(models.PaymentStatusPaid)) {
		item.Status = dto.PaymentLabelPaid
	}
	if event.Amount.Valid {
		item.Amount = lo.ToPtr(event.Amount.Decimal)
	}
	if event.PaidDate != nil {
		item.PaidDate = lo.ToPtr(recurrence.FormatDate(*event.PaidDate))
	}
	return item
}
