package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/samber/lo"
	"go.uber.org/zap"

	"github.com/EduCollab-AI/EduCollab-Backend/internal/dto"
	"github.com/EduCollab-AI/EduCollab-Backend/internal/models"
	"github.com/EduCollab-AI/EduCollab-Backend/internal/recurrence"
	appErrors "github.com/EduCollab-AI/EduCollab-Backend/pkg/errors"
)

type scheduleFinder interface {
	FindByID(ctx context.Context, id string) (*models.Schedule, error)
}

type scheduleExceptionStore interface {
	FindByOccurrence(ctx context.Context, scheduleID string, date time.Time, start recurrence.TimeOfDay) (*models.ScheduleException, error)
	FindByRescheduled(ctx context.Context, scheduleID string, date time.Time, start recurrence.TimeOfDay) (*models.ScheduleException, error)
	Save(ctx context.Context, exception *models.ScheduleException) error
}

// ScheduleExceptionService records cancellations and reschedules of single occurrences.
type ScheduleExceptionService struct {
	schedules  scheduleFinder
	exceptions scheduleExceptionStore
	cache      *CacheService
	validator  *validator.Validate
	logger     *zap.Logger
}

// NewScheduleExceptionService constructs the service.
func NewScheduleExceptionService(schedules scheduleFinder, exceptions scheduleExceptionStore, cache *CacheService, validate *validator.Validate, logger *zap.Logger) *ScheduleExceptionService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ScheduleExceptionService{schedules: schedules, exceptions: exceptions, cache: cache, validator: validate, logger: logger}
}

type exceptionChange struct {
	originalDate  time.Time
	originalStart recurrence.TimeOfDay
	cancelled     bool
	newDate       *time.Time
	newStart      *recurrence.TimeOfDay
	newDuration   *int
}

// CreateScheduleException upserts the override of one occurrence. The
// occurrence defaults to the schedule's first one. An existing override is
// found by its original occurrence first, then by the occurrence it moved to.
func (s *ScheduleExceptionService) CreateScheduleException(ctx context.Context, req dto.CreateScheduleExceptionRequest) (*dto.ScheduleExceptionResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid schedule exception payload")
	}

	schedule, err := s.schedules.FindByID(ctx, req.ScheduleID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "schedule not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load schedule")
	}

	change, err := parseExceptionChange(req, *schedule)
	if err != nil {
		return nil, err
	}
	if !change.meaningful(schedule.DurationMinutes) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "no changes detected; provide updated fields or set is_cancelled to true")
	}

	exception, err := s.locate(ctx, schedule.ID, change.originalDate, change.originalStart)
	if err != nil {
		return nil, err
	}
	if exception == nil {
		exception = &models.ScheduleException{
			ScheduleID:        schedule.ID,
			OriginalDate:      change.originalDate,
			OriginalStartTime: change.originalStart,
		}
	}
	exception.IsCancelled = change.cancelled
	exception.NewDate = change.newDate
	exception.NewStartTime = change.newStart
	exception.NewDurationMinutes = change.newDuration

	if err := s.exceptions.Save(ctx, exception); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save schedule exception")
	}
	_ = s.cache.InvalidateProjections(ctx)

	s.logger.Info("schedule exception recorded",
		zap.String("schedule_exception_id", exception.ID),
		zap.String("schedule_id", schedule.ID),
		zap.String("original_date", recurrence.FormatDate(exception.OriginalDate)),
		zap.Bool("cancelled", exception.IsCancelled),
	)
	resp := toScheduleExceptionResponse(*exception)
	return &resp, nil
}

func (s *ScheduleExceptionService) locate(ctx context.Context, scheduleID string, date time.Time, start recurrence.TimeOfDay) (*models.ScheduleException, error) {
	exception, err := s.exceptions.FindByOccurrence(ctx, scheduleID, date, start)
	if err == nil {
		return exception, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load schedule exception")
	}

	exception, err = s.exceptions.FindByRescheduled(ctx, scheduleID, date, start)
	if err == nil {
		return exception, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load schedule exception")
	}
	return nil, nil
}

func parseExceptionChange(req dto.CreateScheduleExceptionRequest, schedule models.Schedule) (exceptionChange, error) {
	change := exceptionChange{
		originalDate:  recurrence.DateOf(schedule.StartDate),
		originalStart: schedule.StartTime,
		cancelled:     req.IsCancelled != nil && *req.IsCancelled,
		newDuration:   req.NewDurationMinutes,
	}

	if raw := strings.TrimSpace(req.OriginalDate); raw != "" {
		date, err := recurrence.ParseDate(raw)
		if err != nil {
			return change, appErrors.Clone(appErrors.ErrValidation, "invalid original_date")
		}
		change.originalDate = date
	}
	if raw := strings.TrimSpace(req.OriginalStartTime); raw != "" {
		start, err := recurrence.ParseTimeOfDay(raw)
		if err != nil {
			return change, appErrors.Clone(appErrors.ErrValidation, "invalid original_start_time")
		}
		change.originalStart = start
	}
	if raw := strings.TrimSpace(req.NewDate); raw != "" {
		date, err := recurrence.ParseDate(raw)
		if err != nil {
			return change, appErrors.Clone(appErrors.ErrValidation, "invalid new_date")
		}
		change.newDate = &date
	}
	if raw := strings.TrimSpace(req.NewStartTime); raw != "" {
		start, err := recurrence.ParseTimeOfDay(raw)
		if err != nil {
			return change, appErrors.Clone(appErrors.ErrValidation, "invalid new_start_time")
		}
		change.newStart = &start
	}
	return change, nil
}

// meaningful reports whether the change cancels or actually moves the occurrence.
func (c exceptionChange) meaningful(baseDuration int) bool {
	if c.cancelled {
		return true
	}
	if c.newDate != nil && !c.newDate.Equal(c.originalDate) {
		return true
	}
	if c.newStart != nil && *c.newStart != c.originalStart {
		return true
	}
	return c.newDuration != nil && *c.newDuration != baseDuration
}

func toScheduleExceptionResponse(exception models.ScheduleException) dto.ScheduleExceptionResponse {
	resp := dto.ScheduleExceptionResponse{
		ScheduleExceptionID: exception.ID,
		ScheduleID:          exception.ScheduleID,
		OriginalDate:        recurrence.FormatDate(exception.OriginalDate),
		OriginalStartTime:   exception.OriginalStartTime.String(),
		IsCancelled:         exception.IsCancelled,
		NewDurationMinutes:  exception.NewDurationMinutes,
	}
	if exception.NewDate != nil {
		resp.NewDate = lo.ToPtr(recurrence.FormatDate(*exception.NewDate))
	}
	if exception.NewStartTime != nil {
		resp.NewStartTime = lo.ToPtr(exception.NewStartTime.String())
	}
	return resp
}
