package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/EduCollab-AI/EduCollab-Backend/internal/dto"
	"github.com/EduCollab-AI/EduCollab-Backend/internal/models"
	"github.com/EduCollab-AI/EduCollab-Backend/internal/recurrence"
	appErrors "github.com/EduCollab-AI/EduCollab-Backend/pkg/errors"
)

type paymentScheduleCreator interface {
	Create(ctx context.Context, schedule *models.PaymentSchedule) error
}

type courseFinder interface {
	FindByID(ctx context.Context, id string) (*models.Course, error)
}

type warmupEnqueuer interface {
	Enqueue(studentID string) bool
}

// BillingRuleService creates recurring payment schedules.
type BillingRuleService struct {
	students  studentChecker
	courses   courseFinder
	schedules paymentScheduleCreator
	warmer    warmupEnqueuer
	legacy    bool
	validator *validator.Validate
	logger    *zap.Logger
}

// NewBillingRuleService constructs the service. A nil warmer disables background materialization.
func NewBillingRuleService(
	students studentChecker,
	courses courseFinder,
	schedules paymentScheduleCreator,
	warmer warmupEnqueuer,
	legacyFallback bool,
	validate *validator.Validate,
	logger *zap.Logger,
) *BillingRuleService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BillingRuleService{
		students:  students,
		courses:   courses,
		schedules: schedules,
		warmer:    warmer,
		legacy:    legacyFallback,
		validator: validate,
		logger:    logger,
	}
}

// CreateBillingRule validates and stores a billing rule, then queues a warm-up
// of the student's payment events.
func (s *BillingRuleService) CreateBillingRule(ctx context.Context, req dto.CreateBillingRuleRequest) (*dto.BillingRuleResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid billing rule payload")
	}
	if req.Amount.IsNegative() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "amount must not be negative")
	}
	startDate, err := recurrence.ParseDate(req.StartDate)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "invalid startDate")
	}

	schedule := models.PaymentSchedule{
		StudentID:    req.StudentID,
		CourseID:     req.CourseID,
		BillingRRule: req.BillingRRule,
		Amount:       decimal.NewNullDecimal(req.Amount.Round(2)),
		StartDate:    startDate,
		Item:         req.Item,
		Note:         req.Note,
	}
	if _, err := billingRule(schedule, s.legacy); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid billingRrule")
	}

	exists, err := s.students.Exists(ctx, req.StudentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	if !exists {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
	}
	if req.CourseID != nil {
		if _, err := s.courses.FindByID(ctx, *req.CourseID); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
			}
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
		}
	}

	if err := s.schedules.Create(ctx, &schedule); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create billing rule")
	}

	queued := false
	if s.warmer != nil {
		queued = s.warmer.Enqueue(schedule.StudentID)
	}
	s.logger.Info("billing rule created",
		zap.String("payment_schedule_id", schedule.ID),
		zap.String("student_id", schedule.StudentID),
		zap.String("rule", schedule.BillingRRule),
		zap.Bool("warmup_queued", queued),
	)

	return &dto.BillingRuleResponse{
		ScheduleID:   schedule.ID,
		BillingRule:  schedule.BillingRRule,
		StartDate:    recurrence.FormatDate(schedule.StartDate),
		Amount:       schedule.Amount.Decimal,
		Item:         schedule.Item,
		Note:         schedule.Note,
		CourseID:     schedule.CourseID,
		WarmupQueued: queued,
	}, nil
}
