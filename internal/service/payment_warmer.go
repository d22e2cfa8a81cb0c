package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/EduCollab-AI/EduCollab-Backend/internal/models"
	"github.com/EduCollab-AI/EduCollab-Backend/internal/recurrence"
	appErrors "github.com/EduCollab-AI/EduCollab-Backend/pkg/errors"
	"github.com/EduCollab-AI/EduCollab-Backend/pkg/jobs"
)

const paymentWarmupJob = "payment_warmup"

type paymentMaterializer interface {
	Materialize(ctx context.Context, studentID string, start, end time.Time, maxCount *int) ([]models.PaymentEvent, []models.PaymentSchedule, error)
}

// WarmupConfig configures PaymentWarmer.
type WarmupConfig struct {
	Workers      int
	MaxRetries   int
	RetryDelay   time.Duration
	WindowMonths int
}

// PaymentWarmer materializes a student's default payment window in the
// background. Jobs are keyed by student, so bursts collapse into one run.
type PaymentWarmer struct {
	queue    *jobs.Queue
	payments paymentMaterializer
	metrics  *MetricsService
	months   int
	logger   *zap.Logger
	now      func() time.Time
}

// NewPaymentWarmer builds the warmer and its worker queue.
func NewPaymentWarmer(payments paymentMaterializer, metrics *MetricsService, cfg WarmupConfig, logger *zap.Logger) *PaymentWarmer {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.WindowMonths <= 0 {
		cfg.WindowMonths = 3
	}
	w := &PaymentWarmer{
		payments: payments,
		metrics:  metrics,
		months:   cfg.WindowMonths,
		logger:   logger,
		now:      time.Now,
	}
	w.queue = jobs.NewQueue(paymentWarmupJob, w.handle, jobs.QueueConfig{
		Workers:    cfg.Workers,
		MaxRetries: cfg.MaxRetries,
		RetryDelay: cfg.RetryDelay,
		Logger:     logger,
	})
	return w
}

// Start launches the workers.
func (w *PaymentWarmer) Start(ctx context.Context) {
	w.queue.Start(ctx)
}

// Stop waits for in-flight jobs to return.
func (w *PaymentWarmer) Stop() {
	w.queue.Stop()
}

// Enqueue schedules a warm-up for the student. It reports whether a warm-up is
// now pending, including one that was already queued.
func (w *PaymentWarmer) Enqueue(studentID string) bool {
	if w == nil {
		return false
	}
	err := w.queue.Enqueue(jobs.Job{Key: studentID, Type: paymentWarmupJob, Payload: studentID})
	switch {
	case err == nil, errors.Is(err, jobs.ErrAlreadyQueued):
		return true
	default:
		w.logger.Warn("payment warm-up not queued", zap.String("student_id", studentID), zap.Error(err))
		return false
	}
}

func (w *PaymentWarmer) handle(ctx context.Context, job jobs.Job) error {
	studentID, ok := job.Payload.(string)
	if !ok {
		w.metrics.RecordWarmup(fmt.Errorf("unexpected payload %T", job.Payload))
		return nil
	}
	today := recurrence.DateOf(w.now())
	events, _, err := w.payments.Materialize(ctx, studentID, today, today.AddDate(0, w.months, 0), nil)
	w.metrics.RecordWarmup(err)
	if appErrors.IsCode(err, appErrors.ErrNotFound.Code) {
		// The student or its schedules went away after the job was queued.
		w.logger.Debug("payment warm-up skipped", zap.String("student_id", studentID), zap.Error(err))
		return nil
	}
	if err != nil {
		return err
	}
	w.logger.Debug("payment warm-up finished", zap.String("student_id", studentID), zap.Int("events", len(events)))
	return nil
}
