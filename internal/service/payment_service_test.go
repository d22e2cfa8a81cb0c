package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/EduCollab-AI/EduCollab-Backend/internal/dto"
	"github.com/EduCollab-AI/EduCollab-Backend/internal/models"
	appErrors "github.com/EduCollab-AI/EduCollab-Backend/pkg/errors"
)

var (
	monthlyScheduleID = "aaaaaaaa-0000-0000-0000-000000000001"
	secondScheduleID  = "aaaaaaaa-0000-0000-0000-000000000002"
)

func monthlyPaymentSchedule() models.PaymentSchedule {
	return models.PaymentSchedule{
		ID:           monthlyScheduleID,
		StudentID:    studentA,
		CourseID:     lo.ToPtr("course-1"),
		BillingRRule: "FREQ=MONTHLY;BYMONTHDAY=5",
		Amount:       decimal.NewNullDecimal(decimal.RequireFromString("150.00")),
		StartDate:    day(2024, 1, 5),
		Item:         lo.ToPtr("Piano"),
	}
}

type paymentFixture struct {
	schedules *paymentSchedulesStub
	events    *paymentEventsStub
	tx        *txStub
}

func newPaymentFixture(schedules ...models.PaymentSchedule) *paymentFixture {
	return &paymentFixture{
		schedules: &paymentSchedulesStub{schedules: schedules},
		events:    &paymentEventsStub{},
		tx:        &txStub{},
	}
}

func (f *paymentFixture) service(now time.Time) *PaymentService {
	svc := NewPaymentService(newStudentsStub(studentA, studentB), f.schedules, f.events, f.tx, nil, NewMetricsService(), PaymentConfig{}, zap.NewNop())
	svc.now = fixedNow(now)
	return svc
}

func dueDates(events []models.PaymentEvent) []time.Time {
	return lo.Map(events, func(e models.PaymentEvent, _ int) time.Time { return e.DueDate })
}

func TestMaterializeGeneratesPendingEvents(t *testing.T) {
	f := newPaymentFixture(monthlyPaymentSchedule())
	svc := f.service(day(2024, 1, 1))

	events, schedules, err := svc.Materialize(context.Background(), studentA, day(2024, 1, 1), day(2024, 3, 31), nil)
	require.NoError(t, err)

	assert.Len(t, schedules, 1)
	assert.Equal(t, []time.Time{day(2024, 1, 5), day(2024, 2, 5), day(2024, 3, 5)}, dueDates(events))
	for _, event := range events {
		assert.Equal(t, models.PaymentStatusPending, event.Status)
		assert.Equal(t, monthlyScheduleID, event.PaymentScheduleID)
		assert.True(t, event.Amount.Decimal.Equal(decimal.NewFromInt(150)))
		assert.NotEmpty(t, event.ID)
	}
}

func TestMaterializeIsIdempotent(t *testing.T) {
	f := newPaymentFixture(monthlyPaymentSchedule())
	svc := f.service(day(2024, 1, 1))
	ctx := context.Background()

	first, _, err := svc.Materialize(ctx, studentA, day(2024, 1, 1), day(2024, 3, 31), nil)
	require.NoError(t, err)
	require.Equal(t, 3, f.events.inserts)

	second, _, err := svc.Materialize(ctx, studentA, day(2024, 1, 1), day(2024, 3, 31), nil)
	require.NoError(t, err)
	assert.Equal(t, 3, f.events.inserts)
	assert.Equal(t, lo.Map(first, func(e models.PaymentEvent, _ int) string { return e.ID }),
		lo.Map(second, func(e models.PaymentEvent, _ int) string { return e.ID }))
}

func TestMaterializeConcurrentCallsStoreEachEventOnce(t *testing.T) {
	f := newPaymentFixture(monthlyPaymentSchedule())
	svc := f.service(day(2024, 1, 1))

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _, err := svc.Materialize(context.Background(), studentA, day(2024, 1, 1), day(2024, 3, 31), nil)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Len(t, f.events.events, 3)
}

func TestMaterializeTrimsOversizedWindowWithoutGenerating(t *testing.T) {
	f := newPaymentFixture(monthlyPaymentSchedule())
	svc := f.service(day(2024, 1, 1))
	ctx := context.Background()

	_, _, err := svc.Materialize(ctx, studentA, day(2024, 1, 1), day(2024, 3, 31), nil)
	require.NoError(t, err)
	checks := f.events.existsChecks

	events, _, err := svc.Materialize(ctx, studentA, day(2024, 1, 1), day(2024, 3, 31), lo.ToPtr(2))
	require.NoError(t, err)
	assert.Equal(t, []time.Time{day(2024, 1, 5), day(2024, 2, 5)}, dueDates(events))
	assert.Equal(t, checks, f.events.existsChecks)
}

func TestMaterializeStopsWhenSlotsRunOut(t *testing.T) {
	f := newPaymentFixture(monthlyPaymentSchedule())
	svc := f.service(day(2024, 1, 1))

	events, _, err := svc.Materialize(context.Background(), studentA, day(2024, 1, 1), day(2024, 12, 31), lo.ToPtr(2))
	require.NoError(t, err)
	assert.Equal(t, []time.Time{day(2024, 1, 5), day(2024, 2, 5)}, dueDates(events))
	assert.Equal(t, 2, f.events.inserts)
}

func TestMaterializeKeysEventsBySchedule(t *testing.T) {
	second := monthlyPaymentSchedule()
	second.ID = secondScheduleID
	second.Item = lo.ToPtr("Books")
	f := newPaymentFixture(monthlyPaymentSchedule(), second)
	svc := f.service(day(2024, 1, 1))

	events, _, err := svc.Materialize(context.Background(), studentA, day(2024, 1, 1), day(2024, 2, 29), nil)
	require.NoError(t, err)
	assert.Len(t, events, 4)
	counts := lo.CountValuesBy(events, func(e models.PaymentEvent) string { return e.PaymentScheduleID })
	assert.Equal(t, map[string]int{monthlyScheduleID: 2, secondScheduleID: 2}, counts)
}

func TestMaterializeExtendsWindowWithoutDuplicates(t *testing.T) {
	f := newPaymentFixture(monthlyPaymentSchedule())
	svc := f.service(day(2024, 1, 1))
	ctx := context.Background()

	_, _, err := svc.Materialize(ctx, studentA, day(2024, 1, 1), day(2024, 1, 31), nil)
	require.NoError(t, err)
	events, _, err := svc.Materialize(ctx, studentA, day(2024, 1, 1), day(2024, 4, 30), nil)
	require.NoError(t, err)

	assert.Len(t, events, 4)
	assert.Equal(t, 4, f.events.inserts)
}

func TestMaterializeSkipsUnreadableBillingRule(t *testing.T) {
	broken := monthlyPaymentSchedule()
	broken.BillingRRule = "FREQ=YEARLY"
	f := newPaymentFixture(broken)
	svc := f.service(day(2024, 1, 1))

	events, schedules, err := svc.Materialize(context.Background(), studentA, day(2024, 1, 1), day(2024, 3, 31), nil)
	require.NoError(t, err)
	assert.Empty(t, events)
	assert.Len(t, schedules, 1)
}

func TestMaterializeUnknownStudent(t *testing.T) {
	f := newPaymentFixture()
	svc := f.service(day(2024, 1, 1))

	_, _, err := svc.Materialize(context.Background(), uuid.NewString(), day(2024, 1, 1), day(2024, 3, 31), nil)
	assert.True(t, appErrors.IsCode(err, appErrors.ErrNotFound.Code))
}

func TestGetPaymentEventsMapsLabels(t *testing.T) {
	f := newPaymentFixture(monthlyPaymentSchedule())
	svc := f.service(day(2024, 1, 1))

	resp, err := svc.GetPaymentEvents(context.Background(), studentA, dto.PaymentEventQuery{})
	require.NoError(t, err)

	require.Len(t, resp.Schedules, 1)
	assert.Equal(t, "2024-01-05", resp.Schedules[0].StartDate)
	require.Len(t, resp.Events, 3)
	first := resp.Events[0]
	assert.Equal(t, dto.PaymentLabelUnpaid, first.Status)
	assert.Equal(t, "pending", first.RawStatus)
	assert.Equal(t, "2024-01-05", first.DueDate)
	require.NotNil(t, first.Amount)
	assert.True(t, first.Amount.Equal(decimal.NewFromInt(150)))

	_, err = svc.GetPaymentEvents(context.Background(), studentA, dto.PaymentEventQuery{MaxCount: lo.ToPtr(-1)})
	assert.True(t, appErrors.IsCode(err, appErrors.ErrValidation.Code))
}

func TestUpdatePaymentEventStatusTransitions(t *testing.T) {
	f := newPaymentFixture(monthlyPaymentSchedule())
	svc := f.service(day(2024, 2, 10))
	ctx := context.Background()
	events, _, err := svc.Materialize(ctx, studentA, day(2024, 1, 1), day(2024, 3, 31), nil)
	require.NoError(t, err)
	eventID := events[0].ID

	item, err := svc.UpdatePaymentEventStatus(ctx, eventID, "PAID")
	require.NoError(t, err)
	assert.Equal(t, dto.PaymentLabelPaid, item.Status)
	require.NotNil(t, item.PaidDate)
	assert.Equal(t, "2024-02-10", *item.PaidDate)

	_, err = svc.UpdatePaymentEventStatus(ctx, eventID, "paid")
	assert.True(t, appErrors.IsCode(err, appErrors.ErrIllegalTransition.Code))

	_, err = svc.UpdatePaymentEventStatus(ctx, events[1].ID, "cancelled")
	assert.True(t, appErrors.IsCode(err, appErrors.ErrIllegalTransition.Code))

	_, err = svc.UpdatePaymentEventStatus(ctx, events[1].ID, "refunded")
	assert.True(t, appErrors.IsCode(err, appErrors.ErrValidation.Code))

	_, err = svc.UpdatePaymentEventStatus(ctx, events[1].ID, " ")
	assert.True(t, appErrors.IsCode(err, appErrors.ErrValidation.Code))

	_, err = svc.UpdatePaymentEventStatus(ctx, "bogus", "paid")
	assert.True(t, appErrors.IsCode(err, appErrors.ErrValidation.Code))

	_, err = svc.UpdatePaymentEventStatus(ctx, uuid.NewString(), "paid")
	assert.True(t, appErrors.IsCode(err, appErrors.ErrNotFound.Code))
}

func TestUpdatePaymentEventStatusStoreFailure(t *testing.T) {
	f := newPaymentFixture(monthlyPaymentSchedule())
	svc := f.service(day(2024, 1, 1))
	ctx := context.Background()
	events, _, err := svc.Materialize(ctx, studentA, day(2024, 1, 1), day(2024, 1, 31), nil)
	require.NoError(t, err)

	f.events.markPaidErr = errors.New("connection reset")
	_, err = svc.UpdatePaymentEventStatus(ctx, events[0].ID, "paid")
	assert.True(t, appErrors.IsCode(err, appErrors.ErrInternal.Code))
}

func TestDeletePaymentScheduleKeepsPastEvents(t *testing.T) {
	f := newPaymentFixture(monthlyPaymentSchedule())
	svc := f.service(day(2024, 2, 10))
	ctx := context.Background()
	_, _, err := svc.Materialize(ctx, studentA, day(2024, 1, 1), day(2024, 4, 30), nil)
	require.NoError(t, err)

	resp, err := svc.DeletePaymentSchedule(ctx, studentA, monthlyScheduleID)
	require.NoError(t, err)

	assert.True(t, resp.Success)
	assert.Equal(t, int64(2), resp.FutureEventsDeleted)
	assert.Equal(t, 1, f.tx.calls)
	assert.Equal(t, []string{monthlyScheduleID}, f.schedules.deleted)
	assert.Equal(t, day(2024, 2, 10), f.events.futureCut)
	assert.Equal(t, []time.Time{day(2024, 1, 5), day(2024, 2, 5)}, dueDates(f.events.events))
}

func TestDeletePaymentScheduleChecksOwnership(t *testing.T) {
	f := newPaymentFixture(monthlyPaymentSchedule())
	svc := f.service(day(2024, 2, 10))
	ctx := context.Background()

	_, err := svc.DeletePaymentSchedule(ctx, studentB, monthlyScheduleID)
	assert.True(t, appErrors.IsCode(err, appErrors.ErrNotFound.Code))
	assert.Zero(t, f.tx.calls)

	_, err = svc.DeletePaymentSchedule(ctx, studentA, uuid.NewString())
	assert.True(t, appErrors.IsCode(err, appErrors.ErrNotFound.Code))

	_, err = svc.DeletePaymentSchedule(ctx, studentA, "nope")
	assert.True(t, appErrors.IsCode(err, appErrors.ErrValidation.Code))
}

func TestDeletePaymentScheduleRollsBackOnFailure(t *testing.T) {
	f := newPaymentFixture(monthlyPaymentSchedule())
	f.tx.err = errors.New("tx failed")
	svc := f.service(day(2024, 2, 10))

	_, err := svc.DeletePaymentSchedule(context.Background(), studentA, monthlyScheduleID)
	assert.True(t, appErrors.IsCode(err, appErrors.ErrInternal.Code))
	assert.Empty(t, f.schedules.deleted)
}

func TestDeletePaymentEvent(t *testing.T) {
	f := newPaymentFixture(monthlyPaymentSchedule())
	svc := f.service(day(2024, 1, 1))
	ctx := context.Background()
	events, _, err := svc.Materialize(ctx, studentA, day(2024, 1, 1), day(2024, 2, 29), nil)
	require.NoError(t, err)

	_, err = svc.DeletePaymentEvent(ctx, studentB, events[0].ID)
	assert.True(t, appErrors.IsCode(err, appErrors.ErrNotFound.Code))

	resp, err := svc.DeletePaymentEvent(ctx, studentA, events[0].ID)
	require.NoError(t, err)
	assert.Equal(t, events[0].ID, resp.PaymentEventID)
	assert.Len(t, f.events.events, 1)
}
