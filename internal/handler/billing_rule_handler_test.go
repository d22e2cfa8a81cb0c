package handler

import (
	"bytes"
	"context"
	"net/http"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/EduCollab-AI/EduCollab-Backend/internal/dto"
	"github.com/EduCollab-AI/EduCollab-Backend/internal/models"
)

type fakeBillingRuleSrv struct {
	req   dto.CreateBillingRuleRequest
	calls int
}

func (f *fakeBillingRuleSrv) CreateBillingRule(_ context.Context, req dto.CreateBillingRuleRequest) (*dto.BillingRuleResponse, error) {
	f.calls++
	f.req = req
	return &dto.BillingRuleResponse{
		ScheduleID:   "ps-1",
		BillingRule:  req.BillingRRule,
		StartDate:    req.StartDate,
		Amount:       *req.Amount,
		WarmupQueued: true,
	}, nil
}

func billingBody(studentID string) *bytes.Buffer {
	return bytes.NewBufferString(`{"studentId":"` + studentID + `","billingRrule":"FREQ=MONTHLY;BYMONTHDAY=1","amount":"150.00","startDate":"2024-02-01"}`)
}

func TestBillingRuleHandlerCreate(t *testing.T) {
	srv := &fakeBillingRuleSrv{}

	c, rec := newTestContext(http.MethodPost, "/billing-rules", billingBody(studentOne))
	NewBillingRuleHandler(srv).Create(c)

	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, studentOne, srv.req.StudentID)
	require.NotNil(t, srv.req.Amount)
	assert.True(t, srv.req.Amount.Equal(decimal.RequireFromString("150")))
	envelope := decodeEnvelope(t, rec)
	assert.Equal(t, "ps-1", envelope.Data["scheduleId"])
	assert.Equal(t, true, envelope.Data["warmupQueued"])
}

func TestBillingRuleHandlerParentScope(t *testing.T) {
	srv := &fakeBillingRuleSrv{}

	c, rec := newTestContext(http.MethodPost, "/billing-rules", billingBody(studentTwo))
	withClaims(c, models.RoleParent, studentOne)
	NewBillingRuleHandler(srv).Create(c)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Zero(t, srv.calls)

	c, rec = newTestContext(http.MethodPost, "/billing-rules", billingBody(studentOne))
	withClaims(c, models.RoleParent, studentOne)
	NewBillingRuleHandler(srv).Create(c)
	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, 1, srv.calls)
}

func TestBillingRuleHandlerRejectsMalformedBody(t *testing.T) {
	srv := &fakeBillingRuleSrv{}

	c, rec := newTestContext(http.MethodPost, "/billing-rules", bytes.NewBufferString(`{"amount":"abc"}`))
	NewBillingRuleHandler(srv).Create(c)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Zero(t, srv.calls)
}
