package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/EduCollab-AI/EduCollab-Backend/internal/dto"
	"github.com/EduCollab-AI/EduCollab-Backend/internal/middleware"
	appErrors "github.com/EduCollab-AI/EduCollab-Backend/pkg/errors"
	"github.com/EduCollab-AI/EduCollab-Backend/pkg/response"
)

type paymentService interface {
	GetPaymentEvents(ctx context.Context, studentID string, query dto.PaymentEventQuery) (*dto.PaymentEventsResponse, error)
	UpdatePaymentEventStatus(ctx context.Context, eventID, status string) (*dto.PaymentEventItem, error)
	DeletePaymentSchedule(ctx context.Context, studentID, scheduleID string) (*dto.DeletePaymentScheduleResponse, error)
	DeletePaymentEvent(ctx context.Context, studentID, eventID string) (*dto.DeletePaymentEventResponse, error)
}

// PaymentHandler exposes payment schedules and events.
type PaymentHandler struct {
	service paymentService
}

// NewPaymentHandler constructs the handler.
func NewPaymentHandler(service paymentService) *PaymentHandler {
	return &PaymentHandler{service: service}
}

// List godoc
// @Summary List payment events of a student
// @Description Returns the student's billing rules and the payment events due in the window, materializing missing events.
// @Tags Payments
// @Produce json
// @Param studentId query string true "Student ID"
// @Param startDate query string false "Window start (YYYY-MM-DD)"
// @Param endDate query string false "Window end (YYYY-MM-DD)"
// @Param maximumCount query int false "Maximum events returned"
// @Success 200 {object} response.Envelope
// @Router /payments [get]
func (h *PaymentHandler) List(c *gin.Context) {
	query, err := parseWindowQuery(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	resp, err := h.service.GetPaymentEvents(c.Request.Context(), query.StudentID, dto.PaymentEventQuery{
		Start:    query.Start,
		End:      query.End,
		MaxCount: query.MaxCount,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, resp, middleware.ExtractMeta(c))
}

// UpdateStatus godoc
// @Summary Mark a payment event as paid
// @Tags Payments
// @Accept json
// @Produce json
// @Param paymentEventId path string true "Payment event ID"
// @Param payload body dto.UpdatePaymentStatusRequest true "Target status"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /payments/{paymentEventId}/status [put]
func (h *PaymentHandler) UpdateStatus(c *gin.Context) {
	var req dto.UpdatePaymentStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid status payload"))
		return
	}
	item, err := h.service.UpdatePaymentEventStatus(c.Request.Context(), c.Param("paymentEventId"), req.Status)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, item)
}

// DeleteSchedule godoc
// @Summary Delete a billing rule
// @Description Deletes the schedule and its events due after today. Past events are kept.
// @Tags Payments
// @Produce json
// @Param paymentScheduleId path string true "Payment schedule ID"
// @Param studentId query string true "Owning student ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /payments/schedules/{paymentScheduleId} [delete]
func (h *PaymentHandler) DeleteSchedule(c *gin.Context) {
	resp, err := h.service.DeletePaymentSchedule(c.Request.Context(), strings.TrimSpace(c.Query("studentId")), c.Param("paymentScheduleId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, resp)
}

// DeleteEvent godoc
// @Summary Delete a payment event
// @Tags Payments
// @Produce json
// @Param paymentEventId path string true "Payment event ID"
// @Param studentId query string true "Owning student ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /payments/events/{paymentEventId} [delete]
func (h *PaymentHandler) DeleteEvent(c *gin.Context) {
	resp, err := h.service.DeletePaymentEvent(c.Request.Context(), strings.TrimSpace(c.Query("studentId")), c.Param("paymentEventId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, resp)
}
