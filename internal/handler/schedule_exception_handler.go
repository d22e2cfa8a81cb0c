package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/EduCollab-AI/EduCollab-Backend/internal/dto"
	appErrors "github.com/EduCollab-AI/EduCollab-Backend/pkg/errors"
	"github.com/EduCollab-AI/EduCollab-Backend/pkg/response"
)

type scheduleExceptionService interface {
	CreateScheduleException(ctx context.Context, req dto.CreateScheduleExceptionRequest) (*dto.ScheduleExceptionResponse, error)
}

// ScheduleExceptionHandler records cancelled and rescheduled sessions.
type ScheduleExceptionHandler struct {
	service scheduleExceptionService
}

// NewScheduleExceptionHandler constructs the handler.
func NewScheduleExceptionHandler(service scheduleExceptionService) *ScheduleExceptionHandler {
	return &ScheduleExceptionHandler{service: service}
}

// Create godoc
// @Summary Cancel or reschedule one class session
// @Tags Classes
// @Accept json
// @Produce json
// @Param payload body dto.CreateScheduleExceptionRequest true "Exception payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /schedules/exceptions [post]
func (h *ScheduleExceptionHandler) Create(c *gin.Context) {
	var req dto.CreateScheduleExceptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid schedule exception payload"))
		return
	}
	resp, err := h.service.CreateScheduleException(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, resp)
}
