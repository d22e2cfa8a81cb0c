package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/EduCollab-AI/EduCollab-Backend/internal/dto"
	"github.com/EduCollab-AI/EduCollab-Backend/internal/middleware"
	"github.com/EduCollab-AI/EduCollab-Backend/pkg/response"
)

type classScheduleService interface {
	GetClassSchedules(ctx context.Context, studentID string, query dto.ClassScheduleQuery) (*dto.ClassScheduleResponse, error)
}

// ClassScheduleHandler serves projected class sessions.
type ClassScheduleHandler struct {
	service classScheduleService
}

// NewClassScheduleHandler constructs the handler.
func NewClassScheduleHandler(service classScheduleService) *ClassScheduleHandler {
	return &ClassScheduleHandler{service: service}
}

// List godoc
// @Summary List class sessions of a student
// @Description Projects the student's class sessions from course schedules, exceptions and session budgets.
// @Tags Classes
// @Produce json
// @Param studentId query string true "Student ID"
// @Param startDate query string false "Window start (YYYY-MM-DD), defaults to today"
// @Param endDate query string false "Window end (YYYY-MM-DD), defaults to three months after today"
// @Param maximumCount query int false "Maximum sessions per schedule"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /class/schedules [get]
func (h *ClassScheduleHandler) List(c *gin.Context) {
	query, err := parseWindowQuery(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	resp, err := h.service.GetClassSchedules(c.Request.Context(), query.StudentID, dto.ClassScheduleQuery{
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
