package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/EduCollab-AI/EduCollab-Backend/internal/dto"
	appErrors "github.com/EduCollab-AI/EduCollab-Backend/pkg/errors"
	"github.com/EduCollab-AI/EduCollab-Backend/pkg/response"
)

type billingRuleService interface {
	CreateBillingRule(ctx context.Context, req dto.CreateBillingRuleRequest) (*dto.BillingRuleResponse, error)
}

// BillingRuleHandler creates recurring payment schedules.
type BillingRuleHandler struct {
	service billingRuleService
}

// NewBillingRuleHandler constructs the handler.
func NewBillingRuleHandler(service billingRuleService) *BillingRuleHandler {
	return &BillingRuleHandler{service: service}
}

// Create godoc
// @Summary Create a billing rule
// @Tags Payments
// @Accept json
// @Produce json
// @Param payload body dto.CreateBillingRuleRequest true "Billing rule"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /billing-rules [post]
func (h *BillingRuleHandler) Create(c *gin.Context) {
	var req dto.CreateBillingRuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid billing rule payload"))
		return
	}
	if !canAccessStudent(c, req.StudentID) {
		response.Error(c, appErrors.Clone(appErrors.ErrForbidden, "student not accessible"))
		return
	}
	resp, err := h.service.CreateBillingRule(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, resp)
}
