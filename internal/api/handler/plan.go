package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/talktojesus/api_server/internal/pkg/response"
	"github.com/talktojesus/api_server/internal/service"
)

type PlanHandler struct {
	planService *service.PlanService
}

func NewPlanHandler(planService *service.PlanService) *PlanHandler {
	return &PlanHandler{
		planService: planService,
	}
}

// List returns the plans for this environment
// GET /api/v1/plans
func (h *PlanHandler) List(c *gin.Context) {
	plans, err := h.planService.ListPlans(c.Request.Context())
	if err != nil {
		response.ServerError(c, "")
		return
	}

	response.Success(c, plans)
}
