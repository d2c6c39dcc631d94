package service

import (
	"context"

	"github.com/talktojesus/api_server/internal/model"
	"github.com/talktojesus/api_server/internal/repository"
)

type PlanService struct {
	planRepo   *repository.PlanRepository
	production bool
}

func NewPlanService(planRepo *repository.PlanRepository, production bool) *PlanService {
	return &PlanService{
		planRepo:   planRepo,
		production: production,
	}
}

// ListPlans returns the plans for the running environment
func (s *PlanService) ListPlans(ctx context.Context) ([]model.Plan, error) {
	plans, err := s.planRepo.ListByEnvironment(ctx, s.production)
	if err != nil {
		return nil, persistenceErr("list plans", err)
	}
	if plans == nil {
		plans = []model.Plan{}
	}
	return plans, nil
}
