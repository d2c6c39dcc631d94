package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/talktojesus/api_server/internal/model"
)

type PlanRepository struct {
	db *gorm.DB
}

func NewPlanRepository(db *gorm.DB) *PlanRepository {
	return &PlanRepository{db: db}
}

func (r *PlanRepository) GetByID(ctx context.Context, id string) (*model.Plan, error) {
	var plan model.Plan
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&plan).Error
	if err != nil {
		return nil, err
	}
	return &plan, nil
}

// ListByEnvironment returns production or non-production plans, cheapest first.
func (r *PlanRepository) ListByEnvironment(ctx context.Context, isProd bool) ([]model.Plan, error) {
	var plans []model.Plan
	err := r.db.WithContext(ctx).Where("is_prod = ?", isProd).Order("price ASC").Find(&plans).Error
	return plans, err
}
