package ports

import (
	"context"

	"github.com/google/uuid"
	"github.com/nutriplan/validation-service/internal/core/domain"
)

// ClientStore supplies raw client records for tag extraction.
// Unknown ids return (nil, nil): "not found" is an input condition the
// engine maps to a domain error, not a store failure.
type ClientStore interface {
	GetClientProfile(ctx context.Context, clientID uuid.UUID) (*domain.ClientProfile, error)
}

// FoodStore supplies raw food records, batch-loadable for validateBatch
type FoodStore interface {
	// GetFood returns (nil, nil) when the food does not exist
	GetFood(ctx context.Context, foodID uuid.UUID) (*domain.FoodItem, error)

	// GetFoods loads records for the given ids. Missing ids are simply
	// absent from the result map.
	GetFoods(ctx context.Context, foodIDs []uuid.UUID) (map[uuid.UUID]*domain.FoodItem, error)
}

// PlanStore supplies the plan-scoped aggregates needed by the repetition
// and nutrition-strength rules
type PlanStore interface {
	// GetPlanTargets returns (nil, nil) when the plan does not exist
	GetPlanTargets(ctx context.Context, planID uuid.UUID) (*domain.PlanTargets, error)

	// GetPlanFoodUsage returns every (food, day) occurrence across the
	// plan's meals
	GetPlanFoodUsage(ctx context.Context, planID uuid.UUID) ([]domain.FoodUsage, error)
}
