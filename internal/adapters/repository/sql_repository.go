package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/nutriplan/validation-service/internal/core/domain"
	"github.com/nutriplan/validation-service/internal/core/ports"
	"github.com/sony/gobreaker"
)

// SQLRepository implements ClientStore, FoodStore and PlanStore using
// PostgreSQL. Includes retry logic and circuit breakers for resilience.
type SQLRepository struct {
	db         *sql.DB
	clientCB   *gobreaker.CircuitBreaker
	foodCB     *gobreaker.CircuitBreaker
	planCB     *gobreaker.CircuitBreaker
	maxRetries int
	retryDelay time.Duration
}

// NewSQLRepository creates a new PostgreSQL repository with circuit breakers
func NewSQLRepository(db *sql.DB) *SQLRepository {
	settings := gobreaker.Settings{
		Name:        "database",
		MaxRequests: 5,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures > 5
		},
	}

	return &SQLRepository{
		db:         db,
		clientCB:   gobreaker.NewCircuitBreaker(settings),
		foodCB:     gobreaker.NewCircuitBreaker(settings),
		planCB:     gobreaker.NewCircuitBreaker(settings),
		maxRetries: 3,
		retryDelay: 1 * time.Second,
	}
}

// executeWithRetry executes a database operation with retry logic
func (r *SQLRepository) executeWithRetry(ctx context.Context, operation func() error) error {
	var lastErr error
	for i := 0; i < r.maxRetries; i++ {
		err := operation()
		if err == nil {
			return nil
		}
		lastErr = err
		// Don't retry on sql.ErrNoRows - it's not a transient error
		if errors.Is(err, sql.ErrNoRows) ||
			strings.Contains(strings.ToLower(err.Error()), "no rows") {
			return err
		}
		if i < r.maxRetries-1 {
			time.Sleep(r.retryDelay)
		}
	}
	return fmt.Errorf("operation failed after %d retries: %w", r.maxRetries, lastErr)
}

const clientColumns = `id, full_name, dietitian_user_id, allergies, intolerances,
	diet_pattern, egg_allowed, egg_avoid_days, food_restrictions, dislikes,
	avoid_categories, medical_conditions, lab_derived_tags, liked_food_ids,
	preferred_cuisines`

// GetClientProfile implements ports.ClientStore.
// Returns (nil, nil) when the client does not exist.
func (r *SQLRepository) GetClientProfile(ctx context.Context, clientID uuid.UUID) (*domain.ClientProfile, error) {
	result, err := r.clientCB.Execute(func() (interface{}, error) {
		var profile domain.ClientProfile
		var dietPattern sql.NullString
		var allergies, intolerances, eggAvoidDays, dislikes pq.StringArray
		var avoidCategories, medicalConditions, labDerivedTags, preferredCuisines pq.StringArray
		var likedFoodIDs pq.StringArray

		err := r.executeWithRetry(ctx, func() error {
			query := `SELECT ` + clientColumns + ` FROM clients WHERE id = $1`
			row := r.db.QueryRowContext(ctx, query, clientID)
			return row.Scan(
				&profile.ID, &profile.FullName, &profile.DietitianUserID,
				&allergies, &intolerances, &dietPattern, &profile.EggAllowed,
				&eggAvoidDays, &profile.FoodRestrictionsRaw, &dislikes,
				&avoidCategories, &medicalConditions, &labDerivedTags,
				&likedFoodIDs, &preferredCuisines,
			)
		})
		if err != nil {
			return nil, err
		}

		if dietPattern.Valid {
			profile.DietPattern = &dietPattern.String
		}
		profile.Allergies = allergies
		profile.Intolerances = intolerances
		profile.EggAvoidDays = eggAvoidDays
		profile.Dislikes = dislikes
		profile.AvoidCategories = avoidCategories
		profile.MedicalConditions = medicalConditions
		profile.LabDerivedTags = labDerivedTags
		profile.PreferredCuisines = preferredCuisines

		for _, raw := range likedFoodIDs {
			id, parseErr := uuid.Parse(raw)
			if parseErr != nil {
				return nil, fmt.Errorf("invalid liked food id %q: %w", raw, parseErr)
			}
			profile.LikedFoodIDs = append(profile.LikedFoodIDs, id)
		}

		return &profile, nil
	})

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	return result.(*domain.ClientProfile), nil
}

const foodColumns = `id, name, allergen_flags, dietary_category, nutrition_tags,
	health_flags, cuisine_tags, processing_level, meal_suitability_tags,
	calories, protein_g, carbs_g, fats_g`

// scanFood scans one foods row
func scanFood(scan func(dest ...interface{}) error) (*domain.FoodItem, error) {
	var item domain.FoodItem
	var dietaryCategory, processingLevel sql.NullString
	var allergenFlags, nutritionTags, healthFlags, cuisineTags, suitabilityTags pq.StringArray
	var calories, proteinG, carbsG, fatsG sql.NullFloat64

	err := scan(
		&item.ID, &item.Name, &allergenFlags, &dietaryCategory,
		&nutritionTags, &healthFlags, &cuisineTags, &processingLevel,
		&suitabilityTags, &calories, &proteinG, &carbsG, &fatsG,
	)
	if err != nil {
		return nil, err
	}

	if dietaryCategory.Valid {
		item.DietaryCategory = &dietaryCategory.String
	}
	if processingLevel.Valid {
		item.ProcessingLevel = &processingLevel.String
	}
	item.AllergenFlags = allergenFlags
	item.NutritionTags = nutritionTags
	item.HealthFlags = healthFlags
	item.CuisineTags = cuisineTags
	item.MealSuitabilityTags = suitabilityTags
	if calories.Valid {
		item.Calories = &calories.Float64
	}
	if proteinG.Valid {
		item.ProteinG = &proteinG.Float64
	}
	if carbsG.Valid {
		item.CarbsG = &carbsG.Float64
	}
	if fatsG.Valid {
		item.FatsG = &fatsG.Float64
	}

	return &item, nil
}

// GetFood implements ports.FoodStore.
// Returns (nil, nil) when the food does not exist.
func (r *SQLRepository) GetFood(ctx context.Context, foodID uuid.UUID) (*domain.FoodItem, error) {
	result, err := r.foodCB.Execute(func() (interface{}, error) {
		var item *domain.FoodItem
		err := r.executeWithRetry(ctx, func() error {
			query := `SELECT ` + foodColumns + ` FROM foods WHERE id = $1`
			row := r.db.QueryRowContext(ctx, query, foodID)
			scanned, scanErr := scanFood(row.Scan)
			if scanErr != nil {
				return scanErr
			}
			item = scanned
			return nil
		})
		if err != nil {
			return nil, err
		}
		return item, nil
	})

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	return result.(*domain.FoodItem), nil
}

// GetFoods implements ports.FoodStore. Missing ids are absent from the
// result map.
func (r *SQLRepository) GetFoods(ctx context.Context, foodIDs []uuid.UUID) (map[uuid.UUID]*domain.FoodItem, error) {
	if len(foodIDs) == 0 {
		return map[uuid.UUID]*domain.FoodItem{}, nil
	}

	ids := make([]string, len(foodIDs))
	for i, id := range foodIDs {
		ids[i] = id.String()
	}

	result, err := r.foodCB.Execute(func() (interface{}, error) {
		foods := make(map[uuid.UUID]*domain.FoodItem, len(foodIDs))
		err := r.executeWithRetry(ctx, func() error {
			query := `SELECT ` + foodColumns + ` FROM foods WHERE id = ANY($1)`
			rows, queryErr := r.db.QueryContext(ctx, query, pq.Array(ids))
			if queryErr != nil {
				return queryErr
			}
			defer rows.Close()

			for rows.Next() {
				item, scanErr := scanFood(rows.Scan)
				if scanErr != nil {
					return scanErr
				}
				foods[item.ID] = item
			}
			return rows.Err()
		})
		if err != nil {
			return nil, err
		}
		return foods, nil
	})

	if err != nil {
		return nil, err
	}

	return result.(map[uuid.UUID]*domain.FoodItem), nil
}

// GetPlanTargets implements ports.PlanStore.
// Returns (nil, nil) when the plan does not exist.
func (r *SQLRepository) GetPlanTargets(ctx context.Context, planID uuid.UUID) (*domain.PlanTargets, error) {
	result, err := r.planCB.Execute(func() (interface{}, error) {
		var targets domain.PlanTargets
		var calories, protein, carbs, fats sql.NullFloat64

		err := r.executeWithRetry(ctx, func() error {
			query := `SELECT id, calories_target, protein_target_g, carbs_target_g, fats_target_g FROM diet_plans WHERE id = $1`
			row := r.db.QueryRowContext(ctx, query, planID)
			return row.Scan(&targets.PlanID, &calories, &protein, &carbs, &fats)
		})
		if err != nil {
			return nil, err
		}

		if calories.Valid {
			targets.CaloriesTarget = &calories.Float64
		}
		if protein.Valid {
			targets.ProteinTargetG = &protein.Float64
		}
		if carbs.Valid {
			targets.CarbsTargetG = &carbs.Float64
		}
		if fats.Valid {
			targets.FatsTargetG = &fats.Float64
		}

		return &targets, nil
	})

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	return result.(*domain.PlanTargets), nil
}

// GetPlanFoodUsage implements ports.PlanStore
func (r *SQLRepository) GetPlanFoodUsage(ctx context.Context, planID uuid.UUID) ([]domain.FoodUsage, error) {
	result, err := r.planCB.Execute(func() (interface{}, error) {
		var usage []domain.FoodUsage
		err := r.executeWithRetry(ctx, func() error {
			query := `SELECT food_id, day_of_week FROM plan_meals WHERE plan_id = $1`
			rows, queryErr := r.db.QueryContext(ctx, query, planID)
			if queryErr != nil {
				return queryErr
			}
			defer rows.Close()

			for rows.Next() {
				var u domain.FoodUsage
				if err := rows.Scan(&u.FoodID, &u.DayOfWeek); err != nil {
					return err
				}
				u.DayOfWeek = strings.ToLower(u.DayOfWeek)
				usage = append(usage, u)
			}
			return rows.Err()
		})
		if err != nil {
			return nil, err
		}
		return usage, nil
	})

	if err != nil {
		return nil, err
	}

	return result.([]domain.FoodUsage), nil
}

// Interface guards
var (
	_ ports.ClientStore = (*SQLRepository)(nil)
	_ ports.FoodStore   = (*SQLRepository)(nil)
	_ ports.PlanStore   = (*SQLRepository)(nil)
)
