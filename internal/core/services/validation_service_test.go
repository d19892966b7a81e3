package services_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/nutriplan/validation-service/internal/core/domain"
	"github.com/nutriplan/validation-service/internal/core/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockClientStore is a mock implementation of ClientStore
type MockClientStore struct {
	mock.Mock
}

func (m *MockClientStore) GetClientProfile(ctx context.Context, clientID uuid.UUID) (*domain.ClientProfile, error) {
	args := m.Called(ctx, clientID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ClientProfile), args.Error(1)
}

// MockFoodStore is a mock implementation of FoodStore
type MockFoodStore struct {
	mock.Mock
}

func (m *MockFoodStore) GetFood(ctx context.Context, foodID uuid.UUID) (*domain.FoodItem, error) {
	args := m.Called(ctx, foodID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.FoodItem), args.Error(1)
}

func (m *MockFoodStore) GetFoods(ctx context.Context, foodIDs []uuid.UUID) (map[uuid.UUID]*domain.FoodItem, error) {
	args := m.Called(ctx, foodIDs)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[uuid.UUID]*domain.FoodItem), args.Error(1)
}

// MockPlanStore is a mock implementation of PlanStore
type MockPlanStore struct {
	mock.Mock
}

func (m *MockPlanStore) GetPlanTargets(ctx context.Context, planID uuid.UUID) (*domain.PlanTargets, error) {
	args := m.Called(ctx, planID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.PlanTargets), args.Error(1)
}

func (m *MockPlanStore) GetPlanFoodUsage(ctx context.Context, planID uuid.UUID) ([]domain.FoodUsage, error) {
	args := m.Called(ctx, planID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.FoodUsage), args.Error(1)
}

func strPtr(s string) *string { return &s }

func floatPtr(f float64) *float64 { return &f }

func newEngine(clients *MockClientStore, foods *MockFoodStore, plans *MockPlanStore) *services.ValidationService {
	return services.NewValidationService(clients, foods, plans, services.DefaultConfig())
}

func alertTypes(result *domain.ValidationResult) []domain.AlertType {
	types := make([]domain.AlertType, 0, len(result.Alerts))
	for _, a := range result.Alerts {
		types = append(types, a.Type)
	}
	return types
}

func TestValidate_AllergyBlocksAndShortCircuits(t *testing.T) {
	clients := new(MockClientStore)
	foods := new(MockFoodStore)
	plans := new(MockPlanStore)
	engine := newEngine(clients, foods, plans)

	clientID := uuid.New()
	foodID := uuid.New()

	clients.On("GetClientProfile", mock.Anything, clientID).Return(&domain.ClientProfile{
		ID:        clientID,
		Allergies: []string{"Peanuts"},
		Dislikes:  []string{"peanut"}, // later stage must never run
	}, nil)
	foods.On("GetFood", mock.Anything, foodID).Return(&domain.FoodItem{
		ID:            foodID,
		Name:          "Peanut Chikki",
		AllergenFlags: []string{"peanuts"},
	}, nil)

	result, err := engine.Validate(context.Background(), clientID, foodID, domain.ValidationContext{
		CurrentDay: "monday",
		MealType:   "lunch",
	})

	require.NoError(t, err)
	assert.Equal(t, domain.SeverityRed, result.Severity)
	assert.False(t, result.CanAdd)
	require.Len(t, result.Alerts, 1)
	assert.Equal(t, domain.AlertTypeAllergy, result.Alerts[0].Type)
	assert.Equal(t, domain.SeverityRed, result.Alerts[0].Severity)
}

func TestValidate_VegetarianBlocksNonVeg(t *testing.T) {
	clients := new(MockClientStore)
	foods := new(MockFoodStore)
	plans := new(MockPlanStore)
	engine := newEngine(clients, foods, plans)

	clientID := uuid.New()
	foodID := uuid.New()

	clients.On("GetClientProfile", mock.Anything, clientID).Return(&domain.ClientProfile{
		ID:          clientID,
		DietPattern: strPtr("vegetarian"),
		EggAllowed:  true,
	}, nil)
	foods.On("GetFood", mock.Anything, foodID).Return(&domain.FoodItem{
		ID:              foodID,
		Name:            "Chicken Curry",
		DietaryCategory: strPtr("non_veg"),
	}, nil)

	result, err := engine.Validate(context.Background(), clientID, foodID, domain.ValidationContext{
		CurrentDay: "monday",
		MealType:   "dinner",
	})

	require.NoError(t, err)
	assert.Equal(t, domain.SeverityRed, result.Severity)
	require.Len(t, result.Alerts, 1)
	assert.Equal(t, domain.AlertTypeDietPattern, result.Alerts[0].Type)
}

func TestValidate_PescatarianNonVegIsAdvisory(t *testing.T) {
	clients := new(MockClientStore)
	foods := new(MockFoodStore)
	plans := new(MockPlanStore)
	engine := newEngine(clients, foods, plans)

	clientID := uuid.New()
	foodID := uuid.New()

	clients.On("GetClientProfile", mock.Anything, clientID).Return(&domain.ClientProfile{
		ID:          clientID,
		DietPattern: strPtr("pescatarian"),
	}, nil)
	foods.On("GetFood", mock.Anything, foodID).Return(&domain.FoodItem{
		ID:              foodID,
		Name:            "Grilled Fish",
		DietaryCategory: strPtr("non_veg"),
	}, nil)

	result, err := engine.Validate(context.Background(), clientID, foodID, domain.ValidationContext{
		CurrentDay: "monday",
		MealType:   "dinner",
	})

	require.NoError(t, err)
	assert.Equal(t, domain.SeverityYellow, result.Severity)
	assert.True(t, result.CanAdd)
	require.Len(t, result.Alerts, 1)
	assert.Equal(t, domain.AlertTypeDietPattern, result.Alerts[0].Type)
}

func TestValidate_EggAvoidDay(t *testing.T) {
	clients := new(MockClientStore)
	foods := new(MockFoodStore)
	plans := new(MockPlanStore)
	engine := newEngine(clients, foods, plans)

	clientID := uuid.New()
	foodID := uuid.New()

	clients.On("GetClientProfile", mock.Anything, clientID).Return(&domain.ClientProfile{
		ID:           clientID,
		EggAllowed:   true,
		EggAvoidDays: []string{"Tuesday"},
	}, nil)
	foods.On("GetFood", mock.Anything, foodID).Return(&domain.FoodItem{
		ID:            foodID,
		Name:          "Egg Bhurji",
		AllergenFlags: []string{"eggs"},
	}, nil)

	// Tuesday is blocked
	result, err := engine.Validate(context.Background(), clientID, foodID, domain.ValidationContext{
		CurrentDay: "tuesday",
		MealType:   "breakfast",
	})
	require.NoError(t, err)
	assert.Equal(t, domain.SeverityRed, result.Severity)
	require.Len(t, result.Alerts, 1)
	assert.Equal(t, domain.AlertTypeDayRestriction, result.Alerts[0].Type)

	// Saturday is not
	result, err = engine.Validate(context.Background(), clientID, foodID, domain.ValidationContext{
		CurrentDay: "saturday",
		MealType:   "breakfast",
	})
	require.NoError(t, err)
	assert.NotEqual(t, domain.SeverityRed, result.Severity)
}

func TestValidate_RestrictionExcludesWin(t *testing.T) {
	clients := new(MockClientStore)
	foods := new(MockFoodStore)
	plans := new(MockPlanStore)
	engine := newEngine(clients, foods, plans)

	clientID := uuid.New()
	foodID := uuid.New()

	clients.On("GetClientProfile", mock.Anything, clientID).Return(&domain.ClientProfile{
		ID:         clientID,
		EggAllowed: true,
		FoodRestrictionsRaw: []byte(`[{
			"food_category": "non_veg",
			"restriction_type": "day_based",
			"avoid_days": ["tuesday"],
			"excludes": ["eggs"],
			"severity": "strict"
		}]`),
	}, nil)
	foods.On("GetFood", mock.Anything, foodID).Return(&domain.FoodItem{
		ID:              foodID,
		Name:            "Egg Omelette",
		AllergenFlags:   []string{"eggs"},
		DietaryCategory: strPtr("non_veg"),
	}, nil)

	result, err := engine.Validate(context.Background(), clientID, foodID, domain.ValidationContext{
		CurrentDay: "tuesday",
		MealType:   "breakfast",
	})

	require.NoError(t, err)
	assert.NotEqual(t, domain.SeverityRed, result.Severity)
	assert.True(t, result.CanAdd)
}

func TestValidate_StrictRestrictionBlocksOnMatchedDay(t *testing.T) {
	clients := new(MockClientStore)
	foods := new(MockFoodStore)
	plans := new(MockPlanStore)
	engine := newEngine(clients, foods, plans)

	clientID := uuid.New()
	foodID := uuid.New()

	clients.On("GetClientProfile", mock.Anything, clientID).Return(&domain.ClientProfile{
		ID: clientID,
		FoodRestrictionsRaw: []byte(`[{
			"food_category": "non_veg",
			"restriction_type": "day_based",
			"avoid_days": ["tuesday"],
			"severity": "strict",
			"reason": "religious observance"
		}]`),
	}, nil)
	foods.On("GetFood", mock.Anything, foodID).Return(&domain.FoodItem{
		ID:              foodID,
		Name:            "Chicken Biryani",
		DietaryCategory: strPtr("non_veg"),
	}, nil)

	result, err := engine.Validate(context.Background(), clientID, foodID, domain.ValidationContext{
		CurrentDay: "tuesday",
		MealType:   "lunch",
	})

	require.NoError(t, err)
	assert.Equal(t, domain.SeverityRed, result.Severity)
	require.Len(t, result.Alerts, 1)
	assert.Equal(t, domain.AlertTypeFoodRestriction, result.Alerts[0].Type)
	assert.Contains(t, result.Alerts[0].Message, "religious observance")

	// Wednesday: restriction not active
	result, err = engine.Validate(context.Background(), clientID, foodID, domain.ValidationContext{
		CurrentDay: "wednesday",
		MealType:   "lunch",
	})
	require.NoError(t, err)
	assert.NotEqual(t, domain.SeverityRed, result.Severity)
}

func TestValidate_RepetitionRequiresPlan(t *testing.T) {
	clients := new(MockClientStore)
	foods := new(MockFoodStore)
	plans := new(MockPlanStore)
	engine := newEngine(clients, foods, plans)

	clientID := uuid.New()
	foodID := uuid.New()
	planID := uuid.New()

	clients.On("GetClientProfile", mock.Anything, clientID).Return(&domain.ClientProfile{ID: clientID}, nil)
	foods.On("GetFood", mock.Anything, foodID).Return(&domain.FoodItem{
		ID:   foodID,
		Name: "Dal Rice",
	}, nil)
	plans.On("GetPlanTargets", mock.Anything, planID).Return(nil, nil)
	plans.On("GetPlanFoodUsage", mock.Anything, planID).Return([]domain.FoodUsage{
		{FoodID: foodID, DayOfWeek: "monday"},
		{FoodID: foodID, DayOfWeek: "wednesday"},
		{FoodID: foodID, DayOfWeek: "friday"},
		{FoodID: foodID, DayOfWeek: "sunday"},
	}, nil)

	// With a plan id: repetition alert fires (4 >= 3)
	result, err := engine.Validate(context.Background(), clientID, foodID, domain.ValidationContext{
		CurrentDay: "monday",
		MealType:   "lunch",
		PlanID:     &planID,
	})
	require.NoError(t, err)
	assert.Equal(t, domain.SeverityYellow, result.Severity)
	assert.Contains(t, alertTypes(result), domain.AlertTypeRepetition)
	assert.Contains(t, result.Alerts[0].Message, "4 times")

	// Without a plan id: no repetition alert
	result, err = engine.Validate(context.Background(), clientID, foodID, domain.ValidationContext{
		CurrentDay: "monday",
		MealType:   "lunch",
	})
	require.NoError(t, err)
	assert.NotContains(t, alertTypes(result), domain.AlertTypeRepetition)
}

func TestValidate_ConsecutiveDaySpacing(t *testing.T) {
	clients := new(MockClientStore)
	foods := new(MockFoodStore)
	plans := new(MockPlanStore)
	engine := newEngine(clients, foods, plans)

	clientID := uuid.New()
	foodID := uuid.New()
	planID := uuid.New()

	clients.On("GetClientProfile", mock.Anything, clientID).Return(&domain.ClientProfile{ID: clientID}, nil)
	foods.On("GetFood", mock.Anything, foodID).Return(&domain.FoodItem{
		ID:   foodID,
		Name: "Oats Porridge",
	}, nil)
	plans.On("GetPlanTargets", mock.Anything, planID).Return(nil, nil)
	// Three consecutive days, only three occurrences total (below the
	// repetition count threshold is 3, so count alert also fires at 3;
	// use distinct expectations below)
	plans.On("GetPlanFoodUsage", mock.Anything, planID).Return([]domain.FoodUsage{
		{FoodID: foodID, DayOfWeek: "monday"},
		{FoodID: foodID, DayOfWeek: "tuesday"},
		{FoodID: foodID, DayOfWeek: "wednesday"},
	}, nil)

	result, err := engine.Validate(context.Background(), clientID, foodID, domain.ValidationContext{
		CurrentDay: "thursday",
		MealType:   "breakfast",
		PlanID:     &planID,
	})
	require.NoError(t, err)

	// Both repetition checks fire independently: count (3 >= 3) and
	// spacing (run of 3 > 2)
	repetitionAlerts := 0
	spacingSeen := false
	for _, a := range result.Alerts {
		if a.Type == domain.AlertTypeRepetition {
			repetitionAlerts++
			if a.Message == "Oats Porridge is scheduled 3 days in a row" {
				spacingSeen = true
			}
		}
	}
	assert.Equal(t, 2, repetitionAlerts)
	assert.True(t, spacingSeen)
}

func TestValidate_NutritionStrength(t *testing.T) {
	clients := new(MockClientStore)
	foods := new(MockFoodStore)
	plans := new(MockPlanStore)
	engine := newEngine(clients, foods, plans)

	clientID := uuid.New()
	foodID := uuid.New()
	planID := uuid.New()

	clients.On("GetClientProfile", mock.Anything, clientID).Return(&domain.ClientProfile{ID: clientID}, nil)
	foods.On("GetFood", mock.Anything, foodID).Return(&domain.FoodItem{
		ID:       foodID,
		Name:     "Loaded Burger",
		Calories: floatPtr(600),
	}, nil)
	plans.On("GetPlanTargets", mock.Anything, planID).Return(&domain.PlanTargets{
		PlanID:         planID,
		CaloriesTarget: floatPtr(1000),
	}, nil)
	plans.On("GetPlanFoodUsage", mock.Anything, planID).Return([]domain.FoodUsage{}, nil)

	result, err := engine.Validate(context.Background(), clientID, foodID, domain.ValidationContext{
		CurrentDay: "monday",
		MealType:   "lunch",
		PlanID:     &planID,
	})

	require.NoError(t, err)
	assert.Equal(t, domain.SeverityYellow, result.Severity)
	require.Len(t, result.Alerts, 1)
	assert.Equal(t, domain.AlertTypeNutritionStrength, result.Alerts[0].Type)
	assert.Contains(t, result.Alerts[0].Message, "60%")
}

func TestValidate_PositiveAlertsStayGreen(t *testing.T) {
	clients := new(MockClientStore)
	foods := new(MockFoodStore)
	plans := new(MockPlanStore)
	engine := newEngine(clients, foods, plans)

	clientID := uuid.New()
	foodID := uuid.New()

	clients.On("GetClientProfile", mock.Anything, clientID).Return(&domain.ClientProfile{
		ID:                clientID,
		LikedFoodIDs:      []uuid.UUID{foodID},
		PreferredCuisines: []string{"south_indian"},
	}, nil)
	foods.On("GetFood", mock.Anything, foodID).Return(&domain.FoodItem{
		ID:          foodID,
		Name:        "Masala Dosa",
		CuisineTags: []string{"south_indian"},
	}, nil)

	result, err := engine.Validate(context.Background(), clientID, foodID, domain.ValidationContext{
		CurrentDay: "monday",
		MealType:   "breakfast",
	})

	require.NoError(t, err)
	assert.Equal(t, domain.SeverityGreen, result.Severity)
	assert.True(t, result.CanAdd)
	assert.Equal(t, 1.0, result.ConfidenceScore)
	assert.Contains(t, alertTypes(result), domain.AlertTypePreferenceMatch)
	assert.Contains(t, alertTypes(result), domain.AlertTypeCuisineMatch)
}

func TestValidate_MedicalAndDislikeAccumulate(t *testing.T) {
	clients := new(MockClientStore)
	foods := new(MockFoodStore)
	plans := new(MockPlanStore)
	engine := newEngine(clients, foods, plans)

	clientID := uuid.New()
	foodID := uuid.New()

	clients.On("GetClientProfile", mock.Anything, clientID).Return(&domain.ClientProfile{
		ID:                clientID,
		MedicalConditions: []string{"diabetes"},
		Dislikes:          []string{"jalebi"},
	}, nil)
	foods.On("GetFood", mock.Anything, foodID).Return(&domain.FoodItem{
		ID:            foodID,
		Name:          "Jalebi",
		NutritionTags: []string{"high_sugar"},
	}, nil)

	result, err := engine.Validate(context.Background(), clientID, foodID, domain.ValidationContext{
		CurrentDay: "monday",
		MealType:   "evening_snack",
	})

	require.NoError(t, err)
	assert.Equal(t, domain.SeverityYellow, result.Severity)
	types := alertTypes(result)
	assert.Contains(t, types, domain.AlertTypeMedical)
	assert.Contains(t, types, domain.AlertTypeDislike)
	// Two yellow alerts lower confidence by 0.1 each
	assert.InDelta(t, 0.8, result.ConfidenceScore, 0.001)
}

func TestValidate_ClientNotFound(t *testing.T) {
	clients := new(MockClientStore)
	foods := new(MockFoodStore)
	plans := new(MockPlanStore)
	engine := newEngine(clients, foods, plans)

	clientID := uuid.New()
	foodID := uuid.New()

	clients.On("GetClientProfile", mock.Anything, clientID).Return(nil, nil)
	foods.On("GetFood", mock.Anything, foodID).Return(&domain.FoodItem{ID: foodID, Name: "Rice"}, nil)

	result, err := engine.Validate(context.Background(), clientID, foodID, domain.ValidationContext{
		CurrentDay: "monday",
		MealType:   "lunch",
	})

	assert.Nil(t, result)
	assert.ErrorIs(t, err, domain.ErrClientNotFound)
}

func TestValidate_FoodNotFound(t *testing.T) {
	clients := new(MockClientStore)
	foods := new(MockFoodStore)
	plans := new(MockPlanStore)
	engine := newEngine(clients, foods, plans)

	clientID := uuid.New()
	foodID := uuid.New()

	clients.On("GetClientProfile", mock.Anything, clientID).Return(&domain.ClientProfile{ID: clientID}, nil)
	foods.On("GetFood", mock.Anything, foodID).Return(nil, nil)

	result, err := engine.Validate(context.Background(), clientID, foodID, domain.ValidationContext{
		CurrentDay: "monday",
		MealType:   "lunch",
	})

	assert.Nil(t, result)
	assert.ErrorIs(t, err, domain.ErrFoodNotFound)
}

func TestValidate_IdempotentAndCached(t *testing.T) {
	clients := new(MockClientStore)
	foods := new(MockFoodStore)
	plans := new(MockPlanStore)
	engine := newEngine(clients, foods, plans)

	clientID := uuid.New()
	foodID := uuid.New()

	clients.On("GetClientProfile", mock.Anything, clientID).Return(&domain.ClientProfile{
		ID:        clientID,
		Allergies: []string{"dairy"},
	}, nil).Once()
	foods.On("GetFood", mock.Anything, foodID).Return(&domain.FoodItem{
		ID:            foodID,
		Name:          "Paneer Tikka",
		AllergenFlags: []string{"dairy"},
	}, nil)

	vctx := domain.ValidationContext{CurrentDay: "monday", MealType: "dinner"}

	first, err := engine.Validate(context.Background(), clientID, foodID, vctx)
	require.NoError(t, err)

	// Second call must hit the tag cache (client store allows one call only)
	second, err := engine.Validate(context.Background(), clientID, foodID, vctx)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	clients.AssertExpectations(t)
}

func TestValidate_InvalidationRefreshesTags(t *testing.T) {
	clients := new(MockClientStore)
	foods := new(MockFoodStore)
	plans := new(MockPlanStore)
	engine := newEngine(clients, foods, plans)

	clientID := uuid.New()
	foodID := uuid.New()

	// First load: allergic to dairy. After invalidation: allergy removed.
	clients.On("GetClientProfile", mock.Anything, clientID).Return(&domain.ClientProfile{
		ID:        clientID,
		Allergies: []string{"dairy"},
	}, nil).Once()
	clients.On("GetClientProfile", mock.Anything, clientID).Return(&domain.ClientProfile{
		ID: clientID,
	}, nil).Once()
	foods.On("GetFood", mock.Anything, foodID).Return(&domain.FoodItem{
		ID:            foodID,
		Name:          "Paneer Tikka",
		AllergenFlags: []string{"dairy"},
	}, nil)

	vctx := domain.ValidationContext{CurrentDay: "monday", MealType: "dinner"}

	result, err := engine.Validate(context.Background(), clientID, foodID, vctx)
	require.NoError(t, err)
	assert.Equal(t, domain.SeverityRed, result.Severity)

	engine.InvalidateClientCache(clientID)

	result, err = engine.Validate(context.Background(), clientID, foodID, vctx)
	require.NoError(t, err)
	assert.Equal(t, domain.SeverityGreen, result.Severity)
	clients.AssertExpectations(t)
}

func TestValidateBatch_MatchesSingleValidate(t *testing.T) {
	clientID := uuid.New()
	safeID := uuid.New()
	blockedID := uuid.New()
	planID := uuid.New()

	profile := &domain.ClientProfile{
		ID:        clientID,
		Allergies: []string{"peanuts"},
	}
	safeFood := &domain.FoodItem{ID: safeID, Name: "Steamed Rice", Calories: floatPtr(200)}
	blockedFood := &domain.FoodItem{ID: blockedID, Name: "Peanut Chikki", AllergenFlags: []string{"peanuts"}}
	targets := &domain.PlanTargets{PlanID: planID, CaloriesTarget: floatPtr(1800)}
	usage := []domain.FoodUsage{
		{FoodID: safeID, DayOfWeek: "monday"},
	}

	vctx := domain.ValidationContext{CurrentDay: "monday", MealType: "lunch", PlanID: &planID}

	// Engine A answers single validates
	singleClients := new(MockClientStore)
	singleFoods := new(MockFoodStore)
	singlePlans := new(MockPlanStore)
	singleClients.On("GetClientProfile", mock.Anything, clientID).Return(profile, nil)
	singleFoods.On("GetFood", mock.Anything, safeID).Return(safeFood, nil)
	singleFoods.On("GetFood", mock.Anything, blockedID).Return(blockedFood, nil)
	singlePlans.On("GetPlanTargets", mock.Anything, planID).Return(targets, nil)
	singlePlans.On("GetPlanFoodUsage", mock.Anything, planID).Return(usage, nil)
	singleEngine := newEngine(singleClients, singleFoods, singlePlans)

	// Engine B answers the batch; client and plan loads happen once
	batchClients := new(MockClientStore)
	batchFoods := new(MockFoodStore)
	batchPlans := new(MockPlanStore)
	batchClients.On("GetClientProfile", mock.Anything, clientID).Return(profile, nil).Once()
	batchFoods.On("GetFoods", mock.Anything, []uuid.UUID{safeID, blockedID}).Return(map[uuid.UUID]*domain.FoodItem{
		safeID:    safeFood,
		blockedID: blockedFood,
	}, nil).Once()
	batchPlans.On("GetPlanTargets", mock.Anything, planID).Return(targets, nil).Once()
	batchPlans.On("GetPlanFoodUsage", mock.Anything, planID).Return(usage, nil).Once()
	batchEngine := newEngine(batchClients, batchFoods, batchPlans)

	batch, err := batchEngine.ValidateBatch(context.Background(), clientID, []uuid.UUID{safeID, blockedID}, vctx)
	require.NoError(t, err)
	require.Len(t, batch.Results, 2)
	assert.Equal(t, clientID, batch.ClientID)
	assert.GreaterOrEqual(t, batch.ProcessingTimeMs, int64(0))

	for i, foodID := range []uuid.UUID{safeID, blockedID} {
		single, err := singleEngine.Validate(context.Background(), clientID, foodID, vctx)
		require.NoError(t, err)
		assert.Equal(t, single.Severity, batch.Results[i].Severity)
		assert.Equal(t, single.CanAdd, batch.Results[i].CanAdd)
		assert.Equal(t, alertTypes(single), alertTypes(batch.Results[i]))
	}

	batchClients.AssertExpectations(t)
	batchFoods.AssertExpectations(t)
	batchPlans.AssertExpectations(t)
}

func TestValidateBatch_UnknownFoodFailsCall(t *testing.T) {
	clients := new(MockClientStore)
	foods := new(MockFoodStore)
	plans := new(MockPlanStore)
	engine := newEngine(clients, foods, plans)

	clientID := uuid.New()
	foodID := uuid.New()

	clients.On("GetClientProfile", mock.Anything, clientID).Return(&domain.ClientProfile{ID: clientID}, nil)
	foods.On("GetFoods", mock.Anything, []uuid.UUID{foodID}).Return(map[uuid.UUID]*domain.FoodItem{}, nil)

	result, err := engine.ValidateBatch(context.Background(), clientID, []uuid.UUID{foodID}, domain.ValidationContext{
		CurrentDay: "monday",
		MealType:   "lunch",
	})

	assert.Nil(t, result)
	assert.ErrorIs(t, err, domain.ErrFoodNotFound)
}

func TestValidate_TimeBasedRestrictionWindow(t *testing.T) {
	clients := new(MockClientStore)
	foods := new(MockFoodStore)
	plans := new(MockPlanStore)
	engine := newEngine(clients, foods, plans)

	clientID := uuid.New()
	foodID := uuid.New()

	clients.On("GetClientProfile", mock.Anything, clientID).Return(&domain.ClientProfile{
		ID: clientID,
		FoodRestrictionsRaw: []byte(`[{
			"food_name": "coffee",
			"restriction_type": "time_based",
			"avoid_after": "16:00",
			"severity": "flexible",
			"reason": "disrupts sleep"
		}]`),
	}, nil)
	foods.On("GetFood", mock.Anything, foodID).Return(&domain.FoodItem{
		ID:   foodID,
		Name: "Filter Coffee",
	}, nil)

	// 17:30 is inside the avoid window
	result, err := engine.Validate(context.Background(), clientID, foodID, domain.ValidationContext{
		CurrentDay:    "monday",
		MealType:      "evening_snack",
		ScheduledTime: "17:30",
	})
	require.NoError(t, err)
	assert.Equal(t, domain.SeverityYellow, result.Severity)
	require.Len(t, result.Alerts, 1)
	assert.Equal(t, domain.AlertTypeFoodRestriction, result.Alerts[0].Type)

	// 09:00 is outside it
	result, err = engine.Validate(context.Background(), clientID, foodID, domain.ValidationContext{
		CurrentDay:    "monday",
		MealType:      "breakfast",
		ScheduledTime: "09:00",
	})
	require.NoError(t, err)
	assert.Equal(t, domain.SeverityGreen, result.Severity)
}

func TestValidate_CacheTTLExpiry(t *testing.T) {
	clients := new(MockClientStore)
	foods := new(MockFoodStore)
	plans := new(MockPlanStore)

	cfg := services.DefaultConfig()
	cfg.CacheTTL = 10 * time.Millisecond
	engine := services.NewValidationService(clients, foods, plans, cfg)

	clientID := uuid.New()
	foodID := uuid.New()

	clients.On("GetClientProfile", mock.Anything, clientID).Return(&domain.ClientProfile{ID: clientID}, nil).Twice()
	foods.On("GetFood", mock.Anything, foodID).Return(&domain.FoodItem{ID: foodID, Name: "Rice"}, nil)

	vctx := domain.ValidationContext{CurrentDay: "monday", MealType: "lunch"}

	_, err := engine.Validate(context.Background(), clientID, foodID, vctx)
	require.NoError(t, err)

	time.Sleep(20 * time.Millisecond)

	_, err = engine.Validate(context.Background(), clientID, foodID, vctx)
	require.NoError(t, err)

	clients.AssertExpectations(t)
}
