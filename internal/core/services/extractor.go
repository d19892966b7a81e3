package services

import (
	"fmt"
	"strings"

	"github.com/nutriplan/validation-service/internal/core/domain"
)

// buildClientTagSet normalizes a raw client record into the read-mostly tag
// set consumed by the rule pipeline. Every free-text member is lower-cased
// here so rule bodies never re-normalize.
func buildClientTagSet(profile *domain.ClientProfile) (*domain.ClientTagSet, error) {
	restrictions, err := domain.ParseFoodRestrictions(profile.FoodRestrictionsRaw)
	if err != nil {
		return nil, fmt.Errorf("client %s: %w", profile.ID, err)
	}

	dietPattern := ""
	if profile.DietPattern != nil {
		dietPattern = strings.ToLower(strings.TrimSpace(*profile.DietPattern))
	}

	return &domain.ClientTagSet{
		ClientID:          profile.ID,
		Allergies:         domain.NewStringSet(profile.Allergies...),
		Intolerances:      domain.NewStringSet(profile.Intolerances...),
		DietPattern:       dietPattern,
		EggAllowed:        profile.EggAllowed,
		EggAvoidDays:      domain.NewStringSet(profile.EggAvoidDays...),
		FoodRestrictions:  restrictions,
		Dislikes:          domain.NewStringSet(profile.Dislikes...),
		AvoidCategories:   domain.NewStringSet(profile.AvoidCategories...),
		MedicalConditions: domain.NewStringSet(profile.MedicalConditions...),
		LabDerivedTags:    domain.NewStringSet(profile.LabDerivedTags...),
		LikedFoods:        domain.NewUUIDSet(profile.LikedFoodIDs...),
		PreferredCuisines: domain.NewStringSet(profile.PreferredCuisines...),
	}, nil
}

// buildFoodTagSet normalizes a raw food record. Pure transformation, no
// lookup side effects.
func buildFoodTagSet(item *domain.FoodItem) *domain.FoodTagSet {
	dietaryCategory := ""
	if item.DietaryCategory != nil {
		dietaryCategory = strings.ToLower(strings.TrimSpace(*item.DietaryCategory))
	}
	processingLevel := ""
	if item.ProcessingLevel != nil {
		processingLevel = strings.ToLower(strings.TrimSpace(*item.ProcessingLevel))
	}

	return &domain.FoodTagSet{
		ID:                  item.ID,
		Name:                strings.ToLower(strings.TrimSpace(item.Name)),
		DisplayName:         item.Name,
		AllergenFlags:       domain.NewStringSet(item.AllergenFlags...),
		DietaryCategory:     dietaryCategory,
		NutritionTags:       domain.NewStringSet(item.NutritionTags...),
		HealthFlags:         domain.NewStringSet(item.HealthFlags...),
		CuisineTags:         domain.NewStringSet(item.CuisineTags...),
		ProcessingLevel:     processingLevel,
		MealSuitabilityTags: domain.NewStringSet(item.MealSuitabilityTags...),
		Calories:            item.Calories,
		ProteinG:            item.ProteinG,
		CarbsG:              item.CarbsG,
		FatsG:               item.FatsG,
	}
}
