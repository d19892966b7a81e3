package services

import (
	"fmt"
	"sort"
	"strings"

	"github.com/nutriplan/validation-service/internal/core/domain"
)

// Dietary category constants used by the diet-pattern table
const (
	categoryVegan      = "vegan"
	categoryVegetarian = "vegetarian"
	categoryVegWithEgg = "veg_with_egg"
	categoryNonVeg     = "non_veg"
)

// ruleAllergy blocks any food whose allergen flags intersect the client's
// allergies. Hard safety constraint, first in the pipeline.
func ruleAllergy(in *ruleInput) []domain.ValidationAlert {
	matches := in.client.Allergies.Intersect(in.food.AllergenFlags)
	if len(matches) == 0 {
		return nil
	}
	sort.Strings(matches)

	return []domain.ValidationAlert{{
		Type:           domain.AlertTypeAllergy,
		Severity:       domain.SeverityRed,
		Message:        fmt.Sprintf("%s contains %s, a listed allergy", in.food.DisplayName, strings.Join(matches, ", ")),
		Recommendation: "Do not add this food to the plan",
		Icon:           "alert-octagon",
	}}
}

// ruleIntolerance mirrors the allergy check against the client's intolerances
func ruleIntolerance(in *ruleInput) []domain.ValidationAlert {
	matches := in.client.Intolerances.Intersect(in.food.AllergenFlags)
	if len(matches) == 0 {
		return nil
	}
	sort.Strings(matches)

	return []domain.ValidationAlert{{
		Type:           domain.AlertTypeIntolerance,
		Severity:       domain.SeverityRed,
		Message:        fmt.Sprintf("%s contains %s, a listed intolerance", in.food.DisplayName, strings.Join(matches, ", ")),
		Recommendation: "Choose an alternative the client tolerates",
		Icon:           "alert-octagon",
	}}
}

// ruleDietPattern applies the table-driven diet pattern conflicts. A food
// with no dietary category never triggers this rule.
func ruleDietPattern(in *ruleInput) []domain.ValidationAlert {
	category := in.food.DietaryCategory
	if category == "" {
		return nil
	}

	switch in.client.DietPattern {
	case categoryVegetarian:
		if category == categoryNonVeg {
			return []domain.ValidationAlert{{
				Type:     domain.AlertTypeDietPattern,
				Severity: domain.SeverityRed,
				Message:  fmt.Sprintf("%s is non-vegetarian; client follows a vegetarian diet", in.food.DisplayName),
				Icon:     "leaf",
			}}
		}
		if category == categoryVegWithEgg && !in.client.EggAllowed {
			return []domain.ValidationAlert{{
				Type:     domain.AlertTypeDietPattern,
				Severity: domain.SeverityRed,
				Message:  fmt.Sprintf("%s contains egg; client is vegetarian without egg", in.food.DisplayName),
				Icon:     "leaf",
			}}
		}
	case categoryVegan:
		if category != categoryVegan {
			return []domain.ValidationAlert{{
				Type:     domain.AlertTypeDietPattern,
				Severity: domain.SeverityRed,
				Message:  fmt.Sprintf("%s is not vegan; client follows a vegan diet", in.food.DisplayName),
				Icon:     "leaf",
			}}
		}
	case "pescatarian":
		// No is-fish tag exists on food records, so non-veg items get a
		// verify advisory rather than a block.
		if category == categoryNonVeg {
			return []domain.ValidationAlert{{
				Type:           domain.AlertTypeDietPattern,
				Severity:       domain.SeverityYellow,
				Message:        fmt.Sprintf("%s is non-vegetarian; client is pescatarian", in.food.DisplayName),
				Recommendation: "Verify this is a fish or seafood dish before adding",
				Icon:           "fish",
			}}
		}
	}

	return nil
}

// ruleEggAvoidDay blocks egg-flagged foods on the client's egg-avoid days
func ruleEggAvoidDay(in *ruleInput) []domain.ValidationAlert {
	if !in.client.EggAvoidDays.Has(in.vctx.CurrentDay) {
		return nil
	}
	if !in.food.AllergenFlags.Has("eggs") {
		return nil
	}

	return []domain.ValidationAlert{{
		Type:     domain.AlertTypeDayRestriction,
		Severity: domain.SeverityRed,
		Message:  fmt.Sprintf("%s contains egg; client avoids egg on %s", in.food.DisplayName, in.vctx.CurrentDay),
		Icon:     "calendar-x",
	}}
}
