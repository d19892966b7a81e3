package services

import (
	"fmt"
	"strings"

	"github.com/nutriplan/validation-service/internal/core/domain"
)

// categoryIncludes maps semantic restriction categories to food-name
// keywords, for foods whose dietary category column does not carry the
// semantic grouping a dietitian writes restrictions against.
var categoryIncludes = map[string][]string{
	"root_vegetables": {
		"potato", "sweet potato", "carrot", "beetroot", "radish",
		"turnip", "yam", "tapioca", "colocasia", "onion", "garlic",
	},
	"dairy": {
		"milk", "curd", "yogurt", "paneer", "cheese", "butter",
		"ghee", "cream", "buttermilk", "lassi",
	},
	"non_veg": {
		"chicken", "mutton", "fish", "prawn", "egg", "beef", "pork",
	},
	"citrus": {
		"orange", "lemon", "lime", "grapefruit", "mosambi",
	},
}

// mealDefaultMinutes supplies a minute-of-day for time-window checks when
// the context carries no scheduled time
var mealDefaultMinutes = map[string]int{
	domain.MealTypeBreakfast:    8 * 60,
	domain.MealTypeMorningSnack: 10*60 + 30,
	domain.MealTypeLunch:        13 * 60,
	domain.MealTypeEveningSnack: 16*60 + 30,
	domain.MealTypeDinner:       20 * 60,
}

// ruleFoodRestrictions evaluates the client's dietitian-authored restriction
// list. Strict restrictions block, flexible ones warn; frequency and
// quantity variants surface as reminders regardless of severity because the
// engine has no per-meal quantity data to enforce them against.
func ruleFoodRestrictions(in *ruleInput) []domain.ValidationAlert {
	var alerts []domain.ValidationAlert

	for i := range in.client.FoodRestrictions {
		r := &in.client.FoodRestrictions[i]

		if !restrictionTargets(r, in.food) {
			continue
		}
		if restrictionExcludes(r, in.food) {
			continue
		}
		if !restrictionActive(r, in.vctx) {
			continue
		}

		severity := domain.SeverityYellow
		if r.Severity == domain.RestrictionStrict && isBlockingVariant(r.Type) {
			severity = domain.SeverityRed
		}

		alerts = append(alerts, domain.ValidationAlert{
			Type:           domain.AlertTypeFoodRestriction,
			Severity:       severity,
			Message:        restrictionMessage(r, in.food),
			Recommendation: r.Note,
			Icon:           "ban",
		})
	}

	return alerts
}

// isBlockingVariant reports whether a restriction type can block outright.
// Frequency and quantity restrictions are reminder-only.
func isBlockingVariant(t domain.RestrictionType) bool {
	switch t {
	case domain.RestrictionAlways, domain.RestrictionDayBased, domain.RestrictionTimeBased:
		return true
	}
	return false
}

// restrictionTargets reports whether the restriction's target selector
// matches this food: by id, by name substring, or by semantic category
func restrictionTargets(r *domain.FoodRestriction, food *domain.FoodTagSet) bool {
	if r.FoodID != nil {
		return *r.FoodID == food.ID
	}
	if r.FoodName != "" {
		return strings.Contains(food.Name, r.FoodName)
	}
	if r.FoodCategory != "" {
		if food.DietaryCategory == r.FoodCategory {
			return true
		}
		if food.AllergenFlags.Has(r.FoodCategory) {
			return true
		}
		for _, keyword := range categoryIncludes[r.FoodCategory] {
			if wordMatch(food.Name, keyword) {
				return true
			}
		}
	}
	return false
}

// restrictionExcludes reports whether the food falls under the restriction's
// carve-outs. Excludes always win over a positive target match.
func restrictionExcludes(r *domain.FoodRestriction, food *domain.FoodTagSet) bool {
	for _, ex := range r.Excludes {
		if ex == "" {
			continue
		}
		if food.DietaryCategory == ex || food.AllergenFlags.Has(ex) {
			return true
		}
		if wordMatch(food.Name, ex) {
			return true
		}
	}
	return false
}

// restrictionActive reports whether the restriction applies in the given
// context. Frequency and quantity variants are always active as reminders.
func restrictionActive(r *domain.FoodRestriction, vctx domain.ValidationContext) bool {
	switch r.Type {
	case domain.RestrictionAlways, domain.RestrictionFrequency, domain.RestrictionQuantity:
		return true

	case domain.RestrictionDayBased:
		for _, d := range r.AvoidDays {
			if d == vctx.CurrentDay {
				return true
			}
		}
		return false

	case domain.RestrictionTimeBased:
		for _, m := range r.AvoidMeals {
			if m == vctx.MealType {
				return true
			}
		}

		minute, ok := contextMinuteOfDay(vctx)
		if !ok {
			return false
		}
		if r.AvoidAfter != "" {
			after, err := domain.ParseMinuteOfDay(r.AvoidAfter)
			if err == nil && minute >= after {
				return true
			}
		}
		if r.AvoidBefore != "" {
			before, err := domain.ParseMinuteOfDay(r.AvoidBefore)
			if err == nil && minute < before {
				return true
			}
		}
		return false
	}

	return false
}

// contextMinuteOfDay resolves the context to a minute of day, preferring an
// explicit scheduled time over the meal-type default
func contextMinuteOfDay(vctx domain.ValidationContext) (int, bool) {
	if vctx.ScheduledTime != "" {
		minute, err := domain.ParseMinuteOfDay(vctx.ScheduledTime)
		if err == nil {
			return minute, true
		}
	}
	minute, ok := mealDefaultMinutes[vctx.MealType]
	return minute, ok
}

// restrictionMessage renders the alert text, surfacing the dietitian's
// reason when one was recorded
func restrictionMessage(r *domain.FoodRestriction, food *domain.FoodTagSet) string {
	var detail string
	switch r.Type {
	case domain.RestrictionDayBased:
		detail = fmt.Sprintf("restricted on %s", strings.Join(r.AvoidDays, ", "))
	case domain.RestrictionTimeBased:
		switch {
		case len(r.AvoidMeals) > 0:
			detail = fmt.Sprintf("restricted at %s", strings.Join(r.AvoidMeals, ", "))
		case r.AvoidAfter != "":
			detail = fmt.Sprintf("restricted after %s", r.AvoidAfter)
		default:
			detail = fmt.Sprintf("restricted before %s", r.AvoidBefore)
		}
	case domain.RestrictionFrequency:
		switch {
		case r.MaxPerWeek != nil:
			detail = fmt.Sprintf("limited to %d per week", *r.MaxPerWeek)
		default:
			detail = fmt.Sprintf("limited to %d per day", *r.MaxPerDay)
		}
	case domain.RestrictionQuantity:
		detail = fmt.Sprintf("limited to %.0fg per meal", *r.MaxGramsPerMeal)
	default:
		detail = "restricted for this client"
	}

	msg := fmt.Sprintf("%s is %s", food.DisplayName, detail)
	if r.Reason != "" {
		msg = fmt.Sprintf("%s (%s)", msg, r.Reason)
	}
	return msg
}
