package services

import (
	"fmt"
	"sort"

	"github.com/nutriplan/validation-service/internal/core/domain"
)

// advisoryEntry is one row of a condition -> triggering-tags table
type advisoryEntry struct {
	condition      string
	triggers       []string
	message        string // format with food display name
	recommendation string
}

// medicalAdvisories maps medical conditions to the nutrition/health tags
// that should raise a warning. Kept as a slice so alert order is stable.
var medicalAdvisories = []advisoryEntry{
	{
		condition:      "pre_diabetes",
		triggers:       []string{"high_sugar", "high_glycemic", "added_sugar"},
		message:        "%s is high in sugar; client has pre-diabetes",
		recommendation: "Prefer low-glycemic alternatives",
	},
	{
		condition:      "diabetes",
		triggers:       []string{"high_sugar", "high_glycemic", "added_sugar"},
		message:        "%s is high in sugar; client has diabetes",
		recommendation: "Prefer low-glycemic alternatives",
	},
	{
		condition:      "heart_disease",
		triggers:       []string{"high_cholesterol", "high_saturated_fat", "trans_fat"},
		message:        "%s is high in cholesterol or saturated fat; client has a heart condition",
		recommendation: "Prefer heart-healthy fats",
	},
	{
		condition:      "hypertension",
		triggers:       []string{"high_sodium"},
		message:        "%s is high in sodium; client has hypertension",
		recommendation: "Prefer low-sodium preparations",
	},
	{
		condition:      "fatty_liver",
		triggers:       []string{"high_saturated_fat", "deep_fried", "added_sugar"},
		message:        "%s is heavy in fat or sugar; client has fatty liver",
		recommendation: "Prefer lightly cooked, low-fat options",
	},
}

// labAdvisories maps lab-derived tags to triggering food tags
var labAdvisories = []advisoryEntry{
	{
		condition:      "diabetic",
		triggers:       []string{"high_sugar", "high_glycemic", "added_sugar"},
		message:        "%s is high in sugar; recent labs show diabetic-range glucose",
		recommendation: "Keep sugar intake low until the next review",
	},
	{
		condition:      "pre_diabetic",
		triggers:       []string{"high_sugar", "high_glycemic", "added_sugar"},
		message:        "%s is high in sugar; recent labs show pre-diabetic glucose",
		recommendation: "Keep sugar intake low until the next review",
	},
	{
		condition:      "high_cholesterol",
		triggers:       []string{"high_cholesterol", "high_saturated_fat"},
		message:        "%s is high in cholesterol; recent labs show elevated cholesterol",
		recommendation: "Prefer lean or plant-based options",
	},
	{
		condition:      "high_triglycerides",
		triggers:       []string{"high_saturated_fat", "added_sugar", "deep_fried"},
		message:        "%s works against elevated triglycerides in recent labs",
		recommendation: "Prefer lean or plant-based options",
	},
	{
		condition:      "kidney_strain",
		triggers:       []string{"high_protein"},
		message:        "%s is protein-heavy; recent labs show kidney strain",
		recommendation: "Moderate protein portions until the next review",
	},
	{
		condition:      "high_uric_acid",
		triggers:       []string{"high_protein", "high_purine"},
		message:        "%s is purine-rich; recent labs show elevated uric acid",
		recommendation: "Moderate protein portions until the next review",
	},
}

// labPositives are green nudges: a deficiency tag matched against a
// nutrient-rich health flag
var labPositives = []advisoryEntry{
	{
		condition: "vitamin_d_deficiency",
		triggers:  []string{"vitamin_d_rich"},
		message:   "%s is a good vitamin D source for this client's deficiency",
	},
	{
		condition: "b12_deficiency",
		triggers:  []string{"b12_rich"},
		message:   "%s is a good B12 source for this client's deficiency",
	},
	{
		condition: "iron_deficiency",
		triggers:  []string{"iron_rich"},
		message:   "%s is a good iron source for this client's deficiency",
	},
}

// foodTriggered reports whether any trigger tag is present on the food's
// nutrition tags or health flags
func foodTriggered(food *domain.FoodTagSet, triggers []string) bool {
	for _, t := range triggers {
		if food.NutritionTags.Has(t) || food.HealthFlags.Has(t) {
			return true
		}
	}
	return false
}

// ruleMedicalConditions emits advisory warnings from the medical table
func ruleMedicalConditions(in *ruleInput) []domain.ValidationAlert {
	var alerts []domain.ValidationAlert
	for _, entry := range medicalAdvisories {
		if !in.client.MedicalConditions.Has(entry.condition) {
			continue
		}
		if !foodTriggered(in.food, entry.triggers) {
			continue
		}
		alerts = append(alerts, domain.ValidationAlert{
			Type:           domain.AlertTypeMedical,
			Severity:       domain.SeverityYellow,
			Message:        fmt.Sprintf(entry.message, in.food.DisplayName),
			Recommendation: entry.recommendation,
			Icon:           "stethoscope",
		})
	}
	return alerts
}

// ruleLabDerived emits advisory warnings and positive nudges from the
// lab-derived tables
func ruleLabDerived(in *ruleInput) []domain.ValidationAlert {
	var alerts []domain.ValidationAlert
	for _, entry := range labAdvisories {
		if !in.client.LabDerivedTags.Has(entry.condition) {
			continue
		}
		if !foodTriggered(in.food, entry.triggers) {
			continue
		}
		alerts = append(alerts, domain.ValidationAlert{
			Type:           domain.AlertTypeLabDerived,
			Severity:       domain.SeverityYellow,
			Message:        fmt.Sprintf(entry.message, in.food.DisplayName),
			Recommendation: entry.recommendation,
			Icon:           "flask",
		})
	}
	for _, entry := range labPositives {
		if !in.client.LabDerivedTags.Has(entry.condition) {
			continue
		}
		if !foodTriggered(in.food, entry.triggers) {
			continue
		}
		alerts = append(alerts, domain.ValidationAlert{
			Type:     domain.AlertTypeLabDerived,
			Severity: domain.SeverityGreen,
			Message:  fmt.Sprintf(entry.message, in.food.DisplayName),
			Icon:     "thumbs-up",
		})
	}
	return alerts
}

// ruleDislikes warns when a disliked phrase appears in the food name
func ruleDislikes(in *ruleInput) []domain.ValidationAlert {
	dislikes := in.client.Dislikes.Values()
	sort.Strings(dislikes)

	var alerts []domain.ValidationAlert
	for _, phrase := range dislikes {
		if !wordMatch(in.food.Name, phrase) {
			continue
		}
		alerts = append(alerts, domain.ValidationAlert{
			Type:           domain.AlertTypeDislike,
			Severity:       domain.SeverityYellow,
			Message:        fmt.Sprintf("Client has marked %s as disliked", phrase),
			Recommendation: "Consider an alternative the client enjoys",
			Icon:           "thumbs-down",
		})
	}
	return alerts
}

// categoryMatcher decides whether a food falls under an avoided category.
// Matching is best-effort: the display name is only a fallback signal.
type categoryMatcher struct {
	processingLevels []string
	nutritionTags    []string
	nameKeywords     []string
}

var avoidCategoryMatchers = map[string]categoryMatcher{
	"fried": {
		processingLevels: []string{"fried", "deep_fried"},
		nutritionTags:    []string{"deep_fried"},
		nameKeywords:     []string{"fried", "pakora", "bhajji"},
	},
	"processed": {
		processingLevels: []string{"processed", "ultra_processed"},
	},
	"sweets": {
		nutritionTags: []string{"high_sugar", "added_sugar"},
		nameKeywords:  []string{"sweet", "dessert", "cake", "halwa", "ladoo"},
	},
	"red_meat": {
		nameKeywords: []string{"beef", "mutton", "lamb", "pork"},
	},
	"carbonated_drinks": {
		nutritionTags: []string{"carbonated"},
		nameKeywords:  []string{"soda", "cola"},
	},
}

// matchesAvoidCategory checks the static table first, then falls back to
// direct category/cuisine/name comparison
func matchesAvoidCategory(category string, food *domain.FoodTagSet) bool {
	if m, ok := avoidCategoryMatchers[category]; ok {
		for _, level := range m.processingLevels {
			if food.ProcessingLevel == level {
				return true
			}
		}
		for _, tag := range m.nutritionTags {
			if food.NutritionTags.Has(tag) {
				return true
			}
		}
		for _, kw := range m.nameKeywords {
			if wordMatch(food.Name, kw) {
				return true
			}
		}
		return false
	}

	if food.DietaryCategory == category || food.ProcessingLevel == category {
		return true
	}
	if food.CuisineTags.Has(category) {
		return true
	}
	return wordMatch(food.Name, category)
}

// ruleAvoidCategories warns for foods in the client's avoided categories
func ruleAvoidCategories(in *ruleInput) []domain.ValidationAlert {
	categories := in.client.AvoidCategories.Values()
	sort.Strings(categories)

	var alerts []domain.ValidationAlert
	for _, category := range categories {
		if !matchesAvoidCategory(category, in.food) {
			continue
		}
		alerts = append(alerts, domain.ValidationAlert{
			Type:     domain.AlertTypeDislike,
			Severity: domain.SeverityYellow,
			Message:  fmt.Sprintf("%s falls under avoided category %s", in.food.DisplayName, category),
			Icon:     "thumbs-down",
		})
	}
	return alerts
}

// mealSuitabilityConflicts maps meal types to suitability tags that clash
// with them
var mealSuitabilityConflicts = map[string][]string{
	domain.MealTypeBreakfast: {"too_heavy_for_breakfast", "night_only"},
	domain.MealTypeDinner:    {"too_heavy_for_night", "high_caffeine", "breakfast_only"},
	domain.MealTypeLunch:     {"breakfast_only"},
}

// ruleMealSuitability warns when the food's suitability tags conflict with
// the meal being planned
func ruleMealSuitability(in *ruleInput) []domain.ValidationAlert {
	conflicts, ok := mealSuitabilityConflicts[in.vctx.MealType]
	if !ok {
		return nil
	}

	var alerts []domain.ValidationAlert
	for _, tag := range conflicts {
		if !in.food.MealSuitabilityTags.Has(tag) {
			continue
		}
		alerts = append(alerts, domain.ValidationAlert{
			Type:     domain.AlertTypeDayRestriction,
			Severity: domain.SeverityYellow,
			Message:  fmt.Sprintf("%s is marked %s; planned for %s", in.food.DisplayName, tag, in.vctx.MealType),
			Icon:     "clock",
		})
	}
	return alerts
}

// rulePositivePreferences emits green endorsements for liked foods and
// preferred cuisines. Green alerts never change an already red or yellow
// aggregate severity.
func rulePositivePreferences(in *ruleInput) []domain.ValidationAlert {
	var alerts []domain.ValidationAlert

	if in.client.LikedFoods.Has(in.food.ID) {
		alerts = append(alerts, domain.ValidationAlert{
			Type:     domain.AlertTypePreferenceMatch,
			Severity: domain.SeverityGreen,
			Message:  fmt.Sprintf("Client has marked %s as a liked food", in.food.DisplayName),
			Icon:     "heart",
		})
	}

	cuisines := in.client.PreferredCuisines.Intersect(in.food.CuisineTags)
	if len(cuisines) > 0 {
		sort.Strings(cuisines)
		alerts = append(alerts, domain.ValidationAlert{
			Type:     domain.AlertTypeCuisineMatch,
			Severity: domain.SeverityGreen,
			Message:  fmt.Sprintf("%s matches preferred cuisine %s", in.food.DisplayName, cuisines[0]),
			Icon:     "heart",
		})
	}

	return alerts
}
