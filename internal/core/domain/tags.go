package domain

import (
	"strings"

	"github.com/google/uuid"
)

// StringSet is a lower-case string set with O(1) membership tests.
// Built once at extraction time; never mutated afterwards.
type StringSet map[string]struct{}

// NewStringSet builds a set from raw values, lower-casing and trimming each.
// Empty values are dropped.
func NewStringSet(values ...string) StringSet {
	s := make(StringSet, len(values))
	for _, v := range values {
		v = strings.ToLower(strings.TrimSpace(v))
		if v != "" {
			s[v] = struct{}{}
		}
	}
	return s
}

// Has reports membership for a value (case-insensitive)
func (s StringSet) Has(value string) bool {
	if s == nil {
		return false
	}
	_, ok := s[strings.ToLower(strings.TrimSpace(value))]
	return ok
}

// HasAny reports whether any member of other is in s
func (s StringSet) HasAny(other StringSet) bool {
	for v := range other {
		if _, ok := s[v]; ok {
			return true
		}
	}
	return false
}

// Intersect returns the members of s that are also in other
func (s StringSet) Intersect(other StringSet) []string {
	var out []string
	for v := range s {
		if _, ok := other[v]; ok {
			out = append(out, v)
		}
	}
	return out
}

// Values returns the members as a slice (unordered)
func (s StringSet) Values() []string {
	out := make([]string, 0, len(s))
	for v := range s {
		out = append(out, v)
	}
	return out
}

// UUIDSet is a food-id set used for liked-food lookups
type UUIDSet map[uuid.UUID]struct{}

// NewUUIDSet builds a set from ids
func NewUUIDSet(ids ...uuid.UUID) UUIDSet {
	s := make(UUIDSet, len(ids))
	for _, id := range ids {
		s[id] = struct{}{}
	}
	return s
}

// Has reports membership
func (s UUIDSet) Has(id uuid.UUID) bool {
	_, ok := s[id]
	return ok
}

// ClientTagSet is the normalized, read-mostly view of a client used by the
// rule pipeline. Rebuilt on cache miss or explicit invalidation; all string
// members are lower-cased at construction.
type ClientTagSet struct {
	ClientID          uuid.UUID
	Allergies         StringSet
	Intolerances      StringSet
	DietPattern       string // empty when no pattern is set
	EggAllowed        bool
	EggAvoidDays      StringSet
	FoodRestrictions  []FoodRestriction
	Dislikes          StringSet
	AvoidCategories   StringSet
	MedicalConditions StringSet
	LabDerivedTags    StringSet
	LikedFoods        UUIDSet
	PreferredCuisines StringSet
}

// FoodTagSet is the normalized view of a food item used by the rule pipeline
type FoodTagSet struct {
	ID                  uuid.UUID
	Name                string // lower-cased for matching
	DisplayName         string // original casing, surfaced in messages
	AllergenFlags       StringSet
	DietaryCategory     string // empty when unknown
	NutritionTags       StringSet
	HealthFlags         StringSet
	CuisineTags         StringSet
	ProcessingLevel     string
	MealSuitabilityTags StringSet
	Calories            *float64
	ProteinG            *float64
	CarbsG              *float64
	FatsG               *float64
}

// ClientProfile is the raw client record supplied by the client store.
// Tag extraction normalizes it into a ClientTagSet.
type ClientProfile struct {
	ID                  uuid.UUID   `json:"id"`
	FullName            string      `json:"full_name"`
	DietitianUserID     uuid.UUID   `json:"dietitian_user_id"`
	Allergies           []string    `json:"allergies"`
	Intolerances        []string    `json:"intolerances"`
	DietPattern         *string     `json:"diet_pattern"`
	EggAllowed          bool        `json:"egg_allowed"`
	EggAvoidDays        []string    `json:"egg_avoid_days"`
	FoodRestrictionsRaw []byte      `json:"-"` // JSONB column, parsed at extraction
	Dislikes            []string    `json:"dislikes"`
	AvoidCategories     []string    `json:"avoid_categories"`
	MedicalConditions   []string    `json:"medical_conditions"`
	LabDerivedTags      []string    `json:"lab_derived_tags"`
	LikedFoodIDs        []uuid.UUID `json:"liked_food_ids"`
	PreferredCuisines   []string    `json:"preferred_cuisines"`
}

// FoodItem is the raw food record supplied by the food store
type FoodItem struct {
	ID                  uuid.UUID `json:"id"`
	Name                string    `json:"name"`
	AllergenFlags       []string  `json:"allergen_flags"`
	DietaryCategory     *string   `json:"dietary_category"`
	NutritionTags       []string  `json:"nutrition_tags"`
	HealthFlags         []string  `json:"health_flags"`
	CuisineTags         []string  `json:"cuisine_tags"`
	ProcessingLevel     *string   `json:"processing_level"`
	MealSuitabilityTags []string  `json:"meal_suitability_tags"`
	Calories            *float64  `json:"calories"`
	ProteinG            *float64  `json:"protein_g"`
	CarbsG              *float64  `json:"carbs_g"`
	FatsG               *float64  `json:"fats_g"`
}

// PlanTargets holds a diet plan's daily macro targets
type PlanTargets struct {
	PlanID         uuid.UUID `json:"plan_id"`
	CaloriesTarget *float64  `json:"calories_target"`
	ProteinTargetG *float64  `json:"protein_target_g"`
	CarbsTargetG   *float64  `json:"carbs_target_g"`
	FatsTargetG    *float64  `json:"fats_target_g"`
}

// FoodUsage is one scheduled occurrence of a food within a plan's meals
type FoodUsage struct {
	FoodID    uuid.UUID `json:"food_id"`
	DayOfWeek string    `json:"day_of_week"` // lower-case day name
}
