package domain

import (
	"strings"

	"github.com/google/uuid"
)

// Severity represents the verdict level of a validation alert
type Severity string

const (
	SeverityRed    Severity = "red"    // Blocking - food must not be added
	SeverityYellow Severity = "yellow" // Advisory - food can be added with a warning
	SeverityGreen  Severity = "green"  // Positive - food is safe or actively recommended
)

// severityRank orders severities for aggregation (higher wins)
var severityRank = map[Severity]int{
	SeverityGreen:  0,
	SeverityYellow: 1,
	SeverityRed:    2,
}

// MoreSevere reports whether s outranks other
func (s Severity) MoreSevere(other Severity) bool {
	return severityRank[s] > severityRank[other]
}

// MaxSeverity returns the more severe of the two
func MaxSeverity(a, b Severity) Severity {
	if b.MoreSevere(a) {
		return b
	}
	return a
}

// AlertType identifies which rule produced a validation alert
type AlertType string

const (
	AlertTypeAllergy           AlertType = "allergy"
	AlertTypeIntolerance       AlertType = "intolerance"
	AlertTypeDietPattern       AlertType = "diet_pattern"
	AlertTypeDayRestriction    AlertType = "day_restriction"
	AlertTypeFoodRestriction   AlertType = "food_restriction"
	AlertTypeMedical           AlertType = "medical"
	AlertTypeLabDerived        AlertType = "lab_derived"
	AlertTypeDislike           AlertType = "dislike"
	AlertTypePreferenceMatch   AlertType = "preference_match"
	AlertTypeCuisineMatch      AlertType = "cuisine_match"
	AlertTypeRepetition        AlertType = "repetition"
	AlertTypeNutritionStrength AlertType = "nutrition_strength"
)

// ValidationAlert is a single finding produced by the rule pipeline
type ValidationAlert struct {
	Type           AlertType `json:"type"`
	Severity       Severity  `json:"severity"`
	Message        string    `json:"message"`
	Recommendation string    `json:"recommendation,omitempty"`
	Icon           string    `json:"icon,omitempty"`
}

// ValidationResult is the verdict for a single (client, food, context) triple
type ValidationResult struct {
	FoodID          uuid.UUID         `json:"food_id"`
	FoodName        string            `json:"food_name"`
	Severity        Severity          `json:"severity"`
	CanAdd          bool              `json:"can_add"`
	Alerts          []ValidationAlert `json:"alerts"`
	ConfidenceScore float64           `json:"confidence_score"`
}

// BatchValidationResult holds per-food verdicts for a batch call
type BatchValidationResult struct {
	ClientID         uuid.UUID           `json:"client_id"`
	Results          []*ValidationResult `json:"results"`
	ProcessingTimeMs int64               `json:"processing_time_ms"`
}

// MealType constants used in contexts and restriction matching
const (
	MealTypeBreakfast    = "breakfast"
	MealTypeMorningSnack = "morning_snack"
	MealTypeLunch        = "lunch"
	MealTypeEveningSnack = "evening_snack"
	MealTypeDinner       = "dinner"
)

// ValidationContext carries the point-in-plan situation for a validate call.
// Supplied fresh per call; never persisted.
type ValidationContext struct {
	CurrentDay    string     `json:"current_day"` // lower-case day name, e.g. "tuesday"
	MealType      string     `json:"meal_type"`
	PlanID        *uuid.UUID `json:"plan_id,omitempty"`
	ScheduledTime string     `json:"scheduled_time,omitempty"` // HH:MM, 24-hour
}

// Normalized returns a copy with day and meal type lower-cased
func (c ValidationContext) Normalized() ValidationContext {
	c.CurrentDay = strings.ToLower(strings.TrimSpace(c.CurrentDay))
	c.MealType = strings.ToLower(strings.TrimSpace(c.MealType))
	return c
}

// dayIndex maps lower-case day names to 0..6 (monday first)
var dayIndex = map[string]int{
	"monday":    0,
	"tuesday":   1,
	"wednesday": 2,
	"thursday":  3,
	"friday":    4,
	"saturday":  5,
	"sunday":    6,
}

// DayIndex returns the 0-based weekday index for a lower-case day name.
// Returns -1 for unrecognized names.
func DayIndex(day string) int {
	if idx, ok := dayIndex[day]; ok {
		return idx
	}
	return -1
}
