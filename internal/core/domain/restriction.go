package domain

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// RestrictionType discriminates the FoodRestriction variants
type RestrictionType string

const (
	RestrictionAlways    RestrictionType = "always"
	RestrictionDayBased  RestrictionType = "day_based"
	RestrictionTimeBased RestrictionType = "time_based"
	RestrictionFrequency RestrictionType = "frequency"
	RestrictionQuantity  RestrictionType = "quantity"
)

// RestrictionSeverity maps to the blocking behaviour of a matched restriction:
// strict produces a red alert, flexible a yellow one.
type RestrictionSeverity string

const (
	RestrictionStrict   RestrictionSeverity = "strict"
	RestrictionFlexible RestrictionSeverity = "flexible"
)

// FoodRestriction is a dietitian-authored rule scoped to one client,
// persisted as a JSON list on the client record. Exactly one target selector
// (FoodID, FoodName or FoodCategory) must be set; the type-specific fields
// belong to the variant named by Type and are validated at construction so
// rule evaluation never has to re-check shape.
type FoodRestriction struct {
	// Target selector - exactly one of these
	FoodID       *uuid.UUID `json:"food_id,omitempty"`
	FoodName     string     `json:"food_name,omitempty"`     // substring match against food name
	FoodCategory string     `json:"food_category,omitempty"` // semantic category, e.g. non_veg, dairy, root_vegetables

	Type RestrictionType `json:"restriction_type"`

	// day_based
	AvoidDays []string `json:"avoid_days,omitempty"`

	// time_based
	AvoidMeals  []string `json:"avoid_meals,omitempty"`
	AvoidAfter  string   `json:"avoid_after,omitempty"`  // HH:MM
	AvoidBefore string   `json:"avoid_before,omitempty"` // HH:MM

	// frequency
	MaxPerWeek *int `json:"max_per_week,omitempty"`
	MaxPerDay  *int `json:"max_per_day,omitempty"`

	// quantity
	MaxGramsPerMeal *float64 `json:"max_grams_per_meal,omitempty"`

	// Carve-outs: a food matching any of these is never restricted by this rule
	Excludes []string `json:"excludes,omitempty"`

	Severity RestrictionSeverity `json:"severity"`
	Reason   string              `json:"reason,omitempty"`
	Note     string              `json:"note,omitempty"`
}

// Validate checks the restriction's shape. Called at parse time so the rule
// pipeline can trust every restriction it sees.
func (r *FoodRestriction) Validate() error {
	if r.FoodID == nil && r.FoodName == "" && r.FoodCategory == "" {
		return fmt.Errorf("restriction has no target selector")
	}

	switch r.Type {
	case RestrictionAlways:
		// no variant fields
	case RestrictionDayBased:
		if len(r.AvoidDays) == 0 {
			return fmt.Errorf("day_based restriction requires avoid_days")
		}
		for _, d := range r.AvoidDays {
			if DayIndex(strings.ToLower(strings.TrimSpace(d))) < 0 {
				return fmt.Errorf("day_based restriction has invalid day %q", d)
			}
		}
	case RestrictionTimeBased:
		if len(r.AvoidMeals) == 0 && r.AvoidAfter == "" && r.AvoidBefore == "" {
			return fmt.Errorf("time_based restriction requires avoid_meals, avoid_after or avoid_before")
		}
		if r.AvoidAfter != "" {
			if _, err := ParseMinuteOfDay(r.AvoidAfter); err != nil {
				return fmt.Errorf("time_based restriction avoid_after: %w", err)
			}
		}
		if r.AvoidBefore != "" {
			if _, err := ParseMinuteOfDay(r.AvoidBefore); err != nil {
				return fmt.Errorf("time_based restriction avoid_before: %w", err)
			}
		}
	case RestrictionFrequency:
		if r.MaxPerWeek == nil && r.MaxPerDay == nil {
			return fmt.Errorf("frequency restriction requires max_per_week or max_per_day")
		}
	case RestrictionQuantity:
		if r.MaxGramsPerMeal == nil {
			return fmt.Errorf("quantity restriction requires max_grams_per_meal")
		}
	default:
		return fmt.Errorf("unknown restriction type %q", r.Type)
	}

	switch r.Severity {
	case RestrictionStrict, RestrictionFlexible:
	case "":
		r.Severity = RestrictionFlexible
	default:
		return fmt.Errorf("unknown restriction severity %q", r.Severity)
	}

	return nil
}

// normalize lower-cases the free-text matching fields in place
func (r *FoodRestriction) normalize() {
	r.FoodName = strings.ToLower(strings.TrimSpace(r.FoodName))
	r.FoodCategory = strings.ToLower(strings.TrimSpace(r.FoodCategory))
	for i, d := range r.AvoidDays {
		r.AvoidDays[i] = strings.ToLower(strings.TrimSpace(d))
	}
	for i, m := range r.AvoidMeals {
		r.AvoidMeals[i] = strings.ToLower(strings.TrimSpace(m))
	}
	for i, e := range r.Excludes {
		r.Excludes[i] = strings.ToLower(strings.TrimSpace(e))
	}
}

// ParseFoodRestrictions decodes and validates the JSON restriction list stored
// on a client record. Invalid entries fail the whole parse: a half-applied
// policy set is worse than a loud failure at extraction time.
func ParseFoodRestrictions(raw []byte) ([]FoodRestriction, error) {
	if len(raw) == 0 {
		return nil, nil
	}

	var restrictions []FoodRestriction
	if err := json.Unmarshal(raw, &restrictions); err != nil {
		return nil, fmt.Errorf("failed to decode food restrictions: %w", err)
	}

	for i := range restrictions {
		restrictions[i].normalize()
		if err := restrictions[i].Validate(); err != nil {
			return nil, fmt.Errorf("restriction %d: %w", i, err)
		}
	}

	return restrictions, nil
}

// ParseMinuteOfDay converts an "HH:MM" string to minutes since midnight
func ParseMinuteOfDay(value string) (int, error) {
	var hour, minute int
	if _, err := fmt.Sscanf(strings.TrimSpace(value), "%d:%d", &hour, &minute); err != nil {
		return 0, fmt.Errorf("invalid time %q: expected HH:MM", value)
	}
	if hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		return 0, fmt.Errorf("invalid time %q: out of range", value)
	}
	return hour*60 + minute, nil
}
