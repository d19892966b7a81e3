package services

import (
	"fmt"
	"math"
	"sort"

	"github.com/nutriplan/validation-service/internal/core/domain"
)

// ruleRepetition warns when a food is already used heavily within the plan.
// Two independent checks: total occurrences against the repetition
// threshold, and the longest run of consecutive plan days against the
// spacing maximum. Skipped entirely without a plan context.
func ruleRepetition(in *ruleInput) []domain.ValidationAlert {
	if in.plan == nil {
		return nil
	}

	count := 0
	daySeen := make(map[int]bool)
	for _, usage := range in.plan.usage {
		if usage.FoodID != in.food.ID {
			continue
		}
		count++
		if idx := domain.DayIndex(usage.DayOfWeek); idx >= 0 {
			daySeen[idx] = true
		}
	}

	var alerts []domain.ValidationAlert

	if count >= in.cfg.RepetitionThreshold {
		alerts = append(alerts, domain.ValidationAlert{
			Type:           domain.AlertTypeRepetition,
			Severity:       domain.SeverityYellow,
			Message:        fmt.Sprintf("%s already appears %d times this week", in.food.DisplayName, count),
			Recommendation: "Rotate in an alternative for variety",
			Icon:           "repeat",
		})
	}

	if run := longestConsecutiveRun(daySeen); run > in.cfg.MaxConsecutiveDays {
		alerts = append(alerts, domain.ValidationAlert{
			Type:           domain.AlertTypeRepetition,
			Severity:       domain.SeverityYellow,
			Message:        fmt.Sprintf("%s is scheduled %d days in a row", in.food.DisplayName, run),
			Recommendation: "Space this food out across the week",
			Icon:           "repeat",
		})
	}

	return alerts
}

// longestConsecutiveRun computes the longest run of adjacent weekday
// indices present in the set
func longestConsecutiveRun(daySeen map[int]bool) int {
	if len(daySeen) == 0 {
		return 0
	}

	days := make([]int, 0, len(daySeen))
	for d := range daySeen {
		days = append(days, d)
	}
	sort.Ints(days)

	longest, run := 1, 1
	for i := 1; i < len(days); i++ {
		if days[i] == days[i-1]+1 {
			run++
		} else {
			run = 1
		}
		if run > longest {
			longest = run
		}
	}
	return longest
}

// macroShare is one dimension of the nutrition-strength check
type macroShare struct {
	label     string
	value     *float64
	target    *float64
	threshold float64
}

// ruleNutritionStrength warns when a single food supplies an outsized share
// of the plan's daily macro targets. Skipped without a plan context or when
// the plan has no targets.
func ruleNutritionStrength(in *ruleInput) []domain.ValidationAlert {
	if in.plan == nil || in.plan.targets == nil {
		return nil
	}
	targets := in.plan.targets

	dimensions := []macroShare{
		{label: "calories", value: in.food.Calories, target: targets.CaloriesTarget, threshold: in.cfg.CalorieShareThreshold},
		{label: "protein", value: in.food.ProteinG, target: targets.ProteinTargetG, threshold: in.cfg.MacroShareThreshold},
		{label: "carbs", value: in.food.CarbsG, target: targets.CarbsTargetG, threshold: in.cfg.MacroShareThreshold},
		{label: "fat", value: in.food.FatsG, target: targets.FatsTargetG, threshold: in.cfg.MacroShareThreshold},
	}

	var alerts []domain.ValidationAlert
	for _, dim := range dimensions {
		if dim.value == nil || dim.target == nil || *dim.target <= 0 {
			continue
		}
		share := *dim.value / *dim.target
		if share <= dim.threshold {
			continue
		}
		percent := int(math.Round(share * 100))
		alerts = append(alerts, domain.ValidationAlert{
			Type:           domain.AlertTypeNutritionStrength,
			Severity:       domain.SeverityYellow,
			Message:        fmt.Sprintf("%s alone provides %d%% of the daily %s target", in.food.DisplayName, percent, dim.label),
			Recommendation: "Balance the rest of the day with lighter items",
			Icon:           "scale",
		})
	}
	return alerts
}
