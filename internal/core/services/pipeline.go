package services

import (
	"github.com/nutriplan/validation-service/internal/core/domain"
)

// planContext carries the plan-scoped aggregates; nil when the validation
// context has no plan id
type planContext struct {
	targets *domain.PlanTargets
	usage   []domain.FoodUsage
}

// ruleInput is everything a rule stage may consult. All fields are loaded
// before evaluation starts; no stage performs I/O.
type ruleInput struct {
	client *domain.ClientTagSet
	food   *domain.FoodTagSet
	vctx   domain.ValidationContext
	plan   *planContext
	cfg    Config
}

// ruleFunc evaluates one check and returns zero or more alerts
type ruleFunc func(in *ruleInput) []domain.ValidationAlert

// pipelineStage is one entry in the fixed rule order. Blocking stages stop
// the pipeline as soon as they produce a red alert; non-blocking stages are
// always evaluated exhaustively so the caller sees every warning.
type pipelineStage struct {
	name     string
	blocking bool
	run      ruleFunc
}

// pipelineStages is the fixed evaluation order. Safety checks come first
// and short-circuit; advisory and positive checks accumulate.
var pipelineStages = []pipelineStage{
	{name: "allergy", blocking: true, run: ruleAllergy},
	{name: "intolerance", blocking: true, run: ruleIntolerance},
	{name: "diet_pattern", blocking: true, run: ruleDietPattern},
	{name: "egg_avoid_day", blocking: true, run: ruleEggAvoidDay},
	{name: "food_restrictions", blocking: true, run: ruleFoodRestrictions},
	{name: "medical_conditions", run: ruleMedicalConditions},
	{name: "lab_derived", run: ruleLabDerived},
	{name: "dislikes", run: ruleDislikes},
	{name: "avoid_categories", run: ruleAvoidCategories},
	{name: "meal_suitability", run: ruleMealSuitability},
	{name: "repetition", run: ruleRepetition},
	{name: "nutrition_strength", run: ruleNutritionStrength},
	{name: "positive_preferences", run: rulePositivePreferences},
}

// evaluatePipeline folds the input through the ordered stages
func evaluatePipeline(in *ruleInput) []domain.ValidationAlert {
	var alerts []domain.ValidationAlert
	for _, stage := range pipelineStages {
		out := stage.run(in)
		alerts = append(alerts, out...)
		if !stage.blocking {
			continue
		}
		for _, a := range out {
			if a.Severity == domain.SeverityRed {
				return alerts
			}
		}
	}
	return alerts
}

// buildResult assembles the per-food verdict from accumulated alerts.
// Aggregate severity is the most severe alert present, green by default.
func buildResult(food *domain.FoodTagSet, alerts []domain.ValidationAlert) *domain.ValidationResult {
	severity := domain.SeverityGreen
	yellowCount := 0
	for _, a := range alerts {
		severity = domain.MaxSeverity(severity, a.Severity)
		if a.Severity == domain.SeverityYellow {
			yellowCount++
		}
		validationAlertsTotal.WithLabelValues(string(a.Type)).Inc()
	}

	confidence := 1.0
	if severity == domain.SeverityRed {
		// Block verdicts come from hard safety rules; near-certain.
		confidence = 0.95
	} else {
		confidence -= 0.1 * float64(yellowCount)
		if confidence < 0.5 {
			confidence = 0.5
		}
	}

	if alerts == nil {
		alerts = []domain.ValidationAlert{}
	}

	validationsTotal.WithLabelValues(string(severity)).Inc()

	return &domain.ValidationResult{
		FoodID:          food.ID,
		FoodName:        food.DisplayName,
		Severity:        severity,
		CanAdd:          severity != domain.SeverityRed,
		Alerts:          alerts,
		ConfidenceScore: confidence,
	}
}
