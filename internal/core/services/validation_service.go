package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/nutriplan/validation-service/internal/core/domain"
	"github.com/nutriplan/validation-service/internal/core/ports"
	"golang.org/x/sync/errgroup"
)

// Config holds the engine thresholds. Zero values fall back to defaults so
// callers can override only what they need.
type Config struct {
	RepetitionThreshold   int
	MaxConsecutiveDays    int
	CalorieShareThreshold float64
	MacroShareThreshold   float64
	CacheTTL              time.Duration
	CacheCapacity         int
}

// DefaultConfig returns the engine defaults
func DefaultConfig() Config {
	return Config{
		RepetitionThreshold:   3,
		MaxConsecutiveDays:    2,
		CalorieShareThreshold: 0.50,
		MacroShareThreshold:   0.60,
		CacheTTL:              DefaultCacheTTL,
		CacheCapacity:         DefaultCacheCapacity,
	}
}

// withDefaults fills zero-valued fields
func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.RepetitionThreshold <= 0 {
		c.RepetitionThreshold = d.RepetitionThreshold
	}
	if c.MaxConsecutiveDays <= 0 {
		c.MaxConsecutiveDays = d.MaxConsecutiveDays
	}
	if c.CalorieShareThreshold <= 0 {
		c.CalorieShareThreshold = d.CalorieShareThreshold
	}
	if c.MacroShareThreshold <= 0 {
		c.MacroShareThreshold = d.MacroShareThreshold
	}
	if c.CacheTTL <= 0 {
		c.CacheTTL = d.CacheTTL
	}
	if c.CacheCapacity <= 0 {
		c.CacheCapacity = d.CacheCapacity
	}
	return c
}

// ValidationService implements the food validation engine: tag extraction,
// the cached client tag set, the rule pipeline and the plan-context checks.
// Each instance owns its cache; independent instances never share state.
type ValidationService struct {
	clients ports.ClientStore
	foods   ports.FoodStore
	plans   ports.PlanStore
	cache   *ClientTagCache
	cfg     Config
}

// NewValidationService creates a validation engine backed by the given
// stores
func NewValidationService(clients ports.ClientStore, foods ports.FoodStore, plans ports.PlanStore, cfg Config) *ValidationService {
	cfg = cfg.withDefaults()
	return &ValidationService{
		clients: clients,
		foods:   foods,
		plans:   plans,
		cache:   NewClientTagCache(cfg.CacheCapacity, cfg.CacheTTL),
		cfg:     cfg,
	}
}

// Validate checks one food against one client at a point in a meal plan
func (s *ValidationService) Validate(ctx context.Context, clientID, foodID uuid.UUID, vctx domain.ValidationContext) (*domain.ValidationResult, error) {
	vctx = vctx.Normalized()

	// Client and food lookups have no ordering dependency; issue them
	// concurrently and await both.
	var clientTags *domain.ClientTagSet
	var foodTags *domain.FoodTagSet

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		tags, err := s.getClientTags(gctx, clientID)
		if err != nil {
			return err
		}
		clientTags = tags
		return nil
	})
	g.Go(func() error {
		tags, err := s.getFoodTags(gctx, foodID)
		if err != nil {
			return err
		}
		foodTags = tags
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if clientTags == nil {
		return nil, domain.ErrClientNotFound
	}
	if foodTags == nil {
		return nil, domain.ErrFoodNotFound
	}

	plan, err := s.loadPlanContext(ctx, vctx.PlanID)
	if err != nil {
		return nil, err
	}

	alerts := evaluatePipeline(&ruleInput{
		client: clientTags,
		food:   foodTags,
		vctx:   vctx,
		plan:   plan,
		cfg:    s.cfg,
	})

	return buildResult(foodTags, alerts), nil
}

// ValidateBatch runs the pipeline for each food with client tags, food
// records and plan aggregates loaded once. Verdicts match per-food Validate
// calls for the same inputs.
func (s *ValidationService) ValidateBatch(ctx context.Context, clientID uuid.UUID, foodIDs []uuid.UUID, vctx domain.ValidationContext) (*domain.BatchValidationResult, error) {
	start := time.Now()
	vctx = vctx.Normalized()

	clientTags, err := s.getClientTags(ctx, clientID)
	if err != nil {
		return nil, err
	}
	if clientTags == nil {
		return nil, domain.ErrClientNotFound
	}

	var foods map[uuid.UUID]*domain.FoodItem
	var plan *planContext

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		loaded, err := s.foods.GetFoods(gctx, foodIDs)
		if err != nil {
			return fmt.Errorf("failed to load foods: %w", err)
		}
		foods = loaded
		return nil
	})
	g.Go(func() error {
		loaded, err := s.loadPlanContext(gctx, vctx.PlanID)
		if err != nil {
			return err
		}
		plan = loaded
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	results := make([]*domain.ValidationResult, 0, len(foodIDs))
	for _, foodID := range foodIDs {
		item, ok := foods[foodID]
		if !ok || item == nil {
			return nil, fmt.Errorf("%w: %s", domain.ErrFoodNotFound, foodID)
		}
		foodTags := buildFoodTagSet(item)
		alerts := evaluatePipeline(&ruleInput{
			client: clientTags,
			food:   foodTags,
			vctx:   vctx,
			plan:   plan,
			cfg:    s.cfg,
		})
		results = append(results, buildResult(foodTags, alerts))
	}

	return &domain.BatchValidationResult{
		ClientID:         clientID,
		Results:          results,
		ProcessingTimeMs: time.Since(start).Milliseconds(),
	}, nil
}

// InvalidateClientCache drops the cached tag set for one client. Idempotent.
func (s *ValidationService) InvalidateClientCache(clientID uuid.UUID) {
	s.cache.Invalidate(clientID)
}

// ClearCache drops every cached tag set
func (s *ValidationService) ClearCache() {
	s.cache.Clear()
}

// getClientTags returns the client's tag set, extracting and caching on a
// miss. Returns (nil, nil) for unknown clients.
func (s *ValidationService) getClientTags(ctx context.Context, clientID uuid.UUID) (*domain.ClientTagSet, error) {
	if tags, ok := s.cache.Get(clientID); ok {
		return tags, nil
	}

	profile, err := s.clients.GetClientProfile(ctx, clientID)
	if err != nil {
		return nil, fmt.Errorf("failed to load client profile: %w", err)
	}
	if profile == nil {
		return nil, nil
	}

	tags, err := buildClientTagSet(profile)
	if err != nil {
		return nil, fmt.Errorf("failed to extract client tags: %w", err)
	}

	s.cache.Put(clientID, tags)
	return tags, nil
}

// getFoodTags returns the food's tag set. Returns (nil, nil) for unknown
// foods; food tags are cheap to build and are not cached.
func (s *ValidationService) getFoodTags(ctx context.Context, foodID uuid.UUID) (*domain.FoodTagSet, error) {
	item, err := s.foods.GetFood(ctx, foodID)
	if err != nil {
		return nil, fmt.Errorf("failed to load food: %w", err)
	}
	if item == nil {
		return nil, nil
	}
	return buildFoodTagSet(item), nil
}

// loadPlanContext loads plan aggregates when a plan id is present. An
// unknown plan degrades to no plan context rather than failing the call.
func (s *ValidationService) loadPlanContext(ctx context.Context, planID *uuid.UUID) (*planContext, error) {
	if planID == nil {
		return nil, nil
	}

	targets, err := s.plans.GetPlanTargets(ctx, *planID)
	if err != nil {
		return nil, fmt.Errorf("failed to load plan targets: %w", err)
	}
	usage, err := s.plans.GetPlanFoodUsage(ctx, *planID)
	if err != nil {
		return nil, fmt.Errorf("failed to load plan food usage: %w", err)
	}

	return &planContext{targets: targets, usage: usage}, nil
}
