package ports

import (
	"context"

	"github.com/google/uuid"
	"github.com/nutriplan/validation-service/internal/core/domain"
)

// ValidationService is the food validation engine as consumed by the HTTP
// layer and the cache-invalidation consumer
type ValidationService interface {
	// Validate checks a single food against a client at a point in a meal
	// plan. Fails with domain.ErrClientNotFound / domain.ErrFoodNotFound
	// when either id is unknown.
	Validate(ctx context.Context, clientID, foodID uuid.UUID, vctx domain.ValidationContext) (*domain.ValidationResult, error)

	// ValidateBatch runs the full pipeline for each food, loading client
	// tags and plan aggregates once. Verdicts are identical to per-food
	// Validate calls for the same inputs.
	ValidateBatch(ctx context.Context, clientID uuid.UUID, foodIDs []uuid.UUID, vctx domain.ValidationContext) (*domain.BatchValidationResult, error)

	// InvalidateClientCache drops the cached tag set for one client.
	// Must be called by any collaborator that mutates the client's
	// restriction, preference, medical or lab data. Idempotent.
	InvalidateClientCache(clientID uuid.UUID)

	// ClearCache drops every cached tag set
	ClearCache()
}
