package handler

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/nutriplan/validation-service/internal/adapters/middleware"
	"github.com/nutriplan/validation-service/internal/core/domain"
	"github.com/nutriplan/validation-service/internal/core/ports"
)

// ValidationHandler handles HTTP requests for food validation
type ValidationHandler struct {
	engine ports.ValidationService
}

// NewValidationHandler creates a new validation handler
func NewValidationHandler(engine ports.ValidationService) *ValidationHandler {
	return &ValidationHandler{
		engine: engine,
	}
}

// ValidateRequest is the request body for a single validation
type ValidateRequest struct {
	FoodID        uuid.UUID  `json:"food_id"`
	CurrentDay    string     `json:"current_day"`
	MealType      string     `json:"meal_type"`
	PlanID        *uuid.UUID `json:"plan_id,omitempty"`
	ScheduledTime string     `json:"scheduled_time,omitempty"`
}

// ValidateBatchRequest is the request body for a batch validation
type ValidateBatchRequest struct {
	FoodIDs       []uuid.UUID `json:"food_ids"`
	CurrentDay    string      `json:"current_day"`
	MealType      string      `json:"meal_type"`
	PlanID        *uuid.UUID  `json:"plan_id,omitempty"`
	ScheduledTime string      `json:"scheduled_time,omitempty"`
}

// Validate handles POST /clients/{client_id}/validate
func (h *ValidationHandler) Validate(w http.ResponseWriter, r *http.Request) {
	startTime := time.Now()
	requestID := generateRequestID()

	userID, role, ok := requestIdentity(w, r, requestID)
	if !ok {
		return
	}

	clientID, err := uuid.Parse(r.PathValue("client_id"))
	if err != nil {
		log.Printf("[%s] Invalid client ID: %v", requestID, err)
		http.Error(w, "invalid client ID", http.StatusBadRequest)
		return
	}

	var req ValidateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Printf("[%s] Failed to decode request: %v", requestID, err)
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	result, err := h.engine.Validate(r.Context(), clientID, req.FoodID, domain.ValidationContext{
		CurrentDay:    req.CurrentDay,
		MealType:      req.MealType,
		PlanID:        req.PlanID,
		ScheduledTime: req.ScheduledTime,
	})
	if err != nil {
		h.writeEngineError(w, requestID, err)
		return
	}

	logStructured(requestID, userID, role, "POST", "/clients/"+clientID.String()+"/validate", http.StatusOK, time.Since(startTime))

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(result)
}

// ValidateBatch handles POST /clients/{client_id}/validate-batch
func (h *ValidationHandler) ValidateBatch(w http.ResponseWriter, r *http.Request) {
	startTime := time.Now()
	requestID := generateRequestID()

	userID, role, ok := requestIdentity(w, r, requestID)
	if !ok {
		return
	}

	clientID, err := uuid.Parse(r.PathValue("client_id"))
	if err != nil {
		log.Printf("[%s] Invalid client ID: %v", requestID, err)
		http.Error(w, "invalid client ID", http.StatusBadRequest)
		return
	}

	var req ValidateBatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Printf("[%s] Failed to decode request: %v", requestID, err)
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if len(req.FoodIDs) == 0 {
		http.Error(w, "food_ids cannot be empty", http.StatusBadRequest)
		return
	}

	result, err := h.engine.ValidateBatch(r.Context(), clientID, req.FoodIDs, domain.ValidationContext{
		CurrentDay:    req.CurrentDay,
		MealType:      req.MealType,
		PlanID:        req.PlanID,
		ScheduledTime: req.ScheduledTime,
	})
	if err != nil {
		h.writeEngineError(w, requestID, err)
		return
	}

	logStructured(requestID, userID, role, "POST", "/clients/"+clientID.String()+"/validate-batch", http.StatusOK, time.Since(startTime))

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(result)
}

// InvalidateClientCache handles DELETE /cache/clients/{client_id}
func (h *ValidationHandler) InvalidateClientCache(w http.ResponseWriter, r *http.Request) {
	requestID := generateRequestID()

	clientID, err := uuid.Parse(r.PathValue("client_id"))
	if err != nil {
		log.Printf("[%s] Invalid client ID: %v", requestID, err)
		http.Error(w, "invalid client ID", http.StatusBadRequest)
		return
	}

	h.engine.InvalidateClientCache(clientID)
	w.WriteHeader(http.StatusNoContent)
}

// ClearCache handles DELETE /cache
func (h *ValidationHandler) ClearCache(w http.ResponseWriter, r *http.Request) {
	h.engine.ClearCache()
	w.WriteHeader(http.StatusNoContent)
}

// writeEngineError maps engine errors to HTTP statuses. Not-found errors
// are input errors and come back as 404s naming the missing entity.
func (h *ValidationHandler) writeEngineError(w http.ResponseWriter, requestID string, err error) {
	log.Printf("[%s] Validation failed: %v", requestID, err)
	switch {
	case errors.Is(err, domain.ErrClientNotFound):
		http.Error(w, "client not found", http.StatusNotFound)
	case errors.Is(err, domain.ErrFoodNotFound):
		http.Error(w, "food not found", http.StatusNotFound)
	default:
		http.Error(w, "validation failed", http.StatusInternalServerError)
	}
}

// requestIdentity pulls the authenticated user out of the request context
func requestIdentity(w http.ResponseWriter, r *http.Request, requestID string) (userID, role string, ok bool) {
	userID, found := middleware.GetUserID(r.Context())
	if !found {
		log.Printf("[%s] Failed to get user ID from context", requestID)
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return "", "", false
	}
	role, _ = middleware.GetRole(r.Context())
	return userID, role, true
}
