package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"fitSquadAPI/internal/activity"
	"fitSquadAPI/internal/logger"
	"fitSquadAPI/services"
)

type ActivityLogger interface {
	LogWorkout(ctx context.Context, userID uuid.UUID, req *activity.LogWorkoutRequest) (*services.WorkoutLogResult, error)
	LogMeal(ctx context.Context, userID uuid.UUID, req *activity.LogMealRequest) (*services.MealLogResult, error)
	GetWorkouts(ctx context.Context, userID uuid.UUID, limit int) ([]*activity.Workout, error)
	GetMeals(ctx context.Context, userID uuid.UUID, day time.Time) ([]*activity.Meal, error)
	GetNutritionSummary(ctx context.Context, userID uuid.UUID, day time.Time) (*activity.NutritionSummary, error)
}

type ActivityHandler struct {
	activities ActivityLogger
	users      UserResolver
}

func NewActivityHandler(activities ActivityLogger, users UserResolver) *ActivityHandler {
	return &ActivityHandler{
		activities: activities,
		users:      users,
	}
}

// POST /api/v1/workouts
func (h *ActivityHandler) LogWorkout(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	userID, ok := currentUserID(ctx, w, h.users)
	if !ok {
		return
	}

	var req activity.LogWorkoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	result, err := h.activities.LogWorkout(ctx, userID, &req)
	if err != nil {
		logger.S().Errorf("LogWorkout handler: %v", err)
		respondWithError(w, statusFor(err), err.Error())
		return
	}

	respondWithJSON(w, http.StatusCreated, result)
}

// POST /api/v1/meals
func (h *ActivityHandler) LogMeal(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	userID, ok := currentUserID(ctx, w, h.users)
	if !ok {
		return
	}

	var req activity.LogMealRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	result, err := h.activities.LogMeal(ctx, userID, &req)
	if err != nil {
		logger.S().Errorf("LogMeal handler: %v", err)
		respondWithError(w, statusFor(err), err.Error())
		return
	}

	respondWithJSON(w, http.StatusCreated, result)
}

// GET /api/v1/workouts?limit=N
func (h *ActivityHandler) GetWorkouts(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	userID, ok := currentUserID(ctx, w, h.users)
	if !ok {
		return
	}

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	workouts, err := h.activities.GetWorkouts(ctx, userID, limit)
	if err != nil {
		logger.S().Errorf("GetWorkouts: %v", err)
		respondWithError(w, http.StatusInternalServerError, "Failed to get workouts")
		return
	}

	respondWithJSON(w, http.StatusOK, workouts)
}

// GET /api/v1/meals?date=YYYY-MM-DD
func (h *ActivityHandler) GetMeals(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	userID, ok := currentUserID(ctx, w, h.users)
	if !ok {
		return
	}

	day, ok := parseDay(w, r)
	if !ok {
		return
	}

	meals, err := h.activities.GetMeals(ctx, userID, day)
	if err != nil {
		logger.S().Errorf("GetMeals: %v", err)
		respondWithError(w, http.StatusInternalServerError, "Failed to get meals")
		return
	}

	respondWithJSON(w, http.StatusOK, meals)
}

// GET /api/v1/nutrition/summary?date=YYYY-MM-DD
func (h *ActivityHandler) GetNutritionSummary(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	userID, ok := currentUserID(ctx, w, h.users)
	if !ok {
		return
	}

	day, ok := parseDay(w, r)
	if !ok {
		return
	}

	summary, err := h.activities.GetNutritionSummary(ctx, userID, day)
	if err != nil {
		logger.S().Errorf("GetNutritionSummary: %v", err)
		respondWithError(w, http.StatusInternalServerError, "Failed to get nutrition summary")
		return
	}

	respondWithJSON(w, http.StatusOK, summary)
}

// parseDay reads ?date= in server-local time, defaulting to today.
func parseDay(w http.ResponseWriter, r *http.Request) (time.Time, bool) {
	raw := r.URL.Query().Get("date")
	if raw == "" {
		return time.Now(), true
	}
	day, err := time.ParseInLocation("2006-01-02", raw, time.Local)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid date format. Use YYYY-MM-DD")
		return time.Time{}, false
	}
	return day, true
}
