package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"fitSquadAPI/internal/activity"
	"fitSquadAPI/internal/logger"
	"fitSquadAPI/internal/types/points"
)

type ActivityRepository interface {
	InsertWorkout(ctx context.Context, w *activity.Workout) error
	InsertMeal(ctx context.Context, m *activity.Meal) error
	ListWorkouts(ctx context.Context, userID uuid.UUID, limit int) ([]*activity.Workout, error)
	// ListMeals returns meals eaten in [from, to), most recent first.
	ListMeals(ctx context.Context, userID uuid.UUID, from, to time.Time) ([]*activity.Meal, error)
}

// ActivityProcessor runs the gamification chain for one persisted event.
type ActivityProcessor interface {
	ProcessActivity(ctx context.Context, userID uuid.UUID, kind points.ActionKind) (*ActivityResult, error)
}

// ActivityService persists workouts and meals and then feeds them to the
// gamification chain. Once the row is stored the request succeeds; a
// gamification failure is reported alongside the result.
type ActivityService struct {
	repo         ActivityRepository
	gamification ActivityProcessor
	now          func() time.Time
}

type WorkoutLogResult struct {
	Workout           *activity.Workout `json:"workout"`
	Gamification      *ActivityResult   `json:"gamification,omitempty"`
	GamificationError string            `json:"gamification_error,omitempty"`
}

type MealLogResult struct {
	Meal              *activity.Meal  `json:"meal"`
	Gamification      *ActivityResult `json:"gamification,omitempty"`
	GamificationError string          `json:"gamification_error,omitempty"`
}

const defaultWorkoutListLimit = 50

func NewActivityService(repo ActivityRepository, gamification ActivityProcessor) *ActivityService {
	return &ActivityService{
		repo:         repo,
		gamification: gamification,
		now:          time.Now,
	}
}

func (s *ActivityService) LogWorkout(ctx context.Context, userID uuid.UUID, req *activity.LogWorkoutRequest) (*WorkoutLogResult, error) {
	if err := req.Validate(); err != nil {
		return nil, errors.Join(ErrInvalidActivity, err)
	}

	performedAt := s.now()
	if req.PerformedAt != nil {
		performedAt = *req.PerformedAt
	}

	w := &activity.Workout{
		ID:              uuid.New(),
		UserID:          userID,
		Type:            req.Type,
		DurationMinutes: req.DurationMinutes,
		CaloriesBurned:  req.CaloriesBurned,
		Notes:           req.Notes,
		PerformedAt:     performedAt,
	}

	if err := s.repo.InsertWorkout(ctx, w); err != nil {
		logger.S().Errorf("LogWorkout: user %s: %v", userID, err)
		return nil, fmt.Errorf("failed to log workout: %w", err)
	}

	result := &WorkoutLogResult{Workout: w}
	result.Gamification, result.GamificationError = s.process(ctx, userID, points.ActionWorkoutComplete)
	return result, nil
}

func (s *ActivityService) LogMeal(ctx context.Context, userID uuid.UUID, req *activity.LogMealRequest) (*MealLogResult, error) {
	if err := req.Validate(); err != nil {
		return nil, errors.Join(ErrInvalidActivity, err)
	}

	eatenAt := s.now()
	if req.EatenAt != nil {
		eatenAt = *req.EatenAt
	}

	m := &activity.Meal{
		ID:       uuid.New(),
		UserID:   userID,
		Name:     req.Name,
		MealType: req.MealType,
		Calories: req.Calories,
		ProteinG: req.ProteinG,
		CarbsG:   req.CarbsG,
		FatG:     req.FatG,
		EatenAt:  eatenAt,
	}

	if err := s.repo.InsertMeal(ctx, m); err != nil {
		logger.S().Errorf("LogMeal: user %s: %v", userID, err)
		return nil, fmt.Errorf("failed to log meal: %w", err)
	}

	result := &MealLogResult{Meal: m}
	result.Gamification, result.GamificationError = s.process(ctx, userID, points.ActionMealLogged)
	return result, nil
}

func (s *ActivityService) process(ctx context.Context, userID uuid.UUID, kind points.ActionKind) (*ActivityResult, string) {
	res, err := s.gamification.ProcessActivity(ctx, userID, kind)
	if err != nil {
		logger.S().Errorf("ProcessActivity: user %s, %s: %v", userID, kind, err)
		return nil, err.Error()
	}
	return res, ""
}

func (s *ActivityService) GetWorkouts(ctx context.Context, userID uuid.UUID, limit int) ([]*activity.Workout, error) {
	if limit <= 0 || limit > 200 {
		limit = defaultWorkoutListLimit
	}
	return s.repo.ListWorkouts(ctx, userID, limit)
}

// GetMeals lists the meals eaten on day's calendar date.
func (s *ActivityService) GetMeals(ctx context.Context, userID uuid.UUID, day time.Time) ([]*activity.Meal, error) {
	from, to := dayBounds(day)
	return s.repo.ListMeals(ctx, userID, from, to)
}

func (s *ActivityService) GetNutritionSummary(ctx context.Context, userID uuid.UUID, day time.Time) (*activity.NutritionSummary, error) {
	from, to := dayBounds(day)

	meals, err := s.repo.ListMeals(ctx, userID, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to get nutrition summary: %w", err)
	}

	summary := &activity.NutritionSummary{Date: from.Format("2006-01-02")}
	for _, m := range meals {
		summary.MealCount++
		summary.Calories += m.Calories
		summary.ProteinG += m.ProteinG
		summary.CarbsG += m.CarbsG
		summary.FatG += m.FatG
	}
	return summary, nil
}

func dayBounds(day time.Time) (time.Time, time.Time) {
	y, m, d := day.Date()
	from := time.Date(y, m, d, 0, 0, 0, 0, day.Location())
	return from, from.AddDate(0, 0, 1)
}
