package activity

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

type MealType string

const (
	MealBreakfast MealType = "breakfast"
	MealLunch     MealType = "lunch"
	MealDinner    MealType = "dinner"
	MealSnack     MealType = "snack"
)

var ErrInvalidRequest = errors.New("invalid request")

type Workout struct {
	ID              uuid.UUID `json:"id" db:"id"`
	UserID          uuid.UUID `json:"user_id" db:"user_id"`
	Type            string    `json:"type" db:"type"`
	DurationMinutes int       `json:"duration_minutes" db:"duration_minutes"`
	CaloriesBurned  int       `json:"calories_burned" db:"calories_burned"`
	Notes           *string   `json:"notes,omitempty" db:"notes"`
	PerformedAt     time.Time `json:"performed_at" db:"performed_at"`
	CreatedAt       time.Time `json:"created_at" db:"created_at"`
}

type Meal struct {
	ID        uuid.UUID `json:"id" db:"id"`
	UserID    uuid.UUID `json:"user_id" db:"user_id"`
	Name      string    `json:"name" db:"name"`
	MealType  MealType  `json:"meal_type" db:"meal_type"`
	Calories  int       `json:"calories" db:"calories"`
	ProteinG  float64   `json:"protein_g" db:"protein_g"`
	CarbsG    float64   `json:"carbs_g" db:"carbs_g"`
	FatG      float64   `json:"fat_g" db:"fat_g"`
	EatenAt   time.Time `json:"eaten_at" db:"eaten_at"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

type LogWorkoutRequest struct {
	Type            string     `json:"type"`
	DurationMinutes int        `json:"duration_minutes"`
	CaloriesBurned  int        `json:"calories_burned"`
	Notes           *string    `json:"notes,omitempty"`
	PerformedAt     *time.Time `json:"performed_at,omitempty"`
}

func (r *LogWorkoutRequest) Validate() error {
	r.Type = strings.TrimSpace(r.Type)
	if r.Type == "" {
		return fmt.Errorf("%w: workout type is required", ErrInvalidRequest)
	}
	if r.DurationMinutes < 0 || r.CaloriesBurned < 0 {
		return fmt.Errorf("%w: duration and calories must not be negative", ErrInvalidRequest)
	}
	return nil
}

type LogMealRequest struct {
	Name     string     `json:"name"`
	MealType MealType   `json:"meal_type"`
	Calories int        `json:"calories"`
	ProteinG float64    `json:"protein_g"`
	CarbsG   float64    `json:"carbs_g"`
	FatG     float64    `json:"fat_g"`
	EatenAt  *time.Time `json:"eaten_at,omitempty"`
}

func (r *LogMealRequest) Validate() error {
	r.Name = strings.TrimSpace(r.Name)
	if r.Name == "" {
		return fmt.Errorf("%w: meal name is required", ErrInvalidRequest)
	}
	switch r.MealType {
	case "":
		r.MealType = MealSnack
	case MealBreakfast, MealLunch, MealDinner, MealSnack:
	default:
		return fmt.Errorf("%w: unknown meal type %q", ErrInvalidRequest, r.MealType)
	}
	if r.Calories < 0 || r.ProteinG < 0 || r.CarbsG < 0 || r.FatG < 0 {
		return fmt.Errorf("%w: nutrition values must not be negative", ErrInvalidRequest)
	}
	return nil
}

type NutritionSummary struct {
	Date      string  `json:"date"`
	MealCount int     `json:"meal_count"`
	Calories  int     `json:"calories"`
	ProteinG  float64 `json:"protein_g"`
	CarbsG    float64 `json:"carbs_g"`
	FatG      float64 `json:"fat_g"`
}
