package achievement

import (
	"time"

	"github.com/google/uuid"
)

type CriteriaKind string

const (
	CriteriaWorkoutCount CriteriaKind = "workout_count"
	CriteriaMealCount    CriteriaKind = "meal_count"
	CriteriaStreakDays   CriteriaKind = "streak_days"
)

type BadgeType string

const (
	BadgeWorkout   BadgeType = "workout"
	BadgeNutrition BadgeType = "nutrition"
	BadgeSocial    BadgeType = "social"
	BadgeStreak    BadgeType = "streak"
	BadgeChallenge BadgeType = "challenge"
)

type Criteria struct {
	Kind      CriteriaKind `json:"kind"`
	Threshold int          `json:"threshold"`
}

type Achievement struct {
	Name        string    `json:"name"`
	Type        BadgeType `json:"type"`
	Criteria    Criteria  `json:"criteria"`
	Description string    `json:"description"`
}

// catalog order is evaluation order. Names are the per-user dedup key.
var catalog = []Achievement{
	{
		Name:        "First Step",
		Type:        BadgeWorkout,
		Criteria:    Criteria{Kind: CriteriaWorkoutCount, Threshold: 1},
		Description: "Complete your first workout",
	},
	{
		Name:        "Workout Warrior",
		Type:        BadgeWorkout,
		Criteria:    Criteria{Kind: CriteriaWorkoutCount, Threshold: 10},
		Description: "Complete 10 workouts",
	},
	{
		Name:        "Nutrition Novice",
		Type:        BadgeNutrition,
		Criteria:    Criteria{Kind: CriteriaMealCount, Threshold: 10},
		Description: "Log 10 meals",
	},
	{
		Name:        "Streak Master",
		Type:        BadgeStreak,
		Criteria:    Criteria{Kind: CriteriaStreakDays, Threshold: 7},
		Description: "Maintain a 7-day streak",
	},
}

// Catalog returns a copy of the achievement catalog in evaluation order.
func Catalog() []Achievement {
	out := make([]Achievement, len(catalog))
	copy(out, catalog)
	return out
}

// Progress holds the aggregate counts achievements are evaluated against.
type Progress struct {
	WorkoutCount  int `json:"workout_count"`
	MealCount     int `json:"meal_count"`
	CurrentStreak int `json:"current_streak"`
}

func (p Progress) Value(kind CriteriaKind) int {
	switch kind {
	case CriteriaWorkoutCount:
		return p.WorkoutCount
	case CriteriaMealCount:
		return p.MealCount
	case CriteriaStreakDays:
		return p.CurrentStreak
	default:
		return 0
	}
}

func (a Achievement) IsMet(p Progress) bool {
	return p.Value(a.Criteria.Kind) >= a.Criteria.Threshold
}

type Badge struct {
	ID          uuid.UUID `json:"id" db:"id"`
	UserID      uuid.UUID `json:"user_id" db:"user_id"`
	Name        string    `json:"name" db:"name"`
	Type        BadgeType `json:"type" db:"type"`
	Description string    `json:"description" db:"description"`
	EarnedAt    time.Time `json:"earned_at" db:"earned_at"`
}

func NewBadge(userID uuid.UUID, a Achievement, now time.Time) *Badge {
	return &Badge{
		ID:          uuid.New(),
		UserID:      userID,
		Name:        a.Name,
		Type:        a.Type,
		Description: a.Description,
		EarnedAt:    now,
	}
}

type AchievementWithStatus struct {
	Achievement
	Progress   int        `json:"progress"`
	Unlocked   bool       `json:"unlocked"`
	UnlockedAt *time.Time `json:"unlocked_at,omitempty"`
}
