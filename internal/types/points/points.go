package points

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

type ActionKind string

const (
	ActionChallengeProgress   ActionKind = "challenge_progress"
	ActionChallengeComplete   ActionKind = "challenge_complete"
	ActionWorkoutComplete     ActionKind = "workout_complete"
	ActionMealLogged          ActionKind = "meal_logged"
	ActionFriendAdded         ActionKind = "friend_added"
	ActionProfileComplete     ActionKind = "profile_complete"
	ActionStreakMilestone     ActionKind = "streak_milestone"
	ActionAchievementUnlocked ActionKind = "achievement_unlocked"
)

// AchievementBonus is passed as extra points when an achievement unlocks.
// achievement_unlocked has no entry in the value table, so the bonus is the
// whole award.
const AchievementBonus = 50

// StreakMilestoneMultiplier scales the milestone bonus with streak length.
const StreakMilestoneMultiplier = 10

var pointValues = map[ActionKind]int{
	ActionChallengeProgress: 5,
	ActionChallengeComplete: 100,
	ActionWorkoutComplete:   50,
	ActionMealLogged:        25,
	ActionFriendAdded:       30,
	ActionProfileComplete:   40,
	ActionStreakMilestone:   75,
}

// levelThresholds[i] is the lower bound of level i+1.
var levelThresholds = [...]int{0, 100, 300, 600, 1000, 1500, 2100, 2800, 3600, 4500}

// MaxLevel is the highest level the threshold table defines.
const MaxLevel = len(levelThresholds)

// BasePoints returns the table value for kind. Unknown kinds are worth 0.
func BasePoints(kind ActionKind) int {
	return pointValues[kind]
}

// IsKnown reports whether kind has an entry in the point value table.
func IsKnown(kind ActionKind) bool {
	_, ok := pointValues[kind]
	return ok
}

// LevelFor returns the largest level whose threshold totalPoints reaches,
// capped at MaxLevel.
func LevelFor(totalPoints int) int {
	level := 1
	for i, threshold := range levelThresholds {
		if totalPoints >= threshold {
			level = i + 1
		}
	}
	return level
}

// Threshold returns the lower bound of level, clamped into the table.
func Threshold(level int) int {
	if level < 1 {
		level = 1
	}
	if level > MaxLevel {
		level = MaxLevel
	}
	return levelThresholds[level-1]
}

// NextLevelThreshold returns the points needed for the level after level.
// At MaxLevel it returns the last threshold.
func NextLevelThreshold(level int) int {
	if level >= MaxLevel {
		return levelThresholds[MaxLevel-1]
	}
	if level < 1 {
		level = 1
	}
	return levelThresholds[level]
}

type HistoryEntry struct {
	Amount    int       `json:"amount"`
	Reason    string    `json:"reason"`
	Timestamp time.Time `json:"timestamp"`
}

type Ledger struct {
	UserID      uuid.UUID      `json:"user_id" db:"user_id"`
	TotalPoints int            `json:"total_points" db:"total_points"`
	Level       int            `json:"level" db:"level"`
	History     []HistoryEntry `json:"history" db:"history"`
	CreatedAt   time.Time      `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at" db:"updated_at"`
}

// NewLedger returns the default ledger a user starts with.
func NewLedger(userID uuid.UUID, now time.Time) *Ledger {
	return &Ledger{
		UserID:      userID,
		TotalPoints: 0,
		Level:       1,
		History:     []HistoryEntry{},
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// Award is the result of applying one point-earning event to a ledger.
type Award struct {
	Kind          ActionKind `json:"kind"`
	Points        int        `json:"points"`
	PreviousLevel int        `json:"previous_level"`
	Level         int        `json:"level"`
	TotalPoints   int        `json:"total_points"`
}

func (a Award) LeveledUp() bool {
	return a.Level > a.PreviousLevel
}

// Apply adds base(kind)+extra to the ledger. When the level rises, a
// zero-amount "Reached Level N" entry is appended ahead of the points entry.
func (l *Ledger) Apply(kind ActionKind, extra int, now time.Time) Award {
	pointsToAward := BasePoints(kind) + extra
	previous := l.Level

	l.TotalPoints += pointsToAward
	newLevel := LevelFor(l.TotalPoints)

	if newLevel > l.Level {
		l.History = append(l.History, HistoryEntry{
			Amount:    0,
			Reason:    LevelReachedReason(newLevel),
			Timestamp: now,
		})
	}
	l.Level = newLevel

	l.History = append(l.History, HistoryEntry{
		Amount:    pointsToAward,
		Reason:    string(kind),
		Timestamp: now,
	})
	l.UpdatedAt = now

	return Award{
		Kind:          kind,
		Points:        pointsToAward,
		PreviousLevel: previous,
		Level:         newLevel,
		TotalPoints:   l.TotalPoints,
	}
}

func LevelReachedReason(level int) string {
	return fmt.Sprintf("Reached Level %d", level)
}

// Summary is the read model returned by "get points".
type Summary struct {
	TotalPoints        int            `json:"total_points"`
	Level              int            `json:"level"`
	NextLevelThreshold int            `json:"next_level_threshold"`
	History            []HistoryEntry `json:"history"`
}

func (l *Ledger) Summary() *Summary {
	history := l.History
	if history == nil {
		history = []HistoryEntry{}
	}
	return &Summary{
		TotalPoints:        l.TotalPoints,
		Level:              l.Level,
		NextLevelThreshold: NextLevelThreshold(l.Level),
		History:            history,
	}
}
