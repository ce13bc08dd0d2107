package streak

import (
	"time"

	"github.com/google/uuid"
)

// MilestoneInterval is the streak length, in days, between milestone bonuses.
const MilestoneInterval = 7

type Outcome string

const (
	OutcomeStarted     Outcome = "started"
	OutcomeNoOp        Outcome = "no_op"
	OutcomeIncremented Outcome = "incremented"
	OutcomeReset       Outcome = "reset"
)

type HistoryEntry struct {
	Date         time.Time `json:"date"`
	ActivityType string    `json:"activity_type"`
	StreakCount  int       `json:"streak_count"`
}

type Streak struct {
	UserID           uuid.UUID      `json:"user_id" db:"user_id"`
	CurrentStreak    int            `json:"current_streak" db:"current_streak"`
	BestStreak       int            `json:"best_streak" db:"best_streak"`
	LastActivityDate *time.Time     `json:"last_activity_date" db:"last_activity_date"`
	History          []HistoryEntry `json:"streak_history" db:"streak_history"`
	CreatedAt        time.Time      `json:"created_at" db:"created_at"`
	UpdatedAt        time.Time      `json:"updated_at" db:"updated_at"`
}

func NewStreak(userID uuid.UUID, now time.Time) *Streak {
	return &Streak{
		UserID:    userID,
		History:   []HistoryEntry{},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// StartOfDay zeroes the time of day in t's own location.
func StartOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// DaysBetween counts calendar days from a to b as seen in b's location.
// DST shifts do not change the result.
func DaysBetween(a, b time.Time) int {
	a = a.In(b.Location())
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	from := time.Date(ay, am, ad, 0, 0, 0, 0, time.UTC)
	to := time.Date(by, bm, bd, 0, 0, 0, 0, time.UTC)
	return int(to.Sub(from).Hours() / 24)
}

// Transition decides the next streak value from the stored state and today.
// It has no side effects.
func Transition(current int, lastActivityDate *time.Time, today time.Time) (int, Outcome) {
	if lastActivityDate == nil {
		return 1, OutcomeStarted
	}

	switch DaysBetween(*lastActivityDate, today) {
	case 0:
		return current, OutcomeNoOp
	case 1:
		return current + 1, OutcomeIncremented
	default:
		return 1, OutcomeReset
	}
}

// Record applies one qualifying event on now's calendar day. A NoOp outcome
// leaves the streak untouched.
func (s *Streak) Record(activityType string, now time.Time) Outcome {
	next, outcome := Transition(s.CurrentStreak, s.LastActivityDate, now)
	if outcome == OutcomeNoOp {
		return outcome
	}

	today := StartOfDay(now)
	s.CurrentStreak = next
	if s.CurrentStreak > s.BestStreak {
		s.BestStreak = s.CurrentStreak
	}
	s.History = append(s.History, HistoryEntry{
		Date:         today,
		ActivityType: activityType,
		StreakCount:  s.CurrentStreak,
	})
	s.LastActivityDate = &today
	s.UpdatedAt = now

	return outcome
}

// IsMilestone reports whether the current streak earns a milestone bonus.
func (s *Streak) IsMilestone() bool {
	return s.CurrentStreak > 0 && s.CurrentStreak%MilestoneInterval == 0
}

type Summary struct {
	CurrentStreak int `json:"current_streak"`
	BestStreak    int `json:"best_streak"`
}

func (s *Streak) Summary() *Summary {
	return &Summary{CurrentStreak: s.CurrentStreak, BestStreak: s.BestStreak}
}
