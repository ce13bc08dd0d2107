package services

import (
	"context"

	"github.com/google/uuid"

	"fitSquadAPI/internal/achievement"
	"fitSquadAPI/internal/leaderboard"
	"fitSquadAPI/internal/notification"
	"fitSquadAPI/internal/types/points"
	"fitSquadAPI/internal/types/streak"
)

// LedgerRepository persists point ledgers. Save writes the whole document
// back, so concurrent writers to one ledger are last-write-wins.
type LedgerRepository interface {
	// FindLedger returns nil, nil when the user has no ledger yet.
	FindLedger(ctx context.Context, userID uuid.UUID) (*points.Ledger, error)
	GetOrCreateLedger(ctx context.Context, userID uuid.UUID) (*points.Ledger, error)
	SaveLedger(ctx context.Context, ledger *points.Ledger) error
	// TopLedgers returns rows sorted by total points, highest first.
	TopLedgers(ctx context.Context, limit int) ([]leaderboard.Row, error)
}

type StreakRepository interface {
	// FindStreak returns nil, nil when the user has no streak record yet.
	FindStreak(ctx context.Context, userID uuid.UUID) (*streak.Streak, error)
	GetOrCreateStreak(ctx context.Context, userID uuid.UUID) (*streak.Streak, error)
	SaveStreak(ctx context.Context, s *streak.Streak) error
}

type BadgeRepository interface {
	// ListBadges returns the user's badges, most recently earned first.
	ListBadges(ctx context.Context, userID uuid.UUID) ([]*achievement.Badge, error)
	// CreateBadge reports false when the user already holds a badge with
	// the same name.
	CreateBadge(ctx context.Context, badge *achievement.Badge) (bool, error)
}

type ActivityCounter interface {
	CountWorkouts(ctx context.Context, userID uuid.UUID) (int, error)
	CountMeals(ctx context.Context, userID uuid.UUID) (int, error)
}

// NotificationSink accepts notifications produced by the scoring path.
// Callers treat every error as non-fatal.
type NotificationSink interface {
	CreateNotification(ctx context.Context, req *notification.CreateNotificationRequest) (*notification.Notification, error)
}

type LeaderboardCache interface {
	Get(ctx context.Context, limit int) ([]*leaderboard.LeaderboardEntry, bool)
	Set(ctx context.Context, limit int, entries []*leaderboard.LeaderboardEntry)
	Invalidate(ctx context.Context)
}

// GamificationStore bundles everything the gamification service reads and
// writes. PostgresStore implements it.
type GamificationStore interface {
	LedgerRepository
	StreakRepository
	BadgeRepository
	ActivityCounter
}
