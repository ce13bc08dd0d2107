package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"fitSquadAPI/internal/achievement"
	"fitSquadAPI/internal/leaderboard"
	"fitSquadAPI/internal/logger"
	"fitSquadAPI/internal/metrics"
	"fitSquadAPI/internal/notification"
	"fitSquadAPI/internal/types/points"
	"fitSquadAPI/internal/types/streak"
)

// GamificationService owns the point ledger, the streak tracker and the
// achievement evaluator. Every operation is a synchronous chain against the
// store with no cross-step transaction.
type GamificationService struct {
	store    GamificationStore
	notifier NotificationSink
	cache    LeaderboardCache
	now      func() time.Time
}

// ActivityResult is what a logged workout or meal produced.
type ActivityResult struct {
	Award        *points.Award        `json:"award"`
	Streak       *streak.Summary      `json:"streak"`
	StreakUpdate streak.Outcome       `json:"streak_update"`
	Achievements []*achievement.Badge `json:"achievements"`
}

func NewGamificationService(store GamificationStore, notifier NotificationSink) *GamificationService {
	return &GamificationService{
		store:    store,
		notifier: notifier,
		cache:    NoopLeaderboardCache{},
		now:      time.Now,
	}
}

func (s *GamificationService) SetLeaderboardCache(cache LeaderboardCache) {
	if cache == nil {
		cache = NoopLeaderboardCache{}
	}
	s.cache = cache
}

func (s *GamificationService) SetClock(now func() time.Time) {
	s.now = now
}

// ---------------------------------------------------------
// POINT LEDGER
// ---------------------------------------------------------

// AwardPoints adds base(kind)+extra to the user's ledger, creating it on
// first use. A level change is recorded before the points entry is
// appended, and notified only once the ledger is saved.
func (s *GamificationService) AwardPoints(ctx context.Context, userID uuid.UUID, kind points.ActionKind, extra int) (*points.Award, error) {
	ledger, err := s.store.GetOrCreateLedger(ctx, userID)
	if err != nil {
		return nil, s.stageError("award_points", userID, err)
	}

	if !points.IsKnown(kind) {
		logger.S().Debugf("AwardPoints: no point value for %q, base is 0", kind)
	}

	award := ledger.Apply(kind, extra, s.now())

	if err := s.store.SaveLedger(ctx, ledger); err != nil {
		return nil, s.stageError("award_points", userID, err)
	}
	s.cache.Invalidate(ctx)

	if award.LeveledUp() {
		metrics.LevelUps.Inc()
		s.notify(ctx, &notification.CreateNotificationRequest{
			UserID:   userID,
			Type:     notification.TypeLevelUp,
			Priority: notification.PriorityHigh,
			Title:    "Level up!",
			Message:  fmt.Sprintf("Congratulations! You reached level %d!", award.Level),
			Data: map[string]any{
				"level":        award.Level,
				"total_points": award.TotalPoints,
			},
		})
	}

	metrics.PointsAwarded.WithLabelValues(string(kind)).Add(float64(award.Points))
	logger.S().Debugf("AwardPoints: user %s +%d (%s), total %d, level %d",
		userID, award.Points, kind, award.TotalPoints, award.Level)

	return &award, nil
}

func (s *GamificationService) GetPoints(ctx context.Context, userID uuid.UUID) (*points.Summary, error) {
	ledger, err := s.store.FindLedger(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get points: %w", err)
	}
	if ledger == nil {
		ledger = points.NewLedger(userID, s.now())
	}
	return ledger.Summary(), nil
}

// ---------------------------------------------------------
// STREAK TRACKER
// ---------------------------------------------------------

// UpdateStreak records one qualifying event for today. A same-day repeat
// changes nothing. Each multiple of streak.MilestoneInterval earns a bonus
// of current*StreakMilestoneMultiplier on top of the milestone base value.
func (s *GamificationService) UpdateStreak(ctx context.Context, userID uuid.UUID, activityType string) (*streak.Streak, streak.Outcome, error) {
	st, err := s.store.GetOrCreateStreak(ctx, userID)
	if err != nil {
		return nil, "", s.stageError("update_streak", userID, err)
	}

	outcome := st.Record(activityType, s.now())
	metrics.StreakUpdates.WithLabelValues(string(outcome)).Inc()

	if outcome == streak.OutcomeNoOp {
		return st, outcome, nil
	}

	if err := s.store.SaveStreak(ctx, st); err != nil {
		return nil, "", s.stageError("update_streak", userID, err)
	}

	if st.IsMilestone() {
		metrics.StreakMilestones.Inc()
		bonus := st.CurrentStreak * points.StreakMilestoneMultiplier
		if _, err := s.AwardPoints(ctx, userID, points.ActionStreakMilestone, bonus); err != nil {
			return nil, "", err
		}
		s.notify(ctx, &notification.CreateNotificationRequest{
			UserID:   userID,
			Type:     notification.TypeStreakMilestone,
			Priority: notification.PriorityHigh,
			Title:    "Streak milestone",
			Message:  fmt.Sprintf("Amazing! You've maintained a %d-day streak!", st.CurrentStreak),
			Data: map[string]any{
				"current_streak": st.CurrentStreak,
				"best_streak":    st.BestStreak,
			},
		})
	}

	return st, outcome, nil
}

func (s *GamificationService) GetStreak(ctx context.Context, userID uuid.UUID) (*streak.Summary, error) {
	st, err := s.store.FindStreak(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get streak: %w", err)
	}
	if st == nil {
		return &streak.Summary{}, nil
	}
	return st.Summary(), nil
}

// ---------------------------------------------------------
// ACHIEVEMENTS
// ---------------------------------------------------------

func (s *GamificationService) progress(ctx context.Context, userID uuid.UUID) (achievement.Progress, error) {
	var p achievement.Progress
	var err error

	if p.WorkoutCount, err = s.store.CountWorkouts(ctx, userID); err != nil {
		return p, err
	}
	if p.MealCount, err = s.store.CountMeals(ctx, userID); err != nil {
		return p, err
	}

	st, err := s.store.FindStreak(ctx, userID)
	if err != nil {
		return p, err
	}
	if st != nil {
		p.CurrentStreak = st.CurrentStreak
	}
	return p, nil
}

// CheckAchievements unlocks every catalog entry the user newly qualifies
// for, in catalog order, and returns the badges created by this call.
func (s *GamificationService) CheckAchievements(ctx context.Context, userID uuid.UUID) ([]*achievement.Badge, error) {
	p, err := s.progress(ctx, userID)
	if err != nil {
		return nil, s.stageError("check_achievements", userID, err)
	}

	held, err := s.store.ListBadges(ctx, userID)
	if err != nil {
		return nil, s.stageError("check_achievements", userID, err)
	}
	owned := make(map[string]bool, len(held))
	for _, b := range held {
		owned[b.Name] = true
	}

	unlocked := []*achievement.Badge{}
	for _, a := range achievement.Catalog() {
		if owned[a.Name] || !a.IsMet(p) {
			continue
		}

		badge := achievement.NewBadge(userID, a, s.now())
		created, err := s.store.CreateBadge(ctx, badge)
		if err != nil {
			return nil, s.stageError("check_achievements", userID, err)
		}
		if !created {
			// A concurrent request unlocked it first.
			continue
		}
		metrics.AchievementsUnlocked.WithLabelValues(a.Name).Inc()

		s.notify(ctx, &notification.CreateNotificationRequest{
			UserID:   userID,
			Type:     notification.TypeAchievementUnlocked,
			Priority: notification.PriorityNormal,
			Title:    "Achievement unlocked",
			Message:  fmt.Sprintf("Achievement unlocked: %s - %s", a.Name, a.Description),
			Data: map[string]any{
				"badge_id":   badge.ID.String(),
				"badge_name": a.Name,
				"badge_type": string(a.Type),
			},
		})

		if _, err := s.AwardPoints(ctx, userID, points.ActionAchievementUnlocked, points.AchievementBonus); err != nil {
			return nil, err
		}

		unlocked = append(unlocked, badge)
	}

	return unlocked, nil
}

func (s *GamificationService) GetBadges(ctx context.Context, userID uuid.UUID) ([]*achievement.Badge, error) {
	badges, err := s.store.ListBadges(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get badges: %w", err)
	}
	return badges, nil
}

// GetAchievements lists the whole catalog with the user's progress and
// unlock status for each entry.
func (s *GamificationService) GetAchievements(ctx context.Context, userID uuid.UUID) ([]*achievement.AchievementWithStatus, error) {
	p, err := s.progress(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get achievements: %w", err)
	}

	held, err := s.store.ListBadges(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get achievements: %w", err)
	}
	earned := make(map[string]time.Time, len(held))
	for _, b := range held {
		earned[b.Name] = b.EarnedAt
	}

	catalog := achievement.Catalog()
	out := make([]*achievement.AchievementWithStatus, 0, len(catalog))
	for _, a := range catalog {
		status := &achievement.AchievementWithStatus{
			Achievement: a,
			Progress:    p.Value(a.Criteria.Kind),
		}
		if at, ok := earned[a.Name]; ok {
			status.Unlocked = true
			status.UnlockedAt = &at
		}
		out = append(out, status)
	}
	return out, nil
}

// ---------------------------------------------------------
// ORCHESTRATION
// ---------------------------------------------------------

// HandleActivity awards points for activityType and then updates the
// streak. achievements are the badges from the caller's earlier
// CheckAchievements call and are returned unchanged. Steps that already
// ran are not rolled back when a later one fails.
func (s *GamificationService) HandleActivity(ctx context.Context, userID uuid.UUID, activityType string, achievements []*achievement.Badge) (*ActivityResult, error) {
	award, err := s.AwardPoints(ctx, userID, points.ActionKind(activityType), 0)
	if err != nil {
		return nil, err
	}

	st, outcome, err := s.UpdateStreak(ctx, userID, activityType)
	if err != nil {
		return nil, err
	}

	if achievements == nil {
		achievements = []*achievement.Badge{}
	}

	return &ActivityResult{
		Award:        award,
		Streak:       st.Summary(),
		StreakUpdate: outcome,
		Achievements: achievements,
	}, nil
}

// ProcessActivity runs the full chain for one persisted workout or meal:
// achievements are evaluated first, then points and streak.
func (s *GamificationService) ProcessActivity(ctx context.Context, userID uuid.UUID, kind points.ActionKind) (*ActivityResult, error) {
	achievements, err := s.CheckAchievements(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.HandleActivity(ctx, userID, string(kind), achievements)
}

// ---------------------------------------------------------
// LEADERBOARD
// ---------------------------------------------------------

func (s *GamificationService) GetLeaderboard(ctx context.Context, userID uuid.UUID, limit int) (*leaderboard.Leaderboard, error) {
	limit = leaderboard.ClampLimit(limit)

	if entries, ok := s.cache.Get(ctx, limit); ok {
		return leaderboard.ForUser(entries, userID), nil
	}

	rows, err := s.store.TopLedgers(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get leaderboard: %w", err)
	}

	entries := leaderboard.Build(rows)
	s.cache.Set(ctx, limit, entries)

	return leaderboard.ForUser(entries, userID), nil
}

// ---------------------------------------------------------
// HELPERS
// ---------------------------------------------------------

func (s *GamificationService) stageError(stage string, userID uuid.UUID, err error) error {
	metrics.StageErrors.WithLabelValues(stage).Inc()
	logger.S().Errorf("%s: user %s: %v", stage, userID, err)
	return fmt.Errorf("%s: %w", stage, err)
}

// notify hands req to the sink. Sink errors and panics are logged and
// dropped so they never reach the scoring path.
func (s *GamificationService) notify(ctx context.Context, req *notification.CreateNotificationRequest) {
	if s.notifier == nil {
		return
	}

	defer func() {
		if r := recover(); r != nil {
			metrics.NotificationFailures.WithLabelValues(string(req.Type)).Inc()
			logger.S().Errorf("notify: %s notification for user %s panicked: %v", req.Type, req.UserID, r)
		}
	}()

	if _, err := s.notifier.CreateNotification(ctx, req); err != nil {
		metrics.NotificationFailures.WithLabelValues(string(req.Type)).Inc()
		logger.S().Warnf("notify: failed to create %s notification for user %s: %v", req.Type, req.UserID, err)
	}
}
