package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"path", "method", "status"},
	)
	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"path", "method"},
	)
	AuthRejections = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "auth_rejections_total",
			Help: "Total number of unauthorized requests",
		},
		[]string{"reason"},
	)

	PointsAwarded = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gamification_points_awarded_total",
			Help: "Points added to ledgers, by reason",
		},
		[]string{"reason"},
	)
	LevelUps = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "gamification_level_ups_total",
			Help: "Number of level-up events",
		},
	)
	StreakUpdates = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gamification_streak_updates_total",
			Help: "Streak transitions, by outcome",
		},
		[]string{"outcome"},
	)
	StreakMilestones = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "gamification_streak_milestones_total",
			Help: "Number of streak milestone bonuses awarded",
		},
	)
	AchievementsUnlocked = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gamification_achievements_unlocked_total",
			Help: "Badges created, by achievement name",
		},
		[]string{"name"},
	)
	StageErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gamification_stage_errors_total",
			Help: "Failures in the gamification chain, by stage",
		},
		[]string{"stage"},
	)
	NotificationFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notification_failures_total",
			Help: "Notification sink failures swallowed by callers",
		},
		[]string{"type"},
	)
)

var registerOnce sync.Once

// Init registers every collector with the default registry. Call it from main.
func Init() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			HTTPRequestsTotal,
			HTTPRequestDuration,
			AuthRejections,
			PointsAwarded,
			LevelUps,
			StreakUpdates,
			StreakMilestones,
			AchievementsUnlocked,
			StageErrors,
			NotificationFailures,
		)
	})
}
