package notification

import (
	"time"

	"github.com/google/uuid"
)

type NotificationType string

const (
	TypeLevelUp             NotificationType = "level_up"
	TypeStreakMilestone     NotificationType = "streak_milestone"
	TypeAchievementUnlocked NotificationType = "achievement_unlocked"
	TypeFriendAdded         NotificationType = "friend_added"
	TypeTest                NotificationType = "test"
)

type NotificationPriority string

const (
	PriorityLow    NotificationPriority = "low"
	PriorityNormal NotificationPriority = "normal"
	PriorityHigh   NotificationPriority = "high"
	PriorityUrgent NotificationPriority = "urgent"
)

type NotificationStatus string

const (
	StatusPending NotificationStatus = "pending"
	StatusSent    NotificationStatus = "sent"
	StatusFailed  NotificationStatus = "failed"
	StatusRead    NotificationStatus = "read"
)

type Notification struct {
	ID            uuid.UUID            `json:"id" db:"id"`
	UserID        uuid.UUID            `json:"user_id" db:"user_id"`
	Type          NotificationType     `json:"type" db:"type"`
	Priority      NotificationPriority `json:"priority" db:"priority"`
	Status        NotificationStatus   `json:"status" db:"status"`
	Title         string               `json:"title" db:"title"`
	Body          string               `json:"body" db:"body"`
	Data          map[string]any       `json:"data" db:"data"`
	ActorID       *uuid.UUID           `json:"actor_id,omitempty" db:"actor_id"`
	SentAt        *time.Time           `json:"sent_at,omitempty" db:"sent_at"`
	ReadAt        *time.Time           `json:"read_at,omitempty" db:"read_at"`
	FailedAt      *time.Time           `json:"failed_at,omitempty" db:"failed_at"`
	FailureReason *string              `json:"failure_reason,omitempty" db:"failure_reason"`
	CreatedAt     time.Time            `json:"created_at" db:"created_at"`
}

type DeviceToken struct {
	Token    string    `json:"token"`
	Platform string    `json:"platform"`
	AddedAt  time.Time `json:"added_at"`
	LastUsed time.Time `json:"last_used"`
}

type NotificationPreferences struct {
	UserID       uuid.UUID       `json:"user_id" db:"user_id"`
	PushEnabled  bool            `json:"push_enabled" db:"push_enabled"`
	InAppEnabled bool            `json:"in_app_enabled" db:"in_app_enabled"`
	EnabledTypes map[string]bool `json:"enabled_types" db:"enabled_types"`
	DeviceTokens []DeviceToken   `json:"device_tokens" db:"device_tokens"`
	UpdatedAt    time.Time       `json:"updated_at" db:"updated_at"`
}

// DefaultPreferences is what a user without a stored row gets.
func DefaultPreferences(userID uuid.UUID) *NotificationPreferences {
	return &NotificationPreferences{
		UserID:       userID,
		PushEnabled:  true,
		InAppEnabled: true,
		EnabledTypes: map[string]bool{},
		DeviceTokens: []DeviceToken{},
	}
}

// Allows reports whether the user has not opted out of t.
func (p *NotificationPreferences) Allows(t NotificationType) bool {
	if p == nil {
		return true
	}
	enabled, ok := p.EnabledTypes[string(t)]
	return !ok || enabled
}
