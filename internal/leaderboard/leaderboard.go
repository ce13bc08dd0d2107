package leaderboard

import (
	"strings"

	"github.com/google/uuid"
)

const (
	DefaultLimit = 10
	MaxLimit     = 100
)

// Row is one ledger joined with its owner's profile, as read from storage.
type Row struct {
	UserID       uuid.UUID
	FirstName    string
	LastName     string
	Email        string
	ImageURL     *string
	TotalPoints  int
	Level        int
	HistoryCount int
}

type LeaderboardEntry struct {
	UserID          uuid.UUID `json:"user_id" db:"user_id"`
	DisplayName     string    `json:"display_name"`
	ImageURL        *string   `json:"image_url" db:"image_url"`
	TotalPoints     int       `json:"total_points" db:"total_points"`
	Level           int       `json:"level" db:"level"`
	TotalActivities int       `json:"total_activities"`
	Rank            int       `json:"rank" db:"rank"`
}

type Leaderboard struct {
	Entries      []*LeaderboardEntry `json:"entries"`
	UserPosition *LeaderboardEntry   `json:"user_position"`
	TotalUsers   int                 `json:"total_users"`
}

// DisplayName falls back from full name to email to "Anonymous".
func DisplayName(firstName, lastName, email string) string {
	full := strings.TrimSpace(strings.TrimSpace(firstName) + " " + strings.TrimSpace(lastName))
	if full != "" {
		return full
	}
	if email = strings.TrimSpace(email); email != "" {
		return email
	}
	return "Anonymous"
}

// ClampLimit keeps a requested leaderboard size within [1, MaxLimit].
func ClampLimit(limit int) int {
	if limit <= 0 {
		return DefaultLimit
	}
	if limit > MaxLimit {
		return MaxLimit
	}
	return limit
}

// Build turns rows already sorted by total points into ranked entries.
// Ranks are 1-based positions.
func Build(rows []Row) []*LeaderboardEntry {
	entries := make([]*LeaderboardEntry, 0, len(rows))
	for i, r := range rows {
		entries = append(entries, &LeaderboardEntry{
			UserID:          r.UserID,
			DisplayName:     DisplayName(r.FirstName, r.LastName, r.Email),
			ImageURL:        r.ImageURL,
			TotalPoints:     r.TotalPoints,
			Level:           r.Level,
			TotalActivities: r.HistoryCount,
			Rank:            i + 1,
		})
	}
	return entries
}

// ForUser wraps entries and marks the caller's own position when present.
func ForUser(entries []*LeaderboardEntry, userID uuid.UUID) *Leaderboard {
	var position *LeaderboardEntry
	for _, e := range entries {
		if e.UserID == userID {
			position = e
			break
		}
	}
	return &Leaderboard{
		Entries:      entries,
		UserPosition: position,
		TotalUsers:   len(entries),
	}
}
