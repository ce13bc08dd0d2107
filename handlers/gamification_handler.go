package handlers

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"fitSquadAPI/internal/achievement"
	"fitSquadAPI/internal/leaderboard"
	"fitSquadAPI/internal/logger"
	"fitSquadAPI/internal/types/points"
	"fitSquadAPI/internal/types/streak"
)

type GamificationReader interface {
	GetPoints(ctx context.Context, userID uuid.UUID) (*points.Summary, error)
	GetStreak(ctx context.Context, userID uuid.UUID) (*streak.Summary, error)
	GetBadges(ctx context.Context, userID uuid.UUID) ([]*achievement.Badge, error)
	GetAchievements(ctx context.Context, userID uuid.UUID) ([]*achievement.AchievementWithStatus, error)
	GetLeaderboard(ctx context.Context, userID uuid.UUID, limit int) (*leaderboard.Leaderboard, error)
}

type GamificationHandler struct {
	gamification GamificationReader
	users        UserResolver
	defaultLimit int
}

func NewGamificationHandler(gamification GamificationReader, users UserResolver, defaultLimit int) *GamificationHandler {
	return &GamificationHandler{
		gamification: gamification,
		users:        users,
		defaultLimit: defaultLimit,
	}
}

// GET /api/v1/gamification/points
func (h *GamificationHandler) GetPoints(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	userID, ok := currentUserID(ctx, w, h.users)
	if !ok {
		return
	}

	summary, err := h.gamification.GetPoints(ctx, userID)
	if err != nil {
		logger.S().Errorf("GetPoints: %v", err)
		respondWithError(w, http.StatusInternalServerError, "Failed to get points")
		return
	}

	respondWithJSON(w, http.StatusOK, summary)
}

// GET /api/v1/gamification/streak
func (h *GamificationHandler) GetStreak(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	userID, ok := currentUserID(ctx, w, h.users)
	if !ok {
		return
	}

	summary, err := h.gamification.GetStreak(ctx, userID)
	if err != nil {
		logger.S().Errorf("GetStreak: %v", err)
		respondWithError(w, http.StatusInternalServerError, "Failed to get streak")
		return
	}

	respondWithJSON(w, http.StatusOK, summary)
}

// GET /api/v1/gamification/badges
func (h *GamificationHandler) GetBadges(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	userID, ok := currentUserID(ctx, w, h.users)
	if !ok {
		return
	}

	badges, err := h.gamification.GetBadges(ctx, userID)
	if err != nil {
		logger.S().Errorf("GetBadges: %v", err)
		respondWithError(w, http.StatusInternalServerError, "Failed to get badges")
		return
	}

	respondWithJSON(w, http.StatusOK, badges)
}

// GET /api/v1/gamification/achievements
func (h *GamificationHandler) GetAchievements(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	userID, ok := currentUserID(ctx, w, h.users)
	if !ok {
		return
	}

	achievements, err := h.gamification.GetAchievements(ctx, userID)
	if err != nil {
		logger.S().Errorf("GetAchievements: %v", err)
		respondWithError(w, http.StatusInternalServerError, "Failed to get achievements")
		return
	}

	respondWithJSON(w, http.StatusOK, achievements)
}

// GET /api/v1/leaderboard?limit=N
func (h *GamificationHandler) GetLeaderboard(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	userID, ok := currentUserID(ctx, w, h.users)
	if !ok {
		return
	}

	limit := h.defaultLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			respondWithError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}

	board, err := h.gamification.GetLeaderboard(ctx, userID, limit)
	if err != nil {
		logger.S().Errorf("GetLeaderboard: %v", err)
		respondWithError(w, http.StatusInternalServerError, "Failed to get leaderboard")
		return
	}

	respondWithJSON(w, http.StatusOK, board)
}
