package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"fitSquadAPI/internal/logger"
	"fitSquadAPI/internal/user"
	"fitSquadAPI/middleware"
)

type UserDirectory interface {
	GetUserByClerkID(ctx context.Context, clerkID string) (*user.User, error)
	UpdateProfileByClerkID(ctx context.Context, clerkID string, req *user.UpdateProfileRequest) (*user.User, error)
	DeleteUserByClerkID(ctx context.Context, clerkID string) error
	GetFriends(ctx context.Context, clerkID string) ([]*user.User, error)
	AddFriend(ctx context.Context, clerkID string, friendClerkID string) error
	RemoveFriend(ctx context.Context, clerkID string, friendClerkID string) error
}

type UserHandler struct {
	userService UserDirectory
}

func NewUserHandler(userService UserDirectory) *UserHandler {
	return &UserHandler{
		userService: userService,
	}
}

// GET /api/v1/user/profile
func (h *UserHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	clerkID, ok := middleware.GetClerkID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	u, err := h.userService.GetUserByClerkID(ctx, clerkID)
	if err != nil {
		logger.S().Errorf("GetProfile: %v", err)
		respondWithError(w, statusFor(err), "Failed to get profile")
		return
	}

	respondWithJSON(w, http.StatusOK, u)
}

// PUT /api/v1/user/profile
func (h *UserHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	clerkID, ok := middleware.GetClerkID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	var req user.UpdateProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	u, err := h.userService.UpdateProfileByClerkID(ctx, clerkID, &req)
	if err != nil {
		logger.S().Errorf("UpdateProfile: %v", err)
		respondWithError(w, statusFor(err), "Failed to update profile")
		return
	}

	respondWithJSON(w, http.StatusOK, u)
}

// DELETE /api/v1/user/account
func (h *UserHandler) DeleteAccount(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	clerkID, ok := middleware.GetClerkID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	if err := h.userService.DeleteUserByClerkID(ctx, clerkID); err != nil {
		logger.S().Errorf("DeleteAccount: %v", err)
		respondWithError(w, statusFor(err), "Failed to delete account")
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]string{"message": "Account deleted"})
}

// GET /api/v1/user/friends
func (h *UserHandler) GetFriends(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	clerkID, ok := middleware.GetClerkID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	friends, err := h.userService.GetFriends(ctx, clerkID)
	if err != nil {
		logger.S().Errorf("GetFriends: %v", err)
		respondWithError(w, statusFor(err), "Failed to get friends")
		return
	}

	respondWithJSON(w, http.StatusOK, friends)
}

// POST /api/v1/user/friends
func (h *UserHandler) AddFriend(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	clerkID, ok := middleware.GetClerkID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	var req user.AddFriend
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	friendID := strings.TrimSpace(req.FriendId)
	if friendID == "" {
		respondWithError(w, http.StatusBadRequest, "friendId is required")
		return
	}

	if err := h.userService.AddFriend(ctx, clerkID, friendID); err != nil {
		logger.S().Errorf("AddFriend: %s -> %s: %v", clerkID, friendID, err)
		respondWithError(w, statusFor(err), err.Error())
		return
	}

	respondWithJSON(w, http.StatusCreated, map[string]string{
		"message": "Friend added successfully",
	})
}

// DELETE /api/v1/user/friends?friendId=...
func (h *UserHandler) RemoveFriend(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	clerkID, ok := middleware.GetClerkID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	friendID := strings.TrimSpace(r.URL.Query().Get("friendId"))
	if friendID == "" {
		respondWithError(w, http.StatusBadRequest, "Query parameter 'friendId' is required")
		return
	}

	if err := h.userService.RemoveFriend(ctx, clerkID, friendID); err != nil {
		logger.S().Errorf("RemoveFriend: %s -> %s: %v", clerkID, friendID, err)
		respondWithError(w, statusFor(err), err.Error())
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]string{
		"message": "Friend removed successfully",
	})
}
