package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/google/uuid"

	"fitSquadAPI/middleware"
	"fitSquadAPI/services"
)

// UserResolver maps the authenticated Clerk id to the internal user id.
type UserResolver interface {
	ResolveUserID(ctx context.Context, clerkID string) (uuid.UUID, error)
}

func respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	response, err := json.Marshal(payload)
	if err != nil {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"error": "Internal server error"}`))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(response)
}

func respondWithError(w http.ResponseWriter, code int, message string) {
	respondWithJSON(w, code, map[string]string{"error": message})
}

// statusFor maps service errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, services.ErrUserNotFound),
		errors.Is(err, services.ErrFriendNotFound),
		errors.Is(err, services.ErrFriendshipNotFound),
		errors.Is(err, services.ErrNotificationNotFound):
		return http.StatusNotFound
	case errors.Is(err, services.ErrInvalidActivity),
		errors.Is(err, services.ErrSelfFriend):
		return http.StatusBadRequest
	case errors.Is(err, services.ErrFriendshipExists):
		return http.StatusConflict
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// currentUserID resolves the caller and writes the error response itself
// when that fails.
func currentUserID(ctx context.Context, w http.ResponseWriter, users UserResolver) (uuid.UUID, bool) {
	clerkID, ok := middleware.GetClerkID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return uuid.Nil, false
	}

	userID, err := users.ResolveUserID(ctx, clerkID)
	if err != nil {
		if errors.Is(err, services.ErrUserNotFound) {
			respondWithError(w, http.StatusNotFound, "User not found")
		} else {
			respondWithError(w, http.StatusInternalServerError, "Failed to resolve user")
		}
		return uuid.Nil, false
	}
	return userID, true
}
