package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"fitSquadAPI/internal/clerk"
	"fitSquadAPI/internal/logger"
	"fitSquadAPI/internal/user"
	"fitSquadAPI/services"
)

const maxWebhookBody = int64(1 << 20)

// ClerkUserSyncer mirrors Clerk user lifecycle events into the users table.
type ClerkUserSyncer interface {
	CreateUser(ctx context.Context, req *user.CreateUserRequest) (*user.User, error)
	UpdateProfileByClerkID(ctx context.Context, clerkID string, req *user.UpdateProfileRequest) (*user.User, error)
	UpdateEmailVerification(ctx context.Context, clerkID string, verified bool) error
	DeleteUserByClerkID(ctx context.Context, clerkID string) error
}

type WebhookHandler struct {
	users  ClerkUserSyncer
	secret string
	now    func() time.Time
}

func NewWebhookHandler(users ClerkUserSyncer, secret string) *WebhookHandler {
	if secret == "" {
		logger.S().Warn("Webhook handler: CLERK_WEBHOOK_SECRET not set, signatures will not be verified")
	}
	return &WebhookHandler{
		users:  users,
		secret: secret,
		now:    time.Now,
	}
}

// POST /webhooks/clerk
func (h *WebhookHandler) HandleClerkWebhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxWebhookBody))
	if err != nil {
		logger.S().Errorf("Clerk webhook: failed to read body: %v", err)
		respondWithError(w, http.StatusBadRequest, "Error reading body")
		return
	}

	if h.secret != "" {
		if err := clerk.VerifySignature(h.secret, r.Header, body, h.now()); err != nil {
			logger.S().Warnf("Clerk webhook: rejected: %v", err)
			respondWithError(w, http.StatusUnauthorized, "Invalid signature")
			return
		}
	}

	var event clerk.WebhookEvent
	if err := json.Unmarshal(body, &event); err != nil {
		logger.S().Errorf("Clerk webhook: failed to parse event: %v", err)
		respondWithError(w, http.StatusBadRequest, "Error parsing webhook")
		return
	}

	logger.S().Infof("Clerk webhook: received %s", event.Type)

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	switch event.Type {
	case clerk.EventUserCreated:
		err = h.handleUserCreated(ctx, event.Data)
	case clerk.EventUserUpdated:
		err = h.handleUserUpdated(ctx, event.Data)
	case clerk.EventUserDeleted:
		err = h.handleUserDeleted(ctx, event.Data)
	default:
		logger.S().Infof("Clerk webhook: unhandled event type %s", event.Type)
	}
	if err != nil {
		logger.S().Errorf("Clerk webhook: %s: %v", event.Type, err)
		respondWithError(w, http.StatusInternalServerError, "Error processing webhook")
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func decodeUserData(data json.RawMessage) (*clerk.UserData, error) {
	var userData clerk.UserData
	if err := json.Unmarshal(data, &userData); err != nil {
		return nil, fmt.Errorf("failed to unmarshal user data: %w", err)
	}
	if userData.ID == "" {
		return nil, errors.New("user data has no id")
	}
	return &userData, nil
}

func usernameOf(u *clerk.UserData) string {
	if u.Username != "" {
		return u.Username
	}
	return u.FirstName + u.LastName
}

func (h *WebhookHandler) handleUserCreated(ctx context.Context, data json.RawMessage) error {
	userData, err := decodeUserData(data)
	if err != nil {
		return err
	}

	email, verified := userData.PrimaryEmail()

	created, err := h.users.CreateUser(ctx, &user.CreateUserRequest{
		ClerkID:   userData.ID,
		Email:     email,
		Username:  usernameOf(userData),
		FirstName: userData.FirstName,
		LastName:  userData.LastName,
		ImageURL:  userData.Avatar(),
	})
	if err != nil {
		return fmt.Errorf("failed to create user in database: %w", err)
	}

	if verified {
		if err := h.users.UpdateEmailVerification(ctx, userData.ID, true); err != nil {
			logger.S().Warnf("Clerk webhook: failed to mark email verified for %s: %v", userData.ID, err)
		}
	}

	logger.S().Infof("Clerk webhook: created user %s (clerk id %s)", created.ID, created.ClerkID)
	return nil
}

func (h *WebhookHandler) handleUserUpdated(ctx context.Context, data json.RawMessage) error {
	userData, err := decodeUserData(data)
	if err != nil {
		return err
	}

	_, err = h.users.UpdateProfileByClerkID(ctx, userData.ID, &user.UpdateProfileRequest{
		Username:  usernameOf(userData),
		FirstName: userData.FirstName,
		LastName:  userData.LastName,
		ImageURL:  userData.Avatar(),
	})
	if err != nil {
		return fmt.Errorf("failed to update user: %w", err)
	}

	_, verified := userData.PrimaryEmail()
	if err := h.users.UpdateEmailVerification(ctx, userData.ID, verified); err != nil {
		logger.S().Warnf("Clerk webhook: failed to sync email verification for %s: %v", userData.ID, err)
	}
	return nil
}

func (h *WebhookHandler) handleUserDeleted(ctx context.Context, data json.RawMessage) error {
	var payload struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(data, &payload); err != nil {
		return fmt.Errorf("failed to unmarshal user data: %w", err)
	}

	err := h.users.DeleteUserByClerkID(ctx, payload.ID)
	if errors.Is(err, services.ErrUserNotFound) {
		logger.S().Infof("Clerk webhook: user %s already deleted", payload.ID)
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}
	return nil
}
