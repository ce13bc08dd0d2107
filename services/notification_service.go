package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"fitSquadAPI/internal/logger"
	"fitSquadAPI/internal/notification"
)

type NotificationService struct {
	db         *pgxpool.Pool
	dispatcher *NotificationDispatcher
}

// NewNotificationService starts a dispatcher with the given number of
// delivery workers.
func NewNotificationService(db *pgxpool.Pool, workers int) *NotificationService {
	service := &NotificationService{
		db: db,
	}
	service.dispatcher = NewNotificationDispatcher(service, workers)
	return service
}

// Dispatcher exposes the worker pool so main can attach delivery channels
// and stop it on shutdown.
func (s *NotificationService) Dispatcher() *NotificationDispatcher {
	return s.dispatcher
}

func (s *NotificationService) getUserID(ctx context.Context, clerkID string) (uuid.UUID, error) {
	var userID uuid.UUID
	err := s.db.QueryRow(ctx, "SELECT id FROM users WHERE clerk_id = $1", clerkID).Scan(&userID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return uuid.Nil, ErrUserNotFound
		}
		return uuid.Nil, fmt.Errorf("failed to resolve user %s: %w", clerkID, err)
	}
	return userID, nil
}

const notificationColumns = `id, user_id, type, priority, status, title, body, data,
	actor_id, sent_at, read_at, failed_at, failure_reason, created_at`

func scanNotification(row pgx.Row) (*notification.Notification, error) {
	notif := &notification.Notification{}
	var dataJSON []byte

	err := row.Scan(
		&notif.ID, &notif.UserID, &notif.Type, &notif.Priority, &notif.Status,
		&notif.Title, &notif.Body, &dataJSON, &notif.ActorID,
		&notif.SentAt, &notif.ReadAt, &notif.FailedAt, &notif.FailureReason,
		&notif.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	if len(dataJSON) > 0 {
		_ = json.Unmarshal(dataJSON, &notif.Data)
	}
	return notif, nil
}

// CreateNotification stores the notification and queues it for delivery.
// It returns nil, nil when the user opted out of req.Type.
func (s *NotificationService) CreateNotification(ctx context.Context, req *notification.CreateNotificationRequest) (*notification.Notification, error) {
	if req.Message == "" {
		return nil, fmt.Errorf("notification message is required")
	}

	prefs, err := s.GetUserPreferencesByUUID(ctx, req.UserID)
	if err != nil {
		return nil, err
	}

	if !prefs.Allows(req.Type) {
		logger.S().Debugf("CreateNotification: type %s disabled for user %s", req.Type, req.UserID)
		return nil, nil
	}

	priority := req.Priority
	if priority == "" {
		priority = notification.PriorityNormal
	}
	title := req.Title
	if title == "" {
		title = defaultTitle(req.Type)
	}

	dataJSON, err := json.Marshal(req.Data)
	if err != nil {
		return nil, fmt.Errorf("failed to encode notification data: %w", err)
	}

	query := `
		INSERT INTO notifications (user_id, type, priority, status, title, body, data, actor_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING ` + notificationColumns

	notif, err := scanNotification(s.db.QueryRow(
		ctx, query,
		req.UserID, req.Type, priority, notification.StatusPending,
		title, req.Message, dataJSON, req.ActorID,
	))
	if err != nil {
		return nil, fmt.Errorf("failed to create notification: %w", err)
	}

	go s.dispatcher.DispatchNotification(notif, prefs)

	return notif, nil
}

func defaultTitle(t notification.NotificationType) string {
	switch t {
	case notification.TypeLevelUp:
		return "Level up!"
	case notification.TypeStreakMilestone:
		return "Streak milestone"
	case notification.TypeAchievementUnlocked:
		return "Achievement unlocked"
	case notification.TypeFriendAdded:
		return "New friend"
	default:
		return "FitSquad"
	}
}

func (s *NotificationService) GetNotifications(ctx context.Context, clerkID string, page, pageSize int, unreadOnly bool) (*notification.NotificationListResponse, error) {
	userID, err := s.getUserID(ctx, clerkID)
	if err != nil {
		return nil, err
	}

	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}
	offset := (page - 1) * pageSize

	whereClause := "WHERE user_id = $1"
	if unreadOnly {
		whereClause += " AND read_at IS NULL"
	}

	query := fmt.Sprintf(`
		SELECT %s
		FROM notifications
		%s
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`, notificationColumns, whereClause)

	rows, err := s.db.Query(ctx, query, userID, pageSize, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch notifications: %w", err)
	}
	defer rows.Close()

	notifications := []*notification.Notification{}
	for rows.Next() {
		notif, err := scanNotification(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan notification: %w", err)
		}
		notifications = append(notifications, notif)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating notifications: %w", err)
	}

	var unreadCount, totalCount int
	err = s.db.QueryRow(ctx, `
		SELECT COUNT(*) FILTER (WHERE read_at IS NULL), COUNT(*)
		FROM notifications WHERE user_id = $1
	`, userID).Scan(&unreadCount, &totalCount)
	if err != nil {
		return nil, fmt.Errorf("failed to count notifications: %w", err)
	}

	return &notification.NotificationListResponse{
		Notifications: notifications,
		UnreadCount:   unreadCount,
		TotalCount:    totalCount,
		Page:          page,
		PageSize:      pageSize,
	}, nil
}

func (s *NotificationService) GetUnreadCount(ctx context.Context, clerkID string) (int, error) {
	userID, err := s.getUserID(ctx, clerkID)
	if err != nil {
		return 0, err
	}

	var unreadCount int
	query := "SELECT COUNT(*) FROM notifications WHERE user_id = $1 AND read_at IS NULL"
	if err := s.db.QueryRow(ctx, query, userID).Scan(&unreadCount); err != nil {
		return 0, fmt.Errorf("failed to get unread count: %w", err)
	}
	return unreadCount, nil
}

func (s *NotificationService) MarkAsRead(ctx context.Context, notificationID uuid.UUID, clerkID string) error {
	userID, err := s.getUserID(ctx, clerkID)
	if err != nil {
		return err
	}

	query := `
		UPDATE notifications
		SET read_at = NOW(), status = $1
		WHERE id = $2 AND user_id = $3 AND read_at IS NULL
	`
	result, err := s.db.Exec(ctx, query, notification.StatusRead, notificationID, userID)
	if err != nil {
		return fmt.Errorf("failed to mark as read: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrNotificationNotFound
	}
	return nil
}

func (s *NotificationService) MarkAllAsRead(ctx context.Context, clerkID string) error {
	userID, err := s.getUserID(ctx, clerkID)
	if err != nil {
		return err
	}

	query := `UPDATE notifications SET read_at = NOW(), status = $1 WHERE user_id = $2 AND read_at IS NULL`
	if _, err := s.db.Exec(ctx, query, notification.StatusRead, userID); err != nil {
		return fmt.Errorf("failed to mark all as read: %w", err)
	}
	return nil
}

func (s *NotificationService) DeleteNotification(ctx context.Context, notificationID uuid.UUID, clerkID string) error {
	userID, err := s.getUserID(ctx, clerkID)
	if err != nil {
		return err
	}

	result, err := s.db.Exec(ctx, "DELETE FROM notifications WHERE id = $1 AND user_id = $2", notificationID, userID)
	if err != nil {
		return fmt.Errorf("failed to delete notification: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrNotificationNotFound
	}
	return nil
}

// ---------------------------------------------------------
// PREFERENCES
// ---------------------------------------------------------

func (s *NotificationService) GetUserPreferences(ctx context.Context, clerkID string) (*notification.NotificationPreferences, error) {
	userID, err := s.getUserID(ctx, clerkID)
	if err != nil {
		return nil, err
	}
	return s.GetUserPreferencesByUUID(ctx, userID)
}

// GetUserPreferencesByUUID returns the stored preferences, creating the
// default row on first access.
func (s *NotificationService) GetUserPreferencesByUUID(ctx context.Context, userID uuid.UUID) (*notification.NotificationPreferences, error) {
	query := `
		INSERT INTO notification_preferences (user_id)
		VALUES ($1)
		ON CONFLICT (user_id) DO UPDATE SET user_id = EXCLUDED.user_id
		RETURNING user_id, push_enabled, in_app_enabled, enabled_types, device_tokens, updated_at
	`

	prefs := &notification.NotificationPreferences{}
	var enabledTypesJSON, deviceTokensJSON []byte

	err := s.db.QueryRow(ctx, query, userID).Scan(
		&prefs.UserID, &prefs.PushEnabled, &prefs.InAppEnabled,
		&enabledTypesJSON, &deviceTokensJSON, &prefs.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get preferences: %w", err)
	}

	if err := json.Unmarshal(enabledTypesJSON, &prefs.EnabledTypes); err != nil || prefs.EnabledTypes == nil {
		prefs.EnabledTypes = map[string]bool{}
	}
	if err := json.Unmarshal(deviceTokensJSON, &prefs.DeviceTokens); err != nil || prefs.DeviceTokens == nil {
		prefs.DeviceTokens = []notification.DeviceToken{}
	}
	return prefs, nil
}

func (s *NotificationService) UpdateUserPreferences(ctx context.Context, clerkID string, req *notification.UpdatePreferencesRequest) (*notification.NotificationPreferences, error) {
	userID, err := s.getUserID(ctx, clerkID)
	if err != nil {
		return nil, err
	}

	// Make sure the row exists before the partial update.
	current, err := s.GetUserPreferencesByUUID(ctx, userID)
	if err != nil {
		return nil, err
	}

	updates := []string{}
	args := []any{userID}
	argCount := 2

	if req.PushEnabled != nil {
		updates = append(updates, fmt.Sprintf("push_enabled = $%d", argCount))
		args = append(args, *req.PushEnabled)
		argCount++
	}
	if req.InAppEnabled != nil {
		updates = append(updates, fmt.Sprintf("in_app_enabled = $%d", argCount))
		args = append(args, *req.InAppEnabled)
		argCount++
	}
	if req.EnabledTypes != nil {
		merged := current.EnabledTypes
		for k, v := range req.EnabledTypes {
			merged[k] = v
		}
		typesJSON, err := json.Marshal(merged)
		if err != nil {
			return nil, fmt.Errorf("failed to encode enabled types: %w", err)
		}
		updates = append(updates, fmt.Sprintf("enabled_types = $%d", argCount))
		args = append(args, typesJSON)
	}

	if len(updates) == 0 {
		return current, nil
	}

	query := fmt.Sprintf(`
		UPDATE notification_preferences
		SET %s, updated_at = NOW()
		WHERE user_id = $1
	`, strings.Join(updates, ", "))

	if _, err := s.db.Exec(ctx, query, args...); err != nil {
		return nil, fmt.Errorf("failed to update preferences: %w", err)
	}

	return s.GetUserPreferencesByUUID(ctx, userID)
}

func (s *NotificationService) RegisterDevice(ctx context.Context, clerkID string, req notification.RegisterDeviceRequest) error {
	userID, err := s.getUserID(ctx, clerkID)
	if err != nil {
		return err
	}

	prefs, err := s.GetUserPreferencesByUUID(ctx, userID)
	if err != nil {
		return err
	}

	now := time.Now()
	tokenExists := false
	for i, token := range prefs.DeviceTokens {
		if token.Token == req.Token {
			prefs.DeviceTokens[i].LastUsed = now
			prefs.DeviceTokens[i].Platform = req.Platform
			tokenExists = true
			break
		}
	}
	if !tokenExists {
		prefs.DeviceTokens = append(prefs.DeviceTokens, notification.DeviceToken{
			Token:    req.Token,
			Platform: req.Platform,
			AddedAt:  now,
			LastUsed: now,
		})
	}

	tokensJSON, err := json.Marshal(prefs.DeviceTokens)
	if err != nil {
		return fmt.Errorf("failed to encode device tokens: %w", err)
	}

	query := `UPDATE notification_preferences SET device_tokens = $2, updated_at = NOW() WHERE user_id = $1`
	if _, err := s.db.Exec(ctx, query, userID, tokensJSON); err != nil {
		return fmt.Errorf("failed to register device: %w", err)
	}
	return nil
}

// SendTestNotification pushes a test notification to the caller's devices.
func (s *NotificationService) SendTestNotification(ctx context.Context, clerkID string) (*notification.Notification, error) {
	userID, err := s.getUserID(ctx, clerkID)
	if err != nil {
		return nil, err
	}

	return s.CreateNotification(ctx, &notification.CreateNotificationRequest{
		UserID:   userID,
		Type:     notification.TypeTest,
		Priority: notification.PriorityHigh,
		Title:    "Test notification",
		Message:  "Push notifications are working.",
		Data:     map[string]any{"test": true},
	})
}

// ---------------------------------------------------------
// DELIVERY STATUS
// ---------------------------------------------------------

func (s *NotificationService) MarkSent(ctx context.Context, notificationID uuid.UUID) error {
	query := `UPDATE notifications SET status = $2, sent_at = NOW() WHERE id = $1`
	if _, err := s.db.Exec(ctx, query, notificationID, notification.StatusSent); err != nil {
		return fmt.Errorf("failed to mark notification as sent: %w", err)
	}
	return nil
}

func (s *NotificationService) MarkFailed(ctx context.Context, notificationID uuid.UUID, reason string) error {
	query := `UPDATE notifications SET status = $2, failed_at = NOW(), failure_reason = $3 WHERE id = $1`
	if _, err := s.db.Exec(ctx, query, notificationID, notification.StatusFailed, reason); err != nil {
		return fmt.Errorf("failed to mark notification as failed: %w", err)
	}
	return nil
}

// DeleteReadBefore removes read notifications older than cutoff.
func (s *NotificationService) DeleteReadBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := s.db.Exec(ctx, `DELETE FROM notifications WHERE status = $1 AND read_at < $2`, notification.StatusRead, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to delete old notifications: %w", err)
	}
	return result.RowsAffected(), nil
}
