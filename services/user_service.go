package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"fitSquadAPI/internal/logger"
	"fitSquadAPI/internal/notification"
	"fitSquadAPI/internal/types/points"
	"fitSquadAPI/internal/user"
)

// PointAwarder is the slice of the gamification service that profile and
// social events need.
type PointAwarder interface {
	AwardPoints(ctx context.Context, userID uuid.UUID, kind points.ActionKind, extra int) (*points.Award, error)
}

type UserService struct {
	db       *pgxpool.Pool
	awarder  PointAwarder
	notifier NotificationSink
}

func NewUserService(db *pgxpool.Pool, awarder PointAwarder, notifier NotificationSink) *UserService {
	return &UserService{db: db, awarder: awarder, notifier: notifier}
}

const userColumns = `id, clerk_id, email, username, first_name, last_name,
	COALESCE(image_url, ''), email_verified, profile_completed, created_at, updated_at`

func scanUser(row pgx.Row) (*user.User, error) {
	u := &user.User{}
	err := row.Scan(
		&u.ID,
		&u.ClerkID,
		&u.Email,
		&u.Username,
		&u.FirstName,
		&u.LastName,
		&u.ImageURL,
		&u.EmailVerified,
		&u.ProfileCompleted,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return u, nil
}

func (s *UserService) CreateUser(ctx context.Context, req *user.CreateUserRequest) (*user.User, error) {
	query := `
	INSERT INTO users (id, clerk_id, email, username, first_name, last_name, image_url)
	VALUES ($1, $2, $3, $4, $5, $6, NULLIF($7, ''))
	RETURNING ` + userColumns

	u, err := scanUser(s.db.QueryRow(
		ctx,
		query,
		uuid.New(),
		req.ClerkID,
		req.Email,
		req.Username,
		req.FirstName,
		req.LastName,
		req.ImageURL,
	))
	if err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	s.checkProfileComplete(ctx, u)
	return u, nil
}

func (s *UserService) GetUserByClerkID(ctx context.Context, clerkID string) (*user.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE clerk_id = $1`

	u, err := scanUser(s.db.QueryRow(ctx, query, clerkID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return u, nil
}

// ResolveUserID maps an auth provider id to the internal user id.
func (s *UserService) ResolveUserID(ctx context.Context, clerkID string) (uuid.UUID, error) {
	var userID uuid.UUID
	err := s.db.QueryRow(ctx, `SELECT id FROM users WHERE clerk_id = $1`, clerkID).Scan(&userID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return uuid.Nil, ErrUserNotFound
		}
		return uuid.Nil, fmt.Errorf("failed to resolve user: %w", err)
	}
	return userID, nil
}

func (s *UserService) UpdateProfileByClerkID(ctx context.Context, clerkID string, req *user.UpdateProfileRequest) (*user.User, error) {
	query := `
	UPDATE users
	SET
		username = COALESCE(NULLIF($2, ''), username),
		first_name = COALESCE(NULLIF($3, ''), first_name),
		last_name = COALESCE(NULLIF($4, ''), last_name),
		image_url = COALESCE(NULLIF($5, ''), image_url),
		updated_at = NOW()
	WHERE clerk_id = $1
	RETURNING ` + userColumns

	u, err := scanUser(s.db.QueryRow(
		ctx,
		query,
		clerkID,
		req.Username,
		req.FirstName,
		req.LastName,
		req.ImageURL,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to update user: %w", err)
	}

	s.checkProfileComplete(ctx, u)
	return u, nil
}

// checkProfileComplete awards profile_complete the first time the profile
// is filled in. The flag flip is the guard, so concurrent updates award once.
func (s *UserService) checkProfileComplete(ctx context.Context, u *user.User) {
	if u.ProfileCompleted || !u.HasCompleteProfile() {
		return
	}

	result, err := s.db.Exec(ctx, `
	UPDATE users SET profile_completed = TRUE
	WHERE id = $1 AND profile_completed = FALSE
	`, u.ID)
	if err != nil {
		logger.S().Errorf("checkProfileComplete: failed to flag user %s: %v", u.ID, err)
		return
	}
	if result.RowsAffected() == 0 {
		return
	}
	u.ProfileCompleted = true

	if s.awarder == nil {
		return
	}
	if _, err := s.awarder.AwardPoints(ctx, u.ID, points.ActionProfileComplete, 0); err != nil {
		logger.S().Errorf("checkProfileComplete: failed to award points to user %s: %v", u.ID, err)
	}
}

func (s *UserService) DeleteUserByClerkID(ctx context.Context, clerkID string) error {
	result, err := s.db.Exec(ctx, `DELETE FROM users WHERE clerk_id = $1`, clerkID)
	if err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	return nil
}

func (s *UserService) UpdateEmailVerification(ctx context.Context, clerkID string, verified bool) error {
	query := `
	UPDATE users
	SET email_verified = $2, updated_at = NOW()
	WHERE clerk_id = $1
	`
	if _, err := s.db.Exec(ctx, query, clerkID, verified); err != nil {
		return fmt.Errorf("failed to update email verification: %w", err)
	}
	return nil
}

// ---------------------------------------------------------
// FRIENDS
// ---------------------------------------------------------

func (s *UserService) GetFriends(ctx context.Context, clerkID string) ([]*user.User, error) {
	userID, err := s.ResolveUserID(ctx, clerkID)
	if err != nil {
		return nil, err
	}

	query := `
	SELECT ` + userColumns + `
	FROM users
	WHERE id IN (
		SELECT friend_id FROM friendships WHERE user_id = $1
		UNION
		SELECT user_id FROM friendships WHERE friend_id = $1
	)
	ORDER BY username
	`

	rows, err := s.db.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch friends: %w", err)
	}
	defer rows.Close()

	friends := []*user.User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan friend: %w", err)
		}
		friends = append(friends, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating friends: %w", err)
	}
	return friends, nil
}

// AddFriend links the two users and awards friend_added to the requester.
func (s *UserService) AddFriend(ctx context.Context, clerkID string, friendClerkID string) error {
	requester, err := s.GetUserByClerkID(ctx, clerkID)
	if err != nil {
		logger.S().Warnf("AddFriend: failed to find user with clerk_id %s: %v", clerkID, err)
		return err
	}

	friendID, err := s.ResolveUserID(ctx, friendClerkID)
	if err != nil {
		logger.S().Warnf("AddFriend: failed to find friend with clerk_id %s: %v", friendClerkID, err)
		if errors.Is(err, ErrUserNotFound) {
			return ErrFriendNotFound
		}
		return err
	}

	if requester.ID == friendID {
		return ErrSelfFriend
	}

	// The pair is stored in canonical order so the unique index covers both
	// directions.
	a, b := requester.ID, friendID
	if a.String() > b.String() {
		a, b = b, a
	}

	insertQuery := `
		INSERT INTO friendships (user_id, friend_id, requested_by, created_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (user_id, friend_id) DO NOTHING
	`
	result, err := s.db.Exec(ctx, insertQuery, a, b, requester.ID)
	if err != nil {
		logger.S().Errorf("AddFriend: failed to insert friendship: %v", err)
		return fmt.Errorf("failed to create friendship: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrFriendshipExists
	}

	logger.S().Infof("AddFriend: created friendship between %s and %s", clerkID, friendClerkID)

	if s.awarder != nil {
		if _, err := s.awarder.AwardPoints(ctx, requester.ID, points.ActionFriendAdded, 0); err != nil {
			logger.S().Errorf("AddFriend: failed to award points to user %s: %v", requester.ID, err)
		}
	}

	if s.notifier != nil {
		actorID := requester.ID
		_, err := s.notifier.CreateNotification(ctx, &notification.CreateNotificationRequest{
			UserID:   friendID,
			Type:     notification.TypeFriendAdded,
			Priority: notification.PriorityNormal,
			Message:  fmt.Sprintf("%s added you as a friend", displayNameOf(requester)),
			Data:     map[string]any{"friend_id": requester.ID.String()},
			ActorID:  &actorID,
		})
		if err != nil {
			logger.S().Warnf("AddFriend: failed to notify user %s: %v", friendID, err)
		}
	}

	return nil
}

func (s *UserService) RemoveFriend(ctx context.Context, clerkID string, friendClerkID string) error {
	userID, err := s.ResolveUserID(ctx, clerkID)
	if err != nil {
		return err
	}

	friendID, err := s.ResolveUserID(ctx, friendClerkID)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return ErrFriendNotFound
		}
		return err
	}

	deleteQuery := `
		DELETE FROM friendships
		WHERE (user_id = $1 AND friend_id = $2)
		   OR (user_id = $2 AND friend_id = $1)
	`
	result, err := s.db.Exec(ctx, deleteQuery, userID, friendID)
	if err != nil {
		logger.S().Errorf("RemoveFriend: failed to delete friendship: %v", err)
		return fmt.Errorf("failed to remove friendship: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrFriendshipNotFound
	}

	logger.S().Infof("RemoveFriend: removed friendship between %s and %s", clerkID, friendClerkID)
	return nil
}

func displayNameOf(u *user.User) string {
	if u.Username != "" {
		return u.Username
	}
	if u.FirstName != "" {
		return u.FirstName
	}
	return "Someone"
}
