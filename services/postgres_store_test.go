package services

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fitSquadAPI/internal/achievement"
	"fitSquadAPI/internal/notification"
	"fitSquadAPI/internal/types/points"
	"fitSquadAPI/internal/user"
)

// setupTestDB connects to TEST_DATABASE_URL and applies the schema. Tests
// using it are skipped when the variable is unset.
func setupTestDB(t *testing.T) *pgxpool.Pool {
	t.Helper()

	dbURL := os.Getenv("TEST_DATABASE_URL")
	if dbURL == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, dbURL)
	require.NoError(t, err)
	require.NoError(t, pool.Ping(ctx))

	schema, err := os.ReadFile("../migrations/001_init.sql")
	require.NoError(t, err)
	_, err = pool.Exec(ctx, string(schema))
	require.NoError(t, err)

	t.Cleanup(pool.Close)
	return pool
}

func createTestUser(t *testing.T, pool *pgxpool.Pool, firstName string) uuid.UUID {
	t.Helper()

	id := uuid.New()
	_, err := pool.Exec(context.Background(),
		`INSERT INTO users (id, clerk_id, email, first_name) VALUES ($1, $2, $3, $4)`,
		id, "test_"+id.String(), "test+"+id.String()+"@example.com", firstName,
	)
	require.NoError(t, err)

	t.Cleanup(func() {
		_, _ = pool.Exec(context.Background(), `DELETE FROM users WHERE id = $1`, id)
	})
	return id
}

func TestPostgresLedgerRoundTrip(t *testing.T) {
	pool := setupTestDB(t)
	store := NewPostgresStore(pool)
	ctx := context.Background()
	userID := createTestUser(t, pool, "Ledger")

	missing, err := store.FindLedger(ctx, userID)
	require.NoError(t, err)
	assert.Nil(t, missing)

	ledger, err := store.GetOrCreateLedger(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, 0, ledger.TotalPoints)
	assert.Equal(t, 1, ledger.Level)
	assert.Empty(t, ledger.History)

	ledger.Apply(points.ActionWorkoutComplete, 0, time.Now())
	require.NoError(t, store.SaveLedger(ctx, ledger))

	again, err := store.GetOrCreateLedger(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, ledger.TotalPoints, again.TotalPoints)
	assert.Equal(t, ledger.Level, again.Level)
	assert.Len(t, again.History, len(ledger.History))
}

func TestPostgresStreakKeepsCalendarDay(t *testing.T) {
	pool := setupTestDB(t)
	store := NewPostgresStore(pool)
	ctx := context.Background()
	userID := createTestUser(t, pool, "Streak")

	st, err := store.GetOrCreateStreak(ctx, userID)
	require.NoError(t, err)
	assert.Nil(t, st.LastActivityDate)

	evening := time.Date(2024, time.March, 10, 23, 45, 0, 0, time.Local)
	st.Record("workout", evening)
	require.NoError(t, store.SaveStreak(ctx, st))

	loaded, err := store.FindStreak(ctx, userID)
	require.NoError(t, err)
	require.NotNil(t, loaded.LastActivityDate)
	assert.Equal(t, time.Date(2024, time.March, 10, 0, 0, 0, 0, time.Local), *loaded.LastActivityDate)
	assert.Equal(t, 1, loaded.CurrentStreak)
}

func TestPostgresCreateBadgeOncePerName(t *testing.T) {
	pool := setupTestDB(t)
	store := NewPostgresStore(pool)
	ctx := context.Background()
	userID := createTestUser(t, pool, "Badge")

	first := achievement.Catalog()[0]

	created, err := store.CreateBadge(ctx, achievement.NewBadge(userID, first, time.Now()))
	require.NoError(t, err)
	assert.True(t, created)

	created, err = store.CreateBadge(ctx, achievement.NewBadge(userID, first, time.Now()))
	require.NoError(t, err)
	assert.False(t, created)

	badges, err := store.ListBadges(ctx, userID)
	require.NoError(t, err)
	assert.Len(t, badges, 1)
}

func TestPostgresProcessActivity(t *testing.T) {
	pool := setupTestDB(t)
	store := NewPostgresStore(pool)
	ctx := context.Background()
	userID := createTestUser(t, pool, "Flow")

	_, err := pool.Exec(ctx, `INSERT INTO workouts (user_id, type) VALUES ($1, 'running')`, userID)
	require.NoError(t, err)

	svc := NewGamificationService(store, &recordingSink{})
	result, err := svc.ProcessActivity(ctx, userID, points.ActionWorkoutComplete)
	require.NoError(t, err)

	require.Len(t, result.Achievements, 1)
	assert.Equal(t, "First Step", result.Achievements[0].Name)

	summary, err := svc.GetPoints(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, 100, summary.TotalPoints)
	assert.Equal(t, 2, summary.Level)

	streakSummary, err := svc.GetStreak(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, 1, streakSummary.CurrentStreak)
}

// kindRecorder is a PointAwarder that only records what it was asked for.
type kindRecorder struct {
	kinds []points.ActionKind
}

func (k *kindRecorder) AwardPoints(_ context.Context, userID uuid.UUID, kind points.ActionKind, extra int) (*points.Award, error) {
	k.kinds = append(k.kinds, kind)
	return &points.Award{Points: points.BasePoints(kind) + extra}, nil
}

func testClerkID(id uuid.UUID) string {
	return "test_" + id.String()
}

func TestPostgresProfileCompleteAwardedOnce(t *testing.T) {
	pool := setupTestDB(t)
	ctx := context.Background()
	userID := createTestUser(t, pool, "Ada")

	gamification := NewGamificationService(NewPostgresStore(pool), &recordingSink{})
	users := NewUserService(pool, gamification, &recordingSink{})

	partial, err := users.UpdateProfileByClerkID(ctx, testClerkID(userID), &user.UpdateProfileRequest{Username: "ada"})
	require.NoError(t, err)
	assert.False(t, partial.ProfileCompleted)

	first, err := users.UpdateProfileByClerkID(ctx, testClerkID(userID), &user.UpdateProfileRequest{LastName: "Lovelace"})
	require.NoError(t, err)
	assert.True(t, first.ProfileCompleted)

	second, err := users.UpdateProfileByClerkID(ctx, testClerkID(userID), &user.UpdateProfileRequest{LastName: "King"})
	require.NoError(t, err)
	assert.True(t, second.ProfileCompleted)

	summary, err := gamification.GetPoints(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, 40, summary.TotalPoints)
	require.Len(t, summary.History, 1)
	assert.Equal(t, string(points.ActionProfileComplete), summary.History[0].Reason)
}

func TestPostgresProfileCompleteFlagFailureAwardsNothing(t *testing.T) {
	pool := setupTestDB(t)
	userID := createTestUser(t, pool, "Grace")

	awarder := &kindRecorder{}
	users := NewUserService(pool, awarder, nil)

	u, err := users.GetUserByClerkID(context.Background(), testClerkID(userID))
	require.NoError(t, err)
	u.Username, u.LastName = "grace", "Hopper"

	cancelled, cancel := context.WithCancel(context.Background())
	cancel()
	users.checkProfileComplete(cancelled, u)

	assert.Empty(t, awarder.kinds)
	assert.False(t, u.ProfileCompleted)

	stored, err := users.GetUserByClerkID(context.Background(), testClerkID(userID))
	require.NoError(t, err)
	assert.False(t, stored.ProfileCompleted)

	users.checkProfileComplete(context.Background(), u)
	assert.Equal(t, []points.ActionKind{points.ActionProfileComplete}, awarder.kinds)
}

func TestPostgresAddFriendAwardsRequesterOnce(t *testing.T) {
	pool := setupTestDB(t)
	ctx := context.Background()
	requesterID := createTestUser(t, pool, "Requester")
	friendID := createTestUser(t, pool, "Friend")

	gamification := NewGamificationService(NewPostgresStore(pool), &recordingSink{})
	inbox := &recordingSink{}
	users := NewUserService(pool, gamification, inbox)

	require.NoError(t, users.AddFriend(ctx, testClerkID(requesterID), testClerkID(friendID)))
	assert.ErrorIs(t, users.AddFriend(ctx, testClerkID(requesterID), testClerkID(friendID)), ErrFriendshipExists)
	assert.ErrorIs(t, users.AddFriend(ctx, testClerkID(friendID), testClerkID(requesterID)), ErrFriendshipExists)
	assert.ErrorIs(t, users.AddFriend(ctx, testClerkID(requesterID), testClerkID(requesterID)), ErrSelfFriend)

	requester, err := gamification.GetPoints(ctx, requesterID)
	require.NoError(t, err)
	assert.Equal(t, 30, requester.TotalPoints)

	friend, err := gamification.GetPoints(ctx, friendID)
	require.NoError(t, err)
	assert.Equal(t, 0, friend.TotalPoints)

	require.Len(t, inbox.requests, 1)
	assert.Equal(t, notification.TypeFriendAdded, inbox.requests[0].Type)
	assert.Equal(t, friendID, inbox.requests[0].UserID)

	friends, err := users.GetFriends(ctx, testClerkID(friendID))
	require.NoError(t, err)
	require.Len(t, friends, 1)
	assert.Equal(t, requesterID, friends[0].ID)
}
