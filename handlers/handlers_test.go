package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fitSquadAPI/internal/achievement"
	"fitSquadAPI/internal/activity"
	"fitSquadAPI/internal/leaderboard"
	"fitSquadAPI/internal/types/points"
	"fitSquadAPI/internal/types/streak"
	"fitSquadAPI/internal/user"
	"fitSquadAPI/middleware"
	"fitSquadAPI/services"
)

type stubResolver struct {
	id  uuid.UUID
	err error
}

func (s stubResolver) ResolveUserID(ctx context.Context, clerkID string) (uuid.UUID, error) {
	return s.id, s.err
}

type stubGamification struct {
	lastLimit int
	err       error
}

func (s *stubGamification) GetPoints(ctx context.Context, userID uuid.UUID) (*points.Summary, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &points.Summary{TotalPoints: 150, Level: 2, NextLevelThreshold: 250, History: []points.HistoryEntry{}}, nil
}

func (s *stubGamification) GetStreak(ctx context.Context, userID uuid.UUID) (*streak.Summary, error) {
	return &streak.Summary{CurrentStreak: 3, BestStreak: 5}, s.err
}

func (s *stubGamification) GetBadges(ctx context.Context, userID uuid.UUID) ([]*achievement.Badge, error) {
	return []*achievement.Badge{}, s.err
}

func (s *stubGamification) GetAchievements(ctx context.Context, userID uuid.UUID) ([]*achievement.AchievementWithStatus, error) {
	return []*achievement.AchievementWithStatus{}, s.err
}

func (s *stubGamification) GetLeaderboard(ctx context.Context, userID uuid.UUID, limit int) (*leaderboard.Leaderboard, error) {
	s.lastLimit = limit
	return &leaderboard.Leaderboard{Entries: []*leaderboard.LeaderboardEntry{}}, s.err
}

func authed(req *http.Request, clerkID string) *http.Request {
	return req.WithContext(middleware.WithClerkID(req.Context(), clerkID))
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func TestGamificationHandlerRequiresAuth(t *testing.T) {
	h := NewGamificationHandler(&stubGamification{}, stubResolver{id: uuid.New()}, 10)

	rec := httptest.NewRecorder()
	h.GetPoints(rec, httptest.NewRequest(http.MethodGet, "/api/v1/gamification/points", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestGamificationHandlerUnknownUser(t *testing.T) {
	h := NewGamificationHandler(&stubGamification{}, stubResolver{err: services.ErrUserNotFound}, 10)

	rec := httptest.NewRecorder()
	h.GetStreak(rec, authed(httptest.NewRequest(http.MethodGet, "/api/v1/gamification/streak", nil), "user_1"))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetPoints(t *testing.T) {
	h := NewGamificationHandler(&stubGamification{}, stubResolver{id: uuid.New()}, 10)

	rec := httptest.NewRecorder()
	h.GetPoints(rec, authed(httptest.NewRequest(http.MethodGet, "/api/v1/gamification/points", nil), "user_1"))

	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.EqualValues(t, 150, body["total_points"])
	assert.EqualValues(t, 2, body["level"])
	assert.EqualValues(t, 250, body["next_level_threshold"])
}

func TestGetPointsServiceFailure(t *testing.T) {
	h := NewGamificationHandler(&stubGamification{err: errors.New("boom")}, stubResolver{id: uuid.New()}, 10)

	rec := httptest.NewRecorder()
	h.GetPoints(rec, authed(httptest.NewRequest(http.MethodGet, "/api/v1/gamification/points", nil), "user_1"))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestGetLeaderboardLimit(t *testing.T) {
	gam := &stubGamification{}
	h := NewGamificationHandler(gam, stubResolver{id: uuid.New()}, 10)

	rec := httptest.NewRecorder()
	h.GetLeaderboard(rec, authed(httptest.NewRequest(http.MethodGet, "/api/v1/leaderboard", nil), "user_1"))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 10, gam.lastLimit)

	rec = httptest.NewRecorder()
	h.GetLeaderboard(rec, authed(httptest.NewRequest(http.MethodGet, "/api/v1/leaderboard?limit=25", nil), "user_1"))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 25, gam.lastLimit)

	for _, bad := range []string{"0", "-3", "ten"} {
		rec = httptest.NewRecorder()
		h.GetLeaderboard(rec, authed(httptest.NewRequest(http.MethodGet, "/api/v1/leaderboard?limit="+bad, nil), "user_1"))
		assert.Equal(t, http.StatusBadRequest, rec.Code, bad)
	}
}

type stubActivities struct {
	logErr  error
	mealDay time.Time
}

func (s *stubActivities) LogWorkout(ctx context.Context, userID uuid.UUID, req *activity.LogWorkoutRequest) (*services.WorkoutLogResult, error) {
	if s.logErr != nil {
		return nil, s.logErr
	}
	return &services.WorkoutLogResult{
		Workout:           &activity.Workout{ID: uuid.New(), UserID: userID, Type: req.Type},
		GamificationError: "update_streak: datastore unavailable",
	}, nil
}

func (s *stubActivities) LogMeal(ctx context.Context, userID uuid.UUID, req *activity.LogMealRequest) (*services.MealLogResult, error) {
	return &services.MealLogResult{Meal: &activity.Meal{ID: uuid.New(), UserID: userID, Name: req.Name}}, s.logErr
}

func (s *stubActivities) GetWorkouts(ctx context.Context, userID uuid.UUID, limit int) ([]*activity.Workout, error) {
	return []*activity.Workout{}, nil
}

func (s *stubActivities) GetMeals(ctx context.Context, userID uuid.UUID, day time.Time) ([]*activity.Meal, error) {
	s.mealDay = day
	return []*activity.Meal{}, nil
}

func (s *stubActivities) GetNutritionSummary(ctx context.Context, userID uuid.UUID, day time.Time) (*activity.NutritionSummary, error) {
	return &activity.NutritionSummary{Date: day.Format("2006-01-02")}, nil
}

func TestLogWorkout(t *testing.T) {
	h := NewActivityHandler(&stubActivities{}, stubResolver{id: uuid.New()})

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/workouts", strings.NewReader(`{"type":"running","duration_minutes":30}`))
	h.LogWorkout(rec, authed(req, "user_1"))

	require.Equal(t, http.StatusCreated, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "running", body["workout"].(map[string]any)["type"])
	assert.Equal(t, "update_streak: datastore unavailable", body["gamification_error"])
}

func TestLogWorkoutRejectsBadInput(t *testing.T) {
	h := NewActivityHandler(&stubActivities{}, stubResolver{id: uuid.New()})

	rec := httptest.NewRecorder()
	h.LogWorkout(rec, authed(httptest.NewRequest(http.MethodPost, "/api/v1/workouts", strings.NewReader(`{`)), "user_1"))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	invalid := &stubActivities{logErr: errors.Join(services.ErrInvalidActivity, activity.ErrInvalidRequest)}
	h = NewActivityHandler(invalid, stubResolver{id: uuid.New()})
	rec = httptest.NewRecorder()
	h.LogWorkout(rec, authed(httptest.NewRequest(http.MethodPost, "/api/v1/workouts", strings.NewReader(`{}`)), "user_1"))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetMealsDateParam(t *testing.T) {
	acts := &stubActivities{}
	h := NewActivityHandler(acts, stubResolver{id: uuid.New()})

	rec := httptest.NewRecorder()
	h.GetMeals(rec, authed(httptest.NewRequest(http.MethodGet, "/api/v1/meals?date=2024-03-10", nil), "user_1"))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, time.Date(2024, 3, 10, 0, 0, 0, 0, time.Local), acts.mealDay)

	rec = httptest.NewRecorder()
	h.GetMeals(rec, authed(httptest.NewRequest(http.MethodGet, "/api/v1/meals?date=10/03/2024", nil), "user_1"))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

type stubUsers struct {
	created      []*user.CreateUserRequest
	updated      []*user.UpdateProfileRequest
	verified     map[string]bool
	deleteErr    error
	addFriendErr error
}

func newStubUsers() *stubUsers {
	return &stubUsers{verified: map[string]bool{}}
}

func (s *stubUsers) CreateUser(ctx context.Context, req *user.CreateUserRequest) (*user.User, error) {
	s.created = append(s.created, req)
	return &user.User{ID: uuid.New(), ClerkID: req.ClerkID, Email: req.Email}, nil
}

func (s *stubUsers) UpdateProfileByClerkID(ctx context.Context, clerkID string, req *user.UpdateProfileRequest) (*user.User, error) {
	s.updated = append(s.updated, req)
	return &user.User{ClerkID: clerkID}, nil
}

func (s *stubUsers) UpdateEmailVerification(ctx context.Context, clerkID string, verified bool) error {
	s.verified[clerkID] = verified
	return nil
}

func (s *stubUsers) DeleteUserByClerkID(ctx context.Context, clerkID string) error {
	return s.deleteErr
}

func (s *stubUsers) GetUserByClerkID(ctx context.Context, clerkID string) (*user.User, error) {
	return &user.User{ClerkID: clerkID}, nil
}

func (s *stubUsers) GetFriends(ctx context.Context, clerkID string) ([]*user.User, error) {
	return []*user.User{}, nil
}

func (s *stubUsers) AddFriend(ctx context.Context, clerkID string, friendClerkID string) error {
	return s.addFriendErr
}

func (s *stubUsers) RemoveFriend(ctx context.Context, clerkID string, friendClerkID string) error {
	return nil
}

func TestAddFriend(t *testing.T) {
	users := newStubUsers()
	h := NewUserHandler(users)

	rec := httptest.NewRecorder()
	h.AddFriend(rec, authed(httptest.NewRequest(http.MethodPost, "/api/v1/user/friends", strings.NewReader(`{"friendId":"user_2"}`)), "user_1"))
	assert.Equal(t, http.StatusCreated, rec.Code)

	rec = httptest.NewRecorder()
	h.AddFriend(rec, authed(httptest.NewRequest(http.MethodPost, "/api/v1/user/friends", strings.NewReader(`{"friendId":"  "}`)), "user_1"))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	users.addFriendErr = services.ErrFriendshipExists
	rec = httptest.NewRecorder()
	h.AddFriend(rec, authed(httptest.NewRequest(http.MethodPost, "/api/v1/user/friends", strings.NewReader(`{"friendId":"user_2"}`)), "user_1"))
	assert.Equal(t, http.StatusConflict, rec.Code)

	users.addFriendErr = services.ErrSelfFriend
	rec = httptest.NewRecorder()
	h.AddFriend(rec, authed(httptest.NewRequest(http.MethodPost, "/api/v1/user/friends", strings.NewReader(`{"friendId":"user_1"}`)), "user_1"))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

const userCreatedBody = `{
	"type": "user.created",
	"object": "event",
	"data": {
		"id": "user_abc",
		"first_name": "Ada",
		"last_name": "Lovelace",
		"profile_image_url": "https://img.example/ada.png",
		"primary_email_address_id": "em_2",
		"email_addresses": [
			{"id": "em_1", "email_address": "old@example.com", "verification": {"status": "unverified"}},
			{"id": "em_2", "email_address": "ada@example.com", "verification": {"status": "verified"}}
		]
	}
}`

func TestClerkWebhookUserCreated(t *testing.T) {
	users := newStubUsers()
	h := NewWebhookHandler(users, "")

	rec := httptest.NewRecorder()
	h.HandleClerkWebhook(rec, httptest.NewRequest(http.MethodPost, "/webhooks/clerk", strings.NewReader(userCreatedBody)))

	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, users.created, 1)
	created := users.created[0]
	assert.Equal(t, "user_abc", created.ClerkID)
	assert.Equal(t, "ada@example.com", created.Email)
	assert.Equal(t, "AdaLovelace", created.Username)
	assert.Equal(t, "https://img.example/ada.png", created.ImageURL)
	assert.True(t, users.verified["user_abc"])
}

func TestClerkWebhookRejectsBadSignature(t *testing.T) {
	users := newStubUsers()
	h := NewWebhookHandler(users, "whsec_c2VjcmV0")

	req := httptest.NewRequest(http.MethodPost, "/webhooks/clerk", strings.NewReader(userCreatedBody))
	req.Header.Set("svix-id", "msg_1")
	req.Header.Set("svix-timestamp", "1700000000")
	req.Header.Set("svix-signature", "v1,bm9wZQ==")
	h.now = func() time.Time { return time.Unix(1_700_000_000, 0) }

	rec := httptest.NewRecorder()
	h.HandleClerkWebhook(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Empty(t, users.created)
}

func TestClerkWebhookDeleteIsIdempotent(t *testing.T) {
	users := newStubUsers()
	users.deleteErr = services.ErrUserNotFound
	h := NewWebhookHandler(users, "")

	rec := httptest.NewRecorder()
	body := `{"type":"user.deleted","data":{"id":"user_gone","deleted":true}}`
	h.HandleClerkWebhook(rec, httptest.NewRequest(http.MethodPost, "/webhooks/clerk", strings.NewReader(body)))
	assert.Equal(t, http.StatusOK, rec.Code)

	users.deleteErr = errors.New("connection reset")
	rec = httptest.NewRecorder()
	h.HandleClerkWebhook(rec, httptest.NewRequest(http.MethodPost, "/webhooks/clerk", strings.NewReader(body)))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestClerkWebhookIgnoresUnknownEvents(t *testing.T) {
	users := newStubUsers()
	h := NewWebhookHandler(users, "")

	rec := httptest.NewRecorder()
	h.HandleClerkWebhook(rec, httptest.NewRequest(http.MethodPost, "/webhooks/clerk", strings.NewReader(`{"type":"session.created","data":{}}`)))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, users.created)
	assert.Empty(t, users.updated)
}
