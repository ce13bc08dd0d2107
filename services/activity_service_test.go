package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fitSquadAPI/internal/activity"
	"fitSquadAPI/internal/types/points"
)

type memActivityRepo struct {
	mu        sync.Mutex
	workouts  []*activity.Workout
	meals     []*activity.Meal
	failWrite error
}

func (r *memActivityRepo) InsertWorkout(_ context.Context, w *activity.Workout) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failWrite != nil {
		return r.failWrite
	}
	w.CreatedAt = fixedNow
	r.workouts = append(r.workouts, w)
	return nil
}

func (r *memActivityRepo) InsertMeal(_ context.Context, m *activity.Meal) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failWrite != nil {
		return r.failWrite
	}
	m.CreatedAt = fixedNow
	r.meals = append(r.meals, m)
	return nil
}

func (r *memActivityRepo) ListWorkouts(_ context.Context, userID uuid.UUID, limit int) ([]*activity.Workout, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []*activity.Workout{}
	for i := len(r.workouts) - 1; i >= 0 && len(out) < limit; i-- {
		if r.workouts[i].UserID == userID {
			out = append(out, r.workouts[i])
		}
	}
	return out, nil
}

func (r *memActivityRepo) ListMeals(_ context.Context, userID uuid.UUID, from, to time.Time) ([]*activity.Meal, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []*activity.Meal{}
	for i := len(r.meals) - 1; i >= 0; i-- {
		m := r.meals[i]
		if m.UserID == userID && !m.EatenAt.Before(from) && m.EatenAt.Before(to) {
			out = append(out, m)
		}
	}
	return out, nil
}

// countingProcessor wires a real GamificationService to the in-memory
// activity rows so counts track what was logged.
type countingProcessor struct {
	svc   *GamificationService
	store *memStore
	calls []points.ActionKind
	err   error
}

func (p *countingProcessor) ProcessActivity(ctx context.Context, userID uuid.UUID, kind points.ActionKind) (*ActivityResult, error) {
	p.calls = append(p.calls, kind)
	if p.err != nil {
		return nil, p.err
	}
	switch kind {
	case points.ActionWorkoutComplete:
		p.store.workouts[userID]++
	case points.ActionMealLogged:
		p.store.meals[userID]++
	}
	return p.svc.ProcessActivity(ctx, userID, kind)
}

func newTestActivityService(t *testing.T) (*ActivityService, *memActivityRepo, *countingProcessor) {
	t.Helper()
	gam, store, _ := newTestGamification(t)
	repo := &memActivityRepo{}
	proc := &countingProcessor{svc: gam, store: store}
	svc := NewActivityService(repo, proc)
	svc.now = func() time.Time { return fixedNow }
	return svc, repo, proc
}

func TestLogWorkoutRunsGamification(t *testing.T) {
	svc, repo, proc := newTestActivityService(t)
	userID := uuid.New()

	res, err := svc.LogWorkout(context.Background(), userID, &activity.LogWorkoutRequest{Type: "run", DurationMinutes: 30})
	require.NoError(t, err)

	assert.Len(t, repo.workouts, 1)
	assert.Equal(t, fixedNow, res.Workout.PerformedAt)
	assert.Empty(t, res.GamificationError)
	require.NotNil(t, res.Gamification)
	assert.Equal(t, 100, res.Gamification.Award.TotalPoints)
	assert.Len(t, res.Gamification.Achievements, 1)
	assert.Equal(t, []points.ActionKind{points.ActionWorkoutComplete}, proc.calls)
}

func TestLogMealReportsGamificationError(t *testing.T) {
	svc, repo, proc := newTestActivityService(t)
	proc.err = errDatastore

	res, err := svc.LogMeal(context.Background(), uuid.New(), &activity.LogMealRequest{Name: "Oats", Calories: 300})
	require.NoError(t, err)

	assert.Len(t, repo.meals, 1)
	assert.Nil(t, res.Gamification)
	assert.Equal(t, errDatastore.Error(), res.GamificationError)
}

func TestLogRejectsInvalidRequest(t *testing.T) {
	svc, repo, proc := newTestActivityService(t)

	_, err := svc.LogWorkout(context.Background(), uuid.New(), &activity.LogWorkoutRequest{})
	assert.ErrorIs(t, err, ErrInvalidActivity)
	assert.ErrorIs(t, err, activity.ErrInvalidRequest)

	_, err = svc.LogMeal(context.Background(), uuid.New(), &activity.LogMealRequest{Name: "x", MealType: "brunch"})
	assert.ErrorIs(t, err, ErrInvalidActivity)

	assert.Empty(t, repo.workouts)
	assert.Empty(t, repo.meals)
	assert.Empty(t, proc.calls)
}

func TestPersistFailureSkipsGamification(t *testing.T) {
	svc, repo, proc := newTestActivityService(t)
	repo.failWrite = errDatastore

	_, err := svc.LogWorkout(context.Background(), uuid.New(), &activity.LogWorkoutRequest{Type: "swim"})
	assert.ErrorIs(t, err, errDatastore)
	assert.Empty(t, proc.calls)
}

func TestNutritionSummaryTotalsOneDay(t *testing.T) {
	svc, _, _ := newTestActivityService(t)
	ctx := context.Background()
	userID := uuid.New()

	yesterday := fixedNow.AddDate(0, 0, -1)
	for _, req := range []*activity.LogMealRequest{
		{Name: "Eggs", MealType: activity.MealBreakfast, Calories: 250, ProteinG: 18, FatG: 17},
		{Name: "Rice bowl", MealType: activity.MealLunch, Calories: 600, ProteinG: 30, CarbsG: 80, FatG: 12},
		{Name: "Late pizza", Calories: 900, EatenAt: &yesterday},
	} {
		_, err := svc.LogMeal(ctx, userID, req)
		require.NoError(t, err)
	}

	summary, err := svc.GetNutritionSummary(ctx, userID, fixedNow)
	require.NoError(t, err)
	assert.Equal(t, "2024-03-10", summary.Date)
	assert.Equal(t, 2, summary.MealCount)
	assert.Equal(t, 850, summary.Calories)
	assert.InDelta(t, 48.0, summary.ProteinG, 0.001)
	assert.InDelta(t, 80.0, summary.CarbsG, 0.001)
	assert.InDelta(t, 29.0, summary.FatG, 0.001)

	meals, err := svc.GetMeals(ctx, userID, yesterday)
	require.NoError(t, err)
	require.Len(t, meals, 1)
	assert.Equal(t, "Late pizza", meals[0].Name)
}
