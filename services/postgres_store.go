package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"fitSquadAPI/internal/achievement"
	"fitSquadAPI/internal/activity"
	"fitSquadAPI/internal/leaderboard"
	"fitSquadAPI/internal/types/points"
	"fitSquadAPI/internal/types/streak"
)

type PostgresStore struct {
	db *pgxpool.Pool
}

func NewPostgresStore(db *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{db: db}
}

// ---------------------------------------------------------
// POINT LEDGERS
// ---------------------------------------------------------

const ledgerColumns = `user_id, total_points, level, history, created_at, updated_at`

func scanLedger(row pgx.Row) (*points.Ledger, error) {
	l := &points.Ledger{}
	var historyJSON []byte

	if err := row.Scan(&l.UserID, &l.TotalPoints, &l.Level, &historyJSON, &l.CreatedAt, &l.UpdatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(historyJSON, &l.History); err != nil {
		return nil, fmt.Errorf("failed to decode point history: %w", err)
	}
	if l.History == nil {
		l.History = []points.HistoryEntry{}
	}
	return l, nil
}

func (s *PostgresStore) FindLedger(ctx context.Context, userID uuid.UUID) (*points.Ledger, error) {
	query := `SELECT ` + ledgerColumns + ` FROM point_ledgers WHERE user_id = $1`

	l, err := scanLedger(s.db.QueryRow(ctx, query, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get point ledger: %w", err)
	}
	return l, nil
}

func (s *PostgresStore) GetOrCreateLedger(ctx context.Context, userID uuid.UUID) (*points.Ledger, error) {
	// The no-op update makes RETURNING yield the existing row on conflict.
	query := `
	INSERT INTO point_ledgers (user_id, total_points, level, history)
	VALUES ($1, 0, 1, '[]'::jsonb)
	ON CONFLICT (user_id) DO UPDATE SET user_id = EXCLUDED.user_id
	RETURNING ` + ledgerColumns

	l, err := scanLedger(s.db.QueryRow(ctx, query, userID))
	if err != nil {
		return nil, fmt.Errorf("failed to get or create point ledger: %w", err)
	}
	return l, nil
}

func (s *PostgresStore) SaveLedger(ctx context.Context, l *points.Ledger) error {
	historyJSON, err := json.Marshal(l.History)
	if err != nil {
		return fmt.Errorf("failed to encode point history: %w", err)
	}

	query := `
	UPDATE point_ledgers
	SET total_points = $2, level = $3, history = $4, updated_at = $5
	WHERE user_id = $1
	`

	result, err := s.db.Exec(ctx, query, l.UserID, l.TotalPoints, l.Level, historyJSON, l.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to save point ledger: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("failed to save point ledger: no ledger for user %s", l.UserID)
	}
	return nil
}

func (s *PostgresStore) TopLedgers(ctx context.Context, limit int) ([]leaderboard.Row, error) {
	query := `
	SELECT
		pl.user_id,
		COALESCE(u.first_name, ''),
		COALESCE(u.last_name, ''),
		COALESCE(u.email, ''),
		u.image_url,
		pl.total_points,
		pl.level,
		jsonb_array_length(pl.history)
	FROM point_ledgers pl
	LEFT JOIN users u ON u.id = pl.user_id
	ORDER BY pl.total_points DESC, pl.updated_at ASC
	LIMIT $1
	`

	rows, err := s.db.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch leaderboard: %w", err)
	}
	defer rows.Close()

	var out []leaderboard.Row
	for rows.Next() {
		var r leaderboard.Row
		if err := rows.Scan(
			&r.UserID,
			&r.FirstName,
			&r.LastName,
			&r.Email,
			&r.ImageURL,
			&r.TotalPoints,
			&r.Level,
			&r.HistoryCount,
		); err != nil {
			return nil, fmt.Errorf("failed to scan leaderboard row: %w", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating leaderboard rows: %w", err)
	}
	return out, nil
}

// ---------------------------------------------------------
// STREAKS
// ---------------------------------------------------------

const streakColumns = `user_id, current_streak, best_streak, last_activity_date, streak_history, created_at, updated_at`

func scanStreak(row pgx.Row) (*streak.Streak, error) {
	st := &streak.Streak{}
	var lastDate *time.Time
	var historyJSON []byte

	if err := row.Scan(
		&st.UserID,
		&st.CurrentStreak,
		&st.BestStreak,
		&lastDate,
		&historyJSON,
		&st.CreatedAt,
		&st.UpdatedAt,
	); err != nil {
		return nil, err
	}
	if lastDate != nil {
		d := localDate(*lastDate)
		st.LastActivityDate = &d
	}
	if err := json.Unmarshal(historyJSON, &st.History); err != nil {
		return nil, fmt.Errorf("failed to decode streak history: %w", err)
	}
	if st.History == nil {
		st.History = []streak.HistoryEntry{}
	}
	return st, nil
}

// localDate re-anchors a DATE column, which pgx returns as UTC midnight, to
// midnight of the same calendar day in server-local time.
func localDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.Local)
}

func (s *PostgresStore) FindStreak(ctx context.Context, userID uuid.UUID) (*streak.Streak, error) {
	query := `SELECT ` + streakColumns + ` FROM streaks WHERE user_id = $1`

	st, err := scanStreak(s.db.QueryRow(ctx, query, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get streak: %w", err)
	}
	return st, nil
}

func (s *PostgresStore) GetOrCreateStreak(ctx context.Context, userID uuid.UUID) (*streak.Streak, error) {
	query := `
	INSERT INTO streaks (user_id, current_streak, best_streak, streak_history)
	VALUES ($1, 0, 0, '[]'::jsonb)
	ON CONFLICT (user_id) DO UPDATE SET user_id = EXCLUDED.user_id
	RETURNING ` + streakColumns

	st, err := scanStreak(s.db.QueryRow(ctx, query, userID))
	if err != nil {
		return nil, fmt.Errorf("failed to get or create streak: %w", err)
	}
	return st, nil
}

func (s *PostgresStore) SaveStreak(ctx context.Context, st *streak.Streak) error {
	historyJSON, err := json.Marshal(st.History)
	if err != nil {
		return fmt.Errorf("failed to encode streak history: %w", err)
	}

	var lastDate *string
	if st.LastActivityDate != nil {
		d := st.LastActivityDate.Format("2006-01-02")
		lastDate = &d
	}

	query := `
	UPDATE streaks
	SET current_streak = $2, best_streak = $3, last_activity_date = $4::date,
		streak_history = $5, updated_at = $6
	WHERE user_id = $1
	`

	result, err := s.db.Exec(ctx, query, st.UserID, st.CurrentStreak, st.BestStreak, lastDate, historyJSON, st.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to save streak: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("failed to save streak: no streak for user %s", st.UserID)
	}
	return nil
}

// ---------------------------------------------------------
// BADGES
// ---------------------------------------------------------

func (s *PostgresStore) ListBadges(ctx context.Context, userID uuid.UUID) ([]*achievement.Badge, error) {
	query := `
	SELECT id, user_id, name, type, description, earned_at
	FROM badges
	WHERE user_id = $1
	ORDER BY earned_at DESC
	`

	rows, err := s.db.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch badges: %w", err)
	}
	defer rows.Close()

	badges := []*achievement.Badge{}
	for rows.Next() {
		b := &achievement.Badge{}
		if err := rows.Scan(&b.ID, &b.UserID, &b.Name, &b.Type, &b.Description, &b.EarnedAt); err != nil {
			return nil, fmt.Errorf("failed to scan badge: %w", err)
		}
		badges = append(badges, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating badges: %w", err)
	}
	return badges, nil
}

func (s *PostgresStore) CreateBadge(ctx context.Context, b *achievement.Badge) (bool, error) {
	query := `
	INSERT INTO badges (id, user_id, name, type, description, earned_at)
	VALUES ($1, $2, $3, $4, $5, $6)
	ON CONFLICT (user_id, name) DO NOTHING
	`

	result, err := s.db.Exec(ctx, query, b.ID, b.UserID, b.Name, b.Type, b.Description, b.EarnedAt)
	if err != nil {
		return false, fmt.Errorf("failed to create badge: %w", err)
	}
	return result.RowsAffected() == 1, nil
}

// ---------------------------------------------------------
// WORKOUTS & MEALS
// ---------------------------------------------------------

func (s *PostgresStore) CountWorkouts(ctx context.Context, userID uuid.UUID) (int, error) {
	var count int
	err := s.db.QueryRow(ctx, `SELECT COUNT(*) FROM workouts WHERE user_id = $1`, userID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count workouts: %w", err)
	}
	return count, nil
}

func (s *PostgresStore) CountMeals(ctx context.Context, userID uuid.UUID) (int, error) {
	var count int
	err := s.db.QueryRow(ctx, `SELECT COUNT(*) FROM meals WHERE user_id = $1`, userID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count meals: %w", err)
	}
	return count, nil
}

func (s *PostgresStore) InsertWorkout(ctx context.Context, w *activity.Workout) error {
	query := `
	INSERT INTO workouts (id, user_id, type, duration_minutes, calories_burned, notes, performed_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7)
	RETURNING created_at
	`

	err := s.db.QueryRow(ctx, query,
		w.ID,
		w.UserID,
		w.Type,
		w.DurationMinutes,
		w.CaloriesBurned,
		w.Notes,
		w.PerformedAt,
	).Scan(&w.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert workout: %w", err)
	}
	return nil
}

func (s *PostgresStore) InsertMeal(ctx context.Context, m *activity.Meal) error {
	query := `
	INSERT INTO meals (id, user_id, name, meal_type, calories, protein_g, carbs_g, fat_g, eaten_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	RETURNING created_at
	`

	err := s.db.QueryRow(ctx, query,
		m.ID,
		m.UserID,
		m.Name,
		m.MealType,
		m.Calories,
		m.ProteinG,
		m.CarbsG,
		m.FatG,
		m.EatenAt,
	).Scan(&m.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert meal: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListWorkouts(ctx context.Context, userID uuid.UUID, limit int) ([]*activity.Workout, error) {
	query := `
	SELECT id, user_id, type, duration_minutes, calories_burned, notes, performed_at, created_at
	FROM workouts
	WHERE user_id = $1
	ORDER BY performed_at DESC
	LIMIT $2
	`

	rows, err := s.db.Query(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch workouts: %w", err)
	}
	defer rows.Close()

	workouts := []*activity.Workout{}
	for rows.Next() {
		w := &activity.Workout{}
		if err := rows.Scan(
			&w.ID,
			&w.UserID,
			&w.Type,
			&w.DurationMinutes,
			&w.CaloriesBurned,
			&w.Notes,
			&w.PerformedAt,
			&w.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan workout: %w", err)
		}
		workouts = append(workouts, w)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating workouts: %w", err)
	}
	return workouts, nil
}

func (s *PostgresStore) ListMeals(ctx context.Context, userID uuid.UUID, from, to time.Time) ([]*activity.Meal, error) {
	query := `
	SELECT id, user_id, name, meal_type, calories, protein_g, carbs_g, fat_g, eaten_at, created_at
	FROM meals
	WHERE user_id = $1 AND eaten_at >= $2 AND eaten_at < $3
	ORDER BY eaten_at DESC
	`

	rows, err := s.db.Query(ctx, query, userID, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch meals: %w", err)
	}
	defer rows.Close()

	meals := []*activity.Meal{}
	for rows.Next() {
		m := &activity.Meal{}
		if err := rows.Scan(
			&m.ID,
			&m.UserID,
			&m.Name,
			&m.MealType,
			&m.Calories,
			&m.ProteinG,
			&m.CarbsG,
			&m.FatG,
			&m.EatenAt,
			&m.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan meal: %w", err)
		}
		meals = append(meals, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating meals: %w", err)
	}
	return meals, nil
}
