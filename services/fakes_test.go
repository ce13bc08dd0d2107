package services

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/google/uuid"

	"fitSquadAPI/internal/achievement"
	"fitSquadAPI/internal/leaderboard"
	"fitSquadAPI/internal/notification"
	"fitSquadAPI/internal/types/points"
	"fitSquadAPI/internal/types/streak"
)

var errDatastore = errors.New("datastore unavailable")

// memStore is an in-memory GamificationStore. Documents are copied on the
// way in and out so tests observe only what was saved.
type memStore struct {
	mu       sync.Mutex
	ledgers  map[uuid.UUID]points.Ledger
	streaks  map[uuid.UUID]streak.Streak
	badges   map[uuid.UUID][]*achievement.Badge
	workouts map[uuid.UUID]int
	meals    map[uuid.UUID]int
	names    map[uuid.UUID]string

	failSaveLedger error
	failSaveStreak error
	failCount      error
	ledgerSaves    int
	streakSaves    int
}

func newMemStore() *memStore {
	return &memStore{
		ledgers:  map[uuid.UUID]points.Ledger{},
		streaks:  map[uuid.UUID]streak.Streak{},
		badges:   map[uuid.UUID][]*achievement.Badge{},
		workouts: map[uuid.UUID]int{},
		meals:    map[uuid.UUID]int{},
		names:    map[uuid.UUID]string{},
	}
}

func copyLedger(l points.Ledger) *points.Ledger {
	l.History = append([]points.HistoryEntry{}, l.History...)
	return &l
}

func copyStreak(s streak.Streak) *streak.Streak {
	s.History = append([]streak.HistoryEntry{}, s.History...)
	if s.LastActivityDate != nil {
		d := *s.LastActivityDate
		s.LastActivityDate = &d
	}
	return &s
}

func (m *memStore) FindLedger(_ context.Context, userID uuid.UUID) (*points.Ledger, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.ledgers[userID]
	if !ok {
		return nil, nil
	}
	return copyLedger(l), nil
}

func (m *memStore) GetOrCreateLedger(_ context.Context, userID uuid.UUID) (*points.Ledger, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.ledgers[userID]
	if !ok {
		l = *points.NewLedger(userID, fixedNow)
		m.ledgers[userID] = l
	}
	return copyLedger(l), nil
}

func (m *memStore) SaveLedger(_ context.Context, l *points.Ledger) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failSaveLedger != nil {
		return m.failSaveLedger
	}
	m.ledgers[l.UserID] = *copyLedger(*l)
	m.ledgerSaves++
	return nil
}

func (m *memStore) TopLedgers(_ context.Context, limit int) ([]leaderboard.Row, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rows := make([]leaderboard.Row, 0, len(m.ledgers))
	for id, l := range m.ledgers {
		rows = append(rows, leaderboard.Row{
			UserID:       id,
			FirstName:    m.names[id],
			TotalPoints:  l.TotalPoints,
			Level:        l.Level,
			HistoryCount: len(l.History),
		})
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].TotalPoints > rows[j].TotalPoints })
	if len(rows) > limit {
		rows = rows[:limit]
	}
	return rows, nil
}

func (m *memStore) FindStreak(_ context.Context, userID uuid.UUID) (*streak.Streak, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.streaks[userID]
	if !ok {
		return nil, nil
	}
	return copyStreak(s), nil
}

func (m *memStore) GetOrCreateStreak(_ context.Context, userID uuid.UUID) (*streak.Streak, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.streaks[userID]
	if !ok {
		s = *streak.NewStreak(userID, fixedNow)
		m.streaks[userID] = s
	}
	return copyStreak(s), nil
}

func (m *memStore) SaveStreak(_ context.Context, s *streak.Streak) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failSaveStreak != nil {
		return m.failSaveStreak
	}
	m.streaks[s.UserID] = *copyStreak(*s)
	m.streakSaves++
	return nil
}

func (m *memStore) ListBadges(_ context.Context, userID uuid.UUID) ([]*achievement.Badge, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	held := m.badges[userID]
	out := make([]*achievement.Badge, 0, len(held))
	for i := len(held) - 1; i >= 0; i-- {
		out = append(out, held[i])
	}
	return out, nil
}

func (m *memStore) CreateBadge(_ context.Context, b *achievement.Badge) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.badges[b.UserID] {
		if existing.Name == b.Name {
			return false, nil
		}
	}
	m.badges[b.UserID] = append(m.badges[b.UserID], b)
	return true, nil
}

func (m *memStore) CountWorkouts(_ context.Context, userID uuid.UUID) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failCount != nil {
		return 0, m.failCount
	}
	return m.workouts[userID], nil
}

func (m *memStore) CountMeals(_ context.Context, userID uuid.UUID) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failCount != nil {
		return 0, m.failCount
	}
	return m.meals[userID], nil
}

// recordingSink collects notifications and optionally fails or panics.
type recordingSink struct {
	mu       sync.Mutex
	requests []*notification.CreateNotificationRequest
	err      error
	panics   bool
}

func (r *recordingSink) CreateNotification(_ context.Context, req *notification.CreateNotificationRequest) (*notification.Notification, error) {
	r.mu.Lock()
	r.requests = append(r.requests, req)
	r.mu.Unlock()
	if r.panics {
		panic("sink exploded")
	}
	if r.err != nil {
		return nil, r.err
	}
	return &notification.Notification{ID: uuid.New(), UserID: req.UserID, Type: req.Type, Body: req.Message}, nil
}

func (r *recordingSink) types() []notification.NotificationType {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]notification.NotificationType, 0, len(r.requests))
	for _, req := range r.requests {
		out = append(out, req.Type)
	}
	return out
}

// countingCache is an in-memory LeaderboardCache.
type countingCache struct {
	mu            sync.Mutex
	entries       map[int][]*leaderboard.LeaderboardEntry
	hits          int
	invalidations int
}

func newCountingCache() *countingCache {
	return &countingCache{entries: map[int][]*leaderboard.LeaderboardEntry{}}
}

func (c *countingCache) Get(_ context.Context, limit int) ([]*leaderboard.LeaderboardEntry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[limit]
	if ok {
		c.hits++
	}
	return e, ok
}

func (c *countingCache) Set(_ context.Context, limit int, entries []*leaderboard.LeaderboardEntry) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[limit] = entries
}

func (c *countingCache) Invalidate(context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = map[int][]*leaderboard.LeaderboardEntry{}
	c.invalidations++
}
