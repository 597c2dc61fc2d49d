// Package admission derives "new member" and "rate-limited member" status
// from per-user join history and aggregated abuse scores.
package admission

import (
	"sync"
)

// UserState is one user's cross-group record. Scores only grow via external
// score reporting; this package reads them.
type UserState struct {
	// Detected maps group id to the unix time of the last punishment there.
	Detected map[int64]int64
	// Score maps sibling-agent category name to its reported score.
	Score map[string]float64
	// Join maps group id to the unix join time.
	Join map[int64]int64
}

// Store holds per-user state for the process lifetime.
type Store struct {
	mu      sync.RWMutex
	users   map[int64]*UserState
	onDirty func()
}

func NewStore(onDirty func()) *Store {
	if onDirty == nil {
		onDirty = func() {}
	}
	return &Store{
		users:   make(map[int64]*UserState),
		onDirty: onDirty,
	}
}

// Get returns a copy of the user's state, or false if unknown.
func (s *Store) Get(uid int64) (UserState, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[uid]
	if !ok {
		return UserState{}, false
	}
	return cloneState(u), true
}

// SumScore returns the user's aggregated score across all categories.
func (s *Store) SumScore(uid int64) float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[uid]
	if !ok {
		return 0
	}
	var sum float64
	for _, v := range u.Score {
		sum += v
	}
	return sum
}

// RecordJoin notes that the user joined the group at the given time.
func (s *Store) RecordJoin(uid, groupID, when int64) {
	s.mu.Lock()
	u := s.ensure(uid)
	u.Join[groupID] = when
	s.mu.Unlock()
	s.onDirty()
}

// RecordDetected notes a punishment applied to the user in the group.
func (s *Store) RecordDetected(uid, groupID, when int64) {
	s.mu.Lock()
	u := s.ensure(uid)
	u.Detected[groupID] = when
	s.mu.Unlock()
	s.onDirty()
}

// SetScore stores an externally reported score for one category.
func (s *Store) SetScore(uid int64, category string, score float64) {
	s.mu.Lock()
	u := s.ensure(uid)
	u.Score[category] = score
	s.mu.Unlock()
	s.onDirty()
}

// Load replaces the full user map at startup.
func (s *Store) Load(users map[int64]*UserState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users = users
}

func (s *Store) ensure(uid int64) *UserState {
	u, ok := s.users[uid]
	if !ok {
		u = &UserState{
			Detected: make(map[int64]int64),
			Score:    make(map[string]float64),
			Join:     make(map[int64]int64),
		}
		s.users[uid] = u
	}
	return u
}

func cloneState(u *UserState) UserState {
	out := UserState{
		Detected: make(map[int64]int64, len(u.Detected)),
		Score:    make(map[string]float64, len(u.Score)),
		Join:     make(map[int64]int64, len(u.Join)),
	}
	for k, v := range u.Detected {
		out.Detected[k] = v
	}
	for k, v := range u.Score {
		out.Score[k] = v
	}
	for k, v := range u.Join {
		out.Join[k] = v
	}
	return out
}
