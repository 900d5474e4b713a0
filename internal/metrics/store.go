// Package metrics aggregates per-account dedup counters.
package metrics

import (
	"sync"
	"time"
)

type AccountStats struct {
	Recorded   int64 `json:"recorded"`
	Duplicates int64 `json:"duplicates"`
	Misses     int64 `json:"misses"`
}

type Store struct {
	mu        sync.RWMutex
	byAccount map[string]AccountStats
	updatedAt map[string]time.Time
	limit     int
}

func NewStore(limit int) *Store {
	if limit <= 0 {
		limit = 5000
	}
	return &Store{
		byAccount: make(map[string]AccountStats),
		updatedAt: make(map[string]time.Time),
		limit:     limit,
	}
}

func (s *Store) AddRecorded(accountID string) {
	s.bump(accountID, func(st *AccountStats) { st.Recorded++ })
}

func (s *Store) AddDuplicate(accountID string) {
	s.bump(accountID, func(st *AccountStats) { st.Duplicates++ })
}

func (s *Store) AddMiss(accountID string) {
	s.bump(accountID, func(st *AccountStats) { st.Misses++ })
}

func (s *Store) bump(accountID string, apply func(*AccountStats)) {
	if accountID == "" {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.byAccount[accountID]
	apply(&st)
	s.byAccount[accountID] = st
	s.updatedAt[accountID] = time.Now().UTC()
	if len(s.byAccount) > s.limit {
		s.evictOldest()
	}
}

func (s *Store) Get(accountID string) (AccountStats, time.Time, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st, ok := s.byAccount[accountID]
	if !ok {
		return AccountStats{}, time.Time{}, false
	}
	return st, s.updatedAt[accountID], true
}

func (s *Store) GetAll() map[string]AccountStats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]AccountStats, len(s.byAccount))
	for accountID, st := range s.byAccount {
		out[accountID] = st
	}
	return out
}

func (s *Store) evictOldest() {
	var oldestAccount string
	var oldest time.Time
	for accountID, ts := range s.updatedAt {
		if oldestAccount == "" || ts.Before(oldest) {
			oldestAccount = accountID
			oldest = ts
		}
	}
	if oldestAccount != "" {
		delete(s.byAccount, oldestAccount)
		delete(s.updatedAt, oldestAccount)
	}
}

func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byAccount = make(map[string]AccountStats)
	s.updatedAt = make(map[string]time.Time)
}
