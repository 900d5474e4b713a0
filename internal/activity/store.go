// Package activity keeps a bounded in-memory log of recent cache and
// tracker decisions for inspection over the API.
package activity

import (
	"sync"
	"time"
)

type Kind string

const (
	KindDuplicate Kind = "duplicate_suppressed"
	KindRecorded  Kind = "status_recorded"
	KindPurge     Kind = "purge_sweep"
)

type Event struct {
	Timestamp time.Time `json:"timestamp"`
	Kind      Kind      `json:"kind"`
	AccountID string    `json:"account_id,omitempty"`
	StatusID  string    `json:"status_id,omitempty"`
	ReblogID  string    `json:"reblog_id,omitempty"`
	Removed   int64     `json:"removed,omitempty"`
}

// Store is a fixed-capacity ring of recent events; the oldest entry is
// dropped once the limit is reached.
type Store struct {
	mu    sync.RWMutex
	buf   []Event
	limit int
}

func NewStore(limit int) *Store {
	if limit <= 0 {
		limit = 1000
	}
	return &Store{limit: limit}
}

func (s *Store) Add(ev Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.buf) < s.limit {
		s.buf = append(s.buf, ev)
		return
	}
	copy(s.buf, s.buf[1:])
	s.buf[len(s.buf)-1] = ev
}

func (s *Store) List(limit int) []Event {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if limit <= 0 || limit > len(s.buf) {
		limit = len(s.buf)
	}
	out := make([]Event, 0, limit)
	start := len(s.buf) - limit
	if start < 0 {
		start = 0
	}
	for i := start; i < len(s.buf); i++ {
		out = append(out, s.buf[i])
	}
	return out
}

func (s *Store) Since(ts time.Time) []Event {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Event, 0)
	for _, ev := range s.buf {
		if !ev.Timestamp.Before(ts) {
			out = append(out, ev)
		}
	}
	return out
}

func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.buf = nil
}
