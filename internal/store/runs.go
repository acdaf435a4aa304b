package store

import (
	"errors"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/i474232898/weather-alert-notifier/internal/alerts"
)

var (
	// ErrNotFound is returned when no run summary matches a query.
	ErrNotFound = errors.New("no alert runs recorded")
)

// RunStore is a concurrency-safe in-memory history of alert run summaries,
// ordered by start time.
type RunStore struct {
	mu   sync.RWMutex
	runs []alerts.RunSummary

	// retention configuration
	maxHistory int           // max number of summaries kept
	maxAge     time.Duration // optional max age, measured from StartedAt
	clock      clockwork.Clock
}

// NewRunStore creates a RunStore with optional limits.
// If maxHistory or maxAge is <= 0, that limit is not applied.
func NewRunStore(maxHistory int, maxAge time.Duration) *RunStore {
	return NewRunStoreWithClock(maxHistory, maxAge, clockwork.NewRealClock())
}

// NewRunStoreWithClock is NewRunStore with an explicit time source for age retention.
func NewRunStoreWithClock(maxHistory int, maxAge time.Duration, clock clockwork.Clock) *RunStore {
	return &RunStore{
		maxHistory: maxHistory,
		maxAge:     maxAge,
		clock:      clock,
	}
}

// Save appends a summary and enforces retention. Disabled runs are not kept.
func (s *RunStore) Save(summary alerts.RunSummary) {
	if summary.Disabled {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Keep ordering by StartedAt even if runs finish out of order.
	i := len(s.runs)
	for i > 0 && s.runs[i-1].StartedAt.After(summary.StartedAt) {
		i--
	}
	s.runs = append(s.runs, alerts.RunSummary{})
	copy(s.runs[i+1:], s.runs[i:])
	s.runs[i] = summary

	// Enforce retention by count.
	if s.maxHistory > 0 && len(s.runs) > s.maxHistory {
		over := len(s.runs) - s.maxHistory
		s.runs = append([]alerts.RunSummary(nil), s.runs[over:]...)
	}

	// Enforce retention by age.
	if s.maxAge > 0 {
		cutoff := s.clock.Now().Add(-s.maxAge)
		i := 0
		for ; i < len(s.runs); i++ {
			if !s.runs[i].StartedAt.Before(cutoff) {
				break
			}
		}
		if i > 0 {
			s.runs = append([]alerts.RunSummary(nil), s.runs[i:]...)
		}
	}
}

// Latest returns the most recently started run.
func (s *RunStore) Latest() (alerts.RunSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(s.runs) == 0 {
		return alerts.RunSummary{}, ErrNotFound
	}
	return s.runs[len(s.runs)-1], nil
}

// Range returns all runs started between from and to (inclusive).
func (s *RunStore) Range(from, to time.Time) ([]alerts.RunSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []alerts.RunSummary
	for _, run := range s.runs {
		if !run.StartedAt.Before(from) && !run.StartedAt.After(to) {
			result = append(result, run)
		}
	}

	if len(result) == 0 {
		return nil, ErrNotFound
	}
	return result, nil
}

// Len reports how many summaries are retained.
func (s *RunStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.runs)
}
