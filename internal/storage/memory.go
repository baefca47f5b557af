package storage

import (
	"context"
	"sort"
	"sync"

	"backtest-service/internal/model"
)

// MemoryStore keeps results in a mutex-guarded map. Suitable for a
// single-process deployment; concurrent completions serialize on the lock.
type MemoryStore struct {
	mu      sync.RWMutex
	results map[string]model.BacktestResults
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{results: make(map[string]model.BacktestResults)}
}

func (s *MemoryStore) Save(_ context.Context, results *model.BacktestResults) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.results[results.BacktestID] = *results
	return nil
}

func (s *MemoryStore) Get(_ context.Context, backtestID string) (*model.BacktestResults, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.results[backtestID]
	if !ok {
		return nil, ErrNotFound
	}
	return &r, nil
}

func (s *MemoryStore) List(_ context.Context, limit int) ([]model.BacktestSummary, error) {
	s.mu.RLock()
	summaries := make([]model.BacktestSummary, 0, len(s.results))
	for id := range s.results {
		r := s.results[id]
		summaries = append(summaries, r.Summary())
	}
	s.mu.RUnlock()

	// Listing order is completion time, newest first.
	sort.Slice(summaries, func(i, j int) bool {
		return summaries[i].CompletedAt.After(summaries[j].CompletedAt)
	})
	if limit > 0 && len(summaries) > limit {
		summaries = summaries[:limit]
	}
	return summaries, nil
}

func (s *MemoryStore) Delete(_ context.Context, backtestID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.results[backtestID]; !ok {
		return ErrNotFound
	}
	delete(s.results, backtestID)
	return nil
}
