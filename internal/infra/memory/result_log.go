package memory

import (
	"context"
	"sync"

	"studyhub/internal/domain"
)

// ResultLog keeps completed results in process; it backs the result history when no database is configured.
type ResultLog struct {
	mu      sync.RWMutex
	results []domain.Result
}

func NewResultLog() *ResultLog {
	return &ResultLog{}
}

func (l *ResultLog) RecordResult(_ context.Context, _ domain.SessionContext, result domain.Result) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	result.Answers = result.Answers.Clone()
	l.results = append(l.results, result)
	return nil
}

// ForUser returns the user's results, newest first.
func (l *ResultLog) ForUser(_ context.Context, userID string) ([]domain.Result, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	var out []domain.Result
	for i := len(l.results) - 1; i >= 0; i-- {
		if l.results[i].UserID == userID {
			out = append(out, l.results[i])
		}
	}
	return out, nil
}
