package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v4/pgxpool"
	"studyhub/internal/domain"
)

// ResultJournal appends completed attempts to the quiz_attempts table.
type ResultJournal struct {
	pool *pgxpool.Pool
}

func NewResultJournal(pool *pgxpool.Pool) *ResultJournal {
	return &ResultJournal{pool: pool}
}

// RecordResult is idempotent per attempt id.
func (j *ResultJournal) RecordResult(ctx context.Context, _ domain.SessionContext, result domain.Result) error {
	answers, err := json.Marshal(result.Answers)
	if err != nil {
		return fmt.Errorf("marshal answers: %w", err)
	}
	_, err = j.pool.Exec(ctx,
		`INSERT INTO quiz_attempts
			(attempt_id, quiz_id, user_id, score, correct, total, answers, remaining_seconds, auto_submitted, completed_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		 ON CONFLICT (attempt_id) DO NOTHING`,
		result.AttemptID, result.QuizID, result.UserID, result.Score, result.Correct, result.Total,
		answers, result.RemainingSeconds, result.AutoSubmitted, result.CompletedAt)
	if err != nil {
		return fmt.Errorf("insert attempt: %w", err)
	}
	return nil
}

// ForUser lists a user's recorded attempts, newest first.
func (j *ResultJournal) ForUser(ctx context.Context, userID string) ([]domain.Result, error) {
	rows, err := j.pool.Query(ctx,
		`SELECT attempt_id, quiz_id, user_id, score, correct, total, answers, remaining_seconds, auto_submitted, completed_at
		 FROM quiz_attempts WHERE user_id=$1 ORDER BY completed_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("query attempts: %w", err)
	}
	defer rows.Close()

	var out []domain.Result
	for rows.Next() {
		var (
			r       domain.Result
			answers []byte
		)
		if err := rows.Scan(&r.AttemptID, &r.QuizID, &r.UserID, &r.Score, &r.Correct, &r.Total,
			&answers, &r.RemainingSeconds, &r.AutoSubmitted, &r.CompletedAt); err != nil {
			return nil, fmt.Errorf("scan attempt: %w", err)
		}
		if err := json.Unmarshal(answers, &r.Answers); err != nil {
			return nil, fmt.Errorf("unmarshal answers: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
