package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"studyhub/internal/domain"
)

// LoadQuiz fetches a quiz with its questions and options using the service token.
func (c *Client) LoadQuiz(ctx context.Context, quizID string) (domain.Quiz, error) {
	return c.GetQuiz(ctx, domain.SessionContext{}, quizID)
}

// GetQuiz fetches a quiz on behalf of a user.
func (c *Client) GetQuiz(ctx context.Context, sc domain.SessionContext, quizID string) (domain.Quiz, error) {
	var quiz domain.Quiz
	err := c.do(ctx, sc, http.MethodGet, "/quizzes/"+url.PathEscape(quizID), nil, nil, &quiz)
	if errors.Is(err, domain.ErrNotFound) {
		return domain.Quiz{}, fmt.Errorf("%w: %s", domain.ErrQuizNotFound, quizID)
	}
	return quiz, err
}

// RecordResult persists a completed attempt upstream.
func (c *Client) RecordResult(ctx context.Context, sc domain.SessionContext, result domain.Result) error {
	return c.do(ctx, sc, http.MethodPost, "/quizzes/"+url.PathEscape(result.QuizID)+"/attempts", nil, result, nil)
}
