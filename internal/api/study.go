package api

import (
	"context"
	"net/http"
	"net/url"

	"studyhub/internal/domain"
)

func (c *Client) ListStudySessions(ctx context.Context, sc domain.SessionContext) ([]domain.StudySession, error) {
	var sessions []domain.StudySession
	if err := c.do(ctx, sc, http.MethodGet, "/study-sessions", nil, nil, &sessions); err != nil {
		return nil, err
	}
	return sessions, nil
}

func (c *Client) CreateStudySession(ctx context.Context, sc domain.SessionContext, in domain.StudySessionInput) (domain.StudySession, error) {
	var created domain.StudySession
	if err := c.do(ctx, sc, http.MethodPost, "/study-sessions", nil, in, &created); err != nil {
		return domain.StudySession{}, err
	}
	return created, nil
}

func (c *Client) UpdateStudySession(ctx context.Context, sc domain.SessionContext, id string, in domain.StudySessionInput) (domain.StudySession, error) {
	var updated domain.StudySession
	if err := c.do(ctx, sc, http.MethodPut, "/study-sessions/"+url.PathEscape(id), nil, in, &updated); err != nil {
		return domain.StudySession{}, err
	}
	return updated, nil
}

func (c *Client) DeleteStudySession(ctx context.Context, sc domain.SessionContext, id string) error {
	return c.do(ctx, sc, http.MethodDelete, "/study-sessions/"+url.PathEscape(id), nil, nil, nil)
}

// StudyStats fetches aggregate totals for the caller.
func (c *Client) StudyStats(ctx context.Context, sc domain.SessionContext) (domain.StudyStats, error) {
	var stats domain.StudyStats
	if err := c.do(ctx, sc, http.MethodGet, "/study-sessions/stats", nil, nil, &stats); err != nil {
		return domain.StudyStats{}, err
	}
	return stats, nil
}
