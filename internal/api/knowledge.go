package api

import (
	"context"
	"net/http"
	"net/url"

	"studyhub/internal/domain"
)

// SearchKnowledge lists knowledge entities, filtered by a free-text query when given.
func (c *Client) SearchKnowledge(ctx context.Context, sc domain.SessionContext, query string) ([]domain.KnowledgeEntity, error) {
	var params url.Values
	if query != "" {
		params = url.Values{"q": {query}}
	}
	var entities []domain.KnowledgeEntity
	if err := c.do(ctx, sc, http.MethodGet, "/knowledge", params, nil, &entities); err != nil {
		return nil, err
	}
	return entities, nil
}

// Summarize requests an AI-generated summary for a query or a thread.
func (c *Client) Summarize(ctx context.Context, sc domain.SessionContext, req domain.SummaryRequest) (domain.Summary, error) {
	var summary domain.Summary
	if err := c.do(ctx, sc, http.MethodPost, "/knowledge/summary", nil, req, &summary); err != nil {
		return domain.Summary{}, err
	}
	return summary, nil
}
