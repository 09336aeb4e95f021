package api

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"studyhub/internal/domain"
)

// ListThreads searches and paginates discussion threads.
func (c *Client) ListThreads(ctx context.Context, sc domain.SessionContext, q domain.ThreadQuery) (domain.ThreadPage, error) {
	query := url.Values{}
	if q.CourseID != "" {
		query.Set("courseId", q.CourseID)
	}
	if q.TopicID != "" {
		query.Set("topicId", q.TopicID)
	}
	if q.Query != "" {
		query.Set("q", q.Query)
	}
	if q.Page > 0 {
		query.Set("page", strconv.Itoa(q.Page))
	}
	if q.Limit > 0 {
		query.Set("limit", strconv.Itoa(q.Limit))
	}

	var page domain.ThreadPage
	if err := c.do(ctx, sc, http.MethodGet, "/threads", query, nil, &page); err != nil {
		return domain.ThreadPage{}, err
	}
	return page, nil
}

func (c *Client) DeleteThread(ctx context.Context, sc domain.SessionContext, threadID string) error {
	return c.do(ctx, sc, http.MethodDelete, "/threads/"+url.PathEscape(threadID), nil, nil, nil)
}

func (c *Client) ListCourses(ctx context.Context, sc domain.SessionContext) ([]domain.Course, error) {
	var courses []domain.Course
	if err := c.do(ctx, sc, http.MethodGet, "/courses", nil, nil, &courses); err != nil {
		return nil, err
	}
	return courses, nil
}

func (c *Client) ListTopics(ctx context.Context, sc domain.SessionContext, courseID string) ([]domain.Topic, error) {
	var topics []domain.Topic
	if err := c.do(ctx, sc, http.MethodGet, "/courses/"+url.PathEscape(courseID)+"/topics", nil, nil, &topics); err != nil {
		return nil, err
	}
	return topics, nil
}
