package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"studyhub/internal/domain"
)

const historyLimit = 50

// ResultCache keeps the latest result per user and quiz plus a capped per-user history.
//
//	SET   quiz:result:{userID}:{quizID} {json} EX ttl
//	LPUSH quiz:results:{userID} {json}; LTRIM 0 49
type ResultCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewResultCache(client *redis.Client, ttl time.Duration) *ResultCache {
	return &ResultCache{client: client, ttl: ttl}
}

func (c *ResultCache) RecordResult(ctx context.Context, _ domain.SessionContext, result domain.Result) error {
	data, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("encode result: %w", err)
	}
	pipe := c.client.TxPipeline()
	pipe.Set(ctx, c.latestKey(result.UserID, result.QuizID), data, c.ttl)
	pipe.LPush(ctx, c.historyKey(result.UserID), data)
	pipe.LTrim(ctx, c.historyKey(result.UserID), 0, historyLimit-1)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("cache result: %w", err)
	}
	return nil
}

// Latest returns the most recent result for a user's quiz.
func (c *ResultCache) Latest(ctx context.Context, userID, quizID string) (domain.Result, error) {
	data, err := c.client.Get(ctx, c.latestKey(userID, quizID)).Bytes()
	if isMiss(err) {
		return domain.Result{}, domain.ErrAttemptNotFound
	}
	if err != nil {
		return domain.Result{}, err
	}
	var result domain.Result
	if err := json.Unmarshal(data, &result); err != nil {
		return domain.Result{}, fmt.Errorf("decode result: %w", err)
	}
	return result, nil
}

// ForUser returns the user's cached results, newest first.
func (c *ResultCache) ForUser(ctx context.Context, userID string) ([]domain.Result, error) {
	raw, err := c.client.LRange(ctx, c.historyKey(userID), 0, -1).Result()
	if err != nil {
		return nil, err
	}
	out := make([]domain.Result, 0, len(raw))
	for _, item := range raw {
		var result domain.Result
		if err := json.Unmarshal([]byte(item), &result); err != nil {
			continue
		}
		out = append(out, result)
	}
	return out, nil
}

func (c *ResultCache) latestKey(userID, quizID string) string {
	return "quiz:result:" + userID + ":" + quizID
}

func (c *ResultCache) historyKey(userID string) string {
	return "quiz:results:" + userID
}
