package cli

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"studyhub/internal/api"
	"studyhub/internal/app"
	"studyhub/internal/config"
	"studyhub/internal/discussion"
	"studyhub/internal/domain"
	"studyhub/internal/infra/memory"
	pgstore "studyhub/internal/infra/postgres"
	redisstore "studyhub/internal/infra/redis"
	transport "studyhub/internal/transport/http"
)

// backends holds the optional stores named in the config. Nil fields are not configured.
type backends struct {
	client *api.Client
	redis  *redis.Client
	pool   *pgxpool.Pool
}

func openBackends(ctx context.Context, cfg config.Config, log *slog.Logger) (*backends, error) {
	b := &backends{}
	if cfg.Upstream.BaseURL != "" {
		b.client = api.New(cfg.Upstream.BaseURL,
			api.WithServiceToken(cfg.Upstream.ServiceToken),
			api.WithTimeout(config.TTLDuration(cfg.Upstream.Timeout, 10*time.Second)),
		)
	}
	if cfg.Redis.Addr != "" {
		b.redis = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := b.redis.Ping(ctx).Err(); err != nil {
			b.close()
			return nil, fmt.Errorf("redis ping: %w", err)
		}
		log.Info("redis connected", "addr", cfg.Redis.Addr)
	}
	if cfg.Postgres.URL != "" {
		pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			b.close()
			return nil, fmt.Errorf("postgres connect: %w", err)
		}
		b.pool = pool
		log.Info("postgres connected")
	}
	return b, nil
}

func (b *backends) close() {
	if b.redis != nil {
		_ = b.redis.Close()
	}
	if b.pool != nil {
		b.pool.Close()
	}
}

// quizLoader prefers the local quiz bank, then the platform API, then the built-in demo quizzes.
func (b *backends) quizLoader() memory.QuizLoader {
	switch {
	case b.pool != nil:
		return pgstore.NewQuizLoader(b.pool)
	case b.client != nil:
		return b.client
	}
	return memory.NewStaticQuizLoader(demoQuizzes())
}

func (b *backends) quizRepository(cfg config.Config) app.QuizRepository {
	ttl := config.TTLDuration(cfg.Quiz.TTL, 10*time.Minute)
	if b.redis != nil {
		return redisstore.NewQuizRepository(b.redis, b.quizLoader(), ttl)
	}
	return memory.NewQuizRepository(b.quizLoader(), ttl)
}

func (b *backends) attemptRepository() app.AttemptRepository {
	return memory.NewAttemptStore()
}

// attemptLease lets several gateway instances share one Redis without running the same attempt twice.
func (b *backends) attemptLease(cfg config.Config) app.Lease {
	if b.redis == nil {
		return nil
	}
	return redisstore.NewAttemptLease(b.redis, config.TTLDuration(cfg.Redis.Lease, 2*time.Minute))
}

// resultSinks fans results out to every configured store. The returned history serves
// GET /api/results from the most durable store available.
func (b *backends) resultSinks(cfg config.Config, log *slog.Logger) (*app.MultiSink, transport.ResultHistory) {
	sink := app.NewMultiSink(log)
	if b.client != nil {
		sink.Add("platform", b.client)
	}
	var journal *pgstore.ResultJournal
	if b.pool != nil {
		journal = pgstore.NewResultJournal(b.pool)
		sink.Add("journal", journal)
	}
	var cache *redisstore.ResultCache
	if b.redis != nil {
		cache = redisstore.NewResultCache(b.redis, config.TTLDuration(cfg.Redis.TTL, 24*time.Hour))
		sink.Add("cache", cache)
	}

	switch {
	case journal != nil:
		return sink, journal
	case cache != nil:
		return sink, cache
	}
	local := memory.NewResultLog()
	sink.Add("local", local)
	return sink, local
}

func (b *backends) feedFactory(cfg config.Config, log *slog.Logger) app.FeedFactory {
	if cfg.Upstream.FeedURL == "" {
		return nil
	}
	return func(sc domain.SessionContext) *discussion.Feed {
		return discussion.NewFeed(cfg.Upstream.FeedURL, sc, discussion.WithLogger(log))
	}
}

// demoQuizzes back the quiz commands when neither the platform nor a quiz bank is configured.
func demoQuizzes() map[string]domain.Quiz {
	return map[string]domain.Quiz{
		"go-basics": {
			ID:              "go-basics",
			Title:           "Go basics",
			DurationMinutes: 5,
			Questions: []domain.Question{
				{
					ID:     "q1",
					Prompt: "Which keyword starts a goroutine?",
					Options: []domain.Option{
						{ID: "o1", Text: "async", Correct: false},
						{ID: "o2", Text: "go", Correct: true},
						{ID: "o3", Text: "spawn", Correct: false},
					},
				},
				{
					ID:     "q2",
					Prompt: "What does a receive from a closed channel return?",
					Options: []domain.Option{
						{ID: "o1", Text: "It panics", Correct: false},
						{ID: "o2", Text: "It blocks forever", Correct: false},
						{ID: "o3", Text: "The zero value, immediately", Correct: true},
					},
				},
				{
					ID:     "q3",
					Prompt: "Which type is safe for concurrent map access without extra locking?",
					Options: []domain.Option{
						{ID: "o1", Text: "sync.Map", Correct: true},
						{ID: "o2", Text: "map[string]any", Correct: false},
					},
				},
			},
		},
	}
}
