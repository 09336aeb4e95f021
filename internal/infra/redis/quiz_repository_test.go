package redis

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"studyhub/internal/domain"
	"studyhub/internal/infra/memory"
)

func TestQuizRepositoryCachesInRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	client := newClient(mr)

	loader := &countingLoader{
		QuizLoader: memory.NewStaticQuizLoader(map[string]domain.Quiz{
			"quiz-1": sampleQuiz(),
		}),
	}
	repo := NewQuizRepository(client, loader, time.Minute)

	quiz, err := repo.GetQuiz(context.Background(), "quiz-1")
	if err != nil {
		t.Fatalf("get quiz: %v", err)
	}
	if quiz.Title != "Arithmetic" || len(quiz.Questions) != 1 {
		t.Fatalf("unexpected quiz: %+v", quiz)
	}
	if loader.calls.Load() != 1 {
		t.Fatalf("expected loader called once, got %d", loader.calls.Load())
	}
	if !mr.Exists("quiz:quiz-1") {
		t.Fatalf("expected quiz stored in redis")
	}
	if ttl := mr.TTL("quiz:quiz-1"); ttl < time.Minute || ttl > time.Minute+6*time.Second {
		t.Fatalf("unexpected ttl %s", ttl)
	}

	// Second call should hit cache, loader not incremented.
	cached, _ := repo.GetQuiz(context.Background(), "quiz-1")
	if loader.calls.Load() != 1 {
		t.Fatalf("expected cache hit, loader calls=%d", loader.calls.Load())
	}
	if !cached.Questions[0].Options[1].Correct {
		t.Fatalf("expected answer key to survive the round trip")
	}

	if err := repo.Invalidate(context.Background(), "quiz-1"); err != nil {
		t.Fatalf("invalidate: %v", err)
	}
	_, _ = repo.GetQuiz(context.Background(), "quiz-1")
	if loader.calls.Load() != 2 {
		t.Fatalf("expected reload after invalidate, calls=%d", loader.calls.Load())
	}
}

func TestQuizRepositoryMissingQuiz(t *testing.T) {
	mr := miniredis.RunT(t)
	repo := NewQuizRepository(newClient(mr), memory.NewStaticQuizLoader(nil), time.Minute)

	_, err := repo.GetQuiz(context.Background(), "nope")
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if mr.Exists("quiz:nope") {
		t.Fatalf("misses must not be cached")
	}
}

func TestQuizRepositoryIgnoresCorruptEntry(t *testing.T) {
	mr := miniredis.RunT(t)
	if err := mr.Set("quiz:quiz-1", "{not json"); err != nil {
		t.Fatalf("seed: %v", err)
	}
	loader := &countingLoader{
		QuizLoader: memory.NewStaticQuizLoader(map[string]domain.Quiz{"quiz-1": sampleQuiz()}),
	}
	repo := NewQuizRepository(newClient(mr), loader, time.Minute)

	if _, err := repo.GetQuiz(context.Background(), "quiz-1"); err != nil {
		t.Fatalf("get quiz: %v", err)
	}
	if loader.calls.Load() != 1 {
		t.Fatalf("expected fallback to loader")
	}
}

type countingLoader struct {
	memory.QuizLoader
	calls atomic.Int32
}

func (l *countingLoader) LoadQuiz(ctx context.Context, quizID string) (domain.Quiz, error) {
	l.calls.Add(1)
	return l.QuizLoader.LoadQuiz(ctx, quizID)
}

func sampleQuiz() domain.Quiz {
	return domain.Quiz{
		ID:              "quiz-1",
		Title:           "Arithmetic",
		DurationMinutes: 5,
		Questions: []domain.Question{
			{
				ID:     "q1",
				Prompt: "What is 2 + 2?",
				Options: []domain.Option{
					{ID: "o1", Text: "3", Correct: false},
					{ID: "o2", Text: "4", Correct: true},
				},
				Points: 1,
			},
		},
	}
}

func newClient(mr *miniredis.Miniredis) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})
}
