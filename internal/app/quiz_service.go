package app

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"studyhub/internal/domain"
	"studyhub/internal/quiz"
)

// AttemptRepository abstracts where live attempts are kept (in-memory, Redis-marked, etc).
type AttemptRepository interface {
	GetOrCreate(key string, create func() *Attempt) (*Attempt, bool)
	Get(key string) (*Attempt, bool)
	// DeleteIfIdle removes a completed, unwatched attempt and reports whether it did.
	DeleteIfIdle(key string) bool
}

// Lease marks attempts as held by this process so other gateway instances refuse to open them.
// Acquire and Renew return domain.ErrAttemptConflict when another instance holds the key.
type Lease interface {
	Acquire(ctx context.Context, key string) error
	Renew(ctx context.Context, key string) error
	Release(ctx context.Context, key string) error
}

// seconds of countdown between lease renewals
const leaseRenewEvery = 30

// QuizRepository loads quiz content (from cache/backing store).
type QuizRepository interface {
	GetQuiz(ctx context.Context, quizID string) (domain.Quiz, error)
}

// ResultSink persists completed attempts.
type ResultSink interface {
	RecordResult(ctx context.Context, sc domain.SessionContext, result domain.Result) error
}

// QuizOption configures a QuizService.
type QuizOption func(*QuizService)

// WithControllerOptions passes options to every new quiz controller (tick source, interval, clock).
func WithControllerOptions(opts ...quiz.Option) QuizOption {
	return func(s *QuizService) { s.ctrlOpts = append(s.ctrlOpts, opts...) }
}

// WithPersistTimeout bounds each result persistence call.
func WithPersistTimeout(d time.Duration) QuizOption {
	return func(s *QuizService) { s.persistTimeout = d }
}

// WithLease enables cross-instance attempt ownership.
func WithLease(l Lease) QuizOption {
	return func(s *QuizService) { s.lease = l }
}

// WithLogger sets the service logger.
func WithLogger(l *slog.Logger) QuizOption {
	return func(s *QuizService) { s.log = l }
}

// QuizService contains the quiz-taking use cases.
type QuizService struct {
	attempts       AttemptRepository
	quizzes        QuizRepository
	sink           ResultSink
	lease          Lease
	ctrlOpts       []quiz.Option
	persistTimeout time.Duration
	log            *slog.Logger
	pending        sync.WaitGroup
}

func NewQuizService(attempts AttemptRepository, quizzes QuizRepository, sink ResultSink, opts ...QuizOption) *QuizService {
	s := &QuizService{
		attempts:       attempts,
		quizzes:        quizzes,
		sink:           sink,
		persistTimeout: 10 * time.Second,
		log:            slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Open returns the caller's attempt at quizID, creating it on first use.
// Reopening an unfinished attempt resumes it.
func (s *QuizService) Open(ctx context.Context, sc domain.SessionContext, quizID string) (*Attempt, error) {
	key := AttemptKey(sc.UserID, quizID)
	if existing, ok := s.attempts.Get(key); ok {
		return existing, nil
	}
	if s.lease != nil {
		if err := s.lease.Acquire(ctx, key); err != nil {
			if errors.Is(err, domain.ErrAttemptConflict) {
				return nil, err
			}
			s.log.Warn("acquire attempt lease failed", "attempt", key, "err", err)
		}
	}
	q, err := s.quizzes.GetQuiz(ctx, quizID)
	if err != nil {
		if _, ok := s.attempts.Get(key); !ok {
			s.release(key)
		}
		return nil, err
	}

	attempt, created := s.attempts.GetOrCreate(key, func() *Attempt {
		var a *Attempt
		opts := append([]quiz.Option{}, s.ctrlOpts...)
		opts = append(opts, quiz.OnComplete(func(r domain.Result) { s.completed(a, r) }))
		a = NewAttempt(sc, q, opts...)
		if s.lease != nil {
			a.heartbeat = func(snap quiz.Snapshot) {
				if snap.Phase == domain.PhaseActive && snap.RemainingSeconds%leaseRenewEvery == 0 {
					s.renew(key)
				}
			}
		}
		return a
	})
	if created {
		s.log.Info("attempt opened", "quiz_id", quizID, "user_id", sc.UserID, "attempt_id", attempt.ctrl.AttemptID())
	}
	return attempt, nil
}

// Start begins the countdown for the caller's attempt.
func (s *QuizService) Start(ctx context.Context, sc domain.SessionContext, quizID string) (quiz.Snapshot, error) {
	attempt, err := s.lookup(sc, quizID)
	if err != nil {
		return quiz.Snapshot{}, err
	}
	if err := attempt.ctrl.Start(); err != nil {
		return attempt.ctrl.Snapshot(), err
	}
	s.renew(attempt.key)
	return attempt.Publish(), nil
}

// Answer records an answer on the caller's attempt.
func (s *QuizService) Answer(ctx context.Context, sc domain.SessionContext, quizID string, submission domain.AnswerSubmission) (quiz.Snapshot, error) {
	attempt, err := s.lookup(sc, quizID)
	if err != nil {
		return quiz.Snapshot{}, err
	}
	if err := attempt.ctrl.Answer(submission.QuestionID, submission.OptionID); err != nil {
		return attempt.ctrl.Snapshot(), err
	}
	return attempt.Publish(), nil
}

// Navigate moves the caller's question cursor.
func (s *QuizService) Navigate(ctx context.Context, sc domain.SessionContext, quizID string, index int) (quiz.Snapshot, error) {
	attempt, err := s.lookup(sc, quizID)
	if err != nil {
		return quiz.Snapshot{}, err
	}
	attempt.ctrl.Navigate(index)
	return attempt.Publish(), nil
}

// Submit completes the caller's attempt. Repeated submits return the same result.
func (s *QuizService) Submit(ctx context.Context, sc domain.SessionContext, quizID string) (domain.Result, error) {
	attempt, err := s.lookup(sc, quizID)
	if err != nil {
		return domain.Result{}, err
	}
	result, err := attempt.ctrl.Submit()
	if err != nil {
		return domain.Result{}, err
	}
	attempt.Publish()
	return result, nil
}

// Subscribe returns a channel of state snapshots for the caller's attempt.
// The caller must invoke the returned cancel function to avoid leaks.
func (s *QuizService) Subscribe(_ context.Context, sc domain.SessionContext, quizID string) (<-chan quiz.Snapshot, func(), error) {
	attempt, err := s.lookup(sc, quizID)
	if err != nil {
		return nil, nil, err
	}
	ch, cancel := attempt.subscribe()
	return ch, cancel, nil
}

// Leave drops a finished attempt once nobody is watching it. Unfinished attempts keep
// counting down so the caller can reconnect.
func (s *QuizService) Leave(_ context.Context, sc domain.SessionContext, quizID string) {
	s.reap(AttemptKey(sc.UserID, quizID))
}

// Wait blocks until in-flight background work (result persistence, lease updates, cleanup) has finished.
func (s *QuizService) Wait() {
	s.pending.Wait()
}

func (s *QuizService) lookup(sc domain.SessionContext, quizID string) (*Attempt, error) {
	attempt, ok := s.attempts.Get(AttemptKey(sc.UserID, quizID))
	if !ok {
		return nil, domain.ErrAttemptNotFound
	}
	return attempt, nil
}

// completed runs once per attempt. Persistence failures are logged; the local result stands.
func (s *QuizService) completed(a *Attempt, result domain.Result) {
	s.log.Info("attempt completed",
		"quiz_id", result.QuizID,
		"user_id", result.UserID,
		"score", result.Score,
		"auto", result.AutoSubmitted,
	)
	if a == nil {
		return
	}
	a.Publish()

	if s.sink != nil {
		session := a.session
		s.background(func(ctx context.Context) {
			if err := s.sink.RecordResult(ctx, session, result); err != nil {
				s.log.Error("persist result failed", "quiz_id", result.QuizID, "user_id", result.UserID, "err", err)
			}
		})
	}
	// nobody asked for an auto-submit, so nobody may come back to Leave
	if result.AutoSubmitted {
		s.pending.Add(1)
		go func() {
			defer s.pending.Done()
			s.reap(a.key)
		}()
	}
}

// reap removes an idle attempt, stops its countdown and releases its lease.
// It waits for the tick loop, so it must not run on it.
func (s *QuizService) reap(key string) {
	attempt, ok := s.attempts.Get(key)
	if !ok || !s.attempts.DeleteIfIdle(key) {
		return
	}
	attempt.ctrl.Close()
	s.release(key)
}

func (s *QuizService) renew(key string) {
	if s.lease == nil {
		return
	}
	s.background(func(ctx context.Context) {
		if err := s.lease.Renew(ctx, key); err != nil {
			s.log.Warn("renew attempt lease failed", "attempt", key, "err", err)
		}
	})
}

func (s *QuizService) release(key string) {
	if s.lease == nil {
		return
	}
	s.background(func(ctx context.Context) {
		if err := s.lease.Release(ctx, key); err != nil {
			s.log.Warn("release attempt lease failed", "attempt", key, "err", err)
		}
	})
}

func (s *QuizService) background(fn func(ctx context.Context)) {
	s.pending.Add(1)
	go func() {
		defer s.pending.Done()
		ctx, cancel := context.WithTimeout(context.Background(), s.persistTimeout)
		defer cancel()
		fn(ctx)
	}()
}
