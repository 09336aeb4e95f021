package app

import (
	"sync"

	"studyhub/internal/domain"
	"studyhub/internal/quiz"
)

// AttemptKey identifies one user's attempt at one quiz.
func AttemptKey(userID, quizID string) string {
	return userID + ":" + quizID
}

// Attempt pairs a quiz controller with the connections watching it.
type Attempt struct {
	key     string
	session domain.SessionContext
	ctrl    *quiz.Controller

	mu          sync.Mutex
	subscribers map[chan quiz.Snapshot]struct{}

	// set before the countdown starts
	heartbeat func(quiz.Snapshot)
}

// NewAttempt is exported for infrastructure layers that need to seed attempts.
func NewAttempt(session domain.SessionContext, q domain.Quiz, opts ...quiz.Option) *Attempt {
	a := &Attempt{
		key:         AttemptKey(session.UserID, q.ID),
		session:     session,
		subscribers: make(map[chan quiz.Snapshot]struct{}),
	}
	opts = append([]quiz.Option{quiz.WithUserID(session.UserID), quiz.OnTick(a.tick)}, opts...)
	a.ctrl = quiz.NewController(q, opts...)
	return a
}

func (a *Attempt) Key() string                    { return a.key }
func (a *Attempt) Controller() *quiz.Controller   { return a.ctrl }
func (a *Attempt) Session() domain.SessionContext { return a.session }

// Idle reports whether the attempt is completed and nobody is watching it.
func (a *Attempt) Idle() bool {
	a.mu.Lock()
	watchers := len(a.subscribers)
	a.mu.Unlock()
	return watchers == 0 && a.ctrl.Snapshot().Phase == domain.PhaseCompleted
}

// Publish pushes the current state to every subscriber.
func (a *Attempt) Publish() quiz.Snapshot {
	snap := a.ctrl.Snapshot()
	a.broadcast(snap)
	return snap
}

func (a *Attempt) subscribe() (<-chan quiz.Snapshot, func()) {
	ch := make(chan quiz.Snapshot, 8)

	a.mu.Lock()
	a.subscribers[ch] = struct{}{}
	a.mu.Unlock()

	ch <- a.ctrl.Snapshot()

	cancel := func() {
		a.mu.Lock()
		if _, ok := a.subscribers[ch]; ok {
			delete(a.subscribers, ch)
			close(ch)
		}
		a.mu.Unlock()
	}
	return ch, cancel
}

func (a *Attempt) tick(snap quiz.Snapshot) {
	a.broadcast(snap)
	if a.heartbeat != nil {
		a.heartbeat(snap)
	}
}

func (a *Attempt) broadcast(snap quiz.Snapshot) {
	a.mu.Lock()
	defer a.mu.Unlock()
	for ch := range a.subscribers {
		select {
		case ch <- snap:
		default:
			// slow watcher: drop its oldest snapshot, the newest one supersedes it
			select {
			case <-ch:
			default:
			}
			ch <- snap
		}
	}
}
