package quiz

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"studyhub/internal/domain"
)

const defaultTickInterval = time.Second

// Snapshot is an immutable view of a controller's state.
type Snapshot struct {
	QuizID           string           `json:"quizId"`
	Phase            domain.Phase     `json:"phase"`
	Cursor           int              `json:"cursor"`
	QuestionCount    int              `json:"questionCount"`
	RemainingSeconds int              `json:"remainingSeconds"`
	Answers          domain.AnswerMap `json:"answers"`
	Result           *domain.Result   `json:"result,omitempty"`
}

// Option configures a Controller.
type Option func(*Controller)

// WithClock overrides time.Now for completion timestamps.
func WithClock(now func() time.Time) Option {
	return func(c *Controller) { c.now = now }
}

// WithTicker overrides the tick source; tests pass a manual ticker.
func WithTicker(factory TickerFactory) Option {
	return func(c *Controller) { c.newTicker = factory }
}

// WithTickInterval changes how often the countdown ticks. Every tick still counts as one second,
// so anything other than the default is only useful to speed up or freeze a countdown in tests.
func WithTickInterval(d time.Duration) Option {
	return func(c *Controller) {
		if d > 0 {
			c.interval = d
		}
	}
}

// WithUserID stamps results with the attempting user.
func WithUserID(userID string) Option {
	return func(c *Controller) { c.userID = userID }
}

// OnComplete registers a hook invoked exactly once when the attempt completes.
func OnComplete(fn func(domain.Result)) Option {
	return func(c *Controller) { c.onComplete = fn }
}

// OnTick registers a hook invoked after every countdown tick.
func OnTick(fn func(Snapshot)) Option {
	return func(c *Controller) { c.onTick = fn }
}

// Controller owns one quiz attempt: phase, answers, cursor and countdown.
// All exported methods are safe for concurrent use. Hooks run outside the state lock but never
// concurrently with Start, Submit or a tick, so no tick hook is delivered once Submit has returned.
// Hooks must not call back into Start, Submit or Close.
type Controller struct {
	quiz      domain.Quiz
	attemptID string
	userID    string
	now       func() time.Time
	newTicker TickerFactory
	interval  time.Duration

	onComplete func(domain.Result)
	onTick     func(Snapshot)
	hookMu     sync.Mutex

	mu        sync.Mutex
	phase     domain.Phase
	answers   domain.AnswerMap
	cursor    int
	remaining int
	result    *domain.Result
	timer     *Timer
}

func NewController(quiz domain.Quiz, opts ...Option) *Controller {
	c := &Controller{
		quiz:      quiz,
		attemptID: uuid.NewString(),
		now:       time.Now,
		newTicker: NewRealTicker,
		interval:  defaultTickInterval,
		answers:   make(domain.AnswerMap),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// AttemptID identifies this attempt.
func (c *Controller) AttemptID() string {
	return c.attemptID
}

// Quiz returns the quiz being attempted.
func (c *Controller) Quiz() domain.Quiz {
	return c.quiz
}

// Start moves NotStarted to Active and begins the countdown.
func (c *Controller) Start() error {
	c.hookMu.Lock()
	defer c.hookMu.Unlock()

	c.mu.Lock()
	if c.phase != domain.PhaseNotStarted {
		c.mu.Unlock()
		return domain.ErrInvalidPhase
	}
	c.phase = domain.PhaseActive
	c.remaining = c.quiz.DurationMinutes * 60
	if c.remaining == 0 {
		// nothing to count down
		c.completeLocked(true)
		result := copyResult(c.result)
		c.mu.Unlock()
		c.notify(result)
		return nil
	}
	c.timer = StartTimer(c.newTicker, c.interval, c.tick)
	c.mu.Unlock()
	return nil
}

// Answer records the selected option for a question, overwriting any earlier choice.
func (c *Controller) Answer(questionID, optionID string) error {
	question, ok := c.quiz.Question(questionID)
	if !ok {
		return domain.ErrQuestionNotFound
	}
	found := false
	for _, opt := range question.Options {
		if opt.ID == optionID {
			found = true
			break
		}
	}
	if !found {
		return domain.ErrOptionNotFound
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.phase != domain.PhaseActive {
		return domain.ErrInvalidPhase
	}
	c.answers[questionID] = optionID
	return nil
}

// Navigate moves the question cursor, clamped to the question range, and returns the new position.
func (c *Controller) Navigate(index int) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	last := len(c.quiz.Questions) - 1
	switch {
	case last < 0, index < 0:
		index = 0
	case index > last:
		index = last
	}
	c.cursor = index
	return c.cursor
}

// Submit completes the attempt and scores it. Once completed it returns the stored result.
func (c *Controller) Submit() (domain.Result, error) {
	c.hookMu.Lock()
	defer c.hookMu.Unlock()

	c.mu.Lock()
	switch c.phase {
	case domain.PhaseNotStarted:
		c.mu.Unlock()
		return domain.Result{}, domain.ErrInvalidPhase
	case domain.PhaseCompleted:
		result := copyResult(c.result)
		c.mu.Unlock()
		return result, nil
	}
	c.completeLocked(false)
	result := copyResult(c.result)
	timer := c.timer
	c.mu.Unlock()

	if timer != nil {
		timer.Stop()
	}
	c.notify(result)
	return result, nil
}

// Snapshot returns the current state.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

// Close stops the countdown and waits for the tick loop to exit. It must not be called from a hook.
func (c *Controller) Close() {
	c.mu.Lock()
	timer := c.timer
	c.mu.Unlock()
	if timer == nil {
		return
	}
	timer.Stop()
	<-timer.Done()
}

func (c *Controller) tick() bool {
	c.hookMu.Lock()
	defer c.hookMu.Unlock()

	c.mu.Lock()
	if c.phase != domain.PhaseActive {
		c.mu.Unlock()
		return false
	}
	if c.remaining > 0 {
		c.remaining--
	}
	expired := c.remaining == 0
	if expired {
		c.completeLocked(true)
	}
	snap := c.snapshotLocked()
	c.mu.Unlock()

	if c.onTick != nil {
		c.onTick(snap)
	}
	if expired {
		c.notify(*snap.Result)
		return false
	}
	return true
}

func (c *Controller) completeLocked(auto bool) {
	correct, total, score := Grade(c.quiz.Questions, c.answers)
	c.phase = domain.PhaseCompleted
	c.result = &domain.Result{
		AttemptID:        c.attemptID,
		QuizID:           c.quiz.ID,
		UserID:           c.userID,
		Score:            score,
		Correct:          correct,
		Total:            total,
		Answers:          c.answers.Clone(),
		RemainingSeconds: c.remaining,
		AutoSubmitted:    auto,
		CompletedAt:      c.now(),
	}
}

func (c *Controller) notify(result domain.Result) {
	if c.onComplete != nil {
		c.onComplete(result)
	}
}

func (c *Controller) snapshotLocked() Snapshot {
	snap := Snapshot{
		QuizID:           c.quiz.ID,
		Phase:            c.phase,
		Cursor:           c.cursor,
		QuestionCount:    len(c.quiz.Questions),
		RemainingSeconds: c.remaining,
		Answers:          c.answers.Clone(),
	}
	if c.result != nil {
		r := copyResult(c.result)
		snap.Result = &r
	}
	return snap
}

func copyResult(r *domain.Result) domain.Result {
	out := *r
	out.Answers = r.Answers.Clone()
	return out
}
