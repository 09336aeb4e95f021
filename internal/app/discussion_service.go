package app

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"studyhub/internal/debounce"
	"studyhub/internal/discussion"
	"studyhub/internal/domain"
)

// ThreadSource is the slice of the platform API the discussion views need.
type ThreadSource interface {
	ListThreads(ctx context.Context, sc domain.SessionContext, q domain.ThreadQuery) (domain.ThreadPage, error)
	DeleteThread(ctx context.Context, sc domain.SessionContext, threadID string) error
}

// FeedFactory opens a live feed for the caller.
type FeedFactory func(sc domain.SessionContext) *discussion.Feed

// ViewHandlers receive view updates. Both run on background goroutines.
type ViewHandlers struct {
	OnChange func([]domain.Thread)
	OnError  func(error)
	OnState  func(discussion.ConnState)
}

// DiscussionService builds live thread views.
type DiscussionService struct {
	threads  ThreadSource
	newFeed  FeedFactory
	debounce time.Duration
	log      *slog.Logger
}

func NewDiscussionService(threads ThreadSource, newFeed FeedFactory, debounceWindow time.Duration, log *slog.Logger) *DiscussionService {
	if log == nil {
		log = slog.Default()
	}
	return &DiscussionService{threads: threads, newFeed: newFeed, debounce: debounceWindow, log: log}
}

// ThreadView is one caller's page of threads, kept current by the live feed.
type ThreadView struct {
	svc      *DiscussionService
	session  domain.SessionContext
	handlers ViewHandlers
	recon    *discussion.Reconciler
	search   *debounce.Debouncer[string]

	mu    sync.Mutex
	query domain.ThreadQuery

	cancel    context.CancelFunc
	detach    func()
	detachSt  func()
	feedDone  chan struct{}
	closeOnce sync.Once
}

// Open loads the first page and subscribes to the live feed. Listener attachment waits
// for the feed to report open. Close must be called to release the subscription.
func (s *DiscussionService) Open(ctx context.Context, sc domain.SessionContext, q domain.ThreadQuery, h ViewHandlers) (*ThreadView, error) {
	page, err := s.threads.ListThreads(ctx, sc, q)
	if err != nil {
		return nil, err
	}

	v := &ThreadView{
		svc:      s,
		session:  sc,
		handlers: h,
		recon:    discussion.NewReconciler(page.Threads),
		query:    q,
		feedDone: make(chan struct{}),
	}
	v.search = debounce.New(s.debounce, v.runSearch)

	if s.newFeed == nil {
		close(v.feedDone)
		v.detach, v.detachSt, v.cancel = func() {}, func() {}, func() {}
		return v, nil
	}

	feed := s.newFeed(sc)
	v.detach = discussion.AttachWhenOpen(feed, v.onEvent)
	v.detachSt = feed.OnState(func(st discussion.ConnState) {
		if h.OnState != nil {
			h.OnState(st)
		}
	})

	feedCtx, cancel := context.WithCancel(context.Background())
	v.cancel = cancel
	go func() {
		defer close(v.feedDone)
		if err := feed.Run(feedCtx); err != nil {
			s.log.Warn("live feed stopped", "user_id", sc.UserID, "err", err)
			v.fail(err)
		}
	}()
	return v, nil
}

// Threads returns the current reconciled list.
func (v *ThreadView) Threads() []domain.Thread {
	return v.recon.Threads()
}

// Query returns the active query.
func (v *ThreadView) Query() domain.ThreadQuery {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.query
}

// Search schedules a debounced reload with a new free-text query.
func (v *ThreadView) Search(text string) {
	v.search.Trigger(text)
}

// SetPage reloads the given page immediately.
func (v *ThreadView) SetPage(ctx context.Context, page int) error {
	v.mu.Lock()
	q := v.query
	v.mu.Unlock()
	q.Page = page
	return v.reload(ctx, q)
}

// Delete removes a thread upstream, then locally. On failure the list is left untouched.
func (v *ThreadView) Delete(ctx context.Context, threadID string) error {
	if err := v.svc.threads.DeleteThread(ctx, v.session, threadID); err != nil {
		return err
	}
	if v.recon.Apply(domain.ThreadEvent{Type: domain.EventThreadDeleted, ThreadID: threadID}) {
		v.changed()
	}
	return nil
}

// Close detaches listeners, stops the feed and cancels pending searches. Idempotent.
func (v *ThreadView) Close() {
	v.closeOnce.Do(func() {
		v.search.Stop()
		v.detach()
		v.detachSt()
		v.cancel()
		<-v.feedDone
	})
}

func (v *ThreadView) runSearch(text string) {
	v.mu.Lock()
	q := v.query
	v.mu.Unlock()
	q.Query = text
	q.Page = 0
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := v.reload(ctx, q); err != nil {
		v.fail(err)
	}
}

func (v *ThreadView) reload(ctx context.Context, q domain.ThreadQuery) error {
	page, err := v.svc.threads.ListThreads(ctx, v.session, q)
	if err != nil {
		return err
	}
	v.mu.Lock()
	v.query = q
	v.mu.Unlock()
	v.recon.Reset(page.Threads)
	v.changed()
	return nil
}

func (v *ThreadView) onEvent(evt domain.ThreadEvent) {
	if v.recon.Apply(evt) {
		v.changed()
	}
}

func (v *ThreadView) changed() {
	if v.handlers.OnChange != nil {
		v.handlers.OnChange(v.recon.Threads())
	}
}

func (v *ThreadView) fail(err error) {
	if v.handlers.OnError != nil {
		v.handlers.OnError(err)
	}
}
