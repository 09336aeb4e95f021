package discussion

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"studyhub/internal/domain"
)

// ConnState is the live feed connection state.
type ConnState int

const (
	StateConnecting ConnState = iota
	StateOpen
	StateClosed
)

func (s ConnState) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateOpen:
		return "open"
	case StateClosed:
		return "closed"
	}
	return "unknown"
}

var errFeedRunning = errors.New("feed already running")

type listener[T any] struct {
	fn     func(T)
	active atomic.Bool
}

// registry keeps listeners in attach order.
type registry[T any] struct {
	mu    sync.Mutex
	items []*listener[T]
}

func (r *registry[T]) add(fn func(T)) func() {
	l := &listener[T]{fn: fn}
	l.active.Store(true)
	r.mu.Lock()
	r.items = append(r.items, l)
	r.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			l.active.Store(false)
			r.mu.Lock()
			defer r.mu.Unlock()
			for i, item := range r.items {
				if item == l {
					r.items = append(r.items[:i], r.items[i+1:]...)
					break
				}
			}
		})
	}
}

func (r *registry[T]) emit(v T) {
	r.mu.Lock()
	items := append([]*listener[T](nil), r.items...)
	r.mu.Unlock()
	for _, l := range items {
		if l.active.Load() {
			l.fn(v)
		}
	}
}

func (r *registry[T]) len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.items)
}

// FeedOption configures a Feed.
type FeedOption func(*Feed)

// WithDialer overrides the websocket dialer.
func WithDialer(d *websocket.Dialer) FeedOption {
	return func(f *Feed) { f.dialer = d }
}

// WithLogger sets the feed logger.
func WithLogger(l *slog.Logger) FeedOption {
	return func(f *Feed) { f.log = l }
}

// Feed is a client for the platform's live discussion event stream.
// Events are dispatched on the read goroutine in the order they were received.
type Feed struct {
	endpoint string
	session  domain.SessionContext
	dialer   *websocket.Dialer
	log      *slog.Logger

	mu      sync.Mutex
	state   ConnState
	running bool

	events registry[domain.ThreadEvent]
	states registry[ConnState]
}

// NewFeed prepares a feed for the given endpoint, keyed by the session's token.
// Until Run is called the feed reports StateClosed.
func NewFeed(endpoint string, session domain.SessionContext, opts ...FeedOption) *Feed {
	f := &Feed{
		endpoint: endpoint,
		session:  session,
		dialer:   websocket.DefaultDialer,
		log:      slog.Default(),
		state:    StateClosed,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// State returns the current connection state.
func (f *Feed) State() ConnState {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

// OnEvent attaches an event listener. The returned detach func is idempotent.
func (f *Feed) OnEvent(fn func(domain.ThreadEvent)) (detach func()) {
	return f.events.add(fn)
}

// OnState attaches a connection state observer. The returned detach func is idempotent.
func (f *Feed) OnState(fn func(ConnState)) (detach func()) {
	return f.states.add(fn)
}

// Listeners reports how many event listeners are attached.
func (f *Feed) Listeners() int {
	return f.events.len()
}

// Run connects and dispatches events until ctx is cancelled or the connection fails.
// It does not reconnect. A cancelled context is not an error.
func (f *Feed) Run(ctx context.Context) error {
	f.mu.Lock()
	if f.running {
		f.mu.Unlock()
		return errFeedRunning
	}
	f.running = true
	f.mu.Unlock()
	defer func() {
		f.mu.Lock()
		f.running = false
		f.mu.Unlock()
	}()

	f.setState(StateConnecting)
	defer f.setState(StateClosed)

	target, err := f.url()
	if err != nil {
		return err
	}
	conn, _, err := f.dialer.DialContext(ctx, target, nil)
	if err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return &domain.NetworkError{Op: "dial live feed", Err: err}
	}
	defer conn.Close()

	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), deadlineSoon())
			conn.Close()
		case <-stop:
		}
	}()

	f.setState(StateOpen)
	f.log.Info("live feed open", "endpoint", f.endpoint, "user_id", f.session.UserID)

	for {
		var event domain.ThreadEvent
		if err := conn.ReadJSON(&event); err != nil {
			if ctx.Err() != nil || websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return nil
			}
			if isDecodeError(err) {
				f.log.Warn("dropping malformed feed event", "err", err)
				continue
			}
			return &domain.NetworkError{Op: "read live feed", Err: err}
		}
		f.events.emit(event)
	}
}

func isDecodeError(err error) bool {
	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	return errors.As(err, &syntaxErr) || errors.As(err, &typeErr)
}

func deadlineSoon() time.Time {
	return time.Now().Add(time.Second)
}

func (f *Feed) setState(s ConnState) {
	f.mu.Lock()
	if f.state == s {
		f.mu.Unlock()
		return
	}
	f.state = s
	f.mu.Unlock()
	f.states.emit(s)
}

func (f *Feed) url() (string, error) {
	u, err := url.Parse(f.endpoint)
	if err != nil {
		return "", fmt.Errorf("parse feed url: %w", err)
	}
	if f.session.Token != "" {
		q := u.Query()
		q.Set("token", f.session.Token)
		u.RawQuery = q.Encode()
	}
	return u.String(), nil
}

// AttachWhenOpen defers attaching fn until the feed reports StateOpen, attaching immediately if it
// already is. Detaching removes both the pending observer and the listener; it is idempotent.
func AttachWhenOpen(f *Feed, fn func(domain.ThreadEvent)) (detach func()) {
	var (
		mu          sync.Mutex
		detached    bool
		detachEvent func()
	)
	attach := func() {
		mu.Lock()
		defer mu.Unlock()
		if detached || detachEvent != nil {
			return
		}
		detachEvent = f.OnEvent(fn)
	}

	detachState := f.OnState(func(s ConnState) {
		if s == StateOpen {
			attach()
		}
	})
	if f.State() == StateOpen {
		attach()
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			detachState()
			mu.Lock()
			detached = true
			if detachEvent != nil {
				detachEvent()
			}
			mu.Unlock()
		})
	}
}
