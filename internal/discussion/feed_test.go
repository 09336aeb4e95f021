package discussion

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"studyhub/internal/domain"
)

// feedServer streams the given events then closes normally, or holds the connection open when hold is set.
func feedServer(t *testing.T, events []domain.ThreadEvent, hold <-chan struct{}) *httptest.Server {
	t.Helper()
	upgrader := websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }}
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("token") != "tok-1" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		_ = conn.WriteMessage(websocket.TextMessage, []byte(`{not json`))
		for _, evt := range events {
			if err := conn.WriteJSON(evt); err != nil {
				return
			}
		}
		if hold != nil {
			<-hold
		}
		_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, "bye"))
		// wait for the client to go away
		_, _, _ = conn.ReadMessage()
	}))
}

func wsURL(server *httptest.Server) string {
	return "ws" + strings.TrimPrefix(server.URL, "http")
}

func TestFeedDeliversEventsInOrderAfterOpen(t *testing.T) {
	thread := domain.Thread{ID: "D", Title: "new"}
	events := []domain.ThreadEvent{
		{Type: domain.EventThreadCreated, Thread: &thread},
		{Type: domain.EventReplyCreated, ThreadID: "D", Timestamp: time.Now().UTC()},
		{Type: domain.EventThreadDeleted, ThreadID: "A"},
	}
	server := feedServer(t, events, nil)
	defer server.Close()

	feed := NewFeed(wsURL(server), domain.SessionContext{UserID: "u1", Token: "tok-1"})

	var mu sync.Mutex
	var states []ConnState
	feed.OnState(func(s ConnState) {
		mu.Lock()
		states = append(states, s)
		mu.Unlock()
	})
	var got []domain.EventType
	detach := AttachWhenOpen(feed, func(e domain.ThreadEvent) {
		mu.Lock()
		got = append(got, e.Type)
		mu.Unlock()
	})
	defer detach()
	assert.Equal(t, 0, feed.Listeners(), "listener attached before open")

	require.NoError(t, feed.Run(context.Background()))

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []domain.EventType{domain.EventThreadCreated, domain.EventReplyCreated, domain.EventThreadDeleted}, got)
	assert.Equal(t, []ConnState{StateConnecting, StateOpen, StateClosed}, states)
	assert.Equal(t, StateClosed, feed.State())
}

func TestFeedDetachStopsDelivery(t *testing.T) {
	hold := make(chan struct{})
	thread := domain.Thread{ID: "X"}
	server := feedServer(t, []domain.ThreadEvent{{Type: domain.EventThreadCreated, Thread: &thread}}, hold)
	defer server.Close()

	feed := NewFeed(wsURL(server), domain.SessionContext{Token: "tok-1"})
	received := make(chan domain.ThreadEvent, 4)
	detach := AttachWhenOpen(feed, func(e domain.ThreadEvent) { received <- e })

	done := make(chan error, 1)
	go func() { done <- feed.Run(context.Background()) }()

	select {
	case <-received:
	case <-time.After(2 * time.Second):
		t.Fatal("no event received")
	}
	assert.Equal(t, 1, feed.Listeners())

	detach()
	detach()
	assert.Equal(t, 0, feed.Listeners())

	close(hold)
	require.NoError(t, <-done)
	assert.Len(t, received, 0)
}

func TestFeedContextCancelClosesCleanly(t *testing.T) {
	hold := make(chan struct{})
	server := feedServer(t, nil, hold)
	defer server.Close()
	defer close(hold)

	feed := NewFeed(wsURL(server), domain.SessionContext{Token: "tok-1"})
	opened := make(chan struct{})
	var once sync.Once
	feed.OnState(func(s ConnState) {
		if s == StateOpen {
			once.Do(func() { close(opened) })
		}
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- feed.Run(ctx) }()

	<-opened
	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("feed did not stop after cancel")
	}
	assert.Equal(t, StateClosed, feed.State())
}

func TestFeedDialFailureIsNetworkError(t *testing.T) {
	server := feedServer(t, nil, nil)
	defer server.Close()

	feed := NewFeed(wsURL(server), domain.SessionContext{Token: "wrong"})
	err := feed.Run(context.Background())
	require.Error(t, err)
	assert.True(t, domain.IsNetwork(err))
	assert.Equal(t, StateClosed, feed.State())
}
