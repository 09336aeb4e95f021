package discussion

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"studyhub/internal/domain"
)

func TestReconcilerDelete(t *testing.T) {
	r := NewReconciler(abc())
	assert.True(t, r.Apply(domain.ThreadEvent{Type: domain.EventThreadDeleted, ThreadID: "B"}))
	assert.Equal(t, []string{"A", "C"}, ids(r.Threads()))

	assert.False(t, r.Apply(domain.ThreadEvent{Type: domain.EventThreadDeleted, ThreadID: "B"}))
	assert.Equal(t, []string{"A", "C"}, ids(r.Threads()))
}

func TestReconcilerUpdateKeepsPosition(t *testing.T) {
	r := NewReconciler(abc())
	updated := domain.Thread{ID: "B", Title: "B prime", ReplyCount: 4}
	assert.True(t, r.Apply(domain.ThreadEvent{Type: domain.EventThreadUpdated, Thread: &updated}))

	threads := r.Threads()
	assert.Equal(t, []string{"A", "B", "C"}, ids(threads))
	assert.Equal(t, "B prime", threads[1].Title)
	assert.Equal(t, 4, threads[1].ReplyCount)

	ghost := domain.Thread{ID: "Z"}
	assert.False(t, r.Apply(domain.ThreadEvent{Type: domain.EventThreadUpdated, Thread: &ghost}))
	assert.Len(t, r.Threads(), 3)
}

func TestReconcilerCreatePrepends(t *testing.T) {
	r := NewReconciler(abc())
	d := domain.Thread{ID: "D", Title: "D"}
	assert.True(t, r.Apply(domain.ThreadEvent{Type: domain.EventThreadCreated, Thread: &d}))
	assert.Equal(t, []string{"D", "A", "B", "C"}, ids(r.Threads()))
}

func TestReconcilerReplyCreated(t *testing.T) {
	r := NewReconciler(abc())
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	changed := r.Apply(domain.ThreadEvent{
		Type:      domain.EventReplyCreated,
		Reply:     &domain.Reply{ID: "r1", ThreadID: "C"},
		Timestamp: at,
	})
	assert.True(t, changed)
	c := r.Threads()[2]
	assert.Equal(t, 2, c.ReplyCount)
	assert.True(t, c.LastActivityAt.Equal(at))

	assert.False(t, r.Apply(domain.ThreadEvent{
		Type:      domain.EventReplyCreated,
		Reply:     &domain.Reply{ID: "r2", ThreadID: "elsewhere"},
		Timestamp: at,
	}))
}

func TestReconcilerEventsInArrivalOrder(t *testing.T) {
	r := NewReconciler(nil)
	a := domain.Thread{ID: "A"}
	a2 := domain.Thread{ID: "A", Title: "edited"}
	b := domain.Thread{ID: "B"}

	r.Apply(domain.ThreadEvent{Type: domain.EventThreadCreated, Thread: &a})
	r.Apply(domain.ThreadEvent{Type: domain.EventThreadCreated, Thread: &b})
	r.Apply(domain.ThreadEvent{Type: domain.EventThreadUpdated, Thread: &a2})
	r.Apply(domain.ThreadEvent{Type: domain.EventThreadDeleted, Thread: &b})

	threads := r.Threads()
	assert.Equal(t, []string{"A"}, ids(threads))
	assert.Equal(t, "edited", threads[0].Title)
}

func TestReconcilerIgnoresUnknownEvents(t *testing.T) {
	r := NewReconciler(abc())
	assert.False(t, r.Apply(domain.ThreadEvent{Type: "thread_pinned", ThreadID: "A"}))
	assert.False(t, r.Apply(domain.ThreadEvent{Type: domain.EventThreadCreated}))
}

func TestReconcilerCopiesInput(t *testing.T) {
	input := abc()
	r := NewReconciler(input)
	input[0].Title = "mutated"
	assert.Equal(t, "A", r.Threads()[0].Title)
}

func abc() []domain.Thread {
	return []domain.Thread{
		{ID: "A", Title: "A"},
		{ID: "B", Title: "B"},
		{ID: "C", Title: "C", ReplyCount: 1},
	}
}

func ids(threads []domain.Thread) []string {
	out := make([]string, 0, len(threads))
	for _, t := range threads {
		out = append(out, t.ID)
	}
	return out
}
