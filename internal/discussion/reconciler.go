package discussion

import (
	"sync"

	"studyhub/internal/domain"
)

// Reconciler keeps a locally loaded page of threads approximately in sync with the live feed.
// Events are applied in arrival order by scanning for the thread id; the list is never reloaded
// in response to an event, so it can drift from server-side ordering under heavy activity.
type Reconciler struct {
	mu      sync.RWMutex
	threads []domain.Thread
}

func NewReconciler(threads []domain.Thread) *Reconciler {
	r := &Reconciler{}
	r.Reset(threads)
	return r
}

// Reset replaces the loaded page, e.g. after a search or page change.
func (r *Reconciler) Reset(threads []domain.Thread) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.threads = append([]domain.Thread(nil), threads...)
}

// Threads returns a copy of the current list.
func (r *Reconciler) Threads() []domain.Thread {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]domain.Thread(nil), r.threads...)
}

// Apply patches the list with a single event and reports whether anything changed.
func (r *Reconciler) Apply(event domain.ThreadEvent) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	switch event.Type {
	case domain.EventThreadCreated:
		if event.Thread == nil {
			return false
		}
		r.threads = append([]domain.Thread{*event.Thread}, r.threads...)
		return true

	case domain.EventThreadUpdated:
		if event.Thread == nil {
			return false
		}
		i := r.indexLocked(event.Thread.ID)
		if i < 0 {
			return false
		}
		r.threads[i] = *event.Thread
		return true

	case domain.EventThreadDeleted:
		i := r.indexLocked(event.TargetID())
		if i < 0 {
			return false
		}
		r.threads = append(r.threads[:i], r.threads[i+1:]...)
		return true

	case domain.EventReplyCreated:
		i := r.indexLocked(event.TargetID())
		if i < 0 {
			return false
		}
		r.threads[i].ReplyCount++
		ts := event.Timestamp
		if ts.IsZero() && event.Reply != nil {
			ts = event.Reply.CreatedAt
		}
		r.threads[i].LastActivityAt = ts
		return true
	}
	return false
}

func (r *Reconciler) indexLocked(id string) int {
	if id == "" {
		return -1
	}
	for i := range r.threads {
		if r.threads[i].ID == id {
			return i
		}
	}
	return -1
}
