// Package apitest runs an in-process fake of the study platform API and live feed for tests.
package apitest

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"studyhub/internal/domain"
)

// Platform is a fake upstream. Seed its exported fields before issuing requests.
type Platform struct {
	Server *httptest.Server

	mu         sync.Mutex
	quizzes    map[string]domain.Quiz
	threads    []domain.Thread
	courses    []domain.Course
	topics     map[string][]domain.Topic
	knowledge  []domain.KnowledgeEntity
	sessions   map[string]domain.StudySession
	attempts   []domain.Result
	failStatus map[string]int
	nextID     int
	requests   []string

	upgrader    websocket.Upgrader
	subscribers map[chan domain.ThreadEvent]string
}

func NewPlatform() *Platform {
	p := &Platform{
		quizzes:     make(map[string]domain.Quiz),
		topics:      make(map[string][]domain.Topic),
		sessions:    make(map[string]domain.StudySession),
		failStatus:  make(map[string]int),
		subscribers: make(map[chan domain.ThreadEvent]string),
		upgrader:    websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }},
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /quizzes/{id}", p.getQuiz)
	mux.HandleFunc("POST /quizzes/{id}/attempts", p.postAttempt)
	mux.HandleFunc("GET /threads", p.listThreads)
	mux.HandleFunc("DELETE /threads/{id}", p.deleteThread)
	mux.HandleFunc("GET /courses", p.listCourses)
	mux.HandleFunc("GET /courses/{id}/topics", p.listTopics)
	mux.HandleFunc("GET /knowledge", p.searchKnowledge)
	mux.HandleFunc("POST /knowledge/summary", p.summarize)
	mux.HandleFunc("GET /study-sessions", p.listSessions)
	mux.HandleFunc("POST /study-sessions", p.createSession)
	mux.HandleFunc("PUT /study-sessions/{id}", p.updateSession)
	mux.HandleFunc("DELETE /study-sessions/{id}", p.deleteSession)
	mux.HandleFunc("GET /study-sessions/stats", p.stats)
	mux.HandleFunc("GET /live", p.live)
	p.Server = httptest.NewServer(p.record(mux))
	return p
}

func (p *Platform) Close() {
	p.mu.Lock()
	for ch := range p.subscribers {
		close(ch)
		delete(p.subscribers, ch)
	}
	p.mu.Unlock()
	p.Server.Close()
}

// URL is the REST base URL.
func (p *Platform) URL() string { return p.Server.URL }

// FeedURL is the websocket live feed URL.
func (p *Platform) FeedURL() string {
	return "ws" + strings.TrimPrefix(p.Server.URL, "http") + "/live"
}

func (p *Platform) AddQuiz(q domain.Quiz) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.quizzes[q.ID] = q
}

func (p *Platform) SetThreads(threads []domain.Thread) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.threads = append([]domain.Thread(nil), threads...)
}

func (p *Platform) SetCourses(courses []domain.Course, topics map[string][]domain.Topic) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.courses = courses
	if topics != nil {
		p.topics = topics
	}
}

func (p *Platform) SetKnowledge(entities []domain.KnowledgeEntity) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.knowledge = entities
}

// Fail makes every request whose "METHOD path" starts with prefix answer with status.
func (p *Platform) Fail(prefix string, status int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.failStatus[prefix] = status
}

// Attempts returns the results recorded so far.
func (p *Platform) Attempts() []domain.Result {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]domain.Result(nil), p.attempts...)
}

// Requests returns every "METHOD path?query" seen, in order.
func (p *Platform) Requests() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.requests...)
}

// Subscribers reports the number of connected live feed clients.
func (p *Platform) Subscribers() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.subscribers)
}

// Publish sends an event to every live feed subscriber.
func (p *Platform) Publish(evt domain.ThreadEvent) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for ch := range p.subscribers {
		ch <- evt
	}
}

func (p *Platform) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		line := r.Method + " " + r.URL.Path
		p.mu.Lock()
		if r.URL.RawQuery != "" {
			p.requests = append(p.requests, line+"?"+r.URL.RawQuery)
		} else {
			p.requests = append(p.requests, line)
		}
		status := 0
		for prefix, s := range p.failStatus {
			if strings.HasPrefix(line, prefix) {
				status = s
			}
		}
		p.mu.Unlock()
		if status != 0 {
			writeJSON(w, status, map[string]string{"message": "injected failure"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (p *Platform) getQuiz(w http.ResponseWriter, r *http.Request) {
	p.mu.Lock()
	quiz, ok := p.quizzes[r.PathValue("id")]
	p.mu.Unlock()
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"message": "quiz not found"})
		return
	}
	writeJSON(w, http.StatusOK, quiz)
}

func (p *Platform) postAttempt(w http.ResponseWriter, r *http.Request) {
	var result domain.Result
	if err := json.NewDecoder(r.Body).Decode(&result); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": err.Error()})
		return
	}
	p.mu.Lock()
	p.attempts = append(p.attempts, result)
	p.mu.Unlock()
	w.WriteHeader(http.StatusCreated)
}

func (p *Platform) listThreads(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	needle := strings.ToLower(q.Get("q"))
	limit, _ := strconv.Atoi(q.Get("limit"))
	page, _ := strconv.Atoi(q.Get("page"))
	if page < 1 {
		page = 1
	}

	p.mu.Lock()
	var matched []domain.Thread
	for _, t := range p.threads {
		if c := q.Get("courseId"); c != "" && t.CourseID != c {
			continue
		}
		if tp := q.Get("topicId"); tp != "" && t.TopicID != tp {
			continue
		}
		if needle != "" && !strings.Contains(strings.ToLower(t.Title), needle) {
			continue
		}
		matched = append(matched, t)
	}
	p.mu.Unlock()

	total := len(matched)
	if limit > 0 {
		start := (page - 1) * limit
		if start > len(matched) {
			start = len(matched)
		}
		end := start + limit
		if end > len(matched) {
			end = len(matched)
		}
		matched = matched[start:end]
	}
	writeJSON(w, http.StatusOK, domain.ThreadPage{Threads: matched, Page: page, Total: total})
}

func (p *Platform) deleteThread(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	p.mu.Lock()
	defer p.mu.Unlock()
	for i, t := range p.threads {
		if t.ID == id {
			p.threads = append(p.threads[:i], p.threads[i+1:]...)
			w.WriteHeader(http.StatusNoContent)
			return
		}
	}
	writeJSON(w, http.StatusNotFound, map[string]string{"message": "thread not found"})
}

func (p *Platform) listCourses(w http.ResponseWriter, _ *http.Request) {
	p.mu.Lock()
	defer p.mu.Unlock()
	writeJSON(w, http.StatusOK, p.courses)
}

func (p *Platform) listTopics(w http.ResponseWriter, r *http.Request) {
	p.mu.Lock()
	defer p.mu.Unlock()
	writeJSON(w, http.StatusOK, p.topics[r.PathValue("id")])
}

func (p *Platform) searchKnowledge(w http.ResponseWriter, r *http.Request) {
	needle := strings.ToLower(r.URL.Query().Get("q"))
	p.mu.Lock()
	defer p.mu.Unlock()
	out := []domain.KnowledgeEntity{}
	for _, e := range p.knowledge {
		if needle == "" || strings.Contains(strings.ToLower(e.Name), needle) {
			out = append(out, e)
		}
	}
	writeJSON(w, http.StatusOK, out)
}

func (p *Platform) summarize(w http.ResponseWriter, r *http.Request) {
	var req domain.SummaryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || (req.Query == "" && req.ThreadID == "") {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"message": "query or threadId required"})
		return
	}
	subject := req.Query
	if subject == "" {
		subject = "thread " + req.ThreadID
	}
	writeJSON(w, http.StatusOK, domain.Summary{
		Query:       req.Query,
		ThreadID:    req.ThreadID,
		Text:        "Summary of " + subject,
		GeneratedAt: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	})
}

func (p *Platform) listSessions(w http.ResponseWriter, _ *http.Request) {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]domain.StudySession, 0, len(p.sessions))
	for i := 1; i <= p.nextID; i++ {
		if s, ok := p.sessions[strconv.Itoa(i)]; ok {
			out = append(out, s)
		}
	}
	writeJSON(w, http.StatusOK, out)
}

func (p *Platform) createSession(w http.ResponseWriter, r *http.Request) {
	var in domain.StudySessionInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": err.Error()})
		return
	}
	p.mu.Lock()
	p.nextID++
	s := sessionFromInput(strconv.Itoa(p.nextID), in)
	p.sessions[s.ID] = s
	p.mu.Unlock()
	writeJSON(w, http.StatusCreated, s)
}

func (p *Platform) updateSession(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	var in domain.StudySessionInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": err.Error()})
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.sessions[id]; !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"message": "session not found"})
		return
	}
	s := sessionFromInput(id, in)
	p.sessions[id] = s
	writeJSON(w, http.StatusOK, s)
}

func (p *Platform) deleteSession(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.sessions[id]; !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"message": "session not found"})
		return
	}
	delete(p.sessions, id)
	w.WriteHeader(http.StatusNoContent)
}

func (p *Platform) stats(w http.ResponseWriter, _ *http.Request) {
	p.mu.Lock()
	defer p.mu.Unlock()
	var stats domain.StudyStats
	for _, s := range p.sessions {
		stats.SessionCount++
		stats.TotalMinutes += s.DurationMinutes
		if s.Completed {
			stats.CompletedCount++
		}
	}
	writeJSON(w, http.StatusOK, stats)
}

func (p *Platform) live(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "token required"})
		return
	}
	conn, err := p.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	ch := make(chan domain.ThreadEvent, 16)
	p.mu.Lock()
	p.subscribers[ch] = token
	p.mu.Unlock()

	gone := make(chan struct{})
	go func() {
		defer close(gone)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	defer func() {
		p.mu.Lock()
		if _, ok := p.subscribers[ch]; ok {
			delete(p.subscribers, ch)
		}
		p.mu.Unlock()
	}()

	for {
		select {
		case evt, ok := <-ch:
			if !ok {
				_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, ""))
				return
			}
			if err := conn.WriteJSON(evt); err != nil {
				return
			}
		case <-gone:
			return
		}
	}
}

func sessionFromInput(id string, in domain.StudySessionInput) domain.StudySession {
	return domain.StudySession{
		ID:              id,
		CourseID:        in.CourseID,
		Title:           in.Title,
		Notes:           in.Notes,
		StartedAt:       in.StartedAt,
		EndedAt:         in.EndedAt,
		DurationMinutes: in.DurationMinutes,
		Completed:       in.Completed,
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
