package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"studyhub/internal/app"
	"studyhub/internal/auth"
	"studyhub/internal/domain"
)

// Catalog lists the courses and topics used to scope discussion views.
type Catalog interface {
	ListCourses(ctx context.Context, sc domain.SessionContext) ([]domain.Course, error)
	ListTopics(ctx context.Context, sc domain.SessionContext, courseID string) ([]domain.Topic, error)
}

// ResultHistory lists a user's completed attempts.
type ResultHistory interface {
	ForUser(ctx context.Context, userID string) ([]domain.Result, error)
}

// Deps are the use cases served by the gateway. Nil services disable their routes.
type Deps struct {
	Quiz        *app.QuizService
	Discussions *app.DiscussionService
	Knowledge   *app.KnowledgeService
	Study       *app.StudyService
	Catalog     Catalog
	History     ResultHistory
	Auth        *auth.Parser
}

// Server is the browser-facing HTTP and websocket gateway.
type Server struct {
	deps     Deps
	log      *slog.Logger
	debounce time.Duration
	upgrader websocket.Upgrader
}

type ServerOption func(*Server)

func WithLogger(l *slog.Logger) ServerOption {
	return func(s *Server) { s.log = l }
}

// WithSearchDebounce sets the quiet window for websocket searches.
func WithSearchDebounce(d time.Duration) ServerOption {
	return func(s *Server) { s.debounce = d }
}

func NewServer(deps Deps, opts ...ServerOption) *Server {
	if deps.Auth == nil {
		deps.Auth = auth.NewParser("")
	}
	s := &Server{
		deps:     deps,
		log:      slog.Default(),
		debounce: 300 * time.Millisecond,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Routes builds the gateway mux.
func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if s.deps.Quiz != nil {
		mux.HandleFunc("GET /ws/quiz", s.ServeQuiz)
	}
	if s.deps.Discussions != nil {
		mux.HandleFunc("GET /ws/threads", s.ServeThreads)
	}
	if s.deps.Knowledge != nil {
		mux.HandleFunc("GET /ws/knowledge", s.ServeKnowledge)
		mux.HandleFunc("GET /api/knowledge", s.authed(s.searchKnowledge))
		mux.HandleFunc("POST /api/summary", s.authed(s.summarize))
	}
	if s.deps.Catalog != nil {
		mux.HandleFunc("GET /api/courses", s.authed(s.listCourses))
		mux.HandleFunc("GET /api/courses/{id}/topics", s.authed(s.listTopics))
	}
	if s.deps.Study != nil {
		mux.HandleFunc("GET /api/study-sessions", s.authed(s.listStudySessions))
		mux.HandleFunc("POST /api/study-sessions", s.authed(s.createStudySession))
		mux.HandleFunc("PUT /api/study-sessions/{id}", s.authed(s.updateStudySession))
		mux.HandleFunc("DELETE /api/study-sessions/{id}", s.authed(s.deleteStudySession))
		mux.HandleFunc("GET /api/study-stats", s.authed(s.studyStats))
	}
	if s.deps.History != nil {
		mux.HandleFunc("GET /api/results", s.authed(s.listResults))
	}
	return s.logRequests(mux)
}

type authedHandler func(w http.ResponseWriter, r *http.Request, sc domain.SessionContext)

func (s *Server) authed(next authedHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sc, err := s.deps.Auth.FromRequest(r)
		if err != nil {
			writeError(w, err)
			return
		}
		next(w, r, sc)
	}
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.log.Debug("request", "method", r.Method, "path", r.URL.Path, "took", time.Since(start))
	})
}

// statusFor maps domain errors to HTTP statuses.
func statusFor(err error) int {
	var netErr *domain.NetworkError
	switch {
	case errors.Is(err, domain.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrInvalidPhase), errors.Is(err, domain.ErrAttemptConflict):
		return http.StatusConflict
	case errors.As(err, &netErr):
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

type errorPayload struct {
	Message string `json:"message"`
}

func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, statusFor(err), errorPayload{Message: err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		_ = json.NewEncoder(w).Encode(v)
	}
}
