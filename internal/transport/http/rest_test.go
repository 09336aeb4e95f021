package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"studyhub/internal/api"
	"studyhub/internal/api/apitest"
	"studyhub/internal/app"
	"studyhub/internal/auth"
	"studyhub/internal/domain"
	"studyhub/internal/infra/memory"
)

func newRESTServer(t *testing.T) (*httptest.Server, *memory.ResultLog) {
	t.Helper()
	platform := apitest.NewPlatform()
	t.Cleanup(platform.Close)
	platform.SetCourses([]domain.Course{{ID: "c1", Name: "Go"}}, map[string][]domain.Topic{
		"c1": {{ID: "tp1", CourseID: "c1", Name: "Concurrency"}},
	})
	client := api.New(platform.URL())
	history := memory.NewResultLog()

	srv := NewServer(Deps{
		Knowledge: app.NewKnowledgeService(client),
		Study:     app.NewStudyService(client),
		Catalog:   client,
		History:   history,
		Auth:      auth.NewParser(testSecret),
	})
	server := httptest.NewServer(srv.Routes())
	t.Cleanup(server.Close)
	return server, history
}

func doJSON(t *testing.T, method, url, token string, body any) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode: %v", err)
		}
	}
	req, err := http.NewRequest(method, url, &buf)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, url, err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestHealthz(t *testing.T) {
	server, _ := newRESTServer(t)
	resp := doJSON(t, http.MethodGet, server.URL+"/healthz", "", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
}

func TestCatalogRoutes(t *testing.T) {
	server, _ := newRESTServer(t)

	if resp := doJSON(t, http.MethodGet, server.URL+"/api/courses", "", nil); resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", resp.StatusCode)
	}

	token := tokenFor(t, "u1")
	var courses []domain.Course
	resp := doJSON(t, http.MethodGet, server.URL+"/api/courses", token, nil)
	if err := json.NewDecoder(resp.Body).Decode(&courses); err != nil || len(courses) != 1 {
		t.Fatalf("unexpected courses %v (%v)", courses, err)
	}

	var topics []domain.Topic
	resp = doJSON(t, http.MethodGet, server.URL+"/api/courses/c1/topics", token, nil)
	if err := json.NewDecoder(resp.Body).Decode(&topics); err != nil || len(topics) != 1 || topics[0].Name != "Concurrency" {
		t.Fatalf("unexpected topics %v (%v)", topics, err)
	}
}

func TestStudySessionRoutes(t *testing.T) {
	server, _ := newRESTServer(t)
	token := tokenFor(t, "u1")

	resp := doJSON(t, http.MethodPost, server.URL+"/api/study-sessions", token, map[string]any{"title": ""})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for invalid input, got %d", resp.StatusCode)
	}

	in := domain.StudySessionInput{Title: "Select statements", StartedAt: time.Now().UTC(), DurationMinutes: 30, Completed: true}
	resp = doJSON(t, http.MethodPost, server.URL+"/api/study-sessions", token, in)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}
	var created domain.StudySession
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		t.Fatalf("decode: %v", err)
	}

	var stats domain.StudyStats
	resp = doJSON(t, http.MethodGet, server.URL+"/api/study-stats", token, nil)
	if err := json.NewDecoder(resp.Body).Decode(&stats); err != nil || stats.TotalMinutes != 30 || stats.CompletedCount != 1 {
		t.Fatalf("unexpected stats %+v (%v)", stats, err)
	}

	resp = doJSON(t, http.MethodDelete, server.URL+"/api/study-sessions/"+created.ID, token, nil)
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", resp.StatusCode)
	}
	resp = doJSON(t, http.MethodDelete, server.URL+"/api/study-sessions/"+created.ID, token, nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404 on second delete, got %d", resp.StatusCode)
	}
}

func TestSummaryRequiresSubject(t *testing.T) {
	server, _ := newRESTServer(t)
	resp := doJSON(t, http.MethodPost, server.URL+"/api/summary", tokenFor(t, "u1"), map[string]any{})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

func TestResultsHistory(t *testing.T) {
	server, history := newRESTServer(t)
	_ = history.RecordResult(context.Background(), domain.SessionContext{}, domain.Result{AttemptID: "a1", QuizID: "quiz-1", UserID: "u1", Score: 67})
	_ = history.RecordResult(context.Background(), domain.SessionContext{}, domain.Result{AttemptID: "a2", QuizID: "quiz-1", UserID: "u2", Score: 10})

	var results []domain.Result
	resp := doJSON(t, http.MethodGet, server.URL+"/api/results", tokenFor(t, "u1"), nil)
	if err := json.NewDecoder(resp.Body).Decode(&results); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(results) != 1 || results[0].AttemptID != "a1" {
		t.Fatalf("expected only the caller's results, got %+v", results)
	}
}

func TestStatusFor(t *testing.T) {
	cases := map[error]int{
		domain.ErrValidation:                       http.StatusBadRequest,
		domain.ErrQuizNotFound:                     http.StatusNotFound,
		domain.ErrUnauthorized:                     http.StatusUnauthorized,
		domain.ErrInvalidPhase:                     http.StatusConflict,
		domain.ErrAttemptConflict:                  http.StatusConflict,
		&domain.NetworkError{Op: "x", Status: 503}: http.StatusBadGateway,
	}
	for err, want := range cases {
		if got := statusFor(err); got != want {
			t.Fatalf("statusFor(%v) = %d, want %d", err, got, want)
		}
	}
}

func TestResultsRejectTokenSignedWithAnotherKey(t *testing.T) {
	server, history := newRESTServer(t)
	_ = history.RecordResult(context.Background(), domain.SessionContext{UserID: "victim"},
		domain.Result{AttemptID: "a1", QuizID: "quiz-1", UserID: "victim", Score: 90})

	forged := tokenSignedWith(t, "attacker-key", "victim")
	resp := doJSON(t, http.MethodGet, server.URL+"/api/results", forged, nil)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 for a forged token, got %d", resp.StatusCode)
	}
}
