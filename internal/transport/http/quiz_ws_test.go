package http

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"studyhub/internal/app"
	"studyhub/internal/auth"
	"studyhub/internal/infra/memory"
	"studyhub/internal/quiz"
)

func newQuizServer(t *testing.T) (*httptest.Server, *memory.ResultLog) {
	t.Helper()
	results := memory.NewResultLog()
	quizRepo := memory.NewQuizRepository(memory.NewStaticQuizLoader(sampleQuiz()), time.Minute)
	service := app.NewQuizService(memory.NewAttemptStore(), quizRepo, results,
		app.WithControllerOptions(quiz.WithTickInterval(time.Hour)))
	t.Cleanup(service.Wait)

	srv := NewServer(Deps{Quiz: service, History: results, Auth: auth.NewParser(testSecret)})
	server := httptest.NewServer(srv.Routes())
	t.Cleanup(server.Close)
	return server, results
}

func TestQuizSocketRequiresToken(t *testing.T) {
	server, _ := newQuizServer(t)

	u := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws/quiz?quizId=quiz-1"
	_, resp, err := websocket.DefaultDialer.Dial(u, nil)
	if err == nil {
		t.Fatalf("expected handshake to fail")
	}
	if resp == nil || resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %+v", resp)
	}
}

func TestQuizSocketFlow(t *testing.T) {
	server, results := newQuizServer(t)
	conn := dial(t, server, "/ws/quiz?quizId=quiz-1&token="+tokenFor(t, "u1"))
	defer conn.Close()

	_, view := readNext(conn, t, "quiz")
	questions := view["questions"].([]any)
	if len(questions) != 2 {
		t.Fatalf("expected 2 questions, got %d", len(questions))
	}
	opt := questions[0].(map[string]any)["options"].([]any)[0].(map[string]any)
	if _, leaked := opt["correct"]; leaked {
		t.Fatalf("answer key must not be sent to the client")
	}

	_, state := readNext(conn, t, "state")
	if state["phase"] != "not_started" {
		t.Fatalf("expected not_started, got %v", state["phase"])
	}

	send(t, conn, map[string]any{"type": "start"})
	state = readUntil(conn, t, "state")
	if state["phase"] != "active" || state["remainingSeconds"].(float64) != 600 {
		t.Fatalf("unexpected state after start: %v", state)
	}

	send(t, conn, map[string]any{"type": "answer", "payload": map[string]any{"questionId": "q1", "optionId": "o1"}})
	readUntil(conn, t, "state")
	send(t, conn, map[string]any{"type": "answer", "payload": map[string]any{"questionId": "q1", "optionId": "o2"}})
	state = readUntil(conn, t, "state")
	if state["answers"].(map[string]any)["q1"] != "o2" {
		t.Fatalf("expected overwritten answer, got %v", state["answers"])
	}

	send(t, conn, map[string]any{"type": "answer", "payload": map[string]any{"questionId": "q9", "optionId": "o1"}})
	errPayload := readUntil(conn, t, "error")
	if !strings.Contains(errPayload["message"].(string), "question") {
		t.Fatalf("unexpected error: %v", errPayload)
	}

	send(t, conn, map[string]any{"type": "navigate", "payload": map[string]any{"index": 9}})
	state = readUntil(conn, t, "state")
	if state["cursor"].(float64) != 1 {
		t.Fatalf("expected clamped cursor, got %v", state["cursor"])
	}

	send(t, conn, map[string]any{"type": "submit"})
	result := readUntil(conn, t, "result")
	if result["score"].(float64) != 50 || result["autoSubmitted"] != false {
		t.Fatalf("unexpected result: %v", result)
	}

	send(t, conn, map[string]any{"type": "start"})
	readUntil(conn, t, "error")
}

func TestQuizSocketResumesAttempt(t *testing.T) {
	server, _ := newQuizServer(t)
	token := tokenFor(t, "u1")

	first := dial(t, server, "/ws/quiz?quizId=quiz-1&token="+token)
	readNext(first, t, "quiz")
	readNext(first, t, "state")
	send(t, first, map[string]any{"type": "start"})
	readUntil(first, t, "state")
	send(t, first, map[string]any{"type": "answer", "payload": map[string]any{"questionId": "q2", "optionId": "o1"}})
	readUntil(first, t, "state")
	first.Close()

	second := dial(t, server, "/ws/quiz?quizId=quiz-1&token="+token)
	defer second.Close()
	readNext(second, t, "quiz")
	_, state := readNext(second, t, "state")
	if state["phase"] != "active" || state["answers"].(map[string]any)["q2"] != "o1" {
		t.Fatalf("expected resumed attempt, got %v", state)
	}
}

func TestQuizSocketUnknownQuiz(t *testing.T) {
	server, _ := newQuizServer(t)
	conn := dial(t, server, "/ws/quiz?quizId=nope&token="+tokenFor(t, "u1"))
	defer conn.Close()

	_, payload := readNext(conn, t, "error")
	if !strings.Contains(payload["message"].(string), "not found") {
		t.Fatalf("unexpected error: %v", payload)
	}
}

func send(t *testing.T, conn *websocket.Conn, msg map[string]any) {
	t.Helper()
	if err := conn.WriteJSON(msg); err != nil {
		t.Fatalf("write %v: %v", msg["type"], err)
	}
}
