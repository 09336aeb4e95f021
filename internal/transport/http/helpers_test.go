package http

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/gorilla/websocket"
	"studyhub/internal/domain"
)

const testSecret = "gateway-secret"

func tokenFor(t *testing.T, userID string) string {
	t.Helper()
	return tokenSignedWith(t, testSecret, userID)
}

func tokenSignedWith(t *testing.T, secret, userID string) string {
	t.Helper()
	claims := jwt.MapClaims{
		"sub":  userID,
		"name": "User " + userID,
		"exp":  time.Now().Add(time.Hour).Unix(),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return token
}

func dial(t *testing.T, server *httptest.Server, path string) *websocket.Conn {
	t.Helper()
	u := "ws" + strings.TrimPrefix(server.URL, "http") + path
	conn, _, err := websocket.DefaultDialer.Dial(u, nil)
	if err != nil {
		t.Fatalf("dial %s: %v", path, err)
	}
	return conn
}

type wireMessage struct {
	Type    string         `json:"type"`
	Payload map[string]any `json:"payload"`
}

func readNext(conn *websocket.Conn, t *testing.T, expect string) (string, map[string]any) {
	t.Helper()
	var msg wireMessage
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read json: %v", err)
	}
	if expect != "" && msg.Type != expect {
		t.Fatalf("expected type %s, got %s (%v)", expect, msg.Type, msg.Payload)
	}
	return msg.Type, msg.Payload
}

// readUntil skips messages until one of type typ arrives.
func readUntil(conn *websocket.Conn, t *testing.T, typ string) map[string]any {
	t.Helper()
	for i := 0; i < 50; i++ {
		got, payload := readNext(conn, t, "")
		if got == typ {
			return payload
		}
	}
	t.Fatalf("no %s message within 50 reads", typ)
	return nil
}

func sampleQuiz() map[string]domain.Quiz {
	return map[string]domain.Quiz{
		"quiz-1": {
			ID:              "quiz-1",
			Title:           "Arithmetic",
			DurationMinutes: 10,
			Questions: []domain.Question{
				{
					ID:     "q1",
					Prompt: "What is 2 + 2?",
					Options: []domain.Option{
						{ID: "o1", Text: "3", Correct: false},
						{ID: "o2", Text: "4", Correct: true},
						{ID: "o3", Text: "5", Correct: false},
					},
				},
				{
					ID:     "q2",
					Prompt: "What is 3 * 3?",
					Options: []domain.Option{
						{ID: "o1", Text: "9", Correct: true},
						{ID: "o2", Text: "6", Correct: false},
					},
				},
			},
		},
	}
}
