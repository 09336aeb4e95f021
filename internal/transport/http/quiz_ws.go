package http

import (
	"context"
	"net/http"

	"github.com/gorilla/websocket"
	"studyhub/internal/domain"
)

type navigatePayload struct {
	Index int `json:"index"`
}

// quizView is the quiz as shown to the taker: no answer key.
type quizView struct {
	ID              string         `json:"id"`
	Title           string         `json:"title"`
	DurationMinutes int            `json:"durationMinutes"`
	Questions       []questionView `json:"questions"`
}

type questionView struct {
	ID      string       `json:"id"`
	Prompt  string       `json:"prompt"`
	Options []optionView `json:"options"`
}

type optionView struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

func newQuizView(q domain.Quiz) quizView {
	view := quizView{ID: q.ID, Title: q.Title, DurationMinutes: q.DurationMinutes}
	for _, question := range q.Questions {
		qv := questionView{ID: question.ID, Prompt: question.Prompt}
		for _, opt := range question.Options {
			qv.Options = append(qv.Options, optionView{ID: opt.ID, Text: opt.Text})
		}
		view.Questions = append(view.Questions, qv)
	}
	return view
}

// ServeQuiz upgrades to a websocket that drives the caller's attempt at quizId.
// Reconnecting resumes the same attempt; its countdown keeps running while disconnected.
func (s *Server) ServeQuiz(w http.ResponseWriter, r *http.Request) {
	quizID := r.URL.Query().Get("quizId")
	if quizID == "" {
		http.Error(w, "missing quizId", http.StatusBadRequest)
		return
	}
	sc, err := s.deps.Auth.FromRequest(r)
	if err != nil {
		writeError(w, err)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn("ws upgrade failed", "err", err)
		return
	}
	defer conn.Close()
	ws := newWSSession(conn, s.log)
	defer ws.close()

	ctx := r.Context()
	svc := s.deps.Quiz
	attempt, err := svc.Open(ctx, sc, quizID)
	if err != nil {
		ws.fail(err)
		return
	}
	ws.push("quiz", newQuizView(attempt.Controller().Quiz()))

	updates, cancel, err := svc.Subscribe(ctx, sc, quizID)
	if err != nil {
		ws.fail(err)
		return
	}
	forwarded := make(chan struct{})
	defer func() {
		cancel()
		<-forwarded
		svc.Leave(context.Background(), sc, quizID)
	}()

	go func() {
		defer close(forwarded)
		resultSent := false
		for snap := range updates {
			ws.push("state", snap)
			if snap.Result != nil && !resultSent {
				resultSent = true
				ws.push("result", *snap.Result)
			}
		}
	}()

	for {
		var in inboundMessage
		if err := conn.ReadJSON(&in); err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.log.Debug("quiz ws read ended", "quiz_id", quizID, "user_id", sc.UserID, "err", err)
			}
			return
		}

		switch in.Type {
		case "start":
			_, err = svc.Start(ctx, sc, quizID)
		case "answer":
			var payload domain.AnswerSubmission
			if err = decodePayload(in, &payload); err == nil {
				_, err = svc.Answer(ctx, sc, quizID, payload)
			}
		case "navigate":
			var payload navigatePayload
			if err = decodePayload(in, &payload); err == nil {
				_, err = svc.Navigate(ctx, sc, quizID, payload.Index)
			}
		case "submit":
			_, err = svc.Submit(ctx, sc, quizID)
		default:
			err = unsupported(in.Type)
		}
		if err != nil {
			ws.fail(err)
		}
	}
}
