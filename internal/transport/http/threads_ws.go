package http

import (
	"net/http"
	"strconv"

	"github.com/gorilla/websocket"
	"studyhub/internal/app"
	"studyhub/internal/discussion"
	"studyhub/internal/domain"
)

type threadsPayload struct {
	Threads []domain.Thread `json:"threads"`
}

type connectionPayload struct {
	State string `json:"state"`
}

type searchPayload struct {
	Query string `json:"query"`
}

type deletePayload struct {
	ThreadID string `json:"threadId"`
}

type pagePayload struct {
	Page int `json:"page"`
}

// ServeThreads streams a live, reconciled thread list for a course or topic.
func (s *Server) ServeThreads(w http.ResponseWriter, r *http.Request) {
	sc, err := s.deps.Auth.FromRequest(r)
	if err != nil {
		writeError(w, err)
		return
	}
	params := r.URL.Query()
	page, _ := strconv.Atoi(params.Get("page"))
	limit, _ := strconv.Atoi(params.Get("limit"))
	query := domain.ThreadQuery{
		CourseID: params.Get("courseId"),
		TopicID:  params.Get("topicId"),
		Query:    params.Get("q"),
		Page:     page,
		Limit:    limit,
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
	view, err := s.deps.Discussions.Open(ctx, sc, query, app.ViewHandlers{
		OnChange: func(ts []domain.Thread) { ws.push("threads", threadsPayload{Threads: ts}) },
		OnError:  ws.fail,
		OnState:  func(st discussion.ConnState) { ws.push("connection", connectionPayload{State: st.String()}) },
	})
	if err != nil {
		ws.fail(err)
		return
	}
	defer view.Close()
	ws.push("threads", threadsPayload{Threads: view.Threads()})

	for {
		var in inboundMessage
		if err := conn.ReadJSON(&in); err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.log.Debug("threads ws read ended", "user_id", sc.UserID, "err", err)
			}
			return
		}

		switch in.Type {
		case "search":
			var payload searchPayload
			if err = decodePayload(in, &payload); err == nil {
				view.Search(payload.Query)
			}
		case "delete":
			var payload deletePayload
			if err = decodePayload(in, &payload); err == nil {
				err = view.Delete(ctx, payload.ThreadID)
			}
		case "page":
			var payload pagePayload
			if err = decodePayload(in, &payload); err == nil {
				err = view.SetPage(ctx, payload.Page)
			}
		default:
			err = unsupported(in.Type)
		}
		if err != nil {
			ws.fail(err)
		}
	}
}
