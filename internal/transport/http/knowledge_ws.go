package http

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"studyhub/internal/debounce"
	"studyhub/internal/domain"
)

type entitiesPayload struct {
	Query    string                   `json:"query"`
	Entities []domain.KnowledgeEntity `json:"entities"`
}

// ServeKnowledge answers search-as-you-type queries over a websocket. Only the last
// query in each quiet window reaches upstream.
func (s *Server) ServeKnowledge(w http.ResponseWriter, r *http.Request) {
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
	search := debounce.New(s.debounce, func(q string) {
		searchCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()
		entities, err := s.deps.Knowledge.Search(searchCtx, sc, q)
		if err != nil {
			ws.fail(err)
			return
		}
		ws.push("entities", entitiesPayload{Query: q, Entities: entities})
	})
	defer search.Stop()

	for {
		var in inboundMessage
		if err := conn.ReadJSON(&in); err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.log.Debug("knowledge ws read ended", "user_id", sc.UserID, "err", err)
			}
			return
		}

		switch in.Type {
		case "search":
			var payload searchPayload
			if err = decodePayload(in, &payload); err == nil {
				search.Trigger(payload.Query)
			}
		case "summary":
			var req domain.SummaryRequest
			if err = decodePayload(in, &req); err == nil {
				var summary domain.Summary
				if summary, err = s.deps.Knowledge.Summarize(ctx, sc, req); err == nil {
					ws.push("summary", summary)
				}
			}
		default:
			err = unsupported(in.Type)
		}
		if err != nil {
			ws.fail(err)
		}
	}
}
