package http

import (
	"encoding/json"
	"fmt"
	"net/http"

	"studyhub/internal/domain"
)

func (s *Server) listCourses(w http.ResponseWriter, r *http.Request, sc domain.SessionContext) {
	courses, err := s.deps.Catalog.ListCourses(r.Context(), sc)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, courses)
}

func (s *Server) listTopics(w http.ResponseWriter, r *http.Request, sc domain.SessionContext) {
	topics, err := s.deps.Catalog.ListTopics(r.Context(), sc, r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, topics)
}

func (s *Server) searchKnowledge(w http.ResponseWriter, r *http.Request, sc domain.SessionContext) {
	entities, err := s.deps.Knowledge.Search(r.Context(), sc, r.URL.Query().Get("q"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entities)
}

func (s *Server) summarize(w http.ResponseWriter, r *http.Request, sc domain.SessionContext) {
	var req domain.SummaryRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	summary, err := s.deps.Knowledge.Summarize(r.Context(), sc, req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func (s *Server) listStudySessions(w http.ResponseWriter, r *http.Request, sc domain.SessionContext) {
	sessions, err := s.deps.Study.List(r.Context(), sc)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sessions)
}

func (s *Server) createStudySession(w http.ResponseWriter, r *http.Request, sc domain.SessionContext) {
	var in domain.StudySessionInput
	if err := decodeBody(r, &in); err != nil {
		writeError(w, err)
		return
	}
	created, err := s.deps.Study.Create(r.Context(), sc, in)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) updateStudySession(w http.ResponseWriter, r *http.Request, sc domain.SessionContext) {
	var in domain.StudySessionInput
	if err := decodeBody(r, &in); err != nil {
		writeError(w, err)
		return
	}
	updated, err := s.deps.Study.Update(r.Context(), sc, r.PathValue("id"), in)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (s *Server) deleteStudySession(w http.ResponseWriter, r *http.Request, sc domain.SessionContext) {
	if err := s.deps.Study.Delete(r.Context(), sc, r.PathValue("id")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) studyStats(w http.ResponseWriter, r *http.Request, sc domain.SessionContext) {
	stats, err := s.deps.Study.Stats(r.Context(), sc)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (s *Server) listResults(w http.ResponseWriter, r *http.Request, sc domain.SessionContext) {
	results, err := s.deps.History.ForUser(r.Context(), sc.UserID)
	if err != nil {
		writeError(w, err)
		return
	}
	if results == nil {
		results = []domain.Result{}
	}
	writeJSON(w, http.StatusOK, results)
}

func decodeBody(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return fmt.Errorf("decode body: %v: %w", err, domain.ErrValidation)
	}
	return nil
}
