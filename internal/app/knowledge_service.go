package app

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"studyhub/internal/domain"
)

// KnowledgeSource is the slice of the platform API behind the knowledge explorer.
type KnowledgeSource interface {
	SearchKnowledge(ctx context.Context, sc domain.SessionContext, query string) ([]domain.KnowledgeEntity, error)
	Summarize(ctx context.Context, sc domain.SessionContext, req domain.SummaryRequest) (domain.Summary, error)
}

type KnowledgeService struct {
	source KnowledgeSource
}

func NewKnowledgeService(source KnowledgeSource) *KnowledgeService {
	return &KnowledgeService{source: source}
}

// Search returns entities ordered by confidence, then frequency, then name.
func (s *KnowledgeService) Search(ctx context.Context, sc domain.SessionContext, query string) ([]domain.KnowledgeEntity, error) {
	entities, err := s.source.SearchKnowledge(ctx, sc, strings.TrimSpace(query))
	if err != nil {
		return nil, err
	}
	sort.SliceStable(entities, func(i, j int) bool {
		a, b := entities[i], entities[j]
		if a.Confidence != b.Confidence {
			return a.Confidence > b.Confidence
		}
		if a.Frequency != b.Frequency {
			return a.Frequency > b.Frequency
		}
		return a.Name < b.Name
	})
	return entities, nil
}

// Summarize requires a query or a thread id before calling upstream.
func (s *KnowledgeService) Summarize(ctx context.Context, sc domain.SessionContext, req domain.SummaryRequest) (domain.Summary, error) {
	req.Query = strings.TrimSpace(req.Query)
	if req.Query == "" && req.ThreadID == "" {
		return domain.Summary{}, fmt.Errorf("query or threadId required: %w", domain.ErrValidation)
	}
	return s.source.Summarize(ctx, sc, req)
}
