package app_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"studyhub/internal/api"
	"studyhub/internal/api/apitest"
	"studyhub/internal/app"
	"studyhub/internal/domain"
)

func TestKnowledgeSearchOrdering(t *testing.T) {
	platform := apitest.NewPlatform()
	defer platform.Close()
	platform.SetKnowledge([]domain.KnowledgeEntity{
		{Name: "mutex", Confidence: 0.7, Frequency: 3},
		{Name: "channel", Confidence: 0.9, Frequency: 1},
		{Name: "chan", Confidence: 0.7, Frequency: 3},
		{Name: "context", Confidence: 0.7, Frequency: 9},
	})
	svc := app.NewKnowledgeService(api.New(platform.URL()))

	got, err := svc.Search(context.Background(), alice, "  ")
	require.NoError(t, err)
	names := make([]string, 0, len(got))
	for _, e := range got {
		names = append(names, e.Name)
	}
	require.Equal(t, []string{"channel", "context", "chan", "mutex"}, names)
}

func TestSummarizeRequiresSubject(t *testing.T) {
	platform := apitest.NewPlatform()
	defer platform.Close()
	svc := app.NewKnowledgeService(api.New(platform.URL()))

	_, err := svc.Summarize(context.Background(), alice, domain.SummaryRequest{Query: "   "})
	require.ErrorIs(t, err, domain.ErrValidation)
	require.Empty(t, platform.Requests())

	summary, err := svc.Summarize(context.Background(), alice, domain.SummaryRequest{Query: " select "})
	require.NoError(t, err)
	require.Equal(t, "select", summary.Query)
	require.NotEmpty(t, summary.Text)
}
