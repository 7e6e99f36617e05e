package main

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/a-h/assessmentserver/models"
	tea "github.com/charmbracelet/bubbletea"
)

type fakeRecommender struct {
	queries []string
	resp    models.RecommendPostResponse
	err     error
}

func (f *fakeRecommender) RecommendPost(ctx context.Context, req models.RecommendPostRequest) (models.RecommendPostResponse, error) {
	f.queries = append(f.queries, req.Query)
	return f.resp, f.err
}

func TestExploreModel(t *testing.T) {
	rec := &fakeRecommender{
		resp: models.RecommendPostResponse{
			Recommendations: []models.Recommendation{
				{AssessmentName: "Java 8 (New)", URL: "https://example.com/java-8-new/"},
			},
		},
	}
	var m tea.Model = newModel(context.Background(), rec, "running")

	m, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	if cmd != nil {
		t.Fatal("expected empty input not to send a query")
	}

	for _, r := range "java" {
		m, _ = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}})
	}
	m, cmd = m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	if cmd == nil {
		t.Fatal("expected a command to fetch recommendations")
	}
	if !m.(model).exchanges[0].Pending {
		t.Error("expected the exchange to be pending")
	}

	m, _ = m.Update(cmd())
	if len(rec.queries) != 1 || rec.queries[0] != "java" {
		t.Fatalf("unexpected queries: %v", rec.queries)
	}
	e := m.(model).exchanges[0]
	if e.Pending {
		t.Error("expected the exchange to be complete")
	}
	if len(e.Recommendations) != 1 {
		t.Errorf("expected 1 recommendation, got %d", len(e.Recommendations))
	}
}

func TestFormatExchange(t *testing.T) {
	tests := []struct {
		name     string
		input    exchange
		expected []string
	}{
		{
			name: "recommendations are numbered",
			input: exchange{
				Query: "java",
				Recommendations: []models.Recommendation{
					{AssessmentName: "Java 8 (New)", TestType: "Knowledge & Skills", URL: "https://example.com/java-8-new/"},
				},
			},
			expected: []string{"java", "1. Java 8 (New)", "Knowledge & Skills", "https://example.com/java-8-new/"},
		},
		{
			name:     "errors are shown",
			input:    exchange{Query: "java", Err: errors.New("connection refused")},
			expected: []string{"connection refused"},
		},
		{
			name:     "empty results are shown",
			input:    exchange{Query: "java"},
			expected: []string{"No recommendations."},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			actual := formatExchange(tt.input, 100)
			for _, s := range tt.expected {
				if !strings.Contains(actual, s) {
					t.Errorf("expected output to contain %q, got:\n%s", s, actual)
				}
			}
		})
	}
}
