package integration

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/a-h/assessmentserver/client"
	homeget "github.com/a-h/assessmentserver/handlers/home/get"
	"github.com/a-h/assessmentserver/models"
	"github.com/a-h/jsonapi"
	"github.com/google/go-cmp/cmp"
)

const serverURL = "http://localhost:5001"

func TestHome(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	msg, err := client.New(serverURL).Home(context.Background())
	if err != nil {
		t.Fatalf("failed to get home: %v", err)
	}
	if msg != homeget.Message {
		t.Errorf("expected %q, got %q", homeget.Message, msg)
	}
}

func TestRecommendPost(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	c := client.New(serverURL)
	ctx := context.Background()

	t.Run("Empty queries are rejected", func(t *testing.T) {
		_, err := c.RecommendPost(ctx, models.RecommendPostRequest{Query: ""})
		var statusErr jsonapi.InvalidStatusError
		if !errors.As(err, &statusErr) {
			t.Fatalf("expected InvalidStatusError, got %v", err)
		}
		if statusErr.Status != http.StatusBadRequest {
			t.Errorf("expected status %d, got %d", http.StatusBadRequest, statusErr.Status)
		}
	})
	t.Run("At most three recommendations are returned", func(t *testing.T) {
		resp, err := c.RecommendPost(ctx, models.RecommendPostRequest{Query: "Java developers who can collaborate with business teams"})
		if err != nil {
			t.Fatalf("failed to get recommendations: %v", err)
		}
		if resp.Recommendations == nil {
			t.Fatal("expected a list of recommendations")
		}
		if len(resp.Recommendations) > 3 {
			t.Errorf("expected at most 3 recommendations, got %d", len(resp.Recommendations))
		}
	})
	t.Run("Repeated queries return the same recommendations", func(t *testing.T) {
		req := models.RecommendPostRequest{Query: "Numerical reasoning for graduate analysts"}
		first, err := c.RecommendPost(ctx, req)
		if err != nil {
			t.Fatalf("failed to get recommendations: %v", err)
		}
		second, err := c.RecommendPost(ctx, req)
		if err != nil {
			t.Fatalf("failed to get recommendations: %v", err)
		}
		if diff := cmp.Diff(first, second); diff != "" {
			t.Error(diff)
		}
	})
	t.Run("Unreachable URLs still return recommendations", func(t *testing.T) {
		_, err := c.RecommendPost(ctx, models.RecommendPostRequest{Query: "Sales role http://127.0.0.1:1/job"})
		if err != nil {
			t.Fatalf("failed to get recommendations: %v", err)
		}
	})
}
