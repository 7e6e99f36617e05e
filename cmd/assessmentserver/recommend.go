package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/a-h/assessmentserver/client"
	"github.com/a-h/assessmentserver/models"
)

type RecommendCommand struct {
	ServerURL string `help:"The URL of the assessment server." env:"ASSESSMENT_SERVER_URL" default:"http://localhost:5001"`
	Query     string `help:"The query to send, optionally including a job description URL." required:""`
	Pretty    bool   `help:"Pretty print the JSON output." default:"true" negatable:""`
}

func (c RecommendCommand) Run(ctx context.Context) (err error) {
	asc := client.New(c.ServerURL)
	resp, err := asc.RecommendPost(ctx, models.RecommendPostRequest{
		Query: c.Query,
	})
	if err != nil {
		return fmt.Errorf("failed to get recommendations: %w", err)
	}

	enc := json.NewEncoder(os.Stdout)
	if c.Pretty {
		enc.SetIndent("", "  ")
	}
	return enc.Encode(resp)
}
