package client

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/a-h/assessmentserver/models"
	"github.com/a-h/jsonapi"
)

func New(baseURL string) Client {
	return Client{
		baseURL: baseURL,
	}
}

type Client struct {
	baseURL string
}

func (c Client) RecommendPost(ctx context.Context, req models.RecommendPostRequest) (resp models.RecommendPostResponse, err error) {
	url, err := jsonapi.URL(c.baseURL).Path("recommend").String()
	if err != nil {
		return resp, err
	}
	return jsonapi.Post[models.RecommendPostRequest, models.RecommendPostResponse](ctx, url, req)
}

// Home returns the liveness message.
func (c Client) Home(ctx context.Context) (msg string, err error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL, nil)
	if err != nil {
		return msg, fmt.Errorf("failed to create request: %w", err)
	}
	res, err := jsonapi.Raw(httpReq)
	if err != nil {
		return msg, fmt.Errorf("failed to perform HTTP request: %w", err)
	}
	defer res.Body.Close()
	body, err := io.ReadAll(res.Body)
	if err != nil {
		return msg, fmt.Errorf("failed to read response body: %w", err)
	}
	if res.StatusCode < 200 || res.StatusCode > 299 {
		return msg, jsonapi.InvalidStatusError{
			Status: res.StatusCode,
			Body:   string(body),
		}
	}
	return string(body), nil
}
