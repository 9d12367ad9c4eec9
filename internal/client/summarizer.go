package client

import (
	"context"
	"net/http"
)

// HTTPSummarizer asks the API to summarize text. It satisfies the cache's
// Summarizer: every failure is returned as an error.
type HTTPSummarizer struct {
	client *Client
}

func NewHTTPSummarizer(c *Client) *HTTPSummarizer {
	return &HTTPSummarizer{client: c}
}

type contentRequest struct {
	Content string `json:"content"`
}

type summaryResponse struct {
	Summary string `json:"summary"`
}

func (s *HTTPSummarizer) Summarize(ctx context.Context, content string) (string, error) {
	var resp summaryResponse
	if err := s.client.do(ctx, "Summarize", http.MethodPost, "/api/v1/summaries", contentRequest{Content: content}, &resp); err != nil {
		return "", err
	}
	return resp.Summary, nil
}

// SummarizeAll returns the display text summarizing all of the user's notes.
func (s *HTTPSummarizer) SummarizeAll(ctx context.Context) (string, error) {
	var resp summaryResponse
	if err := s.client.do(ctx, "SummarizeAll", http.MethodGet, "/api/v1/summaries/all", nil, &resp); err != nil {
		return "", err
	}
	return resp.Summary, nil
}
