// Package ner provides a detect.Classifier that calls a span-classification
// model served over HTTP (POST /classify). The sidecar does the heavy NER
// work; this client maps its labels onto entity types and filters low
// confidence spans.
package ner

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/ljcooper54/DeID/internal/detect"
	"github.com/ljcooper54/DeID/internal/models"
	"github.com/ljcooper54/DeID/internal/shared"
)

// Client calls the classifier sidecar's /classify endpoint. It is safe for
// concurrent use.
type Client struct {
	url           string
	http          *http.Client
	minConfidence float64
}

// New creates a Client pointing at baseURL (e.g. "http://localhost:8001").
func New(baseURL string, timeout time.Duration, minConfidence float64) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		url:           baseURL + "/classify",
		http:          &http.Client{Timeout: timeout},
		minConfidence: minConfidence,
	}
}

type classifyRequest struct {
	Text string `json:"text"`
}

type classifyResponse struct {
	Spans []classifiedSpan `json:"spans"`
}

type classifiedSpan struct {
	Start int     `json:"start"`
	End   int     `json:"end"`
	Label string  `json:"label"`
	Text  string  `json:"text"`
	Score float64 `json:"score"`
}

// Classify sends text to the sidecar and returns the spans it labeled.
// An unreachable or misbehaving sidecar is reported as
// shared.ErrClassifierUnavailable; the caller decides whether that aborts
// the run.
func (c *Client) Classify(ctx context.Context, text string) ([]models.Span, error) {
	body, err := json.Marshal(classifyRequest{Text: text})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal classify request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build classify request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrClassifierUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status %d", shared.ErrClassifierUnavailable, resp.StatusCode)
	}

	var result classifyResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("%w: bad response: %v", shared.ErrClassifierUnavailable, err)
	}

	spans := make([]models.Span, 0, len(result.Spans))
	for _, s := range result.Spans {
		if s.Score < c.minConfidence {
			continue
		}
		entityType, ok := detect.MapLabel(s.Label)
		if !ok {
			continue
		}
		if s.Start < 0 || s.End > len(text) || s.Start >= s.End {
			continue
		}
		span := text[s.Start:s.End]
		if detect.LooksTemporal(span) {
			continue
		}
		spans = append(spans, models.Span{
			Start:      s.Start,
			End:        s.End,
			Type:       entityType,
			Source:     models.SourceClassifier,
			Text:       span,
			Confidence: s.Score,
		})
	}
	return spans, nil
}
