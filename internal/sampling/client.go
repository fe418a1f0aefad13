// Package sampling talks to the external quality sampling service. Its
// figures are advisory only and never gate a workflow transition.
package sampling

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/annoflow/annoflow/internal/config"
)

type Method string

const (
	MethodRandom     Method = "random"
	MethodStratified Method = "stratified"
	MethodSystematic Method = "systematic"
	MethodCluster    Method = "cluster"
)

type Request struct {
	TaskID    string  `json:"taskId"`
	ItemCount int     `json:"itemCount"`
	Method    Method  `json:"method"`
	Rate      float64 `json:"rate"`
}

type Result struct {
	QualityScore float64 `json:"qualityScore"`
	ErrorRate    float64 `json:"errorRate"`
	Confidence   float64 `json:"confidence"`
}

type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient returns nil when no base URL is configured; callers treat a nil
// client as the advisory being unavailable.
func NewClient(env *config.SamplingEnv) *Client {
	if env == nil || env.BaseURL == "" {
		return nil
	}
	return &Client{
		baseURL:    env.BaseURL,
		httpClient: &http.Client{Timeout: env.Timeout},
	}
}

func (c *Client) Evaluate(ctx context.Context, req *Request) (*Result, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal sampling request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/evaluate", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build sampling request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("sampling service unreachable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("sampling service returned %d: %s", resp.StatusCode, data)
	}

	var result Result
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode sampling response: %w", err)
	}
	return &result, nil
}

// DefaultRequest builds the request the review coordinator issues when a
// reviewer has not chosen a method: random sampling at 10%, floored at one
// item.
func DefaultRequest(taskID string, itemCount int) *Request {
	return &Request{
		TaskID:    taskID,
		ItemCount: itemCount,
		Method:    MethodRandom,
		Rate:      0.1,
	}
}
