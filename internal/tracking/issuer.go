// Package tracking talks to the external identifier-issuing service. Every
// record in a bulk creation needs a tracking id issued before the store
// transaction runs.
package tracking

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// Issuer hands out globally unique waste tracking identifiers.
type Issuer interface {
	Next(ctx context.Context) (string, error)
}

// Client calls the waste-tracking service over HTTP.
type Client struct {
	baseURL string
	http    *http.Client
}

func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: 10 * time.Second},
	}
}

type nextResponse struct {
	WasteTrackingID string `json:"wasteTrackingId"`
}

func (c *Client) Next(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/next", nil)
	if err != nil {
		return "", fmt.Errorf("build tracking id request: %w", err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("request tracking id: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("tracking id service returned status %d", resp.StatusCode)
	}
	var payload nextResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", fmt.Errorf("decode tracking id response: %w", err)
	}
	if payload.WasteTrackingID == "" {
		return "", fmt.Errorf("tracking id service returned an empty id")
	}
	return payload.WasteTrackingID, nil
}
