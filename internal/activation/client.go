// Package activation calls the core-banking activation API that turns an
// eligible target into a usable account or service.
package activation

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"mosolo/pkg/domain"
	dErrors "mosolo/pkg/domain-errors"
)

// Client implements the engine's Activator port over the core-banking HTTP
// API. Activation is idempotent on the remote side, so the reconciliation
// sweep can retry freely.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient builds an activation client. A nil httpClient gets a bounded
// default.
func NewClient(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &Client{baseURL: baseURL, http: httpClient}
}

type activateRequest struct {
	CustomerID string `json:"customer_id"`
	TargetType string `json:"target_type"`
	TargetCode string `json:"target_code"`
}

// Activate requests activation of one target for one customer.
func (c *Client) Activate(ctx context.Context, customerID domain.CustomerID, target domain.Target) error {
	body, err := json.Marshal(activateRequest{
		CustomerID: customerID.String(),
		TargetType: string(target.Type),
		TargetCode: string(target.Code),
	})
	if err != nil {
		return fmt.Errorf("encode activation request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/activations", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build activation request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeUnavailable, "activation API unreachable")
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))

	switch {
	case resp.StatusCode == http.StatusOK, resp.StatusCode == http.StatusCreated:
		return nil
	case resp.StatusCode == http.StatusConflict:
		// Already activated remotely; treat as success so the local flag
		// catches up.
		return nil
	case resp.StatusCode >= 500:
		return dErrors.Newf(dErrors.CodeUnavailable, "activation API returned %d", resp.StatusCode)
	default:
		return dErrors.Newf(dErrors.CodeInternal, "activation rejected with %d", resp.StatusCode)
	}
}
