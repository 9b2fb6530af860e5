// Package paystack is a thin client for the Paystack transaction API.
package paystack

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const DefaultBaseURL = "https://api.paystack.co"

var (
	ErrNotConfigured = errors.New("paystack secret key is not configured")
	ErrInvalidAmount = errors.New("amount must be a positive number of minor units")
)

// Response mirrors Paystack's envelope. Data is passed through untouched.
type Response struct {
	Status  bool            `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
}

type InitializeData struct {
	AuthorizationURL string `json:"authorization_url"`
	AccessCode       string `json:"access_code"`
	Reference        string `json:"reference"`
}

type Client struct {
	secretKey  string
	baseURL    string
	httpClient *http.Client
}

func NewClient(secretKey, baseURL string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		secretKey:  secretKey,
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
}

func (c *Client) Configured() bool { return c.secretKey != "" }

// Initialize starts a transaction. amount is in kobo.
func (c *Client) Initialize(ctx context.Context, email string, amount int64) (*Response, error) {
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}
	payload, err := json.Marshal(map[string]any{
		"email":    email,
		"amount":   amount,
		"currency": "NGN",
	})
	if err != nil {
		return nil, err
	}
	return c.do(ctx, http.MethodPost, "/transaction/initialize", bytes.NewReader(payload))
}

func (c *Client) Verify(ctx context.Context, reference string) (*Response, error) {
	return c.do(ctx, http.MethodGet, "/transaction/verify/"+url.PathEscape(reference), nil)
}

func (c *Client) do(ctx context.Context, method, path string, body io.Reader) (*Response, error) {
	if !c.Configured() {
		return nil, ErrNotConfigured
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.secretKey)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to reach Paystack: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read Paystack response: %w", err)
	}

	var out Response
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("paystack API error (%d): %s", resp.StatusCode, string(raw))
	}
	return &out, nil
}

// Reference extracts data.reference from an initialize response.
func (r *Response) Reference() string {
	var data InitializeData
	if len(r.Data) == 0 || json.Unmarshal(r.Data, &data) != nil {
		return ""
	}
	return data.Reference
}
