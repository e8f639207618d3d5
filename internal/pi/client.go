// Package pi talks to the Pi Platform API on behalf of the storefront.
package pi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"pistore/internal/models"
)

const maxResponseBody = 1 << 20

// Client issues server-side Pi Platform calls authorized with the app key.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

func NewClient(baseURL, apiKey string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// RawResponse is a provider reply passed back to the browser untouched.
type RawResponse struct {
	StatusCode  int
	ContentType string
	Body        []byte
}

// OK reports a 2xx provider status.
func (r RawResponse) OK() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// UpstreamError describes a non-2xx provider reply.
type UpstreamError struct {
	StatusCode int
	Message    string
}

func (e *UpstreamError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("pi api returned status %d", e.StatusCode)
	}
	return fmt.Sprintf("pi api returned status %d: %s", e.StatusCode, e.Message)
}

// AsError converts a non-2xx response to an *UpstreamError, picking the
// provider's error message out of the body when there is one.
func (r RawResponse) AsError() error {
	if r.OK() {
		return nil
	}
	var payload struct {
		Error        string `json:"error"`
		ErrorMessage string `json:"error_message"`
		Message      string `json:"message"`
	}
	message := strings.TrimSpace(string(r.Body))
	if err := json.Unmarshal(r.Body, &payload); err == nil {
		switch {
		case payload.ErrorMessage != "":
			message = payload.ErrorMessage
		case payload.Message != "":
			message = payload.Message
		case payload.Error != "":
			message = payload.Error
		}
	}
	if len(message) > 300 {
		message = message[:300]
	}
	return &UpstreamError{StatusCode: r.StatusCode, Message: message}
}

// CreatePaymentRequest is the body of an app-initiated payment.
type CreatePaymentRequest struct {
	Amount   float64         `json:"amount"`
	Memo     string          `json:"memo"`
	Metadata json.RawMessage `json:"metadata,omitempty"`
	UID      string          `json:"uid"`
}

func (c *Client) Create(ctx context.Context, req CreatePaymentRequest) (RawResponse, error) {
	return c.do(ctx, http.MethodPost, "/payments", c.keyAuth(), map[string]any{"payment": req})
}

func (c *Client) Get(ctx context.Context, paymentID string) (RawResponse, error) {
	return c.do(ctx, http.MethodGet, "/payments/"+url.PathEscape(paymentID), c.keyAuth(), nil)
}

func (c *Client) Approve(ctx context.Context, paymentID string) (RawResponse, error) {
	return c.do(ctx, http.MethodPost, "/payments/"+url.PathEscape(paymentID)+"/approve", c.keyAuth(), nil)
}

func (c *Client) Complete(ctx context.Context, paymentID, txid string) (RawResponse, error) {
	return c.do(ctx, http.MethodPost, "/payments/"+url.PathEscape(paymentID)+"/complete", c.keyAuth(), map[string]string{"txid": txid})
}

func (c *Client) Cancel(ctx context.Context, paymentID string) (RawResponse, error) {
	return c.do(ctx, http.MethodPost, "/payments/"+url.PathEscape(paymentID)+"/cancel", c.keyAuth(), nil)
}

// Me resolves a user access token obtained by the browser SDK.
func (c *Client) Me(ctx context.Context, accessToken string) (models.Identity, error) {
	resp, err := c.do(ctx, http.MethodGet, "/me", "Bearer "+accessToken, nil)
	if err != nil {
		return models.Identity{}, err
	}
	if err := resp.AsError(); err != nil {
		return models.Identity{}, err
	}

	var identity models.Identity
	if err := json.Unmarshal(resp.Body, &identity); err != nil {
		return models.Identity{}, fmt.Errorf("decode pi user: %w", err)
	}
	if strings.TrimSpace(identity.Username) == "" {
		return models.Identity{}, &UpstreamError{StatusCode: resp.StatusCode, Message: "pi user has no username"}
	}
	return identity, nil
}

func (c *Client) keyAuth() string {
	return "Key " + c.apiKey
}

func (c *Client) do(ctx context.Context, method, path, authorization string, body any) (RawResponse, error) {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return RawResponse{}, err
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return RawResponse{}, err
	}
	req.Header.Set("Authorization", authorization)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return RawResponse{}, fmt.Errorf("pi api %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		return RawResponse{}, fmt.Errorf("read pi api response: %w", err)
	}

	return RawResponse{
		StatusCode:  resp.StatusCode,
		ContentType: resp.Header.Get("Content-Type"),
		Body:        data,
	}, nil
}
