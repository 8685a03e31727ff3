package billing

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/tipmasterapp/tipmaster/internal/pkg/env"
)

const defaultCreemAPIBaseURL = "https://api.creem.io/v1"

// CreemClient talks to the Creem REST API for checkout session creation.
// Webhook handling never uses it; inbound events carry everything needed.
type CreemClient struct {
	APIKey     string
	APIBaseURL string
	SuccessURL string

	HTTPClient *http.Client
}

type CheckoutRequest struct {
	ProductID  string `json:"product_id"`
	RequestID  string `json:"request_id,omitempty"`
	SuccessURL string `json:"success_url,omitempty"`
	Customer   *struct {
		Email string `json:"email"`
	} `json:"customer,omitempty"`
}

type CheckoutSession struct {
	ID          string `json:"id"`
	CheckoutURL string `json:"checkout_url"`
	Status      string `json:"status"`
}

func NewCreemClientFromEnv() *CreemClient {
	base := strings.TrimRight(env.GetEnv("PUBLIC_DOMAIN", ""), "/")
	successURL := strings.TrimSpace(env.GetEnv("CREEM_SUCCESS_URL", ""))
	if successURL == "" && base != "" {
		successURL = base + "/payment/callback"
	}

	return &CreemClient{
		APIKey:     strings.TrimSpace(env.GetEnv("CREEM_SECRET_KEY", "")),
		APIBaseURL: strings.TrimRight(env.GetEnv("CREEM_API_BASE_URL", defaultCreemAPIBaseURL), "/"),
		SuccessURL: successURL,
		HTTPClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// CreateCheckout opens a hosted checkout session for the given product. The
// customer email is optional; when set Creem prefills it and echoes it back
// in the checkout.completed webhook.
func (c *CreemClient) CreateCheckout(ctx context.Context, productID, requestID, customerEmail string) (*CheckoutSession, error) {
	if strings.TrimSpace(c.APIKey) == "" {
		return nil, errors.New("CREEM_SECRET_KEY is not configured")
	}
	if strings.TrimSpace(productID) == "" {
		return nil, errors.New("product id is required")
	}

	payload := CheckoutRequest{
		ProductID:  strings.TrimSpace(productID),
		RequestID:  strings.TrimSpace(requestID),
		SuccessURL: c.SuccessURL,
	}
	if email := strings.TrimSpace(customerEmail); email != "" {
		payload.Customer = &struct {
			Email string `json:"email"`
		}{Email: email}
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal checkout request: %w", err)
	}

	var session CheckoutSession
	if err := c.doJSON(ctx, http.MethodPost, "/checkouts", body, &session); err != nil {
		return nil, err
	}
	if strings.TrimSpace(session.CheckoutURL) == "" {
		return nil, errors.New("creem returned a session without a checkout_url")
	}
	return &session, nil
}

// doJSON performs one request plus a single retry. Only transport errors and
// 5xx responses are retried; 4xx means the request itself is wrong and a
// replay would fail identically.
func (c *CreemClient) doJSON(ctx context.Context, method, path string, body []byte, out any) error {
	var lastErr error
	for attempt := 0; attempt < 2; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(500 * time.Millisecond):
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		req, err := http.NewRequestWithContext(ctx, method, c.APIBaseURL+path, bytes.NewReader(body))
		if err != nil {
			return fmt.Errorf("build creem request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("x-api-key", c.APIKey)

		resp, err := c.HTTPClient.Do(req)
		if err != nil {
			lastErr = fmt.Errorf("creem request failed: %w", err)
			continue
		}

		respBody, readErr := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
		resp.Body.Close()
		if readErr != nil {
			lastErr = fmt.Errorf("read creem response: %w", readErr)
			continue
		}

		if resp.StatusCode >= 500 {
			lastErr = fmt.Errorf("creem api %s %s: status %d", method, path, resp.StatusCode)
			continue
		}
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return fmt.Errorf("creem api %s %s: status %d: %s", method, path, resp.StatusCode, truncate(string(respBody), 300))
		}

		if out != nil {
			if err := json.Unmarshal(respBody, out); err != nil {
				return fmt.Errorf("decode creem response: %w", err)
			}
		}
		return nil
	}
	return lastErr
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
