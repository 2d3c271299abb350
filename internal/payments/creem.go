// Package payments provides the Creem payment provider client and
// webhook signature verification.
package payments

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// ErrProductNotFound indicates the checkout referenced a product id the
// provider doesn't know. The caller may create the product and retry.
var ErrProductNotFound = errors.New("product not found")

// Client provides access to the Creem REST API.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a new Creem client. Outbound calls are bounded by
// the given timeout.
func NewClient(apiKey, baseURL string, timeout time.Duration) *Client {
	return &Client{
		apiKey:  apiKey,
		baseURL: strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// CheckoutRequest is the payload for creating a hosted checkout session.
type CheckoutRequest struct {
	RequestID     string            `json:"request_id"`
	ProductID     string            `json:"product_id"`
	Units         int               `json:"units"`
	CustomerEmail string            `json:"customer_email"`
	SuccessURL    string            `json:"success_url"`
	Metadata      map[string]string `json:"metadata"`
}

// CheckoutSession is the provider's checkout creation response.
type CheckoutSession struct {
	ID          string `json:"id"`
	CheckoutURL string `json:"checkout_url"`
}

// ProductRequest is the payload for creating a product on the fly.
type ProductRequest struct {
	ID           string   `json:"id"`
	Name         string   `json:"name"`
	Description  string   `json:"description"`
	Price        int64    `json:"price"`
	Currency     string   `json:"currency"`
	BillingCycle string   `json:"billing_cycle"`
	Features     []string `json:"features,omitempty"`
}

// Product is the provider's product creation response.
type Product struct {
	ID string `json:"id"`
}

// CreateCheckout creates a hosted checkout session.
// Returns ErrProductNotFound when the provider rejects the product id.
func (c *Client) CreateCheckout(ctx context.Context, req CheckoutRequest) (*CheckoutSession, error) {
	var session CheckoutSession
	if err := c.post(ctx, "/checkouts", req, &session); err != nil {
		return nil, err
	}
	return &session, nil
}

// CreateProduct creates a product.
func (c *Client) CreateProduct(ctx context.Context, req ProductRequest) (*Product, error) {
	var product Product
	if err := c.post(ctx, "/products", req, &product); err != nil {
		return nil, err
	}
	return &product, nil
}

func (c *Client) post(ctx context.Context, path string, payload, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("x-api-key", c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		// Creem reports unknown products either as a 404 or as a
		// validation error naming the product_id field.
		if resp.StatusCode == http.StatusNotFound || strings.Contains(string(respBody), "product_id") {
			return fmt.Errorf("%w: %s", ErrProductNotFound, string(respBody))
		}
		return fmt.Errorf("API error (status %d): %s", resp.StatusCode, string(respBody))
	}

	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	return nil
}

// VerifySignature checks a creem-signature header against the raw
// webhook body: hex-encoded HMAC-SHA256 of the body keyed with the
// shared webhook secret. Comparison is constant time. Fails closed on
// empty secret or signature.
func VerifySignature(payload []byte, signature, secret string) bool {
	if secret == "" || signature == "" {
		return false
	}

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	expected := hex.EncodeToString(mac.Sum(nil))

	return hmac.Equal([]byte(expected), []byte(strings.TrimSpace(signature)))
}

// Sign computes the creem-signature value for a payload. Used by tests
// and the local webhook replay tooling.
func Sign(payload []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}

// TestPaymentURL builds the direct sandbox payment page URL used when
// the API key is a creem_test_ key. Metadata rides along as query
// parameters so the sandbox echoes it back in webhook events.
func TestPaymentURL(productID string, metadata map[string]string) string {
	var sb strings.Builder
	sb.WriteString("https://www.creem.io/test/payment/")
	sb.WriteString(productID)
	sep := "?"
	for _, key := range []string{"userId", "planId", "interval", "price", "email"} {
		if v, ok := metadata[key]; ok && v != "" {
			sb.WriteString(sep)
			sb.WriteString("metadata[")
			sb.WriteString(key)
			sb.WriteString("]=")
			sb.WriteString(url.QueryEscape(v))
			sep = "&"
		}
	}
	return sb.String()
}
