package payments

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestVerifySignature(t *testing.T) {
	payload := []byte(`{"id":"evt_1","eventType":"checkout.completed"}`)
	secret := "whsec_test"

	tests := []struct {
		name      string
		signature string
		secret    string
		want      bool
	}{
		{"valid", Sign(payload, secret), secret, true},
		{"valid with whitespace", " " + Sign(payload, secret) + "\n", secret, true},
		{"wrong secret", Sign(payload, "other"), secret, false},
		{"tampered payload", Sign([]byte(`{}`), secret), secret, false},
		{"empty signature", "", secret, false},
		{"empty secret", Sign(payload, secret), "", false},
		{"garbage signature", "not-hex-at-all", secret, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := VerifySignature(payload, tt.signature, tt.secret); got != tt.want {
				t.Errorf("VerifySignature() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCreateCheckout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/checkouts" {
			t.Errorf("path = %s, want /checkouts", r.URL.Path)
		}
		if got := r.Header.Get("x-api-key"); got != "creem_live_key" {
			t.Errorf("x-api-key = %s", got)
		}

		var req CheckoutRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("failed to decode request: %v", err)
		}
		if req.ProductID != "prod_1" {
			t.Errorf("product_id = %s, want prod_1", req.ProductID)
		}
		if req.Metadata["user_id"] != "user-1" {
			t.Errorf("metadata user_id = %s, want user-1", req.Metadata["user_id"])
		}

		_ = json.NewEncoder(w).Encode(CheckoutSession{
			ID:          "ch_1",
			CheckoutURL: "https://checkout.example.com/ch_1",
		})
	}))
	defer server.Close()

	client := NewClient("creem_live_key", server.URL, 5*time.Second)
	session, err := client.CreateCheckout(context.Background(), CheckoutRequest{
		RequestID: "req-1",
		ProductID: "prod_1",
		Units:     1,
		Metadata:  map[string]string{"user_id": "user-1"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if session.CheckoutURL != "https://checkout.example.com/ch_1" {
		t.Errorf("CheckoutURL = %s", session.CheckoutURL)
	}
}

func TestCreateCheckout_ProductNotFound(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{"404 status", http.StatusNotFound, `{"error":"no such product"}`},
		{"validation error naming product_id", http.StatusBadRequest, `{"error":"invalid product_id"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			client := NewClient("key", server.URL, 5*time.Second)
			_, err := client.CreateCheckout(context.Background(), CheckoutRequest{ProductID: "prod_x"})
			if !errors.Is(err, ErrProductNotFound) {
				t.Errorf("err = %v, want ErrProductNotFound", err)
			}
		})
	}
}

func TestCreateCheckout_GenericError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"boom"}`))
	}))
	defer server.Close()

	client := NewClient("key", server.URL, 5*time.Second)
	_, err := client.CreateCheckout(context.Background(), CheckoutRequest{ProductID: "prod_x"})
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	if errors.Is(err, ErrProductNotFound) {
		t.Errorf("generic failure misclassified as ErrProductNotFound: %v", err)
	}
}

func TestCreateProduct(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/products" {
			t.Errorf("path = %s, want /products", r.URL.Path)
		}
		_ = json.NewEncoder(w).Encode(Product{ID: "prod_1"})
	}))
	defer server.Close()

	client := NewClient("key", server.URL, 5*time.Second)
	product, err := client.CreateProduct(context.Background(), ProductRequest{
		ID:       "prod_1",
		Name:     "Basic",
		Price:    900,
		Currency: "usd",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if product.ID != "prod_1" {
		t.Errorf("product id = %s, want prod_1", product.ID)
	}
}

func TestTestPaymentURL(t *testing.T) {
	got := TestPaymentURL("prod_1", map[string]string{
		"userId": "user 1",
		"planId": "pro",
	})

	if !strings.HasPrefix(got, "https://www.creem.io/test/payment/prod_1?") {
		t.Fatalf("unexpected prefix: %s", got)
	}
	if !strings.Contains(got, "metadata[userId]=user+1") {
		t.Errorf("userId metadata missing or unescaped: %s", got)
	}
	if !strings.Contains(got, "metadata[planId]=pro") {
		t.Errorf("planId metadata missing: %s", got)
	}
}
