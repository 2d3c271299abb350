package handlers

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"

	"github.com/nanobanana/nanobanana-api/internal/config"
	"github.com/nanobanana/nanobanana-api/internal/payments"
	"github.com/nanobanana/nanobanana-api/internal/service"
)

// CreemWebhookHandler handles Creem payment webhook events.
type CreemWebhookHandler struct {
	cfg           *config.Config
	reconcilerSvc *service.ReconcilerService
	logger        *slog.Logger
}

// NewCreemWebhookHandler creates a new Creem webhook handler.
func NewCreemWebhookHandler(cfg *config.Config, reconcilerSvc *service.ReconcilerService, logger *slog.Logger) *CreemWebhookHandler {
	return &CreemWebhookHandler{
		cfg:           cfg,
		reconcilerSvc: reconcilerSvc,
		logger:        logger,
	}
}

// creemEvent is the envelope Creem posts to webhook endpoints.
type creemEvent struct {
	ID        string          `json:"id"`
	EventType string          `json:"eventType"`
	Object    json.RawMessage `json:"object"`
}

// creemObject is the event payload. Checkout events carry an order and
// metadata; subscription events carry the product and customer.
type creemObject struct {
	ID       string          `json:"id"`
	Metadata map[string]any  `json:"metadata"`
	Customer json.RawMessage `json:"customer"`
	Product  creemProduct    `json:"product"`
	Order    *creemOrder     `json:"order"`
	Amount   int64           `json:"amount"`
	Currency string          `json:"currency"`
}

type creemProduct struct {
	ID            string `json:"id"`
	BillingPeriod string `json:"billing_period"`
}

type creemOrder struct {
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
}

type creemCustomer struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// HandleWebhook processes incoming Creem webhooks. Signature and parse
// failures never mutate state; processing failures after a verified
// parse are acknowledged so the provider does not retry forever.
func (h *CreemWebhookHandler) HandleWebhook(w http.ResponseWriter, r *http.Request) {
	const maxBodySize = 65536 // 64KB

	r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)
	payload, err := io.ReadAll(r.Body)
	if err != nil {
		h.logger.Error("failed to read webhook body", "error", err)
		http.Error(w, "failed to read body", http.StatusBadRequest)
		return
	}

	signature := r.Header.Get("creem-signature")
	if !payments.VerifySignature(payload, signature, h.cfg.CreemWebhookSecret) {
		h.logger.Error("webhook signature verification failed",
			"signature_present", signature != "",
		)
		http.Error(w, `{"error":"invalid signature"}`, http.StatusUnauthorized)
		return
	}

	var event creemEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		// Malformed but authentic. Ack so the provider stops retrying.
		h.logger.Error("failed to parse webhook event", "error", err)
		h.ack(w)
		return
	}

	if err := h.reconcilerSvc.ProcessEvent(r.Context(), h.normalize(&event)); err != nil {
		h.logger.Error("failed to process webhook event",
			"event_id", event.ID,
			"event_type", event.EventType,
			"error", err,
		)
	}

	h.ack(w)
}

func (h *CreemWebhookHandler) ack(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"received":true}`))
}

// normalize maps a Creem envelope onto the reconciler's event shape.
func (h *CreemWebhookHandler) normalize(event *creemEvent) *service.PaymentEvent {
	out := &service.PaymentEvent{
		ID:   event.ID,
		Type: service.NormalizeEventType(event.EventType),
	}

	var obj creemObject
	if len(event.Object) > 0 {
		if err := json.Unmarshal(event.Object, &obj); err != nil {
			h.logger.Warn("failed to parse event object",
				"event_id", event.ID,
				"error", err,
			)
			return out
		}
	}

	out.UserID = metaString(obj.Metadata, "user_id", "userId")
	out.PlanID = metaString(obj.Metadata, "plan_id", "planId")
	out.Interval = obj.Product.BillingPeriod
	if out.Interval == "" {
		// Sandbox events carry the interval only as echoed metadata.
		out.Interval = metaString(obj.Metadata, "interval")
	}
	out.AmountCents = obj.Amount
	out.Currency = obj.Currency
	if obj.Order != nil {
		if obj.Order.Amount > 0 {
			out.AmountCents = obj.Order.Amount
		}
		if obj.Order.Currency != "" {
			out.Currency = obj.Order.Currency
		}
	}

	// Customer arrives as an object or a bare id string.
	var customer creemCustomer
	if len(obj.Customer) > 0 {
		if err := json.Unmarshal(obj.Customer, &customer); err == nil {
			out.CustomerEmail = customer.Email
		}
	}

	return out
}

// metaString reads the first present key from event metadata,
// tolerating non-string values.
func metaString(metadata map[string]any, keys ...string) string {
	for _, key := range keys {
		if v, ok := metadata[key]; ok {
			if s, ok := v.(string); ok && s != "" {
				return s
			}
		}
	}
	return ""
}
