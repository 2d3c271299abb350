package handlers

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"

	svix "github.com/svix/svix-webhooks/go"

	"github.com/nanobanana/nanobanana-api/internal/config"
	"github.com/nanobanana/nanobanana-api/internal/service"
)

// SupabaseWebhookHandler handles Supabase auth hook events. Supabase
// signs these with the Standard Webhooks scheme, which svix verifies.
type SupabaseWebhookHandler struct {
	cfg     *config.Config
	userSvc *service.UserService
	logger  *slog.Logger
}

// NewSupabaseWebhookHandler creates a new Supabase webhook handler.
func NewSupabaseWebhookHandler(cfg *config.Config, userSvc *service.UserService, logger *slog.Logger) *SupabaseWebhookHandler {
	return &SupabaseWebhookHandler{
		cfg:     cfg,
		userSvc: userSvc,
		logger:  logger,
	}
}

// SupabaseWebhookEvent represents a Supabase auth hook event.
type SupabaseWebhookEvent struct {
	Type   string          `json:"type"`
	Table  string          `json:"table"`
	Record json.RawMessage `json:"record"`
}

// SupabaseUserRecord is the user row carried by auth events.
type SupabaseUserRecord struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// HandleWebhook processes incoming Supabase auth hooks.
func (h *SupabaseWebhookHandler) HandleWebhook(w http.ResponseWriter, r *http.Request) {
	const maxBodySize = 65536 // 64KB

	r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)
	payload, err := io.ReadAll(r.Body)
	if err != nil {
		h.logger.Error("failed to read webhook body", "error", err)
		http.Error(w, "failed to read body", http.StatusBadRequest)
		return
	}

	headers := http.Header{}
	headers.Set("svix-id", firstHeader(r, "webhook-id", "svix-id"))
	headers.Set("svix-timestamp", firstHeader(r, "webhook-timestamp", "svix-timestamp"))
	headers.Set("svix-signature", firstHeader(r, "webhook-signature", "svix-signature"))

	wh, err := svix.NewWebhook(h.cfg.SupabaseWebhookSecret)
	if err != nil {
		h.logger.Error("failed to create webhook verifier", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	if err := wh.Verify(payload, headers); err != nil {
		h.logger.Error("failed to verify webhook signature", "error", err)
		http.Error(w, "invalid signature", http.StatusBadRequest)
		return
	}

	var event SupabaseWebhookEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		h.logger.Error("failed to parse webhook event", "error", err)
		http.Error(w, "invalid payload", http.StatusBadRequest)
		return
	}

	if err := h.handleEvent(r.Context(), event); err != nil {
		h.logger.Error("failed to handle webhook event", "type", event.Type, "error", err)
		// Return 200 to prevent retries for business logic errors
		w.WriteHeader(http.StatusOK)
		return
	}

	w.WriteHeader(http.StatusOK)
}

// handleEvent routes events to appropriate handlers.
func (h *SupabaseWebhookHandler) handleEvent(ctx context.Context, event SupabaseWebhookEvent) error {
	h.logger.Info("received Supabase webhook", "type", event.Type)

	var user SupabaseUserRecord
	if len(event.Record) > 0 {
		if err := json.Unmarshal(event.Record, &user); err != nil {
			return err
		}
	}
	if user.ID == "" {
		h.logger.Warn("auth event missing user id", "type", event.Type)
		return nil
	}

	switch event.Type {
	case "user.created", "INSERT":
		return h.userSvc.Provision(ctx, user.ID)
	case "user.deleted", "DELETE":
		return h.userSvc.Purge(ctx, user.ID)
	default:
		h.logger.Debug("unhandled webhook event type", "type", event.Type)
		return nil
	}
}

// firstHeader returns the first non-empty header among names. Supabase
// sends Standard Webhooks headers; svix's own names are accepted too.
func firstHeader(r *http.Request, names ...string) string {
	for _, name := range names {
		if v := r.Header.Get(name); v != "" {
			return v
		}
	}
	return ""
}
