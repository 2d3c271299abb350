package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	svix "github.com/svix/svix-webhooks/go"

	"github.com/nanobanana/nanobanana-api/internal/config"
	"github.com/nanobanana/nanobanana-api/internal/repository"
	"github.com/nanobanana/nanobanana-api/internal/service"
)

const supabaseSecret = "whsec_C2FVsBQIhrscChlQIMV+b5sSYspob7oD"

func newSupabaseWebhookHandler(t *testing.T) (*SupabaseWebhookHandler, *repository.Repositories) {
	t.Helper()
	repos := setupTestRepos(t)
	userSvc := service.NewUserService(repos, nil, testLogger())
	cfg := &config.Config{SupabaseWebhookSecret: supabaseSecret}
	return NewSupabaseWebhookHandler(cfg, userSvc, testLogger()), repos
}

func signedSupabaseRequest(t *testing.T, body string) *http.Request {
	t.Helper()
	wh, err := svix.NewWebhook(supabaseSecret)
	if err != nil {
		t.Fatalf("failed to create webhook signer: %v", err)
	}
	now := time.Now()
	signature, err := wh.Sign("msg_1", now, []byte(body))
	if err != nil {
		t.Fatalf("failed to sign payload: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/supabase", strings.NewReader(body))
	req.Header.Set("webhook-id", "msg_1")
	req.Header.Set("webhook-timestamp", strconv.FormatInt(now.Unix(), 10))
	req.Header.Set("webhook-signature", signature)
	return req
}

func TestSupabaseWebhook_UserCreatedProvisionsAccount(t *testing.T) {
	handler, repos := newSupabaseWebhookHandler(t)
	body := `{"type": "user.created", "record": {"id": "user-1", "email": "u@example.com"}}`

	rec := httptest.NewRecorder()
	handler.HandleWebhook(rec, signedSupabaseRequest(t, body))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	account, err := repos.Credits.Get(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("failed to read account: %v", err)
	}
	if account == nil {
		t.Fatal("account was not provisioned")
	}
	if account.TotalCredits != 0 || account.UsedCredits != 0 {
		t.Errorf("fresh account = %+v, want zero balances", account)
	}
}

func TestSupabaseWebhook_InsertAliasProvisions(t *testing.T) {
	handler, repos := newSupabaseWebhookHandler(t)
	body := `{"type": "INSERT", "table": "users", "record": {"id": "user-2"}}`

	rec := httptest.NewRecorder()
	handler.HandleWebhook(rec, signedSupabaseRequest(t, body))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	account, err := repos.Credits.Get(context.Background(), "user-2")
	if err != nil {
		t.Fatalf("failed to read account: %v", err)
	}
	if account == nil {
		t.Fatal("account was not provisioned")
	}
}

func TestSupabaseWebhook_UserDeletedPurges(t *testing.T) {
	ctx := context.Background()
	handler, repos := newSupabaseWebhookHandler(t)
	if _, err := repos.Credits.Ensure(ctx, "user-1"); err != nil {
		t.Fatalf("failed to seed account: %v", err)
	}

	body := `{"type": "user.deleted", "record": {"id": "user-1"}}`
	rec := httptest.NewRecorder()
	handler.HandleWebhook(rec, signedSupabaseRequest(t, body))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	account, err := repos.Credits.Get(ctx, "user-1")
	if err != nil {
		t.Fatalf("failed to read account: %v", err)
	}
	if account != nil {
		t.Error("account still exists after purge")
	}
}

func TestSupabaseWebhook_InvalidSignature(t *testing.T) {
	handler, repos := newSupabaseWebhookHandler(t)
	body := `{"type": "user.created", "record": {"id": "user-1"}}`

	req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/supabase", strings.NewReader(body))
	req.Header.Set("webhook-id", "msg_1")
	req.Header.Set("webhook-timestamp", strconv.FormatInt(time.Now().Unix(), 10))
	req.Header.Set("webhook-signature", "v1,bm90LWEtcmVhbC1zaWduYXR1cmU=")

	rec := httptest.NewRecorder()
	handler.HandleWebhook(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}

	account, err := repos.Credits.Get(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("failed to read account: %v", err)
	}
	if account != nil {
		t.Error("account was provisioned despite invalid signature")
	}
}

func TestSupabaseWebhook_UnknownTypeAcked(t *testing.T) {
	handler, _ := newSupabaseWebhookHandler(t)
	body := `{"type": "user.updated", "record": {"id": "user-1"}}`

	rec := httptest.NewRecorder()
	handler.HandleWebhook(rec, signedSupabaseRequest(t, body))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
}
