// Package service contains the business logic layer.
// Note: identity (signup, sessions, OAuth) is handled by Supabase Auth.
// The UserID in services references Supabase user IDs (UUIDs).
package service

import (
	"log/slog"
	"time"

	"github.com/nanobanana/nanobanana-api/internal/config"
	"github.com/nanobanana/nanobanana-api/internal/llm"
	"github.com/nanobanana/nanobanana-api/internal/payments"
	"github.com/nanobanana/nanobanana-api/internal/repository"
)

// refundTimeout bounds the compensating grant that runs after a failed
// generation, detached from the request context.
const refundTimeout = 10 * time.Second

// Services holds all service instances.
type Services struct {
	Ledger     *LedgerService
	Reconciler *ReconcilerService
	Checkout   *CheckoutService
	Generation *GenerationService
	User       *UserService
	Report     *ReportService
	Storage    *StorageService
	Plans      *config.PlanConfig
}

// NewServices creates all service instances.
func NewServices(cfg *config.Config, repos *repository.Repositories, logger *slog.Logger) (*Services, error) {
	// Storage first, generation and user purge both want it.
	storageSvc, err := NewStorageService(cfg, logger)
	if err != nil {
		return nil, err
	}

	plans := config.DefaultPlanConfig()
	ledgerSvc := NewLedgerService(repos, logger)
	reconcilerSvc := NewReconcilerService(repos, &plans, logger)
	userSvc := NewUserService(repos, storageSvc, logger)
	reportSvc := NewReportService(repos, logger)

	creemClient := payments.NewClient(cfg.CreemAPIKey, cfg.CreemAPIBase, cfg.CheckoutTimeout)
	checkoutSvc := NewCheckoutService(creemClient, cfg, &plans, logger)

	llmClient := llm.NewOpenRouterClient(llm.OpenRouterConfig{
		APIKey:  cfg.OpenRouterAPIKey,
		BaseURL: cfg.OpenRouterBaseURL,
		Model:   cfg.GenerationModel,
		Referer: cfg.BaseURL,
		Title:   "Nano Banana",
		Timeout: cfg.GenerationTimeout,
	})
	generationSvc := NewGenerationService(llmClient, ledgerSvc, storageSvc, cfg.GenerationCost, logger)

	if cfg.OpenRouterAPIKey == "" {
		logger.Warn("no OpenRouter key configured - image generation will fail until set")
	}
	if cfg.CreemAPIKey == "" {
		logger.Warn("no Creem key configured - checkout endpoint will report unavailable")
	} else if cfg.CreemTestMode() {
		logger.Info("payment provider running in test mode")
	}

	return &Services{
		Ledger:     ledgerSvc,
		Reconciler: reconcilerSvc,
		Checkout:   checkoutSvc,
		Generation: generationSvc,
		User:       userSvc,
		Report:     reportSvc,
		Storage:    storageSvc,
		Plans:      &plans,
	}, nil
}
