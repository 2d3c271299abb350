// Package main is the entry point for the nanobanana-api server.
// Note: identity (signup, sessions, OAuth) is handled by Supabase Auth;
// payments are handled by Creem. This service owns the credits ledger,
// webhook reconciliation and the generation proxy.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"

	"github.com/nanobanana/nanobanana-api/internal/auth"
	"github.com/nanobanana/nanobanana-api/internal/config"
	"github.com/nanobanana/nanobanana-api/internal/database"
	"github.com/nanobanana/nanobanana-api/internal/http/handlers"
	"github.com/nanobanana/nanobanana-api/internal/http/mw"
	"github.com/nanobanana/nanobanana-api/internal/logging"
	"github.com/nanobanana/nanobanana-api/internal/repository"
	"github.com/nanobanana/nanobanana-api/internal/service"
	"github.com/nanobanana/nanobanana-api/internal/version"
)

func main() {
	// Initialize logger with TTY detection, source paths, and format control
	logger := logging.SetDefault()

	v := version.Get()
	logger.Info("starting nanobanana-api",
		"version", v.Version,
		"commit", v.Commit,
		"built", v.Date,
		"go_version", v.GoVersion,
	)

	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	db, err := database.New(cfg.DatabaseURL)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer func() { _ = db.Close() }()

	if err := database.MigrateWithLogger(db, logger); err != nil {
		logger.Error("failed to run migrations", "error", err)
		os.Exit(1)
	}

	repos := repository.NewRepositories(db)

	services, err := service.NewServices(cfg, repos, logger)
	if err != nil {
		logger.Error("failed to initialize services", "error", err)
		os.Exit(1)
	}

	verifier := auth.NewSupabaseVerifier(cfg.SupabaseJWTSecret)

	// Create router
	router := chi.NewRouter()

	// Global middleware
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)

	// Request timeout middleware with different timeouts per endpoint type
	router.Use(mw.Timeout(mw.TimeoutConfig{
		Default:  30 * time.Second,
		Extended: cfg.GenerationTimeout + 10*time.Second,
		// Model inference gets the extended timeout
		ExtendedPatterns: []string{"/generate"},
	}))

	// CORS configuration
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"Link", "X-Request-ID", "X-RateLimit-Limit", "X-RateLimit-Remaining", "Retry-After"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Image uploads need headroom; everything else is small JSON
	router.Use(middleware.RequestSize(16 * 1024 * 1024))

	// Global rate limit by IP
	router.Use(httprate.LimitByIP(100, time.Minute))

	// Global concurrency throttle - prevent system overload
	router.Use(middleware.Throttle(100))

	// Create Huma API config for main API with OpenAPI docs
	humaConfig := huma.DefaultConfig("Nano Banana API", v.Version)
	humaConfig.Info.Description = "Credits ledger, checkout and AI image generation API for Nano Banana."
	humaConfig.Servers = []*huma.Server{
		{URL: cfg.BaseURL, Description: "API Server"},
	}
	humaConfig.Components.SecuritySchemes = map[string]*huma.SecurityScheme{
		"bearerAuth": {
			Type:        "http",
			Scheme:      "bearer",
			Description: "Supabase session JWT in the Authorization header.",
		},
	}

	// Main API with OpenAPI docs
	api := humachi.New(router, humaConfig)

	// Config for hidden routes (K8s probes - no docs needed)
	hiddenConfig := huma.DefaultConfig("Nano Banana API", v.Version)
	hiddenConfig.DocsPath = ""
	hiddenConfig.OpenAPIPath = ""
	hiddenConfig.SchemasPath = ""
	hiddenAPI := humachi.New(router, hiddenConfig)

	// Config for protected routes (docs are served by the main API)
	protectedConfig := huma.DefaultConfig("Nano Banana API", v.Version)
	protectedConfig.Info.Description = humaConfig.Info.Description
	protectedConfig.Servers = humaConfig.Servers
	protectedConfig.DocsPath = ""
	protectedConfig.OpenAPIPath = ""
	protectedConfig.SchemasPath = ""

	// Health check (public, shown in docs)
	huma.Get(api, "/api/v1/health", handlers.HealthCheck)

	// Public plan catalog (pricing page data)
	pricingHandler := handlers.NewPricingHandler(services.Plans)
	huma.Get(api, "/api/v1/pricing/plans", pricingHandler.ListPlans)

	// Checkout works with or without a session: the purchase page may
	// run before login, so the body carries the user reference, but a
	// session token takes precedence when one is sent
	router.Group(func(r chi.Router) {
		r.Use(mw.OptionalAuth(verifier))

		checkoutAPI := humachi.New(r, protectedConfig)
		checkoutHandler := handlers.NewCheckoutHandler(services.Checkout)
		huma.Post(checkoutAPI, "/api/v1/checkout", checkoutHandler.CreateCheckout)
	})

	// Kubernetes probes (hidden from docs - internal use only)
	huma.Get(hiddenAPI, "/healthz", handlers.Livez)
	readyzHandler := handlers.NewReadyzHandler(db)
	huma.Get(hiddenAPI, "/readyz", readyzHandler.Readyz)

	// Payment webhook (signature verified by handler, not user auth)
	if cfg.CreemWebhookSecret != "" {
		creemWebhook := handlers.NewCreemWebhookHandler(cfg, services.Reconciler, logger)
		router.Post("/api/v1/webhooks/creem", creemWebhook.HandleWebhook)
		logger.Info("creem webhook endpoint enabled")
	} else {
		logger.Warn("CREEM_WEBHOOK_SECRET not set - payment webhook endpoint disabled")
	}

	// Supabase auth hook (svix signature, not user auth)
	if cfg.SupabaseWebhookSecret != "" {
		supabaseWebhook := handlers.NewSupabaseWebhookHandler(cfg, services.User, logger)
		router.Post("/api/v1/webhooks/supabase", supabaseWebhook.HandleWebhook)
		logger.Info("supabase webhook endpoint enabled")
	}

	// Protected routes
	router.Group(func(r chi.Router) {
		r.Use(mw.Auth(verifier))

		protectedAPI := humachi.New(r, protectedConfig)

		creditsHandler := handlers.NewCreditsHandler(services.Ledger)
		huma.Get(protectedAPI, "/api/v1/credits", creditsHandler.GetCredits)
		huma.Post(protectedAPI, "/api/v1/credits", creditsHandler.MutateCredits)
		huma.Get(protectedAPI, "/api/v1/credits/transactions", creditsHandler.ListTransactions)

		// Raw handler: multipart body doesn't fit the typed JSON layer
		generateHandler := handlers.NewGenerateHandler(services.Generation, logger)
		r.Post("/api/v1/generate", generateHandler.HandleGenerate)
	})

	// Admin routes
	router.Group(func(r chi.Router) {
		r.Use(mw.Auth(verifier))
		r.Use(mw.RequireAdmin())

		adminAPI := humachi.New(r, protectedConfig)
		adminHandler := handlers.NewAdminHandler(services.Report)
		huma.Get(adminAPI, "/api/v1/admin/payments", adminHandler.GetPaymentsReport)
	})

	// Create server
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: cfg.GenerationTimeout + 30*time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// Graceful shutdown
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGTERM, syscall.SIGINT)
		<-sigChan

		logger.Info("shutting down server")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("server shutdown error", "error", err)
		}
	}()

	logger.Info("starting server", "port", cfg.Port, "base_url", cfg.BaseURL)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
}
