// Command gateway runs the admin backend HTTP API.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/go-redis/redis/v8"
	"github.com/gorilla/mux"

	app "github.com/nexus-partners/admin-backend/internal/app"
	"github.com/nexus-partners/admin-backend/internal/app/httpapi"
	"github.com/nexus-partners/admin-backend/internal/app/metrics"
	"github.com/nexus-partners/admin-backend/internal/app/storage/supabase"
	"github.com/nexus-partners/admin-backend/internal/config"
	"github.com/nexus-partners/admin-backend/internal/database"
	"github.com/nexus-partners/admin-backend/internal/gateway"
	"github.com/nexus-partners/admin-backend/internal/middleware"
	"github.com/nexus-partners/admin-backend/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.NewDefault("gateway").WithError(err).Error("configuration invalid")
		os.Exit(1)
	}
	log := logger.New("gateway", cfg.App.LogLevel, os.Stdout)

	deps := app.Dependencies{}

	if cfg.Supabase.URL != "" {
		dbClient, err := database.NewClient(database.Config{
			URL:            cfg.Supabase.URL,
			AnonKey:        cfg.Supabase.AnonKey,
			ServiceRoleKey: cfg.Supabase.ServiceRoleKey,
		})
		if err != nil {
			log.WithError(err).Error("supabase client")
			os.Exit(1)
		}
		deps.Database = dbClient
		deps.Authn = dbClient
		deps.Store = supabase.New(dbClient)
	}

	if opts, err := redis.ParseURL(cfg.Redis.URL); err != nil {
		log.WithError(err).Warn("invalid REDIS_URL; rate limiting falls back to in-process counters")
	} else {
		deps.Cache = redis.NewClient(opts)
	}

	deps.Email = gateway.NewSendGridClient(cfg.Email.SendGridAPIKey, cfg.Email.From, cfg.Email.FromName, log)
	webhookSecret := cfg.Payment.WebhookSecret
	if webhookSecret == "" {
		webhookSecret = cfg.Payment.SecretKey
	}
	deps.Payments = gateway.NewMonerooClient(cfg.Payment.BaseURL, cfg.Payment.APIKey, webhookSecret, "https://"+cfg.App.AdminDomain, log)

	application, err := app.New(cfg, deps, log)
	if err != nil {
		log.WithError(err).Error("wiring failed")
		os.Exit(1)
	}

	router := mux.NewRouter()
	router.Handle("/metrics", metrics.Handler()).Methods(http.MethodGet)

	skipAuth := []string{
		"/",
		"/health",
		"/api/health",
		"/metrics",
		httpapi.APIPrefix,
		httpapi.APIPrefix + "/health",
		httpapi.APIPrefix + "/auth/login",
		httpapi.APIPrefix + "/auth/refresh",
		httpapi.APIPrefix + "/webhooks/moneroo",
	}

	cors := middleware.NewCORSMiddleware(cfg.CORSOriginList())
	tracing := middleware.NewTracingMiddleware(log)
	rateLimiter := middleware.NewRateLimiter(deps.Cache, cfg.RateLimit.PerMinute, cfg.RateLimit.Burst, log)
	authn := middleware.NewAuthMiddleware(cfg.Supabase.JWTSecret, log, skipAuth)
	rbac := middleware.NewRBACMiddleware(application.Store(), httpapi.APIPrefix, log)
	auditTrail := middleware.NewAuditMiddleware(application.Audit, httpapi.APIPrefix, log)

	router.Use(cors.Handler)
	if cfg.IsProduction() {
		// Localhost stays allowed so in-cluster health probes reach the
		// service directly.
		trusted := middleware.NewTrustedHostMiddleware([]string{cfg.App.AdminDomain, "localhost"})
		router.Use(trusted.Handler)
	}
	router.Use(tracing.Handler)
	router.Use(metrics.InstrumentHandler)
	router.Use(rateLimiter.Handler)
	router.Use(authn.Handler)
	router.Use(rbac.Handler)
	router.Use(auditTrail.Handler)

	handler := httpapi.NewHandler(httpapi.Services{
		Auth:          application.Auth,
		Users:         application.Users,
		Subscriptions: application.Subscriptions,
		Moderation:    application.Moderation,
		Messages:      application.Messages,
		Campaigns:     application.Campaigns,
		Analytics:     application.Analytics,
		Audit:         application.Audit,
		Settings:      application.Settings,
		Payments:      deps.Payments,
	}, cfg.App.Version, cfg.App.Environment, log)
	handler.Register(router)

	application.Start()

	server := &http.Server{
		Addr:    ":" + strconv.Itoa(cfg.App.Port),
		Handler: router,
	}

	errCh := make(chan error, 1)
	go func() {
		log.WithFields(map[string]interface{}{
			"addr":        server.Addr,
			"environment": cfg.App.Environment,
			"version":     cfg.App.Version,
		}).Info("listening")
		errCh <- server.ListenAndServe()
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-stop:
		log.WithField("signal", sig.String()).Info("shutting down")
	case err := <-errCh:
		log.WithError(err).Error("server stopped")
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.App.Shutdown)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.WithError(err).Warn("forced shutdown")
	}
	application.Stop(ctx)
	log.Info("stopped")
}
