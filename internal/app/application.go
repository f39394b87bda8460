package app

import (
	"context"

	"github.com/go-redis/redis/v8"
	"github.com/robfig/cron/v3"

	analyticssvc "github.com/nexus-partners/admin-backend/internal/app/services/analytics"
	auditsvc "github.com/nexus-partners/admin-backend/internal/app/services/audit"
	authsvc "github.com/nexus-partners/admin-backend/internal/app/services/auth"
	campaignsvc "github.com/nexus-partners/admin-backend/internal/app/services/campaigns"
	messagesvc "github.com/nexus-partners/admin-backend/internal/app/services/messages"
	moderationsvc "github.com/nexus-partners/admin-backend/internal/app/services/moderation"
	settingssvc "github.com/nexus-partners/admin-backend/internal/app/services/settings"
	subscriptionsvc "github.com/nexus-partners/admin-backend/internal/app/services/subscriptions"
	userssvc "github.com/nexus-partners/admin-backend/internal/app/services/users"
	"github.com/nexus-partners/admin-backend/internal/app/storage"
	"github.com/nexus-partners/admin-backend/internal/app/storage/memory"
	"github.com/nexus-partners/admin-backend/internal/config"
	"github.com/nexus-partners/admin-backend/internal/database"
	"github.com/nexus-partners/admin-backend/internal/errors"
	"github.com/nexus-partners/admin-backend/internal/gateway"
	"github.com/nexus-partners/admin-backend/pkg/logger"
)

// Dependencies carries the external clients the application wires into its
// services. A nil Store falls back to the in-memory implementation; the
// other clients may be nil, which leaves the feature they back unconfigured.
type Dependencies struct {
	Store    storage.Store
	Authn    authsvc.Authenticator
	Database *database.Client
	Cache    *redis.Client
	Email    *gateway.SendGridClient
	Payments *gateway.MonerooClient
}

// Application ties the domain services together and runs the campaign
// scheduler.
type Application struct {
	log   *logger.Logger
	cron  *cron.Cron
	store storage.Store

	Auth          *authsvc.Service
	Users         *userssvc.Service
	Subscriptions *subscriptionsvc.Service
	Moderation    *moderationsvc.Service
	Messages      *messagesvc.Service
	Campaigns     *campaignsvc.Service
	Analytics     *analyticssvc.Service
	Audit         *auditsvc.Service
	Settings      *settingssvc.Service
}

// New builds a fully wired application.
func New(cfg *config.Config, deps Dependencies, log *logger.Logger) (*Application, error) {
	if log == nil {
		log = logger.NewDefault("app")
	}
	store := deps.Store
	if store == nil {
		log.Warn("no store configured; using in-memory storage")
		store = memory.New()
	}
	authn := deps.Authn
	if authn == nil {
		log.Warn("no auth backend configured; sign-in is disabled")
		authn = unconfiguredAuth{}
	}

	var emailSender gateway.EmailSender
	if deps.Email != nil && deps.Email.Configured() {
		emailSender = deps.Email
	} else {
		log.Warn("email gateway not configured; outbound mail is disabled")
	}

	audits := auditsvc.New(store, store, log)
	auth := authsvc.New(authn, store, audits, authsvc.Config{
		JWTSecret:        cfg.Supabase.JWTSecret,
		AppName:          cfg.App.Name,
		ImpersonationTTL: cfg.Auth.ImpersonationTTL,
		Issuer:           cfg.Auth.ImpersonationIssuer,
	}, log)
	users := userssvc.New(store, audits, log)
	subscriptions := subscriptionsvc.New(store, deps.Payments, audits, log)
	moderation := moderationsvc.New(store, emailSender, audits, log)
	messages := messagesvc.New(store, emailSender, audits, log)
	campaigns := campaignsvc.New(store, emailSender, audits, log)
	analytics := analyticssvc.New(store, audits, log)
	settings := settingssvc.New(store, settingssvc.Dependencies{
		Database: deps.Database,
		Cache:    deps.Cache,
		Email:    deps.Email,
		Payments: deps.Payments,
	}, audits, log)

	a := &Application{
		log:           log,
		cron:          cron.New(),
		store:         store,
		Auth:          auth,
		Users:         users,
		Subscriptions: subscriptions,
		Moderation:    moderation,
		Messages:      messages,
		Campaigns:     campaigns,
		Analytics:     analytics,
		Audit:         audits,
		Settings:      settings,
	}

	// Due scheduled campaigns are picked up once a minute.
	if _, err := a.cron.AddFunc("* * * * *", func() {
		campaigns.RunDue(context.Background())
	}); err != nil {
		return nil, err
	}
	return a, nil
}

// Store exposes the wired storage backend, for the middleware that needs
// direct admin-profile lookups.
func (a *Application) Store() storage.Store {
	return a.store
}

// Start launches the background scheduler.
func (a *Application) Start() {
	a.cron.Start()
	a.log.Info("campaign scheduler started")
}

// Stop halts the scheduler, waiting for any running job.
func (a *Application) Stop(ctx context.Context) {
	done := a.cron.Stop().Done()
	select {
	case <-done:
	case <-ctx.Done():
		a.log.Warn("scheduler shutdown timed out")
	}
}

// unconfiguredAuth stands in when no Supabase project is wired up, so the
// rest of the API stays usable against the in-memory store.
type unconfiguredAuth struct{}

func (unconfiguredAuth) SignInWithPassword(context.Context, string, string) (*database.Session, error) {
	return nil, errors.NotConfigured("authentication")
}

func (unconfiguredAuth) RefreshSession(context.Context, string) (*database.Session, error) {
	return nil, errors.NotConfigured("authentication")
}

func (unconfiguredAuth) SignOut(context.Context, string) error {
	return errors.NotConfigured("authentication")
}
