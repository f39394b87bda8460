// Package auth implements operator sign-in, two-factor verification, session
// refresh and user impersonation on top of the Supabase auth API.
package auth

import (
	"context"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/nexus-partners/admin-backend/internal/app/domain/admin"
	auditdomain "github.com/nexus-partners/admin-backend/internal/app/domain/audit"
	"github.com/nexus-partners/admin-backend/internal/app/domain/user"
	auditsvc "github.com/nexus-partners/admin-backend/internal/app/services/audit"
	"github.com/nexus-partners/admin-backend/internal/app/storage"
	"github.com/nexus-partners/admin-backend/internal/database"
	"github.com/nexus-partners/admin-backend/internal/errors"
	"github.com/nexus-partners/admin-backend/internal/totp"
	"github.com/nexus-partners/admin-backend/pkg/logger"
)

// Authenticator is the subset of the Supabase auth API the service needs.
// *database.Client satisfies it.
type Authenticator interface {
	SignInWithPassword(ctx context.Context, email, password string) (*database.Session, error)
	RefreshSession(ctx context.Context, refreshToken string) (*database.Session, error)
	SignOut(ctx context.Context, accessToken string) error
}

// Config carries the token parameters.
type Config struct {
	JWTSecret        string
	AppName          string
	ImpersonationTTL time.Duration
	Issuer           string
}

// Service handles operator authentication.
type Service struct {
	authn   Authenticator
	admins  storage.AdminStore
	users   storage.UserStore
	imps    storage.ImpersonationStore
	audits  *auditsvc.Service
	cfg     Config
	log     *logger.Logger
	timeNow func() time.Time
}

// New constructs an auth service.
func New(authn Authenticator, store storage.Store, audits *auditsvc.Service, cfg Config, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("auth")
	}
	if cfg.ImpersonationTTL <= 0 {
		cfg.ImpersonationTTL = 15 * time.Minute
	}
	if cfg.AppName == "" {
		cfg.AppName = "Admin API"
	}
	return &Service{
		authn:   authn,
		admins:  store,
		users:   store,
		imps:    store,
		audits:  audits,
		cfg:     cfg,
		log:     log,
		timeNow: func() time.Time { return time.Now().UTC() },
	}
}

// LoginResult is the login response payload.
type LoginResult struct {
	AccessToken  string      `json:"access_token"`
	RefreshToken string      `json:"refresh_token"`
	ExpiresIn    int         `json:"expires_in"`
	Requires2FA  bool        `json:"requires_2fa"`
	User         UserSummary `json:"user"`
}

// UserSummary is the operator identity returned on login and on GET me.
type UserSummary struct {
	UserID      string `json:"user_id"`
	Email       string `json:"email"`
	FullName    string `json:"full_name"`
	Role        string `json:"role"`
	Requires2FA bool   `json:"requires_2fa"`
	MFAVerified bool   `json:"mfa_verified"`
}

func summarize(p admin.Profile) UserSummary {
	return UserSummary{
		UserID:      p.UserID,
		Email:       p.Email,
		FullName:    p.FullName,
		Role:        p.Role,
		Requires2FA: p.Requires2FA,
		MFAVerified: p.MFAVerified,
	}
}

// Login signs an operator in with email and password. Operators with 2FA
// enabled come back with Requires2FA set and must call VerifyTOTP before the
// RBAC layer opens non-auth routes.
func (s *Service) Login(ctx context.Context, email, password, ip, userAgent string) (LoginResult, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" || password == "" {
		return LoginResult{}, errors.Validation("email and password are required")
	}

	session, err := s.authn.SignInWithPassword(ctx, email, password)
	if err != nil {
		if database.IsInvalidCredentials(err) {
			return LoginResult{}, errors.Unauthorized("invalid credentials")
		}
		return LoginResult{}, errors.Internal("sign-in failed", err)
	}

	profile, err := s.admins.GetAdminByUserID(ctx, session.User.ID)
	if err != nil {
		// Authenticated but not an operator.
		return LoginResult{}, errors.Forbidden("no admin profile for this account")
	}
	if !profile.IsActive {
		return LoginResult{}, errors.Forbidden("admin account is deactivated")
	}

	now := s.timeNow()
	profile.LastLogin = &now
	profile.LoginCount++
	if profile.Requires2FA {
		// A fresh login always demands a fresh TOTP proof.
		profile.MFAVerified = false
		profile.MFAVerifiedAt = nil
	}
	if profile, err = s.admins.UpdateAdmin(ctx, profile); err != nil {
		s.log.WithError(err).WithField("user_id", profile.UserID).Warn("login bookkeeping failed")
	}

	s.audits.Record(ctx, auditdomain.Entry{
		EventType: auditdomain.EventAdminLogin,
		AdminID:   profile.UserID,
		IPAddress: ip,
		UserAgent: userAgent,
		Metadata:  map[string]interface{}{"email": profile.Email},
	})

	return LoginResult{
		AccessToken:  session.AccessToken,
		RefreshToken: session.RefreshToken,
		ExpiresIn:    session.ExpiresIn,
		Requires2FA:  profile.Requires2FA,
		User:         summarize(profile),
	}, nil
}

// VerifyTOTP checks a submitted code against the operator's secret and marks
// the session MFA-verified.
func (s *Service) VerifyTOTP(ctx context.Context, adminUserID, code string) (UserSummary, error) {
	profile, err := s.admins.GetAdminByUserID(ctx, adminUserID)
	if err != nil {
		return UserSummary{}, errors.NotFound("admin profile")
	}
	if profile.MFASecret == "" {
		return UserSummary{}, errors.NotConfigured("two-factor authentication")
	}
	if !totp.Validate(profile.MFASecret, code, s.timeNow()) {
		return UserSummary{}, errors.Unauthorized("invalid verification code")
	}

	now := s.timeNow()
	profile.MFAVerified = true
	profile.MFAVerifiedAt = &now
	if !profile.Requires2FA {
		// First successful verification completes enrollment.
		profile.Requires2FA = true
	}
	if profile, err = s.admins.UpdateAdmin(ctx, profile); err != nil {
		return UserSummary{}, errors.Internal("failed to update admin profile", err)
	}
	return summarize(profile), nil
}

// Setup2FA generates a fresh secret and provisioning URI. The secret stays
// unverified until the first successful VerifyTOTP.
func (s *Service) Setup2FA(ctx context.Context, adminUserID string) (secret, uri string, err error) {
	profile, err := s.admins.GetAdminByUserID(ctx, adminUserID)
	if err != nil {
		return "", "", errors.NotFound("admin profile")
	}
	secret, err = totp.GenerateSecret()
	if err != nil {
		return "", "", errors.Internal("failed to generate secret", err)
	}
	profile.MFASecret = secret
	profile.MFAVerified = false
	profile.MFAVerifiedAt = nil
	if _, err := s.admins.UpdateAdmin(ctx, profile); err != nil {
		return "", "", errors.Internal("failed to store secret", err)
	}
	return secret, totp.ProvisioningURI(secret, profile.Email, s.cfg.AppName), nil
}

// Refresh exchanges a refresh token for a new session.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (*database.Session, error) {
	refreshToken = strings.TrimSpace(refreshToken)
	if refreshToken == "" {
		return nil, errors.Validation("refresh_token is required")
	}
	session, err := s.authn.RefreshSession(ctx, refreshToken)
	if err != nil {
		if database.IsInvalidCredentials(err) {
			return nil, errors.InvalidToken(err)
		}
		return nil, errors.Internal("session refresh failed", err)
	}
	return session, nil
}

// Logout revokes the session and records the sign-out.
func (s *Service) Logout(ctx context.Context, accessToken, adminUserID string) error {
	if err := s.authn.SignOut(ctx, accessToken); err != nil {
		s.log.WithError(err).Warn("sign-out call failed")
	}
	s.audits.Record(ctx, auditdomain.Entry{
		EventType: auditdomain.EventAdminLogout,
		AdminID:   adminUserID,
	})
	return nil
}

// Me returns the operator's profile with the MFA secret masked.
func (s *Service) Me(ctx context.Context, adminUserID string) (admin.Profile, error) {
	profile, err := s.admins.GetAdminByUserID(ctx, adminUserID)
	if err != nil {
		return admin.Profile{}, errors.NotFound("admin profile")
	}
	profile.MFASecret = ""
	return profile, nil
}

// ImpersonationResult carries the short-lived user token and its session row.
type ImpersonationResult struct {
	Token     string                    `json:"token"`
	ExpiresAt time.Time                 `json:"expires_at"`
	Session   user.ImpersonationSession `json:"session"`
}

// Impersonate mints a short-lived token acting as the target user. The
// operator must have a verified MFA session; the token carries the operator's
// identity for traceability and the session row survives for the audit trail.
func (s *Service) Impersonate(ctx context.Context, operator admin.Profile, targetUserID, reason string) (ImpersonationResult, error) {
	if !operator.MFAVerified {
		return ImpersonationResult{}, errors.MFARequired()
	}
	if _, err := s.users.GetProfile(ctx, targetUserID); err != nil {
		return ImpersonationResult{}, errors.NotFound("user")
	}

	now := s.timeNow()
	expiresAt := now.Add(s.cfg.ImpersonationTTL)

	claims := jwt.MapClaims{
		"sub":             targetUserID,
		"role":            "authenticated",
		"aud":             "authenticated",
		"iat":             now.Unix(),
		"exp":             expiresAt.Unix(),
		"impersonated":    true,
		"impersonated_by": operator.UserID,
	}
	if s.cfg.Issuer != "" {
		claims["iss"] = s.cfg.Issuer
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.cfg.JWTSecret))
	if err != nil {
		return ImpersonationResult{}, errors.Internal("failed to sign token", err)
	}

	session, err := s.imps.CreateImpersonationSession(ctx, user.ImpersonationSession{
		AdminID:      operator.UserID,
		TargetUserID: targetUserID,
		Reason:       strings.TrimSpace(reason),
		ExpiresAt:    expiresAt,
	})
	if err != nil {
		return ImpersonationResult{}, errors.Internal("failed to create impersonation session", err)
	}

	s.audits.Record(ctx, auditdomain.Entry{
		EventType: auditdomain.EventUserImpersonated,
		Severity:  auditdomain.SeverityHigh,
		AdminID:   operator.UserID,
		UserID:    targetUserID,
		Metadata: map[string]interface{}{
			"session_id": session.ID,
			"reason":     session.Reason,
			"expires_at": expiresAt.Format(time.RFC3339),
		},
	})

	s.log.WithField("admin_id", operator.UserID).
		WithField("target_user_id", targetUserID).
		Info("impersonation session created")

	return ImpersonationResult{Token: token, ExpiresAt: expiresAt, Session: session}, nil
}

// RevokeImpersonation ends a session early. With no session id, the latest
// active session for the target user is revoked.
func (s *Service) RevokeImpersonation(ctx context.Context, operator admin.Profile, targetUserID, sessionID string) error {
	now := s.timeNow()
	if sessionID == "" {
		sessions, err := s.imps.ListImpersonationSessions(ctx, targetUserID)
		if err != nil {
			return errors.Internal("failed to list impersonation sessions", err)
		}
		for _, session := range sessions {
			if session.Active(now) {
				sessionID = session.ID
				break
			}
		}
		if sessionID == "" {
			return errors.NotFound("active impersonation session")
		}
	}
	if err := s.imps.RevokeImpersonationSession(ctx, sessionID, operator.UserID, now); err != nil {
		if err == storage.ErrNotFound {
			return errors.NotFound("impersonation session")
		}
		return errors.Internal("failed to revoke impersonation session", err)
	}
	s.audits.Record(ctx, auditdomain.Entry{
		EventType: auditdomain.EventUserImpersonated,
		Severity:  auditdomain.SeverityHigh,
		AdminID:   operator.UserID,
		UserID:    targetUserID,
		Metadata:  map[string]interface{}{"session_id": sessionID, "revoked": true},
	})
	return nil
}

var _ Authenticator = (*database.Client)(nil)
