package auth

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/nexus-partners/admin-backend/internal/app/domain/admin"
	"github.com/nexus-partners/admin-backend/internal/app/domain/user"
	auditsvc "github.com/nexus-partners/admin-backend/internal/app/services/audit"
	"github.com/nexus-partners/admin-backend/internal/app/storage/memory"
	"github.com/nexus-partners/admin-backend/internal/database"
	"github.com/nexus-partners/admin-backend/internal/errors"
	"github.com/nexus-partners/admin-backend/internal/totp"
)

type fakeAuthn struct {
	userID   string
	email    string
	password string
	signOuts int
}

func (f *fakeAuthn) SignInWithPassword(_ context.Context, email, password string) (*database.Session, error) {
	if email != f.email || password != f.password {
		return nil, &database.AuthError{StatusCode: http.StatusBadRequest, Message: "invalid login credentials"}
	}
	return &database.Session{
		AccessToken:  "access-token",
		RefreshToken: "refresh-token",
		ExpiresIn:    3600,
		User:         database.AuthUser{ID: f.userID, Email: email},
	}, nil
}

func (f *fakeAuthn) RefreshSession(_ context.Context, refreshToken string) (*database.Session, error) {
	if refreshToken != "refresh-token" {
		return nil, &database.AuthError{StatusCode: http.StatusUnauthorized, Message: "invalid refresh token"}
	}
	return &database.Session{AccessToken: "access-token-2", RefreshToken: "refresh-token-2", ExpiresIn: 3600}, nil
}

func (f *fakeAuthn) SignOut(_ context.Context, _ string) error {
	f.signOuts++
	return nil
}

func newTestService(t *testing.T, authn Authenticator) (*Service, *memory.Store) {
	t.Helper()
	store := memory.New()
	audits := auditsvc.New(store, store, nil)
	svc := New(authn, store, audits, Config{
		JWTSecret:        "test-secret",
		AppName:          "Nexus Admin",
		ImpersonationTTL: 15 * time.Minute,
		Issuer:           "nexus-admin",
	}, nil)
	return svc, store
}

func TestLogin(t *testing.T) {
	authn := &fakeAuthn{userID: "admin-1", email: "ops@example.com", password: "hunter2"}
	svc, store := newTestService(t, authn)
	ctx := context.Background()

	if _, err := store.UpdateAdmin(ctx, admin.Profile{
		UserID:      "admin-1",
		Email:       "ops@example.com",
		Role:        admin.RoleAdmin,
		IsActive:    true,
		Requires2FA: true,
		MFAVerified: true,
	}); err != nil {
		t.Fatalf("seed admin: %v", err)
	}

	result, err := svc.Login(ctx, "Ops@Example.com", "hunter2", "203.0.113.9", "test-agent")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if result.AccessToken != "access-token" || result.RefreshToken != "refresh-token" {
		t.Fatalf("unexpected tokens: %+v", result)
	}
	if !result.Requires2FA {
		t.Fatalf("expected requires_2fa")
	}
	if result.User.MFAVerified {
		t.Fatalf("a fresh login must demand a fresh verification")
	}

	profile, err := store.GetAdminByUserID(ctx, "admin-1")
	if err != nil {
		t.Fatalf("get admin: %v", err)
	}
	if profile.LoginCount != 1 || profile.LastLogin == nil {
		t.Fatalf("login bookkeeping missed: count=%d", profile.LoginCount)
	}

	if _, err := svc.Login(ctx, "ops@example.com", "wrong", "", ""); errors.GetServiceError(err) == nil || errors.GetServiceError(err).Code != errors.CodeUnauthorized {
		t.Fatalf("expected unauthorized, got %v", err)
	}
	if _, err := svc.Login(ctx, "", "", "", ""); errors.GetServiceError(err) == nil || errors.GetServiceError(err).Code != errors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestLoginWithoutAdminProfile(t *testing.T) {
	authn := &fakeAuthn{userID: "user-9", email: "member@example.com", password: "pw"}
	svc, _ := newTestService(t, authn)

	_, err := svc.Login(context.Background(), "member@example.com", "pw", "", "")
	if se := errors.GetServiceError(err); se == nil || se.Code != errors.CodeForbidden {
		t.Fatalf("expected forbidden, got %v", err)
	}
}

func TestTOTPFlow(t *testing.T) {
	authn := &fakeAuthn{userID: "admin-1", email: "ops@example.com", password: "pw"}
	svc, store := newTestService(t, authn)
	ctx := context.Background()

	if _, err := store.UpdateAdmin(ctx, admin.Profile{
		UserID:   "admin-1",
		Email:    "ops@example.com",
		Role:     admin.RoleAdmin,
		IsActive: true,
	}); err != nil {
		t.Fatalf("seed admin: %v", err)
	}

	secret, uri, err := svc.Setup2FA(ctx, "admin-1")
	if err != nil {
		t.Fatalf("setup: %v", err)
	}
	if secret == "" || uri == "" {
		t.Fatalf("empty setup response")
	}

	if _, err := svc.VerifyTOTP(ctx, "admin-1", "000000"); err == nil {
		t.Fatalf("expected rejection of a bogus code")
	}

	code, err := totp.Code(secret, time.Now())
	if err != nil {
		t.Fatalf("generate code: %v", err)
	}
	summary, err := svc.VerifyTOTP(ctx, "admin-1", code)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if !summary.MFAVerified {
		t.Fatalf("expected verified session")
	}
	if !summary.Requires2FA {
		t.Fatalf("first verification should complete enrollment")
	}
}

func TestRefresh(t *testing.T) {
	authn := &fakeAuthn{}
	svc, _ := newTestService(t, authn)
	ctx := context.Background()

	session, err := svc.Refresh(ctx, "refresh-token")
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if session.AccessToken != "access-token-2" {
		t.Fatalf("unexpected session %+v", session)
	}

	if _, err := svc.Refresh(ctx, "stale"); errors.GetServiceError(err) == nil || errors.GetServiceError(err).Code != errors.CodeInvalidToken {
		t.Fatalf("expected invalid token, got %v", err)
	}
	if _, err := svc.Refresh(ctx, " "); errors.GetServiceError(err) == nil || errors.GetServiceError(err).Code != errors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestImpersonate(t *testing.T) {
	svc, store := newTestService(t, &fakeAuthn{})
	ctx := context.Background()

	if _, err := store.UpdateProfile(ctx, user.Profile{UserID: "user-1", Email: "target@example.com"}); err != nil {
		t.Fatalf("seed user: %v", err)
	}
	operator := admin.Profile{UserID: "admin-1", Role: admin.RoleAdmin, MFAVerified: true}

	result, err := svc.Impersonate(ctx, operator, "user-1", "support ticket 42")
	if err != nil {
		t.Fatalf("impersonate: %v", err)
	}
	if result.Session.AdminID != "admin-1" || result.Session.TargetUserID != "user-1" {
		t.Fatalf("unexpected session %+v", result.Session)
	}

	claims := jwt.MapClaims{}
	_, err = jwt.ParseWithClaims(result.Token, claims, func(*jwt.Token) (interface{}, error) {
		return []byte("test-secret"), nil
	})
	if err != nil {
		t.Fatalf("parse token: %v", err)
	}
	if claims["sub"] != "user-1" || claims["impersonated"] != true || claims["impersonated_by"] != "admin-1" {
		t.Fatalf("unexpected claims %v", claims)
	}
	exp, _ := claims["exp"].(float64)
	iat, _ := claims["iat"].(float64)
	if exp-iat != (15 * time.Minute).Seconds() {
		t.Fatalf("unexpected token lifetime %v", exp-iat)
	}

	if _, err := svc.Impersonate(ctx, admin.Profile{UserID: "admin-2"}, "user-1", ""); errors.GetServiceError(err) == nil || errors.GetServiceError(err).Code != errors.CodeMFARequired {
		t.Fatalf("expected MFA required, got %v", err)
	}
	if _, err := svc.Impersonate(ctx, operator, "missing", ""); errors.GetServiceError(err) == nil || errors.GetServiceError(err).Code != errors.CodeNotFound {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestRevokeImpersonation(t *testing.T) {
	svc, store := newTestService(t, &fakeAuthn{})
	ctx := context.Background()

	if _, err := store.UpdateProfile(ctx, user.Profile{UserID: "user-1"}); err != nil {
		t.Fatalf("seed user: %v", err)
	}
	operator := admin.Profile{UserID: "admin-1", Role: admin.RoleAdmin, MFAVerified: true}

	result, err := svc.Impersonate(ctx, operator, "user-1", "")
	if err != nil {
		t.Fatalf("impersonate: %v", err)
	}

	// No session id picks the latest active session for the user.
	if err := svc.RevokeImpersonation(ctx, operator, "user-1", ""); err != nil {
		t.Fatalf("revoke: %v", err)
	}

	sessions, err := store.ListImpersonationSessions(ctx, "user-1")
	if err != nil {
		t.Fatalf("list sessions: %v", err)
	}
	if len(sessions) != 1 || sessions[0].ID != result.Session.ID {
		t.Fatalf("unexpected sessions %+v", sessions)
	}
	if sessions[0].Active(time.Now()) {
		t.Fatalf("session still active after revoke")
	}

	if err := svc.RevokeImpersonation(ctx, operator, "user-1", ""); errors.GetServiceError(err) == nil || errors.GetServiceError(err).Code != errors.CodeNotFound {
		t.Fatalf("expected not found, got %v", err)
	}
}
