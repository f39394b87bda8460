package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/gorilla/mux"

	"github.com/nexus-partners/admin-backend/internal/app/domain/admin"
	"github.com/nexus-partners/admin-backend/internal/app/domain/moderation"
	"github.com/nexus-partners/admin-backend/internal/app/domain/setting"
	"github.com/nexus-partners/admin-backend/internal/app/domain/user"
	analyticssvc "github.com/nexus-partners/admin-backend/internal/app/services/analytics"
	auditsvc "github.com/nexus-partners/admin-backend/internal/app/services/audit"
	authsvc "github.com/nexus-partners/admin-backend/internal/app/services/auth"
	campaignsvc "github.com/nexus-partners/admin-backend/internal/app/services/campaigns"
	messagesvc "github.com/nexus-partners/admin-backend/internal/app/services/messages"
	moderationsvc "github.com/nexus-partners/admin-backend/internal/app/services/moderation"
	settingssvc "github.com/nexus-partners/admin-backend/internal/app/services/settings"
	subscriptionsvc "github.com/nexus-partners/admin-backend/internal/app/services/subscriptions"
	userssvc "github.com/nexus-partners/admin-backend/internal/app/services/users"
	"github.com/nexus-partners/admin-backend/internal/app/storage/memory"
	"github.com/nexus-partners/admin-backend/internal/database"
	"github.com/nexus-partners/admin-backend/internal/errors"
	"github.com/nexus-partners/admin-backend/internal/middleware"
)

const testSecret = "integration-test-secret"

type noAuth struct{}

func (noAuth) SignInWithPassword(context.Context, string, string) (*database.Session, error) {
	return nil, errors.NotConfigured("authentication")
}

func (noAuth) RefreshSession(context.Context, string) (*database.Session, error) {
	return nil, errors.NotConfigured("authentication")
}

func (noAuth) SignOut(context.Context, string) error { return nil }

// newTestAPI wires the full stack: memory store, services, router and the
// auth and RBAC middleware, exactly as the server assembles them.
func newTestAPI(t *testing.T) (*mux.Router, *memory.Store) {
	t.Helper()
	store := memory.New()
	audits := auditsvc.New(store, store, nil)

	svc := Services{
		Auth: authsvc.New(noAuth{}, store, audits, authsvc.Config{
			JWTSecret: testSecret,
			AppName:   "Nexus Admin",
		}, nil),
		Users:         userssvc.New(store, audits, nil),
		Subscriptions: subscriptionsvc.New(store, nil, audits, nil),
		Moderation:    moderationsvc.New(store, nil, audits, nil),
		Messages:      messagesvc.New(store, nil, audits, nil),
		Campaigns:     campaignsvc.New(store, nil, audits, nil),
		Analytics:     analyticssvc.New(store, audits, nil),
		Audit:         audits,
		Settings:      settingssvc.New(store, settingssvc.Dependencies{}, audits, nil),
	}

	router := mux.NewRouter()
	skip := []string{
		"/", "/health", "/api/health",
		APIPrefix, APIPrefix + "/health",
		APIPrefix + "/auth/login", APIPrefix + "/auth/refresh",
	}
	router.Use(middleware.NewAuthMiddleware(testSecret, nil, skip).Handler)
	router.Use(middleware.NewRBACMiddleware(store, APIPrefix, nil).Handler)
	NewHandler(svc, "test", "test", nil).Register(router)
	return router, store
}

func seedOperator(t *testing.T, store *memory.Store, profile admin.Profile) {
	t.Helper()
	if _, err := store.UpdateAdmin(context.Background(), profile); err != nil {
		t.Fatalf("seed admin: %v", err)
	}
}

func bearerFor(t *testing.T, userID string) string {
	t.Helper()
	now := time.Now()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":  userID,
		"role": "authenticated",
		"iat":  now.Unix(),
		"exp":  now.Add(time.Hour).Unix(),
	}).SignedString([]byte(testSecret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return "Bearer " + token
}

func call(t *testing.T, router *mux.Router, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	if token != "" {
		req.Header.Set("Authorization", token)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestHealthIsPublic(t *testing.T) {
	router, _ := newTestAPI(t)

	for _, path := range []string{"/health", "/api/health", APIPrefix + "/health"} {
		rec := call(t, router, http.MethodGet, path, "", nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("%s: expected 200, got %d", path, rec.Code)
		}
	}

	rec := call(t, router, http.MethodGet, APIPrefix+"/users", "", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without a token, got %d", rec.Code)
	}
}

func TestUserLifecycleOverHTTP(t *testing.T) {
	router, store := newTestAPI(t)
	ctx := context.Background()
	seedOperator(t, store, admin.Profile{UserID: "admin-1", Role: admin.RoleAdmin, IsActive: true, MFAVerified: true})
	if _, err := store.UpdateProfile(ctx, user.Profile{UserID: "user-1", FirstName: "Aya"}); err != nil {
		t.Fatalf("seed user: %v", err)
	}
	token := bearerFor(t, "admin-1")

	rec := call(t, router, http.MethodGet, APIPrefix+"/users?limit=10", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("list: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var list struct {
		Data  []user.Profile `json:"data"`
		Total int            `json:"total"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &list); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if list.Total != 1 || len(list.Data) != 1 {
		t.Fatalf("unexpected list %+v", list)
	}

	rec = call(t, router, http.MethodPost, APIPrefix+"/users/user-1/block", token, map[string]string{"reason": "abuse"})
	if rec.Code != http.StatusOK {
		t.Fatalf("block: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	profile, err := store.GetProfile(ctx, "user-1")
	if err != nil {
		t.Fatalf("get profile: %v", err)
	}
	if !profile.IsBlocked {
		t.Fatalf("user not blocked")
	}

	// Blocking without a reason is a 400.
	rec = call(t, router, http.MethodPost, APIPrefix+"/users/user-1/unblock", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("unblock: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	rec = call(t, router, http.MethodPost, APIPrefix+"/users/user-1/block", token, map[string]string{})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("block without reason: expected 400, got %d", rec.Code)
	}
}

func TestRoleEnforcementOverHTTP(t *testing.T) {
	router, store := newTestAPI(t)
	seedOperator(t, store, admin.Profile{UserID: "viewer-1", Role: admin.RoleViewer, IsActive: true})
	token := bearerFor(t, "viewer-1")

	rec := call(t, router, http.MethodGet, APIPrefix+"/analytics/dashboard", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("analytics: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	rec = call(t, router, http.MethodGet, APIPrefix+"/users", token, nil)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("users as viewer: expected 403, got %d", rec.Code)
	}
}

func TestModerationDecisionOverHTTP(t *testing.T) {
	router, store := newTestAPI(t)
	ctx := context.Background()
	seedOperator(t, store, admin.Profile{UserID: "mod-1", Role: admin.RoleModerator, IsActive: true})
	token := bearerFor(t, "mod-1")

	e, err := store.UpdateEntrepreneur(ctx, moderation.Entrepreneur{
		ID: "ent-1", UserID: "user-1", BusinessName: "Atelier Koffi", Status: "pending",
	})
	if err != nil {
		t.Fatalf("seed entrepreneur: %v", err)
	}
	if _, err := store.UpdateQueueItem(ctx, moderation.QueueItem{EntrepreneurID: e.ID, Status: moderation.StatusPending}); err != nil {
		t.Fatalf("seed queue item: %v", err)
	}

	rec := call(t, router, http.MethodPost, APIPrefix+"/entrepreneurs/ent-1/moderate", token, map[string]string{"decision": "approved"})
	if rec.Code != http.StatusOK {
		t.Fatalf("moderate: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	updated, err := store.GetEntrepreneur(ctx, "ent-1")
	if err != nil {
		t.Fatalf("get entrepreneur: %v", err)
	}
	if updated.Status != "approved" {
		t.Fatalf("entrepreneur not approved: %+v", updated)
	}
}

func TestSettingsOverHTTP(t *testing.T) {
	router, store := newTestAPI(t)
	ctx := context.Background()
	seedOperator(t, store, admin.Profile{UserID: "admin-1", Role: admin.RoleAdmin, IsActive: true})
	token := bearerFor(t, "admin-1")

	if _, err := store.UpdateSetting(ctx, setting.SystemSetting{
		SettingKey: "maintenance_mode", SettingValue: "false", SettingType: setting.TypeBoolean, Category: "maintenance",
	}); err != nil {
		t.Fatalf("seed setting: %v", err)
	}

	rec := call(t, router, http.MethodPost, APIPrefix+"/settings/maintenance/toggle", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("toggle: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), `"maintenance_mode":true`) {
		t.Fatalf("unexpected body %s", rec.Body.String())
	}

	rec = call(t, router, http.MethodGet, APIPrefix+"/settings/maintenance_mode", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("get: expected 200, got %d", rec.Code)
	}
	var row setting.SystemSetting
	if err := json.Unmarshal(rec.Body.Bytes(), &row); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if row.SettingValue != "true" {
		t.Fatalf("unexpected setting %+v", row)
	}
}

func TestAuditTrailOverHTTP(t *testing.T) {
	router, store := newTestAPI(t)
	ctx := context.Background()
	seedOperator(t, store, admin.Profile{UserID: "admin-1", Role: admin.RoleAdmin, IsActive: true})
	if _, err := store.UpdateProfile(ctx, user.Profile{UserID: "user-1"}); err != nil {
		t.Fatalf("seed user: %v", err)
	}
	token := bearerFor(t, "admin-1")

	rec := call(t, router, http.MethodPost, APIPrefix+"/users/user-1/block", token, map[string]string{"reason": "spam"})
	if rec.Code != http.StatusOK {
		t.Fatalf("block: expected 200, got %d", rec.Code)
	}

	rec = call(t, router, http.MethodGet, APIPrefix+"/audit/logs", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("logs: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var page struct {
		Data []struct {
			EventType string `json:"event_type"`
			HashValid bool   `json:"hash_valid"`
		} `json:"data"`
		Total int `json:"total"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &page); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if page.Total != 1 || len(page.Data) != 1 {
		t.Fatalf("unexpected page %+v", page)
	}
	if page.Data[0].EventType != "user.blocked" || !page.Data[0].HashValid {
		t.Fatalf("unexpected entry %+v", page.Data[0])
	}

	rec = call(t, router, http.MethodGet, APIPrefix+"/audit/export", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("export: expected 200, got %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/csv") {
		t.Fatalf("unexpected content type %q", ct)
	}
	if !strings.HasPrefix(rec.Body.String(), "# Export Hash: ") {
		t.Fatalf("export missing hash prefix")
	}
}
