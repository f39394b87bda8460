package database

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/nexus-partners/admin-backend/internal/httputil"
)

// AuthUser is the GoTrue representation of an authenticated user.
type AuthUser struct {
	ID           string                 `json:"id"`
	Email        string                 `json:"email"`
	Phone        string                 `json:"phone,omitempty"`
	LastSignInAt string                 `json:"last_sign_in_at,omitempty"`
	UserMetadata map[string]interface{} `json:"user_metadata,omitempty"`
	AppMetadata  map[string]interface{} `json:"app_metadata,omitempty"`
}

// Session is a GoTrue token pair with its owning user.
type Session struct {
	AccessToken  string   `json:"access_token"`
	TokenType    string   `json:"token_type"`
	ExpiresIn    int      `json:"expires_in"`
	RefreshToken string   `json:"refresh_token"`
	User         AuthUser `json:"user"`
}

// AuthError carries the GoTrue status so callers can distinguish bad
// credentials from transport failures.
type AuthError struct {
	StatusCode int
	Message    string
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("supabase auth error %d: %s", e.StatusCode, e.Message)
}

// IsInvalidCredentials reports whether the error is a GoTrue rejection of the
// supplied credentials rather than a transport or server failure.
func IsInvalidCredentials(err error) bool {
	authErr, ok := err.(*AuthError)
	return ok && (authErr.StatusCode == http.StatusBadRequest || authErr.StatusCode == http.StatusUnauthorized || authErr.StatusCode == http.StatusUnprocessableEntity)
}

func (c *Client) authRequest(ctx context.Context, method, path string, body interface{}, bearer string) ([]byte, error) {
	var reqBody io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal body: %w", err)
		}
		reqBody = bytes.NewReader(jsonBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.url+"/auth/v1"+path, reqBody)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	apikey := c.anonKey
	if apikey == "" {
		apikey = c.serviceKey
	}
	req.Header.Set("apikey", apikey)
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		respBody, _, readErr := httputil.ReadAllWithLimit(resp.Body, maxErrorBodyBytes)
		if readErr != nil {
			return nil, fmt.Errorf("read error response: %w", readErr)
		}
		return nil, &AuthError{StatusCode: resp.StatusCode, Message: strings.TrimSpace(string(respBody))}
	}

	return httputil.ReadAllStrict(resp.Body, maxResponseBytes)
}

// SignInWithPassword exchanges email and password for a session.
func (c *Client) SignInWithPassword(ctx context.Context, email, password string) (*Session, error) {
	body, err := c.authRequest(ctx, http.MethodPost, "/token?grant_type=password", map[string]string{
		"email":    email,
		"password": password,
	}, "")
	if err != nil {
		return nil, err
	}
	var session Session
	if err := json.Unmarshal(body, &session); err != nil {
		return nil, fmt.Errorf("decode session: %w", err)
	}
	return &session, nil
}

// RefreshSession exchanges a refresh token for a fresh session.
func (c *Client) RefreshSession(ctx context.Context, refreshToken string) (*Session, error) {
	body, err := c.authRequest(ctx, http.MethodPost, "/token?grant_type=refresh_token", map[string]string{
		"refresh_token": refreshToken,
	}, "")
	if err != nil {
		return nil, err
	}
	var session Session
	if err := json.Unmarshal(body, &session); err != nil {
		return nil, fmt.Errorf("decode session: %w", err)
	}
	return &session, nil
}

// SignOut revokes the session behind an access token. A GoTrue 401 is treated
// as success since the token is already unusable.
func (c *Client) SignOut(ctx context.Context, accessToken string) error {
	_, err := c.authRequest(ctx, http.MethodPost, "/logout", nil, accessToken)
	if err != nil {
		if authErr, ok := err.(*AuthError); ok && authErr.StatusCode == http.StatusUnauthorized {
			return nil
		}
		return err
	}
	return nil
}

// GetUser fetches the GoTrue user behind an access token.
func (c *Client) GetUser(ctx context.Context, accessToken string) (*AuthUser, error) {
	body, err := c.authRequest(ctx, http.MethodGet, "/user", nil, accessToken)
	if err != nil {
		return nil, err
	}
	var user AuthUser
	if err := json.Unmarshal(body, &user); err != nil {
		return nil, fmt.Errorf("decode user: %w", err)
	}
	return &user, nil
}
