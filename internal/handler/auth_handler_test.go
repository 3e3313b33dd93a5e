package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/hitoshi/lienzo/internal/auth"
	"github.com/hitoshi/lienzo/internal/model"
)

// --- POST /api/v1/auth/login ---

func TestAuthHandler_Login_Success(t *testing.T) {
	var gotEmail, gotPassword string
	svc := &mockAuthService{
		loginFn: func(ctx context.Context, email, password string) (*auth.LoginResult, error) {
			gotEmail, gotPassword = email, password
			return &auth.LoginResult{
				Token:     "signed.jwt.token",
				ExpiresAt: time.Now().Add(7 * 24 * time.Hour),
				User:      model.Claim{UserID: "user-1", Email: "admin@example.com", Role: model.RoleAdmin},
			}, nil
		},
	}
	h := NewAuthHandler(svc)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login",
		strings.NewReader(`{"email":"admin@example.com","password":"s3cret"}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h.Login(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	if gotEmail != "admin@example.com" || gotPassword != "s3cret" {
		t.Errorf("credentials = (%q, %q)", gotEmail, gotPassword)
	}

	var result struct {
		Token string            `json:"token"`
		User  map[string]string `json:"user"`
	}
	if err := json.NewDecoder(w.Body).Decode(&result); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if result.Token != "signed.jwt.token" {
		t.Errorf("token = %q", result.Token)
	}
	want := map[string]string{"id": "user-1", "email": "admin@example.com", "role": "admin"}
	for k, v := range want {
		if result.User[k] != v {
			t.Errorf("user.%s = %q, want %q", k, result.User[k], v)
		}
	}
}

func TestAuthHandler_Login_Errors(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"不正なJSON", `{"email":`, nil, http.StatusBadRequest, model.ErrCodeInvalidRequest},
		{"認証情報不正", `{"email":"a@example.com","password":"x"}`, model.NewInvalidCredentialsError(), http.StatusUnauthorized, model.ErrCodeInvalidCredentials},
		{"本人情報なし", `{"email":"a@example.com","password":"x"}`, model.NewAuthenticationFailedError(), http.StatusUnauthorized, model.ErrCodeAuthenticationFailed},
		{"管理者以外", `{"email":"a@example.com","password":"x"}`, model.NewNotAdminError(), http.StatusForbidden, model.ErrCodeNotAdmin},
		{"トークン発行失敗", `{"email":"a@example.com","password":"x"}`, errors.New("sign failed"), http.StatusInternalServerError, model.ErrCodeInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &mockAuthService{
				loginFn: func(ctx context.Context, email, password string) (*auth.LoginResult, error) {
					if tt.err == nil {
						t.Fatal("service should not be called")
					}
					return nil, tt.err
				},
			}
			h := NewAuthHandler(svc)

			req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", strings.NewReader(tt.body))
			w := httptest.NewRecorder()
			h.Login(w, req)

			if w.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", w.Code, tt.wantStatus)
			}
			body := parseAPIErrorResponse(t, w)
			if body["code"] != tt.wantCode {
				t.Errorf("code = %q, want %q", body["code"], tt.wantCode)
			}
			if body["error"] == "" {
				t.Error("error message should not be empty")
			}
		})
	}
}
