package middleware

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/hitoshi/lienzo/internal/model"
	"github.com/hitoshi/lienzo/internal/token"
)

// mockVerifier はTokenVerifierのモック実装。
type mockVerifier struct {
	verifyFn func(tokenString string) (*model.Claim, error)
	calls    int
}

func (m *mockVerifier) Verify(tokenString string) (*model.Claim, error) {
	m.calls++
	if m.verifyFn != nil {
		return m.verifyFn(tokenString)
	}
	return nil, token.ErrMalformed
}

func TestExtractBearerToken(t *testing.T) {
	tests := []struct {
		name    string
		header  string
		want    string
		wantErr error
	}{
		{"正常", "Bearer abc.def.ghi", "abc.def.ghi", nil},
		{"ヘッダーなし", "", "", ErrMissingAuthHeader},
		{"Basicスキーム", "Basic dXNlcjpwYXNz", "", ErrInvalidAuthScheme},
		{"小文字bearer", "bearer abc", "", ErrInvalidAuthScheme},
		{"スペースなし", "Bearerabc", "", ErrInvalidAuthScheme},
		{"トークンなし", "Bearer ", "", ErrEmptyToken},
		{"空白のみ", "Bearer    ", "", ErrEmptyToken},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ExtractBearerToken(tt.header)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("err = %v, want %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("token = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestAuthMiddleware_Rejections(t *testing.T) {
	tests := []struct {
		name       string
		header     string
		verifyErr  error
		claim      *model.Claim
		wantStatus int
		wantCode   string
		wantVerify bool
	}{
		{
			name:       "ヘッダーなし",
			header:     "",
			wantStatus: http.StatusUnauthorized,
			wantCode:   model.ErrCodeUnauthorized,
		},
		{
			name:       "スキーム不正",
			header:     "Token abc",
			wantStatus: http.StatusUnauthorized,
			wantCode:   model.ErrCodeUnauthorized,
		},
		{
			name:       "期限切れ",
			header:     "Bearer expired",
			verifyErr:  fmt.Errorf("%w: exp", token.ErrExpired),
			wantStatus: http.StatusUnauthorized,
			wantCode:   model.ErrCodeTokenExpired,
			wantVerify: true,
		},
		{
			name:       "署名不正",
			header:     "Bearer forged",
			verifyErr:  fmt.Errorf("%w: signature", token.ErrMalformed),
			wantStatus: http.StatusUnauthorized,
			wantCode:   model.ErrCodeTokenInvalid,
			wantVerify: true,
		},
		{
			name:       "ロール不一致",
			header:     "Bearer editor",
			claim:      &model.Claim{UserID: "u-2", Role: "editor"},
			wantStatus: http.StatusForbidden,
			wantCode:   model.ErrCodeForbidden,
			wantVerify: true,
		},
		{
			name:       "ロールなし",
			header:     "Bearer norole",
			claim:      &model.Claim{UserID: "u-3"},
			wantStatus: http.StatusForbidden,
			wantCode:   model.ErrCodeForbidden,
			wantVerify: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			verifier := &mockVerifier{
				verifyFn: func(string) (*model.Claim, error) {
					if tt.verifyErr != nil {
						return nil, tt.verifyErr
					}
					return tt.claim, nil
				},
			}

			handler := NewAuthMiddleware(verifier, model.RoleAdmin)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				t.Fatal("handler should not be called")
			}))

			req := httptest.NewRequest(http.MethodGet, "/api/v1/products", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()

			handler.ServeHTTP(w, req)

			if w.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", w.Code, tt.wantStatus)
			}
			var body ErrorResponseBody
			if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
				t.Fatalf("failed to decode body: %v", err)
			}
			if body.Code != tt.wantCode {
				t.Errorf("code = %q, want %q", body.Code, tt.wantCode)
			}
			if body.Error == "" {
				t.Error("expected non-empty error message")
			}
			if (verifier.calls > 0) != tt.wantVerify {
				t.Errorf("verifier called = %v, want %v", verifier.calls > 0, tt.wantVerify)
			}
		})
	}
}

func TestAuthMiddleware_Admin_AttachesClaim(t *testing.T) {
	verifier := &mockVerifier{
		verifyFn: func(tokenString string) (*model.Claim, error) {
			if tokenString != "good-token" {
				t.Errorf("token = %q, want %q", tokenString, "good-token")
			}
			return &model.Claim{UserID: "u-1", Email: "admin@example.com", Role: model.RoleAdmin}, nil
		},
	}

	var captured *model.Claim
	handler := NewAuthMiddleware(verifier, model.RoleAdmin)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claim, ok := ClaimFromContext(r.Context())
		if !ok {
			t.Fatal("claim not found in context")
		}
		captured = claim
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/products", nil)
	req.Header.Set("Authorization", "Bearer good-token")
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	if captured == nil || captured.UserID != "u-1" || captured.Email != "admin@example.com" {
		t.Errorf("claim = %+v", captured)
	}
}

func TestAuthMiddleware_WithRealCodec(t *testing.T) {
	codec, err := token.NewCodec("test-secret", 0)
	if err != nil {
		t.Fatalf("NewCodec() error = %v", err)
	}
	adminToken, _, err := codec.Issue(model.Claim{UserID: "u-1", Role: model.RoleAdmin})
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}
	userToken, _, err := codec.Issue(model.Claim{UserID: "u-2", Role: "customer"})
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}

	handler := NewAuthMiddleware(codec, model.RoleAdmin)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	tests := []struct {
		name   string
		token  string
		status int
	}{
		{"管理者", adminToken, http.StatusNoContent},
		{"一般ユーザー", userToken, http.StatusForbidden},
		{"改ざん", adminToken + "x", http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodDelete, "/api/v1/products/1", nil)
			req.Header.Set("Authorization", "Bearer "+tt.token)
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, req)
			if w.Code != tt.status {
				t.Errorf("status = %d, want %d", w.Code, tt.status)
			}
		})
	}
}

// TestAuthMiddleware_UserIDReachesAccessLog は認証後のユーザーIDが
// 外側のログミドルウェアの出力に含まれることを検証する。
func TestAuthMiddleware_UserIDReachesAccessLog(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelInfo}))

	verifier := &mockVerifier{
		verifyFn: func(string) (*model.Claim, error) {
			return &model.Claim{UserID: "admin-42", Role: model.RoleAdmin}, nil
		},
	}

	inner := NewAuthMiddleware(verifier, model.RoleAdmin)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	handler := NewLoggingMiddleware(logger)(inner)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/products", nil)
	req.Header.Set("Authorization", "Bearer t")
	handler.ServeHTTP(httptest.NewRecorder(), req)

	var entry map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("failed to parse JSON log: %v\nraw: %s", err, buf.String())
	}
	if entry["user_id"] != "admin-42" {
		t.Errorf("user_id = %v, want %q", entry["user_id"], "admin-42")
	}
}
