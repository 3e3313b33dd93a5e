package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/hitoshi/lienzo/internal/model"
)

var (
	// ErrInvalidCredentials は認証サービスがメールアドレスとパスワードの組を受け付けなかったことを表す。
	// 未確認アカウントなどの内訳は区別しない。
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrNoIdentity は認証に成功したが本人情報が返されなかったことを表す。
	ErrNoIdentity = errors.New("auth provider returned no identity")
)

// IdentityProvider はメールアドレスとパスワードで本人を検証する外部認証サービスのインターフェース。
type IdentityProvider interface {
	SignIn(ctx context.Context, email, password string) (*model.Identity, error)
}

// SupabaseAuthConfig はSupabase Authプロバイダーの設定。
type SupabaseAuthConfig struct {
	BaseURL    string // プロジェクトのURL
	AnonKey    string // restrictedキー
	HTTPClient *http.Client
}

// SupabaseAuthProvider はSupabase Auth（GoTrue）のパスワードグラントで本人を検証する。
type SupabaseAuthProvider struct {
	tokenURL   string
	anonKey    string
	httpClient *http.Client
}

// NewSupabaseAuthProvider はSupabaseAuthProviderを生成する。
func NewSupabaseAuthProvider(config SupabaseAuthConfig) *SupabaseAuthProvider {
	client := config.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}
	return &SupabaseAuthProvider{
		tokenURL:   strings.TrimRight(config.BaseURL, "/") + "/auth/v1/token?grant_type=password",
		anonKey:    config.AnonKey,
		httpClient: client,
	}
}

// supabaseTokenResponse はトークンエンドポイントのレスポンス。
// アクセストークンは使用せず、本人情報のみを取り出す。
type supabaseTokenResponse struct {
	User *struct {
		ID    string `json:"id"`
		Email string `json:"email"`
	} `json:"user"`
}

// SignIn はメールアドレスとパスワードを検証し、本人情報を返す。
func (p *SupabaseAuthProvider) SignIn(ctx context.Context, email, password string) (*model.Identity, error) {
	payload, err := json.Marshal(map[string]string{
		"email":    email,
		"password": password,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode sign-in request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.tokenURL, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create sign-in request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("apikey", p.anonKey)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("sign-in request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read sign-in response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status %d: %s", ErrInvalidCredentials, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var tokenResp supabaseTokenResponse
	if err := json.Unmarshal(body, &tokenResp); err != nil {
		return nil, fmt.Errorf("failed to parse sign-in response: %w", err)
	}

	if tokenResp.User == nil || tokenResp.User.ID == "" {
		return nil, ErrNoIdentity
	}

	return &model.Identity{
		ID:    tokenResp.User.ID,
		Email: tokenResp.User.Email,
	}, nil
}

// compile-time interface check
var _ IdentityProvider = (*SupabaseAuthProvider)(nil)
