// Package auth は管理者ログインを提供する。
// 外部認証サービスで本人を検証し、プロフィールのロールを確認してセッショントークンを発行する。
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/hitoshi/lienzo/internal/model"
)

// ログイン結果のラベル
const (
	OutcomeSuccess            = "success"
	OutcomeInvalidCredentials = "invalid_credentials"
	OutcomeNoIdentity         = "no_identity"
	OutcomeForbidden          = "forbidden"
	OutcomeError              = "error"
)

// ProfileReader はロール解決のためにプロフィールを読み取るインターフェース。
// ログイン前の利用者は自分のプロフィールを通常経路で読めないため、elevated接続の実装を渡す。
type ProfileReader interface {
	FindByID(ctx context.Context, id string) (*model.Profile, error)
}

// TokenIssuer はセッショントークンを発行するインターフェース。
type TokenIssuer interface {
	Issue(claim model.Claim) (string, time.Time, error)
}

// LoginRecorder はログイン試行の結果を記録するインターフェース。
type LoginRecorder interface {
	RecordLogin(outcome string)
}

// LoginResult はログイン成功時の結果を表す。
type LoginResult struct {
	Token     string
	ExpiresAt time.Time
	User      model.Claim
}

// Service はログインのビジネスロジックを提供する。
type Service struct {
	provider IdentityProvider
	profiles ProfileReader
	tokens   TokenIssuer
	recorder LoginRecorder
	logger   *slog.Logger
}

// NewService はServiceを生成する。
func NewService(
	provider IdentityProvider,
	profiles ProfileReader,
	tokens TokenIssuer,
	recorder LoginRecorder,
	logger *slog.Logger,
) *Service {
	return &Service{
		provider: provider,
		profiles: profiles,
		tokens:   tokens,
		recorder: recorder,
		logger:   logger,
	}
}

// Login はメールアドレスとパスワードで管理者を認証し、セッショントークンを発行する。
// 各段階の失敗はその時点で打ち切る。
func (s *Service) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		s.record(OutcomeInvalidCredentials)
		return nil, model.NewInvalidCredentialsError()
	}

	// 1. 外部認証サービスで本人を検証
	identity, err := s.provider.SignIn(ctx, email, password)
	switch {
	case errors.Is(err, ErrNoIdentity):
		s.record(OutcomeNoIdentity)
		s.logger.Warn("auth provider returned no identity", slog.String("error", err.Error()))
		return nil, model.NewAuthenticationFailedError()
	case err != nil:
		s.record(OutcomeInvalidCredentials)
		s.logger.Info("login rejected by auth provider", slog.String("error", err.Error()))
		return nil, model.NewInvalidCredentialsError()
	case identity == nil || identity.ID == "":
		s.record(OutcomeNoIdentity)
		s.logger.Warn("auth provider returned no identity")
		return nil, model.NewAuthenticationFailedError()
	}

	// 2. elevated接続でロールを確認
	profile, err := s.profiles.FindByID(ctx, identity.ID)
	if err != nil {
		s.record(OutcomeForbidden)
		s.logger.Warn("failed to read profile during login",
			slog.String("user_id", identity.ID),
			slog.String("error", err.Error()),
		)
		return nil, model.NewNotAdminError()
	}
	if profile == nil || profile.Role != model.RoleAdmin {
		s.record(OutcomeForbidden)
		role := ""
		if profile != nil {
			role = string(profile.Role)
		}
		s.logger.Warn("non-admin login attempt",
			slog.String("user_id", identity.ID),
			slog.Bool("profile_found", profile != nil),
			slog.String("role", role),
		)
		return nil, model.NewNotAdminError()
	}

	// 3. セッショントークンを発行
	claim := model.Claim{
		UserID: identity.ID,
		Email:  identity.Email,
		Role:   profile.Role,
	}
	if claim.Email == "" {
		claim.Email = email
	}
	tok, expiresAt, err := s.tokens.Issue(claim)
	if err != nil {
		s.record(OutcomeError)
		return nil, fmt.Errorf("トークンの発行に失敗しました: %w", err)
	}

	s.record(OutcomeSuccess)
	s.logger.Info("admin logged in", slog.String("user_id", identity.ID))

	return &LoginResult{
		Token:     tok,
		ExpiresAt: expiresAt,
		User:      claim,
	}, nil
}

func (s *Service) record(outcome string) {
	if s.recorder != nil {
		s.recorder.RecordLogin(outcome)
	}
}
