// Package token はセッショントークンの発行と検証を提供する。
//
// トークンはHS256で署名されたJWTで、本人情報（id, email, role）と
// 発行時に固定される有効期限を含む。サーバー側にセッションストアや
// 失効リストは持たないため、発行済みトークンは期限まで有効である。
package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/hitoshi/lienzo/internal/model"
)

// DefaultTTL はトークンの既定の有効期間（7日）。
const DefaultTTL = 7 * 24 * time.Hour

var (
	// ErrExpired は有効期限を過ぎたトークンを表す。
	ErrExpired = errors.New("token expired")
	// ErrMalformed は署名不一致や構造不正など、期限切れ以外の検証失敗を表す。
	ErrMalformed = errors.New("token malformed")
	// ErrMissingSecret は署名鍵が設定されていないことを表す。
	ErrMissingSecret = errors.New("token signing secret is not set")
)

// claims はJWTペイロードの構造。
type claims struct {
	jwt.RegisteredClaims
	UserID string `json:"id"`
	Email  string `json:"email"`
	Role   string `json:"role"`
}

// Codec はセッショントークンの発行と検証を行う。
type Codec struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewCodec はCodecを生成する。
// secretが空の場合は起動時の設定エラーとしてErrMissingSecretを返す。
// ttlが0以下の場合はDefaultTTLを使用する。
func NewCodec(secret string, ttl time.Duration) (*Codec, error) {
	if secret == "" {
		return nil, ErrMissingSecret
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Codec{
		secret: []byte(secret),
		ttl:    ttl,
		now:    time.Now,
	}, nil
}

// TTL はトークンの有効期間を返す。
func (c *Codec) TTL() time.Duration {
	return c.ttl
}

// Issue はclaimに有効期限を付与して署名したトークンと、その有効期限を返す。
func (c *Codec) Issue(claim model.Claim) (string, time.Time, error) {
	issuedAt := c.now()
	expiresAt := issuedAt.Add(c.ttl)

	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   claim.UserID,
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
		UserID: claim.UserID,
		Email:  claim.Email,
		Role:   string(claim.Role),
	})

	signed, err := t.SignedString(c.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, expiresAt, nil
}

// Verify はトークンを検証し、埋め込まれた本人情報を返す。
// 期限切れの場合はErrExpired、それ以外の検証失敗はErrMalformedを返す。
func (c *Codec) Verify(tokenString string) (*model.Claim, error) {
	parsed := &claims{}
	_, err := jwt.ParseWithClaims(tokenString, parsed, func(t *jwt.Token) (any, error) {
		return c.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(c.now),
	)
	if err != nil {
		// 署名が正しく期限だけが切れている場合のみExpiredとする
		if errors.Is(err, jwt.ErrTokenExpired) && !errors.Is(err, jwt.ErrTokenSignatureInvalid) {
			return nil, fmt.Errorf("%w: %v", ErrExpired, err)
		}
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	return &model.Claim{
		UserID: parsed.UserID,
		Email:  parsed.Email,
		Role:   model.Role(parsed.Role),
	}, nil
}
