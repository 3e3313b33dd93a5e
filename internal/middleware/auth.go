package middleware

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/hitoshi/lienzo/internal/model"
	"github.com/hitoshi/lienzo/internal/token"
)

const bearerPrefix = "Bearer "

var (
	// ErrMissingAuthHeader はAuthorizationヘッダーがないことを表す。
	ErrMissingAuthHeader = errors.New("missing authorization header")
	// ErrInvalidAuthScheme はBearer以外のスキームであることを表す。
	ErrInvalidAuthScheme = errors.New("invalid authorization scheme")
	// ErrEmptyToken はBearerの後にトークンがないことを表す。
	ErrEmptyToken = errors.New("empty bearer token")
)

// TokenVerifier はセッショントークンの検証に必要なインターフェース。
// token.Codecが実装する。
type TokenVerifier interface {
	Verify(tokenString string) (*model.Claim, error)
}

// ExtractBearerToken はAuthorizationヘッダーの値からトークンを取り出す。
func ExtractBearerToken(header string) (string, error) {
	if header == "" {
		return "", ErrMissingAuthHeader
	}
	if !strings.HasPrefix(header, bearerPrefix) {
		return "", ErrInvalidAuthScheme
	}
	raw := strings.TrimSpace(strings.TrimPrefix(header, bearerPrefix))
	if raw == "" {
		return "", ErrEmptyToken
	}
	return raw, nil
}

// NewAuthMiddleware はBearerトークンを検証し、要求ロールを満たすリクエストのみを
// 通過させるミドルウェアを返す。
//
//   - ヘッダーなし・スキーム不正: 401
//   - 期限切れ: 401 (TOKEN_EXPIRED)
//   - その他の検証失敗: 401 (TOKEN_INVALID)
//   - ロール不一致（ロールなしを含む）: 403
//
// 通過したリクエストのコンテキストには検証済みの本人情報を注入する。
func NewAuthMiddleware(verifier TokenVerifier, requiredRole model.Role) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// 1. ヘッダーからトークンを取得
			raw, err := ExtractBearerToken(r.Header.Get("Authorization"))
			if err != nil {
				WriteErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
				return
			}

			// 2. トークンを検証
			claim, err := verifier.Verify(raw)
			if err != nil {
				if errors.Is(err, token.ErrExpired) {
					WriteErrorResponse(w, http.StatusUnauthorized, model.NewTokenExpiredError())
					return
				}
				slog.Debug("token verification failed", slog.String("error", err.Error()))
				WriteErrorResponse(w, http.StatusUnauthorized, model.NewTokenInvalidError())
				return
			}

			// 3. ロールを検証
			if claim.Role == "" || claim.Role != requiredRole {
				annotateUserID(r.Context(), claim.UserID)
				WriteErrorResponse(w, http.StatusForbidden, model.NewForbiddenError(requiredRole))
				return
			}

			// 4. 本人情報をコンテキストに注入
			next.ServeHTTP(w, r.WithContext(ContextWithClaim(r.Context(), claim)))
		})
	}
}
