// Package middleware はHTTPミドルウェアを提供する。
package middleware

import (
	"context"

	"github.com/hitoshi/lienzo/internal/model"
)

// contextKey はコンテキストに値を格納するための型安全なキー。
type contextKey string

var (
	// claimContextKey はリクエストコンテキストに検証済みの本人情報を格納するためのキー。
	claimContextKey = contextKey("claim")
	// requestIDContextKey はリクエストIDを格納するためのキー。
	requestIDContextKey = contextKey("request_id")
	// requestInfoContextKey はアクセスログ用の可変情報を格納するためのキー。
	requestInfoContextKey = contextKey("request_info")
)

// requestInfo はアクセスログ出力時に参照するリクエスト単位の情報。
// 下流のミドルウェアが値を書き込み、ログミドルウェアが読み出す。
type requestInfo struct {
	userID string
}

// ClaimFromContext はリクエストコンテキストから検証済みの本人情報を取得する。
// 認証ミドルウェアを通過したリクエストでのみ値が存在する。
func ClaimFromContext(ctx context.Context) (*model.Claim, bool) {
	claim, ok := ctx.Value(claimContextKey).(*model.Claim)
	if !ok || claim == nil {
		return nil, false
	}
	return claim, true
}

// ContextWithClaim はコンテキストに本人情報を注入する。
// テストやミドルウェア以外のコンテキスト生成で使用する。
func ContextWithClaim(ctx context.Context, claim *model.Claim) context.Context {
	annotateUserID(ctx, claim.UserID)
	return context.WithValue(ctx, claimContextKey, claim)
}

// RequestIDFromContext はリクエストIDを取得する。未設定の場合は空文字列を返す。
func RequestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(requestIDContextKey).(string)
	return id
}

func annotateUserID(ctx context.Context, userID string) {
	if info, ok := ctx.Value(requestInfoContextKey).(*requestInfo); ok {
		info.userID = userID
	}
}
