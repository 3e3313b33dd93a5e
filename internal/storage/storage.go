// Package storage は商品画像を保存するオブジェクトストレージを抽象化する。
package storage

import (
	"context"
	"errors"
	"io"
	"time"
)

var (
	// ErrObjectNotFound は指定パスのオブジェクトが存在しないことを表す。
	ErrObjectNotFound = errors.New("object not found")
	// ErrNoPublicURL はバケットが公開URLを提供しないことを表す。
	ErrNoPublicURL = errors.New("bucket does not serve public URLs")
)

// Object はバケット内のオブジェクト1件を表す。
type Object struct {
	ID          string
	Name        string // フォルダからの相対名
	Path        string // バケット内のフルパス
	Size        int64  // 不明な場合は-1
	ContentType string
	CreatedAt   time.Time
}

// ObjectStore はオブジェクトストレージ操作のインターフェース。
type ObjectStore interface {
	// Upload はオブジェクトを書き込む。既存パスへの上書きは行わない。
	Upload(ctx context.Context, path string, body io.Reader, contentType string) error

	// PublicURL は公開URLを返す。公開されていないバケットではErrNoPublicURLを返す。
	PublicURL(path string) (string, error)

	// SignedURL は有効期限付きの署名URLを発行する。
	SignedURL(ctx context.Context, path string, ttl time.Duration) (string, error)

	// List はフォルダ配下のオブジェクトを最大limit件返す。
	List(ctx context.Context, folder string, limit int) ([]Object, error)

	// Remove はオブジェクトを削除する。存在しない場合はErrObjectNotFoundを返す。
	Remove(ctx context.Context, path string) error
}
