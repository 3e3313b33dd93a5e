// Package media は商品画像の保存・URL解決・一覧・削除を提供する。
package media

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/url"
	"path"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/hitoshi/lienzo/internal/model"
	"github.com/hitoshi/lienzo/internal/storage"
)

const (
	// placeholderName はストレージがフォルダ維持のために置く空オブジェクトの名前。
	placeholderName = ".emptyFolderPlaceholder"

	defaultSignedURLTTL = time.Hour
	defaultListLimit    = 100
	defaultContentType  = "application/octet-stream"
)

// ストレージ操作の結果ラベル
const (
	OutcomeSuccess  = "success"
	OutcomeFailure  = "failure"
	OutcomeNotFound = "not_found"
)

var unsafeNameChars = regexp.MustCompile(`(?i)[^a-z0-9.]`)

// OperationRecorder はストレージ操作の結果を記録するインターフェース。
type OperationRecorder interface {
	RecordStorageOperation(operation, outcome string)
}

// File はアップロードされたファイルを表す。
type File struct {
	Name        string // 元のファイル名
	ContentType string
	Body        io.Reader
}

// Config はService の設定。
type Config struct {
	Folder       string
	SignedURLTTL time.Duration
	ListLimit    int
}

// Service は商品画像の操作を提供する。
type Service struct {
	store    storage.ObjectStore
	folder   string
	ttl      time.Duration
	limit    int
	recorder OperationRecorder
	logger   *slog.Logger
	now      func() time.Time
}

// NewService はServiceを生成する。
func NewService(store storage.ObjectStore, cfg Config, recorder OperationRecorder, logger *slog.Logger) *Service {
	if cfg.SignedURLTTL <= 0 {
		cfg.SignedURLTTL = defaultSignedURLTTL
	}
	if cfg.ListLimit <= 0 {
		cfg.ListLimit = defaultListLimit
	}
	return &Service{
		store:    store,
		folder:   strings.Trim(cfg.Folder, "/"),
		ttl:      cfg.SignedURLTTL,
		limit:    cfg.ListLimit,
		recorder: recorder,
		logger:   logger,
		now:      time.Now,
	}
}

// SafeFileName はファイル名の英数字とドット以外を"_"に置き換え、小文字にする。
func SafeFileName(name string) string {
	return strings.ToLower(unsafeNameChars.ReplaceAllString(name, "_"))
}

// objectPath は保存先パス "<folder>/<ミリ秒>-<安全なファイル名>" を生成する。
func (s *Service) objectPath(name string) string {
	base := fmt.Sprintf("%d-%s", s.now().UnixMilli(), SafeFileName(name))
	if s.folder == "" {
		return base
	}
	return s.folder + "/" + base
}

// Upload はファイルを保存し、取得可能なURLを解決する。
// 失敗した場合は呼び出し元の操作全体を中断させるためエラーを返す。
func (s *Service) Upload(ctx context.Context, file *File) (*model.StoredImage, error) {
	if file == nil || file.Body == nil {
		return nil, model.NewFileRequiredError()
	}

	// multipartの既定値は拡張子から推定し直す
	contentType := file.ContentType
	if contentType == "" || contentType == defaultContentType {
		contentType = contentTypeFor(file.Name)
	}

	p := s.objectPath(file.Name)
	if err := s.store.Upload(ctx, p, file.Body, contentType); err != nil {
		s.record("upload", OutcomeFailure)
		return nil, fmt.Errorf("画像のアップロードに失敗しました: %w", err)
	}
	s.record("upload", OutcomeSuccess)

	u, err := s.ResolveURL(ctx, p)
	if err != nil {
		// URLが得られない画像は参照できないため削除しておく
		s.RemoveBestEffort(ctx, p)
		return nil, err
	}

	return &model.StoredImage{
		URL:          u,
		Path:         p,
		OriginalName: file.Name,
	}, nil
}

// ResolveURL は公開URLを優先し、得られないか不正な場合は署名URLを発行する。
func (s *Service) ResolveURL(ctx context.Context, p string) (string, error) {
	u, err := s.store.PublicURL(p)
	if err == nil && isUsableURL(u) {
		return u, nil
	}

	signed, err := s.store.SignedURL(ctx, p, s.ttl)
	if err != nil {
		s.record("sign", OutcomeFailure)
		return "", fmt.Errorf("署名URLの発行に失敗しました: %w", err)
	}
	s.record("sign", OutcomeSuccess)
	return signed, nil
}

// isUsableURL は絶対URLとして解釈でき、"undefined"を含まない場合にtrueを返す。
func isUsableURL(raw string) bool {
	if raw == "" || strings.Contains(raw, "undefined") {
		return false
	}
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

// ValidatePath はストレージパスを検証する。
func ValidatePath(p string) error {
	if strings.TrimSpace(p) == "" {
		return model.NewFilePathRequiredError()
	}
	if strings.HasPrefix(p, "/") {
		return model.NewInvalidFilePathError(p)
	}
	for _, seg := range strings.Split(p, "/") {
		if seg == ".." {
			return model.NewInvalidFilePathError(p)
		}
	}
	return nil
}

// Remove は指定パスの画像を削除する。存在しない場合も成功とする。
func (s *Service) Remove(ctx context.Context, p string) error {
	if err := ValidatePath(p); err != nil {
		return err
	}

	err := s.store.Remove(ctx, p)
	switch {
	case errors.Is(err, storage.ErrObjectNotFound):
		s.record("remove", OutcomeNotFound)
		return nil
	case err != nil:
		s.record("remove", OutcomeFailure)
		return fmt.Errorf("画像の削除に失敗しました: %w", err)
	}
	s.record("remove", OutcomeSuccess)
	return nil
}

// RemoveBestEffort は画像を削除し、失敗しても警告ログのみを出力する。
func (s *Service) RemoveBestEffort(ctx context.Context, p string) {
	if p == "" {
		return
	}
	if err := s.Remove(ctx, p); err != nil {
		s.logger.Warn("image cleanup failed",
			slog.String("storage_path", p),
			slog.String("error", err.Error()),
		)
	}
}

// List はフォルダ配下の画像を新しい順に返す。
func (s *Service) List(ctx context.Context) ([]model.MediaItem, error) {
	objects, err := s.store.List(ctx, s.folder, s.limit)
	if err != nil {
		s.record("list", OutcomeFailure)
		return nil, fmt.Errorf("画像一覧の取得に失敗しました: %w", err)
	}
	s.record("list", OutcomeSuccess)

	visible := make([]storage.Object, 0, len(objects))
	for _, obj := range objects {
		if obj.Name == "" || obj.Name == placeholderName {
			continue
		}
		visible = append(visible, obj)
	}
	sort.SliceStable(visible, func(i, j int) bool {
		return visible[i].CreatedAt.After(visible[j].CreatedAt)
	})
	if len(visible) > s.limit {
		visible = visible[:s.limit]
	}

	items := make([]model.MediaItem, 0, len(visible))
	for i, obj := range visible {
		u, err := s.ResolveURL(ctx, obj.Path)
		if err != nil {
			return nil, err
		}

		id := obj.ID
		if id == "" {
			id = fmt.Sprintf("%d", i+1)
		}
		contentType := obj.ContentType
		if contentType == "" {
			contentType = contentTypeFor(obj.Name)
		}

		items = append(items, model.MediaItem{
			ID:          id,
			Name:        obj.Name,
			Type:        "image",
			URL:         u,
			Size:        FormatSize(obj.Size),
			Date:        obj.CreatedAt.UTC().Format("2006-01-02"),
			Description: "Product image: " + obj.Name,
			MimeType:    contentType,
			StoragePath: obj.Path,
			CreatedAt:   obj.CreatedAt,
		})
	}
	return items, nil
}

// FormatSize はバイト数を "12.3 KB" 形式に変換する。不明な場合は "N/A"。
func FormatSize(size int64) string {
	if size <= 0 {
		return "N/A"
	}
	return fmt.Sprintf("%.1f KB", float64(size)/1024)
}

// contentTypeFor は拡張子からContent-Typeを推定する。
func contentTypeFor(name string) string {
	if ct := mime.TypeByExtension(strings.ToLower(path.Ext(name))); ct != "" {
		return ct
	}
	return defaultContentType
}

func (s *Service) record(operation, outcome string) {
	if s.recorder != nil {
		s.recorder.RecordStorageOperation(operation, outcome)
	}
}
