package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	gcs "cloud.google.com/go/storage"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
)

// GCSStore はGoogle Cloud Storageを使用したObjectStoreの実装。
type GCSStore struct {
	bucketName string
	bucket     *gcs.BucketHandle
	isPublic   bool
	now        func() time.Time
}

// NewGCSStore はGCSStoreを生成する。認証情報はApplication Default Credentialsから解決する。
func NewGCSStore(ctx context.Context, bucketName string, isPublic bool, opts ...option.ClientOption) (*GCSStore, error) {
	client, err := gcs.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("GCSクライアントの生成に失敗しました: %w", err)
	}
	return newGCSStore(client, bucketName, isPublic), nil
}

func newGCSStore(client *gcs.Client, bucketName string, isPublic bool) *GCSStore {
	return &GCSStore{
		bucketName: bucketName,
		bucket:     client.Bucket(bucketName),
		isPublic:   isPublic,
		now:        time.Now,
	}
}

// Upload はオブジェクトを書き込む。同名のオブジェクトが既に存在する場合は失敗する。
func (s *GCSStore) Upload(ctx context.Context, path string, body io.Reader, contentType string) error {
	w := s.bucket.Object(path).If(gcs.Conditions{DoesNotExist: true}).NewWriter(ctx)
	w.ContentType = contentType

	_, err := io.Copy(w, body)
	errClose := w.Close()
	if err != nil {
		return fmt.Errorf("オブジェクトの書き込みに失敗しました: %w", err)
	}
	if errClose != nil {
		return fmt.Errorf("オブジェクトの書き込みに失敗しました: %w", errClose)
	}
	return nil
}

// PublicURL は公開バケットのオブジェクトURLを返す。
func (s *GCSStore) PublicURL(path string) (string, error) {
	if !s.isPublic {
		return "", ErrNoPublicURL
	}
	return "https://storage.googleapis.com/" + s.bucketName + "/" + path, nil
}

// SignedURL はV4署名のGET用URLを発行する。
func (s *GCSStore) SignedURL(_ context.Context, path string, ttl time.Duration) (string, error) {
	u, err := s.bucket.SignedURL(path, &gcs.SignedURLOptions{
		Method:  "GET",
		Expires: s.now().Add(ttl),
		Scheme:  gcs.SigningSchemeV4,
	})
	if err != nil {
		return "", fmt.Errorf("署名URLの発行に失敗しました: %w", err)
	}
	return u, nil
}

// List はフォルダ配下のオブジェクトを作成日時の降順で最大limit件返す。
// GCSの一覧は名前順のため、全件取得してから並べ替える。
func (s *GCSStore) List(ctx context.Context, folder string, limit int) ([]Object, error) {
	prefix := ""
	if folder != "" {
		prefix = folder + "/"
	}

	var objects []Object
	it := s.bucket.Objects(ctx, &gcs.Query{Prefix: prefix})
	for {
		attrs, err := it.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("オブジェクト一覧の取得に失敗しました: %w", err)
		}
		name := strings.TrimPrefix(attrs.Name, prefix)
		if name == "" || strings.Contains(name, "/") {
			continue
		}
		objects = append(objects, Object{
			ID:          fmt.Sprintf("%d", attrs.Generation),
			Name:        name,
			Path:        attrs.Name,
			Size:        attrs.Size,
			ContentType: attrs.ContentType,
			CreatedAt:   attrs.Created,
		})
	}

	sort.SliceStable(objects, func(i, j int) bool {
		return objects[i].CreatedAt.After(objects[j].CreatedAt)
	})
	if limit > 0 && len(objects) > limit {
		objects = objects[:limit]
	}
	return objects, nil
}

// Remove はオブジェクトを削除する。
func (s *GCSStore) Remove(ctx context.Context, path string) error {
	err := s.bucket.Object(path).Delete(ctx)
	if errors.Is(err, gcs.ErrObjectNotExist) {
		return ErrObjectNotFound
	}
	if err != nil {
		return fmt.Errorf("オブジェクトの削除に失敗しました: %w", err)
	}
	return nil
}

var _ ObjectStore = (*GCSStore)(nil)
