package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// SupabaseStore はSupabase Storage REST APIを使用したObjectStoreの実装。
// 認証にはelevated(service role)キーを使用する。
type SupabaseStore struct {
	httpClient *http.Client
	baseURL    string
	serviceKey string
	bucket     string
	public     bool
}

// NewSupabaseStore はSupabaseStoreを生成する。baseURLはプロジェクトのURL。
func NewSupabaseStore(httpClient *http.Client, baseURL, serviceKey, bucket string, public bool) *SupabaseStore {
	return &SupabaseStore{
		httpClient: httpClient,
		baseURL:    strings.TrimRight(baseURL, "/"),
		serviceKey: serviceKey,
		bucket:     bucket,
		public:     public,
	}
}

// escapePath はパスをセグメントごとにエスケープする。
func escapePath(p string) string {
	segments := strings.Split(p, "/")
	for i, s := range segments {
		segments[i] = url.PathEscape(s)
	}
	return strings.Join(segments, "/")
}

func (s *SupabaseStore) objectURL(kind, path string) string {
	u := s.baseURL + "/storage/v1/object"
	if kind != "" {
		u += "/" + kind
	}
	u += "/" + url.PathEscape(s.bucket)
	if path != "" {
		u += "/" + escapePath(path)
	}
	return u
}

func (s *SupabaseStore) newRequest(ctx context.Context, method, target string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, fmt.Errorf("HTTPリクエストの作成に失敗しました: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+s.serviceKey)
	req.Header.Set("apikey", s.serviceKey)
	return req, nil
}

func (s *SupabaseStore) doJSON(ctx context.Context, method, target string, payload, out any) (int, error) {
	var body io.Reader
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return 0, fmt.Errorf("リクエストJSONの生成に失敗しました: %w", err)
		}
		body = bytes.NewReader(b)
	}

	req, err := s.newRequest(ctx, method, target, body)
	if err != nil {
		return 0, err
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("ストレージAPIの呼び出しに失敗しました: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return resp.StatusCode, statusError(resp)
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return resp.StatusCode, fmt.Errorf("レスポンスJSONのパースに失敗しました: %w", err)
		}
	}
	return resp.StatusCode, nil
}

// statusError はエラーレスポンスの本文からメッセージを取り出す。
func statusError(resp *http.Response) error {
	b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	var body struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	msg := strings.TrimSpace(string(b))
	if json.Unmarshal(b, &body) == nil {
		switch {
		case body.Message != "":
			msg = body.Message
		case body.Error != "":
			msg = body.Error
		}
	}
	return fmt.Errorf("ストレージAPIがステータス %d を返しました: %s", resp.StatusCode, msg)
}

// Upload はオブジェクトをアップロードする。
func (s *SupabaseStore) Upload(ctx context.Context, path string, body io.Reader, contentType string) error {
	req, err := s.newRequest(ctx, http.MethodPost, s.objectURL("", path), body)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("x-upsert", "false")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("ストレージAPIの呼び出しに失敗しました: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return statusError(resp)
	}
	return nil
}

// PublicURL は公開バケットのオブジェクトURLを返す。
func (s *SupabaseStore) PublicURL(path string) (string, error) {
	if !s.public {
		return "", ErrNoPublicURL
	}
	return s.objectURL("public", path), nil
}

// SignedURL は有効期限付きの署名URLを発行する。
func (s *SupabaseStore) SignedURL(ctx context.Context, path string, ttl time.Duration) (string, error) {
	var out struct {
		SignedURL string `json:"signedURL"`
	}
	payload := map[string]int64{"expiresIn": int64(ttl / time.Second)}
	if _, err := s.doJSON(ctx, http.MethodPost, s.objectURL("sign", path), payload, &out); err != nil {
		return "", err
	}
	if out.SignedURL == "" {
		return "", fmt.Errorf("署名URLがレスポンスに含まれていません")
	}
	return s.baseURL + "/storage/v1" + out.SignedURL, nil
}

type supabaseListRequest struct {
	Prefix string           `json:"prefix"`
	Limit  int              `json:"limit"`
	Offset int              `json:"offset"`
	SortBy supabaseListSort `json:"sortBy"`
}

type supabaseListSort struct {
	Column string `json:"column"`
	Order  string `json:"order"`
}

type supabaseObject struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
	Metadata  *struct {
		Size     *int64 `json:"size"`
		Mimetype string `json:"mimetype"`
	} `json:"metadata"`
}

// List はフォルダ配下のオブジェクトを作成日時の降順で取得する。
func (s *SupabaseStore) List(ctx context.Context, folder string, limit int) ([]Object, error) {
	payload := supabaseListRequest{
		Prefix: folder,
		Limit:  limit,
		SortBy: supabaseListSort{Column: "created_at", Order: "desc"},
	}

	var raw []supabaseObject
	if _, err := s.doJSON(ctx, http.MethodPost, s.objectURL("list", ""), payload, &raw); err != nil {
		return nil, err
	}

	objects := make([]Object, 0, len(raw))
	for _, r := range raw {
		obj := Object{
			ID:        r.ID,
			Name:      r.Name,
			Path:      joinPath(folder, r.Name),
			Size:      -1,
			CreatedAt: r.CreatedAt,
		}
		if r.Metadata != nil {
			if r.Metadata.Size != nil {
				obj.Size = *r.Metadata.Size
			}
			obj.ContentType = r.Metadata.Mimetype
		}
		objects = append(objects, obj)
	}
	return objects, nil
}

// Remove はオブジェクトを削除する。
func (s *SupabaseStore) Remove(ctx context.Context, path string) error {
	var removed []json.RawMessage
	payload := map[string][]string{"prefixes": {path}}
	if _, err := s.doJSON(ctx, http.MethodDelete, s.objectURL("", ""), payload, &removed); err != nil {
		return err
	}
	if len(removed) == 0 {
		return ErrObjectNotFound
	}
	return nil
}

func joinPath(folder, name string) string {
	if folder == "" {
		return name
	}
	return folder + "/" + name
}

var _ ObjectStore = (*SupabaseStore)(nil)
