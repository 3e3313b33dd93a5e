package handler

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/hitoshi/lienzo/internal/media"
	"github.com/hitoshi/lienzo/internal/model"
)

// MediaServiceInterface はメディアハンドラーが必要とするサービスインターフェース。
type MediaServiceInterface interface {
	Upload(ctx context.Context, file *media.File) (*model.StoredImage, error)
	Remove(ctx context.Context, path string) error
	List(ctx context.Context) ([]model.MediaItem, error)
}

// MediaHandler は商品画像ライブラリのHTTPハンドラー。
type MediaHandler struct {
	service  MediaServiceInterface
	maxBytes int64
}

// NewMediaHandler はMediaHandlerを生成する。
func NewMediaHandler(service MediaServiceInterface, maxBytes int64) *MediaHandler {
	if maxBytes <= 0 {
		maxBytes = defaultUploadMaxBytes
	}
	return &MediaHandler{service: service, maxBytes: maxBytes}
}

// mediaItemResponse はメディアライブラリの1件。
type mediaItemResponse struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Type        string `json:"type"`
	URL         string `json:"url"`
	Size        string `json:"size"`
	Date        string `json:"date"`
	Description string `json:"description"`
	MimeType    string `json:"mimeType"`
	StoragePath string `json:"storagePath"`
}

// uploadResponse は単独アップロードのレスポンス。
type uploadResponse struct {
	URL         string `json:"url"`
	Name        string `json:"name"`
	StoragePath string `json:"storagePath"`
}

// ListImages は保存済みの商品画像を新しい順に返す。
// GET /api/v1/products/images
func (h *MediaHandler) ListImages(w http.ResponseWriter, r *http.Request) {
	items, err := h.service.List(r.Context())
	if err != nil {
		handleServiceError(w, r, "list images", err)
		return
	}

	resp := make([]mediaItemResponse, len(items))
	for i, it := range items {
		resp[i] = mediaItemResponse{
			ID:          it.ID,
			Name:        it.Name,
			Type:        it.Type,
			URL:         it.URL,
			Size:        it.Size,
			Date:        it.Date,
			Description: it.Description,
			MimeType:    it.MimeType,
			StoragePath: it.StoragePath,
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"media": resp})
}

// UploadImage は商品に紐付けずに画像を保存する。
// POST /api/v1/products/upload
func (h *MediaHandler) UploadImage(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxBytes)
	if err := r.ParseMultipartForm(h.maxBytes); err != nil {
		handleServiceError(w, r, "upload image", model.NewFileRequiredError())
		return
	}

	file, err := formFile(r)
	if err != nil {
		handleServiceError(w, r, "upload image", err)
		return
	}
	if file == nil {
		handleServiceError(w, r, "upload image", model.NewFileRequiredError())
		return
	}
	defer closeFile(file)

	img, err := h.service.Upload(r.Context(), file)
	if err != nil {
		handleServiceError(w, r, "upload image", err)
		return
	}

	writeJSON(w, http.StatusCreated, uploadResponse{
		URL:         img.URL,
		Name:        img.OriginalName,
		StoragePath: img.Path,
	})
}

// DeleteImage はfilePathで指定された画像を削除する。
// DELETE /api/v1/products/image?filePath=<path>
func (h *MediaHandler) DeleteImage(w http.ResponseWriter, r *http.Request) {
	filePath := decodeFilePath(r.URL.Query().Get("filePath"))
	if filePath == "" {
		handleServiceError(w, r, "delete image", model.NewFilePathRequiredError())
		return
	}

	if err := h.service.Remove(r.Context(), filePath); err != nil {
		handleServiceError(w, r, "delete image", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// decodeFilePath はクエリ文字列のデコード後にもう一度デコードする。
// 二重にエンコードされたパスを受け付けるため。デコードできない場合はそのまま返す。
func decodeFilePath(s string) string {
	s = strings.TrimSpace(s)
	if !strings.Contains(s, "%") {
		return s
	}
	decoded, err := url.PathUnescape(s)
	if err != nil {
		return s
	}
	return decoded
}
