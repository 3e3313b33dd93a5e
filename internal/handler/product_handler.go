package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/lienzo/internal/media"
	"github.com/hitoshi/lienzo/internal/model"
	"github.com/hitoshi/lienzo/internal/product"
)

// defaultUploadMaxBytes はリクエストボディの既定の上限（10MB）。
const defaultUploadMaxBytes int64 = 10 << 20

// ProductServiceInterface は商品ハンドラーが必要とするサービスインターフェース。
type ProductServiceInterface interface {
	List(ctx context.Context) ([]*model.Product, error)
	GetByID(ctx context.Context, id int64) (*model.Product, error)
	GetBySlug(ctx context.Context, slug string) (*model.Product, error)
	Create(ctx context.Context, raw product.RawFields, file *media.File) (*model.Product, error)
	Update(ctx context.Context, id int64, raw product.RawFields, file *media.File) (*model.Product, error)
	Delete(ctx context.Context, id int64) error
}

// ProductHandler は商品管理のHTTPハンドラー。
type ProductHandler struct {
	service  ProductServiceInterface
	maxBytes int64
}

// NewProductHandler はProductHandlerを生成する。maxBytesが0以下の場合は10MBを上限とする。
func NewProductHandler(service ProductServiceInterface, maxBytes int64) *ProductHandler {
	if maxBytes <= 0 {
		maxBytes = defaultUploadMaxBytes
	}
	return &ProductHandler{service: service, maxBytes: maxBytes}
}

// productResponse は商品のAPIレスポンス。
type productResponse struct {
	ID          int64             `json:"id"`
	Name        string            `json:"name"`
	Slug        string            `json:"slug"`
	Description *string           `json:"description"`
	Category    *string           `json:"category"`
	Price       *float64          `json:"price"`
	Stock       *int              `json:"stock"`
	ImageURL    *string           `json:"image_url"`
	ImagePath   *string           `json:"image_path"`
	Attributes  map[string]string `json:"attributes"`
	CreatedAt   time.Time         `json:"created_at"`
	UpdatedAt   time.Time         `json:"updated_at"`
}

func toProductResponse(p *model.Product) productResponse {
	attrs := p.Attributes
	if attrs == nil {
		attrs = map[string]string{}
	}
	return productResponse{
		ID:          p.ID,
		Name:        p.Name,
		Slug:        p.Slug,
		Description: p.Description,
		Category:    p.Category,
		Price:       p.Price,
		Stock:       p.Stock,
		ImageURL:    p.ImageURL,
		ImagePath:   p.ImagePath,
		Attributes:  attrs,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
}

// ListProducts は全商品を返す。
// GET /api/v1/products
func (h *ProductHandler) ListProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.service.List(r.Context())
	if err != nil {
		handleServiceError(w, r, "list products", err)
		return
	}

	resp := make([]productResponse, len(products))
	for i, p := range products {
		resp[i] = toProductResponse(p)
	}
	writeJSON(w, http.StatusOK, map[string]any{"products": resp})
}

// GetProduct はIDで商品を返す。
// GET /api/v1/products/{id}
func (h *ProductHandler) GetProduct(w http.ResponseWriter, r *http.Request) {
	id, err := product.ParseID(chi.URLParam(r, "id"))
	if err != nil {
		handleServiceError(w, r, "get product", err)
		return
	}

	p, err := h.service.GetByID(r.Context(), id)
	if err != nil {
		handleServiceError(w, r, "get product", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"product": toProductResponse(p)})
}

// GetProductBySlug はスラッグで商品を返す。
// GET /api/v1/products/slug/{slug}
func (h *ProductHandler) GetProductBySlug(w http.ResponseWriter, r *http.Request) {
	p, err := h.service.GetBySlug(r.Context(), chi.URLParam(r, "slug"))
	if err != nil {
		handleServiceError(w, r, "get product by slug", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"product": toProductResponse(p)})
}

// CreateProduct は商品を作成する。multipart/form-dataの場合はfileフィールドの画像も保存する。
// POST /api/v1/products
func (h *ProductHandler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	raw, file, err := h.parseProductBody(w, r)
	if err != nil {
		handleServiceError(w, r, "create product", err)
		return
	}
	defer closeFile(file)

	p, err := h.service.Create(r.Context(), raw, file)
	if err != nil {
		handleServiceError(w, r, "create product", err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"product": toProductResponse(p)})
}

// UpdateProduct は商品を部分更新する。
// PUT /api/v1/products/{id}
func (h *ProductHandler) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	id, err := product.ParseID(chi.URLParam(r, "id"))
	if err != nil {
		handleServiceError(w, r, "update product", err)
		return
	}

	raw, file, err := h.parseProductBody(w, r)
	if err != nil {
		handleServiceError(w, r, "update product", err)
		return
	}
	defer closeFile(file)

	p, err := h.service.Update(r.Context(), id, raw, file)
	if err != nil {
		handleServiceError(w, r, "update product", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"product": toProductResponse(p)})
}

// DeleteProduct は商品を削除する。
// DELETE /api/v1/products/{id}
func (h *ProductHandler) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	id, err := product.ParseID(chi.URLParam(r, "id"))
	if err != nil {
		handleServiceError(w, r, "delete product", err)
		return
	}

	if err := h.service.Delete(r.Context(), id); err != nil {
		handleServiceError(w, r, "delete product", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// parseProductBody はContent-Typeに応じて商品の項目と添付ファイルを取り出す。
// multipart/form-data、application/x-www-form-urlencoded、JSONを受け付ける。
func (h *ProductHandler) parseProductBody(w http.ResponseWriter, r *http.Request) (product.RawFields, *media.File, error) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxBytes)

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	switch mediaType {
	case "multipart/form-data":
		if err := r.ParseMultipartForm(h.maxBytes); err != nil {
			return nil, nil, model.NewInvalidRequestError(bodyErrorReason(err))
		}
		raw := make(product.RawFields, len(r.MultipartForm.Value))
		for k, vs := range r.MultipartForm.Value {
			if len(vs) > 0 {
				raw[k] = vs[0]
			}
		}
		file, err := formFile(r)
		if err != nil {
			return nil, nil, err
		}
		return raw, file, nil

	case "application/x-www-form-urlencoded":
		if err := r.ParseForm(); err != nil {
			return nil, nil, model.NewInvalidRequestError(bodyErrorReason(err))
		}
		raw := make(product.RawFields, len(r.PostForm))
		for k := range r.PostForm {
			raw[k] = r.PostForm.Get(k)
		}
		return raw, nil, nil

	default:
		var obj map[string]any
		dec := json.NewDecoder(r.Body)
		dec.UseNumber()
		if err := dec.Decode(&obj); err != nil && !errors.Is(err, io.EOF) {
			return nil, nil, model.NewInvalidRequestError(bodyErrorReason(err))
		}
		raw, err := product.FieldsFromJSON(obj)
		if err != nil {
			return nil, nil, err
		}
		return raw, nil, nil
	}
}

// closeFile は添付ファイルを閉じる。
func closeFile(file *media.File) {
	if file == nil {
		return
	}
	if c, ok := file.Body.(io.Closer); ok {
		c.Close()
	}
}

// formFile はmultipartのfileフィールドを取り出す。添付がなければnilを返す。
func formFile(r *http.Request) (*media.File, error) {
	f, header, err := r.FormFile("file")
	if errors.Is(err, http.ErrMissingFile) {
		return nil, nil
	}
	if err != nil {
		return nil, model.NewInvalidRequestError(bodyErrorReason(err))
	}
	return &media.File{
		Name:        header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Body:        f,
	}, nil
}

func bodyErrorReason(err error) string {
	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) {
		return "request body too large"
	}
	if strings.Contains(err.Error(), "multipart") {
		return "malformed multipart body"
	}
	return "malformed body"
}
