package handler

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/lienzo/internal/auth"
	"github.com/hitoshi/lienzo/internal/media"
	"github.com/hitoshi/lienzo/internal/model"
	"github.com/hitoshi/lienzo/internal/product"
)

// --- モック定義 ---

// mockProductService はProductServiceInterfaceのモック実装。
type mockProductService struct {
	listFn      func(ctx context.Context) ([]*model.Product, error)
	getByIDFn   func(ctx context.Context, id int64) (*model.Product, error)
	getBySlugFn func(ctx context.Context, slug string) (*model.Product, error)
	createFn    func(ctx context.Context, raw product.RawFields, file *media.File) (*model.Product, error)
	updateFn    func(ctx context.Context, id int64, raw product.RawFields, file *media.File) (*model.Product, error)
	deleteFn    func(ctx context.Context, id int64) error
}

func (m *mockProductService) List(ctx context.Context) ([]*model.Product, error) {
	if m.listFn != nil {
		return m.listFn(ctx)
	}
	return []*model.Product{}, nil
}

func (m *mockProductService) GetByID(ctx context.Context, id int64) (*model.Product, error) {
	if m.getByIDFn != nil {
		return m.getByIDFn(ctx, id)
	}
	return nil, model.NewProductNotFoundError()
}

func (m *mockProductService) GetBySlug(ctx context.Context, slug string) (*model.Product, error) {
	if m.getBySlugFn != nil {
		return m.getBySlugFn(ctx, slug)
	}
	return nil, model.NewProductNotFoundError()
}

func (m *mockProductService) Create(ctx context.Context, raw product.RawFields, file *media.File) (*model.Product, error) {
	if m.createFn != nil {
		return m.createFn(ctx, raw, file)
	}
	return &model.Product{ID: 1}, nil
}

func (m *mockProductService) Update(ctx context.Context, id int64, raw product.RawFields, file *media.File) (*model.Product, error) {
	if m.updateFn != nil {
		return m.updateFn(ctx, id, raw, file)
	}
	return &model.Product{ID: id}, nil
}

func (m *mockProductService) Delete(ctx context.Context, id int64) error {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, id)
	}
	return nil
}

// mockMediaService はMediaServiceInterfaceのモック実装。
type mockMediaService struct {
	uploadFn func(ctx context.Context, file *media.File) (*model.StoredImage, error)
	removeFn func(ctx context.Context, path string) error
	listFn   func(ctx context.Context) ([]model.MediaItem, error)
}

func (m *mockMediaService) Upload(ctx context.Context, file *media.File) (*model.StoredImage, error) {
	if m.uploadFn != nil {
		return m.uploadFn(ctx, file)
	}
	return &model.StoredImage{}, nil
}

func (m *mockMediaService) Remove(ctx context.Context, path string) error {
	if m.removeFn != nil {
		return m.removeFn(ctx, path)
	}
	return nil
}

func (m *mockMediaService) List(ctx context.Context) ([]model.MediaItem, error) {
	if m.listFn != nil {
		return m.listFn(ctx)
	}
	return []model.MediaItem{}, nil
}

// mockAuthService はAuthServiceInterfaceのモック実装。
type mockAuthService struct {
	loginFn func(ctx context.Context, email, password string) (*auth.LoginResult, error)
}

func (m *mockAuthService) Login(ctx context.Context, email, password string) (*auth.LoginResult, error) {
	if m.loginFn != nil {
		return m.loginFn(ctx, email, password)
	}
	return nil, model.NewInvalidCredentialsError()
}

// mockTokenVerifier はmiddleware.TokenVerifierのモック実装。
type mockTokenVerifier struct {
	verifyFn func(tokenString string) (*model.Claim, error)
}

func (m *mockTokenVerifier) Verify(tokenString string) (*model.Claim, error) {
	if m.verifyFn != nil {
		return m.verifyFn(tokenString)
	}
	return &model.Claim{UserID: "admin-1", Email: "admin@example.com", Role: model.RoleAdmin}, nil
}

// mockPinger はPingerのモック実装。
type mockPinger struct {
	pingFn func(ctx context.Context) error
}

func (m *mockPinger) PingContext(ctx context.Context) error {
	if m.pingFn != nil {
		return m.pingFn(ctx)
	}
	return nil
}

// --- テストヘルパー ---

// withChiURLParam はテスト用にchiのURLパラメータを注入するヘルパー。
func withChiURLParam(r *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	ctx := context.WithValue(r.Context(), chi.RouteCtxKey, rctx)
	return r.WithContext(ctx)
}

// closeTrackingBody はClose呼び出しを記録する添付ファイル本体。
type closeTrackingBody struct {
	closed bool
}

func (b *closeTrackingBody) Read([]byte) (int, error) { return 0, io.EOF }

func (b *closeTrackingBody) Close() error {
	b.closed = true
	return nil
}

// parseAPIErrorResponse はレスポンスボディからAPIErrorレスポンスをパースするヘルパー。
func parseAPIErrorResponse(t *testing.T, w *httptest.ResponseRecorder) map[string]string {
	t.Helper()
	var result map[string]string
	if err := json.NewDecoder(w.Body).Decode(&result); err != nil {
		t.Fatalf("failed to decode error response: %v", err)
	}
	return result
}

func strPtr(s string) *string { return &s }

func float64Ptr(f float64) *float64 { return &f }

func intPtr(i int) *int { return &i }
