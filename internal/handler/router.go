package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/lienzo/internal/middleware"
	"github.com/hitoshi/lienzo/internal/model"
)

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	Logger          *slog.Logger
	TokenVerifier   middleware.TokenVerifier
	AllowedOrigins  []string
	MetricsRecorder middleware.HTTPMetricsRecorder
	MetricsHandler  http.Handler

	// 稼働確認
	Health Pinger

	// 認証
	AuthService AuthServiceInterface

	// 商品・画像
	ProductService ProductServiceInterface
	MediaService   MediaServiceInterface
	UploadMaxBytes int64
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	RequestID → Logging → Metrics → Recovery → SecurityHeaders → CORS
//
// /api/v1/products 以下はすべて管理者ロールを要求する。
func NewRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()

	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	r.Use(middleware.NewRequestIDMiddleware())
	r.Use(middleware.NewLoggingMiddleware(logger))
	if deps.MetricsRecorder != nil {
		r.Use(middleware.NewMetricsMiddleware(deps.MetricsRecorder))
	}
	r.Use(middleware.NewRecoveryMiddleware())
	r.Use(middleware.NewSecurityHeadersMiddleware())
	r.Use(middleware.NewCORSMiddleware(deps.AllowedOrigins))

	healthHandler := NewHealthHandler(deps.Health)
	authHandler := NewAuthHandler(deps.AuthService)
	productHandler := NewProductHandler(deps.ProductService, deps.UploadMaxBytes)
	mediaHandler := NewMediaHandler(deps.MediaService, deps.UploadMaxBytes)

	// --- 認証不要のルート ---
	r.Get("/health", healthHandler.Health)
	if deps.MetricsHandler != nil {
		r.Handle("/metrics", deps.MetricsHandler)
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/", healthHandler.Banner)
		r.Post("/auth/login", authHandler.Login)

		// --- 管理者のみ ---
		r.Route("/products", func(r chi.Router) {
			r.Use(middleware.NewAuthMiddleware(deps.TokenVerifier, model.RoleAdmin))

			r.Get("/", productHandler.ListProducts)
			r.Post("/", productHandler.CreateProduct)

			// 固定セグメントは{id}より優先される
			r.Get("/images", mediaHandler.ListImages)
			r.Post("/upload", mediaHandler.UploadImage)
			r.Delete("/image", mediaHandler.DeleteImage)
			r.Get("/slug/{slug}", productHandler.GetProductBySlug)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", productHandler.GetProduct)
				r.Put("/", productHandler.UpdateProduct)
				r.Delete("/", productHandler.DeleteProduct)
			})
		})
	})

	return r
}
