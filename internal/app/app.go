package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/hitoshi/lienzo/internal/auth"
	"github.com/hitoshi/lienzo/internal/config"
	"github.com/hitoshi/lienzo/internal/database"
	"github.com/hitoshi/lienzo/internal/handler"
	"github.com/hitoshi/lienzo/internal/logger"
	"github.com/hitoshi/lienzo/internal/media"
	"github.com/hitoshi/lienzo/internal/metrics"
	"github.com/hitoshi/lienzo/internal/product"
	"github.com/hitoshi/lienzo/internal/repository"
	"github.com/hitoshi/lienzo/internal/security"
	"github.com/hitoshi/lienzo/internal/storage"
	"github.com/hitoshi/lienzo/internal/token"
)

// Init はアプリケーションの初期化を行う。
// 環境変数からConfigを読み込み、JSON構造化ログをセットアップする。
// writerが指定された場合はログ出力先としてそのwriterを使用する。
func Init(w io.Writer) (*config.Config, error) {
	// 1. ログの初期化（設定読み込み前にログを使えるようにする）
	logger.SetupDefault(w, slog.LevelInfo)

	// 2. 環境変数から設定を読み込む
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	// 3. 設定されたログレベルで再設定
	logger.SetupDefault(w, logger.ParseLevel(cfg.LogLevel))

	return cfg, nil
}

// Run はアプリケーションのメインエントリーポイント。
// コマンドライン引数からサブコマンドを解析し、対応するモードで起動する。
// argsにはos.Args[1:]を渡す。
func Run(w io.Writer, args []string) error {
	cmd, known := ParseCommand(args)

	// healthcheck は軽量サブコマンドのため、フル初期化をスキップする
	if cmd == CommandHealthcheck {
		return runHealthcheck(healthcheckPort())
	}

	cfg, err := Init(w)
	if err != nil {
		return fmt.Errorf("initialization failed: %w", err)
	}
	if !known {
		slog.Warn("unknown command, falling back to serve", slog.String("arg", args[0]))
	}

	slog.Info("starting application",
		slog.String("command", string(cmd)),
		slog.String("port", cfg.ServerPort),
		slog.String("storage_backend", cfg.StorageBackend),
	)

	switch cmd {
	case CommandMigrate:
		return runMigrate(cfg)
	default:
		return runServe(cfg)
	}
}

// runServe はAPIサーバーモードで起動する。
// DB接続を開き、全依存関係をワイヤリングし、HTTPサーバーを起動する。
// SIGINTまたはSIGTERMシグナルを受信するとグレースフルシャットダウンを行う。
func runServe(cfg *config.Config) error {
	// 1. DB接続（restricted / elevated）
	pools, err := database.OpenPools(cfg.DatabaseURL, cfg.DatabaseServiceURL)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer pools.Close()

	pingCtx, cancelPing := context.WithTimeout(context.Background(), 10*time.Second)
	err = pools.PingContext(pingCtx)
	cancelPing()
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	slog.Info("database connection established")

	// 2. 依存関係の構築
	registry := prometheus.NewRegistry()
	router, err := buildHandler(context.Background(), cfg, pools, registry)
	if err != nil {
		return err
	}

	// 3. HTTPサーバーの起動
	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// グレースフルシャットダウンのためのシグナルハンドリング
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	serverErr := make(chan error, 1)
	go func() {
		slog.Info("API server starting",
			slog.String("addr", server.Addr),
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	select {
	case err := <-serverErr:
		return fmt.Errorf("server listen error: %w", err)
	case <-stop:
	}
	slog.Info("shutting down API server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	slog.Info("API server stopped gracefully")
	return nil
}

// buildHandler はリポジトリ・外部サービス・ドメインサービスを組み立て、ルーターを返す。
// registryがnilまたはメトリクスが無効の場合は/metricsを公開しない。
func buildHandler(ctx context.Context, cfg *config.Config, pools *database.Pools, registry *prometheus.Registry) (http.Handler, error) {
	log := slog.Default()

	// 1. メトリクス
	var collector metrics.MetricsCollector = metrics.NopCollector{}
	var metricsHandler http.Handler
	if cfg.MetricsEnabled && registry != nil {
		registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		collector = metrics.NewCollector(registry)
		metricsHandler = metrics.Handler(registry)
	}

	// 2. リポジトリの初期化
	productRepo := repository.NewPostgresProductRepo(pools.Restricted, pools.Elevated)
	profileRepo := repository.NewPostgresProfileRepo(pools.Elevated)

	// 3. 外部サービスのクライアント
	httpClient := &http.Client{Timeout: cfg.HTTPClientTimeout}

	store, err := newObjectStore(ctx, cfg, httpClient)
	if err != nil {
		return nil, err
	}

	codec, err := token.NewCodec(cfg.JWTSecret, cfg.JWTExpiration)
	if err != nil {
		return nil, fmt.Errorf("failed to create token codec: %w", err)
	}

	identityProvider := auth.NewSupabaseAuthProvider(auth.SupabaseAuthConfig{
		BaseURL:    cfg.SupabaseURL,
		AnonKey:    cfg.SupabaseAnonKey,
		HTTPClient: httpClient,
	})

	// 4. ドメインサービスの初期化
	mediaService := media.NewService(store, media.Config{
		Folder:       cfg.StorageFolder,
		SignedURLTTL: cfg.SignedURLTTL,
		ListLimit:    cfg.MediaListLimit,
	}, collector, log)

	productService := product.NewService(productRepo, mediaService, security.NewDescriptionSanitizer(), log)
	authService := auth.NewService(identityProvider, profileRepo, codec, collector, log)

	// 5. ルーターの構築
	deps := &handler.RouterDeps{
		Logger:          log,
		TokenVerifier:   codec,
		AllowedOrigins:  cfg.CORSAllowedOrigins,
		MetricsRecorder: collector,
		MetricsHandler:  metricsHandler,

		Health: pools.Restricted,

		AuthService: authService,

		ProductService: productService,
		MediaService:   mediaService,
		UploadMaxBytes: cfg.UploadMaxBytes,
	}

	return handler.NewRouter(deps), nil
}

// newObjectStore は設定されたバックエンドのオブジェクトストレージを返す。
func newObjectStore(ctx context.Context, cfg *config.Config, httpClient *http.Client) (storage.ObjectStore, error) {
	switch cfg.StorageBackend {
	case config.StorageBackendGCS:
		store, err := storage.NewGCSStore(ctx, cfg.StorageBucket, cfg.StoragePublic)
		if err != nil {
			return nil, fmt.Errorf("failed to create GCS store: %w", err)
		}
		slog.Info("using GCS object store", slog.String("bucket", cfg.StorageBucket))
		return store, nil
	default:
		slog.Info("using Supabase object store", slog.String("bucket", cfg.StorageBucket))
		return storage.NewSupabaseStore(httpClient, cfg.SupabaseURL, cfg.SupabaseServiceRoleKey, cfg.StorageBucket, cfg.StoragePublic), nil
	}
}

// runMigrate はデータベースマイグレーションを実行する。
// スキーマ変更にはelevated接続を使用する。
func runMigrate(cfg *config.Config) error {
	slog.Info("running database migrations",
		slog.String("database_url", maskDatabaseURL(cfg.DatabaseServiceURL)),
	)

	version, err := database.RunMigrations(cfg.DatabaseServiceURL)
	if err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	slog.Info("database migrations completed successfully", slog.Uint64("version", uint64(version)))
	return nil
}

// runHealthcheck はヘルスチェックを実行する。
// distroless環境でのDockerヘルスチェック用サブコマンド。
// /health エンドポイントにHTTPリクエストを送り、結果を返す。
func runHealthcheck(port string) error {
	target := fmt.Sprintf("http://localhost:%s/health", port)
	client := &http.Client{Timeout: 5 * time.Second}

	resp, err := client.Get(target)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check returned status %d", resp.StatusCode)
	}

	return nil
}

// maskDatabaseURL はデータベースURLのパスワードをマスクする。
func maskDatabaseURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return "***"
	}
	return u.Redacted()
}
