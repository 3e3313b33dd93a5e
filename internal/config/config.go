// Package config は環境変数からアプリケーション設定を読み込む。
package config

import (
	"fmt"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"
)

// ストレージバックエンドの種類
const (
	StorageBackendSupabase = "supabase"
	StorageBackendGCS      = "gcs"
)

// Config はアプリケーション全体の設定を保持する。
// 環境変数から起動時に1回読み込み、イミュータブルとして扱う。
type Config struct {
	// Token
	JWTSecret     string
	JWTExpiration time.Duration

	// Database（restricted: 読み取り、service: 書き込み・ロール解決・マイグレーション）
	DatabaseURL        string
	DatabaseServiceURL string

	// Hosted service (auth / storage REST)
	SupabaseURL            string
	SupabaseAnonKey        string
	SupabaseServiceRoleKey string

	// Storage
	StorageBackend string
	StorageBucket  string
	StorageFolder  string
	StoragePublic  bool
	SignedURLTTL   time.Duration
	MediaListLimit int
	UploadMaxBytes int64

	// Outbound HTTP
	HTTPClientTimeout time.Duration

	// Server
	ServerPort string

	// CORS
	CORSAllowedOrigins []string

	// Observability
	LogLevel       string
	MetricsEnabled bool
}

// defaultAllowedOrigins はCORS_ALLOWED_ORIGINS未設定時の許可オリジン（開発環境と本番フロントエンド）。
var defaultAllowedOrigins = []string{
	"http://localhost:5173",
	"https://lienzo-de-vida.vercel.app",
}

// Load は環境変数からConfigを読み込む。
// 必須環境変数が未設定の場合はエラーを返す。
func Load() (*Config, error) {
	cfg := &Config{}

	// Required fields
	var missing []string

	cfg.JWTSecret = os.Getenv("JWT_SECRET")
	if cfg.JWTSecret == "" {
		missing = append(missing, "JWT_SECRET")
	}

	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	if cfg.DatabaseURL == "" {
		missing = append(missing, "DATABASE_URL")
	}

	cfg.DatabaseServiceURL = os.Getenv("DATABASE_SERVICE_URL")
	if cfg.DatabaseServiceURL == "" {
		missing = append(missing, "DATABASE_SERVICE_URL")
	}

	cfg.SupabaseURL = strings.TrimRight(os.Getenv("SUPABASE_URL"), "/")
	if cfg.SupabaseURL == "" {
		missing = append(missing, "SUPABASE_URL")
	}

	cfg.SupabaseAnonKey = os.Getenv("SUPABASE_ANON_KEY")
	if cfg.SupabaseAnonKey == "" {
		missing = append(missing, "SUPABASE_ANON_KEY")
	}

	cfg.StorageBackend = strings.ToLower(getEnvString("STORAGE_BACKEND", StorageBackendSupabase))
	if cfg.StorageBackend != StorageBackendSupabase && cfg.StorageBackend != StorageBackendGCS {
		return nil, fmt.Errorf("unsupported STORAGE_BACKEND: %q", cfg.StorageBackend)
	}

	// service roleキーはSupabase Storageを使う場合のみ必須
	cfg.SupabaseServiceRoleKey = os.Getenv("SUPABASE_SERVICE_ROLE_KEY")
	if cfg.SupabaseServiceRoleKey == "" && cfg.StorageBackend == StorageBackendSupabase {
		missing = append(missing, "SUPABASE_SERVICE_ROLE_KEY")
	}

	if len(missing) > 0 {
		return nil, fmt.Errorf("required environment variables are not set: %v", missing)
	}

	// Optional fields with defaults
	cfg.JWTExpiration = getEnvDuration("JWT_EXPIRATION", 7*24*time.Hour)
	cfg.StorageBucket = getEnvString("STORAGE_BUCKET", "product-images")
	cfg.StorageFolder = strings.Trim(getEnvString("STORAGE_FOLDER", "products"), "/")
	cfg.StoragePublic = getEnvBool("STORAGE_PUBLIC", true)
	cfg.SignedURLTTL = getEnvDuration("SIGNED_URL_TTL", time.Hour)
	cfg.MediaListLimit = getEnvInt("MEDIA_LIST_LIMIT", 100)
	cfg.UploadMaxBytes = getEnvInt64("UPLOAD_MAX_BYTES", 10<<20)
	cfg.HTTPClientTimeout = getEnvDuration("HTTP_CLIENT_TIMEOUT", 15*time.Second)
	cfg.ServerPort = getEnvString("SERVER_PORT", getEnvString("PORT", "4000"))
	cfg.CORSAllowedOrigins = getEnvList("CORS_ALLOWED_ORIGINS", slices.Clone(defaultAllowedOrigins))
	cfg.LogLevel = getEnvString("LOG_LEVEL", "info")
	cfg.MetricsEnabled = getEnvBool("METRICS_ENABLED", true)

	return cfg, nil
}

func getEnvString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return i
}

func getEnvInt64(key string, defaultVal int64) int64 {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return defaultVal
	}
	return i
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return defaultVal
	}
	return d
}

func getEnvBool(key string, defaultVal bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return defaultVal
	}
	return b
}

// getEnvList はカンマ区切りの値をスライスとして返す。空要素は除外する。
func getEnvList(key string, defaultVal []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	var out []string
	for _, item := range strings.Split(v, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	if len(out) == 0 {
		return defaultVal
	}
	return out
}
