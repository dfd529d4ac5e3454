package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

const (
	defaultPort           = "8080"
	defaultUploadDir      = "uploads"
	defaultMaxUploadBytes = int64(10 * 1024 * 1024)
)

var defaultDroppedStockColumns = []string{"K", "L", "M", "N"}

func init() {
	// Load env from .env
	godotenv.Load()
}

// Port resolves the listen port: API_PORT, then PORT (Cloud Run), then 8080.
func Port() string {
	if port := strings.TrimSpace(os.Getenv("API_PORT")); port != "" {
		return port
	}
	if port := strings.TrimSpace(os.Getenv("PORT")); port != "" {
		return port
	}
	return defaultPort
}

func IsProduction() bool {
	return strings.EqualFold(strings.TrimSpace(os.Getenv("GO_ENV")), "production")
}

// UploadDir is where uploaded files are kept for the lifetime of one request
// when STORAGE_PROVIDER=local.
func UploadDir() string {
	if dir := strings.TrimSpace(os.Getenv("UPLOAD_DIR")); dir != "" {
		return dir
	}
	return defaultUploadDir
}

// MaxUploadBytes limits each uploaded file.
//
// Set via env:
// - MAX_UPLOAD_BYTES=10485760
func MaxUploadBytes() int64 {
	return envInt64("MAX_UPLOAD_BYTES", defaultMaxUploadBytes)
}

// DroppedStockColumns lists the stock extract columns reserved for the
// extract's own bookkeeping. They never reach a StockRecord.
//
// Set via env:
// - STOCK_DROPPED_COLUMNS="K,L,M,N"
func DroppedStockColumns() []string {
	raw := strings.TrimSpace(os.Getenv("STOCK_DROPPED_COLUMNS"))
	if raw == "" {
		return append([]string(nil), defaultDroppedStockColumns...)
	}
	return SplitAndTrim(raw)
}

// RateLimitEnabled turns on the Redis backed request limiter.
//
// Set via env:
// - RATE_LIMIT_ENABLED=true
// - RATE_LIMIT_WINDOW_SECONDS=60
// - RATE_LIMIT_MAX_REQUESTS=600
func RateLimitEnabled() bool {
	return envBool("RATE_LIMIT_ENABLED")
}

func RateLimitMaxRequests() int64 {
	return envInt64("RATE_LIMIT_MAX_REQUESTS", 600)
}

func RateLimitWindowSeconds() int64 {
	return envInt64("RATE_LIMIT_WINDOW_SECONDS", 60)
}

func CorsAllowedOrigins() []string {
	return SplitAndTrim(os.Getenv("CORS_ALLOWED_ORIGINS"))
}

func SplitAndTrim(csv string) []string {
	if strings.TrimSpace(csv) == "" {
		return nil
	}
	parts := strings.Split(csv, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func envBool(key string) bool {
	v := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	return v == "1" || v == "true" || v == "yes" || v == "y"
}

func envInt64(key string, def int64) int64 {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil && n > 0 {
			return n
		}
	}
	return def
}
