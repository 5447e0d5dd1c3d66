package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config хранит все конфигурационные параметры приложения.
type Config struct {
	DatabaseURL  string
	JWTSecretKey string
	ServerPort   int

	// S3-совместимое хранилище изображений; при пустом бакете загрузка отключена.
	StorageEndpoint        string
	StorageRegion          string
	StorageAccessKeyID     string
	StorageSecretAccessKey string
	StorageBucketName      string
	StoragePublicBaseURL   string
	StorageUsePathStyle    bool

	// Внешняя страница оплаты (hosted checkout)
	CheckoutBaseURL   string
	CheckoutReturnURL string

	// Учётная запись администратора, создаваемая при старте (если задана)
	AdminName     string
	AdminEmail    string
	AdminPassword string

	CORSAllowedOrigins []string
	SchedulerInterval  time.Duration
}

// StorageEnabled reports whether image uploads are configured.
func (c *Config) StorageEnabled() bool {
	return c.StorageBucketName != ""
}

// Load загружает конфигурацию из переменных окружения.
// Опционально подгружает .env файл (полезно для локальной разработки).
func Load() (*Config, error) {
	_ = godotenv.Load() // .env может отсутствовать

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		return nil, fmt.Errorf("DATABASE_URL environment variable is not set")
	}

	jwtKey := os.Getenv("JWT_SECRET_KEY")
	if jwtKey == "" {
		return nil, fmt.Errorf("JWT_SECRET_KEY environment variable is not set")
	}

	port, err := strconv.Atoi(getEnvOrDefault("SERVER_PORT", "8080"))
	if err != nil {
		return nil, fmt.Errorf("invalid SERVER_PORT environment variable: %w", err)
	}
	if port <= 0 || port > 65535 {
		return nil, fmt.Errorf("SERVER_PORT must be between 1 and 65535, got %d", port)
	}

	interval, err := time.ParseDuration(getEnvOrDefault("STATUS_SCHEDULER_INTERVAL", "30s"))
	if err != nil {
		return nil, fmt.Errorf("invalid STATUS_SCHEDULER_INTERVAL: %w", err)
	}
	if interval <= 0 {
		return nil, fmt.Errorf("STATUS_SCHEDULER_INTERVAL must be positive, got %s", interval)
	}

	cfg := &Config{
		DatabaseURL:  dbURL,
		JWTSecretKey: jwtKey,
		ServerPort:   port,

		StorageEndpoint:        os.Getenv("STORAGE_ENDPOINT"),
		StorageRegion:          os.Getenv("STORAGE_REGION"),
		StorageAccessKeyID:     os.Getenv("STORAGE_ACCESS_KEY_ID"),
		StorageSecretAccessKey: os.Getenv("STORAGE_SECRET_ACCESS_KEY"),
		StorageBucketName:      os.Getenv("STORAGE_BUCKET_NAME"),
		StoragePublicBaseURL:   os.Getenv("STORAGE_PUBLIC_BASE_URL"),
		StorageUsePathStyle:    os.Getenv("STORAGE_USE_PATH_STYLE") == "true",

		CheckoutBaseURL:   os.Getenv("CHECKOUT_BASE_URL"),
		CheckoutReturnURL: os.Getenv("CHECKOUT_RETURN_URL"),

		AdminName:     getEnvOrDefault("ADMIN_NAME", "Administrador"),
		AdminEmail:    os.Getenv("ADMIN_EMAIL"),
		AdminPassword: os.Getenv("ADMIN_PASSWORD"),

		CORSAllowedOrigins: splitList(getEnvOrDefault("CORS_ALLOWED_ORIGINS", "http://localhost:5173")),
		SchedulerInterval:  interval,
	}

	return cfg, nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
