// Package config provides configuration for the application
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
type Config struct {
	Database DatabaseConfig
	Server   ServerConfig
	Logging  LoggingConfig
	CORS     CORSConfig
	JWT      JWTConfig
	Gallery  GalleryConfig
	S3       S3Config
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
}

// ServerConfig holds server settings
type ServerConfig struct {
	Port        int
	BaseURL     string
	RoutePrefix string
}

// LoggingConfig holds logging settings
type LoggingConfig struct {
	Level string
}

// CORSConfig holds CORS settings
type CORSConfig struct {
	AllowedOrigins []string
}

// JWTConfig holds JWT token configuration
type JWTConfig struct {
	Secret             string
	AccessTokenExpiry  time.Duration
	RefreshTokenExpiry time.Duration
}

// GalleryConfig holds media storage and image processing settings
type GalleryConfig struct {
	// Disk is the default storage backend name (local, public or s3)
	Disk string
	// StoragePath is the base path prefix for stored objects
	StoragePath string
	// LocalRoot is the filesystem root for the local and public disks
	LocalRoot string
	// DateLayout formats the date segment of storage paths (Go reference layout)
	DateLayout string
	// Organization selects the path layout: user-date or date-user
	Organization string
	// MaxSizeKB is the upload size limit in kilobytes
	MaxSizeKB int64
	// AllowedExtensions is the upload extension allow-list (lowercase, no dot)
	AllowedExtensions []string
	// Quality is the JPEG re-encode quality for derived images
	Quality   int
	Thumbnail VariantConfig
	Medium    VariantConfig
}

// VariantConfig configures one derived image rendition
type VariantConfig struct {
	Enabled bool
	Width   int
	Height  int
}

// S3Config holds S3-compatible object storage settings
type S3Config struct {
	Key      string
	Secret   string
	Region   string
	Bucket   string
	BaseURL  string
	Endpoint string
}

// Enabled reports whether an S3 disk should be registered
func (c S3Config) Enabled() bool {
	return c.Bucket != ""
}

// Supported path organization layouts
const (
	OrganizationUserDate = "user-date"
	OrganizationDateUser = "date-user"
)

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Try to load .env file (optional)
	godotenv.Load()

	cfg := &Config{}

	// Database configuration
	dbHost := os.Getenv("DB_HOST")
	if dbHost == "" {
		return nil, fmt.Errorf("DB_HOST is required")
	}
	cfg.Database.Host = dbHost

	dbPort, err := getEnvInt("DB_PORT", 3306)
	if err != nil {
		return nil, err
	}
	cfg.Database.Port = dbPort

	dbUser := os.Getenv("DB_USER")
	if dbUser == "" {
		return nil, fmt.Errorf("DB_USER is required")
	}
	cfg.Database.User = dbUser

	dbPassword := os.Getenv("DB_PASSWORD")
	if dbPassword == "" {
		return nil, fmt.Errorf("DB_PASSWORD is required")
	}
	cfg.Database.Password = dbPassword

	dbName := os.Getenv("DB_NAME")
	if dbName == "" {
		return nil, fmt.Errorf("DB_NAME is required")
	}
	cfg.Database.DBName = dbName

	// Server configuration
	serverPort, err := getEnvInt("SERVER_PORT", 8080)
	if err != nil {
		return nil, err
	}
	cfg.Server.Port = serverPort

	cfg.Server.BaseURL = os.Getenv("BASE_URL")
	if cfg.Server.BaseURL == "" {
		cfg.Server.BaseURL = fmt.Sprintf("http://localhost:%d", serverPort)
	}

	cfg.Server.RoutePrefix = getEnv("ROUTE_PREFIX", "/api/gallery")
	if !strings.HasPrefix(cfg.Server.RoutePrefix, "/") {
		cfg.Server.RoutePrefix = "/" + cfg.Server.RoutePrefix
	}

	// Logging configuration
	cfg.Logging.Level = getEnv("LOG_LEVEL", "info")

	// CORS configuration
	corsOrigins := os.Getenv("CORS_ALLOWED_ORIGINS")
	if corsOrigins == "" {
		cfg.CORS.AllowedOrigins = []string{"*"}
	} else {
		cfg.CORS.AllowedOrigins = splitAndTrim(corsOrigins)
		if len(cfg.CORS.AllowedOrigins) == 0 {
			cfg.CORS.AllowedOrigins = []string{"*"}
		}
	}

	// JWT configuration
	jwtSecret := os.Getenv("JWT_SECRET")
	if jwtSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}
	cfg.JWT.Secret = jwtSecret

	accessExpiry, err := getEnvDuration("JWT_ACCESS_TOKEN_EXPIRY", time.Hour)
	if err != nil {
		return nil, err
	}
	cfg.JWT.AccessTokenExpiry = accessExpiry

	refreshExpiry, err := getEnvDuration("JWT_REFRESH_TOKEN_EXPIRY", 168*time.Hour)
	if err != nil {
		return nil, err
	}
	cfg.JWT.RefreshTokenExpiry = refreshExpiry

	// Gallery configuration
	cfg.Gallery.Disk = getEnv("GALLERY_DISK", "public")
	cfg.Gallery.StoragePath = getEnv("GALLERY_STORAGE_PATH", "gallery")
	cfg.Gallery.LocalRoot = getEnv("MEDIA_BASE_PATH", "./storage")
	cfg.Gallery.DateLayout = getEnv("GALLERY_DATE_LAYOUT", "2006/01/02")
	cfg.Gallery.Organization = getEnv("GALLERY_ORGANIZATION", OrganizationUserDate)
	if cfg.Gallery.Organization != OrganizationUserDate && cfg.Gallery.Organization != OrganizationDateUser {
		return nil, fmt.Errorf("invalid GALLERY_ORGANIZATION: %s", cfg.Gallery.Organization)
	}

	maxSize, err := getEnvInt("GALLERY_MAX_SIZE", 5120)
	if err != nil {
		return nil, err
	}
	cfg.Gallery.MaxSizeKB = int64(maxSize)

	extensions := getEnv("GALLERY_ALLOWED_EXTENSIONS", "jpg,jpeg,png,gif,webp,svg")
	cfg.Gallery.AllowedExtensions = splitAndTrim(strings.ToLower(extensions))

	quality, err := getEnvInt("GALLERY_IMAGE_QUALITY", 90)
	if err != nil {
		return nil, err
	}
	cfg.Gallery.Quality = quality

	cfg.Gallery.Thumbnail, err = loadVariant("GALLERY_THUMBNAIL", 300, 300)
	if err != nil {
		return nil, err
	}
	cfg.Gallery.Medium, err = loadVariant("GALLERY_MEDIUM", 800, 800)
	if err != nil {
		return nil, err
	}

	// S3 configuration (optional; the s3 disk is registered only when a bucket is set)
	cfg.S3.Key = os.Getenv("AWS_ACCESS_KEY_ID")
	cfg.S3.Secret = os.Getenv("AWS_SECRET_ACCESS_KEY")
	cfg.S3.Region = getEnv("AWS_DEFAULT_REGION", "us-east-1")
	cfg.S3.Bucket = os.Getenv("AWS_BUCKET")
	cfg.S3.BaseURL = os.Getenv("AWS_URL")
	cfg.S3.Endpoint = os.Getenv("AWS_ENDPOINT")

	return cfg, nil
}

// DSN returns the database connection string
func (c *Config) DSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true&charset=utf8mb4",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.DBName,
	)
}

// loadVariant reads one derived-image rendition block from the environment
func loadVariant(prefix string, defaultWidth, defaultHeight int) (VariantConfig, error) {
	v := VariantConfig{}
	v.Enabled = getEnv(prefix+"_ENABLED", "true") == "true"

	width, err := getEnvInt(prefix+"_WIDTH", defaultWidth)
	if err != nil {
		return v, err
	}
	v.Width = width

	height, err := getEnvInt(prefix+"_HEIGHT", defaultHeight)
	if err != nil {
		return v, err
	}
	v.Height = height

	return v, nil
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return fallback, nil
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return parsed, nil
}

func getEnvDuration(key string, fallback time.Duration) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return fallback, nil
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return parsed, nil
}

func splitAndTrim(value string) []string {
	parts := strings.Split(value, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part != "" {
			result = append(result, part)
		}
	}
	return result
}
