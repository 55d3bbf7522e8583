package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"
	_ "github.com/go-sql-driver/mysql"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/mysql"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	httpSwagger "github.com/swaggo/http-swagger"
	"go.uber.org/zap"

	_ "github.com/gallerykit/media-service/docs"
	"github.com/gallerykit/media-service/internal/auth"
	"github.com/gallerykit/media-service/internal/config"
	"github.com/gallerykit/media-service/internal/handlers"
	"github.com/gallerykit/media-service/internal/imagetool"
	"github.com/gallerykit/media-service/internal/logger"
	"github.com/gallerykit/media-service/internal/metrics"
	"github.com/gallerykit/media-service/internal/middlewares"
	"github.com/gallerykit/media-service/internal/repositories"
	"github.com/gallerykit/media-service/internal/services"
	"github.com/gallerykit/media-service/internal/storage"
)

const maxRequestSize = 50 * 1024 * 1024 // 50MB for file uploads

// @title GalleryKit Media API
// @version 1.0
// @description API for managing gallery media, folders and tags
// @termsOfService http://swagger.io/terms/

// @contact.name API Support

// @license.name Apache 2.0
// @license.url http://www.apache.org/licenses/LICENSE-2.0.html

// @host localhost:8082
// @BasePath /api/gallery
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description JWT access token, prefixed with "Bearer "
func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v\n", err)
	}

	// Initialize logger
	if err := logger.Init(cfg.Logging.Level); err != nil {
		log.Fatalf("Failed to initialize logger: %v\n", err)
	}
	defer logger.Sync()

	logger.Logger.Info("Starting GalleryKit Media Service")

	// Connect to database
	db, err := connectDB(cfg.DSN())
	if err != nil {
		logger.Logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	// Run migrations
	if err := runMigrations(db); err != nil {
		logger.Logger.Fatal("Failed to run migrations", zap.Error(err))
	}

	// Initialize JWT token generator (for optional auth middleware)
	tokenGenerator := auth.NewTokenGenerator(
		cfg.JWT.Secret,
		cfg.JWT.AccessTokenExpiry,
		cfg.JWT.RefreshTokenExpiry,
	)

	// Initialize storage disks
	disks, err := buildStorage(cfg)
	if err != nil {
		logger.Logger.Fatal("Failed to initialize storage", zap.Error(err))
	}

	// Initialize image transformer
	transformer := imagetool.NewTransformer(cfg.Gallery.Quality)

	// Initialize repositories
	mediaRepo := repositories.NewMediaRepository(db)
	bucketRepo := repositories.NewBucketRepository(db)
	tagRepo := repositories.NewTagRepository(db)
	folderRepo := repositories.NewFolderRepository(db)

	// Initialize services
	mediaService := services.NewMediaService(mediaRepo, bucketRepo, tagRepo, disks, transformer, cfg.Gallery, logger.Logger)
	folderService := services.NewFolderService(folderRepo, mediaService, logger.Logger)
	tagService := services.NewTagService(tagRepo)

	// Initialize handlers
	mediaHandler := handlers.NewMediaHandler(mediaService, logger.Logger)
	folderHandler := handlers.NewFolderHandler(folderService, logger.Logger)
	tagHandler := handlers.NewTagHandler(tagService, logger.Logger)

	// Setup router
	r := chi.NewRouter()

	// Apply middleware
	r.Use(middlewares.RequestID)
	r.Use(middlewares.Logging(logger.Logger))
	r.Use(middlewares.Recovery(logger.Logger))
	r.Use(middlewares.CORS(cfg.CORS.AllowedOrigins))
	r.Use(metrics.Middleware)
	r.Use(httprate.LimitByIP(100, time.Minute))
	r.Use(middlewares.RequestSizeLimit(maxRequestSize))

	// Swagger documentation
	r.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL(fmt.Sprintf("http://localhost:%d/swagger/doc.json", cfg.Server.Port)),
	))

	// Operational endpoints
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		if err := db.Ping(); err != nil {
			http.Error(w, "database unreachable", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	r.Handle("/metrics", metrics.Handler())

	// Gallery API; auth is optional, anonymous requests see unowned media
	r.Route(cfg.Server.RoutePrefix, func(r chi.Router) {
		r.Use(auth.OptionalAuth(tokenGenerator))
		mediaHandler.RegisterRoutes(r)
		folderHandler.RegisterRoutes(r)
		tagHandler.RegisterRoutes(r)
	})

	// Serve locally stored files
	if cfg.Gallery.LocalRoot != "" {
		fileServer := http.StripPrefix("/storage/", http.FileServer(http.Dir(cfg.Gallery.LocalRoot)))
		r.Get("/storage/*", fileServer.ServeHTTP)
	}

	// Start server
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      r,
		ReadTimeout:  30 * time.Second, // Longer timeout for file uploads
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		logger.Logger.Info("Server starting", zap.Int("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Logger.Fatal("Server failed to start", zap.Error(err))
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Logger.Info("Shutting down server...")

	// Graceful shutdown
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Logger.Error("Server forced to shutdown", zap.Error(err))
	}

	logger.Logger.Info("Server exited")
}

// buildStorage registers the configured disks; "public" is the local
// disk and "s3" is added when a bucket is configured
func buildStorage(cfg *config.Config) (*storage.Registry, error) {
	local, err := storage.NewLocalStorage(cfg.Gallery.LocalRoot, cfg.Server.BaseURL+"/storage")
	if err != nil {
		return nil, fmt.Errorf("failed to initialize local storage: %w", err)
	}

	registry := storage.NewRegistry(cfg.Gallery.Disk)
	registry.Register("public", local)
	registry.Register("local", local)

	if cfg.S3.Enabled() {
		s3disk, err := storage.NewS3Storage(context.Background(), cfg.S3)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize s3 storage: %w", err)
		}
		registry.Register("s3", s3disk)
	}

	if _, err := registry.Disk(""); err != nil {
		return nil, fmt.Errorf("default disk %q is not registered: %w", cfg.Gallery.Disk, err)
	}

	return registry, nil
}

// connectDB connects to the database
func connectDB(dsn string) (*sql.DB, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return db, nil
}

// runMigrations runs database migrations
func runMigrations(db *sql.DB) error {
	driver, err := mysql.WithInstance(db, &mysql.Config{
		MigrationsTable: "gallery_schema_migrations",
	})
	if err != nil {
		return fmt.Errorf("failed to create migration driver: %w", err)
	}

	migrationPath := "file://migrations"
	if _, err := os.Stat("migrations"); os.IsNotExist(err) {
		if _, err := os.Stat("../migrations"); err == nil {
			migrationPath = "file://../migrations"
		}
	}

	m, err := migrate.NewWithDatabaseInstance(
		migrationPath,
		"mysql",
		driver,
	)
	if err != nil {
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}

	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	return nil
}
