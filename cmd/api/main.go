package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	"database/sql"

	_ "github.com/lib/pq"
	"github.com/sirupsen/logrus"

	"github.com/ledgerbill/invoice-service/internal/cache"
	"github.com/ledgerbill/invoice-service/internal/config"
	"github.com/ledgerbill/invoice-service/internal/handler"
	"github.com/ledgerbill/invoice-service/internal/integrations/ecb"
	"github.com/ledgerbill/invoice-service/internal/pdf"
	"github.com/ledgerbill/invoice-service/internal/repository"
	"github.com/ledgerbill/invoice-service/internal/service"
	"github.com/ledgerbill/invoice-service/internal/storage"
	"github.com/ledgerbill/invoice-service/internal/tasks"
)

func main() {
	// Initialize logger
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	logLevel, err := logrus.ParseLevel(os.Getenv("LOG_LEVEL"))
	if err != nil {
		logLevel = logrus.InfoLevel
	}
	logger.SetLevel(logLevel)

	// Load configuration
	cfg, err := config.NewConfig()
	if err != nil {
		logger.Fatalf("Failed to load config: %v", err)
	}
	defaults, err := config.LoadDefaults(cfg.DefaultsFile)
	if err != nil {
		logger.Fatalf("Failed to load billing defaults: %v", err)
	}

	// Initialize database
	db, err := sql.Open("postgres", cfg.DBConn)
	if err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()
	if err := db.Ping(); err != nil {
		logger.Fatalf("Failed to ping database: %v", err)
	}

	// Initialize redis cache
	redisCache := cache.NewRedis(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	defer redisCache.Close()
	if err := redisCache.Ping(context.Background()); err != nil {
		logger.Fatalf("Failed to ping redis: %v", err)
	}

	// Initialize layers
	repo := repository.NewRepository(db)
	ecbClient := ecb.NewClient(cfg.ECBURL, logger)
	enqueuer := tasks.NewClient(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, logger)
	defer enqueuer.Close()
	svc := service.NewService(repo, enqueuer, ecbClient, redisCache, defaults, logger, cfg)

	var archive handler.Archiver
	if cfg.ArchiveEnabled() {
		a, err := storage.NewArchive(context.Background(), cfg, logger)
		if err != nil {
			logger.Fatalf("Failed to initialize invoice archive: %v", err)
		}
		archive = a
	}

	h := handler.NewHandler(svc, pdf.NewRenderer(cfg.CompanyName), archive, logger)

	// Start server
	addr := fmt.Sprintf(":%s", cfg.Port)
	server := &http.Server{
		Addr:         addr,
		Handler:      h.Routes(cfg),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
	logger.Infof("Starting server on %s", addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatalf("Server failed: %v", err)
	}
}
