package main

import (
	"context"
	"os"
	"time"

	"database/sql"

	_ "github.com/lib/pq"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/ledgerbill/invoice-service/internal/cache"
	"github.com/ledgerbill/invoice-service/internal/config"
	"github.com/ledgerbill/invoice-service/internal/integrations/ecb"
	"github.com/ledgerbill/invoice-service/internal/repository"
	"github.com/ledgerbill/invoice-service/internal/service"
	"github.com/ledgerbill/invoice-service/internal/tasks"
	"github.com/ledgerbill/invoice-service/internal/utils/email"
)

// The worker owns everything that happens off the request path: the
// scheduled billing cycle and delivery of the emails the cycle enqueues.
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

	// Schedule the daily billing cycle
	scheduler := cron.New()
	if _, err := scheduler.AddFunc(cfg.CycleCron, func() {
		svc.RunBillingCycle(context.Background(), time.Now())
	}); err != nil {
		logger.Fatalf("Invalid cycle schedule %q: %v", cfg.CycleCron, err)
	}
	scheduler.Start()
	defer scheduler.Stop()
	logger.Infof("Billing cycle scheduled: %s", cfg.CycleCron)

	// Consume email tasks until shutdown. Run blocks and handles
	// SIGINT/SIGTERM itself.
	processor := tasks.NewProcessor(repo, email.NewSender(cfg, logger), logger)
	srv := tasks.NewServer(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, cfg.WorkerConcurrency, logger)
	if err := srv.Run(tasks.NewMux(processor)); err != nil {
		logger.Fatalf("Worker failed: %v", err)
	}
}
