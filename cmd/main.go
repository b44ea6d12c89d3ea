package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/KZEN17/token-ready-sub000/internal/config"
	"github.com/KZEN17/token-ready-sub000/internal/handler"
	"github.com/KZEN17/token-ready-sub000/internal/repository"
	"github.com/KZEN17/token-ready-sub000/internal/scheduler"
	"github.com/KZEN17/token-ready-sub000/internal/service"
	"github.com/KZEN17/token-ready-sub000/pkg/keylock"
	"github.com/KZEN17/token-ready-sub000/pkg/logger"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"
)

func main() {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config/config.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	if err := logger.Init(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.Output); err != nil {
		fmt.Printf("Failed to init logger: %v\n", err)
		os.Exit(1)
	}

	db, err := initDatabase(cfg.Database)
	if err != nil {
		logger.Fatal("Failed to connect to database:", err)
	}
	defer closeDatabase(db)

	vcaRepo := repository.NewVCARepository(db)
	activityRepo := repository.NewActivityRepository(db)
	mappingRepo := repository.NewMappingRepository(db)
	actionRepo := repository.NewActionRepository(db)
	userRepo := repository.NewUserRepository(db)

	locks := keylock.New()

	scorerSvc := service.NewScorerService(activityRepo, vcaRepo)
	registrySvc := service.NewRegistryService(vcaRepo, mappingRepo, locks)
	ledgerSvc := service.NewLedgerService(vcaRepo, activityRepo, scorerSvc, locks)
	pointsSvc := service.NewPointsService(userRepo, actionRepo, locks)

	var shareJob *scheduler.ShareVerifyJob
	if cfg.Points.ShareVerificationEnabled {
		shareJob = scheduler.NewShareVerifyJob(
			activityRepo,
			pointsSvc,
			scheduler.NoopVerifier{},
			cfg.Points.ShareVerificationCron,
			cfg.Points.ShareBatchSize,
		)
		if err := shareJob.Start(); err != nil {
			logger.Fatal("Failed to start share verification job:", err)
		}
		defer shareJob.Stop()
	}

	router := setupHTTPRouter(registrySvc, ledgerSvc, pointsSvc, vcaRepo, activityRepo, actionRepo, userRepo)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	go func() {
		logger.Info("Server starting on port", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Server failed:", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server shutdown error:", err)
	}

	logger.Info("Server stopped")
}

func initDatabase(cfg config.DatabaseConfig) (*gorm.DB, error) {
	db, err := gorm.Open(mysql.Open(cfg.DSN()), &gorm.Config{})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}

	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(time.Duration(cfg.ConnMaxLifetime) * time.Second)

	return db, nil
}

func closeDatabase(db *gorm.DB) {
	sqlDB, err := db.DB()
	if err != nil {
		logger.Error("Failed to get database instance:", err)
		return
	}
	sqlDB.Close()
}

func setupHTTPRouter(
	registrySvc *service.RegistryService,
	ledgerSvc *service.LedgerService,
	pointsSvc *service.PointsService,
	vcaRepo *repository.VCARepository,
	activityRepo *repository.ActivityRepository,
	actionRepo *repository.ActionRepository,
	userRepo *repository.UserRepository,
) http.Handler {
	router := http.NewServeMux()

	vcaHandler := handler.NewVCAHandler(registrySvc, ledgerSvc)
	pointsHandler := handler.NewPointsHandler(pointsSvc)
	statsHandler := handler.NewStatsHandler(vcaRepo, activityRepo, actionRepo, userRepo)

	router.HandleFunc("/api/vca", vcaHandler.CreateOrGet)
	router.HandleFunc("/api/vca/list", vcaHandler.List)
	router.HandleFunc("/api/vca/by-project/", vcaHandler.GetByProject)
	router.HandleFunc("/api/vca/by-token/", vcaHandler.GetByToken)
	router.HandleFunc("/api/vca/", vcaHandler.Dispatch)
	router.HandleFunc("/api/users", pointsHandler.RegisterUser)
	router.HandleFunc("/api/points/award", pointsHandler.Award)
	router.HandleFunc("/api/points/can-perform", pointsHandler.CanPerform)
	router.HandleFunc("/api/points/", pointsHandler.Dispatch)
	router.HandleFunc("/api/ranks", handler.HandleRanks)
	router.HandleFunc("/api/stats", statsHandler.GetStats)
	router.HandleFunc("/health", handler.HandleHealth)

	return router
}
