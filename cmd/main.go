package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"evm-service/internal/config"
	"evm-service/internal/database/postgres"
	"evm-service/internal/database/redis"
	"evm-service/internal/event"
	"evm-service/internal/handlers"
	"evm-service/internal/repository"
	"evm-service/internal/services"
	"evm-service/internal/worker"

	"github.com/gofiber/fiber/v3"
	redislib "github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
)

func setupLogging() (*os.File, error) {
	defer func() {
		if r := recover(); r != nil {
			fmt.Printf("Recovered from panic: %v\n", r)
		}
	}()

	logDir := filepath.Join("/evm", "log", "evm_service")
	fmt.Println("Log directory:", logDir)
	err := os.MkdirAll(logDir, 0o755)
	if err != nil {
		return nil, fmt.Errorf("failed to create log directory: %v", err)
	}

	currentTime := time.Now()
	logFileName := fmt.Sprintf("log_%s.log", currentTime.Format("2006-01-02"))
	logFile := filepath.Join(logDir, logFileName)

	file, err := os.OpenFile(logFile, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %v", err)
	}

	log.SetOutput(file)
	log.SetFlags(log.Ldate | log.Ltime | log.Lshortfile)

	return file, nil
}

func main() {
	logFile, err := setupLogging()
	if err != nil {
		log.Fatalf("Failed to set up logging: %v", err)
	}
	defer logFile.Close()

	cfg := config.New()

	log.Printf("Connecting to PostgreSQL with: host=%s, port=%s, user=%s, dbname=%s",
		cfg.PostgresCfg.Host, cfg.PostgresCfg.Port, cfg.PostgresCfg.Username, cfg.PostgresCfg.DBname)
	db, err := postgres.ConnectAndCreateDB(cfg.PostgresCfg)
	if err != nil {
		log.Printf("error connect to database: %s", err)
		go postgres.RetryConnectOnFailed(30*time.Second, &db, cfg.PostgresCfg)
	}

	// Redis is a read cache; keep serving without it.
	var cacheClient *redislib.Client
	redisClient, err := redis.NewRedisClient(cfg.RedisCfg.Host, cfg.RedisCfg.Port, cfg.RedisCfg.Password, cfg.RedisCfg.DB)
	if err != nil {
		log.Printf("error connect to redis, indicator cache disabled: %s", err)
	} else {
		cacheClient = redisClient.GetClient()
		defer redisClient.Close()
	}

	// RabbitMQ carries batch and alert events; keep serving without it.
	var publisher services.EventPublisher
	rabbitConn, err := event.ConnectRabbitMQ(cfg.RabbitMQCfg)
	if err != nil {
		log.Printf("error connect to rabbitmq, event publishing disabled: %s", err)
	} else {
		publisher = event.NewEVMEventPublisher(rabbitConn)
		defer rabbitConn.Close()
	}

	alertThreshold, err := decimal.NewFromString(cfg.SnapshotCfg.AlertThreshold)
	if err != nil {
		log.Printf("invalid INDICATOR_ALERT_THRESHOLD %q, using 0.9: %s", cfg.SnapshotCfg.AlertThreshold, err)
		alertThreshold = decimal.RequireFromString("0.9")
	}

	programRepo := repository.NewProgramRepository(db)
	accountRepo := repository.NewControlAccountRepository(db)
	workPackageRepo := repository.NewWorkPackageRepository(db)
	dataRepo := repository.NewEVMDataRepository(db)
	snapshotRepo := repository.NewSnapshotRepository(db)
	batchRepo := repository.NewIngestionBatchRepository(db)

	poolCtx, poolCancel := context.WithCancel(context.Background())
	defer poolCancel()

	pool := worker.NewWorkingPool(cfg.SnapshotCfg.NumWorkers, cfg.SnapshotCfg.QueueSize)
	var poolWg sync.WaitGroup
	poolWg.Add(1)
	go pool.Start(poolCtx, &poolWg)

	programService := services.NewProgramService(programRepo, accountRepo, workPackageRepo)
	indicatorService := services.NewIndicatorService(dataRepo, cacheClient)
	snapshotService := services.NewSnapshotService(accountRepo, dataRepo, snapshotRepo, batchRepo, publisher, alertThreshold)
	ingestionService := services.NewIngestionService(dataRepo, batchRepo, snapshotService, indicatorService, pool)

	app := fiber.New()
	app.Get("/checkhealth", func(c fiber.Ctx) error {
		return c.Status(fiber.StatusOK).SendString("EVM service is healthy")
	})

	handlers.NewProgramHandler(programService).Register(app)
	handlers.NewIngestionHandler(ingestionService).Register(app)
	handlers.NewIndicatorHandler(indicatorService).Register(app)
	handlers.NewSnapshotHandler(snapshotService).Register(app)

	shutdownChan := make(chan os.Signal, 1)
	signal.Notify(shutdownChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		log.Printf("Starting server on port %s", cfg.Port)
		if err := app.Listen(fmt.Sprintf("0.0.0.0:%s", cfg.Port)); err != nil {
			log.Fatalf("Error starting server: %v", err)
		}
	}()

	<-shutdownChan
	log.Println("Shutting down server...")
	poolCancel()
	poolWg.Wait()
}
